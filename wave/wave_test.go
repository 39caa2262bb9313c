package wave

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriter_StereoHeader(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out, 49716, 2)
	if _, err := w.Write([]int16{1, -1, 0x1234, -32768}); err != nil {
		t.Fatal(err)
	}
	if w.SampleCount() != 4 || w.Frames() != 2 {
		t.Errorf("SampleCount()=%d Frames()=%d, want 4, 2", w.SampleCount(), w.Frames())
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	b := out.Bytes()
	if len(b) != HeaderSize+8 {
		t.Fatalf("file size got %d, want %d", len(b), HeaderSize+8)
	}
	if string(b[0:4]) != "RIFF" || string(b[8:16]) != "WAVEfmt " || string(b[0x24:0x28]) != "data" {
		t.Errorf("bad chunk ids: %q", b[:0x28])
	}

	le := binary.LittleEndian
	fields := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"riff size", le.Uint32(b[0x04:]), 36 + 8},
		{"format", uint32(le.Uint16(b[0x14:])), 1},
		{"channels", uint32(le.Uint16(b[0x16:])), 2},
		{"sample rate", le.Uint32(b[0x18:]), 49716},
		{"byte rate", le.Uint32(b[0x1C:]), 49716 * 4},
		{"block align", uint32(le.Uint16(b[0x20:])), 4},
		{"bits", uint32(le.Uint16(b[0x22:])), 16},
		{"data size", le.Uint32(b[0x28:]), 8},
	}
	for _, f := range fields {
		if f.got != f.want {
			t.Errorf("%s got %d, want %d", f.name, f.got, f.want)
		}
	}

	want := []byte{0x01, 0x00, 0xFF, 0xFF, 0x34, 0x12, 0x00, 0x80}
	if diff := cmp.Diff(want, b[HeaderSize:]); diff != "" {
		t.Errorf("sample data mismatch (-want +got):\n%s", diff)
	}
}

func TestWriter_MonoBlockAlign(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out, 22050, 1)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	b := out.Bytes()
	if got := binary.LittleEndian.Uint16(b[0x20:]); got != 2 {
		t.Errorf("block align got %d, want 2", got)
	}
	if got := binary.LittleEndian.Uint32(b[0x1C:]); got != 44100 {
		t.Errorf("byte rate got %d, want 44100", got)
	}
}

func TestWriter_LargeWrite(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out, 44100, 2)
	p := make([]int16, 5000)
	for i := range p {
		p[i] = int16(i)
	}
	if _, err := w.Write(p); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	data := out.Bytes()[HeaderSize:]
	if len(data) != 10000 {
		t.Fatalf("data size got %d, want 10000", len(data))
	}
	for i := range p {
		if got := int16(binary.LittleEndian.Uint16(data[i*2:])); got != p[i] {
			t.Fatalf("sample %d got %d, want %d", i, got, p[i])
		}
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriter_CloseError(t *testing.T) {
	w := NewWriter(failWriter{}, 44100, 2)
	if err := w.Close(); err == nil {
		t.Error("expected write error from Close")
	}
}
