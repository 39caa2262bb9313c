package adapter

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/user-none/emopl/emu"
)

// fakeEngine records register writes and delivers canned samples.
type fakeEngine struct {
	writes [][2]int

	stereo bool
	// fill returns the accumulator value for sample index i of a block.
	fill func(i int) int32

	calls      int
	lastFrames int
}

func (f *fakeEngine) WriteRegister(addr, val int) {
	f.writes = append(f.writes, [2]int{addr, val})
}

func (f *fakeEngine) GenerateBlock(frames int, sink emu.Sink) {
	f.calls++
	f.lastFrames = frames
	n := frames
	if f.stereo {
		n *= 2
	}
	samples := make([]int32, n)
	for i := range samples {
		if f.fill != nil {
			samples[i] = f.fill(i)
		}
	}
	if f.stereo {
		sink.DeliverStereo(samples)
	} else {
		sink.DeliverMono(samples)
	}
}

func constant(v int32) func(int) int32 {
	return func(int) int32 { return v }
}

// --- Construction ---

func TestNew_BufferCapacityIgnoresRequest(t *testing.T) {
	testCases := []struct {
		channels  int
		requested int
		want      int
	}{
		{1, 0, 512},
		{1, 4096, 512},
		{2, 1024, 1024},
		{2, 16, 1024},
	}
	for _, tc := range testCases {
		a := New(&fakeEngine{}, 44100, tc.channels, tc.requested)
		if got := len(a.Buffer()); got != tc.want {
			t.Errorf("channels=%d requested=%d: buffer len got %d, want %d",
				tc.channels, tc.requested, got, tc.want)
		}
		if a.Channels() != tc.channels {
			t.Errorf("Channels() got %d, want %d", a.Channels(), tc.channels)
		}
	}
}

func TestNew_SampleRate(t *testing.T) {
	a := New(&fakeEngine{}, 22050, 1, 512)
	if a.SampleRate() != 22050 {
		t.Errorf("SampleRate() got %d, want 22050", a.SampleRate())
	}
}

// --- Register passthrough ---

func TestWriteRegister_Passthrough(t *testing.T) {
	eng := &fakeEngine{}
	a := New(eng, 49716, 2, 512)
	a.WriteRegister(0x20, 0x01)
	a.WriteRegister(0x1FF, 0x1234) // Out of range values are the engine's concern
	a.WriteRegister(-1, -1)

	want := [][2]int{{0x20, 0x01}, {0x1FF, 0x1234}, {-1, -1}}
	if diff := cmp.Diff(want, eng.writes); diff != "" {
		t.Errorf("register writes mismatch (-want +got):\n%s", diff)
	}
}

// --- Frame count bounds ---

func TestGenerate_FrameCountBounds(t *testing.T) {
	testCases := []struct {
		frames int
		ok     bool
	}{
		{-5, false},
		{0, false},
		{1, false},
		{2, true},
		{3, true},
		{256, true},
		{511, true},
		{512, true},
		{513, false},
		{100000, false},
	}
	for _, tc := range testCases {
		eng := &fakeEngine{fill: constant(1)}
		a := New(eng, 49716, 2, 512)
		err := a.Generate(tc.frames)
		if tc.ok {
			if err != nil {
				t.Errorf("Generate(%d): unexpected error %v", tc.frames, err)
			}
			if eng.calls != 1 || eng.lastFrames != tc.frames {
				t.Errorf("Generate(%d): engine called %d times with %d frames",
					tc.frames, eng.calls, eng.lastFrames)
			}
			continue
		}

		if !errors.Is(err, ErrUsage) {
			t.Errorf("Generate(%d): got %v, want ErrUsage", tc.frames, err)
		}
		var ue *UsageError
		if !errors.As(err, &ue) || ue.FrameCount != tc.frames {
			t.Errorf("Generate(%d): want *UsageError with FrameCount %d, got %v", tc.frames, tc.frames, err)
		}
		if eng.calls != 0 {
			t.Errorf("Generate(%d): engine should not be called, got %d calls", tc.frames, eng.calls)
		}
	}
}

func TestGenerate_RejectedCallLeavesBuffer(t *testing.T) {
	eng := &fakeEngine{fill: func(i int) int32 { return int32(i) }}
	a := New(eng, 49716, 2, 512)
	if err := a.Generate(512); err != nil {
		t.Fatalf("Generate(512): %v", err)
	}
	before := append([]int16(nil), a.Buffer()...)

	eng.fill = constant(-1000)
	for _, n := range []int{1, 513} {
		if err := a.Generate(n); err == nil {
			t.Fatalf("Generate(%d): expected error", n)
		}
		if diff := cmp.Diff(before, a.Buffer()); diff != "" {
			t.Errorf("Generate(%d) changed buffer (-before +after):\n%s", n, diff)
		}
	}
}

func TestUsageError_Message(t *testing.T) {
	testCases := []struct {
		frames int
		want   string
	}{
		{1, "cannot generate fewer than 2 samples per call (got 1)"},
		{513, "cannot generate more than 512 samples per call (got 513)"},
	}
	for _, tc := range testCases {
		err := &UsageError{FrameCount: tc.frames}
		if err.Error() != tc.want {
			t.Errorf("Error() got %q, want %q", err.Error(), tc.want)
		}
	}
}

// --- Amplification and clipping ---

func TestAmplify(t *testing.T) {
	testCases := []struct {
		in   int32
		want int16
	}{
		{0, 0},
		{1, 2},
		{-1, -2},
		{1000, 2000},
		{16383, 32766},
		{16384, 32767},
		{-16384, -32768},
		{-16385, -32768},
		{0x7FFFFFFF, 32767},
		{-0x7FFFFFFF, -32768},
		{math.MinInt32, -32768},
	}
	for _, tc := range testCases {
		if got := amplify(tc.in); got != tc.want {
			t.Errorf("amplify(%d) got %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestDeliverMono_ClipsWithoutWrap(t *testing.T) {
	eng := &fakeEngine{fill: func(i int) int32 {
		if i%2 == 0 {
			return 0x7FFFFFFF
		}
		return -0x7FFFFFFF
	}}
	a := New(eng, 49716, 1, 512)
	out, err := a.Render(4)
	if err != nil {
		t.Fatalf("Render(4): %v", err)
	}
	want := []int16{32767, -32768, 32767, -32768}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("clipped output mismatch (-want +got):\n%s", diff)
	}
}

// --- Channel mapping ---

func TestDeliverMono_StereoOutputDuplicates(t *testing.T) {
	eng := &fakeEngine{fill: func(i int) int32 { return int32(i*100 - 5000) }}
	a := New(eng, 49716, 2, 512)
	if err := a.Generate(100); err != nil {
		t.Fatalf("Generate(100): %v", err)
	}
	buf := a.Buffer()
	for i := 0; i < 100; i++ {
		want := amplify(int32(i*100 - 5000))
		if buf[i*2] != want || buf[i*2+1] != want {
			t.Errorf("frame %d: got (%d, %d), want (%d, %d)", i, buf[i*2], buf[i*2+1], want, want)
		}
	}
}

func TestDeliverStereo_MonoOutputKeepsLeft(t *testing.T) {
	// Left samples are small positive, right samples are large negative
	eng := &fakeEngine{stereo: true, fill: func(i int) int32 {
		if i%2 == 0 {
			return int32(i)
		}
		return -20000
	}}
	a := New(eng, 49716, 1, 512)
	out, err := a.Render(8)
	if err != nil {
		t.Fatalf("Render(8): %v", err)
	}
	want := []int16{0, 4, 8, 12, 16, 20, 24, 28}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("mono output mismatch (-want +got):\n%s", diff)
	}
}

func TestDeliverStereo_StereoOutputIndependentClip(t *testing.T) {
	eng := &fakeEngine{stereo: true, fill: func(i int) int32 {
		if i%2 == 0 {
			return 0x7FFFFFFF
		}
		return 300
	}}
	a := New(eng, 49716, 2, 512)
	out, err := a.Render(2)
	if err != nil {
		t.Fatalf("Render(2): %v", err)
	}
	want := []int16{32767, 600, 32767, 600}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("stereo output mismatch (-want +got):\n%s", diff)
	}
}

// --- Buffer reuse ---

func TestGenerate_OverwritesFromStartKeepsTail(t *testing.T) {
	eng := &fakeEngine{fill: constant(100)}
	a := New(eng, 49716, 2, 512)
	if err := a.Generate(512); err != nil {
		t.Fatalf("Generate(512): %v", err)
	}

	eng.fill = constant(5)
	if err := a.Generate(2); err != nil {
		t.Fatalf("Generate(2): %v", err)
	}
	buf := a.Buffer()
	for i := 0; i < 4; i++ {
		if buf[i] != 10 {
			t.Errorf("buf[%d] got %d, want 10", i, buf[i])
		}
	}
	for i := 4; i < len(buf); i++ {
		if buf[i] != 200 {
			t.Errorf("stale buf[%d] got %d, want 200", i, buf[i])
			break
		}
	}
}

func TestRender_AliasesBuffer(t *testing.T) {
	eng := &fakeEngine{fill: constant(7)}
	a := New(eng, 49716, 2, 512)
	out, err := a.Render(10)
	if err != nil {
		t.Fatalf("Render(10): %v", err)
	}
	if len(out) != 20 {
		t.Fatalf("Render(10) len got %d, want 20", len(out))
	}
	out[0] = -1
	if a.Buffer()[0] != -1 {
		t.Error("Render result should alias the adapter buffer")
	}
}

func TestRender_Error(t *testing.T) {
	a := New(&fakeEngine{}, 49716, 1, 512)
	out, err := a.Render(600)
	if err == nil || out != nil {
		t.Errorf("Render(600) got (%v, %v), want (nil, error)", out, err)
	}
}

// --- Real engines ---

func TestNewOPL_EndToEnd(t *testing.T) {
	a := NewOPL(49716, 2, 1024)
	a.WriteRegister(0x20, 0x01)
	if err := a.Generate(64); err != nil {
		t.Fatalf("Generate(64): %v", err)
	}
	if got := len(a.Buffer()); got != 1024 {
		t.Errorf("buffer len got %d, want 1024", got)
	}
}

// keyOnChannel0 programs a full-volume sine note on OPL channel 0.
func keyOnChannel0(a *Adapter) {
	for _, w := range [][2]int{
		{0x20, 0x01}, {0x23, 0x01}, // MULT 1
		{0x40, 0x00}, {0x43, 0x00}, // TL 0
		{0x60, 0xF0}, {0x63, 0xF0}, // AR 15, DR 0
		{0x80, 0x00}, {0x83, 0x00}, // SL 0, RR 0
		{0xA0, 0x98},
		{0xB0, 0x31}, // Key on, block 4
	} {
		a.WriteRegister(w[0], w[1])
	}
}

func TestNewOPL_RegisterWritesAlterOutput(t *testing.T) {
	a := NewOPL(49716, 2, 512)
	out, err := a.Render(256)
	if err != nil {
		t.Fatalf("Render(256): %v", err)
	}
	for i, s := range out {
		if s != 0 {
			t.Fatalf("sample %d before key on got %d, want 0", i, s)
		}
	}

	keyOnChannel0(a)
	out, err = a.Render(256)
	if err != nil {
		t.Fatalf("Render(256): %v", err)
	}
	nonZero := 0
	for i := 0; i < len(out); i += 2 {
		if out[i] != out[i+1] {
			t.Fatalf("OPL2 mono frame %d: channels differ (%d, %d)", i/2, out[i], out[i+1])
		}
		if out[i] != 0 {
			nonZero++
		}
	}
	if nonZero == 0 {
		t.Error("expected audible output after key on")
	}
}

func TestNewOPL_OPL3StereoRouting(t *testing.T) {
	a := NewOPL(49716, 2, 512)
	a.WriteRegister(0x105, 0x01) // OPL3 mode
	keyOnChannel0(a)
	a.WriteRegister(0xC0, 0x10) // Left only, FM

	out, err := a.Render(256)
	if err != nil {
		t.Fatalf("Render(256): %v", err)
	}
	left := 0
	for i := 0; i < len(out); i += 2 {
		if out[i+1] != 0 {
			t.Fatalf("frame %d: right channel got %d, want 0", i/2, out[i+1])
		}
		if out[i] != 0 {
			left++
		}
	}
	if left == 0 {
		t.Error("expected output on the left channel")
	}
}

func TestNewPSG_Generate(t *testing.T) {
	a := NewPSG(emu.DefaultPSGClock, 44100, 2, 512)
	a.WriteRegister(0, 0x9F) // Channel 0 volume off
	if err := a.Generate(512); err != nil {
		t.Fatalf("Generate(512): %v", err)
	}
	buf := a.Buffer()
	for i := 0; i < len(buf); i += 2 {
		if buf[i] != buf[i+1] {
			t.Fatalf("PSG frame %d: channels differ (%d, %d)", i/2, buf[i], buf[i+1])
		}
	}
}
