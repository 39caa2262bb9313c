// Package wave writes 16-bit PCM RIFF/WAVE files.
package wave

import (
	"bytes"
	"encoding/binary"
	"io"
)

// HeaderSize is the size of the canonical WAVE header written by Close.
const HeaderSize = 0x2C

const sampleSize = 2

// A Writer collects interleaved 16-bit samples and writes them as a wave
// file on Close, once the data length is known.
type Writer struct {
	w           io.Writer
	sampleRate  int
	chanCount   int
	sampleCount int
	bb          bytes.Buffer
}

// NewWriter creates a Writer for sampleRate Hz audio with chanCount
// interleaved channels. Close must be called to write the file to w.
func NewWriter(w io.Writer, sampleRate, chanCount int) *Writer {
	return &Writer{
		w:          w,
		sampleRate: sampleRate,
		chanCount:  chanCount,
	}
}

func (w *Writer) header() [HeaderSize]byte {
	dataSize := sampleSize * w.sampleCount
	frameSize := sampleSize * w.chanCount
	h := [HeaderSize]byte{
		'R', 'I', 'F', 'F',
		0, 0, 0, 0, //        length of rest of file
		'W', 'A', 'V', 'E',
		'f', 'm', 't', ' ',
		16, 0, 0, 0, //       size of fmt chunk
		1, 0, //              uncompressed format
		0, 0, //              channel count
		0, 0, 0, 0, //        sample rate
		0, 0, 0, 0, //        bytes per second
		0, 0, //              bytes per sample frame
		sampleSize * 8, 0, // bits per sample
		'd', 'a', 't', 'a',
		0, 0, 0, 0, //        size of sample data
	}

	binary.LittleEndian.PutUint32(h[0x04:], uint32(len(h)-8+dataSize))
	binary.LittleEndian.PutUint16(h[0x16:], uint16(w.chanCount))
	binary.LittleEndian.PutUint32(h[0x18:], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(h[0x1C:], uint32(w.sampleRate*frameSize))
	binary.LittleEndian.PutUint16(h[0x20:], uint16(frameSize))
	binary.LittleEndian.PutUint32(h[0x28:], uint32(dataSize))
	return h
}

// SampleCount returns the number of samples written so far, counting each
// channel separately.
func (w *Writer) SampleCount() int {
	return w.sampleCount
}

// Frames returns the number of sample frames written so far.
func (w *Writer) Frames() int {
	return w.sampleCount / w.chanCount
}

// Write appends interleaved samples. p is copied and may be reused.
func (w *Writer) Write(p []int16) (int, error) {
	var buf [4096]byte
	for rest := p; len(rest) > 0; {
		n := min(len(rest), len(buf)/sampleSize)
		for i, s := range rest[:n] {
			binary.LittleEndian.PutUint16(buf[i*sampleSize:], uint16(s))
		}
		w.bb.Write(buf[:n*sampleSize])
		rest = rest[n:]
	}
	w.sampleCount += len(p)
	return len(p), nil
}

// Close writes the header and sample data to the underlying writer. The
// underlying writer is not closed.
func (w *Writer) Close() error {
	hdr := w.header()
	if _, err := w.w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(w.bb.Bytes()); err != nil {
		return err
	}
	w.bb.Reset()
	w.sampleCount = 0
	return nil
}
