package emu

import (
	"math"

	"github.com/user-none/go-chip-sn76489"
)

const (
	// DefaultPSGClock is the SN76489 clock used when none is given (NTSC colorburst).
	DefaultPSGClock = 3579545

	psgBufferSize = 1024
	psgGain       = 1898.0

	// psgRunSamples is how many output samples one Run call targets.
	psgRunSamples = 64
)

// PSG is a mono engine backed by an SN76489 programmable sound generator.
// Register writes go to the chip's single data port.
type PSG struct {
	chip       *sn76489.SN76489
	sampleRate int
	runClocks  int

	// Samples generated past the end of the previous block
	pending []int32
	out     []int32
}

// NewPSG creates a new PSG engine. A non-positive clockHz selects
// DefaultPSGClock and a non-positive sampleRate selects NativeRate.
func NewPSG(clockHz, sampleRate int) *PSG {
	if clockHz <= 0 {
		clockHz = DefaultPSGClock
	}
	if sampleRate <= 0 {
		sampleRate = NativeRate
	}
	chip := sn76489.New(clockHz, sampleRate, psgBufferSize, sn76489.Sega)
	chip.SetGain(psgGain)

	runClocks := clockHz / sampleRate * psgRunSamples
	if runClocks < 1 {
		runClocks = 1
	}

	return &PSG{
		chip:       chip,
		sampleRate: sampleRate,
		runClocks:  runClocks,
		pending:    make([]int32, 0, 2*psgBufferSize),
		out:        make([]int32, 0, 512),
	}
}

// SampleRate returns the output sample rate.
func (p *PSG) SampleRate() int {
	return p.sampleRate
}

// WriteRegister writes val to the data port. The SN76489 has a single
// write port, so addr is ignored.
func (p *PSG) WriteRegister(addr, val int) {
	p.chip.Write(uint8(val))
}

// Reset returns the chip to its power-on state and drops pending samples.
func (p *PSG) Reset() {
	p.chip.Reset()
	p.pending = p.pending[:0]
}

// GenerateBlock runs the chip until frames samples are available and
// hands them to sink.DeliverMono. Any surplus is kept for the next block.
func (p *PSG) GenerateBlock(frames int, sink Sink) {
	if frames < 0 {
		frames = 0
	}
	for len(p.pending) < frames {
		p.chip.ResetBuffer()
		p.chip.Run(p.runClocks)
		buf, n := p.chip.GetBuffer()
		for _, s := range buf[:n] {
			p.pending = append(p.pending, floatToAccum(float64(s)))
		}
	}

	if cap(p.out) < frames {
		p.out = make([]int32, 0, frames)
	}
	out := p.out[:frames]
	copy(out, p.pending)
	p.pending = p.pending[:copy(p.pending, p.pending[frames:])]

	sink.DeliverMono(out)
}

// floatToAccum rounds a chip sample to a 32-bit accumulator value.
func floatToAccum(s float64) int32 {
	r := math.Round(s)
	if r > math.MaxInt32 {
		return math.MaxInt32
	}
	if r < math.MinInt32 {
		return math.MinInt32
	}
	return int32(r)
}
