// Package adapter converts the accumulator output of a chip engine into
// clipped, interleaved 16-bit PCM held in a fixed-size buffer.
package adapter

import (
	"errors"
	"fmt"
	"math"

	"github.com/user-none/emopl/emu"
)

const (
	// DefaultSampleRate is the OPL's native output rate.
	DefaultSampleRate = emu.NativeRate

	// MinBlockFrames and MaxBlockFrames bound the frame count of one Generate call.
	MinBlockFrames = 2
	MaxBlockFrames = 512

	// gainShift is the fixed amplification applied to every accumulator
	// sample (x2).
	gainShift = 1
)

// ErrUsage is matched by every *UsageError.
var ErrUsage = errors.New("adapter usage error")

// UsageError reports a Generate call with a frame count outside
// [MinBlockFrames, MaxBlockFrames].
type UsageError struct {
	FrameCount int
}

func (e *UsageError) Error() string {
	if e.FrameCount > MaxBlockFrames {
		return fmt.Sprintf("cannot generate more than %d samples per call (got %d)", MaxBlockFrames, e.FrameCount)
	}
	return fmt.Sprintf("cannot generate fewer than %d samples per call (got %d)", MinBlockFrames, e.FrameCount)
}

func (e *UsageError) Unwrap() error {
	return ErrUsage
}

// Engine is a register-driven synthesis engine. GenerateBlock must call
// exactly one of the sink's methods exactly once with frames samples
// (mono) or frames L,R pairs (stereo).
type Engine interface {
	WriteRegister(addr, val int)
	GenerateBlock(frames int, sink emu.Sink)
}

// Compile-time interface checks.
var (
	_ emu.Sink = (*Adapter)(nil)
	_ Engine   = (*emu.OPL)(nil)
	_ Engine   = (*emu.PSG)(nil)
)

// Adapter drives an Engine and converts its output into 16-bit PCM with
// 1 or 2 interleaved channels.
//
// The output buffer holds MaxBlockFrames frames and is allocated once.
// Every Generate call overwrites it from the start; entries past the
// frames written by the last call keep whatever an earlier call left.
//
// An Adapter is not safe for concurrent use.
type Adapter struct {
	engine     Engine
	sampleRate int
	channels   int
	buf        []int16
}

// New creates an Adapter around engine. channels must be 1 or 2.
// requestedBufferFrames is accepted for compatibility and ignored: the
// buffer always holds MaxBlockFrames frames.
func New(engine Engine, sampleRate, channels, requestedBufferFrames int) *Adapter {
	return &Adapter{
		engine:     engine,
		sampleRate: sampleRate,
		channels:   channels,
		buf:        make([]int16, MaxBlockFrames*channels),
	}
}

// NewOPL creates an Adapter around a new OPL engine running at sampleRate.
func NewOPL(sampleRate, channels, requestedBufferFrames int) *Adapter {
	return New(emu.NewOPL(sampleRate), sampleRate, channels, requestedBufferFrames)
}

// NewPSG creates an Adapter around a new SN76489 engine.
func NewPSG(clockHz, sampleRate, channels, requestedBufferFrames int) *Adapter {
	return New(emu.NewPSG(clockHz, sampleRate), sampleRate, channels, requestedBufferFrames)
}

// SampleRate returns the sample rate given at construction.
func (a *Adapter) SampleRate() int {
	return a.sampleRate
}

// Channels returns the number of output channels.
func (a *Adapter) Channels() int {
	return a.channels
}

// WriteRegister passes a register write to the engine unchanged.
func (a *Adapter) WriteRegister(reg, val int) {
	a.engine.WriteRegister(reg, val)
}

// Generate fills the start of the buffer with frames frames. A frame
// count outside [MinBlockFrames, MaxBlockFrames] returns a *UsageError
// and leaves the buffer untouched.
func (a *Adapter) Generate(frames int) error {
	if frames < MinBlockFrames || frames > MaxBlockFrames {
		return &UsageError{FrameCount: frames}
	}
	a.engine.GenerateBlock(frames, a)
	return nil
}

// Render calls Generate and returns the frames*channels samples it wrote.
// The returned slice aliases the buffer.
func (a *Adapter) Render(frames int) ([]int16, error) {
	if err := a.Generate(frames); err != nil {
		return nil, err
	}
	return a.buf[:frames*a.channels], nil
}

// Buffer returns the whole output buffer, MaxBlockFrames*Channels()
// samples long. It stays valid for the lifetime of the Adapter and is
// overwritten in place by every Generate call.
func (a *Adapter) Buffer() []int16 {
	return a.buf
}

// DeliverMono implements emu.Sink. Each sample is written once, or twice
// when the adapter has two channels.
func (a *Adapter) DeliverMono(samples []int32) {
	if a.channels == 2 {
		for i, s := range samples {
			v := amplify(s)
			a.buf[i*2] = v
			a.buf[i*2+1] = v
		}
		return
	}
	for i, s := range samples {
		a.buf[i] = amplify(s)
	}
}

// DeliverStereo implements emu.Sink. With one channel only the left
// sample of each pair is kept.
func (a *Adapter) DeliverStereo(samples []int32) {
	frames := len(samples) / 2
	if a.channels == 2 {
		for i := 0; i < frames; i++ {
			a.buf[i*2] = amplify(samples[i*2])
			a.buf[i*2+1] = amplify(samples[i*2+1])
		}
		return
	}
	for i := 0; i < frames; i++ {
		a.buf[i] = amplify(samples[i*2])
	}
}

// amplify applies the fixed gain and saturates to the int16 range. The
// shift is done in 64 bits so large accumulator values cannot wrap.
func amplify(s int32) int16 {
	v := int64(s) << gainShift
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
