// Package cli provides the command-line song renderer. It replays a song's
// register writes through an adapter and writes the result as a WAV file.
package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/user-none/emopl/adapter"
	"github.com/user-none/emopl/song"
	"github.com/user-none/emopl/wave"
	"golang.org/x/term"
)

// progressInterval is how much song time passes between progress updates.
const progressInterval = 5 // seconds

// Runner renders songs read from and written to a filesystem.
type Runner struct {
	fs  afero.Fs
	cfg Config
	log *log.Logger
	out io.Writer

	// Progress state for the current render
	progress   bool
	totalTicks uint64
	doneTicks  uint64
	sinceShown uint64
}

// NewRunner creates a Runner. Status messages go to out.
func NewRunner(fs afero.Fs, cfg Config, out io.Writer) *Runner {
	return &Runner{
		fs:  fs,
		cfg: cfg,
		log: log.New(out, "", 0),
		out: out,
	}
}

// newAdapter creates an adapter around the engine the song was written for.
func (r *Runner) newAdapter(s *song.Song) (*adapter.Adapter, error) {
	switch s.Chip {
	case song.ChipOPL2, song.ChipOPL3:
		return adapter.NewOPL(r.cfg.SampleRate, r.cfg.Channels, adapter.MaxBlockFrames), nil
	case song.ChipSN76489:
		return adapter.NewPSG(int(s.ClockHz), r.cfg.SampleRate, r.cfg.Channels, adapter.MaxBlockFrames), nil
	default:
		return nil, fmt.Errorf("no engine for %v", s.Chip)
	}
}

// Render renders the song at inPath to a WAV file at outPath.
func (r *Runner) Render(inPath, outPath string) (Stats, error) {
	if err := r.cfg.Validate(); err != nil {
		return Stats{}, err
	}

	data, err := afero.ReadFile(r.fs, inPath)
	if err != nil {
		return Stats{}, fmt.Errorf("read song: %w", err)
	}
	s, err := song.Load(inPath, data)
	if err != nil {
		return Stats{}, fmt.Errorf("load %s: %w", filepath.Base(inPath), err)
	}
	if r.cfg.TickRate != 0 {
		s.TickRate = r.cfg.TickRate
	}
	if len(s.Events) == 0 {
		r.log.Printf("Warning: %s contains no register writes", filepath.Base(inPath))
	}

	a, err := r.newAdapter(s)
	if err != nil {
		return Stats{}, err
	}

	f, err := r.fs.Create(outPath)
	if err != nil {
		return Stats{}, fmt.Errorf("create output: %w", err)
	}
	closed := false
	defer func() {
		if !closed {
			f.Close()
		}
	}()

	r.progress = r.cfg.Progress && isTerminal(r.out)
	r.totalTicks = s.Ticks()
	r.doneTicks = 0
	r.sinceShown = 0

	start := time.Now()
	w := wave.NewWriter(f, r.cfg.SampleRate, r.cfg.Channels)
	p := &player{adapter: a, wav: w, sampleRate: uint64(r.cfg.SampleRate), tickRate: uint64(s.TickRate)}

	if err := p.wait(s.Lead); err != nil {
		return Stats{}, err
	}
	r.advance(s.Lead, s.TickRate)
	for _, e := range s.Events {
		a.WriteRegister(int(e.Register), int(e.Value))
		if err := p.wait(e.Delay); err != nil {
			return Stats{}, err
		}
		r.advance(e.Delay, s.TickRate)
	}

	frames := w.Frames()
	if err := w.Close(); err != nil {
		return Stats{}, fmt.Errorf("write output: %w", err)
	}
	closed = true
	if err := f.Close(); err != nil {
		return Stats{}, fmt.Errorf("write output: %w", err)
	}
	if r.progress {
		fmt.Fprint(r.out, "\r")
	}

	return Stats{
		Frames:   frames,
		Duration: time.Duration(frames) * time.Second / time.Duration(r.cfg.SampleRate),
		Elapsed:  time.Since(start),
	}, nil
}

// advance records ticks of song progress and prints the completed
// percentage after every progressInterval seconds of song time.
func (r *Runner) advance(ticks, tickRate uint32) {
	r.doneTicks += uint64(ticks)
	r.sinceShown += uint64(ticks)
	if !r.progress || r.totalTicks == 0 || r.sinceShown < uint64(tickRate)*progressInterval {
		return
	}
	r.sinceShown = 0
	fmt.Fprintf(r.out, "\r%d%%", r.doneTicks*100/r.totalTicks)
}

// player turns song delays into generated audio.
type player struct {
	adapter    *adapter.Adapter
	wav        *wave.Writer
	sampleRate uint64
	tickRate   uint64

	// Fractional frames carried between delays, in 1/tickRate units
	carry uint64
	// Frames already written ahead of the song clock
	debt int
}

// wait generates the audio for a delay of ticks. Generation runs in
// blocks of at most MaxBlockFrames. A single-frame remainder is rounded
// up to MinBlockFrames and the extra frame is taken off the next delay.
func (p *player) wait(ticks uint32) error {
	if ticks == 0 {
		return nil
	}
	total := uint64(ticks)*p.sampleRate + p.carry
	remaining := int(total / p.tickRate)
	p.carry = total % p.tickRate

	paid := min(p.debt, remaining)
	p.debt -= paid
	remaining -= paid

	for remaining > 0 {
		n := max(adapter.MinBlockFrames, min(adapter.MaxBlockFrames, remaining))
		buf, err := p.adapter.Render(n)
		if err != nil {
			return err
		}
		if _, err := p.wav.Write(buf); err != nil {
			return err
		}
		if n > remaining {
			p.debt += n - remaining
			n = remaining
		}
		remaining -= n
	}
	return nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
