// Package song loads register-write music formats into a flat list of
// timed chip writes.
package song

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Chip identifies the sound chip a song was written for.
type Chip int

const (
	ChipOPL2 Chip = iota
	ChipOPL3
	ChipSN76489
)

func (c Chip) String() string {
	switch c {
	case ChipOPL2:
		return "OPL2"
	case ChipOPL3:
		return "OPL3"
	case ChipSN76489:
		return "SN76489"
	default:
		return fmt.Sprintf("Chip(%d)", int(c))
	}
}

// Event is a single register write followed by a delay.
type Event struct {
	Register uint16
	Value    uint8
	Delay    uint32 // Ticks to wait after the write
}

// Song is a chip write stream. Time is measured in ticks of TickRate Hz.
type Song struct {
	Chip     Chip
	ClockHz  uint32 // Chip clock from the file header, 0 when not given
	TickRate uint32
	Lead     uint32 // Ticks of silence before the first event
	Events   []Event
}

// ErrUnknownFormat is returned by Load for unrecognized file extensions.
var ErrUnknownFormat = errors.New("unknown song format")

// Ticks returns the total song length in ticks.
func (s *Song) Ticks() uint64 {
	total := uint64(s.Lead)
	for _, e := range s.Events {
		total += uint64(e.Delay)
	}
	return total
}

// Load parses data according to the extension of name: .imf and .wlf
// are id Software music, .vgm and .vgz are Video Game Music logs.
func Load(name string, data []byte) (*Song, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".imf", ".wlf":
		return ParseIMF(data, IMFTickRate(name))
	case ".vgm", ".vgz":
		return ParseVGM(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(name))
	}
}
