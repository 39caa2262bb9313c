package song

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// VGMRate is the VGM sample clock. All VGM waits are in these ticks.
const VGMRate = 44100

// VGM header offsets of the chip clocks this package plays.
const (
	vgmClockSN76489 = 0x0C
	vgmClockYM3812  = 0x50
	vgmClockYM3526  = 0x54
	vgmClockYMF262  = 0x5C
)

var (
	errVGMHeader = errors.New("invalid VGM header")
	errVGMNoChip = errors.New("VGM has no OPL or SN76489 stream")
)

// vgmCommandLen gives the total length of commands this package skips.
// Zero means the command is not recognized.
func vgmCommandLen(cmd byte) int {
	switch {
	case cmd >= 0x30 && cmd <= 0x3F:
		return 2
	case cmd >= 0x41 && cmd <= 0x4E:
		return 3
	case cmd == 0x4F:
		return 2
	case cmd >= 0x51 && cmd <= 0x5F:
		return 3
	case cmd == 0x68:
		return 12
	case cmd == 0x90 || cmd == 0x91 || cmd == 0x95:
		return 5
	case cmd == 0x92:
		return 6
	case cmd == 0x93:
		return 11
	case cmd == 0x94:
		return 2
	case cmd >= 0xA0 && cmd <= 0xBF:
		return 3
	case cmd >= 0xC0 && cmd <= 0xDF:
		return 4
	case cmd >= 0xE0:
		return 5
	}
	return 0
}

// ParseVGM parses a VGM log, gzip-compressed (VGZ) or not. Writes to a
// YMF262 make an OPL3 song; otherwise YM3812 or YM3526 writes make an OPL2
// song, and SN76489 writes a PSG song. Commands for any other chip are
// skipped.
func ParseVGM(data []byte) (*Song, error) {
	if len(data) >= 2 && data[0] == 0x1F && data[1] == 0x8B {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("VGZ: %w", err)
		}
		defer gz.Close()
		data, err = io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("VGZ: %w", err)
		}
	}
	if len(data) < 0x40 || !bytes.Equal(data[0:4], []byte("Vgm ")) {
		return nil, errVGMHeader
	}

	dataStart := 0x40
	if off := binary.LittleEndian.Uint32(data[0x34:0x38]); off != 0 {
		dataStart = 0x34 + int(off)
	}
	if dataStart > len(data) {
		return nil, fmt.Errorf("VGM data offset 0x%X out of range", dataStart)
	}

	// Clocks past the start of the data are not part of the header
	clock := func(at int) uint32 {
		if at+4 > dataStart {
			return 0
		}
		return binary.LittleEndian.Uint32(data[at:at+4]) & 0x3FFFFFFF
	}

	s := &Song{TickRate: VGMRate}
	var accept func(cmd byte) (reg uint16, ok bool)
	switch {
	case clock(vgmClockYMF262) != 0:
		s.Chip, s.ClockHz = ChipOPL3, clock(vgmClockYMF262)
		accept = func(cmd byte) (uint16, bool) {
			switch cmd {
			case 0x5E:
				return 0x000, true
			case 0x5F:
				return 0x100, true
			}
			return 0, false
		}
	case clock(vgmClockYM3812) != 0 || clock(vgmClockYM3526) != 0:
		s.Chip, s.ClockHz = ChipOPL2, max(clock(vgmClockYM3812), clock(vgmClockYM3526))
		accept = func(cmd byte) (uint16, bool) {
			return 0, cmd == 0x5A || cmd == 0x5B
		}
	case clock(vgmClockSN76489) != 0:
		s.Chip, s.ClockHz = ChipSN76489, clock(vgmClockSN76489)
	default:
		return nil, errVGMNoChip
	}

	wait := func(n uint32) {
		if len(s.Events) == 0 {
			s.Lead += n
			return
		}
		s.Events[len(s.Events)-1].Delay += n
	}

	for i := dataStart; i < len(data); {
		cmd := data[i]
		switch {
		case cmd == 0x66:
			return s, nil
		case cmd == 0x50:
			if i+2 > len(data) {
				return nil, fmt.Errorf("VGM truncated PSG write at offset 0x%X", i)
			}
			if s.Chip == ChipSN76489 {
				s.Events = append(s.Events, Event{Value: data[i+1]})
			}
			i += 2
		case cmd == 0x61:
			if i+3 > len(data) {
				return nil, fmt.Errorf("VGM truncated wait at offset 0x%X", i)
			}
			wait(uint32(binary.LittleEndian.Uint16(data[i+1 : i+3])))
			i += 3
		case cmd == 0x62:
			wait(735)
			i++
		case cmd == 0x63:
			wait(882)
			i++
		case cmd >= 0x70 && cmd <= 0x7F:
			wait(uint32(cmd&0x0F) + 1)
			i++
		case cmd == 0x67:
			if i+7 > len(data) || data[i+1] != 0x66 {
				return nil, fmt.Errorf("VGM invalid data block at offset 0x%X", i)
			}
			i += 7 + int(binary.LittleEndian.Uint32(data[i+3:i+7]))
		case cmd >= 0x80 && cmd <= 0x8F:
			// YM2612 DAC write plus wait
			wait(uint32(cmd & 0x0F))
			i++
		default:
			n := vgmCommandLen(cmd)
			if n == 0 {
				return nil, fmt.Errorf("VGM unknown command 0x%02X at offset 0x%X", cmd, i)
			}
			if i+n > len(data) {
				return nil, fmt.Errorf("VGM truncated command 0x%02X at offset 0x%X", cmd, i)
			}
			if accept != nil {
				if bank, ok := accept(cmd); ok {
					s.Events = append(s.Events, Event{
						Register: bank | uint16(data[i+1]),
						Value:    data[i+2],
					})
				}
			}
			i += n
		}
	}
	return s, nil
}
