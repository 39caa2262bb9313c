package song

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"
)

// IMF tick rates. Wolfenstein 3-D music (.wlf) runs faster than the
// usual 560Hz.
const (
	IMFRate = 560
	WLFRate = 700
)

const imfRecordSize = 4

// IMFTickRate returns the tick rate implied by a file name.
func IMFTickRate(name string) uint32 {
	if strings.EqualFold(filepath.Ext(name), ".wlf") {
		return WLFRate
	}
	return IMFRate
}

// ParseIMF parses an IMF song. A type-1 file starts with a little-endian
// word giving the length of the record data that follows; in a type-0
// file that word is zero and records run to the end of the file. Each
// record is reg, value, delay (LE16). A trailing partial record is
// ignored.
func ParseIMF(data []byte, tickRate uint32) (*Song, error) {
	if tickRate == 0 {
		return nil, fmt.Errorf("invalid IMF tick rate %d", tickRate)
	}
	if len(data) < 2 {
		return nil, fmt.Errorf("IMF too short (%d bytes)", len(data))
	}

	start, end := 0, len(data)
	if n := int(binary.LittleEndian.Uint16(data[0:2])); n != 0 {
		start = 2
		end = min(start+n, len(data))
	}

	s := &Song{
		Chip:     ChipOPL2,
		TickRate: tickRate,
		Events:   make([]Event, 0, (end-start)/imfRecordSize),
	}
	for p := start; p+imfRecordSize <= end; p += imfRecordSize {
		s.Events = append(s.Events, Event{
			Register: uint16(data[p]),
			Value:    data[p+1],
			Delay:    uint32(binary.LittleEndian.Uint16(data[p+2 : p+4])),
		})
	}
	return s, nil
}
