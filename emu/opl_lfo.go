package emu

// LFO timing in native samples. The tremolo triangle has 128 steps
// (~3.7Hz) and the vibrato cycle has 8 steps (~6.1Hz).
const (
	tremoloPeriod = 105
	vibratoPeriod = 1024
)

// vibratoTable is the vibrato waveform over its 8 steps, in units of the
// channel's top three F-number bits.
var vibratoTable = [8]int32{0, 1, 2, 1, 0, -1, -2, -1}

// stepLFO advances the tremolo and vibrato counters. Both LFOs free-run;
// $BD only selects their depth.
func (o *OPL) stepLFO() {
	o.amCnt++
	if o.amCnt >= tremoloPeriod {
		o.amCnt = 0
		o.amStep = (o.amStep + 1) & 0x7F
	}

	// Triangle wave from step counter:
	// Steps 0-63:   output = (63 - step) * 2 (126, 124, ..., 0)
	// Steps 64-127: output = (step - 64) * 2 (0, 2, ..., 126)
	if o.amStep < 64 {
		o.amOut = (63 - o.amStep) * 2
	} else {
		o.amOut = (o.amStep - 64) * 2
	}

	o.vibCnt++
	if o.vibCnt >= vibratoPeriod {
		o.vibCnt = 0
		o.vibStep = (o.vibStep + 1) & 0x07
	}
}

// tremoloAttenuation returns the current tremolo attenuation in 10-bit
// envelope units: up to ~5.9dB with deep AM, ~1.4dB otherwise.
func (o *OPL) tremoloAttenuation() uint16 {
	if o.amDepth {
		return uint16(o.amOut) >> 1
	}
	return uint16(o.amOut) >> 3
}

// vibratoDelta returns the F-number offset for the current vibrato step.
// The offset scales with the F-number so higher notes get proportionally
// the same pitch deviation.
func (o *OPL) vibratoDelta(fNum uint16) int32 {
	delta := int32((fNum>>7)&0x07) * vibratoTable[o.vibStep]
	if !o.vibDepth {
		delta >>= 1
	}
	return delta
}
