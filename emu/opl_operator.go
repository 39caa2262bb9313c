package emu

import "math"

// sineTable is a quarter-sine log table: 256 entries of -log2(sin((2i+1)/512 * pi/2))
// in 4.8 fixed-point (12-bit values).
var sineTable [256]uint16

// pow2Table is a power-of-2 table: 256 entries of 2^(1-(i+1)/256) scaled to 11-bit.
// Used to convert log-domain attenuation back to linear amplitude.
var pow2Table [256]uint16

func init() {
	for i := 0; i < 256; i++ {
		angle := float64(2*i+1) / 512.0 * math.Pi / 2.0
		sineTable[i] = uint16(math.Round(-math.Log2(math.Sin(angle)) * 256.0))
	}
	for i := 0; i < 256; i++ {
		val := math.Pow(2.0, 1.0-float64(i+1)/256.0) * 1024.0
		pow2Table[i] = uint16(math.Round(val))
	}
}

// silentAtten is a log attenuation large enough to shift any table value to 0.
const silentAtten = 0x1FFF

// waveformAttenuation returns the log-domain attenuation and sign of
// waveform wave at the 10-bit phase index idx.
//
//	0: sine            4: sine at double rate, first half only
//	1: half sine       5: |sine| at double rate, first half only
//	2: |sine|          6: square
//	3: quarter pulses  7: logarithmic sawtooth
func waveformAttenuation(wave uint8, idx uint32) (uint32, bool) {
	var negative bool
	switch wave {
	case 0:
		negative = idx&0x200 != 0
	case 1:
		if idx&0x200 != 0 {
			return silentAtten, false
		}
	case 2:
	case 3:
		if idx&0x100 != 0 {
			return silentAtten, false
		}
	case 4:
		if idx&0x200 != 0 {
			return silentAtten, false
		}
		idx = (idx << 1) & 0x3FF
		negative = idx&0x200 != 0
	case 5:
		if idx&0x200 != 0 {
			return silentAtten, false
		}
		idx = (idx << 1) & 0x3FF
	case 6:
		return 0, idx&0x200 != 0
	case 7:
		negative = idx&0x200 != 0
		x := idx & 0x1FF
		if negative {
			x = 0x1FF - x
		}
		return x << 3, negative
	}

	// Quarter-wave lookup: bit 8 mirrors the second quarter
	q := idx & 0xFF
	if idx&0x100 != 0 {
		q = 0xFF - q
	}
	return uint32(sineTable[q]), negative
}

// computeOperatorOutput computes the signed 13-bit output of an operator
// given its phase (with modulation), waveform and total attenuation.
func computeOperatorOutput(phase uint32, wave uint8, atten uint16) int16 {
	// Top 10 bits of the 20-bit phase select the waveform position
	idx := (phase >> 10) & 0x3FF

	waveAtten, negative := waveformAttenuation(wave, idx)

	// Envelope is 10-bit, shift to 4.8 format
	total := waveAtten + uint32(atten)<<2

	intPart := total >> 8
	if intPart >= 16 {
		return 0
	}
	linear := (uint32(pow2Table[total&0xFF]) << 1) >> intPart

	if negative {
		return -int16(linear)
	}
	return int16(linear)
}

// evaluateChannel computes one native sample of a channel's output.
func (o *OPL) evaluateChannel(chIdx int) int32 {
	ch := &o.ch[chIdx]

	for i := range ch.op {
		o.stepPhase(ch, &ch.op[i])
	}

	m := &ch.op[0]
	c := &ch.op[1]

	// Rhythm mode: channels 7 and 8 play each operator as a separate drum
	if o.rhythm && (chIdx == 7 || chIdx == 8) {
		return int32(o.opOut(ch, m, 0)) + int32(o.opOut(ch, c, 0))
	}

	s1 := o.opOut(ch, m, feedback(m, ch.feedback))
	if ch.additive && !(o.rhythm && chIdx == 6) {
		return int32(s1) + int32(o.opOut(ch, c, 0))
	}
	return int32(o.opOut(ch, c, int32(s1)))
}

// feedback computes the self-feedback modulation for the first operator.
func feedback(op *oplOperator, fbLevel uint8) int32 {
	if fbLevel == 0 {
		return 0
	}
	return (int32(op.prevOut[0]) + int32(op.prevOut[1])) >> (9 - uint(fbLevel))
}

// opOut computes an operator's output with optional phase modulation and
// stores history. modulation is in the 10-bit phase index domain.
func (o *OPL) opOut(ch *oplChannel, op *oplOperator, modulation int32) int16 {
	atten := totalLevel(op.egLevel, op.tl, keyScaleLevel(ch.fNum, ch.block, op.ksl))
	if op.am {
		atten += o.tremoloAttenuation()
		if atten > 0x3FF {
			atten = 0x3FF
		}
	}

	wave := op.wave
	if !o.opl3 {
		// OPL2 has four waveforms, and only when $01 bit 5 is set
		wave &= 0x03
		if !o.waveSelect {
			wave = 0
		}
	}

	phase := op.phaseCounter + uint32(modulation<<10)
	out := computeOperatorOutput(phase, wave, atten)

	op.prevOut[1] = op.prevOut[0]
	op.prevOut[0] = out
	return out
}

// kslTable holds the key scale level base attenuation indexed by the top
// four F-number bits, in 0.75dB steps for block 7.
var kslTable = [16]uint8{0, 32, 40, 45, 48, 51, 53, 55, 56, 58, 59, 60, 61, 62, 63, 64}

// kslShift scales the base attenuation per KSL setting:
// 0 = off, 1 = 3dB/oct, 2 = 1.5dB/oct, 3 = 6dB/oct.
var kslShift = [4]uint{0, 1, 2, 0}

// keyScaleLevel returns the KSL attenuation in 10-bit envelope units.
func keyScaleLevel(fNum uint16, block, ksl uint8) uint16 {
	if ksl == 0 {
		return 0
	}
	v := int(kslTable[fNum>>6])<<3 - int(8-block)*64
	if v <= 0 {
		return 0
	}
	return uint16(v) >> kslShift[ksl]
}

// totalLevel returns the combined envelope + TL + KSL attenuation, capped at 0x3FF.
func totalLevel(egLevel uint16, tl uint8, ksl uint16) uint16 {
	total := egLevel + uint16(tl)<<3 + ksl
	if total > 0x3FF {
		return 0x3FF
	}
	return total
}
