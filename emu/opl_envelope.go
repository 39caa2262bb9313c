package emu

// egRateFraction is the OPL's four-step rate fraction: for each value of
// rate&3 it marks which of four consecutive envelope updates take an extra
// step. Rates 4x+0 through 4x+3 therefore run at 4/4, 5/4, 6/4 and 7/4 of
// the base speed of group x.
var egRateFraction = [4][4]uint8{
	{0, 0, 0, 0},
	{1, 0, 0, 0},
	{1, 0, 1, 0},
	{1, 1, 1, 0},
}

// envelopeIncrement returns the attenuation step for an effective rate at
// the given EG counter value, or 0 when the envelope does not move.
//
// Groups 1-11 (rates 4-47) update once every 2^(11-group) counter ticks.
// Even updates always step by one; odd updates step by one when the rate
// fraction says so. Groups 12-15 (rates 48-63) update on every tick with a
// base step of 1, 2, 4 or 8 that the rate fraction doubles.
func envelopeIncrement(rate uint8, counter uint32) uint8 {
	group := rate >> 2
	frac := egRateFraction[rate&3]
	if group >= 12 {
		if rate >= 60 {
			return 8
		}
		base := uint8(1) << (group - 12)
		return base << frac[counter&3]
	}

	shift := 11 - uint(group)
	if counter&((1<<shift)-1) != 0 {
		return 0
	}
	update := counter >> shift
	if update&1 == 0 {
		return 1
	}
	return frac[(update>>1)&3]
}

// stepEnvelopes advances the envelope for every operator.
func (o *OPL) stepEnvelopes() {
	counter := o.egCounter
	for ch := range o.ch {
		for op := range o.ch[ch].op {
			stepOperatorEnvelope(&o.ch[ch].op[op], counter)
		}
	}
}

// stepOperatorEnvelope advances one operator's envelope by one EG step.
func stepOperatorEnvelope(op *oplOperator, counter uint32) {
	// The sustain level check happens before the increment so the level
	// never overshoots it.
	if op.egState == egDecay && op.egLevel >= sustainLevel(op.sl) {
		op.egState = egSustain
	}

	var rate uint8
	switch op.egState {
	case egAttack:
		rate = effectiveRate(op.ar, op)
	case egDecay:
		rate = effectiveRate(op.dr, op)
	case egSustain:
		// Sustained sounds hold; percussive sounds keep releasing
		if op.egt {
			return
		}
		rate = effectiveRate(op.rr, op)
	case egRelease:
		rate = effectiveRate(op.rr, op)
	}

	if rate == 0 {
		return // Frozen
	}

	incr := envelopeIncrement(rate, counter)
	if incr == 0 {
		return
	}

	switch op.egState {
	case egAttack:
		if rate >= 60 {
			op.egLevel = 0
		} else {
			// The attack curve falls by a share of the remaining
			// attenuation, rounded up so it always reaches zero.
			dec := ((uint32(op.egLevel)+1)*uint32(incr) + 15) >> 4
			if dec >= uint32(op.egLevel) {
				op.egLevel = 0
			} else {
				op.egLevel -= uint16(dec)
			}
		}
		if op.egLevel == 0 {
			op.egState = egDecay
		}

	case egDecay, egSustain, egRelease:
		op.egLevel += uint16(incr)
		if op.egLevel > 0x3FF {
			op.egLevel = 0x3FF
		}
	}
}

// sustainLevel converts the 4-bit SL field to a 10-bit attenuation level.
// SL 0-14 = level * 3dB, SL 15 = 93dB.
func sustainLevel(sl uint8) uint16 {
	if sl >= 15 {
		return 0x3E0
	}
	return uint16(sl) << 5
}
