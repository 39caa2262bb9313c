package emu

// mulTable holds twice the frequency multiplier for each 4-bit MULT value
// (MULT 0 is x0.5, 11 and 13 repeat 10 and 12, 14 repeats 15).
var mulTable = [16]uint32{1, 2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 20, 24, 24, 30, 30}

// computePhaseIncrement calculates the 20-bit phase increment for an operator.
// fNum: 10-bit F-number, block: 3-bit octave, mul: 4-bit multiplier.
// Output frequency is fNum * NativeRate * 2^(block-20) * multiplier.
func computePhaseIncrement(fNum uint16, block, mul uint8) uint32 {
	base := uint32(fNum) << uint(block)
	return (base * mulTable[mul&0x0F] >> 1) & 0xFFFFF
}

// stepPhase advances an operator's phase accumulator, applying vibrato
// to the F-number when the operator has it enabled.
func (o *OPL) stepPhase(ch *oplChannel, op *oplOperator) {
	inc := op.phaseInc
	if op.vib {
		fNum := int32(ch.fNum) + o.vibratoDelta(ch.fNum)
		if fNum < 0 {
			fNum = 0
		}
		inc = computePhaseIncrement(uint16(fNum)&0x3FF, ch.block, op.mul)
	}
	op.phaseCounter = (op.phaseCounter + inc) & 0xFFFFF
}
