package emu

// Envelope states
const (
	egAttack  = 0
	egDecay   = 1
	egSustain = 2
	egRelease = 3
)

const (
	// NativeRate is the OPL's internal sample rate (14.31818 MHz / 288).
	NativeRate = 49716

	oplChannels  = 18
	bankChannels = 9
)

// Status register bits (read via ReadStatus)
const (
	statusIRQ = 0x80
	statusT1  = 0x40
	statusT2  = 0x20
)

// Rhythm mode key-on bits (register $BD bits 4-0)
const (
	drumHH  = 0x01 // Hi-hat: channel 7 operator 1
	drumCY  = 0x02 // Cymbal: channel 8 operator 2
	drumTOM = 0x04 // Tom-tom: channel 8 operator 1
	drumSD  = 0x08 // Snare: channel 7 operator 2
	drumBD  = 0x10 // Bass drum: channel 6 both operators
)

// Key-on sources. An operator sounds while either source holds it.
const (
	keyNormal = 0x01 // $B0-$B8 bit 5
	keyDrum   = 0x02 // $BD rhythm bits
)

// oplOperator holds decoded register state for one operator (slot).
type oplOperator struct {
	// Register fields
	am   bool  // Tremolo enable
	vib  bool  // Vibrato enable
	egt  bool  // Envelope type: true=sustained, false=percussive
	ksr  bool  // Key scale rate
	mul  uint8 // Frequency multiplier (4-bit)
	ksl  uint8 // Key scale level (2-bit)
	tl   uint8 // Total level / attenuation (6-bit, 0.75dB steps)
	ar   uint8 // Attack rate (4-bit)
	dr   uint8 // Decay rate (4-bit)
	sl   uint8 // Sustain level (4-bit)
	rr   uint8 // Release rate (4-bit)
	wave uint8 // Waveform select (3-bit, upper bit OPL3 only)

	// Phase generator state
	phaseCounter uint32 // 20-bit phase accumulator
	phaseInc     uint32 // 20-bit phase increment (recomputed on freq change)

	// Envelope generator state
	egState uint8  // egAttack, egDecay, egSustain, egRelease
	egLevel uint16 // 10-bit attenuation (0=full vol, 0x3FF=silent)
	keyOn   uint8  // keyNormal | keyDrum
	keyCode uint8  // 4-bit key code for rate scaling

	prevOut [2]int16 // Previous two outputs (for feedback)
}

// oplChannel holds decoded register state for one two-operator channel.
type oplChannel struct {
	op [2]oplOperator

	fNum  uint16 // 10-bit F-number
	block uint8  // 3-bit block (octave)

	feedback uint8 // 3-bit feedback level (0=disabled, 1-7)
	additive bool  // Connection: false=FM (op1 modulates op2), true=AM (op1+op2)
	left     bool  // OPL3 left output enable
	right    bool  // OPL3 right output enable
}

// OPL implements a register-compatible OPL2/OPL3 (YM3812/YMF262) FM
// synthesizer with two-operator channels. Bank 0 registers are $000-$0FF,
// bank 1 (OPL3 channels 9-17) are $100-$1FF.
//
// In OPL2 mode channels 0-8 are summed into a mono stream. Setting the
// OPL3 enable bit ($105 bit 0) switches to stereo output over all 18
// channels, routed by each channel's $C0 left/right bits.
type OPL struct {
	sampleRate int

	ch [oplChannels]oplChannel

	opl3       bool  // $105 bit 0
	waveSelect bool  // $01 bit 5 (OPL2 waveform select enable)
	noteSel    bool  // $08 bit 6 (key split on F-number bit 8 instead of 9)
	conn4op    uint8 // $104, stored only

	amDepth  bool  // $BD bit 7: 4.8dB tremolo (else 1dB)
	vibDepth bool  // $BD bit 6: 14 cent vibrato (else 7 cent)
	rhythm   bool  // $BD bit 5
	drums    uint8 // $BD bits 4-0

	// Timers
	timer1  timer
	timer2  timer
	t1Start bool
	t2Start bool
	t1Mask  bool
	t2Mask  bool
	status  uint8

	// Timer sub-counter (timer 1 every 4 clocks, timer 2 every 16)
	timerSub uint8

	// Envelope generator global counter
	egCounter uint32

	// LFO counters
	amStep  uint8  // 0-127 position in tremolo cycle
	amCnt   uint16 // Tremolo period counter
	amOut   uint8  // Current tremolo output value
	vibStep uint8  // 0-7 position in vibrato cycle
	vibCnt  uint16 // Vibrato period counter

	// Rate conversion from NativeRate to sampleRate
	resampAccum int

	// Most recent native sample
	outMono int32
	outL    int32
	outR    int32

	// Scratch buffers handed to the sink
	monoBuf   []int32
	stereoBuf []int32
}

// NewOPL creates a new OPL synthesizer producing samples at sampleRate.
// A non-positive sampleRate selects NativeRate.
func NewOPL(sampleRate int) *OPL {
	if sampleRate <= 0 {
		sampleRate = NativeRate
	}
	o := &OPL{
		sampleRate: sampleRate,
		monoBuf:    make([]int32, 0, 512),
		stereoBuf:  make([]int32, 0, 1024),
	}
	o.Reset()
	return o
}

// Reset returns the chip to its power-on state. The sample rate is kept.
func (o *OPL) Reset() {
	*o = OPL{
		sampleRate: o.sampleRate,
		monoBuf:    o.monoBuf,
		stereoBuf:  o.stereoBuf,
	}
	for ch := range o.ch {
		for op := range o.ch[ch].op {
			o.ch[ch].op[op].egState = egRelease
			o.ch[ch].op[op].egLevel = 0x3FF // Silent
		}
	}
}

// SampleRate returns the output sample rate.
func (o *OPL) SampleRate() int {
	return o.sampleRate
}

// OPL3 reports whether the chip is in OPL3 (stereo) mode.
func (o *OPL) OPL3() bool {
	return o.opl3
}

// ReadStatus returns the status register: bit 7 IRQ, bit 6 timer 1
// overflow, bit 5 timer 2 overflow.
func (o *OPL) ReadStatus() uint8 {
	return o.status
}

// WriteRegister writes val to register addr. The address is reduced to
// 9 bits and the value to 8 bits; unmapped registers are ignored.
func (o *OPL) WriteRegister(addr, val int) {
	reg := uint16(addr) & 0x1FF
	v := uint8(val)
	bank := int(reg >> 8)
	r := uint8(reg)

	switch {
	case r < 0x20:
		o.writeControlRegister(reg, v)
	case r < 0xA0:
		o.writeOperatorRegister(bank, r, v)
	case r == 0xBD:
		if bank == 0 {
			o.writeRhythmRegister(v)
		}
	case r < 0xC9:
		o.writeChannelRegister(bank, r, v)
	case r >= 0xE0 && r <= 0xF5:
		o.writeOperatorRegister(bank, r, v)
	}
}

// writeControlRegister handles $01-$1F and their bank 1 counterparts.
func (o *OPL) writeControlRegister(reg uint16, v uint8) {
	switch reg {
	case 0x001:
		o.waveSelect = v&0x20 != 0
	case 0x002:
		o.timer1.period = uint16(v)
	case 0x003:
		o.timer2.period = uint16(v)
	case 0x004:
		if v&0x80 != 0 {
			// IRQ reset clears all flags; other bits are ignored
			o.status = 0
			return
		}
		o.t1Mask = v&0x40 != 0
		o.t2Mask = v&0x20 != 0
		start1 := v&0x01 != 0
		start2 := v&0x02 != 0
		if start1 && !o.t1Start {
			o.timer1.counter = 0
		}
		if start2 && !o.t2Start {
			o.timer2.counter = 0
		}
		o.t1Start = start1
		o.t2Start = start2
	case 0x008:
		o.noteSel = v&0x40 != 0
	case 0x104:
		o.conn4op = v & 0x3F
	case 0x105:
		o.opl3 = v&0x01 != 0
	}
}

// slotChannel maps the low 5 bits of an operator register to a channel
// offset (0-8) and operator index, or -1 for the unused slots.
func slotChannel(slot uint8) (int, int) {
	if slot >= 0x16 || slot&0x07 >= 6 {
		return -1, -1
	}
	col := int(slot & 0x07)
	return int(slot>>3)*3 + col%3, col / 3
}

// writeOperatorRegister handles $20-$95 and $E0-$F5.
func (o *OPL) writeOperatorRegister(bank int, r, v uint8) {
	chOff, opIdx := slotChannel(r & 0x1F)
	if chOff < 0 {
		return
	}
	chIdx := chOff + bank*bankChannels
	ch := &o.ch[chIdx]
	op := &ch.op[opIdx]

	switch r & 0xE0 {
	case 0x20:
		// AM/VIB/EGT/KSR/MULT
		op.am = v&0x80 != 0
		op.vib = v&0x40 != 0
		op.egt = v&0x20 != 0
		op.ksr = v&0x10 != 0
		op.mul = v & 0x0F
		o.updatePhaseIncrement(ch, op)
	case 0x40:
		// KSL/TL
		op.ksl = v >> 6
		op.tl = v & 0x3F
	case 0x60:
		// AR/DR
		op.ar = v >> 4
		op.dr = v & 0x0F
	case 0x80:
		// SL/RR
		op.sl = v >> 4
		op.rr = v & 0x0F
	case 0xE0:
		// Waveform select
		op.wave = v & 0x07
	}
}

// writeChannelRegister handles $A0-$A8, $B0-$B8 and $C0-$C8.
func (o *OPL) writeChannelRegister(bank int, r, v uint8) {
	chOff := int(r & 0x0F)
	if chOff >= bankChannels {
		return
	}
	chIdx := chOff + bank*bankChannels
	ch := &o.ch[chIdx]

	switch r & 0xF0 {
	case 0xA0:
		// F-Number low 8 bits
		ch.fNum = (ch.fNum & 0x300) | uint16(v)
		o.updateChannelFrequency(ch)
	case 0xB0:
		// Key on, block, F-Number high 2 bits
		ch.fNum = (ch.fNum & 0x0FF) | (uint16(v&0x03) << 8)
		ch.block = (v >> 2) & 0x07
		o.updateChannelFrequency(ch)
		on := v&0x20 != 0
		for i := range ch.op {
			o.setKey(&ch.op[i], keyNormal, on)
		}
	case 0xC0:
		// Output enables, feedback, connection
		ch.left = v&0x10 != 0
		ch.right = v&0x20 != 0
		ch.feedback = (v >> 1) & 0x07
		ch.additive = v&0x01 != 0
	}
}

// writeRhythmRegister handles $BD: LFO depths, rhythm mode and drum key-on.
func (o *OPL) writeRhythmRegister(v uint8) {
	o.amDepth = v&0x80 != 0
	o.vibDepth = v&0x40 != 0
	o.rhythm = v&0x20 != 0
	if o.rhythm {
		o.drums = v & 0x1F
	} else {
		o.drums = 0
	}

	o.setKey(&o.ch[6].op[0], keyDrum, o.drums&drumBD != 0)
	o.setKey(&o.ch[6].op[1], keyDrum, o.drums&drumBD != 0)
	o.setKey(&o.ch[7].op[0], keyDrum, o.drums&drumHH != 0)
	o.setKey(&o.ch[7].op[1], keyDrum, o.drums&drumSD != 0)
	o.setKey(&o.ch[8].op[0], keyDrum, o.drums&drumTOM != 0)
	o.setKey(&o.ch[8].op[1], keyDrum, o.drums&drumCY != 0)
}

// setKey sets or clears one key-on source of an operator. Attack starts
// when the first source keys on, release when the last one keys off.
func (o *OPL) setKey(op *oplOperator, source uint8, on bool) {
	prev := op.keyOn
	if on {
		op.keyOn |= source
	} else {
		op.keyOn &^= source
	}

	switch {
	case prev == 0 && op.keyOn != 0:
		// Key on: reset phase, start attack
		op.phaseCounter = 0
		op.egState = egAttack
		if effectiveRate(op.ar, op) >= 60 {
			op.egLevel = 0
			op.egState = egDecay
		}
	case prev != 0 && op.keyOn == 0:
		op.egState = egRelease
	}
}

// effectiveRate computes 4*rate + rks, clamped to 63. Returns 0 if rate is 0.
func effectiveRate(rate uint8, op *oplOperator) uint8 {
	if rate == 0 {
		return 0
	}
	rks := op.keyCode
	if !op.ksr {
		rks >>= 2
	}
	r := int(rate)*4 + int(rks)
	if r > 63 {
		r = 63
	}
	return uint8(r)
}

// updatePhaseIncrement recomputes an operator's phase increment.
func (o *OPL) updatePhaseIncrement(ch *oplChannel, op *oplOperator) {
	op.phaseInc = computePhaseIncrement(ch.fNum, ch.block, op.mul)
}

// updateChannelFrequency recomputes key codes and phase increments for
// both operators of a channel.
func (o *OPL) updateChannelFrequency(ch *oplChannel) {
	kc := computeKeyCode(ch.fNum, ch.block, o.noteSel)
	for i := range ch.op {
		ch.op[i].keyCode = kc
		o.updatePhaseIncrement(ch, &ch.op[i])
	}
}

// computeKeyCode computes the 4-bit key code: block in bits 3-1 and the
// key split bit (F-number bit 9, or bit 8 with note select) in bit 0.
func computeKeyCode(fNum uint16, block uint8, noteSel bool) uint8 {
	split := (fNum >> 9) & 1
	if noteSel {
		split = (fNum >> 8) & 1
	}
	return block<<1 | uint8(split)
}

// GenerateBlock produces frames output samples and hands them to sink in
// a single call: DeliverMono in OPL2 mode, DeliverStereo in OPL3 mode.
func (o *OPL) GenerateBlock(frames int, sink Sink) {
	if frames < 0 {
		frames = 0
	}
	if o.opl3 {
		if cap(o.stereoBuf) < frames*2 {
			o.stereoBuf = make([]int32, 0, frames*2)
		}
		buf := o.stereoBuf[:frames*2]
		for i := 0; i < frames; i++ {
			o.advance()
			buf[i*2] = o.outL
			buf[i*2+1] = o.outR
		}
		sink.DeliverStereo(buf)
		return
	}

	if cap(o.monoBuf) < frames {
		o.monoBuf = make([]int32, 0, frames)
	}
	buf := o.monoBuf[:frames]
	for i := range buf {
		o.advance()
		buf[i] = o.outMono
	}
	sink.DeliverMono(buf)
}

// advance runs the chip up to the next output sample. Output samples
// hold the most recent native sample (zero-order hold), so output rates
// above NativeRate repeat samples and rates below it skip them.
func (o *OPL) advance() {
	o.resampAccum += NativeRate
	for o.resampAccum >= o.sampleRate {
		o.resampAccum -= o.sampleRate
		o.clock()
	}
}

// clock produces one native sample.
func (o *OPL) clock() {
	o.stepTimers()
	o.stepLFO()

	o.egCounter++
	o.stepEnvelopes()

	if !o.opl3 {
		var mono int32
		for ch := 0; ch < bankChannels; ch++ {
			mono += o.evaluateChannel(ch)
		}
		o.outMono = mono
		return
	}

	var left, right int32
	for ch := 0; ch < oplChannels; ch++ {
		out := o.evaluateChannel(ch)
		if o.ch[ch].left {
			left += out
		}
		if o.ch[ch].right {
			right += out
		}
	}
	o.outL = left
	o.outR = right
}
