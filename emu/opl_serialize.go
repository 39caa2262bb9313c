package emu

import (
	"encoding/binary"
	"errors"
)

const (
	oplSerializeVersion = 1
	// Per-operator serialization size:
	// am(1) + vib(1) + egt(1) + ksr(1) + mul(1) + ksl(1) + tl(1) + ar(1) + dr(1) +
	// sl(1) + rr(1) + wave(1) + phaseCounter(4) + phaseInc(4) +
	// egState(1) + egLevel(2) + keyOn(1) + keyCode(1) + prevOut(4) = 29
	oplOperatorSerializeSize = 29
	// Per-channel (non-operator fields):
	// fNum(2) + block(1) + feedback(1) + additive(1) + left(1) + right(1) = 7
	oplChannelSerializeSize = 7
	// Global state:
	// opl3(1) + waveSelect(1) + noteSel(1) + conn4op(1) +
	// amDepth(1) + vibDepth(1) + rhythm(1) + drums(1) +
	// timer1(4) + timer2(4) + t1Start(1) + t2Start(1) + t1Mask(1) + t2Mask(1) +
	// status(1) + timerSub(1) + egCounter(4) +
	// amStep(1) + amCnt(2) + amOut(1) + vibStep(1) + vibCnt(2) +
	// resampAccum(4) + outMono(4) + outL(4) + outR(4) = 49
	oplGlobalSerializeSize = 49
	// OPLSerializeSize is the total bytes needed for OPL serialization.
	// version(1) + 36 operators * 29 + 18 channels * 7 + global(49) = 1220
	OPLSerializeSize = 1 + oplChannels*2*oplOperatorSerializeSize +
		oplChannels*oplChannelSerializeSize + oplGlobalSerializeSize
)

// stateWriter appends fixed-size little-endian fields to a buffer.
type stateWriter struct {
	buf []byte
	off int
}

func (w *stateWriter) u8(v uint8) {
	w.buf[w.off] = v
	w.off++
}

func (w *stateWriter) flag(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *stateWriter) u16(v uint16) {
	binary.LittleEndian.PutUint16(w.buf[w.off:], v)
	w.off += 2
}

func (w *stateWriter) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
}

// stateReader is the read side of stateWriter.
type stateReader struct {
	buf []byte
	off int
}

func (r *stateReader) u8() uint8 {
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *stateReader) flag() bool {
	return r.u8() != 0
}

func (r *stateReader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *stateReader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

// Serialize writes OPL state to buf. buf must be at least OPLSerializeSize bytes.
func (o *OPL) Serialize(buf []byte) error {
	if len(buf) < OPLSerializeSize {
		return errors.New("OPL serialize buffer too small")
	}

	w := &stateWriter{buf: buf}
	w.u8(oplSerializeVersion)

	for ch := range o.ch {
		for op := range o.ch[ch].op {
			serializeOperator(w, &o.ch[ch].op[op])
		}
	}
	for ch := range o.ch {
		c := &o.ch[ch]
		w.u16(c.fNum)
		w.u8(c.block)
		w.u8(c.feedback)
		w.flag(c.additive)
		w.flag(c.left)
		w.flag(c.right)
	}

	w.flag(o.opl3)
	w.flag(o.waveSelect)
	w.flag(o.noteSel)
	w.u8(o.conn4op)
	w.flag(o.amDepth)
	w.flag(o.vibDepth)
	w.flag(o.rhythm)
	w.u8(o.drums)

	// Timers
	w.u16(o.timer1.period)
	w.u16(o.timer1.counter)
	w.u16(o.timer2.period)
	w.u16(o.timer2.counter)
	w.flag(o.t1Start)
	w.flag(o.t2Start)
	w.flag(o.t1Mask)
	w.flag(o.t2Mask)
	w.u8(o.status)
	w.u8(o.timerSub)

	w.u32(o.egCounter)

	// LFO
	w.u8(o.amStep)
	w.u16(o.amCnt)
	w.u8(o.amOut)
	w.u8(o.vibStep)
	w.u16(o.vibCnt)

	w.u32(uint32(int32(o.resampAccum)))
	w.u32(uint32(o.outMono))
	w.u32(uint32(o.outL))
	w.u32(uint32(o.outR))

	return nil
}

func serializeOperator(w *stateWriter, op *oplOperator) {
	w.flag(op.am)
	w.flag(op.vib)
	w.flag(op.egt)
	w.flag(op.ksr)
	w.u8(op.mul)
	w.u8(op.ksl)
	w.u8(op.tl)
	w.u8(op.ar)
	w.u8(op.dr)
	w.u8(op.sl)
	w.u8(op.rr)
	w.u8(op.wave)
	w.u32(op.phaseCounter)
	w.u32(op.phaseInc)
	w.u8(op.egState)
	w.u16(op.egLevel)
	w.u8(op.keyOn)
	w.u8(op.keyCode)
	w.u16(uint16(op.prevOut[0]))
	w.u16(uint16(op.prevOut[1]))
}

// Deserialize restores OPL state from buf. The output sample rate is not
// part of the state and is kept.
func (o *OPL) Deserialize(buf []byte) error {
	if len(buf) < OPLSerializeSize {
		return errors.New("OPL deserialize buffer too small")
	}
	if buf[0] != oplSerializeVersion {
		return errors.New("unsupported OPL serialize version")
	}

	r := &stateReader{buf: buf, off: 1}

	for ch := range o.ch {
		for op := range o.ch[ch].op {
			deserializeOperator(r, &o.ch[ch].op[op])
		}
	}
	for ch := range o.ch {
		c := &o.ch[ch]
		c.fNum = r.u16() & 0x3FF
		c.block = r.u8() & 0x07
		c.feedback = r.u8() & 0x07
		c.additive = r.flag()
		c.left = r.flag()
		c.right = r.flag()
	}

	o.opl3 = r.flag()
	o.waveSelect = r.flag()
	o.noteSel = r.flag()
	o.conn4op = r.u8()
	o.amDepth = r.flag()
	o.vibDepth = r.flag()
	o.rhythm = r.flag()
	o.drums = r.u8()

	o.timer1.period = r.u16()
	o.timer1.counter = r.u16()
	o.timer2.period = r.u16()
	o.timer2.counter = r.u16()
	o.t1Start = r.flag()
	o.t2Start = r.flag()
	o.t1Mask = r.flag()
	o.t2Mask = r.flag()
	o.status = r.u8()
	o.timerSub = r.u8()

	o.egCounter = r.u32()

	o.amStep = r.u8() & 0x7F
	o.amCnt = r.u16()
	o.amOut = r.u8()
	o.vibStep = r.u8() & 0x07
	o.vibCnt = r.u16()

	o.resampAccum = int(int32(r.u32()))
	o.outMono = int32(r.u32())
	o.outL = int32(r.u32())
	o.outR = int32(r.u32())

	return nil
}

func deserializeOperator(r *stateReader, op *oplOperator) {
	op.am = r.flag()
	op.vib = r.flag()
	op.egt = r.flag()
	op.ksr = r.flag()
	op.mul = r.u8() & 0x0F
	op.ksl = r.u8() & 0x03
	op.tl = r.u8() & 0x3F
	op.ar = r.u8() & 0x0F
	op.dr = r.u8() & 0x0F
	op.sl = r.u8() & 0x0F
	op.rr = r.u8() & 0x0F
	op.wave = r.u8() & 0x07
	op.phaseCounter = r.u32() & 0xFFFFF
	op.phaseInc = r.u32() & 0xFFFFF
	op.egState = r.u8() & 0x03
	op.egLevel = r.u16() & 0x3FF
	op.keyOn = r.u8()
	op.keyCode = r.u8() & 0x0F
	op.prevOut[0] = int16(r.u16())
	op.prevOut[1] = int16(r.u16())
}
