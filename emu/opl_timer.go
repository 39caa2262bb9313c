package emu

// timer represents an OPL timer (1 or 2).
type timer struct {
	period  uint16 // Loaded period value
	counter uint16 // Current counter value
}

// stepTimers advances Timer 1 and Timer 2.
// Timer 1: 8-bit, counts once per 4 sample clocks (~80us), overflows at 256.
// Timer 2: 8-bit, counts once per 16 sample clocks (~320us), overflows at 256.
func (o *OPL) stepTimers() {
	o.timerSub = (o.timerSub + 1) & 0x0F

	if o.t1Start && o.timerSub&0x03 == 0 {
		if o.timer1.tick() && !o.t1Mask {
			o.status |= statusT1 | statusIRQ
		}
	}
	if o.t2Start && o.timerSub == 0 {
		if o.timer2.tick() && !o.t2Mask {
			o.status |= statusT2 | statusIRQ
		}
	}
}

// tick advances the counter by one and reports an overflow. The counter
// restarts from the loaded period after each overflow.
func (t *timer) tick() bool {
	t.counter++
	if t.counter >= 256-t.period {
		t.counter = 0
		return true
	}
	return false
}
