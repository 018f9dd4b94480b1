package qemuvirt

// Timers stands in for the ARM generic timer: a free-running counter at a
// fixed frequency, with Ticks() derived from it at the nominal 100Hz the
// rest of the core assumes (spec §4.1).
type Timers struct {
	win  *mmioWindow
	freq uint64
}

// genericTimerFreqHz is QEMU virt's default CNTFRQ_EL0 value.
const genericTimerFreqHz = 62500000

func NewTimers() (*Timers, error) {
	win, err := newMMIOWindow(0x10)
	if err != nil {
		return nil, err
	}
	return &Timers{win: win, freq: genericTimerFreqHz}, nil
}

func (t *Timers) Init() error {
	t.win.store32(0, 0)
	t.win.store32(4, 0)
	return nil
}

func (t *Timers) counter() uint64 {
	return uint64(t.win.load32(0)) | uint64(t.win.load32(4))<<32
}

// Advance moves the simulated counter forward by us microseconds; a real
// CNTPCT_EL0 read needs no such call, but nothing drives this board's clock
// forward on a Linux host without one.
func (t *Timers) Advance(us uint64) {
	cur := t.counter() + us*genericTimerFreqHz/1_000_000
	t.win.store32(0, uint32(cur))
	t.win.store32(4, uint32(cur>>32))
}

func (t *Timers) Micros() uint64 {
	return t.counter() * 1_000_000 / genericTimerFreqHz
}

func (t *Timers) Ticks() uint64 {
	return t.Micros() / 10000
}

// Close releases the mapped counter window.
func (t *Timers) Close() error { return t.win.close() }
