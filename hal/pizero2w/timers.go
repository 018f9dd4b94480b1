package pizero2w

// BCM System Timer: a free-running 1MHz counter split across CLO/CHI.
const (
	sysTimerCLO = 0x04
	sysTimerCHI = 0x08
	sysTimerFreqHz = 1_000_000
)

type Timers struct {
	win *mmioWindow
}

func NewTimers() (*Timers, error) {
	win, err := newMMIOWindow(0x20)
	if err != nil {
		return nil, err
	}
	return &Timers{win: win}, nil
}

func (t *Timers) Init() error {
	t.win.store32(sysTimerCLO, 0)
	t.win.store32(sysTimerCHI, 0)
	return nil
}

func (t *Timers) counter() uint64 {
	return uint64(t.win.load32(sysTimerCLO)) | uint64(t.win.load32(sysTimerCHI))<<32
}

// Advance moves the simulated free-running counter forward by us
// microseconds, standing in for the passage of real time a genuine SoC
// provides for free.
func (t *Timers) Advance(us uint64) {
	cur := t.counter() + us
	t.win.store32(sysTimerCLO, uint32(cur))
	t.win.store32(sysTimerCHI, uint32(cur>>32))
}

func (t *Timers) Micros() uint64 { return t.counter() }
func (t *Timers) Ticks() uint64  { return t.Micros() / 10000 }

func (t *Timers) Close() error { return t.win.close() }
