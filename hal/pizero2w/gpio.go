package pizero2w

// GPFSEL/GPSET/GPCLR register offsets and the ACT LED's pin, per the
// BCM2835 ARM Peripherals manual §6.1. The Pi Zero 2W wires the activity
// LED to GPIO29 through the VideoCore GPIO expander rather than directly,
// but this collaborator treats it as a plain GPIO output since the
// expander protocol itself isn't in scope here.
const (
	gpfsel2 = 0x08
	gpset0  = 0x1c
	gpclr0  = 0x28
	actLEDPin = 29
)

// LED drives the activity LED as a GPIO output pin.
type LED struct {
	win *mmioWindow
	on  bool
}

func NewLED() (*LED, error) {
	win, err := newMMIOWindow(0x100)
	if err != nil {
		return nil, err
	}
	// Set GPIO29's function select bits to 001 (output).
	bit := (actLEDPin % 10) * 3
	v := win.load32(gpfsel2)
	v = (v &^ (0b111 << bit)) | (0b001 << bit)
	win.store32(gpfsel2, v)
	return &LED{win: win}, nil
}

func (l *LED) On() {
	l.win.store32(gpset0, 1<<actLEDPin)
	l.on = true
}

func (l *LED) Off() {
	l.win.store32(gpclr0, 1<<actLEDPin)
	l.on = false
}

func (l *LED) Toggle() {
	if l.on {
		l.Off()
	} else {
		l.On()
	}
}

func (l *LED) Close() error { return l.win.close() }
