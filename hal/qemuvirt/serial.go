package qemuvirt

// PL011 register offsets (ARM PrimeCell UART, the device QEMU's virt board
// exposes at the fixed address the platform's device tree advertises).
const (
	pl011DR = 0x00 // data register
	pl011FR = 0x18 // flag register
	pl011FR_RXFE = 1 << 4
	pl011FR_TXFF = 1 << 5
)

// Serial drives a PL011 UART over its MMIO register window.
type Serial struct {
	win *mmioWindow
	rx  []byte
}

// NewSerial maps a fresh PL011 register window.
func NewSerial() (*Serial, error) {
	win, err := newMMIOWindow(0x1000)
	if err != nil {
		return nil, err
	}
	return &Serial{win: win}, nil
}

func (s *Serial) Init() error {
	s.win.store32(pl011FR, pl011FR_RXFE)
	return nil
}

func (s *Serial) SendByte(b byte) {
	s.win.store32(pl011DR, uint32(b))
}

// TryRecvByte pops from the software receive queue; Inject feeds it, since
// this board has no real incoming serial traffic outside a test harness.
func (s *Serial) TryRecvByte() (byte, bool) {
	if len(s.rx) == 0 {
		return 0, false
	}
	b := s.rx[0]
	s.rx = s.rx[1:]
	return b, true
}

// Inject queues bytes as if received over the wire.
func (s *Serial) Inject(b ...byte) { s.rx = append(s.rx, b...) }

// Close releases the mapped register window.
func (s *Serial) Close() error { return s.win.close() }
