package pizero2w

// Mini-UART (AUX_MU_*) register offsets, relative to the AUX peripheral
// base (BCM2835 ARM Peripherals manual §2.1).
const (
	auxMuIO    = 0x40 // I/O data register
	auxMuLSR   = 0x54 // line status register
	auxMuLSR_RXReady = 1 << 0
	auxMuLSR_TXEmpty = 1 << 5
)

// Serial drives the BCM2835 mini-UART used as the Pi's serial console.
type Serial struct {
	win *mmioWindow
	rx  []byte
}

func NewSerial() (*Serial, error) {
	win, err := newMMIOWindow(0x100)
	if err != nil {
		return nil, err
	}
	return &Serial{win: win}, nil
}

func (s *Serial) Init() error {
	s.win.store32(auxMuLSR, auxMuLSR_TXEmpty)
	return nil
}

func (s *Serial) SendByte(b byte) {
	s.win.store32(auxMuIO, uint32(b))
}

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

func (s *Serial) Close() error { return s.win.close() }
