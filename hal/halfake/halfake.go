// Package halfake provides small in-memory HAL test doubles shared across
// the core's package tests and the end-to-end kernel scenarios (spec §8).
// They are not a platform collaborator in the sense of hal/qemuvirt or
// hal/pizero2w -- they exist purely so core packages can be exercised
// without real hardware.
package halfake

import (
	"sync"

	"github.com/vibeos/core/hal"
)

// Serial is an in-memory loopback UART: bytes sent are appended to Out and
// can be queued into In for TryRecvByte to return.
type Serial struct {
	mu  sync.Mutex
	Out []byte
	In  []byte
}

func (s *Serial) Init() error { return nil }

func (s *Serial) SendByte(b byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Out = append(s.Out, b)
}

func (s *Serial) TryRecvByte() (byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.In) == 0 {
		return 0, false
	}
	b := s.In[0]
	s.In = s.In[1:]
	return b, true
}

// Feed appends bytes to the receive queue.
func (s *Serial) Feed(b ...byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.In = append(s.In, b...)
}

// Framebuffer is a plain-memory XRGB32 framebuffer.
type Framebuffer struct {
	desc hal.FramebufferDescriptor
}

func (f *Framebuffer) Init(w, h int) error {
	f.desc = hal.FramebufferDescriptor{
		Base:   make([]uint32, w*h),
		Width:  w,
		Height: h,
		Stride: w * 4,
	}
	return nil
}

func (f *Framebuffer) Descriptor() hal.FramebufferDescriptor { return f.desc }

// BlockDevice is an in-memory sector store.
type BlockDevice struct {
	mu      sync.Mutex
	Sectors [][512]byte
	FailAt  int // -1 disables; otherwise fails the Nth call (0-based)
	calls   int
}

func NewBlockDevice(sectorCount int) *BlockDevice {
	return &BlockDevice{Sectors: make([][512]byte, sectorCount), FailAt: -1}
}

func (b *BlockDevice) Init() error { return nil }

func (b *BlockDevice) ReadSectors(lba uint64, count int, buf []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailAt >= 0 && b.calls == b.FailAt {
		b.calls++
		return errIO
	}
	b.calls++
	for i := 0; i < count; i++ {
		copy(buf[i*512:(i+1)*512], b.Sectors[int(lba)+i][:])
	}
	return nil
}

func (b *BlockDevice) WriteSectors(lba uint64, count int, buf []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailAt >= 0 && b.calls == b.FailAt {
		b.calls++
		return errIO
	}
	b.calls++
	for i := 0; i < count; i++ {
		copy(b.Sectors[int(lba)+i][:], buf[i*512:(i+1)*512])
	}
	return nil
}

// Input is a scripted keyboard + mouse.
type Input struct {
	mu      sync.Mutex
	Keys    []int
	MouseX  int
	MouseY  int
	Buttons int
}

func (i *Input) Init() error { return nil }

func (i *Input) GetKey() (int, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.Keys) == 0 {
		return 0, false
	}
	k := i.Keys[0]
	i.Keys = i.Keys[1:]
	return k, true
}

func (i *Input) PushKey(k int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Keys = append(i.Keys, k)
}

func (i *Input) MouseState() (int, int, int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.MouseX, i.MouseY, i.Buttons
}

// Interrupts is a no-op controller that just records registrations, useful
// for asserting wiring without a real IRQ source.
type Interrupts struct {
	mu       sync.Mutex
	handlers map[int]hal.IRQHandler
	enabled  map[int]bool
	all      bool
}

func NewInterrupts() *Interrupts {
	return &Interrupts{handlers: map[int]hal.IRQHandler{}, enabled: map[int]bool{}}
}

func (c *Interrupts) EnableAll()  { c.mu.Lock(); c.all = true; c.mu.Unlock() }
func (c *Interrupts) DisableAll() { c.mu.Lock(); c.all = false; c.mu.Unlock() }

func (c *Interrupts) EnableIRQ(irq int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled[irq] = true
	return nil
}

func (c *Interrupts) DisableIRQ(irq int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled[irq] = false
	return nil
}

func (c *Interrupts) Register(irq int, h hal.IRQHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[irq] = h
	return nil
}

// Fire invokes the handler registered for irq, if any and enabled.
func (c *Interrupts) Fire(irq int) {
	c.mu.Lock()
	h, ok := c.handlers[irq]
	enabled := c.enabled[irq]
	c.mu.Unlock()
	if ok && enabled {
		h()
	}
}

// Timers is a manually-advanced clock.
type Timers struct {
	mu     sync.Mutex
	ticks  uint64
	micros uint64
}

func (t *Timers) Init() error { return nil }
func (t *Timers) Ticks() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticks
}
func (t *Timers) Micros() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.micros
}

// Advance moves the clock forward by us microseconds, updating the tick
// counter at a nominal 100Hz (10000us/tick).
func (t *Timers) Advance(us uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.micros += us
	t.ticks = t.micros / 10000
}

// LED is a toggled boolean, useful for asserting GPIO wiring.
type LED struct {
	mu  sync.Mutex
	On_ bool
}

func (l *LED) On()     { l.mu.Lock(); l.On_ = true; l.mu.Unlock() }
func (l *LED) Off()    { l.mu.Lock(); l.On_ = false; l.mu.Unlock() }
func (l *LED) Toggle() { l.mu.Lock(); l.On_ = !l.On_; l.mu.Unlock() }

// NetworkDevice is an in-memory Ethernet NIC. Send normally hands frames
// straight to a wired peer's receive queue (see Connect); Inject lets a
// test push an arbitrary incoming frame with no peer at all.
type NetworkDevice struct {
	mu   sync.Mutex
	mac  [6]byte
	rx   [][]byte
	Sent [][]byte
	peer *NetworkDevice
}

func NewNetworkDevice(mac [6]byte) *NetworkDevice {
	return &NetworkDevice{mac: mac}
}

func (n *NetworkDevice) Init() error  { return nil }
func (n *NetworkDevice) MAC() [6]byte { return n.mac }

func (n *NetworkDevice) Send(frame []byte) error {
	cp := append([]byte(nil), frame...)
	n.mu.Lock()
	n.Sent = append(n.Sent, cp)
	peer := n.peer
	n.mu.Unlock()
	if peer != nil {
		peer.Inject(cp)
	}
	return nil
}

func (n *NetworkDevice) Recv() ([]byte, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.rx) == 0 {
		return nil, false
	}
	f := n.rx[0]
	n.rx = n.rx[1:]
	return f, true
}

// Inject queues frame as though it had just arrived off the wire.
func (n *NetworkDevice) Inject(frame []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rx = append(n.rx, append([]byte(nil), frame...))
}

// Connect wires two fake NICs back to back so each one's Send delivers
// directly to the other's receive queue, for loopback-style tests.
func Connect(a, b *NetworkDevice) {
	a.peer = b
	b.peer = a
}

var errIO = &ioError{}

type ioError struct{}

func (*ioError) Error() string { return "halfake: simulated i/o error" }

// Platform assembles a complete fake hal.Platform for end-to-end tests.
// mac seeds the fake NIC's hardware address.
func Platform(name string, w, h, sectorCount int, mac [6]byte) (*hal.Platform, *Serial, *Framebuffer, *BlockDevice, *Input, *Timers, *NetworkDevice) {
	s := &Serial{}
	fb := &Framebuffer{}
	_ = fb.Init(w, h)
	bd := NewBlockDevice(sectorCount)
	in := &Input{}
	tm := &Timers{}
	nd := NewNetworkDevice(mac)
	p := &hal.Platform{
		Name:       name,
		Serial:     s,
		FB:         fb,
		Block:      bd,
		Input:      in,
		Interrupts: NewInterrupts(),
		Timers:     tm,
		LED:        &LED{},
		Net:        nd,
	}
	return p, s, fb, bd, in, tm, nd
}
