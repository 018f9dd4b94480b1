// Package hal defines the narrow, per-platform Hardware Abstraction Layer
// contracts the kernel core depends on (spec §4.1). Concrete
// implementations are collaborators outside core scope: hal/qemuvirt backs
// the QEMU virt board with virtio devices, hal/pizero2w backs the Raspberry
// Pi Zero 2W with EMMC/DWC2/GPIO. Every init call returns nil on success or
// a non-nil error on irrecoverable hardware absence; callers are expected
// to degrade gracefully (e.g. console falls back to serial when the
// framebuffer is absent).
package hal

import "errors"

// ErrUnsupported is returned by HAL calls for a feature the platform lacks
// entirely (e.g. USB polling on the virtualized board). Callers must
// tolerate it, per spec §7.
var ErrUnsupported = errors.New("hal: unsupported on this platform")

// Special key codes returned by Input.GetKey in addition to ASCII.
const (
	KeyUp     = 0x100
	KeyDown   = 0x101
	KeyLeft   = 0x102
	KeyRight  = 0x103
	KeyHome   = 0x104
	KeyEnd    = 0x105
	KeyDelete = 0x106
)

// Mouse button bitmap values.
const (
	MouseLeft   = 1
	MouseRight  = 2
	MouseMiddle = 4
)

// Serial is the UART contract. Newline translation (LF -> CRLF) is a caller
// concern, never performed inside the HAL.
type Serial interface {
	Init() error
	SendByte(b byte)
	// TryRecvByte returns the next received byte and true, or (0, false) if
	// none is pending. Never blocks.
	TryRecvByte() (b byte, ok bool)
}

// FramebufferDescriptor is the immutable-after-init description of the
// linear pixel buffer driving the display device (spec §3).
type FramebufferDescriptor struct {
	Base   []uint32 // XRGB8888 little-endian pixels, row-major
	Width  int
	Height int
	Stride int // bytes per row
}

// Framebuffer is the display contract.
type Framebuffer interface {
	Init(width, height int) error
	Descriptor() FramebufferDescriptor
}

// BlockDevice is the 512-byte-sector storage contract. Multi-sector
// transfers are one call; whether the platform implements that as a single
// command or a loop is an implementation choice left to the collaborator.
type BlockDevice interface {
	Init() error
	ReadSectors(lba uint64, count int, buf []byte) error
	WriteSectors(lba uint64, count int, buf []byte) error
}

// Input is the keyboard + mouse contract.
type Input interface {
	Init() error
	// GetKey returns the next queued key code and true, or (0, false) if
	// the queue is empty. Codes are ASCII or one of the Key* constants.
	GetKey() (code int, ok bool)
	// MouseState returns the current absolute position and button bitmap.
	MouseState() (x, y int, buttons int)
}

// IRQHandler is invoked by the platform's interrupt dispatch for a
// registered IRQ number.
type IRQHandler func()

// Interrupts is the interrupt controller contract.
type Interrupts interface {
	EnableAll()
	DisableAll()
	EnableIRQ(irq int) error
	DisableIRQ(irq int) error
	// Register installs handler for irq, replacing any previous handler.
	Register(irq int, handler IRQHandler) error
}

// Timers is the tick + free-running microsecond counter contract.
type Timers interface {
	Init() error
	// Ticks returns the nominal-100Hz tick counter.
	Ticks() uint64
	// Micros returns a free-running microsecond counter, available even
	// before scheduler startup.
	Micros() uint64
}

// LED is the status-LED contract; platforms without one implement it as a
// no-op.
type LED interface {
	On()
	Off()
	Toggle()
}

// NetworkDevice is the raw Ethernet contract: send and receive whole
// frames, no framing or protocol knowledge below the wire. netcore owns
// everything above this line.
type NetworkDevice interface {
	Init() error
	// MAC returns this device's hardware address.
	MAC() [6]byte
	// Send transmits one Ethernet frame (destination+source+ethertype
	// header included by the caller).
	Send(frame []byte) error
	// Recv returns the next queued frame and true, or (nil, false) if
	// none is pending. Never blocks.
	Recv() (frame []byte, ok bool)
}

// Platform bundles every HAL facility a concrete board provides. The
// collaborator packages (hal/qemuvirt, hal/pizero2w) each produce one of
// these; core only ever depends on this interface set, never on the
// concrete board package, matching the teacher's device/chipset inversion
// (chipset.Chipset depends on device interfaces, never concrete structs).
type Platform struct {
	Name        string
	Serial      Serial
	FB          Framebuffer
	Block       BlockDevice
	Input       Input
	Interrupts  Interrupts
	Timers      Timers
	LED         LED
	Net         NetworkDevice
}
