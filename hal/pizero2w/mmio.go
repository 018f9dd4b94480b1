// Package pizero2w is the hal.Platform collaborator for the Raspberry Pi
// Zero 2W: BCM2835-family mini-UART, EMMC storage, and ACT-LED-over-GPIO,
// matching the EMMC/DWC2/GPIO device set SPEC_FULL.md's domain-stack table
// assigns this board. There is no framebuffer or input collaborator here
// (console falls back to serial per spec §7's degrade-gracefully rule);
// wiring a real DSI/composite display and USB HID stack is out of scope
// for this tree, same as networking over the onboard WiFi chip.
package pizero2w

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// mmioWindow mirrors hal/qemuvirt's: an anonymous mmap standing in for a
// VideoCore peripheral register window normally mapped at a fixed physical
// base (0x3f000000 on this SoC).
type mmioWindow struct {
	mem []byte
}

func newMMIOWindow(size int) (*mmioWindow, error) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("pizero2w: mmap mmio window: %w", err)
	}
	return &mmioWindow{mem: mem}, nil
}

func (w *mmioWindow) close() error {
	if w.mem == nil {
		return nil
	}
	err := unix.Munmap(w.mem)
	w.mem = nil
	return err
}

func (w *mmioWindow) load32(off int) uint32 {
	return uint32(w.mem[off]) | uint32(w.mem[off+1])<<8 | uint32(w.mem[off+2])<<16 | uint32(w.mem[off+3])<<24
}

func (w *mmioWindow) store32(off int, v uint32) {
	w.mem[off] = byte(v)
	w.mem[off+1] = byte(v >> 8)
	w.mem[off+2] = byte(v >> 16)
	w.mem[off+3] = byte(v >> 24)
}
