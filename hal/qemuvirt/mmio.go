// Package qemuvirt is the hal.Platform collaborator for the QEMU "virt"
// board: PL011 UART, virtio-gpu framebuffer, virtio-blk storage,
// virtio-input keyboard/mouse, virtio-net, and the ARM generic timer,
// matching the virtio-family device set SPEC_FULL.md's domain-stack table
// assigns this board (mirroring tinyrange-cc's own virtio MMIO device
// family in internal/devices/virtio, though that package emulates these
// devices from the host side rather than driving them as a guest).
package qemuvirt

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// mmioWindow is a byte-addressable register window. On real hardware this
// would be backed by a VM-physical MMIO region mapped uncached; here (and
// in every other Linux host build of this tree) it is an anonymous mmap,
// which is the same raw-bytes-at-a-fixed-address shape a genuine MMIO
// mapping has, enough to drive register read/modify/write logic without
// a kernel-mode VM.
type mmioWindow struct {
	mem []byte
}

func newMMIOWindow(size int) (*mmioWindow, error) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("qemuvirt: mmap mmio window: %w", err)
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
