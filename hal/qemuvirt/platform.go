package qemuvirt

import "github.com/vibeos/core/hal"

// DiskSectors is the default disk image size this board presents: a 64MiB
// FAT32 volume, comfortably above fat32's minimum cluster-count floor.
const DiskSectors = 64 << 20 / sectorSize

// DefaultMAC is the virtio-net address QEMU assigns by default.
var DefaultMAC = [6]byte{0x52, 0x54, 0x00, 0x12, 0x34, 0x56}

// New brings up every virtio-family device and returns the hal.Platform
// core boots against. Device windows are released by the returned close
// func.
func New() (*hal.Platform, func() error, error) {
	serial, err := NewSerial()
	if err != nil {
		return nil, nil, err
	}
	block, err := NewBlockDevice(DiskSectors)
	if err != nil {
		serial.Close()
		return nil, nil, err
	}
	timers, err := NewTimers()
	if err != nil {
		serial.Close()
		block.Close()
		return nil, nil, err
	}

	fb := &Framebuffer{}
	input := NewInput()
	irq := NewInterrupts()
	net := NewNetworkDevice(DefaultMAC)

	platform := &hal.Platform{
		Name:       "qemuvirt",
		Serial:     serial,
		FB:         fb,
		Block:      block,
		Input:      input,
		Interrupts: irq,
		Timers:     timers,
		Net:        net,
	}
	closeAll := func() error {
		serial.Close()
		block.Close()
		return timers.Close()
	}
	return platform, closeAll, nil
}
