package pizero2w

import "github.com/vibeos/core/hal"

// DiskSectors is the default SD card image size this board presents.
const DiskSectors = 64 << 20 / sectorSize

// New brings up the board's devices and returns the hal.Platform core
// boots against. FB, Input, and Net are left nil: this board has no DSI
// panel or USB HID stack wired in this tree, and WiFi networking over the
// onboard chip is out of scope (console degrades to serial per spec §7,
// and a nil platform.Net simply skips network bring-up in kernel.Boot).
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
	led, err := NewLED()
	if err != nil {
		serial.Close()
		block.Close()
		timers.Close()
		return nil, nil, err
	}
	irq := NewInterrupts()

	platform := &hal.Platform{
		Name:       "pizero2w",
		Serial:     serial,
		Block:      block,
		Interrupts: irq,
		Timers:     timers,
		LED:        led,
	}
	closeAll := func() error {
		serial.Close()
		block.Close()
		timers.Close()
		return led.Close()
	}
	return platform, closeAll, nil
}
