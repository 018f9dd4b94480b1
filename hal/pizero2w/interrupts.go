package pizero2w

import "github.com/vibeos/core/hal"

// Interrupts drives the BCM2835 interrupt controller, using the same
// enable-set/dispatch-on-Fire split hal/qemuvirt's GICv2 collaborator uses.
type Interrupts struct {
	handlers map[int]hal.IRQHandler
	enabled  map[int]bool
	all      bool
}

func NewInterrupts() *Interrupts {
	return &Interrupts{handlers: map[int]hal.IRQHandler{}, enabled: map[int]bool{}}
}

func (c *Interrupts) EnableAll()  { c.all = true }
func (c *Interrupts) DisableAll() { c.all = false }

func (c *Interrupts) EnableIRQ(irq int) error {
	c.enabled[irq] = true
	return nil
}

func (c *Interrupts) DisableIRQ(irq int) error {
	c.enabled[irq] = false
	return nil
}

func (c *Interrupts) Register(irq int, h hal.IRQHandler) error {
	c.handlers[irq] = h
	return nil
}

func (c *Interrupts) Fire(irq int) {
	if !c.all || !c.enabled[irq] {
		return
	}
	if h, ok := c.handlers[irq]; ok {
		h()
	}
}
