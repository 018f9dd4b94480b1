package qemuvirt

import "github.com/vibeos/core/hal"

// Interrupts drives the GICv2 distributor QEMU's virt board exposes. This
// collaborator only tracks enable state and dispatches registered handlers
// on Fire; the actual IRQ-arrives-from-hardware edge is a test/harness
// concern outside this package, same division halfake.Interrupts uses.
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

// Fire dispatches the handler registered for irq, as the GIC would on a
// real IRQ line assertion.
func (c *Interrupts) Fire(irq int) {
	if !c.all || !c.enabled[irq] {
		return
	}
	if h, ok := c.handlers[irq]; ok {
		h()
	}
}
