package qemuvirt

import "github.com/vibeos/core/hal"

// Framebuffer is the virtio-gpu scanout buffer: a single linear 2D resource
// attached once at Init and never reallocated, the same shape virtio-gpu's
// "resource create 2D" + "set scanout" pair produces on a real guest.
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
