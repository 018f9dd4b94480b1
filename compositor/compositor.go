// Package compositor implements the kernel-owned window compositor
// contract (spec §4.7): window slots, the z-order list, and per-window
// event rings. The actual paint/drag policy is what a desktop program
// would drive through this API; the kernel only defines the structs and
// the slot-management invariants (create/destroy/poll_event/invalidate),
// same division of labor the spec draws between "kernel defines" and
// "compositor (desktop program) implementation must honor."
package compositor

import "github.com/vibeos/core/hal"

// SlotCapacity is the fixed number of window slots, mirrored from the
// z-order list capacity in spec §4.7. Modeled the same way netcore's ARP
// table is: a fixed-size array of slots rather than a growable collection,
// because the kernel never allocates more of these than the desktop
// program is allowed to create.
const SlotCapacity = 16

// EventRingCapacity is the size of each window's event queue (spec §4.7:
// "the slot's 32-entry ring").
const EventRingCapacity = 32

// TitleBarHeight is the fixed pixel height of every window's title bar.
const TitleBarHeight = 20

// CloseBoxSize is the side length of the close-box hit target in the
// title bar's top-left corner.
const CloseBoxSize = 16

// Window event types (spec §6).
const (
	EventNone      = 0
	EventMouseDown = 1
	EventMouseUp   = 2
	EventMouseMove = 3
	EventKey       = 4
	EventClose     = 5
	EventFocus     = 6
	EventUnfocus   = 7
	EventResize    = 8
)

// Event is the Go rendering of the window event struct (spec §3).
type Event struct {
	Type  int
	Data1 int
	Data2 int
	Data3 int
}

// Window is one slot's state: its screen rectangle (including the title
// bar), its owned content buffer, and its bounded event ring.
type Window struct {
	active bool
	X, Y   int
	W, H   int // W,H include the title bar; content is W x (H-TitleBarHeight)
	Title  string
	Content []uint32
	Dirty   bool

	ring       [EventRingCapacity]Event
	ringHead   int
	ringCount  int
}

// contentHeight returns the content area's pixel height, clamped to zero
// for windows too short to show any content below the title bar.
func (w *Window) contentHeight() int {
	h := w.H - TitleBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// pushEvent enqueues evt, dropping it silently if the ring is already
// full -- spec §4.7's "drop-newest-when-full bounded queue."
func (w *Window) pushEvent(evt Event) {
	if w.ringCount == EventRingCapacity {
		return
	}
	tail := (w.ringHead + w.ringCount) % EventRingCapacity
	w.ring[tail] = evt
	w.ringCount++
}

// popEvent dequeues the oldest event, if any.
func (w *Window) popEvent() (Event, bool) {
	if w.ringCount == 0 {
		return Event{}, false
	}
	evt := w.ring[w.ringHead]
	w.ringHead = (w.ringHead + 1) % EventRingCapacity
	w.ringCount--
	return evt, true
}

// Compositor owns every window slot, the z-order list (index 0 topmost),
// and focus tracking, plus the double-buffered blit target.
type Compositor struct {
	fb hal.Framebuffer

	slots  [SlotCapacity]Window
	zorder []int // slot indices, index 0 = topmost
	focus  int   // slot index, -1 if none

	backbuffer []uint32
	screenW    int
	screenH    int

	dragging    bool
	dragSlot    int
	dragOffsetX int
	dragOffsetY int
	lastButtons int
}

// New creates a compositor over fb. If fb is non-nil its current
// descriptor sizes the backbuffer; a nil fb (headless test harness) leaves
// the backbuffer empty until Resize is called.
func New(fb hal.Framebuffer) *Compositor {
	c := &Compositor{fb: fb, focus: -1}
	if fb != nil {
		d := fb.Descriptor()
		c.Resize(d.Width, d.Height)
	}
	return c
}

// Resize reconditions the backbuffer for a width x height screen.
func (c *Compositor) Resize(w, h int) {
	c.screenW, c.screenH = w, h
	c.backbuffer = make([]uint32, w*h)
}

// Create implements spec §4.7's create(): first free slot, z-ordered on
// top, focused, with a freshly allocated content buffer.
func (c *Compositor) Create(x, y, w, h int, title string) (id int, ok bool) {
	for i := range c.slots {
		if !c.slots[i].active {
			c.slots[i] = Window{
				active:  true,
				X:       x,
				Y:       y,
				W:       w,
				H:       h,
				Title:   title,
				Content: make([]uint32, w*(h-TitleBarHeight)),
				Dirty:   true,
			}
			c.zorder = append([]int{i}, c.zorder...)
			c.setFocus(i)
			return i, true
		}
	}
	return 0, false
}

// Destroy implements spec §4.7's destroy(): frees the slot, removes it
// from z-order, and reassigns focus to the new topmost window (or none).
func (c *Compositor) Destroy(id int) {
	if id < 0 || id >= SlotCapacity || !c.slots[id].active {
		return
	}
	c.slots[id] = Window{}
	for i, s := range c.zorder {
		if s == id {
			c.zorder = append(c.zorder[:i], c.zorder[i+1:]...)
			break
		}
	}
	if c.focus == id {
		if len(c.zorder) > 0 {
			c.setFocus(c.zorder[0])
		} else {
			c.focus = -1
		}
	}
}

// GetBuffer implements spec §4.7's get_buffer(): the owned content buffer
// and the content area's dimensions (title bar excluded).
func (c *Compositor) GetBuffer(id int) (buf []uint32, w, h int, ok bool) {
	if id < 0 || id >= SlotCapacity || !c.slots[id].active {
		return nil, 0, 0, false
	}
	s := &c.slots[id]
	return s.Content, s.W, s.contentHeight(), true
}

// PollEvent implements spec §4.7's poll_event(): pops the slot's oldest
// queued event.
func (c *Compositor) PollEvent(id int) (Event, bool) {
	if id < 0 || id >= SlotCapacity || !c.slots[id].active {
		return Event{}, false
	}
	return c.slots[id].popEvent()
}

// Invalidate implements spec §4.7's invalidate(): sets the dirty flag; the
// next Paint call coalesces it away.
func (c *Compositor) Invalidate(id int) {
	if id < 0 || id >= SlotCapacity || !c.slots[id].active {
		return
	}
	c.slots[id].Dirty = true
}

// Bounds reports a window's current screen rectangle (including its title
// bar), for diagnostics and tests.
func (c *Compositor) Bounds(id int) (x, y, w, h int, ok bool) {
	if id < 0 || id >= SlotCapacity || !c.slots[id].active {
		return 0, 0, 0, 0, false
	}
	s := &c.slots[id]
	return s.X, s.Y, s.W, s.H, true
}

// SetTitle renames an existing window.
func (c *Compositor) SetTitle(id int, title string) {
	if id < 0 || id >= SlotCapacity || !c.slots[id].active {
		return
	}
	c.slots[id].Title = title
	c.slots[id].Dirty = true
}

func (c *Compositor) setFocus(id int) {
	if c.focus == id {
		return
	}
	if c.focus >= 0 && c.slots[c.focus].active {
		c.slots[c.focus].pushEvent(Event{Type: EventUnfocus})
	}
	c.focus = id
	if id >= 0 {
		c.slots[id].pushEvent(Event{Type: EventFocus})
		c.raiseToTop(id)
	}
}

func (c *Compositor) raiseToTop(id int) {
	for i, s := range c.zorder {
		if s == id {
			if i == 0 {
				return
			}
			c.zorder = append(c.zorder[:i], c.zorder[i+1:]...)
			c.zorder = append([]int{id}, c.zorder...)
			return
		}
	}
}

// windowAt returns the topmost active window slot containing (x, y), or -1.
func (c *Compositor) windowAt(x, y int) int {
	for _, id := range c.zorder {
		s := &c.slots[id]
		if x >= s.X && x < s.X+s.W && y >= s.Y && y < s.Y+s.H {
			return id
		}
	}
	return -1
}
