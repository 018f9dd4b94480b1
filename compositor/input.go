package compositor

import "github.com/vibeos/core/hal"

// HandleMouse implements spec §4.7's title-bar hit-testing and drag
// behavior: a click in the close box queues a CLOSE event; a click
// elsewhere in the title bar raises and begins a drag; a click in the
// content area delivers MOUSE_DOWN/MOUSE_UP with window-local coordinates.
// buttons is the HAL mouse button bitmap (hal.MouseLeft etc).
func (c *Compositor) HandleMouse(x, y int, buttons int) {
	wasDown := c.dragging || c.lastButtons&hal.MouseLeft != 0
	leftDown := buttons&hal.MouseLeft != 0
	justPressed := leftDown && !wasDown
	justReleased := !leftDown && wasDown

	if c.dragging {
		if !leftDown {
			c.dragging = false
		} else {
			s := &c.slots[c.dragSlot]
			s.X = clamp(x-c.dragOffsetX, 0, c.screenW-s.W)
			s.Y = clamp(y-c.dragOffsetY, 0, c.screenH-s.H)
			s.Dirty = true
		}
		c.lastButtons = buttons
		return
	}

	id := c.windowAt(x, y)
	if id < 0 {
		c.lastButtons = buttons
		return
	}
	s := &c.slots[id]

	if justPressed {
		c.setFocus(id)
	}

	inTitleBar := y < s.Y+TitleBarHeight
	if inTitleBar {
		inCloseBox := x < s.X+CloseBoxSize && y < s.Y+CloseBoxSize
		if justPressed {
			if inCloseBox {
				s.pushEvent(Event{Type: EventClose})
			} else {
				c.dragging = true
				c.dragSlot = id
				c.dragOffsetX = x - s.X
				c.dragOffsetY = y - s.Y
			}
		}
		c.lastButtons = buttons
		return
	}

	localX := x - s.X
	localY := y - (s.Y + TitleBarHeight)
	switch {
	case justPressed:
		s.pushEvent(Event{Type: EventMouseDown, Data1: localX, Data2: localY, Data3: int(buttons)})
	case justReleased:
		s.pushEvent(Event{Type: EventMouseUp, Data1: localX, Data2: localY, Data3: int(buttons)})
	default:
		s.pushEvent(Event{Type: EventMouseMove, Data1: localX, Data2: localY, Data3: int(buttons)})
	}
	c.lastButtons = buttons
}

// HandleKey delivers code to the focused window, if any (spec §4.7: "Key
// events are delivered to the focused window").
func (c *Compositor) HandleKey(code int) {
	if c.focus < 0 {
		return
	}
	c.slots[c.focus].pushEvent(Event{Type: EventKey, Data1: code})
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
