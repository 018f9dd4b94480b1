package compositor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vibeos/core/compositor"
	"github.com/vibeos/core/hal"
	"github.com/vibeos/core/hal/halfake"
)

func newFB(t *testing.T, w, h int) *halfake.Framebuffer {
	t.Helper()
	fb := &halfake.Framebuffer{}
	require.NoError(t, fb.Init(w, h))
	return fb
}

func TestCreateZOrdersOnTopAndFocuses(t *testing.T) {
	c := compositor.New(newFB(t, 320, 240))

	id1, ok := c.Create(10, 10, 100, 80, "first")
	require.True(t, ok)
	id2, ok := c.Create(20, 20, 100, 80, "second")
	require.True(t, ok)

	evt, ok := c.PollEvent(id1)
	require.True(t, ok)
	require.Equal(t, compositor.EventFocus, evt.Type)

	evt, ok = c.PollEvent(id1)
	require.True(t, ok)
	require.Equal(t, compositor.EventUnfocus, evt.Type)

	evt, ok = c.PollEvent(id2)
	require.True(t, ok)
	require.Equal(t, compositor.EventFocus, evt.Type)
}

func TestDestroyReassignsFocus(t *testing.T) {
	c := compositor.New(newFB(t, 320, 240))
	id1, _ := c.Create(0, 0, 100, 80, "a")
	id2, _ := c.Create(0, 0, 100, 80, "b")

	c.Destroy(id2)

	// id1 regains focus; drain the intervening focus churn.
	var last compositor.Event
	for {
		evt, ok := c.PollEvent(id1)
		if !ok {
			break
		}
		last = evt
	}
	require.Equal(t, compositor.EventFocus, last.Type)
}

func TestGetBufferDimensionsExcludeTitleBar(t *testing.T) {
	c := compositor.New(newFB(t, 320, 240))
	id, ok := c.Create(0, 0, 100, 80, "w")
	require.True(t, ok)

	buf, w, h, ok := c.GetBuffer(id)
	require.True(t, ok)
	require.Equal(t, 100, w)
	require.Equal(t, 80-compositor.TitleBarHeight, h)
	require.Len(t, buf, w*h)
}

func TestEventRingDropsNewestWhenFull(t *testing.T) {
	c := compositor.New(newFB(t, 320, 240))
	id, _ := c.Create(0, 0, 100, 100, "w")
	drainAll(c, id)
	for i := 0; i < compositor.EventRingCapacity+10; i++ {
		c.HandleKey(i)
	}

	var last compositor.Event
	count := 0
	for {
		evt, ok := c.PollEvent(id)
		if !ok {
			break
		}
		last = evt
		count++
	}
	require.Equal(t, compositor.EventRingCapacity, count)
	require.Equal(t, compositor.EventRingCapacity-1, last.Data1)
}

func TestCloseBoxClickDestroysViaCloseEvent(t *testing.T) {
	c := compositor.New(newFB(t, 320, 240))
	id, _ := c.Create(10, 10, 100, 80, "w")
	drainAll(c, id)

	c.HandleMouse(12, 12, hal.MouseLeft)
	evt, ok := c.PollEvent(id)
	require.True(t, ok)
	require.Equal(t, compositor.EventClose, evt.Type)
}

func TestTitleBarDragMovesWindow(t *testing.T) {
	c := compositor.New(newFB(t, 320, 240))
	id, _ := c.Create(10, 10, 100, 80, "w")

	c.HandleMouse(50, 12, hal.MouseLeft) // press in title bar, away from close box
	c.HandleMouse(60, 22, hal.MouseLeft) // drag by (10, 10)
	c.HandleMouse(60, 22, 0)             // release

	x, y, _, _, ok := c.Bounds(id)
	require.True(t, ok)
	require.Equal(t, 20, x)
	require.Equal(t, 20, y)
}

func TestContentClickDeliversLocalCoordinates(t *testing.T) {
	c := compositor.New(newFB(t, 320, 240))
	id, _ := c.Create(10, 10, 100, 80, "w")
	drainAll(c, id)

	x, y := 15, 10+compositor.TitleBarHeight+5
	c.HandleMouse(x, y, hal.MouseLeft)

	evt, ok := c.PollEvent(id)
	require.True(t, ok)
	require.Equal(t, compositor.EventMouseDown, evt.Type)
	require.Equal(t, x-10, evt.Data1)
	require.Equal(t, 5, evt.Data2)
}

func TestPaintProducesCheckerboardWhenNoWindows(t *testing.T) {
	fb := newFB(t, 32, 32)
	c := compositor.New(fb)
	c.Paint()

	d := fb.Descriptor()
	require.Equal(t, uint32(0x000000), d.Base[0])
	require.Equal(t, uint32(0xFFFFFF), d.Base[compositor.CloseBoxSize]) // next tile over
}

func drainAll(c *compositor.Compositor, id int) {
	for {
		if _, ok := c.PollEvent(id); !ok {
			return
		}
	}
}
