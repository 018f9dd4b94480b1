package compositor

// Black and White are the only two colors the compositor ever paints with
// (spec §4.7: "deliberately 1-bit (pure black on white)").
const (
	paintBlack = uint32(0x000000)
	paintWhite = uint32(0xFFFFFF)
)

// checkerSquare is the side length of the desktop's diagonal checkerboard
// tiles.
const checkerSquare = 16

// Paint renders one frame into the private backbuffer (desktop pattern,
// then every window bottom-to-top with its title bar) and blits the whole
// thing to the HAL framebuffer in one pass, per spec §4.7's "double-buffer
// into a private backbuffer and then blit... once per frame." Per-window
// dirty flags are cleared as each window is painted; a window not
// currently dirty is still blitted (the backbuffer is fully repainted
// every frame, simpler than tracking damage rects at kernel scale) but its
// Dirty bookkeeping is what a real desktop program would check before
// calling Invalidate again.
func (c *Compositor) Paint() {
	if len(c.backbuffer) == 0 {
		return
	}
	c.paintDesktop()

	for i := len(c.zorder) - 1; i >= 0; i-- {
		id := c.zorder[i]
		c.paintWindow(id)
	}

	if c.fb != nil {
		d := c.fb.Descriptor()
		n := len(c.backbuffer)
		if len(d.Base) < n {
			n = len(d.Base)
		}
		copy(d.Base[:n], c.backbuffer[:n])
	}
}

func (c *Compositor) paintDesktop() {
	for y := 0; y < c.screenH; y++ {
		row := y * c.screenW
		for x := 0; x < c.screenW; x++ {
			tile := (x/checkerSquare + y/checkerSquare) % 2
			px := paintWhite
			if tile == 0 {
				px = paintBlack
			}
			c.backbuffer[row+x] = px
		}
	}
}

func (c *Compositor) paintWindow(id int) {
	s := &c.slots[id]
	c.fillRect(s.X, s.Y, s.W, TitleBarHeight, paintBlack)
	c.fillRect(s.X+2, s.Y+2, CloseBoxSize-4, CloseBoxSize-4, paintWhite)

	ch := s.contentHeight()
	for y := 0; y < ch; y++ {
		for x := 0; x < s.W; x++ {
			sx, sy := s.X+x, s.Y+TitleBarHeight+y
			if sx < 0 || sx >= c.screenW || sy < 0 || sy >= c.screenH {
				continue
			}
			c.backbuffer[sy*c.screenW+sx] = s.Content[y*s.W+x]
		}
	}
	s.Dirty = false
}

func (c *Compositor) fillRect(x, y, w, h int, color uint32) {
	for dy := 0; dy < h; dy++ {
		sy := y + dy
		if sy < 0 || sy >= c.screenH {
			continue
		}
		for dx := 0; dx < w; dx++ {
			sx := x + dx
			if sx < 0 || sx >= c.screenW {
				continue
			}
			c.backbuffer[sy*c.screenW+sx] = color
		}
	}
}
