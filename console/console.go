// Package console implements the fixed-grid bitmap-font text surface over
// the HAL framebuffer, with a serial fallback when no framebuffer is
// present (spec §4.5).
package console

import (
	"github.com/vibeos/core/hal"
)

// Console is the framebuffer text console. It owns no HAL resources;
// callers construct one over a hal.Framebuffer (optional) and hal.Serial
// (required as the fallback sink).
type Console struct {
	fb     hal.Framebuffer
	serial hal.Serial

	rows, cols       int
	cursorRow, cursorCol int
	fg, bg           Color
	initialized      bool
}

// New creates a console. fb may be nil, in which case PutChar/PutString
// fall back to serial output for the lifetime of the Console and Clear
// does nothing.
func New(fb hal.Framebuffer, serial hal.Serial) *Console {
	c := &Console{
		fb:     fb,
		serial: serial,
		fg:     White,
		bg:     Black,
	}
	if fb != nil {
		d := fb.Descriptor()
		c.cols = d.Width / GlyphWidth
		c.rows = d.Height / GlyphHeight
		c.initialized = c.cols > 0 && c.rows > 0
	}
	return c
}

// Rows and Cols report the current grid dimensions (0 if no framebuffer).
func (c *Console) Rows() int { return c.rows }
func (c *Console) Cols() int { return c.cols }

// SetColor sets the foreground/background colors used by subsequent draws.
func (c *Console) SetColor(fg, bg Color) {
	c.fg, c.bg = fg, bg
}

// Cursor returns the current cursor position.
func (c *Console) Cursor() (row, col int) { return c.cursorRow, c.cursorCol }

// SetCursor moves the cursor within the valid grid (out-of-range
// components are ignored, matching the original console_set_cursor).
func (c *Console) SetCursor(row, col int) {
	if row >= 0 && row < c.rows {
		c.cursorRow = row
	}
	if col >= 0 && col < c.cols {
		c.cursorCol = col
	}
}

func (c *Console) serialPutc(ch byte) {
	if c.serial == nil {
		return
	}
	if ch == '\n' {
		c.serial.SendByte('\r')
	}
	c.serial.SendByte(ch)
}

// PutChar writes one byte to the console, handling LF/CR/TAB/BS and
// printable ASCII as spec'd; it falls back to serial when uninitialized.
func (c *Console) PutChar(ch byte) {
	if !c.initialized {
		c.serialPutc(ch)
		return
	}

	switch ch {
	case '\n':
		c.newline()
	case '\r':
		c.cursorCol = 0
	case '\t':
		c.cursorCol = (c.cursorCol + 8) &^ 7
		if c.cursorCol >= c.cols {
			c.newline()
		}
	case '\b':
		if c.cursorCol > 0 {
			c.cursorCol--
			c.drawCharAt(c.cursorRow, c.cursorCol, ' ')
		}
	default:
		if ch >= 0x20 && ch < 0x7F {
			c.drawCharAt(c.cursorRow, c.cursorCol, ch)
			c.cursorCol++
			if c.cursorCol >= c.cols {
				c.newline()
			}
		}
	}
}

// PutString writes s one byte at a time through PutChar.
func (c *Console) PutString(s string) {
	for i := 0; i < len(s); i++ {
		c.PutChar(s[i])
	}
}

func (c *Console) newline() {
	c.cursorCol = 0
	c.cursorRow++
	if c.cursorRow >= c.rows {
		c.scrollUp()
		c.cursorRow = c.rows - 1
	}
}

// scrollUp moves the pixel block [glyphH, h) up to [0, h-glyphH) and fills
// the last glyph row with bg, per spec §4.5.
func (c *Console) scrollUp() {
	d := c.fb.Descriptor()
	linePixels := d.Width * GlyphHeight
	total := d.Width * d.Height
	for i := 0; i < total-linePixels; i++ {
		d.Base[i] = d.Base[i+linePixels]
	}
	for i := total - linePixels; i < total; i++ {
		d.Base[i] = uint32(c.bg)
	}
}

// Clear fills the whole surface with bg and resets the cursor.
func (c *Console) Clear() {
	if !c.initialized {
		return
	}
	d := c.fb.Descriptor()
	for i := range d.Base {
		d.Base[i] = uint32(c.bg)
	}
	c.cursorRow, c.cursorCol = 0, 0
}

func (c *Console) drawCharAt(row, col int, ch byte) {
	d := c.fb.Descriptor()
	glyph := font[ch]
	baseX := col * GlyphWidth
	baseY := row * GlyphHeight
	for gy := 0; gy < GlyphHeight; gy++ {
		y := baseY + gy
		if y >= d.Height {
			continue
		}
		line := glyph[gy]
		for gx := 0; gx < GlyphWidth; gx++ {
			x := baseX + gx
			if x >= d.Width {
				continue
			}
			set := line&(0x80>>uint(gx)) != 0
			idx := y*d.Width + x
			if set {
				d.Base[idx] = uint32(c.fg)
			} else {
				d.Base[idx] = uint32(c.bg)
			}
		}
	}
}
