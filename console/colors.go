package console

// Color is a 24-bit XRGB value (top byte unused), spec §6's named color
// constants exposed to programs via kapi.
type Color uint32

const (
	Black   Color = 0x000000
	White   Color = 0xFFFFFF
	Red     Color = 0xFF0000
	Green   Color = 0x00FF00
	Blue    Color = 0x0000FF
	Cyan    Color = 0x00FFFF
	Magenta Color = 0xFF00FF
	Yellow  Color = 0xFFFF00
	Amber   Color = 0xFFB000
)
