package fat32

import (
	"strings"

	"github.com/vibeos/core/kstring"
)

// rawSlot is one 32-byte directory entry slot together with its location,
// so callers can write the slot back in place (rename, delete, update
// size/cluster after write_file).
type rawSlot struct {
	cluster uint32 // directory cluster this slot lives in
	index   int    // slot index within that cluster's entries
	data    [dirEntrySize]byte
}

func (s *rawSlot) firstByte() byte  { return s.data[0] }
func (s *rawSlot) attr() byte       { return s.data[11] }
func (s *rawSlot) clusterHi() uint16 { return read16(s.data[20:22]) }
func (s *rawSlot) clusterLo() uint16 { return read16(s.data[26:28]) }
func (s *rawSlot) size() uint32     { return read32(s.data[28:32]) }
func (s *rawSlot) firstCluster() uint32 {
	return uint32(s.clusterHi())<<16 | uint32(s.clusterLo())
}

func (s *rawSlot) setFirstCluster(c uint32) {
	write16(s.data[20:22], uint16(c>>16))
	write16(s.data[26:28], uint16(c&0xFFFF))
}

func (s *rawSlot) setSize(sz uint32) {
	write32(s.data[28:32], sz)
}

// shortNameToDisplay renders the 11-byte 8.3 field to a conventional
// "NAME.EXT" form, lowercased for display, matching fat_name_to_str.
func shortNameToDisplay(raw [11]byte) string {
	var b strings.Builder
	for i := 0; i < 8 && raw[i] != ' '; i++ {
		b.WriteByte(raw[i])
	}
	if raw[8] != ' ' {
		b.WriteByte('.')
		for i := 8; i < 11 && raw[i] != ' '; i++ {
			b.WriteByte(raw[i])
		}
	}
	return kstring.ToLowerASCII(b.String())
}

// displayToShortName renders a display name into an 11-byte 8.3 field,
// best-effort (truncates, uppercases, pads with spaces). Names that don't
// fit 8.3 shape are truncated; callers needing LFN round-trip rely on the
// paired LFN fragments, not this field, for the full name.
func displayToShortName(name string) [11]byte {
	var out [11]byte
	for i := range out {
		out[i] = ' '
	}
	upper := kstring.ToUpperASCII(name)
	base, ext, hasExt := upper, "", false
	if idx := strings.LastIndexByte(upper, '.'); idx >= 0 {
		base, ext, hasExt = upper[:idx], upper[idx+1:], true
	}
	for i := 0; i < len(base) && i < 8; i++ {
		out[i] = sanitizeShortChar(base[i])
	}
	if hasExt {
		for i := 0; i < len(ext) && i < 3; i++ {
			out[8+i] = sanitizeShortChar(ext[i])
		}
	}
	return out
}

func sanitizeShortChar(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 32
	}
	return c
}

// lfnFragment decodes the 13 UTF-16 code units (low byte only) carried in
// one LFN slot, per spec §3/§4.4. Decoding stops at a 0x0000 or 0xFFFF
// terminator.
func lfnFragment(e [dirEntrySize]byte) (chars []byte, terminated bool) {
	read := func(lo, hi int) (uint16, bool) {
		c := read16(e[lo:hi])
		if c == 0x0000 || c == 0xFFFF {
			return 0, true
		}
		return c, false
	}
	add := func(lo, hi int) bool {
		c, term := read(lo, hi)
		if term {
			return true
		}
		chars = append(chars, byte(c))
		return false
	}
	positions := [][2]int{
		{1, 3}, {3, 5}, {5, 7}, {7, 9}, {9, 11}, // name1: 5 units
		{14, 16}, {16, 18}, {18, 20}, {20, 22}, {22, 24}, {24, 26}, // name2: 6 units
		{28, 30}, {30, 32}, // name3: 2 units
	}
	for _, p := range positions {
		if add(p[0], p[1]) {
			return chars, true
		}
	}
	return chars, false
}

// lfnOrder returns the 1-based sequence number and whether this is the last
// (highest-ordered) fragment in the assembly.
func lfnOrder(firstByte byte) (seq int, last bool) {
	return int(firstByte & 0x1F), firstByte&0x40 != 0
}

// encodeLFNFragments splits name into the 13-char LFN fragments needed to
// store it, returning them in name order (element 0 holds the first 13
// characters, i.e. sequence number 1). The caller writes them to disk in
// reverse, so the "last" fragment with the 0x40 bit set comes first in the
// directory, and computes the checksum against the paired short name.
func encodeLFNFragments(name string) [][13]uint16 {
	units := make([]uint16, 0, len(name)+1)
	for i := 0; i < len(name); i++ {
		units = append(units, uint16(name[i]))
	}
	units = append(units, 0x0000)
	var frags [][13]uint16
	for i := 0; i < len(units); i += 13 {
		var f [13]uint16
		for j := 0; j < 13; j++ {
			if i+j < len(units) {
				f[j] = units[i+j]
			} else {
				f[j] = 0xFFFF
			}
		}
		frags = append(frags, f)
	}
	return frags
}

func shortNameChecksum(raw [11]byte) byte {
	var sum byte
	for _, c := range raw {
		sum = (sum>>1 | sum<<7) + c
	}
	return sum
}

func fillLFNSlot(data *[dirEntrySize]byte, seq int, last bool, chars [13]uint16, checksum byte) {
	order := byte(seq)
	if last {
		order |= 0x40
	}
	data[0] = order
	data[11] = AttrLFN
	data[12] = 0
	data[13] = checksum
	write16(data[1:3], chars[0])
	write16(data[3:5], chars[1])
	write16(data[5:7], chars[2])
	write16(data[7:9], chars[3])
	write16(data[9:11], chars[4])
	write16(data[14:16], chars[5])
	write16(data[16:18], chars[6])
	write16(data[18:20], chars[7])
	write16(data[20:22], chars[8])
	write16(data[22:24], chars[9])
	write16(data[24:26], chars[10])
	write16(data[26:28], 0)
	write16(data[28:30], chars[11])
	write16(data[30:32], chars[12])
}
