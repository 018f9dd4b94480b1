// Package fat32 implements a read-write, long-filename-aware FAT32 driver
// mounted over the block HAL (spec §4.4). Multi-byte on-disk fields are
// assembled byte-by-byte rather than cast through a packed struct, per
// spec §9's "misaligned loads on wire formats" note.
package fat32

import (
	"fmt"

	"github.com/vibeos/core/hal"
	"github.com/vibeos/core/kerr"
)

const (
	sectorSize = 512
	dirEntrySize = 32

	// FAT entry reserved values (spec §3).
	fatFree       = 0x00000000
	fatEOC        = 0x0FFFFFF8
	fatEntryMask  = 0x0FFFFFFF
)

// bpb holds the BIOS Parameter Block fields the driver needs, parsed with
// explicit little-endian byte assembly to avoid misaligned loads.
type bpb struct {
	bytesPerSector    uint16
	sectorsPerCluster uint8
	reservedSectors   uint16
	numFATs           uint8
	rootEntryCount    uint16
	fatSize16         uint16
	fatSize32         uint32
	rootCluster       uint32
	totalSectors32    uint32
}

func read16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func read32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func write16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func write32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func parseBPB(sector []byte) (*bpb, error) {
	if len(sector) < sectorSize {
		return nil, fmt.Errorf("fat32: short boot sector: %w", kerr.ErrInvalid)
	}
	b := &bpb{
		bytesPerSector:    read16(sector[11:13]),
		sectorsPerCluster: sector[13],
		reservedSectors:   read16(sector[14:16]),
		numFATs:           sector[16],
		rootEntryCount:    read16(sector[17:19]),
		fatSize16:         read16(sector[22:24]),
		totalSectors32:    read32(sector[32:36]),
		fatSize32:         read32(sector[36:40]),
		rootCluster:       read32(sector[44:48]),
	}
	if b.bytesPerSector != sectorSize {
		return nil, kerr.Tagf("FAT32", kerr.ErrInvalid, "unsupported sector size %d", b.bytesPerSector)
	}
	if b.fatSize16 != 0 || b.rootEntryCount != 0 {
		return nil, kerr.Tagf("FAT32", kerr.ErrInvalid, "not a FAT32 volume (FAT12/16 BPB)")
	}
	if b.fatSize32 == 0 {
		return nil, kerr.Tagf("FAT32", kerr.ErrInvalid, "zero FAT32 size")
	}
	return b, nil
}

// readSector0 reads the boot sector via dev.
func readSector0(dev hal.BlockDevice) ([]byte, error) {
	buf := make([]byte, sectorSize)
	if err := dev.ReadSectors(0, 1, buf); err != nil {
		return nil, kerr.Tagf("FAT32", kerr.ErrIO, "read boot sector: %v", err)
	}
	return buf, nil
}
