package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"

	"github.com/vibeos/core/hal"
)

// formatFAT32 writes a minimal valid FAT32 boot sector and two empty FATs
// to dev, so fat32.Mount has something to find. A real board ships an
// already-formatted disk image; this dev harness's disk collaborators
// start out as blank mmap'd memory, so vibekernel formats one itself on
// every run. bar reports sector-write progress the same way the teacher's
// OCI client reports byte-download progress.
func formatFAT32(dev hal.BlockDevice, totalSectors int, bar *progressbar.ProgressBar) error {
	const (
		reservedSectors = 32
		fatCount        = 2
	)
	dataSectors := totalSectors - reservedSectors
	fatSectors := (dataSectors/128 + 1)
	dataSectors = totalSectors - reservedSectors - fatCount*fatSectors
	if dataSectors <= 0 {
		return fmt.Errorf("vibekernel: disk too small to format (%d sectors)", totalSectors)
	}

	boot := make([]byte, 512)
	put16 := func(off int, v uint16) { boot[off], boot[off+1] = byte(v), byte(v>>8) }
	put32 := func(off int, v uint32) {
		boot[off] = byte(v)
		boot[off+1] = byte(v >> 8)
		boot[off+2] = byte(v >> 16)
		boot[off+3] = byte(v >> 24)
	}
	put16(11, 512) // bytes per sector
	boot[13] = 1   // sectors per cluster
	put16(14, reservedSectors)
	boot[16] = fatCount
	put16(17, 0) // root entry count (FAT32: 0)
	put16(22, 0) // FAT16 size field unused
	put32(32, uint32(totalSectors))
	put32(36, uint32(fatSectors))
	put32(44, 2) // root directory cluster
	if err := dev.WriteSectors(0, 1, boot); err != nil {
		return err
	}
	bar.Add(1)

	fatSector := make([]byte, 512)
	put32entry := func(b []byte, idx int, v uint32) {
		b[idx*4] = byte(v)
		b[idx*4+1] = byte(v >> 8)
		b[idx*4+2] = byte(v >> 16)
		b[idx*4+3] = byte(v >> 24)
	}
	put32entry(fatSector, 2, 0x0FFFFFFF) // root directory's cluster chain ends here
	for fat := 0; fat < fatCount; fat++ {
		if err := dev.WriteSectors(uint64(reservedSectors+fat*fatSectors), 1, fatSector); err != nil {
			return err
		}
		bar.Add(1)
	}

	zero := make([]byte, 512)
	dataStart := uint64(reservedSectors + fatCount*fatSectors)
	for i := 0; i < dataSectors; i++ {
		if err := dev.WriteSectors(dataStart+uint64(i), 1, zero); err != nil {
			return err
		}
		bar.Add(1)
	}
	bar.Finish()
	return nil
}
