package fat32

import (
	"sync"

	"github.com/vibeos/core/hal"
	"github.com/vibeos/core/kerr"
)

// Attribute bits for the directory-entry attribute byte.
const (
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolumeID  = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20
	AttrLFN       = 0x0F // AttrReadOnly|AttrHidden|AttrSystem|AttrVolumeID
)

// FS is a mounted FAT32 volume. It owns a single reusable sector and
// cluster scratch buffer; under the cooperative scheduling model (spec §5)
// that is safe without locking, but FS additionally serializes access with
// a mutex so the hosted/test build, which may poll devices on a separate
// goroutine, never tears a multi-sector operation.
type FS struct {
	dev hal.BlockDevice

	bytesPerSector    int
	sectorsPerCluster int
	reservedSectors   int
	numFATs           int
	fatSize           uint32 // sectors
	rootCluster       uint32
	dataStart         uint32
	totalClusters     uint32

	clusterBuf []byte
	sectorBuf  []byte

	mu          sync.Mutex
	initialized bool
}

// Mount reads sector 0, parses the BPB, rejects non-FAT32 volumes, and
// computes the data region layout (spec §4.4).
func Mount(dev hal.BlockDevice) (*FS, error) {
	sector, err := readSector0(dev)
	if err != nil {
		return nil, err
	}
	b, err := parseBPB(sector)
	if err != nil {
		return nil, err
	}

	dataStart := uint32(b.reservedSectors) + uint32(b.numFATs)*b.fatSize32
	dataSectors := b.totalSectors32 - dataStart
	totalClusters := dataSectors / uint32(b.sectorsPerCluster)

	fs := &FS{
		dev:               dev,
		bytesPerSector:    int(b.bytesPerSector),
		sectorsPerCluster: int(b.sectorsPerCluster),
		reservedSectors:   int(b.reservedSectors),
		numFATs:           int(b.numFATs),
		fatSize:           b.fatSize32,
		rootCluster:       b.rootCluster,
		dataStart:         dataStart,
		totalClusters:     totalClusters,
		clusterBuf:        make([]byte, int(b.sectorsPerCluster)*int(b.bytesPerSector)),
		sectorBuf:         make([]byte, sectorSize),
		initialized:       true,
	}
	return fs, nil
}

// clusterBytes returns the size in bytes of one cluster.
func (fs *FS) clusterBytes() int {
	return fs.sectorsPerCluster * fs.bytesPerSector
}

// clusterToSector maps a cluster number to its first LBA.
func (fs *FS) clusterToSector(c uint32) uint64 {
	return uint64(fs.dataStart) + uint64(c-2)*uint64(fs.sectorsPerCluster)
}

func (fs *FS) readSector(lba uint64, buf []byte) error {
	if err := fs.dev.ReadSectors(lba, 1, buf); err != nil {
		return kerr.Tagf("FAT32", kerr.ErrIO, "read sector %d: %v", lba, err)
	}
	return nil
}

func (fs *FS) writeSector(lba uint64, buf []byte) error {
	if err := fs.dev.WriteSectors(lba, 1, buf); err != nil {
		return kerr.Tagf("FAT32", kerr.ErrIO, "write sector %d: %v", lba, err)
	}
	return nil
}

func (fs *FS) readCluster(c uint32, buf []byte) error {
	sec := fs.clusterToSector(c)
	if err := fs.dev.ReadSectors(sec, fs.sectorsPerCluster, buf); err != nil {
		return kerr.Tagf("FAT32", kerr.ErrIO, "read cluster %d: %v", c, err)
	}
	return nil
}

func (fs *FS) writeCluster(c uint32, buf []byte) error {
	sec := fs.clusterToSector(c)
	if err := fs.dev.WriteSectors(sec, fs.sectorsPerCluster, buf); err != nil {
		return kerr.Tagf("FAT32", kerr.ErrIO, "write cluster %d: %v", c, err)
	}
	return nil
}

func (fs *FS) zeroCluster(c uint32) error {
	for i := range fs.clusterBuf {
		fs.clusterBuf[i] = 0
	}
	return fs.writeCluster(c, fs.clusterBuf)
}

// FreeClusters returns the number of free clusters in the FAT, used by
// tests asserting that delete() returns space (spec §8).
func (fs *FS) FreeClusters() (uint32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var n uint32
	for c := uint32(2); c < fs.totalClusters+2; c++ {
		v, err := fs.fatNext(c)
		if err != nil {
			return 0, err
		}
		if v == fatFree {
			n++
		}
	}
	return n, nil
}
