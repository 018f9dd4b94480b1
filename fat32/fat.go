package fat32

import "github.com/vibeos/core/kerr"

// fatSectorFor returns the FAT sector and intra-sector byte offset holding
// cluster's 32-bit entry.
func (fs *FS) fatSectorFor(cluster uint32) (sector uint64, offset int) {
	fatOffset := cluster * 4
	sector = uint64(fs.reservedSectors) + uint64(fatOffset)/uint64(fs.bytesPerSector)
	offset = int(fatOffset) % fs.bytesPerSector
	return
}

// fatNext reads the FAT entry for cluster and returns the low 28 bits.
func (fs *FS) fatNext(cluster uint32) (uint32, error) {
	sector, offset := fs.fatSectorFor(cluster)
	if err := fs.readSector(sector, fs.sectorBuf); err != nil {
		return 0, err
	}
	return read32(fs.sectorBuf[offset:offset+4]) & fatEntryMask, nil
}

// fatSet rewrites cluster's FAT entry, preserving the top 4 bits, and
// mirrors the write to every FAT copy.
func (fs *FS) fatSet(cluster uint32, value uint32) error {
	sector, offset := fs.fatSectorFor(cluster)
	if err := fs.readSector(sector, fs.sectorBuf); err != nil {
		return err
	}
	old := read32(fs.sectorBuf[offset : offset+4])
	write32(fs.sectorBuf[offset:offset+4], (old&^fatEntryMask)|(value&fatEntryMask))
	if err := fs.writeSector(sector, fs.sectorBuf); err != nil {
		return err
	}
	for copy := 1; copy < fs.numFATs; copy++ {
		mirrorSector := sector + uint64(fs.fatSize)*uint64(copy)
		if err := fs.writeSector(mirrorSector, fs.sectorBuf); err != nil {
			return err
		}
	}
	return nil
}

func isEOC(v uint32) bool { return v >= fatEOC }

// allocateCluster scans from cluster 2 upward for a free entry, claims it
// by writing EOC, and returns its index. Returns (0, ErrOutOfSpace) if none
// is free.
func (fs *FS) allocateCluster() (uint32, error) {
	for c := uint32(2); c < fs.totalClusters+2; c++ {
		v, err := fs.fatNext(c)
		if err != nil {
			return 0, err
		}
		if v == fatFree {
			if err := fs.fatSet(c, fatEOC); err != nil {
				return 0, err
			}
			return c, nil
		}
	}
	return 0, kerr.Tagf("FAT32", kerr.ErrOutOfSpace, "no free clusters")
}

// freeChain walks the chain starting at c, marking every cluster free.
func (fs *FS) freeChain(c uint32) error {
	for c >= 2 && !isEOC(c) {
		next, err := fs.fatNext(c)
		if err != nil {
			return err
		}
		if err := fs.fatSet(c, fatFree); err != nil {
			return err
		}
		c = next
	}
	return nil
}

// allocateChain allocates n clusters, links them into a chain, and returns
// the first cluster. On out-of-space partway through, clusters already
// claimed are freed before returning the error (no partial chain leaks).
func (fs *FS) allocateChain(n int) (uint32, error) {
	if n <= 0 {
		return 0, nil
	}
	clusters := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		c, err := fs.allocateCluster()
		if err != nil {
			for _, prev := range clusters {
				_ = fs.fatSet(prev, fatFree)
			}
			return 0, err
		}
		clusters = append(clusters, c)
	}
	for i := 0; i < len(clusters)-1; i++ {
		if err := fs.fatSet(clusters[i], clusters[i+1]); err != nil {
			return 0, err
		}
	}
	if err := fs.fatSet(clusters[len(clusters)-1], fatEOC); err != nil {
		return 0, err
	}
	return clusters[0], nil
}

// extendChain appends one freshly-zeroed cluster to the chain whose last
// cluster is last, returning the new cluster's index. Used to grow a
// directory when every slot in its current chain is occupied.
func (fs *FS) extendChain(last uint32) (uint32, error) {
	c, err := fs.allocateCluster()
	if err != nil {
		return 0, err
	}
	if err := fs.fatSet(last, c); err != nil {
		return 0, err
	}
	if err := fs.zeroCluster(c); err != nil {
		return 0, err
	}
	return c, nil
}
