package fat32

import (
	"github.com/vibeos/core/kerr"
	"github.com/vibeos/core/kstring"
)

// writeSlot rewrites the 32-byte slot at (cluster, index) in place.
func (fs *FS) writeSlot(cluster uint32, index int, data [dirEntrySize]byte) error {
	if err := fs.readCluster(cluster, fs.clusterBuf); err != nil {
		return err
	}
	copy(fs.clusterBuf[index*dirEntrySize:(index+1)*dirEntrySize], data[:])
	return fs.writeCluster(cluster, fs.clusterBuf)
}

// ReadFile resolves path, rejects directories, and copies
// min(len(buf), file size) bytes from the cluster chain, returning the
// number of bytes copied (spec §4.4).
func (fs *FS) ReadFile(path string, buf []byte) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	e, err := fs.Resolve(path)
	if err != nil {
		return 0, err
	}
	if e.IsDirectory() {
		return 0, kerr.Tagf("FAT32", kerr.ErrIsADir, "%q is a directory", path)
	}

	size := int(e.Size)
	if len(buf) < size {
		size = len(buf)
	}

	cluster := e.FirstCluster
	read := 0
	clusterBytes := fs.clusterBytes()
	for cluster != 0 && !isEOC(cluster) && read < size {
		if err := fs.readCluster(cluster, fs.clusterBuf); err != nil {
			return read, err
		}
		toCopy := clusterBytes
		if read+toCopy > size {
			toCopy = size - read
		}
		copy(buf[read:read+toCopy], fs.clusterBuf[:toCopy])
		read += toCopy

		next, err := fs.fatNext(cluster)
		if err != nil {
			return read, err
		}
		cluster = next
	}
	return read, nil
}

// FileSize returns the size recorded in path's directory entry.
func (fs *FS) FileSize(path string) (uint32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	e, err := fs.Resolve(path)
	if err != nil {
		return 0, err
	}
	if e.IsDirectory() {
		return 0, kerr.Tagf("FAT32", kerr.ErrIsADir, "%q is a directory", path)
	}
	return e.Size, nil
}

// IsDirectory reports whether path resolves to a directory.
func (fs *FS) IsDirectory(path string) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	e, err := fs.Resolve(path)
	if err != nil {
		return false, err
	}
	return e.IsDirectory(), nil
}

// CreateFile creates an empty file entry at path (no cluster allocated).
func (fs *FS) CreateFile(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, err := fs.createEntry(path, AttrArchive, 0, 0)
	return err
}

// WriteFile writes data to path, creating the entry if absent (spec §4.4).
// It allocates a fresh chain sized to hold data, writes it cluster by
// cluster (zeroing the final cluster's slack), updates the directory
// entry's first-cluster and size fields, and frees the file's previous
// chain last so a crash mid-write never leaves the entry pointing at
// nothing (it still points at either the old or the new chain at every
// step).
func (fs *FS) WriteFile(path string, data []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	existing, _ := fs.Resolve(path)
	if existing != nil && existing.IsDirectory() {
		return kerr.Tagf("FAT32", kerr.ErrIsADir, "%q is a directory", path)
	}

	clusterBytes := fs.clusterBytes()
	nClusters := 0
	if len(data) > 0 {
		nClusters = (len(data) + clusterBytes - 1) / clusterBytes
	}

	var firstCluster uint32
	if nClusters > 0 {
		c, err := fs.allocateChain(nClusters)
		if err != nil {
			return err
		}
		firstCluster = c

		cluster := firstCluster
		written := 0
		for cluster != 0 && !isEOC(cluster) {
			for i := range fs.clusterBuf {
				fs.clusterBuf[i] = 0
			}
			n := clusterBytes
			if written+n > len(data) {
				n = len(data) - written
			}
			copy(fs.clusterBuf[:n], data[written:written+n])
			if err := fs.writeCluster(cluster, fs.clusterBuf); err != nil {
				return err
			}
			written += n
			next, err := fs.fatNext(cluster)
			if err != nil {
				return err
			}
			cluster = next
		}
	}

	var oldChain uint32
	if existing != nil {
		oldChain = existing.FirstCluster
		var slot [dirEntrySize]byte
		// Re-read full slot to preserve attr byte verbatim.
		if err := fs.readCluster(existing.slotCluster, fs.clusterBuf); err != nil {
			return err
		}
		copy(slot[:], fs.clusterBuf[existing.slotIndex*dirEntrySize:(existing.slotIndex+1)*dirEntrySize])
		write16(slot[20:22], uint16(firstCluster>>16))
		write16(slot[26:28], uint16(firstCluster&0xFFFF))
		write32(slot[28:32], uint32(len(data)))
		if err := fs.writeSlot(existing.slotCluster, existing.slotIndex, slot); err != nil {
			return err
		}
	} else {
		e, err := fs.createEntry(path, AttrArchive, firstCluster, uint32(len(data)))
		if err != nil {
			return err
		}
		_ = e
	}

	if oldChain >= 2 {
		if err := fs.freeChain(oldChain); err != nil {
			return err
		}
	}
	return nil
}

// Delete frees path's chain and marks its entry deleted (0xE5). It refuses
// to delete directories (spec §4.4: recursive deletion is a higher-layer
// concern).
func (fs *FS) Delete(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	e, err := fs.Resolve(path)
	if err != nil {
		return err
	}
	if e.IsDirectory() {
		return kerr.Tagf("FAT32", kerr.ErrIsADir, "refusing to delete directory %q", path)
	}
	if e.FirstCluster >= 2 {
		if err := fs.freeChain(e.FirstCluster); err != nil {
			return err
		}
	}
	return fs.markDeletedWithLFN(e)
}

// markDeletedWithLFN marks e's short-name slot (and any immediately
// preceding LFN fragment slots belonging to it) with the 0xE5 tombstone.
func (fs *FS) markDeletedWithLFN(e *Entry) error {
	if err := fs.readCluster(e.slotCluster, fs.clusterBuf); err != nil {
		return err
	}
	fs.clusterBuf[e.slotIndex*dirEntrySize] = 0xE5
	if err := fs.writeCluster(e.slotCluster, fs.clusterBuf); err != nil {
		return err
	}

	// Walk backwards over LFN fragments immediately preceding this slot in
	// the same cluster and tombstone them too.
	idx := e.slotIndex - 1
	for idx >= 0 {
		off := idx * dirEntrySize
		attr := fs.clusterBuf[off+11]
		if attr != AttrLFN {
			break
		}
		fs.clusterBuf[off] = 0xE5
		idx--
	}
	return fs.writeCluster(e.slotCluster, fs.clusterBuf)
}

// Rename rewrites the 8.3 field of path's existing slot to newShortName
// (spec §4.4).
func (fs *FS) Rename(path, newShortName string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	e, err := fs.Resolve(path)
	if err != nil {
		return err
	}
	if err := fs.readCluster(e.slotCluster, fs.clusterBuf); err != nil {
		return err
	}
	off := e.slotIndex * dirEntrySize
	newName := displayToShortName(newShortName)
	copy(fs.clusterBuf[off:off+11], newName[:])
	return fs.writeCluster(e.slotCluster, fs.clusterBuf)
}

// MakeDirectory allocates one cluster, initializes it with "." and ".."
// entries, then adds a directory entry in the parent (spec §4.4).
func (fs *FS) MakeDirectory(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parentCluster, name, err := fs.resolveParent(path)
	if err != nil {
		return err
	}

	c, err := fs.allocateCluster()
	if err != nil {
		return err
	}
	for i := range fs.clusterBuf {
		fs.clusterBuf[i] = 0
	}
	writeDirSlot(fs.clusterBuf[0:dirEntrySize], ".", c, AttrDirectory)
	writeDirSlot(fs.clusterBuf[dirEntrySize:2*dirEntrySize], "..", parentCluster, AttrDirectory)
	if err := fs.writeCluster(c, fs.clusterBuf); err != nil {
		return err
	}

	return fs.insertEntry(parentCluster, name, AttrDirectory, c, 0)
}

// writeDirSlot fills a raw 32-byte slot for an 8.3-only entry (used for
// "." and "..", which never carry LFN fragments).
func writeDirSlot(dst []byte, shortName string, cluster uint32, attr byte) {
	name := displayToShortName(shortName)
	if shortName == "." {
		name = [11]byte{'.', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}
	} else if shortName == ".." {
		name = [11]byte{'.', '.', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}
	}
	copy(dst[0:11], name[:])
	dst[11] = attr
	write16(dst[20:22], uint16(cluster>>16))
	write16(dst[26:28], uint16(cluster&0xFFFF))
	write32(dst[28:32], 0)
}

// createEntry inserts a new short+LFN entry pair in path's parent
// directory.
func (fs *FS) createEntry(path string, attr byte, firstCluster, size uint32) (*Entry, error) {
	parentCluster, name, err := fs.resolveParent(path)
	if err != nil {
		return nil, err
	}
	if err := fs.insertEntry(parentCluster, name, attr, firstCluster, size); err != nil {
		return nil, err
	}
	return fs.findInDirectory(parentCluster, name)
}

// insertEntry writes name's LFN fragments (if it doesn't fit 8.3) followed
// by its short-name slot into the first run of free/deleted slots in
// dirCluster's chain large enough to hold them. The run may straddle a
// cluster boundary: a long name's fragments routinely outgrow one
// cluster's worth of slots, so the scan tracks run length across clusters
// and the chain is extended by zeroed clusters until enough contiguous
// room exists.
func (fs *FS) insertEntry(dirCluster uint32, name string, attr byte, firstCluster, size uint32) error {
	short := displayToShortName(name)
	needsLFN := kstring.ToUpperASCII(shortNameToDisplay(short)) != kstring.ToUpperASCII(name)
	var frags [][13]uint16
	if needsLFN {
		frags = encodeLFNFragments(name)
	}
	needed := len(frags) + 1
	slotsPerCluster := fs.clusterBytes() / dirEntrySize

	clusters, err := fs.chainClusters(dirCluster)
	if err != nil {
		return err
	}

	runStart, runLen := -1, 0
	globalIdx := 0
	for _, c := range clusters {
		if err := fs.readCluster(c, fs.clusterBuf); err != nil {
			return err
		}
		for i := 0; i < slotsPerCluster; i++ {
			fb := fs.clusterBuf[i*dirEntrySize]
			if fb == 0x00 || fb == 0xE5 {
				if runLen == 0 {
					runStart = globalIdx
				}
				runLen++
			} else {
				runLen, runStart = 0, -1
			}
			globalIdx++
			if runLen >= needed {
				return fs.writeEntrySlotsSpanning(clusters, slotsPerCluster, runStart, frags, short, attr, firstCluster, size)
			}
		}
	}

	// No contiguous run anywhere in the existing chain: extend by one
	// zeroed cluster (which is all-free, so the tail of any in-progress
	// run now continues into it) and retry.
	last := clusters[len(clusters)-1]
	if _, err := fs.extendChain(last); err != nil {
		return err
	}
	return fs.insertEntry(dirCluster, name, attr, firstCluster, size)
}

// chainClusters returns the ordered list of clusters in the chain starting
// at head.
func (fs *FS) chainClusters(head uint32) ([]uint32, error) {
	var out []uint32
	c := head
	for {
		out = append(out, c)
		next, err := fs.fatNext(c)
		if err != nil {
			return nil, err
		}
		if isEOC(next) {
			return out, nil
		}
		c = next
	}
}

// writeEntrySlotsSpanning writes frags (in last-fragment-first on-disk
// order) followed by the short-name slot, starting at the global slot
// index startGlobal within the clusters sequence (slotsPerCluster slots
// per cluster), crossing cluster boundaries as needed.
func (fs *FS) writeEntrySlotsSpanning(clusters []uint32, slotsPerCluster, startGlobal int, frags [][13]uint16, short [11]byte, attr byte, firstCluster, size uint32) error {
	checksum := shortNameChecksum(short)

	var slots [][dirEntrySize]byte
	for i := len(frags) - 1; i >= 0; i-- {
		seq := i + 1
		last := i == len(frags)-1
		var slotData [dirEntrySize]byte
		fillLFNSlot(&slotData, seq, last, frags[i], checksum)
		slots = append(slots, slotData)
	}
	var shortSlot [dirEntrySize]byte
	copy(shortSlot[0:11], short[:])
	shortSlot[11] = attr
	write16(shortSlot[20:22], uint16(firstCluster>>16))
	write16(shortSlot[26:28], uint16(firstCluster&0xFFFF))
	write32(shortSlot[28:32], size)
	slots = append(slots, shortSlot)

	idx := startGlobal
	for _, s := range slots {
		clusterNo := idx / slotsPerCluster
		offset := idx % slotsPerCluster
		if clusterNo >= len(clusters) {
			return kerr.Tagf("FAT32", kerr.ErrOutOfSpace, "directory entry run overruns chain")
		}
		c := clusters[clusterNo]
		if err := fs.readCluster(c, fs.clusterBuf); err != nil {
			return err
		}
		copy(fs.clusterBuf[offset*dirEntrySize:(offset+1)*dirEntrySize], s[:])
		if err := fs.writeCluster(c, fs.clusterBuf); err != nil {
			return err
		}
		idx++
	}
	return nil
}
