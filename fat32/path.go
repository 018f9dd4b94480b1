package fat32

import (
	"strings"

	"github.com/vibeos/core/kerr"
	"github.com/vibeos/core/kstring"
)

// Entry describes a resolved directory entry: a file or directory.
type Entry struct {
	Name         string // long name if LFN present, else lowercased 8.3
	ShortName    [11]byte
	Attr         byte
	FirstCluster uint32
	Size         uint32

	// location of the 32-byte slot holding this entry, for in-place
	// rewrite by write_file/delete/rename.
	slotCluster uint32
	slotIndex   int
	isRoot      bool
}

func (e *Entry) IsDirectory() bool { return e.Attr&AttrDirectory != 0 }

// rootEntry synthesizes the directory entry for "/" itself.
func (fs *FS) rootEntry() *Entry {
	return &Entry{
		Name:         "/",
		Attr:         AttrDirectory,
		FirstCluster: fs.rootCluster,
		isRoot:       true,
	}
}

// dirSlotIterator walks every 32-byte slot across a directory's cluster
// chain, calling fn for each. fn returns stop=true to end iteration early.
// Iteration also ends at a first-byte-0x00 terminator (spec §4.4) or after
// exhausting the chain.
func (fs *FS) dirSlotIterator(startCluster uint32, fn func(slot *rawSlot) (stop bool, err error)) error {
	cluster := startCluster
	for cluster != 0 && !isEOC(cluster) {
		if err := fs.readCluster(cluster, fs.clusterBuf); err != nil {
			return err
		}
		entriesPerCluster := len(fs.clusterBuf) / dirEntrySize
		for i := 0; i < entriesPerCluster; i++ {
			var slot rawSlot
			slot.cluster = cluster
			slot.index = i
			copy(slot.data[:], fs.clusterBuf[i*dirEntrySize:(i+1)*dirEntrySize])
			if slot.firstByte() == 0x00 {
				return nil
			}
			stop, err := fn(&slot)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
		next, err := fs.fatNext(cluster)
		if err != nil {
			return err
		}
		cluster = next
	}
	return nil
}

// findInDirectory searches dirCluster for a component, matching the LFN
// name if the slot was preceded by LFN fragments, else the 8.3 display
// name, case-insensitively (spec §4.4).
func (fs *FS) findInDirectory(dirCluster uint32, component string) (*Entry, error) {
	var lfnChars []byte
	hasLFN := false
	var found *Entry

	err := fs.dirSlotIterator(dirCluster, func(slot *rawSlot) (bool, error) {
		if slot.firstByte() == 0xE5 {
			hasLFN = false
			lfnChars = nil
			return false, nil
		}
		if slot.attr() == AttrLFN {
			_, last := lfnOrder(slot.firstByte())
			if last {
				hasLFN = true
				lfnChars = nil
			}
			chars, _ := lfnFragment(slot.data)
			lfnChars = append(chars, lfnChars...)
			return false, nil
		}
		if slot.attr()&AttrVolumeID != 0 {
			hasLFN = false
			lfnChars = nil
			return false, nil
		}

		var name string
		if hasLFN {
			name = string(lfnChars)
		} else {
			name = shortNameToDisplay(slot.data[0:11])
		}
		hasLFN = false
		lfnChars = nil

		if kstring.EqualFoldASCII(name, component) {
			found = &Entry{
				Name:         name,
				Attr:         slot.attr(),
				FirstCluster: slot.firstCluster(),
				Size:         slot.size(),
				slotCluster:  slot.cluster,
				slotIndex:    slot.index,
			}
			copy(found.ShortName[:], slot.data[0:11])
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, kerr.Tagf("FAT32", kerr.ErrNotFound, "%q not found", component)
	}
	return found, nil
}

// Resolve walks path from the root, returning the resolved Entry. An
// empty or "/"-only path returns the synthetic root directory entry.
func (fs *FS) Resolve(path string) (*Entry, error) {
	comps := splitPath(path)
	if len(comps) == 0 {
		return fs.rootEntry(), nil
	}

	current := fs.rootCluster
	var entry *Entry
	for i, c := range comps {
		e, err := fs.findInDirectory(current, c)
		if err != nil {
			return nil, err
		}
		entry = e
		current = e.FirstCluster
		if i < len(comps)-1 && !e.IsDirectory() {
			return nil, kerr.Tagf("FAT32", kerr.ErrNotADir, "%q is not a directory", c)
		}
	}
	return entry, nil
}

// resolveParent resolves the parent directory of path and returns its
// cluster plus the final path component.
func (fs *FS) resolveParent(path string) (parentCluster uint32, name string, err error) {
	comps := splitPath(path)
	if len(comps) == 0 {
		return 0, "", kerr.Tagf("FAT32", kerr.ErrInvalid, "empty path")
	}
	name = comps[len(comps)-1]
	parentCluster = fs.rootCluster
	for _, c := range comps[:len(comps)-1] {
		e, err := fs.findInDirectory(parentCluster, c)
		if err != nil {
			return 0, "", err
		}
		if !e.IsDirectory() {
			return 0, "", kerr.Tagf("FAT32", kerr.ErrNotADir, "%q is not a directory", c)
		}
		parentCluster = e.FirstCluster
	}
	return parentCluster, name, nil
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// List returns the entries of the directory at path (not including "."
// and "..").
func (fs *FS) List(path string) ([]Entry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	e, err := fs.Resolve(path)
	if err != nil {
		return nil, err
	}
	if !e.IsDirectory() {
		return nil, kerr.Tagf("FAT32", kerr.ErrNotADir, "%q is not a directory", path)
	}

	var out []Entry
	var lfnChars []byte
	hasLFN := false
	err = fs.dirSlotIterator(e.FirstCluster, func(slot *rawSlot) (bool, error) {
		if slot.firstByte() == 0xE5 {
			hasLFN = false
			lfnChars = nil
			return false, nil
		}
		if slot.attr() == AttrLFN {
			_, last := lfnOrder(slot.firstByte())
			if last {
				hasLFN = true
				lfnChars = nil
			}
			chars, _ := lfnFragment(slot.data)
			lfnChars = append(chars, lfnChars...)
			return false, nil
		}
		if slot.attr()&AttrVolumeID != 0 {
			hasLFN = false
			lfnChars = nil
			return false, nil
		}
		var name string
		if hasLFN {
			name = string(lfnChars)
		} else {
			name = shortNameToDisplay(slot.data[0:11])
		}
		hasLFN = false
		lfnChars = nil

		if name == "." || name == ".." {
			return false, nil
		}

		ent := Entry{
			Name:         name,
			Attr:         slot.attr(),
			FirstCluster: slot.firstCluster(),
			Size:         slot.size(),
			slotCluster:  slot.cluster,
			slotIndex:    slot.index,
		}
		copy(ent.ShortName[:], slot.data[0:11])
		out = append(out, ent)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
