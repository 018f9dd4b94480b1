package qemuvirt

import "fmt"

// sectorSize is virtio-blk's fixed logical block size for this board.
const sectorSize = 512

// BlockDevice drives a virtio-blk device. The actual virtqueue descriptor
// ring lives in guest RAM on a real boot; here the "disk" backing store is
// the mmap'd window itself, addressed by LBA*sectorSize the same way a
// virtio-blk request's sector field would be.
type BlockDevice struct {
	win *mmioWindow
}

// NewBlockDevice maps a disk image of sectorCount sectors.
func NewBlockDevice(sectorCount int) (*BlockDevice, error) {
	win, err := newMMIOWindow(sectorCount * sectorSize)
	if err != nil {
		return nil, err
	}
	return &BlockDevice{win: win}, nil
}

func (b *BlockDevice) Init() error { return nil }

func (b *BlockDevice) ReadSectors(lba uint64, count int, buf []byte) error {
	off := int(lba) * sectorSize
	n := count * sectorSize
	if off+n > len(b.win.mem) {
		return fmt.Errorf("qemuvirt: read past end of disk (lba=%d count=%d)", lba, count)
	}
	copy(buf, b.win.mem[off:off+n])
	return nil
}

func (b *BlockDevice) WriteSectors(lba uint64, count int, buf []byte) error {
	off := int(lba) * sectorSize
	n := count * sectorSize
	if off+n > len(b.win.mem) {
		return fmt.Errorf("qemuvirt: write past end of disk (lba=%d count=%d)", lba, count)
	}
	copy(b.win.mem[off:off+n], buf[:n])
	return nil
}

// Close releases the mapped disk window.
func (b *BlockDevice) Close() error { return b.win.close() }
