package pizero2w

import "fmt"

const sectorSize = 512

// BlockDevice drives the EMMC (SD card) controller. As with hal/qemuvirt,
// the backing store here is the mapped window itself rather than a real
// SD card's DMA target, addressed by LBA the same way the EMMC
// command/argument registers would be.
type BlockDevice struct {
	win *mmioWindow
}

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
		return fmt.Errorf("pizero2w: read past end of card (lba=%d count=%d)", lba, count)
	}
	copy(buf, b.win.mem[off:off+n])
	return nil
}

func (b *BlockDevice) WriteSectors(lba uint64, count int, buf []byte) error {
	off := int(lba) * sectorSize
	n := count * sectorSize
	if off+n > len(b.win.mem) {
		return fmt.Errorf("pizero2w: write past end of card (lba=%d count=%d)", lba, count)
	}
	copy(b.win.mem[off:off+n], buf[:n])
	return nil
}

func (b *BlockDevice) Close() error { return b.win.close() }
