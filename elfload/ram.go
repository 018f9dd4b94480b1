package elfload

import "fmt"

// RAM is a flat byte-slice AddressSpace, used by the hosted kernel build
// and by tests as the stand-in for bare-metal physical memory. Addresses
// are offsets from Base.
type RAM struct {
	Base uint64
	Mem  []byte
}

func NewRAM(base uint64, size int) *RAM {
	return &RAM{Base: base, Mem: make([]byte, size)}
}

func (r *RAM) offset(vaddr uint64) (int, error) {
	if vaddr < r.Base || vaddr-r.Base >= uint64(len(r.Mem)) {
		return 0, fmt.Errorf("elfload: address 0x%x out of range", vaddr)
	}
	return int(vaddr - r.Base), nil
}

func (r *RAM) WriteAt(vaddr uint64, data []byte) error {
	off, err := r.offset(vaddr)
	if err != nil {
		return err
	}
	if off+len(data) > len(r.Mem) {
		return fmt.Errorf("elfload: write at 0x%x overflows RAM", vaddr)
	}
	copy(r.Mem[off:], data)
	return nil
}

func (r *RAM) Zero(vaddr uint64, n uint64) error {
	off, err := r.offset(vaddr)
	if err != nil {
		return err
	}
	end := off + int(n)
	if end > len(r.Mem) {
		return fmt.Errorf("elfload: zero at 0x%x overflows RAM", vaddr)
	}
	for i := off; i < end; i++ {
		r.Mem[i] = 0
	}
	return nil
}

// ReadAt returns a copy of n bytes starting at vaddr, for test assertions.
func (r *RAM) ReadAt(vaddr uint64, n int) ([]byte, error) {
	off, err := r.offset(vaddr)
	if err != nil {
		return nil, err
	}
	if off+n > len(r.Mem) {
		return nil, fmt.Errorf("elfload: read at 0x%x overflows RAM", vaddr)
	}
	out := make([]byte, n)
	copy(out, r.Mem[off:off+n])
	return out, nil
}
