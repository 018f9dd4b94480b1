// Package elfload validates and lays down PT_LOAD segments of a
// little-endian AArch64 ET_EXEC image for in-kernel execution (spec §4.3).
// There is no relocation and no MMU: p_vaddr doubles as the physical
// address the segment is copied to, so the loader is a pure function of a
// memory buffer plus a target address space.
package elfload

import (
	"encoding/binary"
	"fmt"
)

// ELF64 header/program-header geometry, lifted from the fixed-offset
// layout used for AArch64 ET_EXEC images (tinyrange-cc's arm64 ELF emitter
// uses the identical constants on the write side).
const (
	HeaderSize        = 64
	ProgramHeaderSize = 56

	elfMag0 = 0x7F
	elfMag1 = 'E'
	elfMag2 = 'L'
	elfMag3 = 'F'

	eiClass = 4 // offset of EI_CLASS in e_ident
	eiData  = 5 // offset of EI_DATA in e_ident

	elfClass64    = 2
	elfData2LSB   = 1
	emAArch64     = 183
	etExec        = 2
	ptLoad        = 1
)

// ValidationCode enumerates the distinct failure reasons spec'd for
// Validate, in the same order as the original elf_validate checks.
type ValidationCode int

const (
	_ ValidationCode = iota
	ErrTooShort
	ErrBadMagic
	ErrNot64Bit
	ErrNotLittleEndian
	ErrNotAArch64
	ErrNotExec
)

func (c ValidationCode) String() string {
	switch c {
	case ErrTooShort:
		return "image shorter than ELF header"
	case ErrBadMagic:
		return "bad ELF magic"
	case ErrNot64Bit:
		return "not a 64-bit ELF"
	case ErrNotLittleEndian:
		return "not little-endian"
	case ErrNotAArch64:
		return "not an AArch64 image"
	case ErrNotExec:
		return "not an ET_EXEC image"
	}
	return "unknown ELF validation error"
}

// ValidationError reports which specific check failed, preserving the
// distinct-subcode contract of the original C loader's negative returns.
type ValidationError struct {
	Code ValidationCode
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("elfload: %s", e.Code)
}

// Header is the subset of the ELF64 file header the loader inspects.
type Header struct {
	Entry   uint64
	PhOff   uint64
	PhEntSz uint16
	PhNum   uint16
}

// Validate checks that image is a well-formed little-endian AArch64 ET_EXEC
// file, per spec §4.3 / §8. It never reads past len(image).
func Validate(image []byte) (*Header, error) {
	if len(image) < HeaderSize {
		return nil, &ValidationError{ErrTooShort}
	}
	if image[0] != elfMag0 || image[1] != elfMag1 || image[2] != elfMag2 || image[3] != elfMag3 {
		return nil, &ValidationError{ErrBadMagic}
	}
	if image[eiClass] != elfClass64 {
		return nil, &ValidationError{ErrNot64Bit}
	}
	if image[eiData] != elfData2LSB {
		return nil, &ValidationError{ErrNotLittleEndian}
	}

	e := binary.LittleEndian
	machine := e.Uint16(image[18:20])
	if machine != emAArch64 {
		return nil, &ValidationError{ErrNotAArch64}
	}
	typ := e.Uint16(image[16:18])
	if typ != etExec {
		return nil, &ValidationError{ErrNotExec}
	}

	h := &Header{
		Entry:   e.Uint64(image[24:32]),
		PhOff:   e.Uint64(image[32:40]),
		PhEntSz: e.Uint16(image[54:56]),
		PhNum:   e.Uint16(image[56:58]),
	}
	return h, nil
}

// ProgramHeader is the subset of an ELF64 program header entry needed to
// place a PT_LOAD segment.
type ProgramHeader struct {
	Type   uint32
	Offset uint64
	VAddr  uint64
	FileSz uint64
	MemSz  uint64
}

func parseProgramHeader(raw []byte) ProgramHeader {
	e := binary.LittleEndian
	return ProgramHeader{
		Type:   e.Uint32(raw[0:4]),
		Offset: e.Uint64(raw[8:16]),
		VAddr:  e.Uint64(raw[16:24]),
		FileSz: e.Uint64(raw[32:40]),
		MemSz:  e.Uint64(raw[40:48]),
	}
}

// AddressSpace is the write target the loader copies segments into. On bare
// metal this is backed directly by physical RAM; the hosted/test build
// backs it with a plain byte slice (see AddressSpace below this file isn't
// the only implementation -- kernel wires a RAM-backed one at boot).
type AddressSpace interface {
	// WriteAt copies data to vaddr.
	WriteAt(vaddr uint64, data []byte) error
	// Zero writes n zero bytes starting at vaddr.
	Zero(vaddr uint64, n uint64) error
}

// Load validates image, then copies every PT_LOAD segment's file bytes to
// its p_vaddr and zeroes the BSS tail, per spec §4.3 steps 1-2. It returns
// the entry address, or an error (never a bare 0) on failure.
func Load(image []byte, mem AddressSpace) (entry uint64, err error) {
	h, err := Validate(image)
	if err != nil {
		return 0, err
	}

	for i := 0; i < int(h.PhNum); i++ {
		off := int(h.PhOff) + i*int(h.PhEntSz)
		if off+ProgramHeaderSize > len(image) {
			return 0, fmt.Errorf("elfload: program header %d out of range", i)
		}
		ph := parseProgramHeader(image[off : off+ProgramHeaderSize])
		if ph.Type != ptLoad {
			continue
		}

		if ph.FileSz > 0 {
			end := ph.Offset + ph.FileSz
			if end > uint64(len(image)) {
				return 0, fmt.Errorf("elfload: segment %d file range out of bounds", i)
			}
			if err := mem.WriteAt(ph.VAddr, image[ph.Offset:end]); err != nil {
				return 0, fmt.Errorf("elfload: write segment %d: %w", i, err)
			}
		}
		if ph.MemSz > ph.FileSz {
			if err := mem.Zero(ph.VAddr+ph.FileSz, ph.MemSz-ph.FileSz); err != nil {
				return 0, fmt.Errorf("elfload: zero bss for segment %d: %w", i, err)
			}
		}
	}

	return h.Entry, nil
}
