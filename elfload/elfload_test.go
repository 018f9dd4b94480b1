package elfload_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vibeos/core/elfload"
)

// buildMinimalExec constructs a minimal valid little-endian AArch64 ET_EXEC
// image with a single PT_LOAD segment carrying payload at vaddr, with
// memSz possibly larger than len(payload) to exercise BSS zeroing.
func buildMinimalExec(t *testing.T, vaddr uint64, payload []byte, memSz uint64) []byte {
	t.Helper()
	e := binary.LittleEndian

	const (
		ehdrSize = elfload.HeaderSize
		phdrSize = elfload.ProgramHeaderSize
	)
	phoff := uint64(ehdrSize)
	dataOff := ehdrSize + phdrSize

	buf := make([]byte, dataOff+len(payload))

	buf[0], buf[1], buf[2], buf[3] = 0x7F, 'E', 'L', 'F'
	buf[4] = 2 // ELFCLASS64
	buf[5] = 1 // ELFDATA2LSB
	e.PutUint16(buf[16:18], 2)   // e_type = ET_EXEC
	e.PutUint16(buf[18:20], 183) // e_machine = EM_AARCH64
	e.PutUint64(buf[24:32], vaddr+uint64(dataOff-int(phoff))) // entry
	e.PutUint64(buf[32:40], phoff)
	e.PutUint16(buf[54:56], phdrSize)
	e.PutUint16(buf[56:58], 1) // phnum = 1

	ph := buf[phoff : phoff+phdrSize]
	e.PutUint32(ph[0:4], 1) // PT_LOAD
	e.PutUint64(ph[8:16], uint64(dataOff))
	e.PutUint64(ph[16:24], vaddr)
	e.PutUint64(ph[32:40], uint64(len(payload)))
	e.PutUint64(ph[40:48], memSz)

	copy(buf[dataOff:], payload)
	return buf
}

func TestValidateRejectsEmpty(t *testing.T) {
	_, err := elfload.Validate(nil)
	require.Error(t, err)
	var ve *elfload.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, elfload.ErrTooShort, ve.Code)
}

func TestValidateRejectsMagicOnly(t *testing.T) {
	_, err := elfload.Validate([]byte{0x7F, 'E', 'L', 'F'})
	require.Error(t, err)
	var ve *elfload.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, elfload.ErrTooShort, ve.Code)
}

func TestValidateRejectsNonAArch64(t *testing.T) {
	img := buildMinimalExec(t, 0x10000, []byte("hi"), 2)
	binary.LittleEndian.PutUint16(img[18:20], 0x3E) // EM_X86_64
	_, err := elfload.Validate(img)
	require.Error(t, err)
	var ve *elfload.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, elfload.ErrNotAArch64, ve.Code)
}

func TestValidateRejectsETREL(t *testing.T) {
	img := buildMinimalExec(t, 0x10000, []byte("hi"), 2)
	binary.LittleEndian.PutUint16(img[16:18], 1) // ET_REL
	_, err := elfload.Validate(img)
	require.Error(t, err)
	var ve *elfload.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, elfload.ErrNotExec, ve.Code)
}

func TestValidateAcceptsMinimalExec(t *testing.T) {
	img := buildMinimalExec(t, 0x10000, []byte("hi"), 2)
	h, err := elfload.Validate(img)
	require.NoError(t, err)
	require.EqualValues(t, 1, h.PhNum)
}

func TestLoadCopiesAndZeroesBSS(t *testing.T) {
	const base = 0x10000
	payload := []byte("hello, vibeos!")
	img := buildMinimalExec(t, base, payload, uint64(len(payload))+32)

	ram := elfload.NewRAM(base, 1<<20)
	entry, err := elfload.Load(img, ram)
	require.NoError(t, err)
	require.NotZero(t, entry)

	got, err := ram.ReadAt(base, len(payload))
	require.NoError(t, err)
	require.Equal(t, payload, got)

	tail, err := ram.ReadAt(base+uint64(len(payload)), 32)
	require.NoError(t, err)
	for _, b := range tail {
		require.Zero(t, b)
	}
}
