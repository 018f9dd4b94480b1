package kapi_test

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vibeos/core/elfload"
	"github.com/vibeos/core/fat32"
	"github.com/vibeos/core/hal/halfake"
	"github.com/vibeos/core/heap"
	"github.com/vibeos/core/kapi"
)

// buildVolume mirrors fat32_test.go's helper: a minimal valid FAT32 BPB
// over a fresh block device with the root directory's cluster marked EOC.
func buildVolume(t *testing.T) *halfake.BlockDevice {
	t.Helper()
	const (
		reserved   = 32
		numFATs    = 2
		fatSize    = 8
		secPerClus = 1
		dataClus   = 1022
		totalSec   = reserved + numFATs*fatSize + dataClus*secPerClus
	)
	dev := halfake.NewBlockDevice(totalSec + 4)

	boot := make([]byte, 512)
	put16 := func(off int, v uint16) { boot[off] = byte(v); boot[off+1] = byte(v >> 8) }
	put32 := func(off int, v uint32) {
		boot[off] = byte(v)
		boot[off+1] = byte(v >> 8)
		boot[off+2] = byte(v >> 16)
		boot[off+3] = byte(v >> 24)
	}
	put16(11, 512)
	boot[13] = secPerClus
	put16(14, reserved)
	boot[16] = numFATs
	put16(17, 0)
	put16(22, 0)
	put32(32, totalSec)
	put32(36, fatSize)
	put32(44, 2)
	require.NoError(t, dev.WriteSectors(0, 1, boot))

	fatSec := make([]byte, 512)
	put32entry := func(b []byte, idx int, v uint32) {
		b[idx*4] = byte(v)
		b[idx*4+1] = byte(v >> 8)
		b[idx*4+2] = byte(v >> 16)
		b[idx*4+3] = byte(v >> 24)
	}
	put32entry(fatSec, 2, 0x0FFFFFFF)
	require.NoError(t, dev.WriteSectors(reserved, 1, fatSec))
	require.NoError(t, dev.WriteSectors(reserved+fatSize, 1, fatSec))

	dataStart := reserved + numFATs*fatSize
	zero := make([]byte, 512)
	require.NoError(t, dev.WriteSectors(uint64(dataStart), 1, zero))

	return dev
}

func mount(t *testing.T) *fat32.FS {
	t.Helper()
	fs, err := fat32.Mount(buildVolume(t))
	require.NoError(t, err)
	return fs
}

// buildMinimalExec mirrors elfload_test.go's helper: one PT_LOAD segment
// carrying payload at vaddr, returning the image bytes and the entry
// address elfload.Load will report for it.
func buildMinimalExec(vaddr uint64, payload []byte) (image []byte, entry uint64) {
	e := binary.LittleEndian
	const (
		ehdrSize = elfload.HeaderSize
		phdrSize = elfload.ProgramHeaderSize
	)
	phoff := uint64(ehdrSize)
	dataOff := ehdrSize + phdrSize
	buf := make([]byte, dataOff+len(payload))

	buf[0], buf[1], buf[2], buf[3] = 0x7F, 'E', 'L', 'F'
	buf[4] = 2
	buf[5] = 1
	e.PutUint16(buf[16:18], 2)
	e.PutUint16(buf[18:20], 183)
	entry = vaddr + uint64(dataOff-int(phoff))
	e.PutUint64(buf[24:32], entry)
	e.PutUint64(buf[32:40], phoff)
	e.PutUint16(buf[54:56], phdrSize)
	e.PutUint16(buf[56:58], 1)

	ph := buf[phoff : phoff+phdrSize]
	e.PutUint32(ph[0:4], 1)
	e.PutUint64(ph[8:16], uint64(dataOff))
	e.PutUint64(ph[16:24], vaddr)
	e.PutUint64(ph[32:40], uint64(len(payload)))
	e.PutUint64(ph[40:48], uint64(len(payload)))

	copy(buf[dataOff:], payload)
	return buf, entry
}

func newSubstrate(t *testing.T) (*kapi.Substrate, *fat32.FS, *kapi.DirectInvoker) {
	t.Helper()
	fs := mount(t)
	require.NoError(t, fs.MakeDirectory("/bin"))
	h, err := heap.New(make([]byte, 1<<20))
	require.NoError(t, err)
	ram := elfload.NewRAM(0x10000, 1<<16)
	inv := kapi.NewDirectInvoker()
	table := kapi.NewTable()
	s := kapi.NewSubstrate(fs, h, ram, inv, table)
	s.Install()
	return s, fs, inv
}

// nextProgram gives each writeProgram call its own load address inside the
// 64KiB test RAM, so two programs written by one test never share an entry
// address in the invoker's registry.
var nextProgram uint64

func writeProgram(t *testing.T, fs *fat32.FS, inv *kapi.DirectInvoker, path string, fn kapi.EntryFunc) {
	t.Helper()
	vaddr := 0x10000 + (nextProgram%16)*0x1000
	nextProgram++
	image, entry := buildMinimalExec(vaddr, []byte("placeholder text section"))
	inv.Register(entry, fn)
	require.NoError(t, fs.WriteFile(path, image))
}

func TestExecReturnsEntryExitStatus(t *testing.T) {
	s, fs, inv := newSubstrate(t)
	writeProgram(t, fs, inv, "/bin/ok.elf", func(k *kapi.Table, argc int32, argv []string) int32 {
		require.Equal(t, uint32(kapi.Version), k.Version)
		return 7
	})

	status, err := s.ExecArgs(context.Background(), "/bin/ok.elf", nil)
	require.NoError(t, err)
	require.Equal(t, 7, status)
	require.Nil(t, s.Current())
}

func TestExecViaExit(t *testing.T) {
	s, fs, inv := newSubstrate(t)
	writeProgram(t, fs, inv, "/bin/exiter.elf", func(k *kapi.Table, argc int32, argv []string) int32 {
		k.Process.Exit(42)
		panic("unreachable: Exit never returns")
	})

	status, err := s.ExecArgs(context.Background(), "/bin/exiter.elf", nil)
	require.NoError(t, err)
	require.Equal(t, 42, status)
}

func TestExecRejectsMissingDirAndEmpty(t *testing.T) {
	s, fs, _ := newSubstrate(t)
	_, err := s.ExecArgs(context.Background(), "/bin/nope.elf", nil)
	require.Error(t, err)

	require.NoError(t, fs.MakeDirectory("/adir"))
	_, err = s.ExecArgs(context.Background(), "/adir", nil)
	require.Error(t, err)

	require.NoError(t, fs.CreateFile("/empty.elf"))
	_, err = s.ExecArgs(context.Background(), "/empty.elf", nil)
	require.Error(t, err)
}

func TestNestedExecEachRecoverOwnExit(t *testing.T) {
	s, fs, inv := newSubstrate(t)
	writeProgram(t, fs, inv, "/bin/inner.elf", func(k *kapi.Table, argc int32, argv []string) int32 {
		k.Process.Exit(5)
		panic("unreachable")
	})
	writeProgram(t, fs, inv, "/bin/outer.elf", func(k *kapi.Table, argc int32, argv []string) int32 {
		inner, err := k.Process.Exec("/bin/inner.elf")
		require.NoError(t, err)
		require.Equal(t, 5, inner)
		return 9
	})

	status, err := s.ExecArgs(context.Background(), "/bin/outer.elf", nil)
	require.NoError(t, err)
	require.Equal(t, 9, status)
}

func TestSpawnArgsReturnsPID(t *testing.T) {
	s, fs, inv := newSubstrate(t)
	writeProgram(t, fs, inv, "/bin/a.elf", func(k *kapi.Table, argc int32, argv []string) int32 { return 0 })
	writeProgram(t, fs, inv, "/bin/b.elf", func(k *kapi.Table, argc int32, argv []string) int32 { return 0 })

	pidA, err := s.SpawnArgs(context.Background(), "/bin/a.elf", nil)
	require.NoError(t, err)
	pidB, err := s.SpawnArgs(context.Background(), "/bin/b.elf", nil)
	require.NoError(t, err)
	require.NotEqual(t, pidA, pidB)
}

func TestExecStackIsSixteenByteAligned(t *testing.T) {
	s, fs, inv := newSubstrate(t)
	var sp uint64
	writeProgram(t, fs, inv, "/bin/stk.elf", func(k *kapi.Table, argc int32, argv []string) int32 {
		sp = s.Current().StackPointer
		return 0
	})
	_, err := s.ExecArgs(context.Background(), "/bin/stk.elf", nil)
	require.NoError(t, err)
	require.Zero(t, sp%16)
}
