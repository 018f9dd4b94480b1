package kernel_test

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vibeos/core/elfload"
	"github.com/vibeos/core/hal"
	"github.com/vibeos/core/hal/halfake"
	"github.com/vibeos/core/kapi"
	"github.com/vibeos/core/kernel"
	"github.com/vibeos/core/netcore"
)

// buildVolume mirrors fat32_test.go's helper: a minimal valid FAT32 BPB
// over a fresh block device with the root directory's cluster marked EOC.
// dataClus is generous (enough for a 200-entry directory and an 8KiB
// file), matching scenario 3's growth requirement.
func buildVolume(t *testing.T) *halfake.BlockDevice {
	t.Helper()
	const (
		reserved = 32
		numFATs  = 2
		fatSize  = 32
		dataClus = 4088
		totalSec = reserved + numFATs*fatSize + dataClus
	)
	dev := halfake.NewBlockDevice(totalSec + 4)

	boot := make([]byte, 512)
	put16 := func(off int, v uint16) { boot[off], boot[off+1] = byte(v), byte(v>>8) }
	put32 := func(off int, v uint32) {
		boot[off] = byte(v)
		boot[off+1] = byte(v >> 8)
		boot[off+2] = byte(v >> 16)
		boot[off+3] = byte(v >> 24)
	}
	put16(11, 512)
	boot[13] = 1
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

	zero := make([]byte, 512)
	require.NoError(t, dev.WriteSectors(uint64(reserved+numFATs*fatSize), 1, zero))

	return dev
}

func newPlatform(t *testing.T, block *halfake.BlockDevice, netDev *halfake.NetworkDevice) *hal.Platform {
	t.Helper()
	fb := &halfake.Framebuffer{}
	p := &hal.Platform{
		Name:       "test",
		Serial:     &halfake.Serial{},
		FB:         fb,
		Block:      block,
		Input:      &halfake.Input{},
		Interrupts: halfake.NewInterrupts(),
		Timers:     &halfake.Timers{},
	}
	// A nil *halfake.NetworkDevice boxed into the hal.NetworkDevice
	// interface field would compare non-nil, so the field is only set
	// when a concrete device was actually supplied.
	if netDev != nil {
		p.Net = netDev
	}
	return p
}

// buildMinimalExec mirrors elfload_test.go's helper: one PT_LOAD segment
// carrying placeholder text at vaddr, returning the image and the entry
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

// writeProgram registers fn as the body of an ELF image written to path at
// a distinct load address per call, so multiple programs in one test don't
// collide in the flat address space's entry-address keying.
var nextVaddr = uint64(kernel.ProgramRAMBase)

func writeProgram(t *testing.T, k *kernel.Kernel, inv *kapi.DirectInvoker, path string, fn kapi.EntryFunc) {
	t.Helper()
	vaddr := nextVaddr
	nextVaddr += 0x10000
	image, entry := buildMinimalExec(vaddr, []byte("placeholder text section"))
	inv.Register(entry, fn)
	require.NoError(t, k.FS.WriteFile(path, image))
}

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(&discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }

// Scenario 1: boot to shell. /bin/vibesh prints a banner and exits; since
// /bin/desktop is absent, Launch falls back to it per spec §6.
func TestScenarioBootToShell(t *testing.T) {
	platform := newPlatform(t, buildVolume(t), nil)
	inv := kapi.NewDirectInvoker()
	k, err := kernel.Boot(platform, inv, quietLog())
	require.NoError(t, err)
	writeProgram(t, k, inv, "/bin/vibesh", func(tbl *kapi.Table, argc int32, argv []string) int32 {
		tbl.Console.Puts("vibesh\n")
		return 0
	})

	status, err := k.Launch(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 0, status)

	fb := platform.FB.Descriptor()
	nonBlack := false
	for _, px := range fb.Base {
		if px != 0 {
			nonBlack = true
			break
		}
	}
	require.True(t, nonBlack, "expected the banner to have drawn at least one lit pixel")
}

// Scenario 2: file round-trip, including a remount (fresh fat32.Mount over
// the same backing block device) proving persistence survives a reset of
// in-memory filesystem state.
func TestScenarioFileRoundTripSurvivesRemount(t *testing.T) {
	block := buildVolume(t)
	platform := newPlatform(t, block, nil)
	k, err := kernel.Boot(platform, kapi.NewDirectInvoker(), quietLog())
	require.NoError(t, err)

	buf := make([]byte, 4097)
	for i := range buf {
		buf[i] = byte(i)
	}
	require.NoError(t, k.FS.WriteFile("/tmp/a.bin", buf))

	size, err := k.FS.FileSize("/tmp/a.bin")
	require.NoError(t, err)
	require.Equal(t, uint32(4097), size)

	out := make([]byte, 4097)
	n, err := k.FS.ReadFile("/tmp/a.bin", out)
	require.NoError(t, err)
	require.Equal(t, buf, out[:n])

	remounted, err := kernel.Boot(newPlatform(t, block, nil), kapi.NewDirectInvoker(), quietLog())
	require.NoError(t, err)
	out2 := make([]byte, 4097)
	n2, err := remounted.FS.ReadFile("/tmp/a.bin", out2)
	require.NoError(t, err)
	require.Equal(t, buf, out2[:n2])
}

// Scenario 3: directory growth across 200 files, enough to force the
// directory's cluster chain past its first cluster.
func TestScenarioDirectoryGrowth(t *testing.T) {
	platform := newPlatform(t, buildVolume(t), nil)
	k, err := kernel.Boot(platform, kapi.NewDirectInvoker(), quietLog())
	require.NoError(t, err)

	require.NoError(t, k.FS.MakeDirectory("/d"))
	for i := 0; i < 200; i++ {
		require.NoError(t, k.FS.CreateFile(fmt.Sprintf("/d/f%03d", i)))
	}
	entries, err := k.FS.List("/d")
	require.NoError(t, err)

	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name] = true
	}
	for i := 0; i < 200; i++ {
		require.True(t, names[fmt.Sprintf("f%03d", i)], "missing f%03d", i)
	}
}

// Scenario 4: ping loopback through the wired kapi.Net.Ping closure, with
// the NIC connected to itself (spec's "NIC in loopback mode").
func TestScenarioPingLoopback(t *testing.T) {
	dev := halfake.NewNetworkDevice([6]byte{2, 0, 0, 0, 0, 1})
	halfake.Connect(dev, dev)
	platform := newPlatform(t, buildVolume(t), dev)
	k, err := kernel.Boot(platform, kapi.NewDirectInvoker(), quietLog())
	require.NoError(t, err)
	require.NotNil(t, k.Table.Net.Ping)

	ourIP := binary.BigEndian.Uint32(net.IPv4(10, 0, 2, 15).To4())
	ok, _, err := k.Table.Net.Ping(ourIP, 1, 1000)
	require.NoError(t, err)
	require.True(t, ok)
}

// Scenario 5: an ARP miss on first send, then a hit after the reply is
// observed, exercised directly against k.Net (the same Stack installNet
// wraps) since kapi.Net has no raw ip_send entry point.
func TestScenarioARPMissThenHit(t *testing.T) {
	usDev := halfake.NewNetworkDevice([6]byte{2, 0, 0, 0, 0, 1})
	peerDev := halfake.NewNetworkDevice([6]byte{2, 0, 0, 0, 0, 2})
	halfake.Connect(usDev, peerDev)

	platform := newPlatform(t, buildVolume(t), usDev)
	k, err := kernel.Boot(platform, kapi.NewDirectInvoker(), quietLog())
	require.NoError(t, err)

	// The peer answers ARP for 10.0.2.2; a second booted kernel would take
	// the default 10.0.2.15 from config and never reply.
	peerCfg := netcore.DefaultConfig()
	peerCfg.IP = net.IPv4(10, 0, 2, 2)
	peer, err := netcore.New(peerDev, peerCfg)
	require.NoError(t, err)

	_, ok := k.Net.ResolveMAC(net.IPv4(10, 0, 2, 2))
	require.False(t, ok)
	require.Error(t, k.Net.Send(net.IPv4(10, 0, 2, 2), 1, []byte("x")))

	require.NoError(t, peer.Poll())
	require.NoError(t, k.Net.Poll())

	mac, ok := k.Net.ResolveMAC(net.IPv4(10, 0, 2, 2))
	require.True(t, ok)
	require.Equal(t, peerDev.MAC(), mac)
	require.NoError(t, k.Net.Send(net.IPv4(10, 0, 2, 2), 17, []byte("payload")))
}

// Scenario 6: console scroll. Writing rows+1 lines leaves the cursor on
// the last row, and Clear restores the origin.
func TestScenarioConsoleScroll(t *testing.T) {
	platform := newPlatform(t, buildVolume(t), nil)
	k, err := kernel.Boot(platform, kapi.NewDirectInvoker(), quietLog())
	require.NoError(t, err)

	rows := k.Console.Rows()
	for i := 0; i <= rows; i++ {
		k.Console.PutString("A\n")
	}
	row, col := k.Console.Cursor()
	require.Equal(t, rows-1, row)
	require.Equal(t, 0, col)

	k.Console.Clear()
	row, col = k.Console.Cursor()
	require.Zero(t, row)
	require.Zero(t, col)
}
