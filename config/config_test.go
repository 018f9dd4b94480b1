package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vibeos/core/config"
	"github.com/vibeos/core/fat32"
	"github.com/vibeos/core/hal/halfake"
)

func mount(t *testing.T) *fat32.FS {
	t.Helper()
	const (
		reserved   = 32
		numFATs    = 2
		fatSize    = 8
		dataClus   = 1022
		totalSec   = reserved + numFATs*fatSize + dataClus
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

	fs, err := fat32.Mount(dev)
	require.NoError(t, err)
	return fs
}

func TestLoadFallsBackToDefaultWhenAbsent(t *testing.T) {
	fs := mount(t)
	cfg, err := config.Load(fs)
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)
}

func TestLoadReadsOverrideFile(t *testing.T) {
	fs := mount(t)
	require.NoError(t, fs.MakeDirectory("/etc"))
	doc := []byte("platform: pizero2w\nboot_program: /bin/vibesh\n")
	require.NoError(t, fs.WriteFile(config.ConfigPath, doc))

	cfg, err := config.Load(fs)
	require.NoError(t, err)
	require.Equal(t, config.PlatformPiZero2W, cfg.Platform)
	require.Equal(t, config.FallbackBootProgram, cfg.BootProgram)
	// Network section wasn't overridden, defaults survive the partial merge.
	require.Equal(t, config.Default().Network, cfg.Network)
}

func TestNetcoreConfigRoundTrips(t *testing.T) {
	cfg := config.Default()
	nc, err := cfg.NetcoreConfig()
	require.NoError(t, err)
	require.Equal(t, "10.0.2.15", nc.IP.String())
	require.Equal(t, "10.0.2.2", nc.Gateway.String())
}

func TestMarshalParseRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.BootProgram = "/bin/custom"
	doc, err := config.Marshal(cfg)
	require.NoError(t, err)

	back, err := config.Parse(doc)
	require.NoError(t, err)
	require.Equal(t, cfg, back)
}
