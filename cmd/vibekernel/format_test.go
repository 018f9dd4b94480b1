package main

import (
	"io"
	"testing"

	"github.com/schollz/progressbar/v3"
	"github.com/stretchr/testify/require"

	"github.com/vibeos/core/fat32"
	"github.com/vibeos/core/hal/halfake"
)

func silentBar(max int) *progressbar.ProgressBar {
	return progressbar.NewOptions(max, progressbar.OptionSetWriter(io.Discard))
}

func TestFormatFAT32ProducesAMountableVolume(t *testing.T) {
	const sectors = 4096
	dev := halfake.NewBlockDevice(sectors)

	require.NoError(t, formatFAT32(dev, sectors, silentBar(sectors)))

	fs, err := fat32.Mount(dev)
	require.NoError(t, err)

	require.NoError(t, fs.WriteFile("/hello.txt", []byte("hi")))
	buf := make([]byte, 2)
	n, err := fs.ReadFile("/hello.txt", buf)
	require.NoError(t, err)
	require.Equal(t, "hi", string(buf[:n]))
}

func TestFormatFAT32RejectsATooSmallDisk(t *testing.T) {
	dev := halfake.NewBlockDevice(8)
	require.Error(t, formatFAT32(dev, 8, silentBar(8)))
}
