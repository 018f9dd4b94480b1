package qemuvirt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vibeos/core/hal/qemuvirt"
)

func TestSerialSendAndInjectRoundTrip(t *testing.T) {
	s, err := qemuvirt.NewSerial()
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Init())

	s.SendByte('A') // just exercises the MMIO data-register write path

	_, ok := s.TryRecvByte()
	require.False(t, ok, "nothing injected yet")

	s.Inject('h', 'i')
	b, ok := s.TryRecvByte()
	require.True(t, ok)
	require.Equal(t, byte('h'), b)
	b, ok = s.TryRecvByte()
	require.True(t, ok)
	require.Equal(t, byte('i'), b)
	_, ok = s.TryRecvByte()
	require.False(t, ok)
}

func TestBlockDeviceReadWriteRoundTrip(t *testing.T) {
	dev, err := qemuvirt.NewBlockDevice(4)
	require.NoError(t, err)
	defer dev.Close()
	require.NoError(t, dev.Init())

	write := make([]byte, 512)
	for i := range write {
		write[i] = byte(i)
	}
	require.NoError(t, dev.WriteSectors(1, 1, write))

	read := make([]byte, 512)
	require.NoError(t, dev.ReadSectors(1, 1, read))
	require.Equal(t, write, read)
}

func TestBlockDeviceRejectsOutOfRange(t *testing.T) {
	dev, err := qemuvirt.NewBlockDevice(2)
	require.NoError(t, err)
	defer dev.Close()

	buf := make([]byte, 512)
	require.Error(t, dev.ReadSectors(5, 1, buf))
	require.Error(t, dev.WriteSectors(5, 1, buf))
}

func TestTimersAdvanceMovesMicrosAndTicks(t *testing.T) {
	tm, err := qemuvirt.NewTimers()
	require.NoError(t, err)
	defer tm.Close()
	require.NoError(t, tm.Init())

	require.EqualValues(t, 0, tm.Micros())
	tm.Advance(20000) // 20ms
	require.InDelta(t, 20000, tm.Micros(), 50)
	require.EqualValues(t, 2, tm.Ticks())
}

func TestInputQueuesKeysAndMouseState(t *testing.T) {
	in := qemuvirt.NewInput()
	require.NoError(t, in.Init())

	_, ok := in.GetKey()
	require.False(t, ok)

	in.PushKey(65)
	in.PushKey(66)
	k, ok := in.GetKey()
	require.True(t, ok)
	require.Equal(t, 65, k)
	k, ok = in.GetKey()
	require.True(t, ok)
	require.Equal(t, 66, k)

	in.SetMouse(10, 20, 1)
	x, y, buttons := in.MouseState()
	require.Equal(t, 10, x)
	require.Equal(t, 20, y)
	require.Equal(t, 1, buttons)
}

func TestInterruptsOnlyFireWhenEnabledAndAllEnabled(t *testing.T) {
	irq := qemuvirt.NewInterrupts()
	fired := 0
	require.NoError(t, irq.Register(7, func() { fired++ }))
	require.NoError(t, irq.EnableIRQ(7))

	irq.Fire(7)
	require.Equal(t, 0, fired, "global enable not yet set")

	irq.EnableAll()
	irq.Fire(7)
	require.Equal(t, 1, fired)

	require.NoError(t, irq.DisableIRQ(7))
	irq.Fire(7)
	require.Equal(t, 1, fired, "per-irq disable suppresses delivery")

	irq.DisableAll()
	require.NoError(t, irq.EnableIRQ(7))
	irq.Fire(7)
	require.Equal(t, 1, fired, "global disable suppresses delivery")
}

func TestNetworkDeviceSendQueuesAndInjectFeedsRecv(t *testing.T) {
	mac := [6]byte{1, 2, 3, 4, 5, 6}
	dev := qemuvirt.NewNetworkDevice(mac)
	require.NoError(t, dev.Init())
	require.Equal(t, mac, dev.MAC())

	_, ok := dev.Recv()
	require.False(t, ok)

	require.NoError(t, dev.Send([]byte("out")))
	require.Equal(t, [][]byte{[]byte("out")}, dev.Tx)

	dev.Inject([]byte("in"))
	frame, ok := dev.Recv()
	require.True(t, ok)
	require.Equal(t, []byte("in"), frame)
}

func TestFramebufferInitSizesDescriptor(t *testing.T) {
	fb := &qemuvirt.Framebuffer{}
	require.NoError(t, fb.Init(4, 3))
	desc := fb.Descriptor()
	require.Equal(t, 4, desc.Width)
	require.Equal(t, 3, desc.Height)
	require.Equal(t, 16, desc.Stride)
	require.Len(t, desc.Base, 12)
}

func TestNewBringsUpAFullPlatformAndClosesCleanly(t *testing.T) {
	platform, closeFn, err := qemuvirt.New()
	require.NoError(t, err)
	require.Equal(t, "qemuvirt", platform.Name)
	require.NotNil(t, platform.Serial)
	require.NotNil(t, platform.Block)
	require.NotNil(t, platform.Timers)
	require.NotNil(t, platform.Net)
	require.NoError(t, closeFn())
}
