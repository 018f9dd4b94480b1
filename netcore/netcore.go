// Package netcore implements the kernel's network stack: Ethernet framing,
// ARP resolution, IPv4 send/receive and ICMP echo, layered directly over a
// hal.NetworkDevice. There is no IP fragmentation, no UDP/TCP, and no
// routing beyond "on-link or gateway" -- this mirrors the original VibeOS
// net.c, which only ever needed to ping out of a QEMU user-mode NAT.
package netcore

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	"github.com/vibeos/core/hal"
	"github.com/vibeos/core/kerr"
)

const (
	etherTypeIPv4 uint16 = 0x0800
	etherTypeARP  uint16 = 0x0806

	ethHeaderLen = 14
	mtu          = 1600
)

const (
	ipProtoICMP = 1
	ipProtoTCP  = 6
	ipProtoUDP  = 17
)

const (
	icmpEchoReply   = 0
	icmpEchoRequest = 8
)

var broadcastMAC = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// Config is the static network configuration a Stack is built from,
// grounded on net.h's QEMU user-mode defaults (10.0.2.15/24, gateway
// 10.0.2.2).
type Config struct {
	IP      net.IP
	Gateway net.IP
	Netmask net.IP
	DNS     net.IP
}

// DefaultConfig returns the QEMU user-mode network defaults baked into the
// original firmware.
func DefaultConfig() Config {
	return Config{
		IP:      net.IPv4(10, 0, 2, 15),
		Gateway: net.IPv4(10, 0, 2, 2),
		Netmask: net.IPv4(255, 255, 255, 0),
		DNS:     net.IPv4(10, 0, 2, 3),
	}
}

// Stack is the kernel's network core: one NIC, one ARP table, one pending
// ping. It is not safe for concurrent Poll calls -- the RX path is meant to
// be driven from a single poll loop, matching the single-threaded
// cooperative model the rest of the kernel runs under.
type Stack struct {
	dev hal.NetworkDevice
	cfg Config
	mac [6]byte

	mu  sync.Mutex
	arp arpTable

	ping pendingPing
}

// New builds a Stack bound to dev, using dev's MAC and cfg's static IP.
func New(dev hal.NetworkDevice, cfg Config) (*Stack, error) {
	if err := dev.Init(); err != nil {
		return nil, kerr.Tagf("NET", kerr.ErrIO, "init network device: %v", err)
	}
	s := &Stack{
		dev: dev,
		cfg: cfg,
		mac: dev.MAC(),
	}
	return s, nil
}

// IP returns the stack's configured IPv4 address.
func (s *Stack) IP() net.IP { return s.cfg.IP }

// MAC returns the stack's hardware address.
func (s *Stack) MAC() [6]byte { return s.mac }

func ipStr(ip net.IP) string {
	v4 := ip.To4()
	if v4 == nil {
		return ip.String()
	}
	return fmt.Sprintf("%d.%d.%d.%d", v4[0], v4[1], v4[2], v4[3])
}

// onLink reports whether dst shares our configured network with our IP.
func (s *Stack) onLink(dst net.IP) bool {
	mask := net.IPMask(s.cfg.Netmask.To4())
	return dst.Mask(mask).Equal(s.cfg.IP.Mask(mask))
}

// nextHop returns the MAC-resolution target for dst: dst itself if
// on-link, else the gateway.
func (s *Stack) nextHop(dst net.IP) net.IP {
	if s.onLink(dst) {
		return dst
	}
	return s.cfg.Gateway
}

func ipChecksum(data []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(data); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(data[i : i+2]))
	}
	if len(data)%2 == 1 {
		sum += uint32(data[len(data)-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}
