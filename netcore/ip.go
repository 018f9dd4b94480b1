package netcore

import (
	"encoding/binary"
	"log/slog"
	"net"

	"github.com/vibeos/core/kerr"
)

const ipHeaderLen = 20

type ipv4Header struct {
	versionIHL byte
	tos        byte
	totalLen   uint16
	id         uint16
	flagsFrag  uint16
	ttl        byte
	protocol   byte
	checksum   uint16
	src        [4]byte
	dst        [4]byte
}

func (h *ipv4Header) marshal() []byte {
	buf := make([]byte, ipHeaderLen)
	buf[0] = h.versionIHL
	buf[1] = h.tos
	binary.BigEndian.PutUint16(buf[2:4], h.totalLen)
	binary.BigEndian.PutUint16(buf[4:6], h.id)
	binary.BigEndian.PutUint16(buf[6:8], h.flagsFrag)
	buf[8] = h.ttl
	buf[9] = h.protocol
	binary.BigEndian.PutUint16(buf[10:12], h.checksum)
	copy(buf[12:16], h.src[:])
	copy(buf[16:20], h.dst[:])
	return buf
}

func parseIPv4(buf []byte) (ipv4Header, bool) {
	if len(buf) < ipHeaderLen {
		return ipv4Header{}, false
	}
	var h ipv4Header
	h.versionIHL = buf[0]
	h.tos = buf[1]
	h.totalLen = binary.BigEndian.Uint16(buf[2:4])
	h.id = binary.BigEndian.Uint16(buf[4:6])
	h.flagsFrag = binary.BigEndian.Uint16(buf[6:8])
	h.ttl = buf[8]
	h.protocol = buf[9]
	h.checksum = binary.BigEndian.Uint16(buf[10:12])
	copy(h.src[:], buf[12:16])
	copy(h.dst[:], buf[16:20])
	return h, true
}

func (h *ipv4Header) ihl() int { return int(h.versionIHL&0x0f) * 4 }

// Send transmits an IPv4 packet carrying protocol+data to dst. If the
// next-hop MAC isn't cached yet, it sends an ARP request and returns
// ErrWouldBlock -- the caller (or Ping) is expected to Poll and retry, the
// same "caller should retry" contract net.c's ip_send documents.
func (s *Stack) Send(dst net.IP, protocol byte, data []byte) error {
	if len(data) > mtu-ethHeaderLen-ipHeaderLen {
		return kerr.Tagf("NET", kerr.ErrInvalid, "payload too large for ip_send")
	}

	mac, ok := s.ResolveMAC(dst)
	if !ok {
		next := s.nextHop(dst)
		slog.Debug("no arp entry, requesting", "next_hop", ipStr(next))
		if err := s.arpRequest(next); err != nil {
			return err
		}
		return kerr.Tagf("NET", kerr.ErrWouldBlock, "arp resolution pending for %s", ipStr(next))
	}

	h := ipv4Header{
		versionIHL: 0x45,
		totalLen:   uint16(ipHeaderLen + len(data)),
		ttl:        64,
		protocol:   protocol,
		src:        ipTo4(s.cfg.IP),
		dst:        ipTo4(dst),
	}
	hdr := h.marshal()
	h.checksum = ipChecksum(hdr)
	binary.BigEndian.PutUint16(hdr[10:12], h.checksum)

	packet := make([]byte, 0, len(hdr)+len(data))
	packet = append(packet, hdr...)
	packet = append(packet, data...)
	return s.ethSend(mac, etherTypeIPv4, packet)
}

func (s *Stack) handleIPv4(payload []byte) error {
	h, ok := parseIPv4(payload)
	if !ok {
		return nil
	}
	if h.versionIHL>>4 != 4 {
		return nil
	}
	ihl := h.ihl()
	if ihl < ipHeaderLen || ihl > len(payload) {
		return nil
	}

	dst := net.IP(h.dst[:])
	if !dst.Equal(s.cfg.IP) && h.dst != [4]byte{0xff, 0xff, 0xff, 0xff} {
		return nil
	}

	body := payload[ihl:]
	totalLen := int(h.totalLen) - ihl
	if totalLen < 0 || totalLen > len(body) {
		totalLen = len(body)
	}
	body = body[:totalLen]

	switch h.protocol {
	case ipProtoICMP:
		return s.handleICMP(h, body)
	default:
		slog.Debug("ip: unhandled protocol", "protocol", h.protocol, "src", ipStr(net.IP(h.src[:])))
		return nil
	}
}
