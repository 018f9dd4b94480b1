package netcore

import (
	"encoding/binary"
	"log/slog"
	"net"
)

const arpTableSize = 16

const (
	arpOpRequest = 1
	arpOpReply   = 2
)

type arpEntry struct {
	ip    [4]byte
	mac   [6]byte
	valid bool
}

// arpTable is a fixed 16-slot cache. A full table evicts slot 0, matching
// net.c's "table full - overwrite first entry (simple LRU)" -- there is no
// actual recency tracking, just a literal slot-0 stomp.
type arpTable struct {
	entries [arpTableSize]arpEntry
}

func (t *arpTable) lookup(ip [4]byte) ([6]byte, bool) {
	for _, e := range t.entries {
		if e.valid && e.ip == ip {
			return e.mac, true
		}
	}
	return [6]byte{}, false
}

func (t *arpTable) add(ip [4]byte, mac [6]byte) {
	for i := range t.entries {
		if t.entries[i].valid && t.entries[i].ip == ip {
			t.entries[i].mac = mac
			return
		}
	}
	for i := range t.entries {
		if !t.entries[i].valid {
			t.entries[i] = arpEntry{ip: ip, mac: mac, valid: true}
			return
		}
	}
	t.entries[0] = arpEntry{ip: ip, mac: mac, valid: true}
}

// arpPacket is the 28-byte Ethernet/IPv4 ARP payload (spec §4.8).
type arpPacket struct {
	htype uint16
	ptype uint16
	hlen  byte
	plen  byte
	oper  uint16
	sha   [6]byte
	spa   [4]byte
	tha   [6]byte
	tpa   [4]byte
}

const arpPacketLen = 28

func (p *arpPacket) marshal() []byte {
	buf := make([]byte, arpPacketLen)
	binary.BigEndian.PutUint16(buf[0:2], p.htype)
	binary.BigEndian.PutUint16(buf[2:4], p.ptype)
	buf[4] = p.hlen
	buf[5] = p.plen
	binary.BigEndian.PutUint16(buf[6:8], p.oper)
	copy(buf[8:14], p.sha[:])
	copy(buf[14:18], p.spa[:])
	copy(buf[18:24], p.tha[:])
	copy(buf[24:28], p.tpa[:])
	return buf
}

func parseARP(buf []byte) (arpPacket, bool) {
	if len(buf) < arpPacketLen {
		return arpPacket{}, false
	}
	var p arpPacket
	p.htype = binary.BigEndian.Uint16(buf[0:2])
	p.ptype = binary.BigEndian.Uint16(buf[2:4])
	p.hlen = buf[4]
	p.plen = buf[5]
	p.oper = binary.BigEndian.Uint16(buf[6:8])
	copy(p.sha[:], buf[8:14])
	copy(p.spa[:], buf[14:18])
	copy(p.tha[:], buf[18:24])
	copy(p.tpa[:], buf[24:28])
	return p, true
}

func ipTo4(ip net.IP) [4]byte {
	var out [4]byte
	v4 := ip.To4()
	copy(out[:], v4)
	return out
}

// arpRequest broadcasts a who-has for ip.
func (s *Stack) arpRequest(ip net.IP) error {
	p := arpPacket{
		htype: 1,
		ptype: etherTypeIPv4,
		hlen:  6,
		plen:  4,
		oper:  arpOpRequest,
		sha:   s.mac,
		spa:   ipTo4(s.cfg.IP),
		tpa:   ipTo4(ip),
	}
	slog.Debug("arp request", "target", ipStr(ip))
	return s.ethSend(broadcastMAC, etherTypeARP, p.marshal())
}

// handleARP processes one inbound ARP payload: it always learns the
// sender's mapping, then replies if the request targets our IP.
func (s *Stack) handleARP(payload []byte) {
	p, ok := parseARP(payload)
	if !ok || p.htype != 1 || p.ptype != etherTypeIPv4 || p.hlen != 6 || p.plen != 4 {
		return
	}

	s.mu.Lock()
	s.arp.add(p.spa, p.sha)
	s.mu.Unlock()

	switch p.oper {
	case arpOpRequest:
		if p.tpa != ipTo4(s.cfg.IP) {
			return
		}
		reply := arpPacket{
			htype: 1,
			ptype: etherTypeIPv4,
			hlen:  6,
			plen:  4,
			oper:  arpOpReply,
			sha:   s.mac,
			spa:   ipTo4(s.cfg.IP),
			tha:   p.sha,
			tpa:   p.spa,
		}
		_ = s.ethSend(p.sha, etherTypeARP, reply.marshal())
	case arpOpReply:
		// Already learned above; nothing further to do.
	}
}

// ResolveMAC returns the cached MAC for ip's resolution target, or
// (zero, false) if no entry is cached yet. It only reads the table and sends
// nothing; Send issues the ARP request on a miss.
func (s *Stack) ResolveMAC(ip net.IP) ([6]byte, bool) {
	target := s.nextHop(ip)
	s.mu.Lock()
	mac, ok := s.arp.lookup(ipTo4(target))
	s.mu.Unlock()
	return mac, ok
}
