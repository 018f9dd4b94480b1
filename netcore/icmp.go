package netcore

import (
	"encoding/binary"
	"errors"
	"log/slog"
	"net"

	"github.com/vibeos/core/hal"
	"github.com/vibeos/core/kerr"
)

const icmpHeaderLen = 8

type icmpHeader struct {
	typ      byte
	code     byte
	checksum uint16
	id       uint16
	seq      uint16
}

func (h *icmpHeader) marshal() []byte {
	buf := make([]byte, icmpHeaderLen)
	buf[0] = h.typ
	buf[1] = h.code
	binary.BigEndian.PutUint16(buf[2:4], h.checksum)
	binary.BigEndian.PutUint16(buf[4:6], h.id)
	binary.BigEndian.PutUint16(buf[6:8], h.seq)
	return buf
}

func parseICMP(buf []byte) (icmpHeader, bool) {
	if len(buf) < icmpHeaderLen {
		return icmpHeader{}, false
	}
	return icmpHeader{
		typ:      buf[0],
		code:     buf[1],
		checksum: binary.BigEndian.Uint16(buf[2:4]),
		id:       binary.BigEndian.Uint16(buf[4:6]),
		seq:      binary.BigEndian.Uint16(buf[6:8]),
	}, true
}

// pendingPing tracks the single in-flight echo request net.c supports --
// there is no table of outstanding pings, just one tracker, matching the
// original firmware exactly.
type pendingPing struct {
	active   bool
	id       uint16
	seq      uint16
	received bool
	rttTicks uint64
	sentTick uint64
}

func (s *Stack) handleICMP(h ipv4Header, payload []byte) error {
	icmp, ok := parseICMP(payload)
	if !ok {
		return nil
	}

	switch icmp.typ {
	case icmpEchoRequest:
		srcIP := net.IP(h.src[:])
		slog.Debug("icmp echo request", "from", ipStr(srcIP))

		reply := icmpHeader{typ: icmpEchoReply, code: 0, id: icmp.id, seq: icmp.seq}
		data := payload[icmpHeaderLen:]
		body := append(reply.marshal(), data...)
		sum := ipChecksum(body)
		binary.BigEndian.PutUint16(body[2:4], sum)

		return s.Send(srcIP, ipProtoICMP, body)

	case icmpEchoReply:
		s.mu.Lock()
		if s.ping.active && icmp.id == s.ping.id && icmp.seq == s.ping.seq {
			s.ping.received = true
		}
		s.mu.Unlock()
	}
	return nil
}

// Ping sends one ICMP echo request to ip with the given sequence number
// and returns once a matching reply has been observed via Poll, or once
// timeoutTicks timer-ticks have elapsed (measured against timers.Ticks()).
// It drives its own Poll loop internally, matching net_ping's blocking
// contract.
func (s *Stack) Ping(timers hal.Timers, ip net.IP, seq uint16, timeoutTicks uint64) (ok bool, rttTicks uint64, err error) {
	s.mu.Lock()
	s.ping = pendingPing{active: true, id: 0x1234, seq: seq, sentTick: timers.Ticks()}
	s.mu.Unlock()

	payload := make([]byte, 56)
	for i := range payload {
		payload[i] = 0xAB
	}

	deadline := timers.Ticks() + timeoutTicks
	for timers.Ticks() < deadline {
		icmpH := icmpHeader{typ: icmpEchoRequest, id: 0x1234, seq: seq}
		body := append(icmpH.marshal(), payload...)
		sum := ipChecksum(body)
		binary.BigEndian.PutUint16(body[2:4], sum)

		sendErr := s.Send(ip, ipProtoICMP, body)
		if sendErr != nil && !errors.Is(sendErr, kerr.ErrWouldBlock) {
			return false, 0, sendErr
		}

		if err := s.Poll(); err != nil {
			return false, 0, err
		}

		s.mu.Lock()
		received := s.ping.received
		s.mu.Unlock()
		if received {
			s.mu.Lock()
			rtt := timers.Ticks() - s.ping.sentTick
			s.ping.active = false
			s.mu.Unlock()
			return true, rtt, nil
		}
	}

	s.mu.Lock()
	s.ping.active = false
	s.mu.Unlock()
	return false, 0, nil
}
