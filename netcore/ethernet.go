package netcore

import (
	"encoding/binary"

	"github.com/vibeos/core/kerr"
)

// ethSend builds an Ethernet frame (dst+our MAC+ethertype) around payload
// and hands it to the device.
func (s *Stack) ethSend(dst [6]byte, ethertype uint16, payload []byte) error {
	if len(payload) > mtu-ethHeaderLen {
		return kerr.Tagf("NET", kerr.ErrInvalid, "payload too large for frame")
	}
	frame := make([]byte, ethHeaderLen+len(payload))
	copy(frame[0:6], dst[:])
	copy(frame[6:12], s.mac[:])
	binary.BigEndian.PutUint16(frame[12:14], ethertype)
	copy(frame[ethHeaderLen:], payload)
	return s.dev.Send(frame)
}

// Poll drains every frame currently queued on the NIC, dispatching each to
// ARP or IPv4 handling by ethertype. Unknown ethertypes are dropped.
func (s *Stack) Poll() error {
	for {
		frame, ok := s.dev.Recv()
		if !ok {
			return nil
		}
		if len(frame) < ethHeaderLen {
			continue
		}
		ethertype := binary.BigEndian.Uint16(frame[12:14])
		payload := frame[ethHeaderLen:]

		switch ethertype {
		case etherTypeARP:
			s.handleARP(payload)
		case etherTypeIPv4:
			if err := s.handleIPv4(payload); err != nil {
				return err
			}
		}
	}
}
