package netcore

import (
	"net"

	"github.com/miekg/dns"

	"github.com/vibeos/core/kerr"
)

// Resolver looks up the A record for name. The kapi DNS family (spec §4.3)
// is specified against this interface so a real resolver collaborator can
// be dropped in later without touching the kapi surface; this package only
// ships the wire-format plumbing (message construction/parsing), not a
// UDP transport -- VibeOS has no socket layer, only raw ip_send/icmp, so an
// actual stub-resolver implementation is out of scope here.
type Resolver interface {
	Resolve(name string) (net.IP, error)
}

// BuildQuery constructs a standard recursive A-record query for name,
// returning its wire-format bytes ready to hand to a UDP transport.
func BuildQuery(name string) ([]byte, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeA)
	m.RecursionDesired = true
	return m.Pack()
}

// ParseAnswer unpacks a DNS response and returns the first A record found.
func ParseAnswer(wire []byte) (net.IP, error) {
	m := new(dns.Msg)
	if err := m.Unpack(wire); err != nil {
		return nil, kerr.Tagf("NET", kerr.ErrInvalid, "unpack dns response: %v", err)
	}
	if m.Rcode != dns.RcodeSuccess {
		return nil, kerr.Tagf("NET", kerr.ErrNotFound, "dns rcode %d", m.Rcode)
	}
	for _, rr := range m.Answer {
		if a, ok := rr.(*dns.A); ok {
			return a.A, nil
		}
	}
	return nil, kerr.Tagf("NET", kerr.ErrNotFound, "no A record in answer")
}
