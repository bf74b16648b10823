package evidence

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// Source identifies which collection channel produced an AddressCandidate.
type Source string

const (
	SourceConfigFile Source = "config-file"
	SourceConnection Source = "network-connection"
	SourceOutput     Source = "output-text"
)

// AddressCandidate is a discovered textual address (domain name or dotted
// IPv4) together with the evidence channel it came from. A port of 0 means
// the port is unknown.
type AddressCandidate struct {
	Host       string    `json:"host"`
	Port       int       `json:"port,omitempty"`
	Source     Source    `json:"source"`
	Relevance  int       `json:"relevance,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// Valid reports whether the candidate may participate in ranking. Loopback,
// link-local, private-range, and denylisted hosts never identify a remote
// server.
func (c AddressCandidate) Valid() bool {
	return RoutableHost(c.Host)
}

// Endpoint renders host plus port when the port is known.
func (c AddressCandidate) Endpoint() string {
	if c.Port > 0 {
		return fmt.Sprintf("%s:%d", c.Host, c.Port)
	}
	return c.Host
}

// ConnectionRecord is one newly observed ESTABLISHED connection owned by the
// tracked process. Records are created only on snapshot diffs, so the set
// accumulated over a monitoring session is duplicate-free.
type ConnectionRecord struct {
	LocalAddr  string    `json:"local_addr"`
	LocalPort  int       `json:"local_port"`
	RemoteAddr string    `json:"remote_addr"`
	RemotePort int       `json:"remote_port"`
	State      string    `json:"state"`
	PID        int       `json:"pid"`
	ObservedAt time.Time `json:"observed_at"`
}

// Key identifies the remote endpoint for snapshot diffing.
func (r ConnectionRecord) Key() string {
	return fmt.Sprintf("%s:%d", r.RemoteAddr, r.RemotePort)
}

// Candidate converts the record's remote endpoint into a
// network-connection-tier AddressCandidate.
func (r ConnectionRecord) Candidate() AddressCandidate {
	return AddressCandidate{
		Host:       r.RemoteAddr,
		Port:       r.RemotePort,
		Source:     SourceConnection,
		ObservedAt: r.ObservedAt,
	}
}

// LikelyGameServer classifies the remote port: private-server style ports and
// the high band used by game worlds count as game traffic, web/CDN ports do
// not.
func (r ConnectionRecord) LikelyGameServer() bool {
	switch r.RemotePort {
	case 43594, 43595, 43596, 43597, 50000, 50001, 50002, 7777, 7778:
		return true
	case 80, 443, 8080, 8443:
		return false
	}
	if r.RemotePort >= 40000 && r.RemotePort <= 50000 {
		return true
	}
	return r.RemotePort > 30000
}

// hostDenylist holds well-known infrastructure hosts that show up in launcher
// output and config files but never identify the target backend. Matching is
// by suffix, so entries cover their subdomains too.
var hostDenylist = []string{
	"localhost",
	"java.com",
	"oracle.com",
	"sun.com",
	"w3.org",
	"apache.org",
	"github.com",
	"sourceforge.net",
	"googleapis.com",
	"mojang.com",
}

// RoutableHost reports whether host can plausibly be a remote server
// identity. IP literals are rejected when loopback, link-local, private,
// unspecified, or broadcast; names are rejected when denylisted.
func RoutableHost(host string) bool {
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" {
		return false
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return false
		}
		if ip.Equal(net.IPv4bcast) {
			return false
		}
		return true
	}

	for _, blocked := range hostDenylist {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return false
		}
	}
	return true
}
