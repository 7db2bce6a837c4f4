package http

import (
	"net"
	"net/http"
	"strings"
)

// IPConfig lists the proxies whose forwarding headers are believed.
type IPConfig struct {
	TrustedProxies []string // CIDR ranges
}

// trusts reports whether ip falls inside any trusted-proxy range. Invalid
// CIDRs in the config are skipped rather than widening trust.
func (c *IPConfig) trusts(ip string) bool {
	if c == nil || len(c.TrustedProxies) == 0 {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, cidr := range c.TrustedProxies {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if network.Contains(parsed) {
			return true
		}
	}
	return false
}

// ExtractClientIP returns the client address for the attempt ledger and the
// audit trail. The socket peer is authoritative; X-Forwarded-For and
// X-Real-IP are honored only when that peer is a configured proxy, so a
// direct caller cannot forge its own address.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	peer := peerIP(r)
	if !config.trusts(peer) {
		return peer
	}

	if ip := firstForwardedIP(r.Header.Get("X-Forwarded-For")); ip != "" {
		return ip
	}
	if xri := r.Header.Get("X-Real-IP"); net.ParseIP(xri) != nil {
		return xri
	}
	return peer
}

func peerIP(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// firstForwardedIP picks the leftmost parseable address, which is the
// original client in the usual proxy chain.
func firstForwardedIP(xff string) string {
	for _, part := range strings.Split(xff, ",") {
		if ip := strings.TrimSpace(part); net.ParseIP(ip) != nil {
			return ip
		}
	}
	return ""
}
