package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

// probePatterns are path or query fragments that only scanners and injection
// attempts produce against this API.
var probePatterns = []string{
	"../", "..\\", ".env", ".git", ".ssh",
	"wp-admin", "phpmyadmin", "admin.php", "config.php",
	"etc/passwd", "cmd.exe",
	"<script", "javascript:", "eval(", "union select",
}

// nonStandardMethods never occur in legitimate traffic against this API.
var nonStandardMethods = map[string]bool{
	"TRACE":   true,
	"TRACK":   true,
	"DEBUG":   true,
	"CONNECT": true,
}

// Detector spots scanner probes and resolves the real client address behind
// trusted proxies. API clients like curl are legitimate here, so user agents
// are not inspected.
type Detector struct {
	trustedProxies []*net.IPNet
	flagged        atomic.Int64
}

func NewDetector() *Detector {
	return &Detector{
		trustedProxies: []*net.IPNet{
			mustCIDR("127.0.0.0/8"),
			mustCIDR("10.0.0.0/8"),
			mustCIDR("172.16.0.0/12"),
			mustCIDR("192.168.0.0/16"),
		},
	}
}

func mustCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("bad builtin CIDR %s: %v", cidr, err))
	}
	return network
}

// DetectSuspiciousRequest reports whether the request matches a known probe
// shape. Matching requests are counted but never blocked here.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	if d.suspicious(r) {
		d.flagged.Add(1)
		return true
	}
	return false
}

func (d *Detector) suspicious(r *http.Request) bool {
	if nonStandardMethods[r.Method] {
		return true
	}
	if len(r.URL.String()) > 2048 {
		return true
	}

	target := strings.ToLower(r.URL.Path) + "?" + strings.ToLower(r.URL.RawQuery)
	for _, p := range probePatterns {
		if strings.Contains(target, p) {
			return true
		}
	}

	// Both forwarding headers plus a deep hop chain points at header forgery.
	if r.Header.Get("X-Real-IP") != "" {
		if xff := r.Header.Get("X-Forwarded-For"); strings.Count(xff, ",") > 5 {
			return true
		}
	}
	return false
}

// FlaggedRequests returns how many requests matched a probe shape.
func (d *Detector) FlaggedRequests() int64 {
	return d.flagged.Load()
}

// ExtractClientIP resolves the client address. Forwarded headers are honored
// only when the direct peer is a trusted proxy; anyone else could forge them.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}

	peerIP := net.ParseIP(peer)
	if peerIP == nil || !d.isTrustedProxy(peerIP) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := r.Header.Get("X-Real-IP"); net.ParseIP(xri) != nil {
		return xri
	}
	return peer
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// AddTrustedProxy extends the trusted proxy set, for deployments behind a
// load balancer outside the private ranges.
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}
