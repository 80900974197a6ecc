package ratelimit

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
)

// UnknownClient is the shared bucket for clients that cannot be identified.
const UnknownClient = "unknown"

// proxyHeaders are consulted in order, and only for requests from a trusted proxy.
var proxyHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// TrustedProxies is a set of proxy addresses and networks allowed to report client IPs.
type TrustedProxies struct {
	prefixes []netip.Prefix
}

// ParseTrustedProxies parses addresses or CIDRs. Blank entries are ignored.
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	var tp TrustedProxies
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return TrustedProxies{}, err //nolint:wrapcheck // caller adds context
			}
			tp.prefixes = append(tp.prefixes, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return TrustedProxies{}, err //nolint:wrapcheck // caller adds context
		}
		a = a.Unmap()
		tp.prefixes = append(tp.prefixes, netip.PrefixFrom(a, a.BitLen()))
	}
	return tp, nil
}

// Contains reports whether addr belongs to a trusted proxy.
func (tp TrustedProxies) Contains(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range tp.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Empty reports whether no proxies are trusted.
func (tp TrustedProxies) Empty() bool { return len(tp.prefixes) == 0 }

// ClientIdentity derives the rate-limit identity of a request.
// Proxy headers are honoured only when the direct peer is a trusted proxy and the
// reported address is public. Otherwise the peer address is used, then the
// authenticated user, then the shared unknown bucket.
func ClientIdentity(remoteAddr string, h http.Header, userID int64, trusted TrustedProxies) string {
	peer, peerOK := parseRemote(remoteAddr)

	if peerOK && trusted.Contains(peer) {
		for _, name := range proxyHeaders {
			v := h.Get(name)
			if v == "" {
				continue
			}
			if i := strings.IndexByte(v, ','); i >= 0 {
				v = v[:i]
			}
			if a, err := netip.ParseAddr(strings.TrimSpace(v)); err == nil && isPublic(a) {
				return a.Unmap().String()
			}
		}
	}

	if peerOK {
		return peer.String()
	}
	if userID > 0 {
		return "user_" + strconv.FormatInt(userID, 10)
	}
	return UnknownClient
}

func parseRemote(remoteAddr string) (netip.Addr, bool) {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	a, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return a.Unmap(), true
}

func isPublic(a netip.Addr) bool {
	a = a.Unmap()
	if !a.IsValid() || a.IsUnspecified() || a.IsLoopback() || a.IsPrivate() ||
		a.IsLinkLocalUnicast() || a.IsLinkLocalMulticast() || a.IsMulticast() {
		return false
	}
	return !reserved(a)
}

var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("240.0.0.0/4"),
}

func reserved(a netip.Addr) bool {
	for _, p := range reservedPrefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
