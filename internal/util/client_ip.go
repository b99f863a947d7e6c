package util

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"
)

// TrustedProxies is the set of peer prefixes whose X-Forwarded-For header is
// believed. A nil set trusts nobody.
type TrustedProxies struct {
	prefixes []netip.Prefix
}

// NewTrustedProxies parses CIDRs or bare addresses. It returns nil when
// entries is empty.
func NewTrustedProxies(entries []string) (*TrustedProxies, error) {
	var prefixes []netip.Prefix
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	if len(prefixes) == 0 {
		return nil, nil
	}
	return &TrustedProxies{prefixes: prefixes}, nil
}

func (t *TrustedProxies) trusts(addr netip.Addr) bool {
	if t == nil || !addr.IsValid() {
		return false
	}
	for _, p := range t.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP resolves the caller address. X-Forwarded-For is walked right to
// left only when the direct peer is a trusted proxy; the first untrusted hop
// wins.
func ClientIP(r *http.Request, trusted *TrustedProxies) string {
	peer, err := netip.ParseAddrPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		addr, perr := netip.ParseAddr(strings.TrimSpace(r.RemoteAddr))
		if perr != nil {
			return strings.TrimSpace(r.RemoteAddr)
		}
		peer = netip.AddrPortFrom(addr, 0)
	}
	client := peer.Addr().Unmap()
	if !trusted.trusts(client) {
		return client.String()
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			continue
		}
		client = hop.Unmap()
		if !trusted.trusts(client) {
			break
		}
	}
	return client.String()
}

// RateLimitKey scopes generation quota to one kind of generation, one
// workspace and one client address.
func RateLimitKey(r *http.Request, trusted *TrustedProxies, kind string) string {
	return kind + ":" + WorkspaceFromRequest(r) + ":" + ClientIP(r, trusted)
}
