package clientip

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/seancfoley/ipaddress-go/ipaddr"
)

// Headers checked for the originating address, most trusted first. They are
// only read when the peer is a trusted proxy.
var forwardedHeaders = []string{
	"CF-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
	"X-Client-IP",
}

// Resolver finds the client address of a request. Proxy headers are honored
// only when RemoteAddr falls inside one of the trusted prefixes.
type Resolver struct {
	trusted []*ipaddr.IPAddress
}

// NewResolver parses trusted proxy addresses or CIDR blocks
// ("10.0.0.0/8", "2001:db8::/32", "203.0.113.4").
func NewResolver(trustedProxies []string) (*Resolver, error) {
	r := &Resolver{}
	for _, entry := range trustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		addr, err := ipaddr.NewIPAddressString(entry).ToAddress()
		if err != nil || addr == nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %v", entry, err)
		}
		r.trusted = append(r.trusted, addr.ToPrefixBlock())
	}
	return r, nil
}

// FromRequest returns the normalized client address of r. A zero Resolver
// trusts nobody, so only RemoteAddr counts.
func (res *Resolver) FromRequest(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	if !res.isTrusted(peer) {
		if ip, ok := Normalize(peer); ok {
			return ip
		}
		return peer
	}

	for _, header := range forwardedHeaders {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}
		if header == "X-Forwarded-For" {
			value = res.clientHop(value)
		}
		if ip, ok := Normalize(value); ok {
			return ip
		}
	}

	if ip, ok := Normalize(peer); ok {
		return ip
	}
	return peer
}

func (res *Resolver) isTrusted(raw string) bool {
	if res == nil || len(res.trusted) == 0 {
		return false
	}
	addr := parse(raw)
	if addr == nil {
		return false
	}
	for _, block := range res.trusted {
		if block.Contains(addr) {
			return true
		}
	}
	return false
}

// clientHop walks X-Forwarded-For from the nearest hop and returns the first
// address not owned by a trusted proxy
func (res *Resolver) clientHop(list string) string {
	hops := strings.Split(list, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if !res.isTrusted(hop) {
			return hop
		}
	}
	return strings.TrimSpace(hops[0])
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// parse returns raw as an address, with IPv4-mapped IPv6 reduced to IPv4
func parse(raw string) *ipaddr.IPAddress {
	addr, err := ipaddr.NewIPAddressString(strings.TrimSpace(raw)).ToAddress()
	if err != nil || addr == nil {
		return nil
	}
	if v4 := mappedIPv4(addr); v4 != nil {
		return v4.ToIP()
	}
	return addr
}

// Normalize parses an IPv4 or IPv6 address and returns its canonical form.
// IPv4-mapped IPv6 addresses are reduced to IPv4.
func Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	addr, err := ipaddr.NewIPAddressString(raw).ToAddress()
	if err != nil || addr == nil {
		return "", false
	}
	if v4 := mappedIPv4(addr); v4 != nil {
		return v4.ToCanonicalString(), true
	}
	return addr.ToCanonicalString(), true
}

// IsLoopback reports whether raw is a loopback address
func IsLoopback(raw string) bool {
	addr, err := ipaddr.NewIPAddressString(strings.TrimSpace(raw)).ToAddress()
	if err != nil || addr == nil {
		return false
	}
	if v4 := mappedIPv4(addr); v4 != nil {
		return v4.IsLoopback()
	}
	return addr.IsLoopback()
}

func mappedIPv4(addr *ipaddr.IPAddress) *ipaddr.IPv4Address {
	if !addr.IsIPv6() {
		return nil
	}
	v6 := addr.ToIPv6()
	if !v6.IsIPv4Mapped() {
		return nil
	}
	v4, err := v6.GetEmbeddedIPv4Address()
	if err != nil {
		return nil
	}
	return v4
}
