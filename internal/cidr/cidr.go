// Package cidr implements IPv4 range matching used by every allow/deny table.
package cidr

import (
	"encoding/binary"
	"net"
	"strconv"
	"strings"
)

// PrivateRanges are the private and reserved IPv4 blocks that are never sent
// to an external geo provider.
var PrivateRanges = []string{
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"0.0.0.0/8",      // this network
	"127.0.0.0/8",    // localhost
	"169.254.0.0/16", // link-local
	"240.0.0.0/4",    // reserved
}

// ParseIPv4 converts a dotted-quad address to its 32-bit value.
// IPv6 literals (including IPv4-mapped forms) are rejected.
func ParseIPv4(s string) (uint32, bool) {
	if s == "" || strings.Contains(s, ":") {
		return 0, false
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return 0, false
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, false
	}
	return binary.BigEndian.Uint32(v4), true
}

// IsIPv4 reports whether s is a syntactically valid IPv4 address.
func IsIPv4(s string) bool {
	_, ok := ParseIPv4(s)
	return ok
}

// IsValid reports whether s is an IPv4 address or an IPv4 CIDR block with a
// prefix length between 0 and 32.
func IsValid(s string) bool {
	_, _, ok := parseRange(s)
	return ok
}

// InRange reports whether ip falls inside cidrOrIP. A value without a prefix
// length is treated as /32. Malformed input, IPv6 and out-of-range prefixes
// yield false.
func InRange(ip, cidrOrIP string) bool {
	addr, ok := ParseIPv4(ip)
	if !ok {
		return false
	}
	base, mask, ok := parseRange(cidrOrIP)
	if !ok {
		return false
	}
	return addr&mask == base&mask
}

// InAny reports whether ip matches any of the given ranges.
func InAny(ip string, ranges []string) bool {
	for _, r := range ranges {
		if InRange(ip, r) {
			return true
		}
	}
	return false
}

// IsPrivate reports whether ip is inside one of PrivateRanges. Invalid
// addresses are reported as private so they are never looked up remotely.
func IsPrivate(ip string) bool {
	if !IsIPv4(ip) {
		return true
	}
	return InAny(ip, PrivateRanges)
}

func parseRange(s string) (base, mask uint32, ok bool) {
	addr, prefix := s, "32"
	if i := strings.IndexByte(s, '/'); i >= 0 {
		addr, prefix = s[:i], s[i+1:]
	}
	n, err := strconv.Atoi(prefix)
	if err != nil || n < 0 || n > 32 || prefix == "" || prefix[0] == '+' || prefix[0] == '-' {
		return 0, 0, false
	}
	base, ok = ParseIPv4(addr)
	if !ok {
		return 0, 0, false
	}
	return base, prefixMask(n), true
}

// prefixMask inverts the host wildcard (2^(32-n) - 1).
func prefixMask(n int) uint32 {
	if n == 0 {
		return 0
	}
	wildcard := uint32(1)<<(32-uint(n)) - 1
	return ^wildcard
}
