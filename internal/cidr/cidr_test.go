package cidr

import (
	"encoding/binary"
	"math/rand"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInRange(t *testing.T) {
	tests := []struct {
		name  string
		ip    string
		cidr  string
		match bool
	}{
		{"inside /16", "41.58.12.34", "41.58.0.0/16", true},
		{"outside /16", "41.59.12.34", "41.58.0.0/16", false},
		{"exact implicit /32", "203.0.113.5", "203.0.113.5", true},
		{"different implicit /32", "203.0.113.6", "203.0.113.5", false},
		{"explicit /32", "8.8.8.8", "8.8.8.8/32", true},
		{"/0 matches all", "1.2.3.4", "0.0.0.0/0", true},
		{"/12 boundary low", "105.112.0.0", "105.112.0.0/12", true},
		{"/12 boundary high", "105.127.255.255", "105.112.0.0/12", true},
		{"/12 just outside", "105.128.0.0", "105.112.0.0/12", false},
		{"unaligned base", "192.0.70.1", "192.0.64.7/18", true},
		{"malformed ip", "not-an-ip", "10.0.0.0/8", false},
		{"short ip", "10.0.0", "10.0.0.0/8", false},
		{"malformed range", "10.0.0.1", "10.0.0/8", false},
		{"prefix too large", "10.0.0.1", "10.0.0.0/33", false},
		{"negative prefix", "10.0.0.1", "10.0.0.0/-1", false},
		{"empty prefix", "10.0.0.1", "10.0.0.0/", false},
		{"non-numeric prefix", "10.0.0.1", "10.0.0.0/ab", false},
		{"ipv6 ip", "::1", "0.0.0.0/0", false},
		{"ipv6 range", "10.0.0.1", "fc00::/7", false},
		{"ipv4-mapped ipv6", "::ffff:10.0.0.1", "10.0.0.0/8", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, InRange(tt.ip, tt.cidr))
		})
	}
}

func TestInRange_TopBitsProperty(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		ipVal := r.Uint32()
		baseVal := r.Uint32()
		n := r.Intn(33)
		if r.Intn(2) == 0 {
			// force a shared prefix half of the time
			baseVal = ipVal ^ (r.Uint32() >> uint(n))
			if n == 32 {
				baseVal = ipVal
			}
		}
		ip := toString(ipVal)
		base := toString(baseVal)

		var want bool
		if n == 0 {
			want = true
		} else {
			want = ipVal>>(32-uint(n)) == baseVal>>(32-uint(n))
		}
		got := InRange(ip, base+"/"+itoa(n))
		require.Equal(t, want, got, "ip=%s base=%s/%d", ip, base, n)
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("192.168.1.1"))
	assert.True(t, IsValid("192.168.1.0/24"))
	assert.True(t, IsValid("0.0.0.0/0"))
	assert.False(t, IsValid("192.168.1.0/40"))
	assert.False(t, IsValid("2001:db8::/32"))
	assert.False(t, IsValid("example.com"))
	assert.False(t, IsValid(""))
}

func TestIsPrivate(t *testing.T) {
	assert.True(t, IsPrivate("10.1.2.3"))
	assert.True(t, IsPrivate("172.20.0.1"))
	assert.True(t, IsPrivate("192.168.0.10"))
	assert.True(t, IsPrivate("127.0.0.1"))
	assert.True(t, IsPrivate("169.254.1.1"))
	assert.True(t, IsPrivate("250.0.0.1"))
	assert.True(t, IsPrivate("garbage"))
	assert.False(t, IsPrivate("8.8.8.8"))
	assert.False(t, IsPrivate("41.58.12.34"))
}

func toString(v uint32) string {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return net.IP(b).String()
}

func itoa(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}
