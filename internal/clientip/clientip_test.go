package clientip

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "transport address only",
			remoteAddr: "8.8.8.8:52000",
			want:       "8.8.8.8",
		},
		{
			name:       "client-ip wins over forwarded-for",
			headers:    map[string]string{"Client-IP": "1.1.1.1", "X-Forwarded-For": "2.2.2.2"},
			remoteAddr: "10.0.0.1:80",
			want:       "1.1.1.1",
		},
		{
			name:       "first forwarded-for segment is trimmed",
			headers:    map[string]string{"X-Forwarded-For": "  41.58.12.34 , 10.0.0.2"},
			remoteAddr: "10.0.0.1:80",
			want:       "41.58.12.34",
		},
		{
			name:       "invalid client-ip falls through",
			headers:    map[string]string{"Client-IP": "bogus", "X-Cluster-Client-IP": "3.3.3.3"},
			remoteAddr: "10.0.0.1:80",
			want:       "3.3.3.3",
		},
		{
			name:       "suspicious header values are skipped",
			headers:    map[string]string{"Client-IP": "127.0.0.1", "X-Forwarded-For": "0.0.0.0", "X-Forwarded": "255.255.255.255"},
			remoteAddr: "5.5.5.5:1234",
			want:       "5.5.5.5",
		},
		{
			name:       "ipv6 header rejected",
			headers:    map[string]string{"Forwarded-For": "2001:db8::1"},
			remoteAddr: "6.6.6.6:1",
			want:       "6.6.6.6",
		},
		{
			name:       "forwarded syntax is not parsed",
			headers:    map[string]string{"Forwarded": "for=7.7.7.7"},
			remoteAddr: "9.9.9.9:1",
			want:       "9.9.9.9",
		},
		{
			name:       "suspicious transport address is still returned raw",
			remoteAddr: "127.0.0.1:8080",
			want:       "127.0.0.1",
		},
		{
			name:       "transport address without port",
			remoteAddr: "4.4.4.4",
			want:       "4.4.4.4",
		},
		{
			name: "nothing available",
			want: Fallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			assert.Equal(t, tt.want, Resolve(h, tt.remoteAddr))
		})
	}
}

func TestResolveWith_CustomOrder(t *testing.T) {
	h := http.Header{}
	h.Set("X-Real-IP", "12.12.12.12")
	h.Set("Client-IP", "1.1.1.1")

	sources := []Source{{Header: "X-Real-IP", Rule: Whole}}
	assert.Equal(t, "12.12.12.12", ResolveWith(sources, h, "10.0.0.1:1"))
}

func TestIsSuspicious(t *testing.T) {
	assert.True(t, IsSuspicious("::1"))
	assert.True(t, IsSuspicious("0.0.0.0"))
	assert.False(t, IsSuspicious("8.8.8.8"))
}
