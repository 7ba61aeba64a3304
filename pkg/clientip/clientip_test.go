package clientip

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_FromRequest(t *testing.T) {
	res, err := NewResolver([]string{"127.0.0.1", "10.0.0.0/8", " 2001:db8:ffff::/48 "})
	require.NoError(t, err)

	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "remote addr only",
			remoteAddr: "203.0.113.7:5123",
			want:       "203.0.113.7",
		},
		{
			name:       "untrusted peer headers are ignored",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.9", "CF-Connecting-IP": "198.51.100.2"},
			remoteAddr: "203.0.113.7:5123",
			want:       "203.0.113.7",
		},
		{
			name:       "cloudflare header wins",
			headers:    map[string]string{"CF-Connecting-IP": "198.51.100.2", "X-Forwarded-For": "10.0.0.1"},
			remoteAddr: "127.0.0.1:80",
			want:       "198.51.100.2",
		},
		{
			name:       "nearest untrusted forwarded hop",
			headers:    map[string]string{"X-Forwarded-For": "192.0.2.66, 198.51.100.9, 10.0.0.1, 10.0.0.2"},
			remoteAddr: "10.4.4.4:80",
			want:       "198.51.100.9",
		},
		{
			name:       "spoofed leftmost hop is skipped",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4, 198.51.100.9"},
			remoteAddr: "127.0.0.1:80",
			want:       "198.51.100.9",
		},
		{
			name:       "garbage header falls through",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip", "X-Real-IP": "198.51.100.3"},
			remoteAddr: "127.0.0.1:80",
			want:       "198.51.100.3",
		},
		{
			name:       "ipv6 remote addr",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
		{
			name:       "trusted ipv6 proxy",
			headers:    map[string]string{"X-Real-IP": "198.51.100.4"},
			remoteAddr: "[2001:db8:ffff::7]:443",
			want:       "198.51.100.4",
		},
		{
			name:       "ipv4 mapped peer and header are reduced",
			headers:    map[string]string{"X-Real-IP": "::ffff:192.0.2.10"},
			remoteAddr: "[::ffff:10.0.0.9]:80",
			want:       "192.0.2.10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, res.FromRequest(r))
		})
	}
}

func TestResolver_ZeroValueIgnoresHeaders(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "127.0.0.1:80"
	r.Header.Set("X-Forwarded-For", "198.51.100.9")
	assert.Equal(t, "127.0.0.1", (&Resolver{}).FromRequest(r))
}

func TestNewResolver_Invalid(t *testing.T) {
	_, err := NewResolver([]string{"10.0.0.0/8", "proxy.internal"})
	assert.Error(t, err)

	res, err := NewResolver([]string{"", "  "})
	require.NoError(t, err)
	assert.False(t, res.isTrusted("10.0.0.1"))
}

func TestNormalize(t *testing.T) {
	ip, ok := Normalize(" 192.0.2.1 ")
	assert.True(t, ok)
	assert.Equal(t, "192.0.2.1", ip)

	ip, ok = Normalize("2001:0db8:0000:0000:0000:0000:0000:0001")
	assert.True(t, ok)
	assert.Equal(t, "2001:db8::1", ip)

	_, ok = Normalize("")
	assert.False(t, ok)

	_, ok = Normalize("example.com")
	assert.False(t, ok)
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, IsLoopback("127.0.0.1"))
	assert.True(t, IsLoopback("::1"))
	assert.True(t, IsLoopback("::ffff:127.0.0.1"))
	assert.False(t, IsLoopback("192.0.2.1"))
	assert.False(t, IsLoopback("nope"))
}
