package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		ip         string
	}{
		{"ipv4 with port", "192.168.1.100:54321", nil, "192.168.1.100"},
		{"other port same ip", "192.168.1.100:11111", nil, "192.168.1.100"},
		{"ipv6", "[2001:db8::1]:8080", nil, "2001:db8::1"},
		{"no port", "192.168.1.1", nil, "192.168.1.1"},
		{
			name:       "forwarding headers ignored",
			remoteAddr: "203.0.113.50:12345",
			headers:    map[string]string{"X-Real-IP": "10.0.0.1", "X-Forwarded-For": "10.0.0.2, 10.0.0.3"},
			ip:         "203.0.113.50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/login", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			ip, err := GetIP(req)
			require.NoError(t, err)
			assert.Equal(t, tt.ip, ip)
		})
	}
}

func TestGetIPInvalid(t *testing.T) {
	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "not-an-ip:1234"

	_, err := GetIP(req)
	assert.EqualError(t, err, "invalid IP address: not-an-ip")
}
