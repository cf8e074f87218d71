package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	usertoken "github.com/tokenmarket/usertoken"
	"github.com/tokenmarket/usertoken/http/middleware"
)

func TestGetIPAddress(t *testing.T) {
	tcs := []struct {
		name     string
		header   string
		value    string
		expected string
	}{
		{"Empty", "", "", "0.0.0.0"},
		{"ForwardedFor", "X-Forwarded-For", "203.0.113.7", "203.0.113.7"},
		{"RealIp", "X-Real-Ip", "203.0.113.7", "203.0.113.7"},
		{"SkipsPrivate", "X-Forwarded-For", "203.0.113.7, 10.1.2.3", "203.0.113.7"},
		{"RightmostPublic", "X-Forwarded-For", "198.51.100.1, 203.0.113.7", "203.0.113.7"},
		{"AllPrivate", "X-Forwarded-For", "10.1.2.3, 192.168.0.1", "0.0.0.0"},
		{"Garbage", "X-Forwarded-For", "not-an-ip", "0.0.0.0"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			hm := http.Header{}
			if tc.header != "" {
				hm.Set(tc.header, tc.value)
			}

			// Act + Assert
			require.Equal(t, tc.expected, middleware.GetIPAddress(hm))
		})
	}
}

func TestInjectIPAddress(t *testing.T) {
	// Arrange
	var got string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = r.Context().Value(usertoken.IpAddrKey).(string)
	})

	r := httptest.NewRequest(http.MethodGet, "https://example.com", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	w := httptest.NewRecorder()

	// Act
	middleware.InjectIPAddress()(handler).ServeHTTP(w, r)

	// Assert
	require.Equal(t, "203.0.113.7", got)
}
