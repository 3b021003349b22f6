package server

import (
	"net"
	"slices"
	"testing"
)

func TestBannerURLs(t *testing.T) {
	ifaces := []net.Addr{
		&net.IPNet{IP: net.ParseIP("127.0.0.1"), Mask: net.CIDRMask(8, 32)},
		&net.IPNet{IP: net.ParseIP("192.168.0.229"), Mask: net.CIDRMask(24, 32)},
		&net.IPNet{IP: net.ParseIP("169.254.10.1"), Mask: net.CIDRMask(16, 32)},
		&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)},
		&net.IPNet{IP: net.ParseIP("10.0.0.7"), Mask: net.CIDRMask(8, 32)},
	}

	tests := []struct {
		name     string
		addr     net.Addr
		acmeHost string
		want     []string
	}{
		{
			name: "wildcard listener",
			addr: &net.TCPAddr{IP: net.IPv4zero, Port: 8080},
			want: []string{
				"https://localhost:8080",
				"https://192.168.0.229:8080",
				"https://10.0.0.7:8080",
			},
		},
		{
			name: "unspecified IPv6 listener",
			addr: &net.TCPAddr{IP: net.IPv6unspecified, Port: 8080},
			want: []string{
				"https://localhost:8080",
				"https://192.168.0.229:8080",
				"https://10.0.0.7:8080",
			},
		},
		{
			name: "specific host",
			addr: &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9000},
			want: []string{"https://127.0.0.1:9000"},
		},
		{
			name:     "acme host first",
			addr:     &net.TCPAddr{IP: net.ParseIP("10.0.0.7"), Port: 443},
			acmeHost: "files.example.com",
			want:     []string{"https://files.example.com:443", "https://10.0.0.7:443"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bannerURLs(tt.addr, ifaces, tt.acmeHost)
			if !slices.Equal(got, tt.want) {
				t.Errorf("bannerURLs = %v, want %v", got, tt.want)
			}
		})
	}
}
