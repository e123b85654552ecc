package netx

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func stubInterfaces(t *testing.T, ifs []iface, err error) {
	t.Helper()
	orig := interfacesFn
	interfacesFn = func() ([]iface, error) { return ifs, err }
	t.Cleanup(func() { interfacesFn = orig })
}

func ipNet(s string) *net.IPNet {
	return &net.IPNet{IP: net.ParseIP(s), Mask: net.CIDRMask(24, 32)}
}

func TestHasUsableInterface(t *testing.T) {
	tests := []struct {
		name string
		ifs  []iface
		err  error
		want bool
	}{
		{
			name: "up ethernet with private address",
			ifs:  []iface{{name: "eth0", flags: net.FlagUp, addrs: []net.Addr{ipNet("192.168.1.20")}}},
			want: true,
		},
		{
			name: "only loopback",
			ifs:  []iface{{name: "lo", flags: net.FlagUp | net.FlagLoopback, addrs: []net.Addr{ipNet("127.0.0.1")}}},
			want: false,
		},
		{
			name: "interface down",
			ifs:  []iface{{name: "wlan0", flags: 0, addrs: []net.Addr{ipNet("10.0.0.5")}}},
			want: false,
		},
		{
			name: "link-local only",
			ifs:  []iface{{name: "eth0", flags: net.FlagUp, addrs: []net.Addr{ipNet("169.254.10.1")}}},
			want: false,
		},
		{
			name: "no interfaces",
			want: false,
		},
		{
			name: "listing fails, defer to probe",
			err:  errors.New("permission denied"),
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubInterfaces(t, tt.ifs, tt.err)
			assert.Equal(t, tt.want, HasUsableInterface())
		})
	}
}
