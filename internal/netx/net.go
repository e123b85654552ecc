// Package netx holds the cheap local connectivity signal: whether the host
// has any network interface that could reach the outside world. Like the
// browser "online" flag it is often wrong in the optimistic direction, so
// callers confirm a positive answer with an active probe.
package netx

import (
	"net"
)

// interfacesFn is a test seam for net.Interfaces.
var interfacesFn = listInterfaces

type iface struct {
	name  string
	flags net.Flags
	addrs []net.Addr
}

func listInterfaces() ([]iface, error) {
	ifs, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]iface, 0, len(ifs))
	for _, i := range ifs {
		addrs, err := i.Addrs()
		if err != nil {
			continue
		}
		out = append(out, iface{name: i.Name, flags: i.Flags, addrs: addrs})
	}
	return out, nil
}

// HasUsableInterface reports whether at least one interface is up, is not a
// loopback and carries a non-link-local unicast address. If the interface
// list cannot be read the answer is true and the probe gets the final word.
func HasUsableInterface() bool {
	ifs, err := interfacesFn()
	if err != nil {
		return true
	}
	for _, i := range ifs {
		if i.flags&net.FlagUp == 0 || i.flags&net.FlagLoopback != 0 {
			continue
		}
		for _, a := range i.addrs {
			ipn, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipn.IP
			if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
				continue
			}
			return true
		}
	}
	return false
}
