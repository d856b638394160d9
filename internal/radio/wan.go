// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package radio

import (
	"net"
	"sort"
	"strings"
)

// Link is the subset of an interface the daemon cares about.
type Link struct {
	Name     string
	Up       bool
	Loopback bool
	Addrs    []net.IP
}

// LinkLister returns the current interfaces.
type LinkLister func() ([]Link, error)

// SystemLinks lists the host interfaces.
func SystemLinks() ([]Link, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]Link, 0, len(ifaces))
	for _, iface := range ifaces {
		l := Link{
			Name:     iface.Name,
			Up:       iface.Flags&net.FlagUp != 0,
			Loopback: iface.Flags&net.FlagLoopback != 0,
		}
		addrs, err := iface.Addrs()
		if err == nil {
			for _, a := range addrs {
				if ipn, ok := a.(*net.IPNet); ok {
					l.Addrs = append(l.Addrs, ipn.IP)
				}
			}
		}
		out = append(out, l)
	}
	return out, nil
}

// FindWAN returns the first up, non-loopback interface other than exclude
// that carries a routable unicast address.
func FindWAN(links []Link, exclude string) (string, bool) {
	for _, l := range links {
		if !l.Up || l.Loopback || l.Name == exclude {
			continue
		}
		for _, ip := range l.Addrs {
			if ip.IsGlobalUnicast() {
				return l.Name, true
			}
		}
	}
	return "", false
}

// Fingerprint summarises the link table so changes can be detected cheaply.
func Fingerprint(links []Link) string {
	parts := make([]string, 0, len(links))
	for _, l := range links {
		addrs := make([]string, 0, len(l.Addrs))
		for _, ip := range l.Addrs {
			addrs = append(addrs, ip.String())
		}
		sort.Strings(addrs)
		state := "down"
		if l.Up {
			state = "up"
		}
		parts = append(parts, l.Name+":"+state+":"+strings.Join(addrs, ","))
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}
