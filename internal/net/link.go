package net

import (
	"fmt"
	"net"
	"strings"

	"github.com/pkg/errors"
)

// ShareLink builds the link a host hands out, e.g. mapsketch://10.0.0.4:8888.
func ShareLink(scheme, host string, port int) string {
	return scheme + net.JoinHostPort(host, fmt.Sprint(port))
}

// IsLink reports whether arg looks like a share link for scheme.
func IsLink(scheme, arg string) bool {
	return strings.HasPrefix(arg, scheme)
}

// ParseLink turns a share link into the websocket URL to dial.
func ParseLink(scheme, link string) (string, error) {
	if !IsLink(scheme, link) {
		return "", errors.Errorf("link %q does not start with %s", link, scheme)
	}
	addr := strings.TrimSuffix(strings.TrimPrefix(link, scheme), "/")
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return "", errors.Wrapf(err, "link %q", link)
	}
	return "ws://" + addr + WSPath, nil
}
