package net

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/pkg/errors"
)

const serviceType = "_mapsketch._tcp"

// Advertise announces a hosted session on the LAN. Call Shutdown on the
// returned server when the session ends.
func Advertise(port int) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, errors.Wrap(err, "could not get hostname")
	}

	service, err := mdns.NewMDNSService(host, serviceType, "", "", port, []net.IP{firstIPv4()}, []string{"MapSketch"})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create mDNS service")
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, errors.Wrap(err, "failed to start mDNS server")
	}
	return server, nil
}

// ErrNoSession is returned by Discover when no host answered in time.
var ErrNoSession = errors.New("no MapSketch session found")

// Discover browses the LAN and returns the host:port of the first session found.
func Discover(timeout time.Duration) (string, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	found := firstSession(entries)

	params := mdns.DefaultParams(serviceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	if err != nil {
		return "", errors.Wrap(err, "mdns query")
	}

	addr, ok := <-found
	if !ok {
		return "", ErrNoSession
	}
	return addr, nil
}

// firstSession drains entries and yields the address of the first usable
// one. The returned channel is closed once entries is closed and drained.
func firstSession(entries <-chan *mdns.ServiceEntry) <-chan string {
	found := make(chan string, 1)
	go func() {
		defer close(found)
		sent := false
		for e := range entries {
			if sent || e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			found <- net.JoinHostPort(e.AddrV4.String(), strconv.Itoa(e.Port))
			sent = true
		}
	}()
	return found
}
