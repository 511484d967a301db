package goadsio

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/mrpasztoradam/goadsio/internal/ams"
)

// Endpoint is a parsed ads:// URL.
type Endpoint struct {
	Host    string
	TCPPort int
	Target  ams.Addr
}

// TCPAddress returns host:port for dialing.
func (e Endpoint) TCPAddress() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.TCPPort))
}

// DefaultTCPPort reports whether the endpoint uses the standard ADS TCP port.
func (e Endpoint) DefaultTCPPort() bool {
	return e.TCPPort == ams.DefaultTCPPort
}

func (e Endpoint) String() string {
	return fmt.Sprintf("ads://%s/%s", e.TCPAddress(), e.Target)
}

// ResolveFunc maps a host name to an IPv4 address.
type ResolveFunc func(ctx context.Context, host string) (net.IP, error)

func defaultResolve(ctx context.Context, host string) (net.IP, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	for _, a := range addrs {
		if ip4 := a.IP.To4(); ip4 != nil {
			return ip4, nil
		}
	}
	return nil, fmt.Errorf("no IPv4 address for %s", host)
}

// ParseAddress parses ads://<host>[:<tcp-port>]/[<netid>]:<ams-port>.
//
// A four-octet netid is extended with .1.1. When the netid is omitted the
// host is resolved and its IPv4 address extended with .1.1.
func ParseAddress(rawURL string) (Endpoint, error) {
	return parseAddress(context.Background(), rawURL, defaultResolve)
}

func parseAddress(ctx context.Context, rawURL string, resolve ResolveFunc) (Endpoint, error) {
	invalid := func(format string, args ...any) (Endpoint, error) {
		return Endpoint{}, newAPIError("parse address", fmt.Errorf("%w: %s", ErrInvalidAddress, fmt.Sprintf(format, args...)))
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return invalid("%v", err)
	}
	if u.Scheme != "ads" {
		return invalid("unsupported scheme %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return invalid("missing host in %q", rawURL)
	}

	tcpPort := ams.DefaultTCPPort
	if p := u.Port(); p != "" {
		tcpPort, err = strconv.Atoi(p)
		if err != nil || tcpPort < 1 || tcpPort > 65535 {
			return invalid("bad TCP port %q", p)
		}
	}

	path := strings.TrimPrefix(u.Path, "/")
	i := strings.LastIndex(path, ":")
	if i < 0 {
		return invalid("missing AMS port in %q", rawURL)
	}
	netIDPart, portPart := path[:i], path[i+1:]

	amsPort, err := strconv.Atoi(portPart)
	if err != nil || amsPort < 1 || amsPort > 65535 {
		return invalid("bad AMS port %q", portPart)
	}

	var netID ams.NetID
	switch {
	case netIDPart == "":
		if resolve == nil {
			resolve = defaultResolve
		}
		ip, err := resolve(ctx, host)
		if err != nil {
			return invalid("resolve %s: %v", host, err)
		}
		ip4 := ip.To4()
		if ip4 == nil {
			return invalid("%s did not resolve to IPv4", host)
		}
		netID = ams.NetIDFromIPv4([4]byte(ip4))
	case strings.Count(netIDPart, ".") == 3:
		netID, err = ams.ParseNetID(netIDPart + ".1.1")
	default:
		netID, err = ams.ParseNetID(netIDPart)
	}
	if err != nil {
		return invalid("%v", err)
	}

	return Endpoint{
		Host:    host,
		TCPPort: tcpPort,
		Target:  ams.Addr{NetID: netID, Port: ams.Port(amsPort)},
	}, nil
}
