// Package route asks a TwinCAT runtime to register a route back to this host
// over the ADS UDP service port.
package route

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/mrpasztoradam/goadsio/internal/ams"
)

const (
	magic           uint32 = 0x71146603
	serviceAddRoute uint32 = 6
	itemCount       uint32 = 5
)

// Item designators of an add-route request.
const (
	designatorPassword  uint16 = 0x02
	designatorHost      uint16 = 0x05
	designatorNetID     uint16 = 0x07
	designatorRouteName uint16 = 0x0C
	designatorUsername  uint16 = 0x0D
)

const (
	routeNameSize = 25
	hostSize      = 16
	username      = "Administrator\x00"

	// DefaultDelay gives the runtime time to store the route before the
	// caller reconnects.
	DefaultDelay = 500 * time.Millisecond
)

// Passwords are tried in order; runtime versions differ in their default.
var Passwords = []string{"", "1"}

// BuildAddRoute encodes one add-route datagram announcing local.
func BuildAddRoute(local ams.Addr, localIP, password string) []byte {
	buf := make([]byte, 0, 128)
	buf = binary.LittleEndian.AppendUint32(buf, magic)
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	buf = binary.LittleEndian.AppendUint32(buf, serviceAddRoute)
	buf = binary.LittleEndian.AppendUint64(buf, local.Uint64())
	buf = binary.LittleEndian.AppendUint32(buf, itemCount)

	buf = appendItem(buf, designatorRouteName, fixed("zapf-"+localIP, routeNameSize))
	buf = appendItem(buf, designatorNetID, local.NetID[:])
	buf = appendItem(buf, designatorUsername, []byte(username))
	buf = appendItem(buf, designatorPassword, []byte(password+"\x00"))
	buf = appendItem(buf, designatorHost, fixed(localIP, hostSize))
	return buf
}

func appendItem(buf []byte, designator uint16, value []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, designator)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(value)))
	return append(buf, value...)
}

// fixed pads s with NUL bytes or truncates it to n bytes.
func fixed(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

// Logger is the subset of the client logger used here.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Repairer sends add-route requests. It never waits for an answer.
type Repairer struct {
	Port   int
	Delay  time.Duration
	Logger Logger
}

// NewRepairer returns a Repairer for the standard UDP port and delay.
func NewRepairer(logger Logger) *Repairer {
	return &Repairer{
		Port:   ams.DefaultUDPPort,
		Delay:  DefaultDelay,
		Logger: logger,
	}
}

// Repair sends one datagram per candidate password to host and then waits
// Delay, or until ctx is done.
func (r *Repairer) Repair(ctx context.Context, host string, local ams.Addr, localIP string) error {
	addr := net.JoinHostPort(host, strconv.Itoa(r.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp4", addr)
	if err != nil {
		return fmt.Errorf("route: dial %s: %w", addr, err)
	}
	defer conn.Close()

	if r.Logger != nil {
		r.Logger.Info("requesting ADS route", "address", addr, "route", "zapf-"+localIP, "netid", local.NetID.String())
	}

	for _, pw := range Passwords {
		if _, err := conn.Write(BuildAddRoute(local, localIP, pw)); err != nil {
			return fmt.Errorf("route: send to %s: %w", addr, err)
		}
	}

	t := time.NewTimer(r.Delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("route: %w", ctx.Err())
	}
}
