// Package transport implements the synchronous AMS request/reply exchange over TCP.
package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"slices"
	"time"

	"github.com/mrpasztoradam/goadsio/internal/ads"
	"github.com/mrpasztoradam/goadsio/internal/ams"
)

var (
	ErrNoData        = errors.New("transport: no data in read")
	ErrWrongFlags    = errors.New("transport: wrong flags in reply header")
	ErrWrongLength   = errors.New("transport: wrong length in reply header")
	ErrWrongInvokeID = errors.New("transport: wrong InvokeID on reply packet")
	ErrShortWrite    = errors.New("transport: short write")
	ErrClosed        = errors.New("transport: connection closed")
)

const readChunk = 4096

// DialFunc opens the underlying stream connection.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Conn owns one TCP connection and performs one exchange at a time.
// It is not safe for concurrent use.
type Conn struct {
	conn    net.Conn
	timeout time.Duration
	chunk   []byte
}

// Dial connects to address. A nil dial uses a net.Dialer bounded by timeout.
func Dial(ctx context.Context, dial DialFunc, address string, timeout time.Duration) (*Conn, error) {
	if dial == nil {
		d := &net.Dialer{Timeout: timeout}
		dial = d.DialContext
	}

	netConn, err := dial(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", address, err)
	}

	return NewConn(netConn, timeout), nil
}

// NewConn wraps an established connection.
func NewConn(netConn net.Conn, timeout time.Duration) *Conn {
	return &Conn{
		conn:    netConn,
		timeout: timeout,
		chunk:   make([]byte, readChunk),
	}
}

// LocalIP returns the IPv4 address the socket is bound to, or nil.
func (c *Conn) LocalIP() net.IP {
	if c.conn == nil {
		return nil
	}
	if addr, ok := c.conn.LocalAddr().(*net.TCPAddr); ok {
		return addr.IP.To4()
	}
	return nil
}

// Close shuts the connection down in both directions and closes it.
// Shutdown errors are ignored.
func (c *Conn) Close() error {
	if c.conn == nil {
		return nil
	}
	if tc, ok := c.conn.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
		_ = tc.CloseRead()
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Exchange sends one request frame and blocks until its reply has fully
// arrived. expLen is the size of the reply data following the 4-byte
// result field. The reply header is validated once, as soon as it is
// available; the returned slice holds the data after the result field.
func (c *Conn) Exchange(ctx context.Context, frame []byte, invokeID, expLen uint32) ([]byte, error) {
	if c.conn == nil {
		return nil, ErrClosed
	}

	if err := c.conn.SetDeadline(c.deadline()); err != nil {
		return nil, fmt.Errorf("transport: set deadline: %w", err)
	}
	nc := c.conn
	stop := context.AfterFunc(ctx, func() {
		_ = nc.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	reply, err := c.exchange(frame, invokeID, expLen)
	if err != nil && ctx.Err() != nil {
		return nil, fmt.Errorf("transport: %w", ctx.Err())
	}
	return reply, err
}

func (c *Conn) exchange(frame []byte, invokeID, expLen uint32) ([]byte, error) {
	n, err := c.conn.Write(frame)
	if err != nil {
		return nil, fmt.Errorf("transport: send: %w", err)
	}
	if n != len(frame) {
		return nil, fmt.Errorf("%w: sent %d of %d bytes", ErrShortWrite, n, len(frame))
	}

	// The buffer grows only once the header has declared the reply size.
	want := ams.HeaderSize + 4 + int(expLen)
	reply := make([]byte, 0, ams.HeaderSize+4)
	checked := false
	var hdr ams.Header

	for len(reply) < want {
		n, err := c.conn.Read(c.chunk)
		if n == 0 {
			if err == nil || errors.Is(err, io.EOF) {
				return nil, ErrNoData
			}
			return nil, fmt.Errorf("transport: receive: %w", err)
		}
		reply = append(reply, c.chunk[:n]...)

		if !checked && len(reply) >= ams.HeaderSize {
			h, herr := checkHeader(reply, invokeID, expLen)
			if herr != nil {
				return nil, herr
			}
			hdr = h
			checked = true
			// Error replies may omit the command data.
			want = ams.HeaderSize + int(hdr.DataLength)
			reply = slices.Grow(reply, want-len(reply))
		}
		if checked && uint32(len(reply)-ams.HeaderSize) > hdr.DataLength {
			return nil, fmt.Errorf("%w: declared %d data bytes, received %d",
				ErrWrongLength, hdr.DataLength, len(reply)-ams.HeaderSize)
		}

		if err != nil && len(reply) < want {
			if errors.Is(err, io.EOF) {
				return nil, ErrNoData
			}
			return nil, fmt.Errorf("transport: receive: %w", err)
		}
	}

	if result := ads.Error(binary.LittleEndian.Uint32(reply[ams.HeaderSize : ams.HeaderSize+4])); result.IsError() {
		return nil, fmt.Errorf("transport: reply result: %w", result)
	}
	if uint64(hdr.DataLength) != 4+uint64(expLen) {
		return nil, fmt.Errorf("%w: declared %d data bytes, expected %d",
			ErrWrongLength, hdr.DataLength, 4+uint64(expLen))
	}

	return reply[ams.HeaderSize+4:], nil
}

// checkHeader validates a reply header against the outstanding request.
func checkHeader(reply []byte, invokeID, expLen uint32) (ams.Header, error) {
	tcp, hdr, err := ams.UnpackHeader(reply)
	if err != nil {
		return hdr, fmt.Errorf("transport: %w", err)
	}

	if hdr.StateFlags != ams.StateFlagsTCPResponse {
		return hdr, fmt.Errorf("%w: 0x%04x", ErrWrongFlags, hdr.StateFlags)
	}

	received := uint32(len(reply) - ams.HeaderSize)
	if tcp.Length != ams.AMSHeaderSize+hdr.DataLength || received > hdr.DataLength {
		return hdr, fmt.Errorf("%w: declared %d data bytes (frame %d), received %d",
			ErrWrongLength, hdr.DataLength, tcp.Length, received)
	}

	if code := ads.Error(hdr.ErrorCode); code.IsError() {
		return hdr, fmt.Errorf("transport: reply header: %w", code)
	}

	if hdr.InvokeID != invokeID {
		return hdr, fmt.Errorf("%w: sent %d, got %d", ErrWrongInvokeID, invokeID, hdr.InvokeID)
	}

	if hdr.DataLength < 4 || uint64(hdr.DataLength) > 4+uint64(expLen) {
		return hdr, fmt.Errorf("%w: declared %d data bytes, expected %d",
			ErrWrongLength, hdr.DataLength, 4+uint64(expLen))
	}

	return hdr, nil
}

// deadline bounds one exchange by the configured timeout. Context
// cancellation is applied separately so its error can be reported.
func (c *Conn) deadline() time.Time {
	if c.timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.timeout)
}
