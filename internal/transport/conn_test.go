package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"net"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrpasztoradam/goadsio/internal/ads"
	"github.com/mrpasztoradam/goadsio/internal/ams"
)

var (
	testTarget = ams.Addr{NetID: ams.NetID{5, 1, 2, 3, 1, 1}, Port: 851}
	testSource = ams.Addr{NetID: ams.NetID{127, 0, 0, 1, 1, 1}, Port: ams.PortLocalClient}
)

type reply struct {
	flags     uint16
	errCode   uint32
	invokeID  uint32
	result    uint32
	data      []byte
	declared  *uint32 // overrides the AMS data length
	chunkSize int     // splits the write when > 0
}

func (r reply) bytes() []byte {
	body := make([]byte, 4+len(r.data))
	binary.LittleEndian.PutUint32(body[0:4], r.result)
	copy(body[4:], r.data)

	dataLen := uint32(len(body))
	if r.declared != nil {
		dataLen = *r.declared
	}

	pkt := ams.Packet{
		TCPHeader: ams.TCPHeader{Length: ams.AMSHeaderSize + dataLen},
		Header: ams.Header{
			Target:     testSource,
			Source:     testTarget,
			CommandID:  uint16(ads.CmdRead),
			StateFlags: r.flags,
			DataLength: dataLen,
			ErrorCode:  r.errCode,
			InvokeID:   r.invokeID,
		},
		Data: body,
	}
	buf, _ := pkt.MarshalBinary()
	return buf
}

func u32(v uint32) *uint32 { return &v }

// readRequest reads one request frame from the server side of a pipe.
func readRequest(conn net.Conn) (ams.Header, []byte, error) {
	head := make([]byte, ams.HeaderSize)
	if _, err := io.ReadFull(conn, head); err != nil {
		return ams.Header{}, nil, err
	}

	_, hdr, err := ams.UnpackHeader(head)
	if err != nil {
		return hdr, nil, err
	}

	payload := make([]byte, hdr.DataLength)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return hdr, nil, err
	}
	return hdr, payload, nil
}

// serveOnce answers a single request with the reply built by fn.
func serveOnce(server net.Conn, fn func(hdr ams.Header) reply) {
	go func() {
		hdr, _, err := readRequest(server)
		if err != nil {
			return
		}
		r := fn(hdr)
		buf := r.bytes()
		if r.chunkSize <= 0 {
			_, _ = server.Write(buf)
			return
		}
		for len(buf) > 0 {
			n := min(r.chunkSize, len(buf))
			_, _ = server.Write(buf[:n])
			buf = buf[n:]
		}
	}()
}

func newPipe(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return NewConn(client, 2*time.Second), server
}

func readFrame(invokeID, length uint32) []byte {
	return ams.PackRequest(uint16(ads.CmdRead), testTarget, testSource, invokeID,
		ads.PackReadPayload(ads.IndexGroupPLCMemory, 0x1000, length))
}

func TestExchangeSuccess(t *testing.T) {
	conn, server := newPipe(t)

	serveOnce(server, func(hdr ams.Header) reply {
		return reply{
			flags:    ams.StateFlagsTCPResponse,
			invokeID: hdr.InvokeID,
			data:     []byte{4, 0, 0, 0, 1, 2, 3, 4},
		}
	})

	data, err := conn.Exchange(context.Background(), readFrame(1, 4), 1, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 0, 0, 0, 1, 2, 3, 4}, data)
}

func TestExchangeAccumulatesPartialReads(t *testing.T) {
	conn, server := newPipe(t)

	serveOnce(server, func(hdr ams.Header) reply {
		return reply{
			flags:     ams.StateFlagsTCPResponse,
			invokeID:  hdr.InvokeID,
			data:      []byte{4, 0, 0, 0, 9, 8, 7, 6},
			chunkSize: 5,
		}
	})

	data, err := conn.Exchange(context.Background(), readFrame(3, 4), 3, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7, 6}, data[4:])
}

func TestExchangeRejectsInvalidReplies(t *testing.T) {
	tests := []struct {
		name    string
		reply   func(invokeID uint32) reply
		wantErr error
		wantADS ads.Error
	}{
		{
			name: "wrong flags",
			reply: func(id uint32) reply {
				return reply{flags: ams.StateFlagsTCPRequest, invokeID: id, data: []byte{4, 0, 0, 0, 1, 2, 3, 4}}
			},
			wantErr: ErrWrongFlags,
		},
		{
			name: "declared length shorter than received",
			reply: func(id uint32) reply {
				return reply{flags: ams.StateFlagsTCPResponse, invokeID: id, data: []byte{4, 0, 0, 0, 1, 2, 3, 4}, declared: u32(6)}
			},
			wantErr: ErrWrongLength,
		},
		{
			name: "declared length longer than expected",
			reply: func(id uint32) reply {
				return reply{flags: ams.StateFlagsTCPResponse, invokeID: id, data: []byte{4, 0, 0, 0, 1, 2, 3, 4}, declared: u32(40)}
			},
			wantErr: ErrWrongLength,
		},
		{
			name: "header error",
			reply: func(id uint32) reply {
				return reply{flags: ams.StateFlagsTCPResponse, invokeID: id, errCode: 0x7}
			},
			wantADS: ads.ErrTargetMachineNotFound,
		},
		{
			name: "wrong invoke id",
			reply: func(id uint32) reply {
				return reply{flags: ams.StateFlagsTCPResponse, invokeID: id + 1, data: []byte{4, 0, 0, 0, 1, 2, 3, 4}}
			},
			wantErr: ErrWrongInvokeID,
		},
		{
			name: "result error",
			reply: func(id uint32) reply {
				return reply{flags: ams.StateFlagsTCPResponse, invokeID: id, result: 0x703, data: []byte{0, 0, 0, 0}}
			},
			wantADS: ads.ErrDeviceInvalidIndexOffset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, server := newPipe(t)
			serveOnce(server, func(hdr ams.Header) reply { return tt.reply(hdr.InvokeID) })

			data, err := conn.Exchange(context.Background(), readFrame(5, 4), 5, 8)
			require.Error(t, err)
			assert.Nil(t, data)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantADS != 0 {
				var adsErr ads.Error
				require.True(t, errors.As(err, &adsErr))
				assert.Equal(t, tt.wantADS, adsErr)
			}
		})
	}
}

func TestExchangeLargeExpectedLength(t *testing.T) {
	conn, server := newPipe(t)

	serveOnce(server, func(hdr ams.Header) reply {
		return reply{flags: ams.StateFlagsTCPResponse, invokeID: hdr.InvokeID, result: 0x703}
	})

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)

	data, err := conn.Exchange(context.Background(), readFrame(1, math.MaxUint32-8), 1, math.MaxUint32)

	runtime.ReadMemStats(&after)

	require.Error(t, err)
	assert.Nil(t, data)
	var adsErr ads.Error
	require.True(t, errors.As(err, &adsErr), "got %v", err)
	assert.Equal(t, ads.ErrDeviceInvalidIndexOffset, adsErr)
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
}

func TestExchangeNoData(t *testing.T) {
	conn, server := newPipe(t)

	go func() {
		_, _, _ = readRequest(server)
		_ = server.Close()
	}()

	_, err := conn.Exchange(context.Background(), readFrame(1, 4), 1, 8)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestExchangeContextCancel(t *testing.T) {
	conn, server := newPipe(t)

	go func() {
		_, _, _ = readRequest(server)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := conn.Exchange(ctx, readFrame(1, 4), 1, 8)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExchangeClosed(t *testing.T) {
	conn, _ := newPipe(t)
	require.NoError(t, conn.Close())

	_, err := conn.Exchange(context.Background(), readFrame(1, 4), 1, 8)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Nil(t, conn.LocalIP())
}

func TestDialLocalIP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err == nil {
			_ = c.Close()
		}
	}()

	conn, err := Dial(context.Background(), nil, ln.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "127.0.0.1", conn.LocalIP().String())
}
