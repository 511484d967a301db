package httpapi

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/mrpasztoradam/goadsio"
	"github.com/mrpasztoradam/goadsio/internal/ams"
)

// MaxReadLength caps the size of a single memory read.
const MaxReadLength = 64 * 1024

// MaxBodySize caps a write request body: MaxReadLength bytes hex encoded
// plus the JSON envelope.
const MaxBodySize = 2*MaxReadLength + 1024

// PLC is the part of *goadsio.Client the bridge uses.
type PLC interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Read(ctx context.Context, address, length uint32) ([]byte, error)
	Write(ctx context.Context, address uint32, data []byte) error
	State() goadsio.State
	DeviceInfo() goadsio.DeviceInfo
	Endpoint() goadsio.Endpoint
	LocalAddr() ams.Addr
}

// Bridge serialises HTTP requests onto one PLC session and shapes the
// JSON responses.
type Bridge struct {
	mu        sync.Mutex
	plc       PLC
	startTime time.Time
}

// NewBridge creates a bridge over plc.
func NewBridge(plc PLC) *Bridge {
	return &Bridge{
		plc:       plc,
		startTime: time.Now(),
	}
}

// Info connects if needed and returns the target description.
func (b *Bridge) Info(ctx context.Context) (*InfoResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.plc.Connect(ctx); err != nil {
		return nil, err
	}

	ep := b.plc.Endpoint()
	info := b.plc.DeviceInfo()
	return &InfoResponse{
		URL:          ep.String(),
		Host:         ep.Host,
		TCPPort:      ep.TCPPort,
		AMSNetID:     ep.Target.NetID.String(),
		AMSPort:      uint16(ep.Target.Port),
		DeviceName:   info.Name,
		MajorVersion: info.MajorVersion,
		MinorVersion: info.MinorVersion,
		VersionBuild: info.VersionBuild,
		Version:      fmt.Sprintf("%d.%d.%d", info.MajorVersion, info.MinorVersion, info.VersionBuild),
	}, nil
}

// Status reports the session state.
func (b *Bridge) Status() *StatusResponse {
	state := b.plc.State()

	var local string
	if addr := b.plc.LocalAddr(); addr != (ams.Addr{}) {
		local = addr.String()
	}

	return &StatusResponse{
		State:          state.String(),
		Connected:      state == goadsio.StateConnected,
		LocalAddress:   local,
		LibraryVersion: goadsio.Version(),
		ServerUptime:   time.Since(b.startTime).Round(time.Second).String(),
		Timestamp:      time.Now(),
	}
}

// Connect opens the session.
func (b *Bridge) Connect(ctx context.Context) (*ConnectResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.plc.Connect(ctx); err != nil {
		return nil, err
	}
	return &ConnectResponse{Success: true, State: b.plc.State().String()}, nil
}

// Disconnect closes the session.
func (b *Bridge) Disconnect() *ConnectResponse {
	b.mu.Lock()
	defer b.mu.Unlock()

	_ = b.plc.Disconnect()
	return &ConnectResponse{Success: true, State: b.plc.State().String()}
}

// ReadMemory reads length bytes at address.
func (b *Bridge) ReadMemory(ctx context.Context, address, length uint32) (*MemoryResponse, error) {
	if length > MaxReadLength {
		return nil, NewInvalidRequestError(fmt.Sprintf("length %d exceeds maximum %d", length, MaxReadLength))
	}

	b.mu.Lock()
	data, err := b.plc.Read(ctx, address, length)
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return &MemoryResponse{
		Address: address,
		Length:  length,
		Data:    hex.EncodeToString(data),
	}, nil
}

// WriteMemory decodes hexData and writes it at address.
func (b *Bridge) WriteMemory(ctx context.Context, address uint32, hexData string) (*WriteMemoryResponse, error) {
	data, err := hex.DecodeString(hexData)
	if err != nil {
		return nil, NewInvalidRequestError(fmt.Sprintf("data is not valid hex: %v", err))
	}
	if len(data) == 0 {
		return nil, NewInvalidRequestError("data is empty")
	}

	b.mu.Lock()
	err = b.plc.Write(ctx, address, data)
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return &WriteMemoryResponse{
		Success:      true,
		Address:      address,
		BytesWritten: len(data),
	}, nil
}
