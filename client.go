// Package goadsio is a minimal Beckhoff ADS client that reads and writes
// the %M memory area of a TwinCAT PLC over TCP.
package goadsio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mrpasztoradam/goadsio/internal/ads"
	"github.com/mrpasztoradam/goadsio/internal/ams"
	"github.com/mrpasztoradam/goadsio/internal/route"
	"github.com/mrpasztoradam/goadsio/internal/transport"
)

// DefaultTimeout bounds every socket operation unless WithTimeout is given.
const DefaultTimeout = 5 * time.Second

// MaxReadLength is the largest length a single Read accepts. The reply has
// to fit the 32-bit length fields of the AMS header.
const MaxReadLength = math.MaxUint32 - ams.AMSHeaderSize - 4 - ads.ReadPrefixSize

// State is the session state of a Client.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// StateCallback is invoked on every state transition.
type StateCallback func(oldState, newState State, err error)

// DialFunc opens the TCP connection to the target.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// DeviceInfo represents device information returned by the connect handshake.
type DeviceInfo struct {
	Name         string
	MajorVersion uint8
	MinorVersion uint8
	VersionBuild uint16
}

func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s v%d.%d.%d", d.Name, d.MajorVersion, d.MinorVersion, d.VersionBuild)
}

// Option is a functional option for configuring a Client.
type Option func(*clientConfig) error

type clientConfig struct {
	timeout       time.Duration
	logger        Logger
	metrics       Metrics
	stateCallback StateCallback
	dial          DialFunc
	resolve       ResolveFunc
	routeRepair   bool
	repairDelay   time.Duration
}

// WithTimeout sets the timeout for connects and exchanges (optional).
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) error {
		if timeout <= 0 {
			return fmt.Errorf("goadsio: timeout must be positive")
		}
		c.timeout = timeout
		return nil
	}
}

// WithStateCallback registers fn for state transitions.
func WithStateCallback(fn StateCallback) Option {
	return func(c *clientConfig) error {
		c.stateCallback = fn
		return nil
	}
}

// WithDialer replaces the TCP dialer.
func WithDialer(dial DialFunc) Option {
	return func(c *clientConfig) error {
		c.dial = dial
		return nil
	}
}

// WithResolver replaces the host resolver used when the URL omits the NetID.
func WithResolver(resolve ResolveFunc) Option {
	return func(c *clientConfig) error {
		c.resolve = resolve
		return nil
	}
}

// WithRouteRepair enables or disables the one-shot route repair (default on).
func WithRouteRepair(enabled bool) Option {
	return func(c *clientConfig) error {
		c.routeRepair = enabled
		return nil
	}
}

// WithRouteRepairDelay sets how long to wait after sending the add-route
// request before reconnecting.
func WithRouteRepairDelay(d time.Duration) Option {
	return func(c *clientConfig) error {
		if d < 0 {
			return fmt.Errorf("goadsio: route repair delay must not be negative")
		}
		c.repairDelay = d
		return nil
	}
}

type repairer interface {
	Repair(ctx context.Context, host string, local ams.Addr, localIP string) error
}

// Client is a session with one ADS target. Read and Write connect on
// demand; any failure leaves the session disconnected so the next call
// reconnects. A Client is not safe for concurrent Read/Write calls.
type Client struct {
	cfg      clientConfig
	endpoint Endpoint
	repairer repairer

	state atomic.Int32

	conn       *transport.Conn
	invokeID   uint32
	routeTried bool
	localIP    string

	mu    sync.RWMutex
	local ams.Addr
	info  DeviceInfo
}

// New parses rawURL and returns a disconnected client.
func New(rawURL string, opts ...Option) (*Client, error) {
	cfg := clientConfig{
		timeout:     DefaultTimeout,
		logger:      DefaultLogger,
		metrics:     DefaultMetrics,
		resolve:     defaultResolve,
		routeRepair: true,
		repairDelay: route.DefaultDelay,
	}

	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, newAPIError("new", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
	defer cancel()

	ep, err := parseAddress(ctx, rawURL, cfg.resolve)
	if err != nil {
		return nil, err
	}

	cfg.logger = cfg.logger.With("target", ep.String())

	r := route.NewRepairer(cfg.logger)
	r.Delay = cfg.repairDelay

	return &Client{
		cfg:      cfg,
		endpoint: ep,
		repairer: r,
	}, nil
}

// State returns the current session state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Endpoint returns the parsed target address.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// DeviceInfo returns the device information cached by the last successful connect.
func (c *Client) DeviceInfo() DeviceInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info
}

// LocalAddr returns the AMS address used as source, derived from the local
// socket address. It is zero before the first connect.
func (c *Client) LocalAddr() ams.Addr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.local
}

// Connect opens the session if it is not already open.
//
// When the target aborts the handshake on the standard TCP port, the client
// asks it once per lifetime to add a route back and retries the connect.
func (c *Client) Connect(ctx context.Context) error {
	if c.State() == StateConnected {
		return nil
	}

	err := c.connect(ctx)
	if err == nil {
		return nil
	}

	if c.shouldRepair(err) {
		c.repairRoute(ctx)
		err = c.connect(ctx)
		if err == nil {
			return nil
		}
	}

	return newCommError("connect", err)
}

func (c *Client) connect(ctx context.Context) error {
	c.setState(StateConnecting, nil)
	c.cfg.metrics.ConnectionAttempts()

	err := c.open(ctx)
	if err != nil {
		c.cfg.metrics.ConnectionFailures()
		c.cfg.logger.Warn("connect failed", "error", err)
		c.closeConn()
		c.setState(StateDisconnected, err)
		return err
	}

	c.cfg.metrics.ConnectionSuccesses()
	c.cfg.metrics.ConnectionActive(true)
	c.setState(StateConnected, nil)
	return nil
}

func (c *Client) open(ctx context.Context) error {
	conn, err := transport.Dial(ctx, transport.DialFunc(c.cfg.dial), c.endpoint.TCPAddress(), c.cfg.timeout)
	if err != nil {
		return err
	}
	c.conn = conn

	ip := conn.LocalIP()
	if ip == nil {
		return fmt.Errorf("goadsio: local socket address is not IPv4")
	}
	c.localIP = ip.String()

	local := ams.Addr{NetID: ams.NetIDFromIPv4([4]byte(ip)), Port: ams.PortLocalClient}
	c.mu.Lock()
	c.local = local
	c.mu.Unlock()

	data, err := c.exchange(ctx, ads.CmdReadDeviceInfo, nil, ads.DeviceInfoSize)
	if err != nil {
		return err
	}

	info, err := ads.UnpackDeviceInfo(data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.info = DeviceInfo{
		Name:         info.DeviceName,
		MajorVersion: info.MajorVersion,
		MinorVersion: info.MinorVersion,
		VersionBuild: info.VersionBuild,
	}
	c.mu.Unlock()

	c.cfg.logger.Info("connected", "device", info.String(), "local", local.String())
	return nil
}

// shouldRepair reports whether err is the abort a TwinCAT runtime produces
// when no route to this host exists, and a repair is still allowed.
func (c *Client) shouldRepair(err error) bool {
	if !c.cfg.routeRepair || c.routeTried || c.localIP == "" {
		return false
	}
	if !c.endpoint.DefaultTCPPort() {
		return false
	}
	return errors.Is(err, transport.ErrNoData) || errors.Is(err, syscall.ECONNRESET)
}

func (c *Client) repairRoute(ctx context.Context) {
	c.routeTried = true
	c.cfg.metrics.RouteRepairs()

	local := c.LocalAddr()
	c.cfg.logger.Warn("target closed the connection, requesting route", "local", local.String(), "local_ip", c.localIP)

	if err := c.repairer.Repair(ctx, c.endpoint.Host, local, c.localIP); err != nil {
		c.cfg.logger.Warn("route repair failed", "error", err)
	}
}

// Disconnect closes the socket. It never fails.
func (c *Client) Disconnect() error {
	c.disconnect(nil)
	return nil
}

// Close is an alias for Disconnect.
func (c *Client) Close() error {
	return c.Disconnect()
}

func (c *Client) disconnect(cause error) {
	wasOpen := c.conn != nil
	c.closeConn()
	if wasOpen {
		c.cfg.metrics.ConnectionActive(false)
	}
	c.setState(StateDisconnected, cause)
}

func (c *Client) closeConn() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		c.cfg.logger.Debug("close failed", "error", err)
	}
	c.conn = nil
}

// Read returns length bytes of %M memory starting at byte offset address.
func (c *Client) Read(ctx context.Context, address, length uint32) ([]byte, error) {
	start := time.Now()
	data, err := c.read(ctx, address, length)
	c.cfg.metrics.OperationCompleted("read", time.Since(start), err)
	return data, err
}

func (c *Client) read(ctx context.Context, address, length uint32) ([]byte, error) {
	if length > MaxReadLength {
		return nil, newAPIError("read", fmt.Errorf("%w: %d exceeds %d", ErrInvalidLength, length, uint32(MaxReadLength)))
	}

	err := c.Connect(ctx)
	var data []byte
	if err == nil {
		var reply []byte
		reply, err = c.exchange(ctx, ads.CmdRead, ads.PackReadPayload(ads.IndexGroupPLCMemory, address, length), ads.ReadPrefixSize+length)
		if err == nil {
			data, err = ads.UnpackReadData(reply, length)
		}
	}
	if err != nil {
		LoggerFromContext(ctx, c.cfg.logger).Error("IO error during read", "address", address, "length", length, "error", err)
		c.disconnect(err)
		return nil, newCommError("read", fmt.Errorf("IO error during read: %w", err))
	}
	return data, nil
}

// Write stores data in %M memory starting at byte offset address.
func (c *Client) Write(ctx context.Context, address uint32, data []byte) error {
	start := time.Now()
	err := c.write(ctx, address, data)
	c.cfg.metrics.OperationCompleted("write", time.Since(start), err)
	return err
}

func (c *Client) write(ctx context.Context, address uint32, data []byte) error {
	err := c.Connect(ctx)
	if err == nil {
		_, err = c.exchange(ctx, ads.CmdWrite, ads.PackWritePayload(ads.IndexGroupPLCMemory, address, data), 0)
	}
	if err != nil {
		LoggerFromContext(ctx, c.cfg.logger).Error("IO error during write", "address", address, "length", len(data), "error", err)
		c.disconnect(err)
		return newCommError("write", fmt.Errorf("IO error during write: %w", err))
	}
	return nil
}

// exchange frames payload as command cmd with the next invoke ID and waits
// for a reply carrying expLen data bytes after the result field.
func (c *Client) exchange(ctx context.Context, cmd ads.CommandID, payload []byte, expLen uint32) ([]byte, error) {
	if c.conn == nil {
		return nil, transport.ErrClosed
	}

	c.invokeID++
	id := c.invokeID

	frame := ams.PackRequest(uint16(cmd), c.endpoint.Target, c.LocalAddr(), id, payload)
	c.cfg.logger.Debug("exchange", "command", cmd.String(), "invoke_id", id, "bytes", len(frame))

	data, err := c.conn.Exchange(ctx, frame, id, expLen)
	c.cfg.metrics.BytesSent(int64(len(frame)))
	if err != nil {
		return nil, err
	}
	c.cfg.metrics.BytesReceived(int64(ams.HeaderSize + ads.ReadPrefixSize + len(data)))
	return data, nil
}

func (c *Client) setState(newState State, err error) {
	oldState := State(c.state.Swap(int32(newState)))
	if oldState == newState {
		return
	}
	c.cfg.logger.Debug("state changed", "from", oldState.String(), "to", newState.String())
	if c.cfg.stateCallback != nil {
		c.cfg.stateCallback(oldState, newState, err)
	}
}
