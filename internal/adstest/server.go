// Package adstest provides an in-process ADS target for tests.
package adstest

import (
	"encoding/binary"
	"io"
	"net"
	"sync"

	"github.com/mrpasztoradam/goadsio/internal/ads"
	"github.com/mrpasztoradam/goadsio/internal/ams"
)

// MemorySize is the size of the simulated %M area.
const MemorySize = 0x2000

// Server answers device-info, read and write requests against an in-memory
// %M area. It serves any number of sequential or parallel connections.
type Server struct {
	ln net.Listener

	mu         sync.Mutex
	memory     []byte
	invokeIDs  []uint32
	accepted   int
	abortCount int
	info       ads.DeviceInfo
	mutate     func(frame []byte)

	wg sync.WaitGroup
}

// NewServer listens on a loopback port and starts serving.
func NewServer() (*Server, error) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	s := &Server{
		ln:     ln,
		memory: make([]byte, MemorySize),
		info:   ads.DeviceInfo{MajorVersion: 3, MinorVersion: 1, VersionBuild: 4062, DeviceName: "TestPLC"},
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close stops the listener and waits for connection handlers to exit.
func (s *Server) Close() error {
	err := s.ln.Close()
	s.wg.Wait()
	return err
}

// AbortNext makes the next n connections close after reading their first
// request, the way a runtime without a matching route behaves.
func (s *Server) AbortNext(n int) {
	s.mu.Lock()
	s.abortCount = n
	s.mu.Unlock()
}

// MutateReplies installs fn to rewrite every reply frame before it is sent.
func (s *Server) MutateReplies(fn func(frame []byte)) {
	s.mu.Lock()
	s.mutate = fn
	s.mu.Unlock()
}

// SetMemory copies data into the memory area at offset.
func (s *Server) SetMemory(offset int, data []byte) {
	s.mu.Lock()
	copy(s.memory[offset:], data)
	s.mu.Unlock()
}

// Memory returns a copy of n bytes at offset.
func (s *Server) Memory(offset, n int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, n)
	copy(out, s.memory[offset:offset+n])
	return out
}

// InvokeIDs returns the invoke IDs of all requests received so far.
func (s *Server) InvokeIDs() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint32(nil), s.invokeIDs...)
}

// Accepted returns the number of accepted connections.
func (s *Server) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.accepted++
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			s.serve(conn)
		}()
	}
}

func (s *Server) serve(conn net.Conn) {
	hdrBuf := make([]byte, ams.HeaderSize)
	for {
		if _, err := io.ReadFull(conn, hdrBuf); err != nil {
			return
		}
		_, hdr, err := ams.UnpackHeader(hdrBuf)
		if err != nil {
			return
		}
		payload := make([]byte, hdr.DataLength)
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}

		s.mu.Lock()
		s.invokeIDs = append(s.invokeIDs, hdr.InvokeID)
		abort := s.abortCount > 0
		if abort {
			s.abortCount--
		}
		mutate := s.mutate
		s.mu.Unlock()
		if abort {
			return
		}

		result, data := s.handle(ads.CommandID(hdr.CommandID), payload)
		frame := reply(hdr, result, data)
		if mutate != nil {
			mutate(frame)
		}
		if _, err := conn.Write(frame); err != nil {
			return
		}
	}
}

func (s *Server) handle(cmd ads.CommandID, payload []byte) (uint32, []byte) {
	switch cmd {
	case ads.CmdReadDeviceInfo:
		data, _ := s.info.MarshalBinary()
		return 0, data

	case ads.CmdRead:
		var req ads.ReadRequest
		if err := req.UnmarshalBinary(payload); err != nil {
			return uint32(ads.ErrDeviceInvalidData), nil
		}
		if req.IndexGroup != ads.IndexGroupPLCMemory {
			return uint32(ads.ErrDeviceInvalidIndexGroup), nil
		}
		end := uint64(req.IndexOffset) + uint64(req.Length)
		if end > MemorySize {
			return uint32(ads.ErrDeviceInvalidIndexOffset), nil
		}
		data := binary.LittleEndian.AppendUint32(nil, req.Length)
		s.mu.Lock()
		data = append(data, s.memory[req.IndexOffset:end]...)
		s.mu.Unlock()
		return 0, data

	case ads.CmdWrite:
		var req ads.WriteRequest
		if err := req.UnmarshalBinary(payload); err != nil {
			return uint32(ads.ErrDeviceInvalidData), nil
		}
		if req.IndexGroup != ads.IndexGroupPLCMemory {
			return uint32(ads.ErrDeviceInvalidIndexGroup), nil
		}
		end := uint64(req.IndexOffset) + uint64(req.Length)
		if end > MemorySize {
			return uint32(ads.ErrDeviceInvalidIndexOffset), nil
		}
		s.mu.Lock()
		copy(s.memory[req.IndexOffset:end], req.Data)
		s.mu.Unlock()
		return 0, nil

	default:
		return uint32(ads.ErrDeviceServiceNotSupported), nil
	}
}

// reply builds a response frame to req carrying result and data.
func reply(req ams.Header, result uint32, data []byte) []byte {
	body := binary.LittleEndian.AppendUint32(nil, result)
	body = append(body, data...)

	tcp := ams.TCPHeader{Length: ams.AMSHeaderSize + uint32(len(body))}
	hdr := ams.Header{
		Target:     req.Source,
		Source:     req.Target,
		CommandID:  req.CommandID,
		StateFlags: ams.StateFlagsTCPResponse,
		DataLength: uint32(len(body)),
		InvokeID:   req.InvokeID,
	}

	tcpBuf, _ := tcp.MarshalBinary()
	hdrBuf, _ := hdr.MarshalBinary()
	frame := append(tcpBuf, hdrBuf...)
	return append(frame, body...)
}
