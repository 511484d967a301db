// Package ams implements AMS (Automation Message Specification) framing.
package ams

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// NetID represents a 6-byte AMS NetID address (e.g., 192.168.1.100.1.1).
// Each byte is stored separately and has no direct relation to IP addresses.
type NetID [6]byte

// ParseNetID parses a dotted NetID. The string must hold exactly six
// decimal components in the range 0-255.
func ParseNetID(s string) (NetID, error) {
	var n NetID

	parts := strings.Split(s, ".")
	if len(parts) != 6 {
		return n, fmt.Errorf("ams: invalid NetID %q: expected 6 components, got %d", s, len(parts))
	}

	for i, part := range parts {
		v, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return n, fmt.Errorf("ams: invalid NetID %q: component %q out of range 0-255", s, part)
		}
		n[i] = byte(v)
	}

	return n, nil
}

// NetIDFromIPv4 returns the conventional NetID for an IPv4 address (ip.1.1).
func NetIDFromIPv4(ip [4]byte) NetID {
	return NetID{ip[0], ip[1], ip[2], ip[3], 1, 1}
}

// String returns the dot-separated string representation of the NetID.
func (n NetID) String() string {
	return fmt.Sprintf("%d.%d.%d.%d.%d.%d", n[0], n[1], n[2], n[3], n[4], n[5])
}

// Port represents a 2-byte AMS port identifier.
type Port uint16

// Addr is a complete AMS endpoint: NetID plus AMS port.
type Addr struct {
	NetID NetID
	Port  Port
}

// NewAddr parses netID and pairs it with port.
func NewAddr(netID string, port Port) (Addr, error) {
	n, err := ParseNetID(netID)
	if err != nil {
		return Addr{}, err
	}
	return Addr{NetID: n, Port: port}, nil
}

// Uint64 packs the address as netID | port<<48, the NetID occupying the
// low 48 bits in wire (little-endian) order.
func (a Addr) Uint64() uint64 {
	var buf [8]byte
	copy(buf[0:6], a.NetID[:])
	binary.LittleEndian.PutUint16(buf[6:8], uint16(a.Port))
	return binary.LittleEndian.Uint64(buf[:])
}

// AddrFromUint64 is the inverse of Addr.Uint64.
func AddrFromUint64(v uint64) Addr {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)

	var a Addr
	copy(a.NetID[:], buf[0:6])
	a.Port = Port(binary.LittleEndian.Uint16(buf[6:8]))
	return a
}

func (a Addr) String() string {
	return fmt.Sprintf("%s:%d", a.NetID, a.Port)
}

// TCPHeader represents the 6-byte AMS/TCP packet header that precedes the AMS header.
// It contains the length of the following data (AMS Header + ADS Data).
type TCPHeader struct {
	Reserved uint16 // Must be 0
	Length   uint32 // Length of AMS Header + ADS Data in bytes
}

// MarshalBinary encodes the TCPHeader into a 6-byte slice (little-endian).
func (h *TCPHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, TCPHeaderSize)
	binary.LittleEndian.PutUint16(buf[0:2], h.Reserved)
	binary.LittleEndian.PutUint32(buf[2:6], h.Length)
	return buf, nil
}

// UnmarshalBinary decodes a 6-byte slice into the TCPHeader (little-endian).
func (h *TCPHeader) UnmarshalBinary(data []byte) error {
	if len(data) < TCPHeaderSize {
		return fmt.Errorf("ams: TCP header requires %d bytes, got %d", TCPHeaderSize, len(data))
	}
	h.Reserved = binary.LittleEndian.Uint16(data[0:2])
	h.Length = binary.LittleEndian.Uint32(data[2:6])
	return nil
}

// Header represents the 32-byte AMS header that follows the AMS/TCP header.
// All multi-byte fields are little-endian.
type Header struct {
	Target     Addr   // Destination NetID + port (8 bytes, offset 0)
	Source     Addr   // Source NetID + port (8 bytes, offset 8)
	CommandID  uint16 // ADS Command ID (2 bytes, offset 16)
	StateFlags uint16 // Request/Response and protocol flags (2 bytes, offset 18)
	DataLength uint32 // Size of ADS data in bytes (4 bytes, offset 20)
	ErrorCode  uint32 // AMS error number (4 bytes, offset 24)
	InvokeID   uint32 // Request/response correlation (4 bytes, offset 28)
}

// MarshalBinary encodes the AMS Header into a 32-byte slice (little-endian).
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, AMSHeaderSize)

	binary.LittleEndian.PutUint64(buf[0:8], h.Target.Uint64())
	binary.LittleEndian.PutUint64(buf[8:16], h.Source.Uint64())
	binary.LittleEndian.PutUint16(buf[16:18], h.CommandID)
	binary.LittleEndian.PutUint16(buf[18:20], h.StateFlags)
	binary.LittleEndian.PutUint32(buf[20:24], h.DataLength)
	binary.LittleEndian.PutUint32(buf[24:28], h.ErrorCode)
	binary.LittleEndian.PutUint32(buf[28:32], h.InvokeID)

	return buf, nil
}

// UnmarshalBinary decodes a 32-byte slice into the AMS Header (little-endian).
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < AMSHeaderSize {
		return fmt.Errorf("ams: header requires %d bytes, got %d", AMSHeaderSize, len(data))
	}

	h.Target = AddrFromUint64(binary.LittleEndian.Uint64(data[0:8]))
	h.Source = AddrFromUint64(binary.LittleEndian.Uint64(data[8:16]))
	h.CommandID = binary.LittleEndian.Uint16(data[16:18])
	h.StateFlags = binary.LittleEndian.Uint16(data[18:20])
	h.DataLength = binary.LittleEndian.Uint32(data[20:24])
	h.ErrorCode = binary.LittleEndian.Uint32(data[24:28])
	h.InvokeID = binary.LittleEndian.Uint32(data[28:32])

	return nil
}
