package ams

import (
	"fmt"
)

// Packet represents a complete AMS packet consisting of TCP header, AMS header, and data.
type Packet struct {
	TCPHeader TCPHeader
	Header    Header
	Data      []byte
}

// NewRequestPacket creates a new request packet with the given parameters.
func NewRequestPacket(target, source Addr, commandID uint16, invokeID uint32, data []byte) *Packet {
	return &Packet{
		TCPHeader: TCPHeader{
			Reserved: 0,
			Length:   AMSHeaderSize + uint32(len(data)),
		},
		Header: Header{
			Target:     target,
			Source:     source,
			CommandID:  commandID,
			StateFlags: StateFlagsTCPRequest,
			DataLength: uint32(len(data)),
			ErrorCode:  0,
			InvokeID:   invokeID,
		},
		Data: data,
	}
}

// MarshalBinary encodes the complete packet (TCP header + AMS header + data).
func (p *Packet) MarshalBinary() ([]byte, error) {
	tcpBuf, err := p.TCPHeader.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("ams: marshal TCP header: %w", err)
	}

	amsBuf, err := p.Header.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("ams: marshal AMS header: %w", err)
	}

	buf := make([]byte, 0, len(tcpBuf)+len(amsBuf)+len(p.Data))
	buf = append(buf, tcpBuf...)
	buf = append(buf, amsBuf...)
	buf = append(buf, p.Data...)

	return buf, nil
}

// PackRequest builds the wire form of a request frame. The length in the
// AMS/TCP wrapper covers the AMS header and payload only.
func PackRequest(commandID uint16, target, source Addr, invokeID uint32, payload []byte) []byte {
	// Marshalling fixed-size headers cannot fail.
	buf, _ := NewRequestPacket(target, source, commandID, invokeID, payload).MarshalBinary()
	return buf
}

// UnpackHeader decodes the AMS/TCP wrapper and the AMS header from the
// start of b. Data following the header is not inspected.
func UnpackHeader(b []byte) (TCPHeader, Header, error) {
	var (
		tcp TCPHeader
		hdr Header
	)

	if len(b) < HeaderSize {
		return tcp, hdr, fmt.Errorf("ams: reply header requires %d bytes, got %d", HeaderSize, len(b))
	}

	if err := tcp.UnmarshalBinary(b[0:TCPHeaderSize]); err != nil {
		return tcp, hdr, err
	}
	if err := hdr.UnmarshalBinary(b[TCPHeaderSize:HeaderSize]); err != nil {
		return tcp, hdr, err
	}

	return tcp, hdr, nil
}
