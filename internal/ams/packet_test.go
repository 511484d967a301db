package ams

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackRequestLayout(t *testing.T) {
	target := Addr{NetID: NetID{5, 1, 2, 3, 1, 1}, Port: 851}
	source := Addr{NetID: NetID{127, 0, 0, 1, 1, 1}, Port: PortLocalClient}
	payload := []byte{0x20, 0x40, 0, 0, 0, 0x10, 0, 0, 4, 0, 0, 0}

	buf := PackRequest(2, target, source, 7, payload)
	require.Len(t, buf, HeaderSize+len(payload))

	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(buf[0:2]), "reserved")
	assert.Equal(t, uint32(AMSHeaderSize+len(payload)), binary.LittleEndian.Uint32(buf[2:6]), "length excludes wrapper")
	assert.Equal(t, []byte{5, 1, 2, 3, 1, 1, 0x53, 0x03}, buf[6:14])
	assert.Equal(t, []byte{127, 0, 0, 1, 1, 1, 0x20, 0x03}, buf[14:22])
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(buf[22:24]))
	assert.Equal(t, StateFlagsTCPRequest, binary.LittleEndian.Uint16(buf[24:26]))
	assert.Equal(t, uint32(len(payload)), binary.LittleEndian.Uint32(buf[26:30]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(buf[30:34]))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(buf[34:38]))
	assert.Equal(t, payload, buf[38:])
}

func TestPackUnpackRoundTrip(t *testing.T) {
	target := Addr{NetID: NetID{192, 168, 1, 10, 1, 1}, Port: 851}
	source := Addr{NetID: NetID{192, 168, 1, 2, 1, 1}, Port: 800}

	tests := []struct {
		name    string
		cmd     uint16
		payload []byte
	}{
		{name: "device info", cmd: 1},
		{name: "read", cmd: 2, payload: make([]byte, 12)},
		{name: "write", cmd: 3, payload: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 0xAA, 0xBB}},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invokeID := uint32(i + 1)
			buf := PackRequest(tt.cmd, target, source, invokeID, tt.payload)

			tcp, hdr, err := UnpackHeader(buf)
			require.NoError(t, err)

			assert.Equal(t, uint32(AMSHeaderSize+len(tt.payload)), tcp.Length)
			assert.Equal(t, target, hdr.Target)
			assert.Equal(t, source, hdr.Source)
			assert.Equal(t, tt.cmd, hdr.CommandID)
			assert.Equal(t, StateFlagsTCPRequest, hdr.StateFlags)
			assert.Equal(t, uint32(len(tt.payload)), hdr.DataLength)
			assert.Zero(t, hdr.ErrorCode)
			assert.Equal(t, invokeID, hdr.InvokeID)
		})
	}
}

func TestUnpackHeaderTooShort(t *testing.T) {
	_, _, err := UnpackHeader(make([]byte, HeaderSize-1))
	require.Error(t, err)
}
