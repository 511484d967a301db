// Package ads implements ADS (Automation Device Specification) command payloads.
package ads

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type CommandID uint16

const (
	CmdReadDeviceInfo CommandID = 0x0001
	CmdRead           CommandID = 0x0002
	CmdWrite          CommandID = 0x0003
)

func (c CommandID) String() string {
	switch c {
	case CmdReadDeviceInfo:
		return "ReadDeviceInfo"
	case CmdRead:
		return "Read"
	case CmdWrite:
		return "Write"
	default:
		return fmt.Sprintf("CommandID(%d)", uint16(c))
	}
}

const (
	// IndexGroupPLCMemory selects the PLC %M memory area.
	IndexGroupPLCMemory uint32 = 0x00004020
)

// Reply data sizes, excluding the 4-byte result field that precedes them.
const (
	DeviceInfoSize   = 20
	ReadPrefixSize   = 4
	AddressBlockSize = 12
)

type ReadRequest struct {
	IndexGroup  uint32
	IndexOffset uint32
	Length      uint32
}

func (r *ReadRequest) MarshalBinary() ([]byte, error) {
	buf := make([]byte, AddressBlockSize)
	binary.LittleEndian.PutUint32(buf[0:4], r.IndexGroup)
	binary.LittleEndian.PutUint32(buf[4:8], r.IndexOffset)
	binary.LittleEndian.PutUint32(buf[8:12], r.Length)
	return buf, nil
}

func (r *ReadRequest) UnmarshalBinary(data []byte) error {
	if len(data) < AddressBlockSize {
		return fmt.Errorf("ads: read request requires %d bytes, got %d", AddressBlockSize, len(data))
	}
	r.IndexGroup = binary.LittleEndian.Uint32(data[0:4])
	r.IndexOffset = binary.LittleEndian.Uint32(data[4:8])
	r.Length = binary.LittleEndian.Uint32(data[8:12])
	return nil
}

type WriteRequest struct {
	IndexGroup  uint32
	IndexOffset uint32
	Length      uint32
	Data        []byte
}

func (w *WriteRequest) MarshalBinary() ([]byte, error) {
	buf := make([]byte, AddressBlockSize+len(w.Data))
	binary.LittleEndian.PutUint32(buf[0:4], w.IndexGroup)
	binary.LittleEndian.PutUint32(buf[4:8], w.IndexOffset)
	binary.LittleEndian.PutUint32(buf[8:12], w.Length)
	copy(buf[12:], w.Data)
	return buf, nil
}

func (w *WriteRequest) UnmarshalBinary(data []byte) error {
	if len(data) < AddressBlockSize {
		return fmt.Errorf("ads: write request requires at least %d bytes, got %d", AddressBlockSize, len(data))
	}
	w.IndexGroup = binary.LittleEndian.Uint32(data[0:4])
	w.IndexOffset = binary.LittleEndian.Uint32(data[4:8])
	w.Length = binary.LittleEndian.Uint32(data[8:12])
	if uint32(len(data)-AddressBlockSize) != w.Length {
		return fmt.Errorf("ads: write request declares %d data bytes, carries %d", w.Length, len(data)-AddressBlockSize)
	}
	w.Data = data[12:]
	return nil
}

// PackReadPayload builds the 12-byte address/length block of a read request.
func PackReadPayload(indexGroup, offset, length uint32) []byte {
	req := ReadRequest{IndexGroup: indexGroup, IndexOffset: offset, Length: length}
	buf, _ := req.MarshalBinary()
	return buf
}

// PackWritePayload builds the address/length block of a write request
// followed by the raw data.
func PackWritePayload(indexGroup, offset uint32, data []byte) []byte {
	req := WriteRequest{IndexGroup: indexGroup, IndexOffset: offset, Length: uint32(len(data)), Data: data}
	buf, _ := req.MarshalBinary()
	return buf
}

// UnpackReadData strips the echoed length from a read reply and returns
// exactly length data bytes.
func UnpackReadData(data []byte, length uint32) ([]byte, error) {
	if len(data) < ReadPrefixSize {
		return nil, fmt.Errorf("ads: read reply requires at least %d bytes, got %d", ReadPrefixSize, len(data))
	}
	echoed := binary.LittleEndian.Uint32(data[0:4])
	if echoed != length {
		return nil, fmt.Errorf("ads: read reply carries %d bytes, requested %d", echoed, length)
	}
	if uint32(len(data)-ReadPrefixSize) < length {
		return nil, fmt.Errorf("ads: read reply truncated: %d of %d bytes", len(data)-ReadPrefixSize, length)
	}
	out := make([]byte, length)
	copy(out, data[ReadPrefixSize:])
	return out, nil
}

// DeviceInfo is the version/name block returned by the device-info command.
type DeviceInfo struct {
	MajorVersion uint8
	MinorVersion uint8
	VersionBuild uint16
	DeviceName   string
}

func (d *DeviceInfo) MarshalBinary() ([]byte, error) {
	if len(d.DeviceName) > 16 {
		return nil, fmt.Errorf("ads: device name %q exceeds 16 bytes", d.DeviceName)
	}
	buf := make([]byte, DeviceInfoSize)
	buf[0] = d.MajorVersion
	buf[1] = d.MinorVersion
	binary.LittleEndian.PutUint16(buf[2:4], d.VersionBuild)
	copy(buf[4:20], d.DeviceName)
	return buf, nil
}

func (d *DeviceInfo) UnmarshalBinary(data []byte) error {
	if len(data) < DeviceInfoSize {
		return fmt.Errorf("ads: device info requires %d bytes, got %d", DeviceInfoSize, len(data))
	}
	d.MajorVersion = data[0]
	d.MinorVersion = data[1]
	d.VersionBuild = binary.LittleEndian.Uint16(data[2:4])

	name := data[4:20]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	d.DeviceName = string(name)
	return nil
}

func (d *DeviceInfo) String() string {
	return fmt.Sprintf("%s v%d.%d.%d", d.DeviceName, d.MajorVersion, d.MinorVersion, d.VersionBuild)
}

// UnpackDeviceInfo decodes a device-info reply.
func UnpackDeviceInfo(data []byte) (DeviceInfo, error) {
	var d DeviceInfo
	err := d.UnmarshalBinary(data)
	return d, err
}
