package httpapi

import "time"

// InfoResponse describes the target and its device information.
type InfoResponse struct {
	URL          string `json:"url"`
	Host         string `json:"host"`
	TCPPort      int    `json:"tcp_port"`
	AMSNetID     string `json:"ams_net_id"`
	AMSPort      uint16 `json:"ams_port"`
	DeviceName   string `json:"device_name"`
	MajorVersion uint8  `json:"major_version"`
	MinorVersion uint8  `json:"minor_version"`
	VersionBuild uint16 `json:"version_build"`
	Version      string `json:"version"`
}

// StatusResponse reports the session state without touching the PLC.
type StatusResponse struct {
	State          string    `json:"state"`
	Connected      bool      `json:"connected"`
	LocalAddress   string    `json:"local_address,omitempty"`
	LibraryVersion string    `json:"library_version"`
	ServerUptime   string    `json:"server_uptime"`
	Timestamp      time.Time `json:"timestamp"`
}

// ConnectResponse is returned by the connect and disconnect endpoints.
type ConnectResponse struct {
	Success bool   `json:"success"`
	State   string `json:"state"`
}

// MemoryResponse holds a block of %M memory, hex encoded.
type MemoryResponse struct {
	Address uint32 `json:"address"`
	Length  uint32 `json:"length"`
	Data    string `json:"data"`
}

// WriteMemoryRequest carries hex encoded bytes to store.
type WriteMemoryRequest struct {
	Data string `json:"data" example:"aabb"`
}

// WriteMemoryResponse confirms a write.
type WriteMemoryResponse struct {
	Success      bool   `json:"success"`
	Address      uint32 `json:"address"`
	BytesWritten int    `json:"bytes_written"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
