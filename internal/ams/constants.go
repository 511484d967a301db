package ams

// Frame sizes in bytes.
const (
	TCPHeaderSize = 6
	AMSHeaderSize = 32

	// HeaderSize covers the AMS/TCP wrapper and the AMS header.
	HeaderSize = TCPHeaderSize + AMSHeaderSize
)

// State flag bits for the StateFlags field in AMS Header.
const (
	// StateFlagResponse indicates a response packet (bit 0).
	// 0 = Request, 1 = Response
	StateFlagResponse uint16 = 0x0001

	// StateFlagADS must be set for ADS commands (bit 2).
	StateFlagADS uint16 = 0x0004
)

// Predefined state flag combinations.
const (
	// StateFlagsTCPRequest represents a TCP request (0x0004).
	StateFlagsTCPRequest = StateFlagADS

	// StateFlagsTCPResponse represents a TCP response (0x0005).
	StateFlagsTCPResponse = StateFlagADS | StateFlagResponse
)

// Well-known ports.
const (
	// DefaultTCPPort is the ADS/AMS TCP service port (0xBF02).
	DefaultTCPPort = 48898

	// DefaultUDPPort is the ADS UDP discovery and route service port (0xBF03).
	DefaultUDPPort = 48899

	// PortLocalClient is the AMS port this client announces as its source.
	PortLocalClient Port = 800
)
