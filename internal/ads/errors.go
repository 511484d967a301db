package ads

import "fmt"

// Error is a numeric ADS error code returned by the router or the device.
type Error uint32

const (
	ErrNoError                   Error = 0x0000
	ErrTargetMachineNotFound     Error = 0x0007
	ErrDeviceServiceNotSupported Error = 0x0701
	ErrDeviceInvalidIndexGroup   Error = 0x0702
	ErrDeviceInvalidIndexOffset  Error = 0x0703
	ErrDeviceInvalidData         Error = 0x0706
)

var descriptions = map[uint32]string{
	// General and router errors.
	0x001: "Internal error",
	0x002: "No Rtime",
	0x003: "Allocation locked memory error",
	0x004: "Insert mailbox error",
	0x005: "Wrong receive HMSG",
	0x006: "Target port not found",
	0x007: "Target machine not found",
	0x008: "Unknown command ID",
	0x009: "Bad task ID",
	0x00A: "No IO",
	0x00B: "Unknown ADS command",
	0x00C: "Win 32 error",
	0x00D: "Port not connected",
	0x00E: "Invalid ADS length",
	0x00F: "Invalid ADS Net ID",
	0x010: "Low installation level",
	0x011: "No debug available",
	0x012: "Port disabled",
	0x013: "Port already connected",
	0x014: "ADS Sync Win32 error",
	0x015: "ADS Sync Timeout",
	0x016: "ADS Sync AMS error",
	0x017: "ADS Sync no index map",
	0x018: "Invalid ADS port",
	0x019: "No memory",
	0x01A: "TCP send error",
	0x01B: "Host unreachable",
	0x01C: "Invalid AMS fragment",
	0x500: "No locked memory can be allocated",
	0x501: "The size of the router memory could not be changed",
	0x502: "The mailbox has reached the maximum number of possible messages",
	0x503: "The debug mailbox has reached the maximum number of possible messages",
	0x504: "Unknown port type",
	0x505: "Router is not initialized",
	0x506: "The desired port number is already assigned",
	0x507: "Port not registered",
	0x508: "The maximum number of ports reached",
	0x509: "Invalid port",
	0x50A: "TwinCAT Router not active",

	// Device errors.
	0x700: "General device error",
	0x701: "Service is not supported by server",
	0x702: "Invalid index group",
	0x703: "Invalid index offset",
	0x704: "Reading/writing not permitted",
	0x705: "Parameter size not correct",
	0x706: "Invalid parameter value(s)",
	0x707: "Device is not in a ready state",
	0x708: "Device is busy",
	0x709: "Invalid context (must be in Windows)",
	0x70A: "Out of memory",
	0x70B: "Invalid parameter values in request",
	0x70C: "Not found (files, ...)",
	0x70D: "Syntax error in command or file",
	0x70E: "Objects do not match",
	0x70F: "Object already exists",
	0x710: "Symbol not found",
	0x711: "Symbol version invalid",
	0x712: "Server is in invalid state",
	0x713: "AdsTransMode not supported",
	0x714: "Notification handle is invalid",
	0x715: "Notification client not registered",
	0x716: "No more notification handles",
	0x717: "Size for watch too big",
	0x718: "Device not initialized",
	0x719: "Device has a timeout",
	0x71A: "Query interface failed",
	0x71B: "Wrong interface required",
	0x71C: "Class ID is invalid",
	0x71D: "Object ID is invalid",
	0x71E: "Request is pending",
	0x71F: "Request is aborted",
	0x720: "Signal warning",
	0x721: "Invalid array index",

	// Client errors.
	0x740: "Error class <client error>",
	0x741: "Invalid parameter at service",
	0x742: "Polling list is empty",
	0x743: "Var connection already in use",
	0x744: "Invoke ID in use",
	0x745: "Timeout elapsed",
	0x746: "Error in win32 subsystem",
	0x747: "Invalid client timeout value",
	0x748: "ADS port not opened",
	0x750: "Internal error in ADS sync",
	0x751: "Hash table overflow",
	0x752: "Key not found in hash",
	0x753: "No more symbols in cache",
}

// Describe returns a human-readable description of an ADS error code.
// Unknown codes yield a fallback string carrying the hex value.
func Describe(code uint32) string {
	if code == 0 {
		return "No error"
	}
	if s, ok := descriptions[code]; ok {
		return s
	}
	return fmt.Sprintf("Unknown code 0x%04x", code)
}

func (e Error) Error() string {
	return fmt.Sprintf("ADS error 0x%04x: %s", uint32(e), Describe(uint32(e)))
}

func (e Error) IsError() bool {
	return e != ErrNoError
}
