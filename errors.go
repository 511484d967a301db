package goadsio

import (
	"errors"
	"fmt"

	"github.com/mrpasztoradam/goadsio/internal/ads"
	"github.com/mrpasztoradam/goadsio/internal/transport"
)

// ErrorKind separates caller mistakes from communication failures.
type ErrorKind int

const (
	// KindAPI marks errors caused by the caller (bad URL, malformed NetID).
	// Retrying cannot help.
	KindAPI ErrorKind = iota + 1

	// KindComm marks socket failures, malformed or mismatched replies and
	// ADS error codes reported by the device. The session is left
	// disconnected and the caller may retry, which reconnects.
	KindComm
)

func (k ErrorKind) String() string {
	switch k {
	case KindAPI:
		return "api"
	case KindComm:
		return "comm"
	default:
		return "unknown"
	}
}

// Sentinel errors.
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidLength  = errors.New("invalid length")

	ErrNoData        = transport.ErrNoData
	ErrWrongFlags    = transport.ErrWrongFlags
	ErrWrongLength   = transport.ErrWrongLength
	ErrWrongInvokeID = transport.ErrWrongInvokeID
)

// Error is returned by every exported operation.
type Error struct {
	Kind ErrorKind
	Op   string // The operation that failed (e.g., "read", "write", "connect")
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether calling the operation again may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindComm
}

func newAPIError(op string, err error) error {
	return &Error{Kind: KindAPI, Op: op, Err: err}
}

func newCommError(op string, err error) error {
	return &Error{Kind: KindComm, Op: op, Err: err}
}

// IsAPIError reports whether err is a caller error.
func IsAPIError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindAPI
}

// IsCommError reports whether err is a communication error.
func IsCommError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindComm
}

// ADSCode extracts the ADS error code carried by err, if any.
func ADSCode(err error) (uint32, bool) {
	var adsErr ads.Error
	if errors.As(err, &adsErr) {
		return uint32(adsErr), true
	}
	return 0, false
}

// DescribeADSError returns the description of an ADS error code.
func DescribeADSError(code uint32) string {
	return ads.Describe(code)
}
