package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mrpasztoradam/goadsio"
)

// Error codes
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInvalidAddress     = "INVALID_ADDRESS"
	ErrCodePLCConnectionError = "PLC_CONNECTION_ERROR"
	ErrCodeADSError           = "ADS_ERROR"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// HTTPError represents an HTTP error with status code and error response
type HTTPError struct {
	StatusCode int
	Response   ErrorResponse
}

func (e *HTTPError) Error() string {
	return e.Response.Error.Message
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, code, message string, details map[string]any) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Response: ErrorResponse{
			Error: ErrorDetail{
				Code:    code,
				Message: message,
				Details: details,
			},
		},
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, ErrCodeInvalidRequest, message, nil)
}

// NewRequestTooLargeError creates a request body too large error
func NewRequestTooLargeError(message string) *HTTPError {
	return NewHTTPError(http.StatusRequestEntityTooLarge, ErrCodeInvalidRequest, message, nil)
}

// NewPLCConnectionError creates a PLC connection error
func NewPLCConnectionError(message string) *HTTPError {
	return NewHTTPError(http.StatusServiceUnavailable, ErrCodePLCConnectionError, message, nil)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, ErrCodeInternalError, message, nil)
}

// fromClientError maps a goadsio error to a response. ADS codes reported by
// the device become 502, other communication failures 503.
func fromClientError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	switch {
	case goadsio.IsAPIError(err):
		return NewHTTPError(http.StatusBadRequest, ErrCodeInvalidAddress, err.Error(), nil)
	case goadsio.IsCommError(err):
		if code, ok := goadsio.ADSCode(err); ok {
			return NewHTTPError(http.StatusBadGateway, ErrCodeADSError, err.Error(), map[string]any{
				"ads_code":    fmt.Sprintf("0x%04x", code),
				"description": goadsio.DescribeADSError(code),
			})
		}
		return NewPLCConnectionError(err.Error())
	default:
		return NewInternalError(err.Error())
	}
}

// WriteError writes an error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err error) {
	httpErr := fromClientError(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpErr.StatusCode)
	_ = json.NewEncoder(w).Encode(httpErr.Response)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}
