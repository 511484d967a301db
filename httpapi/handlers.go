package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Handler contains HTTP request handlers
type Handler struct {
	bridge *Bridge
}

// NewHandler creates a new handler
func NewHandler(bridge *Bridge) *Handler {
	return &Handler{bridge: bridge}
}

// HandleInfo handles GET /api/v1/info
func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	result, err := h.bridge.Info(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// HandleStatus handles GET /api/v1/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.bridge.Status())
}

// HandleConnect handles POST /api/v1/connect
func (h *Handler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	result, err := h.bridge.Connect(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// HandleDisconnect handles POST /api/v1/disconnect
func (h *Handler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.bridge.Disconnect())
}

// HandleReadMemory handles GET /api/v1/memory/{address}?length=N
func (h *Handler) HandleReadMemory(w http.ResponseWriter, r *http.Request) {
	address, err := parseUint32(chi.URLParam(r, "address"))
	if err != nil {
		WriteError(w, NewInvalidRequestError(fmt.Sprintf("invalid address: %v", err)))
		return
	}

	lengthParam := r.URL.Query().Get("length")
	if lengthParam == "" {
		WriteError(w, NewInvalidRequestError("length query parameter is required"))
		return
	}
	length, err := parseUint32(lengthParam)
	if err != nil {
		WriteError(w, NewInvalidRequestError(fmt.Sprintf("invalid length: %v", err)))
		return
	}

	result, err := h.bridge.ReadMemory(r.Context(), address, length)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// HandleWriteMemory handles PUT /api/v1/memory/{address}
func (h *Handler) HandleWriteMemory(w http.ResponseWriter, r *http.Request) {
	address, err := parseUint32(chi.URLParam(r, "address"))
	if err != nil {
		WriteError(w, NewInvalidRequestError(fmt.Sprintf("invalid address: %v", err)))
		return
	}

	var req WriteMemoryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodySize)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, NewRequestTooLargeError(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)))
			return
		}
		WriteError(w, NewInvalidRequestError("invalid JSON body"))
		return
	}

	result, err := h.bridge.WriteMemory(r.Context(), address, req.Data)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// parseUint32 accepts decimal, 0x hex and 0o octal notation.
func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
