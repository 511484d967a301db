package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrpasztoradam/goadsio"
	"github.com/mrpasztoradam/goadsio/config"
	"github.com/mrpasztoradam/goadsio/internal/adstest"
	"github.com/mrpasztoradam/goadsio/promstats"
)

type testEnv struct {
	srv    *adstest.Server
	client *goadsio.Client
	router http.Handler
}

func newTestEnv(t *testing.T, dialAddr string) *testEnv {
	t.Helper()

	srv, err := adstest.NewServer()
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	if dialAddr == "" {
		dialAddr = srv.Addr()
	}

	reg := prometheus.NewRegistry()
	client, err := goadsio.New("ads://127.0.0.1:10000/127.0.0.1.1.1:851",
		goadsio.WithTimeout(2*time.Second),
		goadsio.WithMetrics(promstats.NewCollector(reg)),
		goadsio.WithDialer(func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, dialAddr)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	s := NewServer(config.DefaultConfig(), client, nil, reg)
	return &testEnv{srv: srv, client: client, router: s.Router()}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestStatusDoesNotConnect(t *testing.T) {
	env := newTestEnv(t, "")

	rec, body := env.do(t, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "disconnected", body["state"])
	assert.Equal(t, false, body["connected"])
	assert.Equal(t, goadsio.Version(), body["library_version"])
	assert.Equal(t, 0, env.srv.Accepted())
}

func TestInfoConnects(t *testing.T) {
	env := newTestEnv(t, "")

	rec, body := env.do(t, http.MethodGet, "/api/v1/info", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "TestPLC", body["device_name"])
	assert.Equal(t, "3.1.4062", body["version"])
	assert.Equal(t, "127.0.0.1.1.1", body["ams_net_id"])
	assert.Equal(t, float64(851), body["ams_port"])

	_, body = env.do(t, http.MethodGet, "/api/v1/status", "")
	assert.Equal(t, "connected", body["state"])
	assert.Equal(t, "127.0.0.1.1.1:800", body["local_address"])
}

func TestConnectDisconnect(t *testing.T) {
	env := newTestEnv(t, "")

	rec, body := env.do(t, http.MethodPost, "/api/v1/connect", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "connected", body["state"])

	rec, body = env.do(t, http.MethodPost, "/api/v1/disconnect", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "disconnected", body["state"])
	assert.Equal(t, goadsio.StateDisconnected, env.client.State())
}

func TestReadWriteMemory(t *testing.T) {
	env := newTestEnv(t, "")
	env.srv.SetMemory(0x1000, []byte{0x01, 0x02, 0x03, 0x04})

	rec, body := env.do(t, http.MethodGet, "/api/v1/memory/0x1000?length=4", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "01020304", body["data"])
	assert.Equal(t, float64(4096), body["address"])

	rec, body = env.do(t, http.MethodPut, "/api/v1/memory/16", `{"data":"aabb"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), body["bytes_written"])
	assert.Equal(t, []byte{0xAA, 0xBB}, env.srv.Memory(16, 2))
}

func TestMemoryRequestValidation(t *testing.T) {
	env := newTestEnv(t, "")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"bad address", http.MethodGet, "/api/v1/memory/abc?length=4", ""},
		{"missing length", http.MethodGet, "/api/v1/memory/0", ""},
		{"bad length", http.MethodGet, "/api/v1/memory/0?length=-1", ""},
		{"length too large", http.MethodGet, "/api/v1/memory/0?length=1000000", ""},
		{"bad json", http.MethodPut, "/api/v1/memory/0", "{"},
		{"bad hex", http.MethodPut, "/api/v1/memory/0", `{"data":"zz"}`},
		{"empty data", http.MethodPut, "/api/v1/memory/0", `{"data":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, ErrCodeInvalidRequest, body["error"].(map[string]any)["code"])
		})
	}
	assert.Equal(t, 0, env.srv.Accepted())
}

func TestWriteMemoryBodyLimit(t *testing.T) {
	env := newTestEnv(t, "")

	body := `{"data":"` + strings.Repeat("00", MaxBodySize) + `"}`
	rec, out := env.do(t, http.MethodPut, "/api/v1/memory/0", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, ErrCodeInvalidRequest, out["error"].(map[string]any)["code"])
	assert.Equal(t, 0, env.srv.Accepted())

	// A MaxReadLength block is accepted and reaches the PLC, which rejects
	// it as larger than its memory area.
	body = `{"data":"` + strings.Repeat("00", MaxReadLength) + `"}`
	rec, out = env.do(t, http.MethodPut, "/api/v1/memory/0", body)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, ErrCodeADSError, out["error"].(map[string]any)["code"])
}

func TestADSErrorMapsToBadGateway(t *testing.T) {
	env := newTestEnv(t, "")

	rec, body := env.do(t, http.MethodGet, "/api/v1/memory/8191?length=4", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	detail := body["error"].(map[string]any)
	assert.Equal(t, ErrCodeADSError, detail["code"])
	assert.Equal(t, "0x0703", detail["details"].(map[string]any)["ads_code"])
}

func TestConnectionErrorMapsToUnavailable(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	closedAddr := ln.Addr().String()
	require.NoError(t, ln.Close())

	env := newTestEnv(t, closedAddr)

	rec, body := env.do(t, http.MethodPost, "/api/v1/connect", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, ErrCodePLCConnectionError, body["error"].(map[string]any)["code"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, "")
	env.do(t, http.MethodGet, "/api/v1/memory/0?length=1", "")

	rec, _ := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goadsio_operation_total")
	assert.Contains(t, rec.Body.String(), "goadsio_connection_successes_total 1")
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, "")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/status", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
