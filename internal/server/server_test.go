package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-mvnclite"
	"github.com/swdee/go-mvnclite/internal/config"
	"github.com/swdee/go-mvnclite/internal/imageio"
	"github.com/swdee/go-mvnclite/sim"
)

const testSize = 8

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	drv    *sim.Driver
	guard  *mvnclite.Guard
	server *Server
	nets   []config.NetworkConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	age := sim.AgeNetwork()
	age.InputSize = testSize
	gender := sim.GenderNetwork()
	gender.InputSize = testSize

	nets := []config.NetworkConfig{
		{Name: "age", Path: filepath.Join(dir, "Age")},
		{Name: "gender", Path: filepath.Join(dir, "Gender")},
	}

	require.NoError(t, sim.WriteNetwork(nets[0].Path, age))
	require.NoError(t, sim.WriteNetwork(nets[1].Path, gender))

	drv := sim.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sess, err := mvnclite.Open(mvnclite.Config{Driver: drv, Logger: logger})
	require.NoError(t, err)

	guard := mvnclite.NewGuard(sess)
	t.Cleanup(func() { guard.Close(true) })

	return &fixture{
		drv:    drv,
		guard:  guard,
		server: New(guard, nets, imageio.FitStretch, logger),
		nets:   nets,
	}
}

func pngBody(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 20), B: 90, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (f *fixture) do(method, target string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	f.server.Routes().ServeHTTP(w, req)
	return w
}

func TestClassify(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/classify?network=age", pngBody(t, testSize, testSize))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ClassifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "age", resp.Network)
	assert.NotEmpty(t, resp.ID)
	require.Len(t, resp.Top, 5)

	for i := 1; i < len(resp.Top); i++ {
		assert.GreaterOrEqual(t, resp.Top[i-1].Probability, resp.Top[i].Probability)
	}

	require.NotNil(t, resp.DeviceMillis)
	assert.Equal(t, "normal", resp.Throttle)
}

func TestClassifySwitchesNetwork(t *testing.T) {
	f := newFixture(t)
	body := pngBody(t, 20, 12)

	w := f.do(http.MethodPost, "/api/classify?network=age", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(http.MethodPost, "/api/classify?network=gender", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ClassifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	// the gender graph only has two categories
	assert.Len(t, resp.Top, 2)
	assert.Equal(t, 1, f.drv.LiveGraphs())
	assert.Equal(t, 2, f.drv.Allocations())

	w = f.do(http.MethodGet, "/api/networks", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Networks []NetworkResponse `json:"networks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Networks, 2)
	assert.False(t, list.Networks[0].Loaded)
	assert.True(t, list.Networks[1].Loaded)
}

func TestClassifyErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		target string
		body   []byte
		code   int
	}{
		{"missing network", "/api/classify", pngBody(t, testSize, testSize), http.StatusBadRequest},
		{"unknown network", "/api/classify?network=emotion", pngBody(t, testSize, testSize), http.StatusNotFound},
		{"empty body", "/api/classify?network=age", nil, http.StatusBadRequest},
		{"not an image", "/api/classify?network=age", []byte("hello"), http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(http.MethodPost, tc.target, tc.body)
			assert.Equal(t, tc.code, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestClassifyDeviceFailure(t *testing.T) {
	f := newFixture(t)

	f.drv.Fail(sim.OpGetResult, mvnclite.Timeout)
	w := f.do(http.MethodPost, "/api/classify?network=age", pngBody(t, testSize, testSize))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	f.drv.Clear(sim.OpGetResult)
	w = f.do(http.MethodPost, "/api/classify?network=age", pngBody(t, testSize, testSize))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestStatus(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "sim0", resp.Device)
	assert.Equal(t, "opened", resp.State)

	f.do(http.MethodPost, "/api/classify?network=age", pngBody(t, testSize, testSize))

	w = f.do(http.MethodGet, "/api/status", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "network loaded", resp.State)
	assert.Equal(t, f.nets[0].Path, resp.Network)
	assert.Equal(t, 8, resp.Categories)
	assert.Equal(t, 1, resp.Count)
	assert.Len(t, resp.SHA256, 64)
}

func TestGuardClosed(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.guard.Close(true))

	w := f.do(http.MethodGet, "/api/status", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServeShutdown(t *testing.T) {
	f := newFixture(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- f.server.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
