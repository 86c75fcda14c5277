// Package server exposes a shared Session over HTTP
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/swdee/go-mvnclite"
	"github.com/swdee/go-mvnclite/internal/config"
	"github.com/swdee/go-mvnclite/internal/imageio"
)

// MaxImageBytes is the largest image body accepted
const MaxImageBytes = 16 << 20

// Category is one ranked category of a classification
type Category struct {
	Index       int     `json:"index"`
	Label       string  `json:"label"`
	Probability float32 `json:"probability"`
}

// ClassifyResponse is the reply to POST /api/classify
type ClassifyResponse struct {
	ID              string     `json:"id"`
	Network         string     `json:"network"`
	Top             []Category `json:"top"`
	ConvertMillis   float64    `json:"convert_ms"`
	InferenceMillis float64    `json:"inference_ms"`
	DeviceMillis    *float32   `json:"device_ms,omitempty"`
	Throttle        string     `json:"throttle,omitempty"`
	Slow            bool       `json:"slow,omitempty"`
}

// StatusResponse is the reply to GET /api/status
type StatusResponse struct {
	Device     string  `json:"device"`
	State      string  `json:"state"`
	Network    string  `json:"network,omitempty"`
	Categories int     `json:"categories"`
	InputSize  int     `json:"input_size,omitempty"`
	SHA256     string  `json:"sha256,omitempty"`
	Count      int     `json:"inferences"`
	MeanMillis float64 `json:"mean_ms"`
	StdMillis  float64 `json:"stddev_ms"`
	MaxMillis  float64 `json:"max_ms"`
	Slow       int     `json:"slow"`
	Throttled  int     `json:"throttled"`
}

// NetworkResponse describes a configured network
type NetworkResponse struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Loaded bool   `json:"loaded"`
}

// Server classifies images posted to it with the networks it is configured
// with, switching the loaded network on demand
type Server struct {
	guard    *mvnclite.Guard
	networks []config.NetworkConfig
	fit      imageio.Fit
	log      *slog.Logger
}

// New returns a Server using the Session behind guard
func New(guard *mvnclite.Guard, networks []config.NetworkConfig, fit imageio.Fit, logger *slog.Logger) *Server {

	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		guard:    guard,
		networks: networks,
		fit:      fit,
		log:      logger,
	}
}

// badRequestError marks an error caused by the request content
type badRequestError struct {
	err error
}

func (e badRequestError) Error() string { return e.err.Error() }

func (e badRequestError) Unwrap() error { return e.err }

// Routes returns the HTTP handler of the Server
func (s *Server) Routes() http.Handler {

	r := gin.New()
	r.Use(gin.Recovery())
	r.HandleMethodNotAllowed = true

	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "mvnclite is running") })
	r.GET("/api/status", s.StatusHandler)
	r.GET("/api/networks", s.NetworksHandler)
	r.POST("/api/classify", s.ClassifyHandler)

	return r
}

// network returns the configured network named by the request
func (s *Server) network(name string) (config.NetworkConfig, bool) {
	cfg := config.Config{Networks: s.networks}
	return cfg.Network(name)
}

// ClassifyHandler classifies the image in the request body with the network
// given by the "network" query parameter
func (s *Server) ClassifyHandler(c *gin.Context) {

	name := c.Query("network")

	if name == "" {
		if len(s.networks) != 1 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "network is required"})
			return
		}
		name = s.networks[0].Name
	}

	nw, ok := s.network(name)

	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("network '%s' not found", name)})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxImageBytes))

	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(body) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing request body"})
		return
	}

	var res *mvnclite.Result

	err = s.guard.Do(c.Request.Context(), func(sess *mvnclite.Session) error {

		if err := s.switchNetwork(sess, nw); err != nil {
			return err
		}

		img, err := imageio.Decode(bytes.NewReader(body), sess.InputSize(), s.fit)

		if err != nil {
			return badRequestError{err}
		}

		res, err = sess.Classify(img)
		return err
	})

	if err != nil {
		s.log.Warn("classify request failed", "network", nw.Name, "error", err)
		c.AbortWithStatusJSON(statusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, toResponse(nw.Name, res))
}

// switchNetwork makes nw the loaded network of sess
func (s *Server) switchNetwork(sess *mvnclite.Session, nw config.NetworkConfig) error {

	if sess.NetworkPath() == nw.Path {
		return nil
	}

	if sess.State() == mvnclite.StateNetworkLoaded {
		if err := sess.UnloadNetwork(); err != nil {
			return err
		}
	}

	start := time.Now()

	if err := sess.UploadNetwork(nw.Path); err != nil {
		return err
	}

	s.log.Info("switched network", "network", nw.Name, "path", nw.Path, "took", time.Since(start))

	return nil
}

// toResponse converts a Result into its JSON form
func toResponse(name string, res *mvnclite.Result) ClassifyResponse {

	out := ClassifyResponse{
		ID:              res.ID.String(),
		Network:         name,
		Top:             make([]Category, len(res.Classification)),
		ConvertMillis:   float64(res.ConvertTime) / float64(time.Millisecond),
		InferenceMillis: float64(res.InferenceTime) / float64(time.Millisecond),
	}

	for i, p := range res.Classification {
		out.Top[i] = Category{
			Index:       p.LabelIndex,
			Label:       p.Label,
			Probability: p.Probability,
		}
	}

	if t := res.Telemetry; t != nil {
		ms := t.TotalMillis
		out.DeviceMillis = &ms
		out.Throttle = t.Throttle.String()
		out.Slow = t.Slow
	}

	return out
}

// StatusHandler reports the device, loaded network and telemetry summary
func (s *Server) StatusHandler(c *gin.Context) {

	var resp StatusResponse

	err := s.guard.Do(c.Request.Context(), func(sess *mvnclite.Session) error {

		sum := sess.Monitor().Summary()

		resp = StatusResponse{
			Device:     sess.DeviceName(),
			State:      sess.State().String(),
			Network:    sess.NetworkPath(),
			Categories: len(sess.Labels()),
			InputSize:  sess.InputSize(),
			SHA256:     sess.GraphChecksum(),
			Count:      sum.Count,
			MeanMillis: sum.MeanMillis,
			StdMillis:  sum.StdDevMillis,
			MaxMillis:  sum.MaxMillis,
			Slow:       sum.SlowCount,
			Throttled:  sum.ThrottledCount,
		}

		return nil
	})

	if err != nil {
		c.AbortWithStatusJSON(statusCode(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// NetworksHandler lists the configured networks
func (s *Server) NetworksHandler(c *gin.Context) {

	var loaded string

	err := s.guard.Do(c.Request.Context(), func(sess *mvnclite.Session) error {
		loaded = sess.NetworkPath()
		return nil
	})

	if err != nil {
		c.AbortWithStatusJSON(statusCode(err), gin.H{"error": err.Error()})
		return
	}

	out := make([]NetworkResponse, len(s.networks))

	for i, n := range s.networks {
		out[i] = NetworkResponse{Name: n.Name, Path: n.Path, Loaded: n.Path == loaded}
	}

	c.JSON(http.StatusOK, gin.H{"networks": out})
}

// statusCode maps an error to its HTTP status
func statusCode(err error) int {

	var br badRequestError

	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest
	case errors.Is(err, mvnclite.ErrGuardClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}

	switch mvnclite.KindOf(err) {
	case mvnclite.InvalidInput:
		return http.StatusBadRequest
	case mvnclite.DataLoadFailed:
		return http.StatusUnprocessableEntity
	case mvnclite.InvalidDevHandle, mvnclite.NoDeviceFound:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Serve serves the routes on ln until ctx is done, then shuts down
// gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {

	srvr := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srvr.Serve(ln)
	}()

	s.log.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srvr.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
