// Package server is the HTTP surface of the listener: routes that feed the
// speech queue, stop playback, report health and stream queue events.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/clipspeak/internal/metrics"
	"github.com/dgnsrekt/clipspeak/internal/queue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 5 * time.Second

	// maxBodyBytes bounds JSON request bodies.
	maxBodyBytes = 1 << 20
)

// Queue is the part of the job queue the server drives.
type Queue interface {
	EnqueueFrom(source, text string) (queue.Job, error)
	Clear() int
	Len() int
	State() queue.State
}

// Extractor turns a URL into readable text.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Server wires the routes to a queue.
type Server struct {
	queue     Queue
	extractor Extractor
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	hub       *Hub

	mux *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithExtractor enables POST /extract-text.
func WithExtractor(e Extractor) Option {
	return func(s *Server) { s.extractor = e }
}

// WithMetrics records request counts in m and serves g on GET /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// WithHub serves queue events from h on GET /events.
func WithHub(h *Hub) Option {
	return func(s *Server) { s.hub = h }
}

// New creates a server for q.
func New(q Queue, opts ...Option) *Server {
	s := &Server{queue: q, mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /tts", s.handleTTS)
	s.mux.HandleFunc("POST /extract-text", s.handleExtract)
	s.mux.HandleFunc("POST /stop-tts", s.handleStop)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.hub != nil {
		s.mux.Handle("GET /events", s.hub)
	}
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return requestLogger(s.metrics, s.mux)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Debug("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if s.hub != nil {
		s.hub.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// LocalIP returns the first non-loopback IPv4 address of this machine, or
// 0.0.0.0 when there is none.
func LocalIP() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "0.0.0.0"
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipnet.IP.To4(); ip4 != nil && !ip4.IsLoopback() {
				return ip4.String()
			}
		}
	}
	return "0.0.0.0"
}

// Banner is the line printed once the server is listening.
func Banner(port int) string {
	return fmt.Sprintf("Server listening at http://localhost:%d and http://%s:%d", port, LocalIP(), port)
}
