// Package preview serves a finished workspace over local HTTP so a
// change can be inspected in a browser.
package preview

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultPort is the preferred preview port.
const DefaultPort = 7777

const portScanRange = 100

// Server hosts the workspace directory over HTTP.
type Server struct {
	dir  string
	port int
	srv  *http.Server
}

// New creates a preview server for dir. port 0 means DefaultPort.
func New(dir string, port int) *Server {
	if port <= 0 {
		port = DefaultPort
	}
	return &Server{dir: dir, port: port}
}

// findPort probes upward from the preferred port for a free one.
func (s *Server) findPort() (int, error) {
	for port := s.port; port < s.port+portScanRange; port++ {
		l, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err != nil {
			continue
		}
		_ = l.Close()
		return port, nil
	}
	return 0, fmt.Errorf("no available port in %d-%d", s.port, s.port+portScanRange-1)
}

// Start serves the directory in the background and verifies the server
// answers one request. Returns the URL it listens on.
func (s *Server) Start() (string, error) {
	port, err := s.findPort()
	if err != nil {
		return "", err
	}
	if port != s.port {
		log.Warn().Int("preferred", s.port).Int("port", port).Msg("preview: preferred port busy")
	}
	s.port = port

	addr := fmt.Sprintf("localhost:%d", port)
	s.srv = &http.Server{
		Addr:    addr,
		Handler: http.FileServer(http.Dir(s.dir)),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	url := "http://" + addr
	if err := s.verify(url, errCh); err != nil {
		_ = s.Shutdown(context.Background())
		return "", err
	}
	log.Info().Str("url", url).Str("dir", s.dir).Msg("preview: serving workspace")
	return url, nil
}

func (s *Server) verify(url string, errCh <-chan error) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case err := <-errCh:
			return fmt.Errorf("preview server failed to start: %w", err)
		default:
		}
		resp, err := client.Get(url + "/")
		if err == nil {
			_ = resp.Body.Close()
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("preview server did not answer on %s", url)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
