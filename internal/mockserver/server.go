// Package mockserver serves the interactions of a pact over HTTP and feeds
// every received request to an interaction session.
package mockserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prasenjit/go-pact/internal/logging"
	"github.com/prasenjit/go-pact/internal/models"
	"github.com/prasenjit/go-pact/internal/session"
	"github.com/prasenjit/go-pact/internal/tlsutil"
)

// Config configures the listener of a mock server
type Config struct {
	Host string
	// Port 0 picks a free port
	Port int
	// TLS enables HTTPS. Plain HTTP is still accepted on the same port.
	TLS          *tls.Config
	ReadTimeout  time.Duration
	MaxBodyBytes int64
}

const defaultMaxBodyBytes = 10 << 20

// Server is a running mock server
type Server struct {
	cfg      Config
	session  *session.Session
	logger   *slog.Logger
	listener net.Listener
	srv      *http.Server
	url      string

	stopOnce sync.Once
	serveErr chan error
}

// Start listens on the configured address and serves the interactions until
// Stop is called. The session is created once the bound address is known so
// mock server URL generators see the real port.
func Start(cfg Config, interactions []*models.Interaction, logger *slog.Logger, opts ...session.Option) (*Server, error) {
	logger = logging.OrNop(logger).With("component", "mockserver")
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	scheme := "http"
	if cfg.TLS != nil {
		scheme = "https"
		ln = tlsutil.NewDualListener(ln, cfg.TLS, logger)
	}
	url := fmt.Sprintf("%s://%s", scheme, ln.Addr().String())

	opts = append([]session.Option{session.WithLogger(logger)}, opts...)
	opts = append(opts, session.WithMockServerURL(url))

	s := &Server{
		cfg:      cfg,
		session:  session.New(interactions, opts...),
		logger:   logger,
		listener: ln,
		url:      url,
		serveErr: make(chan error, 1),
	}
	s.srv = &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: cfg.ReadTimeout,
	}

	go func() {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.serveErr <- err
	}()

	logger.Info("mock server started", "url", url, "session", s.session.ID(), "interactions", len(interactions))
	return s, nil
}

// URL is the base URL clients should call
func (s *Server) URL() string {
	return s.url
}

// Port is the bound TCP port
func (s *Server) Port() int {
	if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// Session returns the interaction session behind the server
func (s *Server) Session() *session.Session {
	return s.session
}

// Handler returns the gin engine that forwards every request to the session
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(logging.Middleware(s.logger, "mockserver"))
	router.NoRoute(s.handle)
	return router
}

func (s *Server) handle(c *gin.Context) {
	req, err := toRequest(c.Writer, c.Request, s.cfg.MaxBodyBytes)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, class := s.session.ReceiveRequest(c.Request.Context(), req)
	if class != session.FullMatch {
		s.logger.Debug("request did not match", "request", req.Describe(), "classification", class)
	}
	writeResponse(c, resp)
}

// Stop shuts the listener down, waits for in-flight requests and returns the
// final results of the session
func (s *Server) Stop(ctx context.Context) (session.Results, error) {
	var shutdownErr error
	s.stopOnce.Do(func() {
		if err := s.srv.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("shutdown: %w", err)
			return
		}
		if err := <-s.serveErr; err != nil {
			s.logger.Warn("serve stopped with error", "error", err)
		}
	})
	if shutdownErr != nil {
		return session.Results{}, shutdownErr
	}

	results, err := s.session.RemainingResults(ctx)
	if err != nil {
		return results, err
	}
	s.logger.Info("mock server stopped", "url", s.url,
		"matched", len(results.Matched),
		"missing", len(results.Missing),
		"unexpected", len(results.Unexpected),
		"partial", len(results.AlmostMatched))
	return results, nil
}

func toRequest(w http.ResponseWriter, r *http.Request, maxBody int64) (*models.Request, error) {
	req := models.NewRequest(r.Method, r.URL.Path)
	for k, v := range r.URL.Query() {
		req.Query[k] = v
	}
	for k, v := range r.Header {
		req.Headers[k] = append([]string(nil), v...)
	}

	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = models.DetectContentType(content)
	}
	req.Body = models.NewBody(content, contentType)
	return req, nil
}

func writeResponse(c *gin.Context, resp *models.Response) {
	h := c.Writer.Header()
	for k, values := range resp.Headers {
		for _, v := range values {
			h.Add(k, v)
		}
	}
	if resp.Body.IsPresent() && h.Get("Content-Type") == "" {
		ct := resp.Body.ContentType
		if ct == "" {
			ct = models.DetectContentType(resp.Body.Content)
		}
		h.Set("Content-Type", ct)
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	c.Status(status)
	// flush the header so gin does not substitute its own 404 body
	c.Writer.WriteHeaderNow()
	if resp.Body.IsPresent() {
		_, _ = c.Writer.Write(resp.Body.Content)
	}
}
