package mockserver

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prasenjit/go-pact/internal/config"
	"github.com/prasenjit/go-pact/internal/generators"
	"github.com/prasenjit/go-pact/internal/matchers"
	"github.com/prasenjit/go-pact/internal/models"
	"github.com/prasenjit/go-pact/internal/session"
	"github.com/prasenjit/go-pact/internal/tlsutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func userInteraction() *models.Interaction {
	req := models.NewRequest("POST", "/users")
	req.Headers["Content-Type"] = []string{"application/json"}
	req.Body = models.NewBody([]byte(`{"name":"Mary"}`), "application/json")

	resp := models.NewResponse(201)
	resp.Headers["Content-Type"] = []string{"application/json"}
	resp.Body = models.NewBody([]byte(`{"id":1,"name":"Mary","self":"http://example/users/1"}`), "application/json")
	resp.Generators.Add(matchers.CategoryBody, "$.self", generators.MockServerURLGenerator{
		Example: "http://example/users/1",
		Regex:   `.*(/users/\d+)$`,
	})

	return &models.Interaction{Description: "create a user", Request: req, Response: resp}
}

func start(t *testing.T, cfg Config, interactions ...*models.Interaction) *Server {
	t.Helper()
	s, err := Start(cfg, interactions, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Stop(context.Background()) })
	return s
}

func TestStartOnEphemeralPort(t *testing.T) {
	s := start(t, Config{}, userInteraction())

	assert.NotZero(t, s.Port())
	assert.True(t, strings.HasPrefix(s.URL(), "http://127.0.0.1:"))
	assert.Equal(t, session.Armed, s.Session().State())
}

func TestMatchedRequestGetsGeneratedResponse(t *testing.T) {
	s := start(t, Config{}, userInteraction())

	resp, err := http.Post(s.URL()+"/users", "application/json", strings.NewReader(`{"name":"Mary"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"id":1,"name":"Mary","self":"`+s.URL()+`/users/1"}`, string(body))

	results, err := s.Stop(context.Background())
	require.NoError(t, err)
	assert.True(t, results.AllMatched())
	assert.Len(t, results.Matched, 1)
}

func TestUnexpectedRequestGets500(t *testing.T) {
	s := start(t, Config{}, userInteraction())

	resp, err := http.Get(s.URL() + "/nothing?x=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get(session.UnexpectedRequestHeader))
	assert.JSONEq(t, `{"error":"Unexpected request : GET /nothing"}`, string(body))

	results, err := s.Stop(context.Background())
	require.NoError(t, err)
	require.Len(t, results.Unexpected, 1)
	assert.Equal(t, []string{"1"}, results.Unexpected[0].Query["x"])
	assert.Len(t, results.Missing, 1)
	assert.False(t, results.AllMatched())
}

func TestPartialMatchIsRecorded(t *testing.T) {
	s := start(t, Config{}, userInteraction())

	resp, err := http.Post(s.URL()+"/users", "application/json", strings.NewReader(`{"name":"Bob"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	results, err := s.Stop(context.Background())
	require.NoError(t, err)
	require.Len(t, results.AlmostMatched, 1)
	assert.NotEmpty(t, results.AlmostMatched[0].Mismatches)
}

func TestBodyLimit(t *testing.T) {
	s := start(t, Config{MaxBodyBytes: 8}, userInteraction())

	resp, err := http.Post(s.URL()+"/users", "application/json", bytes.NewReader(bytes.Repeat([]byte("a"), 64)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestNotFoundStatusWithoutBody(t *testing.T) {
	in := &models.Interaction{
		Description: "missing thing",
		Request:     models.NewRequest("GET", "/thing"),
		Response:    models.NewResponse(404),
	}
	s := start(t, Config{}, in)

	resp, err := http.Get(s.URL() + "/thing")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, body)
}

func TestStopTwiceReturnsFinalized(t *testing.T) {
	s, err := Start(Config{}, []*models.Interaction{userInteraction()}, nil)
	require.NoError(t, err)

	_, err = s.Stop(context.Background())
	require.NoError(t, err)
	_, err = s.Stop(context.Background())
	assert.ErrorIs(t, err, session.ErrFinalized)

	_, err = http.Get(s.URL() + "/users")
	assert.Error(t, err, "listener should be closed")
}

func TestTLS(t *testing.T) {
	storage := t.TempDir()
	opts := tlsutil.OptionsFromConfig(config.ServerConfig{
		Host: "127.0.0.1",
		TLS:  config.TLSConfig{Enabled: true, AutoGenerate: true},
	}, storage)
	certs := tlsutil.NewCertificateManager(opts, nil)
	cfg, err := certs.ServerConfig()
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(storage, "certs", "server.crt"))

	s := start(t, Config{Host: "127.0.0.1", TLS: cfg}, userInteraction())
	require.True(t, strings.HasPrefix(s.URL(), "https://"))

	pool, err := certs.CertPool()
	require.NoError(t, err)
	client := &http.Client{
		Timeout:   5 * time.Second,
		Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool}},
	}
	resp, err := client.Post(s.URL()+"/users", "application/json", strings.NewReader(`{"name":"Mary"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// a second run reuses the stored certificate
	again, err := tlsutil.NewCertificateManager(opts, nil).ServerConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg.Certificates[0].Certificate[0], again.Certificates[0].Certificate[0])

	// the same port still answers plain HTTP
	plain, err := http.Post("http://"+strings.TrimPrefix(s.URL(), "https://")+"/nothing", "text/plain", nil)
	require.NoError(t, err)
	plain.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, plain.StatusCode)
}

func TestHandlerWithHTTPTest(t *testing.T) {
	s := start(t, Config{}, userInteraction())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/users", strings.NewReader(`{"name":"Mary"}`))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Mary"`)
}
