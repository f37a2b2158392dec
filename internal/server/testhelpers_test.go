package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/razvandimescu/molesk/internal/cache"
	"github.com/razvandimescu/molesk/internal/config"
)

const testRoot = "/site"

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Address = "localhost"
	cfg.Server.Port = 8080
	cfg.Server.ShutdownTimeout = time.Second
	cfg.Site.Root = testRoot
	cfg.Site.Title = "Blog"
	return cfg
}

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(testRoot, 0755))
	for rel, data := range files {
		full := filepath.Join(testRoot, rel)
		require.NoError(t, fs.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, afero.WriteFile(fs, full, []byte(data), 0644))
	}
}

type testServer struct {
	*Server
	fs      afero.Fs
	store   *cache.Store
	handler http.Handler
}

// newTestServer builds a Server over an in-memory root holding files.
// mutate, when set, adjusts the configuration first.
func newTestServer(t *testing.T, files map[string]string, mutate func(*config.Config), opts ...func(*Options)) *testServer {
	t.Helper()
	fs := afero.NewMemMapFs()
	if files != nil {
		writeFiles(t, fs, files)
	}
	return newTestServerFs(t, fs, mutate, opts...)
}

func newTestServerFs(t *testing.T, fs afero.Fs, mutate func(*config.Config), opts ...func(*Options)) *testServer {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	store := cache.NewStore(nil)
	o := Options{Fs: fs, Store: store}
	for _, opt := range opts {
		opt(&o)
	}
	srv, err := New(cfg, o)
	require.NoError(t, err)
	return &testServer{Server: srv, fs: fs, store: store, handler: srv.Handler()}
}

// get performs a GET. Pairs in headers are name, value.
func (ts *testServer) get(t *testing.T, target string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

// failingFs refuses to open one path.
type failingFs struct {
	afero.Fs
	path string
}

func (f *failingFs) Open(name string) (afero.File, error) {
	if filepath.Clean(name) == f.path {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.Open(name)
}

type request struct {
	route  string
	status int
}

type recordingMetrics struct {
	mu       sync.Mutex
	requests []request
	live     []int
}

func (m *recordingMetrics) RecordRequest(route string, status int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, request{route, status})
}

func (m *recordingMetrics) SetLiveClients(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live = append(m.live, n)
}
