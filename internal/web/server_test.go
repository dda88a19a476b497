package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/crashkit/internal/fatal"
	"github.com/hugo-lorenzo-mato/crashkit/internal/logging"
	"github.com/hugo-lorenzo-mato/crashkit/internal/reports"
)

type nopHandler struct{}

func (nopHandler) OnFatalError(w io.Writer) { fmt.Fprint(w, "nop") }

func newTestServer(t *testing.T) (*Server, *fatal.Registry, *reports.Store) {
	t.Helper()

	reg := fatal.NewRegistry()
	store, err := reports.NewStore(filepath.Join(t.TempDir(), "reports"), 10, logging.NewNop().Logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	srv := New(DefaultConfig(), logging.NewNop().Logger, reg, store)
	return srv, reg, store
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := get(t, srv, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestServer_Status(t *testing.T) {
	srv, reg, _ := newTestServer(t)
	reg.Register(&nopHandler{})
	reg.Register(&nopHandler{})

	rec := get(t, srv, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Enabled  bool `json:"enabled"`
		Handlers int  `json:"handlers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Enabled)
	assert.Equal(t, 2, status.Handlers)
}

func TestServer_ReportsEmpty(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := get(t, srv, "/api/v1/reports")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = get(t, srv, "/api/v1/reports/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ReportLifecycle(t *testing.T) {
	srv, _, store := newTestServer(t)

	f, err := store.Open()
	require.NoError(t, err)
	_, err = f.WriteString("fatal signal: SIGSEGV\n--- build ---\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	_, err = store.Scan(context.Background())
	require.NoError(t, err)

	rec := get(t, srv, "/api/v1/reports")
	require.Equal(t, http.StatusOK, rec.Code)

	var list []reports.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "fatal signal: SIGSEGV", list[0].Cause)

	rec = get(t, srv, "/api/v1/reports/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, srv, "/api/v1/reports/"+list[0].ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "--- build ---")

	rec = get(t, srv, "/api/v1/reports/does-not-exist")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ListLimitValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := get(t, srv, "/api/v1/reports?limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, srv, "/api/v1/reports?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
