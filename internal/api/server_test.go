package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/drujensen/tasktracker/internal/domain/events"
	"github.com/drujensen/tasktracker/internal/domain/services"

	"github.com/go-openapi/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	manager := services.NewTaskManager(zap.NewNop(),
		services.WithOutput(&bytes.Buffer{}),
		services.WithDataFile(filepath.Join(t.TempDir(), "tasks.json")),
	)
	return NewServer(manager, events.NewBus(), zap.NewNop())
}

func TestServer_SwaggerDoc(t *testing.T) {
	server := newTestServer(t)
	defer server.Shutdown(t.Context())

	req := httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var doc spec.Swagger
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "2.0", doc.Swagger)
	require.NotNil(t, doc.Paths)

	tasks, ok := doc.Paths.Paths["/api/tasks"]
	require.True(t, ok, "missing /api/tasks")
	assert.NotNil(t, tasks.Get)
	assert.NotNil(t, tasks.Post)

	byID, ok := doc.Paths.Paths["/api/tasks/{id}"]
	require.True(t, ok, "missing /api/tasks/{id}")
	assert.NotNil(t, byID.Get)
	assert.NotNil(t, byID.Put)
	assert.NotNil(t, byID.Delete)

	for _, path := range []string{"/api/tasks/save", "/api/tasks/load", "/api/tasks/export", "/api/tasks/{id}/description", "/api/tasks/events"} {
		assert.Contains(t, doc.Paths.Paths, path)
	}
	assert.Contains(t, doc.Definitions, "TaskRequest")
}

func TestServer_SharesRegisteredDoc(t *testing.T) {
	first := newTestServer(t)
	defer first.Shutdown(t.Context())

	require.NotPanics(t, func() {
		second := newTestServer(t)
		second.Shutdown(t.Context())
	})
}

func TestServer_ServesTaskRoutes(t *testing.T) {
	server := newTestServer(t)
	defer server.Shutdown(t.Context())

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
