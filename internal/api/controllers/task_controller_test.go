package apicontrollers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/drujensen/tasktracker/internal/domain/entities"
	"github.com/drujensen/tasktracker/internal/domain/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testAPI struct {
	echo     *echo.Echo
	manager  *services.TaskManager
	dataFile string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	dataFile := filepath.Join(t.TempDir(), "tasks.json")
	manager := services.NewTaskManager(zap.NewNop(),
		services.WithOutput(&bytes.Buffer{}),
		services.WithDataFile(dataFile),
	)

	e := echo.New()
	NewTaskController(zap.NewNop(), manager).RegisterRoutes(e.Group("/api"))
	return &testAPI{echo: e, manager: manager, dataFile: dataFile}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) create(t *testing.T, title, due string) TaskResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/tasks", TaskRequest{Title: title, Description: "**" + title + "**", DueDate: due})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	return created
}

func TestTaskController_CreateAndList(t *testing.T) {
	api := newTestAPI(t)

	first := api.create(t, "Task1", "15-04-2024")
	api.create(t, "Task2", "10-04-2024")

	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "15-04-2024", first.DueDate)

	rec := api.do(t, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tasks []TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 2)
	assert.Equal(t, "Task1", tasks[0].Title)

	rec = api.do(t, http.MethodGet, "/api/tasks?sort=due", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	assert.Equal(t, "Task2", tasks[0].Title)
}

func TestTaskController_CreateRejectsBadDate(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/tasks", TaskRequest{Title: "T", DueDate: "2024-04-15"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "DD-MM-YYYY")
	assert.Empty(t, api.manager.GetAllTasks())
}

func TestTaskController_GetUpdateDelete(t *testing.T) {
	api := newTestAPI(t)
	created := api.create(t, "Task1", "15-04-2024")

	rec := api.do(t, http.MethodGet, "/api/tasks/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPut, "/api/tasks/"+created.ID, TaskRequest{Title: "Renamed", Description: "New", DueDate: "01-05-2024"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, TaskResponse{ID: created.ID, Title: "Renamed", Description: "New", DueDate: "01-05-2024"}, updated)

	rec = api.do(t, http.MethodPut, "/api/tasks/"+created.ID, TaskRequest{Title: "Renamed", DueDate: "01.05.2024"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodDelete, "/api/tasks/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, api.manager.GetAllTasks())

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec = api.do(t, method, "/api/tasks/"+created.ID, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, method)
	}
	rec = api.do(t, http.MethodPut, "/api/tasks/"+created.ID, TaskRequest{Title: "X", DueDate: "01-05-2024"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskController_SaveAndLoad(t *testing.T) {
	api := newTestAPI(t)
	api.create(t, "Task1", "15-04-2024")

	rec := api.do(t, http.MethodPost, "/api/tasks/save", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"storage":"`+api.dataFile+`","count":1}`, rec.Body.String())

	data, err := os.ReadFile(api.dataFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Title": "Task1"`)

	api.create(t, "Task2", "16-04-2024")

	rec = api.do(t, http.MethodPost, "/api/tasks/load", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"storage":"`+api.dataFile+`","count":1}`, rec.Body.String())
}

func TestTaskController_LoadMalformedFile(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, os.WriteFile(api.dataFile, []byte(`[{"Title": 1}]`), 0644))

	rec := api.do(t, http.MethodPost, "/api/tasks/load", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTaskController_Export(t *testing.T) {
	api := newTestAPI(t)
	api.create(t, "Later", "20-04-2024")
	api.create(t, "Sooner", "10-04-2024")

	rec := api.do(t, http.MethodGet, "/api/tasks/export?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/csv"))
	assert.Equal(t, "attachment; filename=tasks.csv", rec.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, "Title,Description,DueDate\nSooner,**Sooner**,10-04-2024\nLater,**Later**,20-04-2024\n", rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/tasks/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tasks, err := entities.UnmarshalTasks(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	rec = api.do(t, http.MethodGet, "/api/tasks/export?format=pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))

	rec = api.do(t, http.MethodGet, "/api/tasks/export?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskController_RenderDescription(t *testing.T) {
	api := newTestAPI(t)
	created := api.create(t, "Bold", "15-04-2024")

	rec := api.do(t, http.MethodGet, "/api/tasks/"+created.ID+"/description", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p><strong>Bold</strong></p>\n", rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/tasks/missing/description", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewTaskResponse(t *testing.T) {
	task := entities.NewTask("T", "D", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, TaskResponse{ID: task.ID, Title: "T", Description: "D", DueDate: "02-01-2024"}, NewTaskResponse(task))
}
