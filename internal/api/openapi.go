package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-openapi/spec"
	"github.com/swaggo/swag"
)

// DocName is the swag instance the task API description is registered under.
const DocName = "tasktracker"

var registerDocOnce sync.Once

type apiDoc struct {
	once sync.Once
	doc  string
}

func (d *apiDoc) ReadDoc() string {
	d.once.Do(func() {
		data, err := json.Marshal(TaskAPISpec())
		if err != nil {
			d.doc = "{}"
			return
		}
		d.doc = string(data)
	})
	return d.doc
}

// registerDoc makes the description available to echo-swagger. swag panics
// on a second registration, so every server shares one instance.
func registerDoc() {
	registerDocOnce.Do(func() {
		if swag.GetSwagger(DocName) == nil {
			swag.Register(DocName, &apiDoc{})
		}
	})
}

// TaskAPISpec describes the routes served under /api.
func TaskAPISpec() *spec.Swagger {
	taskRequest := new(spec.Schema).
		Typed("object", "").
		WithProperties(map[string]spec.Schema{
			"Title":       *spec.StringProperty(),
			"Description": *spec.StringProperty(),
			"DueDate":     *spec.StringProperty().WithDescription("DD-MM-YYYY"),
		}).
		WithRequired("Title", "DueDate")
	taskResponse := new(spec.Schema).
		Typed("object", "").
		WithProperties(map[string]spec.Schema{
			"ID":          *spec.StringProperty(),
			"Title":       *spec.StringProperty(),
			"Description": *spec.StringProperty(),
			"DueDate":     *spec.StringProperty().WithDescription("DD-MM-YYYY"),
		})
	storageResponse := new(spec.Schema).
		Typed("object", "").
		WithProperties(map[string]spec.Schema{
			"storage": *spec.StringProperty(),
			"count":   *spec.Int64Property(),
		})
	errorResponse := new(spec.Schema).
		Typed("object", "").
		WithProperties(map[string]spec.Schema{
			"error": *spec.StringProperty(),
		})

	ok := func(description string, schema *spec.Schema) *spec.Response {
		return spec.NewResponse().WithDescription(description).WithSchema(schema)
	}
	failure := func(description string) *spec.Response {
		return ok(description, spec.RefSchema("#/definitions/ErrorResponse"))
	}
	taskRef := spec.RefSchema("#/definitions/TaskResponse")
	storageRef := spec.RefSchema("#/definitions/StorageResponse")
	idParam := spec.PathParam("id").Typed("string", "").WithDescription("Task ID")
	bodyParam := spec.BodyParam("task", spec.RefSchema("#/definitions/TaskRequest")).AsRequired()

	paths := map[string]spec.PathItem{
		"/api/tasks": {PathItemProps: spec.PathItemProps{
			Get: spec.NewOperation("listTasks").
				WithTags("tasks").
				WithSummary("List all tasks").
				WithProduces("application/json").
				AddParam(spec.QueryParam("sort").Typed("string", "").WithEnum("due")).
				RespondsWith(http.StatusOK, ok("OK", spec.ArrayProperty(taskRef))),
			Post: spec.NewOperation("createTask").
				WithTags("tasks").
				WithSummary("Create a task").
				WithConsumes("application/json").
				WithProduces("application/json").
				AddParam(bodyParam).
				RespondsWith(http.StatusCreated, ok("Created", taskRef)).
				RespondsWith(http.StatusBadRequest, failure("Invalid task")),
		}},
		"/api/tasks/save": {PathItemProps: spec.PathItemProps{
			Post: spec.NewOperation("saveTasks").
				WithTags("tasks").
				WithSummary("Persist all tasks to the configured storage").
				WithProduces("application/json").
				RespondsWith(http.StatusOK, ok("OK", storageRef)).
				RespondsWith(http.StatusInternalServerError, failure("Storage failure")),
		}},
		"/api/tasks/load": {PathItemProps: spec.PathItemProps{
			Post: spec.NewOperation("loadTasks").
				WithTags("tasks").
				WithSummary("Replace all tasks from the configured storage").
				WithProduces("application/json").
				RespondsWith(http.StatusOK, ok("OK", storageRef)).
				RespondsWith(http.StatusUnprocessableEntity, failure("Malformed task file")),
		}},
		"/api/tasks/export": {PathItemProps: spec.PathItemProps{
			Get: spec.NewOperation("exportTasks").
				WithTags("tasks").
				WithSummary("Export all tasks sorted by due date").
				WithProduces("application/json", "text/csv", "application/pdf").
				AddParam(spec.QueryParam("format").Typed("string", "").WithEnum("json", "csv", "pdf")).
				RespondsWith(http.StatusOK, spec.NewResponse().WithDescription("Exported file")).
				RespondsWith(http.StatusBadRequest, failure("Unknown format")),
		}},
		"/api/tasks/{id}": {PathItemProps: spec.PathItemProps{
			Get: spec.NewOperation("getTask").
				WithTags("tasks").
				WithSummary("Get a task by ID").
				WithProduces("application/json").
				AddParam(idParam).
				RespondsWith(http.StatusOK, ok("OK", taskRef)).
				RespondsWith(http.StatusNotFound, failure("Task not found")),
			Put: spec.NewOperation("updateTask").
				WithTags("tasks").
				WithSummary("Replace the fields of a task").
				WithConsumes("application/json").
				WithProduces("application/json").
				AddParam(idParam).
				AddParam(bodyParam).
				RespondsWith(http.StatusOK, ok("OK", taskRef)).
				RespondsWith(http.StatusBadRequest, failure("Invalid task")).
				RespondsWith(http.StatusNotFound, failure("Task not found")),
			Delete: spec.NewOperation("deleteTask").
				WithTags("tasks").
				WithSummary("Delete a task").
				AddParam(idParam).
				RespondsWith(http.StatusNoContent, spec.NewResponse().WithDescription("Deleted")).
				RespondsWith(http.StatusNotFound, failure("Task not found")),
		}},
		"/api/tasks/{id}/description": {PathItemProps: spec.PathItemProps{
			Get: spec.NewOperation("renderTaskDescription").
				WithTags("tasks").
				WithSummary("Render a task description as HTML").
				WithProduces("text/html").
				AddParam(idParam).
				RespondsWith(http.StatusOK, spec.NewResponse().WithDescription("Rendered HTML")).
				RespondsWith(http.StatusNotFound, failure("Task not found")),
		}},
		"/api/tasks/events": {PathItemProps: spec.PathItemProps{
			Get: spec.NewOperation("taskEvents").
				WithTags("events").
				WithSummary("Stream task events over a websocket").
				RespondsWith(http.StatusSwitchingProtocols, spec.NewResponse().WithDescription("Websocket upgrade")),
		}},
	}

	return &spec.Swagger{SwaggerProps: spec.SwaggerProps{
		Swagger: "2.0",
		Info: &spec.Info{InfoProps: spec.InfoProps{
			Title:       "Task Tracker API",
			Description: "Manage tasks with DD-MM-YYYY due dates.",
			Version:     "1.0",
		}},
		Consumes: []string{"application/json"},
		Produces: []string{"application/json"},
		Paths:    &spec.Paths{Paths: paths},
		Definitions: spec.Definitions{
			"TaskRequest":     *taskRequest,
			"TaskResponse":    *taskResponse,
			"StorageResponse": *storageResponse,
			"ErrorResponse":   *errorResponse,
		},
	}}
}
