package apicontrollers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/drujensen/tasktracker/internal/domain/entities"
	"github.com/drujensen/tasktracker/internal/domain/errs"
	"github.com/drujensen/tasktracker/internal/domain/services"
	"github.com/drujensen/tasktracker/internal/impl/export"

	"github.com/labstack/echo/v4"
	"github.com/yuin/goldmark"
	gfmext "github.com/yuin/goldmark/extension"
	"go.uber.org/zap"
)

// TaskRequest is the body accepted by create and update.
type TaskRequest struct {
	Title       string `json:"Title"`
	Description string `json:"Description"`
	DueDate     string `json:"DueDate"`
}

// TaskResponse is a task as returned by the API.
type TaskResponse struct {
	ID          string `json:"ID"`
	Title       string `json:"Title"`
	Description string `json:"Description"`
	DueDate     string `json:"DueDate"`
}

type StorageResponse struct {
	Storage string `json:"storage"`
	Count   int    `json:"count"`
}

func NewTaskResponse(task *entities.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.FormattedDueDate(),
	}
}

// TaskController serves the task collection over HTTP. The task service is
// not safe for concurrent use, so every handler holds mu.
type TaskController struct {
	logger      *zap.Logger
	taskService services.TaskService
	mu          sync.Mutex
	markdown    goldmark.Markdown
}

func NewTaskController(logger *zap.Logger, taskService services.TaskService) *TaskController {
	return &TaskController{
		logger:      logger,
		taskService: taskService,
		markdown:    goldmark.New(goldmark.WithExtensions(gfmext.GFM)),
	}
}

// RegisterRoutes registers all task-related routes with Echo
func (c *TaskController) RegisterRoutes(e *echo.Group) {
	e.GET("/tasks", c.ListTasks)
	e.POST("/tasks", c.CreateTask)
	e.POST("/tasks/save", c.SaveTasks)
	e.POST("/tasks/load", c.LoadTasks)
	e.GET("/tasks/export", c.ExportTasks)
	e.GET("/tasks/:id", c.GetTask)
	e.PUT("/tasks/:id", c.UpdateTask)
	e.DELETE("/tasks/:id", c.DeleteTask)
	e.GET("/tasks/:id/description", c.RenderDescription)
}

// ListTasks godoc
// @Summary List all tasks
// @Description Retrieves all tasks in insertion order, or by due date with sort=due.
// @Tags tasks
// @Produce json
// @Param sort query string false "Sort order (due)"
// @Success 200 {array} TaskResponse "Successfully retrieved list of tasks"
// @Router /api/tasks [get]
func (c *TaskController) ListTasks(ctx echo.Context) error {
	c.mu.Lock()
	tasks := c.taskService.GetAllTasks()
	if ctx.QueryParam("sort") == "due" {
		entities.SortByDueDate(tasks)
	}
	response := make([]TaskResponse, len(tasks))
	for i, task := range tasks {
		response[i] = NewTaskResponse(task)
	}
	c.mu.Unlock()

	return ctx.JSON(http.StatusOK, response)
}

// GetTask godoc
// @Summary Get a task by ID
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} TaskResponse "Successfully retrieved task"
// @Failure 404 {object} map[string]interface{} "Task not found"
// @Router /api/tasks/{id} [get]
func (c *TaskController) GetTask(ctx echo.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	task, err := c.taskService.GetTask(ctx.Param("id"))
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, NewTaskResponse(task))
}

// CreateTask godoc
// @Summary Create a task
// @Tags tasks
// @Accept json
// @Produce json
// @Param task body TaskRequest true "Task with a DD-MM-YYYY due date"
// @Success 201 {object} TaskResponse "Task created"
// @Failure 400 {object} map[string]interface{} "Invalid request body or due date"
// @Router /api/tasks [post]
func (c *TaskController) CreateTask(ctx echo.Context) error {
	var req TaskRequest
	if err := ctx.Bind(&req); err != nil {
		return c.handleError(ctx, "Invalid request body", http.StatusBadRequest)
	}

	task, err := entities.NewTaskFromFormatted(req.Title, req.Description, req.DueDate)
	if err != nil {
		return c.handleServiceError(ctx, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.taskService.AddTask(task); err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, NewTaskResponse(task))
}

// UpdateTask godoc
// @Summary Replace the fields of a task
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param task body TaskRequest true "New task fields"
// @Success 200 {object} TaskResponse "Task updated"
// @Failure 400 {object} map[string]interface{} "Invalid request body or due date"
// @Failure 404 {object} map[string]interface{} "Task not found"
// @Router /api/tasks/{id} [put]
func (c *TaskController) UpdateTask(ctx echo.Context) error {
	var req TaskRequest
	if err := ctx.Bind(&req); err != nil {
		return c.handleError(ctx, "Invalid request body", http.StatusBadRequest)
	}

	dueDate, err := entities.ParseDueDate(req.DueDate)
	if err != nil {
		return c.handleServiceError(ctx, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	task, err := c.taskService.GetTask(ctx.Param("id"))
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	if err := c.taskService.EditTask(task, req.Title, req.Description, dueDate); err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, NewTaskResponse(task))
}

// DeleteTask godoc
// @Summary Delete a task
// @Tags tasks
// @Param id path string true "Task ID"
// @Success 204 "Task deleted"
// @Failure 404 {object} map[string]interface{} "Task not found"
// @Router /api/tasks/{id} [delete]
func (c *TaskController) DeleteTask(ctx echo.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	task, err := c.taskService.GetTask(ctx.Param("id"))
	if err != nil {
		return c.handleServiceError(ctx, err)
	}
	if err := c.taskService.DeleteTask(task); err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// SaveTasks godoc
// @Summary Persist all tasks to the configured storage
// @Tags tasks
// @Produce json
// @Success 200 {object} StorageResponse "Tasks saved"
// @Router /api/tasks/save [post]
func (c *TaskController) SaveTasks(ctx echo.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.taskService.Save(ctx.Request().Context()); err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, StorageResponse{
		Storage: c.taskService.StorageName(),
		Count:   len(c.taskService.GetAllTasks()),
	})
}

// LoadTasks godoc
// @Summary Replace all tasks from the configured storage
// @Tags tasks
// @Produce json
// @Success 200 {object} StorageResponse "Tasks loaded"
// @Failure 400 {object} map[string]interface{} "Stored tasks are invalid"
// @Router /api/tasks/load [post]
func (c *TaskController) LoadTasks(ctx echo.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.taskService.Load(ctx.Request().Context()); err != nil {
		return c.handleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, StorageResponse{
		Storage: c.taskService.StorageName(),
		Count:   len(c.taskService.GetAllTasks()),
	})
}

// ExportTasks godoc
// @Summary Export all tasks sorted by due date
// @Tags tasks
// @Produce json,text/csv,application/pdf
// @Param format query string false "json, csv or pdf" default(json)
// @Success 200 {file} file "Exported tasks"
// @Failure 400 {object} map[string]interface{} "Unknown format"
// @Router /api/tasks/export [get]
func (c *TaskController) ExportTasks(ctx echo.Context) error {
	format := ctx.QueryParam("format")
	if format == "" {
		format = export.FormatJSON
	}

	c.mu.Lock()
	data, err := export.Export(c.taskService.GetAllTasks(), format)
	c.mu.Unlock()
	if err != nil {
		return c.handleServiceError(ctx, err)
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=tasks."+format)
	return ctx.Blob(http.StatusOK, export.ContentType(format), data)
}

// RenderDescription godoc
// @Summary Render a task description as HTML
// @Description Treats the description as GitHub flavored markdown.
// @Tags tasks
// @Produce html
// @Param id path string true "Task ID"
// @Success 200 {string} string "Rendered description"
// @Failure 404 {object} map[string]interface{} "Task not found"
// @Router /api/tasks/{id}/description [get]
func (c *TaskController) RenderDescription(ctx echo.Context) error {
	c.mu.Lock()
	task, err := c.taskService.GetTask(ctx.Param("id"))
	var description string
	if task != nil {
		description = task.Description
	}
	c.mu.Unlock()
	if err != nil {
		return c.handleServiceError(ctx, err)
	}

	var buf bytes.Buffer
	if err := c.markdown.Convert([]byte(description), &buf); err != nil {
		return c.handleError(ctx, err.Error(), http.StatusInternalServerError)
	}
	return ctx.HTML(http.StatusOK, buf.String())
}

// handleServiceError maps domain errors to HTTP status codes. Stored task
// data that cannot be decoded is reported as unprocessable.
func (c *TaskController) handleServiceError(ctx echo.Context, err error) error {
	var (
		notFound   *errs.NotFoundError
		validation *errs.ValidationError
		invalidArg *errs.InvalidArgumentError
		syntax     *json.SyntaxError
		typeErr    *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &notFound):
		return c.handleError(ctx, err.Error(), http.StatusNotFound)
	case errors.As(err, &validation), errors.As(err, &invalidArg):
		return c.handleError(ctx, err.Error(), http.StatusBadRequest)
	case errors.As(err, &syntax), errors.As(err, &typeErr):
		return c.handleError(ctx, err.Error(), http.StatusUnprocessableEntity)
	default:
		return c.handleError(ctx, err.Error(), http.StatusInternalServerError)
	}
}

// handleError handles errors and returns them in a consistent format
func (c *TaskController) handleError(ctx echo.Context, message string, statusCode int) error {
	c.logger.Error("Error occurred", zap.String("error", message), zap.Int("status", statusCode))
	return ctx.JSON(statusCode, map[string]interface{}{
		"error": message,
	})
}
