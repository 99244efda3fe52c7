package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/drujensen/tasktracker/internal/domain/entities"
	"github.com/drujensen/tasktracker/internal/domain/errs"
	"github.com/drujensen/tasktracker/internal/domain/events"
	"github.com/drujensen/tasktracker/internal/domain/interfaces"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"
)

// Messages written to the output channel when a load finds nothing to use.
const (
	MessageFileMissing = "Die Datei existiert nicht."
	MessageFileEmpty   = "Die Datei ist leer."
	MessageLoadFailed  = "Die Aufgaben konnten nicht geladen werden."
)

const DefaultDataFile = "tasks.json"

type TaskService interface {
	AddTask(task *entities.Task) error
	DeleteTask(task *entities.Task) error
	EditTask(task *entities.Task, newTitle, newDescription string, newDueDate time.Time) error
	GetAllTasks() []*entities.Task
	GetTask(id string) (*entities.Task, error)
	FindTaskByTitle(title string) *entities.Task
	SaveTasksToJson(filePath string) error
	LoadTasksFromJson(filePath string) error
	DiffAgainstJson(filePath string) (string, error)
	Save(ctx context.Context) error
	Load(ctx context.Context) error
	StorageName() string
}

// TaskManager owns an ordered task collection and its persistence.
// It is not safe for concurrent use.
type TaskManager struct {
	tasks     []*entities.Task
	dataFile  string
	repo      interfaces.TaskRepository
	validator interfaces.TaskValidator
	bus       *events.Bus
	out       io.Writer
	logger    *zap.Logger
}

type Option func(*TaskManager)

// WithOutput sets where load messages are written. Defaults to os.Stdout.
func WithOutput(out io.Writer) Option {
	return func(m *TaskManager) {
		m.out = out
	}
}

// WithDataFile sets the file used by Save and Load when no repository is configured.
func WithDataFile(path string) Option {
	return func(m *TaskManager) {
		m.dataFile = path
	}
}

// WithRepository routes Save and Load through a database repository.
func WithRepository(repo interfaces.TaskRepository) Option {
	return func(m *TaskManager) {
		m.repo = repo
	}
}

func WithValidator(validator interfaces.TaskValidator) Option {
	return func(m *TaskManager) {
		m.validator = validator
	}
}

func WithEvents(bus *events.Bus) Option {
	return func(m *TaskManager) {
		m.bus = bus
	}
}

func NewTaskManager(logger *zap.Logger, opts ...Option) *TaskManager {
	m := &TaskManager{
		tasks:    []*entities.Task{},
		dataFile: DefaultDataFile,
		out:      os.Stdout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *TaskManager) AddTask(task *entities.Task) error {
	if task == nil {
		return errs.InvalidArgumentErrorf("task must not be nil")
	}

	m.tasks = append(m.tasks, task)
	m.logger.Debug("Task added", zap.String("id", task.ID), zap.String("title", task.Title))
	m.bus.PublishTaskChanged(events.TaskAdded, task)
	return nil
}

// DeleteTask removes the first task that is the same pointer or carries the
// same non-empty ID. Unknown tasks are ignored.
func (m *TaskManager) DeleteTask(task *entities.Task) error {
	if task == nil {
		return errs.InvalidArgumentErrorf("task must not be nil")
	}

	for i, t := range m.tasks {
		if t == task || (task.ID != "" && t.ID == task.ID) {
			m.tasks = slices.Delete(m.tasks, i, i+1)
			m.logger.Debug("Task deleted", zap.String("id", task.ID), zap.String("title", task.Title))
			m.bus.PublishTaskChanged(events.TaskDeleted, t)
			return nil
		}
	}

	m.logger.Debug("Task to delete not found", zap.String("id", task.ID))
	return nil
}

func (m *TaskManager) EditTask(task *entities.Task, newTitle, newDescription string, newDueDate time.Time) error {
	if task == nil {
		return errs.InvalidArgumentErrorf("task must not be nil")
	}

	task.Title = newTitle
	task.Description = newDescription
	task.DueDate = newDueDate

	m.logger.Debug("Task edited", zap.String("id", task.ID), zap.String("title", task.Title))
	m.bus.PublishTaskChanged(events.TaskEdited, task)
	return nil
}

// GetAllTasks returns a copy of the collection in insertion order.
func (m *TaskManager) GetAllTasks() []*entities.Task {
	tasksCopy := make([]*entities.Task, len(m.tasks))
	copy(tasksCopy, m.tasks)
	return tasksCopy
}

func (m *TaskManager) GetTask(id string) (*entities.Task, error) {
	if id == "" {
		return nil, errs.ValidationErrorf("task ID is required")
	}
	for _, task := range m.tasks {
		if task.ID == id {
			return task, nil
		}
	}
	return nil, errs.NotFoundErrorf("task not found: %s", id)
}

// FindTaskByTitle returns the first task with exactly this title, or nil.
func (m *TaskManager) FindTaskByTitle(title string) *entities.Task {
	for _, task := range m.tasks {
		if task.Title == title {
			return task
		}
	}
	return nil
}

// SaveTasksToJson writes the collection as an indented JSON array,
// replacing the file.
func (m *TaskManager) SaveTasksToJson(filePath string) error {
	data, err := entities.MarshalTasks(m.tasks)
	if err != nil {
		return errs.InternalErrorf("failed to marshal tasks: %v", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return errs.InternalErrorf("failed to write %s: %v", filePath, err)
	}

	m.logger.Debug("Tasks saved", zap.String("path", filePath), zap.Int("count", len(m.tasks)))
	return nil
}

// LoadTasksFromJson replaces the collection with the tasks stored in
// filePath. A missing, blank or null file leaves the collection unchanged
// and only writes a message to the output. Malformed content is returned
// as an error.
func (m *TaskManager) LoadTasksFromJson(filePath string) error {
	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		m.report(MessageFileMissing)
		return nil
	}
	if err != nil {
		return errs.InternalErrorf("failed to read %s: %v", filePath, err)
	}

	if entities.IsBlank(data) {
		m.report(MessageFileEmpty)
		return nil
	}

	if m.validator != nil {
		if err := m.validator.Validate(data); err != nil {
			m.logger.Warn("Task file failed validation", zap.String("path", filePath), zap.Error(err))
			return err
		}
	}

	loaded, err := entities.UnmarshalTasks(data)
	if err != nil {
		m.logger.Warn("Task file could not be parsed", zap.String("path", filePath), zap.Error(err))
		return fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	if loaded == nil {
		m.report(MessageLoadFailed)
		return nil
	}

	m.replace(filePath, loaded)
	return nil
}

// DiffAgainstJson returns a unified diff from the contents of filePath to
// what SaveTasksToJson would write. It is empty when nothing would change.
func (m *TaskManager) DiffAgainstJson(filePath string) (string, error) {
	current, err := os.ReadFile(filePath)
	if err != nil && !os.IsNotExist(err) {
		return "", errs.InternalErrorf("failed to read %s: %v", filePath, err)
	}

	next, err := entities.MarshalTasks(m.tasks)
	if err != nil {
		return "", errs.InternalErrorf("failed to marshal tasks: %v", err)
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(current)),
		B:        difflib.SplitLines(string(next)),
		FromFile: filePath,
		ToFile:   filePath,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

// Save persists the collection to the configured repository, or to the
// data file when there is none.
func (m *TaskManager) Save(ctx context.Context) error {
	if m.repo == nil {
		return m.SaveTasksToJson(m.dataFile)
	}

	if err := m.repo.ReplaceTasks(ctx, m.tasks); err != nil {
		return err
	}
	m.logger.Debug("Tasks saved", zap.String("repository", m.repo.Name()), zap.Int("count", len(m.tasks)))
	return nil
}

// Load replaces the collection from the configured repository, or from the
// data file when there is none.
func (m *TaskManager) Load(ctx context.Context) error {
	if m.repo == nil {
		return m.LoadTasksFromJson(m.dataFile)
	}

	loaded, err := m.repo.ListTasks(ctx)
	if err != nil {
		return err
	}
	for _, task := range loaded {
		if task == nil {
			return errs.InternalErrorf("%s returned a nil task", m.repo.Name())
		}
	}
	if loaded == nil {
		loaded = []*entities.Task{}
	}

	m.replace(m.repo.Name(), loaded)
	return nil
}

// StorageName describes where Save and Load go.
func (m *TaskManager) StorageName() string {
	if m.repo != nil {
		return m.repo.Name()
	}
	return m.dataFile
}

func (m *TaskManager) replace(source string, tasks []*entities.Task) {
	m.tasks = tasks
	m.logger.Debug("Tasks loaded", zap.String("source", source), zap.Int("count", len(tasks)))
	m.bus.PublishTasksReplaced(source, len(tasks))
}

func (m *TaskManager) report(message string) {
	m.logger.Info(message)
	fmt.Fprintln(m.out, message)
}

// verify interface implementation
var _ TaskService = &TaskManager{}
