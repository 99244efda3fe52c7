package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/drujensen/tasktracker/internal/domain/entities"
	"github.com/drujensen/tasktracker/internal/domain/errs"
	"github.com/drujensen/tasktracker/internal/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// Mock repository for testing
type mockTaskRepository struct {
	mock.Mock
}

func (m *mockTaskRepository) ReplaceTasks(ctx context.Context, tasks []*entities.Task) error {
	args := m.Called(ctx, tasks)
	return args.Error(0)
}

func (m *mockTaskRepository) ListTasks(ctx context.Context) ([]*entities.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) != nil {
		return args.Get(0).([]*entities.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTaskRepository) Name() string {
	return "mock"
}

type mockValidator struct {
	mock.Mock
}

func (m *mockValidator) Validate(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func newTestManager(opts ...Option) (*TaskManager, *bytes.Buffer) {
	out := &bytes.Buffer{}
	opts = append([]Option{WithOutput(out)}, opts...)
	return NewTaskManager(zap.NewNop(), opts...), out
}

func TestTaskManager_AddTask(t *testing.T) {
	manager, _ := newTestManager()

	t.Run("valid task", func(t *testing.T) {
		task := entities.NewTask("Test Task", "Test Description", time.Now())

		err := manager.AddTask(task)

		assert.NoError(t, err)
		assert.Contains(t, manager.GetAllTasks(), task)
	})

	t.Run("nil task", func(t *testing.T) {
		before := manager.GetAllTasks()

		err := manager.AddTask(nil)

		assert.Error(t, err)
		assert.IsType(t, &errs.InvalidArgumentError{}, err)
		assert.Equal(t, before, manager.GetAllTasks())
	})
}

func TestTaskManager_DeleteTask(t *testing.T) {
	t.Run("existing task", func(t *testing.T) {
		manager, _ := newTestManager()
		task := entities.NewTask("Test Task", "Test Description", time.Now())
		require.NoError(t, manager.AddTask(task))

		err := manager.DeleteTask(task)

		assert.NoError(t, err)
		assert.NotContains(t, manager.GetAllTasks(), task)
		assert.Empty(t, manager.GetAllTasks())
	})

	t.Run("only first of identical tasks", func(t *testing.T) {
		manager, _ := newTestManager()
		first := entities.NewTask("Same", "Same", date(2024, 4, 15))
		second := entities.NewTask("Same", "Same", date(2024, 4, 15))
		require.NoError(t, manager.AddTask(first))
		require.NoError(t, manager.AddTask(second))

		require.NoError(t, manager.DeleteTask(second))

		tasks := manager.GetAllTasks()
		require.Len(t, tasks, 1)
		assert.Same(t, first, tasks[0])
	})

	t.Run("unknown task is a no-op", func(t *testing.T) {
		manager, _ := newTestManager()
		task := entities.NewTask("Kept", "", time.Now())
		require.NoError(t, manager.AddTask(task))

		err := manager.DeleteTask(entities.NewTask("Other", "", time.Now()))

		assert.NoError(t, err)
		assert.Len(t, manager.GetAllTasks(), 1)
	})

	t.Run("unknown task without ID is a no-op", func(t *testing.T) {
		manager, _ := newTestManager()
		kept := &entities.Task{Title: "Kept"}
		require.NoError(t, manager.AddTask(kept))

		err := manager.DeleteTask(&entities.Task{Title: "Stranger"})

		assert.NoError(t, err)
		tasks := manager.GetAllTasks()
		require.Len(t, tasks, 1)
		assert.Same(t, kept, tasks[0])
	})

	t.Run("task without ID is deleted by pointer", func(t *testing.T) {
		manager, _ := newTestManager()
		first := &entities.Task{Title: "First"}
		second := &entities.Task{Title: "Second"}
		require.NoError(t, manager.AddTask(first))
		require.NoError(t, manager.AddTask(second))

		require.NoError(t, manager.DeleteTask(second))

		tasks := manager.GetAllTasks()
		require.Len(t, tasks, 1)
		assert.Same(t, first, tasks[0])
	})

	t.Run("nil task", func(t *testing.T) {
		manager, _ := newTestManager()

		err := manager.DeleteTask(nil)

		assert.IsType(t, &errs.InvalidArgumentError{}, err)
	})
}

func TestTaskManager_EditTask(t *testing.T) {
	t.Run("existing task", func(t *testing.T) {
		manager, _ := newTestManager()
		original := entities.NewTask("Test Task", "Test Description", time.Now())
		other := entities.NewTask("Other", "Untouched", date(2024, 1, 1))
		require.NoError(t, manager.AddTask(original))
		require.NoError(t, manager.AddTask(other))

		newDueDate := time.Now().AddDate(0, 0, 1)
		err := manager.EditTask(original, "Updated Title", "Updated Description", newDueDate)

		assert.NoError(t, err)
		updated := manager.FindTaskByTitle("Updated Title")
		require.NotNil(t, updated)
		assert.Equal(t, "Updated Description", updated.Description)
		assert.Equal(t, newDueDate, updated.DueDate)
		assert.Equal(t, "Other", other.Title)
		assert.Equal(t, "Untouched", other.Description)
		assert.Equal(t, date(2024, 1, 1), other.DueDate)
	})

	t.Run("empty values are accepted", func(t *testing.T) {
		manager, _ := newTestManager()
		task := entities.NewTask("Title", "Description", time.Now())
		require.NoError(t, manager.AddTask(task))

		assert.NoError(t, manager.EditTask(task, "", "", date(2024, 4, 15)))
		assert.Equal(t, "", task.Title)
	})

	t.Run("nil task", func(t *testing.T) {
		manager, _ := newTestManager()

		err := manager.EditTask(nil, "New Title", "New Description", time.Now())

		assert.IsType(t, &errs.InvalidArgumentError{}, err)
		assert.Empty(t, manager.GetAllTasks())
	})
}

func TestTaskManager_GetAllTasks(t *testing.T) {
	manager, _ := newTestManager()
	task1 := entities.NewTask("Task 1", "Description 1", date(2025, 4, 15))
	task2 := entities.NewTask("Task 2", "Description 2", date(2024, 4, 14))
	task3 := entities.NewTask("Task 3", "Description 3", date(2024, 4, 16))
	require.NoError(t, manager.AddTask(task1))
	require.NoError(t, manager.AddTask(task2))
	require.NoError(t, manager.AddTask(task3))

	t.Run("insertion order", func(t *testing.T) {
		assert.Equal(t, []*entities.Task{task1, task2, task3}, manager.GetAllTasks())
	})

	t.Run("caller side sort by due date", func(t *testing.T) {
		tasks := manager.GetAllTasks()
		entities.SortByDueDate(tasks)

		assert.Equal(t, []*entities.Task{task2, task3, task1}, tasks)
		assert.Equal(t, []*entities.Task{task1, task2, task3}, manager.GetAllTasks())
	})

	t.Run("returns a copy", func(t *testing.T) {
		tasks := manager.GetAllTasks()
		tasks[0] = nil
		tasks = append(tasks, entities.NewTask("Extra", "", time.Now()))

		assert.Len(t, manager.GetAllTasks(), 3)
		assert.Same(t, task1, manager.GetAllTasks()[0])
	})
}

func TestTaskManager_GetTask(t *testing.T) {
	manager, _ := newTestManager()
	task := entities.NewTask("Task", "", time.Now())
	require.NoError(t, manager.AddTask(task))

	found, err := manager.GetTask(task.ID)
	assert.NoError(t, err)
	assert.Same(t, task, found)

	_, err = manager.GetTask("missing")
	assert.IsType(t, &errs.NotFoundError{}, err)

	_, err = manager.GetTask("")
	assert.IsType(t, &errs.ValidationError{}, err)
}

func TestTaskManager_FindTaskByTitle(t *testing.T) {
	manager, _ := newTestManager()
	first := entities.NewTask("Dup", "first", time.Now())
	second := entities.NewTask("Dup", "second", time.Now())
	require.NoError(t, manager.AddTask(first))
	require.NoError(t, manager.AddTask(second))

	assert.Same(t, first, manager.FindTaskByTitle("Dup"))
	assert.Nil(t, manager.FindTaskByTitle("dup"))
}

func TestTaskManager_SaveAndLoadTasks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_tasks.json")

	original, _ := newTestManager()
	require.NoError(t, original.AddTask(entities.NewTask("Test Title 1", "Test Description 1", date(2024, 4, 15))))
	require.NoError(t, original.AddTask(entities.NewTask("Test Title 2", "Test Description 2", date(2024, 4, 16))))

	require.NoError(t, original.SaveTasksToJson(path))

	loaded, out := newTestManager()
	require.NoError(t, loaded.LoadTasksFromJson(path))
	assert.Empty(t, out.String())

	originalTasks := original.GetAllTasks()
	loadedTasks := loaded.GetAllTasks()
	require.Equal(t, len(originalTasks), len(loadedTasks))
	for i := range originalTasks {
		assert.Equal(t, originalTasks[i].Title, loadedTasks[i].Title)
		assert.Equal(t, originalTasks[i].Description, loadedTasks[i].Description)
		assert.Equal(t, originalTasks[i].FormattedDueDate(), loadedTasks[i].FormattedDueDate())
	}
}

func TestTaskManager_SaveTasksToJson_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte("previous content that is much longer than the new one"), 0644))

	manager, _ := newTestManager()
	require.NoError(t, manager.AddTask(entities.NewTask("A", "B", date(2024, 4, 5))))
	require.NoError(t, manager.SaveTasksToJson(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"Title\": \"A\",\n    \"Description\": \"B\",\n    \"DueDate\": \"05-04-2024\"\n  }\n]", string(data))
}

func TestTaskManager_LoadTasksFromJson_ReplacesCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"Title":"Loaded","Description":"","DueDate":"01-02-2024"}]`), 0644))

	manager, _ := newTestManager()
	require.NoError(t, manager.AddTask(entities.NewTask("In memory", "", time.Now())))

	require.NoError(t, manager.LoadTasksFromJson(path))

	tasks := manager.GetAllTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Loaded", tasks[0].Title)
	assert.Equal(t, "01-02-2024", tasks[0].FormattedDueDate())
}

func TestTaskManager_LoadTasksFromJson_Absorbed(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content *string
		message string
	}{
		{name: "missing file", content: nil, message: MessageFileMissing},
		{name: "empty file", content: ptr(""), message: MessageFileEmpty},
		{name: "blank file", content: ptr("  \n\t"), message: MessageFileEmpty},
		{name: "null document", content: ptr("null"), message: MessageLoadFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".json")
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0644))
			}

			manager, out := newTestManager()
			existing := entities.NewTask("Existing", "", time.Now())
			require.NoError(t, manager.AddTask(existing))

			err := manager.LoadTasksFromJson(path)

			assert.NoError(t, err)
			assert.Equal(t, tt.message+"\n", out.String())
			assert.Equal(t, []*entities.Task{existing}, manager.GetAllTasks())
		})
	}
}

func TestTaskManager_LoadTasksFromJson_LogsMessage(t *testing.T) {
	observedZapCore, observedLogs := observer.New(zap.DebugLevel)
	logger := zap.New(observedZapCore)

	out := &bytes.Buffer{}
	manager := NewTaskManager(logger, WithOutput(out))

	require.NoError(t, manager.LoadTasksFromJson(filepath.Join(t.TempDir(), "missing.json")))

	entries := observedLogs.FilterMessage(MessageFileMissing).All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
}

func TestTaskManager_LoadTasksFromJson_Malformed(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"syntax":   `[{"Title":`,
		"object":   `{"Title":"A"}`,
		"bad date": `[{"Title":"A","Description":"","DueDate":"2024-01-01"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			manager, out := newTestManager()
			existing := entities.NewTask("Existing", "", time.Now())
			require.NoError(t, manager.AddTask(existing))

			err := manager.LoadTasksFromJson(path)

			assert.Error(t, err)
			assert.Empty(t, out.String())
			assert.Equal(t, []*entities.Task{existing}, manager.GetAllTasks())
		})
	}
}

func TestTaskManager_LoadTasksFromJson_Validator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	content := []byte(`[{"Title":"A","Description":"","DueDate":"01-01-2024"}]`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	t.Run("rejected", func(t *testing.T) {
		validator := new(mockValidator)
		validator.On("Validate", content).Return(errs.ValidationErrorf("bad file")).Once()
		manager, _ := newTestManager(WithValidator(validator))

		err := manager.LoadTasksFromJson(path)

		assert.IsType(t, &errs.ValidationError{}, err)
		assert.Empty(t, manager.GetAllTasks())
		validator.AssertExpectations(t)
	})

	t.Run("accepted", func(t *testing.T) {
		validator := new(mockValidator)
		validator.On("Validate", content).Return(nil).Once()
		manager, _ := newTestManager(WithValidator(validator))

		require.NoError(t, manager.LoadTasksFromJson(path))

		assert.Len(t, manager.GetAllTasks(), 1)
		validator.AssertExpectations(t)
	})
}

func TestTaskManager_DiffAgainstJson(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	manager, _ := newTestManager()
	task := entities.NewTask("Title", "Description", date(2024, 4, 15))
	require.NoError(t, manager.AddTask(task))

	diff, err := manager.DiffAgainstJson(path)
	require.NoError(t, err)
	assert.Contains(t, diff, `+    "Title": "Title",`)

	require.NoError(t, manager.SaveTasksToJson(path))
	diff, err = manager.DiffAgainstJson(path)
	require.NoError(t, err)
	assert.Empty(t, diff)

	require.NoError(t, manager.EditTask(task, "Renamed", "Description", date(2024, 4, 15)))
	diff, err = manager.DiffAgainstJson(path)
	require.NoError(t, err)
	assert.Contains(t, diff, `-    "Title": "Title",`)
	assert.Contains(t, diff, `+    "Title": "Renamed",`)
}

func TestTaskManager_SaveLoad_DataFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	ctx := context.Background()

	manager, _ := newTestManager(WithDataFile(path))
	assert.Equal(t, path, manager.StorageName())
	require.NoError(t, manager.AddTask(entities.NewTask("A", "", date(2024, 4, 15))))
	require.NoError(t, manager.Save(ctx))

	reloaded, _ := newTestManager(WithDataFile(path))
	require.NoError(t, reloaded.Load(ctx))
	assert.Len(t, reloaded.GetAllTasks(), 1)
}

func TestTaskManager_SaveLoad_Repository(t *testing.T) {
	ctx := context.Background()

	t.Run("save replaces repository contents", func(t *testing.T) {
		repo := new(mockTaskRepository)
		manager, _ := newTestManager(WithRepository(repo))
		task := entities.NewTask("A", "", date(2024, 4, 15))
		require.NoError(t, manager.AddTask(task))
		repo.On("ReplaceTasks", ctx, []*entities.Task{task}).Return(nil).Once()

		assert.NoError(t, manager.Save(ctx))
		assert.Equal(t, "mock", manager.StorageName())
		repo.AssertExpectations(t)
	})

	t.Run("load replaces collection", func(t *testing.T) {
		repo := new(mockTaskRepository)
		manager, _ := newTestManager(WithRepository(repo))
		require.NoError(t, manager.AddTask(entities.NewTask("Old", "", time.Now())))
		stored := []*entities.Task{entities.NewTask("Stored", "", date(2024, 4, 15))}
		repo.On("ListTasks", ctx).Return(stored, nil).Once()

		require.NoError(t, manager.Load(ctx))

		assert.Equal(t, stored, manager.GetAllTasks())
		repo.AssertExpectations(t)
	})

	t.Run("load error keeps collection", func(t *testing.T) {
		repo := new(mockTaskRepository)
		manager, _ := newTestManager(WithRepository(repo))
		existing := entities.NewTask("Old", "", time.Now())
		require.NoError(t, manager.AddTask(existing))
		repo.On("ListTasks", ctx).Return(nil, errs.InternalErrorf("down")).Once()

		err := manager.Load(ctx)

		assert.IsType(t, &errs.InternalError{}, err)
		assert.Equal(t, []*entities.Task{existing}, manager.GetAllTasks())
	})
}

func TestTaskManager_PublishesEvents(t *testing.T) {
	bus := events.NewBus()
	changes := make(chan events.TaskChangedEventData, 8)
	replaced := make(chan events.TasksReplacedEventData, 1)
	defer bus.SubscribeToTaskChanged(func(data events.TaskChangedEventData) { changes <- data })()
	defer bus.SubscribeToTasksReplaced(func(data events.TasksReplacedEventData) { replaced <- data })()

	path := filepath.Join(t.TempDir(), "tasks.json")
	manager, _ := newTestManager(WithEvents(bus))
	task := entities.NewTask("A", "", date(2024, 4, 15))
	require.NoError(t, manager.AddTask(task))
	require.NoError(t, manager.EditTask(task, "B", "", date(2024, 4, 16)))
	require.NoError(t, manager.SaveTasksToJson(path))
	require.NoError(t, manager.DeleteTask(task))
	require.NoError(t, manager.LoadTasksFromJson(path))

	var actions []events.TaskAction
	for len(actions) < 3 {
		select {
		case data := <-changes:
			assert.Equal(t, task.ID, data.TaskID)
			actions = append(actions, data.Action)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got actions %v", actions)
		}
	}
	assert.Equal(t, []events.TaskAction{events.TaskAdded, events.TaskEdited, events.TaskDeleted}, actions)

	select {
	case data := <-replaced:
		assert.Equal(t, path, data.Source)
		assert.Equal(t, 1, data.Count)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for replace event")
	}
}

func ptr(s string) *string {
	return &s
}
