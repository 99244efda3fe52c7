package entities

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/drujensen/tasktracker/internal/domain/errs"

	"github.com/google/uuid"
)

// DueDateLayout is the canonical DD-MM-YYYY form used for display and storage.
const DueDateLayout = "02-01-2006"

type Task struct {
	ID          string
	Title       string
	Description string
	DueDate     time.Time
}

// taskRecord is the on-disk shape of a task. The ID is not persisted.
type taskRecord struct {
	Title       string `json:"Title"`
	Description string `json:"Description"`
	DueDate     string `json:"DueDate"`
}

func NewTask(title, description string, dueDate time.Time) *Task {
	return &Task{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		DueDate:     dueDate,
	}
}

// NewTaskFromFormatted builds a task from a DD-MM-YYYY due date string.
func NewTaskFromFormatted(title, description, dueDate string) (*Task, error) {
	due, err := ParseDueDate(dueDate)
	if err != nil {
		return nil, err
	}
	return NewTask(title, description, due), nil
}

// ParseDueDate parses a due date in the exact DD-MM-YYYY form.
func ParseDueDate(value string) (time.Time, error) {
	due, err := time.Parse(DueDateLayout, value)
	if err != nil {
		return time.Time{}, errs.ValidationErrorf("invalid due date %q, expected DD-MM-YYYY: %w", value, err)
	}
	return due, nil
}

func (t *Task) FormattedDueDate() string {
	return t.DueDate.Format(DueDateLayout)
}

// Equal reports whether both tasks carry the same title, description and
// calendar due date. IDs are ignored.
func (t *Task) Equal(other *Task) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.Title == other.Title &&
		t.Description == other.Description &&
		t.FormattedDueDate() == other.FormattedDueDate()
}

func (t *Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(taskRecord{
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.FormattedDueDate(),
	})
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var record taskRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return err
	}

	parsed, err := NewTaskFromFormatted(record.Title, record.Description, record.DueDate)
	if err != nil {
		return err
	}

	*t = *parsed
	return nil
}

// SortByDueDate orders tasks by due date in place, keeping insertion order
// for equal dates.
func SortByDueDate(tasks []*Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].DueDate.Before(tasks[j].DueDate)
	})
}

// MarshalTasks encodes tasks as the indented JSON array written to task files.
func MarshalTasks(tasks []*Task) ([]byte, error) {
	if tasks == nil {
		tasks = []*Task{}
	}
	return json.MarshalIndent(tasks, "", "  ")
}

// UnmarshalTasks decodes a task file. A literal null yields a nil slice
// and no error.
func UnmarshalTasks(data []byte) ([]*Task, error) {
	var tasks []*Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, err
	}
	for _, task := range tasks {
		if task == nil {
			return nil, errs.ValidationErrorf("task list contains a null entry")
		}
	}
	return tasks, nil
}

// IsBlank reports whether a task file body holds nothing but whitespace.
func IsBlank(data []byte) bool {
	return strings.TrimSpace(string(data)) == ""
}
