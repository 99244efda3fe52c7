package events

import (
	"github.com/drujensen/tasktracker/internal/domain/entities"
	"github.com/kelindar/event"
)

// Event types
const (
	TaskChangedEventType   uint32 = 1
	TasksReplacedEventType uint32 = 2
)

type TaskAction string

const (
	TaskAdded   TaskAction = "added"
	TaskEdited  TaskAction = "edited"
	TaskDeleted TaskAction = "deleted"
)

// TaskChangedEventData is published after a single task was added, edited or deleted.
type TaskChangedEventData struct {
	Action TaskAction     `json:"action"`
	Task   *entities.Task `json:"task"`
	TaskID string         `json:"id"`
}

// TasksReplacedEventData is published after the whole collection was replaced by a load.
type TasksReplacedEventData struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// Type implements the Event interface
func (e TaskChangedEventData) Type() uint32 {
	return TaskChangedEventType
}

// Type implements the Event interface
func (e TasksReplacedEventData) Type() uint32 {
	return TasksReplacedEventType
}

// Bus carries task events from one manager to its subscribers.
type Bus struct {
	dispatcher *event.Dispatcher
}

func NewBus() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// PublishTaskChanged publishes a task change. A nil bus drops the event.
func (b *Bus) PublishTaskChanged(action TaskAction, task *entities.Task) {
	if b == nil || task == nil {
		return
	}
	snapshot := *task
	event.Publish(b.dispatcher, TaskChangedEventData{Action: action, Task: &snapshot, TaskID: task.ID})
}

// PublishTasksReplaced publishes a collection replacement. A nil bus drops the event.
func (b *Bus) PublishTasksReplaced(source string, count int) {
	if b == nil {
		return
	}
	event.Publish(b.dispatcher, TasksReplacedEventData{Source: source, Count: count})
}

// SubscribeToTaskChanged subscribes to task change events
func (b *Bus) SubscribeToTaskChanged(handler func(data TaskChangedEventData)) func() {
	return event.Subscribe(b.dispatcher, handler)
}

// SubscribeToTasksReplaced subscribes to collection replacement events
func (b *Bus) SubscribeToTasksReplaced(handler func(data TasksReplacedEventData)) func() {
	return event.Subscribe(b.dispatcher, handler)
}
