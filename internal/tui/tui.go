package tui

import (
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/drujensen/tasktracker/internal/domain/events"
	"github.com/drujensen/tasktracker/internal/domain/services"
	"go.uber.org/zap"
)

type TUI struct {
	taskService services.TaskService
	logger      *zap.Logger

	taskView TaskView
	helpView HelpView

	events      chan tea.Msg
	unsubscribe []func()

	state string
}

// NewTUI builds the task browser. Task events published on bus refresh the
// list; status receives what the manager reports during loads.
func NewTUI(taskService services.TaskService, bus *events.Bus, status *StatusLine, logger *zap.Logger) TUI {
	mu := &sync.Mutex{}

	t := TUI{
		taskService: taskService,
		logger:      logger,

		taskView: NewTaskView(taskService, mu, status),
		helpView: NewHelpView(),

		state: "tasks/list",
	}

	if bus != nil {
		t.events = make(chan tea.Msg, 16)
		forward := func(msg tea.Msg) {
			select {
			case t.events <- msg:
			default:
				logger.Debug("Dropped task event, TUI is busy")
			}
		}
		t.unsubscribe = []func(){
			bus.SubscribeToTaskChanged(func(data events.TaskChangedEventData) {
				forward(taskChangedMsg(data))
			}),
			bus.SubscribeToTasksReplaced(func(data events.TasksReplacedEventData) {
				forward(tasksReplacedMsg(data))
			}),
		}
	}

	return t
}

// Close stops listening for task events.
func (t TUI) Close() {
	for _, unsubscribe := range t.unsubscribe {
		unsubscribe()
	}
}

func (t TUI) Init() tea.Cmd {
	return tea.Batch(
		t.taskView.Init(),
		t.helpView.Init(),
		t.waitForEvent(),
	)
}

func (t TUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	// Handle task events from the bus
	case taskChangedMsg:
		t.logger.Debug("Task event", zap.String("action", string(msg.Action)), zap.String("id", msg.TaskID))
		return t, tea.Batch(t.taskView.fetchTasksCmd(), t.waitForEvent())
	case tasksReplacedMsg:
		t.taskView.message = fmt.Sprintf("%d tasks loaded from %s", msg.Count, msg.Source)
		return t, tea.Batch(t.taskView.fetchTasksCmd(), t.waitForEvent())

	// Handle help view messages
	case startHelpMsg:
		t.state = "tasks/help"
		return t, t.helpView.Init()
	case helpCancelledMsg:
		t.state = "tasks/list"
		return t, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return t, tea.Quit
		}

	case tea.WindowSizeMsg:
		var (
			cmd  tea.Cmd
			cmds []tea.Cmd
		)

		t.taskView, cmd = t.taskView.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}

		t.helpView, cmd = t.helpView.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}

		return t, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	switch t.state {
	case "tasks/list":
		t.taskView, cmd = t.taskView.Update(msg)
	case "tasks/help":
		t.helpView, cmd = t.helpView.Update(msg)
	}
	return t, cmd
}

func (t TUI) View() string {
	switch t.state {
	case "tasks/list":
		return t.taskView.View()
	case "tasks/help":
		return t.helpView.View()
	}

	return "Error: Invalid state"
}

// waitForEvent blocks until the next bus event. It is nil without a bus.
func (t TUI) waitForEvent() tea.Cmd {
	if t.events == nil {
		return nil
	}
	ch := t.events
	return func() tea.Msg {
		return <-ch
	}
}
