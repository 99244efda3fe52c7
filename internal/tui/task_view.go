package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/drujensen/tasktracker/internal/domain/entities"
	"github.com/drujensen/tasktracker/internal/domain/services"
	"github.com/dustin/go-humanize"
)

type taskItem struct {
	task *entities.Task
	now  time.Time
}

func (i taskItem) Title() string {
	return i.task.Title
}

func (i taskItem) Description() string {
	due := fmt.Sprintf("%s (%s)", i.task.FormattedDueDate(), humanize.RelTime(i.task.DueDate, i.now, "ago", "from now"))
	if i.task.Description == "" {
		return due
	}
	return due + " · " + i.task.Description
}

func (i taskItem) FilterValue() string {
	return i.task.Title
}

type TaskView struct {
	taskService services.TaskService
	mu          *sync.Mutex
	status      *StatusLine
	list        list.Model
	width       int
	height      int
	message     string
	err         error
	now         func() time.Time
}

func NewTaskView(taskService services.TaskService, mu *sync.Mutex, status *StatusLine) TaskView {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(lipgloss.Color("6")).Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(lipgloss.Color("7"))
	delegate.SetHeight(2)

	l := list.New([]list.Item{}, delegate, 100, 10)
	l.Title = "Tasks"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowPagination(true)
	l.DisableQuitKeybindings()

	return TaskView{
		taskService: taskService,
		mu:          mu,
		status:      status,
		list:        l,
		now:         time.Now,
	}
}

func (v TaskView) Init() tea.Cmd {
	return v.fetchTasksCmd()
}

func (v TaskView) Update(msg tea.Msg) (TaskView, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = m.Width
		v.height = m.Height
		v.list.SetSize(v.width-6, v.height-8)
		return v, nil

	case tea.KeyMsg:
		switch m.String() {
		case "q":
			return v, tea.Quit
		case "?":
			return v, func() tea.Msg { return startHelpMsg{} }
		case "s":
			return v, v.saveTasksCmd()
		case "l":
			return v, v.loadTasksCmd()
		case "d":
			if item, ok := v.list.SelectedItem().(taskItem); ok {
				return v, v.deleteTaskCmd(item.task.ID)
			}
			return v, nil
		}

	case tasksFetchedMsg:
		now := v.now()
		items := make([]list.Item, len(m.tasks))
		for i, task := range m.tasks {
			items[i] = taskItem{task: task, now: now}
		}
		cmd := v.list.SetItems(items)
		v.err = nil
		return v, cmd

	case tasksSavedMsg:
		v.message = "Saved to " + m.storage
		v.err = nil
		return v, nil

	case tasksLoadedMsg:
		v.message = "Loaded from " + m.storage
		if status := v.status.Take(); status != "" {
			v.message = status
		}
		v.err = nil
		return v, v.fetchTasksCmd()

	case taskDeletedMsg:
		v.message = "Deleted " + m.title
		v.err = nil
		return v, v.fetchTasksCmd()

	case errMsg:
		v.err = m
		return v, nil
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v TaskView) View() string {

	if v.width == 0 || v.height == 0 {
		return ""
	}

	outerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.ThickBorder()).
		BorderForeground(lipgloss.Color("4")).
		Width(v.width - 2).
		Height(v.height - 2)

	innerBorder := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("6")).
		Width(v.list.Width()).
		Height(v.list.Height())

	var sb strings.Builder
	instructions := "s save · l load · d delete · ? help · q quit"
	sb.WriteString(innerBorder.Render(v.list.View()) + "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render(instructions))

	if v.message != "" {
		sb.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Render(v.message))
	}
	if v.err != nil {
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Render("\nError: "+v.err.Error()) + "\n")
	}

	return outerStyle.Render(sb.String())
}

// fetchTasksCmd snapshots the collection sorted by due date.
func (v TaskView) fetchTasksCmd() tea.Cmd {
	return func() tea.Msg {
		v.mu.Lock()
		defer v.mu.Unlock()

		all := v.taskService.GetAllTasks()
		tasks := make([]*entities.Task, len(all))
		for i, task := range all {
			snapshot := *task
			tasks[i] = &snapshot
		}
		entities.SortByDueDate(tasks)
		return tasksFetchedMsg{tasks: tasks}
	}
}

func (v TaskView) saveTasksCmd() tea.Cmd {
	return func() tea.Msg {
		v.mu.Lock()
		defer v.mu.Unlock()

		if err := v.taskService.Save(context.Background()); err != nil {
			return errMsg(err)
		}
		return tasksSavedMsg{storage: v.taskService.StorageName()}
	}
}

func (v TaskView) loadTasksCmd() tea.Cmd {
	return func() tea.Msg {
		v.mu.Lock()
		defer v.mu.Unlock()

		if err := v.taskService.Load(context.Background()); err != nil {
			return errMsg(err)
		}
		return tasksLoadedMsg{storage: v.taskService.StorageName()}
	}
}

func (v TaskView) deleteTaskCmd(id string) tea.Cmd {
	return func() tea.Msg {
		v.mu.Lock()
		defer v.mu.Unlock()

		task, err := v.taskService.GetTask(id)
		if err != nil {
			return errMsg(err)
		}
		if err := v.taskService.DeleteTask(task); err != nil {
			return errMsg(err)
		}
		return taskDeletedMsg{title: task.Title}
	}
}
