package tui

import (
	"github.com/drujensen/tasktracker/internal/domain/entities"
	"github.com/drujensen/tasktracker/internal/domain/events"
)

type (
	tasksFetchedMsg struct {
		tasks []*entities.Task
	}
	tasksSavedMsg struct {
		storage string
	}
	tasksLoadedMsg struct {
		storage string
	}
	taskDeletedMsg struct {
		title string
	}
)

type (
	taskChangedMsg   events.TaskChangedEventData
	tasksReplacedMsg events.TasksReplacedEventData
)

type (
	startHelpMsg     struct{}
	helpCancelledMsg struct{}
)

type errMsg error
