package tui

import (
	"strings"
	"sync"
)

// StatusLine collects what the task manager writes while the TUI owns the
// terminal. Pass it as the manager's output.
type StatusLine struct {
	mu    sync.Mutex
	lines []string
}

func NewStatusLine() *StatusLine {
	return &StatusLine{}
}

func (s *StatusLine) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, line := range strings.Split(string(p), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			s.lines = append(s.lines, line)
		}
	}
	return len(p), nil
}

// Take returns the collected lines joined by spaces and clears them.
func (s *StatusLine) Take() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	text := strings.Join(s.lines, " ")
	s.lines = nil
	return text
}
