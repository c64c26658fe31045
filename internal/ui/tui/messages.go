// Package tui renders apply progress as a Bubble Tea terminal UI.
package tui

// StepMsg reports progress of one apply step.
type StepMsg struct {
	Key     string
	Done    bool
	Skipped bool
	Detail  string
	Err     error
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries an error.
type ErrMsg struct{ Err error }

// DoneMsg signals that the operation is complete.
type DoneMsg struct{}
