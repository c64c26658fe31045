package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

var errInterrupted = errors.New("interrupted")

// Reporter publishes step progress.
type Reporter func(StepMsg)

// Run shows the progress UI while fn executes. fn reports progress through
// the Reporter it receives. Quitting the UI cancels the context given to fn.
func Run(ctx context.Context, title, namespace string, steps []Step, fn func(ctx context.Context, report Reporter) error, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(title, namespace, steps), append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)

	fnDone := make(chan error, 1)
	go func() {
		err := fn(ctx, func(msg StepMsg) { p.Send(msg) })
		if err != nil {
			p.Send(ErrMsg{Err: err})
		} else {
			p.Send(DoneMsg{})
		}
		fnDone <- err
	}()

	finalModel, runErr := p.Run()
	cancel()
	fnErr := <-fnDone

	if fm, ok := finalModel.(Model); ok && fm.Err != nil {
		if errors.Is(fm.Err, errInterrupted) {
			return fmt.Errorf("apply interrupted")
		}
		return fm.Err
	}
	if fnErr != nil {
		return fnErr
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return nil
}
