package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Step is one line of the progress list.
type Step struct {
	Name    string
	Key     string
	Done    bool
	Active  bool
	Skipped bool
	Detail  string
	Err     error
}

// Model is the Bubble Tea model for apply progress.
type Model struct {
	Title     string
	Namespace string

	Steps []Step

	StartTime    time.Time
	SpinnerFrame int

	Width int
	Err   error
	Done  bool
}

// NewModel creates a model for the given steps.
func NewModel(title, namespace string, steps []Step) Model {
	return Model{
		Title:     title,
		Namespace: namespace,
		Steps:     append([]Step(nil), steps...),
		StartTime: time.Now(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.Err = errInterrupted
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width

	case StepMsg:
		m.updateStep(msg)
		if msg.Err != nil {
			m.Err = msg.Err
			return m, tea.Quit
		}

	case TickMsg:
		m.SpinnerFrame++
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		for i := range m.Steps {
			m.Steps[i].Active = false
		}
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) updateStep(msg StepMsg) {
	idx := -1
	for i, step := range m.Steps {
		if step.Key == msg.Key {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	step := &m.Steps[idx]
	if msg.Detail != "" {
		step.Detail = msg.Detail
	}
	switch {
	case msg.Err != nil:
		step.Err = msg.Err
		step.Active = false
	case msg.Skipped:
		step.Skipped = true
		step.Active = false
	case msg.Done:
		step.Done = true
		step.Active = false
	default:
		step.Active = true
	}
}

// progress is the fraction of finished steps.
func (m Model) progress() float64 {
	if m.Done {
		return 1.0
	}
	if len(m.Steps) == 0 {
		return 0
	}
	finished := 0
	for _, s := range m.Steps {
		if s.Done || s.Skipped {
			finished++
		}
	}
	return float64(finished) / float64(len(m.Steps))
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
