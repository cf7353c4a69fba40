// Package ui provides the bubbletea progress view for offline renders.
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cwbudde/algo-reverb/dsp/effects/reverb"
)

// Model tracks a single render.
type Model struct {
	Title string
	Done  int
	Total int
	Stats reverb.Stats

	StartTime time.Time
	Finished  bool
	Canceled  bool
	Err       error

	Width int
}

// NewModel creates a model for a render of total samples.
func NewModel(title string, total int) Model {
	return Model{
		Title:     title,
		Total:     total,
		StartTime: time.Now(),
		Stats:     reverb.Stats{ActiveUnit: -1},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.Canceled = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width

	case ProgressMsg:
		m.Done = msg.Done
		if msg.Total > 0 {
			m.Total = msg.Total
		}
		m.Stats = msg.Stats

	case DoneMsg:
		m.Finished = true
		m.Err = msg.Err
		if msg.Err == nil {
			m.Done = m.Total
		}
		return m, tea.Quit
	}
	return m, nil
}

// Fraction returns the completed share of the render in [0, 1].
func (m Model) Fraction() float64 {
	if m.Total <= 0 {
		return 0
	}
	return min(1, max(0, float64(m.Done)/float64(m.Total)))
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
