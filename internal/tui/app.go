// Package tui is the opt-in terminal view of a fan-out run.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tctsung/google-maps-scraper/internal/engine/scraper"
	"github.com/tctsung/google-maps-scraper/internal/tui/views"
)

// App centers the progress view in the terminal.
type App struct {
	progress views.ProgressModel
	width    int
	height   int
}

func (a App) Init() tea.Cmd {
	return a.progress.Init()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		a.width = ws.Width
		a.height = ws.Height
	}
	m, cmd := a.progress.Update(msg)
	a.progress = m.(views.ProgressModel)
	return a, cmd
}

func (a App) View() string {
	return lipgloss.Place(
		a.width, a.height,
		lipgloss.Center, lipgloss.Top,
		a.progress.View(),
	)
}

// RunFunc performs the fan-out while the view is up.
type RunFunc func(ctx context.Context, stats *scraper.Stats) error

// Run shows the progress view while run executes and returns run's error.
// Quitting the view cancels ctx and waits for run to return.
func Run(ctx context.Context, keyword, outputRoot string, sessions int, run RunFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stats := &scraper.Stats{SessionsTotal: sessions}
	p := tea.NewProgram(App{progress: views.NewProgressModel(keyword, outputRoot, stats, cancel)}, tea.WithAltScreen())

	finished := make(chan error, 1)
	go func() {
		err := run(ctx, stats)
		finished <- err
		p.Send(views.RunCompleteMsg{Err: err})
	}()

	_, uiErr := p.Run()
	cancel()
	runErr := <-finished
	if runErr != nil {
		return runErr
	}
	return uiErr
}
