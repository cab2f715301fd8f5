package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tctsung/google-maps-scraper/internal/engine/scraper"
	"github.com/tctsung/google-maps-scraper/internal/tui/styles"
)

// ProgressModel renders the live stats of a fan-out run.
type ProgressModel struct {
	keyword     string
	outputRoot  string
	stats       *scraper.Stats
	cancel      context.CancelFunc
	progress    progress.Model
	startTime   time.Time
	done        bool
	stopping    bool
	confirmQuit bool
	err         error
	width       int
	height      int
}

// Messages
type progressTickMsg time.Time

// RunCompleteMsg is sent once the fan-out run returns.
type RunCompleteMsg struct {
	Err error
}

// NewProgressModel watches stats; cancel stops the run behind it.
func NewProgressModel(keyword, outputRoot string, stats *scraper.Stats, cancel context.CancelFunc) ProgressModel {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(50),
	)
	return ProgressModel{
		keyword:    keyword,
		outputRoot: outputRoot,
		stats:      stats,
		cancel:     cancel,
		progress:   p,
		startTime:  time.Now(),
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(t time.Time) tea.Msg {
		return progressTickMsg(t)
	})
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit
		case "esc":
			if m.done {
				return m, tea.Quit
			}
			if m.confirmQuit {
				// Second esc: stop launching; running sessions still finish
				m.cancel()
				m.stopping = true
				m.confirmQuit = false
				return m, nil
			}
			m.confirmQuit = true
			return m, nil
		case "enter", "q":
			if m.done {
				return m, tea.Quit
			}
			if m.confirmQuit {
				m.confirmQuit = false
				return m, nil
			}
		}
		if m.confirmQuit {
			m.confirmQuit = false
		}
	case progressTickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()
	case RunCompleteMsg:
		m.done = true
		m.err = msg.Err
		return m, nil
	}

	var cmd tea.Cmd
	var pModel tea.Model
	pModel, cmd = m.progress.Update(msg)
	m.progress = pModel.(progress.Model)
	return m, cmd
}

func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render(fmt.Sprintf("Fan-out: %q", m.keyword)))
	b.WriteString("\n\n")

	statsBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Muted).
		Padding(0, 1).
		Width(30).
		Render(m.renderStats())
	b.WriteString(statsBox)
	b.WriteString("\n\n")

	var pct float64
	if m.stats.SessionsTotal > 0 {
		pct = float64(m.stats.SessionsDone.Load()) / float64(m.stats.SessionsTotal)
	}
	b.WriteString(m.progress.ViewAs(pct))
	b.WriteString("\n\n")

	switch {
	case m.done:
		if m.err != nil && !errors.Is(m.err, context.Canceled) {
			b.WriteString(styles.ErrorText.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Success).Bold(true).
				Render(fmt.Sprintf("Complete! %d businesses saved", m.stats.BusinessesSaved.Load())))
			b.WriteString("\n")
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
				Render(fmt.Sprintf("Output: %s", m.outputRoot)))
		}
		b.WriteString("\n\n")
		b.WriteString(styles.StatusBar.Render("enter close"))
	case m.stopping:
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Warning).Bold(true).
			Render("Stopping: waiting for running sessions to finish"))
		b.WriteString("\n")
		b.WriteString(styles.StatusBar.Render("ctrl+c quit now"))
	case m.confirmQuit:
		b.WriteString(styles.ErrorText.Render("Press ESC again to stop launching sessions"))
		b.WriteString("\n")
		b.WriteString(styles.StatusBar.Render("esc confirm stop • any key continue"))
	default:
		b.WriteString(styles.StatusBar.Render("esc stop • ctrl+c quit"))
	}

	return b.String()
}

func (m ProgressModel) renderStats() string {
	var sb strings.Builder
	elapsed := time.Since(m.startTime).Truncate(time.Second)

	done := m.stats.SessionsDone.Load()
	total := int64(m.stats.SessionsTotal)
	failed := m.stats.SessionsFailed.Load()
	extractErrs := m.stats.ExtractErrors.Load()

	statLabel := lipgloss.NewStyle().Foreground(styles.Muted).Width(12)
	statVal := lipgloss.NewStyle().Foreground(styles.Text).Bold(true)

	row := func(label string, value string) {
		sb.WriteString(statLabel.Render(label))
		sb.WriteString(statVal.Render(value))
		sb.WriteString("\n")
	}

	row("Sessions:", fmt.Sprintf("%d/%d", done, total))
	row("Listings:", fmt.Sprintf("%d", m.stats.ListingsFound.Load()))
	row("Saved:", fmt.Sprintf("%d", m.stats.BusinessesSaved.Load()))

	errStyle := statVal
	if failed > 0 {
		errStyle = lipgloss.NewStyle().Foreground(styles.Error).Bold(true)
	}
	sb.WriteString(statLabel.Render("Failed:"))
	sb.WriteString(errStyle.Render(fmt.Sprintf("%d", failed)))
	sb.WriteString("\n")

	if extractErrs > 0 {
		sb.WriteString(statLabel.Render("Skipped:"))
		sb.WriteString(lipgloss.NewStyle().Foreground(styles.Warning).Bold(true).Render(fmt.Sprintf("%d", extractErrs)))
		sb.WriteString("\n")
	}

	row("Elapsed:", elapsed.String())

	if done > 0 && total > 0 && !m.done {
		rate := float64(done) / elapsed.Seconds()
		remaining := float64(total-done) / rate
		eta := time.Duration(remaining * float64(time.Second)).Truncate(time.Second)
		row("ETA:", "~"+eta.String())
	}

	return sb.String()
}
