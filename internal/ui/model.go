package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/tickloom/swmread/internal/queue"
)

//nolint:gochecknoglobals
var (
	// titleStyle defines the style for a panel's title.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	// borderStyle defines the style for a panel's borders.
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))

	// infoStyle defines the style for a panel's text.
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	// trapStyle defines the style for the tripped-trap banner.
	trapStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB454"))

	// helpStyle defines the style for the help panel's text.
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 1)
)

// ReadProgressMsg is a [tea.Msg] containing the read loop's [queue.Progress]
// and the boundary trap state.
type ReadProgressMsg struct {
	t           time.Time
	readData    queue.Progress
	trapTripped bool
}

// TeaModel is the principal [tea.Model] for the command-line user interface.
type TeaModel struct {
	width  int
	height int

	cancel context.CancelFunc

	uiHandler *Handler
	readQueue *queue.ReadQueue
	faultTrap trapState

	fullWidthWithBorders int

	readData    queue.Progress
	trapTripped bool

	readProgress progress.Model
	logsViewport viewport.Model
	logs         []string

	ready bool
}

// NewTeaModel returns an initial new [TeaModel].
//
//nolint:mnd
func NewTeaModel(uiHandler *Handler, readQueue *queue.ReadQueue, faultTrap trapState, cancel context.CancelFunc) TeaModel {
	readProgress := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(80),
	)

	logsViewport := viewport.New(80, 20)

	return TeaModel{
		uiHandler:    uiHandler,
		readQueue:    readQueue,
		faultTrap:    faultTrap,
		readProgress: readProgress,
		readData:     queue.Progress{},
		logsViewport: logsViewport,
		logs:         make([]string, 0, 100),
		cancel:       cancel,
		ready:        false,
	}
}

// Init initializes the model within a [tea.Program].
func (m TeaModel) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		updateReadProgress(m.readQueue, m.faultTrap),
	)
}

// updateReadProgress produces a [tea.Cmd] for later scheduling in a
// [tea.Program]. When executed, a [ReadProgressMsg] with the read queue's
// [queue.Progress] is returned.
func updateReadProgress(q *queue.ReadQueue, faultTrap trapState) tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { //nolint:mnd
		return ReadProgressMsg{
			t:           t,
			readData:    q.Progress(),
			trapTripped: faultTrap.Triggered(),
		}
	})
}

// Update is the principal message handling method of the model.
// It sets the internal state of the model, for later rendering.
//
//nolint:mnd,ireturn
func (m TeaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()

			return m, tea.Quit
		case "q":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		m.fullWidthWithBorders = m.width - 2
		m.readProgress.Width = m.fullWidthWithBorders

		// Upper panel takes about a third of the height.
		upperHeight := m.height / 3
		lowerHeight := m.height - upperHeight

		// Viewport height: lower section minus borders and title.
		viewportHeight := lowerHeight - 3

		m.logsViewport.Width = m.fullWidthWithBorders
		m.logsViewport.Height = viewportHeight

		if len(m.logs) > 0 {
			logs := lipgloss.NewStyle().
				Width(m.logsViewport.Width).
				Render(strings.TrimSuffix(strings.Join(m.logs, ""), "\n"))

			m.logsViewport.SetContent(logs)
			m.logsViewport.GotoBottom()
		}

		if !m.ready {
			m.ready = true
			m.uiHandler.Ready.Store(true)
		}

	case ReadProgressMsg:
		m.readData = msg.readData
		m.trapTripped = msg.trapTripped

		cmds = append(cmds,
			m.readProgress.SetPercent(m.readData.ProgressPct/100),
			updateReadProgress(m.readQueue, m.faultTrap),
		)

	case LogMsg:
		logMsg := string(msg)

		if len(m.logs) >= 100 {
			m.logs = m.logs[1:]
		}

		m.logs = append(m.logs, logMsg)

		logs := lipgloss.NewStyle().
			Width(m.logsViewport.Width).
			Render(strings.TrimSuffix(strings.Join(m.logs, ""), "\n"))

		m.logsViewport.SetContent(logs)
		m.logsViewport.GotoBottom()

	case progress.FrameMsg:
		updated, cmd := m.readProgress.Update(msg)
		if progressModel, ok := updated.(progress.Model); ok {
			m.readProgress = progressModel
		}
		cmds = append(cmds, cmd)
	}

	m.logsViewport, cmd = m.logsViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View is the principal rendering function of the model.
func (m TeaModel) View() string {
	if !m.ready {
		return "Loading the GUI..."
	}

	var s strings.Builder

	readView := m.formatProgressView("Read Loop", m.readProgress.View(), m.readData)

	progressSection := borderStyle.
		Width(m.fullWidthWithBorders).
		Render(readView)

	logsSection := borderStyle.
		Width(m.fullWidthWithBorders).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				titleStyle.Width(m.fullWidthWithBorders).Render("Process Information"),
				lipgloss.NewStyle().Width(m.fullWidthWithBorders).Render(m.logsViewport.View()),
			),
		)

	helpSection := helpStyle.
		Width(m.fullWidthWithBorders).
		Render("q: quit gui • ctrl+c: quit program")

	s.WriteString(lipgloss.JoinVertical(
		lipgloss.Left,
		progressSection,
		logsSection,
		helpSection,
	))

	return s.String()
}

// formatProgressView is a helper function for rendering the progress panel.
func (m TeaModel) formatProgressView(title string, progressBar string, data queue.Progress) string {
	var details string

	switch {
	case m.trapTripped:
		details = trapStyle.Render("Boundary trap tripped: stress loop ended early.") + "\n"

	case !data.HasFinished:
		var eta string
		if !data.ETA.IsZero() {
			eta = humanize.Time(data.ETA)
		} else {
			eta = "n/a"
		}

		details = fmt.Sprintf(
			"Progress: %.2f%% (%d/%d)\n"+
				"Reads: InProgress=%d, Success=%d, Skipped=%d\n"+
				"Speed: %d reads/sec (ETA %s)\n",
			data.ProgressPct,
			data.ProcessedItems,
			data.TotalItems,
			data.InProgressItems,
			data.SuccessItems,
			data.SkippedItems,
			int(data.ReadsPerSec),
			eta,
		)

	default:
		details = fmt.Sprintf(
			"Finished: %d reads (%d skipped) in %s\n",
			data.SuccessItems,
			data.SkippedItems,
			data.FinishTime.Sub(data.StartTime).Round(time.Millisecond),
		)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Width(m.fullWidthWithBorders).Render(title),
		progressBar,
		infoStyle.Render(details),
	)
}
