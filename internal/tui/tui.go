// Package tui provides a Bubble Tea terminal user interface for paletti.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/paletti/internal/app"
	"github.com/handiism/paletti/internal/dispatch"
	"github.com/handiism/paletti/internal/download"
	"github.com/handiism/paletti/internal/model"
	"github.com/handiism/paletti/internal/plugin"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	entryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// maxListed caps the planned entries shown while downloading.
const maxListed = 8

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StatePlanning
	StateDownloading
	StateComplete
	StateError
)

// Events buffers notices for the UI. Notices that arrive while the buffer
// is full are dropped so downloads never wait for the screen.
type Events chan download.ProgressEvent

// NewEvents creates an event buffer.
func NewEvents() Events {
	return make(Events, 64)
}

// Notify is a download.Notifier feeding the buffer.
func (e Events) Notify(ev download.ProgressEvent) {
	select {
	case e <- ev:
	default:
	}
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	app       *app.App
	events    Events
	logs      []download.ProgressEvent
	entries   []model.Summary
	playlist  string
	err       error

	ctx    context.Context
	cancel context.CancelFunc
	batch  *app.Batch

	totalFiles      int32
	downloadedFiles int32
	totalBytes      int64
	receivedBytes   int64

	// Options
	audioOnly    bool
	subtitles    bool
	makePlaylist bool
	verbose      bool

	width  int
	height int
}

// NewModel creates a TUI model over a. events must be the buffer whose
// Notify was handed to app.New.
func NewModel(a *app.App, events Events) Model {
	ti := textinput.New()
	ti.Placeholder = "https://artist.bandcamp.com/album/name or a search"
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		app:       a,
		events:    events,
		ctx:       ctx,
		cancel:    cancel,
		subtitles: a.Settings.Subtitles,
		verbose:   a.Settings.Verbose,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.listen())
}

// Message types
type (
	// ProgressMsg carries one notice from the engine.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// PlanDoneMsg is sent when the input has been expanded into entries.
	PlanDoneMsg struct {
		Entries []model.Summary
		Err     error
	}

	// DownloadDoneMsg is sent when every entry has been handled.
	DownloadDoneMsg struct {
		Playlist string
		Err      error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateDownloading || m.state == StatePlanning {
				m.cancel()
				m.state = StateError
				m.err = fmt.Errorf("cancelled by user")
			}

		case "enter":
			if m.state == StateInput && strings.TrimSpace(m.textInput.Value()) != "" {
				m.state = StatePlanning
				return m, tea.Batch(m.plan(), m.spinner.Tick)
			}

		case "alt+a":
			if m.state == StateInput {
				m.audioOnly = !m.audioOnly
				return m, nil
			}

		case "alt+s":
			if m.state == StateInput {
				m.subtitles = !m.subtitles
				return m, nil
			}

		case "alt+p":
			if m.state == StateInput {
				m.makePlaylist = !m.makePlaylist
				return m, nil
			}

		case "alt+v":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m.state = StateInput
				m.logs = nil
				m.entries = nil
				m.playlist = ""
				m.err = nil
				m.batch = nil
				m.downloadedFiles = 0
				m.totalFiles = 0
				m.receivedBytes = 0
				m.totalBytes = 0
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.textInput.SetValue("")
				m.textInput.Focus()
				return m, nil
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		cmds = append(cmds, m.listen())
		if msg.Event.Level == download.LevelVerbose && !m.verbose {
			break
		}
		m.logs = append(m.logs, msg.Event)
		if len(m.logs) > 10 {
			m.logs = m.logs[len(m.logs)-10:]
		}

	case PlanDoneMsg:
		if m.state != StatePlanning {
			break
		}
		switch {
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		case len(msg.Entries) == 0:
			m.state = StateError
			m.err = fmt.Errorf("nothing to download")
		default:
			m.entries = msg.Entries
			m.batch = m.app.NewBatch()
			m.state = StateDownloading
			cmds = append(cmds, m.download(), m.tickProgress())
		}

	case DownloadDoneMsg:
		m.updateProgress()
		m.playlist = msg.Playlist
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = fmt.Errorf("cancelled by user")
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.batch != nil && m.state == StateDownloading {
			m.updateProgress()
			cmds = append(cmds, m.progress.SetPercent(m.percent()), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) updateProgress() {
	if m.batch == nil {
		return
	}
	m.receivedBytes, m.totalBytes, m.downloadedFiles, m.totalFiles = m.batch.Progress()
}

// percent is the byte ratio once sizes are known, the file ratio before.
func (m Model) percent() float64 {
	switch {
	case m.totalBytes > 0:
		return float64(m.receivedBytes) / float64(m.totalBytes)
	case m.totalFiles > 0:
		return float64(m.downloadedFiles) / float64(m.totalFiles)
	}
	return 0
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// listen waits for the next engine notice.
func (m Model) listen() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return ProgressMsg{Event: <-events}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("🎬 Paletti"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download media from the web"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StatePlanning:
		b.WriteString(m.viewPlanning())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))

	return b.String()
}

func check(on bool) string {
	if on {
		return "[×]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter a URL or a search query:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Audio only (alt+a)\n", check(m.audioOnly)))
	b.WriteString(fmt.Sprintf("  %s Subtitles (alt+s)\n", check(m.subtitles)))
	b.WriteString(fmt.Sprintf("  %s Create playlist (alt+p)\n", check(m.makePlaylist)))
	b.WriteString(fmt.Sprintf("  %s Verbose output (alt+v)\n", check(m.verbose)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Download path: %s", m.app.Settings.DownloadsPath)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewPlanning() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Fetching media info..."))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	b.WriteString(successStyle.Render(fmt.Sprintf("Found %d item(s):", len(m.entries))))
	b.WriteString("\n")
	for i, e := range m.entries {
		if i == maxListed {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  … and %d more", len(m.entries)-maxListed)))
			b.WriteString("\n")
			break
		}
		b.WriteString(entryStyle.Render("  ♪ " + e.Title))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.progress.ViewAs(m.percent()))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Files: %d/%d | Downloaded: %.2f / %.2f MB",
		m.downloadedFiles,
		m.totalFiles,
		float64(m.receivedBytes)/1024/1024,
		float64(m.totalBytes)/1024/1024,
	)))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	text := fmt.Sprintf(
		"✨ Download Complete!\n\n"+
			"Files: %d/%d\n"+
			"Size: %.2f MB",
		m.downloadedFiles,
		m.totalFiles,
		float64(m.receivedBytes)/1024/1024,
	)
	if m.playlist != "" {
		text += "\nPlaylist: " + m.playlist
	}
	return boxStyle.Render(text)
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("❌ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
		b.WriteString("\n\n")
	}
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, ev := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch ev.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + ev.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) helpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • alt+a: audio • alt+s: subtitles • alt+p: playlist • alt+v: verbose • esc: quit"
	case StatePlanning, StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}
	return ""
}

// options turns the toggles into download options.
func (m Model) options() dispatch.Options {
	s := m.app.Settings
	return dispatch.Options{
		Audio:     true,
		Video:     !m.audioOnly,
		Subtitles: m.subtitles,
		Quality:   s.DefaultQuality,
		Container: s.DefaultContainer,
	}
}

// plan expands the input into entries.
func (m Model) plan() tea.Cmd {
	ctx, a, input := m.ctx, m.app, m.textInput.Value()
	return func() tea.Msg {
		entries, err := a.Plan(ctx, input, a.Settings.SearchPlugin, plugin.Options{})
		return PlanDoneMsg{Entries: entries, Err: err}
	}
}

// download runs the batch in the background.
func (m Model) download() tea.Cmd {
	ctx, a, batch, entries := m.ctx, m.app, m.batch, m.entries
	opts, makePlaylist := m.options(), m.makePlaylist
	return func() tea.Msg {
		folder := a.Settings.DownloadsPath
		err := batch.Run(ctx, entries, folder, opts)

		var path string
		if makePlaylist && ctx.Err() == nil {
			var perr error
			path, perr = a.WritePlaylist(folder, playlistTitle(entries), entries)
			if err == nil {
				err = perr
			}
		}
		return DownloadDoneMsg{Playlist: path, Err: err}
	}
}

func playlistTitle(entries []model.Summary) string {
	if len(entries) > 0 && entries[0].Uploader != "" {
		return entries[0].Uploader
	}
	return "paletti"
}

// Run starts the TUI application.
func Run(a *app.App, events Events) error {
	p := tea.NewProgram(NewModel(a, events), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
