package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"stopmo/internal/models"
	"stopmo/internal/project"
	"stopmo/internal/shared"
	"stopmo/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	FrameListView ViewState = iota
	ConfirmView
	SyncView
	ResultView
)

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	yes     key.Binding
	no      key.Binding
	restart key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "pull frames")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "no")),
		restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.back, k.yes, k.no},
		{k.restart, k.quit},
	}
}

var _ list.Item = frameItem{}

// frameItem wraps [models.Frame] to implement [list.Item].
type frameItem struct {
	frame models.Frame
}

func (i frameItem) FilterValue() string { return fmt.Sprintf("%d", i.frame.Index) }
func (i frameItem) Title() string {
	return fmt.Sprintf("Frame %04d (%s)", i.frame.Index, shared.TakenString(i.frame.Taken))
}
func (i frameItem) Description() string {
	desc := ""
	if i.frame.Filename != nil {
		desc = *i.frame.Filename
	}
	if i.frame.Note != nil {
		if desc != "" {
			desc = fmt.Sprintf("%s • %s", desc, *i.frame.Note)
		} else {
			desc = *i.frame.Note
		}
	}
	if desc == "" {
		desc = "not captured yet"
	}
	return desc
}

type framesLoadedMsg struct {
	config *models.ProjectConfig
	err    error
}

type progressUpdateMsg tasks.ProgressUpdate

type pullCompleteMsg struct {
	result *tasks.PullResult
	err    error
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	store        *project.Store
	engine       *tasks.Engine
	pullOpts     tasks.PullOpts
	width        int
	height       int
	frameList    list.Model
	config       *models.ProjectConfig
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	result       *tasks.PullResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, store *project.Store, engine *tasks.Engine, pullOpts tasks.PullOpts) *Model {
	return &Model{
		ctx:      ctx,
		view:     FrameListView,
		store:    store,
		engine:   engine,
		pullOpts: pullOpts,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init initializes the TUI by loading the frame sheet from the store.
func (m *Model) Init() tea.Cmd {
	return m.loadFrames()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.frameList.Width() == 0 {
			m.frameList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case FrameListView:
			return m.handleFrameListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case framesLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.config = msg.config
		items := make([]list.Item, len(msg.config.Frames))
		for i, frame := range msg.config.Frames {
			items[i] = frameItem{frame: frame}
		}
		m.frameList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.frameList.Title = fmt.Sprintf("Frames in '%s'", m.store.ProjectID())
		m.frameList.SetSize(m.width-4, m.height-8)
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case pullCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil
	}

	return m.updateList(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case FrameListView:
		return m.renderFrameList()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleFrameListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.frameList, cmd = m.frameList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		m.view = FrameListView
		return m, nil
	case "y":
		m.view = SyncView
		return m, m.startPull()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = FrameListView
		m.result = nil
		m.err = nil
		return m, m.loadFrames()
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.view == FrameListView {
		m.frameList, cmd = m.frameList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadFrames() tea.Cmd {
	return func() tea.Msg {
		config := m.store.Snapshot()
		if config == nil {
			return framesLoadedMsg{err: fmt.Errorf("no project loaded: %w", shared.ErrPrecondition)}
		}
		return framesLoadedMsg{config: config}
	}
}

func (m *Model) startPull() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	progressChan := m.progressChan

	go func() {
		result, err := m.engine.Pull(m.ctx, progressChan, m.pullOpts)
		m.result = result
		m.err = err
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return pullCompleteMsg{result: m.result, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return pullCompleteMsg{result: m.result, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderFrameList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.frameList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	taken := 0
	if m.config != nil {
		taken = m.config.TakenCount()
	}
	title := styles.title.Render(fmt.Sprintf("Pull %d captured frames?", taken))
	info := fmt.Sprintf("\nProject: %s\nDestination: %s\n", m.store.ProjectID(), m.pullDestination())

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) pullDestination() string {
	if m.pullOpts.OutputDir != "" {
		return m.pullOpts.OutputDir
	}
	return fmt.Sprintf("%s_frames", m.store.ProjectID())
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Pulling Frames")

	var phase string
	switch m.progress.Phase {
	case tasks.DownloadFrames:
		phase = fmt.Sprintf("Downloading frames (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.WriteThumbnails:
		phase = fmt.Sprintf("Writing thumbnails (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, styles.help.Render(m.progress.Message))
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Pull failed: %v\n\nPress r to retry, q to quit", m.err))
	}

	if m.result == nil {
		return styles.err.Render("No result available\n\nPress r to retry, q to quit")
	}

	title := styles.ok.Render("✓ Pull Complete!")
	info := fmt.Sprintf(
		"\nFrames: %d/%d downloaded\nDestination: %s",
		m.result.SuccessCount,
		m.result.TotalFrames,
		m.result.OutputDirectory,
	)

	var failed string
	if m.result.FailedCount > 0 {
		failed = fmt.Sprintf("\n\n%s", styles.warn.Render(fmt.Sprintf("Failed to download %d frames:", m.result.FailedCount)))
		for _, res := range m.result.Results {
			if !res.Success {
				failed += fmt.Sprintf("\n  • frame %04d: %s", res.Index, res.Error)
			}
		}
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}
