package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
	"github.com/Zuo-Peng/ai-session-viewer/internal/open"
	"github.com/Zuo-Peng/ai-session-viewer/internal/search"
)

const debounceDelay = 200 * time.Millisecond

// Backend is the part of the engine the TUI drives.
type Backend interface {
	Search(ctx context.Context, opts search.Options) ([]search.Result, error)
	Sessions(ctx context.Context, src model.Source, projectID string) ([]model.Session, error)
	Messages(src model.Source, filePath string, pageNum, pageSize int, fromEnd bool) (model.Page, error)
	Invalidate(paths []string) int
}

type Config struct {
	Backend    Backend
	Source     model.Source
	Query      string
	Role       string
	MaxResults int
	PageSize   int
	ProjectID  string          // list mode: "" lists every codex session
	Changes    <-chan []string // optional watcher batches
	Out        io.Writer       // where the resume command is reported
}

type tuiMode int

const (
	modeSearch tuiMode = iota
	modeList
)

type action int

const (
	actionNone action = iota
	actionResume
	actionEdit
)

// message types

type resultsMsg struct {
	query string
	items []item
	err   error
}

type debounceTickMsg struct {
	query string
}

type changesMsg struct {
	paths []string
}

// ui is the bubbletea model.

type ui struct {
	cfg         Config
	mode        tuiMode
	query       string
	items       []item
	cursor      int
	listOffset  int
	filterInput textinput.Model
	preview     viewport.Model
	previewKey  string // "path:hit" to avoid duplicate renders
	previewLine int    // file line of the hit message, for the editor
	width       int
	height      int
	ready       bool
	quitting    bool
	chosen      *item
	action      action
}

func newModel(cfg Config, mode tuiMode) ui {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	ti := textinput.New()
	ti.Placeholder = "Search..."
	if mode == modeList {
		ti.Placeholder = "Filter..."
	}
	ti.Focus()
	ti.SetValue(cfg.Query)
	ti.Prompt = "> "
	ti.PromptStyle = styleInputPrompt
	ti.TextStyle = styleInput
	ti.CharLimit = 256

	return ui{
		cfg:         cfg,
		mode:        mode,
		query:       cfg.Query,
		filterInput: ti,
		preview:     viewport.New(0, 0),
	}
}

// Run starts the search TUI and blocks until it exits. Enter prints the
// resume command for the selected session and copies it to the clipboard;
// ctrl+o opens the session file at the matching message.
func Run(cfg Config) error {
	return run(newModel(cfg, modeSearch))
}

// RunList starts the TUI on the sessions of cfg.ProjectID, newest first.
// Typing switches to full-text search.
func RunList(cfg Config) error {
	return run(newModel(cfg, modeList))
}

func run(m ui) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	fm := finalModel.(ui)
	if fm.chosen == nil {
		return nil
	}
	switch fm.action {
	case actionEdit:
		return open.InEditor(fm.chosen.filePath, fm.previewLine)
	case actionResume:
		rc, err := open.Resume(fm.chosen.source, fm.chosen.filePath, fm.chosen.projectPath, true)
		if err != nil {
			return err
		}
		out := fm.cfg.Out
		if out == nil {
			out = os.Stdout
		}
		if rc.Copied {
			fmt.Fprintf(out, "Copied to clipboard: %s\n", rc.Command)
		} else {
			fmt.Fprintln(out, rc.Command)
		}
	}
	return nil
}

// Init triggers the initial search/list load.
func (m ui) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, waitForChanges(m.cfg.Changes)}
	if m.mode == modeList || m.query != "" {
		cmds = append(cmds, m.reload(m.query))
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m ui) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.preview = newViewport(m.previewWidth(), m.panelHeight())
		m.previewKey = ""
		cmds = append(cmds, m.loadCurrentPreview())
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			if it, ok := m.current(); ok {
				m.chosen = &it
				m.action = actionResume
				if key.Matches(msg, keys.Edit) {
					m.action = actionEdit
				}
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil

		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.items)-1 {
				m.cursor++
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.PreviewUp):
			m.preview.LineUp(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PreviewDn):
			m.preview.LineDown(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PageUp):
			m.preview.LineUp(m.panelHeight())
			return m, nil

		case key.Matches(msg, keys.PageDown):
			m.preview.LineDown(m.panelHeight())
			return m, nil
		}

		// Pass remaining keys to text input
		var tiCmd tea.Cmd
		m.filterInput, tiCmd = m.filterInput.Update(msg)
		cmds = append(cmds, tiCmd)

		newQuery := m.filterInput.Value()
		if newQuery != m.query {
			m.query = newQuery
			cmds = append(cmds, scheduleDebounced(newQuery))
		}
		return m, tea.Batch(cmds...)

	case tea.MouseMsg:
		if !m.ready || len(m.items) == 0 {
			return m, nil
		}

		region, itemIdx := m.hitTest(msg.X, msg.Y)

		switch {
		case region == regionList && msg.Button == tea.MouseButtonWheelUp:
			if m.listOffset > 0 {
				m.listOffset--
			}
			return m, nil

		case region == regionList && msg.Button == tea.MouseButtonWheelDown:
			maxOffset := max(len(m.items)-m.panelHeight()/linesPerItem, 0)
			if m.listOffset < maxOffset {
				m.listOffset++
			}
			return m, nil

		case region == regionList && msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
			if itemIdx >= 0 && itemIdx < len(m.items) && m.cursor != itemIdx {
				m.cursor = itemIdx
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case region == regionPreview && (msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown):
			var vpCmd tea.Cmd
			m.preview, vpCmd = m.preview.Update(msg)
			return m, vpCmd
		}

		return m, nil

	case debounceTickMsg:
		// stale ticks are dropped
		if msg.query == m.query {
			cmds = append(cmds, m.reload(msg.query))
		}
		return m, tea.Batch(cmds...)

	case changesMsg:
		// session files changed on disk: drop them from the engine cache,
		// rerun the current query and keep listening
		m.cfg.Backend.Invalidate(msg.paths)
		if m.touches(msg.paths) {
			m.previewKey = ""
		}
		cmds = append(cmds, waitForChanges(m.cfg.Changes))
		if m.mode == modeList || m.query != "" {
			cmds = append(cmds, m.reload(m.query))
		}
		return m, tea.Batch(cmds...)

	case resultsMsg:
		if msg.query != m.query {
			return m, nil
		}
		if msg.err != nil {
			m.items = nil
			m.cursor = 0
			m.listOffset = 0
			m.preview.SetContent("Error: " + msg.err.Error())
			m.previewKey = ""
			return m, nil
		}
		prev, hadPrev := m.current()
		m.items = msg.items
		m.cursor = 0
		m.listOffset = 0
		// a refresh keeps the cursor on the same session when it survived
		if hadPrev {
			for i, it := range m.items {
				if it.key() == prev.key() {
					m.cursor = i
					m.adjustListScroll(m.panelHeight())
					break
				}
			}
		}
		if len(m.items) == 0 {
			m.preview.SetContent("")
			m.previewKey = ""
			return m, nil
		}
		return m, m.loadCurrentPreview()

	case previewRenderedMsg:
		it, ok := m.current()
		if !ok || it.key() != msg.key {
			return m, nil // stale preview
		}
		if msg.err != nil {
			m.preview.SetContent("Preview error: " + msg.err.Error())
		} else {
			m.preview.SetContent(msg.content)
			if msg.hitLine > 0 {
				m.preview.SetYOffset(msg.hitLine)
			} else if it.hit < 0 {
				m.preview.GotoBottom()
			} else {
				m.preview.GotoTop()
			}
		}
		m.previewKey = msg.key
		m.previewLine = msg.fileLine
		return m, nil
	}

	return m, tea.Batch(cmds...)
}

// View renders the full TUI.
func (m ui) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	listW := m.listWidth()
	previewW := m.previewWidth()
	panelH := m.panelHeight()

	inputRow := m.filterInput.View()

	listPanel := stylePanelBorder.
		Width(listW).
		Height(panelH).
		Render(m.renderList(listW, panelH))

	m.preview.Width = previewW
	m.preview.Height = panelH
	previewPanel := styleActiveBorder.
		Width(previewW).
		Height(panelH).
		Render(m.preview.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, previewPanel)
	return lipgloss.JoinVertical(lipgloss.Left, inputRow, panels, m.statusBar())
}

// helper methods

func (m ui) current() (item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return item{}, false
	}
	return m.items[m.cursor], true
}

func (m ui) touches(paths []string) bool {
	it, ok := m.current()
	if !ok {
		return false
	}
	for _, p := range paths {
		if p == it.filePath {
			return true
		}
	}
	return false
}

func (m ui) listWidth() int {
	if m.width <= 0 {
		return 40
	}
	// 40% for list, minus border padding
	return max(m.width*40/100-4, 20)
}

func (m ui) previewWidth() int {
	if m.width <= 0 {
		return 60
	}
	return max(m.width*60/100-4, 20)
}

func (m ui) panelHeight() int {
	if m.height <= 0 {
		return 20
	}
	// input row (1) + status bar (1) + borders (4)
	return max(m.height-6, 5)
}

type mouseRegion int

const (
	regionNone mouseRegion = iota
	regionList
	regionPreview
)

// hitTest maps terminal coordinates to a panel region and list item index.
func (m ui) hitTest(x, y int) (mouseRegion, int) {
	pH := m.panelHeight()
	contentYStart := 2 // input row (1) + top border (1)
	contentYEnd := contentYStart + pH - 1

	if y < contentYStart || y > contentYEnd {
		return regionNone, -1
	}
	relY := y - contentYStart

	lw := m.listWidth()
	listBoxRight := lw + 1 // col 0=border, 1..lw=content, lw+1=border

	if x >= 1 && x <= lw {
		return regionList, m.listOffset + relY/linesPerItem
	}
	if x > listBoxRight+1 {
		return regionPreview, -1
	}
	return regionNone, -1
}

func (m ui) statusBar() string {
	noun := "results"
	if m.mode == modeList && m.query == "" {
		noun = "sessions"
	}
	parts := []string{
		fmt.Sprintf("%d %s", len(m.items), noun),
		"up/dn navigate",
		"C-u/C-d preview",
		"Enter resume",
		"C-o open",
		"Esc quit",
	}
	return styleStatusBar.Render(strings.Join(parts, " | "))
}

// reload runs the current query: a full-text search, or in list mode with
// an empty filter the project's session list.
func (m ui) reload(query string) tea.Cmd {
	b := m.cfg.Backend
	cfg := m.cfg
	listing := m.mode == modeList && query == ""
	return func() tea.Msg {
		ctx := context.Background()
		if listing {
			sessions, err := b.Sessions(ctx, cfg.Source, cfg.ProjectID)
			return resultsMsg{query: query, items: sessionItems(sessions), err: err}
		}
		if strings.TrimSpace(query) == "" {
			return resultsMsg{query: query}
		}
		results, err := b.Search(ctx, search.Options{
			Source:     cfg.Source,
			Query:      query,
			MaxResults: cfg.MaxResults,
			Role:       cfg.Role,
		})
		return resultsMsg{query: query, items: resultItems(results), err: err}
	}
}

func scheduleDebounced(query string) tea.Cmd {
	return tea.Tick(debounceDelay, func(time.Time) tea.Msg {
		return debounceTickMsg{query: query}
	})
}

// waitForChanges blocks on the next watcher batch. A nil or closed channel
// ends the subscription.
func waitForChanges(ch <-chan []string) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		paths, ok := <-ch
		if !ok {
			return nil
		}
		return changesMsg{paths: paths}
	}
}

func (m ui) loadCurrentPreview() tea.Cmd {
	it, ok := m.current()
	if !ok || it.key() == m.previewKey {
		return nil
	}
	return loadPreviewCmd(m.cfg.Backend, it, m.query, m.previewWidth(), m.cfg.PageSize)
}
