package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
	"github.com/Zuo-Peng/ai-session-viewer/internal/page"
	"github.com/Zuo-Peng/ai-session-viewer/internal/search"
)

type fakeBackend struct {
	results     []search.Result
	sessions    []model.Session
	msgs        []model.Message
	invalidated [][]string
	lastOpts    search.Options
}

func (f *fakeBackend) Search(_ context.Context, opts search.Options) ([]search.Result, error) {
	f.lastOpts = opts
	return f.results, nil
}

func (f *fakeBackend) Sessions(context.Context, model.Source, string) ([]model.Session, error) {
	return f.sessions, nil
}

func (f *fakeBackend) Messages(_ model.Source, _ string, pageNum, pageSize int, fromEnd bool) (model.Page, error) {
	return page.Slice(f.msgs, pageNum, pageSize, fromEnd)
}

func (f *fakeBackend) Invalidate(paths []string) int {
	f.invalidated = append(f.invalidated, paths)
	return len(paths)
}

func messages(n int) []model.Message {
	out := make([]model.Message, n)
	for i := range out {
		out[i] = model.Message{
			Role:    "user",
			Content: []model.Block{model.TextBlock("message")},
			Line:    i + 1,
		}
	}
	return out
}

func TestResultItems(t *testing.T) {
	items := resultItems([]search.Result{
		{Source: model.SourceClaude, ProjectID: "-work-app", ProjectName: "app", SessionID: "s1", FilePath: "/c/s1.jsonl", MessageIndex: 3},
		{Source: model.SourceCodex, ProjectID: "/work/api", SessionID: "x", FirstPrompt: "fix it", FilePath: "/x.jsonl", MessageIndex: 0},
	})
	require.Len(t, items, 2)
	assert.Equal(t, "app", items[0].title)
	assert.Empty(t, items[0].projectPath)
	assert.Equal(t, 3, items[0].hit)
	assert.Equal(t, "fix it", items[1].title)
	assert.Equal(t, "/work/api", items[1].projectPath)
}

func TestSessionItems(t *testing.T) {
	mod := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	items := sessionItems([]model.Session{{
		Source:       model.SourceCodex,
		SessionID:    "x",
		FilePath:     "/x.jsonl",
		MessageCount: 7,
		Modified:     mod,
		Cwd:          "/work/api",
		GitBranch:    "main",
	}})
	require.Len(t, items, 1)
	it := items[0]
	assert.Equal(t, -1, it.hit)
	assert.Equal(t, "x", it.title)
	assert.Equal(t, "/work/api", it.projectPath)
	assert.Equal(t, "2026-03-04T05:06:07Z", it.when)
	assert.Contains(t, it.snippet, "7 msgs")
	assert.Contains(t, it.snippet, "main")
}

func TestFormatItemFitsWidth(t *testing.T) {
	it := item{source: model.SourceClaude, when: "2026-01-27T10:00:00Z", title: "a very long title\nwith a newline that goes on", snippet: "snippet text that is long"}
	rows := formatItem(it, 30, true)
	require.Len(t, rows, 2)
	assert.Contains(t, rows[0], "01-27")
	assert.NotContains(t, rows[0], "\n")
}

func TestAdjustListScroll(t *testing.T) {
	m := ui{items: make([]item, 20)}
	m.cursor = 12
	m.adjustListScroll(10) // 5 visible
	assert.Equal(t, 8, m.listOffset)
	m.cursor = 2
	m.adjustListScroll(10)
	assert.Equal(t, 2, m.listOffset)
}

func TestResultsKeepCursorOnRefresh(t *testing.T) {
	b := &fakeBackend{msgs: messages(3)}
	m := newModel(Config{Backend: b, Source: model.SourceClaude, Query: "x"}, modeSearch)
	m.items = []item{{filePath: "/a", hit: 0}, {filePath: "/b", hit: 1}}
	m.cursor = 1

	next, _ := m.Update(resultsMsg{query: "x", items: []item{{filePath: "/c", hit: 0}, {filePath: "/b", hit: 1}, {filePath: "/a", hit: 0}}})
	assert.Equal(t, 1, next.(ui).cursor)

	// results for an older query are ignored
	next, _ = next.(ui).Update(resultsMsg{query: "old", items: nil})
	assert.Len(t, next.(ui).items, 3)
}

func TestChangesInvalidateAndReload(t *testing.T) {
	b := &fakeBackend{results: []search.Result{{Source: model.SourceClaude, FilePath: "/a", MessageIndex: 0}}}
	ch := make(chan []string, 1)
	m := newModel(Config{Backend: b, Source: model.SourceClaude, Query: "hello", Changes: ch, MaxResults: 9, Role: "user"}, modeSearch)
	m.items = []item{{filePath: "/a", hit: 0}}
	m.previewKey = "/a:0"

	next, cmd := m.Update(changesMsg{paths: []string{"/a"}})
	require.Len(t, b.invalidated, 1)
	assert.Equal(t, []string{"/a"}, b.invalidated[0])
	assert.Empty(t, next.(ui).previewKey)
	require.NotNil(t, cmd)

	msgs := drain(cmd, ch)
	var got *resultsMsg
	for _, msg := range msgs {
		if r, ok := msg.(resultsMsg); ok {
			got = &r
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, "hello", got.query)
	assert.Len(t, got.items, 1)
	assert.Equal(t, 9, b.lastOpts.MaxResults)
	assert.Equal(t, "user", b.lastOpts.Role)
}

// drain runs a batch of commands, feeding ch so the watcher subscription
// does not block.
func drain(cmd tea.Cmd, ch chan []string) []tea.Msg {
	ch <- []string{"/next"}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		if c != nil {
			out = append(out, c())
		}
	}
	return out
}

func TestListModeLoadsSessions(t *testing.T) {
	b := &fakeBackend{sessions: []model.Session{{Source: model.SourceClaude, SessionID: "s1", FilePath: "/s1.jsonl"}}}
	m := newModel(Config{Backend: b, Source: model.SourceClaude, ProjectID: "-work-app"}, modeList)
	msg := m.reload("")()
	r, ok := msg.(resultsMsg)
	require.True(t, ok)
	require.Len(t, r.items, 1)
	assert.Equal(t, "s1", r.items[0].sessionID)
}

func TestEmptyQuerySearchesNothing(t *testing.T) {
	b := &fakeBackend{results: []search.Result{{FilePath: "/a"}}}
	m := newModel(Config{Backend: b, Source: model.SourceClaude}, modeSearch)
	r := m.reload("  ")().(resultsMsg)
	assert.Empty(t, r.items)
}

func TestPreviewFindsHitPage(t *testing.T) {
	b := &fakeBackend{msgs: messages(12)}
	it := item{source: model.SourceClaude, sessionID: "s1", filePath: "/s1.jsonl", hit: 7}
	msg := loadPreviewCmd(b, it, "", 80, 5)().(previewRenderedMsg)
	require.NoError(t, msg.err)
	assert.Equal(t, "/s1.jsonl:7", msg.key)
	assert.Equal(t, 8, msg.fileLine)
	assert.Greater(t, msg.hitLine, 0)
	assert.Contains(t, msg.content, "5 messages before")
}

func TestPreviewSessionRowShowsNewest(t *testing.T) {
	b := &fakeBackend{msgs: messages(12)}
	it := item{source: model.SourceClaude, filePath: "/s1.jsonl", hit: -1}
	msg := loadPreviewCmd(b, it, "", 80, 5)().(previewRenderedMsg)
	require.NoError(t, msg.err)
	assert.Equal(t, 12, msg.fileLine)
	assert.Equal(t, -1, msg.hitLine)
}

func TestEnterChoosesCurrent(t *testing.T) {
	m := newModel(Config{Backend: &fakeBackend{}}, modeSearch)
	m.items = []item{{filePath: "/a", hit: 0}, {filePath: "/b", hit: 2}}
	m.cursor = 1

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	fm := next.(ui)
	require.NotNil(t, fm.chosen)
	assert.Equal(t, "/b", fm.chosen.filePath)
	assert.Equal(t, actionResume, fm.action)
	require.NotNil(t, cmd)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.Equal(t, actionEdit, next.(ui).action)
}
