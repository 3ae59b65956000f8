package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Zuo-Peng/ai-session-viewer/internal/render"
)

// previewRenderedMsg is sent when an async preview render completes.
type previewRenderedMsg struct {
	key      string
	content  string
	hitLine  int
	fileLine int
	err      error
}

// loadPreviewCmd renders the page holding the hit, or the newest page of a
// session row.
func loadPreviewCmd(b Backend, it item, query string, width, pageSize int) tea.Cmd {
	return func() tea.Msg {
		msg := previewRenderedMsg{key: it.key()}
		pageNum, fromEnd := 0, true
		if it.hit >= 0 {
			pageNum, fromEnd = it.hit/pageSize, false
		}
		p, err := b.Messages(it.source, it.filePath, pageNum, pageSize, fromEnd)
		if err != nil {
			msg.err = err
			return msg
		}
		msg.content, msg.hitLine = render.Page(p, render.Options{
			Header:   string(it.source) + " " + it.sessionID,
			HitIndex: it.hit,
			Width:    width,
			Query:    query,
		})
		switch i := it.hit - p.Offset; {
		case it.hit >= 0 && i >= 0 && i < len(p.Messages):
			msg.fileLine = p.Messages[i].Line
		case len(p.Messages) > 0:
			msg.fileLine = p.Messages[len(p.Messages)-1].Line
		}
		return msg
	}
}

// newViewport creates a new viewport model with the given dimensions.
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.Style = stylePanelBorder
	return vp
}
