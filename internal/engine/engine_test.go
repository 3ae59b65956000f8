package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
	"github.com/Zuo-Peng/ai-session-viewer/internal/search"
)

func write(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func turn(role, text string) string {
	return `{"type":"` + role + `","sessionId":"s1","message":{"role":"` + role + `","content":"` + text + `"}}`
}

func newEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	claude := filepath.Join(root, "claude")
	file := filepath.Join(claude, "-work-app", "s1.jsonl")
	write(t, file, turn("user", "one"), turn("assistant", "two"), turn("user", "three"))
	e, err := New(Options{
		ClaudeRoot:       claude,
		ClaudeStats:      filepath.Join(root, "stats-cache.json"),
		CodexRoot:        filepath.Join(root, "codex"),
		SessionCacheSize: 20,
	})
	require.NoError(t, err)
	return e, file
}

func TestMessagesPaging(t *testing.T) {
	e, file := newEngine(t)

	p0, err := e.Messages(model.SourceClaude, file, 0, 2, false)
	require.NoError(t, err)
	assert.Len(t, p0.Messages, 2)
	assert.True(t, p0.HasMore)

	p1, err := e.Messages(model.SourceClaude, file, 1, 2, false)
	require.NoError(t, err)
	require.Len(t, p1.Messages, 1)
	assert.False(t, p1.HasMore)
	assert.Equal(t, "three", p1.Messages[0].Content[0].Text)

	latest, err := e.Messages(model.SourceClaude, file, 0, 1, true)
	require.NoError(t, err)
	assert.Equal(t, "three", latest.Messages[0].Content[0].Text)
	assert.True(t, latest.HasMore)

	far, err := e.Messages(model.SourceClaude, file, 9, 2, false)
	require.NoError(t, err)
	assert.Empty(t, far.Messages)
	assert.False(t, far.HasMore)
}

func TestMessagesErrors(t *testing.T) {
	e, file := newEngine(t)

	_, err := e.Messages(model.SourceClaude, file, 0, 0, false)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = e.Messages(model.Source("gemini"), file, 0, 10, false)
	assert.ErrorIs(t, err, model.ErrUnknownSource)

	_, err = e.Messages(model.SourceClaude, file+".gone", 0, 10, false)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSessionCacheAndInvalidate(t *testing.T) {
	e, file := newEngine(t)

	_, err := e.Messages(model.SourceClaude, file, 0, 10, false)
	require.NoError(t, err)
	assert.Equal(t, 1, e.Cached())

	// The cache keeps serving the old content until told otherwise.
	write(t, file, turn("user", "one"))
	p, err := e.Messages(model.SourceClaude, file, 0, 10, false)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Total)

	assert.Equal(t, 0, e.Invalidate([]string{filepath.Join(filepath.Dir(file), "other.jsonl")}))
	assert.Equal(t, 1, e.Invalidate([]string{file}))
	assert.Equal(t, 0, e.Cached())

	p, err = e.Messages(model.SourceClaude, file, 0, 10, false)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Total)
}

func TestWithoutSessionCache(t *testing.T) {
	_, file := newEngine(t)
	e, err := New(Options{ClaudeRoot: filepath.Dir(filepath.Dir(file))})
	require.NoError(t, err)

	p, err := e.Messages(model.SourceClaude, file, 0, 10, false)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, 0, e.Invalidate([]string{file}))
}

func TestDispatch(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	projects, err := e.Projects(ctx, model.SourceClaude)
	require.NoError(t, err)
	require.Len(t, projects, 1)

	sessions, err := e.Sessions(ctx, model.SourceClaude, projects[0].ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 3, sessions[0].MessageCount)

	codex, err := e.Projects(ctx, model.SourceCodex)
	require.NoError(t, err)
	assert.Empty(t, codex)

	res, err := e.Search(ctx, search.Options{Source: model.SourceClaude, Query: "THREE"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, 2, res[0].MessageIndex)

	sum, err := e.Stats(ctx, model.SourceClaude)
	require.NoError(t, err)
	assert.Zero(t, sum.TotalTokens)

	for _, call := range []func() error{
		func() error { _, err := e.Projects(ctx, "x"); return err },
		func() error { _, err := e.Sessions(ctx, "x", "p"); return err },
		func() error { _, err := e.Search(ctx, search.Options{Source: "x", Query: "q"}); return err },
		func() error { _, err := e.Stats(ctx, "x"); return err },
	} {
		assert.ErrorIs(t, call(), model.ErrUnknownSource)
	}
}
