package index

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
)

func write(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func claudeTurn(sessionID, role, text string) string {
	return `{"type":"` + role + `","sessionId":"` + sessionID + `","cwd":"/work/app","gitBranch":"main","timestamp":"2025-01-02T03:04:05Z","message":{"role":"` + role + `","content":"` + text + `"}}`
}

func ids(sessions []model.Session) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.SessionID
	}
	return out
}

func setTime(t *testing.T, path string, ts time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, ts, ts))
}

func TestClaudeSessionsReconcile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "-work-app")
	write(t, filepath.Join(dir, "s1.jsonl"), claudeTurn("s1", "user", "hi"), claudeTurn("s1", "assistant", "hello"))
	write(t, filepath.Join(dir, "s2.jsonl"), claudeTurn("s2", "user", "second"))
	write(t, filepath.Join(dir, "s3.jsonl"), `{"type":"summary","summary":"nothing"}`)
	setTime(t, filepath.Join(dir, "s2.jsonl"), time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	write(t, filepath.Join(dir, "sessions-index.json"), `{
  "version": 1,
  "originalPath": "/work/app",
  "entries": [
    {"sessionId": "s1", "firstPrompt": "from index", "messageCount": 7, "modified": "2025-01-01T00:00:00Z"},
    {"sessionId": "s1", "firstPrompt": "duplicate", "messageCount": 1},
    {"sessionId": "gone", "messageCount": 0}
  ]
}`)

	ix := New(root, "", nil)
	sessions, err := ix.ClaudeSessions(context.Background(), "-work-app")
	require.NoError(t, err)
	assert.Equal(t, []string{"s2", "s1"}, ids(sessions))

	s1 := sessions[1]
	assert.Equal(t, "from index", s1.FirstPrompt)
	assert.Equal(t, 7, s1.MessageCount)
	assert.Equal(t, "/work/app", s1.ProjectPath)
	assert.Equal(t, filepath.Join(dir, "s1.jsonl"), s1.FilePath)

	s2 := sessions[0]
	assert.Equal(t, "second", s2.FirstPrompt)
	assert.Equal(t, 1, s2.MessageCount)
	assert.Equal(t, "main", s2.GitBranch)
}

func TestClaudeSessionsBadIndexFallsBack(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "-work-app")
	write(t, filepath.Join(dir, "s1.jsonl"), claudeTurn("s1", "user", "hi"))
	bad := `{"entries": [oops`
	write(t, filepath.Join(dir, "sessions-index.json"), bad)

	sessions, err := New(root, "", nil).ClaudeSessions(context.Background(), "-work-app")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids(sessions))

	data, err := os.ReadFile(filepath.Join(dir, "sessions-index.json"))
	require.NoError(t, err)
	assert.Equal(t, bad+"\n", string(data))
}

func TestClaudeSessionsArgs(t *testing.T) {
	ix := New(t.TempDir(), "", nil)
	_, err := ix.ClaudeSessions(context.Background(), "../etc")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	_, err = ix.ClaudeSessions(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestClaudeProjects(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "-work-app", "s1.jsonl"), claudeTurn("s1", "user", "hi"))
	write(t, filepath.Join(root, "-work-app", "sessions-index.json"), `{"originalPath":"/work/my-app","entries":[]}`)
	write(t, filepath.Join(root, "-work-lib", "s2.jsonl"), claudeTurn("s2", "user", "hi"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "-work-empty"), 0o755))
	setTime(t, filepath.Join(root, "-work-lib"), time.Now().Add(-time.Hour))

	projects, err := New(root, "", nil).ClaudeProjects()
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "/work/my-app", projects[0].DisplayPath)
	assert.Equal(t, "my-app", projects[0].ShortName)
	assert.Equal(t, 1, projects[0].SessionCount)
	assert.Equal(t, "-work-lib", projects[1].ID)
}

func codexRollout(t *testing.T, root, date, name, id, cwd string, turns int) string {
	t.Helper()
	parts := strings.Split(date, "-")
	path := filepath.Join(root, parts[0], parts[1], parts[2], name)
	lines := []string{`{"type":"session_meta","payload":{"id":"` + id + `","cwd":"` + cwd + `","model_provider":"openai"}}`}
	for i := 0; i < turns; i++ {
		lines = append(lines, `{"type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"q"}]}}`)
	}
	write(t, path, lines...)
	return path
}

func TestCodexProjectsWithMetaCache(t *testing.T) {
	root := t.TempDir()
	codexRollout(t, root, "2025-01-02", "a.jsonl", "id-a", "/work/api", 2)
	codexRollout(t, root, "2025-01-03", "b.jsonl", "id-b", "/work/api", 1)
	codexRollout(t, root, "2025-01-03", "c.jsonl", "id-c", "/work/web", 1)
	codexRollout(t, root, "2025-01-04", "d.jsonl", "id-d", "/work/web", 0)

	db, err := OpenDB(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	defer db.Close()

	ix := New("", root, db)
	for n := 0; n < 2; n++ {
		projects, err := ix.CodexProjects(context.Background())
		require.NoError(t, err)
		require.Len(t, projects, 2)
		counts := map[string]int{}
		for _, p := range projects {
			counts[p.ID] = p.SessionCount
			assert.Equal(t, "openai", p.ModelProvider)
		}
		assert.Equal(t, map[string]int{"/work/api": 2, "/work/web": 1}, counts)
	}

	n, err := db.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, n[model.SourceCodex])

	sessions, err := ix.CodexSessions(context.Background(), "/work/api")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"id-a", "id-b"}, ids(sessions))
}

func TestRefreshPrunesVanishedFiles(t *testing.T) {
	root := t.TempDir()
	keep := codexRollout(t, root, "2025-01-02", "a.jsonl", "id-a", "/w", 1)
	drop := codexRollout(t, root, "2025-01-02", "b.jsonl", "id-b", "/w", 1)

	db, err := OpenDB(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	defer db.Close()
	ix := New(filepath.Join(root, "no-claude"), root, db)

	stats, err := ix.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Updated)

	require.NoError(t, os.Remove(drop))
	stats, err = ix.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Cached)
	assert.Equal(t, 1, stats.Pruned)

	paths, err := db.AllPaths()
	require.NoError(t, err)
	assert.Contains(t, paths, keep)
	assert.Len(t, paths, 1)
}

func TestEnsureSession(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "s1.jsonl")
	write(t, file, claudeTurn("s1", "user", "resume me"))

	added, err := EnsureSession("s1", file, "/work/app")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = EnsureSession("s1", file, "/work/app")
	require.NoError(t, err)
	assert.False(t, added)

	idx, err := readSessionsIndex(dir)
	require.NoError(t, err)
	require.Len(t, idx.Entries, 1)
	assert.Equal(t, "/work/app", idx.OriginalPath)
	assert.Equal(t, "resume me", idx.Entries[0].FirstPrompt)
	require.NotNil(t, idx.Entries[0].MessageCount)
	assert.Equal(t, 1, *idx.Entries[0].MessageCount)
}

func TestEnsureSessionKeepsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "s2.jsonl")
	write(t, file, claudeTurn("s2", "user", "x"))
	write(t, filepath.Join(dir, "sessions-index.json"),
		`{"version":1,"custom":{"keep":true},"entries":[{"sessionId":"s1","extra":42}]}`)

	added, err := EnsureSession("s2", file, "/work/app")
	require.NoError(t, err)
	assert.True(t, added)

	data, err := os.ReadFile(filepath.Join(dir, "sessions-index.json"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, map[string]any{"keep": true}, doc["custom"])
	entries := doc["entries"].([]any)
	require.Len(t, entries, 2)
	assert.EqualValues(t, 42, entries[0].(map[string]any)["extra"])
}

func TestEnsureSessionRefusesMalformedIndex(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "s1.jsonl")
	write(t, file, claudeTurn("s1", "user", "x"))
	write(t, filepath.Join(dir, "sessions-index.json"), `not json`)

	_, err := EnsureSession("s1", file, "/work/app")
	assert.ErrorIs(t, err, model.ErrMalformed)

	data, err := os.ReadFile(filepath.Join(dir, "sessions-index.json"))
	require.NoError(t, err)
	assert.Equal(t, "not json\n", string(data))
}
