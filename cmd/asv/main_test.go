package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
)

type fixture struct {
	cfgPath    string
	claudeRoot string
	codexRoot  string
	claudeFile string
	codexFile  string
}

func write(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		cfgPath:    filepath.Join(dir, "config.toml"),
		claudeRoot: filepath.Join(dir, "claude"),
		codexRoot:  filepath.Join(dir, "codex"),
	}
	f.claudeFile = filepath.Join(f.claudeRoot, "-work-app", "s1.jsonl")
	write(t, f.claudeFile,
		`{"type":"user","sessionId":"s1","cwd":"/work/app","timestamp":"2026-01-02T10:00:00Z","message":{"role":"user","content":"Find the Needle please"}}`,
		`{"type":"assistant","sessionId":"s1","timestamp":"2026-01-02T10:00:05Z","message":{"role":"assistant","model":"claude-x","content":[{"type":"text","text":"found the needle"}]}}`,
	)
	f.codexFile = filepath.Join(f.codexRoot, "2026", "01", "03", "rollout-2026-01-03T09-00-00-0199a1b2-c3d4-7e5f-8a9b-0c1d2e3f4a5b.jsonl")
	write(t, f.codexFile,
		`{"timestamp":"2026-01-03T09:00:00Z","type":"session_meta","payload":{"id":"0199a1b2-c3d4-7e5f-8a9b-0c1d2e3f4a5b","cwd":"/work/api","model_provider":"openai"}}`,
		`{"timestamp":"2026-01-03T09:00:01Z","type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"deploy it"}]}}`,
	)
	write(t, f.cfgPath,
		`claude_root = "`+f.claudeRoot+`"`,
		`claude_stats = "`+filepath.Join(dir, "stats-cache.json")+`"`,
		`codex_root = "`+f.codexRoot+`"`,
		`cache_db = "`+filepath.Join(dir, "meta.db")+`"`,
	)
	return f
}

func run(t *testing.T, f fixture, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(append([]string{"--config", f.cfgPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestProjectsTable(t *testing.T) {
	f := newFixture(t)
	out, _, err := run(t, f, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "-work-app")
	assert.Contains(t, out, "NAME")
}

func TestSessionsJSON(t *testing.T) {
	f := newFixture(t)
	out, _, err := run(t, f, "--format", "json", "sessions", "--source", "codex")
	require.NoError(t, err)
	var sessions []model.Session
	require.NoError(t, json.Unmarshal([]byte(out), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "/work/api", sessions[0].Cwd)
	assert.Equal(t, "deploy it", sessions[0].FirstPrompt)
}

func TestMessagesPlain(t *testing.T) {
	f := newFixture(t)
	out, _, err := run(t, f, "messages", f.claudeFile, "--page-size", "1", "--from-end")
	require.NoError(t, err)
	assert.Contains(t, out, "found the needle")
	assert.NotContains(t, out, "Find the Needle")
	assert.Contains(t, out, "1 messages before")
	assert.NotContains(t, out, "\033[")
}

func TestSearchTSV(t *testing.T) {
	f := newFixture(t)
	out, _, err := run(t, f, "search", "needle")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	fields := strings.Split(lines[0], "\t")
	require.Len(t, fields, 8)
	assert.Equal(t, f.claudeFile, fields[0])
	assert.Equal(t, "0", fields[1])
	assert.Equal(t, "claude", fields[3])
	assert.Equal(t, "user", fields[5])
}

func TestSearchNoResults(t *testing.T) {
	f := newFixture(t)
	out, errOut, err := run(t, f, "search", "--source", "codex", "needle")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "No results found.")
}

func TestStatsMissingCacheIsEmpty(t *testing.T) {
	f := newFixture(t)
	out, _, err := run(t, f, "--format", "json", "stats")
	require.NoError(t, err)
	var s model.UsageSummary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Zero(t, s.TotalTokens)
}

func TestResumeCodex(t *testing.T) {
	f := newFixture(t)
	out, _, err := run(t, f, "resume", "--source", "codex", "--copy=false", f.codexFile)
	require.NoError(t, err)
	assert.Equal(t, "cd /work/api && codex resume 0199a1b2-c3d4-7e5f-8a9b-0c1d2e3f4a5b\n", out)
}

func TestResumeClaudeAddsIndexEntry(t *testing.T) {
	f := newFixture(t)
	out, errOut, err := run(t, f, "resume", "--copy=false", f.claudeFile)
	require.NoError(t, err)
	assert.Equal(t, "cd /work/app && claude --resume s1\n", out)
	assert.Contains(t, errOut, "sessions-index.json")
	assert.FileExists(t, filepath.Join(f.claudeRoot, "-work-app", "sessions-index.json"))
}

func TestDoctorPrune(t *testing.T) {
	f := newFixture(t)
	out, _, err := run(t, f, "--format", "json", "doctor", "--prune")
	require.NoError(t, err)
	var rep doctorReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Roots, 2)
	assert.Equal(t, 1, rep.Roots[0].Files)
	assert.Equal(t, 1, rep.Roots[1].Files)
	assert.Equal(t, "OK", rep.CacheStatus)
	assert.Equal(t, "NOT FOUND", rep.StatsStatus)
	assert.Equal(t, 1, rep.CachedFiles[model.SourceClaude])
	assert.Equal(t, 1, rep.CachedFiles[model.SourceCodex])
}

func TestBadArgs(t *testing.T) {
	f := newFixture(t)
	_, _, err := run(t, f, "projects", "--source", "gemini")
	assert.ErrorIs(t, err, model.ErrUnknownSource)

	_, _, err = run(t, f, "--format", "xml", "projects")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, _, err = run(t, f, "open", filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestColorizeMatch(t *testing.T) {
	got := colorizeMatch("a Needle and a needle", "needle")
	assert.Equal(t, "a "+sColorBoldRed+"Needle"+sColorReset+" and a "+sColorBoldRed+"needle"+sColorReset, got)
	assert.Equal(t, "abc", colorizeMatch("abc", ""))
}
