package search

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/Zuo-Peng/ai-session-viewer/internal/logging"
	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
	"github.com/Zuo-Peng/ai-session-viewer/internal/scan"
)

const (
	DefaultMaxResults = 50
	perFileLimit      = 5
	contextRunes      = 50
)

type Result struct {
	Source       model.Source `json:"source" yaml:"source"`
	ProjectID    string       `json:"project_id" yaml:"project_id"`
	ProjectName  string       `json:"project_name" yaml:"project_name"`
	SessionID    string       `json:"session_id" yaml:"session_id"`
	FirstPrompt  string       `json:"first_prompt,omitempty" yaml:"first_prompt,omitempty"`
	MatchedText  string       `json:"matched_text" yaml:"matched_text"`
	Role         string       `json:"role" yaml:"role"`
	Timestamp    string       `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	FilePath     string       `json:"file_path" yaml:"file_path"`
	MessageIndex int          `json:"message_index" yaml:"message_index"`
}

type Options struct {
	Source     model.Source
	Query      string
	MaxResults int    // <= 0 means DefaultMaxResults
	Role       string // "" = all, "user", "assistant", "tool"
}

// Candidate is one session file to search together with the project it
// belongs to. For codex the project is read from the file itself.
type Candidate struct {
	Path        string
	ProjectID   string
	ProjectName string
}

// Candidates lists every session file of src under root.
func Candidates(src model.Source, root string) ([]Candidate, error) {
	files, err := scan.Files(src, root)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(files))
	for _, fi := range files {
		c := Candidate{Path: fi.Path}
		if src == model.SourceClaude {
			c.ProjectID = filepath.Base(filepath.Dir(fi.Path))
			c.ProjectName = scan.ShortName(scan.DecodeProjectDir(c.ProjectID))
		}
		out = append(out, c)
	}
	return out, nil
}

// Run searches every candidate for a case-insensitive substring on a pool
// of NumCPU workers. Each file contributes at most five matches in message
// order; the order across files is not meaningful.
func Run(ctx context.Context, opts Options, candidates []Candidate) ([]Result, error) {
	if _, err := model.ParseSource(string(opts.Source)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.Query) == "" {
		return []Result{}, nil
	}
	limit := opts.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	log := logging.ForComponent(logging.CompSearch)
	needle := strings.ToLower(opts.Query)

	perFile := make([][]Result, len(candidates))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := searchFile(opts, needle, c)
			if err != nil {
				log.Debug("search_file_skipped", slog.String("path", c.Path), slog.String("error", err.Error()))
				return nil
			}
			perFile[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := []Result{}
	for _, res := range perFile {
		for _, r := range res {
			if len(results) == limit {
				return results, nil
			}
			results = append(results, r)
		}
	}
	return results, nil
}

func searchFile(opts Options, needle string, c Candidate) ([]Result, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, err
	}
	if !bytes.Contains(bytes.ToLower(data), []byte(needle)) {
		return nil, nil
	}

	var msgs []model.Message
	if err := parse.Decode(opts.Source, bytes.NewReader(data), func(m model.Message) {
		msgs = append(msgs, m)
	}); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.Path, err)
	}

	sessionID := strings.TrimSuffix(filepath.Base(c.Path), filepath.Ext(c.Path))
	projectID, projectName := c.ProjectID, c.ProjectName
	if opts.Source == model.SourceCodex {
		if id, cwd := codexSessionMeta(data); cwd != "" || id != "" {
			if id != "" {
				sessionID = id
			}
			projectID, projectName = cwd, scan.ShortName(cwd)
		}
	}

	var (
		results     []Result
		firstPrompt string
		promptDone  bool
	)
	for idx, m := range msgs {
		if opts.Role != "" && m.Role != opts.Role {
			continue
		}
		for _, b := range m.Content {
			body := b.Body()
			if !strings.Contains(strings.ToLower(body), needle) {
				continue
			}
			if !promptDone {
				firstPrompt = parse.FirstPrompt(msgs)
				promptDone = true
			}
			results = append(results, Result{
				Source:       opts.Source,
				ProjectID:    projectID,
				ProjectName:  projectName,
				SessionID:    sessionID,
				FirstPrompt:  firstPrompt,
				MatchedText:  extractContext(body, opts.Query),
				Role:         m.Role,
				Timestamp:    m.Timestamp,
				FilePath:     c.Path,
				MessageIndex: idx,
			})
			break
		}
		if len(results) >= perFileLimit {
			break
		}
	}
	return results, nil
}

// codexSessionMeta reads id and cwd from the session_meta line near the top
// of a rollout.
func codexSessionMeta(data []byte) (id, cwd string) {
	for i := 0; i < 5 && len(data) > 0; i++ {
		line := data
		if n := bytes.IndexByte(data, '\n'); n >= 0 {
			line, data = data[:n], data[n+1:]
		} else {
			data = nil
		}
		r := gjson.GetManyBytes(line, "type", "payload.id", "payload.cwd")
		if r[0].Str == "session_meta" {
			return r[1].Str, r[2].Str
		}
	}
	return "", ""
}

// extractContext returns the first occurrence of query in text with up to
// contextRunes runes on either side. Offsets are counted in runes so
// multi-byte text is never split.
func extractContext(text, query string) string {
	runes := []rune(text)
	lower := []rune(strings.ToLower(text))
	q := []rune(strings.ToLower(query))
	pos := -1
	if len(lower) == len(runes) {
		pos = indexRunes(lower, q)
	}
	if pos < 0 {
		return parse.Truncate(text, contextRunes*2)
	}
	start := max(pos-contextRunes, 0)
	end := min(pos+len(q)+contextRunes, len(runes))
	prefix, suffix := "", ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(runes) {
		suffix = "..."
	}
	return prefix + string(runes[start:end]) + suffix
}

func indexRunes(s, sub []rune) int {
	if len(sub) == 0 {
		return 0
	}
	for i := 0; i+len(sub) <= len(s); i++ {
		match := true
		for j := range sub {
			if s[i+j] != sub[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
