package index

import (
	"context"
	"sort"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
	"github.com/Zuo-Peng/ai-session-viewer/internal/scan"
)

// CodexSessions lists the rollouts whose cwd equals projectID, newest
// first. An empty projectID lists every session.
func (ix *Indexer) CodexSessions(ctx context.Context, projectID string) ([]model.Session, error) {
	all, err := ix.codexSessions(ctx)
	if err != nil {
		return nil, err
	}
	if projectID == "" {
		return all, nil
	}
	out := []model.Session{}
	for _, s := range all {
		if s.Cwd == projectID {
			out = append(out, s)
		}
	}
	return out, nil
}

// CodexProjects groups sessions by working directory.
func (ix *Indexer) CodexProjects(ctx context.Context) ([]model.Project, error) {
	sessions, err := ix.codexSessions(ctx)
	if err != nil {
		return nil, err
	}
	byCwd := make(map[string]*model.Project)
	projects := []model.Project{}
	order := []string{}
	for _, s := range sessions {
		if s.Cwd == "" {
			continue
		}
		p, ok := byCwd[s.Cwd]
		if !ok {
			// sessions are newest first, so the first one seen sets the provider
			p = &model.Project{
				Source:        model.SourceCodex,
				ID:            s.Cwd,
				DisplayPath:   s.Cwd,
				ShortName:     scan.ShortName(s.Cwd),
				ModelProvider: s.ModelProvider,
			}
			byCwd[s.Cwd] = p
			order = append(order, s.Cwd)
		}
		p.SessionCount++
		if s.Modified.After(p.LastModified) {
			p.LastModified = s.Modified
		}
	}
	for _, cwd := range order {
		projects = append(projects, *byCwd[cwd])
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].LastModified.After(projects[j].LastModified)
	})
	return projects, nil
}

func (ix *Indexer) codexSessions(ctx context.Context) ([]model.Session, error) {
	files, err := scan.CodexFiles(ix.codexRoot)
	if err != nil {
		return nil, err
	}
	results, err := ix.scanFiles(ctx, files)
	if err != nil {
		return nil, err
	}
	sessions := []model.Session{}
	for _, r := range results {
		if !r.ok || r.meta.MessageCount == 0 {
			continue
		}
		sessions = append(sessions, codexSession(r.file, r.meta))
	}
	sortSessions(sessions)
	return sessions, nil
}

func codexSession(fi scan.FileInfo, meta parse.FileMeta) model.Session {
	id := meta.SessionID
	if id == "" {
		id = fi.Stem()
	}
	created := parse.ParseTimestamp(meta.Started)
	if created.IsZero() {
		created = fi.ModTime
	}
	return model.Session{
		Source:        model.SourceCodex,
		SessionID:     id,
		FilePath:      fi.Path,
		FirstPrompt:   meta.FirstPrompt,
		MessageCount:  meta.MessageCount,
		Created:       created,
		Modified:      fi.ModTime,
		GitBranch:     meta.GitBranch,
		ProjectPath:   meta.Cwd,
		Cwd:           meta.Cwd,
		ModelProvider: meta.ModelProvider,
		CLIVersion:    meta.CLIVersion,
	}
}
