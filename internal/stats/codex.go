package stats

import (
	"context"
	"log/slog"
	"sort"

	"github.com/samber/lo"

	"github.com/Zuo-Peng/ai-session-viewer/internal/logging"
	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
	"github.com/Zuo-Peng/ai-session-viewer/internal/scan"
)

type fileUsage struct {
	date     string
	provider string
	messages int
	tokens   parse.TokenUsage
	hasUsage bool
}

// Codex scans every rollout under root. The last token_count snapshot of a
// file is its usage; days come from the year/month/day directories.
func Codex(ctx context.Context, root string) (model.UsageSummary, error) {
	log := logging.ForComponent(logging.CompStats)
	files, err := scan.CodexFiles(root)
	if err != nil {
		return model.UsageSummary{}, err
	}

	usages := make([]fileUsage, 0, len(files))
	for _, fi := range files {
		if err := ctx.Err(); err != nil {
			return model.UsageSummary{}, err
		}
		meta, err := parse.ScanMeta(model.SourceCodex, fi.Path)
		if err != nil {
			log.Debug("stats_file_skipped", slog.String("path", fi.Path), slog.String("error", err.Error()))
			continue
		}
		u := fileUsage{
			provider: lo.Ternary(meta.ModelProvider == "", "unknown", meta.ModelProvider),
			messages: meta.MessageCount,
		}
		u.date, _ = scan.DateFromPath(fi.Path)
		if meta.Tokens != nil {
			u.tokens, u.hasUsage = *meta.Tokens, true
		}
		usages = append(usages, u)
	}
	return summarizeCodex(usages), nil
}

func summarizeCodex(usages []fileUsage) model.UsageSummary {
	sum := emptySummary()
	sum.SessionCount = uint64(len(usages))
	sum.MessageCount = lo.SumBy(usages, func(u fileUsage) uint64 { return uint64(u.messages) })

	withTokens := lo.Filter(usages, func(u fileUsage, _ int) bool { return u.hasUsage })
	for _, u := range withTokens {
		sum.TotalInputTokens += u.tokens.Input
		sum.TotalOutputTokens += u.tokens.Output
		sum.TotalTokens += u.tokens.Total
		sum.TokensByModel[u.provider] += u.tokens.Total
	}

	byDate := lo.GroupBy(lo.Filter(withTokens, func(u fileUsage, _ int) bool { return u.date != "" }),
		func(u fileUsage) string { return u.date })
	sum.DailyTokens = lo.MapToSlice(byDate, func(date string, day []fileUsage) model.DailyTokens {
		return model.DailyTokens{
			Date:         date,
			InputTokens:  lo.SumBy(day, func(u fileUsage) uint64 { return u.tokens.Input }),
			OutputTokens: lo.SumBy(day, func(u fileUsage) uint64 { return u.tokens.Output }),
			TotalTokens:  lo.SumBy(day, func(u fileUsage) uint64 { return u.tokens.Total }),
		}
	})
	sort.Slice(sum.DailyTokens, func(i, j int) bool {
		return sum.DailyTokens[i].Date < sum.DailyTokens[j].Date
	})
	return sum
}
