// Package stats aggregates token usage and activity per source.
package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/bits"
	"os"
	"sort"

	"github.com/samber/lo"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
)

// stats-cache.json as maintained by the claude CLI.
type statsCache struct {
	Version          *int                  `json:"version"`
	LastComputedDate string                `json:"lastComputedDate"`
	DailyActivity    []dailyActivity       `json:"dailyActivity"`
	DailyModelTokens []dailyModelTokens    `json:"dailyModelTokens"`
	ModelUsage       map[string]modelUsage `json:"modelUsage"`
}

type dailyActivity struct {
	Date          string `json:"date"`
	MessageCount  uint64 `json:"messageCount"`
	SessionCount  uint64 `json:"sessionCount"`
	ToolCallCount uint64 `json:"toolCallCount"`
}

type dailyModelTokens struct {
	Date          string            `json:"date"`
	TokensByModel map[string]uint64 `json:"tokensByModel"`
}

type modelUsage struct {
	InputTokens              uint64 `json:"inputTokens"`
	OutputTokens             uint64 `json:"outputTokens"`
	CacheReadInputTokens     uint64 `json:"cacheReadInputTokens"`
	CacheCreationInputTokens uint64 `json:"cacheCreationInputTokens"`
}

func emptySummary() model.UsageSummary {
	return model.UsageSummary{
		TokensByModel: map[string]uint64{},
		DailyTokens:   []model.DailyTokens{},
	}
}

// Claude summarizes the CLI's own stats cache. A missing cache means no
// usage yet; an unreadable one is an error.
//
// The cache only records an all-time input/output split and per-day totals,
// so each day's split is estimated from the all-time ratio.
func Claude(path string) (model.UsageSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return emptySummary(), nil
		}
		return model.UsageSummary{}, fmt.Errorf("read stats cache: %w: %v", model.ErrMalformed, err)
	}
	var cache statsCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return model.UsageSummary{}, fmt.Errorf("parse stats cache %s: %w: %v", path, model.ErrMalformed, err)
	}

	sum := emptySummary()
	for _, u := range cache.ModelUsage {
		sum.TotalInputTokens += u.InputTokens + u.CacheReadInputTokens + u.CacheCreationInputTokens
		sum.TotalOutputTokens += u.OutputTokens
	}
	sum.MessageCount = lo.SumBy(cache.DailyActivity, func(d dailyActivity) uint64 { return d.MessageCount })
	sum.SessionCount = lo.SumBy(cache.DailyActivity, func(d dailyActivity) uint64 { return d.SessionCount })

	for _, day := range cache.DailyModelTokens {
		var dayTotal uint64
		for m, n := range day.TokensByModel {
			dayTotal += n
			sum.TokensByModel[m] += n
		}
		sum.TotalTokens += dayTotal
		in := splitInput(dayTotal, sum.TotalInputTokens, sum.TotalOutputTokens)
		sum.DailyTokens = append(sum.DailyTokens, model.DailyTokens{
			Date:         day.Date,
			InputTokens:  in,
			OutputTokens: dayTotal - in,
			TotalTokens:  dayTotal,
		})
	}
	sort.SliceStable(sum.DailyTokens, func(i, j int) bool {
		return sum.DailyTokens[i].Date < sum.DailyTokens[j].Date
	})
	return sum, nil
}

// splitInput returns floor(day * in / (in + out)), or half of day when no
// tokens were recorded at all.
func splitInput(day, in, out uint64) uint64 {
	total, carry := bits.Add64(in, out, 0)
	if carry != 0 {
		return uint64(float64(day) * (float64(in) / (float64(in) + float64(out))))
	}
	if total == 0 {
		return day / 2
	}
	hi, low := bits.Mul64(day, in)
	q, _ := bits.Div64(hi, low, total)
	return q
}
