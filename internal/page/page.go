// Package page slices a materialized session into fixed-size windows.
package page

import (
	"fmt"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
)

// Window is a half-open range [Start, End) over a sequence.
type Window struct {
	Start   int
	End     int
	HasMore bool
}

func (w Window) Len() int { return w.End - w.Start }

// Compute returns the window for page p of size s over a sequence of length
// total. In reverse mode page 0 holds the newest s items and later pages walk
// back toward the start. Pages past either end yield an empty window.
func Compute(total, p, s int, reverse bool) Window {
	if total <= 0 || p < 0 || s <= 0 {
		return Window{}
	}
	if !reverse {
		start := p * s
		if start >= total || start/s != p {
			return Window{}
		}
		end := min(start+s, total)
		return Window{Start: start, End: end, HasMore: end < total}
	}
	back := p * s
	if back >= total || back/s != p {
		return Window{}
	}
	end := total - back
	start := max(end-s, 0)
	return Window{Start: start, End: end, HasMore: start > 0}
}

// Slice cuts one page out of msgs. Message order is always the file order,
// also in reverse mode.
func Slice(msgs []model.Message, p, s int, reverse bool) (model.Page, error) {
	if s <= 0 {
		return model.Page{}, fmt.Errorf("page size %d: %w", s, model.ErrInvalidArgument)
	}
	if p < 0 {
		return model.Page{}, fmt.Errorf("page %d: %w", p, model.ErrInvalidArgument)
	}
	w := Compute(len(msgs), p, s, reverse)
	out := make([]model.Message, w.Len())
	copy(out, msgs[w.Start:w.End])
	return model.Page{
		Messages: out,
		Offset:   w.Start,
		Total:    len(msgs),
		Page:     p,
		PageSize: s,
		HasMore:  w.HasMore,
	}, nil
}
