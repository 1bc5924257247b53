// Package reporter renders sorted comparison results for humans and for
// machines.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/baditaflorin/go_code_similarity/internal/core/domain"
	"github.com/baditaflorin/go_code_similarity/internal/ports"
)

// TextReporter writes one line per result pair, optionally followed by an
// inline diff of the two raw fragments.
type TextReporter struct {
	showDiffs bool
	fragments map[domain.FragmentID]domain.Fragment
}

// Option configures a TextReporter.
type Option func(*TextReporter)

// WithDiffs enables diff rendering. The fragment sequence provides the
// raw text to diff, since results carry identities only.
func WithDiffs(fragments []domain.Fragment) Option {
	return func(r *TextReporter) {
		r.showDiffs = true
		r.fragments = make(map[domain.FragmentID]domain.Fragment, len(fragments))
		for _, f := range fragments {
			r.fragments[f.ID()] = f
		}
	}
}

// NewTextReporter creates a reporter for human-readable output.
func NewTextReporter(opts ...Option) ports.Reporter {
	r := &TextReporter{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report writes the result list to w.
func (r *TextReporter) Report(w io.Writer, results []domain.Result) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "no similar fragments found")
		return err
	}

	for _, res := range results {
		if _, err := fmt.Fprintf(w, "%s  %s  <->  %s",
			scoreColor(res.Score).Sprintf("%6.2f%%", res.Score),
			location(res.A, res.LinesA),
			location(res.B, res.LinesB),
		); err != nil {
			return err
		}
		if res.RawScore != res.Score {
			if _, err := fmt.Fprintf(w, "  (raw %.2f%%)", res.RawScore); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}

		if r.showDiffs {
			if err := r.writeDiff(w, res); err != nil {
				return err
			}
		}
	}

	return nil
}

func (r *TextReporter) writeDiff(w io.Writer, res domain.Result) error {
	a, okA := r.fragments[res.A]
	b, okB := r.fragments[res.B]
	if !okA || !okB {
		return nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a.Raw, b.Raw, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	_, err := fmt.Fprintf(w, "%s\n\n", dmp.DiffPrettyText(diffs))
	return err
}

func location(id domain.FragmentID, lines int) string {
	return fmt.Sprintf("%s:%d-%d (%d lines)", id.Path, id.StartLine, id.StartLine+lines-1, lines)
}

func scoreColor(score float64) *color.Color {
	switch {
	case score >= 90:
		return color.New(color.FgGreen)
	case score >= 70:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

// JSONReporter writes the result list as a JSON array.
type JSONReporter struct{}

// NewJSONReporter creates a reporter for machine-readable output.
func NewJSONReporter() ports.Reporter {
	return &JSONReporter{}
}

type jsonResult struct {
	PathA    string  `json:"path_a"`
	StartA   int     `json:"start_line_a"`
	LinesA   int     `json:"lines_a"`
	PathB    string  `json:"path_b"`
	StartB   int     `json:"start_line_b"`
	LinesB   int     `json:"lines_b"`
	Score    float64 `json:"score"`
	RawScore float64 `json:"raw_score"`
}

// Report writes the result list to w as JSON.
func (r *JSONReporter) Report(w io.Writer, results []domain.Result) error {
	out := make([]jsonResult, len(results))
	for i, res := range results {
		out[i] = jsonResult{
			PathA:    res.A.Path,
			StartA:   res.A.StartLine,
			LinesA:   res.LinesA,
			PathB:    res.B.Path,
			StartB:   res.B.StartLine,
			LinesB:   res.LinesB,
			Score:    res.Score,
			RawScore: res.RawScore,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
