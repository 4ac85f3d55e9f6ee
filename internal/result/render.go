package result

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/verte-zerg/gyrocall/internal/model"
	"github.com/verte-zerg/gyrocall/internal/phrases"
)

const sparkChars = " .:-=+*#%@"

const (
	colorGreen = "\x1b[32m"
	colorRed   = "\x1b[31m"
	colorReset = "\x1b[0m"
)

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// ShouldUseColor reports whether w is a terminal and NO_COLOR is unset.
func ShouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// Rows returns the per-round history as table cells: round number,
// direction label, mark and elapsed seconds.
func Rows(res model.SessionResult, pack *phrases.Pack) [][]string {
	rows := make([][]string, 0, len(res.History))
	for i, o := range res.History {
		mark := "✗"
		if o.Success {
			mark = "✓"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			directionLabel(o.Direction, pack),
			mark,
			fmt.Sprintf("%.2fs", o.Elapsed.Seconds()),
		})
	}
	return rows
}

// BreakdownRows returns one row per direction that came up: label, hits
// over attempts and hit rate.
func BreakdownRows(res model.SessionResult, pack *phrases.Pack) [][]string {
	stats := ByDirection(res)
	rows := make([][]string, 0, len(stats))
	for _, st := range stats {
		rows = append(rows, []string{
			directionLabel(st.Direction, pack),
			fmt.Sprintf("%d/%d", st.Correct, st.Total),
			fmt.Sprintf("%d%%", st.Correct*100/st.Total),
		})
	}
	return rows
}

func directionLabel(d model.Direction, pack *phrases.Pack) string {
	if pack == nil {
		return d.String()
	}
	return pack.Label(d)
}

// RenderSummary prints the score, comment, per-direction breakdown and
// round history.
func RenderSummary(w io.Writer, res model.SessionResult, pack *phrases.Pack, useColor bool) error {
	if res.TotalCount == 0 {
		_, err := fmt.Fprintln(w, "No rounds played.")
		return err
	}
	pct := Percentage(res)
	lines := []string{
		fmt.Sprintf("Score: %d/%d (%d%%)", res.CorrectCount, res.TotalCount, pct),
		Comment(res, pack),
	}
	if mean, ok := MeanReaction(res); ok {
		lines = append(lines, fmt.Sprintf("Mean reaction: %.2fs", mean.Seconds()))
	}
	lines = append(lines, fmt.Sprintf("Best streak: %d", BestStreak(res)))
	lines = append(lines, fmt.Sprintf("Reaction: %s", Sparkline(ReactionSeconds(res))))
	lines = append(lines, "")

	lines = append(lines, layout(breakdownColumns, BreakdownRows(res, pack))...)
	lines = append(lines, "")

	for i, line := range layout(historyColumns, Rows(res, pack)) {
		if useColor && i > 0 {
			if res.History[i-1].Success {
				line = colorGreen + line + colorReset
			} else {
				line = colorRed + line + colorReset
			}
		}
		lines = append(lines, line)
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
