package result

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

type align int

const (
	alignLeft align = iota
	alignRight
)

type column struct {
	title string
	align align
}

var (
	historyColumns = []column{
		{title: "#", align: alignRight},
		{title: "Direction"},
		{title: ""},
		{title: "Time", align: alignRight},
	}
	breakdownColumns = []column{
		{title: "Direction"},
		{title: "Hits", align: alignRight},
		{title: "Rate", align: alignRight},
	}
)

// layout renders the header and rows as plain lines. Widths are measured
// in terminal cells so CJK labels line up with Latin ones. Cells past the
// last column are dropped.
func layout(cols []column, rows [][]string) []string {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = runewidth.StringWidth(c.title)
	}
	for _, row := range rows {
		for i := range cols {
			if i < len(row) {
				widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
			}
		}
	}

	line := func(cell func(i int) string) string {
		parts := make([]string, len(cols))
		for i, c := range cols {
			if c.align == alignRight {
				parts[i] = runewidth.FillLeft(cell(i), widths[i])
			} else {
				parts[i] = runewidth.FillRight(cell(i), widths[i])
			}
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	out := make([]string, 0, len(rows)+1)
	out = append(out, line(func(i int) string { return cols[i].title }))
	for _, row := range rows {
		out = append(out, line(func(i int) string {
			if i < len(row) {
				return row[i]
			}
			return ""
		}))
	}
	return out
}
