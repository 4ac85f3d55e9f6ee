package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/gyrocall/internal/classify"
	"github.com/verte-zerg/gyrocall/internal/engine"
	"github.com/verte-zerg/gyrocall/internal/model"
	"github.com/verte-zerg/gyrocall/internal/phrases"
	"github.com/verte-zerg/gyrocall/internal/result"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	correctStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	targetStyle  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#C89A3A")).
			Bold(true).
			Padding(1, 4).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	cardStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
)

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch m.phase {
	case phaseCalibrate:
		content = m.renderCalibrate()
	case phasePlaying:
		content = m.renderPlaying()
	case phaseResult:
		content = m.renderResult()
	}
	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return content + "\n" + footer
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderCalibrate() string {
	lines := []string{titleStyle.Render("Calibration"), ""}
	if m.opts.Hint != "" {
		lines = append(lines, mutedStyle.Render(m.opts.Hint))
	}
	if m.opts.Phone != nil {
		if m.connected {
			lines = append(lines, correctStyle.Render("phone connected"))
		} else {
			lines = append(lines, mutedStyle.Render("waiting for the phone to connect"))
		}
	}
	if m.opts.Hint != "" || m.opts.Phone != nil {
		lines = append(lines, "")
	}
	switch m.permission {
	case model.PermissionDenied:
		lines = append(lines, errorStyle.Render("Sensor access was denied."), mutedStyle.Render("Press r to ask again."))
	case model.PermissionPending:
		lines = append(lines, mutedStyle.Render("Waiting for sensor permission..."))
	default:
		lines = append(lines, "Hold the device in a comfortable upright pose.")
	}
	lines = append(lines, "", renderLive(m.live, m.haveLive))
	if m.notice != "" {
		lines = append(lines, "", errorStyle.Render(m.notice))
	}
	return strings.Join(lines, "\n")
}

func renderLive(s model.OrientationSample, ok bool) string {
	if !ok {
		return mutedStyle.Render("no sample yet")
	}
	return fmt.Sprintf("alpha %6.1f°  beta %6.1f°  gamma %6.1f°", s.Alpha, s.Beta, s.Gamma)
}

func (m *Model) renderPlaying() string {
	snap := m.snap
	if !snap.HasTarget {
		return titleStyle.Render("Get ready")
	}
	label := m.directionLabel(snap.Target)
	lines := []string{
		mutedStyle.Render(fmt.Sprintf("Round %d/%d", snap.Round+1, snap.TotalRounds)),
		"",
		targetStyle.Render(label),
		"",
		m.bar.ViewAs(remainingFraction(snap)),
	}
	if pose := m.renderPose(); pose != "" {
		lines = append(lines, mutedStyle.Render(pose))
	}
	if flag := m.renderFeedback(snap.Feedback); flag != "" {
		lines = append(lines, "", flag)
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

// renderPose describes the live pose relative to the baseline and the
// direction windows it currently falls in.
func (m *Model) renderPose() string {
	baseline, ok := m.step.Baseline()
	if !ok || !m.haveLive {
		return ""
	}
	heading, tilt := classify.Deltas(baseline, m.live)
	matches := m.opts.Classifier.Classify(baseline, m.live)
	labels := make([]string, 0, len(matches))
	for _, d := range matches {
		labels = append(labels, m.directionLabel(d))
	}
	reads := "-"
	if len(labels) > 0 {
		reads = strings.Join(labels, ", ")
	}
	return fmt.Sprintf("heading %+.0f°  tilt %+.0f°  reads %s", heading, tilt, reads)
}

func (m *Model) directionLabel(d model.Direction) string {
	if m.opts.Pack == nil {
		return d.String()
	}
	return m.opts.Pack.Label(d)
}

func (m *Model) renderFeedback(f engine.Feedback) string {
	correct, wrong := "Correct!", "Timeout!"
	if m.opts.Pack != nil {
		correct, wrong = m.opts.Pack.Correct(), m.opts.Pack.Timeout()
	}
	switch f {
	case engine.FeedbackCorrect:
		return correctStyle.Render(correct)
	case engine.FeedbackWrong:
		return errorStyle.Render(wrong)
	default:
		return ""
	}
}

func remainingFraction(snap engine.Snapshot) float64 {
	if snap.RoundDuration <= 0 {
		return 0
	}
	f := float64(snap.Remaining) / float64(snap.RoundDuration)
	return max(0, min(f, 1))
}

func (m *Model) renderResult() string {
	res := m.result
	cards := []string{
		metricCard("Score", fmt.Sprintf("%d/%d", res.CorrectCount, res.TotalCount)),
		metricCard("Accuracy", fmt.Sprintf("%d%%", result.Percentage(res))),
		metricCard("Best streak", fmt.Sprintf("%d", result.BestStreak(res))),
	}
	if mean, ok := result.MeanReaction(res); ok {
		cards = append(cards, metricCard("Mean reaction", fmt.Sprintf("%.2fs", mean.Seconds())))
	}
	var header string
	if m.width > 0 && m.width < 60 {
		header = strings.Join(cards, "\n")
	} else {
		header = lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	}
	parts := []string{
		header,
		titleStyle.Render(result.Comment(res, m.opts.Pack)),
		mutedStyle.Render("reaction " + result.Sparkline(result.ReactionSeconds(res))),
		mutedStyle.Render(m.renderBreakdown(res)),
		"",
		m.history.View(),
	}
	return lipgloss.JoinVertical(lipgloss.Center, parts...)
}

func (m *Model) renderBreakdown(res model.SessionResult) string {
	stats := result.ByDirection(res)
	parts := make([]string, 0, len(stats))
	for _, st := range stats {
		parts = append(parts, fmt.Sprintf("%s %d/%d", m.directionLabel(st.Direction), st.Correct, st.Total))
	}
	return strings.Join(parts, " · ")
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func (m *Model) renderFooter() string {
	var segments []string
	switch m.phase {
	case phaseCalibrate:
		segments = []string{"q quit"}
		if m.step.CanConfirm() {
			segments = append([]string{"enter confirm"}, segments...)
		}
		if m.permission == model.PermissionDenied {
			segments = append([]string{"r retry"}, segments...)
		}
	case phasePlaying:
		snap := m.snap
		segments = []string{
			fmt.Sprintf("Round %d/%d", min(snap.Round+1, snap.TotalRounds), snap.TotalRounds),
			fmt.Sprintf("Score %d", snap.CorrectCount),
			fmt.Sprintf("%.1fs left", snap.Remaining.Seconds()),
			"esc stop",
		}
	case phaseResult:
		segments = []string{"enter play again", "c recalibrate", "q quit"}
	}
	return footerStyle.Render(strings.Join(segments, " · "))
}

func buildHistoryTable(res model.SessionResult, pack *phrases.Pack, width, height int) table.Model {
	columns := []table.Column{
		{Title: "#", Width: 3},
		{Title: "Direction", Width: 10},
		{Title: "", Width: 2},
		{Title: "Time", Width: 7},
	}
	rows := make([]table.Row, 0, len(res.History))
	for _, cells := range result.Rows(res, pack) {
		rows = append(rows, table.Row(cells))
	}
	visible := len(rows)
	if height > 0 {
		visible = min(visible, max(3, height-12))
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(max(1, visible)),
		table.WithFocused(true),
	)
	if width > 0 {
		t.SetWidth(min(width, 30))
	}
	t.SetStyles(historyTableStyles())
	return t
}

func historyTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}
