package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gantrylabs/gantry/internal/events"
	"github.com/gantrylabs/gantry/pkg/models"
)

// timelineRows is how many timeline entries the monitor shows.
const timelineRows = 6

// fixedRows approximates the rows consumed by everything except the
// event feed, used to size the viewport.
const fixedRows = 26

// barWidth is the character width of distribution bars.
const barWidth = 18

func (m *Monitor) viewTitle() string {
	title := m.titleStyle.Render("gantry monitor")
	return fmt.Sprintf("%s %s\n", title, m.spin.View())
}

func (m *Monitor) viewStats() string {
	var b strings.Builder
	b.WriteString(m.headerStyle.Render("Overview"))
	b.WriteString("\n")
	b.WriteString(m.renderRow("Tasks", fmt.Sprintf("%d", m.stats.Total)))
	b.WriteString(m.renderRow("Completed", percent(m.stats.CompletionRate)))
	b.WriteString(m.renderRow("In progress", fmt.Sprintf("%d", m.stats.ByStatus[models.TaskStatusInProgress])))
	b.WriteString(m.renderRow("Blocked", fmt.Sprintf("%d", m.stats.ByStatus[models.TaskStatusBlocked])))
	b.WriteString(m.renderRow("Overdue", fmt.Sprintf("%d", m.stats.Overdue)))
	b.WriteString(m.renderRow("Avg progress", fmt.Sprintf("%.0f%%", m.stats.AverageProgress)))
	b.WriteString(m.renderRow("Generated", percent(m.stats.GeneratedShare)))
	return b.String()
}

func (m *Monitor) viewDistribution() string {
	max := 0
	for _, n := range m.stats.ByPriority {
		if n > max {
			max = n
		}
	}

	var b strings.Builder
	b.WriteString(m.headerStyle.Render("Priorities"))
	b.WriteString("\n")

	// Highest first.
	order := models.Priorities()
	for i := len(order) - 1; i >= 0; i-- {
		p := order[i]
		n := m.stats.ByPriority[p]
		bar := m.barStyle.Foreground(priorityColor(p)).Render(renderBar(n, max, barWidth))
		b.WriteString(fmt.Sprintf("%s%s %s\n",
			m.labelStyle.Render(string(p)),
			bar,
			m.valueStyle.Render(fmt.Sprintf("%d", n)),
		))
	}
	return b.String()
}

func (m *Monitor) viewTimeline() string {
	var b strings.Builder
	b.WriteString(m.headerStyle.Render("Recent activity"))
	b.WriteString("\n")
	if len(m.timeline) == 0 {
		b.WriteString(m.mutedStyle.Render("nothing yet"))
		b.WriteString("\n")
		return b.String()
	}
	for _, e := range m.timeline {
		b.WriteString(fmt.Sprintf("%s %s %s\n",
			m.mutedStyle.Render(e.Timestamp.Format("15:04:05")),
			m.valueStyle.Render(fmt.Sprintf("%-10s", e.Action)),
			truncate(e.Title, 48),
		))
	}
	return b.String()
}

func (m *Monitor) viewFeed() string {
	header := m.headerStyle.Render("Events")
	return header + "\n" + m.feedStyle.Render(m.events.View())
}

func (m *Monitor) viewFooter() string {
	follow := "follow"
	if m.follow {
		follow = "following"
	}
	return m.mutedStyle.Render(fmt.Sprintf("q quit  f %s  up/down scroll", follow))
}

// renderRow formats one aligned label/value line.
func (m *Monitor) renderRow(label, value string) string {
	return fmt.Sprintf("%s%s\n", m.labelStyle.Render(label), m.valueStyle.Render(value))
}

// feedContent renders the retained events as viewport text.
func (m *Monitor) feedContent() string {
	if len(m.feed) == 0 {
		return m.mutedStyle.Render("waiting for events")
	}
	lines := make([]string, 0, len(m.feed))
	for _, e := range m.feed {
		parts := []string{
			m.mutedStyle.Render(e.at.Format("15:04:05")),
			fmt.Sprintf("%-28s", e.kind),
		}
		if e.taskID != "" {
			parts = append(parts, m.mutedStyle.Render(shortID(e.taskID)))
		}
		if e.detail != "" {
			parts = append(parts, e.detail)
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	return strings.Join(lines, "\n")
}

// describeEvent summarizes an event for the feed, one line each.
func describeEvent(e events.Event) string {
	switch e.Type {
	case events.EventTaskCreated:
		if e.After != nil {
			return truncate(e.After.Title, 40)
		}
	case events.EventTaskUpdated:
		if e.Before != nil && e.After != nil {
			if e.Before.Status != e.After.Status {
				return fmt.Sprintf("%s -> %s", e.Before.Status, e.After.Status)
			}
			if e.Before.Priority != e.After.Priority {
				return fmt.Sprintf("%s -> %s", e.Before.Priority, e.After.Priority)
			}
			return truncate(e.After.Title, 40)
		}
	case events.EventTaskDeleted:
		if e.Before != nil {
			return truncate(e.Before.Title, 40)
		}
	case events.EventTaskDecomposed:
		return fmt.Sprintf("%v subtasks via %v", e.Payload["subtasks"], e.Payload["strategy"])
	case events.EventPriorityAdjusted:
		if e.Before != nil && e.After != nil {
			return fmt.Sprintf("%s -> %s (%v)", e.Before.Priority, e.After.Priority, e.Payload["reason"])
		}
	case events.EventAutomaticAdjustmentsCompleted:
		return fmt.Sprintf("%v adjustments applied", e.Payload["adjustments"])
	case events.EventLearningCycleCompleted:
		return fmt.Sprintf("model v%v trained on %v samples", e.Payload["model_version"], e.Payload["trained_on"])
	case events.EventTaskCompletionRecorded:
		return fmt.Sprintf("%vh actual", e.Payload["actual_hours"])
	}
	return ""
}

// renderBar draws a proportional bar of filled and empty cells.
func renderBar(n, max, width int) string {
	if max <= 0 || width <= 0 {
		return strings.Repeat("░", width)
	}
	filled := n * width / max
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// priorityColor maps a priority to its display color.
func priorityColor(p models.Priority) lipgloss.Color {
	switch p {
	case models.PriorityCritical:
		return lipgloss.Color("196")
	case models.PriorityUrgent:
		return lipgloss.Color("208")
	case models.PriorityHigh:
		return lipgloss.Color("214")
	case models.PriorityMedium:
		return lipgloss.Color("34")
	default:
		return lipgloss.Color("245")
	}
}

// percent formats a 0..1 fraction as a whole percentage.
func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

// shortID trims an id for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
