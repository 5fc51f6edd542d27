package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/gantrylabs/gantry/pkg/models"
)

// priorityColor maps a priority to a display color.
func priorityColor(p models.Priority) *color.Color {
	switch p {
	case models.PriorityCritical:
		return color.New(color.FgHiRed, color.Bold)
	case models.PriorityUrgent:
		return color.New(color.FgRed)
	case models.PriorityHigh:
		return color.New(color.FgYellow)
	case models.PriorityMedium:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgHiBlack)
	}
}

// statusColor maps a status to a display color.
func statusColor(s models.TaskStatus) *color.Color {
	switch s {
	case models.TaskStatusCompleted:
		return color.New(color.FgGreen)
	case models.TaskStatusInProgress:
		return color.New(color.FgCyan)
	case models.TaskStatusBlocked:
		return color.New(color.FgRed)
	case models.TaskStatusCancelled:
		return color.New(color.FgHiBlack)
	default:
		return color.New(color.FgWhite)
	}
}

// printTaskRow prints one task as a listing line.
func printTaskRow(t *models.Task) {
	due := ""
	if t.DueDate != nil {
		due = " due " + t.DueDate.Format("2006-01-02")
		if t.DueDate.Before(time.Now()) && !t.Status.Terminal() {
			due = color.RedString("%s", due)
		}
	}
	fmt.Printf("%s  %s %s  %s%s\n",
		color.HiBlackString(shortID(t.ID)),
		priorityColor(t.Priority).Sprintf("%-8s", t.Priority),
		statusColor(t.Status).Sprintf("%-11s", t.Status),
		t.Title,
		due)
}

// printTaskDetail prints the full record of one task.
func printTaskDetail(t *models.Task) {
	fmt.Printf("ID:          %s\n", t.ID)
	fmt.Printf("Title:       %s\n", t.Title)
	if t.Description != "" {
		fmt.Printf("Description: %s\n", t.Description)
	}
	fmt.Printf("Type:        %s\n", t.Type)
	fmt.Printf("Status:      %s\n", statusColor(t.Status).Sprint(t.Status))
	fmt.Printf("Priority:    %s\n", priorityColor(t.Priority).Sprint(t.Priority))
	fmt.Printf("Complexity:  %s\n", t.Complexity)
	fmt.Printf("Progress:    %d%%\n", t.Progress)
	fmt.Printf("Level:       %d\n", t.Level)
	if t.ParentID != "" {
		fmt.Printf("Parent:      %s\n", t.ParentID)
	}
	if len(t.Dependencies) > 0 {
		fmt.Printf("Depends on:  %s\n", strings.Join(t.Dependencies, ", "))
	}
	if len(t.Tags) > 0 {
		fmt.Printf("Tags:        %s\n", strings.Join(t.Tags, ", "))
	}
	if t.Assignee != "" {
		fmt.Printf("Assignee:    %s\n", t.Assignee)
	}
	if t.EstimatedHours != nil {
		fmt.Printf("Estimated:   %s\n", formatHours(*t.EstimatedHours))
	}
	if t.ActualHours != nil {
		fmt.Printf("Actual:      %s\n", formatHours(*t.ActualHours))
	}
	if t.DueDate != nil {
		fmt.Printf("Due:         %s\n", t.DueDate.Format("2006-01-02"))
	}
	if t.Metadata.BusinessValue != "" {
		fmt.Printf("Value:       %s\n", t.Metadata.BusinessValue)
	}
	if t.Metadata.TechnicalRisk != "" {
		fmt.Printf("Risk:        %s\n", t.Metadata.TechnicalRisk)
	}
	if t.Metadata.UserImpact != "" {
		fmt.Printf("Impact:      %s\n", t.Metadata.UserImpact)
	}
	if t.Metadata.Domain != "" {
		fmt.Printf("Domain:      %s\n", t.Metadata.Domain)
	}
	if t.Metadata.Generated != nil {
		fmt.Printf("Generated:   from %s (%s)\n", t.Metadata.Generated.SourceTaskID, t.Metadata.Generated.Strategy)
	}
	fmt.Printf("Created:     %s\n", t.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Updated:     %s\n", t.UpdatedAt.Format(time.RFC3339))
	if t.CompletedAt != nil {
		fmt.Printf("Completed:   %s\n", t.CompletedAt.Format(time.RFC3339))
	}
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parsePriority converts a flag value into a priority.
func parsePriority(s string) (models.Priority, error) {
	p := models.Priority(strings.ToLower(s))
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q (low, medium, high, urgent, critical)", s)
	}
	return p, nil
}

// parseStatus converts a flag value into a status.
func parseStatus(s string) (models.TaskStatus, error) {
	st := models.TaskStatus(strings.ToLower(s))
	if !st.Valid() {
		return "", fmt.Errorf("invalid status %q (pending, in_progress, blocked, completed, cancelled)", s)
	}
	return st, nil
}

// parseComplexity converts a flag value into a complexity bucket.
func parseComplexity(s string) (models.Complexity, error) {
	c := models.Complexity(strings.ToLower(s))
	if !c.Valid() {
		return "", fmt.Errorf("invalid complexity %q (trivial, simple, medium, complex, very_complex)", s)
	}
	return c, nil
}

// parseTaskType converts a flag value into a task type.
func parseTaskType(s string) (models.TaskType, error) {
	tt := models.TaskType(strings.ToLower(s))
	if !tt.Valid() {
		return "", fmt.Errorf("invalid type %q (epic, feature, story, task, subtask, bug, improvement, research)", s)
	}
	return tt, nil
}

// parseRating converts a flag value into a metadata rating.
func parseRating(s string) (models.Rating, error) {
	r := models.Rating(strings.ToLower(s))
	if !r.Valid() {
		return "", fmt.Errorf("invalid rating %q (low, medium, high)", s)
	}
	return r, nil
}

// parseDate accepts a plain date or a full RFC3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want 2006-01-02 or RFC3339)", s)
	}
	return t, nil
}

// formatHours renders an hour figure compactly.
func formatHours(h float64) string {
	if h == float64(int(h)) {
		return fmt.Sprintf("%dh", int(h))
	}
	return fmt.Sprintf("%.1fh", h)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}

// shortID trims an id for listing output.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate shortens a string, adding an ellipsis if needed.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
