// Package render formats events, chat messages and rankings for the terminal.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dyluth/gather/internal/category"
	"github.com/dyluth/gather/pkg/geo"
	"github.com/dyluth/gather/pkg/store"
	"github.com/olekukonko/tablewriter"
)

// OutputFormat selects between the table and JSONL renderings.
type OutputFormat string

const (
	OutputFormatDefault OutputFormat = "default"
	OutputFormatJSONL   OutputFormat = "jsonl"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSONL:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format %q (expected default or jsonl)", s)
}

// EventsTable writes events as a table with columns ID, TITLE, CATEGORY,
// STARTS, DISTANCE. Distances are measured from `from` when set.
// Returns the number of events written.
func EventsTable(w io.Writer, events []*store.Event, from *geo.Point, now time.Time) int {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found")
		return 0
	}

	fmt.Fprintf(w, "%-10s %-28s %-12s %-12s %s\n", "ID", "TITLE", "CATEGORY", "STARTS", "DISTANCE")
	fmt.Fprintf(w, "%-10s %-28s %-12s %-12s %s\n",
		"----------", "----------------------------", "------------", "------------", "--------")

	for _, e := range events {
		fmt.Fprintf(w, "%-10s %-28s %-12s %-12s %s\n",
			formatID(e.ID),
			truncate(e.Title, 28),
			orDash(e.Category),
			formatRelative(e.StartMs, now),
			formatDistance(from, e.Location),
		)
	}

	noun := "event"
	if len(events) != 1 {
		noun = "events"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(events), noun)
	return len(events)
}

// ChatLog writes messages one per line: time, sender and body.
func ChatLog(w io.Writer, messages []*store.ChatMessage) {
	for _, m := range messages {
		fmt.Fprintln(w, ChatLine(m))
	}
}

// ChatLine renders one chat message.
func ChatLine(m *store.ChatMessage) string {
	ts := time.UnixMilli(m.TimestampMs).UTC().Format("2006-01-02 15:04:05")
	return fmt.Sprintf("[%s] %s: %s", ts, m.SenderName, firstLine(m.Body))
}

// RankingsTable writes suggestion rankings, most voted first.
func RankingsTable(w io.Writer, rankings []category.Ranking) error {
	if len(rankings) == 0 {
		fmt.Fprintln(w, "No suggestions yet")
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header("Rank", "Name", "Votes")
	for i, r := range rankings {
		if err := table.Append(strconv.Itoa(i+1), truncate(r.Name, 30), strconv.Itoa(r.Votes)); err != nil {
			return fmt.Errorf("failed to add ranking row: %w", err)
		}
	}
	return table.Render()
}

// CategoriesTable writes the catalog with the display name for lang.
func CategoriesTable(w io.Writer, categories []*store.Category, lang string) error {
	if len(categories) == 0 {
		fmt.Fprintln(w, "Catalog is empty")
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Color", "Name")
	for _, c := range categories {
		name := c.Translations[lang]
		if name == "" {
			name = c.Translations[category.FallbackLanguage]
		}
		color := c.ColorHex
		if color == "" {
			color = category.DefaultColor
		}
		if err := table.Append(c.ID, color, orDash(name)); err != nil {
			return fmt.Errorf("failed to add category row: %w", err)
		}
	}
	return table.Render()
}

// JSONL writes each item as a single JSON object on its own line.
func JSONL[T any](w io.Writer, items []T) error {
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to marshal to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// SingleJSON writes v as pretty-printed JSON followed by a newline.
func SingleJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

// formatID truncates an id to its first 8 characters.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	s = firstLine(s)
	if len([]rune(s)) > max {
		return string([]rune(s)[:max-3]) + "..."
	}
	return orDash(s)
}

// firstLine returns the first non-blank line of s.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatDistance(from, to *geo.Point) string {
	if from == nil || to == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f km", geo.Haversine(*from, *to))
}

// formatRelative renders a Unix millisecond instant relative to now,
// e.g. "in 2h", "3d ago".
func formatRelative(ms int64, now time.Time) string {
	if ms == 0 {
		return "-"
	}

	diff := time.UnixMilli(ms).Sub(now)
	suffix := func(s string) string { return "in " + s }
	if diff < 0 {
		diff = -diff
		suffix = func(s string) string { return s + " ago" }
	}

	switch {
	case diff < time.Minute:
		return suffix(fmt.Sprintf("%ds", int(diff.Seconds())))
	case diff < time.Hour:
		return suffix(fmt.Sprintf("%dm", int(diff.Minutes())))
	case diff < 24*time.Hour:
		return suffix(fmt.Sprintf("%dh", int(diff.Hours())))
	default:
		return suffix(fmt.Sprintf("%dd", int(diff.Hours()/24)))
	}
}
