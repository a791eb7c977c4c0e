// Package filter selects chat messages for the CLI log and tail commands.
package filter

import (
	"path/filepath"
	"strings"

	"github.com/dyluth/gather/pkg/store"
)

// Criteria are ANDed together; zero values match everything.
type Criteria struct {
	SinceMs    int64  // Unix milliseconds, inclusive
	UntilMs    int64  // Unix milliseconds, inclusive
	SenderGlob string // Glob over the sender display name, case-insensitive
	SkipSystem bool   // Drop the "Chat created" placeholder
}

// Matches reports whether m passes every criterion.
func (c *Criteria) Matches(m *store.ChatMessage) bool {
	if c.SinceMs > 0 && m.TimestampMs < c.SinceMs {
		return false
	}
	if c.UntilMs > 0 && m.TimestampMs > c.UntilMs {
		return false
	}
	if c.SkipSystem && m.ID == store.SystemMessageID {
		return false
	}
	if c.SenderGlob != "" {
		matched, err := filepath.Match(strings.ToLower(c.SenderGlob), strings.ToLower(m.SenderName))
		if err != nil || !matched {
			return false
		}
	}
	return true
}

// HasFilters reports whether any criterion is set.
func (c *Criteria) HasFilters() bool {
	return c.SinceMs > 0 || c.UntilMs > 0 || c.SenderGlob != "" || c.SkipSystem
}

// Apply returns the messages that match, preserving order.
func (c *Criteria) Apply(messages []*store.ChatMessage) []*store.ChatMessage {
	if !c.HasFilters() {
		return messages
	}
	out := make([]*store.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if c.Matches(m) {
			out = append(out, m)
		}
	}
	return out
}
