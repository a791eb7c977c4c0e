// Package resolver expands the short event ids printed by the CLI tables.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/gather/pkg/store"
)

// MinShortIDLength is the minimum accepted prefix length.
const MinShortIDLength = 6

// maxListed caps the matches printed for an ambiguous prefix.
const maxListed = 10

// EventLookup is the slice of the store the resolver reads.
type EventLookup interface {
	EventExists(ctx context.Context, eventID string) (bool, error)
	ScanEventIDs(ctx context.Context, prefix string) ([]string, error)
}

// ResolveEventID expands a short id prefix to a full event id.
// A full UUID is returned as-is once its existence is confirmed.
func ResolveEventID(ctx context.Context, s EventLookup, shortID string) (string, error) {
	if len(shortID) == 36 && strings.Count(shortID, "-") == 4 {
		ok, err := s.EventExists(ctx, shortID)
		if err != nil {
			return "", fmt.Errorf("failed to verify event existence: %w", err)
		}
		if !ok {
			return "", &NotFoundError{ShortID: shortID}
		}
		return shortID, nil
	}

	if len(shortID) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(shortID))
	}

	matches, err := s.ScanEventIDs(ctx, shortID)
	if err != nil {
		return "", fmt.Errorf("failed to search for event: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: shortID, Matches: matches}
	}
}

// NotFoundError indicates no event matched the short ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no events found matching '%s'", e.ShortID)
}

// Unwrap lets callers test for store.ErrNotFound.
func (e *NotFoundError) Unwrap() error {
	return store.ErrNotFound
}

// AmbiguousError indicates several events share the short ID.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d events", e.ShortID, len(e.Matches))
}

// Suggestions lists the matching ids (up to ten) for display.
func (e *AmbiguousError) Suggestions() []string {
	n := len(e.Matches)
	if n > maxListed {
		n = maxListed
	}
	out := append([]string(nil), e.Matches[:n]...)
	if len(e.Matches) > maxListed {
		out = append(out, fmt.Sprintf("...and %d more", len(e.Matches)-maxListed))
	}
	return out
}
