// Package timespec parses the relative and absolute instants accepted by CLI flags.
package timespec

import (
	"fmt"
	"strings"
	"time"
)

// Ago parses a point in the past into Unix milliseconds.
// Supports two formats:
//   - Go duration format: "1h", "30m", "1h30m", subtracted from now
//   - RFC3339 timestamps: "2026-10-29T13:00:00Z"
func Ago(spec string, now time.Time) (int64, error) {
	return parse(spec, now, -1)
}

// FromNow parses a point in the future into Unix milliseconds.
// Durations are added to now; "+2h" is accepted as well as "2h".
// RFC3339 timestamps are taken as is.
func FromNow(spec string, now time.Time) (int64, error) {
	return parse(strings.TrimPrefix(spec, "+"), now, 1)
}

func parse(spec string, now time.Time, sign time.Duration) (int64, error) {
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}

	if d, err := time.ParseDuration(spec); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("invalid time specification: %s (duration must not be negative)", spec)
		}
		return now.Add(sign * d).UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid time specification: %s (use duration like '1h30m' or RFC3339 like '2026-10-29T13:00:00Z')", spec)
}

// ParseRange parses --since and --until into Unix milliseconds, both read as
// points in the past. Zero values mean "no bound" for that end of the range.
func ParseRange(since, until string, now time.Time) (int64, int64, error) {
	var sinceMS, untilMS int64
	var err error

	if since != "" {
		sinceMS, err = Ago(since, now)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --since: %w", err)
		}
	}

	if until != "" {
		untilMS, err = Ago(until, now)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if sinceMS > 0 && untilMS > 0 && sinceMS >= untilMS {
		return 0, 0, fmt.Errorf("--since must be before --until")
	}

	return sinceMS, untilMS, nil
}

// Window parses an event's --start and --duration into start and end
// instants in Unix milliseconds.
func Window(start, duration string, now time.Time) (int64, int64, error) {
	startMS, err := FromNow(start, now)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --start: %w", err)
	}

	d, err := time.ParseDuration(duration)
	if err != nil || d < 0 {
		return 0, 0, fmt.Errorf("invalid --duration: %s", duration)
	}

	return startMS, startMS + d.Milliseconds(), nil
}
