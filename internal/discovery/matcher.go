// Package discovery finds events near a user and manages the event lifecycle.
package discovery

import (
	"github.com/dyluth/gather/pkg/geo"
	"github.com/dyluth/gather/pkg/store"
)

// FilterNearby keeps the events whose category is in categories (any category
// when categories is empty) and whose location lies within maxKm of from.
//
// Events without a location or category are skipped. Input order is preserved.
func FilterNearby(events []*store.Event, from geo.Point, categories []string, maxKm float64) []*store.Event {
	allowed := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		allowed[c] = struct{}{}
	}

	out := make([]*store.Event, 0, len(events))
	for _, e := range events {
		if e == nil || e.Location == nil || e.Category == "" {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[e.Category]; !ok {
				continue
			}
		}
		if !geo.Within(from, *e.Location, maxKm) {
			continue
		}
		out = append(out, e)
	}
	return out
}
