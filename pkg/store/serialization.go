package store

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dyluth/gather/pkg/geo"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores documents as string-to-string maps. Lists and maps are
// JSON-encoded into single hash fields; optional coordinates are split into
// lat/lon fields that are omitted when absent.

// EventToHash converts an Event to a Redis hash.
func EventToHash(e *Event) map[string]interface{} {
	hash := map[string]interface{}{
		"id":            e.ID,
		"title":         e.Title,
		"description":   e.Description,
		"category":      e.Category,
		"start_ms":      e.StartMs,
		"end_ms":        e.EndMs,
		"location_name": e.LocationName,
		"image_url":     e.ImageURL,
		"creator_id":    e.CreatorID,
		"created_at_ms": e.CreatedAtMs,
		"updated_at_ms": e.UpdatedAtMs,
	}
	putPoint(hash, e.Location)
	return hash
}

// HashToEvent converts a Redis hash to an Event.
func HashToEvent(hash map[string]string) (*Event, error) {
	startMs, err := parseInt64(hash, "start_ms")
	if err != nil {
		return nil, err
	}
	endMs, err := parseInt64(hash, "end_ms")
	if err != nil {
		return nil, err
	}
	location, err := getPoint(hash)
	if err != nil {
		return nil, err
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)

	return &Event{
		ID:           hash["id"],
		Title:        hash["title"],
		Description:  hash["description"],
		Category:     hash["category"],
		StartMs:      startMs,
		EndMs:        endMs,
		Location:     location,
		LocationName: hash["location_name"],
		ImageURL:     hash["image_url"],
		CreatorID:    hash["creator_id"],
		CreatedAtMs:  createdAtMs,
		UpdatedAtMs:  updatedAtMs,
	}, nil
}

// ProfileToHash converts a UserProfile to a Redis hash.
// The category list is JSON-encoded.
func ProfileToHash(p *UserProfile) (map[string]interface{}, error) {
	categories := p.Categories
	if categories == nil {
		categories = []string{}
	}
	categoriesJSON, err := json.Marshal(categories)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal categories: %w", err)
	}

	hash := map[string]interface{}{
		"id":              p.ID,
		"username":        p.Username,
		"email":           p.Email,
		"categories":      string(categoriesJSON),
		"max_distance_km": p.MaxDistanceKm,
		"organizer":       p.Organizer,
		"updated_at_ms":   p.UpdatedAtMs,
	}
	putPoint(hash, p.Home)
	return hash, nil
}

// HashToProfile converts a Redis hash to a UserProfile.
func HashToProfile(hash map[string]string) (*UserProfile, error) {
	var categories []string
	if raw := hash["categories"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &categories); err != nil {
			return nil, fmt.Errorf("failed to unmarshal categories: %w", err)
		}
	}
	if categories == nil {
		categories = []string{}
	}

	home, err := getPoint(hash)
	if err != nil {
		return nil, err
	}

	maxDistance, _ := strconv.Atoi(hash["max_distance_km"])
	organizer, _ := strconv.ParseBool(hash["organizer"])
	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)

	return &UserProfile{
		ID:            hash["id"],
		Username:      hash["username"],
		Email:         hash["email"],
		Home:          home,
		Categories:    categories,
		MaxDistanceKm: maxDistance,
		Organizer:     organizer,
		UpdatedAtMs:   updatedAtMs,
	}, nil
}

// MessageToHash converts a ChatMessage to a Redis hash.
func MessageToHash(m *ChatMessage) map[string]interface{} {
	return map[string]interface{}{
		"id":           m.ID,
		"event_id":     m.EventID,
		"sender_id":    m.SenderID,
		"sender_name":  m.SenderName,
		"body":         m.Body,
		"timestamp_ms": m.TimestampMs,
		"seq":          m.Seq,
	}
}

// HashToMessage converts a Redis hash to a ChatMessage.
func HashToMessage(hash map[string]string) (*ChatMessage, error) {
	timestampMs, err := parseInt64(hash, "timestamp_ms")
	if err != nil {
		return nil, err
	}
	seq, _ := strconv.ParseInt(hash["seq"], 10, 64)

	return &ChatMessage{
		ID:          hash["id"],
		EventID:     hash["event_id"],
		SenderID:    hash["sender_id"],
		SenderName:  hash["sender_name"],
		Body:        hash["body"],
		TimestampMs: timestampMs,
		Seq:         seq,
	}, nil
}

// CategoryToHash converts a Category to a Redis hash.
// Translations are JSON-encoded.
func CategoryToHash(c *Category) (map[string]interface{}, error) {
	translations := c.Translations
	if translations == nil {
		translations = map[string]string{}
	}
	translationsJSON, err := json.Marshal(translations)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal translations: %w", err)
	}

	return map[string]interface{}{
		"id":           c.ID,
		"color_hex":    c.ColorHex,
		"translations": string(translationsJSON),
	}, nil
}

// HashToCategory converts a Redis hash to a Category.
func HashToCategory(hash map[string]string) (*Category, error) {
	translations := map[string]string{}
	if raw := hash["translations"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &translations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal translations: %w", err)
		}
	}

	return &Category{
		ID:           hash["id"],
		ColorHex:     hash["color_hex"],
		Translations: translations,
	}, nil
}

func putPoint(hash map[string]interface{}, p *geo.Point) {
	if p == nil {
		return
	}
	hash["lat"] = strconv.FormatFloat(p.Lat, 'f', -1, 64)
	hash["lon"] = strconv.FormatFloat(p.Lon, 'f', -1, 64)
}

// getPoint returns nil when the hash carries no coordinate.
func getPoint(hash map[string]string) (*geo.Point, error) {
	latStr, hasLat := hash["lat"]
	lonStr, hasLon := hash["lon"]
	if !hasLat || !hasLon || latStr == "" || lonStr == "" {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lat field: %w", err)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lon field: %w", err)
	}
	return &geo.Point{Lat: lat, Lon: lon}, nil
}

func parseInt64(hash map[string]string, field string) (int64, error) {
	v, err := strconv.ParseInt(hash[field], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s field: %w", field, err)
	}
	return v, nil
}
