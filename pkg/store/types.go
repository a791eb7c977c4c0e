package store

import (
	"fmt"
	"strings"

	"github.com/dyluth/gather/pkg/geo"
	"github.com/google/uuid"
)

// SystemMessageID is the fixed id of the placeholder message seeded into every new event chat.
const SystemMessageID = "system"

// Event is a community event that users can discover, join and chat about.
// Timestamps are Unix milliseconds.
type Event struct {
	ID           string     `json:"id"`                      // UUID assigned on creation
	Title        string     `json:"title"`                   // Required
	Description  string     `json:"description"`             // Free text
	Category     string     `json:"category"`                // Single catalog category id
	StartMs      int64      `json:"start_ms"`                // Start instant
	EndMs        int64      `json:"end_ms"`                  // End instant, >= StartMs
	Location     *geo.Point `json:"location,omitempty"`      // Required for discovery, optional otherwise
	LocationName string     `json:"location_name,omitempty"` // Human readable place
	ImageURL     string     `json:"image_url,omitempty"`     // Opaque URL owned by the upload service
	CreatorID    string     `json:"creator_id"`              // Organizer user id
	CreatedAtMs  int64      `json:"created_at_ms"`
	UpdatedAtMs  int64      `json:"updated_at_ms"`
}

// UserProfile holds a user's discovery preferences.
type UserProfile struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email,omitempty"`
	Home          *geo.Point `json:"home,omitempty"`
	Categories    []string   `json:"categories"`      // Empty means every category
	MaxDistanceKm int        `json:"max_distance_km"` // 0 means unset
	Organizer     bool       `json:"organizer"`
	UpdatedAtMs   int64      `json:"updated_at_ms"`
}

// Subscription is the (user, event) join relation.
type Subscription struct {
	UserID      string `json:"user_id"`
	EventID     string `json:"event_id"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

// ChatMessage is an immutable entry of an event chat.
type ChatMessage struct {
	ID          string `json:"id"`           // Server-assigned
	EventID     string `json:"event_id"`
	SenderID    string `json:"sender_id"`
	SenderName  string `json:"sender_name"`  // Snapshot taken at send time
	Body        string `json:"body"`
	TimestampMs int64  `json:"timestamp_ms"` // Assigned by the server clock
	Seq         int64  `json:"seq"`          // Per-event arrival order, breaks timestamp ties
}

// ReadCursor points at the last chat message a user has seen in an event.
type ReadCursor struct {
	UserID            string `json:"user_id"`
	EventID           string `json:"event_id"`
	LastReadMessageID string `json:"last_read_message_id"`
	TimestampMs       int64  `json:"timestamp_ms"`
}

// PresenceRecord is the last heartbeat of a user in an event chat.
type PresenceRecord struct {
	UserID       string `json:"user_id"`
	EventID      string `json:"event_id"`
	LastActiveMs int64  `json:"last_active_ms"`
}

// Vote is a user's vote for a suggested category. One vote per (suggestion, user).
type Vote struct {
	SuggestionID string `json:"suggestion_id"` // Normalized slug of Name
	UserID       string `json:"user_id"`
	UserEmail    string `json:"user_email,omitempty"`
	Name         string `json:"name"` // Raw submitted display name
	TimestampMs  int64  `json:"timestamp_ms"`
}

// Category is an entry of the static category catalog.
type Category struct {
	ID           string            `json:"id"`
	ColorHex     string            `json:"color_hex"`
	Translations map[string]string `json:"translations"` // language code -> display name
}

// Validate checks if the Event has valid field values.
func (e *Event) Validate() error {
	if !isValidUUID(e.ID) {
		return fmt.Errorf("invalid event ID: not a valid UUID")
	}

	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("title cannot be empty")
	}

	if e.CreatorID == "" {
		return fmt.Errorf("creator_id cannot be empty")
	}

	if e.EndMs < e.StartMs {
		return fmt.Errorf("end (%d) must not be before start (%d)", e.EndMs, e.StartMs)
	}

	if e.Location != nil {
		if err := e.Location.Validate(); err != nil {
			return fmt.Errorf("invalid location: %w", err)
		}
	}

	return nil
}

// HasEnded reports whether the event finished strictly before nowMs.
func (e *Event) HasEnded(nowMs int64) bool {
	return e.EndMs < nowMs
}

// Validate checks if the UserProfile has valid field values.
func (p *UserProfile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("user id cannot be empty")
	}

	if p.MaxDistanceKm < 0 {
		return fmt.Errorf("max_distance_km must be >= 0, got %d", p.MaxDistanceKm)
	}

	if p.Home != nil {
		if err := p.Home.Validate(); err != nil {
			return fmt.Errorf("invalid home location: %w", err)
		}
	}

	return nil
}

// Validate checks if the ChatMessage has valid field values.
func (m *ChatMessage) Validate() error {
	if m.ID != SystemMessageID && !isValidUUID(m.ID) {
		return fmt.Errorf("invalid message ID: not a valid UUID")
	}

	if m.EventID == "" {
		return fmt.Errorf("event_id cannot be empty")
	}

	if m.SenderID == "" {
		return fmt.Errorf("sender_id cannot be empty")
	}

	if strings.TrimSpace(m.Body) == "" {
		return fmt.Errorf("message body cannot be empty")
	}

	return nil
}

// Validate checks if the Vote has valid field values.
func (v *Vote) Validate() error {
	if v.SuggestionID == "" {
		return fmt.Errorf("suggestion id cannot be empty")
	}

	if v.UserID == "" {
		return fmt.Errorf("user id cannot be empty")
	}

	if strings.TrimSpace(v.Name) == "" {
		return fmt.Errorf("suggestion name cannot be empty")
	}

	return nil
}

// Validate checks if the Category has valid field values.
func (c *Category) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("category id cannot be empty")
	}

	if c.ColorHex != "" && (!strings.HasPrefix(c.ColorHex, "#") || (len(c.ColorHex) != 7 && len(c.ColorHex) != 9)) {
		return fmt.Errorf("invalid color %q: expected #RRGGBB or #AARRGGBB", c.ColorHex)
	}

	return nil
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
