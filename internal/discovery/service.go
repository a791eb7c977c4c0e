package discovery

import (
	"context"
	"fmt"
	"sort"

	"github.com/dyluth/gather/internal/clock"
	"github.com/dyluth/gather/internal/logging"
	"github.com/dyluth/gather/pkg/geo"
	"github.com/dyluth/gather/pkg/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Placeholder message seeded into every new event chat.
const (
	SystemSenderName = "System"
	ChatCreatedBody  = "Chat created"
)

// EventStore is the slice of the document store discovery needs.
type EventStore interface {
	CreateEvent(ctx context.Context, e *store.Event, placeholder *store.ChatMessage) error
	GetEvent(ctx context.Context, eventID string) (*store.Event, error)
	UpdateEvent(ctx context.Context, e *store.Event) error
	DeleteEvent(ctx context.Context, eventID string) error
	ListEvents(ctx context.Context) ([]*store.Event, error)
	GetEvents(ctx context.Context, ids []string) ([]*store.Event, error)
}

// Profiles supplies user preferences.
type Profiles interface {
	Get(ctx context.Context, userID string) (*store.UserProfile, error)
}

// Subscriptions lists the events a user joined.
type Subscriptions interface {
	SubscribedEvents(ctx context.Context, userID string) ([]string, error)
}

// Options tune the discovery service.
type Options struct {
	// RequireOrganizer restricts event creation to profiles flagged as organizers.
	RequireOrganizer bool
}

// Service answers the home, upcoming and past event lists and owns the
// event lifecycle.
type Service struct {
	events   EventStore
	profiles Profiles
	subs     Subscriptions
	clock    clock.Clock
	opts     Options
	logger   *zap.Logger
}

// NewService creates a discovery service. logger may be nil.
func NewService(events EventStore, profiles Profiles, subs Subscriptions, c clock.Clock, opts Options, logger *zap.Logger) *Service {
	return &Service{
		events:   events,
		profiles: profiles,
		subs:     subs,
		clock:    c,
		opts:     opts,
		logger:   logging.OrNop(logger).Named("discovery"),
	}
}

// Nearby returns the events a user might want to join: within the profile's
// radius, in one of its categories, not yet ended and not already joined.
// Users without a profile or home location get an empty list.
// Results are ordered by start time.
func (s *Service) Nearby(ctx context.Context, userID string) ([]*store.Event, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if store.IsNotFound(err) {
		return []*store.Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("nearby for %s: %w", userID, err)
	}
	if profile.Home == nil {
		return []*store.Event{}, nil
	}

	return s.NearbyFrom(ctx, userID, *profile.Home, profile.Categories, float64(profile.MaxDistanceKm))
}

// NearbyFrom is Nearby with explicit search parameters.
func (s *Service) NearbyFrom(ctx context.Context, userID string, from geo.Point, categories []string, maxKm float64) ([]*store.Event, error) {
	all, err := s.events.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	joined, err := s.joinedSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	nowMs := clock.Millis(s.clock)
	candidates := FilterNearby(all, from, categories, maxKm)

	out := make([]*store.Event, 0, len(candidates))
	for _, e := range candidates {
		if e.EndMs <= nowMs {
			continue
		}
		if _, ok := joined[e.ID]; ok {
			continue
		}
		out = append(out, e)
	}
	sortByStart(out)

	s.logger.Debug("nearby events",
		zap.String("user_id", userID),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(out)))
	return out, nil
}

// Upcoming returns joined events that have not ended, soonest first.
func (s *Service) Upcoming(ctx context.Context, userID string) ([]*store.Event, error) {
	events, err := s.joinedEvents(ctx, userID)
	if err != nil {
		return nil, err
	}

	nowMs := clock.Millis(s.clock)
	out := make([]*store.Event, 0, len(events))
	for _, e := range events {
		if e.EndMs >= nowMs {
			out = append(out, e)
		}
	}
	sortByStart(out)
	return out, nil
}

// Past returns joined events that already ended, most recent first.
func (s *Service) Past(ctx context.Context, userID string) ([]*store.Event, error) {
	events, err := s.joinedEvents(ctx, userID)
	if err != nil {
		return nil, err
	}

	nowMs := clock.Millis(s.clock)
	out := make([]*store.Event, 0, len(events))
	for _, e := range events {
		if e.HasEnded(nowMs) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EndMs != out[j].EndMs {
			return out[i].EndMs > out[j].EndMs
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetEvent returns one event.
func (s *Service) GetEvent(ctx context.Context, eventID string) (*store.Event, error) {
	e, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", eventID, err)
	}
	return e, nil
}

// CreateEvent assigns an id and timestamps to e and stores it together with
// the creator's subscription and the chat placeholder message.
func (s *Service) CreateEvent(ctx context.Context, e *store.Event) (*store.Event, error) {
	if e.CreatorID == "" {
		return nil, fmt.Errorf("create event: creator is required: %w", store.ErrValidation)
	}
	if s.opts.RequireOrganizer {
		if err := s.checkOrganizer(ctx, e.CreatorID); err != nil {
			return nil, err
		}
	}

	nowMs := clock.Millis(s.clock)
	e.ID = uuid.New().String()
	e.CreatedAtMs = nowMs
	e.UpdatedAtMs = nowMs

	placeholder := &store.ChatMessage{
		ID:          store.SystemMessageID,
		EventID:     e.ID,
		SenderID:    store.SystemMessageID,
		SenderName:  SystemSenderName,
		Body:        ChatCreatedBody,
		TimestampMs: nowMs,
	}
	if err := s.events.CreateEvent(ctx, e, placeholder); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.logger.Info("event created",
		zap.String("event_id", e.ID),
		zap.String("creator_id", e.CreatorID),
		zap.String("category", e.Category))
	return e, nil
}

// UpdateEvent replaces the editable fields of an event. Only the creator may
// update it; the id, creator and creation time are preserved.
func (s *Service) UpdateEvent(ctx context.Context, e *store.Event, requesterID string) (*store.Event, error) {
	existing, err := s.ownedEvent(ctx, e.ID, requesterID)
	if err != nil {
		return nil, err
	}

	e.CreatorID = existing.CreatorID
	e.CreatedAtMs = existing.CreatedAtMs
	e.UpdatedAtMs = clock.Millis(s.clock)

	if err := s.events.UpdateEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("update event %s: %w", e.ID, err)
	}
	s.logger.Info("event updated", zap.String("event_id", e.ID))
	return e, nil
}

// DeleteEvent removes an event and its chat. Only the creator may delete it.
func (s *Service) DeleteEvent(ctx context.Context, eventID, requesterID string) error {
	if _, err := s.ownedEvent(ctx, eventID, requesterID); err != nil {
		return err
	}
	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	s.logger.Info("event deleted", zap.String("event_id", eventID))
	return nil
}

func (s *Service) ownedEvent(ctx context.Context, eventID, requesterID string) (*store.Event, error) {
	existing, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", eventID, err)
	}
	if existing.CreatorID != requesterID {
		return nil, fmt.Errorf("event %s belongs to another user: %w", eventID, store.ErrForbidden)
	}
	return existing, nil
}

func (s *Service) checkOrganizer(ctx context.Context, userID string) error {
	profile, err := s.profiles.Get(ctx, userID)
	if store.IsNotFound(err) {
		return fmt.Errorf("user %s has no profile: %w", userID, store.ErrForbidden)
	}
	if err != nil {
		return fmt.Errorf("check organizer %s: %w", userID, err)
	}
	if !profile.Organizer {
		return fmt.Errorf("user %s is not an organizer: %w", userID, store.ErrForbidden)
	}
	return nil
}

func (s *Service) joinedSet(ctx context.Context, userID string) (map[string]struct{}, error) {
	ids, err := s.subs.SubscribedEvents(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("joined events of %s: %w", userID, err)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (s *Service) joinedEvents(ctx context.Context, userID string) ([]*store.Event, error) {
	ids, err := s.subs.SubscribedEvents(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("joined events of %s: %w", userID, err)
	}
	events, err := s.events.GetEvents(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load joined events of %s: %w", userID, err)
	}
	return events, nil
}

func sortByStart(events []*store.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].StartMs != events[j].StartMs {
			return events[i].StartMs < events[j].StartMs
		}
		return events[i].ID < events[j].ID
	})
}
