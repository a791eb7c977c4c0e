// Package profile stores user discovery preferences.
package profile

import (
	"context"
	"fmt"

	"github.com/dyluth/gather/internal/clock"
	"github.com/dyluth/gather/internal/logging"
	"github.com/dyluth/gather/pkg/store"
	"go.uber.org/zap"
)

// DefaultMaxDistanceKm applies when a profile has no radius set.
const DefaultMaxDistanceKm = 50

// Store is the slice of the document store profiles need.
type Store interface {
	GetProfile(ctx context.Context, userID string) (*store.UserProfile, error)
	SaveProfile(ctx context.Context, p *store.UserProfile) error
}

// Service reads and writes user profiles.
type Service struct {
	store  Store
	clock  clock.Clock
	logger *zap.Logger
}

// NewService creates a profile service. logger may be nil.
func NewService(s Store, c clock.Clock, logger *zap.Logger) *Service {
	return &Service{
		store:  s,
		clock:  c,
		logger: logging.OrNop(logger).Named("profile"),
	}
}

// Get returns the profile of userID with the default radius applied.
// Returns an error matching store.IsNotFound when the user has no profile.
func (s *Service) Get(ctx context.Context, userID string) (*store.UserProfile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", userID, err)
	}
	if p.MaxDistanceKm == 0 {
		p.MaxDistanceKm = DefaultMaxDistanceKm
	}
	return p, nil
}

// Save validates and upserts a profile.
func (s *Service) Save(ctx context.Context, p *store.UserProfile) error {
	if p.Categories == nil {
		p.Categories = []string{}
	}
	p.UpdatedAtMs = clock.Millis(s.clock)

	if err := s.store.SaveProfile(ctx, p); err != nil {
		return fmt.Errorf("save profile %s: %w", p.ID, err)
	}
	s.logger.Debug("profile saved", zap.String("user_id", p.ID))
	return nil
}
