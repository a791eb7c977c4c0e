package api

import (
	"net/http"

	"github.com/dyluth/gather/pkg/geo"
	"github.com/dyluth/gather/pkg/store"
)

type profileRequest struct {
	Username      string     `json:"username"`
	Email         string     `json:"email,omitempty"`
	Home          *geo.Point `json:"home,omitempty"`
	Categories    []string   `json:"categories"`
	MaxDistanceKm int        `json:"max_distance_km"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Profiles.Get(r.Context(), UserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// handleSaveProfile replaces the caller's preferences. The organizer flag is
// operator-managed and survives the update.
func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	userID := UserID(r.Context())
	var organizer bool
	existing, err := s.svc.Profiles.Get(r.Context(), userID)
	switch {
	case err == nil:
		organizer = existing.Organizer
	case !store.IsNotFound(err):
		s.fail(w, r, err)
		return
	}

	p := &store.UserProfile{
		ID:            userID,
		Username:      req.Username,
		Email:         req.Email,
		Home:          req.Home,
		Categories:    req.Categories,
		MaxDistanceKm: req.MaxDistanceKm,
		Organizer:     organizer,
	}
	if err := s.svc.Profiles.Save(r.Context(), p); err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}
