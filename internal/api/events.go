package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dyluth/gather/internal/profile"
	"github.com/dyluth/gather/pkg/geo"
	"github.com/dyluth/gather/pkg/store"
	"github.com/gorilla/mux"
)

// eventRequest is the editable part of an event.
type eventRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	StartMs      int64      `json:"start_ms"`
	EndMs        int64      `json:"end_ms"`
	Location     *geo.Point `json:"location,omitempty"`
	LocationName string     `json:"location_name,omitempty"`
	ImageURL     string     `json:"image_url,omitempty"`
}

func (req eventRequest) event(id, creatorID string) *store.Event {
	return &store.Event{
		ID:           id,
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		StartMs:      req.StartMs,
		EndMs:        req.EndMs,
		Location:     req.Location,
		LocationName: req.LocationName,
		ImageURL:     req.ImageURL,
		CreatorID:    creatorID,
	}
}

// handleNearby lists joinable events around the user's home, or around an
// explicit lat/lon when the query carries one.
func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	q := r.URL.Query()

	var (
		events []*store.Event
		err    error
	)
	if q.Has("lat") || q.Has("lon") {
		from, radius, categories, perr := nearbyQuery(q.Get("lat"), q.Get("lon"), q.Get("radius_km"), q.Get("categories"))
		if perr != nil {
			s.fail(w, r, perr)
			return
		}
		events, err = s.svc.Discovery.NearbyFrom(r.Context(), userID, from, categories, radius)
	} else {
		events, err = s.svc.Discovery.Nearby(r.Context(), userID)
	}
	if err != nil {
		if s.degrade(w, "nearby", err, []*store.Event{}) {
			return
		}
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func nearbyQuery(lat, lon, radius, categories string) (geo.Point, float64, []string, error) {
	from, err := geo.Parse(lat + "," + lon)
	if err != nil {
		return geo.Point{}, 0, nil, fmt.Errorf("%w: %w", store.ErrValidation, err)
	}

	km := float64(profile.DefaultMaxDistanceKm)
	if radius != "" {
		km, err = strconv.ParseFloat(radius, 64)
		if err != nil || km < 0 {
			return geo.Point{}, 0, nil, fmt.Errorf("invalid radius_km %q: %w", radius, store.ErrValidation)
		}
	}

	var cats []string
	for _, c := range strings.Split(categories, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cats = append(cats, c)
		}
	}
	return from, km, cats, nil
}

// handleMyEvents lists the user's joined events, scope=upcoming (default) or past.
func (s *Server) handleMyEvents(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	var (
		events []*store.Event
		err    error
	)
	switch scope := r.URL.Query().Get("scope"); scope {
	case "", "upcoming":
		events, err = s.svc.Discovery.Upcoming(r.Context(), userID)
	case "past":
		events, err = s.svc.Discovery.Past(r.Context(), userID)
	default:
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid scope %q (expected upcoming or past)", scope))
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	e, err := s.svc.Discovery.CreateEvent(r.Context(), req.event("", UserID(r.Context())))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := s.svc.Discovery.GetEvent(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	userID := UserID(r.Context())
	e, err := s.svc.Discovery.UpdateEvent(r.Context(), req.event(mux.Vars(r)["id"], userID), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Discovery.DeleteEvent(r.Context(), mux.Vars(r)["id"], UserID(r.Context())); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
