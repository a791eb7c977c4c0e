package api

import (
	"net/http"

	"github.com/dyluth/gather/internal/category"
	"github.com/dyluth/gather/pkg/store"
	"golang.org/x/text/language"
)

type suggestRequest struct {
	Name string `json:"name"`
}

type suggestResponse struct {
	ID string `json:"id"`
}

// handleCategories returns display name to id for the requested language,
// taken from ?lang= or else the Accept-Language header.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	names, err := s.svc.Catalog.Available(r.Context(), requestLanguage(r))
	if err != nil {
		if s.degrade(w, "categories", err, map[string]string{}) {
			return
		}
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, names)
}

func (s *Server) handleColors(w http.ResponseWriter, r *http.Request) {
	colors, err := s.svc.Catalog.Colors(r.Context())
	if err != nil {
		if s.degrade(w, "colors", err, map[string]string{}) {
			return
		}
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, colors)
}

func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	rankings, err := s.svc.Votes.Aggregate(r.Context())
	if err != nil {
		if s.degrade(w, "rankings", err, []category.Ranking{}) {
			return
		}
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rankings)
}

// handleSuggest records the caller's vote for a new category name.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	userID := UserID(r.Context())
	var email string
	if p, err := s.svc.Profiles.Get(r.Context(), userID); err == nil {
		email = p.Email
	} else if !store.IsNotFound(err) {
		s.fail(w, r, err)
		return
	}

	slug, err := s.svc.Votes.Submit(r.Context(), req.Name, userID, email)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, suggestResponse{ID: slug})
}

func requestLanguage(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return lang
	}
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return category.FallbackLanguage
	}
	base, _ := tags[0].Base()
	return base.String()
}
