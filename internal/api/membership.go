package api

import (
	"fmt"
	"net/http"

	"github.com/dyluth/gather/internal/presence"
	"github.com/dyluth/gather/pkg/store"
	"github.com/gorilla/mux"
)

type subscriptionResponse struct {
	EventID    string `json:"event_id"`
	Subscribed bool   `json:"subscribed"`
}

type subscribersResponse struct {
	EventID string `json:"event_id"`
	Count   int    `json:"count"`
}

type presenceResponse struct {
	EventID       string `json:"event_id"`
	Online        int    `json:"online"`
	WindowSeconds int    `json:"window_seconds"`
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["id"]
	ok, err := s.svc.Subscriptions.IsSubscribed(r.Context(), UserID(r.Context()), eventID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, subscriptionResponse{EventID: eventID, Subscribed: ok})
}

// handleSubscribe joins an existing event. Joining twice is a no-op.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["id"]
	if _, err := s.svc.Discovery.GetEvent(r.Context(), eventID); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Subscriptions.Subscribe(r.Context(), UserID(r.Context()), eventID); err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, subscriptionResponse{EventID: eventID, Subscribed: true})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Subscriptions.Unsubscribe(r.Context(), UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubscribers(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["id"]
	n, err := s.svc.Subscriptions.SubscriberCount(r.Context(), eventID)
	if err != nil {
		if s.degrade(w, "subscriber_count", err, subscribersResponse{EventID: eventID}) {
			return
		}
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, subscribersResponse{EventID: eventID, Count: n})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["id"]
	userID := UserID(r.Context())
	if !s.requireSubscription(w, r, userID, eventID) {
		return
	}
	if err := s.svc.Presence.Heartbeat(r.Context(), userID, eventID, s.svc.Clock.Now()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOnline(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["id"]
	resp := presenceResponse{EventID: eventID, WindowSeconds: int(presence.Window.Seconds())}

	n, err := s.svc.Presence.OnlineCount(r.Context(), eventID, s.svc.Clock.Now())
	if err != nil {
		if s.degrade(w, "online_count", err, resp) {
			return
		}
		s.fail(w, r, err)
		return
	}
	resp.Online = n
	respondJSON(w, http.StatusOK, resp)
}

// requireSubscription answers 403 unless userID joined eventID.
// It reports whether the caller may proceed.
func (s *Server) requireSubscription(w http.ResponseWriter, r *http.Request, userID, eventID string) bool {
	ok, err := s.svc.Subscriptions.IsSubscribed(r.Context(), userID, eventID)
	if err != nil {
		s.fail(w, r, err)
		return false
	}
	if !ok {
		s.fail(w, r, fmt.Errorf("user %s is not subscribed to %s: %w", userID, eventID, store.ErrPrecondition))
		return false
	}
	return true
}
