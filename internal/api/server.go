// Package api exposes the gather core over HTTP and WebSocket.
//
// Every route under /api/v1 requires a bearer token whose subject is the
// calling user. Read queries that feed list screens (nearby events,
// subscriber counts, presence, categories, colours and rankings) degrade to
// empty payloads when the store is unavailable and flag the response with
// the X-Degraded header. Mutations report failures as 400, 403, 404 or 503.
package api

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dyluth/gather/internal/category"
	"github.com/dyluth/gather/internal/chat"
	"github.com/dyluth/gather/internal/clock"
	"github.com/dyluth/gather/internal/discovery"
	"github.com/dyluth/gather/internal/logging"
	"github.com/dyluth/gather/internal/metrics"
	"github.com/dyluth/gather/internal/presence"
	"github.com/dyluth/gather/internal/profile"
	"github.com/dyluth/gather/internal/subscription"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Services bundles the components served by the API.
type Services struct {
	Store         Pinger
	Discovery     *discovery.Service
	Profiles      *profile.Service
	Subscriptions *subscription.Ledger
	Presence      *presence.Tracker
	Chat          *chat.Stream
	Votes         *category.Aggregator
	Catalog       *category.Catalog
	Clock         clock.Clock
}

// Options configure the HTTP surface.
type Options struct {
	Auth        *Authenticator
	CORSOrigins []string
	Logger      *zap.Logger
	Metrics     *metrics.Recorder
}

// Server routes HTTP requests to the gather components.
type Server struct {
	svc      Services
	auth     *Authenticator
	logger   *zap.Logger
	metrics  *metrics.Recorder
	upgrader websocket.Upgrader
	handler  http.Handler
}

// NewServer builds the router. opts.Auth is required.
func NewServer(svc Services, opts Options) (*Server, error) {
	if opts.Auth == nil {
		return nil, errors.New("api: authenticator is required")
	}
	if svc.Clock == nil {
		svc.Clock = clock.System{}
	}

	s := &Server{
		svc:     svc,
		auth:    opts.Auth,
		logger:  logging.OrNop(opts.Logger).Named("api"),
		metrics: opts.Metrics,
	}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(origins),
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{DegradedHeader},
		AllowCredentials: false,
	})
	s.handler = c.Handler(s.routes())
	return s, nil
}

// Handler returns the root handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.auth.Middleware)

	api.HandleFunc("/events/nearby", s.handleNearby).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleCreateEvent).Methods(http.MethodPost)
	api.HandleFunc("/events/{id}", s.handleGetEvent).Methods(http.MethodGet)
	api.HandleFunc("/events/{id}", s.handleUpdateEvent).Methods(http.MethodPut)
	api.HandleFunc("/events/{id}", s.handleDeleteEvent).Methods(http.MethodDelete)

	api.HandleFunc("/events/{id}/subscription", s.handleGetSubscription).Methods(http.MethodGet)
	api.HandleFunc("/events/{id}/subscription", s.handleSubscribe).Methods(http.MethodPut)
	api.HandleFunc("/events/{id}/subscription", s.handleUnsubscribe).Methods(http.MethodDelete)
	api.HandleFunc("/events/{id}/subscribers", s.handleSubscribers).Methods(http.MethodGet)

	api.HandleFunc("/events/{id}/presence", s.handleHeartbeat).Methods(http.MethodPost)
	api.HandleFunc("/events/{id}/presence", s.handleOnline).Methods(http.MethodGet)

	api.HandleFunc("/events/{id}/messages", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/events/{id}/messages", s.handleAppend).Methods(http.MethodPost)
	api.HandleFunc("/events/{id}/messages/stream", s.handleStream).Methods(http.MethodGet)
	api.HandleFunc("/events/{id}/read-cursor", s.handleGetReadCursor).Methods(http.MethodGet)
	api.HandleFunc("/events/{id}/read-cursor", s.handleMarkRead).Methods(http.MethodPut)

	api.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories/colors", s.handleColors).Methods(http.MethodGet)
	api.HandleFunc("/suggestions", s.handleRankings).Methods(http.MethodGet)
	api.HandleFunc("/suggestions", s.handleSuggest).Methods(http.MethodPost)

	api.HandleFunc("/me/events", s.handleMyEvents).Methods(http.MethodGet)
	api.HandleFunc("/me/profile", s.handleGetProfile).Methods(http.MethodGet)
	api.HandleFunc("/me/profile", s.handleSaveProfile).Methods(http.MethodPut)

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// instrument records request counts and latency per route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.ObserveHTTP(route, rec.status, time.Since(start))
		s.logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// statusRecorder captures the response status. It stays hijackable so
// WebSocket upgrades pass through the instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
