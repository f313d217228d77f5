// Package api exposes the HTTP interface for the game service.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okriker/wikibingo/internal/bingo"
	"github.com/okriker/wikibingo/internal/metrics"
	"github.com/okriker/wikibingo/internal/nav"
)

// Server wires HTTP handlers to the game registry and the snapshot store.
type Server struct {
	router   chi.Router
	registry *Registry
	store    bingo.SessionStore
	logger   *zap.Logger
}

// ServerConfig tunes per-route behavior.
type ServerConfig struct {
	// NavigateTimeout bounds the navigate route. It must cover the worst
	// case of the fetch pipeline (every retry on both endpoints for the
	// target and one replacement); callers derive it from the retry
	// schedule and source timeout. Zero selects a conservative default.
	NavigateTimeout time.Duration
}

const defaultNavigateTimeout = 4 * time.Minute

// NewServer constructs a Server with middleware and routes. store may be
// nil; finished-game lookups then 404.
func NewServer(registry *Registry, store bingo.SessionStore, cfg ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NavigateTimeout <= 0 {
		cfg.NavigateTimeout = defaultNavigateTimeout
	}
	s := &Server{
		registry: registry,
		store:    store,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/games", func(r chi.Router) {
			r.With(timeoutMiddleware(10*time.Second)).Post("/", s.createGame)
			r.With(timeoutMiddleware(10*time.Second)).Get("/", s.listGames)
			r.Route("/{game_id}", func(r chi.Router) {
				r.With(timeoutMiddleware(10*time.Second)).Get("/", s.getGame)
				// Navigation may legitimately run through the full retry
				// schedule on both endpoints for the target and again for
				// a replacement.
				r.With(timeoutMiddleware(cfg.NavigateTimeout)).Post("/navigate", s.navigate)
				r.With(timeoutMiddleware(10*time.Second)).Post("/cells/{position}/replace", s.replaceCell)
				// No timeout: the event feed is a long-lived websocket.
				r.Get("/events", s.gameEvents)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type createGameRequest struct {
	StartArticle string   `json:"start_article"`
	GridTitles   []string `json:"grid_titles,omitempty"`
}

func (s *Server) createGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.StartArticle == "" {
		s.writeError(w, http.StatusBadRequest, "start_article is required")
		return
	}
	if n := len(req.GridTitles); n != 0 && n != bingo.GridCells {
		s.writeError(w, http.StatusBadRequest, "grid_titles must contain exactly 25 titles")
		return
	}
	game, err := s.registry.Create(r.Context(), req.StartArticle, req.GridTitles)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, game.Snapshot())
}

func (s *Server) listGames(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"games": []bingo.Snapshot{}})
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	snaps, err := s.store.ListSnapshots(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list games")
		return
	}
	if snaps == nil {
		snaps = []bingo.Snapshot{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"games": snaps})
}

func (s *Server) getGame(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "game_id")
	if game, ok := s.registry.Get(gameID); ok {
		s.writeJSON(w, http.StatusOK, game.Snapshot())
		return
	}
	if s.store != nil {
		snap, err := s.store.GetSnapshot(r.Context(), gameID)
		if err == nil {
			s.writeJSON(w, http.StatusOK, snap)
			return
		}
		if !errors.Is(err, bingo.ErrSnapshotNotFound) {
			s.writeError(w, http.StatusInternalServerError, "failed to load game")
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "game not found")
}

type navigateRequest struct {
	Title string `json:"title"`
}

type navigateResponse struct {
	Outcome  nav.Outcome    `json:"outcome"`
	Snapshot bingo.Snapshot `json:"snapshot"`
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request) {
	game, ok := s.registry.Get(chi.URLParam(r, "game_id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "game not found")
		return
	}
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		s.writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	outcome := game.Controller.Navigate(r.Context(), req.Title)
	s.writeJSON(w, http.StatusOK, navigateResponse{
		Outcome:  outcome,
		Snapshot: game.Snapshot(),
	})
}

type replaceCellResponse struct {
	Replacement string         `json:"replacement"`
	Snapshot    bingo.Snapshot `json:"snapshot"`
}

func (s *Server) replaceCell(w http.ResponseWriter, r *http.Request) {
	game, ok := s.registry.Get(chi.URLParam(r, "game_id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "game not found")
		return
	}
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "position must be an integer")
		return
	}
	repl, err := game.Controller.ReplaceCell(r.Context(), position)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, replaceCellResponse{
		Replacement: repl,
		Snapshot:    game.Snapshot(),
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the websocket upgrade reach the underlying connection.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacker not supported")
	}
	conn, buf, err := h.Hijack()
	if err != nil {
		return nil, nil, fmt.Errorf("hijack connection: %w", err)
	}
	return conn, buf, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
