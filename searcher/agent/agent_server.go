package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"contrast/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Server exposes an agent over HTTP. Searches are serialized because an
// agent's search tree is not safe for concurrent use. A request that does
// not continue the previous one (its ply is not higher) resets the agent.
type Server struct {
	mu       sync.Mutex
	agent    Agent
	lastPly  int
	maxPlies int
	router   chi.Router
}

// NewServer routes POST /findmove to agent. maxPlies is the ply cap of the
// rebuilt states.
func NewServer(agent Agent, maxPlies int) *Server {
	s := &Server{agent: agent, lastPly: -1, maxPlies: maxPlies}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(func(next http.Handler) http.Handler {
		return AccessLog(log.Logger, next)
	})
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Post("/findmove", s.handleFindMove)

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// StartAgentServer serves agent on addr until ctx is done.
func StartAgentServer(ctx context.Context, addr string, agent Agent, maxPlies int) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewServer(agent, maxPlies).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info().Msgf("starting agent server on %s", addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Msg("stopping agent server")
		if err := srv.Shutdown(shutdown); err != nil {
			return err
		}
		if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleFindMove(w http.ResponseWriter, r *http.Request) {
	var payload FindActionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad request: " + err.Error()})
		return
	}
	state, err := payload.State(game.WithMaxPlies(s.maxPlies))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if state.Over() {
		writeJSON(w, http.StatusConflict, errorResponse{Error: game.ErrGameOver.Error()})
		return
	}

	s.mu.Lock()
	if resetter, ok := s.agent.(Resetter); ok && state.Ply <= s.lastPly {
		resetter.Reset()
	}
	s.lastPly = state.Ply
	action, metric, err := s.agent.FindAction(r.Context(), state)
	s.mu.Unlock()
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("search failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "search failed: " + err.Error()})
		return
	}

	resp := FindActionResponse{
		Action:      action.String(),
		Index:       int32(action),
		Simulations: metric.Simulations,
		DurationMs:  metric.Duration.Milliseconds(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
