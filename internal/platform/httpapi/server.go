// Package httpapi exposes the arena coordinator over HTTP: starting and
// listing matches, blocking reads of single turns and a websocket stream
// of every turn of a match.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/robot-arena/internal/arena"
	"github.com/vovakirdan/robot-arena/internal/game"
	"github.com/vovakirdan/robot-arena/internal/registry"
	"github.com/vovakirdan/robot-arena/internal/storage"
)

// ResultStore lists stored match results.
type ResultStore interface {
	RecentMatches(limit int) ([]storage.MatchRecord, error)
}

// Server serves the arena API.
type Server struct {
	coord    *arena.Coordinator
	results  ResultStore // optional
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// New creates an API server. results may be nil.
func New(coord *arena.Coordinator, results ResultStore, logger *log.Logger) *Server {
	return &Server{
		coord:   coord,
		results: results,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/agents", s.handleAgents).Methods(http.MethodGet)
	r.HandleFunc("/results", s.handleResults).Methods(http.MethodGet)
	r.HandleFunc("/matches", s.handleStartMatch).Methods(http.MethodPost)
	r.HandleFunc("/matches", s.handleListMatches).Methods(http.MethodGet)
	r.HandleFunc("/matches/{id}", s.handleGetMatch).Methods(http.MethodGet)
	r.HandleFunc("/matches/{id}", s.handleStopMatch).Methods(http.MethodDelete)
	r.HandleFunc("/matches/{id}/turns/{turn:-?[0-9]+}", s.handleTurn).Methods(http.MethodGet)
	r.HandleFunc("/matches/{id}/stream", s.handleStream).Methods(http.MethodGet)
	return r
}

// TurnResponse is the body of a turn read.
type TurnResponse struct {
	MatchID string            `json:"match_id"`
	Turn    int               `json:"turn"`
	Records []game.TurnRecord `json:"records"`
}

// StreamMessage wraps every websocket frame.
type StreamMessage struct {
	Type string             `json:"type"`
	Data arena.SessionEvent `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "matches": s.coord.MatchCount()})
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, registry.List())
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		writeError(w, http.StatusNotFound, "no result store configured")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.results.RecentMatches(limit)
	if err != nil {
		s.logger.Error("cannot list results", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleStartMatch(w http.ResponseWriter, r *http.Request) {
	var req arena.MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Agent1 == "" || req.Agent2 == "" {
		writeError(w, http.StatusBadRequest, "agent1 and agent2 are required")
		return
	}
	if !registry.Exists(req.Agent1) || !registry.Exists(req.Agent2) {
		writeError(w, http.StatusBadRequest, "unknown agent")
		return
	}
	m, err := s.coord.StartMatch(req)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, m.Info())
}

func (s *Server) handleListMatches(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.List())
}

func (s *Server) match(w http.ResponseWriter, r *http.Request) (*arena.Match, bool) {
	m, ok := s.coord.GetMatch(arena.MatchID(mux.Vars(r)["id"]))
	if !ok {
		writeError(w, http.StatusNotFound, "match not found")
	}
	return m, ok
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	if m, ok := s.match(w, r); ok {
		writeJSON(w, http.StatusOK, m.Info())
	}
}

func (s *Server) handleStopMatch(w http.ResponseWriter, r *http.Request) {
	if m, ok := s.match(w, r); ok {
		m.Stop()
		writeJSON(w, http.StatusAccepted, m.Info())
	}
}

// handleTurn blocks until the turn has been played. A client that hangs
// up abandons the read; the match keeps running.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	m, ok := s.match(w, r)
	if !ok {
		return
	}
	turn, err := strconv.Atoi(mux.Vars(r)["turn"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid turn")
		return
	}

	records, err := m.Game().ActionsOnTurn(r.Context(), turn)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		var failed *game.RunFailedError
		if errors.As(err, &failed) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	clamped := min(max(turn, 0), m.Game().Settings().MaxTurns)
	writeJSON(w, http.StatusOK, TurnResponse{
		MatchID: string(m.ID()),
		Turn:    clamped,
		Records: records.Sorted(),
	})
}

// handleStream upgrades to a websocket and forwards every match event
// until the match ends or the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	m, ok := s.match(w, r)
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	session := arena.NewChannelSession(arena.SessionID("ws-"+uuid.NewString()), 256)
	defer func() {
		session.Close()
		m.Unsubscribe(session.ID())
	}()
	m.Subscribe(session)

	// The client sends nothing; reading only notices it going away.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		evt, err := session.Next(ctx, m)
		if err != nil {
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(StreamMessage{Type: arena.EventType(evt), Data: evt}); err != nil {
			s.logger.Debug("stream write failed", "match", m.ID(), "error", err)
			return
		}
		if _, ended := evt.(arena.MatchEndedEvent); ended {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "match ended"),
				time.Now().Add(time.Second))
			return
		}
	}
}
