// Package testutil provides a scripted in-process game server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/XiaoConstantine/bouncer-go/pkg/game"
)

// ServerConfig scripts one venue scenario.
type ServerConfig struct {
	Capacity      int
	MaxRejections int
	Constraints   []game.ConstraintSpec
	// Frequencies is the chance each attribute appears on an arrival.
	Frequencies map[string]float64
	// Seed makes the arrival stream reproducible.
	Seed int64
}

// Server simulates the venue API over HTTP: it hands out one candidate at a
// time and applies the same terminal rules as the real server.
type Server struct {
	*httptest.Server

	cfg ServerConfig

	mu    sync.Mutex
	games map[string]*session
}

type session struct {
	rng         *rand.Rand
	personIndex int
	accepted    int
	rejected    int
	admitted    map[string]int
	current     game.Candidate
}

// NewServer starts a scripted venue server. The caller owns shutdown via
// Close.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		cfg:   cfg,
		games: make(map[string]*session),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/new-game", s.handleNewGame)
	mux.HandleFunc("/decide-and-next", s.handleDecideAndNext)
	s.Server = httptest.NewServer(mux)
	return s
}

// Games returns the number of sessions started.
func (s *Server) Games() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.games)
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gameID := uuid.NewString()
	s.games[gameID] = &session{
		rng:      rand.New(rand.NewSource(s.cfg.Seed)),
		admitted: make(map[string]int),
	}

	writeJSON(w, map[string]any{
		"gameId":      gameID,
		"constraints": s.cfg.Constraints,
		"attributeStatistics": map[string]any{
			"relativeFrequencies": s.cfg.Frequencies,
			"correlations":        map[string]any{},
		},
	})
}

func (s *Server) handleDecideAndNext(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.games[r.URL.Query().Get("gameId")]
	if !ok {
		http.Error(w, "unknown game", http.StatusNotFound)
		return
	}

	if acceptParam := r.URL.Query().Get("accept"); acceptParam != "" {
		accept, err := strconv.ParseBool(acceptParam)
		if err != nil {
			http.Error(w, "bad accept value", http.StatusBadRequest)
			return
		}
		s.applyDecision(sess, accept)
	}

	if sess.accepted >= s.cfg.Capacity {
		if s.unmetConstraint(sess) != "" {
			writeJSON(w, map[string]any{
				"status": "failed",
				"reason": fmt.Sprintf("capacity reached with %s unmet", s.unmetConstraint(sess)),
			})
			return
		}
		writeJSON(w, map[string]any{
			"status":        "completed",
			"rejectedCount": sess.rejected,
		})
		return
	}
	if sess.rejected > s.cfg.MaxRejections {
		writeJSON(w, map[string]any{
			"status": "failed",
			"reason": "rejection limit exceeded",
		})
		return
	}

	sess.current = s.nextCandidate(sess)
	index := sess.personIndex
	sess.personIndex++
	writeJSON(w, map[string]any{
		"status": "running",
		"nextPerson": map[string]any{
			"personIndex": index,
			"attributes":  sess.current,
		},
	})
}

func (s *Server) applyDecision(sess *session, accept bool) {
	if !accept {
		sess.rejected++
		return
	}
	sess.accepted++
	for attr, has := range sess.current {
		if has {
			sess.admitted[attr]++
		}
	}
}

func (s *Server) unmetConstraint(sess *session) string {
	for _, c := range s.cfg.Constraints {
		if sess.admitted[c.Attribute] < c.MinCount {
			return c.Attribute
		}
	}
	return ""
}

// nextCandidate draws attributes in sorted order so a fixed seed yields a
// reproducible arrival stream.
func (s *Server) nextCandidate(sess *session) game.Candidate {
	attrs := make([]string, 0, len(s.cfg.Frequencies))
	for attr := range s.cfg.Frequencies {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	cand := make(game.Candidate, len(attrs))
	for _, attr := range attrs {
		cand[attr] = sess.rng.Float64() < s.cfg.Frequencies[attr]
	}
	return cand
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
