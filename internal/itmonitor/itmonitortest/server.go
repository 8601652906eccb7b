// Package itmonitortest provides an in-process fake of the aggregator API.
package itmonitortest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/glabrego/itmonitor-cli/internal/itmonitor"
)

// Server serves /api/feeds/* and /api/admin/force-fetch from mutable fixtures.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	status     itmonitor.Status
	categories map[string]string
	entries    []itmonitor.Entry
	failing    map[string]int

	// LatestGate, when set, is received from before /latest answers.
	LatestGate chan struct{}

	latestCalls atomic.Int32
	forceCalls  atomic.Int32
	lastLimit   atomic.Int32
}

func NewServer() *Server {
	s := &Server{
		categories: make(map[string]string),
		failing:    make(map[string]int),
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/feeds/status", s.handleStatus)
		r.Get("/feeds/categories", s.handleCategories)
		r.Get("/feeds/latest", s.handleLatest)
		r.Post("/admin/force-fetch", s.handleForceFetch)
	})
	s.Server = httptest.NewServer(r)
	return s
}

func (s *Server) SetStatus(status itmonitor.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *Server) SetCategories(categories map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = categories
}

func (s *Server) SetEntries(entries []itmonitor.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]itmonitor.Entry(nil), entries...)
}

// Fail makes the next n requests to endpoint ("status", "categories",
// "latest", "force-fetch") answer with a 500 error envelope.
func (s *Server) Fail(endpoint string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[endpoint] = n
}

func (s *Server) LatestCalls() int { return int(s.latestCalls.Load()) }
func (s *Server) ForceCalls() int  { return int(s.forceCalls.Load()) }
func (s *Server) LastLimit() int   { return int(s.lastLimit.Load()) }

func (s *Server) shouldFail(endpoint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing[endpoint] > 0 {
		s.failing[endpoint]--
		return true
	}
	return false
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.shouldFail("status") {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Internal server error"})
		return
	}
	s.mu.Lock()
	status := s.status
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": status})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if s.shouldFail("categories") {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Internal server error"})
		return
	}
	s.mu.Lock()
	out := make(map[string]map[string]string, len(s.categories))
	for key, name := range s.categories {
		out[key] = map[string]string{"name": name}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "categories": out})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	s.latestCalls.Add(1)
	if s.LatestGate != nil {
		<-s.LatestGate
	}
	if s.shouldFail("latest") {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Internal server error"})
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = itmonitor.DefaultLatestLimit
	}
	s.lastLimit.Store(int32(limit))

	s.mu.Lock()
	entries := s.entries
	if len(entries) > limit {
		entries = entries[:limit]
	}
	entries = append([]itmonitor.Entry(nil), entries...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "entries": entries, "count": len(entries)})
}

func (s *Server) handleForceFetch(w http.ResponseWriter, r *http.Request) {
	s.forceCalls.Add(1)
	if s.shouldFail("force-fetch") {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Fetch failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Fetch completed"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
