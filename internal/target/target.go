// Package target provides a local HTTP server to point runs at. Its
// endpoints answer with configurable latency and failures so reporters can
// be tried without a real system under test.
package target

import (
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Server is the target's handler set.
type Server struct {
	mux    *http.ServeMux
	logger *zap.Logger

	requests atomic.Int64
	mu       sync.Mutex
	messages map[string]int
}

func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		messages: make(map[string]int),
	}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/status/", s.handleStatus)
	s.mux.HandleFunc("/delay/", s.handleDelay)
	s.mux.HandleFunc("/random-delay", s.handleRandomDelay)
	s.mux.HandleFunc("/fail-rate", s.handleFailRate)
	s.mux.HandleFunc("/echo", s.handleEcho)
	s.mux.HandleFunc("/messages/", s.handleMessage)
	return s
}

// Handler returns the server's handler. Every request is counted.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		s.logger.Debug("Request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		s.mux.ServeHTTP(w, r)
	})
}

// Requests returns the number of requests served.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// Messages returns how often each message id was received on /messages/{id}.
func (s *Server) Messages() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.messages))
	for k, v := range s.messages {
		out[k] = v
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

// handleStatus answers GET /status/{code} with that code.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/status/"))
	if err != nil || code < 100 || code > 599 {
		http.Error(w, "invalid status code", http.StatusBadRequest)
		return
	}
	w.WriteHeader(code)
	fmt.Fprintf(w, "%d %s", code, http.StatusText(code))
}

// handleDelay answers GET /delay/{ms} after ms milliseconds.
func (s *Server) handleDelay(w http.ResponseWriter, r *http.Request) {
	ms, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/delay/"))
	if err != nil || ms < 0 {
		http.Error(w, "invalid delay", http.StatusBadRequest)
		return
	}
	if !sleep(r, time.Duration(ms)*time.Millisecond) {
		return
	}
	fmt.Fprintf(w, "delayed %dms", ms)
}

// handleRandomDelay waits a random time in [min, max) milliseconds.
func (s *Server) handleRandomDelay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lo, err := strconv.Atoi(q.Get("min"))
	if err != nil || lo < 0 {
		lo = 0
	}
	hi, err := strconv.Atoi(q.Get("max"))
	if err != nil || hi < lo {
		hi = lo + 100
	}
	delay := lo
	if hi > lo {
		delay += rand.Intn(hi - lo)
	}
	if !sleep(r, time.Duration(delay)*time.Millisecond) {
		return
	}
	fmt.Fprintf(w, "delayed %dms", delay)
}

// handleFailRate fails ?rate= percent of requests with 500.
func (s *Server) handleFailRate(w http.ResponseWriter, r *http.Request) {
	rate, err := strconv.Atoi(r.URL.Query().Get("rate"))
	if err != nil || rate < 0 || rate > 100 {
		rate = 0
	}
	if rand.Intn(100) < rate {
		http.Error(w, "simulated failure", http.StatusInternalServerError)
		return
	}
	fmt.Fprint(w, "success")
}

func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusInternalServerError)
		return
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		ct = "text/plain"
	}
	w.Header().Set("Content-Type", ct)
	_, _ = w.Write(body)
}

// handleMessage records /messages/{id}, so duplicate or lost messages of a
// run show up in Messages.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/messages/")
	if id == "" {
		http.Error(w, "missing message id", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.messages[id]++
	s.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}

func sleep(r *http.Request, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.Context().Done():
		return false
	}
}
