// Package server exposes calculator sessions over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/andywolf/nebulacalc/internal/calculator"
	"github.com/andywolf/nebulacalc/internal/cloud/gcp"
	"github.com/andywolf/nebulacalc/internal/expr"
	"github.com/andywolf/nebulacalc/internal/security"
	"github.com/andywolf/nebulacalc/internal/solver"
)

const (
	maxRequestBody = 64 << 10

	// maxBufferLen caps how far presses and keys can grow a session buffer.
	maxBufferLen = 4 << 10
)

// Server routes API requests to calculator sessions.
type Server struct {
	store    *Store
	limiter  *security.RateLimiter
	logger   gcp.Logger
	scrubber *security.Scrubber
	mux      *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimiter limits solve requests per client IP.
func WithRateLimiter(rl *security.RateLimiter) Option {
	return func(s *Server) {
		s.limiter = rl
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger gcp.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a Server over store.
func New(store *Store, opts ...Option) *Server {
	s := &Server{
		store:    store,
		scrubber: security.NewScrubber(),
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	var solve http.Handler = http.HandlerFunc(s.handleSolve)
	if s.limiter != nil {
		solve = s.limiter.Middleware(security.IPKeyFunc)(solve)
	}

	s.mux.HandleFunc("POST /api/v1/evaluate", s.handleEvaluate)
	s.mux.HandleFunc("POST /api/v1/sessions", s.handleCreate)
	s.mux.HandleFunc("GET /api/v1/sessions/{id}", s.withSession(s.handleGet))
	s.mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.handleDelete)
	s.mux.HandleFunc("POST /api/v1/sessions/{id}/press", s.withSession(s.handlePress))
	s.mux.HandleFunc("POST /api/v1/sessions/{id}/keys", s.withSession(s.handleKey))
	s.mux.HandleFunc("POST /api/v1/sessions/{id}/angle", s.withSession(s.handleAngle))
	s.mux.HandleFunc("GET /api/v1/sessions/{id}/history", s.withSession(s.handleHistory))
	s.mux.Handle("POST /api/v1/sessions/{id}/solve", solve)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log(gcp.SeverityInfo, "server listening", map[string]interface{}{"addr": addr})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

type sessionResponse struct {
	ID        string `json:"id"`
	Buffer    string `json:"buffer"`
	Display   string `json:"display"`
	AngleMode string `json:"angle_mode"`
	Solving   bool   `json:"solving"`
}

type evaluateRequest struct {
	Expression string `json:"expression"`
	AngleMode  string `json:"angle_mode"`
}

type evaluateResponse struct {
	Kind    string `json:"kind"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

type pressRequest struct {
	Label string `json:"label"`
}

type keyRequest struct {
	Key string `json:"key"`
}

type solveRequest struct {
	Problem string `json:"problem"`
}

type solveResponse struct {
	Expression string          `json:"expression"`
	Session    sessionResponse `json:"session"`
}

type historyEntry struct {
	Expression string `json:"expression"`
	Result     string `json:"result"`
	AngleMode  string `json:"angle_mode"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toSessionResponse(st calculator.State) sessionResponse {
	return sessionResponse{
		ID:        st.ID,
		Buffer:    st.Buffer,
		Display:   st.Display,
		AngleMode: st.AngleMode.String(),
		Solving:   st.Solving,
	}
}

func (s *Server) withSession(fn func(http.ResponseWriter, *http.Request, *calculator.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.store.Get(r.PathValue("id"))
		if !ok {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		fn(w, r, sess)
	}
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mode, err := expr.ParseAngleMode(req.AngleMode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Expression == "" {
		writeError(w, http.StatusBadRequest, "expression is required")
		return
	}

	out := expr.Evaluate(req.Expression, mode)
	writeJSON(w, http.StatusOK, evaluateResponse{
		Kind:    out.Kind.String(),
		Value:   out.Value,
		Message: out.Message(),
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, _ *http.Request) {
	sess, err := s.store.Create()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.log(gcp.SeverityInfo, "session created", map[string]interface{}{
		"session_id":      sess.ID(),
		"active_sessions": s.store.Len(),
	})
	writeJSON(w, http.StatusCreated, toSessionResponse(sess.Snapshot()))
}

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request, sess *calculator.Session) {
	writeJSON(w, http.StatusOK, toSessionResponse(sess.Snapshot()))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.store.Delete(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePress(w http.ResponseWriter, r *http.Request, sess *calculator.Session) {
	var req pressRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}
	if labelGrowsBuffer(req.Label) && bufferFull(sess) {
		writeError(w, http.StatusRequestEntityTooLarge, "expression is too long")
		return
	}
	sess.Press(req.Label)
	writeJSON(w, http.StatusOK, toSessionResponse(sess.Snapshot()))
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request, sess *calculator.Session) {
	var req keyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if keyGrowsBuffer(req.Key) && bufferFull(sess) {
		writeError(w, http.StatusRequestEntityTooLarge, "expression is too long")
		return
	}
	// Unknown keys are ignored, as on a keyboard.
	sess.Key(req.Key)
	writeJSON(w, http.StatusOK, toSessionResponse(sess.Snapshot()))
}

func bufferFull(sess *calculator.Session) bool {
	return len(sess.Editor().Buffer()) >= maxBufferLen
}

// labelGrowsBuffer reports whether pressing label appends to the buffer.
// Evaluate, clear and backspace stay available on a full buffer.
func labelGrowsBuffer(label string) bool {
	switch label {
	case "=", "AC", "C":
		return false
	}
	return true
}

func keyGrowsBuffer(key string) bool {
	switch key {
	case "=", "c", "C":
		return false
	}
	return len(key) == 1
}

func (s *Server) handleAngle(w http.ResponseWriter, _ *http.Request, sess *calculator.Session) {
	sess.ToggleAngleMode()
	writeJSON(w, http.StatusOK, toSessionResponse(sess.Snapshot()))
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request, sess *calculator.Session) {
	history := sess.History()
	out := make([]historyEntry, 0, len(history))
	for _, e := range history {
		out = append(out, historyEntry{Expression: e.Expression, Result: e.Result, AngleMode: e.AngleMode.String()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var req solveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	expression, err := sess.SolveWordProblem(r.Context(), req.Problem)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, solver.ErrEmptyProblem):
			status = http.StatusBadRequest
		case errors.Is(err, calculator.ErrSolveInProgress):
			status = http.StatusConflict
		case errors.Is(err, calculator.ErrNoSolver):
			status = http.StatusServiceUnavailable
		default:
			s.log(gcp.SeverityWarning, "word problem failed", map[string]interface{}{
				"session_id": sess.ID(),
				"error":      s.scrubber.ScrubError(err),
			})
		}
		writeError(w, status, calculator.StatusMessage(err))
		return
	}

	s.log(gcp.SeverityInfo, "word problem solved", map[string]interface{}{"session_id": sess.ID()})
	writeJSON(w, http.StatusOK, solveResponse{
		Expression: expression,
		Session:    toSessionResponse(sess.Snapshot()),
	})
}

func (s *Server) log(severity gcp.Severity, msg string, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.Log(severity, msg, fields)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
