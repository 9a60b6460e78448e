// Package calculator ties the expression editor, the evaluator and the word
// problem solver into one calculator session.
package calculator

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/andywolf/nebulacalc/internal/editor"
	"github.com/andywolf/nebulacalc/internal/expr"
	"github.com/andywolf/nebulacalc/internal/security"
	"github.com/andywolf/nebulacalc/internal/solver"
	"github.com/google/uuid"
)

const (
	// Placeholder is shown when the buffer is empty.
	Placeholder = "0"

	// FailureMessage is shown when a word problem could not be solved.
	FailureMessage = "Failed to solve. Please try again."

	// EmptyProblemMessage is shown when the problem text is blank.
	EmptyProblemMessage = "Please enter a problem."

	// BusyMessage is shown when a solve is already running.
	BusyMessage = "Already solving, please wait."

	defaultHistorySize = 50
)

var (
	// ErrSolveInProgress rejects a solve while another is in flight.
	ErrSolveInProgress = errors.New("a word problem is already being solved")

	// ErrNoSolver is returned when the session has no completion service.
	ErrNoSolver = errors.New("word problem solver is not configured")
)

// Solver converts a word problem into an expression.
type Solver interface {
	Solve(ctx context.Context, problem string) (string, error)
}

// Entry is one successful evaluation.
type Entry struct {
	Expression string
	Result     string
	AngleMode  expr.AngleMode
}

// State is a point-in-time view of a session.
type State struct {
	ID        string
	Buffer    string
	Display   string
	AngleMode expr.AngleMode
	Solving   bool
}

// Session is one calculator: an editor buffer, its display and an optional
// word problem solver. All methods are safe for concurrent use. Writers to the
// buffer are serialized; the last one wins.
type Session struct {
	id       string
	editor   *editor.Editor
	solver   Solver
	source   string
	logger   *log.Logger
	scrubber *security.Scrubber

	mu          sync.Mutex
	message     string
	history     []Entry
	historySize int

	solving atomic.Bool
}

// Option configures a Session.
type Option func(*Session)

// WithSolver enables SolveWordProblem.
func WithSolver(s Solver) Option {
	return func(sess *Session) {
		sess.solver = s
	}
}

// WithAngleMode sets the starting angle mode.
func WithAngleMode(mode expr.AngleMode) Option {
	return func(sess *Session) {
		if mode == expr.Degrees {
			sess.editor.ToggleAngleMode()
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(sess *Session) {
		sess.logger = logger
	}
}

// WithSource tags solver traces with the calling surface ("cli", "tui", "http").
func WithSource(source string) Option {
	return func(sess *Session) {
		sess.source = source
	}
}

// WithHistorySize bounds the evaluation history.
func WithHistorySize(n int) Option {
	return func(sess *Session) {
		if n > 0 {
			sess.historySize = n
		}
	}
}

// NewSession creates a session with an empty buffer in radians.
func NewSession(opts ...Option) *Session {
	s := &Session{
		id:          uuid.New().String(),
		logger:      log.New(io.Discard, "", 0),
		scrubber:    security.NewScrubber(),
		historySize: defaultHistorySize,
	}
	s.editor = editor.New(editor.WithOnChange(func(string) { s.setMessage("") }))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Editor exposes the underlying buffer.
func (s *Session) Editor() *editor.Editor {
	return s.editor
}

// Press handles a calculator button by its label.
func (s *Session) Press(label string) {
	switch label {
	case "sin", "cos", "tan", "log", "ln":
		s.editor.AppendFunction(label)
	case "√":
		s.editor.AppendFunction("sqrt")
	case "π", "e":
		s.editor.AppendConstant(label)
	case "AC":
		s.editor.Clear()
	case "C":
		s.editor.Backspace()
	case "xʸ":
		s.editor.Append("^")
	case "÷":
		s.editor.Append("/")
	case "×":
		s.editor.Append("*")
	case "=":
		s.Evaluate()
	default:
		s.editor.Append(label)
	}
}

// Key handles a keyboard key name and reports whether it was recognized.
func (s *Session) Key(key string) bool {
	switch {
	case len(key) == 1 && (key[0] >= '0' && key[0] <= '9' || strings.ContainsRune(".()+-*/%^", rune(key[0]))):
		s.editor.Append(key)
	case key == "Enter" || key == "=":
		s.Evaluate()
	case key == "Backspace":
		s.editor.Backspace()
	case key == "c" || key == "C" || key == "Escape":
		s.editor.Clear()
	default:
		return false
	}
	return true
}

// Evaluate runs the buffer through the evaluator. An empty buffer is left
// alone and reported as not evaluated. A number replaces the buffer; any
// failure clears it and shows the failure message.
func (s *Session) Evaluate() (expr.Outcome, bool) {
	buffer := s.editor.Buffer()
	if buffer == "" {
		return expr.Outcome{}, false
	}

	mode := s.editor.AngleMode()
	out := expr.Evaluate(buffer, mode)
	if out.OK() {
		s.editor.Replace(out.Value)
		s.record(Entry{Expression: buffer, Result: out.Value, AngleMode: mode})
		return out, true
	}

	s.logger.Printf("Warning: session %s: %q did not evaluate: %s", s.id, expr.SanitizeNumbers(buffer), out.Kind)
	s.editor.Clear()
	s.setMessage(out.Message())
	return out, true
}

// SolveWordProblem asks the solver for an expression and, on success,
// replaces the buffer with it unevaluated. On failure the buffer is left as
// it was. Only one solve runs at a time.
func (s *Session) SolveWordProblem(ctx context.Context, problem string) (string, error) {
	if s.solver == nil {
		return "", ErrNoSolver
	}
	if strings.TrimSpace(problem) == "" {
		return "", solver.ErrEmptyProblem
	}
	if !s.solving.CompareAndSwap(false, true) {
		return "", ErrSolveInProgress
	}
	defer s.solving.Store(false)

	ctx = solver.WithTraceInfo(ctx, solver.TraceInfo{SessionID: s.id, Source: s.source})
	expression, err := s.solver.Solve(ctx, problem)
	if err != nil {
		s.logger.Printf("Warning: session %s: word problem failed: %s", s.id, s.scrubber.ScrubError(err))
		return "", err
	}

	s.editor.Replace(expression)
	return expression, nil
}

// Solving reports whether a word problem is in flight.
func (s *Session) Solving() bool {
	return s.solving.Load()
}

// ToggleAngleMode flips RAD/DEG and returns the new mode.
func (s *Session) ToggleAngleMode() expr.AngleMode {
	return s.editor.ToggleAngleMode()
}

// AngleMode returns the current angle mode.
func (s *Session) AngleMode() expr.AngleMode {
	return s.editor.AngleMode()
}

// Display returns the text for the display: a failure message, the rendered
// buffer, or the placeholder.
func (s *Session) Display() string {
	s.mu.Lock()
	msg := s.message
	s.mu.Unlock()
	if msg != "" {
		return msg
	}
	if r := s.editor.Render(); r != "" {
		return r
	}
	return Placeholder
}

// History returns successful evaluations, oldest first.
func (s *Session) History() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.history))
	copy(out, s.history)
	return out
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	return State{
		ID:        s.id,
		Buffer:    s.editor.Buffer(),
		Display:   s.Display(),
		AngleMode: s.editor.AngleMode(),
		Solving:   s.Solving(),
	}
}

func (s *Session) setMessage(msg string) {
	s.mu.Lock()
	s.message = msg
	s.mu.Unlock()
}

func (s *Session) record(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, e)
	if over := len(s.history) - s.historySize; over > 0 {
		s.history = append(s.history[:0:0], s.history[over:]...)
	}
}

// StatusMessage maps a SolveWordProblem error to user-facing text.
func StatusMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, solver.ErrEmptyProblem):
		return EmptyProblemMessage
	case errors.Is(err, ErrSolveInProgress):
		return BusyMessage
	default:
		return FailureMessage
	}
}
