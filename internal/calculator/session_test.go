package calculator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andywolf/nebulacalc/internal/expr"
	"github.com/andywolf/nebulacalc/internal/solver"
)

// stubSolver returns canned answers and counts calls.
type stubSolver struct {
	calls  int32
	result string
	err    error
	block  chan struct{}
	sawCtx context.Context
}

func (s *stubSolver) Solve(ctx context.Context, _ string) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	s.sawCtx = ctx
	if s.block != nil {
		<-s.block
	}
	return s.result, s.err
}

func pressAll(s *Session, labels ...string) {
	for _, l := range labels {
		s.Press(l)
	}
}

func TestSession_PressAndEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		labels  []string
		deg     bool
		display string
		buffer  string
	}{
		{name: "addition", labels: []string{"2", "+", "3", "="}, display: "5", buffer: "5"},
		{name: "glyph operators", labels: []string{"8", "÷", "2", "×", "3", "="}, display: "12", buffer: "12"},
		{name: "power button", labels: []string{"2", "xʸ", "10", "="}, display: "1024", buffer: "1024"},
		{name: "sqrt button", labels: []string{"√", "16", ")", "="}, display: "4", buffer: "4"},
		{name: "sin degrees", labels: []string{"sin", "30", ")", "="}, deg: true, display: "0.5", buffer: "0.5"},
		{name: "division by zero", labels: []string{"1", "÷", "0", "="}, display: "TOO BIG!", buffer: ""},
		{name: "negative division by zero", labels: []string{"-", "1", "÷", "0", "="}, display: "TOO SMALL!", buffer: ""},
		{name: "sqrt negative", labels: []string{"√", "-", "1", ")", "="}, display: "Error", buffer: ""},
		{name: "syntax error", labels: []string{"2", "+", "="}, display: "Error", buffer: ""},
		{name: "tan 90 degrees", labels: []string{"tan", "90", ")", "="}, deg: true, display: "TOO BIG!", buffer: ""},
		{name: "clear", labels: []string{"1", "2", "AC"}, display: "0", buffer: ""},
		{name: "backspace", labels: []string{"1", "2", "C"}, display: "1", buffer: "1"},
		{name: "pending render", labels: []string{"2", "×", "π"}, display: "2×π", buffer: "2*π"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.deg {
				opts = append(opts, WithAngleMode(expr.Degrees))
			}
			s := NewSession(opts...)
			pressAll(s, tt.labels...)
			if got := s.Display(); got != tt.display {
				t.Errorf("Display() = %q, want %q", got, tt.display)
			}
			if got := s.Editor().Buffer(); got != tt.buffer {
				t.Errorf("Buffer() = %q, want %q", got, tt.buffer)
			}
		})
	}
}

func TestSession_EvaluateEmptyIsNoOp(t *testing.T) {
	s := NewSession()
	if _, evaluated := s.Evaluate(); evaluated {
		t.Error("empty buffer should not be evaluated")
	}
	if got := s.Display(); got != Placeholder {
		t.Errorf("Display() = %q, want placeholder", got)
	}

	// An error message stays up when "=" is pressed again on the empty buffer.
	pressAll(s, "1", "÷", "0", "=", "=")
	if got := s.Display(); got != expr.MessageTooLarge {
		t.Errorf("Display() = %q, want %q", got, expr.MessageTooLarge)
	}
}

func TestSession_FailedEvaluationLogsSanitizedExpression(t *testing.T) {
	var buf bytes.Buffer
	s := NewSession(WithLogger(log.New(&buf, "", 0)))
	s.Editor().Append("007+*2")

	if out, _ := s.Evaluate(); out.OK() {
		t.Fatalf("Evaluate() = %+v, want failure", out)
	}
	got := buf.String()
	if !strings.Contains(got, `"7+*2"`) {
		t.Errorf("log = %q, want the sanitized expression", got)
	}
	if !strings.HasPrefix(got, "Warning:") {
		t.Errorf("log = %q, want a warning", got)
	}
}

func TestSession_MessageClearedByNextInput(t *testing.T) {
	s := NewSession()
	pressAll(s, "(", "=")
	if s.Display() != expr.MessageError {
		t.Fatalf("Display() = %q", s.Display())
	}
	s.Press("7")
	if got := s.Display(); got != "7" {
		t.Errorf("Display() = %q, want 7", got)
	}
}

func TestSession_ResultCanBeChained(t *testing.T) {
	s := NewSession()
	pressAll(s, "1", "0", "=", "×", "3", "=")
	if got := s.Display(); got != "30" {
		t.Errorf("Display() = %q, want 30", got)
	}
}

func TestSession_Key(t *testing.T) {
	s := NewSession()
	for _, k := range []string{"1", ".", "5", "*", "2", "Enter"} {
		if !s.Key(k) {
			t.Fatalf("Key(%q) not handled", k)
		}
	}
	if got := s.Display(); got != "3" {
		t.Errorf("Display() = %q, want 3", got)
	}

	for _, k := range []string{"x", "Tab", "ArrowLeft", "e"} {
		if s.Key(k) {
			t.Errorf("Key(%q) should be ignored", k)
		}
	}

	s.Key("9")
	s.Key("Backspace")
	if got := s.Editor().Buffer(); got != "3" {
		t.Errorf("Buffer() = %q after backspace", got)
	}

	for _, k := range []string{"c", "C", "Escape"} {
		s.Key("4")
		s.Key(k)
		if got := s.Editor().Buffer(); got != "" {
			t.Errorf("Key(%q) left buffer %q", k, got)
		}
	}
}

func TestSession_ToggleAngleModeKeepsBuffer(t *testing.T) {
	s := NewSession()
	pressAll(s, "sin", "90")
	if mode := s.ToggleAngleMode(); mode != expr.Degrees {
		t.Errorf("ToggleAngleMode() = %v", mode)
	}
	if got := s.Editor().Buffer(); got != "sin(90" {
		t.Errorf("Buffer() = %q", got)
	}
	pressAll(s, ")", "=")
	if got := s.Display(); got != "1" {
		t.Errorf("Display() = %q, want 1", got)
	}
}

func TestSession_History(t *testing.T) {
	s := NewSession(WithHistorySize(3))
	for i := 1; i <= 5; i++ {
		s.Editor().Replace(fmt.Sprintf("%d+%d", i, i))
		s.Evaluate()
	}
	s.Editor().Replace("1/0")
	s.Evaluate()

	h := s.History()
	if len(h) != 3 {
		t.Fatalf("len(History()) = %d, want 3", len(h))
	}
	if h[0].Expression != "3+3" || h[0].Result != "6" || h[2].Expression != "5+5" {
		t.Errorf("History() = %+v", h)
	}

	h[0].Result = "mutated"
	if s.History()[0].Result != "6" {
		t.Error("History() must return a copy")
	}
}

func TestSession_SolveReplacesBuffer(t *testing.T) {
	stub := &stubSolver{result: "(3+5)/2"}
	s := NewSession(WithSolver(stub), WithSource("tui"))
	pressAll(s, "9", "9")

	got, err := s.SolveWordProblem(context.Background(), "What is 3 plus 5 divided by 2?")
	if err != nil {
		t.Fatalf("SolveWordProblem() error = %v", err)
	}
	if got != "(3+5)/2" {
		t.Errorf("SolveWordProblem() = %q", got)
	}
	if b := s.Editor().Buffer(); b != "(3+5)/2" {
		t.Errorf("Buffer() = %q, want unevaluated expression", b)
	}
	if d := s.Display(); d != "(3+5)÷2" {
		t.Errorf("Display() = %q", d)
	}
	if len(s.History()) != 0 {
		t.Error("solve must not evaluate")
	}
}

func TestSession_SolveEmptyMakesNoCalls(t *testing.T) {
	stub := &stubSolver{result: "1"}
	s := NewSession(WithSolver(stub))

	_, err := s.SolveWordProblem(context.Background(), "   ")
	if !errors.Is(err, solver.ErrEmptyProblem) {
		t.Errorf("error = %v, want ErrEmptyProblem", err)
	}
	if stub.calls != 0 {
		t.Errorf("calls = %d, want 0", stub.calls)
	}
	if StatusMessage(err) != EmptyProblemMessage {
		t.Errorf("StatusMessage() = %q", StatusMessage(err))
	}
}

func TestSession_SolveWithoutSolver(t *testing.T) {
	s := NewSession()
	if _, err := s.SolveWordProblem(context.Background(), "x"); !errors.Is(err, ErrNoSolver) {
		t.Errorf("error = %v, want ErrNoSolver", err)
	}
}

func TestSession_SolveInProgressRejected(t *testing.T) {
	stub := &stubSolver{result: "1+1", block: make(chan struct{})}
	s := NewSession(WithSolver(stub))

	done := make(chan error, 1)
	go func() {
		_, err := s.SolveWordProblem(context.Background(), "first")
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !s.Solving() {
		if time.Now().After(deadline) {
			t.Fatal("first solve never started")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := s.SolveWordProblem(context.Background(), "second")
	if !errors.Is(err, ErrSolveInProgress) {
		t.Errorf("error = %v, want ErrSolveInProgress", err)
	}
	if !s.Snapshot().Solving {
		t.Error("Snapshot().Solving = false during solve")
	}

	close(stub.block)
	if err := <-done; err != nil {
		t.Fatalf("first solve error = %v", err)
	}
	if s.Solving() {
		t.Error("Solving() still true after completion")
	}
	if n := atomic.LoadInt32(&stub.calls); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestSession_SolveTagsTrace(t *testing.T) {
	stub := &stubSolver{result: "1"}
	s := NewSession(WithSolver(stub), WithSource("http"))
	if _, err := s.SolveWordProblem(context.Background(), "one"); err != nil {
		t.Fatal(err)
	}
	if stub.sawCtx == nil {
		t.Fatal("solver did not receive a context")
	}
}

// End to end through the real solver: every attempt fails, so the buffer
// must be exactly what it was before the solve.
func TestSession_AllRetriesFailLeavesBufferUnchanged(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	var waits []time.Duration
	sv := solver.New(solver.Config{Endpoint: server.URL},
		solver.WithSleep(func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		}),
	)
	s := NewSession(WithSolver(sv))
	pressAll(s, "4", "2", "×", "π")
	before := s.Editor().Buffer()

	_, err := s.SolveWordProblem(context.Background(), "something")
	var netErr *solver.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error = %v, want *solver.NetworkError", err)
	}
	if StatusMessage(err) != FailureMessage {
		t.Errorf("StatusMessage() = %q", StatusMessage(err))
	}
	if got := s.Editor().Buffer(); got != before {
		t.Errorf("Buffer() = %q, want %q", got, before)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
	if len(waits) != 2 || waits[0] < time.Second || waits[1] < 2*time.Second {
		t.Errorf("waits = %v", waits)
	}
}

func TestStatusMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{solver.ErrEmptyProblem, EmptyProblemMessage},
		{ErrSolveInProgress, BusyMessage},
		{io.EOF, FailureMessage},
	}
	for _, tt := range tests {
		if got := StatusMessage(tt.err); got != tt.want {
			t.Errorf("StatusMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
