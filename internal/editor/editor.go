// Package editor holds the calculator's canonical expression buffer and its
// display projection.
package editor

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/andywolf/nebulacalc/internal/expr"
)

// display maps canonical operator spellings to the glyphs shown on screen.
// The substitution is textual: any "sqrt" in the buffer renders as "√".
var display = strings.NewReplacer("*", "×", "/", "÷", "sqrt", "√")

// Render projects a canonical buffer onto its display form.
func Render(buffer string) string {
	return display.Replace(buffer)
}

// Editor owns the expression buffer and the angle mode. All mutation goes
// through its methods; it is safe for concurrent use. Concurrent writers are
// last-writer-wins, there is no ordering between them.
type Editor struct {
	mu       sync.Mutex
	buffer   string
	mode     expr.AngleMode
	onChange func(buffer string)
}

// Option configures an Editor.
type Option func(*Editor)

// WithAngleMode sets the starting angle mode.
func WithAngleMode(mode expr.AngleMode) Option {
	return func(e *Editor) {
		e.mode = mode
	}
}

// WithOnChange registers a callback invoked after every buffer mutation with
// the new canonical buffer. It runs outside the editor lock.
func WithOnChange(fn func(buffer string)) Option {
	return func(e *Editor) {
		e.onChange = fn
	}
}

// New creates an empty editor in radians mode unless overridden.
func New(opts ...Option) *Editor {
	e := &Editor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Append adds raw text to the buffer. No syntax checking happens here.
func (e *Editor) Append(token string) {
	e.mutate(func(b string) string { return b + token })
}

// AppendFunction opens a call, e.g. "sin(". The closing parenthesis is left
// for the user to supply.
func (e *Editor) AppendFunction(name string) {
	e.Append(name + "(")
}

// AppendConstant appends a constant symbol such as "π" or "e". It is resolved
// to a number only at evaluation.
func (e *Editor) AppendConstant(symbol string) {
	e.Append(symbol)
}

// Backspace removes the last character of the canonical buffer. It is a no-op
// on an empty buffer.
func (e *Editor) Backspace() {
	e.mutate(func(b string) string {
		if b == "" {
			return b
		}
		_, size := utf8.DecodeLastRuneInString(b)
		return b[:len(b)-size]
	})
}

// Clear empties the buffer.
func (e *Editor) Clear() {
	e.Replace("")
}

// Replace swaps the whole buffer for text.
func (e *Editor) Replace(text string) {
	e.mutate(func(string) string { return text })
}

// Buffer returns the canonical buffer.
func (e *Editor) Buffer() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer
}

// Render returns the display projection of the current buffer.
func (e *Editor) Render() string {
	return Render(e.Buffer())
}

// AngleMode returns the current angle mode.
func (e *Editor) AngleMode() expr.AngleMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// ToggleAngleMode flips between radians and degrees and returns the new
// mode. The buffer is not touched.
func (e *Editor) ToggleAngleMode() expr.AngleMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = e.mode.Toggle()
	return e.mode
}

func (e *Editor) mutate(fn func(string) string) {
	e.mu.Lock()
	e.buffer = fn(e.buffer)
	b := e.buffer
	onChange := e.onChange
	e.mu.Unlock()

	if onChange != nil {
		onChange(b)
	}
}
