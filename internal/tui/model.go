// Package tui is the terminal calculator: a button grid and display over a
// twinkling star field, with a modal for word problems.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andywolf/nebulacalc/internal/calculator"
	"github.com/andywolf/nebulacalc/internal/starfield"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	frameInterval = 50 * time.Millisecond
	ticksPerFrame = 3
	statusTimeout = 3 * time.Second

	buttonWidth  = 6
	displayWidth = 5 * buttonWidth
	historyLines = 3
	modalWidth   = 44

	solvingStatus = "Solving..."
)

// buttons is the calculator keypad, row by row.
var buttons = [][]string{
	{"sin", "cos", "tan", "log", "ln"},
	{"√", "π", "e", "(", ")"},
	{"7", "8", "9", "÷", "AC"},
	{"4", "5", "6", "×", "C"},
	{"1", "2", "3", "-", "xʸ"},
	{"0", ".", "%", "+", "="},
}

type frameMsg time.Time

type solveResultMsg struct {
	expression string
	err        error
}

type clearStatusMsg struct {
	seq int
}

// Model is the bubbletea model for one calculator session.
type Model struct {
	ctx     context.Context
	session *calculator.Session
	field   *starfield.Field
	th      theme
	animate bool

	width  int
	height int
	tick   float64

	row int
	col int

	modalOpen     bool
	input         textinput.Model
	solving       bool
	status        string
	statusIsError bool
	statusSeq     int

	quitting bool
}

// Option configures a Model.
type Option func(*Model)

// WithContext sets the context passed to word problem requests.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		m.ctx = ctx
	}
}

// WithField replaces the star field.
func WithField(f *starfield.Field) Option {
	return func(m *Model) {
		m.field = f
	}
}

// WithoutAnimation stops the star field from twinkling.
func WithoutAnimation() Option {
	return func(m *Model) {
		m.animate = false
	}
}

// New creates a model driving the given session.
func New(session *calculator.Session, opts ...Option) *Model {
	ti := textinput.New()
	ti.Placeholder = "A train covers 120 km in 1.5 hours. Average speed?"
	ti.CharLimit = 500
	ti.Width = modalWidth - 6

	m := &Model{
		ctx:     context.Background(),
		session: session,
		th:      defaultTheme(),
		animate: true,
		input:   ti,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.field == nil {
		m.field = starfield.New(0, 0)
	}
	return m
}

// Run starts the terminal UI and blocks until the user quits or ctx is done.
func Run(ctx context.Context, session *calculator.Session, opts ...Option) error {
	m := New(session, append(opts, WithContext(ctx))...)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("run terminal UI: %w", err)
	}
	return nil
}

func (m *Model) Init() tea.Cmd {
	if m.animate {
		return nextFrame()
	}
	return nil
}

func nextFrame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.field.Resize(msg.Width, msg.Height)
		return m, nil

	case frameMsg:
		m.tick += ticksPerFrame
		if m.animate {
			return m, nextFrame()
		}
		return m, nil

	case solveResultMsg:
		return m, m.finishSolve(msg)

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
			m.statusIsError = false
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		if m.modalOpen {
			return m, m.updateModal(msg)
		}
		return m, m.updateCalculator(msg)
	}

	if m.modalOpen {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) updateCalculator(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlW:
		m.modalOpen = true
		return m.input.Focus()
	case tea.KeyTab:
		m.session.ToggleAngleMode()
	case tea.KeyUp:
		m.row = (m.row - 1 + len(buttons)) % len(buttons)
		m.clampCol()
	case tea.KeyDown:
		m.row = (m.row + 1) % len(buttons)
		m.clampCol()
	case tea.KeyLeft:
		n := len(buttons[m.row])
		m.col = (m.col - 1 + n) % n
	case tea.KeyRight:
		m.col = (m.col + 1) % len(buttons[m.row])
	case tea.KeySpace:
		m.session.Press(buttons[m.row][m.col])
	case tea.KeyEnter:
		m.session.Key("Enter")
	case tea.KeyBackspace:
		m.session.Key("Backspace")
	case tea.KeyEsc:
		m.session.Key("Escape")
	case tea.KeyRunes:
		if len(msg.Runes) == 1 {
			m.session.Key(string(msg.Runes))
		}
	}
	return nil
}

func (m *Model) clampCol() {
	if n := len(buttons[m.row]); m.col >= n {
		m.col = n - 1
	}
}

func (m *Model) updateModal(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.modalOpen = false
		m.input.Blur()
		return nil
	case tea.KeyEnter:
		return m.submit()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// submit starts a solve unless one is already running.
func (m *Model) submit() tea.Cmd {
	if m.solving {
		return nil
	}
	problem := strings.TrimSpace(m.input.Value())
	if problem == "" {
		return m.setStatus(calculator.EmptyProblemMessage, true)
	}

	m.solving = true
	m.status = solvingStatus
	m.statusIsError = false
	m.statusSeq++

	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		expression, err := session.SolveWordProblem(ctx, problem)
		return solveResultMsg{expression: expression, err: err}
	}
}

func (m *Model) finishSolve(msg solveResultMsg) tea.Cmd {
	m.solving = false
	m.input.SetValue("")
	if msg.err != nil {
		return m.setStatus(calculator.StatusMessage(msg.err), true)
	}
	m.modalOpen = false
	m.input.Blur()
	m.status = ""
	m.statusIsError = false
	m.statusSeq++
	return nil
}

// setStatus shows text in the modal and clears it after statusTimeout unless
// it has been replaced by then.
func (m *Model) setStatus(text string, isError bool) tea.Cmd {
	m.status = text
	m.statusIsError = isError
	m.statusSeq++
	seq := m.statusSeq
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg { return clearStatusMsg{seq: seq} })
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	body := m.renderPanel()
	if m.modalOpen {
		body = m.renderModal()
	}
	return m.compose(body)
}

func (m *Model) renderPanel() string {
	th := m.th

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		th.Title.Render("nebulacalc"),
		strings.Repeat(" ", displayWidth-lipgloss.Width("nebulacalc")-lipgloss.Width(m.session.AngleMode().String())-2),
		th.Indicator.Render(m.session.AngleMode().String()),
	)
	display := th.Display.Width(displayWidth).Render(scrollToEnd(m.session.Display(), displayWidth))

	rows := []string{header, display}
	for r, row := range buttons {
		cells := make([]string, 0, len(row))
		for c, label := range row {
			style := th.Button
			switch {
			case r == m.row && c == m.col:
				style = th.ButtonFocused
			case isOperator(label):
				style = th.ButtonOp
			}
			cells = append(cells, style.Width(buttonWidth).Render(label))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	rows = append(rows, "")
	history := m.session.History()
	if len(history) > historyLines {
		history = history[len(history)-historyLines:]
	}
	for _, e := range history {
		rows = append(rows, th.Muted.Render(scrollToEnd(e.Expression+" = "+e.Result, displayWidth)))
	}
	rows = append(rows,
		th.Muted.Render("space press  tab RAD/DEG"),
		th.Muted.Render("ctrl+w word problem  ctrl+c quit"),
	)
	return th.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderModal() string {
	th := m.th

	var status string
	switch {
	case m.status == "":
	case m.statusIsError:
		status = th.Danger.Render(m.status)
	default:
		status = th.Accent.Render(m.status)
	}

	hint := "enter solve  esc close"
	if m.solving {
		hint = "waiting for the solver  esc close"
	}

	return th.Modal.Width(modalWidth).Render(lipgloss.JoinVertical(lipgloss.Left,
		th.Title.Render("AI Word Problem Solver"),
		"",
		m.input.View(),
		"",
		status,
		th.Muted.Render(hint),
	))
}

// compose centres body over the star field. Without a known window size, or
// when body does not fit, body is returned as is.
func (m *Model) compose(body string) string {
	lines := strings.Split(body, "\n")
	bw, bh := lipgloss.Width(body), len(lines)
	if m.width == 0 || m.height == 0 || bw > m.width || bh > m.height {
		return body
	}
	frame := m.field.Frame(m.tick)
	if len(frame) != m.height {
		return body
	}

	x0, y0 := (m.width-bw)/2, (m.height-bh)/2
	out := make([]string, m.height)
	for y, cells := range frame {
		if y < y0 || y >= y0+bh {
			out[y] = m.renderCells(cells)
			continue
		}
		line := lines[y-y0]
		if pad := bw - lipgloss.Width(line); pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		out[y] = m.renderCells(cells[:x0]) + line + m.renderCells(cells[x0+bw:])
	}
	return strings.Join(out, "\n")
}

func (m *Model) renderCells(cells []starfield.Cell) string {
	var b strings.Builder
	for _, c := range cells {
		b.WriteString(m.renderCell(c))
	}
	return b.String()
}

func (m *Model) renderCell(c starfield.Cell) string {
	if c.Rune == ' ' {
		switch {
		case c.Glow < 0.15:
			return " "
		case c.Glow < 0.4:
			return m.th.Glow[0].Render(" ")
		case c.Glow < 0.7:
			return m.th.Glow[1].Render(" ")
		default:
			return m.th.Glow[2].Render(" ")
		}
	}
	switch {
	case c.Brightness < 0.35:
		return m.th.StarDim.Render(string(c.Rune))
	case c.Brightness < 0.7:
		return m.th.StarMid.Render(string(c.Rune))
	default:
		return m.th.StarBright.Render(string(c.Rune))
	}
}

// scrollToEnd keeps the tail of s when it is wider than width, so the most
// recent input stays visible.
func scrollToEnd(s string, width int) string {
	r := []rune(s)
	if len(r) <= width || width <= 0 {
		return s
	}
	return "…" + string(r[len(r)-width+1:])
}

func isOperator(label string) bool {
	switch label {
	case "÷", "×", "-", "+", "%", "xʸ", "=", "AC", "C":
		return true
	}
	return false
}
