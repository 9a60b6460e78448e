package expr

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIllegal
	tokNumber
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPercent
	tokCaret
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

// glyphs maps display-only symbols back to their evaluable spelling.
var glyphs = strings.NewReplacer("×", "*", "÷", "/", "√", "sqrt")

// Rewrite turns display glyphs into canonical tokens. Constants (π, e) are
// left in place; the lexer resolves them as identifiers so they cannot
// bleed into neighbouring names.
func Rewrite(s string) string {
	return glyphs.Replace(s)
}

type lexer struct {
	s string
	i int
}

func (l *lexer) peek() (rune, int) {
	if l.i >= len(l.s) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(l.s[l.i:])
}

func (l *lexer) next() token {
	for {
		r, w := l.peek()
		if w == 0 || !unicode.IsSpace(r) {
			break
		}
		l.i += w
	}
	if l.i >= len(l.s) {
		return token{kind: tokEOF}
	}

	switch l.s[l.i] {
	case '+', '-':
		c := l.s[l.i]
		l.i++
		// Adjacent repeated signs are increment/decrement operators, not
		// two signs, and have no meaning in a calculator expression.
		if l.i < len(l.s) && l.s[l.i] == c {
			l.i++
			return token{kind: tokIllegal, text: string([]byte{c, c})}
		}
		if c == '+' {
			return token{kind: tokPlus, text: "+"}
		}
		return token{kind: tokMinus, text: "-"}
	case '*':
		l.i++
		// "**" is accepted as a spelling of the power operator.
		if l.i < len(l.s) && l.s[l.i] == '*' {
			l.i++
			return token{kind: tokCaret, text: "**"}
		}
		return token{kind: tokStar, text: "*"}
	case '/':
		l.i++
		return token{kind: tokSlash, text: "/"}
	case '%':
		l.i++
		return token{kind: tokPercent, text: "%"}
	case '^':
		l.i++
		return token{kind: tokCaret, text: "^"}
	case '(':
		l.i++
		return token{kind: tokLParen, text: "("}
	case ')':
		l.i++
		return token{kind: tokRParen, text: ")"}
	}

	r, w := l.peek()
	if isIdentStart(r) {
		start := l.i
		l.i += w
		for {
			r, w = l.peek()
			if w == 0 || !isIdentContinue(r) {
				break
			}
			l.i += w
		}
		return token{kind: tokIdent, text: l.s[start:l.i]}
	}
	if r == '.' || isDigit(r) {
		start := l.i
		end := scanNumber(l.s, l.i)
		if end == start {
			l.i++
			return token{kind: tokIllegal, text: "."}
		}
		l.i = end
		txt := l.s[start:end]
		return token{kind: tokNumber, text: txt, num: sanitizeLiteral(txt)}
	}

	l.i += w
	return token{kind: tokIllegal, text: string(r)}
}

// scanNumber matches digits with an optional fraction, or a bare fraction
// (".5"). Exponent suffixes are not part of the literal grammar.
func scanNumber(s string, i int) int {
	start := i
	if s[i] == '.' {
		j := i + 1
		for j < len(s) && isDigit(rune(s[j])) {
			j++
		}
		if j == i+1 {
			return start
		}
		return j
	}
	for i < len(s) && isDigit(rune(s[i])) {
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(rune(s[i])) {
			i++
		}
	}
	return i
}

// sanitizeLiteral reparses a literal as a float, so "007" and "7" are the
// same number and "1." is 1. Literals too large for a float become +Inf.
func sanitizeLiteral(txt string) float64 {
	f, err := strconv.ParseFloat(txt, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return f
		}
		return 0
	}
	return f
}

// SanitizeNumbers rewrites every numeric literal in s into its canonical
// decimal form ("01+01" becomes "1+1"). Evaluation does the same thing
// token by token; this is the textual view used for logging.
func SanitizeNumbers(s string) string {
	var b strings.Builder
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '.' || isDigit(rune(c)) {
			end := scanNumber(s, i)
			if end > i {
				b.WriteString(FormatNumber(sanitizeLiteral(s[i:end])))
				i = end
				continue
			}
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentContinue(r rune) bool {
	return isIdentStart(r) || isDigit(r)
}
