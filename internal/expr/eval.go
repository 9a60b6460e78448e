package expr

import (
	"math"
)

// Node is a parsed expression.
type Node interface {
	Eval(mode AngleMode) float64
}

type numberNode struct {
	v float64
}

func (n numberNode) Eval(AngleMode) float64 { return n.v }

type constNode struct {
	name string
	v    float64
}

func (n constNode) Eval(AngleMode) float64 { return n.v }

type unaryNode struct {
	op byte
	x  Node
}

func (n unaryNode) Eval(mode AngleMode) float64 {
	v := n.x.Eval(mode)
	if n.op == '-' {
		return -v
	}
	return v
}

type binaryNode struct {
	op          byte
	left, right Node
}

func (n binaryNode) Eval(mode AngleMode) float64 {
	x := n.left.Eval(mode)
	y := n.right.Eval(mode)
	switch n.op {
	case '+':
		return x + y
	case '-':
		return x - y
	case '*':
		return x * y
	case '/':
		return x / y
	case '%':
		// Truncated remainder, sign follows the dividend.
		return math.Mod(x, y)
	case '^':
		return math.Pow(x, y)
	}
	return math.NaN()
}

type callNode struct {
	name string
	fn   func(x float64, mode AngleMode) float64
	arg  Node
}

func (n callNode) Eval(mode AngleMode) float64 {
	return n.fn(n.arg.Eval(mode), mode)
}

var constants = map[string]float64{
	"π": math.Pi,
	"e": math.E,
}

var functions = map[string]func(float64, AngleMode) float64{
	"sin": func(x float64, mode AngleMode) float64 {
		return math.Sin(toRadians(x, mode))
	},
	"cos": func(x float64, mode AngleMode) float64 {
		return math.Cos(toRadians(x, mode))
	},
	"tan":  tan,
	"log":  func(x float64, _ AngleMode) float64 { return math.Log10(x) },
	"ln":   func(x float64, _ AngleMode) float64 { return math.Log(x) },
	"sqrt": func(x float64, _ AngleMode) float64 { return math.Sqrt(x) },
}

func toRadians(x float64, mode AngleMode) float64 {
	if mode == Degrees {
		return x * math.Pi / 180
	}
	return x
}

// tan reports the asymptotes as +Inf. The check is exact equality on the
// argument as given, before any degree conversion.
func tan(x float64, mode AngleMode) float64 {
	if mode == Degrees && math.Abs(math.Mod(x, 180)) == 90 {
		return math.Inf(1)
	}
	if mode == Radians && math.Abs(math.Mod(x, math.Pi)) == math.Pi/2 {
		return math.Inf(1)
	}
	return math.Tan(toRadians(x, mode))
}
