// Package expr 提供转化率函数公式的受限解释器。
// 公式只能使用数值、变量 X（转化率）、四则运算、乘方、括号、常量 pi/e
// 以及白名单中的一元数学函数，不存在任何名称查找或代码执行能力。
package expr

import (
	"fmt"
	"math"

	"kinetics/types"
)

// Error 公式错误，可通过 errors.Is(err, types.ErrExpression) 判定
type Error struct {
	Formula string
	Pos     int // 字节偏移，-1 表示求值错误
	Msg     string
}

// Error 错误信息
func (e *Error) Error() string {
	if e.Pos < 0 {
		return fmt.Sprintf("公式 %q: %s", e.Formula, e.Msg)
	}
	return fmt.Sprintf("公式 %q 第 %d 个字符处: %s", e.Formula, e.Pos+1, e.Msg)
}

// Unwrap 归类为表达式错误
func (e *Error) Unwrap() error { return types.ErrExpression }

// functions 白名单一元函数
var functions = map[string]func(float64) float64{
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"asin":  math.Asin,
	"acos":  math.Acos,
	"atan":  math.Atan,
	"sinh":  math.Sinh,
	"cosh":  math.Cosh,
	"tanh":  math.Tanh,
	"exp":   math.Exp,
	"log":   math.Log,
	"ln":    math.Log,
	"log10": math.Log10,
	"sqrt":  math.Sqrt,
	"abs":   math.Abs,
}

// constants 白名单常量
var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// Node 语法树节点
type Node interface {
	eval(x float64) (float64, error)
}

// Num 数值常量
type Num struct{ Value float64 }

func (n *Num) eval(float64) (float64, error) { return n.Value, nil }

// Var 转化率变量
type Var struct{}

func (*Var) eval(x float64) (float64, error) { return x, nil }

// Neg 取负
type Neg struct{ Arg Node }

func (n *Neg) eval(x float64) (float64, error) {
	v, err := n.Arg.eval(x)
	return -v, err
}

// Binary 二元运算
type Binary struct {
	Op          string
	Left, Right Node
	Pos         int
}

func (b *Binary) eval(x float64) (float64, error) {
	l, err := b.Left.eval(x)
	if err != nil {
		return 0, err
	}
	r, err := b.Right.eval(x)
	if err != nil {
		return 0, err
	}
	switch b.Op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, fmt.Errorf("第 %d 个字符处除以零", b.Pos+1)
		}
		return l / r, nil
	case "**", "^":
		return math.Pow(l, r), nil
	}
	return 0, fmt.Errorf("未知运算符 %q", b.Op)
}

// Call 白名单函数调用
type Call struct {
	Name string
	Fn   func(float64) float64
	Arg  Node
}

func (c *Call) eval(x float64) (float64, error) {
	v, err := c.Arg.eval(x)
	if err != nil {
		return 0, err
	}
	return c.Fn(v), nil
}

// Expr 已编译的公式
type Expr struct {
	Formula string
	Root    Node
}

// Compile 编译公式
func Compile(formula string) (*Expr, error) {
	tokens, err := Tokenize(formula)
	if err != nil {
		return nil, err
	}
	p := &parser{formula: formula, tokens: tokens}
	root, err := p.parse()
	if err != nil {
		return nil, err
	}
	return &Expr{Formula: formula, Root: root}, nil
}

// Eval 在转化率 x 处求值，除以零或结果非有限时报错
func (e *Expr) Eval(x float64) (float64, error) {
	v, err := e.Root.eval(x)
	if err != nil {
		return 0, &Error{Formula: e.Formula, Pos: -1, Msg: fmt.Sprintf("X=%g: %v", x, err)}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &Error{Formula: e.Formula, Pos: -1, Msg: fmt.Sprintf("X=%g 处结果非有限值 %g", x, v)}
	}
	return v, nil
}

// EvalAll 在每个转化率处求值，任一点失败则整体失败
func (e *Expr) EvalAll(xs []float64) ([]float64, error) {
	out := make([]float64, len(xs))
	for i, x := range xs {
		v, err := e.Eval(x)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
