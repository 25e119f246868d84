package expr

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinetics/types"
)

// TestEval 测试合法公式的求值
func TestEval(t *testing.T) {
	cases := []struct {
		formula string
		x       float64
		want    float64
	}{
		{"X", 0.3, 0.3},
		{"1 + 2 * 3", 0, 7},
		{"(1 + 2) * 3", 0, 9},
		{"[1 + 2] * {3}", 0, 9},
		{"2 ** 3 ** 2", 0, 512},
		{"2 ^ 3", 0, 8},
		{"-2 ** 2", 0, -4},
		{"2 ** -1", 0, 0.5},
		{"- -X", 0.25, 0.25},
		{"10 / 4 / 5", 0, 0.5},
		{"80000 + 5000*X", 0.5, 82500},
		{"np.exp(-X) + log(e)", 0, 2},
		{"sqrt(X) * 2e3", 0.25, 1000},
		{"1.5e-1 + .5", 0, 0.65},
		{"sin(pi / 2) + np.pi - pi", 0, 1},
		{"abs(x - 1)", 0.2, 0.8},
		{"log10(100)", 0, 2},
		{"exp(2)", 0, math.Exp(2)},
	}
	for _, c := range cases {
		e, err := Compile(c.formula)
		require.NoError(t, err, c.formula)
		got, err := e.Eval(c.x)
		require.NoError(t, err, c.formula)
		assert.InDelta(t, c.want, got, 1e-12, c.formula)
	}
}

// TestCompileRejects 测试非法构造被拒绝并给出位置
func TestCompileRejects(t *testing.T) {
	cases := []struct {
		formula string
		pos     int
	}{
		{"", 0},
		{"__import__('os')", 0},
		{"os.system(1)", 0},
		{"X +", 3},
		{"(X + 1", 6},
		{"(X + 1]", 6},
		{"2 X", 2},
		{"exp X", 3},
		{"X ; 1", 2},
		{"1.2.3", 0},
		{"Y * 2", 0},
		{"X # 1", 2},
		{"lambda", 0},
	}
	for _, c := range cases {
		_, err := Compile(c.formula)
		require.Error(t, err, c.formula)
		assert.True(t, errors.Is(err, types.ErrExpression), c.formula)
		var e *Error
		require.True(t, errors.As(err, &e), c.formula)
		assert.Equal(t, c.pos, e.Pos, c.formula)
	}
}

// TestEvalErrors 测试除以零与非有限结果
func TestEvalErrors(t *testing.T) {
	e, err := Compile("1 / (X - 0.5)")
	require.NoError(t, err)
	_, err = e.Eval(0.5)
	assert.True(t, errors.Is(err, types.ErrExpression))

	e, err = Compile("log(X)")
	require.NoError(t, err)
	_, err = e.Eval(0)
	assert.True(t, errors.Is(err, types.ErrExpression))

	_, err = e.EvalAll([]float64{0.5, 0.1, 0})
	assert.Error(t, err)
	values, err := e.EvalAll([]float64{1, math.E})
	require.NoError(t, err)
	assert.InDelta(t, 1, values[1], 1e-15)
}

// TestTokenizeOffsets 测试词法单元偏移
func TestTokenizeOffsets(t *testing.T) {
	tokens, err := Tokenize("  np.exp( X**2 )")
	require.NoError(t, err)
	require.Len(t, tokens, 6)
	assert.Equal(t, Token{Kind: KindIdent, Text: "np.exp", Pos: 2}, tokens[0])
	assert.Equal(t, Token{Kind: KindOpen, Text: "(", Pos: 8}, tokens[1])
	assert.Equal(t, Token{Kind: KindIdent, Text: "X", Pos: 10}, tokens[2])
	assert.Equal(t, Token{Kind: KindOp, Text: "**", Pos: 11}, tokens[3])
	assert.Equal(t, Token{Kind: KindNumber, Text: "2", Pos: 13}, tokens[4])
	assert.Equal(t, Token{Kind: KindClose, Text: ")", Pos: 15}, tokens[5])
}
