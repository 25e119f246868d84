package maths

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"kinetics/types"
)

// Minimum 一维最小化结果
type Minimum struct {
	X           float64 // 极小点
	F           float64 // 极小值
	Evaluations int     // 目标函数调用次数
}

// Minimize 无约束一维最小化（Nelder-Mead）
// 变量按初始猜测的量级缩放后再交给求解器，使单纯形尺寸与问题尺度无关。
// 目标函数返回 NaN 或 Inf 时该点视为无穷大。
func Minimize(f func(float64) float64, guess float64) (Minimum, error) {
	if math.IsNaN(guess) || math.IsInf(guess, 0) {
		return Minimum{}, fmt.Errorf("%w: 初始猜测无效 %g", types.ErrInput, guess)
	}
	scale := math.Abs(guess)
	if scale == 0 {
		scale = 1
	}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			v := f(x[0] * scale)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return math.Inf(1)
			}
			return v
		},
	}
	settings := &optimize.Settings{
		MajorIterations: types.MinimizerIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-14,
			Relative:   1e-14,
			Iterations: 50,
		},
	}
	method := &optimize.NelderMead{SimplexSize: 0.05}
	result, err := optimize.Minimize(problem, []float64{guess / scale}, settings, method)
	if err != nil {
		return Minimum{}, fmt.Errorf("%w: %v", types.ErrNonConvergence, err)
	}
	switch result.Status {
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.RuntimeLimit:
		return Minimum{}, fmt.Errorf("%w: 最小化终止状态 %v", types.ErrNonConvergence, result.Status)
	}
	if math.IsInf(result.F, 0) || math.IsNaN(result.F) {
		return Minimum{}, fmt.Errorf("%w: 目标函数在极小点非有限", types.ErrNonConvergence)
	}
	return Minimum{
		X:           result.X[0] * scale,
		F:           result.F,
		Evaluations: result.Stats.FuncEvaluations,
	}, nil
}
