package maths

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"kinetics/types"
)

// Line 线性函数 y = Intercept + Slope·x
type Line struct {
	Intercept float64 // 截距
	Slope     float64 // 斜率
}

// At 计算 x 处的值
func (l Line) At(x float64) float64 { return l.Intercept + l.Slope*x }

// LinearFit 普通最小二乘拟合 y = intercept + slope·x
// NaN 值视为未定义，对应点不参与拟合。
// 有效点少于 2 个或自变量无变化时返回未收敛错误。
func LinearFit(x, y []float64) (Line, error) {
	if len(x) != len(y) {
		return Line{}, fmt.Errorf("%w: 拟合数据长度不一致 %d != %d", types.ErrInput, len(x), len(y))
	}
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return Line{}, fmt.Errorf("%w: 有效拟合点不足 (%d)", types.ErrNonConvergence, len(xs))
	}
	if floats.Max(xs) == floats.Min(xs) {
		return Line{}, fmt.Errorf("%w: 自变量无变化，无法确定斜率", types.ErrNonConvergence)
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return Line{}, fmt.Errorf("%w: 线性回归结果无效", types.ErrNonConvergence)
	}
	return Line{Intercept: alpha, Slope: beta}, nil
}
