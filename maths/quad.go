package maths

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"

	"kinetics/types"
)

// 自适应积分使用的高低阶 Gauss-Legendre 点数
const (
	quadLowOrder  = 7
	quadHighOrder = 15
)

// Integrate 自适应 Gauss-Legendre 积分
// 每个子区间用 15 点与 7 点规则之差估计误差，误差超出容差时二分递归。
// 适用于任意宽窄的区间，不依赖固定规则的步长选择。
// 参数：
//
//	f: 被积函数
//	a, b: 积分上下限，a == b 时返回 0
//	relTol: 相对容差，<= 0 时使用 types.QuadratureTolerance
func Integrate(f func(float64) float64, a, b, relTol float64) (float64, error) {
	if relTol <= 0 {
		relTol = types.QuadratureTolerance
	}
	if a == b {
		return 0, nil
	}
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return 0, fmt.Errorf("%w: 积分限无效 [%g, %g]", types.ErrInput, a, b)
	}
	whole := quad.Fixed(f, a, b, quadHighOrder, quad.Legendre{}, 0)
	value, err := adaptive(f, a, b, whole, relTol, math.Abs(whole)*relTol, 0)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: 积分结果非有限值 [%g, %g]", types.ErrNonConvergence, a, b)
	}
	return value, nil
}

// adaptive 递归二分
func adaptive(f func(float64) float64, a, b, high, relTol, absTol float64, depth int) (float64, error) {
	low := quad.Fixed(f, a, b, quadLowOrder, quad.Legendre{}, 0)
	diff := math.Abs(high - low)
	if diff <= math.Max(relTol*math.Abs(high), absTol) || diff == 0 {
		return high, nil
	}
	if depth >= types.QuadratureMaxDepth {
		return 0, fmt.Errorf("%w: 自适应积分在 [%g, %g] 达到最大深度 %d", types.ErrNonConvergence, a, b, depth)
	}
	mid := a + (b-a)/2
	if mid <= a || mid >= b {
		// 区间已不可再分，接受当前估计
		return high, nil
	}
	left := quad.Fixed(f, a, mid, quadHighOrder, quad.Legendre{}, 0)
	right := quad.Fixed(f, mid, b, quadHighOrder, quad.Legendre{}, 0)
	l, err := adaptive(f, a, mid, left, relTol, absTol/2, depth+1)
	if err != nil {
		return 0, err
	}
	r, err := adaptive(f, mid, b, right, relTol, absTol/2, depth+1)
	if err != nil {
		return 0, err
	}
	return l + r, nil
}
