package userfunc

import (
	"fmt"
	"math"
	"sort"

	"kinetics/expr"
	"kinetics/maths"
	"kinetics/types"
)

// FormulaError 单个公式的错误，可修正后重新提交，不影响已接受的公式
type FormulaError struct {
	Index        int // 公式序号（从 1 开始）
	Formula      string
	Lower, Upper float64
	Err          error
}

// Error 错误信息
func (e *FormulaError) Error() string {
	return fmt.Sprintf("第 %d 个公式 %q [%g, %g]: %v", e.Index, e.Formula, e.Lower, e.Upper, e.Err)
}

// Unwrap 返回底层错误
func (e *FormulaError) Unwrap() error { return e.Err }

// Builder 由分段公式构造用户函数
// 每个公式在其转化率区间的 step 网格上求值，区间重叠产生的重复网格点保留先声明的值。
type Builder struct {
	step       float64
	conversion []float64
	values     []float64
	accepted   int
}

// NewBuilder 创建构造器
func NewBuilder(step float64) (*Builder, error) {
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, fmt.Errorf("%w: 转化率步长必须大于 0，得到 %g", types.ErrInput, step)
	}
	return &Builder{step: step}, nil
}

// Accepted 已接受的公式数量
func (b *Builder) Accepted() int { return b.accepted }

// Add 添加一个在 [lower, upper] 上有效的公式
// 失败时返回 *FormulaError，构造器状态不变。
func (b *Builder) Add(formula string, lower, upper float64) error {
	fail := func(err error) error {
		return &FormulaError{Index: b.accepted + 1, Formula: formula, Lower: lower, Upper: upper, Err: err}
	}
	if !(lower <= upper) || math.IsInf(lower, 0) || math.IsInf(upper, 0) {
		return fail(fmt.Errorf("%w: 转化率区间无效", types.ErrInput))
	}
	e, err := expr.Compile(formula)
	if err != nil {
		return fail(err)
	}
	grid, err := maths.Steps(lower, upper, b.step)
	if err != nil {
		return fail(err)
	}
	values, err := e.EvalAll(grid)
	if err != nil {
		return fail(err)
	}
	b.conversion = append(b.conversion, grid...)
	b.values = append(b.values, values...)
	b.accepted++
	return nil
}

// Build 生成用户函数
// 先去除重复转化率（保留第一次出现），再按转化率稳定排序。
func (b *Builder) Build() (*Function, error) {
	if b.accepted == 0 {
		return nil, fmt.Errorf("%w: 没有任何有效公式", types.ErrInput)
	}
	seen := make(map[float64]bool, len(b.conversion))
	type point struct{ x, y float64 }
	points := make([]point, 0, len(b.conversion))
	for i, x := range b.conversion {
		if seen[x] {
			continue
		}
		seen[x] = true
		points = append(points, point{x, b.values[i]})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].x < points[j].x })
	f := &Function{
		Conversion: make([]float64, len(points)),
		Values:     make([]float64, len(points)),
	}
	for i, p := range points {
		f.Conversion[i], f.Values[i] = p.x, p.y
	}
	return f, nil
}
