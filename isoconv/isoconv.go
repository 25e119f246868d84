package isoconv

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"kinetics/maths"
	"kinetics/series"
	"kinetics/types"
)

// Stage 错误定位中的阶段名称
const Stage = "isoconversional"

// Options 求解参数
type Options struct {
	InitialGuess float64     // 活化能初始猜测（J/mol）
	Warm         bool        // 以前一检查点的解作为下一检查点的初始猜测
	Tolerance    float64     // 积分相对容差，<= 0 时使用默认值
	Logger       *zap.Logger // 进度日志
}

// Result 等转化率分析结果，三个切片等长，对应检查点 k = 1..K
type Result struct {
	Conversion       []float64 // 检查点转化率
	ActivationEnergy []float64 // 活化能（J/mol）
	Objective        []float64 // 双重和在极小点的值，理想值为 n(n-1)
}

// Len 结果条数
func (r *Result) Len() int { return len(r.Conversion) }

// interval 单个实验在一个检查点区间内的温度历程
// 温度在两个检查点采样之间线性插值 T(t) = slope·t + intercept。
type interval struct {
	t0, t1           float64
	slope, intercept float64
	maxTemperature   float64
}

// temperature 区间内 t 时刻的温度
func (iv interval) temperature(t float64) float64 { return iv.slope*t + iv.intercept }

// newInterval 由检查点 k-1 与 k 构造区间
func newInterval(s *series.Series, k int) (interval, error) {
	cp := s.Checkpoints
	t0, t1 := cp.Time[k-1], cp.Time[k]
	T0, T1 := cp.Temperature[k-1], cp.Temperature[k]
	if !(t1 > t0) {
		return interval{}, fmt.Errorf("%w: 检查点区间宽度为零 [%g, %g]", types.ErrInput, t0, t1)
	}
	if !(T0 > 0) || !(T1 > 0) {
		return interval{}, fmt.Errorf("%w: 温度必须为正的开尔文温度（%g, %g）", types.ErrInput, T0, T1)
	}
	slope := (T1 - T0) / (t1 - t0)
	return interval{
		t0:             t0,
		t1:             t1,
		slope:          slope,
		intercept:      T0 - slope*t0,
		maxTemperature: math.Max(T0, T1),
	}, nil
}

// checkpoint 单个检查点上所有实验的积分问题
type checkpoint struct {
	intervals []interval
	reference float64 // 参考温度，所有被积函数共同约去 exp(-E/(R·reference))
	tolerance float64
}

// integrals 计算所有实验在活化能 energy 下的积分 I_m(E)
// 被积函数乘以公共因子 exp(E/(R·reference))，比值 I_i/I_j 不变，
// 但避免了大活化能下的下溢。
func (c *checkpoint) integrals(energy float64, out []float64) error {
	for m, iv := range c.intervals {
		f := func(t float64) float64 {
			return math.Exp(-energy / types.GasConstant * (1/iv.temperature(t) - 1/c.reference))
		}
		v, err := maths.Integrate(f, iv.t0, iv.t1, c.tolerance)
		if err != nil {
			return err
		}
		out[m] = v
	}
	return nil
}

// DoubleSum 计算 Σ_i Σ_{j≠i} I_i/I_j
func DoubleSum(values []float64) float64 {
	sum := 0.0
	for i, vi := range values {
		for j, vj := range values {
			if i != j {
				sum += vi / vj
			}
		}
	}
	return sum
}

// objective 目标函数 S(E)，积分失败时返回 +Inf
func (c *checkpoint) objective() func(float64) float64 {
	buf := make([]float64, len(c.intervals))
	return func(energy float64) float64 {
		if err := c.integrals(energy, buf); err != nil {
			return math.Inf(1)
		}
		return DoubleSum(buf)
	}
}

// Solve 对一组联合分析的实验求解每个检查点的活化能
// 各实验的检查点表须已按最小转化率上限截断，共享同一组目标转化率。
// 检查点 0 为起始条目，不参与求解。
func Solve(all []*series.Series, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(all) < 2 {
		return nil, types.NewStepError(Stage, fmt.Errorf("%w: 双重和至少需要 2 组实验，得到 %d", types.ErrInput, len(all)))
	}
	if !(opts.InitialGuess > 0) || math.IsInf(opts.InitialGuess, 0) {
		return nil, types.NewStepError(Stage, fmt.Errorf("%w: 活化能初始猜测必须为正，得到 %g", types.ErrInput, opts.InitialGuess))
	}
	count := -1
	for _, s := range all {
		n := s.Checkpoints.Len()
		if n < 2 {
			e := types.NewStepError(Stage, fmt.Errorf("%w: 没有可用的检查点", types.ErrInput))
			e.Experiment = s.Name
			return nil, e
		}
		if count < 0 || n < count {
			count = n
		}
	}

	result := &Result{}
	guess := opts.InitialGuess
	values := make([]float64, len(all))
	for k := 1; k < count; k++ {
		conversion := all[0].Checkpoints.Conversion[k]
		cp := &checkpoint{intervals: make([]interval, len(all)), tolerance: opts.Tolerance}
		for m, s := range all {
			iv, err := newInterval(s, k)
			if err != nil {
				return nil, &types.StepError{Stage: Stage, Experiment: s.Name, Checkpoint: k, Err: err}
			}
			cp.intervals[m] = iv
			cp.reference = math.Max(cp.reference, iv.maxTemperature)
		}

		best, err := maths.Minimize(cp.objective(), guess)
		if err != nil {
			return nil, &types.StepError{
				Stage:      Stage,
				Checkpoint: k,
				Err:        fmt.Errorf("转化率 %g: %w", conversion, err),
			}
		}
		// 在极小点复核积分，保证报告值来自成功的积分
		if err := cp.integrals(best.X, values); err != nil {
			return nil, &types.StepError{
				Stage:      Stage,
				Checkpoint: k,
				Err:        fmt.Errorf("转化率 %g: %w", conversion, err),
			}
		}
		result.Conversion = append(result.Conversion, conversion)
		result.ActivationEnergy = append(result.ActivationEnergy, best.X)
		result.Objective = append(result.Objective, DoubleSum(values))
		logger.Info("检查点求解完成",
			zap.Int("checkpoint", k),
			zap.Float64("conversion", conversion),
			zap.Float64("activation_energy", best.X),
			zap.Float64("objective", best.F),
			zap.Int("evaluations", best.Evaluations))
		if opts.Warm {
			guess = best.X
		}
	}
	return result, nil
}
