package compensation

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"kinetics/maths"
	"kinetics/models"
	"kinetics/series"
	"kinetics/types"
)

// Stage 错误定位中的阶段名称
const Stage = "compensation"

// Options 拟合参数
type Options struct {
	Logger *zap.Logger
}

// ModelFit 单个动力学模型在一次实验上的拟合结果
type ModelFit struct {
	Name             string
	ActivationEnergy float64   // 活化能（J/mol），线性拟合的斜率
	LnPreFactor      float64   // ln(A)，线性拟合的截距
	ModelValues      []float64 // 每个采样点的 f(α)
	LeftHandSide     []float64 // 每个采样点的 ln(q/f(α))，比值不为正时为 NaN
}

// ExperimentFit 单次实验的补偿拟合结果
type ExperimentFit struct {
	Name               string
	Series             *series.Series
	InverseTemperature []float64            // -1/(R·T)
	Lower, Upper       int                  // 拟合窗口 [Lower, Upper]（含两端）
	Models             map[string]*ModelFit // 模型名 -> 拟合结果
	A, B               float64              // 补偿直线 ln(A) = a·E + b 的 a 与 b
}

// Sorted 按模型名称字典序返回拟合结果
func (e *ExperimentFit) Sorted() []*ModelFit {
	out := make([]*ModelFit, 0, len(e.Models))
	for _, name := range models.Names() {
		if fit, ok := e.Models[name]; ok {
			out = append(out, fit)
		}
	}
	return out
}

// Batch 一批实验的补偿参数
type Batch struct {
	Experiments  []*ExperimentFit
	AMean, BMean float64 // 各实验 a、b 的算术平均
}

// PreFactor 由补偿参数计算指前因子 A = exp(a·E + b)
func PreFactor(a, b, energy float64) float64 {
	return math.Exp(a*energy + b)
}

// InverseTemperature 计算回归自变量 -1/(R·T)
func InverseTemperature(s *series.Series) []float64 {
	out := make([]float64, len(s.Temperature))
	for i, T := range s.Temperature {
		out[i] = -1 / (types.GasConstant * T)
	}
	return out
}

// LeftHandSide 计算模型值与左端项 ln(q/f(α))
// 比值不为正时左端项无定义，记为 NaN，拟合时排除。
func LeftHandSide(model models.Model, s *series.Series) (values, lhs []float64) {
	n := min(len(s.Conversion), len(s.HeatFlow))
	values = make([]float64, n)
	lhs = make([]float64, n)
	for i := 0; i < n; i++ {
		values[i] = model(s.Conversion[i])
		ratio := s.HeatFlow[i] / values[i]
		if ratio > 0 && !math.IsInf(ratio, 0) {
			lhs[i] = math.Log(ratio)
		} else {
			lhs[i] = math.NaN()
		}
	}
	return values, lhs
}

// Bounds 查找拟合窗口
// lower 为首个转化率 >= 0.2 的索引，upper 为首个 >= 0.8 的索引。
// 实验未达到任一边界时报输入错误。
func Bounds(s *series.Series) (lower, upper int, err error) {
	lower, upper = -1, -1
	for i, c := range s.Conversion {
		if lower < 0 && c >= types.LowerFitConversion {
			lower = i
		}
		if c >= types.UpperFitConversion {
			upper = i
			break
		}
	}
	if lower < 0 || upper < 0 {
		return 0, 0, fmt.Errorf("%w: 实验最大转化率 %g 未达到拟合区间 [%g, %g]",
			types.ErrInput, s.MaxConversion(), types.LowerFitConversion, types.UpperFitConversion)
	}
	return lower, upper, nil
}

// FitModel 拟合单个模型：ln(q/f) = ln(A) + E·(-1/RT)
func FitModel(name string, s *series.Series, inverse []float64, lower, upper int) (*ModelFit, error) {
	entry, err := models.Lookup(name)
	if err != nil {
		return nil, err
	}
	values, lhs := LeftHandSide(entry.Model, s)
	if upper >= len(lhs) || upper >= len(inverse) || lower > upper {
		return nil, fmt.Errorf("%w: 拟合窗口 [%d, %d] 越界", types.ErrInput, lower, upper)
	}
	line, err := maths.LinearFit(inverse[lower:upper+1], lhs[lower:upper+1])
	if err != nil {
		return nil, err
	}
	return &ModelFit{
		Name:             entry.Name,
		ActivationEnergy: line.Slope,
		LnPreFactor:      line.Intercept,
		ModelValues:      values,
		LeftHandSide:     lhs,
	}, nil
}

// CompensationLine 对各模型的 (E, ln A) 做线性拟合，得到补偿直线 ln(A) = a·E + b
// 返回的 Line 中 Slope 为 a，Intercept 为 b。
func CompensationLine(fits []*ModelFit) (maths.Line, error) {
	energies := make([]float64, len(fits))
	lnA := make([]float64, len(fits))
	for i, fit := range fits {
		energies[i] = fit.ActivationEnergy
		lnA[i] = fit.LnPreFactor
	}
	return maths.LinearFit(energies, lnA)
}

// FitExperiment 对一次实验拟合全部模型并求补偿参数
// 实验须已计算转化率，温度为开尔文。
func FitExperiment(s *series.Series, opts Options) (*ExperimentFit, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fail := func(model string, err error) error {
		e := types.NewStepError(Stage, err)
		e.Experiment = s.Name
		e.Model = model
		return e
	}
	if len(s.Conversion) == 0 {
		return nil, fail("", fmt.Errorf("%w: 尚未计算转化率", types.ErrInput))
	}
	lower, upper, err := Bounds(s)
	if err != nil {
		return nil, fail("", err)
	}
	fit := &ExperimentFit{
		Name:               s.Name,
		Series:             s,
		InverseTemperature: InverseTemperature(s),
		Lower:              lower,
		Upper:              upper,
		Models:             make(map[string]*ModelFit, models.Len()),
	}
	for _, name := range models.Names() {
		mf, err := FitModel(name, s, fit.InverseTemperature, lower, upper)
		if err != nil {
			return nil, fail(name, err)
		}
		fit.Models[name] = mf
	}
	line, err := CompensationLine(fit.Sorted())
	if err != nil {
		return nil, fail("", err)
	}
	fit.A, fit.B = line.Slope, line.Intercept
	logger.Info("补偿参数拟合完成",
		zap.String("experiment", s.Name),
		zap.Int("lower", lower),
		zap.Int("upper", upper),
		zap.Float64("a", fit.A),
		zap.Float64("b", fit.B))
	return fit, nil
}

// FitBatch 拟合一批实验并对 a、b 分别取算术平均
func FitBatch(all []*series.Series, opts Options) (*Batch, error) {
	if len(all) == 0 {
		return nil, types.NewStepError(Stage, fmt.Errorf("%w: 没有实验数据", types.ErrInput))
	}
	batch := &Batch{Experiments: make([]*ExperimentFit, 0, len(all))}
	as := make([]float64, 0, len(all))
	bs := make([]float64, 0, len(all))
	for _, s := range all {
		fit, err := FitExperiment(s, opts)
		if err != nil {
			return nil, err
		}
		batch.Experiments = append(batch.Experiments, fit)
		as = append(as, fit.A)
		bs = append(bs, fit.B)
	}
	batch.AMean = stat.Mean(as, nil)
	batch.BMean = stat.Mean(bs, nil)
	return batch, nil
}
