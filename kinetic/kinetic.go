package kinetic

import (
	"fmt"
	"math"

	"kinetics/maths"
	"kinetics/series"
	"kinetics/types"
	"kinetics/userfunc"
)

// Stage 错误定位中的阶段名称
const Stage = "kinetic-function"

// Table 实验的实际动力学函数，所有切片等长
type Table struct {
	Name             string
	Conversion       []float64 // 转化率网格
	KineticFunction  []float64 // f(α) = q / (A·exp(-E/RT))
	HeatFlow         []float64 // 网格点上的热流
	Temperature      []float64 // 网格点上的温度
	ActivationEnergy []float64 // E(α)
	PreFactor        []float64 // A(α)
}

// Len 行数
func (t *Table) Len() int { return len(t.Conversion) }

// Function 以用户函数形式返回动力学函数，可直接用于预测
func (t *Table) Function() *userfunc.Function {
	return &userfunc.Function{
		Conversion: append([]float64(nil), t.Conversion...),
		Values:     append([]float64(nil), t.KineticFunction...),
	}
}

// Calculate 计算实验的实际动力学函数
// 在活化能网格上（只取实验实际达到的转化率）按前向扫描取热流与温度，
// 再由 f = q / (A·exp(-E/RT)) 求动力学函数值。
// 实验须已计算转化率，温度为开尔文；preFactor 与 energy 共享网格。
func Calculate(s *series.Series, energy, preFactor *userfunc.Function) (*Table, error) {
	fail := func(err error) error {
		e := types.NewStepError(Stage, err)
		e.Experiment = s.Name
		return e
	}
	if len(s.Conversion) == 0 {
		return nil, fail(fmt.Errorf("%w: 尚未计算转化率", types.ErrInput))
	}
	if energy.Len() == 0 {
		return nil, fail(fmt.Errorf("%w: 活化能网格为空", types.ErrInput))
	}
	if energy.Len() != preFactor.Len() {
		return nil, fail(fmt.Errorf("%w: 活化能与指前因子网格长度不一致（%d, %d）", types.ErrInput, energy.Len(), preFactor.Len()))
	}
	reached := s.MaxConversion()
	n := 0
	for n < energy.Len() && energy.Conversion[n] <= reached {
		n++
	}
	if n == 0 {
		return nil, fail(fmt.Errorf("%w: 实验最大转化率 %g 低于活化能网格起点 %g", types.ErrInput, reached, energy.Conversion[0]))
	}
	grid := energy.Conversion[:n]
	t := &Table{
		Name:             s.Name,
		Conversion:       append([]float64(nil), grid...),
		KineticFunction:  make([]float64, n),
		HeatFlow:         maths.Resample(grid, s.Conversion, s.HeatFlow),
		Temperature:      maths.Resample(grid, s.Conversion, s.Temperature),
		ActivationEnergy: append([]float64(nil), energy.Values[:n]...),
		PreFactor:        append([]float64(nil), preFactor.Values[:n]...),
	}
	for i := range grid {
		rate := t.PreFactor[i] * math.Exp(-t.ActivationEnergy[i]/(types.GasConstant*t.Temperature[i]))
		v := t.HeatFlow[i] / rate
		if math.IsNaN(v) || math.IsInf(v, 0) {
			e := fail(fmt.Errorf("%w: 转化率 %g 处动力学函数非有限（速率常数 %g）", types.ErrNonConvergence, grid[i], rate))
			e.(*types.StepError).Checkpoint = i
			return nil, e
		}
		t.KineticFunction[i] = v
	}
	return t, nil
}
