package series

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"kinetics/types"
)

// Series 单次实验的测量序列
// 由原始输入构造，随后被各处理阶段就地修改（开尔文转换、总热量、转化率、检查点）。
type Series struct {
	Name              string      // 实验名称（通常为文件名）
	Time              []float64   // 时间（秒），固定步长递增
	Temperature       []float64   // 温度
	HeatFlow          []float64   // 归一化热流（W/g），已做基线与后固化修正
	HeatCapacity      []float64   // 归一化比热容，可为空
	Conversion        []float64   // 转化率，由 ComputeConversion 生成
	TotalHeat         float64     // 总反应热（J/g）
	InitialConversion float64     // 初始转化率
	TimeStep          float64     // 时间步长（秒）
	InKelvin          bool        // 温度是否已为开尔文
	Checkpoints       Checkpoints // 转化率检查点表
}

// New 由时间、温度、热流构造实验序列
// 三列长度不一致时按最短列截断。
func New(name string, timeStep float64, time, temperature, heatFlow []float64) (*Series, error) {
	if !(timeStep > 0) {
		return nil, fmt.Errorf("%w: 实验 %s 时间步长必须大于 0，得到 %g", types.ErrInput, name, timeStep)
	}
	n := min(len(time), len(temperature), len(heatFlow))
	if n < 2 {
		return nil, fmt.Errorf("%w: 实验 %s 数据点不足（%d）", types.ErrInput, name, n)
	}
	for i := 0; i < n; i++ {
		if !finite(time[i]) || !finite(temperature[i]) || !finite(heatFlow[i]) {
			return nil, fmt.Errorf("%w: 实验 %s 第 %d 个采样点含非有限值", types.ErrInput, name, i)
		}
	}
	return &Series{
		Name:        name,
		Time:        append([]float64(nil), time[:n]...),
		Temperature: append([]float64(nil), temperature[:n]...),
		HeatFlow:    append([]float64(nil), heatFlow[:n]...),
		TimeStep:    timeStep,
		InKelvin:    true,
	}, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Len 采样点数
func (s *Series) Len() int { return len(s.HeatFlow) }

// ToKelvin 将摄氏温度转换为开尔文，已转换时不做任何事
func (s *Series) ToKelvin() {
	if s.InKelvin {
		return
	}
	for i := range s.Temperature {
		s.Temperature[i] += types.CelsiusOffset
	}
	s.InKelvin = true
}

// ComputeTotalHeat 计算总反应热
// 对除最后一个采样点外的热流做左黎曼和，并保留 types.TotalHeatDigits 位小数。
func (s *Series) ComputeTotalHeat() float64 {
	step := decimal.NewFromFloat(s.TimeStep)
	sum := decimal.Zero
	for i := 0; i < len(s.HeatFlow)-1; i++ {
		sum = sum.Add(decimal.NewFromFloat(s.HeatFlow[i]).Mul(step))
	}
	s.TotalHeat = sum.Round(types.TotalHeatDigits).InexactFloat64()
	return s.TotalHeat
}

// ComputeConversion 计算转化率轨迹
// totalHeat <= 0 时先由热流计算总热量；计算结果仍不为正则报错。
// conversion[0] = initialConversion，之后逐点累加 heat_flow[i-1]·Δt/total_heat。
func (s *Series) ComputeConversion(totalHeat, initialConversion float64) error {
	if initialConversion < 0 || initialConversion >= 1 {
		return fmt.Errorf("%w: 实验 %s 初始转化率 %g 不在 [0,1) 内", types.ErrInput, s.Name, initialConversion)
	}
	if totalHeat > 0 {
		s.TotalHeat = totalHeat
	} else {
		s.ComputeTotalHeat()
	}
	if !(s.TotalHeat > 0) {
		return fmt.Errorf("%w: 实验 %s 总热量为 %g，无法计算转化率", types.ErrInput, s.Name, s.TotalHeat)
	}
	s.InitialConversion = initialConversion
	n := s.Len()
	s.Conversion = make([]float64, n)
	if n == 0 {
		return nil
	}
	s.Conversion[0] = initialConversion
	for i := 1; i < n; i++ {
		s.Conversion[i] = s.Conversion[i-1] + s.HeatFlow[i-1]*s.TimeStep/s.TotalHeat
	}
	return nil
}

// MaxConversion 实验达到的最大转化率
func (s *Series) MaxConversion() float64 {
	peak := 0.0
	for i, c := range s.Conversion {
		if i == 0 || c > peak {
			peak = c
		}
	}
	return peak
}
