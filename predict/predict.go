package predict

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"kinetics/maths"
	"kinetics/types"
)

// Stage 错误定位中的阶段名称
const Stage = "prediction"

// Program 温度程序与预测参数
type Program struct {
	Isothermal        bool    // 等温模式，否则为线性升温
	StartTemperature  float64 `validate:"gt=0"`       // 起始温度（K）
	EndTemperature    float64 `validate:"gte=0"`      // 终止温度（K），仅升温模式使用
	Ramp              float64 `validate:"gte=0"`      // 升温速率（K/s），等温模式忽略
	TimeStep          float64 `validate:"gt=0"`       // 时间步长（秒）
	Timeframe         float64 `validate:"gt=0"`       // 最长预测时间（秒）
	TotalHeat         float64 `validate:"gt=0"`       // 总反应热（J/g）
	InitialConversion float64 `validate:"gte=0,lt=1"` // 初始转化率，0 时使用默认值
}

// RampPerMinute 将 K/min 的升温速率换算为 K/s
func RampPerMinute(kPerMin float64) float64 { return kPerMin / 60 }

var validate = validator.New()

// Validate 校验程序参数
func (p *Program) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: 预测参数无效: %v", types.ErrInput, err)
	}
	if !p.Isothermal {
		if !(p.Ramp > 0) {
			return fmt.Errorf("%w: 升温模式需要正的升温速率，得到 %g K/s", types.ErrInput, p.Ramp)
		}
		if !(p.EndTemperature > p.StartTemperature) {
			return fmt.Errorf("%w: 终止温度 %g K 必须高于起始温度 %g K", types.ErrInput, p.EndTemperature, p.StartTemperature)
		}
	}
	return nil
}

// ramp 实际使用的升温速率
func (p *Program) ramp() float64 {
	if p.Isothermal {
		return 0
	}
	return p.Ramp
}

// Table 可按转化率推进查找的函数表
type Table interface {
	Cursor() *maths.Cursor
}

// State 预测轨迹，四个切片等长，每步追加一项
type State struct {
	Time        []float64
	Temperature []float64
	Conversion  []float64
	HeatFlow    []float64
}

// Len 轨迹点数
func (s *State) Len() int { return len(s.Time) }

// last 最后一个状态
func (s *State) last() (time, temperature, conversion float64) {
	n := len(s.Time) - 1
	return s.Time[n], s.Temperature[n], s.Conversion[n]
}

// Terminal 判断是否到达终止条件
// 等温：时间到达时限或转化率 >= 0.99999；升温：温度到达终止温度或时间到达时限。
func (p *Program) Terminal(s *State) bool {
	time, temperature, conversion := s.last()
	if p.Isothermal {
		return time >= p.Timeframe || conversion >= types.FullCureConversion
	}
	return temperature >= p.EndTemperature || time >= p.Timeframe
}

// Options 预测选项
type Options struct {
	Logger *zap.Logger
}

// Run 按温度程序向前积分反应速率，预测热流曲线
// 每步在当前转化率处查找活化能、指前因子与动力学函数值，
// heat_flow = A·exp(-E/RT)·f，转化率增加 heat_flow/Q·Δt。
// 时间按 i·Δt 计算，温度为 start + ramp·time。
func Run(p Program, energy, preFactor, kinetic Table, opts Options) (*State, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := p.Validate(); err != nil {
		return nil, types.NewStepError(Stage, err)
	}
	if energy == nil || preFactor == nil || kinetic == nil {
		return nil, types.NewStepError(Stage, errors.New("缺少活化能、指前因子或动力学函数"))
	}
	initial := p.InitialConversion
	if initial == 0 {
		initial = types.DefaultInitialConversion
	}
	cursors := []*maths.Cursor{energy.Cursor(), preFactor.Cursor(), kinetic.Cursor()}
	for i, c := range cursors {
		if c.Len() == 0 {
			return nil, types.NewStepError(Stage, fmt.Errorf("%w: 第 %d 个函数表为空", types.ErrInput, i+1))
		}
	}
	ramp := p.ramp()
	state := &State{
		Time:        []float64{0},
		Temperature: []float64{p.StartTemperature},
		Conversion:  []float64{initial},
		HeatFlow:    []float64{0},
	}
	for step := 1; !p.Terminal(state); step++ {
		_, temperature, conversion := state.last()
		e := cursors[0].At(conversion)
		a := cursors[1].At(conversion)
		f := cursors[2].At(conversion)
		q := a * math.Exp(-e/(types.GasConstant*temperature)) * f
		if math.IsNaN(q) || math.IsInf(q, 0) {
			return nil, types.NewStepError(Stage, fmt.Errorf("%w: 第 %d 步热流非有限（α=%g, T=%g, E=%g, A=%g, f=%g）",
				types.ErrNonConvergence, step, conversion, temperature, e, a, f))
		}
		conversion += q / p.TotalHeat * p.TimeStep
		time := float64(step) * p.TimeStep
		state.Time = append(state.Time, time)
		state.Temperature = append(state.Temperature, p.StartTemperature+ramp*time)
		state.Conversion = append(state.Conversion, conversion)
		state.HeatFlow = append(state.HeatFlow, q)

		if step%types.PruneInterval == 0 {
			for _, c := range cursors {
				c.Prune(conversion)
			}
			logger.Debug("预测进度",
				zap.Float64("time", time),
				zap.Float64("timeframe", p.Timeframe),
				zap.Float64("conversion", conversion))
		}
	}
	logger.Info("预测完成",
		zap.Int("steps", state.Len()-1),
		zap.Float64("conversion", state.Conversion[state.Len()-1]))
	return state, nil
}
