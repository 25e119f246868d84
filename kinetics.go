package kinetics

import (
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"kinetics/compensation"
	"kinetics/config"
	"kinetics/isoconv"
	"kinetics/kinetic"
	"kinetics/predict"
	"kinetics/report"
	"kinetics/series"
	"kinetics/types"
	"kinetics/userfunc"
)

// Engine 动力学三元组分析引擎
type Engine struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewEngine 初始化
func NewEngine(cfg *config.Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{Config: cfg, Logger: logger}
}

// read 加载实验文件
func (e *Engine) read(paths []string) ([]*series.Series, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: 没有实验文件", types.ErrInput)
	}
	opts := e.Config.Data.LoadOptions()
	opts.Logger = e.Logger
	all := make([]*series.Series, 0, len(paths))
	for _, path := range paths {
		s, err := series.LoadFile(path, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, s)
	}
	return all, nil
}

// Load 加载实验文件并计算转化率
func (e *Engine) Load(paths ...string) ([]*series.Series, error) {
	all, err := e.read(paths)
	if err != nil {
		return nil, err
	}
	for _, s := range all {
		if err := s.ComputeConversion(e.Config.Data.TotalHeat, e.Config.Data.InitialConversion); err != nil {
			return nil, err
		}
		e.Logger.Info("转化率已计算",
			zap.String("experiment", s.Name),
			zap.Float64("total_heat", s.TotalHeat),
			zap.Float64("max_conversion", s.MaxConversion()))
	}
	return all, nil
}

// TotalHeat 加载实验文件并由热流计算总反应热，不使用配置中的总热量
func (e *Engine) TotalHeat(paths ...string) ([]*series.Series, error) {
	all, err := e.read(paths)
	if err != nil {
		return nil, err
	}
	for _, s := range all {
		e.Logger.Info("总反应热", zap.String("experiment", s.Name), zap.Float64("total_heat", s.ComputeTotalHeat()))
	}
	return all, nil
}

// Activation 等转化率分析
// 按转化率步长定位检查点，截断到各实验共同达到的转化率后联合求解活化能。
func (e *Engine) Activation(all []*series.Series) (*isoconv.Result, error) {
	step := e.Config.Analysis.ConversionStep
	for _, s := range all {
		if err := s.FindCheckpoints(step); err != nil {
			return nil, err
		}
	}
	ceiling, err := series.SmallestConversionCeiling(all)
	if err != nil {
		return nil, err
	}
	count, err := series.TruncateCheckpoints(all, ceiling)
	if err != nil {
		return nil, err
	}
	e.Logger.Info("检查点已对齐", zap.Float64("ceiling", ceiling), zap.Int("checkpoints", count-1))
	return isoconv.Solve(all, isoconv.Options{
		InitialGuess: e.Config.Analysis.InitialGuess,
		Warm:         e.Config.Analysis.WarmStart,
		Tolerance:    e.Config.Analysis.Tolerance,
		Logger:       e.Logger,
	})
}

// Compensation 补偿参数拟合
func (e *Engine) Compensation(all []*series.Series) (*compensation.Batch, error) {
	return compensation.FitBatch(all, compensation.Options{Logger: e.Logger})
}

// Resolve 由文件或分段公式得到用户函数
func (e *Engine) Resolve(f config.FunctionConfig) (*userfunc.Function, error) {
	step := e.Config.Functions.Step
	if f.File != "" {
		return userfunc.FromFile(f.File, step)
	}
	if len(f.Expressions) == 0 {
		return nil, fmt.Errorf("%w: 未指定用户函数的文件或公式", types.ErrInput)
	}
	b, err := userfunc.NewBuilder(step)
	if err != nil {
		return nil, err
	}
	for _, x := range f.Expressions {
		if err := b.Add(x.Formula, x.Lower, x.Upper); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

// energy 活化能与由补偿参数导出的指前因子
func (e *Engine) energy() (energy, preFactor *userfunc.Function, err error) {
	energy, err = e.Resolve(e.Config.Functions.Energy)
	if err != nil {
		return nil, nil, fmt.Errorf("活化能: %w", err)
	}
	preFactor, err = userfunc.PreFactor(energy, e.Config.Compensation.A, e.Config.Compensation.B)
	if err != nil {
		return nil, nil, fmt.Errorf("指前因子: %w", err)
	}
	return energy, preFactor, nil
}

// KineticFunction 计算各实验的实际动力学函数
func (e *Engine) KineticFunction(all []*series.Series) ([]*kinetic.Table, error) {
	energy, preFactor, err := e.energy()
	if err != nil {
		return nil, err
	}
	out := make([]*kinetic.Table, 0, len(all))
	for _, s := range all {
		t, err := kinetic.Calculate(s, energy, preFactor)
		if err != nil {
			return nil, err
		}
		e.Logger.Info("动力学函数已计算", zap.String("experiment", s.Name), zap.Int("points", t.Len()))
		out = append(out, t)
	}
	return out, nil
}

// Predict 按配置的温度程序预测热流
func (e *Engine) Predict() (*predict.State, error) {
	energy, preFactor, err := e.energy()
	if err != nil {
		return nil, err
	}
	kin, err := e.Resolve(e.Config.Functions.Kinetic)
	if err != nil {
		return nil, fmt.Errorf("动力学函数: %w", err)
	}
	return predict.Run(e.Config.Prediction.Program(), energy, preFactor, kin, predict.Options{Logger: e.Logger})
}

// Output 一次运行的报告
type Output struct {
	Name   string // 工作簿与网页的文件名
	Tables []*report.Table
	Charts []report.Chart
}

// add 添加表格
func (o *Output) add(tables ...*report.Table) {
	o.Tables = append(o.Tables, tables...)
}

// chart 按表格的给定列生成图表
func (o *Output) chart(t *report.Table, title, x string, ys ...string) error {
	c, err := t.Chart(title, x, ys...)
	if err != nil {
		return err
	}
	o.Charts = append(o.Charts, c)
	return nil
}

// ConversionOutput 各实验的转化率轨迹
func ConversionOutput(all []*series.Series) (*Output, error) {
	o := &Output{Name: "conversion"}
	for _, s := range all {
		t := report.Conversion(s)
		o.add(t)
		if err := o.chart(t, "转化率", report.HeaderTime, report.HeaderConversion); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// TotalHeatOutput 总反应热报告
func TotalHeatOutput(all []*series.Series) *Output {
	o := &Output{Name: "total_heat"}
	o.add(report.TotalHeat(all))
	return o
}

// ActivationOutput 活化能报告
func ActivationOutput(r *isoconv.Result) (*Output, error) {
	o := &Output{Name: "activation_energy"}
	t := report.Activation(r)
	o.add(t)
	err := o.chart(t, "活化能", report.HeaderConversion, report.HeaderActivationEnergy)
	return o, err
}

// CompensationOutput 补偿报告：每个实验的逐点表与模型表，以及平均值表
func CompensationOutput(b *compensation.Batch) (*Output, error) {
	o := &Output{Name: "compensation"}
	for _, fit := range b.Experiments {
		var lhs []string
		for _, m := range fit.Sorted() {
			lhs = append(lhs, report.LeftHandSide(m.Name))
		}
		samples := report.CompensationSamples(fit)
		o.add(samples, report.CompensationModels(fit))
		if err := o.chart(samples, "ln(q/f) 与 -1/RT", report.HeaderInverseRT, lhs...); err != nil {
			return nil, err
		}
	}
	o.add(report.CompensationBatch(b))
	return o, nil
}

// KineticOutput 动力学函数报告
func KineticOutput(tables []*kinetic.Table) (*Output, error) {
	o := &Output{Name: "kinetic_function"}
	for _, t := range tables {
		k := report.Kinetic(t)
		o.add(k)
		if err := o.chart(k, "实际动力学函数", report.HeaderConversion, report.HeaderKineticFunction); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// PredictionOutput 预测报告
func PredictionOutput(name string, s *predict.State) (*Output, error) {
	o := &Output{Name: name}
	t := report.Prediction(name, s)
	o.add(t)
	if err := o.chart(t, "预测热流", report.HeaderTime, report.HeaderHeatFlow); err != nil {
		return nil, err
	}
	if err := o.chart(t, "预测转化率", report.HeaderTime, report.HeaderConversion); err != nil {
		return nil, err
	}
	return o, nil
}

// Write 按输出配置写出报告，返回写出的文件
func (e *Engine) Write(o *Output) ([]string, error) {
	cfg := e.Config.Output
	var files []string
	for _, t := range o.Tables {
		path, err := report.SaveTSV(cfg.Dir, t)
		if err != nil {
			return files, err
		}
		files = append(files, path)
	}
	if cfg.XLSX {
		path := filepath.Join(cfg.Dir, o.Name+".xlsx")
		if err := report.SaveXLSX(path, o.Tables...); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	if cfg.Charts && len(o.Charts) > 0 {
		path := filepath.Join(cfg.Dir, o.Name+".html")
		if err := report.SaveHTML(path, o.Charts...); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	if cfg.Plots {
		var errs []error
		for i, c := range o.Charts {
			path := filepath.Join(cfg.Dir, fmt.Sprintf("%s_%d.png", o.Name, i+1))
			if err := report.SavePNG(path, c); err != nil {
				errs = append(errs, err)
				continue
			}
			files = append(files, path)
		}
		if err := errors.Join(errs...); err != nil {
			return files, err
		}
	}
	for _, f := range files {
		e.Logger.Debug("已写出", zap.String("file", f))
	}
	return files, nil
}
