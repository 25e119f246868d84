package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"kinetics/logging"
	"kinetics/predict"
	"kinetics/series"
	"kinetics/types"
)

// envPrefix 环境变量前缀，如 DSC_ANALYSIS_INITIAL_GUESS
const envPrefix = "DSC"

// Config 运行配置
type Config struct {
	Data         DataConfig         `mapstructure:"data"`
	Analysis     AnalysisConfig     `mapstructure:"analysis"`
	Compensation CompensationConfig `mapstructure:"compensation"`
	Functions    FunctionsConfig    `mapstructure:"functions"`
	Prediction   PredictionConfig   `mapstructure:"prediction"`
	Log          logging.Config     `mapstructure:"log"`
	Output       OutputConfig       `mapstructure:"output"`
}

// DataConfig 实验数据读取
type DataConfig struct {
	TimeStep          float64 `mapstructure:"time_step" validate:"gt=0"`
	InKelvin          bool    `mapstructure:"in_kelvin"`
	TotalHeat         float64 `mapstructure:"total_heat" validate:"gte=0"` // 0 时由热流计算
	InitialConversion float64 `mapstructure:"initial_conversion" validate:"gte=0,lt=1"`
	ZeroFillSeconds   float64 `mapstructure:"zero_fill_seconds" validate:"gte=0"`
}

// LoadOptions 转换为加载参数
func (d DataConfig) LoadOptions() series.LoadOptions {
	return series.LoadOptions{
		TimeStep:     d.TimeStep,
		InKelvin:     d.InKelvin,
		Continuation: series.Continuation{ZeroFillSeconds: d.ZeroFillSeconds},
	}
}

// AnalysisConfig 等转化率分析
type AnalysisConfig struct {
	ConversionStep float64 `mapstructure:"conversion_step" validate:"gt=0,lt=1"`
	InitialGuess   float64 `mapstructure:"initial_guess" validate:"gt=0"` // J/mol
	WarmStart      bool    `mapstructure:"warm_start"`
	Tolerance      float64 `mapstructure:"tolerance" validate:"gte=0"`
}

// CompensationConfig 补偿参数 ln(A) = a·E + b
type CompensationConfig struct {
	A float64 `mapstructure:"a"`
	B float64 `mapstructure:"b"`
}

// Expression 在 [Lower, Upper] 上有效的公式
type Expression struct {
	Formula string  `mapstructure:"formula" validate:"required"`
	Lower   float64 `mapstructure:"lower"`
	Upper   float64 `mapstructure:"upper" validate:"gtefield=Lower"`
}

// FunctionConfig 用户函数来源：文件或分段公式，二选一
type FunctionConfig struct {
	File        string       `mapstructure:"file"`
	Expressions []Expression `mapstructure:"expressions" validate:"dive"`
}

// Empty 未指定任何来源
func (f FunctionConfig) Empty() bool { return f.File == "" && len(f.Expressions) == 0 }

// FunctionsConfig 活化能与动力学函数
type FunctionsConfig struct {
	Step    float64        `mapstructure:"step" validate:"gt=0,lt=1"`
	Energy  FunctionConfig `mapstructure:"energy"`
	Kinetic FunctionConfig `mapstructure:"kinetic"`
}

// PredictionConfig 预测温度程序，升温速率单位为 K/min
type PredictionConfig struct {
	Name              string  `mapstructure:"name" validate:"required"`
	Isothermal        bool    `mapstructure:"isothermal"`
	StartTemperature  float64 `mapstructure:"start_temperature" validate:"gte=0"`
	EndTemperature    float64 `mapstructure:"end_temperature" validate:"gte=0"`
	Ramp              float64 `mapstructure:"ramp" validate:"gte=0"`
	TimeStep          float64 `mapstructure:"time_step" validate:"gt=0"`
	Timeframe         float64 `mapstructure:"timeframe" validate:"gt=0"`
	TotalHeat         float64 `mapstructure:"total_heat" validate:"gte=0"`
	InitialConversion float64 `mapstructure:"initial_conversion" validate:"gte=0,lt=1"`
}

// Program 转换为预测程序
func (p PredictionConfig) Program() predict.Program {
	return predict.Program{
		Isothermal:        p.Isothermal,
		StartTemperature:  p.StartTemperature,
		EndTemperature:    p.EndTemperature,
		Ramp:              predict.RampPerMinute(p.Ramp),
		TimeStep:          p.TimeStep,
		Timeframe:         p.Timeframe,
		TotalHeat:         p.TotalHeat,
		InitialConversion: p.InitialConversion,
	}
}

// OutputConfig 输出
type OutputConfig struct {
	Dir    string `mapstructure:"dir" validate:"required"`
	XLSX   bool   `mapstructure:"xlsx"`
	Charts bool   `mapstructure:"charts"` // HTML 图表
	Plots  bool   `mapstructure:"plots"`  // PNG 图片
}

var validate = validator.New()

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: 配置无效: %v", types.ErrInput, err)
	}
	for name, f := range map[string]FunctionConfig{"energy": c.Functions.Energy, "kinetic": c.Functions.Kinetic} {
		if f.File != "" && len(f.Expressions) > 0 {
			return fmt.Errorf("%w: functions.%s 不能同时指定文件与公式", types.ErrInput, name)
		}
	}
	return nil
}

// setDefaults 默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("data.time_step", 1.0)
	v.SetDefault("data.in_kelvin", false)
	v.SetDefault("data.total_heat", 0.0)
	v.SetDefault("data.initial_conversion", 0.0)
	v.SetDefault("data.zero_fill_seconds", types.DefaultZeroFillSeconds)
	v.SetDefault("analysis.conversion_step", 0.01)
	v.SetDefault("analysis.initial_guess", 80000.0)
	v.SetDefault("analysis.warm_start", false)
	v.SetDefault("analysis.tolerance", 0.0)
	v.SetDefault("compensation.a", 0.0)
	v.SetDefault("compensation.b", 0.0)
	v.SetDefault("functions.step", 0.01)
	v.SetDefault("functions.energy.file", "")
	v.SetDefault("functions.kinetic.file", "")
	v.SetDefault("prediction.name", "prediction")
	v.SetDefault("prediction.isothermal", true)
	v.SetDefault("prediction.start_temperature", 0.0)
	v.SetDefault("prediction.end_temperature", 0.0)
	v.SetDefault("prediction.ramp", 0.0)
	v.SetDefault("prediction.time_step", 1.0)
	v.SetDefault("prediction.timeframe", 36000.0)
	v.SetDefault("prediction.total_heat", 0.0)
	v.SetDefault("prediction.initial_conversion", 0.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("output.dir", "results")
	v.SetDefault("output.xlsx", false)
	v.SetDefault("output.charts", false)
	v.SetDefault("output.plots", false)
}

// newViper YAML 配置，DSC_ 前缀环境变量覆盖，"." 映射为 "_"
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	return v
}

// Load 读取配置文件，path 为空时只使用默认值与环境变量
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件 %q: %w", path, err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
