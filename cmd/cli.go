package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"kinetics"
	"kinetics/config"
	"kinetics/logging"
	"kinetics/types"
)

// rootOptions 全局参数
type rootOptions struct {
	ConfigPath string
	LogLevel   string
	OutputDir  string
}

// app 命令共享的运行环境
type app struct {
	opts   rootOptions
	config *config.Config
	logger *zap.Logger
}

// engine 由配置构造分析引擎
func (a *app) engine() *kinetics.Engine { return kinetics.NewEngine(a.config, a.logger) }

// init 加载配置与日志，命令行参数优先于配置文件
func (a *app) init() error {
	cfg, err := config.Load(a.opts.ConfigPath)
	if err != nil {
		return err
	}
	if a.opts.LogLevel != "" {
		cfg.Log.Level = a.opts.LogLevel
	}
	if a.opts.OutputDir != "" {
		cfg.Output.Dir = a.opts.OutputDir
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.config, a.logger = cfg, logger
	return nil
}

// write 写出报告并打印文件列表
func (a *app) write(cmd *cobra.Command, out *kinetics.Output, err error) error {
	if err != nil {
		return err
	}
	files, err := a.engine().Write(out)
	for _, f := range files {
		fmt.Fprintln(cmd.OutOrStdout(), f)
	}
	return err
}

// newRootCommand 根命令与子命令
func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "kinetics",
		Short: "DSC 等转化率动力学三元组分析",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		SilenceUsage: true,
	}
	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.opts.ConfigPath, "config", "c", "", "配置文件（YAML）")
	pf.StringVar(&a.opts.LogLevel, "log-level", "", "日志级别 (debug, info, warn, error)")
	pf.StringVarP(&a.opts.OutputDir, "output", "o", "", "输出目录")
	cmd.AddCommand(
		newConversionCommand(a),
		newTotalHeatCommand(a),
		newActivationCommand(a),
		newCompensationCommand(a),
		newKineticCommand(a),
		newPredictCommand(a),
	)
	return cmd
}

func newConversionCommand(a *app) *cobra.Command {
	var totalHeat, initial float64
	cmd := &cobra.Command{
		Use:   "conversion FILE...",
		Short: "计算每次实验的转化率并写出时间、温度、热流、转化率与比热容",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("total-heat") {
				a.config.Data.TotalHeat = totalHeat
			}
			if cmd.Flags().Changed("initial-conversion") {
				a.config.Data.InitialConversion = initial
			}
			if err := a.config.Validate(); err != nil {
				return err
			}
			all, err := a.engine().Load(args...)
			if err != nil {
				return err
			}
			out, err := kinetics.ConversionOutput(all)
			return a.write(cmd, out, err)
		},
	}
	cmd.Flags().Float64Var(&totalHeat, "total-heat", 0, "总反应热（J/g），不大于 0 时由热流计算")
	cmd.Flags().Float64Var(&initial, "initial-conversion", 0, "初始转化率")
	return cmd
}

func newTotalHeatCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "total-heat FILE...",
		Short: "由归一化热流计算每次实验的总反应热（J/g）",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := a.engine().TotalHeat(args...)
			if err != nil {
				return err
			}
			for _, s := range all {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s J/g\n", s.Name, strconv.FormatFloat(s.TotalHeat, 'f', -1, 64))
			}
			return a.write(cmd, kinetics.TotalHeatOutput(all), nil)
		},
	}
}

func newActivationCommand(a *app) *cobra.Command {
	var step, guess float64
	cmd := &cobra.Command{
		Use:   "activation FILE...",
		Short: "由多次实验联合求解活化能曲线",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("step") {
				a.config.Analysis.ConversionStep = step
			}
			if cmd.Flags().Changed("guess") {
				a.config.Analysis.InitialGuess = guess
			}
			if err := a.config.Validate(); err != nil {
				return err
			}
			e := a.engine()
			all, err := e.Load(args...)
			if err != nil {
				return err
			}
			result, err := e.Activation(all)
			if err != nil {
				return err
			}
			out, err := kinetics.ActivationOutput(result)
			return a.write(cmd, out, err)
		},
	}
	cmd.Flags().Float64Var(&step, "step", 0, "转化率步长")
	cmd.Flags().Float64Var(&guess, "guess", 0, "活化能初始猜测（J/mol）")
	return cmd
}

func newCompensationCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compensation FILE...",
		Short: "对每次实验拟合 18 个动力学模型并求补偿参数",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := a.engine()
			all, err := e.Load(args...)
			if err != nil {
				return err
			}
			batch, err := e.Compensation(all)
			if err != nil {
				return err
			}
			a.logger.Info("补偿参数", zap.Float64("a_mean", batch.AMean), zap.Float64("b_mean", batch.BMean))
			out, err := kinetics.CompensationOutput(batch)
			return a.write(cmd, out, err)
		},
	}
}

// functionFlags 用户函数来源参数
type functionFlags struct {
	file  string
	exprs []string
}

// bind 注册 --<name>-file 与 --<name>-expr
func (f *functionFlags) bind(fs *pflag.FlagSet, name, what string) {
	fs.StringVar(&f.file, name+"-file", "", what+"文件")
	fs.StringArrayVar(&f.exprs, name+"-expr", nil, what+"公式，格式 FORMULA@LOWER:UPPER，可重复")
}

// apply 覆盖配置中的函数来源
func (f *functionFlags) apply(dst *config.FunctionConfig) error {
	if f.file == "" && len(f.exprs) == 0 {
		return nil
	}
	out := config.FunctionConfig{File: f.file}
	for _, s := range f.exprs {
		x, err := parseExpression(s)
		if err != nil {
			return err
		}
		out.Expressions = append(out.Expressions, x)
	}
	*dst = out
	return nil
}

// parseExpression 解析 FORMULA@LOWER:UPPER
func parseExpression(s string) (config.Expression, error) {
	at := strings.LastIndex(s, "@")
	if at < 0 {
		return config.Expression{}, fmt.Errorf("%w: 公式 %q 缺少 @LOWER:UPPER", types.ErrInput, s)
	}
	bounds := strings.SplitN(s[at+1:], ":", 2)
	if len(bounds) != 2 {
		return config.Expression{}, fmt.Errorf("%w: 公式 %q 的区间应为 LOWER:UPPER", types.ErrInput, s)
	}
	lower, err := strconv.ParseFloat(strings.TrimSpace(bounds[0]), 64)
	if err != nil {
		return config.Expression{}, fmt.Errorf("%w: 公式 %q 的下限: %v", types.ErrInput, s, err)
	}
	upper, err := strconv.ParseFloat(strings.TrimSpace(bounds[1]), 64)
	if err != nil {
		return config.Expression{}, fmt.Errorf("%w: 公式 %q 的上限: %v", types.ErrInput, s, err)
	}
	return config.Expression{Formula: strings.TrimSpace(s[:at]), Lower: lower, Upper: upper}, nil
}

// compensationHelpA, compensationHelpB 补偿直线 ln(A) = a·E + b 中 a 为斜率、b 为截距
const (
	compensationHelpA = "补偿参数 a：ln(A) = a·E + b 的斜率（mol/J）。若数值来自以 a 为截距、b 为斜率的报告，需与 b 交换"
	compensationHelpB = "补偿参数 b：ln(A) = a·E + b 的截距。若数值来自以 a 为截距、b 为斜率的报告，需与 a 交换"
)

// compensationFlags 补偿参数覆盖
func compensationFlags(cmd *cobra.Command, a *app, pa, pb *float64) {
	if cmd.Flags().Changed("a") {
		a.config.Compensation.A = *pa
	}
	if cmd.Flags().Changed("b") {
		a.config.Compensation.B = *pb
	}
}

func newKineticCommand(a *app) *cobra.Command {
	var energy functionFlags
	var pa, pb float64
	cmd := &cobra.Command{
		Use:   "kinetic FILE...",
		Short: "由活化能曲线与补偿参数计算实际动力学函数",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := energy.apply(&a.config.Functions.Energy); err != nil {
				return err
			}
			compensationFlags(cmd, a, &pa, &pb)
			if err := a.config.Validate(); err != nil {
				return err
			}
			e := a.engine()
			all, err := e.Load(args...)
			if err != nil {
				return err
			}
			tables, err := e.KineticFunction(all)
			if err != nil {
				return err
			}
			out, err := kinetics.KineticOutput(tables)
			return a.write(cmd, out, err)
		},
	}
	energy.bind(cmd.Flags(), "energy", "活化能")
	cmd.Flags().Float64Var(&pa, "a", 0, compensationHelpA)
	cmd.Flags().Float64Var(&pb, "b", 0, compensationHelpB)
	return cmd
}

func newPredictCommand(a *app) *cobra.Command {
	var energy, kinetic functionFlags
	var pa, pb float64
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "按温度程序预测热流曲线",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := energy.apply(&a.config.Functions.Energy); err != nil {
				return err
			}
			if err := kinetic.apply(&a.config.Functions.Kinetic); err != nil {
				return err
			}
			compensationFlags(cmd, a, &pa, &pb)
			if err := a.config.Validate(); err != nil {
				return err
			}
			state, err := a.engine().Predict()
			if err != nil {
				return err
			}
			out, err := kinetics.PredictionOutput(a.config.Prediction.Name, state)
			return a.write(cmd, out, err)
		},
	}
	energy.bind(cmd.Flags(), "energy", "活化能")
	kinetic.bind(cmd.Flags(), "kinetic", "动力学函数")
	cmd.Flags().Float64Var(&pa, "a", 0, compensationHelpA)
	cmd.Flags().Float64Var(&pb, "b", 0, compensationHelpB)
	return cmd
}
