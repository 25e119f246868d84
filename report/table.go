package report

import (
	"fmt"
	"math"
	"strconv"

	"kinetics/compensation"
	"kinetics/isoconv"
	"kinetics/kinetic"
	"kinetics/predict"
	"kinetics/series"
	"kinetics/types"
)

// Table 输出表格
// Rows 中的单元格为 float64 或 string。
type Table struct {
	Name   string     // 表名，用作工作表名与文件名
	Notes  [][]string // 表头之前的说明行
	Header []string
	Rows   [][]any
}

// Index 返回表头列位置，找不到时返回 -1
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Column 取出数值列，非数值单元格为 NaN
func (t *Table) Column(i int) []float64 {
	out := make([]float64, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = math.NaN()
		if i < len(row) {
			if v, ok := row[i].(float64); ok {
				out[r] = v
			}
		}
	}
	return out
}

// Chart 以 x 列为横轴，ys 列为曲线生成图表；ys 为空时取除 x 外的全部列
func (t *Table) Chart(title, x string, ys ...string) (Chart, error) {
	xi := t.Index(x)
	if xi < 0 {
		return Chart{}, fmt.Errorf("%w: 表 %s 中没有列 %q", types.ErrInput, t.Name, x)
	}
	if len(ys) == 0 {
		for i, h := range t.Header {
			if i != xi {
				ys = append(ys, h)
			}
		}
	}
	c := Chart{Title: title, Subtitle: t.Name, XLabel: x, X: t.Column(xi)}
	for _, y := range ys {
		yi := t.Index(y)
		if yi < 0 {
			return Chart{}, fmt.Errorf("%w: 表 %s 中没有列 %q", types.ErrInput, t.Name, y)
		}
		c.Lines = append(c.Lines, Line{Name: y, Values: t.Column(yi)})
	}
	return c, nil
}

// cell 单元格文本
func cell(v any) string {
	switch v := v.(type) {
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// floats 将若干等长列按行组合
func floats(columns ...[]float64) [][]any {
	n := -1
	for _, c := range columns {
		if n < 0 || len(c) < n {
			n = len(c)
		}
	}
	rows := make([][]any, max(n, 0))
	for i := range rows {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = c[i]
		}
		rows[i] = row
	}
	return rows
}

// 列名
const (
	HeaderConversion       = "Conversion"
	HeaderActivationEnergy = "Activation Energy (J/mol)"
	HeaderObjective        = "Objective"
	HeaderTime             = "Time (s)"
	HeaderTemperature      = "Temperature (K)"
	HeaderHeatFlow         = "Normalized Heat Flow (W/g)"
	HeaderInverseRT        = "-1/RT"
	HeaderKineticFunction  = "Actual Kinetic Function"
	HeaderPreFactor        = "Pre-Factor"
	HeaderHeatCapacity     = "Normalized Heat Capacity"
	HeaderTotalHeat        = "Total Heat (J/g)"
)

// Conversion 实验的转化率轨迹，时间为秒，温度为开尔文
// 载入了比热容列时附加在最后。
func Conversion(s *series.Series) *Table {
	columns := [][]float64{s.Time, s.Temperature, s.HeatFlow, s.Conversion}
	header := []string{HeaderTime, HeaderTemperature, HeaderHeatFlow, HeaderConversion}
	if len(s.HeatCapacity) > 0 {
		columns = append(columns, s.HeatCapacity)
		header = append(header, HeaderHeatCapacity)
	}
	return &Table{
		Name:   s.Name + "_conversion",
		Header: header,
		Rows:   floats(columns...),
	}
}

// TotalHeat 各实验的总反应热
func TotalHeat(all []*series.Series) *Table {
	t := &Table{Name: "total_heat", Header: []string{"Filename", HeaderTotalHeat}}
	for _, s := range all {
		t.Rows = append(t.Rows, []any{s.Name, s.TotalHeat})
	}
	return t
}

// Activation 活化能曲线
// 表头可被用户函数读取器识别，可直接作为后续步骤的活化能文件。
func Activation(r *isoconv.Result) *Table {
	return &Table{
		Name:   "activation_energy",
		Header: []string{HeaderConversion, HeaderActivationEnergy, HeaderObjective},
		Rows:   floats(r.Conversion, r.ActivationEnergy, r.Objective),
	}
}

// ModelValues 模型值列名
func ModelValues(model string) string { return model + "_model_values" }

// LeftHandSide 左端项列名
func LeftHandSide(model string) string { return model + "_left_hand_side_values" }

// CompensationSamples 单次实验逐采样点的模型值与左端项
func CompensationSamples(fit *compensation.ExperimentFit) *Table {
	s := fit.Series
	columns := [][]float64{s.Time, s.HeatFlow, s.Conversion, s.Temperature, fit.InverseTemperature}
	header := []string{HeaderTime, HeaderHeatFlow, HeaderConversion, HeaderTemperature, HeaderInverseRT}
	for _, m := range fit.Sorted() {
		columns = append(columns, m.ModelValues, m.LeftHandSide)
		header = append(header, ModelValues(m.Name), LeftHandSide(m.Name))
	}
	return &Table{
		Name:   fit.Name + "_samples",
		Header: header,
		Rows:   floats(columns...),
	}
}

// CompensationModels 单次实验各模型的 E 与 ln(A)，说明行给出补偿参数
func CompensationModels(fit *compensation.ExperimentFit) *Table {
	t := &Table{
		Name: fit.Name + "_compensation",
		Notes: [][]string{{
			"a = " + cell(fit.A) + " (mol/J)",
			"b = " + cell(fit.B),
		}},
		Header: []string{"Model name", "E for this model (J/mol)", "ln(A) for this model"},
	}
	for _, m := range fit.Sorted() {
		t.Rows = append(t.Rows, []any{m.Name, m.ActivationEnergy, m.LnPreFactor})
	}
	return t
}

// CompensationBatch 一批实验的补偿参数及其平均值
func CompensationBatch(b *compensation.Batch) *Table {
	t := &Table{
		Name: "compensation_mean",
		Notes: [][]string{{
			"a_mean = " + cell(b.AMean) + " (mol/J)",
			"b_mean = " + cell(b.BMean),
		}},
		Header: []string{"Filename", "a (mol/J)", "b"},
	}
	for _, e := range b.Experiments {
		t.Rows = append(t.Rows, []any{e.Name, e.A, e.B})
	}
	return t
}

// Kinetic 实验的实际动力学函数
func Kinetic(k *kinetic.Table) *Table {
	return &Table{
		Name: k.Name + "_kinetic_function",
		Header: []string{HeaderConversion, HeaderKineticFunction, HeaderHeatFlow,
			HeaderTemperature, HeaderActivationEnergy, HeaderPreFactor},
		Rows: floats(k.Conversion, k.KineticFunction, k.HeatFlow, k.Temperature, k.ActivationEnergy, k.PreFactor),
	}
}

// Prediction 预测轨迹
func Prediction(name string, s *predict.State) *Table {
	return &Table{
		Name:   name,
		Header: []string{HeaderTime, HeaderTemperature, HeaderConversion, HeaderHeatFlow},
		Rows:   floats(s.Time, s.Temperature, s.Conversion, s.HeatFlow),
	}
}
