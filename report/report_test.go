package report

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"kinetics/compensation"
	"kinetics/isoconv"
	"kinetics/predict"
	"kinetics/series"
	"kinetics/userfunc"
)

func activation() *Table {
	return Activation(&isoconv.Result{
		Conversion:       []float64{0.1, 0.2},
		ActivationEnergy: []float64{60000, 65000.5},
		Objective:        []float64{6.0001, 6.002},
	})
}

// TestWriteTSV 测试制表符输出格式
func TestWriteTSV(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, WriteTSV(&b, activation()))
	want := "Conversion\tActivation Energy (J/mol)\tObjective\n" +
		"0.1\t60000\t6.0001\n" +
		"0.2\t65000.5\t6.002\n"
	assert.Equal(t, want, b.String())
}

// TestActivationReadBack 测试活化能输出可作为用户函数文件读回
func TestActivationReadBack(t *testing.T) {
	path, err := SaveTSV(t.TempDir(), activation())
	require.NoError(t, err)
	assert.Equal(t, "activation_energy.txt", filepath.Base(path))
	f, err := userfunc.FromFile(path, 0.1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, f.Conversion)
	assert.Equal(t, []float64{60000, 65000.5}, f.Values)
}

// TestCompensationTables 测试补偿结果的说明行与模型排序
func TestCompensationTables(t *testing.T) {
	fit := &compensation.ExperimentFit{
		Name: "run1",
		Models: map[string]*compensation.ModelFit{
			"SO": {Name: "SO", ActivationEnergy: 70000, LnPreFactor: 20},
			"FO": {Name: "FO", ActivationEnergy: 60000, LnPreFactor: 15},
		},
		A: 5e-4,
		B: -15,
	}
	var b bytes.Buffer
	require.NoError(t, WriteTSV(&b, CompensationModels(fit)))
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "a = 0.0005 (mol/J)\tb = -15", lines[0])
	assert.Equal(t, "Model name\tE for this model (J/mol)\tln(A) for this model", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "FO\t60000"))
	assert.True(t, strings.HasPrefix(lines[3], "SO\t70000"))

	batch := CompensationBatch(&compensation.Batch{Experiments: []*compensation.ExperimentFit{fit}, AMean: 5e-4, BMean: -15})
	require.Len(t, batch.Rows, 1)
	assert.Equal(t, "run1", batch.Rows[0][0])
}

// TestWorkbook 测试工作簿内容可读回，工作表名截断且不重复
func TestWorkbook(t *testing.T) {
	long := strings.Repeat("x", 40)
	pred := Prediction(long, &predict.State{
		Time:        []float64{0, 1},
		Temperature: []float64{400, 400},
		Conversion:  []float64{1e-7, 0.1},
		HeatFlow:    []float64{0, math.NaN()},
	})
	again := Prediction(long, &predict.State{Time: []float64{0}, Temperature: []float64{1}, Conversion: []float64{0}, HeatFlow: []float64{0}})
	path := filepath.Join(t.TempDir(), "out", "report.xlsx")
	require.NoError(t, SaveXLSX(path, activation(), pred, again))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	sheets := f.GetSheetList()
	require.Len(t, sheets, 3)
	assert.Equal(t, "activation_energy", sheets[0])
	assert.Len(t, []rune(sheets[1]), 31)
	assert.NotEqual(t, sheets[1], sheets[2])

	rows, err := f.GetRows("activation_energy")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Conversion", "Activation Energy (J/mol)", "Objective"}, rows[0])
	assert.Equal(t, "65000.5", rows[2][1])

	rows, err = f.GetRows(sheets[1])
	require.NoError(t, err)
	assert.Equal(t, "NaN", rows[2][3])
}

// TestCharts 测试网页与图片输出
func TestCharts(t *testing.T) {
	c, err := activation().Chart("活化能", HeaderConversion, HeaderActivationEnergy)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, []float64{0.1, 0.2}, c.X)

	all, err := activation().Chart("全部", HeaderConversion)
	require.NoError(t, err)
	assert.Len(t, all.Lines, 2)

	_, err = activation().Chart("缺失", "Nope")
	assert.Error(t, err)

	c.Lines = append(c.Lines, Line{Name: "gap", Values: []float64{math.NaN(), 1}})
	var html bytes.Buffer
	require.NoError(t, RenderHTML(&html, c))
	assert.Contains(t, html.String(), "echarts")

	var png bytes.Buffer
	require.NoError(t, WritePNG(&png, c))
	assert.True(t, bytes.HasPrefix(png.Bytes(), []byte("\x89PNG\r\n\x1a\n")))
}

// TestConversionTable 测试转化率表的列顺序与可选比热容列
func TestConversionTable(t *testing.T) {
	s, err := series.New("run1", 1, []float64{0, 1, 2}, []float64{400, 401, 402}, []float64{1, 1, 1})
	require.NoError(t, err)
	require.NoError(t, s.ComputeConversion(2, 0))

	tab := Conversion(s)
	assert.Equal(t, "run1_conversion", tab.Name)
	assert.Equal(t, []string{HeaderTime, HeaderTemperature, HeaderHeatFlow, HeaderConversion}, tab.Header)
	require.Len(t, tab.Rows, 3)
	assert.Equal(t, []any{2.0, 402.0, 1.0, 1.0}, tab.Rows[2])

	s.HeatCapacity = []float64{1.5, 1.6, 1.7}
	tab = Conversion(s)
	assert.Equal(t, HeaderHeatCapacity, tab.Header[len(tab.Header)-1])
	assert.Equal(t, []float64{1.5, 1.6, 1.7}, tab.Column(tab.Index(HeaderHeatCapacity)))

	var b bytes.Buffer
	s.ComputeTotalHeat()
	require.NoError(t, WriteTSV(&b, TotalHeat([]*series.Series{s})))
	assert.Equal(t, "Filename\tTotal Heat (J/g)\nrun1\t2\n", b.String())
}
