package series

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"kinetics/types"
)

// Column 表格中识别出的列
type Column string

// 可识别的列
const (
	ColumnTime         Column = "time"
	ColumnTemperature  Column = "temperature"
	ColumnHeatFlow     Column = "heat_flow"
	ColumnHeatCapacity Column = "heat_capacity"
	ColumnConversion   Column = "conversion"
	ColumnValue        Column = "values"
)

// Continuation 空单元格的延续策略
// 行号 i 满足 i·Δt < ZeroFillSeconds 时补 0，否则沿用上一个值。
type Continuation struct {
	ZeroFillSeconds float64
}

// DefaultContinuation 默认延续策略
func DefaultContinuation() Continuation {
	return Continuation{ZeroFillSeconds: types.DefaultZeroFillSeconds}
}

// fill 返回空单元格的取值
func (c Continuation) fill(row int, timeStep float64, column []float64) float64 {
	if float64(row)*timeStep < c.ZeroFillSeconds || len(column) == 0 {
		return 0
	}
	return column[len(column)-1]
}

// LoadOptions 加载参数
type LoadOptions struct {
	TimeStep     float64      // 时间步长（秒），时间列按此重建
	InKelvin     bool         // 温度列是否已为开尔文
	Continuation Continuation // 空单元格策略
	Logger       *zap.Logger
}

// DetectColumns 按表头名称识别列位置
// 名称按子串匹配且不区分大小写，同一列只归入第一个匹配的类别。
func DetectColumns(header []string) map[Column]int {
	cols := make(map[Column]int)
	for i, name := range header {
		name = strings.ToLower(name)
		switch {
		case strings.Contains(name, "time"):
			cols[ColumnTime] = i
		case strings.Contains(name, "temperature"):
			cols[ColumnTemperature] = i
		case strings.Contains(name, "heat flow") && strings.Contains(name, "normalized"):
			cols[ColumnHeatFlow] = i
		case strings.Contains(name, "heat capacity") && strings.Contains(name, "normalized"):
			cols[ColumnHeatCapacity] = i
		case strings.Contains(name, "conversion"):
			cols[ColumnConversion] = i
		case strings.Contains(name, "activation energy") || strings.Contains(name, "value"):
			cols[ColumnValue] = i
		}
	}
	return cols
}

// ParseNumber 解析单元格数值，接受小数逗号
func ParseNumber(cell string) (float64, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(cell), ",", "."))
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

// ReadTable 读取制表符分隔的表格
// 第一行为表头，返回识别出的各列数据，所有列截断到最短列的长度。
// 缺少某列的行（如文件末尾空行）对该列跳过，空单元格按 cont 处理。
func ReadTable(r io.Reader, timeStep float64, cont Continuation) (map[Column][]float64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("读取表头失败: %w", err)
		}
		return nil, fmt.Errorf("%w: 表格为空", types.ErrInput)
	}
	cols := DetectColumns(strings.Split(scanner.Text(), "\t"))
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: 表头中没有可识别的列", types.ErrInput)
	}
	data := make(map[Column][]float64, len(cols))
	for row := 0; scanner.Scan(); row++ {
		fields := strings.Split(scanner.Text(), "\t")
		for col, idx := range cols {
			if idx >= len(fields) {
				continue
			}
			cell := strings.TrimSpace(fields[idx])
			if cell == "" {
				data[col] = append(data[col], cont.fill(row, timeStep, data[col]))
				continue
			}
			v, err := ParseNumber(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: 第 %d 行 %s 列无法解析 %q", types.ErrInput, row+2, col, cell)
			}
			data[col] = append(data[col], v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取表格失败: %w", err)
	}
	n := -1
	for col := range cols {
		if l := len(data[col]); n < 0 || l < n {
			n = l
		}
	}
	for col := range cols {
		data[col] = data[col][:n]
	}
	return data, nil
}

// Load 从表格读取一次实验
// 时间列按 TimeStep 重建为 0, Δt, 2Δt, ...；温度按需转换为开尔文。
func Load(name string, r io.Reader, opts LoadOptions) (*Series, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if !(opts.TimeStep > 0) {
		return nil, fmt.Errorf("%w: 实验 %s 时间步长必须大于 0", types.ErrInput, name)
	}
	data, err := ReadTable(r, opts.TimeStep, opts.Continuation)
	if err != nil {
		return nil, fmt.Errorf("加载实验 %s: %w", name, err)
	}
	for _, col := range []Column{ColumnTemperature, ColumnHeatFlow} {
		if _, ok := data[col]; !ok {
			return nil, fmt.Errorf("%w: 实验 %s 缺少 %s 列", types.ErrInput, name, col)
		}
	}
	n := len(data[ColumnHeatFlow])
	time := make([]float64, n)
	step := decimal.NewFromFloat(opts.TimeStep)
	for i := range time {
		time[i] = step.Mul(decimal.NewFromInt(int64(i))).InexactFloat64()
	}
	s, err := New(name, opts.TimeStep, time, data[ColumnTemperature], data[ColumnHeatFlow])
	if err != nil {
		return nil, err
	}
	if hc, ok := data[ColumnHeatCapacity]; ok {
		s.HeatCapacity = hc
	}
	s.InKelvin = opts.InKelvin
	s.ToKelvin()
	logger.Info("实验数据已加载", zap.String("experiment", name), zap.Int("samples", n))
	return s, nil
}

// LoadFile 从文件加载一次实验，实验名为文件名
func LoadFile(path string, opts LoadOptions) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开实验文件: %w", err)
	}
	defer f.Close()
	return Load(filepath.Base(path), f, opts)
}
