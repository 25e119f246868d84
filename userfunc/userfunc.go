package userfunc

import (
	"fmt"
	"io"
	"math"
	"os"

	"kinetics/compensation"
	"kinetics/maths"
	"kinetics/series"
	"kinetics/types"
)

// Function 定义在转化率网格上的用户函数（活化能、指前因子或动力学函数）
// Conversion 升序且无重复，Values 与之等长。
type Function struct {
	Conversion []float64
	Values     []float64
}

// Len 网格点数
func (f *Function) Len() int { return len(f.Conversion) }

// At 返回与 alpha 最接近的网格点上的值，函数为空时返回 NaN
func (f *Function) At(alpha float64) float64 {
	i := maths.NearestIndex(f.Conversion, alpha)
	if i < 0 {
		return math.NaN()
	}
	return f.Values[i]
}

// Cursor 创建随转化率推进的查找表
func (f *Function) Cursor() *maths.Cursor {
	return maths.NewCursor(f.Conversion, f.Values)
}

// Range 转化率定义域
func (f *Function) Range() (lower, upper float64) {
	if f.Len() == 0 {
		return math.NaN(), math.NaN()
	}
	return f.Conversion[0], f.Conversion[f.Len()-1]
}

// FromTable 将 (转化率, 值) 表重采样到均匀网格
// 网格从表中第一个转化率开始，以 step 递增，直到覆盖最后一个转化率。
// 原始表不短于网格时单次前向扫描，否则按最近索引查找，长度不足时以最后一个值补齐。
func FromTable(conversion, values []float64, step float64) (*Function, error) {
	if len(conversion) == 0 || len(conversion) != len(values) {
		return nil, fmt.Errorf("%w: 用户函数表为空或列长度不一致（%d, %d）", types.ErrInput, len(conversion), len(values))
	}
	for i := 1; i < len(conversion); i++ {
		if conversion[i] < conversion[i-1] {
			return nil, fmt.Errorf("%w: 用户函数表第 %d 行转化率 %g 小于前一行 %g", types.ErrInput, i+1, conversion[i], conversion[i-1])
		}
	}
	grid, err := maths.Steps(conversion[0], conversion[len(conversion)-1], step)
	if err != nil {
		return nil, err
	}
	resampled := maths.Resample(grid, conversion, values)
	if len(resampled) != len(grid) {
		return nil, fmt.Errorf("%w: 重采样得到 %d 个值，需要 %d 个", types.ErrInput, len(resampled), len(grid))
	}
	return &Function{Conversion: grid, Values: resampled}, nil
}

// ReadTable 读取 (转化率, 值) 表
// 需要表头中含 conversion 的列与含 activation energy 或 value 的列。
func ReadTable(r io.Reader) (conversion, values []float64, err error) {
	// 用户函数表没有时间轴，空单元格一律沿用上一个值
	data, err := series.ReadTable(r, 1, series.Continuation{})
	if err != nil {
		return nil, nil, err
	}
	conversion, ok := data[series.ColumnConversion]
	if !ok {
		return nil, nil, fmt.Errorf("%w: 用户函数表缺少转化率列", types.ErrInput)
	}
	values, ok = data[series.ColumnValue]
	if !ok {
		return nil, nil, fmt.Errorf("%w: 用户函数表缺少数值列", types.ErrInput)
	}
	return conversion, values, nil
}

// FromFile 从文件读取用户函数并重采样到 step 网格
func FromFile(path string, step float64) (*Function, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开用户函数文件: %w", err)
	}
	defer f.Close()
	conversion, values, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("读取用户函数文件 %s: %w", path, err)
	}
	return FromTable(conversion, values, step)
}

// PreFactor 由活化能曲线与补偿参数导出指前因子曲线 A(α) = exp(a·E(α) + b)
func PreFactor(energy *Function, a, b float64) (*Function, error) {
	out := &Function{
		Conversion: append([]float64(nil), energy.Conversion...),
		Values:     make([]float64, len(energy.Values)),
	}
	for i, e := range energy.Values {
		v := compensation.PreFactor(a, b, e)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: 转化率 %g 处指前因子非有限（E=%g, a=%g, b=%g）",
				types.ErrInput, energy.Conversion[i], e, a, b)
		}
		out.Values[i] = v
	}
	return out, nil
}
