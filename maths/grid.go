package maths

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"kinetics/types"
)

// Steps 生成等间距转化率网格 [lower, lower+step, ...]
// 只要上一个点仍小于 upper 就继续生成，因此最后一个点可能略超过 upper。
// 使用十进制运算，避免 k·step 的浮点漂移，使不同区间的同值网格点完全相等。
func Steps(lower, upper, step float64) ([]float64, error) {
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, fmt.Errorf("%w: 转化率步长必须大于 0，得到 %g", types.ErrInput, step)
	}
	if !finite(lower) || !finite(upper) {
		return nil, fmt.Errorf("%w: 转化率区间无效 [%g, %g]", types.ErrInput, lower, upper)
	}
	lo := decimal.NewFromFloat(lower)
	up := decimal.NewFromFloat(upper)
	st := decimal.NewFromFloat(step)
	out := []float64{lo.InexactFloat64()}
	for k := int64(1); ; k++ {
		prev := lo.Add(st.Mul(decimal.NewFromInt(k - 1)))
		if !prev.LessThan(up) {
			break
		}
		out = append(out, lo.Add(st.Mul(decimal.NewFromInt(k))).InexactFloat64())
	}
	return out, nil
}

// Target 返回第 k 个目标值 base + k·step（十进制运算）
func Target(base, step float64, k int) float64 {
	return decimal.NewFromFloat(base).
		Add(decimal.NewFromFloat(step).Mul(decimal.NewFromInt(int64(k)))).
		InexactFloat64()
}

// Round 按十进制规则保留 digits 位小数
func Round(x float64, digits int32) float64 {
	if !finite(x) {
		return x
	}
	return decimal.NewFromFloat(x).Round(digits).InexactFloat64()
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
