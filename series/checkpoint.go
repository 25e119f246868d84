package series

import (
	"fmt"
	"math"

	"kinetics/maths"
	"kinetics/types"
)

// Checkpoints 转化率检查点表
// 三个切片等长，索引 0 为起始条目 (初始转化率, time[0], temperature[0])，
// 索引 k >= 1 为目标转化率 初始转化率 + k·step 及首个达到它的采样点的时间与温度。
type Checkpoints struct {
	Conversion  []float64 // 目标转化率
	Time        []float64 // 首次达到目标时的时间
	Temperature []float64 // 首次达到目标时的温度
}

// Len 检查点数量（含起始条目）
func (c Checkpoints) Len() int { return len(c.Conversion) }

// Truncate 只保留前 n 个检查点
func (c *Checkpoints) Truncate(n int) {
	if n < 0 || n >= c.Len() {
		return
	}
	c.Conversion = c.Conversion[:n]
	c.Time = c.Time[:n]
	c.Temperature = c.Temperature[:n]
}

// FindCheckpoints 按转化率步长查找检查点
// 顺序扫描转化率，conversion[i] 首次不小于下一个目标时记录该采样点并推进目标。
// 每个采样点最多记录一个检查点，目标不会超过 1.0。
func (s *Series) FindCheckpoints(step float64) error {
	if !(step > 0) || math.IsInf(step, 0) {
		return fmt.Errorf("%w: 实验 %s 转化率步长必须大于 0，得到 %g", types.ErrInput, s.Name, step)
	}
	if len(s.Conversion) == 0 {
		return fmt.Errorf("%w: 实验 %s 尚未计算转化率", types.ErrInput, s.Name)
	}
	n := min(len(s.Conversion), len(s.Time), len(s.Temperature))
	cp := Checkpoints{
		Conversion:  []float64{s.Conversion[0]},
		Time:        []float64{s.Time[0]},
		Temperature: []float64{s.Temperature[0]},
	}
	base := s.Conversion[0]
	k := 1
	next := maths.Target(base, step, k)
	for i := 0; i < n && next <= types.MaxConversion; i++ {
		if s.Conversion[i] < next {
			continue
		}
		cp.Conversion = append(cp.Conversion, next)
		cp.Time = append(cp.Time, s.Time[i])
		cp.Temperature = append(cp.Temperature, s.Temperature[i])
		k++
		next = maths.Target(base, step, k)
	}
	s.Checkpoints = cp
	return nil
}

// SmallestConversionCeiling 联合分析的最小转化率上限
// 即各实验所达最大转化率中的最小值。
func SmallestConversionCeiling(all []*Series) (float64, error) {
	if len(all) == 0 {
		return 0, fmt.Errorf("%w: 没有实验数据", types.ErrInput)
	}
	ceiling := math.Inf(1)
	for _, s := range all {
		if len(s.Conversion) == 0 {
			return 0, fmt.Errorf("%w: 实验 %s 尚未计算转化率", types.ErrInput, s.Name)
		}
		ceiling = math.Min(ceiling, s.MaxConversion())
	}
	return ceiling, nil
}

// TruncateCheckpoints 将所有实验的检查点表截断到共同可用的部分
// 保留不超过 ceiling 的检查点，返回共同检查点数量（含起始条目）。
// 各实验的检查点必须共享同一组目标值。
func TruncateCheckpoints(all []*Series, ceiling float64) (int, error) {
	if len(all) == 0 {
		return 0, fmt.Errorf("%w: 没有实验数据", types.ErrInput)
	}
	count := -1
	for _, s := range all {
		n := 0
		for n < s.Checkpoints.Len() && s.Checkpoints.Conversion[n] <= ceiling {
			n++
		}
		if count < 0 || n < count {
			count = n
		}
	}
	if count < 2 {
		return 0, fmt.Errorf("%w: 共同转化率上限 %g 以下没有可用检查点", types.ErrInput, ceiling)
	}
	ref := all[0].Checkpoints.Conversion
	for _, s := range all[1:] {
		for k := 0; k < count; k++ {
			if s.Checkpoints.Conversion[k] != ref[k] {
				return 0, fmt.Errorf("%w: 实验 %s 检查点 %d 的目标 %g 与实验 %s 的 %g 不一致",
					types.ErrInput, s.Name, k, s.Checkpoints.Conversion[k], all[0].Name, ref[k])
			}
		}
	}
	for _, s := range all {
		s.Checkpoints.Truncate(count)
	}
	return count, nil
}
