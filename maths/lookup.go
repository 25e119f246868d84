package maths

import (
	"math"
	"sort"
)

// NearestIndex 在升序序列 xs 中查找与 x 最接近的元素索引
// 距离相等时取较小的索引。xs 为空时返回 -1。
func NearestIndex(xs []float64, x float64) int {
	n := len(xs)
	if n == 0 {
		return -1
	}
	i := sort.SearchFloat64s(xs, x)
	switch {
	case i == 0:
		return 0
	case i == n:
		return n - 1
	}
	if math.Abs(xs[i]-x) < math.Abs(x-xs[i-1]) {
		return i
	}
	return i - 1
}

// ForwardScan 单次前向扫描重采样
// 对 reference 中的每个目标值，取 source 中第一个不小于它的位置对应的 values 值。
// 两个序列都按升序推进，复杂度 O(len(source))。source 耗尽时提前结束，
// 返回的切片可能比 reference 短。
func ForwardScan(reference, source, values []float64) []float64 {
	out := make([]float64, 0, len(reference))
	if len(reference) == 0 {
		return out
	}
	j := 0
	target := reference[j]
	for i := 0; i < len(source) && i < len(values); i++ {
		if source[i] < target {
			continue
		}
		out = append(out, values[i])
		j++
		if j == len(reference) {
			break
		}
		target = reference[j]
		// 同一原始点可能满足多个目标
		for source[i] >= target {
			out = append(out, values[i])
			j++
			if j == len(reference) {
				return out
			}
			target = reference[j]
		}
	}
	return out
}

// NearestResample 最近索引重采样，适用于目标网格比原始网格更细的情形
func NearestResample(reference, source, values []float64) []float64 {
	out := make([]float64, 0, len(reference))
	for _, x := range reference {
		if i := NearestIndex(source, x); i >= 0 && i < len(values) {
			out = append(out, values[i])
		}
	}
	return out
}

// Resample 将 (source, values) 重采样到 reference 网格
// 原始数据不短于目标网格时使用前向扫描，否则使用最近索引搜索；
// 结果不足目标长度时以最后一个值补齐。
func Resample(reference, source, values []float64) []float64 {
	var out []float64
	if len(source) >= len(reference) {
		out = ForwardScan(reference, source, values)
	} else {
		out = NearestResample(reference, source, values)
	}
	if len(out) == 0 {
		return out
	}
	for len(out) < len(reference) {
		out = append(out, out[len(out)-1])
	}
	return out
}
