package maths

import "math"

// Cursor 单调推进的最近匹配查找表
// 查找值大体随时间递增（如预测中的转化率），Prune 会丢弃已经越过的前缀，
// 使每次查找的扫描长度保持有界。
type Cursor struct {
	keys   []float64 // 升序键
	values []float64 // 对应值
}

// NewCursor 创建查找表，keys 必须升序且与 values 等长
func NewCursor(keys, values []float64) *Cursor {
	n := min(len(keys), len(values))
	return &Cursor{keys: keys[:n], values: values[:n]}
}

// Len 当前剩余表长
func (c *Cursor) Len() int { return len(c.keys) }

// index 线性扫描查找最近键
// 表已升序，遇到距离开始增大即可停止。
func (c *Cursor) index(x float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, k := range c.keys {
		d := math.Abs(k - x)
		if d < bestDist {
			best, bestDist = i, d
			continue
		}
		if k > x {
			break
		}
	}
	return best
}

// At 返回与 x 最接近的键对应的值，表为空时返回 NaN
func (c *Cursor) At(x float64) float64 {
	if len(c.keys) == 0 {
		return math.NaN()
	}
	return c.values[c.index(x)]
}

// Prune 丢弃 x 的最近键之前的条目，额外保留前一个条目作为余量，
// 以应对后续查找值因舍入略有回退的情况。
func (c *Cursor) Prune(x float64) {
	if len(c.keys) == 0 {
		return
	}
	i := c.index(x)
	if i <= 1 {
		return
	}
	c.keys = c.keys[i-1:]
	c.values = c.values[i-1:]
}
