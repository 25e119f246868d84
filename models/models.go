package models

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"kinetics/types"
)

// Model 动力学模型函数 f(α)
// 输入转化率，输出模型的速率形状因子。所有模型先经 Clamp 钳位再计算。
type Model func(alpha float64) float64

// Class 模型类别
type Class string

// 模型类别
const (
	ClassOrder         Class = "反应级数"
	ClassAutocatalytic Class = "自催化"
	ClassAvrami        Class = "Avrami 成核"
	ClassDiffusion     Class = "扩散"
	ClassPowerLaw      Class = "幂律"
	ClassContracting   Class = "收缩几何"
)

// Entry 模型登记项
type Entry struct {
	Name  string // 模型名称
	Class Class  // 模型类别
	Model Model  // 模型函数
}

// registry 模型表，包初始化时构建，此后只读
var registry = map[string]Entry{}

// names 按字典序排列的模型名称
var names []string

// Clamp 将转化率钳位到开区间 (0,1)
// α <= 0 时取 1e-8，α >= 1 时取 1-1e-8，避免 log(0)、除零与负数的分数幂。
func Clamp(alpha float64) float64 {
	switch {
	case alpha <= 0 || math.IsNaN(alpha):
		return types.ConversionEpsilon
	case alpha >= 1:
		return 1 - types.ConversionEpsilon
	}
	return alpha
}

// register 登记模型，函数体统一包一层钳位
func register(name string, class Class, f Model) {
	registry[name] = Entry{
		Name:  name,
		Class: class,
		Model: func(alpha float64) float64 { return f(Clamp(alpha)) },
	}
}

// avrami Avrami-Erofeev 成核模型 n(1-α)(-ln(1-α))^((n-1)/n)
func avrami(n float64) Model {
	return func(a float64) float64 {
		return n * (1 - a) * math.Pow(-math.Log(1-a), (n-1)/n)
	}
}

func init() {
	// 反应级数
	register("FO", ClassOrder, func(a float64) float64 { return 1 - a })
	register("SO", ClassOrder, func(a float64) float64 { return (1 - a) * (1 - a) })
	// 自催化 α^m(1-α)^n
	register("AUTO_11", ClassAutocatalytic, func(a float64) float64 { return a * (1 - a) })
	register("AUTO_12", ClassAutocatalytic, func(a float64) float64 { return a * (1 - a) * (1 - a) })
	register("AUTO_21", ClassAutocatalytic, func(a float64) float64 { return a * a * (1 - a) })
	register("AUTO_0515", ClassAutocatalytic, func(a float64) float64 { return math.Sqrt(a) * math.Pow(1-a, 1.5) })
	// Avrami 成核
	register("A2", ClassAvrami, avrami(2))
	register("A3", ClassAvrami, avrami(3))
	register("A4", ClassAvrami, avrami(4))
	// 扩散
	register("D1", ClassDiffusion, func(a float64) float64 { return 1 / (2 * a) })
	register("D2", ClassDiffusion, func(a float64) float64 { return -1 / math.Log(1-a) })
	register("D3", ClassDiffusion, func(a float64) float64 {
		return 1.5 * math.Pow(1-a, 2.0/3) / (1 - math.Cbrt(1-a))
	})
	// 幂律
	register("P1", ClassPowerLaw, func(a float64) float64 { return 4 * math.Pow(a, 0.75) })
	register("P2", ClassPowerLaw, func(a float64) float64 { return 3 * math.Pow(a, 2.0/3) })
	register("P3", ClassPowerLaw, func(a float64) float64 { return 2 * math.Sqrt(a) })
	register("P4", ClassPowerLaw, func(a float64) float64 { return 2.0 / 3 / math.Sqrt(a) })
	// 收缩几何
	register("R2", ClassContracting, func(a float64) float64 { return 2 * math.Sqrt(1-a) })
	register("R3", ClassContracting, func(a float64) float64 { return 3 * math.Pow(1-a, 2.0/3) })

	names = make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
}

// Names 返回按字典序排列的模型名称副本
func Names() []string {
	return append([]string(nil), names...)
}

// Lookup 按名称查找模型，名称不区分大小写
func Lookup(name string) (Entry, error) {
	entry, ok := registry[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Entry{}, fmt.Errorf("%w: 未知的动力学模型 '%s'", types.ErrInput, name)
	}
	return entry, nil
}

// Eval 按名称计算模型值
func Eval(name string, alpha float64) (float64, error) {
	entry, err := Lookup(name)
	if err != nil {
		return 0, err
	}
	return entry.Model(alpha), nil
}

// Len 模型数量
func Len() int { return len(registry) }
