package models

import (
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinetics/types"
)

// TestRegistry 测试模型表完整且名称有序
func TestRegistry(t *testing.T) {
	assert.Equal(t, 18, Len())
	names := Names()
	assert.True(t, sort.StringsAreSorted(names))
	assert.Equal(t, []string{
		"A2", "A3", "A4", "AUTO_0515", "AUTO_11", "AUTO_12", "AUTO_21",
		"D1", "D2", "D3", "FO", "P1", "P2", "P3", "P4", "R2", "R3", "SO",
	}, names)

	// 返回副本，修改不影响模型表
	names[0] = "X"
	assert.Equal(t, "A2", Names()[0])
}

// TestModelValues 测试典型转化率下的模型值
func TestModelValues(t *testing.T) {
	cases := map[string]float64{
		"FO":        0.5,
		"SO":        0.25,
		"AUTO_11":   0.25,
		"AUTO_12":   0.125,
		"AUTO_21":   0.125,
		"AUTO_0515": math.Pow(0.5, 2),
		"A2":        2 * 0.5 * math.Sqrt(math.Ln2),
		"D1":        1,
		"D2":        1 / math.Ln2,
		"P3":        2 * math.Sqrt(0.5),
		"P4":        2.0 / 3 / math.Sqrt(0.5),
		"R2":        2 * math.Sqrt(0.5),
	}
	for name, want := range cases {
		got, err := Eval(name, 0.5)
		require.NoError(t, err, name)
		assert.InDelta(t, want, got, 1e-12, name)
	}
}

// TestModelsFiniteAtBoundaries 测试边界钳位后所有模型有限且为正
func TestModelsFiniteAtBoundaries(t *testing.T) {
	for _, name := range Names() {
		entry, err := Lookup(name)
		require.NoError(t, err)
		for _, alpha := range []float64{-0.1, 0, 1e-12, 0.3, 0.999999, 1, 1.2} {
			v := entry.Model(alpha)
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s(%g) = %g", name, alpha, v)
			assert.Greater(t, v, 0.0, "%s(%g)", name, alpha)
		}
	}
}

// TestClamp 测试钳位
func TestClamp(t *testing.T) {
	assert.Equal(t, 1e-8, Clamp(0))
	assert.Equal(t, 1e-8, Clamp(-3))
	assert.Equal(t, 1-1e-8, Clamp(1))
	assert.Equal(t, 0.4, Clamp(0.4))
}

// TestLookupUnknown 测试未知模型
func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("Z9")
	assert.True(t, errors.Is(err, types.ErrInput))

	entry, err := Lookup(" fo ")
	require.NoError(t, err)
	assert.Equal(t, ClassOrder, entry.Class)
}
