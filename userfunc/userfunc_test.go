package userfunc

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinetics/maths"
	"kinetics/types"
)

// TestFromFileRoundTrip 测试以原始步长重采样得到原始值
func TestFromFileRoundTrip(t *testing.T) {
	var b strings.Builder
	b.WriteString("Conversion\tActivation Energy (J/mol)\n")
	grid, err := maths.Steps(0.01, 0.95, 0.01)
	require.NoError(t, err)
	want := make([]float64, len(grid))
	for i, c := range grid {
		want[i] = 60000 + 20000*c*c
		fmt.Fprintf(&b, "%s\t%s\n", strings.ReplaceAll(fmt.Sprint(c), ".", ","), fmt.Sprint(want[i]))
	}
	path := filepath.Join(t.TempDir(), "energy.txt")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	f, err := FromFile(path, 0.01)
	require.NoError(t, err)
	assert.Equal(t, grid, f.Conversion)
	assert.Equal(t, want, f.Values)
}

// TestFromTableCoarser 测试目标网格更粗时的前向扫描
func TestFromTableCoarser(t *testing.T) {
	conv, err := maths.Steps(0, 1, 0.01)
	require.NoError(t, err)
	values := make([]float64, len(conv))
	for i := range values {
		values[i] = float64(i)
	}
	f, err := FromTable(conv, values, 0.1)
	require.NoError(t, err)
	require.Equal(t, 11, f.Len())
	assert.Equal(t, 0.0, f.Values[0])
	assert.Equal(t, 50.0, f.Values[5])
	assert.Equal(t, 100.0, f.Values[10])
}

// TestFromTableFiner 测试目标网格更细时的最近索引查找与长度
func TestFromTableFiner(t *testing.T) {
	f, err := FromTable([]float64{0.1, 0.2, 0.3}, []float64{1, 2, 3}, 0.02)
	require.NoError(t, err)
	grid, err := maths.Steps(0.1, 0.3, 0.02)
	require.NoError(t, err)
	require.Equal(t, len(grid), f.Len())
	assert.Equal(t, 1.0, f.Values[0])
	assert.Equal(t, 2.0, f.Values[5])
	assert.Equal(t, 3.0, f.Values[f.Len()-1])
	assert.Equal(t, 2.0, f.At(0.21))
	lo, hi := f.Range()
	assert.Equal(t, 0.1, lo)
	assert.Equal(t, 0.3, hi)

	_, err = FromTable([]float64{0.2, 0.1}, []float64{1, 2}, 0.1)
	assert.True(t, errors.Is(err, types.ErrInput))
}

// TestBuilderDuplicates 测试重叠区间保留先声明的值
func TestBuilderDuplicates(t *testing.T) {
	b, err := NewBuilder(0.1)
	require.NoError(t, err)
	require.NoError(t, b.Add("50000", 0, 0.5))
	require.NoError(t, b.Add("70000 + 0*X", 0.5, 1))
	f, err := b.Build()
	require.NoError(t, err)

	require.Equal(t, 11, f.Len())
	for i := 1; i < f.Len(); i++ {
		assert.Greater(t, f.Conversion[i], f.Conversion[i-1])
	}
	assert.Equal(t, 50000.0, f.At(0.5))
	assert.Equal(t, 70000.0, f.At(0.6))
	assert.Equal(t, 50000.0, f.Values[0])
}

// TestBuilderRecoverable 测试错误公式可重试且不影响已接受的公式
func TestBuilderRecoverable(t *testing.T) {
	b, err := NewBuilder(0.25)
	require.NoError(t, err)
	require.NoError(t, b.Add("2*X", 0, 0.5))

	err = b.Add("import os", 0.5, 1)
	require.Error(t, err)
	var fe *FormulaError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 2, fe.Index)
	assert.True(t, errors.Is(err, types.ErrExpression))

	err = b.Add("1/(X-0.75)", 0.5, 1)
	assert.True(t, errors.Is(err, types.ErrExpression))
	err = b.Add("X", 0.8, 0.2)
	assert.True(t, errors.Is(err, types.ErrInput))
	assert.Equal(t, 1, b.Accepted())

	require.NoError(t, b.Add("X", 0.5, 1))
	f, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, f.Conversion)
	assert.Equal(t, []float64{0, 0.5, 1, 0.75, 1}, f.Values)

	empty, err := NewBuilder(0.1)
	require.NoError(t, err)
	_, err = empty.Build()
	assert.True(t, errors.Is(err, types.ErrInput))
}

// TestPreFactor 测试由补偿参数导出指前因子
func TestPreFactor(t *testing.T) {
	energy := &Function{Conversion: []float64{0.1, 0.2}, Values: []float64{60000, 70000}}
	a, b := 2e-4, -1.0
	pf, err := PreFactor(energy, a, b)
	require.NoError(t, err)
	assert.Equal(t, energy.Conversion, pf.Conversion)
	assert.InEpsilon(t, math.Exp(a*70000+b), pf.Values[1], 1e-12)

	_, err = PreFactor(energy, 1, 0)
	assert.True(t, errors.Is(err, types.ErrInput))
}
