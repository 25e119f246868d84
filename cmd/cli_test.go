package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinetics/types"
)

func TestParseExpression(t *testing.T) {
	x, err := parseExpression("60000 + 100*X @ 0:0.5")
	require.NoError(t, err)
	assert.Equal(t, "60000 + 100*X", x.Formula)
	assert.Equal(t, 0.0, x.Lower)
	assert.Equal(t, 0.5, x.Upper)

	for _, bad := range []string{"X", "X@0.5", "X@a:1", "X@0:b"} {
		_, err := parseExpression(bad)
		assert.True(t, errors.Is(err, types.ErrInput), bad)
	}
}

// TestPredictCommand 测试由配置文件与命令行公式运行预测
func TestPredictCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
prediction:
  isothermal: true
  start_temperature: 420
  time_step: 1
  timeframe: 100
  total_heat: 300
log:
  level: error
`), 0o644))

	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{
		"predict", "-c", cfgPath, "-o", filepath.Join(dir, "out"),
		"--energy-expr", "80000@0:1",
		"--kinetic-expr", "1 - X@0:1",
		"--b", "24",
	})
	require.NoError(t, cmd.Execute())

	path := filepath.Join(dir, "out", "prediction.txt")
	assert.Equal(t, path, strings.TrimSpace(stdout.String()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 102)
	assert.Equal(t, "Time (s)\tTemperature (K)\tConversion\tNormalized Heat Flow (W/g)", lines[0])
}

// TestActivationNeedsTwoFiles 测试参数数量检查
func TestActivationNeedsTwoFiles(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"activation", "one.txt"})
	assert.Error(t, cmd.Execute())
}

// writeRun 写出一个 4 行的恒热流实验与配置文件
func writeRun(t *testing.T, dir string) (data, cfg string) {
	t.Helper()
	data = filepath.Join(dir, "run.txt")
	require.NoError(t, os.WriteFile(data, []byte(
		"Time (s)\tTemperature (K)\tHeat Flow Normalized (W/g)\tHeat Capacity Normalized\n"+
			"0\t400\t1\t1.5\n1\t400\t1\t1.5\n2\t400\t1\t1.5\n3\t400\t1\t1.5\n"), 0o644))
	cfg = filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
data:
  time_step: 1
  in_kelvin: true
log:
  level: error
`), 0o644))
	return data, cfg
}

// TestConversionCommand 测试转化率文件包含时间、温度、热流、转化率与比热容
func TestConversionCommand(t *testing.T) {
	dir := t.TempDir()
	data, cfgPath := writeRun(t, dir)
	out := filepath.Join(dir, "out")

	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"conversion", "-c", cfgPath, "-o", out, data})
	require.NoError(t, cmd.Execute())

	path := filepath.Join(out, "run.txt_conversion.txt")
	assert.Equal(t, path, strings.TrimSpace(stdout.String()))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Time (s)\tTemperature (K)\tNormalized Heat Flow (W/g)\tConversion\tNormalized Heat Capacity", lines[0])
	assert.Equal(t, "0\t400\t1\t0\t1.5", lines[1])
	assert.Len(t, strings.Split(lines[4], "\t"), 5)
}

// TestTotalHeatCommand 测试总反应热的打印与输出文件
func TestTotalHeatCommand(t *testing.T) {
	dir := t.TempDir()
	data, cfgPath := writeRun(t, dir)
	out := filepath.Join(dir, "out")

	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"total-heat", "-c", cfgPath, "-o", out, data})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "run.txt\t3 J/g", lines[0])
	assert.Equal(t, filepath.Join(out, "total_heat.txt"), lines[1])
	raw, err := os.ReadFile(lines[1])
	require.NoError(t, err)
	assert.Equal(t, "Filename\tTotal Heat (J/g)\nrun.txt\t3\n", string(raw))
}

// TestCompensationFlagHelp 测试补偿参数帮助说明 a 为斜率、b 为截距
func TestCompensationFlagHelp(t *testing.T) {
	for _, name := range []string{"kinetic", "predict"} {
		cmd := newRootCommand()
		var stdout bytes.Buffer
		cmd.SetOut(&stdout)
		cmd.SetArgs([]string{name, "--help"})
		require.NoError(t, cmd.Execute())
		assert.Contains(t, stdout.String(), "的斜率", name)
		assert.Contains(t, stdout.String(), "的截距", name)
	}
}
