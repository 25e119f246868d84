package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinetics/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// TestDefaults 测试无配置文件时的默认值
func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.Data.TimeStep)
	assert.Equal(t, types.DefaultZeroFillSeconds, cfg.Data.ZeroFillSeconds)
	assert.Equal(t, 0.01, cfg.Analysis.ConversionStep)
	assert.Equal(t, 80000.0, cfg.Analysis.InitialGuess)
	assert.Equal(t, "prediction", cfg.Prediction.Name)
	assert.Equal(t, "results", cfg.Output.Dir)
	assert.True(t, cfg.Functions.Energy.Empty())
}

// TestLoadFileAndEnv 测试配置文件与环境变量覆盖
func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
data:
  time_step: 0.5
  in_kelvin: true
analysis:
  conversion_step: 0.05
compensation:
  a: 0.0003
  b: -12.5
functions:
  energy:
    expressions:
      - formula: "60000 + 20000*X"
        lower: 0
        upper: 0.5
      - formula: "70000"
        lower: 0.5
        upper: 1
prediction:
  isothermal: false
  start_temperature: 300
  end_temperature: 500
  ramp: 6
  total_heat: 250
`)
	t.Setenv("DSC_ANALYSIS_INITIAL_GUESS", "95000")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Data.TimeStep)
	assert.True(t, cfg.Data.InKelvin)
	assert.Equal(t, 0.05, cfg.Analysis.ConversionStep)
	assert.Equal(t, 95000.0, cfg.Analysis.InitialGuess)
	assert.Equal(t, -12.5, cfg.Compensation.B)
	require.Len(t, cfg.Functions.Energy.Expressions, 2)
	assert.Equal(t, "70000", cfg.Functions.Energy.Expressions[1].Formula)

	p := cfg.Prediction.Program()
	assert.InDelta(t, 0.1, p.Ramp, 1e-15)
	assert.False(t, p.Isothermal)
	require.NoError(t, p.Validate())

	opts := cfg.Data.LoadOptions()
	assert.Equal(t, 0.5, opts.TimeStep)
	assert.Equal(t, types.DefaultZeroFillSeconds, opts.Continuation.ZeroFillSeconds)
}

// TestInvalid 测试校验失败
func TestInvalid(t *testing.T) {
	cases := []string{
		"analysis:\n  conversion_step: 2\n",
		"data:\n  time_step: -1\n",
		"log:\n  level: loud\n",
		"functions:\n  energy:\n    expressions:\n      - formula: X\n        lower: 0.8\n        upper: 0.2\n",
		"functions:\n  kinetic:\n    file: f.txt\n    expressions:\n      - formula: X\n        upper: 1\n",
	}
	for i, body := range cases {
		_, err := Load(writeConfig(t, body))
		assert.True(t, errors.Is(err, types.ErrInput), "case %d: %v", i, err)
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
