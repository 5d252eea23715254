package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	portfolio "github.com/MitchK/PortfolioOptimizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	"MVP_STEP", "MVP_MIN_SAVINGS", "MVP_MAX_ROUNDS", "MVP_RESTARTS",
	"MVP_WORKERS", "MVP_SEED", "MVP_CACHE", "MVP_LOG_LEVEL", "MVP_LOG_FILE", "MVP_DB_PATH",
}

func clearEnv(t *testing.T) {
	for _, v := range envVars {
		if old, ok := os.LookupEnv(v); ok {
			t.Cleanup(func() { os.Setenv(v, old) })
		} else {
			t.Cleanup(func() { os.Unsetenv(v) })
		}
		os.Unsetenv(v)
	}
}

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		envFile     string
		configFile  string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 0.00001, cfg.Step)
				assert.Equal(t, 0.0000000000001, cfg.MinSavings)
				assert.Equal(t, 0, cfg.MaxRounds)
				assert.Equal(t, 1, cfg.Restarts)
				assert.Equal(t, 4, cfg.Workers)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Empty(t, cfg.DBPath)
				assert.False(t, cfg.Cache)
			},
		},
		{
			name: "environment",
			env:  map[string]string{"MVP_STEP": "0.001", "MVP_MAX_ROUNDS": "500", "MVP_LOG_LEVEL": "debug", "MVP_CACHE": "true"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 0.001, cfg.Step)
				assert.True(t, cfg.Cache)
				assert.Equal(t, 500, cfg.MaxRounds)
				assert.Equal(t, "debug", cfg.LogLevel)
			},
		},
		{
			name:    "env file",
			envFile: "MVP_RESTARTS=8\nMVP_DB_PATH=run.sqlite\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8, cfg.Restarts)
				assert.Equal(t, "run.sqlite", cfg.DBPath)
			},
		},
		{
			name:       "config file beats environment",
			env:        map[string]string{"MVP_STEP": "0.001", "MVP_WORKERS": "2"},
			configFile: "step: 0.0005\nrestarts: 3\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 0.0005, cfg.Step)
				assert.Equal(t, 3, cfg.Restarts)
				assert.Equal(t, 2, cfg.Workers)
			},
		},
		{
			name:    "invalid step",
			env:     map[string]string{"MVP_STEP": "0"},
			wantErr: true,
		},
		{
			name:    "invalid level",
			env:     map[string]string{"MVP_LOG_LEVEL": "loud"},
			wantErr: true,
		},
		{
			name:       "unknown config key",
			configFile: "stepsize: 0.1\n",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			var envFile, configFile string
			if tt.envFile != "" {
				envFile = writeFile(t, ".env", tt.envFile)
			}
			if tt.configFile != "" {
				configFile = writeFile(t, "mvp.yaml", tt.configFile)
			}

			cfg, err := Load(envFile, configFile)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestLoadMissingFiles(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"), "")
	assert.NoError(t, err)

	_, err = Load("", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestReadPortfolio(t *testing.T) {
	in := `
assets: [bonds, stocks]
stddevs: [0.2, 0.3]
corr:
  - [1, 0]
  - [0, 1]
`
	p, err := ReadPortfolio(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 0.3}, p.StdDevs)
	assert.Equal(t, "stocks", p.Name(1))
	assert.Equal(t, 2, p.Problem().Len())

	var buf bytes.Buffer
	require.NoError(t, WritePortfolio(&buf, p))
	again, err := ReadPortfolio(&buf)
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestReadPortfolioInvalid(t *testing.T) {
	tests := map[string]string{
		"negative stddev":   "stddevs: [0.2, -0.3]\ncorr: [[1, 0], [0, 1]]\n",
		"corr out of range": "stddevs: [0.2, 0.3]\ncorr: [[1, 2], [0, 1]]\n",
		"corr too small":    "stddevs: [0.2, 0.3]\ncorr: [[1, 0]]\n",
		"names":             "assets: [a]\nstddevs: [0.2, 0.3]\ncorr: [[1, 0], [0, 1]]\n",
		"weights":           "stddevs: [0.2, 0.3]\ncorr: [[1, 0], [0, 1]]\nweights: [1]\n",
		"missing stddevs":   "corr: [[1]]\n",
	}

	for name, in := range tests {
		_, err := ReadPortfolio(strings.NewReader(in))
		assert.True(t, errors.Is(err, portfolio.ErrInvalidInput), "%v: got %v", name, err)
	}
}
