package grabber

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sandexzx/PDF-Matrix-Grabber/raster"
)

func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.InputDir = "testdata/input"
	cfg.OutputPath = "testdata/output/results.csv"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       func() *Config
		shouldErr bool
	}{
		{
			name:      "valid config",
			cfg:       validConfig,
			shouldErr: false,
		},
		{
			name: "missing InputDir",
			cfg: func() *Config {
				cfg := validConfig()
				cfg.InputDir = ""
				return cfg
			},
			shouldErr: true,
		},
		{
			name: "missing OutputPath",
			cfg: func() *Config {
				cfg := validConfig()
				cfg.OutputPath = ""
				return cfg
			},
			shouldErr: true,
		},
		{
			name: "output path not .csv",
			cfg: func() *Config {
				cfg := validConfig()
				cfg.OutputPath = "testdata/output/results.xlsx"
				return cfg
			},
			shouldErr: true,
		},
		{
			name: "dpi below native resolution",
			cfg: func() *Config {
				cfg := validConfig()
				cfg.DPI = 10
				return cfg
			},
			shouldErr: true,
		},
		{
			name: "zero workers",
			cfg: func() *Config {
				cfg := validConfig()
				cfg.Workers = 0
				return cfg
			},
			shouldErr: true,
		},
		{
			name: "negative limit",
			cfg: func() *Config {
				cfg := validConfig()
				cfg.Limit = -1
				return cfg
			},
			shouldErr: true,
		},
		{
			name: "zero save-every",
			cfg: func() *Config {
				cfg := validConfig()
				cfg.SaveEvery = 0
				return cfg
			},
			shouldErr: true,
		},
		{
			name: "threshold block size too small",
			cfg: func() *Config {
				cfg := validConfig()
				cfg.ThresholdBlockSize = 1
				return cfg
			},
			shouldErr: true,
		},
		{
			name: "dpi above sane maximum still valid, just warns",
			cfg: func() *Config {
				cfg := validConfig()
				cfg.DPI = MaxSaneDPI + 1
				return cfg
			},
			shouldErr: false,
		},
		{
			name: "valid ROI",
			cfg: func() *Config {
				cfg := validConfig()
				cfg.ROI = &raster.Clip{X0: 0, Y0: 0, X1: 0.5, Y1: 0.5}
				return cfg
			},
			shouldErr: false,
		},
		{
			name: "invalid ROI",
			cfg: func() *Config {
				cfg := validConfig()
				cfg.ROI = &raster.Clip{X0: 0.5, Y0: 0, X1: 0.1, Y1: 0.5}
				return cfg
			},
			shouldErr: true,
		},
		{
			name: "default config needs InputDir/OutputPath only",
			cfg:  NewDefaultConfig,
			shouldErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg().Validate()
			if tt.shouldErr {
				assert.Error(t, err, "expected validation error")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}
