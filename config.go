package grabber

import (
	"github.com/go-playground/validator/v10"

	"github.com/sandexzx/PDF-Matrix-Grabber/logger"
	"github.com/sandexzx/PDF-Matrix-Grabber/raster"
)

// Default pass-ladder constants per spec §4.4 and §4.3.
const (
	DefaultFirstPassTimeoutMS  = 200
	DefaultSecondPassTimeoutMS = 800
	DefaultMaxCodesPerPage     = 1
	DefaultSaveEvery           = 50
	DefaultThresholdBlockSize  = 51
	DefaultThresholdOffset     = 15
	DefaultDPI                 = 300
	DefaultWorkers             = 1
	MaxSaneDPI                 = 1200
)

// Config holds every CLI-settable knob (§6) plus the compile-time ladder
// constants from §4, exposed as fields so tests can override them without
// touching package-level state.
type Config struct {
	InputDir   string `validate:"required"`
	OutputPath string `validate:"required,endswith=.csv"`

	DPI     int  `validate:"min=72"`
	Workers int  `validate:"min=1"`
	Resume  bool
	ParseMarks bool
	Limit      int `validate:"min=0"` // 0 = unlimited

	SaveEvery           int `validate:"min=1"`
	FirstPassTimeoutMS  int `validate:"min=1"`
	SecondPassTimeoutMS int `validate:"min=1"`
	MaxCodesPerPage     int `validate:"min=1"`
	ThresholdBlockSize  int `validate:"min=3"`
	ThresholdOffset     int

	// ROI is the normalized clip rectangle rendered first; nil means no
	// ROI pass and the worker renders the full page directly (§4.4 step 3
	// never triggers when ROI is nil, since there is no narrower render to
	// fall back from).
	ROI *raster.Clip

	Logger logger.LogFunc
}

// NewDefaultConfig returns a Config with every spec-mandated default (§4,
// §6) applied; callers only need to set InputDir/OutputPath and whatever
// else they want to override.
func NewDefaultConfig() *Config {
	return &Config{
		InputDir:            "data/input",
		OutputPath:          "output/results.csv",
		DPI:                 DefaultDPI,
		Workers:             DefaultWorkers,
		Resume:              false,
		ParseMarks:          true,
		Limit:               0,
		SaveEvery:           DefaultSaveEvery,
		FirstPassTimeoutMS:  DefaultFirstPassTimeoutMS,
		SecondPassTimeoutMS: DefaultSecondPassTimeoutMS,
		MaxCodesPerPage:     DefaultMaxCodesPerPage,
		ThresholdBlockSize:  DefaultThresholdBlockSize,
		ThresholdOffset:     DefaultThresholdOffset,
	}
}

// Validate checks the struct tags above and, if an ROI is set, delegates to
// raster.Clip.Validate so a bad ROI surfaces as a ConfigError before any
// work starts, just as a bad render-time clip surfaces as raster's own
// ConfigError (§4.1).
func (cfg *Config) Validate() error {
	logger.Debug("validating config")

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return &ConfigError{Reason: err.Error()}
	}

	if cfg.DPI > MaxSaneDPI {
		logger.Warn("dpi exceeds recommended maximum", "dpi", cfg.DPI, "max", MaxSaneDPI)
	}

	if cfg.ROI != nil {
		if err := cfg.ROI.Validate(); err != nil {
			return &ConfigError{Reason: err.Error()}
		}
	}

	return nil
}
