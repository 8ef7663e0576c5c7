package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfigPath is the path to the canonical reduction defaults file.
const DefaultConfigPath = "config/reduction.defaults.json"

// HeaderLines is the fixed number of positional header rows in a motor file.
// It is not tunable; the key exists in the JSON only so the file documents it.
const HeaderLines = 30

// ReductionConfig holds the thresholds that drive the signal reduction and the
// runtime knobs around it. Fields omitted from the JSON keep their defaults,
// so partial configs are safe.
type ReductionConfig struct {
	// Signal thresholds
	IgnoreBelow              *float64 `json:"ignore_below,omitempty"`
	IgnitionBackoff          *float64 `json:"ignition_backoff,omitempty"`
	EjectIndicatorMultiplier *float64 `json:"eject_indicator_multiplier,omitempty"`

	// Record sanity floors
	MinFileLines    *int `json:"min_file_lines,omitempty"`
	MinSamplePoints *int `json:"min_sample_points,omitempty"`
	HeaderLines     *int `json:"header_lines,omitempty"`

	// Plot and report
	PlotYMax          *float64 `json:"plot_y_max,omitempty"`
	PlotYStep         *float64 `json:"plot_y_step,omitempty"`
	CertificationType *string  `json:"certification_type,omitempty"`

	// Session and storage
	MotorFileExtensions []string `json:"motor_file_extensions,omitempty"`
	SessionWorkers      *int     `json:"session_workers,omitempty"`
	DatabasePath        *string  `json:"database_path,omitempty"`
	OutputDir           *string  `json:"output_dir,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultReductionConfig returns a config with every field set to its built-in default.
func DefaultReductionConfig() *ReductionConfig {
	return &ReductionConfig{
		IgnoreBelow:              ptrFloat64(0.05),
		IgnitionBackoff:          ptrFloat64(0.10),
		EjectIndicatorMultiplier: ptrFloat64(5),
		MinFileLines:             ptrInt(64),
		MinSamplePoints:          ptrInt(32),
		HeaderLines:              ptrInt(HeaderLines),
		PlotYMax:                 ptrFloat64(100),
		PlotYStep:                ptrFloat64(25),
		CertificationType:        ptrString("Model Rocket"),
		MotorFileExtensions:      []string{".dat"},
		SessionWorkers:           ptrInt(4),
		DatabasePath:             ptrString("motortest.db"),
		OutputDir:                ptrString(""),
	}
}

// LoadReductionConfig loads a ReductionConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadReductionConfig(path string) (*ReductionConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &ReductionConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *ReductionConfig) Validate() error {
	fraction := func(name string, v *float64) error {
		if v != nil && (*v <= 0 || *v >= 1) {
			return fmt.Errorf("%s must be between 0 and 1 (exclusive), got %g", name, *v)
		}
		return nil
	}
	if err := fraction("ignore_below", c.IgnoreBelow); err != nil {
		return err
	}
	if err := fraction("ignition_backoff", c.IgnitionBackoff); err != nil {
		return err
	}

	if c.EjectIndicatorMultiplier != nil && *c.EjectIndicatorMultiplier <= 0 {
		return fmt.Errorf("eject_indicator_multiplier must be positive, got %g", *c.EjectIndicatorMultiplier)
	}
	if c.MinFileLines != nil && *c.MinFileLines <= HeaderLines {
		return fmt.Errorf("min_file_lines must exceed the %d header lines, got %d", HeaderLines, *c.MinFileLines)
	}
	if c.MinSamplePoints != nil && *c.MinSamplePoints <= 0 {
		return fmt.Errorf("min_sample_points must be positive, got %d", *c.MinSamplePoints)
	}
	if c.HeaderLines != nil && *c.HeaderLines != HeaderLines {
		return fmt.Errorf("header_lines is fixed at %d, got %d", HeaderLines, *c.HeaderLines)
	}
	if c.PlotYMax != nil && *c.PlotYMax <= 0 {
		return fmt.Errorf("plot_y_max must be positive, got %g", *c.PlotYMax)
	}
	if c.PlotYStep != nil && *c.PlotYStep <= 0 {
		return fmt.Errorf("plot_y_step must be positive, got %g", *c.PlotYStep)
	}
	if c.SessionWorkers != nil && (*c.SessionWorkers < 1 || *c.SessionWorkers > 64) {
		return fmt.Errorf("session_workers must be between 1 and 64, got %d", *c.SessionWorkers)
	}
	for _, ext := range c.MotorFileExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("motor_file_extensions entries must look like \".dat\", got %q", ext)
		}
	}

	return nil
}

// GetIgnoreBelow returns the fraction of peak thrust below which samples are noise.
func (c *ReductionConfig) GetIgnoreBelow() float64 {
	if c.IgnoreBelow == nil {
		return 0.05
	}
	return *c.IgnoreBelow
}

// GetIgnitionBackoff returns the fraction of the pre-ignition span excluded from noise statistics.
func (c *ReductionConfig) GetIgnitionBackoff() float64 {
	if c.IgnitionBackoff == nil {
		return 0.10
	}
	return *c.IgnitionBackoff
}

// GetEjectIndicatorMultiplier returns the noise-floor multiple that marks an ejection charge.
func (c *ReductionConfig) GetEjectIndicatorMultiplier() float64 {
	if c.EjectIndicatorMultiplier == nil {
		return 5
	}
	return *c.EjectIndicatorMultiplier
}

func (c *ReductionConfig) GetMinFileLines() int {
	if c.MinFileLines == nil {
		return 64
	}
	return *c.MinFileLines
}

func (c *ReductionConfig) GetMinSamplePoints() int {
	if c.MinSamplePoints == nil {
		return 32
	}
	return *c.MinSamplePoints
}

func (c *ReductionConfig) GetPlotYMax() float64 {
	if c.PlotYMax == nil {
		return 100
	}
	return *c.PlotYMax
}

func (c *ReductionConfig) GetPlotYStep() float64 {
	if c.PlotYStep == nil {
		return 25
	}
	return *c.PlotYStep
}

func (c *ReductionConfig) GetCertificationType() string {
	if c.CertificationType == nil || *c.CertificationType == "" {
		return "Model Rocket"
	}
	return *c.CertificationType
}

// GetMotorFileExtensions returns the lower-cased extensions that mark motor files in a session directory.
func (c *ReductionConfig) GetMotorFileExtensions() []string {
	if len(c.MotorFileExtensions) == 0 {
		return []string{".dat"}
	}
	exts := make([]string, len(c.MotorFileExtensions))
	for i, ext := range c.MotorFileExtensions {
		exts[i] = strings.ToLower(ext)
	}
	return exts
}

func (c *ReductionConfig) GetSessionWorkers() int {
	if c.SessionWorkers == nil {
		return 4
	}
	return *c.SessionWorkers
}

// GetDatabasePath returns the ledger path; empty disables the ledger.
func (c *ReductionConfig) GetDatabasePath() string {
	if c.DatabasePath == nil {
		return "motortest.db"
	}
	return *c.DatabasePath
}

// GetOutputDir returns the directory derived artifacts are written to.
// Empty means the current directory.
func (c *ReductionConfig) GetOutputDir() string {
	if c.OutputDir == nil {
		return ""
	}
	return *c.OutputDir
}

// SetDatabasePath overrides the ledger path (e.g. from a CLI flag).
func (c *ReductionConfig) SetDatabasePath(path string) { c.DatabasePath = ptrString(path) }

// SetOutputDir overrides the output directory (e.g. from a CLI flag).
func (c *ReductionConfig) SetOutputDir(dir string) { c.OutputDir = ptrString(dir) }
