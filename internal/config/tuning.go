package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/walkabout-games/territory/internal/territory"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tuning parameters.
// The schema matches the /api/config endpoint so the same JSON can be
// used for both startup configuration and operator inspection. All fields
// are optional; omitted fields fall back to the engine defaults.
type TuningConfig struct {
	// Fix filtering params
	MaxAccuracyMeters *float64 `json:"max_accuracy_m,omitempty"`
	MaxJumpMeters     *float64 `json:"max_jump_m,omitempty"`
	MinRecordMeters   *float64 `json:"min_record_m,omitempty"`
	MinRecordInterval *string  `json:"min_record_interval,omitempty"` // duration string like "1s"
	SampleInterval    *string  `json:"sample_interval,omitempty"`     // duration string like "2s"

	// Speed enforcement params
	WarningSpeedKmh   *float64 `json:"warning_speed_kmh,omitempty"`
	ViolationSpeedKmh *float64 `json:"violation_speed_kmh,omitempty"`

	// Closure and validation params
	MinPathPoints          *int     `json:"min_path_points,omitempty"`
	ClosureThresholdMeters *float64 `json:"closure_threshold_m,omitempty"`
	MinTotalDistanceMeters *float64 `json:"min_total_distance_m,omitempty"`
	MinAreaSquareMeters    *float64 `json:"min_area_m2,omitempty"`
	MinCompactnessPercent  *float64 `json:"min_compactness_pct,omitempty"`

	// Proximity band params
	SafeDistanceMeters    *float64 `json:"safe_distance_m,omitempty"`
	CautionDistanceMeters *float64 `json:"caution_distance_m,omitempty"`
	WarningDistanceMeters *float64 `json:"warning_distance_m,omitempty"`

	// Exploration over-speed params
	ExplorationLimitKmh    *float64 `json:"exploration_limit_kmh,omitempty"`
	ExplorationGracePeriod *string  `json:"exploration_grace_period,omitempty"` // duration string like "15s"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid on their own.
// Cross-field consistency is checked by the engine Config after merging.
func (c *TuningConfig) Validate() error {
	if c.MaxAccuracyMeters != nil && *c.MaxAccuracyMeters <= 0 {
		return fmt.Errorf("max_accuracy_m must be positive, got %f", *c.MaxAccuracyMeters)
	}
	if c.MinPathPoints != nil && *c.MinPathPoints < 3 {
		return fmt.Errorf("min_path_points must be at least 3, got %d", *c.MinPathPoints)
	}
	if c.MinCompactnessPercent != nil {
		if *c.MinCompactnessPercent <= 0 || *c.MinCompactnessPercent > 100 {
			return fmt.Errorf("min_compactness_pct must be in (0, 100], got %f", *c.MinCompactnessPercent)
		}
	}
	for name, v := range map[string]*string{
		"min_record_interval":      c.MinRecordInterval,
		"sample_interval":          c.SampleInterval,
		"exploration_grace_period": c.ExplorationGracePeriod,
	} {
		if v != nil && *v != "" {
			if _, err := time.ParseDuration(*v); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
			}
		}
	}
	return nil
}

// EngineConfig merges the tuning values onto the engine defaults and
// returns the resulting config. The result is re-validated so a partial
// override cannot produce an inconsistent set of thresholds.
func (c *TuningConfig) EngineConfig() (territory.Config, error) {
	cfg := territory.DefaultConfig()

	setFloat(&cfg.MaxAccuracyMeters, c.MaxAccuracyMeters)
	setFloat(&cfg.MaxJumpMeters, c.MaxJumpMeters)
	setFloat(&cfg.MinRecordMeters, c.MinRecordMeters)
	setDuration(&cfg.MinRecordInterval, c.MinRecordInterval)
	setDuration(&cfg.SampleInterval, c.SampleInterval)
	setFloat(&cfg.WarningSpeedKmh, c.WarningSpeedKmh)
	setFloat(&cfg.ViolationSpeedKmh, c.ViolationSpeedKmh)
	if c.MinPathPoints != nil {
		cfg.MinPathPoints = *c.MinPathPoints
	}
	setFloat(&cfg.ClosureThresholdMeters, c.ClosureThresholdMeters)
	setFloat(&cfg.MinTotalDistanceMeters, c.MinTotalDistanceMeters)
	setFloat(&cfg.MinAreaSquareMeters, c.MinAreaSquareMeters)
	setFloat(&cfg.MinCompactnessPercent, c.MinCompactnessPercent)
	setFloat(&cfg.SafeDistanceMeters, c.SafeDistanceMeters)
	setFloat(&cfg.CautionDistanceMeters, c.CautionDistanceMeters)
	setFloat(&cfg.WarningDistanceMeters, c.WarningDistanceMeters)

	if err := cfg.Validate(); err != nil {
		return territory.Config{}, fmt.Errorf("merged tuning config invalid: %w", err)
	}
	return cfg, nil
}

// ExplorationConfig merges the exploration over-speed tuning values onto
// the engine defaults.
func (c *TuningConfig) ExplorationConfig() territory.ExplorationConfig {
	cfg := territory.DefaultExplorationConfig()
	setFloat(&cfg.LimitKmh, c.ExplorationLimitKmh)
	setDuration(&cfg.GracePeriod, c.ExplorationGracePeriod)
	return cfg
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string) {
	if src == nil || *src == "" {
		return
	}
	if d, err := time.ParseDuration(*src); err == nil {
		*dst = d
	}
}
