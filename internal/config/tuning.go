package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/starcam/internal/params"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for startup tuning
// parameters. The schema matches the parameter-block fields a COMMAND
// packet can update, so the same JSON can be used for both startup
// configuration and a captured runtime snapshot.
type TuningConfig struct {
	// Blob-detection params
	SpikeLimit            *float64 `json:"spike_limit,omitempty"`
	DynamicHP             *bool    `json:"dynamic_hp,omitempty"`
	SmoothingRadius        *int    `json:"smoothing_radius,omitempty"`
	HighPass               *bool   `json:"high_pass,omitempty"`
	HighPassRadius         *int    `json:"high_pass_radius,omitempty"`
	CentroidBorder         *int    `json:"centroid_border,omitempty"`
	SigmaCutoff            *float64 `json:"sigma_cutoff,omitempty"`
	Spacing                *int    `json:"spacing,omitempty"`
	MakeStaticHPThreshold  *int    `json:"make_static_hp_threshold,omitempty"`
	UseStaticHP            *bool   `json:"use_static_hp,omitempty"`

	// Camera/lens params
	MinFocusPos    *int     `json:"min_focus_pos,omitempty"`
	MaxFocusPos    *int     `json:"max_focus_pos,omitempty"`
	ApertureSteps  *int     `json:"aperture_steps,omitempty"`
	ExposureTimeMs *float64 `json:"exposure_time_ms,omitempty"`
	GainFactor     *float64 `json:"gain_factor,omitempty"`
	PhotosPerFocus *int     `json:"photos_per_focus,omitempty"`

	// Site/solver params
	LatitudeDeg     *float64 `json:"latitude_deg,omitempty"`
	LongitudeDeg    *float64 `json:"longitude_deg,omitempty"`
	HeightM         *float64 `json:"height_m,omitempty"`
	LogOdds         *float64 `json:"log_odds,omitempty"`
	SolveTimeoutSec *int     `json:"solve_timeout_sec,omitempty"`

	// Trigger params
	TriggerMode      *bool `json:"trigger_mode,omitempty"`
	TriggerTimeoutUs *int  `json:"trigger_timeout_us,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
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
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.SpikeLimit != nil && *c.SpikeLimit <= 0 {
		return fmt.Errorf("spike_limit must be positive, got %f", *c.SpikeLimit)
	}
	if c.SmoothingRadius != nil && *c.SmoothingRadius < 0 {
		return fmt.Errorf("smoothing_radius must be non-negative, got %d", *c.SmoothingRadius)
	}
	if c.HighPassRadius != nil && *c.HighPassRadius < 0 {
		return fmt.Errorf("high_pass_radius must be non-negative, got %d", *c.HighPassRadius)
	}
	if c.SigmaCutoff != nil && *c.SigmaCutoff <= 0 {
		return fmt.Errorf("sigma_cutoff must be positive, got %f", *c.SigmaCutoff)
	}
	if c.Spacing != nil && *c.Spacing < 1 {
		return fmt.Errorf("spacing must be at least 1, got %d", *c.Spacing)
	}
	if c.MinFocusPos != nil && c.MaxFocusPos != nil && *c.MinFocusPos > *c.MaxFocusPos {
		return fmt.Errorf("min_focus_pos (%d) must not exceed max_focus_pos (%d)", *c.MinFocusPos, *c.MaxFocusPos)
	}
	if c.ExposureTimeMs != nil && *c.ExposureTimeMs <= 0 {
		return fmt.Errorf("exposure_time_ms must be positive, got %f", *c.ExposureTimeMs)
	}
	if c.GainFactor != nil && *c.GainFactor <= 0 {
		return fmt.Errorf("gain_factor must be positive, got %f", *c.GainFactor)
	}
	if c.PhotosPerFocus != nil && *c.PhotosPerFocus < 1 {
		return fmt.Errorf("photos_per_focus must be at least 1, got %d", *c.PhotosPerFocus)
	}
	if c.SolveTimeoutSec != nil && *c.SolveTimeoutSec < 1 {
		return fmt.Errorf("solve_timeout_sec must be at least 1, got %d", *c.SolveTimeoutSec)
	}
	return nil
}

// GetSpikeLimit returns the spike_limit value or the default.
func (c *TuningConfig) GetSpikeLimit() float64 {
	if c.SpikeLimit == nil {
		return 3.0
	}
	return *c.SpikeLimit
}

// GetDynamicHP returns the dynamic_hp value or the default.
func (c *TuningConfig) GetDynamicHP() bool {
	if c.DynamicHP == nil {
		return false
	}
	return *c.DynamicHP
}

// GetSmoothingRadius returns the smoothing_radius value or the default.
func (c *TuningConfig) GetSmoothingRadius() int {
	if c.SmoothingRadius == nil {
		return 2
	}
	return *c.SmoothingRadius
}

// GetHighPass returns the high_pass value or the default.
func (c *TuningConfig) GetHighPass() bool {
	if c.HighPass == nil {
		return false
	}
	return *c.HighPass
}

// GetHighPassRadius returns the high_pass_radius value or the default.
func (c *TuningConfig) GetHighPassRadius() int {
	if c.HighPassRadius == nil {
		return 8
	}
	return *c.HighPassRadius
}

// GetCentroidBorder returns the centroid_border value or the default.
func (c *TuningConfig) GetCentroidBorder() int {
	if c.CentroidBorder == nil {
		return 5
	}
	return *c.CentroidBorder
}

// GetSigmaCutoff returns the sigma_cutoff value or the default.
func (c *TuningConfig) GetSigmaCutoff() float64 {
	if c.SigmaCutoff == nil {
		return 5.0
	}
	return *c.SigmaCutoff
}

// GetSpacing returns the spacing value or the default.
func (c *TuningConfig) GetSpacing() int {
	if c.Spacing == nil {
		return 15
	}
	return *c.Spacing
}

// GetMakeStaticHPThreshold returns the make_static_hp_threshold value or the default.
func (c *TuningConfig) GetMakeStaticHPThreshold() int {
	if c.MakeStaticHPThreshold == nil {
		return 4000
	}
	return *c.MakeStaticHPThreshold
}

// GetUseStaticHP returns the use_static_hp value or the default.
func (c *TuningConfig) GetUseStaticHP() bool {
	if c.UseStaticHP == nil {
		return false
	}
	return *c.UseStaticHP
}

// GetMinFocusPos returns the min_focus_pos value or the default.
func (c *TuningConfig) GetMinFocusPos() int {
	if c.MinFocusPos == nil {
		return 0
	}
	return *c.MinFocusPos
}

// GetMaxFocusPos returns the max_focus_pos value or the default.
func (c *TuningConfig) GetMaxFocusPos() int {
	if c.MaxFocusPos == nil {
		return 4000
	}
	return *c.MaxFocusPos
}

// GetApertureSteps returns the aperture_steps value or the default.
func (c *TuningConfig) GetApertureSteps() int {
	if c.ApertureSteps == nil {
		return 8
	}
	return *c.ApertureSteps
}

// GetExposureTimeMs returns the exposure_time_ms value or the default.
func (c *TuningConfig) GetExposureTimeMs() float64 {
	if c.ExposureTimeMs == nil {
		return 100
	}
	return *c.ExposureTimeMs
}

// GetGainFactor returns the gain_factor value or the default.
func (c *TuningConfig) GetGainFactor() float64 {
	if c.GainFactor == nil {
		return 1.0
	}
	return *c.GainFactor
}

// GetPhotosPerFocus returns the photos_per_focus value or the default.
func (c *TuningConfig) GetPhotosPerFocus() int {
	if c.PhotosPerFocus == nil {
		return 1
	}
	return *c.PhotosPerFocus
}

// GetLatitudeDeg returns the latitude_deg value or the default.
func (c *TuningConfig) GetLatitudeDeg() float64 {
	if c.LatitudeDeg == nil {
		return 0
	}
	return *c.LatitudeDeg
}

// GetLongitudeDeg returns the longitude_deg value or the default.
func (c *TuningConfig) GetLongitudeDeg() float64 {
	if c.LongitudeDeg == nil {
		return 0
	}
	return *c.LongitudeDeg
}

// GetHeightM returns the height_m value or the default.
func (c *TuningConfig) GetHeightM() float64 {
	if c.HeightM == nil {
		return 0
	}
	return *c.HeightM
}

// GetLogOdds returns the log_odds value or the default.
func (c *TuningConfig) GetLogOdds() float64 {
	if c.LogOdds == nil {
		return 0
	}
	return *c.LogOdds
}

// GetSolveTimeoutSec returns the solve_timeout_sec value or the default.
func (c *TuningConfig) GetSolveTimeoutSec() int {
	if c.SolveTimeoutSec == nil {
		return 5
	}
	return *c.SolveTimeoutSec
}

// GetTriggerMode returns the trigger_mode value or the default.
func (c *TuningConfig) GetTriggerMode() bool {
	if c.TriggerMode == nil {
		return false
	}
	return *c.TriggerMode
}

// GetTriggerTimeoutUs returns the trigger_timeout_us value or the default.
func (c *TuningConfig) GetTriggerTimeoutUs() int {
	if c.TriggerTimeoutUs == nil {
		return 1_000_000
	}
	return *c.TriggerTimeoutUs
}

// ToParamsState converts a (possibly partial) TuningConfig into a full
// params.State, using defaults for any unset field.
func (c *TuningConfig) ToParamsState() params.State {
	s := params.Default()
	s.Blob.SpikeLimit = c.GetSpikeLimit()
	s.Blob.DynamicHP = c.GetDynamicHP()
	s.Blob.SmoothingRadius = c.GetSmoothingRadius()
	s.Blob.HighPass = c.GetHighPass()
	s.Blob.HighPassRadius = c.GetHighPassRadius()
	s.Blob.CentroidBorder = c.GetCentroidBorder()
	s.Blob.SigmaCutoff = c.GetSigmaCutoff()
	s.Blob.Spacing = c.GetSpacing()
	s.Blob.MakeStaticHPThreshold = c.GetMakeStaticHPThreshold()
	s.Blob.UseStaticHP = c.GetUseStaticHP()

	s.Camera.MinFocusPos = c.GetMinFocusPos()
	s.Camera.MaxFocusPos = c.GetMaxFocusPos()
	s.Camera.ApertureSteps = c.GetApertureSteps()
	s.Camera.ExposureTimeMs = c.GetExposureTimeMs()
	s.Camera.GainFactor = c.GetGainFactor()
	s.Camera.PhotosPerFocus = c.GetPhotosPerFocus()

	s.Site.LatitudeDeg = c.GetLatitudeDeg()
	s.Site.LongitudeDeg = c.GetLongitudeDeg()
	s.Site.HeightM = c.GetHeightM()
	s.Site.LogOdds = c.GetLogOdds()
	s.Site.SolveTimeoutSec = c.GetSolveTimeoutSec()

	s.Trigger.Mode = c.GetTriggerMode()
	s.Trigger.TimeoutUs = c.GetTriggerTimeoutUs()
	return s
}
