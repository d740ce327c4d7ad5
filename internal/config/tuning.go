// Package config holds the static configuration of the tabletop hub: the
// tuning parameters of the interaction engine and gesture pipeline, and the
// listen addresses of the network surfaces.
//
// Tuning uses pointer-typed optional fields so a partial JSON file can
// override any subset of values; the Get* accessors fall back to the
// reference defaults for fields left unset.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Reference defaults. Thresholds are deliberately configuration rather than
// derived constants; these values come from the deployed reference setup.
const (
	defaultProximityThreshold   = 0.08
	defaultGestureAcceptance    = 0.5
	defaultResamplePoints       = 64
	defaultBaseMinutes          = 450 // 07:30
	defaultMaxAdjustmentMinutes = 240 // ±4 hours
	defaultUpdateInterval       = 500 * time.Millisecond
	defaultHoverInterval        = 0 // no hover throttling
	defaultRetryBackoff         = 5 * time.Second
)

// defaultMedications is the reference wheel sector table. Its length
// defines the number of wheel sectors.
var defaultMedications = []string{
	"Paracetamol",
	"Amoxicillin",
	"Aspirin",
	"Metformin",
	"Lisinopril",
	"Atorvastatin",
}

// Tuning is the root tuning configuration. The schema matches the
// /api/params endpoint so the same JSON serves startup configuration and
// runtime inspection.
type Tuning struct {
	// Interaction engine params
	ProximityThreshold *float64 `json:"proximity_threshold,omitempty"`
	HoverInterval      *string  `json:"hover_interval,omitempty"` // duration string like "250ms"
	Medications        []string `json:"medications,omitempty"`

	// Gesture classifier params
	GestureAcceptance *float64 `json:"gesture_acceptance,omitempty"`
	ResamplePoints    *int     `json:"resample_points,omitempty"`

	// Time controller params
	BaseMinutes          *int    `json:"base_minutes,omitempty"`
	MaxAdjustmentMinutes *int    `json:"max_adjustment_minutes,omitempty"`
	UpdateInterval       *string `json:"update_interval,omitempty"` // duration string like "500ms"

	// Gesture pipeline params
	RetryBackoff *string `json:"retry_backoff,omitempty"` // duration string like "5s"
}

// EmptyTuning returns a Tuning with all fields unset. The Get* accessors
// supply defaults for every unset field.
func EmptyTuning() *Tuning {
	return &Tuning{}
}

// GetProximityThreshold returns the co-location confirm distance in
// normalized table coordinates.
func (t *Tuning) GetProximityThreshold() float64 {
	if t.ProximityThreshold != nil {
		return *t.ProximityThreshold
	}
	return defaultProximityThreshold
}

// GetHoverInterval returns the minimum spacing between hover emissions for
// one marker session. Zero disables throttling.
func (t *Tuning) GetHoverInterval() time.Duration {
	if t.HoverInterval != nil {
		d, err := time.ParseDuration(*t.HoverInterval)
		if err == nil {
			return d
		}
	}
	return defaultHoverInterval
}

// GetMedications returns the wheel sector table.
func (t *Tuning) GetMedications() []string {
	if len(t.Medications) > 0 {
		return t.Medications
	}
	return defaultMedications
}

// GetGestureAcceptance returns the classifier acceptance threshold.
func (t *Tuning) GetGestureAcceptance() float64 {
	if t.GestureAcceptance != nil {
		return *t.GestureAcceptance
	}
	return defaultGestureAcceptance
}

// GetResamplePoints returns the fixed classifier resample count.
func (t *Tuning) GetResamplePoints() int {
	if t.ResamplePoints != nil {
		return *t.ResamplePoints
	}
	return defaultResamplePoints
}

// GetBaseMinutes returns the time-controller base time in minutes from
// midnight.
func (t *Tuning) GetBaseMinutes() int {
	if t.BaseMinutes != nil {
		return *t.BaseMinutes
	}
	return defaultBaseMinutes
}

// GetMaxAdjustmentMinutes returns the maximum hand-position time offset.
func (t *Tuning) GetMaxAdjustmentMinutes() int {
	if t.MaxAdjustmentMinutes != nil {
		return *t.MaxAdjustmentMinutes
	}
	return defaultMaxAdjustmentMinutes
}

// GetUpdateInterval returns the time-update rate limit interval.
func (t *Tuning) GetUpdateInterval() time.Duration {
	if t.UpdateInterval != nil {
		d, err := time.ParseDuration(*t.UpdateInterval)
		if err == nil {
			return d
		}
	}
	return defaultUpdateInterval
}

// GetRetryBackoff returns the frame-source retry backoff.
func (t *Tuning) GetRetryBackoff() time.Duration {
	if t.RetryBackoff != nil {
		d, err := time.ParseDuration(*t.RetryBackoff)
		if err == nil {
			return d
		}
	}
	return defaultRetryBackoff
}

// Validate checks the configuration for values that would break the engine
// or classifier.
func (t *Tuning) Validate() error {
	if t.ProximityThreshold != nil && *t.ProximityThreshold <= 0 {
		return fmt.Errorf("proximity_threshold must be positive, got %v", *t.ProximityThreshold)
	}
	if t.GestureAcceptance != nil && *t.GestureAcceptance <= 0 {
		return fmt.Errorf("gesture_acceptance must be positive, got %v", *t.GestureAcceptance)
	}
	if t.ResamplePoints != nil && *t.ResamplePoints < 2 {
		return fmt.Errorf("resample_points must be at least 2, got %d", *t.ResamplePoints)
	}
	if t.BaseMinutes != nil && (*t.BaseMinutes < 0 || *t.BaseMinutes > 1439) {
		return fmt.Errorf("base_minutes must be in [0,1439], got %d", *t.BaseMinutes)
	}
	if t.MaxAdjustmentMinutes != nil && *t.MaxAdjustmentMinutes < 0 {
		return fmt.Errorf("max_adjustment_minutes must be non-negative, got %d", *t.MaxAdjustmentMinutes)
	}
	for _, field := range []struct {
		name  string
		value *string
	}{
		{"hover_interval", t.HoverInterval},
		{"update_interval", t.UpdateInterval},
		{"retry_backoff", t.RetryBackoff},
	} {
		if field.value == nil {
			continue
		}
		d, err := time.ParseDuration(*field.value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", field.name, *field.value, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", field.name, d)
		}
	}
	if t.Medications != nil && len(t.Medications) == 0 {
		return fmt.Errorf("medications table must not be empty")
	}
	return nil
}

// LoadTuning loads a Tuning from a JSON file. Fields omitted from the file
// retain their defaults, so partial configs are safe.
func LoadTuning(path string) (*Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuning()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
