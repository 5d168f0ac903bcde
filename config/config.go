package config

import (
	"encoding/json"
	"os"
	"time"
)

// Config holds runtime configuration for the analysis pipeline and policy
// behavior. Fields may be loaded from a JSON file and overridden by
// command-line flags. The numeric calibration values (threshold, margin,
// confidence band, spread gates) are empirically tuned; override them only
// when re-calibrating against a labelled set.
type Config struct {
	Debug bool `json:"debug"`

	// Region selection
	PaddingPct  float64 `json:"padding_pct"`   // face box expansion per side, percent of box size
	MinFaceSize int     `json:"min_face_size"` // boxes smaller than this fall back to full frame

	// Preprocessing
	TargetSize int        `json:"target_size"` // canonical square input size
	Mean       [3]float64 `json:"mean"`        // per-channel normalization mean (RGB)
	Std        [3]float64 `json:"std"`         // per-channel normalization std (RGB)

	// Test-time augmentation
	EnsemblePaddings []float64 `json:"ensemble_paddings"` // padding percentages, one pass each

	// Decision
	DecisionThreshold float64 `json:"decision_threshold"` // adult iff probability >= threshold
	BoundaryMargin    float64 `json:"boundary_margin"`    // near-boundary confidence penalty band

	// Confidence calibration
	ConfidenceFloor  float64 `json:"confidence_floor"`
	ConfidenceCeil   float64 `json:"confidence_ceil"`
	SinglePassSlope  float64 `json:"single_pass_slope"` // single-pass: 0.5 + slope*|p-0.5|
	CenterWeight     float64 `json:"center_weight"`     // multi-pass distance-from-0.5 bonus weight
	LowSpreadStdDev  float64 `json:"low_spread_stddev"` // below this (and range) passes agree tightly
	LowSpreadRange   float64 `json:"low_spread_range"`
	HighSpreadStdDev float64 `json:"high_spread_stddev"` // above this (or range) passes disagree
	HighSpreadRange  float64 `json:"high_spread_range"`
	LowSpreadBoost   float64 `json:"low_spread_boost"`
	HighSpreadFactor float64 `json:"high_spread_factor"`
	BoundaryFactor   float64 `json:"boundary_factor"`

	// Policy
	VerificationWindowSeconds int `json:"verification_window_seconds"`
	AutoStopSeconds           int `json:"auto_stop_seconds"` // frame source release delay after a result

	// Capabilities
	ClassifierCmd  string   `json:"classifier_cmd"`
	ClassifierArgs []string `json:"classifier_args"`
	DetectorCmd    string   `json:"detector_cmd"`
	DetectorArgs   []string `json:"detector_args"`

	// Persistence
	StatePath     string `json:"state_path"` // JSON file store, used when redis is not configured
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	PostgresDSN   string `json:"postgres_dsn"` // optional analysis history

	// Observability
	MetricsAddr string `json:"metrics_addr"` // prometheus listen address, empty disables
}

// DefaultConfig returns a Config populated with the calibrated defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:             false,
		PaddingPct:        25,
		MinFaceSize:       48,
		TargetSize:        224,
		Mean:              [3]float64{0.485, 0.456, 0.406},
		Std:               [3]float64{0.229, 0.224, 0.225},
		EnsemblePaddings:  []float64{25},
		DecisionThreshold: 0.52,
		BoundaryMargin:    0.08,
		ConfidenceFloor:   0.55,
		ConfidenceCeil:    0.95,
		SinglePassSlope:   1.5,
		CenterWeight:      0.4,
		LowSpreadStdDev:   0.10,
		LowSpreadRange:    0.20,
		HighSpreadStdDev:  0.15,
		HighSpreadRange:   0.30,
		LowSpreadBoost:    1.2,
		HighSpreadFactor:  0.85,
		BoundaryFactor:    0.85,

		VerificationWindowSeconds: 3600,
		AutoStopSeconds:           3,

		StatePath: "agegate_state.json",
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	if c.PaddingPct < 0 {
		c.PaddingPct = 0
	}
	if c.PaddingPct > 50 {
		c.PaddingPct = 50
	}
	if c.MinFaceSize < 1 {
		c.MinFaceSize = 1
	}
	if c.TargetSize < 1 {
		c.TargetSize = 224
	}
	for i := range c.Std {
		if c.Std[i] == 0 {
			c.Std[i] = 1
		}
	}
	if len(c.EnsemblePaddings) == 0 {
		c.EnsemblePaddings = []float64{c.PaddingPct}
	}
	for i, p := range c.EnsemblePaddings {
		if p < 0 {
			c.EnsemblePaddings[i] = 0
		}
		if p > 50 {
			c.EnsemblePaddings[i] = 50
		}
	}
	if c.DecisionThreshold <= 0 || c.DecisionThreshold >= 1 {
		c.DecisionThreshold = 0.52
	}
	if c.BoundaryMargin < 0 || c.BoundaryMargin > 0.5 {
		c.BoundaryMargin = 0.08
	}
	if c.ConfidenceFloor <= 0 || c.ConfidenceFloor >= 1 {
		c.ConfidenceFloor = 0.55
	}
	if c.ConfidenceCeil <= c.ConfidenceFloor || c.ConfidenceCeil > 1 {
		c.ConfidenceCeil = 0.95
	}
	if c.SinglePassSlope <= 0 {
		c.SinglePassSlope = 1.5
	}
	if c.CenterWeight < 0 {
		c.CenterWeight = 0.4
	}
	if c.LowSpreadBoost < 1 {
		c.LowSpreadBoost = 1.2
	}
	if c.HighSpreadFactor <= 0 || c.HighSpreadFactor > 1 {
		c.HighSpreadFactor = 0.85
	}
	if c.BoundaryFactor <= 0 || c.BoundaryFactor > 1 {
		c.BoundaryFactor = 0.85
	}
	if c.VerificationWindowSeconds < 1 {
		c.VerificationWindowSeconds = 3600
	}
	if c.AutoStopSeconds < 0 {
		c.AutoStopSeconds = 3
	}
	return nil
}

// VerificationWindow returns the window duration after a completed analysis.
func (c *Config) VerificationWindow() time.Duration {
	return time.Duration(c.VerificationWindowSeconds) * time.Second
}

// AutoStopDelay returns how long the frame source stays alive after a result.
func (c *Config) AutoStopDelay() time.Duration {
	return time.Duration(c.AutoStopSeconds) * time.Second
}

// Load attempts to read configuration from the given JSON file path. If the file does not
// exist it returns DefaultConfig(). On JSON error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return cfg, err
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
