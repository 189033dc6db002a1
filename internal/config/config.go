// Package config holds the typed configuration structs the engine
// recognizes, split by concern the way the teacher's scheduler-service
// splits SM2Config/BKTConfig/IRTConfig/ScoringConfig.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BKTConfig holds the default Bayesian Knowledge Tracing parameters
// used when a skill has no calibrated parameters of its own.
type BKTConfig struct {
	PInit  float64 `yaml:"pInit"`
	PLearn float64 `yaml:"pLearn"`
	PSlip  float64 `yaml:"pSlip"`
	PGuess float64 `yaml:"pGuess"`
}

// DefaultBKTConfig returns the spec-mandated defaults.
func DefaultBKTConfig() BKTConfig {
	return BKTConfig{PInit: 0.1, PLearn: 0.1, PSlip: 0.1, PGuess: 0.2}
}

// Validate enforces the identifiability constraints from spec §3/§4.3.
func (c BKTConfig) Validate() error {
	if c.PSlip <= 0 || c.PSlip >= 1 {
		return fmt.Errorf("pSlip must be in (0,1), got %v", c.PSlip)
	}
	if c.PGuess <= 0 || c.PGuess >= 1 {
		return fmt.Errorf("pGuess must be in (0,1), got %v", c.PGuess)
	}
	if c.PSlip+c.PGuess >= 1 {
		return fmt.Errorf("pSlip + pGuess must be < 1, got %v", c.PSlip+c.PGuess)
	}
	if c.PInit < 0 || c.PInit > 1 {
		return fmt.Errorf("pInit must be in [0,1], got %v", c.PInit)
	}
	if c.PLearn < 0 || c.PLearn > 1 {
		return fmt.Errorf("pLearn must be in [0,1], got %v", c.PLearn)
	}
	return nil
}

// FSRSConfig holds the memory-scheduler parameters from spec §4.4.
type FSRSConfig struct {
	InitialStability    [4]float64 `yaml:"initialStability"`
	DifficultyDecay     float64    `yaml:"difficultyDecay"`
	StabilityDecay      float64    `yaml:"stabilityDecay"`
	StabilityMultiplier float64    `yaml:"stabilityMultiplier"` // reserved, unused (see DESIGN.md)
	RequestedRetention  float64    `yaml:"requestedRetention"`
	MaxIntervalDays     float64    `yaml:"maxIntervalDays"`
	InitialDifficulty   float64    `yaml:"initialDifficulty"`
}

// DefaultFSRSConfig returns the spec-mandated defaults.
func DefaultFSRSConfig() FSRSConfig {
	return FSRSConfig{
		InitialStability:    [4]float64{0.4, 0.9, 2.3, 5.7},
		DifficultyDecay:     0.7,
		StabilityDecay:      0.2,
		StabilityMultiplier: 1.0,
		RequestedRetention:  0.9,
		MaxIntervalDays:     365,
		InitialDifficulty:   0.5,
	}
}

// PlannerConfig holds the session-planner tuning knobs from spec §4.7/§6.
type PlannerConfig struct {
	MaxDurationMinutes     int     `yaml:"maxDurationMinutes"`
	TargetItems            int     `yaml:"targetItems"`
	MasteryThreshold       float64 `yaml:"masteryThreshold"`
	EnforceSpacedRetrieval bool    `yaml:"enforceSpacedRetrieval"`
	RequireTransferTests   bool    `yaml:"requireTransferTests"`
	OverdueWeight          float64 `yaml:"overdueWeight"`
	ErrorWeight            float64 `yaml:"errorWeight"`
	TransferTestThreshold  float64 `yaml:"transferTestThreshold"`
	MaxErrorFocusItems     int     `yaml:"maxErrorFocusItems"`
}

// DefaultPlannerConfig returns the spec-mandated defaults.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		MaxDurationMinutes:     30,
		TargetItems:            10,
		MasteryThreshold:       0.8,
		EnforceSpacedRetrieval: true,
		RequireTransferTests:   false,
		OverdueWeight:          2.0,
		ErrorWeight:            1.5,
		TransferTestThreshold:  0.8,
		MaxErrorFocusItems:     5,
	}
}

// TransferGateConfig holds the transfer-gate tuning knobs from spec §4.5.
type TransferGateConfig struct {
	RequireNearTransfer bool    `yaml:"requireNearTransfer"`
	RequireFarTransfer  bool    `yaml:"requireFarTransfer"`
	GracePeriodEvents   int     `yaml:"gracePeriodEvents"`
	PassThreshold       float64 `yaml:"passThreshold"`
}

// DefaultTransferGateConfig returns the spec-mandated defaults.
func DefaultTransferGateConfig() TransferGateConfig {
	return TransferGateConfig{
		RequireNearTransfer: true,
		RequireFarTransfer:  false,
		GracePeriodEvents:   3,
		PassThreshold:       0.7,
	}
}

// LoggingConfig mirrors the teacher's LoggingConfig{Level, Format}.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultLoggingConfig returns sane defaults for stand-alone embedders.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{Level: "info", Format: "json"}
}

// Engine aggregates every config section the engine recognizes.
type Engine struct {
	BKT          BKTConfig          `yaml:"bkt"`
	FSRS         FSRSConfig         `yaml:"fsrs"`
	Planner      PlannerConfig      `yaml:"planner"`
	TransferGate TransferGateConfig `yaml:"transferGate"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// DefaultEngine returns an Engine config populated with every
// spec-mandated default.
func DefaultEngine() *Engine {
	return &Engine{
		BKT:          DefaultBKTConfig(),
		FSRS:         DefaultFSRSConfig(),
		Planner:      DefaultPlannerConfig(),
		TransferGate: DefaultTransferGateConfig(),
		Logging:      DefaultLoggingConfig(),
	}
}

// LoadYAML reads an Engine config from a YAML file, filling in
// spec-mandated defaults for any section the file omits. This is a
// convenience for embedders; the facade itself never reads files.
func LoadYAML(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg := DefaultEngine()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	return cfg, nil
}
