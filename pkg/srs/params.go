package srs

import (
	"fmt"
	"time"
)

// Default numeric bounds for the memory model.
const (
	// minStability is the floor applied to every stability update.
	minStability = 0.001

	// difficultyMin and difficultyMax bound the difficulty estimate.
	difficultyMin = 1.0
	difficultyMax = 10.0
)

// Params contains the tunable parameters of the memory model.
//
// Zero-value fields are filled with defaults by NewModel; see DefaultParams
// for the values. All per-grade arrays are indexed by Grade (index 0 unused).
type Params struct {
	// DesiredRetention is the recall probability the schedule aims for when
	// converting stability into an interval. Zero means 0.9.
	DesiredRetention float64 `json:"desired_retention" yaml:"desired_retention"`

	// GraduationStreak is the number of consecutive non-lapse gradings
	// required to move a concept from Learning to Review. Zero means 2.
	GraduationStreak int `json:"graduation_streak" yaml:"graduation_streak"`

	// LapseInterval is the re-presentation delay after an Again grading.
	// Zero means 10 minutes.
	LapseInterval time.Duration `json:"lapse_interval" yaml:"lapse_interval"`

	// MaxIntervalDays caps the scheduled interval. Zero means 36500.
	MaxIntervalDays float64 `json:"max_interval_days" yaml:"max_interval_days"`

	// LapseFactor is the multiplicative stability cut applied on a lapse.
	// Zero means 0.4.
	LapseFactor float64 `json:"lapse_factor" yaml:"lapse_factor"`

	// SeedStability is the stability assigned on the first grading of a
	// concept, per grade.
	SeedStability [Easy + 1]float64 `json:"seed_stability" yaml:"seed_stability"`

	// SeedDifficulty is the difficulty assigned on the first grading of a
	// concept, per grade.
	SeedDifficulty [Easy + 1]float64 `json:"seed_difficulty" yaml:"seed_difficulty"`

	// DifficultyDelta is the per-grade difficulty adjustment applied on
	// every grading after the first. Again raises difficulty, Easy lowers
	// it, Hard and Good adjust mildly.
	DifficultyDelta [Easy + 1]float64 `json:"difficulty_delta" yaml:"difficulty_delta"`

	// GrowthWeight is the per-grade stability growth weight for successful
	// recalls. It must be strictly increasing from Hard to Easy.
	GrowthWeight [Easy + 1]float64 `json:"growth_weight" yaml:"growth_weight"`

	// GrowthFloor keeps stability growth strictly positive even when a
	// concept is reviewed the instant it becomes retrievable again.
	// Zero means 0.1.
	GrowthFloor float64 `json:"growth_floor" yaml:"growth_floor"`
}

// DefaultParams returns the default model parameters.
func DefaultParams() Params {
	return Params{
		DesiredRetention: 0.9,
		GraduationStreak: 2,
		LapseInterval:    10 * time.Minute,
		MaxIntervalDays:  36500,
		LapseFactor:      0.4,
		SeedStability:    [Easy + 1]float64{Again: 0.4, Hard: 1.2, Good: 2.5, Easy: 5.8},
		SeedDifficulty:   [Easy + 1]float64{Again: 7.2, Hard: 6.1, Good: 5.0, Easy: 3.9},
		DifficultyDelta:  [Easy + 1]float64{Again: 1.2, Hard: 0.4, Good: -0.1, Easy: -0.7},
		GrowthWeight:     [Easy + 1]float64{Hard: 1.2, Good: 2.0, Easy: 3.0},
		GrowthFloor:      0.1,
	}
}

// withDefaults fills zero-value fields with the defaults.
func (p Params) withDefaults() Params {
	def := DefaultParams()
	if p.DesiredRetention == 0 {
		p.DesiredRetention = def.DesiredRetention
	}
	if p.GraduationStreak == 0 {
		p.GraduationStreak = def.GraduationStreak
	}
	if p.LapseInterval == 0 {
		p.LapseInterval = def.LapseInterval
	}
	if p.MaxIntervalDays == 0 {
		p.MaxIntervalDays = def.MaxIntervalDays
	}
	if p.LapseFactor == 0 {
		p.LapseFactor = def.LapseFactor
	}
	if p.SeedStability == ([Easy + 1]float64{}) {
		p.SeedStability = def.SeedStability
	}
	if p.SeedDifficulty == ([Easy + 1]float64{}) {
		p.SeedDifficulty = def.SeedDifficulty
	}
	if p.DifficultyDelta == ([Easy + 1]float64{}) {
		p.DifficultyDelta = def.DifficultyDelta
	}
	if p.GrowthWeight == ([Easy + 1]float64{}) {
		p.GrowthWeight = def.GrowthWeight
	}
	if p.GrowthFloor == 0 {
		p.GrowthFloor = def.GrowthFloor
	}
	return p
}

// validate checks parameter bounds after defaults have been applied.
func (p Params) validate() error {
	if p.DesiredRetention <= 0 || p.DesiredRetention >= 1 {
		return fmt.Errorf("srs: desired retention %f out of range (0, 1)", p.DesiredRetention)
	}
	if p.GraduationStreak < 1 {
		return fmt.Errorf("srs: graduation streak %d must be at least 1", p.GraduationStreak)
	}
	if p.LapseInterval <= 0 {
		return fmt.Errorf("srs: lapse interval %v must be positive", p.LapseInterval)
	}
	if p.LapseFactor <= 0 || p.LapseFactor >= 1 {
		return fmt.Errorf("srs: lapse factor %f out of range (0, 1)", p.LapseFactor)
	}
	if !(p.GrowthWeight[Hard] < p.GrowthWeight[Good] && p.GrowthWeight[Good] < p.GrowthWeight[Easy]) {
		return fmt.Errorf("srs: growth weights must be strictly increasing from Hard to Easy")
	}
	return nil
}
