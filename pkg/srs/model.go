// Package srs implements the spaced-repetition memory model: per-concept
// stability/difficulty/retrievability estimation, forgetting-curve decay,
// interval scheduling, and the freshness score used to surface brand-new
// concepts.
//
// The package is pure computation. It never reads the clock, never touches
// storage, and its operations are total: degenerate inputs (zero stability,
// skewed timestamps) are absorbed numerically, never returned as errors, so
// a timing artifact can never fail the review flow.
package srs

import (
	"math"
	"time"
)

// Model advances concept memory states from review grades.
//
// A Model is immutable after construction and safe for concurrent use.
//
// Example usage:
//
//	model, _ := srs.NewModel(srs.DefaultParams())
//	state := srs.NewState(createdAt)
//	state = model.Advance(state, srs.Good, time.Now())
type Model struct {
	p Params
}

// NewModel creates a Model from the given parameters.
// Zero-value fields are filled with defaults; invalid values return an error.
func NewModel(p Params) (*Model, error) {
	p = p.withDefaults()
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Model{p: p}, nil
}

// Params returns the parameters the model was built with.
func (m *Model) Params() Params {
	return m.p
}

// Advance computes the memory state after grading a concept at the given
// time. The input state is not mutated.
//
// The operation is total: every input produces a defined, finite output.
// Negative elapsed time (clock skew between caller and storage) is clamped
// to zero, all divisions are guarded, and every numeric field is bounded,
// so the result never contains NaN and NextReviewAt is always after now.
func (m *Model) Advance(state MemoryState, grade Grade, now time.Time) MemoryState {
	next := state

	elapsed := m.elapsedDays(state, now)
	r := m.retrievability(elapsed, state.Stability)

	next.Difficulty = m.nextDifficulty(state, grade)
	next.Stability = m.nextStability(state, grade, r, next.Difficulty)

	if grade == Again {
		next.Lapses = state.Lapses + 1
		next.Streak = 0
	} else {
		next.Streak = state.Streak + 1
	}

	next.NextReviewAt = now.Add(m.interval(next.Stability, grade))
	next.Reps = state.Reps + 1
	next.Lifecycle = m.nextLifecycle(state.Lifecycle, grade, next.Streak)

	next.ElapsedDays = elapsed
	next.Retrievability = r
	reviewedAt := now
	next.LastReviewedAt = &reviewedAt

	return next
}

// Retrievability returns the modeled recall probability for the state at the
// given time, without mutating it. Never-reviewed concepts are maximally
// fresh and report 1.0.
func (m *Model) Retrievability(state MemoryState, now time.Time) float64 {
	return m.retrievability(m.elapsedDays(state, now), state.Stability)
}

// Interval returns the scheduling delay the model would assign for the given
// stability on a successful recall. It grows monotonically with stability.
func (m *Model) Interval(stability float64) time.Duration {
	return m.interval(stability, Good)
}

// elapsedDays computes the days since the last grading, clamped at zero.
//
// For a never-reviewed concept NextReviewAt equals its creation time, so it
// serves as the reference point.
func (m *Model) elapsedDays(state MemoryState, now time.Time) float64 {
	ref := state.NextReviewAt
	if state.LastReviewedAt != nil {
		ref = *state.LastReviewedAt
	}
	elapsed := now.Sub(ref).Hours() / 24.0
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// retrievability computes R = e^(-t / (9 * S)).
//
// The zero-stability branch treats a never-reviewed concept as maximally
// fresh; it also guards the division.
func (m *Model) retrievability(elapsedDays, stability float64) float64 {
	if stability <= 0 {
		return 1.0
	}
	return math.Exp(-elapsedDays / (9.0 * stability))
}

// nextDifficulty applies the bounded, grade-weighted difficulty adjustment.
func (m *Model) nextDifficulty(state MemoryState, grade Grade) float64 {
	if state.Reps == 0 {
		return clampDifficulty(m.p.SeedDifficulty[grade])
	}
	return clampDifficulty(state.Difficulty + m.p.DifficultyDelta[grade])
}

// nextStability computes the post-review stability.
//
// On Again the stability is cut sharply (lapse). On success it grows
// multiplicatively: the growth factor is strictly increasing in grade,
// decreasing in difficulty, and increasing as retrievability drops, so
// reviews that arrive near the forgetting threshold strengthen the memory
// the most.
func (m *Model) nextStability(state MemoryState, grade Grade, r, difficulty float64) float64 {
	if state.Stability <= 0 {
		return clampStability(m.p.SeedStability[grade], m.p.MaxIntervalDays)
	}
	if grade == Again {
		return clampStability(state.Stability*m.p.LapseFactor, m.p.MaxIntervalDays)
	}
	growth := 1 + m.p.GrowthWeight[grade]*
		((11-difficulty)/10)*
		(math.Exp(1-r)-1+m.p.GrowthFloor)
	return clampStability(state.Stability*growth, m.p.MaxIntervalDays)
}

// interval converts stability into a scheduling delay.
//
// Solving R(t) = e^(-t / (9 * S)) for the desired retention gives
// t = -9 * S * ln(retention), floored at one day. A lapse instead gets the
// short re-presentation interval so the concept comes back within the same
// session or soon after.
func (m *Model) interval(stability float64, grade Grade) time.Duration {
	if grade == Again {
		return m.p.LapseInterval
	}
	days := -9.0 * stability * math.Log(m.p.DesiredRetention)
	if days < 1 {
		days = 1
	}
	if days > m.p.MaxIntervalDays {
		days = m.p.MaxIntervalDays
	}
	return time.Duration(days * 24 * float64(time.Hour))
}

// nextLifecycle advances the per-concept state machine.
//
// New concepts enter Learning on their first grading and graduate to Review
// once the non-lapse streak reaches the configured run. Any Again grading
// forces Relearning; the next non-lapse grading recovers to Review.
func (m *Model) nextLifecycle(current Lifecycle, grade Grade, streak int) Lifecycle {
	if grade == Again {
		return Relearning
	}
	switch current {
	case New, Learning:
		if streak >= m.p.GraduationStreak {
			return Review
		}
		return Learning
	case Relearning:
		return Review
	default:
		return Review
	}
}

// clampStability bounds stability to [minStability, maxIntervalDays].
func clampStability(s, max float64) float64 {
	if s < minStability {
		return minStability
	}
	if s > max {
		return max
	}
	return s
}

// clampDifficulty bounds difficulty to [1, 10].
func clampDifficulty(d float64) float64 {
	if d < difficultyMin {
		return difficultyMin
	}
	if d > difficultyMax {
		return difficultyMax
	}
	return d
}
