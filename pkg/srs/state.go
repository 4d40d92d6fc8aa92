package srs

import "time"

// MemoryState is the per-concept estimate of how well the learner currently
// remembers it, together with the resulting schedule.
//
// A state is advanced exclusively through Model.Advance; callers should treat
// it as an opaque value between reviews. Zero Stability means the concept has
// never been graded.
type MemoryState struct {
	// Stability is the estimated number of days until retrievability decays
	// to the reference threshold. Zero for never-reviewed concepts.
	Stability float64 `json:"stability"`

	// Difficulty is the estimated intrinsic difficulty, clamped to [1, 10].
	Difficulty float64 `json:"difficulty"`

	// LastReviewedAt is when the concept was last graded (nil if never).
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`

	// NextReviewAt is when the concept becomes due. For a never-reviewed
	// concept this equals its creation time, making it immediately eligible.
	NextReviewAt time.Time `json:"next_review_at"`

	// ElapsedDays is the elapsed time used by the last grading, cached for
	// diagnostics.
	ElapsedDays float64 `json:"elapsed_days,omitempty"`

	// Retrievability is the recall probability computed at the last grading,
	// in [0, 1]. Cached for diagnostics.
	Retrievability float64 `json:"retrievability,omitempty"`

	// Reps is the total number of graded reviews.
	Reps int `json:"reps"`

	// Lapses counts reviews graded Again.
	Lapses int `json:"lapses"`

	// Streak counts consecutive non-lapse gradings. It drives graduation
	// from Learning to Review and resets on every lapse.
	Streak int `json:"streak"`

	// Lifecycle is the scheduling stage of the concept.
	Lifecycle Lifecycle `json:"lifecycle"`
}

// NewState returns the default memory state for a concept created at the
// given time: never reviewed, zero stability, due immediately.
func NewState(createdAt time.Time) MemoryState {
	return MemoryState{
		NextReviewAt: createdAt,
		Lifecycle:    New,
	}
}
