// Package core provides the main Recall engine and review scheduling functionality.
package core

import (
	"time"

	"github.com/studyloop/recall-go/pkg/srs"
)

// Concept represents a single reviewable item and its scheduling state.
//
// Concepts are owned by exactly one user. Two concepts with identical
// content are still independent items with independent schedules.
//
// Example:
//
//	concept := &core.Concept{
//	    Content: "What does the CAP theorem state?",
//	    UserID:  "user_001",
//	}
type Concept struct {
	// ID is the unique identifier for this concept.
	ID int64 `json:"id"`

	// UserID identifies the user who owns this concept.
	UserID string `json:"user_id"`

	// Content is the reviewable material (question, fact, prompt).
	Content string `json:"content"`

	// State holds the scheduling state maintained by the memory model.
	State srs.MemoryState `json:"state"`

	// Attempts is the total number of gradings recorded for this concept.
	//
	// Advisory counter. It never influences scheduling.
	Attempts int `json:"attempts"`

	// Correct is the number of gradings recorded as correct.
	//
	// Advisory counter. It never influences scheduling.
	Correct int `json:"correct"`

	// Archived indicates the concept is hidden from review queues
	// but retains its state for later restoration.
	Archived bool `json:"archived"`

	// CreatedAt is when the concept was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the concept was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// Interaction is the immutable record of one grading event.
type Interaction struct {
	// ID is the unique identifier for this interaction.
	ID int64 `json:"id"`

	// UserID identifies the user who graded.
	UserID string `json:"user_id"`

	// ConceptID identifies the graded concept.
	ConceptID int64 `json:"concept_id"`

	// Answer is the answer the user gave, if any.
	Answer string `json:"answer,omitempty"`

	// Correct records whether the answer was counted as correct.
	Correct bool `json:"correct"`

	// Grade is the recall grade assigned to this attempt.
	Grade srs.Grade `json:"grade"`

	// AttemptedAt is the engine-side timestamp of the grading.
	AttemptedAt time.Time `json:"attempted_at"`

	// TimeSpentMs is how long the attempt took, in milliseconds (optional).
	TimeSpentMs *int `json:"time_spent_ms,omitempty"`

	// SessionTag groups interactions belonging to one study session (optional).
	SessionTag string `json:"session_tag,omitempty"`
}

// DueCount reports the size of a user's review queue at a point in time.
//
// Example:
//
//	counts, _ := engine.DueCount(ctx, "user_001")
//	fmt.Printf("%d due of %d reviewable\n", counts.DueNow, counts.TotalReviewable)
type DueCount struct {
	// DueNow is the number of visible concepts whose next review time
	// has arrived.
	DueNow int `json:"due_now"`

	// TotalReviewable is the number of visible concepts, due or not.
	TotalReviewable int `json:"total_reviewable"`

	// ServerTime is the engine clock reading the counts were computed at.
	ServerTime time.Time `json:"server_time"`
}

// NextResult is the outcome of asking for the next item to study.
//
// Concept is nil when the user has nothing to study. Freshness is set
// whenever the selection has never been reviewed; Retrievability is set
// for selections from the due queue.
type NextResult struct {
	// Concept is the selected item, or nil when the queue is empty.
	Concept *Concept `json:"concept,omitempty"`

	// Freshness is the novelty score of a never-reviewed selection, in (0, 1].
	Freshness float64 `json:"freshness,omitempty"`

	// Retrievability is the estimated recall probability of the selection.
	Retrievability float64 `json:"retrievability,omitempty"`

	// ServerTime is the engine clock reading the selection was made at.
	ServerTime time.Time `json:"server_time"`
}

// ReviewResult is the outcome of recording one grading.
type ReviewResult struct {
	// Concept is the concept after its state transition.
	Concept *Concept `json:"concept"`

	// Interaction is the immutable record written for this grading.
	Interaction *Interaction `json:"interaction"`

	// ServerTime is the engine timestamp the grading was recorded at.
	ServerTime time.Time `json:"server_time"`
}
