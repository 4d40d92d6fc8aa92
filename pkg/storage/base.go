// Package storage provides interfaces and types for concept storage backends.
//
// It defines the ConceptStore interface that all storage implementations must
// satisfy, along with the storage-level concept and interaction types and
// per-operation option structs.
package storage

import (
	"context"
	"time"

	"github.com/studyloop/recall-go/pkg/srs"
)

// Concept represents a schedulable concept stored in a backend.
//
// This type is defined in the storage package to avoid circular dependencies
// with the core package. It mirrors the core.Concept structure.
type Concept struct {
	// ID is the unique identifier of the concept.
	ID int64

	// UserID identifies the user who owns this concept.
	UserID string

	// Content is the display content of the concept (the question text or a
	// reference to it).
	Content string

	// State is the spaced-repetition memory state of the concept.
	State srs.MemoryState

	// Attempts counts how often the concept has been answered. Advisory
	// only; selection ordering never consults it.
	Attempts int

	// Correct counts how often the concept has been answered correctly.
	// Advisory only.
	Correct int

	// Archived excludes the concept from due-queue candidacy when set.
	Archived bool

	// Deleted soft-deletes the concept. Interaction history is retained.
	Deleted bool

	// CreatedAt is when the concept was created.
	CreatedAt time.Time

	// UpdatedAt is when the concept was last updated.
	UpdatedAt time.Time
}

// Visible reports whether the concept is a due-queue candidate.
func (c *Concept) Visible() bool {
	return !c.Archived && !c.Deleted
}

// Interaction is one immutable record in the append-only review audit log.
// Interactions are never updated or deleted; corrections happen only by
// writing new records.
type Interaction struct {
	// ID is the unique identifier of the interaction.
	ID int64

	// UserID identifies the user who submitted the review.
	UserID string

	// ConceptID identifies the reviewed concept.
	ConceptID int64

	// Answer is the submitted answer.
	Answer string

	// Correct records whether the answer was graded as correct.
	Correct bool

	// Grade is the submitted review grade.
	Grade srs.Grade

	// AttemptedAt is the server-side timestamp of the review.
	AttemptedAt time.Time

	// TimeSpentMs is how long the learner spent, in milliseconds (nil if
	// not reported).
	TimeSpentMs *int

	// SessionTag is an optional caller-supplied session or context tag.
	SessionTag string
}

// DueCounts aggregates the due-queue counters for one user.
type DueCounts struct {
	// DueNow is the number of visible concepts with NextReviewAt at or
	// before the reference time.
	DueNow int

	// TotalReviewable is the number of visible concepts regardless of
	// due-ness.
	TotalReviewable int
}

// ReviewFunc computes the outcome of one review inside a storage
// transaction. It receives the concept as read within that transaction and
// returns the interaction to append; the concept's State and counters must
// be updated in place. Returning an error aborts the transaction with no
// partial effect.
type ReviewFunc func(c *Concept) (*Interaction, error)

// ConceptStore defines the interface for concept storage backends.
//
// All backends (SQLite, PostgreSQL, MySQL) must implement this interface.
// Every query method is index-bounded: its cost never scales with the full
// size of a user's collection beyond the due/undue partition, because the
// due-count and next-item queries are polled continuously by UI layers.
type ConceptStore interface {
	// InsertConcept inserts a concept.
	InsertConcept(ctx context.Context, concept *Concept) error

	// GetConcept retrieves a concept by ID.
	//
	// If opts.UserID is specified, the concept is only returned when it
	// belongs to that user; a concept owned by someone else surfaces
	// ErrPermissionDenied, a missing one ErrConceptNotFound.
	GetConcept(ctx context.Context, id int64, opts *GetOptions) (*Concept, error)

	// CountDue computes the due-queue counters for a user at the reference
	// time using an indexed aggregate. It never loads candidate rows.
	CountDue(ctx context.Context, userID string, now time.Time) (*DueCounts, error)

	// NextDue returns the single best due concept for the user: the most
	// overdue first, ties broken by lowest stability. Returns (nil, nil)
	// when nothing is due.
	NextDue(ctx context.Context, userID string, now time.Time) (*Concept, error)

	// NextUnreviewed returns the never-reviewed concept with the highest
	// freshness, i.e. the most recently created one; exact creation-time
	// ties fall back to insertion order. Returns (nil, nil) when the user
	// has no unreviewed concepts.
	NextUnreviewed(ctx context.Context, userID string) (*Concept, error)

	// ApplyReview runs one review as a single atomic transaction: the
	// concept is read inside the transaction, apply computes the new state
	// and the interaction, and the concept update, interaction append and
	// counter bumps commit together or not at all.
	//
	// Returns ErrConceptNotFound for missing, archived or deleted concepts
	// and ErrPermissionDenied for concepts owned by another user.
	ApplyReview(ctx context.Context, userID string, conceptID int64, apply ReviewFunc) (*Concept, error)

	// SetArchived flips the archive visibility flag. Interaction history is
	// untouched.
	SetArchived(ctx context.Context, userID string, conceptID int64, archived bool) error

	// SetDeleted flips the soft-delete flag. Interaction history is
	// untouched.
	SetDeleted(ctx context.Context, userID string, conceptID int64, deleted bool) error

	// ListConcepts retrieves concepts with optional filtering and
	// pagination, newest first.
	ListConcepts(ctx context.Context, opts *ListOptions) ([]*Concept, error)

	// ListInteractions retrieves interaction records, most recent first.
	ListInteractions(ctx context.Context, opts *ListInteractionsOptions) ([]*Interaction, error)

	// Close closes the store and releases resources.
	Close() error
}

// GetOptions contains options for GetConcept with access control.
type GetOptions struct {
	// UserID restricts access to concepts belonging to this user.
	UserID string
}

// ListOptions contains options for ListConcepts.
type ListOptions struct {
	// UserID filters results to a specific user.
	UserID string

	// Lifecycle filters results to a scheduling stage (zero means all).
	Lifecycle srs.Lifecycle

	// IncludeArchived includes archived concepts in the results.
	IncludeArchived bool

	// Limit sets the maximum number of results to return.
	Limit int

	// Offset sets the number of results to skip (for pagination).
	Offset int
}

// ListInteractionsOptions contains options for ListInteractions.
type ListInteractionsOptions struct {
	// UserID filters records to a specific user.
	UserID string

	// ConceptID filters records to a specific concept (zero means all).
	ConceptID int64

	// Limit sets the maximum number of records to return.
	Limit int

	// Offset sets the number of records to skip (for pagination).
	Offset int
}
