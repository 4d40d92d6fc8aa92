package mysql

import (
	"database/sql"

	"github.com/studyloop/recall-go/pkg/storage"
)

// defaultListLimit caps unbounded list queries.
const defaultListLimit = 100

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanConcept scans a concept from a database row or rows.
func scanConcept(s scanner) (*storage.Concept, error) {
	var concept storage.Concept
	var lastReviewedAt sql.NullTime
	var lifecycle string

	err := s.Scan(
		&concept.ID,
		&concept.UserID,
		&concept.Content,
		&concept.State.Stability,
		&concept.State.Difficulty,
		&lastReviewedAt,
		&concept.State.NextReviewAt,
		&concept.State.ElapsedDays,
		&concept.State.Retrievability,
		&concept.State.Reps,
		&concept.State.Lapses,
		&concept.State.Streak,
		&lifecycle,
		&concept.Attempts,
		&concept.Correct,
		&concept.Archived,
		&concept.Deleted,
		&concept.CreatedAt,
		&concept.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastReviewedAt.Valid {
		t := lastReviewedAt.Time
		concept.State.LastReviewedAt = &t
	}
	if err := concept.State.Lifecycle.UnmarshalText([]byte(lifecycle)); err != nil {
		return nil, err
	}

	return &concept, nil
}

// scanInteraction scans an interaction from a database row or rows.
func scanInteraction(s scanner) (*storage.Interaction, error) {
	var interaction storage.Interaction
	var grade string
	var timeSpentMs sql.NullInt64
	var sessionTag sql.NullString

	err := s.Scan(
		&interaction.ID,
		&interaction.UserID,
		&interaction.ConceptID,
		&interaction.Answer,
		&interaction.Correct,
		&grade,
		&interaction.AttemptedAt,
		&timeSpentMs,
		&sessionTag,
	)
	if err != nil {
		return nil, err
	}

	if err := interaction.Grade.UnmarshalText([]byte(grade)); err != nil {
		return nil, err
	}
	if timeSpentMs.Valid {
		ms := int(timeSpentMs.Int64)
		interaction.TimeSpentMs = &ms
	}
	interaction.SessionTag = sessionTag.String

	return &interaction, nil
}

// buildConceptFilter builds the WHERE clause for ListConcepts.
func buildConceptFilter(opts *storage.ListOptions) (string, []interface{}) {
	whereClause := "WHERE user_id = ? AND deleted = 0"
	args := []interface{}{opts.UserID}

	if !opts.IncludeArchived {
		whereClause += " AND archived = 0"
	}
	if opts.Lifecycle != 0 {
		whereClause += " AND lifecycle = ?"
		args = append(args, opts.Lifecycle.String())
	}

	return whereClause, args
}

// normalizeLimit applies the default limit to unbounded queries.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
