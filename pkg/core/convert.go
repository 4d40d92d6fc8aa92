package core

import (
	"github.com/studyloop/recall-go/pkg/storage"
)

// conceptFromStorage converts a storage concept to the public type.
//
// Soft-deleted rows never cross this boundary; the storage layer filters
// them out, so the public type carries no deleted flag.
func conceptFromStorage(c *storage.Concept) *Concept {
	if c == nil {
		return nil
	}
	return &Concept{
		ID:        c.ID,
		UserID:    c.UserID,
		Content:   c.Content,
		State:     c.State,
		Attempts:  c.Attempts,
		Correct:   c.Correct,
		Archived:  c.Archived,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// conceptToStorage converts a public concept to its storage representation.
func conceptToStorage(c *Concept) *storage.Concept {
	return &storage.Concept{
		ID:        c.ID,
		UserID:    c.UserID,
		Content:   c.Content,
		State:     c.State,
		Attempts:  c.Attempts,
		Correct:   c.Correct,
		Archived:  c.Archived,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// interactionFromStorage converts a storage interaction to the public type.
func interactionFromStorage(i *storage.Interaction) *Interaction {
	if i == nil {
		return nil
	}
	return &Interaction{
		ID:          i.ID,
		UserID:      i.UserID,
		ConceptID:   i.ConceptID,
		Answer:      i.Answer,
		Correct:     i.Correct,
		Grade:       i.Grade,
		AttemptedAt: i.AttemptedAt,
		TimeSpentMs: i.TimeSpentMs,
		SessionTag:  i.SessionTag,
	}
}
