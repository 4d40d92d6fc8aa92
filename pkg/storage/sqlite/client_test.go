package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyloop/recall-go/pkg/srs"
	"github.com/studyloop/recall-go/pkg/storage"
	"github.com/studyloop/recall-go/pkg/storage/sqlite"
)

func newTestClient(t *testing.T) *sqlite.Client {
	t.Helper()

	client, err := sqlite.NewClient(&sqlite.Config{
		DBPath: filepath.Join(t.TempDir(), "recall_test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

// newConcept builds a visible concept owned by userID whose next review is
// at the given time.
func newConcept(id int64, userID string, createdAt, nextReviewAt time.Time) *storage.Concept {
	state := srs.NewState(createdAt)
	state.NextReviewAt = nextReviewAt
	return &storage.Concept{
		ID:        id,
		UserID:    userID,
		Content:   "what is a bloom filter?",
		State:     state,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestInsertAndGetConcept(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	concept := newConcept(1, "user_001", now, now)
	require.NoError(t, client.InsertConcept(ctx, concept))

	got, err := client.GetConcept(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "user_001", got.UserID)
	assert.Equal(t, "what is a bloom filter?", got.Content)
	assert.Equal(t, srs.New, got.State.Lifecycle)
	assert.Nil(t, got.State.LastReviewedAt)
	assert.True(t, got.State.NextReviewAt.Equal(now))
}

func TestGetConceptTypedErrors(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, client.InsertConcept(ctx, newConcept(1, "user_001", now, now)))

	_, err := client.GetConcept(ctx, 999, nil)
	assert.ErrorIs(t, err, storage.ErrConceptNotFound)

	_, err = client.GetConcept(ctx, 1, &storage.GetOptions{UserID: "user_002"})
	assert.ErrorIs(t, err, storage.ErrPermissionDenied)

	got, err := client.GetConcept(ctx, 1, &storage.GetOptions{UserID: "user_001"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
}

func TestCountDue(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// One due, one not due, one archived but due, one belonging to another user.
	require.NoError(t, client.InsertConcept(ctx, newConcept(1, "user_001", now.Add(-48*time.Hour), now.Add(-time.Hour))))
	require.NoError(t, client.InsertConcept(ctx, newConcept(2, "user_001", now.Add(-48*time.Hour), now.Add(72*time.Hour))))
	archived := newConcept(3, "user_001", now.Add(-48*time.Hour), now.Add(-time.Hour))
	archived.Archived = true
	require.NoError(t, client.InsertConcept(ctx, archived))
	require.NoError(t, client.InsertConcept(ctx, newConcept(4, "user_002", now.Add(-48*time.Hour), now.Add(-time.Hour))))

	counts, err := client.CountDue(ctx, "user_001", now)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.DueNow)
	assert.Equal(t, 2, counts.TotalReviewable)
}

func TestCountDueEmptyUser(t *testing.T) {
	client := newTestClient(t)

	counts, err := client.CountDue(context.Background(), "nobody", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, counts.DueNow)
	assert.Equal(t, 0, counts.TotalReviewable)
}

func TestCountDueBoundaryIsInclusive(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// A concept whose next review time equals the reference time is due.
	require.NoError(t, client.InsertConcept(ctx, newConcept(1, "user_001", now.Add(-time.Hour), now)))

	counts, err := client.CountDue(ctx, "user_001", now)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.DueNow)
}

func TestNextDueOrdering(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, client.InsertConcept(ctx, newConcept(1, "user_001", now.Add(-72*time.Hour), now.Add(-time.Hour))))
	require.NoError(t, client.InsertConcept(ctx, newConcept(2, "user_001", now.Add(-72*time.Hour), now.Add(-5*time.Hour))))

	got, err := client.NextDue(ctx, "user_001", now)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID, "most overdue concept wins")
}

func TestNextDueTieBreaksOnStability(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	dueAt := now.Add(-time.Hour)

	strong := newConcept(1, "user_001", now.Add(-72*time.Hour), dueAt)
	strong.State.Stability = 8.0
	weak := newConcept(2, "user_001", now.Add(-72*time.Hour), dueAt)
	weak.State.Stability = 1.5
	require.NoError(t, client.InsertConcept(ctx, strong))
	require.NoError(t, client.InsertConcept(ctx, weak))

	got, err := client.NextDue(ctx, "user_001", now)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID, "weakest memory wins the tie")
}

func TestNextDueNothingDue(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, client.InsertConcept(ctx, newConcept(1, "user_001", now, now.Add(48*time.Hour))))

	got, err := client.NextDue(ctx, "user_001", now)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNextUnreviewedPicksNewest(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, client.InsertConcept(ctx, newConcept(1, "user_001", now.Add(-30*time.Hour), now.Add(-30*time.Hour))))
	require.NoError(t, client.InsertConcept(ctx, newConcept(2, "user_001", now.Add(-2*time.Hour), now.Add(-2*time.Hour))))

	// A reviewed concept is not part of the unreviewed pool even if newer.
	reviewed := newConcept(3, "user_001", now.Add(-time.Hour), now.Add(48*time.Hour))
	reviewed.State.Reps = 1
	reviewed.State.Lifecycle = srs.Learning
	require.NoError(t, client.InsertConcept(ctx, reviewed))

	got, err := client.NextUnreviewed(ctx, "user_001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID)
}

func TestNextUnreviewedEmptyPool(t *testing.T) {
	client := newTestClient(t)

	got, err := client.NextUnreviewed(context.Background(), "user_001")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestApplyReviewCommitsStateAndInteraction(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, client.InsertConcept(ctx, newConcept(1, "user_001", now.Add(-time.Hour), now.Add(-time.Hour))))

	updated, err := client.ApplyReview(ctx, "user_001", 1, func(c *storage.Concept) (*storage.Interaction, error) {
		c.State.Stability = 2.5
		c.State.Difficulty = 5.0
		c.State.Reps = 1
		c.State.Streak = 1
		c.State.Lifecycle = srs.Learning
		c.State.NextReviewAt = now.Add(48 * time.Hour)
		reviewedAt := now
		c.State.LastReviewedAt = &reviewedAt
		c.Attempts = 1
		c.Correct = 1

		return &storage.Interaction{
			ID:          100,
			UserID:      "user_001",
			ConceptID:   1,
			Answer:      "a probabilistic set",
			Correct:     true,
			Grade:       srs.Good,
			AttemptedAt: now,
		}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2.5, updated.State.Stability)
	assert.Equal(t, 1, updated.Attempts)

	got, err := client.GetConcept(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 2.5, got.State.Stability)
	assert.Equal(t, srs.Learning, got.State.Lifecycle)
	assert.Equal(t, 1, got.Correct)
	require.NotNil(t, got.State.LastReviewedAt)
	assert.True(t, got.State.LastReviewedAt.Equal(now))
	assert.True(t, got.UpdatedAt.Equal(now))

	interactions, err := client.ListInteractions(ctx, &storage.ListInteractionsOptions{UserID: "user_001", ConceptID: 1})
	require.NoError(t, err)
	require.Len(t, interactions, 1)
	assert.Equal(t, srs.Good, interactions[0].Grade)
	assert.Equal(t, "a probabilistic set", interactions[0].Answer)
}

func TestApplyReviewAbortsOnCallbackError(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, client.InsertConcept(ctx, newConcept(1, "user_001", now, now)))

	boom := errors.New("boom")
	_, err := client.ApplyReview(ctx, "user_001", 1, func(c *storage.Concept) (*storage.Interaction, error) {
		c.State.Stability = 99
		c.Attempts = 42
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	// Nothing committed.
	got, err := client.GetConcept(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.State.Stability)
	assert.Equal(t, 0, got.Attempts)

	interactions, err := client.ListInteractions(ctx, &storage.ListInteractionsOptions{UserID: "user_001"})
	require.NoError(t, err)
	assert.Empty(t, interactions)
}

func TestApplyReviewVisibilityAndOwnership(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, client.InsertConcept(ctx, newConcept(1, "user_001", now, now)))
	archived := newConcept(2, "user_001", now, now)
	archived.Archived = true
	require.NoError(t, client.InsertConcept(ctx, archived))

	noop := func(c *storage.Concept) (*storage.Interaction, error) {
		return &storage.Interaction{ID: 1, UserID: c.UserID, ConceptID: c.ID, Grade: srs.Good, AttemptedAt: now}, nil
	}

	_, err := client.ApplyReview(ctx, "user_001", 999, noop)
	assert.ErrorIs(t, err, storage.ErrConceptNotFound)

	_, err = client.ApplyReview(ctx, "user_002", 1, noop)
	assert.ErrorIs(t, err, storage.ErrPermissionDenied)

	_, err = client.ApplyReview(ctx, "user_001", 2, noop)
	assert.ErrorIs(t, err, storage.ErrConceptNotFound, "archived concepts are not reviewable")
}

func TestSetArchivedRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, client.InsertConcept(ctx, newConcept(1, "user_001", now, now.Add(-time.Hour))))

	require.NoError(t, client.SetArchived(ctx, "user_001", 1, true))
	counts, err := client.CountDue(ctx, "user_001", now)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.TotalReviewable)

	// State survives archiving: restoring brings the concept back just as due.
	require.NoError(t, client.SetArchived(ctx, "user_001", 1, false))
	counts, err = client.CountDue(ctx, "user_001", now)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.DueNow)

	err = client.SetArchived(ctx, "user_002", 1, true)
	assert.ErrorIs(t, err, storage.ErrPermissionDenied)
}

func TestSetDeletedHidesConceptKeepsHistory(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, client.InsertConcept(ctx, newConcept(1, "user_001", now, now)))
	_, err := client.ApplyReview(ctx, "user_001", 1, func(c *storage.Concept) (*storage.Interaction, error) {
		c.State.Reps = 1
		c.State.Lifecycle = srs.Learning
		return &storage.Interaction{ID: 10, UserID: "user_001", ConceptID: 1, Grade: srs.Good, AttemptedAt: now}, nil
	})
	require.NoError(t, err)

	require.NoError(t, client.SetDeleted(ctx, "user_001", 1, true))

	counts, err := client.CountDue(ctx, "user_001", now)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.TotalReviewable)

	concepts, err := client.ListConcepts(ctx, &storage.ListOptions{UserID: "user_001", IncludeArchived: true})
	require.NoError(t, err)
	assert.Empty(t, concepts)

	// The audit log outlives the concept's visibility.
	interactions, err := client.ListInteractions(ctx, &storage.ListInteractionsOptions{UserID: "user_001", ConceptID: 1})
	require.NoError(t, err)
	assert.Len(t, interactions, 1)
}

func TestListConceptsFilters(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	learning := newConcept(1, "user_001", now.Add(-3*time.Hour), now)
	learning.State.Lifecycle = srs.Learning
	require.NoError(t, client.InsertConcept(ctx, learning))

	require.NoError(t, client.InsertConcept(ctx, newConcept(2, "user_001", now.Add(-2*time.Hour), now)))

	archived := newConcept(3, "user_001", now.Add(-time.Hour), now)
	archived.Archived = true
	require.NoError(t, client.InsertConcept(ctx, archived))

	concepts, err := client.ListConcepts(ctx, &storage.ListOptions{UserID: "user_001"})
	require.NoError(t, err)
	require.Len(t, concepts, 2)
	assert.Equal(t, int64(2), concepts[0].ID, "newest first")

	concepts, err = client.ListConcepts(ctx, &storage.ListOptions{UserID: "user_001", IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, concepts, 3)

	concepts, err = client.ListConcepts(ctx, &storage.ListOptions{UserID: "user_001", Lifecycle: srs.Learning})
	require.NoError(t, err)
	require.Len(t, concepts, 1)
	assert.Equal(t, int64(1), concepts[0].ID)
}

func TestListInteractionsPagination(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, client.InsertConcept(ctx, newConcept(1, "user_001", now, now)))
	for i := 0; i < 3; i++ {
		attemptedAt := now.Add(time.Duration(i) * time.Hour)
		_, err := client.ApplyReview(ctx, "user_001", 1, func(c *storage.Concept) (*storage.Interaction, error) {
			c.State.Reps++
			c.State.Lifecycle = srs.Learning
			return &storage.Interaction{
				ID:          int64(100 + i),
				UserID:      "user_001",
				ConceptID:   1,
				Grade:       srs.Good,
				AttemptedAt: attemptedAt,
			}, nil
		})
		require.NoError(t, err)
	}

	interactions, err := client.ListInteractions(ctx, &storage.ListInteractionsOptions{UserID: "user_001", Limit: 2})
	require.NoError(t, err)
	require.Len(t, interactions, 2)
	assert.Equal(t, int64(102), interactions[0].ID, "most recent first")

	interactions, err = client.ListInteractions(ctx, &storage.ListInteractionsOptions{UserID: "user_001", Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, interactions, 1)
	assert.Equal(t, int64(100), interactions[0].ID)
}
