package core_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyloop/recall-go/pkg/core"
	"github.com/studyloop/recall-go/pkg/srs"
	"github.com/studyloop/recall-go/pkg/storage/sqlite"
)

// testClock is a settable time source for deterministic schedules.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestEngine(t *testing.T, clock *testClock) *core.Engine {
	t.Helper()

	store, err := sqlite.NewClient(&sqlite.Config{
		DBPath: filepath.Join(t.TempDir(), "engine_test.db"),
	})
	require.NoError(t, err)

	engine, err := core.NewEngine(&core.Config{},
		core.WithStore(store),
		core.WithClock(clock.Now),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })

	return engine
}

var t0 = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func TestCreateConceptImmediatelyEligible(t *testing.T) {
	clock := &testClock{now: t0}
	engine := newTestEngine(t, clock)
	ctx := context.Background()

	concept, err := engine.CreateConcept(ctx, "user_001", "What is write amplification?")
	require.NoError(t, err)
	assert.Equal(t, srs.New, concept.State.Lifecycle)
	assert.True(t, concept.State.NextReviewAt.Equal(t0))

	counts, err := engine.DueCount(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, 1, counts.DueNow)
	assert.Equal(t, 1, counts.TotalReviewable)
	assert.True(t, counts.ServerTime.Equal(t0))
}

func TestCreateConceptRejectsEmptyInput(t *testing.T) {
	clock := &testClock{now: t0}
	engine := newTestEngine(t, clock)
	ctx := context.Background()

	_, err := engine.CreateConcept(ctx, "", "content")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = engine.CreateConcept(ctx, "user_001", "")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestNextConceptNewItemCarriesFreshness(t *testing.T) {
	clock := &testClock{now: t0}
	engine := newTestEngine(t, clock)
	ctx := context.Background()

	concept, err := engine.CreateConcept(ctx, "user_001", "What is a vector clock?")
	require.NoError(t, err)

	// At creation the item is returned with maximum freshness.
	next, err := engine.NextConcept(ctx, "user_001")
	require.NoError(t, err)
	require.NotNil(t, next.Concept)
	assert.Equal(t, concept.ID, next.Concept.ID)
	assert.InDelta(t, 1.0, next.Freshness, 1e-9)
	assert.InDelta(t, 1.0, next.Retrievability, 1e-9)

	// One hour later it is still returned, slightly less fresh.
	clock.Advance(time.Hour)
	atOneHour, err := engine.NextConcept(ctx, "user_001")
	require.NoError(t, err)
	require.NotNil(t, atOneHour.Concept)

	// Thirty hours in, still returned without error, fresher score decayed further.
	clock.Advance(29 * time.Hour)
	atThirtyHours, err := engine.NextConcept(ctx, "user_001")
	require.NoError(t, err)
	require.NotNil(t, atThirtyHours.Concept)
	assert.Equal(t, concept.ID, atThirtyHours.Concept.ID)
	assert.Less(t, atThirtyHours.Freshness, atOneHour.Freshness)
	assert.Greater(t, atThirtyHours.Freshness, 0.0)
}

func TestNextConceptIdempotentAcrossPolls(t *testing.T) {
	clock := &testClock{now: t0}
	engine := newTestEngine(t, clock)
	ctx := context.Background()

	_, err := engine.CreateConcept(ctx, "user_001", "first")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = engine.CreateConcept(ctx, "user_001", "second")
	require.NoError(t, err)

	first, err := engine.NextConcept(ctx, "user_001")
	require.NoError(t, err)
	second, err := engine.NextConcept(ctx, "user_001")
	require.NoError(t, err)
	require.NotNil(t, first.Concept)
	require.NotNil(t, second.Concept)
	assert.Equal(t, first.Concept.ID, second.Concept.ID, "polling without grading must not change the pick")
}

func TestNextConceptEmptyQueue(t *testing.T) {
	clock := &testClock{now: t0}
	engine := newTestEngine(t, clock)

	next, err := engine.NextConcept(context.Background(), "user_001")
	require.NoError(t, err)
	assert.Nil(t, next.Concept)
	assert.True(t, next.ServerTime.Equal(t0))

	counts, err := engine.DueCount(context.Background(), "user_001")
	require.NoError(t, err)
	assert.Equal(t, 0, counts.DueNow)
	assert.Equal(t, 0, counts.TotalReviewable)
}

func TestRecordReviewGoodScheduledOut(t *testing.T) {
	clock := &testClock{now: t0}
	engine := newTestEngine(t, clock)
	ctx := context.Background()

	concept, err := engine.CreateConcept(ctx, "user_001", "Define quorum reads.")
	require.NoError(t, err)

	result, err := engine.RecordReview(ctx, "user_001", concept.ID, srs.Good, "majority of replicas",
		core.WithTimeSpent(4200),
		core.WithSessionTag("morning"),
	)
	require.NoError(t, err)

	state := result.Concept.State
	assert.Equal(t, 1, state.Reps)
	assert.Equal(t, 0, state.Lapses)
	assert.Equal(t, srs.Learning, state.Lifecycle)
	assert.Greater(t, state.Stability, 0.0)
	assert.True(t, state.NextReviewAt.After(t0), "graded concept is scheduled into the future")

	assert.Equal(t, srs.Good, result.Interaction.Grade)
	assert.True(t, result.Interaction.Correct)
	require.NotNil(t, result.Interaction.TimeSpentMs)
	assert.Equal(t, 4200, *result.Interaction.TimeSpentMs)
	assert.Equal(t, "morning", result.Interaction.SessionTag)

	// Not due anymore.
	counts, err := engine.DueCount(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, 0, counts.DueNow)
	assert.Equal(t, 1, counts.TotalReviewable)
}

func TestRecordReviewAgainIsALapse(t *testing.T) {
	clock := &testClock{now: t0}
	engine := newTestEngine(t, clock)
	ctx := context.Background()

	concept, err := engine.CreateConcept(ctx, "user_001", "Name the TCP states.")
	require.NoError(t, err)

	result, err := engine.RecordReview(ctx, "user_001", concept.ID, srs.Again, "")
	require.NoError(t, err)

	state := result.Concept.State
	assert.Equal(t, 1, state.Lapses)
	assert.Equal(t, srs.Relearning, state.Lifecycle)
	assert.False(t, result.Interaction.Correct)

	// Re-presented shortly, not days out.
	assert.True(t, state.NextReviewAt.After(t0))
	assert.True(t, state.NextReviewAt.Before(t0.Add(time.Hour)))
}

func TestRecordReviewCountersAdvisory(t *testing.T) {
	clock := &testClock{now: t0}
	engine := newTestEngine(t, clock)
	ctx := context.Background()

	concept, err := engine.CreateConcept(ctx, "user_001", "What is a CRDT?")
	require.NoError(t, err)

	_, err = engine.RecordReview(ctx, "user_001", concept.ID, srs.Good, "conflict-free type")
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)
	result, err := engine.RecordReview(ctx, "user_001", concept.ID, srs.Again, "blank")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Concept.Attempts)
	assert.Equal(t, 1, result.Concept.Correct)
}

func TestRecordReviewValidation(t *testing.T) {
	clock := &testClock{now: t0}
	engine := newTestEngine(t, clock)
	ctx := context.Background()

	concept, err := engine.CreateConcept(ctx, "user_001", "content")
	require.NoError(t, err)

	_, err = engine.RecordReview(ctx, "user_001", concept.ID, srs.Grade(9), "")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = engine.RecordReview(ctx, "user_001", 424242, srs.Good, "")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = engine.RecordReview(ctx, "user_002", concept.ID, srs.Good, "")
	assert.ErrorIs(t, err, core.ErrPermissionDenied)
}

func TestRecordReviewHistoryAppendOnly(t *testing.T) {
	clock := &testClock{now: t0}
	engine := newTestEngine(t, clock)
	ctx := context.Background()

	concept, err := engine.CreateConcept(ctx, "user_001", "content")
	require.NoError(t, err)

	grades := []srs.Grade{srs.Good, srs.Again, srs.Hard}
	for _, g := range grades {
		_, err = engine.RecordReview(ctx, "user_001", concept.ID, g, "")
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	history, err := engine.History(ctx, "user_001", concept.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, srs.Hard, history[0].Grade, "most recent first")
	assert.Equal(t, srs.Good, history[2].Grade)
}

func TestArchiveExcludesAndRestorePreservesState(t *testing.T) {
	clock := &testClock{now: t0}
	engine := newTestEngine(t, clock)
	ctx := context.Background()

	concept, err := engine.CreateConcept(ctx, "user_001", "content")
	require.NoError(t, err)
	_, err = engine.RecordReview(ctx, "user_001", concept.ID, srs.Good, "")
	require.NoError(t, err)

	require.NoError(t, engine.ArchiveConcept(ctx, "user_001", concept.ID))

	counts, err := engine.DueCount(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, 0, counts.TotalReviewable)

	_, err = engine.RecordReview(ctx, "user_001", concept.ID, srs.Good, "")
	assert.ErrorIs(t, err, core.ErrNotFound, "archived concepts are not reviewable")

	// A month later the restored concept comes back overdue, state intact.
	clock.Advance(30 * 24 * time.Hour)
	require.NoError(t, engine.RestoreConcept(ctx, "user_001", concept.ID))

	restored, err := engine.GetConcept(ctx, "user_001", concept.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.State.Reps)

	counts, err = engine.DueCount(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, 1, counts.DueNow)
}

func TestDeleteConceptKeepsHistory(t *testing.T) {
	clock := &testClock{now: t0}
	engine := newTestEngine(t, clock)
	ctx := context.Background()

	concept, err := engine.CreateConcept(ctx, "user_001", "content")
	require.NoError(t, err)
	_, err = engine.RecordReview(ctx, "user_001", concept.ID, srs.Good, "")
	require.NoError(t, err)

	require.NoError(t, engine.DeleteConcept(ctx, "user_001", concept.ID))

	_, err = engine.GetConcept(ctx, "user_001", concept.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	history, err := engine.History(ctx, "user_001", concept.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1, "interaction log survives deletion")
}

func TestDueSelectionPrefersMostOverdueThenWeakest(t *testing.T) {
	clock := &testClock{now: t0}
	engine := newTestEngine(t, clock)
	ctx := context.Background()

	older, err := engine.CreateConcept(ctx, "user_001", "older")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	newer, err := engine.CreateConcept(ctx, "user_001", "newer")
	require.NoError(t, err)

	// Both graded Good at different times, so their next reviews differ.
	_, err = engine.RecordReview(ctx, "user_001", older.ID, srs.Good, "")
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = engine.RecordReview(ctx, "user_001", newer.ID, srs.Good, "")
	require.NoError(t, err)

	// Jump past both schedules: the one scheduled earlier is more overdue.
	clock.Advance(30 * 24 * time.Hour)
	next, err := engine.NextConcept(ctx, "user_001")
	require.NoError(t, err)
	require.NotNil(t, next.Concept)
	assert.Equal(t, older.ID, next.Concept.ID)
	assert.Greater(t, next.Retrievability, 0.0)
	assert.Less(t, next.Retrievability, 1.0)
}

func TestUsersAreIsolated(t *testing.T) {
	clock := &testClock{now: t0}
	engine := newTestEngine(t, clock)
	ctx := context.Background()

	_, err := engine.CreateConcept(ctx, "user_001", "mine")
	require.NoError(t, err)

	next, err := engine.NextConcept(ctx, "user_002")
	require.NoError(t, err)
	assert.Nil(t, next.Concept)

	counts, err := engine.DueCount(ctx, "user_002")
	require.NoError(t, err)
	assert.Equal(t, 0, counts.TotalReviewable)
}

func TestListConceptsLifecycleFilter(t *testing.T) {
	clock := &testClock{now: t0}
	engine := newTestEngine(t, clock)
	ctx := context.Background()

	a, err := engine.CreateConcept(ctx, "user_001", "a")
	require.NoError(t, err)
	_, err = engine.CreateConcept(ctx, "user_001", "b")
	require.NoError(t, err)
	_, err = engine.RecordReview(ctx, "user_001", a.ID, srs.Good, "")
	require.NoError(t, err)

	all, err := engine.ListConcepts(ctx, "user_001")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	learning, err := engine.ListConcepts(ctx, "user_001", core.WithLifecycle(srs.Learning))
	require.NoError(t, err)
	require.Len(t, learning, 1)
	assert.Equal(t, a.ID, learning[0].ID)
}

func TestGraduationAfterConsecutiveSuccesses(t *testing.T) {
	clock := &testClock{now: t0}
	engine := newTestEngine(t, clock)
	ctx := context.Background()

	concept, err := engine.CreateConcept(ctx, "user_001", "content")
	require.NoError(t, err)

	first, err := engine.RecordReview(ctx, "user_001", concept.ID, srs.Good, "")
	require.NoError(t, err)
	assert.Equal(t, srs.Learning, first.Concept.State.Lifecycle)

	clock.Advance(48 * time.Hour)
	second, err := engine.RecordReview(ctx, "user_001", concept.ID, srs.Good, "")
	require.NoError(t, err)
	assert.Equal(t, srs.Review, second.Concept.State.Lifecycle, "default graduation streak is two")
}
