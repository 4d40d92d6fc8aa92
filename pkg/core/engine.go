package core

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/charmbracelet/log"

	"github.com/studyloop/recall-go/pkg/srs"
	"github.com/studyloop/recall-go/pkg/storage"
	mysqlStore "github.com/studyloop/recall-go/pkg/storage/mysql"
	postgresStore "github.com/studyloop/recall-go/pkg/storage/postgres"
	sqliteStore "github.com/studyloop/recall-go/pkg/storage/sqlite"
)

// Engine is the main Recall engine for review scheduling.
//
// It provides a complete interface for creating, selecting, and grading
// reviewable concepts with support for:
//   - Per-call schedule recomputation (no background jobs)
//   - Index-bounded due-queue queries
//   - Atomic review transactions
//   - Multi-tenant ownership checks
//
// The engine holds no per-user state between calls and is safe for
// concurrent use; all coordination happens inside the store's transactions.
//
// Example usage:
//
//	config, _ := core.LoadConfigFromEnv()
//	engine, _ := core.NewEngine(config)
//	defer engine.Close()
//
//	concept, _ := engine.CreateConcept(ctx, "user_001", "What is a B-tree?")
//	next, _ := engine.NextConcept(ctx, "user_001")
type Engine struct {
	// config contains the engine configuration.
	config *Config

	// store is the concept store for persistence.
	store storage.ConceptStore

	// model computes memory state transitions.
	model *srs.Model

	// snowflakeNode generates unique IDs for concepts and interactions.
	snowflakeNode *snowflake.Node

	// logger receives selection and review log lines.
	logger *log.Logger

	// now is the engine's sole time source.
	now func() time.Time
}

// NewEngine creates a new Recall engine.
//
// The engine is initialized with:
//   - Concept store (SQLite, PostgreSQL, or MySQL)
//   - Memory model built from the scheduler parameters
//   - Snowflake ID generator
//
// Parameters:
//   - cfg: Configuration containing store and scheduler settings
//   - opts: Optional injections (WithLogger, WithClock, WithStore)
//
// Returns a new Engine instance, or an error if initialization fails.
//
// Example:
//
//	config := &core.Config{
//	    Store: core.StoreConfig{
//	        Provider: "sqlite",
//	        SQLite:   core.SQLiteConfig{Path: "./recall.db"},
//	    },
//	}
//	engine, err := core.NewEngine(config)
func NewEngine(cfg *Config, opts ...EngineOption) (*Engine, error) {
	options := applyEngineOptions(opts)

	// Initialize storage unless one was injected
	store := options.store
	if store == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		var err error
		store, err = initStorage(cfg.Store)
		if err != nil {
			return nil, err
		}
	}

	// Initialize the memory model
	model, err := srs.NewModel(cfg.Scheduler)
	if err != nil {
		return nil, NewEngineError("NewEngine", err)
	}

	// Initialize Snowflake ID generator
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewEngineError("NewEngine", err)
	}

	logger := options.logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Engine{
		config:        cfg,
		store:         store,
		model:         model,
		snowflakeNode: node,
		logger:        logger,
		now:           options.clock,
	}, nil
}

// initStorage creates a concept store from the configuration.
func initStorage(cfg StoreConfig) (storage.ConceptStore, error) {
	switch cfg.Provider {
	case "sqlite":
		store, err := sqliteStore.NewClient(&sqliteStore.Config{
			DBPath:      cfg.SQLite.Path,
			TablePrefix: cfg.TablePrefix,
		})
		if err != nil {
			return nil, NewEngineError("initStorage", fmt.Errorf("%w: %v", ErrConnectionFailed, err))
		}
		return store, nil
	case "postgres":
		store, err := postgresStore.NewClient(&postgresStore.Config{
			Host:        cfg.Postgres.Host,
			Port:        cfg.Postgres.Port,
			User:        cfg.Postgres.User,
			Password:    cfg.Postgres.Password,
			DBName:      cfg.Postgres.DBName,
			SSLMode:     cfg.Postgres.SSLMode,
			TablePrefix: cfg.TablePrefix,
		})
		if err != nil {
			return nil, NewEngineError("initStorage", fmt.Errorf("%w: %v", ErrConnectionFailed, err))
		}
		return store, nil
	case "mysql":
		store, err := mysqlStore.NewClient(&mysqlStore.Config{
			Host:        cfg.MySQL.Host,
			Port:        cfg.MySQL.Port,
			User:        cfg.MySQL.User,
			Password:    cfg.MySQL.Password,
			DBName:      cfg.MySQL.DBName,
			TablePrefix: cfg.TablePrefix,
		})
		if err != nil {
			return nil, NewEngineError("initStorage", fmt.Errorf("%w: %v", ErrConnectionFailed, err))
		}
		return store, nil
	default:
		return nil, NewEngineError("initStorage", ErrInvalidConfig)
	}
}

// storageErr normalizes store failures for the engine's error taxonomy.
//
// The typed sentinels pass through untouched so callers can match them
// with errors.Is; everything else is reported as a storage failure.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if err == storage.ErrConceptNotFound || err == storage.ErrPermissionDenied {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorageOperation, err)
}

// CreateConcept creates a new reviewable concept for a user.
//
// The concept starts in the New lifecycle stage with its next review time
// set to the creation instant, making it immediately eligible for
// selection. This is the intake point for content produced by an upstream
// generation pipeline.
//
// Parameters:
//   - ctx: Context for cancellation
//   - userID: Owner of the concept
//   - content: Reviewable material (question, fact, prompt)
//
// Returns the created Concept, or an error if the operation fails.
//
// Example:
//
//	concept, err := engine.CreateConcept(ctx, "user_001",
//	    "What invariant does a red-black tree maintain?")
func (e *Engine) CreateConcept(ctx context.Context, userID, content string) (*Concept, error) {
	if userID == "" || content == "" {
		return nil, NewEngineError("CreateConcept", ErrInvalidInput)
	}

	now := e.now().UTC()
	concept := &Concept{
		ID:        e.snowflakeNode.Generate().Int64(),
		UserID:    userID,
		Content:   content,
		State:     srs.NewState(now),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.store.InsertConcept(ctx, conceptToStorage(concept)); err != nil {
		return nil, NewEngineError("CreateConcept", storageErr(err))
	}

	e.logger.Debug("concept created", "user_id", userID, "concept_id", concept.ID)
	return concept, nil
}

// DueCount reports the size of a user's review queue.
//
// Both counters are recomputed from the clock reading at call time; a
// concept crossing its next review time is reflected on the next call
// without any background work. A user with no concepts gets zero counts,
// not an error.
//
// Parameters:
//   - ctx: Context for cancellation
//   - userID: User whose queue is counted
//
// Returns the due counts with the engine's server time.
func (e *Engine) DueCount(ctx context.Context, userID string) (*DueCount, error) {
	if userID == "" {
		return nil, NewEngineError("DueCount", ErrInvalidInput)
	}

	now := e.now().UTC()
	counts, err := e.store.CountDue(ctx, userID, now)
	if err != nil {
		return nil, NewEngineError("DueCount", storageErr(err))
	}

	return &DueCount{
		DueNow:          counts.DueNow,
		TotalReviewable: counts.TotalReviewable,
		ServerTime:      now,
	}, nil
}

// NextConcept selects the single best item for the user to study now.
//
// Selection policy:
//  1. If any concept is due, pick the most overdue one; ties go to the
//     weakest (lowest stability) memory.
//  2. Otherwise pick the freshest never-reviewed concept, if any.
//  3. Otherwise return a result with a nil Concept.
//
// The call is read-only and idempotent: asking repeatedly without grading
// returns the same item.
//
// Parameters:
//   - ctx: Context for cancellation
//   - userID: User to select for
//
// Returns the selection with diagnostics, or an error if a query fails.
func (e *Engine) NextConcept(ctx context.Context, userID string) (*NextResult, error) {
	if userID == "" {
		return nil, NewEngineError("NextConcept", ErrInvalidInput)
	}

	now := e.now().UTC()

	due, err := e.store.NextDue(ctx, userID, now)
	if err != nil {
		return nil, NewEngineError("NextConcept", storageErr(err))
	}
	if due != nil {
		result := &NextResult{
			Concept:        conceptFromStorage(due),
			Retrievability: e.model.Retrievability(due.State, now),
			ServerTime:     now,
		}
		// Never-reviewed concepts are due from the moment they are created;
		// their novelty score rides along for display.
		if due.State.Reps == 0 {
			result.Freshness = srs.Freshness(now.Sub(due.CreatedAt).Hours())
		}
		e.logger.Debug("next concept from due queue",
			"user_id", userID, "concept_id", due.ID,
			"retrievability", result.Retrievability, "freshness", result.Freshness)
		return result, nil
	}

	fresh, err := e.store.NextUnreviewed(ctx, userID)
	if err != nil {
		return nil, NewEngineError("NextConcept", storageErr(err))
	}
	if fresh != nil {
		freshness := srs.Freshness(now.Sub(fresh.CreatedAt).Hours())
		e.logger.Debug("next concept from unreviewed pool",
			"user_id", userID, "concept_id", fresh.ID, "freshness", freshness)
		return &NextResult{
			Concept:    conceptFromStorage(fresh),
			Freshness:  freshness,
			ServerTime: now,
		}, nil
	}

	e.logger.Debug("nothing to study", "user_id", userID)
	return &NextResult{ServerTime: now}, nil
}

// RecordReview records one grading of a concept and reschedules it.
//
// The method runs a single atomic transaction: the concept's memory state
// advances through the model, an immutable interaction is appended, and
// the advisory attempt/correct counters are bumped. Either all of it
// commits or none of it does. Again gradings count as incorrect; Hard,
// Good and Easy count as correct.
//
// The grading timestamp is the engine clock, never a caller-supplied
// time. Each accepted call is one genuine review; callers that need
// duplicate suppression must handle it themselves.
//
// Parameters:
//   - ctx: Context for cancellation
//   - userID: User who graded (must own the concept)
//   - conceptID: Concept that was graded
//   - grade: Recall grade (srs.Again, srs.Hard, srs.Good, srs.Easy)
//   - answer: The answer the user gave (may be empty)
//   - opts: Optional parameters (WithTimeSpent, WithSessionTag)
//
// Returns the updated concept and the recorded interaction, or an error.
//
// Example:
//
//	result, err := engine.RecordReview(ctx, "user_001", conceptID, srs.Good,
//	    "it stays balanced",
//	    core.WithTimeSpent(5300),
//	    core.WithSessionTag("evening"),
//	)
func (e *Engine) RecordReview(ctx context.Context, userID string, conceptID int64, grade srs.Grade, answer string, opts ...ReviewOption) (*ReviewResult, error) {
	if userID == "" || conceptID == 0 {
		return nil, NewEngineError("RecordReview", ErrInvalidInput)
	}
	if !grade.IsValid() {
		return nil, NewEngineError("RecordReview", ErrInvalidInput)
	}

	reviewOpts := applyReviewOptions(opts)
	now := e.now().UTC()

	var recorded *storage.Interaction
	updated, err := e.store.ApplyReview(ctx, userID, conceptID, func(c *storage.Concept) (*storage.Interaction, error) {
		c.State = e.model.Advance(c.State, grade, now)
		correct := grade != srs.Again
		c.Attempts++
		if correct {
			c.Correct++
		}

		recorded = &storage.Interaction{
			ID:          e.snowflakeNode.Generate().Int64(),
			UserID:      userID,
			ConceptID:   conceptID,
			Answer:      answer,
			Correct:     correct,
			Grade:       grade,
			AttemptedAt: now,
			TimeSpentMs: reviewOpts.TimeSpentMs,
			SessionTag:  reviewOpts.SessionTag,
		}
		return recorded, nil
	})
	if err != nil {
		return nil, NewEngineError("RecordReview", storageErr(err))
	}

	e.logger.Info("review recorded",
		"user_id", userID,
		"concept_id", conceptID,
		"grade", grade.String(),
		"stability", updated.State.Stability,
		"next_review_at", updated.State.NextReviewAt,
	)

	return &ReviewResult{
		Concept:     conceptFromStorage(updated),
		Interaction: interactionFromStorage(recorded),
		ServerTime:  now,
	}, nil
}

// GetConcept retrieves a concept by ID.
//
// Soft-deleted concepts surface ErrNotFound; archived concepts are
// returned (so they can be inspected and restored).
//
// Parameters:
//   - ctx: Context for cancellation
//   - userID: Requesting user (must own the concept)
//   - conceptID: Concept to retrieve
//
// Returns the concept, or an error if missing or owned by another user.
func (e *Engine) GetConcept(ctx context.Context, userID string, conceptID int64) (*Concept, error) {
	if userID == "" || conceptID == 0 {
		return nil, NewEngineError("GetConcept", ErrInvalidInput)
	}

	concept, err := e.store.GetConcept(ctx, conceptID, &storage.GetOptions{UserID: userID})
	if err != nil {
		return nil, NewEngineError("GetConcept", storageErr(err))
	}
	if concept.Deleted {
		return nil, NewEngineError("GetConcept", ErrNotFound)
	}

	return conceptFromStorage(concept), nil
}

// ArchiveConcept hides a concept from selection while preserving its
// memory state.
//
// Archived concepts are excluded from due counts and selection until
// restored; their state is untouched, so an overdue concept archived for
// a month comes back just as overdue.
func (e *Engine) ArchiveConcept(ctx context.Context, userID string, conceptID int64) error {
	if userID == "" || conceptID == 0 {
		return NewEngineError("ArchiveConcept", ErrInvalidInput)
	}
	if err := e.store.SetArchived(ctx, userID, conceptID, true); err != nil {
		return NewEngineError("ArchiveConcept", storageErr(err))
	}
	e.logger.Debug("concept archived", "user_id", userID, "concept_id", conceptID)
	return nil
}

// RestoreConcept returns an archived concept to selection candidacy.
func (e *Engine) RestoreConcept(ctx context.Context, userID string, conceptID int64) error {
	if userID == "" || conceptID == 0 {
		return NewEngineError("RestoreConcept", ErrInvalidInput)
	}
	if err := e.store.SetArchived(ctx, userID, conceptID, false); err != nil {
		return NewEngineError("RestoreConcept", storageErr(err))
	}
	e.logger.Debug("concept restored", "user_id", userID, "concept_id", conceptID)
	return nil
}

// DeleteConcept soft-deletes a concept.
//
// The concept disappears from every queue and read path, but its
// interaction history is retained for audit.
func (e *Engine) DeleteConcept(ctx context.Context, userID string, conceptID int64) error {
	if userID == "" || conceptID == 0 {
		return NewEngineError("DeleteConcept", ErrInvalidInput)
	}
	if err := e.store.SetDeleted(ctx, userID, conceptID, true); err != nil {
		return NewEngineError("DeleteConcept", storageErr(err))
	}
	e.logger.Info("concept deleted", "user_id", userID, "concept_id", conceptID)
	return nil
}

// ListConcepts retrieves a user's concepts, newest first.
//
// Parameters:
//   - ctx: Context for cancellation
//   - userID: User whose concepts are listed
//   - opts: Optional parameters (WithLifecycle, WithIncludeArchived,
//     WithLimit, WithOffset)
//
// Returns the matching concepts, or an error if the query fails.
func (e *Engine) ListConcepts(ctx context.Context, userID string, opts ...ListOption) ([]*Concept, error) {
	if userID == "" {
		return nil, NewEngineError("ListConcepts", ErrInvalidInput)
	}

	listOpts := applyListOptions(opts)
	stored, err := e.store.ListConcepts(ctx, &storage.ListOptions{
		UserID:          userID,
		Lifecycle:       listOpts.Lifecycle,
		IncludeArchived: listOpts.IncludeArchived,
		Limit:           listOpts.Limit,
		Offset:          listOpts.Offset,
	})
	if err != nil {
		return nil, NewEngineError("ListConcepts", storageErr(err))
	}

	concepts := make([]*Concept, 0, len(stored))
	for _, c := range stored {
		concepts = append(concepts, conceptFromStorage(c))
	}
	return concepts, nil
}

// History retrieves the interaction log for one concept, most recent
// first.
//
// The log is append-only: entries survive archiving and soft deletion of
// the concept.
//
// Parameters:
//   - ctx: Context for cancellation
//   - userID: User whose history is read
//   - conceptID: Concept whose gradings are listed (0 for all concepts)
//   - opts: Optional parameters (WithHistoryLimit, WithHistoryOffset)
func (e *Engine) History(ctx context.Context, userID string, conceptID int64, opts ...HistoryOption) ([]*Interaction, error) {
	if userID == "" {
		return nil, NewEngineError("History", ErrInvalidInput)
	}

	historyOpts := applyHistoryOptions(opts)
	stored, err := e.store.ListInteractions(ctx, &storage.ListInteractionsOptions{
		UserID:    userID,
		ConceptID: conceptID,
		Limit:     historyOpts.Limit,
		Offset:    historyOpts.Offset,
	})
	if err != nil {
		return nil, NewEngineError("History", storageErr(err))
	}

	interactions := make([]*Interaction, 0, len(stored))
	for _, i := range stored {
		interactions = append(interactions, interactionFromStorage(i))
	}
	return interactions, nil
}

// Close closes the engine and releases the underlying store.
func (e *Engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}
