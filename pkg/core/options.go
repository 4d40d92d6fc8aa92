// Package core provides the main Recall engine and review scheduling functionality.
package core

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/studyloop/recall-go/pkg/srs"
	"github.com/studyloop/recall-go/pkg/storage"
)

// EngineOption is a function type for configuring Engine construction.
//
// Options are applied using the functional options pattern, allowing
// flexible configuration without requiring all parameters.
type EngineOption func(*engineOptions)

// engineOptions collects construction-time injections.
type engineOptions struct {
	logger *log.Logger
	clock  func() time.Time
	store  storage.ConceptStore
}

// WithLogger injects a logger into the engine.
//
// Without this option the engine logs nothing.
//
// Example:
//
//	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "recall"})
//	engine, _ := core.NewEngine(config, core.WithLogger(logger))
func WithLogger(logger *log.Logger) EngineOption {
	return func(opts *engineOptions) {
		opts.logger = logger
	}
}

// WithClock injects the engine's time source.
//
// The engine is the sole authority on time: every read of "now" inside
// the engine goes through this function. Defaults to time.Now. Mainly
// useful for tests that need deterministic schedules.
//
// Example:
//
//	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
//	engine, _ := core.NewEngine(config, core.WithClock(func() time.Time { return fixed }))
func WithClock(clock func() time.Time) EngineOption {
	return func(opts *engineOptions) {
		opts.clock = clock
	}
}

// WithStore injects a pre-built concept store, bypassing the
// provider selection in the configuration.
//
// Example:
//
//	store, _ := sqlite.NewClient(&sqlite.Config{DBPath: path})
//	engine, _ := core.NewEngine(config, core.WithStore(store))
func WithStore(store storage.ConceptStore) EngineOption {
	return func(opts *engineOptions) {
		opts.store = store
	}
}

// applyEngineOptions applies Engine options to create engineOptions.
func applyEngineOptions(opts []EngineOption) *engineOptions {
	options := &engineOptions{
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// ReviewOption is a function type for configuring RecordReview operations.
type ReviewOption func(*ReviewOptions)

// ReviewOptions contains configuration options for RecordReview operations.
type ReviewOptions struct {
	// TimeSpentMs is how long the attempt took, in milliseconds (optional).
	TimeSpentMs *int

	// SessionTag groups interactions belonging to one study session (optional).
	SessionTag string
}

// WithTimeSpent records how long the attempt took.
//
// Example:
//
//	result, _ := engine.RecordReview(ctx, userID, conceptID, srs.Good, answer,
//	    core.WithTimeSpent(4200),
//	)
func WithTimeSpent(ms int) ReviewOption {
	return func(opts *ReviewOptions) {
		opts.TimeSpentMs = &ms
	}
}

// WithSessionTag tags the interaction with a study session identifier.
//
// Example:
//
//	result, _ := engine.RecordReview(ctx, userID, conceptID, srs.Good, answer,
//	    core.WithSessionTag("morning-drill"),
//	)
func WithSessionTag(tag string) ReviewOption {
	return func(opts *ReviewOptions) {
		opts.SessionTag = tag
	}
}

// applyReviewOptions applies Review options to create ReviewOptions.
func applyReviewOptions(opts []ReviewOption) *ReviewOptions {
	options := &ReviewOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// ListOption is a function type for configuring ListConcepts operations.
type ListOption func(*ListOptions)

// ListOptions contains configuration options for ListConcepts operations.
type ListOptions struct {
	// Lifecycle filters results to one lifecycle stage (zero means all).
	Lifecycle srs.Lifecycle

	// IncludeArchived indicates whether to include archived concepts.
	IncludeArchived bool

	// Limit sets the maximum number of results to return.
	// Default: 100
	Limit int

	// Offset sets the number of results to skip (for pagination).
	// Default: 0
	Offset int
}

// WithLifecycle filters listed concepts to one lifecycle stage.
//
// Example:
//
//	concepts, _ := engine.ListConcepts(ctx, userID, core.WithLifecycle(srs.Review))
func WithLifecycle(stage srs.Lifecycle) ListOption {
	return func(opts *ListOptions) {
		opts.Lifecycle = stage
	}
}

// WithIncludeArchived includes archived concepts in list results.
//
// Example:
//
//	concepts, _ := engine.ListConcepts(ctx, userID, core.WithIncludeArchived(true))
func WithIncludeArchived(include bool) ListOption {
	return func(opts *ListOptions) {
		opts.IncludeArchived = include
	}
}

// WithLimit sets the maximum number of results for list operations.
//
// Example:
//
//	concepts, _ := engine.ListConcepts(ctx, userID, core.WithLimit(20))
func WithLimit(limit int) ListOption {
	return func(opts *ListOptions) {
		opts.Limit = limit
	}
}

// WithOffset sets the offset for list operations (for pagination).
//
// Example:
//
//	// Get second page of results
//	concepts, _ := engine.ListConcepts(ctx, userID,
//	    core.WithLimit(50),
//	    core.WithOffset(50),
//	)
func WithOffset(offset int) ListOption {
	return func(opts *ListOptions) {
		opts.Offset = offset
	}
}

// applyListOptions applies List options to create ListOptions.
func applyListOptions(opts []ListOption) *ListOptions {
	options := &ListOptions{
		Limit:  100,
		Offset: 0,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// HistoryOption is a function type for configuring History operations.
type HistoryOption func(*HistoryOptions)

// HistoryOptions contains configuration options for History operations.
type HistoryOptions struct {
	// Limit sets the maximum number of interactions to return.
	// Default: 100
	Limit int

	// Offset sets the number of interactions to skip (for pagination).
	// Default: 0
	Offset int
}

// WithHistoryLimit sets the maximum number of interactions for History operations.
func WithHistoryLimit(limit int) HistoryOption {
	return func(opts *HistoryOptions) {
		opts.Limit = limit
	}
}

// WithHistoryOffset sets the offset for History operations (for pagination).
func WithHistoryOffset(offset int) HistoryOption {
	return func(opts *HistoryOptions) {
		opts.Offset = offset
	}
}

// applyHistoryOptions applies History options to create HistoryOptions.
func applyHistoryOptions(opts []HistoryOption) *HistoryOptions {
	options := &HistoryOptions{
		Limit:  100,
		Offset: 0,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
