// Package sqlite provides the SQLite implementation of the concept store.
//
// SQLite is a lightweight, file-based database suitable for local development
// and small-scale deployments. Due-queue queries run against a composite
// index on (user_id, archived, deleted, next_review_at), so their cost stays
// bounded as a user's collection grows.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/studyloop/recall-go/pkg/storage"
)

// Client implements ConceptStore using SQLite as the backend.
type Client struct {
	// db is the SQLite database connection.
	db *sql.DB

	// conceptsTable and interactionsTable are the backing table names.
	conceptsTable     string
	interactionsTable string
}

// Config contains configuration for creating a SQLite ConceptStore.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// TablePrefix is prepended to the table names (optional).
	TablePrefix string
}

// NewClient creates a new SQLite ConceptStore client.
//
// Parameters:
//   - cfg: Configuration containing the database path and table prefix
//
// Returns:
//   - *Client: The SQLite client instance
//   - error: Error if database connection or table creation fails
func NewClient(cfg *Config) (*Client, error) {
	// Create parent directory if it doesn't exist
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	client := &Client{
		db:                db,
		conceptsTable:     cfg.TablePrefix + "concepts",
		interactionsTable: cfg.TablePrefix + "interactions",
	}

	// Initialize table structure
	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// initTables initializes the database table structure.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			stability REAL NOT NULL DEFAULT 0,
			difficulty REAL NOT NULL DEFAULT 0,
			last_reviewed_at DATETIME,
			next_review_at DATETIME NOT NULL,
			elapsed_days REAL NOT NULL DEFAULT 0,
			retrievability REAL NOT NULL DEFAULT 0,
			reps INTEGER NOT NULL DEFAULT 0,
			lapses INTEGER NOT NULL DEFAULT 0,
			streak INTEGER NOT NULL DEFAULT 0,
			lifecycle TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			correct INTEGER NOT NULL DEFAULT 0,
			archived INTEGER NOT NULL DEFAULT 0,
			deleted INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`, c.conceptsTable)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	// The due-queue index: every CountDue/NextDue query is a range scan on
	// this index restricted to one user.
	dueIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_due ON %s(user_id, archived, deleted, next_review_at)
	`, c.conceptsTable, c.conceptsTable)
	if _, err := c.db.ExecContext(ctx, dueIndex); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	// The freshness index serves the never-reviewed fallback.
	freshIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_fresh ON %s(user_id, archived, deleted, reps, created_at)
	`, c.conceptsTable, c.conceptsTable)
	if _, err := c.db.ExecContext(ctx, freshIndex); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	interactions := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			concept_id INTEGER NOT NULL,
			answer TEXT NOT NULL,
			correct INTEGER NOT NULL,
			grade TEXT NOT NULL,
			attempted_at DATETIME NOT NULL,
			time_spent_ms INTEGER,
			session_tag TEXT
		)
	`, c.interactionsTable)
	if _, err := c.db.ExecContext(ctx, interactions); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	historyIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_history ON %s(user_id, concept_id, attempted_at)
	`, c.interactionsTable, c.interactionsTable)
	if _, err := c.db.ExecContext(ctx, historyIndex); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// conceptColumns is the column list shared by every concept SELECT.
const conceptColumns = `id, user_id, content, stability, difficulty, last_reviewed_at,
	next_review_at, elapsed_days, retrievability, reps, lapses, streak, lifecycle,
	attempts, correct, archived, deleted, created_at, updated_at`

// InsertConcept inserts a concept.
func (c *Client) InsertConcept(ctx context.Context, concept *storage.Concept) error {
	query := fmt.Sprintf(`
		INSERT INTO %s
		(id, user_id, content, stability, difficulty, last_reviewed_at, next_review_at,
		 elapsed_days, retrievability, reps, lapses, streak, lifecycle,
		 attempts, correct, archived, deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.conceptsTable)

	lifecycle, err := concept.State.Lifecycle.MarshalText()
	if err != nil {
		return fmt.Errorf("InsertConcept: %w", err)
	}

	_, err = c.db.ExecContext(ctx, query,
		concept.ID,
		concept.UserID,
		concept.Content,
		concept.State.Stability,
		concept.State.Difficulty,
		concept.State.LastReviewedAt,
		concept.State.NextReviewAt,
		concept.State.ElapsedDays,
		concept.State.Retrievability,
		concept.State.Reps,
		concept.State.Lapses,
		concept.State.Streak,
		string(lifecycle),
		concept.Attempts,
		concept.Correct,
		concept.Archived,
		concept.Deleted,
		concept.CreatedAt,
		concept.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("InsertConcept: %w", err)
	}

	return nil
}

// GetConcept retrieves a concept by ID with optional access control.
func (c *Client) GetConcept(ctx context.Context, id int64, opts *storage.GetOptions) (*storage.Concept, error) {
	if opts == nil {
		opts = &storage.GetOptions{}
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", conceptColumns, c.conceptsTable)

	concept, err := scanConcept(c.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrConceptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetConcept: %w", err)
	}

	if opts.UserID != "" && concept.UserID != opts.UserID {
		return nil, storage.ErrPermissionDenied
	}

	return concept, nil
}

// CountDue computes the due-queue counters with one indexed aggregate.
//
// Both counters come from a single range scan on the due index; candidate
// rows are never loaded.
func (c *Client) CountDue(ctx context.Context, userID string, now time.Time) (*storage.DueCounts, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN next_review_at <= ? THEN 1 ELSE 0 END), 0)
		FROM %s
		WHERE user_id = ? AND archived = 0 AND deleted = 0
	`, c.conceptsTable)

	var counts storage.DueCounts
	err := c.db.QueryRowContext(ctx, query, now, userID).
		Scan(&counts.TotalReviewable, &counts.DueNow)
	if err != nil {
		return nil, fmt.Errorf("CountDue: %w", err)
	}

	return &counts, nil
}

// NextDue returns the most overdue visible concept, ties broken by lowest
// stability so the weakest memory surfaces first.
func (c *Client) NextDue(ctx context.Context, userID string, now time.Time) (*storage.Concept, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE user_id = ? AND archived = 0 AND deleted = 0 AND next_review_at <= ?
		ORDER BY next_review_at ASC, stability ASC
		LIMIT 1
	`, conceptColumns, c.conceptsTable)

	concept, err := scanConcept(c.db.QueryRowContext(ctx, query, userID, now))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("NextDue: %w", err)
	}

	return concept, nil
}

// NextUnreviewed returns the freshest never-reviewed visible concept: the
// most recently created one, exact ties falling back to insertion order.
func (c *Client) NextUnreviewed(ctx context.Context, userID string) (*storage.Concept, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE user_id = ? AND archived = 0 AND deleted = 0 AND reps = 0
		ORDER BY created_at DESC, id ASC
		LIMIT 1
	`, conceptColumns, c.conceptsTable)

	concept, err := scanConcept(c.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("NextUnreviewed: %w", err)
	}

	return concept, nil
}

// ApplyReview runs one review as a single atomic transaction.
//
// The concept is read inside the transaction, so the state advanced by apply
// is always computed from the current stored value, never from a value
// cached by an earlier request.
func (c *Client) ApplyReview(ctx context.Context, userID string, conceptID int64, apply storage.ReviewFunc) (*storage.Concept, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ApplyReview: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", conceptColumns, c.conceptsTable)
	concept, err := scanConcept(tx.QueryRowContext(ctx, query, conceptID))
	if err == sql.ErrNoRows {
		return nil, storage.ErrConceptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ApplyReview: %w", err)
	}

	if concept.UserID != userID {
		return nil, storage.ErrPermissionDenied
	}
	if !concept.Visible() {
		return nil, storage.ErrConceptNotFound
	}

	interaction, err := apply(concept)
	if err != nil {
		return nil, err
	}

	lifecycle, err := concept.State.Lifecycle.MarshalText()
	if err != nil {
		return nil, fmt.Errorf("ApplyReview: %w", err)
	}
	grade, err := interaction.Grade.MarshalText()
	if err != nil {
		return nil, fmt.Errorf("ApplyReview: %w", err)
	}

	concept.UpdatedAt = interaction.AttemptedAt

	update := fmt.Sprintf(`
		UPDATE %s
		SET stability = ?, difficulty = ?, last_reviewed_at = ?, next_review_at = ?,
		    elapsed_days = ?, retrievability = ?, reps = ?, lapses = ?, streak = ?,
		    lifecycle = ?, attempts = ?, correct = ?, updated_at = ?
		WHERE id = ?
	`, c.conceptsTable)

	_, err = tx.ExecContext(ctx, update,
		concept.State.Stability,
		concept.State.Difficulty,
		concept.State.LastReviewedAt,
		concept.State.NextReviewAt,
		concept.State.ElapsedDays,
		concept.State.Retrievability,
		concept.State.Reps,
		concept.State.Lapses,
		concept.State.Streak,
		string(lifecycle),
		concept.Attempts,
		concept.Correct,
		concept.UpdatedAt,
		concept.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("ApplyReview: %w", err)
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, concept_id, answer, correct, grade, attempted_at, time_spent_ms, session_tag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.interactionsTable)

	_, err = tx.ExecContext(ctx, insert,
		interaction.ID,
		interaction.UserID,
		interaction.ConceptID,
		interaction.Answer,
		interaction.Correct,
		string(grade),
		interaction.AttemptedAt,
		interaction.TimeSpentMs,
		interaction.SessionTag,
	)
	if err != nil {
		return nil, fmt.Errorf("ApplyReview: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ApplyReview: %w", err)
	}

	return concept, nil
}

// SetArchived flips the archive visibility flag.
func (c *Client) SetArchived(ctx context.Context, userID string, conceptID int64, archived bool) error {
	return c.setFlag(ctx, userID, conceptID, "archived", archived)
}

// SetDeleted flips the soft-delete flag.
func (c *Client) SetDeleted(ctx context.Context, userID string, conceptID int64, deleted bool) error {
	return c.setFlag(ctx, userID, conceptID, "deleted", deleted)
}

// setFlag updates one visibility column with ownership checks.
func (c *Client) setFlag(ctx context.Context, userID string, conceptID int64, column string, value bool) error {
	if _, err := c.GetConcept(ctx, conceptID, &storage.GetOptions{UserID: userID}); err != nil {
		return err
	}

	query := fmt.Sprintf("UPDATE %s SET %s = ?, updated_at = ? WHERE id = ?", c.conceptsTable, column)
	if _, err := c.db.ExecContext(ctx, query, value, time.Now().UTC(), conceptID); err != nil {
		return fmt.Errorf("SetFlag: %w", err)
	}

	return nil
}

// ListConcepts retrieves concepts with optional filtering and pagination.
func (c *Client) ListConcepts(ctx context.Context, opts *storage.ListOptions) ([]*storage.Concept, error) {
	if opts == nil {
		opts = &storage.ListOptions{}
	}

	whereClause, args := buildConceptFilter(opts)

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, conceptColumns, c.conceptsTable, whereClause)

	args = append(args, normalizeLimit(opts.Limit), opts.Offset)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListConcepts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var concepts []*storage.Concept
	for rows.Next() {
		concept, err := scanConcept(rows)
		if err != nil {
			return nil, fmt.Errorf("ListConcepts: %w", err)
		}
		concepts = append(concepts, concept)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListConcepts: %w", err)
	}

	return concepts, nil
}

// ListInteractions retrieves interaction records, most recent first.
func (c *Client) ListInteractions(ctx context.Context, opts *storage.ListInteractionsOptions) ([]*storage.Interaction, error) {
	if opts == nil {
		opts = &storage.ListInteractionsOptions{}
	}

	whereClause := "WHERE user_id = ?"
	args := []interface{}{opts.UserID}
	if opts.ConceptID != 0 {
		whereClause += " AND concept_id = ?"
		args = append(args, opts.ConceptID)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, concept_id, answer, correct, grade, attempted_at, time_spent_ms, session_tag
		FROM %s
		%s
		ORDER BY attempted_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, c.interactionsTable, whereClause)

	args = append(args, normalizeLimit(opts.Limit), opts.Offset)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListInteractions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var interactions []*storage.Interaction
	for rows.Next() {
		interaction, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("ListInteractions: %w", err)
		}
		interactions = append(interactions, interaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListInteractions: %w", err)
	}

	return interactions, nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
