// Package mysql provides the MySQL implementation of the concept store.
//
// The client uses SELECT ... FOR UPDATE inside the review transaction and
// keeps the due-queue queries on a composite index, matching the behavior of
// the SQLite and PostgreSQL backends.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/studyloop/recall-go/pkg/storage"
)

// Client implements ConceptStore using MySQL as the backend.
type Client struct {
	db                *sql.DB
	conceptsTable     string
	interactionsTable string
}

// Config contains MySQL configuration.
type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	TablePrefix string
}

// NewClient creates a new MySQL client.
func NewClient(cfg *Config) (*Client, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
	}

	client := &Client{
		db:                db,
		conceptsTable:     cfg.TablePrefix + "concepts",
		interactionsTable: cfg.TablePrefix + "interactions",
	}

	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// initTables initializes the database tables.
//
// MySQL lacks CREATE INDEX IF NOT EXISTS, so the indexes are declared inline
// with the table.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			content TEXT NOT NULL,
			stability DOUBLE NOT NULL DEFAULT 0,
			difficulty DOUBLE NOT NULL DEFAULT 0,
			last_reviewed_at DATETIME(3),
			next_review_at DATETIME(3) NOT NULL,
			elapsed_days DOUBLE NOT NULL DEFAULT 0,
			retrievability DOUBLE NOT NULL DEFAULT 0,
			reps INT NOT NULL DEFAULT 0,
			lapses INT NOT NULL DEFAULT 0,
			streak INT NOT NULL DEFAULT 0,
			lifecycle VARCHAR(16) NOT NULL,
			attempts INT NOT NULL DEFAULT 0,
			correct INT NOT NULL DEFAULT 0,
			archived TINYINT(1) NOT NULL DEFAULT 0,
			deleted TINYINT(1) NOT NULL DEFAULT 0,
			created_at DATETIME(3) NOT NULL,
			updated_at DATETIME(3) NOT NULL,
			INDEX idx_due (user_id, archived, deleted, next_review_at),
			INDEX idx_fresh (user_id, archived, deleted, reps, created_at)
		)
	`, c.conceptsTable)
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: create concepts: %w", err)
	}

	interactions := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			concept_id BIGINT NOT NULL,
			answer TEXT NOT NULL,
			correct TINYINT(1) NOT NULL,
			grade VARCHAR(8) NOT NULL,
			attempted_at DATETIME(3) NOT NULL,
			time_spent_ms INT,
			session_tag TEXT,
			INDEX idx_history (user_id, concept_id, attempted_at)
		)
	`, c.interactionsTable)
	if _, err := c.db.ExecContext(ctx, interactions); err != nil {
		return fmt.Errorf("initTables: create interactions: %w", err)
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
// stability.
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

// NextUnreviewed returns the freshest never-reviewed visible concept.
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

// ApplyReview runs one review as a single atomic transaction, locking the
// concept row for the duration.
func (c *Client) ApplyReview(ctx context.Context, userID string, conceptID int64, apply storage.ReviewFunc) (*storage.Concept, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ApplyReview: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? FOR UPDATE", conceptColumns, c.conceptsTable)
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
