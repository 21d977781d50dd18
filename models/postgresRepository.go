package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gobot/haikoobot/logger"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/lithammer/shortuuid/v4"
)

// HaikuStore keeps a history of the replies sent for each content id.
type HaikuStore interface {
	SaveHaiku(ctx context.Context, record HaikuRecord) (HaikuRecord, error)
	LatestHaiku(ctx context.Context, contentID string) (HaikuRecord, error)
}

// ErrHaikuNotFound is returned by LatestHaiku when no reply was recorded.
var ErrHaikuNotFound = errors.New("haiku record not found")

type PostgresRepository struct {
	Db *sql.DB // db holds the database connection pool.
}

const haikuSchema = `
	CREATE TABLE IF NOT EXISTS haikus (
		id          TEXT PRIMARY KEY,
		content_id  TEXT NOT NULL,
		reply_token TEXT NOT NULL,
		image_url   TEXT NOT NULL,
		preview_url TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS haikus_content_id_idx ON haikus (content_id, created_at DESC);
`

// EnsureSchema creates the history table if it does not exist yet.
func (pr *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := pr.Db.ExecContext(ctx, haikuSchema); err != nil {
		return fmt.Errorf("failed to create haikus table: %w", err)
	}
	return nil
}

/*
SaveHaiku inserts a history record. ID and CreatedAt are filled in when empty.

Returns:
- HaikuRecord: The record as stored.
- error: If the insert fails. A duplicate id is reported as such.
*/
func (pr *PostgresRepository) SaveHaiku(ctx context.Context, record HaikuRecord) (HaikuRecord, error) {
	const function = "SaveHaiku"
	if record.ID == "" {
		record.ID = shortuuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO haikus (id, content_id, reply_token, image_url, preview_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := pr.Db.ExecContext(ctx, query,
		record.ID,
		record.ContentID,
		record.ReplyToken,
		record.ImageURL,
		record.PreviewURL,
		record.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			logger.L().Warn("Duplicate haiku record", "function", function, "id", record.ID)
			return HaikuRecord{}, fmt.Errorf("haiku record %s already exists: %w", record.ID, err)
		}
		logger.L().Error("failed to execute query", "function", function, "error", err.Error())
		return HaikuRecord{}, fmt.Errorf("failed to execute query: %w", err)
	}
	logger.L().Debug("Haiku record stored", "function", function, "id", record.ID, "content_id", record.ContentID)
	return record, nil
}

// LatestHaiku returns the most recent record for contentID or ErrHaikuNotFound.
func (pr *PostgresRepository) LatestHaiku(ctx context.Context, contentID string) (HaikuRecord, error) {
	const function = "LatestHaiku"
	query := `
		SELECT
			id,
			content_id,
			reply_token,
			image_url,
			preview_url,
			created_at
		FROM
			haikus
		WHERE
			content_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	logger.L().Debug("Query executed", "function", function, "query", query, "contentID", contentID)

	var record HaikuRecord
	err := pr.Db.QueryRowContext(ctx, query, contentID).Scan(
		&record.ID,
		&record.ContentID,
		&record.ReplyToken,
		&record.ImageURL,
		&record.PreviewURL,
		&record.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return HaikuRecord{}, ErrHaikuNotFound
	}
	if err != nil {
		logger.L().Error("failed to execute query", "function", function, "error", err.Error())
		return HaikuRecord{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return record, nil
}

// isUniqueViolation recognises 23505 from either registered driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
