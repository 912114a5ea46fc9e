package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

const schemaLockKey int64 = 2026101801

type ClassificationRepository struct {
	db *sql.DB
}

func NewClassificationRepository(db *sql.DB) *ClassificationRepository {
	return &ClassificationRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ClassificationRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS classifications (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	content_sha256 TEXT NOT NULL,
	file_size_bytes BIGINT NOT NULL,
	status TEXT NOT NULL,
	document_type TEXT,
	year INTEGER,
	source_strategy TEXT,
	detail TEXT,
	occurred_at TIMESTAMPTZ NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_classifications_sha256 ON classifications(content_sha256);
CREATE INDEX IF NOT EXISTS idx_classifications_occurred_at ON classifications(occurred_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Save is idempotent on id so redelivered events do not fail the consumer.
func (r *ClassificationRepository) Save(ctx context.Context, record *domain.ClassificationRecord) error {
	var year sql.NullInt64
	if record.Year != nil {
		year = sql.NullInt64{Int64: int64(*record.Year), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO classifications (
	id, filename, content_sha256, file_size_bytes, status, document_type, year, source_strategy, detail, occurred_at, recorded_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO NOTHING
`,
		record.ID, record.Filename, record.ContentSHA256, record.FileSizeBytes, string(record.Status),
		nullString(string(record.DocumentType)), year, nullString(string(record.SourceStrategy)),
		nullString(record.Detail), record.OccurredAt, record.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert classification: %w", err)
	}
	return nil
}

func (r *ClassificationRepository) GetByID(ctx context.Context, id string) (*domain.ClassificationRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, content_sha256, file_size_bytes, status, document_type, year, source_strategy, detail, occurred_at, recorded_at
FROM classifications
WHERE id = $1
`, id)

	var (
		rec                       domain.ClassificationRecord
		status                    string
		docType, strategy, detail sql.NullString
		year                      sql.NullInt64
	)
	err := row.Scan(
		&rec.ID, &rec.Filename, &rec.ContentSHA256, &rec.FileSizeBytes, &status,
		&docType, &year, &strategy, &detail, &rec.OccurredAt, &rec.RecordedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get classification", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan classification: %w", err)
	}

	rec.Status = domain.ClassificationStatus(status)
	rec.DocumentType = domain.DocumentType(docType.String)
	rec.SourceStrategy = domain.Strategy(strategy.String)
	rec.Detail = detail.String
	if year.Valid {
		y := int(year.Int64)
		rec.Year = &y
	}
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
