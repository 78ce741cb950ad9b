package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new analysis.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) error {
	const query = `
INSERT INTO analyses (
	id, tier, source_url, document_id, content_hash, status, result, error, created_at, completed_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	resultPayload, err := marshalJSONB(analysis.Result)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		analysis.ID,
		analysis.Tier,
		nullString(analysis.SourceURL),
		nullString(analysis.DocumentID),
		analysis.ContentHash,
		analysis.Status,
		resultPayload,
		nullString(analysis.Error),
		analysis.CreatedAt,
		analysis.CompletedAt,
	)
	return err
}

// GetByID returns an analysis by its ID.
func (r *PGRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	const query = `
SELECT id, tier, source_url, document_id, content_hash, status, result, error, created_at, completed_at
FROM analyses
WHERE id = $1`

	row := r.DB.QueryRowContext(ctx, query, analysisID)
	analysis, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return analysis, err
}

// List returns analyses newest first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Analysis, error) {
	const query = `
SELECT id, tier, source_url, document_id, content_hash, status, result, error, created_at, completed_at
FROM analyses
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`

	if limit <= 0 {
		limit = 20
	}
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, analysis)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var (
		a           Analysis
		sourceURL   sql.NullString
		documentID  sql.NullString
		resultRaw   []byte
		errMsg      sql.NullString
		completedAt sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.Tier, &sourceURL, &documentID, &a.ContentHash, &a.Status, &resultRaw, &errMsg, &a.CreatedAt, &completedAt); err != nil {
		return Analysis{}, err
	}
	a.SourceURL = sourceURL.String
	a.DocumentID = documentID.String
	a.Error = errMsg.String
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}
	if len(resultRaw) > 0 {
		var result Result
		if err := json.Unmarshal(resultRaw, &result); err != nil {
			return Analysis{}, err
		}
		a.Result = &result
	}
	return a, nil
}

func marshalJSONB(result *Result) (any, error) {
	if result == nil {
		return nil, nil
	}
	return json.Marshal(result)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
