package analyses

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	score := 61.3
	analysis := Analysis{
		ID:          "a-1",
		Tier:        TierPaid,
		SourceURL:   "https://example.com/post",
		ContentHash: "abc123",
		Status:      StatusCompleted,
		Result:      &Result{SEO: &SEOReport{Score: &score}},
		CreatedAt:   now,
		CompletedAt: &now,
	}

	mock.ExpectExec("INSERT INTO analyses").
		WithArgs(
			analysis.ID,
			analysis.Tier,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			analysis.ContentHash,
			analysis.Status,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			analysis.CreatedAt,
			analysis.CompletedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), analysis); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	cols := []string{"id", "tier", "source_url", "document_id", "content_hash", "status", "result", "error", "created_at", "completed_at"}

	mock.ExpectQuery("FROM analyses").
		WithArgs("a-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("a-1", TierFree, nil, nil, "abc", StatusCompleted, []byte(`{"summary":"s","key_points":null,"metrics":null,"ensemble":null,"detection":null,"toxicity":null,"seo":null,"geo":null,"accessibility":null,"emotional":null,"telemetry":{"phase_timings_ms":{},"phase_outcomes":{},"total_ms":12,"estimated_cost_usd":0,"cache_hit":false,"word_count":300}}`), nil, now, now))

	got, err := repo.GetByID(context.Background(), "a-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Result == nil || got.Result.Summary == nil || *got.Result.Summary != "s" {
		t.Fatalf("result not decoded: %+v", got.Result)
	}
	if got.CompletedAt == nil {
		t.Fatalf("completedAt not decoded")
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := &PGRepo{DB: db}
	cols := []string{"id", "tier", "source_url", "document_id", "content_hash", "status", "result", "error", "created_at", "completed_at"}
	mock.ExpectQuery("FROM analyses").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(cols))

	_, err = repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	cols := []string{"id", "tier", "source_url", "document_id", "content_hash", "status", "result", "error", "created_at", "completed_at"}
	mock.ExpectQuery("FROM analyses").
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("a-2", TierFree, nil, nil, "h2", StatusCompleted, nil, nil, now, now).
			AddRow("a-1", TierPaid, "https://example.com", nil, "h1", StatusFailed, nil, "analysis failed", now.Add(-time.Hour), now))

	list, err := repo.List(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(list))
	}
	if list[1].Error != "analysis failed" {
		t.Fatalf("error column not decoded: %+v", list[1])
	}
}
