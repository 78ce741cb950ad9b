package analyses

import (
	"context"
	"errors"
	"testing"

	"originlytics-backend/internal/documents"
)

type fakeDocs struct {
	texts map[string]string
}

func (f *fakeDocs) Text(ctx context.Context, documentID string) (string, error) {
	text, ok := f.texts[documentID]
	if !ok {
		return "", documents.ErrNotFound
	}
	return text, nil
}

func testService(docs DocumentText) *Service {
	return &Service{
		Repo: NewMemoryRepo(),
		Orch: testOrchestrator(&scriptedLLM{}, newScriptedRunner(), nil, nil),
		Docs: docs,
	}
}

func TestServiceCreateAndHistory(t *testing.T) {
	svc := testService(nil)

	analysis, err := svc.Create(context.Background(), Request{Text: longText, Tier: TierFree})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Status != StatusCompleted {
		t.Fatalf("status = %q", analysis.Status)
	}
	if analysis.Result == nil || analysis.Result.Summary == nil {
		t.Fatalf("result missing")
	}
	if analysis.CompletedAt == nil {
		t.Fatalf("completedAt missing")
	}

	got, err := svc.Get(context.Background(), analysis.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != analysis.ID {
		t.Fatalf("history lookup mismatch")
	}

	list, err := svc.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 record, got %d", len(list))
	}
}

func TestServiceCreateDefaultsTier(t *testing.T) {
	svc := testService(nil)
	analysis, err := svc.Create(context.Background(), Request{Text: longText})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Tier != TierFree {
		t.Fatalf("empty tier should default to free, got %q", analysis.Tier)
	}
}

func TestServiceCreateRejectsUnknownTier(t *testing.T) {
	svc := testService(nil)
	_, err := svc.Create(context.Background(), Request{Text: longText, Tier: "enterprise"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceCreateRecordsFailure(t *testing.T) {
	svc := testService(nil)

	_, err := svc.Create(context.Background(), Request{Text: shortText, Tier: TierFree})
	var tooShort *ContentTooShortError
	if !errors.As(err, &tooShort) {
		t.Fatalf("expected ContentTooShortError, got %v", err)
	}

	list, err := svc.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].Status != StatusFailed {
		t.Fatalf("failed job should be recorded: %+v", list)
	}
	if list[0].Error == "" {
		t.Fatalf("failed record should carry the error message")
	}
}

func TestServiceCreateFromDocument(t *testing.T) {
	svc := testService(&fakeDocs{texts: map[string]string{"doc-1": longText}})

	analysis, err := svc.Create(context.Background(), Request{DocumentID: "doc-1", Tier: TierFree})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.DocumentID != "doc-1" {
		t.Fatalf("documentId not recorded")
	}
	if analysis.Result == nil {
		t.Fatalf("result missing")
	}
}

func TestServiceCreateDocumentNotFound(t *testing.T) {
	svc := testService(&fakeDocs{texts: map[string]string{}})
	_, err := svc.Create(context.Background(), Request{DocumentID: "missing", Tier: TierFree})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for missing document, got %v", err)
	}
}

func TestServiceCreateDocumentExclusivity(t *testing.T) {
	svc := testService(&fakeDocs{texts: map[string]string{"doc-1": longText}})
	_, err := svc.Create(context.Background(), Request{DocumentID: "doc-1", Text: longText, Tier: TierFree})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for documentId plus text, got %v", err)
	}
}
