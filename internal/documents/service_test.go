package documents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"originlytics-backend/internal/extract"
	"originlytics-backend/internal/shared/storage/object/local"
)

const sampleText = "This is the extracted body of the uploaded file with several words in it."

func newTestService(t *testing.T) *Service {
	t.Helper()
	return &Service{
		Store: local.New(t.TempDir()),
		Repo:  NewMemoryRepo(),
	}
}

func TestUploadAndText(t *testing.T) {
	svc := newTestService(t)

	doc, err := svc.Upload(context.Background(), "notes.txt", strings.NewReader(sampleText))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID == "" || doc.StorageKey == "" || doc.ExtractedTextKey == "" {
		t.Fatalf("document incomplete: %+v", doc)
	}
	if doc.WordCount != len(strings.Fields(sampleText)) {
		t.Fatalf("wordCount = %d", doc.WordCount)
	}

	text, err := svc.Text(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != sampleText {
		t.Fatalf("text round trip mismatch: %q", text)
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Upload(context.Background(), "archive.bin", strings.NewReader("\x00\x01\x02\x03binary"))
	if !errors.Is(err, extract.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}

	list, err := svc.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("failed upload must not be recorded, got %d docs", len(list))
	}
}

func TestUploadRequiresFileName(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Upload(context.Background(), "", strings.NewReader("x")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTextNotFound(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Text(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAndLimit(t *testing.T) {
	svc := newTestService(t)

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		if _, err := svc.Upload(context.Background(), name, strings.NewReader("file body for "+name)); err != nil {
			t.Fatalf("upload %s: %v", name, err)
		}
	}

	list, err := svc.List(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(list))
	}
}
