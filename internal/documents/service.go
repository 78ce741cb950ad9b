package documents

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"originlytics-backend/internal/extract"
	"originlytics-backend/internal/shared/storage/object"
	"originlytics-backend/internal/shared/telemetry"
)

// Service contains business logic for documents.
type Service struct {
	Store object.ObjectStore
	Repo  DocumentsRepo
}

// Upload saves the file to object storage, extracts its text immediately, and
// records the document. Uploads whose text cannot be extracted are rejected so
// that every stored document is analyzable.
func (s *Service) Upload(ctx context.Context, fileName string, r io.Reader) (Document, error) {
	if fileName == "" {
		return Document{}, ErrInvalidInput
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, fileName, r)
	if err != nil {
		return Document{}, err
	}

	text, extractedKey, err := extract.ExtractText(ctx, s.Store, storageKey, mimeType, fileName)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		ID:               uuid.NewString(),
		FileName:         fileName,
		MimeType:         mimeType,
		SizeBytes:        size,
		StorageKey:       storageKey,
		ExtractedTextKey: extractedKey,
		WordCount:        len(strings.Fields(text)),
		CreatedAt:        time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}

	telemetry.Info("document uploaded", map[string]any{
		"documentId": doc.ID,
		"mimeType":   doc.MimeType,
		"sizeBytes":  doc.SizeBytes,
		"wordCount":  doc.WordCount,
	})

	return doc, nil
}

// Get returns a document by ID.
func (s *Service) Get(ctx context.Context, documentID string) (Document, error) {
	if documentID == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, documentID)
}

// Text returns the extracted text of a document.
func (s *Service) Text(ctx context.Context, documentID string) (string, error) {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return "", err
	}
	if doc.ExtractedTextKey == "" {
		return "", fmt.Errorf("document %s has no extracted text", documentID)
	}

	rc, err := s.Store.Open(ctx, doc.ExtractedTextKey)
	if err != nil {
		return "", fmt.Errorf("open extracted text: %w", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}
	return string(raw), nil
}

// List returns uploaded documents, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Document, error) {
	return s.Repo.List(ctx, limit, offset)
}
