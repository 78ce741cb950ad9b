package analyses

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"originlytics-backend/internal/documents"
	"originlytics-backend/internal/shared/telemetry"
	"originlytics-backend/internal/shared/util"
)

// DocumentText resolves an uploaded document into its extracted text.
type DocumentText interface {
	Text(ctx context.Context, documentID string) (string, error)
}

// Service runs analysis jobs and keeps their history.
type Service struct {
	Repo Repo
	Orch *Orchestrator
	Docs DocumentText
}

// Create validates the request, runs the job synchronously, and records
// the outcome. Failed jobs are recorded too, with the error message.
func (s *Service) Create(ctx context.Context, req Request) (Analysis, error) {
	switch req.Tier {
	case "":
		req.Tier = TierFree
	case TierFree, TierPaid:
	default:
		return Analysis{}, &ValidationError{Msg: "tier must be free or paid"}
	}

	if req.DocumentID != "" {
		if req.Text != "" || req.URL != "" {
			return Analysis{}, &ValidationError{Msg: "documentId cannot be combined with text or url"}
		}
		if s.Docs == nil {
			return Analysis{}, &ValidationError{Msg: "document analysis is not configured"}
		}
		text, err := s.Docs.Text(ctx, req.DocumentID)
		if err != nil {
			if errors.Is(err, documents.ErrNotFound) {
				return Analysis{}, &ValidationError{Msg: "document not found"}
			}
			return Analysis{}, err
		}
		req.Text = text
	}

	analysis := Analysis{
		ID:         uuid.NewString(),
		Tier:       req.Tier,
		SourceURL:  req.URL,
		DocumentID: req.DocumentID,
		CreatedAt:  time.Now().UTC(),
	}
	if req.Text != "" {
		analysis.ContentHash = util.HashContent(req.Tier + "|" + req.Text)
	}

	result, runErr := s.Orch.Run(ctx, req)
	now := time.Now().UTC()
	analysis.CompletedAt = &now
	if runErr != nil {
		analysis.Status = StatusFailed
		analysis.Error = runErr.Error()
	} else {
		analysis.Status = StatusCompleted
		analysis.Result = result
	}

	if err := s.Repo.Create(ctx, analysis); err != nil {
		// History is secondary: the caller still gets the result.
		telemetry.Error("analysis.persist_failed", map[string]any{
			"id":    analysis.ID,
			"error": err.Error(),
		})
	}
	if runErr != nil {
		return Analysis{}, runErr
	}
	return analysis, nil
}

// Get returns one analysis by ID.
func (s *Service) Get(ctx context.Context, id string) (Analysis, error) {
	if id == "" {
		return Analysis{}, &ValidationError{Msg: "analysis id is required"}
	}
	return s.Repo.GetByID(ctx, id)
}

// List returns the analysis history, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Analysis, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.List(ctx, limit, offset)
}
