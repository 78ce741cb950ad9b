package analyses

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"originlytics-backend/internal/acquire"
	"originlytics-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyses", h.createAnalysis)
	rg.GET("/analyses", h.listAnalyses)
	rg.GET("/analyses/:id", h.getAnalysis)
}

func (h *Handler) createAnalysis(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}

	analysis, err := h.Svc.Create(c.Request.Context(), req)
	if err != nil {
		writeAnalysisError(c, err)
		return
	}
	respond.OK(c, analysis)
}

func (h *Handler) getAnalysis(c *gin.Context) {
	analysis, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		default:
			writeAnalysisError(c, err)
		}
		return
	}
	respond.OK(c, analysis)
}

func (h *Handler) listAnalyses(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	analyses, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to list analyses", nil)
		return
	}
	if analyses == nil {
		analyses = []Analysis{}
	}
	respond.OK(c, gin.H{"analyses": analyses, "limit": limit, "offset": offset})
}

// writeAnalysisError maps the error taxonomy onto the HTTP surface:
// 400 validation, 422 content too short, 502 acquisition, 500 otherwise.
func writeAnalysisError(c *gin.Context, err error) {
	var (
		validationErr *ValidationError
		tooShortErr   *ContentTooShortError
	)
	switch {
	case errors.As(err, &validationErr):
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, validationErr.Msg, nil)
	case errors.As(err, &tooShortErr):
		respond.Error(c, http.StatusUnprocessableEntity, ErrorCodeContentTooShort, tooShortErr.Error(), nil)
	case errors.Is(err, acquire.ErrInvalidURL), errors.Is(err, acquire.ErrPrivateAddress):
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), nil)
	case errors.Is(err, acquire.ErrNoContent):
		respond.Error(c, http.StatusUnprocessableEntity, ErrorCodeAcquisition, "page has no extractable content", nil)
	default:
		respond.Error(c, http.StatusBadGateway, ErrorCodeInternal, "analysis failed", nil)
	}
}
