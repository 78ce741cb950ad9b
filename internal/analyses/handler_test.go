package analyses

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func testRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/v1"))
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAnalysisEndpoint(t *testing.T) {
	r := testRouter(testService(nil))

	body, _ := json.Marshal(Request{Text: longText, Tier: TierFree})
	w := postJSON(t, r, "/v1/analyses", string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var analysis Analysis
	if err := json.Unmarshal(w.Body.Bytes(), &analysis); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if analysis.Status != StatusCompleted || analysis.Result == nil {
		t.Fatalf("unexpected payload: %s", w.Body.String())
	}
}

func TestCreateAnalysisContentTooShort(t *testing.T) {
	r := testRouter(testService(nil))

	body, _ := json.Marshal(Request{Text: shortText, Tier: TierFree})
	w := postJSON(t, r, "/v1/analyses", string(body))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), ErrorCodeContentTooShort) {
		t.Fatalf("expected %s code, got %s", ErrorCodeContentTooShort, w.Body.String())
	}
}

func TestCreateAnalysisValidation(t *testing.T) {
	r := testRouter(testService(nil))

	w := postJSON(t, r, "/v1/analyses", `{"tier": "free"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body = %s", w.Code, w.Body.String())
	}

	w = postJSON(t, r, "/v1/analyses", `not json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for malformed body", w.Code)
	}
}

func TestGetAnalysisEndpoint(t *testing.T) {
	svc := testService(nil)
	r := testRouter(svc)

	body, _ := json.Marshal(Request{Text: longText, Tier: TierFree})
	w := postJSON(t, r, "/v1/analyses", string(body))
	var created Analysis
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses/"+created.ID, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/analyses/nope", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestListAnalysesEndpoint(t *testing.T) {
	svc := testService(nil)
	r := testRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses?limit=5", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var payload struct {
		Analyses []Analysis `json:"analyses"`
		Limit    int        `json:"limit"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Analyses == nil || payload.Limit != 5 {
		t.Fatalf("unexpected payload: %s", w.Body.String())
	}
}
