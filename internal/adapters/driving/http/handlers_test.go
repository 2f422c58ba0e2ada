package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven/mocks"
	"github.com/veridian-labs/ttpmap-core/internal/core/services"
	"github.com/veridian-labs/ttpmap-core/internal/extract"
	"github.com/veridian-labs/ttpmap-core/internal/runtime"
	"github.com/veridian-labs/ttpmap-core/internal/segment"
)

const catalogBundle = `{
  "type": "bundle",
  "id": "bundle--1",
  "objects": [
    {
      "id": "attack-pattern--aaa",
      "type": "attack-pattern",
      "name": "Command and Scripting Interpreter",
      "external_references": [
        {"source_name": "mitre-attack", "external_id": "T1059", "url": "https://attack.mitre.org/techniques/T1059"}
      ]
    },
    {
      "id": "attack-pattern--bbb",
      "type": "attack-pattern",
      "name": "Phishing",
      "external_references": [
        {"source_name": "mitre-attack", "external_id": "T1566", "url": "https://attack.mitre.org/techniques/T1566"}
      ]
    }
  ]
}`

type serverFixture struct {
	handler http.Handler

	users      *mocks.MockUserStore
	docs       *mocks.MockDocumentStore
	jobs       *mocks.MockJobStore
	reports    *mocks.MockReportStore
	attack     *mocks.MockAttackObjectStore
	queue      *mocks.MockTaskQueue
	classifier *mocks.MockClassifier
}

func newServerFixture(t *testing.T, withModel bool) *serverFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &serverFixture{
		users:      mocks.NewMockUserStore(),
		docs:       mocks.NewMockDocumentStore(),
		jobs:       mocks.NewMockJobStore(),
		reports:    mocks.NewMockReportStore(),
		attack:     mocks.NewMockAttackObjectStore(),
		queue:      mocks.NewMockTaskQueue(),
		classifier: mocks.NewMockClassifier("nb-test"),
	}

	models := runtime.NewModels()
	if withModel {
		models.Set(f.classifier, &domain.ModelInfo{Version: "nb-test", Classes: 2, Examples: 10})
	}

	pipeline := services.NewPipeline(services.PipelineConfig{
		Extractors:  extract.Default(),
		Segmenter:   segment.New(),
		Models:      models,
		Policy:      services.NewDecisionPolicy(50),
		ReportStore: f.reports,
		JobStore:    f.jobs,
		Logger:      logger,
	})

	authService := services.NewAuthService(f.users, mocks.NewMockAuthAdapter(), logger)
	jobService := services.NewJobService(f.jobs, f.docs, f.queue, logger)
	reportService := services.NewReportService(f.reports, pipeline)
	catalogService := services.NewCatalogService(f.attack, logger)
	trainingService := services.NewTrainingService(
		f.reports, catalogService, models, filepath.Join(t.TempDir(), "model.json"), logger)

	srv := NewServer(
		Config{Host: "127.0.0.1", Port: 0, Version: "test", MaxUploadBytes: 1 << 20},
		logger,
		authService,
		jobService,
		reportService,
		catalogService,
		trainingService,
		f.queue,
		nil,
		nil,
	)
	f.handler = srv.Handler()
	return f
}

// tokenFor builds a token the mock auth adapter accepts: plain JSON claims.
func tokenFor(role domain.Role) string {
	now := time.Now()
	b, _ := json.Marshal(&domain.TokenClaims{
		UserID:    "user-" + string(role),
		Email:     string(role) + "@example.com",
		Role:      role,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	})
	return string(b)
}

func (f *serverFixture) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func multipartUpload(t *testing.T, filename, mimeType, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func TestHealthEndpoints(t *testing.T) {
	f := newServerFixture(t, true)

	rec := f.do(http.MethodGet, "/health", "", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", rec.Code)
	}

	rec = f.do(http.MethodGet, "/version", "", nil, "")
	var v map[string]string
	decodeBody(t, rec, &v)
	if v["version"] != "test" {
		t.Errorf("expected version test, got %q", v["version"])
	}

	rec = f.do(http.MethodGet, "/ready", "", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("ready: expected 200, got %d", rec.Code)
	}
}

func TestReadyQueueDown(t *testing.T) {
	f := newServerFixture(t, true)
	f.queue.PingErr = io.ErrUnexpectedEOF

	rec := f.do(http.MethodGet, "/ready", "", nil, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	f := newServerFixture(t, true)
	now := time.Now().UTC()
	if err := f.users.Create(context.Background(), &domain.User{
		ID:           "u1",
		Email:        "analyst@example.com",
		PasswordHash: "hashed:s3cret",
		Role:         domain.RoleAnalyst,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatal(err)
	}

	body := strings.NewReader(`{"email":"analyst@example.com","password":"s3cret"}`)
	rec := f.do(http.MethodPost, "/api/v1/auth/login", "", body, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp domain.LoginResponse
	decodeBody(t, rec, &resp)
	if resp.Token == "" {
		t.Error("expected a token")
	}
	if resp.User == nil || resp.User.Email != "analyst@example.com" {
		t.Errorf("unexpected user in response: %+v", resp.User)
	}

	// The issued token must pass the auth middleware.
	rec = f.do(http.MethodGet, "/api/v1/jobs", resp.Token, nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("issued token rejected: %d", rec.Code)
	}
}

func TestLoginRejections(t *testing.T) {
	f := newServerFixture(t, true)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown user", `{"email":"ghost@example.com","password":"x"}`, http.StatusUnauthorized},
		{"malformed body", `{"email":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/api/v1/auth/login", "", strings.NewReader(tt.body), "application/json")
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestAuthRequired(t *testing.T) {
	f := newServerFixture(t, true)

	expired, _ := json.Marshal(&domain.TokenClaims{
		UserID:    "u1",
		Role:      domain.RoleAdmin,
		IssuedAt:  time.Now().Add(-2 * time.Hour).Unix(),
		ExpiresAt: time.Now().Add(-time.Hour).Unix(),
	})

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"garbage token", "not-a-token"},
		{"expired token", string(expired)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodGet, "/api/v1/jobs", tt.token, nil, "")
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestRolePermissions(t *testing.T) {
	f := newServerFixture(t, true)

	tests := []struct {
		name   string
		role   domain.Role
		method string
		path   string
		want   int
	}{
		{"observer cannot submit", domain.RoleObserver, http.MethodPost, "/api/v1/documents", http.StatusForbidden},
		{"observer cannot review", domain.RoleObserver, http.MethodPatch, "/api/v1/sentences/s1", http.StatusForbidden},
		{"analyst cannot train", domain.RoleAnalyst, http.MethodPost, "/api/v1/admin/model/train", http.StatusForbidden},
		{"analyst cannot delete reports", domain.RoleAnalyst, http.MethodDelete, "/api/v1/reports/r1", http.StatusForbidden},
		{"observer can read jobs", domain.RoleObserver, http.MethodGet, "/api/v1/jobs", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.method, tt.path, tokenFor(tt.role), nil, "")
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestSubmitDocumentFlow(t *testing.T) {
	f := newServerFixture(t, true)
	token := tokenFor(domain.RoleAnalyst)

	body, ct := multipartUpload(t, "incident.txt", "text/plain", "The actor ran scripts.")
	rec := f.do(http.MethodPost, "/api/v1/documents", token, body, ct)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var job domain.DocumentProcessingJob
	decodeBody(t, rec, &job)
	if job.Status != domain.JobStatusQueued {
		t.Errorf("expected queued job, got %s", job.Status)
	}
	if job.DocumentID == "" {
		t.Fatal("expected document id on job")
	}

	// Status is visible to any authenticated user.
	rec = f.do(http.MethodGet, "/api/v1/jobs/"+job.ID, tokenFor(domain.RoleObserver), nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for job status, got %d", rec.Code)
	}

	// A second job for the same document conflicts while one is active.
	rec = f.do(http.MethodPost, "/api/v1/documents/"+job.DocumentID+"/jobs", token, nil, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate job, got %d", rec.Code)
	}

	rec = f.do(http.MethodDelete, "/api/v1/jobs/"+job.ID, token, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for cancel, got %d", rec.Code)
	}

	// Cancelled jobs are terminal.
	rec = f.do(http.MethodDelete, "/api/v1/jobs/"+job.ID, token, nil, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 cancelling a cancelled job, got %d", rec.Code)
	}

	// A cancelled job frees the document for resubmission.
	rec = f.do(http.MethodPost, "/api/v1/documents/"+job.DocumentID+"/jobs", token, nil, "")
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected 202 for resubmission, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitDocumentMissingFile(t *testing.T) {
	f := newServerFixture(t, true)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("name", "no file here")
	_ = w.Close()

	rec := f.do(http.MethodPost, "/api/v1/documents", tokenFor(domain.RoleAnalyst), &buf, w.FormDataContentType())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestJobEndpointsNotFound(t *testing.T) {
	f := newServerFixture(t, true)
	token := tokenFor(domain.RoleAnalyst)

	if rec := f.do(http.MethodGet, "/api/v1/jobs/missing", token, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("get: expected 404, got %d", rec.Code)
	}
	if rec := f.do(http.MethodDelete, "/api/v1/jobs/missing", token, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("cancel: expected 404, got %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/api/v1/documents/missing/jobs", token, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("resubmit: expected 404, got %d", rec.Code)
	}
}

func TestCreateReportFromText(t *testing.T) {
	f := newServerFixture(t, true)
	f.classifier.On("The actor ran powershell scripts.",
		domain.Candidate{AttackObjectID: "obj-ps", Confidence: 90},
	)

	body := strings.NewReader(`{"name":"incident 7","text":"The actor ran powershell scripts."}`)
	rec := f.do(http.MethodPost, "/api/v1/reports", tokenFor(domain.RoleAnalyst), body, "application/json")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp createReportResponse
	decodeBody(t, rec, &resp)
	if resp.Report == nil || resp.Report.Name != "incident 7" {
		t.Fatalf("unexpected report: %+v", resp.Report)
	}
	if resp.Result == nil || resp.Result.MappingCount != 1 {
		t.Errorf("expected 1 mapping, got %+v", resp.Result)
	}

	rec = f.do(http.MethodGet, "/api/v1/reports/"+resp.Report.ID, tokenFor(domain.RoleObserver), nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for report graph, got %d", rec.Code)
	}
	var graph domain.ReportGraph
	decodeBody(t, rec, &graph)
	if len(graph.Sentences) != 1 || len(graph.Mappings) != 1 {
		t.Errorf("unexpected graph: %d sentences, %d mappings", len(graph.Sentences), len(graph.Mappings))
	}

	rec = f.do(http.MethodGet, "/api/v1/reports", tokenFor(domain.RoleObserver), nil, "")
	var reports []*domain.Report
	decodeBody(t, rec, &reports)
	if len(reports) != 1 {
		t.Errorf("expected 1 report listed, got %d", len(reports))
	}
}

func TestCreateReportValidation(t *testing.T) {
	f := newServerFixture(t, true)
	token := tokenFor(domain.RoleAnalyst)

	rec := f.do(http.MethodPost, "/api/v1/reports", token, strings.NewReader(`{"name":"x"}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing text, got %d", rec.Code)
	}
}

func TestCreateReportNoModel(t *testing.T) {
	f := newServerFixture(t, false)

	body := strings.NewReader(`{"text":"Some observed activity."}`)
	rec := f.do(http.MethodPost, "/api/v1/reports", tokenFor(domain.RoleAnalyst), body, "application/json")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a model, got %d", rec.Code)
	}
}

func TestDeleteReport(t *testing.T) {
	f := newServerFixture(t, true)

	body := strings.NewReader(`{"text":"One sentence."}`)
	rec := f.do(http.MethodPost, "/api/v1/reports", tokenFor(domain.RoleAnalyst), body, "application/json")
	var resp createReportResponse
	decodeBody(t, rec, &resp)

	rec = f.do(http.MethodDelete, "/api/v1/reports/"+resp.Report.ID, tokenFor(domain.RoleAdmin), nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for delete, got %d", rec.Code)
	}

	rec = f.do(http.MethodGet, "/api/v1/reports/"+resp.Report.ID, tokenFor(domain.RoleAdmin), nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestSetDisposition(t *testing.T) {
	f := newServerFixture(t, true)
	token := tokenFor(domain.RoleAnalyst)

	body := strings.NewReader(`{"text":"The actor moved laterally."}`)
	rec := f.do(http.MethodPost, "/api/v1/reports", token, body, "application/json")
	var resp createReportResponse
	decodeBody(t, rec, &resp)

	rec = f.do(http.MethodGet, "/api/v1/reports/"+resp.Report.ID, token, nil, "")
	var graph domain.ReportGraph
	decodeBody(t, rec, &graph)
	if len(graph.Sentences) == 0 {
		t.Fatal("no sentences in graph")
	}
	sentenceID := graph.Sentences[0].ID

	rec = f.do(http.MethodPatch, "/api/v1/sentences/"+sentenceID, token,
		strings.NewReader(`{"disposition":"accept"}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var sentence domain.Sentence
	decodeBody(t, rec, &sentence)
	if sentence.Disposition == nil || *sentence.Disposition != domain.DispositionAccept {
		t.Errorf("expected accept disposition, got %v", sentence.Disposition)
	}

	// Null returns the sentence to pending review.
	rec = f.do(http.MethodPatch, "/api/v1/sentences/"+sentenceID, token,
		strings.NewReader(`{"disposition":null}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	sentence = domain.Sentence{}
	decodeBody(t, rec, &sentence)
	if sentence.Disposition != nil {
		t.Errorf("expected pending sentence, got %v", *sentence.Disposition)
	}

	rec = f.do(http.MethodPatch, "/api/v1/sentences/"+sentenceID, token,
		strings.NewReader(`{"disposition":"maybe"}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad verdict, got %d", rec.Code)
	}

	rec = f.do(http.MethodPatch, "/api/v1/sentences/missing", token,
		strings.NewReader(`{"disposition":"accept"}`), "application/json")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown sentence, got %d", rec.Code)
	}
}

func TestAdminCatalogEndpoints(t *testing.T) {
	f := newServerFixture(t, true)
	admin := tokenFor(domain.RoleAdmin)

	rec := f.do(http.MethodPost, "/api/v1/admin/attack-data", admin,
		strings.NewReader(catalogBundle), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var loaded map[string]int
	decodeBody(t, rec, &loaded)
	if loaded["loaded"] != 2 {
		t.Errorf("expected 2 loaded objects, got %d", loaded["loaded"])
	}

	rec = f.do(http.MethodGet, "/api/v1/attack-objects", tokenFor(domain.RoleObserver), nil, "")
	var objects []*domain.AttackObject
	decodeBody(t, rec, &objects)
	if len(objects) != 2 {
		t.Errorf("expected 2 attack objects, got %d", len(objects))
	}

	rec = f.do(http.MethodPost, "/api/v1/admin/attack-data", admin,
		strings.NewReader(`{"type":"report"}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad bundle, got %d", rec.Code)
	}
}

func TestModelEndpoints(t *testing.T) {
	f := newServerFixture(t, true)
	admin := tokenFor(domain.RoleAdmin)

	rec := f.do(http.MethodGet, "/api/v1/admin/model", admin, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var info domain.ModelInfo
	decodeBody(t, rec, &info)
	if info.Version != "nb-test" {
		t.Errorf("expected nb-test model, got %q", info.Version)
	}

	// No reports stored: nothing to train from.
	rec = f.do(http.MethodPost, "/api/v1/admin/model/train", admin, nil, "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 without training data, got %d", rec.Code)
	}
}

func TestModelEndpointNoModel(t *testing.T) {
	f := newServerFixture(t, false)

	rec := f.do(http.MethodGet, "/api/v1/admin/model", tokenFor(domain.RoleAdmin), nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a model, got %d", rec.Code)
	}
}
