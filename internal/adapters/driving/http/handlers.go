package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns readiness: database and queue connectivity
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "queue unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Auth endpoints

// handleLogin godoc
// @Summary      User login
// @Description  Authenticate with email and password to receive a JWT token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.LoginRequest  true  "Login credentials"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid credentials or account disabled"
// @Router       /auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.Authenticate(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, domain.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "account disabled")
		default:
			writeError(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Document and job endpoints

// handleSubmitDocument godoc
// @Summary      Submit a document for processing
// @Description  Uploads a file and queues an asynchronous mapping job
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file      formData  file    true   "Document file"
// @Param        name      formData  string  false  "Report name override"
// @Param        ml_model  formData  string  false  "Model version override"
// @Success      202  {object}  domain.DocumentProcessingJob
// @Failure      400  {object}  ErrorResponse  "Invalid upload"
// @Failure      409  {object}  ErrorResponse  "Job already in progress"
// @Router       /documents [post]
func (s *Server) handleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	var createdBy string
	if authCtx := GetAuthContext(r.Context()); authCtx != nil {
		createdBy = authCtx.UserID
	}

	job, err := s.jobService.Submit(r.Context(), driving.SubmitRequest{
		Filename:   header.Filename,
		MimeType:   header.Header.Get("Content-Type"),
		Content:    content,
		ReportName: r.FormValue("name"),
		MLModel:    r.FormValue("ml_model"),
		CreatedBy:  createdBy,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrJobAlreadyInProgress):
			writeError(w, http.StatusConflict, "a processing job is already in progress for this document")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to submit document")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

type resubmitRequest struct {
	Name    string `json:"name"`
	MLModel string `json:"ml_model"`
}

// handleResubmitDocument godoc
// @Summary      Queue a new processing job for a stored document
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string           true   "Document ID"
// @Param        request  body      resubmitRequest  false  "Overrides"
// @Success      202  {object}  domain.DocumentProcessingJob
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse  "Job already in progress"
// @Router       /documents/{id}/jobs [post]
func (s *Server) handleResubmitDocument(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")

	var req resubmitRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var createdBy string
	if authCtx := GetAuthContext(r.Context()); authCtx != nil {
		createdBy = authCtx.UserID
	}

	job, err := s.jobService.Resubmit(r.Context(), documentID, req.Name, req.MLModel, createdBy)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "document not found")
		case errors.Is(err, domain.ErrJobAlreadyInProgress):
			writeError(w, http.StatusConflict, "a processing job is already in progress for this document")
		default:
			writeError(w, http.StatusInternalServerError, "failed to queue job")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

// handleGetJob godoc
// @Summary      Get job status
// @Description  Returns job state; on success includes the report id, on failure the error kind and message
// @Tags         Jobs
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Job ID"
// @Success      200  {object}  domain.DocumentProcessingJob
// @Failure      404  {object}  ErrorResponse
// @Router       /jobs/{id} [get]
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobService.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// handleListJobs godoc
// @Summary      List jobs
// @Tags         Jobs
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query  int  false  "Page size"
// @Param        offset  query  int  false  "Page offset"
// @Success      200  {array}  domain.DocumentProcessingJob
// @Router       /jobs [get]
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	jobs, err := s.jobService.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []*domain.DocumentProcessingJob{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// handleCancelJob godoc
// @Summary      Cancel a queued job
// @Description  Only queued jobs can be cancelled; running jobs proceed to a terminal state
// @Tags         Jobs
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Job ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse  "Job no longer cancellable"
// @Router       /jobs/{id} [delete]
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	err := s.jobService.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, domain.ErrJobNotCancellable):
			writeError(w, http.StatusConflict, "job can no longer be cancelled")
		default:
			writeError(w, http.StatusInternalServerError, "failed to cancel job")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// Report endpoints

// handleListReports godoc
// @Summary      List reports
// @Tags         Reports
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query  int  false  "Page size"
// @Param        offset  query  int  false  "Page offset"
// @Success      200  {array}  domain.Report
// @Router       /reports [get]
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	reports, err := s.reportService.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	if reports == nil {
		reports = []*domain.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

type createReportRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type createReportResponse struct {
	Report *domain.Report         `json:"report"`
	Result *domain.AssemblyResult `json:"result"`
}

// handleCreateReport godoc
// @Summary      Create a report from raw text
// @Description  Runs the mapping pipeline synchronously with no backing document
// @Tags         Reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      createReportRequest  true  "Report text"
// @Success      201  {object}  createReportResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse  "No classifier model loaded"
// @Router       /reports [post]
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	var createdBy string
	if authCtx := GetAuthContext(r.Context()); authCtx != nil {
		createdBy = authCtx.UserID
	}

	report, result, err := s.reportService.CreateFromText(r.Context(), req.Name, req.Text, createdBy)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrModelUnavailable):
			writeError(w, http.StatusServiceUnavailable, "no classifier model loaded")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to assemble report")
		}
		return
	}

	writeJSON(w, http.StatusCreated, createReportResponse{Report: report, Result: result})
}

// handleGetReport godoc
// @Summary      Get a report with its full graph
// @Description  Sentences in order with their mappings, plus extracted indicators
// @Tags         Reports
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Report ID"
// @Success      200  {object}  domain.ReportGraph
// @Failure      404  {object}  ErrorResponse
// @Router       /reports/{id} [get]
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	graph, err := s.reportService.GetGraph(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get report")
		return
	}

	writeJSON(w, http.StatusOK, graph)
}

// handleDeleteReport godoc
// @Summary      Delete a report
// @Tags         Reports
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Report ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /reports/{id} [delete]
func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	if err := s.reportService.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete report")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type dispositionRequest struct {
	Disposition *string `json:"disposition"`
}

// handleSetDisposition godoc
// @Summary      Set the reviewer verdict on a sentence
// @Description  Disposition accept or reject; null returns the sentence to pending review
// @Tags         Reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string              true  "Sentence ID"
// @Param        request  body      dispositionRequest  true  "Verdict"
// @Success      200  {object}  domain.Sentence
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /sentences/{id} [patch]
func (s *Server) handleSetDisposition(w http.ResponseWriter, r *http.Request) {
	var req dispositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var d *domain.Disposition
	if req.Disposition != nil {
		v := domain.Disposition(*req.Disposition)
		d = &v
	}

	sentenceID := r.PathValue("id")
	if err := s.reportService.SetDisposition(r.Context(), sentenceID, d); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "sentence not found")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to update disposition")
		}
		return
	}

	sentence, err := s.reportService.GetSentence(r.Context(), sentenceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load sentence")
		return
	}

	writeJSON(w, http.StatusOK, sentence)
}

// Catalog endpoints

// handleListAttackObjects godoc
// @Summary      List the ATT&CK catalog
// @Tags         Catalog
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  domain.AttackObject
// @Router       /attack-objects [get]
func (s *Server) handleListAttackObjects(w http.ResponseWriter, r *http.Request) {
	objects := s.catalogService.All()
	if objects == nil {
		objects = []*domain.AttackObject{}
	}
	writeJSON(w, http.StatusOK, objects)
}

// Admin endpoints

// handleLoadAttackData godoc
// @Summary      Load the ATT&CK catalog from a STIX bundle
// @Description  Accepts a raw JSON bundle body or a multipart "file" field; idempotent
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]int
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/attack-data [post]
func (s *Server) handleLoadAttackData(w http.ResponseWriter, r *http.Request) {
	body, err := adminUploadBody(w, r, s.maxUploadBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer body.Close()

	count, err := s.catalogService.LoadBundle(r.Context(), body)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load attack data")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"loaded": count})
}

// handleLoadTrainingData godoc
// @Summary      Load the bootstrap training corpus
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  driving.CorpusStats
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/training-data [post]
func (s *Server) handleLoadTrainingData(w http.ResponseWriter, r *http.Request) {
	body, err := adminUploadBody(w, r, s.maxUploadBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer body.Close()

	stats, err := s.trainingService.LoadCorpus(r.Context(), body)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load training data")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleTrainModel godoc
// @Summary      Train and activate a classifier model
// @Description  Builds a model from the accepted sentences of stored reports
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.ModelInfo
// @Failure      422  {object}  ErrorResponse  "No usable training data"
// @Router       /admin/model/train [post]
func (s *Server) handleTrainModel(w http.ResponseWriter, r *http.Request) {
	info, err := s.trainingService.Train(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "training failed")
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// handleGetModel godoc
// @Summary      Get active model info
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.ModelInfo
// @Failure      404  {object}  ErrorResponse  "No model loaded"
// @Router       /admin/model [get]
func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	info, err := s.trainingService.ActiveModel()
	if err != nil {
		writeError(w, http.StatusNotFound, "no classifier model loaded")
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// Helpers

// adminUploadBody returns the payload of an admin data upload: the "file"
// part for multipart requests, the request body otherwise.
func adminUploadBody(w http.ResponseWriter, r *http.Request, maxBytes int64) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	ct := r.Header.Get("Content-Type")
	if len(ct) >= 19 && ct[:19] == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			return nil, errors.New("invalid multipart form")
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, errors.New("missing file")
		}
		return file, nil
	}

	return r.Body, nil
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
