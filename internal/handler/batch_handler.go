package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"facturas/internal/domain"
	"facturas/internal/service"
)

// BatchHandler handles invoice batch submission and status endpoints.
type BatchHandler struct {
	batchService service.BatchService
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(batchService service.BatchService) *BatchHandler {
	return &BatchHandler{batchService: batchService}
}

// Submit handles POST /api/v1/batches. It accepts a multipart form with one
// or more PDF files under the "files" field and dispatches them for
// asynchronous extraction.
func (h *BatchHandler) Submit(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FORM", "multipart form is required")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		RespondError(c, http.StatusBadRequest, "NO_FILES", "at least one file is required")
		return
	}

	files := make([]domain.SubmittedFile, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "UNREADABLE_FILE", "could not read uploaded file "+header.Filename)
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "UNREADABLE_FILE", "could not read uploaded file "+header.Filename)
			return
		}
		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/pdf"
		}
		files = append(files, domain.SubmittedFile{
			Name:        header.Filename,
			ContentType: contentType,
			Data:        data,
		})
	}

	result, err := h.batchService.Submit(c.Request.Context(), &service.SubmitBatchInput{Files: files})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, result)
}

// Get handles GET /api/v1/batches/:id
func (h *BatchHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid batch id")
		return
	}

	job, err := h.batchService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, job)
}

// ListErrors handles GET /api/v1/batches/:id/errors. It returns the batch's
// append-only error log on its own, which stays small even when the full row
// carries large counters and metadata.
func (h *BatchHandler) ListErrors(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid batch id")
		return
	}

	job, err := h.batchService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	errs := job.Errors
	if errs == nil {
		errs = domain.ErrorList{}
	}
	RespondOK(c, errs)
}

// GetFile handles GET /api/v1/batches/:id/files/:name. It serves the staged
// source PDF of one submitted file for auditing a processed batch.
func (h *BatchHandler) GetFile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid batch id")
		return
	}

	data, err := h.batchService.DownloadStagedFile(c.Request.Context(), id, c.Param("name"))
	if err != nil {
		HandleError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/pdf", data)
}

// List handles GET /api/v1/batches. It returns active plus recently-terminal
// batches, newest first.
func (h *BatchHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	jobs, err := h.batchService.ListRecent(c.Request.Context(), limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, jobs)
}

// ListBySubmission handles GET /api/v1/submissions/:id/batches. It returns
// every chunk batch of one logical submission.
func (h *BatchHandler) ListBySubmission(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid submission id")
		return
	}

	jobs, err := h.batchService.ListBySubmission(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, jobs)
}
