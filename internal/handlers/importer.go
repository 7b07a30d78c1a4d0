// internal/handlers/importer.go
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/importer"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

const importFileField = "excelFile"

type ImporterHandler struct {
	importService  *services.ImportService
	storageService *services.StorageService
}

func NewImporterHandler(importService *services.ImportService, storageService *services.StorageService) *ImporterHandler {
	return &ImporterHandler{
		importService:  importService,
		storageService: storageService,
	}
}

type CreateImportRequest struct {
	Source string `json:"source" validate:"required,notblank,max=1024"`
	// Async leaves the job pending for the sweeper instead of running it inline.
	Async bool `json:"async"`
}

type ImportJobResponse struct {
	ID         uuid.UUID               `json:"id"`
	Status     models.ImportStatus     `json:"status"`
	SourceType models.ImportSourceType `json:"source_type"`
	Source     string                  `json:"source"`
	Created    int                     `json:"created"`
	Updated    int                     `json:"updated"`
	Skipped    int                     `json:"skipped"`
	Failed     int                     `json:"failed"`
	Error      string                  `json:"error,omitempty"`
	StartedAt  *time.Time              `json:"started_at"`
	FinishedAt *time.Time              `json:"finished_at"`
	CreatedAt  time.Time               `json:"created_at"`
}

func newImportJobResponse(job *models.ImportJob) ImportJobResponse {
	return ImportJobResponse{
		ID:         job.ID,
		Status:     job.Status,
		SourceType: job.SourceType,
		Source:     job.Source,
		Created:    job.Created,
		Updated:    job.Updated,
		Skipped:    job.Skipped,
		Failed:     job.FailedRows,
		Error:      job.Error,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
		CreatedAt:  job.CreatedAt,
	}
}

// POST /importers/process
func (h *ImporterHandler) ProcessUpload(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	file, header, err := c.Request.FormFile(importFileField)
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyImportFileRequired), nil)
		return
	}
	defer file.Close()

	upload, err := h.storageService.SaveUpload(file, header)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrFileTooLarge):
			utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, utils.CodeFileTooLarge, i18n.T(lang, i18n.KeyFileTooLarge), nil)
		case errors.Is(err, importer.ErrUnsupportedFormat):
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileInvalidType), err.Error())
		default:
			utils.InternalErrorResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed))
		}
		return
	}

	job, err := h.importService.CreateJob(c.Request.Context(), models.ImportSourceUpload, upload.Path)
	if err != nil {
		respondError(c, err)
		return
	}

	h.run(c, job.ID)
}

// POST /importers
func (h *ImporterHandler) CreateImport(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req CreateImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	job, err := h.importService.CreateJob(c.Request.Context(), services.ClassifySource(req.Source), req.Source)
	if err != nil {
		respondError(c, err)
		return
	}

	if req.Async {
		utils.AcceptedResponse(c, newImportJobResponse(job))
		return
	}

	h.run(c, job.ID)
}

func (h *ImporterHandler) run(c *gin.Context, id uuid.UUID) {
	lang := utils.GetLangFromContext(c)

	job, err := h.importService.RunJob(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	if job.Status == models.ImportStatusFailed {
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, utils.CodeImportFailed, i18n.T(lang, i18n.KeyImportFailed), newImportJobResponse(job))
		return
	}
	// Another runner claimed it first.
	if !job.IsTerminal() {
		utils.AcceptedResponse(c, newImportJobResponse(job))
		return
	}

	utils.SuccessResponse(c, newImportJobResponse(job))
}

// GET /importers/:id
func (h *ImporterHandler) GetImport(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "id"), nil)
		return
	}

	job, err := h.importService.GetJob(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, newImportJobResponse(job))
}

// GET /importers
func (h *ImporterHandler) ListImports(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	jobs, total, err := h.importService.ListJobs(c.Request.Context(), params.Offset(), params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]ImportJobResponse, 0, len(jobs))
	for i := range jobs {
		items = append(items, newImportJobResponse(&jobs[i]))
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(items, total, params))
}
