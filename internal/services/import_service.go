// internal/services/import_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/importer"
	"github.com/javajoker/storefront-backend/internal/metrics"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
)

const (
	rowCreated = "created"
	rowUpdated = "updated"
	rowSkipped = "skipped"
	rowFailed  = "failed"
)

type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func (r *ImportResult) add(outcome string) {
	switch outcome {
	case rowCreated:
		r.Created++
	case rowUpdated:
		r.Updated++
	case rowSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
}

type ImportService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	images     repository.ImageRepository
	jobs       repository.ImportJobRepository
	slugs      *SlugService
	fetcher    SourceFetcher
	metrics    *metrics.Metrics
	config     config.ImporterConfig
	logger     *logrus.Entry
}

func NewImportService(repos *repository.Repositories, fetcher SourceFetcher, m *metrics.Metrics, cfg config.ImporterConfig) *ImportService {
	if cfg.MaxSlugRetries <= 0 {
		cfg.MaxSlugRetries = 5
	}
	return &ImportService{
		products:   repos.Products,
		categories: repos.Categories,
		images:     repos.Images,
		jobs:       repos.ImportJobs,
		slugs:      NewSlugService(repos.Products),
		fetcher:    fetcher,
		metrics:    m,
		config:     cfg,
		logger:     logrus.WithField("component", "importer"),
	}
}

// ImportBatch upserts every row by product code. Row failures are logged and
// counted; only a cancelled context stops the batch early.
func (s *ImportService) ImportBatch(ctx context.Context, rows []importer.Row) (ImportResult, error) {
	var result ImportResult
	categories := make(map[string]*uuid.UUID)

	for i, raw := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome, err := s.importRow(ctx, raw, categories)
		if err != nil {
			s.logger.WithError(err).WithField("row", i+2).Warn("Failed to import catalog row")
		}
		result.add(outcome)
		s.metrics.RecordImportRow(outcome)
	}

	s.logger.WithFields(logrus.Fields{
		"created": result.Created,
		"updated": result.Updated,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	}).Info("Catalog batch imported")

	return result, nil
}

func (s *ImportService) importRow(ctx context.Context, raw importer.Row, categories map[string]*uuid.UUID) (string, error) {
	row, err := importer.DecodeRow(raw)
	if err != nil {
		return rowFailed, err
	}
	if row.Skippable() {
		return rowSkipped, nil
	}

	code := strings.TrimSpace(row.Code)
	description := strings.TrimSpace(row.Description)

	categoryID, err := s.resolveCategory(ctx, row.Category, categories)
	if err != nil {
		return rowFailed, err
	}

	images, err := s.resolveImages(ctx, row)
	if err != nil {
		return rowFailed, err
	}

	product := models.Product{
		Code:           code,
		ProductName:    description,
		Description:    description,
		Price:          row.PriceValue(),
		WholesalePrice: row.WholesalePriceValue(),
		Stock:          row.StockValue(),
		Department:     strings.TrimSpace(row.Department),
		SubDepartment:  strings.TrimSpace(row.SubDepartment),
		ProductType:    strings.TrimSpace(row.ProductType),
		Brand:          strings.TrimSpace(row.Brand),
		Series:         strings.TrimSpace(row.Series),
		CategoryID:     categoryID,
		Images:         images,
		Active:         true,
	}

	existing, err := s.products.FindByCode(ctx, code)
	switch {
	case err == nil:
		product.ID = existing.ID
		if len(images) == 0 {
			product.Images = existing.Images
		}
		if err := s.products.UpdateFromImport(ctx, &product); err != nil {
			return rowFailed, fmt.Errorf("failed to update product %s: %w", code, err)
		}
		s.logger.WithField("code", code).Debug("Product updated")
		return rowUpdated, nil
	case errors.Is(err, repository.ErrNotFound):
		if err := s.createProduct(ctx, &product); err != nil {
			return rowFailed, err
		}
		s.logger.WithFields(logrus.Fields{"code": code, "slug": product.Slug}).Debug("Product created")
		return rowCreated, nil
	default:
		return rowFailed, fmt.Errorf("failed to look up product %s: %w", product.Code, err)
	}
}

// createProduct assigns a fresh slug and inserts, moving past slugs taken
// between the existence check and the insert.
func (s *ImportService) createProduct(ctx context.Context, product *models.Product) error {
	product.IsFeatured = false

	slug, err := s.slugs.Generate(ctx, product.ProductName)
	if err != nil {
		return err
	}

	base := BaseSlug(product.ProductName)
	for attempt := 0; ; attempt++ {
		product.Slug = slug
		err := s.products.Create(ctx, product)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateSlug) || attempt >= s.config.MaxSlugRetries {
			return fmt.Errorf("failed to create product %s: %w", product.Code, err)
		}

		s.logger.WithField("slug", slug).Debug("Slug taken concurrently, retrying")
		slug, err = s.slugs.GenerateAfter(ctx, product.ProductName, slugSuffix(base, slug))
		if err != nil {
			return err
		}
	}
}

func (s *ImportService) resolveCategory(ctx context.Context, name string, cache map[string]*uuid.UUID) (*uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if id, ok := cache[name]; ok {
		return id, nil
	}

	if name != "" {
		id, err := s.findCategory(ctx, name)
		if err != nil {
			return nil, err
		}
		if id != nil {
			cache[name] = id
			return id, nil
		}
	}

	id, err := s.findCategory(ctx, s.config.SentinelCategory)
	if err != nil {
		return nil, err
	}
	cache[name] = id
	return id, nil
}

func (s *ImportService) findCategory(ctx context.Context, name string) (*uuid.UUID, error) {
	if name == "" {
		return nil, nil
	}
	category, err := s.categories.FindByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up category %q: %w", name, err)
	}
	id := category.ID
	return &id, nil
}

// resolveImages links the fuzzy imagen token first, then the explicit ids in order.
func (s *ImportService) resolveImages(ctx context.Context, row importer.CatalogRow) (pq.StringArray, error) {
	var out pq.StringArray
	seen := make(map[uuid.UUID]bool)

	if token := strings.TrimSpace(row.Image); token != "" {
		image, err := s.images.FindByToken(ctx, token)
		switch {
		case err == nil:
			out = append(out, image.ID.String())
			seen[image.ID] = true
		case errors.Is(err, repository.ErrNotFound):
			s.logger.WithField("token", token).Debug("No stored image matches token")
		default:
			return nil, fmt.Errorf("failed to look up image %q: %w", token, err)
		}
	}

	var requested []uuid.UUID
	for _, raw := range row.ImageIDs() {
		id, err := uuid.Parse(raw)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		requested = append(requested, id)
	}
	if len(requested) == 0 {
		return out, nil
	}

	found, err := s.images.FindByIDs(ctx, requested)
	if err != nil {
		return nil, fmt.Errorf("failed to look up images: %w", err)
	}
	known := make(map[uuid.UUID]bool, len(found))
	for _, image := range found {
		known[image.ID] = true
	}
	for _, id := range requested {
		if known[id] {
			out = append(out, id.String())
		}
	}
	return out, nil
}

// CreateJob records a pending import for the given source.
func (s *ImportService) CreateJob(ctx context.Context, sourceType models.ImportSourceType, source string) (*models.ImportJob, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, &ValidationError{Message: "import source is required", Fields: map[string]string{"source": "source is required"}}
	}

	job := &models.ImportJob{
		Status:     models.ImportStatusPending,
		SourceType: sourceType,
		Source:     source,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, &PersistenceError{Op: "create import job", Err: err}
	}
	return job, nil
}

func (s *ImportService) GetJob(ctx context.Context, id uuid.UUID) (*models.ImportJob, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "import job", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import job: %w", err)
	}
	return job, nil
}

func (s *ImportService) ListJobs(ctx context.Context, offset, limit int) ([]models.ImportJob, int64, error) {
	jobs, total, err := s.jobs.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list import jobs: %w", err)
	}
	return jobs, total, nil
}

// RunJob drives one pending job to completed or failed. A job already claimed
// by another worker is returned as stored, untouched.
func (s *ImportService) RunJob(ctx context.Context, id uuid.UUID) (*models.ImportJob, error) {
	claimed, err := s.jobs.MarkProcessing(ctx, id, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to claim import job: %w", err)
	}
	if !claimed {
		job, err := s.GetJob(ctx, id)
		if err == nil && !job.IsTerminal() {
			s.logger.WithFields(logrus.Fields{"job_id": id, "status": job.Status}).Info("Import job already claimed by another runner")
		}
		return job, err
	}

	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	logger := s.logger.WithFields(logrus.Fields{"job_id": job.ID, "source": job.Source})
	logger.Info("Import job started")

	result, runErr := s.runSource(ctx, job)

	finished := time.Now()
	job.FinishedAt = &finished
	job.Created = result.Created
	job.Updated = result.Updated
	job.Skipped = result.Skipped
	job.FailedRows = result.Failed
	if runErr != nil {
		job.Status = models.ImportStatusFailed
		job.Error = runErr.Error()
		logger.WithError(runErr).Error("Import job failed")
	} else {
		job.Status = models.ImportStatusCompleted
		job.Error = ""
		logger.Info("Import job completed")
	}
	s.metrics.RecordImportJob(string(job.Status))

	// The outcome must be stored even if the caller went away mid-batch.
	if err := s.jobs.Save(context.WithoutCancel(ctx), job); err != nil {
		return nil, &PersistenceError{Op: "save import job", Err: err}
	}
	return job, nil
}

func (s *ImportService) runSource(ctx context.Context, job *models.ImportJob) (ImportResult, error) {
	if s.fetcher == nil {
		return ImportResult{}, fmt.Errorf("no source fetcher configured")
	}

	src, err := s.fetcher.Open(ctx, job.SourceType, job.Source)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to open source: %w", err)
	}

	rows, err := importer.ReadRows(src.Reader(), src.Format)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to read %s: %w", src.Name, err)
	}

	return s.ImportBatch(ctx, rows)
}

// ProcessPending runs up to limit pending jobs, oldest first, and reports how many it ran.
func (s *ImportService) ProcessPending(ctx context.Context, limit int) (int, error) {
	jobs, err := s.jobs.ListByStatus(ctx, models.ImportStatusPending, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending import jobs: %w", err)
	}

	ran := 0
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return ran, err
		}
		if _, err := s.RunJob(ctx, job.ID); err != nil {
			s.logger.WithError(err).WithField("job_id", job.ID).Error("Failed to run pending import job")
			continue
		}
		ran++
	}
	return ran, nil
}
