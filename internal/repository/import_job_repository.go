// internal/repository/import_job_repository.go
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/models"
)

type importJobRepository struct {
	db *gorm.DB
}

func NewImportJobRepository(db *gorm.DB) ImportJobRepository {
	return &importJobRepository{db: db}
}

func (r *importJobRepository) Create(ctx context.Context, job *models.ImportJob) error {
	return translateError(r.db.WithContext(ctx).Create(job).Error)
}

func (r *importJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.ImportJob, error) {
	var job models.ImportJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &job, nil
}

func (r *importJobRepository) Save(ctx context.Context, job *models.ImportJob) error {
	if err := r.db.WithContext(ctx).Save(job).Error; err != nil {
		return fmt.Errorf("failed to save import job: %w", err)
	}
	return nil
}

func (r *importJobRepository) MarkProcessing(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ImportJob{}).
		Where("id = ? AND status = ?", id, models.ImportStatusPending).
		Updates(map[string]interface{}{
			"status":     models.ImportStatusProcessing,
			"started_at": at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim import job: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *importJobRepository) ListByStatus(ctx context.Context, status models.ImportStatus, limit int) ([]models.ImportJob, error) {
	query := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var jobs []models.ImportJob
	if err := query.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list import jobs: %w", err)
	}
	return jobs, nil
}

func (r *importJobRepository) List(ctx context.Context, offset, limit int) ([]models.ImportJob, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ImportJob{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count import jobs: %w", err)
	}

	var jobs []models.ImportJob
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&jobs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch import jobs: %w", err)
	}
	return jobs, total, nil
}
