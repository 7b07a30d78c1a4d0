// internal/repository/memory/import_job_repository.go
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
)

type ImportJobRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]models.ImportJob
}

func NewImportJobRepository() *ImportJobRepository {
	return &ImportJobRepository{items: make(map[uuid.UUID]models.ImportJob)}
}

func (r *ImportJobRepository) Create(_ context.Context, job *models.ImportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = models.ImportStatusPending
	}
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	r.items[job.ID] = *job
	return nil
}

func (r *ImportJobRepository) FindByID(_ context.Context, id uuid.UUID) (*models.ImportJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &job, nil
}

func (r *ImportJobRepository) Save(_ context.Context, job *models.ImportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job.UpdatedAt = time.Now()
	r.items[job.ID] = *job
	return nil
}

func (r *ImportJobRepository) MarkProcessing(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.items[id]
	if !ok || job.Status != models.ImportStatusPending {
		return false, nil
	}

	startedAt := at
	job.Status = models.ImportStatusProcessing
	job.StartedAt = &startedAt
	r.items[id] = job
	return true, nil
}

func (r *ImportJobRepository) ListByStatus(_ context.Context, status models.ImportStatus, limit int) ([]models.ImportJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.ImportJob
	for _, job := range r.items {
		if job.Status == status {
			result = append(result, job)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *ImportJobRepository) List(_ context.Context, offset, limit int) ([]models.ImportJob, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]models.ImportJob, 0, len(r.items))
	for _, job := range r.items {
		all = append(all, job)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := int64(len(all))
	if offset >= len(all) {
		return []models.ImportJob{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

var _ repository.ImportJobRepository = (*ImportJobRepository)(nil)
