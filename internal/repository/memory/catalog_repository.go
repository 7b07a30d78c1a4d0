// internal/repository/memory/catalog_repository.go
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
)

type CategoryRepository struct {
	mu    sync.RWMutex
	items map[string]models.Category
}

func NewCategoryRepository() *CategoryRepository {
	return &CategoryRepository{items: make(map[string]models.Category)}
}

func (r *CategoryRepository) FindByName(_ context.Context, name string) (*models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	category, ok := r.items[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &category, nil
}

func (r *CategoryRepository) Create(_ context.Context, category *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[category.Name]; exists {
		return repository.ErrDuplicateCode
	}
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	category.CreatedAt = time.Now()
	category.UpdatedAt = category.CreatedAt
	r.items[category.Name] = *category
	return nil
}

type ImageRepository struct {
	mu    sync.RWMutex
	items []models.Image
}

func NewImageRepository() *ImageRepository {
	return &ImageRepository{}
}

func (r *ImageRepository) FindByToken(_ context.Context, token string) (*models.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(token)
	for _, image := range r.items {
		if strings.Contains(strings.ToLower(image.Name), needle) ||
			strings.Contains(strings.ToLower(image.Hash), needle) {
			found := image
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *ImageRepository) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	var result []models.Image
	for _, image := range r.items {
		if _, ok := wanted[image.ID]; ok {
			result = append(result, image)
		}
	}
	return result, nil
}

func (r *ImageRepository) Create(_ context.Context, image *models.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if image.ID == uuid.Nil {
		image.ID = uuid.New()
	}
	image.CreatedAt = time.Now()
	image.UpdatedAt = image.CreatedAt
	// Append order is creation order, matching the oldest-first gorm lookup.
	r.items = append(r.items, *image)
	return nil
}

var (
	_ repository.CategoryRepository = (*CategoryRepository)(nil)
	_ repository.ImageRepository    = (*ImageRepository)(nil)
)
