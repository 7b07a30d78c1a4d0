// internal/repository/catalog_repository.go
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/models"
)

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) FindByName(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&category).Error; err != nil {
		return nil, translateError(err)
	}
	return &category, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	return translateError(r.db.WithContext(ctx).Create(category).Error)
}

type imageRepository struct {
	db *gorm.DB
}

func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) FindByToken(ctx context.Context, token string) (*models.Image, error) {
	pattern := "%" + escapeLike(strings.ToLower(token)) + "%"

	var image models.Image
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? OR LOWER(hash) LIKE ?", pattern, pattern).
		Order("created_at ASC").
		First(&image).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &image, nil
}

func (r *imageRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Image, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var images []models.Image
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch images: %w", err)
	}
	return images, nil
}

func (r *imageRepository) Create(ctx context.Context, image *models.Image) error {
	return translateError(r.db.WithContext(ctx).Create(image).Error)
}
