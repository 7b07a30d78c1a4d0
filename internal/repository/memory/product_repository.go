// internal/repository/memory/product_repository.go
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
)

// ProductRepository is a mutex-guarded in-memory product store for tests and local runs.
type ProductRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]models.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{items: make(map[uuid.UUID]models.Product)}
}

func (r *ProductRepository) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneProduct(product), nil
}

func (r *ProductRepository) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if product, ok := r.items[id]; ok {
			result = append(result, *cloneProduct(product))
		}
	}
	return result, nil
}

func (r *ProductRepository) FindByCode(_ context.Context, code string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, product := range r.items {
		if product.Code == code {
			return cloneProduct(product), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *ProductRepository) SlugExists(_ context.Context, slug string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, product := range r.items {
		if product.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *ProductRepository) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Code == product.Code {
			return repository.ErrDuplicateCode
		}
		if existing.Slug == product.Slug {
			return repository.ErrDuplicateSlug
		}
	}

	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	r.items[product.ID] = *cloneProduct(*product)
	return nil
}

func (r *ProductRepository) UpdateFromImport(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[product.ID]
	if !ok {
		return repository.ErrNotFound
	}

	current.ProductName = product.ProductName
	current.Description = product.Description
	current.Price = product.Price
	current.WholesalePrice = product.WholesalePrice
	current.Stock = product.Stock
	current.Department = product.Department
	current.SubDepartment = product.SubDepartment
	current.ProductType = product.ProductType
	current.Brand = product.Brand
	current.Series = product.Series
	current.CategoryID = product.CategoryID
	current.Images = append([]string(nil), product.Images...)
	current.Active = product.Active
	current.UpdatedAt = time.Now()
	r.items[product.ID] = current
	return nil
}

func (r *ProductRepository) DecrementStock(_ context.Context, id uuid.UUID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}

	product.Stock -= qty
	if product.Stock < 0 {
		product.Stock = 0
	}
	r.items[id] = product
	return nil
}

// All returns a snapshot of every stored product.
func (r *ProductRepository) All() []models.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.Product, 0, len(r.items))
	for _, product := range r.items {
		result = append(result, *cloneProduct(product))
	}
	return result
}

func cloneProduct(p models.Product) *models.Product {
	if p.Images != nil {
		p.Images = append([]string(nil), p.Images...)
	}
	if p.CategoryID != nil {
		id := *p.CategoryID
		p.CategoryID = &id
	}
	return &p
}

var _ repository.ProductRepository = (*ProductRepository)(nil)
