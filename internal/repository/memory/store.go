// internal/repository/memory/store.go
package memory

import "github.com/javajoker/storefront-backend/internal/repository"

// Store bundles the in-memory repositories with their concrete types exposed,
// so tests can seed and inspect state directly.
type Store struct {
	Products   *ProductRepository
	Categories *CategoryRepository
	Images     *ImageRepository
	Orders     *OrderRepository
	ImportJobs *ImportJobRepository
}

func NewStore() *Store {
	return &Store{
		Products:   NewProductRepository(),
		Categories: NewCategoryRepository(),
		Images:     NewImageRepository(),
		Orders:     NewOrderRepository(),
		ImportJobs: NewImportJobRepository(),
	}
}

func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Products:   s.Products,
		Categories: s.Categories,
		Images:     s.Images,
		Orders:     s.Orders,
		ImportJobs: s.ImportJobs,
	}
}
