// internal/repository/gorm.go
package repository

import "gorm.io/gorm"

// NewGormRepositories wires every gorm-backed store against db.
func NewGormRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Products:   NewProductRepository(db),
		Categories: NewCategoryRepository(db),
		Images:     NewImageRepository(db),
		Orders:     NewOrderRepository(db),
		ImportJobs: NewImportJobRepository(db),
	}
}
