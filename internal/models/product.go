// internal/models/product.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	Code           string          `json:"code" gorm:"size:100;uniqueIndex;not null"`
	ProductName    string          `json:"product_name" gorm:"size:255;not null"`
	Description    string          `json:"description" gorm:"type:text"`
	Price          decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null;default:0"`
	WholesalePrice decimal.Decimal `json:"wholesale_price" gorm:"type:decimal(12,2);not null;default:0"`
	Stock          int             `json:"stock" gorm:"not null;default:0"`
	Department     string          `json:"department" gorm:"size:100"`
	SubDepartment  string          `json:"sub_department" gorm:"size:100"`
	ProductType    string          `json:"product_type" gorm:"size:100"`
	Brand          string          `json:"brand" gorm:"size:100;index"`
	Series         string          `json:"series" gorm:"size:100"`
	CategoryID     *uuid.UUID      `json:"category_id" gorm:"type:uuid;index"`
	Images         pq.StringArray  `json:"images" gorm:"type:text[]"`
	Slug           string          `json:"slug" gorm:"size:255;uniqueIndex;not null"`
	Active         bool            `json:"active" gorm:"default:true;index"`
	IsFeatured     bool            `json:"is_featured" gorm:"default:false"`

	// Relationships
	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

// UnitPrice returns the wholesale price for business buyers when one is set.
func (p *Product) UnitPrice(business bool) decimal.Decimal {
	if business && p.WholesalePrice.GreaterThan(decimal.Zero) {
		return p.WholesalePrice
	}
	return p.Price
}

type Category struct {
	BaseModel
	Name        string `json:"name" gorm:"size:150;uniqueIndex;not null"`
	Description string `json:"description" gorm:"type:text"`
}

// Image is a stored asset previously uploaded through the CMS media library.
type Image struct {
	BaseModel
	Name string `json:"name" gorm:"size:255;index"`
	Hash string `json:"hash" gorm:"size:255;index"`
	URL  string `json:"url" gorm:"size:1024"`
}
