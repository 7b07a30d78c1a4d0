// internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicateSlug      = errors.New("slug already taken")
	ErrDuplicateCode      = errors.New("product code already exists")
	ErrDuplicateSession   = errors.New("order for gateway session already exists")
	ErrDuplicateReference = errors.New("order reference already exists")
)

type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// FindByIDs returns the products that exist; missing ids are simply absent.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	FindByCode(ctx context.Context, code string) (*models.Product, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, product *models.Product) error
	// UpdateFromImport overwrites the importable columns. Slug is never written.
	UpdateFromImport(ctx context.Context, product *models.Product) error
	// DecrementStock lowers stock by qty in one statement, floored at zero.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) error
}

type CategoryRepository interface {
	FindByName(ctx context.Context, name string) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
}

type ImageRepository interface {
	// FindByToken returns the oldest image whose name or hash contains token, case-insensitively.
	FindByToken(ctx context.Context, token string) (*models.Image, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Image, error)
	Create(ctx context.Context, image *models.Image) error
}

// PaidUpdate carries the fields written by the pending to paid transition.
type PaidUpdate struct {
	ShippingAddress models.JSONB
	PaymentMeta     models.JSONB
	PaidAt          time.Time
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	// MarkPaid applies the transition only while the order is pending and
	// reports whether this call was the one that applied it.
	MarkPaid(ctx context.Context, sessionID string, update PaidUpdate) (bool, error)
	MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error
}

type ImportJobRepository interface {
	Create(ctx context.Context, job *models.ImportJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ImportJob, error)
	Save(ctx context.Context, job *models.ImportJob) error
	// MarkProcessing claims a pending job. False means another worker got it first.
	MarkProcessing(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ListByStatus(ctx context.Context, status models.ImportStatus, limit int) ([]models.ImportJob, error)
	List(ctx context.Context, offset, limit int) ([]models.ImportJob, int64, error)
}

// Repositories groups every store the services depend on.
type Repositories struct {
	Products   ProductRepository
	Categories CategoryRepository
	Images     ImageRepository
	Orders     OrderRepository
	ImportJobs ImportJobRepository
}
