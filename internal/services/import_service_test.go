// internal/services/import_service_test.go
package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/storefront-backend/internal/importer"
	"github.com/javajoker/storefront-backend/internal/metrics"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
	"github.com/javajoker/storefront-backend/internal/repository/memory"
)

type ImportServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.Store
	fetcher staticFetcher
	service *ImportService
}

func (suite *ImportServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = memory.NewStore()
	suite.fetcher = staticFetcher{}
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	suite.service = NewImportService(suite.store.Repositories(), suite.fetcher, m, testConfig().Importer)
}

func (suite *ImportServiceTestSuite) TestSameCodeTwiceCreatesThenUpdates() {
	rows := []importer.Row{
		{"codigo": "A1", "descripcion": "Filtro de aceite", "precio": "$100.00", "stock": "5"},
		{"codigo": "A1", "descripcion": "Filtro de aceite premium", "precio": "120", "stock": "7"},
	}

	result, err := suite.service.ImportBatch(suite.ctx, rows)
	suite.Require().NoError(err)
	suite.Equal(ImportResult{Created: 1, Updated: 1}, result)

	all := suite.store.Products.All()
	suite.Require().Len(all, 1)
	suite.Equal("Filtro de aceite premium", all[0].ProductName)
	suite.Equal("filtro-de-aceite", all[0].Slug)
	suite.Equal(7, all[0].Stock)
	suite.Equal("120", all[0].Price.String())
}

func (suite *ImportServiceTestSuite) TestReimportKeepsSlug() {
	row := importer.Row{"codigo": "B7", "descripcion": "Bujía NGK"}

	_, err := suite.service.ImportBatch(suite.ctx, []importer.Row{row})
	suite.Require().NoError(err)
	before, err := suite.store.Products.FindByCode(suite.ctx, "B7")
	suite.Require().NoError(err)

	row["descripcion"] = "Bujía NGK Iridium"
	_, err = suite.service.ImportBatch(suite.ctx, []importer.Row{row})
	suite.Require().NoError(err)
	after, err := suite.store.Products.FindByCode(suite.ctx, "B7")
	suite.Require().NoError(err)

	suite.Equal("bujia-ngk", before.Slug)
	suite.Equal(before.Slug, after.Slug)
	suite.Equal("Bujía NGK Iridium", after.ProductName)
}

func (suite *ImportServiceTestSuite) TestSameDescriptionDifferentCodesGetDistinctSlugs() {
	rows := []importer.Row{
		{"codigo": "C1", "descripcion": "Balata delantera"},
		{"codigo": "C2", "descripcion": "Balata Delantera"},
		{"codigo": "C3", "descripcion": "balata   delantera"},
	}

	result, err := suite.service.ImportBatch(suite.ctx, rows)
	suite.Require().NoError(err)
	suite.Equal(3, result.Created)

	slugs := map[string]bool{}
	for _, code := range []string{"C1", "C2", "C3"} {
		p, err := suite.store.Products.FindByCode(suite.ctx, code)
		suite.Require().NoError(err)
		slugs[p.Slug] = true
	}
	suite.Equal(map[string]bool{"balata-delantera": true, "balata-delantera-2": true, "balata-delantera-3": true}, slugs)
}

func (suite *ImportServiceTestSuite) TestSkipsRowsWithoutCodeOrDescription() {
	rows := []importer.Row{
		{"codigo": "", "descripcion": "Sin código"},
		{"codigo": "D1", "descripcion": "  "},
		{"codigo": "D2", "descripcion": "Tapón"},
	}

	result, err := suite.service.ImportBatch(suite.ctx, rows)
	suite.Require().NoError(err)
	suite.Equal(ImportResult{Created: 1, Skipped: 2}, result)
}

func (suite *ImportServiceTestSuite) TestCategoryFallsBackToSentinel() {
	frenos := &models.Category{Name: "Frenos"}
	sentinel := &models.Category{Name: "Sin Clasificar"}
	suite.Require().NoError(suite.store.Categories.Create(suite.ctx, frenos))
	suite.Require().NoError(suite.store.Categories.Create(suite.ctx, sentinel))

	rows := []importer.Row{
		{"codigo": "E1", "descripcion": "Disco", "categoria": " Frenos "},
		{"codigo": "E2", "descripcion": "Manguera", "categoria": "Desconocida"},
		{"codigo": "E3", "descripcion": "Tornillo"},
	}
	_, err := suite.service.ImportBatch(suite.ctx, rows)
	suite.Require().NoError(err)

	e1, _ := suite.store.Products.FindByCode(suite.ctx, "E1")
	e2, _ := suite.store.Products.FindByCode(suite.ctx, "E2")
	e3, _ := suite.store.Products.FindByCode(suite.ctx, "E3")
	suite.Equal(frenos.ID, *e1.CategoryID)
	suite.Equal(sentinel.ID, *e2.CategoryID)
	suite.Equal(sentinel.ID, *e3.CategoryID)
}

func (suite *ImportServiceTestSuite) TestCategoryUnsetWithoutSentinel() {
	_, err := suite.service.ImportBatch(suite.ctx, []importer.Row{{"codigo": "F1", "descripcion": "Junta", "categoria": "Nada"}})
	suite.Require().NoError(err)

	f1, err := suite.store.Products.FindByCode(suite.ctx, "F1")
	suite.Require().NoError(err)
	suite.Nil(f1.CategoryID)
}

func (suite *ImportServiceTestSuite) TestResolvesImagesAndKeepsThemWhenRowHasNone() {
	token := &models.Image{Name: "FOTO_A1.jpg", Hash: "abc123"}
	first := &models.Image{Name: "lateral.png", Hash: "def"}
	second := &models.Image{Name: "frontal.png", Hash: "ghi"}
	for _, img := range []*models.Image{token, first, second} {
		suite.Require().NoError(suite.store.Images.Create(suite.ctx, img))
	}

	row := importer.Row{
		"codigo":      "G1",
		"descripcion": "Faro",
		"imagen":      "foto_a1",
		"imagenes":    `["` + second.ID.String() + `", "` + uuid.NewString() + `", "` + first.ID.String() + `"]`,
	}
	_, err := suite.service.ImportBatch(suite.ctx, []importer.Row{row})
	suite.Require().NoError(err)

	g1, err := suite.store.Products.FindByCode(suite.ctx, "G1")
	suite.Require().NoError(err)
	suite.Equal([]string{token.ID.String(), second.ID.String(), first.ID.String()}, []string(g1.Images))

	_, err = suite.service.ImportBatch(suite.ctx, []importer.Row{{"codigo": "G1", "descripcion": "Faro LED"}})
	suite.Require().NoError(err)
	g1, err = suite.store.Products.FindByCode(suite.ctx, "G1")
	suite.Require().NoError(err)
	suite.Len(g1.Images, 3)
}

func (suite *ImportServiceTestSuite) TestRunJobCompletesWithCounts() {
	suite.fetcher["catalogo.csv"] = &FetchedSource{
		Name:   "catalogo.csv",
		Format: importer.FormatCSV,
		Data:   []byte("codigo,descripcion,precio\nH1,Aceite,150\n,Sin codigo,1\nH1,Aceite sintético,180\n"),
	}

	job, err := suite.service.CreateJob(suite.ctx, models.ImportSourcePath, "catalogo.csv")
	suite.Require().NoError(err)
	suite.Equal(models.ImportStatusPending, job.Status)

	done, err := suite.service.RunJob(suite.ctx, job.ID)
	suite.Require().NoError(err)
	suite.Equal(models.ImportStatusCompleted, done.Status)
	suite.Equal(1, done.Created)
	suite.Equal(1, done.Updated)
	suite.Equal(1, done.Skipped)
	suite.NotNil(done.StartedAt)
	suite.NotNil(done.FinishedAt)
}

func (suite *ImportServiceTestSuite) TestRunJobFailsWhenSourceCannotBeRead() {
	job, err := suite.service.CreateJob(suite.ctx, models.ImportSourcePath, "missing.xlsx")
	suite.Require().NoError(err)

	done, err := suite.service.RunJob(suite.ctx, job.ID)
	suite.Require().NoError(err)
	suite.Equal(models.ImportStatusFailed, done.Status)
	suite.Contains(done.Error, "missing.xlsx")

	stored, err := suite.store.ImportJobs.FindByID(suite.ctx, job.ID)
	suite.Require().NoError(err)
	suite.Equal(models.ImportStatusFailed, stored.Status)
}

func (suite *ImportServiceTestSuite) TestRunJobTwiceDoesNotReprocess() {
	suite.fetcher["uno.csv"] = &FetchedSource{Name: "uno.csv", Format: importer.FormatCSV, Data: []byte("codigo,descripcion\nJ1,Perno\n")}
	job, err := suite.service.CreateJob(suite.ctx, models.ImportSourcePath, "uno.csv")
	suite.Require().NoError(err)

	_, err = suite.service.RunJob(suite.ctx, job.ID)
	suite.Require().NoError(err)
	again, err := suite.service.RunJob(suite.ctx, job.ID)
	suite.Require().NoError(err)

	suite.Equal(models.ImportStatusCompleted, again.Status)
	suite.Equal(1, again.Created)
	suite.Len(suite.store.Products.All(), 1)
}

func (suite *ImportServiceTestSuite) TestRunJobLeavesJobClaimedElsewhere() {
	suite.fetcher["dos.csv"] = &FetchedSource{Name: "dos.csv", Format: importer.FormatCSV, Data: []byte("codigo,descripcion\nJ2,Tuerca\n")}
	job, err := suite.service.CreateJob(suite.ctx, models.ImportSourcePath, "dos.csv")
	suite.Require().NoError(err)
	claimed, err := suite.store.ImportJobs.MarkProcessing(suite.ctx, job.ID, time.Now())
	suite.Require().NoError(err)
	suite.Require().True(claimed)

	got, err := suite.service.RunJob(suite.ctx, job.ID)
	suite.Require().NoError(err)

	suite.Equal(models.ImportStatusProcessing, got.Status)
	suite.False(got.IsTerminal())
	suite.Empty(suite.store.Products.All())
}

func (suite *ImportServiceTestSuite) TestProcessPending() {
	suite.fetcher["a.csv"] = &FetchedSource{Name: "a.csv", Format: importer.FormatCSV, Data: []byte("codigo,descripcion\nK1,Rondana\n")}
	suite.fetcher["b.csv"] = &FetchedSource{Name: "b.csv", Format: importer.FormatCSV, Data: []byte("codigo,descripcion\nK2,Tuerca\n")}
	for _, src := range []string{"a.csv", "b.csv"} {
		_, err := suite.service.CreateJob(suite.ctx, models.ImportSourcePath, src)
		suite.Require().NoError(err)
	}

	ran, err := suite.service.ProcessPending(suite.ctx, 10)
	suite.Require().NoError(err)
	suite.Equal(2, ran)

	pending, err := suite.store.ImportJobs.ListByStatus(suite.ctx, models.ImportStatusPending, 10)
	suite.Require().NoError(err)
	suite.Empty(pending)
	suite.Len(suite.store.Products.All(), 2)
}

func (suite *ImportServiceTestSuite) TestCreateJobRequiresSource() {
	_, err := suite.service.CreateJob(suite.ctx, models.ImportSourcePath, "  ")
	var validationErr *ValidationError
	suite.True(errors.As(err, &validationErr))
}

func (suite *ImportServiceTestSuite) TestGetJobNotFound() {
	_, err := suite.service.GetJob(suite.ctx, uuid.New())
	var notFound *NotFoundError
	suite.True(errors.As(err, &notFound))
}

// racingProducts reports every slug as free and rejects the first insert,
// simulating a concurrent importer taking the slug.
type racingProducts struct {
	repository.ProductRepository
	rejected bool
}

func (r *racingProducts) SlugExists(context.Context, string) (bool, error) {
	return false, nil
}

func (r *racingProducts) Create(ctx context.Context, p *models.Product) error {
	if !r.rejected {
		r.rejected = true
		return repository.ErrDuplicateSlug
	}
	return r.ProductRepository.Create(ctx, p)
}

func (suite *ImportServiceTestSuite) TestRetriesSlugTakenConcurrently() {
	repos := suite.store.Repositories()
	repos.Products = &racingProducts{ProductRepository: suite.store.Products}
	service := NewImportService(repos, suite.fetcher, nil, testConfig().Importer)

	result, err := service.ImportBatch(suite.ctx, []importer.Row{{"codigo": "L1", "descripcion": "Soporte motor"}})
	suite.Require().NoError(err)
	suite.Equal(1, result.Created)

	l1, err := suite.store.Products.FindByCode(suite.ctx, "L1")
	suite.Require().NoError(err)
	suite.Equal("soporte-motor-2", l1.Slug)
}

func TestImportServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ImportServiceTestSuite))
}
