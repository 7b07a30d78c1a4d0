// internal/services/slug_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository/memory"
)

func TestBaseSlug(t *testing.T) {
	cases := map[string]string{
		"Filtro de Aceite":         "filtro-de-aceite",
		"  Bujía   NGK  ":          "bujia-ngk",
		"Amortiguador Trasero (2)": "amortiguador-trasero-2",
		"Pañuelo / Ñandú -- Ámbar": "panuelo-nandu-ambar",
		"---":                      "producto",
		"":                         "producto",
		"ÁÉÍÓÚ":                    "aeiou",
	}

	for name, want := range cases {
		assert.Equal(t, want, BaseSlug(name), "name %q", name)
	}
}

func TestSlugService_GenerateSkipsTakenSlugs(t *testing.T) {
	ctx := context.Background()
	products := memory.NewProductRepository()
	slugs := NewSlugService(products)

	first, err := slugs.Generate(ctx, "Filtro de Aceite")
	require.NoError(t, err)
	assert.Equal(t, "filtro-de-aceite", first)

	require.NoError(t, products.Create(ctx, &models.Product{Code: "A1", Slug: first}))
	second, err := slugs.Generate(ctx, "Filtro de aceite")
	require.NoError(t, err)
	assert.Equal(t, "filtro-de-aceite-2", second)

	require.NoError(t, products.Create(ctx, &models.Product{Code: "A2", Slug: second}))
	third, err := slugs.Generate(ctx, "FILTRO DE ACEITE")
	require.NoError(t, err)
	assert.Equal(t, "filtro-de-aceite-3", third)
}

func TestSlugService_GenerateAfter(t *testing.T) {
	slugs := NewSlugService(memory.NewProductRepository())

	slug, err := slugs.GenerateAfter(context.Background(), "Balata", 2)
	require.NoError(t, err)
	assert.Equal(t, "balata-3", slug)
}

func TestSlugSuffix(t *testing.T) {
	assert.Equal(t, 1, slugSuffix("balata", "balata"))
	assert.Equal(t, 4, slugSuffix("balata", "balata-4"))
	assert.Equal(t, 1, slugSuffix("balata", "balata-x"))
}
