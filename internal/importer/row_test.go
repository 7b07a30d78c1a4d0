// internal/importer/row_test.go
package importer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRow(t *testing.T) {
	row, err := DecodeRow(Row{
		"Código":           "A1",
		"Descripción":      "Filtro de aceite",
		"precioMayoreo":    "80",
		"Sub Departamento": "Motor",
		"tipo_producto":    "Refacción",
		"brand":            "Gonher",
		"extra":            "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, "A1", row.Code)
	assert.Equal(t, "Filtro de aceite", row.Description)
	assert.Equal(t, "80", row.WholesalePrice)
	assert.Equal(t, "Motor", row.SubDepartment)
	assert.Equal(t, "Refacción", row.ProductType)
	assert.Equal(t, "Gonher", row.Brand)
}

func TestDecodeRowCanonicalBeatsAlias(t *testing.T) {
	row, err := DecodeRow(Row{"marca": "Bosch", "brand": "Gonher"})
	require.NoError(t, err)
	assert.Equal(t, "Bosch", row.Brand)

	row, err = DecodeRow(Row{"marca": "", "brand": "Gonher"})
	require.NoError(t, err)
	assert.Equal(t, "Gonher", row.Brand)
}

func TestSkippable(t *testing.T) {
	assert.True(t, CatalogRow{Code: " ", Description: "x"}.Skippable())
	assert.True(t, CatalogRow{Code: "A1", Description: ""}.Skippable())
	assert.False(t, CatalogRow{Code: "A1", Description: "Filtro"}.Skippable())
}

func TestCleanNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$1,250.50", "1250.5"},
		{"100", "100"},
		{" 99.999 ", "100"},
		{"", "0"},
		{"N/A", "0"},
		{"1.2.3", "0"},
		{"-5", "5"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.True(t, decimal.RequireFromString(tt.want).Equal(CleanNumber(tt.in)), "got %s", CleanNumber(tt.in))
		})
	}
}

func TestStockValueFloors(t *testing.T) {
	assert.Equal(t, 12, CatalogRow{Stock: "12.9"}.StockValue())
	assert.Equal(t, 0, CatalogRow{Stock: "sin existencia"}.StockValue())
	assert.Equal(t, 3, CatalogRow{Stock: "3 pzas"}.StockValue())
}

func TestImageIDs(t *testing.T) {
	const a = "6f1c2a8e-0a55-4c25-9f3c-0cf0f1c6d001"
	const b = "6f1c2a8e-0a55-4c25-9f3c-0cf0f1c6d002"

	assert.Equal(t, []string{a, b}, CatalogRow{Images: `["` + a + `","` + b + `"]`}.ImageIDs())
	assert.Equal(t, []string{a, b}, CatalogRow{Images: a + " , " + b + "," + a}.ImageIDs())
	assert.Equal(t, []string{"12", "7"}, CatalogRow{Images: `[12, 7]`}.ImageIDs())
	assert.Equal(t, []string{a}, CatalogRow{Images: `[` + a + `]`}.ImageIDs())
	assert.Nil(t, CatalogRow{}.ImageIDs())
}
