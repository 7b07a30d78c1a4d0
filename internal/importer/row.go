// internal/importer/row.go
package importer

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CatalogRow is the typed shape of one catalog spreadsheet line.
// Headers are matched after folding case, accents and separators.
type CatalogRow struct {
	Code           string `mapstructure:"codigo"`
	Description    string `mapstructure:"descripcion"`
	Category       string `mapstructure:"categoria"`
	Price          string `mapstructure:"precio"`
	WholesalePrice string `mapstructure:"preciomayoreo"`
	Stock          string `mapstructure:"stock"`
	Department     string `mapstructure:"departamento"`
	SubDepartment  string `mapstructure:"subdepartamento"`
	ProductType    string `mapstructure:"tipoproducto"`
	Brand          string `mapstructure:"marca"`
	Series         string `mapstructure:"series"`
	Image          string `mapstructure:"imagen"`
	Images         string `mapstructure:"imagenes"`
}

var headerAliases = map[string]string{
	"brand": "marca",
	"serie": "series",
	"code":  "codigo",
}

// DecodeRow maps a raw row onto CatalogRow. Unknown columns are ignored.
func DecodeRow(raw Row) (CatalogRow, error) {
	folded := make(map[string]string, len(raw))
	aliased := make(map[string]string)
	for k, v := range raw {
		key := foldHeader(k)
		if canonical, ok := headerAliases[key]; ok {
			aliased[canonical] = strings.TrimSpace(v)
			continue
		}
		folded[key] = strings.TrimSpace(v)
	}
	// An alias only fills a column the canonical header left empty.
	for key, v := range aliased {
		if folded[key] == "" {
			folded[key] = v
		}
	}

	var row CatalogRow
	if err := mapstructure.Decode(folded, &row); err != nil {
		return CatalogRow{}, fmt.Errorf("failed to decode catalog row: %w", err)
	}
	return row, nil
}

// Skippable reports rows without a code or description.
func (r CatalogRow) Skippable() bool {
	return strings.TrimSpace(r.Code) == "" || strings.TrimSpace(r.Description) == ""
}

func (r CatalogRow) PriceValue() decimal.Decimal {
	return CleanNumber(r.Price)
}

func (r CatalogRow) WholesalePriceValue() decimal.Decimal {
	return CleanNumber(r.WholesalePrice)
}

// StockValue floors the cleaned stock cell to a non-negative integer.
func (r CatalogRow) StockValue() int {
	stock := CleanNumber(r.Stock).Floor().IntPart()
	if stock < 0 {
		return 0
	}
	return int(stock)
}

// CleanNumber keeps only digits and dots, then parses. Anything unparseable is zero.
func CleanNumber(s string) decimal.Decimal {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return value.Round(2)
}

// ImageIDs parses the imagenes cell, either a JSON array or a comma list, keeping order.
func (r CatalogRow) ImageIDs() []string {
	raw := strings.TrimSpace(r.Images)
	if raw == "" {
		return nil
	}

	var parts []string
	if strings.HasPrefix(raw, "[") {
		var values []interface{}
		if err := json.Unmarshal([]byte(raw), &values); err == nil {
			for _, v := range values {
				s, err := cast.ToStringE(v)
				if err != nil {
					continue
				}
				parts = append(parts, s)
			}
		} else {
			parts = strings.Split(strings.Trim(raw, "[]"), ",")
		}
	} else {
		parts = strings.Split(raw, ",")
	}

	ids := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		id := strings.Trim(strings.TrimSpace(p), `"'`)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func foldHeader(h string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(h))
	if err != nil {
		folded = h
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
