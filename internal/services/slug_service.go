// internal/services/slug_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/javajoker/storefront-backend/internal/repository"
)

const (
	fallbackSlug    = "producto"
	maxSlugAttempts = 10000
)

type SlugService struct {
	products repository.ProductRepository
}

func NewSlugService(products repository.ProductRepository) *SlugService {
	return &SlugService{products: products}
}

// BaseSlug lowercases, strips diacritics and collapses every run of
// characters outside [a-z0-9] into a single hyphen.
func BaseSlug(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(stripped) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	if b.Len() == 0 {
		return fallbackSlug
	}
	return b.String()
}

// Generate returns the first free slug among base, base-2, base-3, ...
// The answer is only a candidate: the unique index on products.slug decides.
func (s *SlugService) Generate(ctx context.Context, name string) (string, error) {
	return s.generateFrom(ctx, BaseSlug(name), 1)
}

// GenerateAfter skips candidates up to and including the given suffix; used
// after losing an insert race on a slug that looked free.
func (s *SlugService) GenerateAfter(ctx context.Context, name string, suffix int) (string, error) {
	return s.generateFrom(ctx, BaseSlug(name), suffix+1)
}

func (s *SlugService) generateFrom(ctx context.Context, base string, start int) (string, error) {
	for n := start; n < maxSlugAttempts; n++ {
		candidate := base
		if n > 1 {
			candidate = fmt.Sprintf("%s-%d", base, n)
		}

		exists, err := s.products.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %q: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", base, maxSlugAttempts)
}

// slugSuffix returns the numeric suffix Generate would have used for slug.
func slugSuffix(base, slug string) int {
	if slug == base {
		return 1
	}
	var n int
	if _, err := fmt.Sscanf(strings.TrimPrefix(slug, base+"-"), "%d", &n); err != nil || n < 2 {
		return 1
	}
	return n
}
