package category

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/dyluth/gather/internal/logging"
	"github.com/dyluth/gather/pkg/store"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultColor is used for categories without a colour.
const DefaultColor = "#FFFFFF"

// FallbackLanguage is tried when a category lacks the requested translation.
const FallbackLanguage = "en"

// CatalogStore is the slice of the document store the catalog needs.
type CatalogStore interface {
	ListCategories(ctx context.Context) ([]*store.Category, error)
	PutCategory(ctx context.Context, c *store.Category) error
}

// Catalog reads the static category list maintained by operators.
type Catalog struct {
	store  CatalogStore
	logger *zap.Logger
}

// NewCatalog creates a catalog reader. logger may be nil.
func NewCatalog(s CatalogStore, logger *zap.Logger) *Catalog {
	return &Catalog{
		store:  s,
		logger: logging.OrNop(logger).Named("catalog"),
	}
}

// Available maps each category's display name in lang to its id.
// Missing translations fall back to English, then to the
// alphabetically first language. Untranslated categories are skipped.
func (c *Catalog) Available(ctx context.Context, lang string) (map[string]string, error) {
	categories, err := c.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	out := make(map[string]string, len(categories))
	for _, cat := range categories {
		if name, ok := displayName(cat, lang); ok {
			out[name] = cat.ID
		}
	}
	return out, nil
}

// Colors maps each category id to its colour, DefaultColor when unset.
func (c *Catalog) Colors(ctx context.Context) (map[string]string, error) {
	categories, err := c.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	out := make(map[string]string, len(categories))
	for _, cat := range categories {
		color := cat.ColorHex
		if color == "" {
			color = DefaultColor
		}
		out[cat.ID] = color
	}
	return out, nil
}

// List returns the full catalog ordered by id.
func (c *Catalog) List(ctx context.Context) ([]*store.Category, error) {
	categories, err := c.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// catalogFile is the YAML layout accepted by Seed.
type catalogFile struct {
	Categories []struct {
		ID           string            `yaml:"id"`
		Color        string            `yaml:"color"`
		Translations map[string]string `yaml:"translations"`
	} `yaml:"categories"`
}

// Seed upserts every category of a YAML catalog and returns how many were written.
//
//	categories:
//	  - id: music
//	    color: "#E91E63"
//	    translations: {en: Music, es: Música}
func (c *Catalog) Seed(ctx context.Context, r io.Reader) (int, error) {
	var file catalogFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return 0, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]bool, len(file.Categories))
	for i, entry := range file.Categories {
		if entry.ID == "" {
			return 0, fmt.Errorf("catalog entry %d: id is required", i)
		}
		if seen[entry.ID] {
			return 0, fmt.Errorf("catalog entry %d: duplicate id %q", i, entry.ID)
		}
		seen[entry.ID] = true
	}

	for _, entry := range file.Categories {
		cat := &store.Category{
			ID:           entry.ID,
			ColorHex:     entry.Color,
			Translations: entry.Translations,
		}
		if err := c.store.PutCategory(ctx, cat); err != nil {
			return 0, fmt.Errorf("seed category %s: %w", entry.ID, err)
		}
	}

	c.logger.Info("catalog seeded", zap.Int("categories", len(file.Categories)))
	return len(file.Categories), nil
}

func displayName(cat *store.Category, lang string) (string, bool) {
	if name := cat.Translations[lang]; name != "" {
		return name, true
	}
	if name := cat.Translations[FallbackLanguage]; name != "" {
		return name, true
	}

	langs := make([]string, 0, len(cat.Translations))
	for l, name := range cat.Translations {
		if name != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 {
		return "", false
	}
	sort.Strings(langs)
	return cat.Translations[langs[0]], true
}
