package database

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lib/pq"

	"github.com/tiermaster/backend/internal/models"
)

//go:embed seed.yaml
var defaultSeed []byte

// SeedCatalog is the document shape of seed.yaml.
type SeedCatalog struct {
	Groups []struct {
		Name       string `yaml:"name"`
		Categories []struct {
			Name  string   `yaml:"name"`
			Items []string `yaml:"items"`
		} `yaml:"categories"`
	} `yaml:"groups"`
}

// SeedResult counts the rows a seed run created.
type SeedResult struct {
	Groups     int `json:"groups"`
	Categories int `json:"categories"`
	Items      int `json:"items"`
}

// ParseSeed decodes a catalog document. Nil data selects the built-in one.
func ParseSeed(data []byte) (SeedCatalog, error) {
	if data == nil {
		data = defaultSeed
	}
	var cat SeedCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return SeedCatalog{}, fmt.Errorf("parsing seed catalog: %w", err)
	}
	return cat, nil
}

// Seed inserts the catalog's groups, categories and items, skipping any that
// already exist, so it can be run repeatedly. Items always start at zero votes.
func Seed(ctx context.Context, db *gorm.DB, catalog SeedCatalog) (SeedResult, error) {
	var res SeedResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, g := range catalog.Groups {
			group := models.Group{Name: g.Name}
			created, err := firstOrCreate(tx, &group, "name = ?", g.Name)
			if err != nil {
				return fmt.Errorf("seeding group %q: %w", g.Name, err)
			}
			if created {
				res.Groups++
			}

			for _, c := range g.Categories {
				category := models.Category{GroupID: group.ID, Name: c.Name}
				created, err := firstOrCreate(tx, &category, "group_id = ? AND name = ?", group.ID, c.Name)
				if err != nil {
					return fmt.Errorf("seeding category %q: %w", c.Name, err)
				}
				if created {
					res.Categories++
				}

				for _, name := range c.Items {
					item := models.Item{CategoryID: category.ID, Name: name}
					created, err := firstOrCreate(tx, &item, "category_id = ? AND name = ?", category.ID, name)
					if err != nil {
						return fmt.Errorf("seeding item %q: %w", name, err)
					}
					if created {
						res.Items++
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}
	slog.Info("catalog seeded", "groups", res.Groups, "categories", res.Categories, "items", res.Items)
	return res, nil
}

func firstOrCreate(tx *gorm.DB, dst any, query string, args ...any) (bool, error) {
	r := tx.Omit(clause.Associations).Where(query, args...).FirstOrCreate(dst)
	return r.RowsAffected > 0, r.Error
}

// resetTables are emptied by Reset. Users are kept.
var resetTables = []string{"votes", "item_suggestions", "items", "categories", "groups"}

// Reset empties the catalog, its votes and its suggestions and restarts
// their id sequences. Accounts survive.
func Reset(ctx context.Context, db *gorm.DB) error {
	quoted := make([]string, len(resetTables))
	for i, t := range resetTables {
		quoted[i] = pq.QuoteIdentifier(t)
	}
	stmt := "TRUNCATE TABLE " + strings.Join(quoted, ", ") + " RESTART IDENTITY CASCADE"

	if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
		return fmt.Errorf("resetting catalog: %w", err)
	}
	slog.Warn("catalog reset", "tables", resetTables)
	return nil
}

// Maintenance runs the destructive catalog operations exposed to admins.
type Maintenance struct {
	db   *gorm.DB
	seed []byte
}

// NewMaintenance seeds from seedData, or from the built-in catalog when nil.
func NewMaintenance(db *gorm.DB, seedData []byte) *Maintenance {
	return &Maintenance{db: db, seed: seedData}
}

func (m *Maintenance) Seed(ctx context.Context) (SeedResult, error) {
	catalog, err := ParseSeed(m.seed)
	if err != nil {
		return SeedResult{}, err
	}
	return Seed(ctx, m.db, catalog)
}

func (m *Maintenance) Reset(ctx context.Context) error {
	return Reset(ctx, m.db)
}
