package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tiermaster/backend/internal/models"
)

// Catalog reads groups, categories and items.
type Catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// Category loads one category with its group.
func (c *Catalog) Category(ctx context.Context, id uint) (models.Category, error) {
	var cat models.Category
	err := c.db.WithContext(ctx).Preload("Group").Take(&cat, id).Error
	if err != nil {
		if isNotFound(err) {
			return models.Category{}, models.ErrNotFound
		}
		return models.Category{}, fmt.Errorf("loading category %d: %w", id, err)
	}
	return cat, nil
}

// Categories lists all categories with their groups, ordered by group then name.
func (c *Catalog) Categories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	err := c.db.WithContext(ctx).
		Preload("Group").
		Order("group_id, name").
		Find(&cats).Error
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return cats, nil
}

// Groups lists all groups by name.
func (c *Catalog) Groups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := c.db.WithContext(ctx).Order("name").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	return groups, nil
}

// FirstCategories returns up to n categories in id order.
func (c *Catalog) FirstCategories(ctx context.Context, n int) ([]models.Category, error) {
	var cats []models.Category
	err := c.db.WithContext(ctx).
		Preload("Group").
		Order("id").
		Limit(n).
		Find(&cats).Error
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return cats, nil
}

// ItemsByCategory returns a category's items, most voted first. A limit of
// zero or less returns all of them.
func (c *Catalog) ItemsByCategory(ctx context.Context, categoryID uint, limit int) ([]models.Item, error) {
	q := c.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("votes DESC, id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var items []models.Item
	if err := q.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing items of category %d: %w", categoryID, err)
	}
	return items, nil
}

// Item loads one item with its category and group.
func (c *Catalog) Item(ctx context.Context, id uint) (models.Item, error) {
	var item models.Item
	err := c.db.WithContext(ctx).Preload("Category.Group").Take(&item, id).Error
	if err != nil {
		if isNotFound(err) {
			return models.Item{}, models.ErrNotFound
		}
		return models.Item{}, fmt.Errorf("loading item %d: %w", id, err)
	}
	return item, nil
}

// RelatedItems returns other items of the same category, most voted first.
func (c *Catalog) RelatedItems(ctx context.Context, categoryID, excludeID uint, limit int) ([]models.Item, error) {
	var items []models.Item
	err := c.db.WithContext(ctx).
		Where("category_id = ? AND id <> ?", categoryID, excludeID).
		Order("votes DESC, id").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("listing related items: %w", err)
	}
	return items, nil
}

// CreateItem inserts an item with a zero counter; votes only ever arrive
// through the ledger.
func (c *Catalog) CreateItem(ctx context.Context, name string, categoryID uint) (models.Item, error) {
	item := models.Item{Name: name, CategoryID: categoryID}
	err := c.db.WithContext(ctx).Omit("Category").Create(&item).Error
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Item{}, models.ErrNotFound
		}
		return models.Item{}, fmt.Errorf("creating item: %w", err)
	}
	return item, nil
}
