package services

import (
	"context"
	"errors"
	"strings"

	"github.com/kendall-kelly/barter-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ItemCatalog gives the trade ledger access to items. A catalog obtained
// from WithTx reads rows with FOR UPDATE so the caller's transaction holds
// them until commit.
type ItemCatalog interface {
	Lookup(ctx context.Context, id uint) (*models.Item, error)
	LookupMany(ctx context.Context, ids []uint) ([]models.Item, error)
	SetStatus(ctx context.Context, ids []uint, status models.ItemStatus) error
	WithTx(tx *gorm.DB) ItemCatalog

	Create(ctx context.Context, item *models.Item) error
	ListAvailable(ctx context.Context, excludeOwner uint) ([]models.Item, error)
	ListAvailableByOwner(ctx context.Context, ownerID uint) ([]models.Item, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]models.Item, error)
	Delete(ctx context.Context, id, callerID uint) (*models.Item, error)
}

// GormItemCatalog is the gorm-backed ItemCatalog
type GormItemCatalog struct {
	db      *gorm.DB
	locking bool
}

// NewItemCatalog creates a catalog over the items table
func NewItemCatalog(db *gorm.DB) *GormItemCatalog {
	return &GormItemCatalog{db: db}
}

func (c *GormItemCatalog) WithTx(tx *gorm.DB) ItemCatalog {
	return &GormItemCatalog{db: tx, locking: true}
}

func (c *GormItemCatalog) query(ctx context.Context) *gorm.DB {
	q := c.db.WithContext(ctx)
	if c.locking {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (c *GormItemCatalog) Lookup(ctx context.Context, id uint) (*models.Item, error) {
	var item models.Item
	err := c.query(ctx).First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, storageFailure("load item", err)
	}
	return &item, nil
}

// LookupMany returns the items that exist among ids, ordered by id. Missing
// ids are simply absent from the result.
func (c *GormItemCatalog) LookupMany(ctx context.Context, ids []uint) ([]models.Item, error) {
	var items []models.Item
	if len(ids) == 0 {
		return items, nil
	}
	if err := c.query(ctx).Where("id IN ?", ids).Order("id").Find(&items).Error; err != nil {
		return nil, storageFailure("load items", err)
	}
	return items, nil
}

func (c *GormItemCatalog) SetStatus(ctx context.Context, ids []uint, status models.ItemStatus) error {
	if len(ids) == 0 {
		return nil
	}
	err := c.db.WithContext(ctx).Model(&models.Item{}).Where("id IN ?", ids).Update("status", status).Error
	if err != nil {
		return storageFailure("update item status", err)
	}
	return nil
}

func (c *GormItemCatalog) Create(ctx context.Context, item *models.Item) error {
	item.Title = strings.TrimSpace(item.Title)
	item.Category = strings.TrimSpace(item.Category)
	if item.OwnerID == 0 {
		return ErrUnauthorized
	}
	if item.Title == "" {
		return validation("MISSING_TITLE", "Title is required")
	}
	if item.Category == "" {
		return validation("MISSING_CATEGORY", "Category is required")
	}
	if item.Price < 0 {
		return validation("INVALID_PRICE", "Price cannot be negative")
	}
	item.Status = models.ItemAvailable

	if err := c.db.WithContext(ctx).Create(item).Error; err != nil {
		return storageFailure("create item", err)
	}
	return nil
}

// ListAvailable returns available items of everyone except excludeOwner, newest first, with owners loaded
func (c *GormItemCatalog) ListAvailable(ctx context.Context, excludeOwner uint) ([]models.Item, error) {
	var items []models.Item
	err := c.db.WithContext(ctx).
		Preload("Owner").
		Where("status = ? AND owner_id <> ?", models.ItemAvailable, excludeOwner).
		Order("created_at DESC, id DESC").
		Find(&items).Error
	if err != nil {
		return nil, storageFailure("list items", err)
	}
	return items, nil
}

// ListAvailableByOwner returns the owner's items that can still be offered, newest first
func (c *GormItemCatalog) ListAvailableByOwner(ctx context.Context, ownerID uint) ([]models.Item, error) {
	var items []models.Item
	err := c.db.WithContext(ctx).
		Where("status = ? AND owner_id = ?", models.ItemAvailable, ownerID).
		Order("created_at DESC, id DESC").
		Find(&items).Error
	if err != nil {
		return nil, storageFailure("list items", err)
	}
	return items, nil
}

// ListByOwner returns every item of the owner whatever its status, newest first
func (c *GormItemCatalog) ListByOwner(ctx context.Context, ownerID uint) ([]models.Item, error) {
	var items []models.Item
	err := c.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&items).Error
	if err != nil {
		return nil, storageFailure("list items", err)
	}
	return items, nil
}

// Delete removes an item on behalf of its owner and returns the removed row.
// Items referenced by any trade are kept because trades are never deleted.
func (c *GormItemCatalog) Delete(ctx context.Context, id, callerID uint) (*models.Item, error) {
	if callerID == 0 {
		return nil, ErrUnauthorized
	}

	var deleted *models.Item
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := c.WithTx(tx).Lookup(ctx, id)
		if err != nil {
			return err
		}
		if item.OwnerID != callerID {
			return ErrItemNotOwned
		}

		var trades int64
		err = tx.Model(&models.Trade{}).
			Where("item1_id = ? OR item2_id = ?", id, id).
			Count(&trades).Error
		if err != nil {
			return storageFailure("count item trades", err)
		}
		if trades > 0 {
			return ErrItemInTrade
		}

		if err := tx.Delete(&models.Item{}, id).Error; err != nil {
			return storageFailure("delete item", err)
		}
		deleted = item
		return nil
	})
	if err != nil {
		return nil, asServiceError("delete item", err)
	}
	return deleted, nil
}
