package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/inventory-backend/pkg/db"
	"github.com/angelmondragon/inventory-backend/pkg/db/models"
	"github.com/angelmondragon/inventory-backend/pkg/enums"
	"github.com/angelmondragon/inventory-backend/pkg/pagination"
)

var (
	// ErrNotFound is returned when no row exists for the requested keys.
	ErrNotFound = errors.New("item not found")
	// ErrExists is returned by Create when the keys are already taken.
	ErrExists = errors.New("item already exists")
)

// Query selects rows of one partition, optionally narrowed by sort key prefix
// and entity type. Cursor is the opaque value returned by a previous page.
type Query struct {
	PartitionKey  string
	SortKeyPrefix string
	EntityType    enums.EntityType
	Cursor        string
	Limit         int
}

// Page is one bounded slice of a query result. An empty NextCursor means the
// query is exhausted.
type Page struct {
	Items      []models.Item
	NextCursor string
}

// Store is the key-value surface used by the domain services.
type Store interface {
	Get(ctx context.Context, pk, sk string) (*models.Item, error)
	Create(ctx context.Context, item *models.Item) error
	Put(ctx context.Context, item *models.Item) error
	Update(ctx context.Context, pk, sk string, attrs map[string]any) (*models.Item, error)
	Delete(ctx context.Context, pk, sk string) error
	Query(ctx context.Context, q Query) (Page, error)
}

// Repository implements Store on top of GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an item repository bound to the provided GORM DB.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

// Get loads a single item by its composite key.
func (r *Repository) Get(ctx context.Context, pk, sk string) (*models.Item, error) {
	var item models.Item
	err := r.db.WithContext(ctx).
		Where("pk = ? AND sk = ?", pk, sk).
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts a new item and fails with ErrExists when the keys are taken.
func (r *Repository) Create(ctx context.Context, item *models.Item) error {
	if err := validateKeys(item); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return ErrExists
		}
		return err
	}
	return nil
}

// Put writes the item, replacing any row stored under the same keys.
func (r *Repository) Put(ctx context.Context, item *models.Item) error {
	if err := validateKeys(item); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pk"}, {Name: "sk"}},
			DoUpdates: clause.AssignmentColumns([]string{"entity_type", "attributes", "updated_at"}),
		}).
		Create(item).Error
}

// Update merges attrs into the stored attributes. A nil value removes the key.
func (r *Repository) Update(ctx context.Context, pk, sk string, attrs map[string]any) (*models.Item, error) {
	var updated models.Item
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.Item
		err := tx.Where("pk = ? AND sk = ?", pk, sk).Take(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		merged := datatypes.JSONMap{}
		for k, v := range item.Attributes {
			merged[k] = v
		}
		for k, v := range attrs {
			if v == nil {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}

		if err := tx.Model(&models.Item{}).
			Where("pk = ? AND sk = ?", pk, sk).
			Update("attributes", merged).Error; err != nil {
			return err
		}
		item.Attributes = merged
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes an item. Deleting a missing item is not an error.
func (r *Repository) Delete(ctx context.Context, pk, sk string) error {
	return r.db.WithContext(ctx).
		Where("pk = ? AND sk = ?", pk, sk).
		Delete(&models.Item{}).Error
}

// Query returns one page of a partition ordered by sort key.
func (r *Repository) Query(ctx context.Context, q Query) (Page, error) {
	if strings.TrimSpace(q.PartitionKey) == "" {
		return Page{}, fmt.Errorf("partition key is required")
	}
	cursor, err := pagination.ParseCursor(q.Cursor)
	if err != nil {
		return Page{}, err
	}
	if cursor != nil && cursor.PartitionKey != q.PartitionKey {
		return Page{}, fmt.Errorf("cursor belongs to a different partition")
	}

	limit := pagination.NormalizeLimit(q.Limit)
	stmt := r.db.WithContext(ctx).Where("pk = ?", q.PartitionKey)
	if q.SortKeyPrefix != "" {
		stmt = stmt.Where("SUBSTR(sk, 1, ?) = ?", utf8.RuneCountInString(q.SortKeyPrefix), q.SortKeyPrefix)
	}
	if q.EntityType != "" {
		stmt = stmt.Where("entity_type = ?", q.EntityType)
	}
	if cursor != nil {
		stmt = stmt.Where("sk > ?", cursor.SortKey)
	}

	var rows []models.Item
	if err := stmt.Order("sk ASC").Limit(pagination.LimitWithBuffer(q.Limit)).Find(&rows).Error; err != nil {
		return Page{}, err
	}

	page := Page{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		last := page.Items[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			PartitionKey: last.PK,
			SortKey:      last.SK,
		})
	}
	return page, nil
}

func validateKeys(item *models.Item) error {
	if item == nil {
		return fmt.Errorf("item is required")
	}
	if strings.TrimSpace(item.PK) == "" || strings.TrimSpace(item.SK) == "" {
		return fmt.Errorf("partition and sort keys are required")
	}
	if item.Attributes == nil {
		item.Attributes = datatypes.JSONMap{}
	}
	return nil
}
