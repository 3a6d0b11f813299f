package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/angelmondragon/inventory-backend/pkg/enums"
)

// Item is one row of the partitioned item store. Rows sharing a PK form a
// partition and are ordered by SK.
type Item struct {
	PK         string            `gorm:"column:pk;primaryKey;size:255"`
	SK         string            `gorm:"column:sk;primaryKey;size:512"`
	EntityType enums.EntityType  `gorm:"column:entity_type;not null;size:64;index:idx_inventory_items_entity_type"`
	Attributes datatypes.JSONMap `gorm:"column:attributes;not null"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table managed by the goose migrations.
func (Item) TableName() string {
	return "inventory_items"
}
