package rooms

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/angelmondragon/inventory-backend/pkg/db/models"
	"github.com/angelmondragon/inventory-backend/pkg/enums"
	"github.com/angelmondragon/inventory-backend/pkg/kvstore"
	"github.com/angelmondragon/inventory-backend/pkg/types"
)

const (
	attrProjectID   = "ProjectId"
	attrRoomID      = "RoomId"
	attrName        = "Name"
	attrDescription = "Description"
	attrImage       = "Image"
	attrVideo       = "Video"
	attrThumbnail   = "Thumbnail"
	attrJobID       = "JobId"
	attrCreatedAt   = "CreatedAt"
	attrAccessories = "Accessories"
)

// Room is one media record under a project. Accessories carries the
// enrichment payload; it is tracked by presence so false, 0, "" and {} are
// all legitimate values.
type Room struct {
	OwnerID     string                          `json:"-"`
	ProjectID   string                          `json:"ProjectId"`
	RoomID      string                          `json:"RoomId"`
	Name        string                          `json:"Name"`
	Description string                          `json:"Description"`
	Image       string                          `json:"Image"`
	Video       string                          `json:"Video"`
	Thumbnail   string                          `json:"Thumbnail,omitempty"`
	JobID       string                          `json:"JobId,omitempty"`
	CreatedAt   time.Time                       `json:"CreatedAt"`
	Accessories types.Optional[json.RawMessage] `json:"Accessories"`
}

func (r Room) partitionKey() string {
	return kvstore.OwnerPartitionKey(r.OwnerID)
}

func (r Room) sortKey() string {
	return kvstore.RoomSortKey(r.ProjectID, r.RoomID)
}

func (r Room) toItem() (*models.Item, error) {
	attrs := datatypes.JSONMap{
		attrProjectID:   r.ProjectID,
		attrRoomID:      r.RoomID,
		attrName:        r.Name,
		attrDescription: r.Description,
		attrImage:       r.Image,
		attrVideo:       r.Video,
		attrCreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if r.Thumbnail != "" {
		attrs[attrThumbnail] = r.Thumbnail
	}
	if r.JobID != "" {
		attrs[attrJobID] = r.JobID
	}
	if raw, ok := r.Accessories.Get(); ok {
		value, err := decodeAccessories(raw)
		if err != nil {
			return nil, err
		}
		attrs[attrAccessories] = value
	}
	return &models.Item{
		PK:         r.partitionKey(),
		SK:         r.sortKey(),
		EntityType: enums.EntityTypeRoom,
		Attributes: attrs,
	}, nil
}

// fromItem decodes a stored row. A CreatedAt that does not parse decodes to
// the zero time so the record still lists, after every dated record.
func fromItem(ownerID string, item models.Item) (Room, error) {
	if item.EntityType != enums.EntityTypeRoom {
		return Room{}, fmt.Errorf("item %s is a %s, not a room", item.SK, item.EntityType)
	}
	room := Room{OwnerID: ownerID}
	room.ProjectID = stringAttr(item.Attributes, attrProjectID)
	room.RoomID = stringAttr(item.Attributes, attrRoomID)
	if room.RoomID == "" {
		room.RoomID = kvstore.RoomIDFromSortKey(item.SK)
	}
	room.Name = stringAttr(item.Attributes, attrName)
	room.Description = stringAttr(item.Attributes, attrDescription)
	room.Image = stringAttr(item.Attributes, attrImage)
	room.Video = stringAttr(item.Attributes, attrVideo)
	room.Thumbnail = stringAttr(item.Attributes, attrThumbnail)
	room.JobID = stringAttr(item.Attributes, attrJobID)
	if created, err := time.Parse(time.RFC3339Nano, stringAttr(item.Attributes, attrCreatedAt)); err == nil {
		room.CreatedAt = created
	}

	if value, ok := item.Attributes[attrAccessories]; ok && value != nil {
		raw, err := json.Marshal(value)
		if err != nil {
			return Room{}, fmt.Errorf("encode accessories of %s: %w", item.SK, err)
		}
		room.Accessories = types.Some(json.RawMessage(raw))
	}
	return room, nil
}

// decodeAccessories turns raw JSON into a value the attributes column can
// hold. JSON null is rejected because it cannot be told apart from absent.
func decodeAccessories(raw json.RawMessage) (any, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("decode accessories: %w", err)
	}
	if value == nil {
		return nil, fmt.Errorf("accessories must not be null")
	}
	return value, nil
}

func stringAttr(attrs map[string]any, key string) string {
	value, _ := attrs[key].(string)
	return value
}
