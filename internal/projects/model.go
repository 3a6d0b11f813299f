package projects

import (
	"fmt"
	"time"

	"github.com/angelmondragon/inventory-backend/pkg/db/models"
	"github.com/angelmondragon/inventory-backend/pkg/enums"
	"github.com/angelmondragon/inventory-backend/pkg/kvstore"
)

const (
	attrProjectID   = "ProjectId"
	attrName        = "Name"
	attrDescription = "Description"
	attrCreatedAt   = "CreatedAt"
)

// Project is the parent of a set of rooms.
type Project struct {
	OwnerID     string    `json:"-"`
	ProjectID   string    `json:"ProjectId"`
	Name        string    `json:"Name"`
	Description string    `json:"Description"`
	CreatedAt   time.Time `json:"CreatedAt"`
}

func (p Project) toItem() *models.Item {
	return &models.Item{
		PK:         kvstore.OwnerPartitionKey(p.OwnerID),
		SK:         kvstore.ProjectSortKey(p.ProjectID),
		EntityType: enums.EntityTypeProject,
		Attributes: map[string]any{
			attrProjectID:   p.ProjectID,
			attrName:        p.Name,
			attrDescription: p.Description,
			attrCreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func fromItem(ownerID string, item *models.Item) (*Project, error) {
	if item.EntityType != enums.EntityTypeProject {
		return nil, fmt.Errorf("item %s is a %s, not a project", item.SK, item.EntityType)
	}
	p := &Project{OwnerID: ownerID}
	p.ProjectID, _ = item.Attributes[attrProjectID].(string)
	p.Name, _ = item.Attributes[attrName].(string)
	p.Description, _ = item.Attributes[attrDescription].(string)
	if raw, ok := item.Attributes[attrCreatedAt].(string); ok && raw != "" {
		created, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse project created at: %w", err)
		}
		p.CreatedAt = created
	}
	return p, nil
}
