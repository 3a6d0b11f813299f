package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/inventory-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/inventory-backend/pkg/errors"
	"github.com/angelmondragon/inventory-backend/pkg/kvstore"
	"github.com/angelmondragon/inventory-backend/pkg/logger"
)

// Service exposes the project registry. Rooms and exports use Exists to
// validate their parent.
type Service interface {
	CreateProject(ctx context.Context, ownerID string, input CreateInput) (*Project, error)
	GetProject(ctx context.Context, ownerID, projectID string) (*Project, error)
	Exists(ctx context.Context, ownerID, projectID string) error
}

// CreateInput carries the fields accepted when registering a project.
type CreateInput struct {
	Name        string
	Description string
}

type service struct {
	store kvstore.Store
	logg  *logger.Logger
	now   func() time.Time
	newID func() string
}

// NewService constructs the project registry on top of the item store.
func NewService(store kvstore.Store, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("item store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		store: store,
		logg:  logg,
		now:   time.Now,
		newID: uuid.NewString,
	}, nil
}

func (s *service) CreateProject(ctx context.Context, ownerID string, input CreateInput) (*Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project name is required")
	}

	project := Project{
		OwnerID:     ownerID,
		ProjectID:   s.newID(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.Create(ctx, project.toItem()); err != nil {
		if errors.Is(err, kvstore.ErrExists) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "project already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "create project")
	}

	ctx = s.logg.WithProjectID(ctx, project.ProjectID)
	s.logg.Info(ctx, "project.created")
	return &project, nil
}

func (s *service) GetProject(ctx context.Context, ownerID, projectID string) (*Project, error) {
	item, err := s.lookup(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}
	project, err := fromItem(ownerID, item)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode project")
	}
	return project, nil
}

func (s *service) Exists(ctx context.Context, ownerID, projectID string) error {
	_, err := s.lookup(ctx, ownerID, projectID)
	return err
}

func (s *service) lookup(ctx context.Context, ownerID, projectID string) (*models.Item, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}
	item, err := s.store.Get(ctx, kvstore.OwnerPartitionKey(ownerID), kvstore.ProjectSortKey(projectID))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invalid project id")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "load project")
	}
	return item, nil
}
