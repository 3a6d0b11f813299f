package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/inventory-backend/pkg/errors"
	"github.com/angelmondragon/inventory-backend/pkg/kvstore"
	"github.com/angelmondragon/inventory-backend/pkg/logger"
	"github.com/angelmondragon/inventory-backend/pkg/types"
)

type projectChecker interface {
	Exists(ctx context.Context, ownerID, projectID string) error
}

// Thumbnailer renders a preview image for a stored video and returns its reference.
type Thumbnailer interface {
	Generate(ctx context.Context, videoURL string) (string, error)
}

// Service exposes room CRUD and the enriched listing pipeline.
type Service interface {
	CreateRoom(ctx context.Context, ownerID string, input CreateInput) (*Room, error)
	GetRoom(ctx context.Context, ownerID, projectID, roomID string) (*Room, error)
	ListRooms(ctx context.Context, ownerID, projectID string) ([]Room, error)
	UpdateRoom(ctx context.Context, ownerID, projectID, roomID string, input UpdateInput) (*Room, error)
	DeleteRoom(ctx context.Context, ownerID, projectID, roomID string) error
}

// CreateInput carries the fields accepted when creating a room.
type CreateInput struct {
	ProjectID   string
	Name        string
	Description string
	VideoURL    string
	JobID       string
	Thumbnail   string
}

// UpdateInput lists the mutable fields; unset fields are left unchanged.
// Setting Accessories records a human-set enrichment that later lookups
// never overwrite.
type UpdateInput struct {
	Name        types.Optional[string]
	Description types.Optional[string]
	VideoURL    types.Optional[string]
	Accessories types.Optional[json.RawMessage]
}

func (u UpdateInput) empty() bool {
	return !u.Name.IsSet() && !u.Description.IsSet() && !u.VideoURL.IsSet() && !u.Accessories.IsSet()
}

// ServiceParams wires the room service. Thumbnails is optional.
type ServiceParams struct {
	Store           kvstore.Store
	Projects        projectChecker
	Scanner         *Scanner
	Enricher        *Enricher
	Thumbnails      Thumbnailer
	DefaultImageURL string
	Logger          *logger.Logger
}

type service struct {
	store        kvstore.Store
	projects     projectChecker
	scanner      *Scanner
	enricher     *Enricher
	thumbnails   Thumbnailer
	defaultImage string
	logg         *logger.Logger
	now          func() time.Time
	newID        func() string
}

// NewService constructs the room service.
func NewService(p ServiceParams) (Service, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("item store required")
	}
	if p.Projects == nil {
		return nil, fmt.Errorf("project checker required")
	}
	if p.Scanner == nil {
		return nil, fmt.Errorf("scanner required")
	}
	if p.Enricher == nil {
		return nil, fmt.Errorf("enricher required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		store:        p.Store,
		projects:     p.Projects,
		scanner:      p.Scanner,
		enricher:     p.Enricher,
		thumbnails:   p.Thumbnails,
		defaultImage: p.DefaultImageURL,
		logg:         p.Logger,
		now:          time.Now,
		newID:        uuid.NewString,
	}, nil
}

func (s *service) CreateRoom(ctx context.Context, ownerID string, input CreateInput) (*Room, error) {
	input.ProjectID = strings.TrimSpace(input.ProjectID)
	input.VideoURL = strings.TrimSpace(input.VideoURL)
	input.JobID = strings.TrimSpace(input.JobID)
	switch {
	case input.ProjectID == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	case input.VideoURL == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "video url is required")
	case input.JobID == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job id is required")
	}
	if err := s.projects.Exists(ctx, ownerID, input.ProjectID); err != nil {
		return nil, err
	}

	room := Room{
		OwnerID:     ownerID,
		ProjectID:   input.ProjectID,
		RoomID:      s.newID(),
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Image:       s.defaultImage,
		Video:       input.VideoURL,
		Thumbnail:   strings.TrimSpace(input.Thumbnail),
		JobID:       input.JobID,
		CreatedAt:   s.now().UTC(),
	}
	ctx = s.logg.WithJobID(s.logg.WithRoomID(s.logg.WithProjectID(ctx, room.ProjectID), room.RoomID), room.JobID)

	if room.Thumbnail == "" && s.thumbnails != nil {
		thumb, err := s.thumbnails.Generate(ctx, room.Video)
		if err != nil {
			s.logg.Error(ctx, "room.thumbnail_failed", err)
		} else {
			room.Thumbnail = thumb
		}
	}

	item, err := room.toItem()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode room")
	}
	if err := s.store.Put(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "save room")
	}

	s.logg.Info(ctx, "room.created")
	return &room, nil
}

func (s *service) GetRoom(ctx context.Context, ownerID, projectID, roomID string) (*Room, error) {
	room, err := s.loadRoom(ctx, ownerID, projectID, roomID)
	if err != nil {
		return nil, err
	}
	enriched := s.enricher.Enrich(ctx, *room)
	return &enriched, nil
}

// ListRooms runs scan, enrich and sort for one project.
func (s *service) ListRooms(ctx context.Context, ownerID, projectID string) ([]Room, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}
	if err := s.projects.Exists(ctx, ownerID, projectID); err != nil {
		return nil, err
	}
	ctx = s.logg.WithProjectID(ctx, projectID)

	scanned, err := s.scanner.Scan(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}
	enriched, err := s.enricher.EnrichAll(ctx, scanned)
	if err != nil {
		return nil, err
	}
	SortByCreatedDesc(enriched)

	s.logg.Info(s.logg.WithField(ctx, "rooms", len(enriched)), "rooms.listed")
	return enriched, nil
}

func (s *service) UpdateRoom(ctx context.Context, ownerID, projectID, roomID string, input UpdateInput) (*Room, error) {
	if input.empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no updates provided")
	}
	room, err := s.loadRoom(ctx, ownerID, projectID, roomID)
	if err != nil {
		return nil, err
	}

	attrs := map[string]any{}
	if name, ok := input.Name.Get(); ok {
		attrs[attrName] = strings.TrimSpace(name)
	}
	if description, ok := input.Description.Get(); ok {
		attrs[attrDescription] = strings.TrimSpace(description)
	}
	if video, ok := input.VideoURL.Get(); ok {
		video = strings.TrimSpace(video)
		if video == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "video url must not be empty")
		}
		attrs[attrVideo] = video
	}
	if raw, ok := input.Accessories.Get(); ok {
		value, err := decodeAccessories(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid accessories")
		}
		attrs[attrAccessories] = value
	}

	item, err := s.store.Update(ctx, room.partitionKey(), room.sortKey(), attrs)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invalid room id")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "update room")
	}
	updated, err := fromItem(ownerID, *item)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode room")
	}

	s.logg.Info(s.logg.WithRoomID(ctx, roomID), "room.updated")
	return &updated, nil
}

func (s *service) DeleteRoom(ctx context.Context, ownerID, projectID, roomID string) error {
	room, err := s.loadRoom(ctx, ownerID, projectID, roomID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, room.partitionKey(), room.sortKey()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "delete room")
	}
	s.logg.Info(s.logg.WithRoomID(ctx, roomID), "room.deleted")
	return nil
}

// loadRoom validates the parent project and then the room itself.
func (s *service) loadRoom(ctx context.Context, ownerID, projectID, roomID string) (*Room, error) {
	projectID = strings.TrimSpace(projectID)
	roomID = strings.TrimSpace(roomID)
	if projectID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}
	if roomID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "room id is required")
	}
	if err := s.projects.Exists(ctx, ownerID, projectID); err != nil {
		return nil, err
	}

	item, err := s.store.Get(ctx, kvstore.OwnerPartitionKey(ownerID), kvstore.RoomSortKey(projectID, roomID))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invalid room id")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "load room")
	}
	room, err := fromItem(ownerID, *item)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode room")
	}
	return &room, nil
}
