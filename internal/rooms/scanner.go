package rooms

import (
	"context"
	"fmt"

	"github.com/angelmondragon/inventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/inventory-backend/pkg/errors"
	"github.com/angelmondragon/inventory-backend/pkg/kvstore"
)

type pageQuerier interface {
	Query(ctx context.Context, q kvstore.Query) (kvstore.Page, error)
}

// Scanner walks every page of a project's rooms.
type Scanner struct {
	store    pageQuerier
	pageSize int
}

// NewScanner builds a Scanner. A pageSize of zero uses the store default.
func NewScanner(store pageQuerier, pageSize int) (*Scanner, error) {
	if store == nil {
		return nil, fmt.Errorf("page querier required")
	}
	if pageSize < 0 {
		return nil, fmt.Errorf("page size must not be negative")
	}
	return &Scanner{store: store, pageSize: pageSize}, nil
}

// Scan returns every room of the project in store order. Pages are fetched
// one at a time because each cursor feeds the next query; the loop ends on
// the first page without a cursor. A failed page fails the scan.
func (s *Scanner) Scan(ctx context.Context, ownerID, projectID string) ([]Room, error) {
	query := kvstore.Query{
		PartitionKey:  kvstore.OwnerPartitionKey(ownerID),
		SortKeyPrefix: kvstore.RoomSortKeyPrefix(projectID),
		EntityType:    enums.EntityTypeRoom,
		Limit:         s.pageSize,
	}

	rooms := []Room{}
	pages := 0
	for {
		page, err := s.store.Query(ctx, query)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "query rooms").
				WithDetails(map[string]any{"pages_read": pages})
		}
		pages++
		for _, item := range page.Items {
			room, err := fromItem(ownerID, item)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode room")
			}
			rooms = append(rooms, room)
		}
		if page.NextCursor == "" {
			return rooms, nil
		}
		query.Cursor = page.NextCursor
	}
}
