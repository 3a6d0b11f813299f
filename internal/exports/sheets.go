package exports

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/angelmondragon/inventory-backend/internal/rooms"
	"github.com/angelmondragon/inventory-backend/pkg/spreadsheet"
)

var roomColumns = []spreadsheet.Column{
	{Header: "Project ID", Width: 20},
	{Header: "Room ID", Width: 30},
	{Header: "Name", Width: 30},
	{Header: "Description", Width: 40},
	{Header: "Video URL", Width: 50},
	{Header: "Thumbnail", Width: 50},
	{Header: "Job ID", Width: 30},
	{Header: "Created At", Width: 30},
	{Header: "Accessories", Width: 50},
}

// roomSheets lays out one sheet per room in list order.
func roomSheets(list []rooms.Room) []spreadsheet.Sheet {
	sheets := make([]spreadsheet.Sheet, 0, len(list))
	for _, room := range list {
		accessories := ""
		if raw, ok := room.Accessories.Get(); ok {
			accessories = compactJSON(raw)
		}
		createdAt := ""
		if !room.CreatedAt.IsZero() {
			createdAt = room.CreatedAt.UTC().Format(time.RFC3339Nano)
		}
		sheets = append(sheets, spreadsheet.Sheet{
			Name:    "Room " + room.RoomID,
			Columns: roomColumns,
			Rows: [][]any{{
				room.ProjectID,
				room.RoomID,
				room.Name,
				room.Description,
				room.Video,
				room.Thumbnail,
				room.JobID,
				createdAt,
				accessories,
			}},
		})
	}
	return sheets
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
