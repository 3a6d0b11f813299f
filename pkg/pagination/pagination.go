package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// DefaultLimit is the page size used when a caller sends none.
	DefaultLimit = 100
	// MaxLimit caps how many rows one page may request.
	MaxLimit = 1000
)

// Cursor is the last key a partition query returned. Keys may contain any
// separator, so the cursor is JSON before it is base64url encoded.
type Cursor struct {
	PartitionKey string `json:"pk"`
	SortKey      string `json:"sk"`
}

func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// LimitWithBuffer asks for one extra row so the caller can tell whether
// another page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

func EncodeCursor(cursor Cursor) string {
	raw, _ := json.Marshal(cursor)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// ParseCursor returns nil for a blank value, meaning start of partition.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	var cursor Cursor
	if err := json.Unmarshal(raw, &cursor); err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	if cursor.PartitionKey == "" || cursor.SortKey == "" {
		return nil, fmt.Errorf("invalid cursor: partition and sort keys are required")
	}
	return &cursor, nil
}
