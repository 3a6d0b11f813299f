package enums

import "fmt"

// EntityType discriminates rows sharing a partition in the item store.
type EntityType string

const (
	EntityTypeProject EntityType = "Project"
	EntityTypeRoom    EntityType = "Room"
)

var validEntityTypes = []EntityType{
	EntityTypeProject,
	EntityTypeRoom,
}

// String returns the literal string for the entity type.
func (e EntityType) String() string {
	return string(e)
}

// IsValid reports whether the entity type is known.
func (e EntityType) IsValid() bool {
	for _, candidate := range validEntityTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEntityType converts raw input into an EntityType.
func ParseEntityType(value string) (EntityType, error) {
	for _, candidate := range validEntityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entity type %q", value)
}
