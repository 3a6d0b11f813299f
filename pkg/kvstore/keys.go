package kvstore

import "strings"

const (
	ownerKeyPrefix   = "USER#"
	projectKeyPrefix = "PROJECT#"
	roomKeySegment   = "#ROOM#"
)

// OwnerPartitionKey returns the partition holding every project and room of an owner.
func OwnerPartitionKey(ownerID string) string {
	return ownerKeyPrefix + ownerID
}

// ProjectSortKey addresses a project row.
func ProjectSortKey(projectID string) string {
	return projectKeyPrefix + projectID
}

// RoomSortKey addresses a room row under its parent project.
func RoomSortKey(projectID, roomID string) string {
	return ProjectSortKey(projectID) + roomKeySegment + roomID
}

// RoomSortKeyPrefix matches every room of a project.
func RoomSortKeyPrefix(projectID string) string {
	return ProjectSortKey(projectID) + roomKeySegment
}

// RoomIDFromSortKey extracts the room identifier, or "" when sk is not a room key.
func RoomIDFromSortKey(sk string) string {
	idx := strings.LastIndex(sk, roomKeySegment)
	if idx < 0 {
		return ""
	}
	return sk[idx+len(roomKeySegment):]
}
