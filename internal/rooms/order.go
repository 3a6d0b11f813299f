package rooms

import "sort"

// SortByCreatedDesc orders rooms newest first. Rooms with equal timestamps
// keep their relative input order.
func SortByCreatedDesc(rooms []Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
}
