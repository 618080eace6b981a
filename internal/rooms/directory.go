// Package rooms holds the in-memory room state: who is in which room, each room's
// message log and the per-connection session bindings. Nothing here is safe for
// concurrent use; a single owner serialises access.
package rooms

import (
	"sort"

	"github.com/samber/lo"
)

// Directory maps room keys to their current members in join order.
type Directory struct {
	rooms map[string][]string
}

func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string][]string)}
}

// Join inserts identity into room, creating the room on first use. It reports
// whether the identity was newly added.
func (d *Directory) Join(room, identity string) bool {
	members := d.rooms[room]
	if lo.Contains(members, identity) {
		return false
	}
	d.rooms[room] = append(members, identity)
	return true
}

// Leave removes identity from room. Unknown rooms and identities are ignored.
func (d *Directory) Leave(room, identity string) bool {
	members, ok := d.rooms[room]
	if !ok || !lo.Contains(members, identity) {
		return false
	}
	d.rooms[room] = lo.Without(members, identity)
	return true
}

// MembersOf returns a snapshot of room's members, empty for unknown rooms.
func (d *Directory) MembersOf(room string) []string {
	members := d.rooms[room]
	out := make([]string, len(members))
	copy(out, members)
	return out
}

func (d *Directory) Has(room string) bool {
	_, ok := d.rooms[room]
	return ok
}

func (d *Directory) IsMember(room, identity string) bool {
	return lo.Contains(d.rooms[room], identity)
}

// Rooms lists every room ever joined, sorted by key. Empty rooms are kept.
func (d *Directory) Rooms() []string {
	keys := lo.Keys(d.rooms)
	sort.Strings(keys)
	return keys
}
