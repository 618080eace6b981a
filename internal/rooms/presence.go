package rooms

import "chat-relay/internal/models"

// StatusOf derives identity's presence in room from the directory: online iff it
// is currently a member.
func StatusOf(d *Directory, room, identity string) models.Status {
	if d.IsMember(room, identity) {
		return models.StatusOnline
	}
	return models.StatusOffline
}
