package txqueue

import "github.com/LeonardoBeccarini/telldus_queue/internal/model/entities"

// Supersedes reports whether incoming contradicts existing. A different
// action for the same device always does; a dim does when the level differs.
// Identical commands reinforce each other and are both kept.
func Supersedes(existing, incoming entities.Command) bool {
	if existing.DeviceID != incoming.DeviceID {
		return false
	}
	if existing.Action != incoming.Action {
		return true
	}
	return existing.Action == entities.ActionDim && existing.Level != incoming.Level
}
