package txqueue

import "github.com/LeonardoBeccarini/telldus_queue/internal/model/entities"

// DropReason tells why a record left the queue.
type DropReason string

const (
	DropExpired     DropReason = "expired"
	DropExhausted   DropReason = "exhausted"
	DropInvalidated DropReason = "invalidated"
	DropCleared     DropReason = "cleared"
)

// Observer receives scheduler events. Calls are made without locks held and
// must not block.
type Observer interface {
	Enqueued(cmd entities.Command, queued int)
	Superseded(cmd entities.Command)
	Transmitted(cmd entities.Command, repeat int, err error)
	Dropped(cmd entities.Command, reason DropReason)
}

type nopObserver struct{}

func (nopObserver) Enqueued(entities.Command, int)           {}
func (nopObserver) Superseded(entities.Command)              {}
func (nopObserver) Transmitted(entities.Command, int, error) {}
func (nopObserver) Dropped(entities.Command, DropReason)     {}
