package txqueue

import (
	"time"

	"github.com/LeonardoBeccarini/telldus_queue/internal/model/entities"
)

// Record is one queued command. Only the Queue and the Scheduler mutate it.
type Record struct {
	cmd         entities.Command
	repeatCount int
	expiresAt   time.Time
	invalidated bool
	done        func(error)
}

func (r *Record) Command() entities.Command { return r.cmd }
func (r *Record) RepeatCount() int          { return r.repeatCount }
func (r *Record) ExpiresAt() time.Time      { return r.expiresAt }
func (r *Record) Invalidated() bool         { return r.invalidated }

// takeDone returns the pending callback and clears it, so it can fire once.
func (r *Record) takeDone() func(error) {
	done := r.done
	r.done = nil
	return done
}

// Entry is a point-in-time copy of a Record.
type Entry struct {
	Command     entities.Command `json:"command"`
	RepeatCount int              `json:"repeat_count"`
	ExpiresAt   time.Time        `json:"expires_at"`
	Invalidated bool             `json:"invalidated"`
}

func (r *Record) entry() Entry {
	return Entry{
		Command:     r.cmd,
		RepeatCount: r.repeatCount,
		ExpiresAt:   r.expiresAt,
		Invalidated: r.invalidated,
	}
}
