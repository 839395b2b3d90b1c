package txqueue

import (
	"time"

	"github.com/LeonardoBeccarini/telldus_queue/internal/model/entities"
)

// Removal is a record taken out by Scrub or Clear, with the callback that
// still has to fire (nil if it already fired).
type Removal struct {
	Record *Record
	Reason DropReason
	Done   func(error)
}

// Complete fires every pending callback with err.
func Complete(removals []Removal, err error) {
	for _, rm := range removals {
		if rm.Done != nil {
			rm.Done(err)
		}
	}
}

// Queue holds pending commands in arrival order. It is not safe for
// concurrent use; the Scheduler serialises access.
type Queue struct {
	records   []*Record
	maxRepeat int
	ttl       time.Duration
}

func NewQueue(cfg Config) *Queue {
	cfg = cfg.withDefaults()
	return &Queue{maxRepeat: cfg.MaxRepeat, ttl: cfg.MaxResendTTL}
}

func (q *Queue) Len() int { return len(q.records) }

// Enqueue appends cmd and marks every record it contradicts as invalidated.
// Invalidated records stay in place until the next Scrub.
func (q *Queue) Enqueue(cmd entities.Command, done func(error), now time.Time) (*Record, []entities.Command) {
	rec := &Record{cmd: cmd, expiresAt: now.Add(q.ttl), done: done}
	var superseded []entities.Command
	for _, queued := range q.records {
		if !queued.invalidated && Supersedes(queued.cmd, cmd) {
			queued.invalidated = true
			superseded = append(superseded, queued.cmd)
		}
	}
	q.records = append(q.records, rec)
	return rec, superseded
}

// Scrub drops records that expired after at least one transmission, that
// repeated more than allowed, or that were invalidated. A record is never
// expired before its first transmission.
func (q *Queue) Scrub(now time.Time) []Removal {
	var removed []Removal
	kept := q.records[:0]
	for _, rec := range q.records {
		reason, drop := q.dropReason(rec, now)
		if !drop {
			kept = append(kept, rec)
			continue
		}
		removed = append(removed, Removal{Record: rec, Reason: reason, Done: rec.takeDone()})
	}
	for i := len(kept); i < len(q.records); i++ {
		q.records[i] = nil
	}
	q.records = kept
	return removed
}

func (q *Queue) dropReason(rec *Record, now time.Time) (DropReason, bool) {
	switch {
	case rec.invalidated:
		return DropInvalidated, true
	case rec.repeatCount > q.maxRepeat:
		return DropExhausted, true
	case rec.repeatCount > 0 && !rec.expiresAt.After(now):
		return DropExpired, true
	default:
		return "", false
	}
}

// Candidate returns the first record with the lowest repeat count, so fresh
// commands pre-empt ones that already went out a few times.
func (q *Queue) Candidate() *Record {
	var best *Record
	for _, rec := range q.records {
		if best == nil || rec.repeatCount < best.repeatCount {
			best = rec
		}
	}
	return best
}

// MoveToBack requeues rec behind everything else. It reports false when rec
// is no longer queued.
func (q *Queue) MoveToBack(rec *Record) bool {
	for i, queued := range q.records {
		if queued != rec {
			continue
		}
		copy(q.records[i:], q.records[i+1:])
		q.records[len(q.records)-1] = rec
		return true
	}
	return false
}

// Clear empties the queue and hands back what was in it.
func (q *Queue) Clear() []Removal {
	removed := make([]Removal, 0, len(q.records))
	for _, rec := range q.records {
		removed = append(removed, Removal{Record: rec, Reason: DropCleared, Done: rec.takeDone()})
	}
	q.records = nil
	return removed
}

// Entries copies the queue in order.
func (q *Queue) Entries() []Entry {
	out := make([]Entry, 0, len(q.records))
	for _, rec := range q.records {
		out = append(out, rec.entry())
	}
	return out
}
