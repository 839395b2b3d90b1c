package txqueue

import (
	"context"
	"errors"
	"sync"

	"github.com/LeonardoBeccarini/telldus_queue/internal/model/entities"
)

var (
	ErrQueueCleared = errors.New("txqueue: queue cleared")
	ErrClosed       = errors.New("txqueue: scheduler closed")
)

// Sender performs one transmission. There is no acknowledgment: a nil error
// only means the command was handed to the radio.
type Sender interface {
	Send(ctx context.Context, cmd entities.Command) error
}

type SenderFunc func(ctx context.Context, cmd entities.Command) error

func (f SenderFunc) Send(ctx context.Context, cmd entities.Command) error { return f(ctx, cmd) }

type Option func(*Scheduler)

func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.obs = o
		}
	}
}

// Scheduler repeats queued commands every Interval until the queue is empty.
// It is idle while there is nothing to send and restarts on the next command.
type Scheduler struct {
	mu     sync.Mutex
	cfg    Config
	queue  *Queue
	sender Sender
	clock  Clock
	obs    Observer

	ctx    context.Context
	cancel context.CancelFunc

	busy     bool
	inFlight bool
	closed   bool
	gen      uint64
	timer    Timer
}

func New(sender Sender, cfg Config, opts ...Option) *Scheduler {
	cfg = cfg.withDefaults()
	s := &Scheduler{
		cfg:    cfg,
		queue:  NewQueue(cfg),
		sender: sender,
		clock:  WallClock(),
		obs:    nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

func (s *Scheduler) Config() Config { return s.cfg }

// Issue queues cmd. done, if set, fires exactly once: with the outcome of the
// first transmission, or with nil if the command is dropped before that.
// When the scheduler is idle the first transmission happens before Issue
// returns.
func (s *Scheduler) Issue(cmd entities.Command, done func(error)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if done != nil {
			done(ErrClosed)
		}
		return
	}
	_, superseded := s.queue.Enqueue(cmd, done, s.clock.Now())
	queued := s.queue.Len()
	start := !s.busy
	if start {
		s.busy = true
	}
	s.mu.Unlock()

	s.obs.Enqueued(cmd, queued)
	for _, old := range superseded {
		s.obs.Superseded(old)
	}
	if start {
		s.Dequeue()
	}
}

func (s *Scheduler) TurnOn(id entities.DeviceID, done func(error)) {
	s.Issue(entities.Command{DeviceID: id, Action: entities.ActionTurnOn}, done)
}

func (s *Scheduler) TurnOff(id entities.DeviceID, done func(error)) {
	s.Issue(entities.Command{DeviceID: id, Action: entities.ActionTurnOff}, done)
}

func (s *Scheduler) Dim(id entities.DeviceID, level uint8, done func(error)) {
	s.Issue(entities.Command{DeviceID: id, Action: entities.ActionDim, Level: level}, done)
}

func (s *Scheduler) Up(id entities.DeviceID, done func(error)) {
	s.Issue(entities.Command{DeviceID: id, Action: entities.ActionUp}, done)
}

func (s *Scheduler) Down(id entities.DeviceID, done func(error)) {
	s.Issue(entities.Command{DeviceID: id, Action: entities.ActionDown}, done)
}

func (s *Scheduler) Stop(id entities.DeviceID, done func(error)) {
	s.Issue(entities.Command{DeviceID: id, Action: entities.ActionStop}, done)
}

func (s *Scheduler) Bell(id entities.DeviceID, done func(error)) {
	s.Issue(entities.Command{DeviceID: id, Action: entities.ActionBell}, done)
}

func (s *Scheduler) Execute(id entities.DeviceID, done func(error)) {
	s.Issue(entities.Command{DeviceID: id, Action: entities.ActionExecute}, done)
}

// Dequeue runs one tick: scrub, send the candidate, requeue it and arm the
// next tick. It reports whether anything was left to send.
func (s *Scheduler) Dequeue() bool {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return true
	}
	removed := s.queue.Scrub(s.clock.Now())
	s.busy = s.queue.Len() > 0
	var rec *Record
	if s.busy {
		rec = s.queue.Candidate()
		s.inFlight = true
	}
	gen := s.gen
	ctx := s.ctx
	s.mu.Unlock()

	s.finish(removed, nil)
	if rec == nil {
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	err := s.sender.Send(sendCtx, rec.cmd)
	cancel()

	s.mu.Lock()
	s.inFlight = false
	done := rec.takeDone()
	rec.repeatCount++
	repeat := rec.repeatCount
	s.queue.MoveToBack(rec)
	if gen == s.gen && !s.closed {
		s.arm()
	}
	s.mu.Unlock()

	s.obs.Transmitted(rec.cmd, repeat, err)
	if done != nil {
		done(err)
	}
	return true
}

// arm must be called with s.mu held.
func (s *Scheduler) arm() {
	if s.timer != nil {
		s.timer.Stop()
	}
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.cfg.Interval, func() {
		s.mu.Lock()
		stale := gen != s.gen
		s.mu.Unlock()
		if !stale {
			s.Dequeue()
		}
	})
}

func (s *Scheduler) finish(removed []Removal, err error) {
	for _, rm := range removed {
		s.obs.Dropped(rm.Record.cmd, rm.Reason)
	}
	Complete(removed, err)
}

// Halt stops the timer and keeps the scheduler marked busy, so new commands
// queue up without being sent until Dequeue is called. State is kept.
func (s *Scheduler) Halt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.haltLocked()
}

func (s *Scheduler) haltLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.busy = true
}

// Clear drops every queued command and marks the scheduler idle. Pending
// callbacks fire with ErrQueueCleared.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	removed := s.queue.Clear()
	s.busy = false
	s.mu.Unlock()
	s.finish(removed, ErrQueueCleared)
}

// Close halts the scheduler for good and cancels any send in flight.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.haltLocked()
	removed := s.queue.Clear()
	s.mu.Unlock()
	s.cancel()
	s.finish(removed, ErrClosed)
}

// Busy reports whether the scheduler is ticking (or halted).
func (s *Scheduler) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

func (s *Scheduler) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Entries()
}

// Candidate peeks at the record the next tick would send, without scrubbing.
func (s *Scheduler) Candidate() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.queue.Candidate()
	if rec == nil {
		return Entry{}, false
	}
	return rec.entry(), true
}
