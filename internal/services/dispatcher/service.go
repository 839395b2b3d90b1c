package dispatcher

import (
	"sync"
	"time"

	"github.com/LeonardoBeccarini/telldus_queue/internal/model"
	"github.com/LeonardoBeccarini/telldus_queue/internal/transport"
	"github.com/LeonardoBeccarini/telldus_queue/pkg/dedup"
	"github.com/LeonardoBeccarini/telldus_queue/pkg/txqueue"
)

// Config raggruppa i parametri del core (coda TX + filtro RX).
type Config struct {
	TX                  txqueue.Config
	RxDuplicatesTimeout time.Duration
}

type Option func(*options)

type options struct {
	clock    txqueue.Clock
	observer txqueue.Observer
	rx       RxObserver
}

// WithClock drives both the scheduler timers and the RX filter expiry.
func WithClock(c txqueue.Clock) Option { return func(o *options) { o.clock = c } }

func WithObserver(obs txqueue.Observer) Option { return func(o *options) { o.observer = obs } }

func WithRxObserver(rx RxObserver) Option { return func(o *options) { o.rx = rx } }

// RxObserver counts status reports before and after deduplication.
type RxObserver interface {
	Received(id model.DeviceID, status model.DeviceStatus, delivered bool)
}

type StatusListener func(id model.DeviceID, status model.DeviceStatus)

// Service is the process-wide entry point: one scheduler for outgoing
// commands and one duplicate filter for incoming status reports.
type Service struct {
	sched  *txqueue.Scheduler
	filter *dedup.Filter[model.DeviceID, model.DeviceStatus]
	rx     RxObserver

	mu       sync.RWMutex
	listener StatusListener
}

func NewService(tr transport.Transport, cfg Config, opts ...Option) *Service {
	o := options{clock: txqueue.WallClock()}
	for _, opt := range opts {
		opt(&o)
	}
	filter := dedup.NewFilter(cfg.RxDuplicatesTimeout, dedup.WithNow[model.DeviceID, model.DeviceStatus](o.clock.Now))
	s := &Service{
		sched:  txqueue.New(tr, cfg.TX, txqueue.WithClock(o.clock), txqueue.WithObserver(o.observer)),
		filter: filter,
		rx:     o.rx,
	}
	tr.SetEventHandler(s.receive)
	return s
}

func (s *Service) receive(id model.DeviceID, status model.DeviceStatus) {
	delivered := s.filter.Allow(id, status)
	if s.rx != nil {
		s.rx.Received(id, status, delivered)
	}
	if !delivered {
		return
	}
	s.mu.RLock()
	l := s.listener
	s.mu.RUnlock()
	if l != nil {
		l(id, status)
	}
}

// AddDeviceEventListener registers fn for deduplicated status reports. A later
// call replaces the earlier listener.
func (s *Service) AddDeviceEventListener(fn StatusListener) {
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
}

func (s *Service) Scheduler() *txqueue.Scheduler { return s.sched }

func (s *Service) Issue(cmd model.Command, done func(error)) { s.sched.Issue(cmd, done) }

func (s *Service) TurnOn(id model.DeviceID, done func(error))  { s.sched.TurnOn(id, done) }
func (s *Service) TurnOff(id model.DeviceID, done func(error)) { s.sched.TurnOff(id, done) }
func (s *Service) Up(id model.DeviceID, done func(error))      { s.sched.Up(id, done) }
func (s *Service) Down(id model.DeviceID, done func(error))    { s.sched.Down(id, done) }
func (s *Service) Stop(id model.DeviceID, done func(error))    { s.sched.Stop(id, done) }
func (s *Service) Bell(id model.DeviceID, done func(error))    { s.sched.Bell(id, done) }
func (s *Service) Execute(id model.DeviceID, done func(error)) { s.sched.Execute(id, done) }

func (s *Service) Dim(id model.DeviceID, level uint8, done func(error)) {
	s.sched.Dim(id, level, done)
}

func (s *Service) Close() { s.sched.Close() }
