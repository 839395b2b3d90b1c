package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/telldus_queue/internal/model"
	"github.com/LeonardoBeccarini/telldus_queue/internal/transport"
	"github.com/LeonardoBeccarini/telldus_queue/pkg/mqttbus"
	"github.com/LeonardoBeccarini/telldus_queue/pkg/mqttbus/mqttbustest"
	"github.com/LeonardoBeccarini/telldus_queue/pkg/txqueue"
)

type fakeTransport struct {
	mu      sync.Mutex
	sent    []model.Command
	err     error
	handler transport.EventHandler
}

func (f *fakeTransport) Send(_ context.Context, cmd model.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cmd)
	return f.err
}

func (f *fakeTransport) SetEventHandler(h transport.EventHandler) {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
}

func (f *fakeTransport) emit(id model.DeviceID, st model.DeviceStatus) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(id, st)
}

func (f *fakeTransport) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeTransport) commands() []model.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Command(nil), f.sent...)
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fixture struct {
	tr     *fakeTransport
	clock  *txqueue.ManualClock
	svc    *Service
	client *mqttbustest.Client
	notify *Notifier
	intake *Intake
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		tr:     &fakeTransport{},
		clock:  txqueue.NewManualClock(time.Unix(0, 0)),
		client: mqttbustest.NewClient(),
	}
	opts = append([]Option{WithClock(f.clock)}, opts...)
	f.svc = NewService(f.tr, Config{TX: txqueue.DefaultConfig(), RxDuplicatesTimeout: time.Second}, opts...)
	f.notify = NewNotifier(mqttbus.NewPublisher(f.client, 1, false), nil)
	f.notify.now = f.clock.Now
	f.intake = NewIntake(f.svc, f.notify, nil)
	t.Cleanup(f.svc.Close)
	return f
}

func on() model.DeviceStatus  { return model.DeviceStatus{Name: "ON"} }
func off() model.DeviceStatus { return model.DeviceStatus{Name: "OFF"} }

func intPtr(n int) *int { return &n }
