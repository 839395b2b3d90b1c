package bridge_simulator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/telldus_queue/internal/model"
	"github.com/LeonardoBeccarini/telldus_queue/internal/model/messages"
	"github.com/LeonardoBeccarini/telldus_queue/internal/transport"
	"github.com/LeonardoBeccarini/telldus_queue/pkg/dedup"
	"github.com/LeonardoBeccarini/telldus_queue/pkg/mqttbus"
)

type Options struct {
	// Duplicates is how many extra copies of each status report get sent,
	// like a real transmitter repeating its frame.
	Duplicates int
	// Spacing separates the copies; zero sends them back to back.
	Spacing time.Duration
	// LossRate is the fraction of commands the radio never hears.
	LossRate float64
	Seed     int64
}

// BridgeSimulator fa finta di essere il bridge RF: riceve i comandi, aggiorna
// lo stato dei device e risponde con report di stato duplicati.
type BridgeSimulator struct {
	mu        sync.Mutex
	devices   map[model.DeviceID]model.DeviceStatus
	publisher mqttbus.IPublisher
	consumer  mqttbus.IConsumer
	deduper   *dedup.Deduper
	remote    *RemoteGenerator
	opts      Options
	rnd       *rand.Rand
	now       func() time.Time
}

func NewBridgeSimulator(consumer mqttbus.IConsumer, publisher mqttbus.IPublisher, remote *RemoteGenerator, opts Options) *BridgeSimulator {
	if opts.Duplicates < 0 {
		opts.Duplicates = 0
	}
	return &BridgeSimulator{
		devices:   make(map[model.DeviceID]model.DeviceStatus),
		publisher: publisher,
		consumer:  consumer,
		deduper:   dedup.New(2*time.Minute, 10000), // TTL e cap
		remote:    remote,
		opts:      opts,
		rnd:       rand.New(rand.NewSource(opts.Seed)),
		now:       time.Now,
	}
}

// Start riceve i comandi e, se interval > 0, simula pressioni del telecomando
// a intervalli regolari. Blocca fino alla cancellazione di ctx.
func (s *BridgeSimulator) Start(ctx context.Context, interval time.Duration) {
	s.consumer.SetHandler(s.handleMessage)
	go func() {
		if err := s.consumer.ConsumeMessage(ctx); err != nil {
			log.Printf("bridge-sim: subscribe error: %v", err)
		}
	}()

	if interval <= 0 || s.remote == nil {
		<-ctx.Done()
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			cmd := s.remote.Next()
			log.Printf("bridge-sim: remote press %s", cmd)
			s.apply(cmd)
		}
	}
}

func (s *BridgeSimulator) handleMessage(_ string, msg mqtt.Message) error {
	// Dedup a payload: redelivery QoS1 ha lo stesso payload, i repeat della coda no (timestamp)
	h := sha256.Sum256(msg.Payload())
	if s.deduper != nil && !s.deduper.ShouldProcess(hex.EncodeToString(h[:])) {
		return nil
	}

	var bc messages.BridgeCommand
	if err := json.Unmarshal(msg.Payload(), &bc); err != nil {
		return fmt.Errorf("invalid BridgeCommand: %w", err)
	}
	cmd, err := model.NewCommand(model.DeviceID(bc.DeviceID), bc.Method, bc.Level)
	if err != nil {
		return err
	}
	if s.lost() {
		log.Printf("bridge-sim: %s lost on air", cmd)
		return nil
	}
	s.apply(cmd)
	return nil
}

func (s *BridgeSimulator) lost() bool {
	if s.opts.LossRate <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64() < s.opts.LossRate
}

// apply updates the device state and reports it 1+Duplicates times.
func (s *BridgeSimulator) apply(cmd model.Command) {
	st := model.StatusFor(cmd)
	s.mu.Lock()
	s.devices[cmd.DeviceID] = st
	s.mu.Unlock()

	ev := messages.DeviceEvent{DeviceID: int(cmd.DeviceID), Status: st, Timestamp: s.now().UTC()}
	topic := transport.EventTopicPrefix + cmd.DeviceID.String()
	for i := 0; i <= s.opts.Duplicates; i++ {
		if i == 0 || s.opts.Spacing <= 0 {
			s.report(topic, ev)
			continue
		}
		time.AfterFunc(time.Duration(i)*s.opts.Spacing, func() { s.report(topic, ev) })
	}
}

func (s *BridgeSimulator) report(topic string, ev messages.DeviceEvent) {
	if err := s.publisher.PublishJSON(topic, ev); err != nil {
		log.Printf("bridge-sim: publish error: %v", err)
	}
}

// State returns the last status applied to id.
func (s *BridgeSimulator) State(id model.DeviceID) (model.DeviceStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.devices[id]
	return st, ok
}
