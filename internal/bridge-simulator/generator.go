package bridge_simulator

import (
	"math/rand"
	"sync"

	"github.com/LeonardoBeccarini/telldus_queue/internal/model"
)

// RemoteGenerator produce pressioni casuali del telecomando sui device noti.
type RemoteGenerator struct {
	mu      sync.Mutex
	devices []model.DeviceID
	rnd     *rand.Rand
}

func NewRemoteGenerator(devices []model.DeviceID, seed int64) *RemoteGenerator {
	return &RemoteGenerator{devices: devices, rnd: rand.New(rand.NewSource(seed))}
}

var remoteActions = []model.Action{model.ActionTurnOn, model.ActionTurnOff, model.ActionDim}

// Next returns a press for a random device. Dim levels land on multiples of 16,
// like the steps of a wall dimmer.
func (g *RemoteGenerator) Next() model.Command {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := model.DeviceID(1)
	if len(g.devices) > 0 {
		id = g.devices[g.rnd.Intn(len(g.devices))]
	}
	cmd := model.Command{DeviceID: id, Action: remoteActions[g.rnd.Intn(len(remoteActions))]}
	if cmd.Action == model.ActionDim {
		cmd.Level = uint8(16 * g.rnd.Intn(16))
	}
	return cmd
}
