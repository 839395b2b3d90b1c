package dispatcher

import (
	"context"

	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/telldus_queue/internal/model"
)

// Surfaces a request can arrive from, used as a metric label.
const (
	SurfaceMQTT = "mqtt"
	SurfaceHTTP = "http"
	SurfaceGRPC = "grpc"
)

type rejecter interface {
	Rejected(surface string)
}

// Intake validates loosely typed requests from every surface and queues them.
type Intake struct {
	svc     *Service
	notify  *Notifier
	rejects rejecter
}

func NewIntake(svc *Service, notify *Notifier, m *Metrics) *Intake {
	in := &Intake{svc: svc, notify: notify}
	if m != nil {
		in.rejects = m
	}
	return in
}

// Ticket tracks one accepted request. Done yields the first transmission
// outcome exactly once.
type Ticket struct {
	RequestID string
	Command   model.Command
	Done      <-chan error
}

// Wait blocks until the outcome is known or ctx ends; done is false if ctx
// ended first.
func (t Ticket) Wait(ctx context.Context) (done bool, err error) {
	select {
	case err = <-t.Done:
		return true, err
	case <-ctx.Done():
		return false, nil
	}
}

// Submit queues req. A missing request id gets a fresh uuid. Invalid requests
// come back as ErrUnknownAction, ErrInvalidLevel or ErrInvalidDevice.
func (in *Intake) Submit(req model.CommandRequest, surface string) (Ticket, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	cmd, err := model.NewCommand(model.DeviceID(req.DeviceID), req.Action, req.Level)
	if err != nil {
		if in.rejects != nil {
			in.rejects.Rejected(surface)
		}
		return Ticket{RequestID: req.RequestID}, err
	}

	done := make(chan error, 1)
	id := req.RequestID
	in.svc.Issue(cmd, func(err error) {
		if in.notify != nil {
			in.notify.Result(id, cmd, err)
		}
		done <- err
	})
	return Ticket{RequestID: id, Command: cmd, Done: done}, nil
}

func (in *Intake) Service() *Service { return in.svc }
