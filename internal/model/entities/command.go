package entities

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrInvalidLevel  = errors.New("invalid dim level")
	ErrInvalidDevice = errors.New("invalid device id")
)

// DeviceID identifies a device registered in the RF bridge.
type DeviceID int

func (id DeviceID) String() string { return strconv.Itoa(int(id)) }

// ParseDeviceID accepts the decimal form used in topics and URL paths.
func ParseDeviceID(s string) (DeviceID, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDevice, s)
	}
	return DeviceID(n), nil
}

// Action is a command kind understood by the RF bridge.
type Action string

const (
	ActionTurnOn  Action = "turnOn"
	ActionTurnOff Action = "turnOff"
	ActionDim     Action = "dim"
	ActionUp      Action = "up"
	ActionDown    Action = "down"
	ActionStop    Action = "stop"
	ActionBell    Action = "bell"
	ActionExecute Action = "execute"
)

// Actions lists every supported action in a stable order.
var Actions = []Action{
	ActionTurnOn, ActionTurnOff, ActionDim, ActionUp,
	ActionDown, ActionStop, ActionBell, ActionExecute,
}

// ParseAction matches case-insensitively, so "turnon" and "TURNON" both work.
func ParseAction(s string) (Action, error) {
	s = strings.TrimSpace(s)
	for _, a := range Actions {
		if strings.EqualFold(s, string(a)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Command is one request for the bridge. Level is only meaningful for ActionDim.
type Command struct {
	DeviceID DeviceID `json:"device_id"`
	Action   Action   `json:"action"`
	Level    uint8    `json:"level,omitempty"`
}

func (c Command) Validate() error {
	if c.DeviceID < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDevice, c.DeviceID)
	}
	if _, err := ParseAction(string(c.Action)); err != nil {
		return err
	}
	return nil
}

func (c Command) String() string {
	if c.Action == ActionDim {
		return fmt.Sprintf("%s(%d, %d)", c.Action, c.DeviceID, c.Level)
	}
	return fmt.Sprintf("%s(%d)", c.Action, c.DeviceID)
}

// ParseLevel converts a request level into the 0..255 range used by dimmers.
func ParseLevel(n int) (uint8, error) {
	if n < 0 || n > 255 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLevel, n)
	}
	return uint8(n), nil
}

// NewCommand builds and validates a command from loosely typed edge input.
// level is ignored unless action is dim.
func NewCommand(device DeviceID, action string, level *int) (Command, error) {
	a, err := ParseAction(action)
	if err != nil {
		return Command{}, err
	}
	cmd := Command{DeviceID: device, Action: a}
	if a == ActionDim {
		if level == nil {
			return Command{}, fmt.Errorf("%w: dim requires a level", ErrInvalidLevel)
		}
		if cmd.Level, err = ParseLevel(*level); err != nil {
			return Command{}, err
		}
	}
	return cmd, cmd.Validate()
}
