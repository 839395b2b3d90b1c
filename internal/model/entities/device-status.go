package entities

import (
	"strconv"
	"strings"
)

// Status names reported by the bridge.
const (
	StatusOn      = "ON"
	StatusOff     = "OFF"
	StatusDim     = "DIM"
	StatusUp      = "UP"
	StatusDown    = "DOWN"
	StatusStop    = "STOP"
	StatusBell    = "BELL"
	StatusExecute = "EXECUTE"
)

// DeviceStatus is a state change reported by a transmitter.
type DeviceStatus struct {
	Name     string `json:"name"`
	DimLevel *int   `json:"dimlevel,omitempty"`
}

// Same reports whether two statuses carry the same name and dim level.
// An absent level only matches another absent level.
func (s DeviceStatus) Same(o DeviceStatus) bool {
	if !strings.EqualFold(s.Name, o.Name) {
		return false
	}
	switch {
	case s.DimLevel == nil && o.DimLevel == nil:
		return true
	case s.DimLevel == nil || o.DimLevel == nil:
		return false
	default:
		return *s.DimLevel == *o.DimLevel
	}
}

func (s DeviceStatus) String() string {
	if s.DimLevel != nil {
		return s.Name + ":" + strconv.Itoa(*s.DimLevel)
	}
	return s.Name
}

// StatusFor returns the status a receiver reports after cmd took effect.
func StatusFor(cmd Command) DeviceStatus {
	switch cmd.Action {
	case ActionTurnOn:
		return DeviceStatus{Name: StatusOn}
	case ActionTurnOff:
		return DeviceStatus{Name: StatusOff}
	case ActionDim:
		lvl := int(cmd.Level)
		return DeviceStatus{Name: StatusDim, DimLevel: &lvl}
	case ActionUp:
		return DeviceStatus{Name: StatusUp}
	case ActionDown:
		return DeviceStatus{Name: StatusDown}
	case ActionStop:
		return DeviceStatus{Name: StatusStop}
	case ActionBell:
		return DeviceStatus{Name: StatusBell}
	default:
		return DeviceStatus{Name: StatusExecute}
	}
}
