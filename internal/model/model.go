package model

import (
	"github.com/LeonardoBeccarini/telldus_queue/internal/model/entities"
	"github.com/LeonardoBeccarini/telldus_queue/internal/model/messages"
)

// Alias per esporre tipi comuni ai servizi

type (
	DeviceID           = entities.DeviceID
	Action             = entities.Action
	Command            = entities.Command
	DeviceStatus       = entities.DeviceStatus
	DeviceEvent        = messages.DeviceEvent
	CommandRequest     = messages.CommandRequest
	CommandResultEvent = messages.CommandResultEvent
	BridgeCommand      = messages.BridgeCommand
)

const (
	ActionTurnOn  = entities.ActionTurnOn
	ActionTurnOff = entities.ActionTurnOff
	ActionDim     = entities.ActionDim
	ActionUp      = entities.ActionUp
	ActionDown    = entities.ActionDown
	ActionStop    = entities.ActionStop
	ActionBell    = entities.ActionBell
	ActionExecute = entities.ActionExecute
)

var (
	ParseAction      = entities.ParseAction
	ParseDeviceID    = entities.ParseDeviceID
	NewCommand       = entities.NewCommand
	StatusFor        = entities.StatusFor
	ErrUnknownAction = entities.ErrUnknownAction
	ErrInvalidLevel  = entities.ErrInvalidLevel
	ErrInvalidDevice = entities.ErrInvalidDevice
)
