package game

import "errors"

// Command errors. These are routine races between intent and state and never
// interrupt the tick loop.
var (
	ErrUnknownFortress = errors.New("unknown fortress")
	ErrUnknownFaction  = errors.New("unknown faction")
	ErrNotOwner        = errors.New("fortress not owned by faction")
	ErrNotAdjacent     = errors.New("target is not connected by a road")
	ErrPathCapacity    = errors.New("path count would exceed tier")
	ErrIllegalType     = errors.New("fortress type not buildable on this terrain")
	ErrHomeUnavailable = errors.New("no unclaimed sector available")
	ErrEngineBusy      = errors.New("engine busy, command dropped")
	ErrCorruptSnapshot = errors.New("corrupt world snapshot")
	ErrSelfPath        = errors.New("fortress cannot target itself")
)
