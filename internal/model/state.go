package model

import "strings"

// SystemState is the backend's pause state.
type SystemState string

const (
	StateActive      SystemState = "ACTIVE"
	StatePausing     SystemState = "PAUSING"
	StateManualPause SystemState = "MANUAL_PAUSE"
	StateDisabled    SystemState = "DISABLED"
)

// ParseSystemState accepts any casing. Unknown values are treated as active.
func ParseSystemState(s string) SystemState {
	switch SystemState(strings.ToUpper(strings.TrimSpace(s))) {
	case StatePausing:
		return StatePausing
	case StateManualPause:
		return StateManualPause
	case StateDisabled:
		return StateDisabled
	default:
		return StateActive
	}
}

// Active is true only for ACTIVE; every other state suspends playback.
func (s SystemState) Active() bool {
	return s == StateActive
}

// StateReport mirrors GET /state.
type StateReport struct {
	State           string `json:"state"`
	Time            string `json:"time"`
	Vakit           string `json:"vakit"`
	Remaining       int    `json:"remaining"`
	SchedulesTotal  int    `json:"schedules_total"`
	SchedulesActive int    `json:"schedules_active"`
}

func (r StateReport) SystemState() SystemState {
	return ParseSystemState(r.State)
}
