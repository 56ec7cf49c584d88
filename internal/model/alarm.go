package model

import "fmt"

type AlarmAction string

const (
	AlarmStart AlarmAction = "start"
	AlarmStop  AlarmAction = "stop"
)

func ParseAlarmAction(s string) (AlarmAction, error) {
	switch AlarmAction(s) {
	case AlarmStart, AlarmStop:
		return AlarmAction(s), nil
	}
	return "", fmt.Errorf("unknown alarm action %q", s)
}

// Alarm is a one-shot music alarm. ID is the creation time in milliseconds.
type Alarm struct {
	ID     int64       `json:"id"`
	Time   string      `json:"time"`
	Action AlarmAction `json:"action"`
}
