package packets

import (
	"github.com/Nixie-Tech-LLC/pausetime/internal/model"
)

type SuccessResponse struct {
	Success bool `json:"success"`
}

// RESPONSES FOR /api/panel/player
type RemoteResponse struct {
	VideoID string `json:"video_id"`
}

type LocalResponse struct {
	Location string `json:"location"`
	URL      string `json:"url,omitempty"`
}

type VolumeResponse struct {
	Volume int `json:"volume"`
}

type MuteResponse struct {
	Muted bool `json:"muted"`
}

type LoopResponse struct {
	Looping bool `json:"looping"`
}

// RESPONSES FOR /api/panel/alarms
type AlarmResponse struct {
	ID     int64  `json:"id"`
	Time   string `json:"time"`
	Action string `json:"action"`
}

type AlarmListResponse struct {
	Alarms []AlarmResponse `json:"alarms"`
}

func NewAlarmResponse(a model.Alarm) AlarmResponse {
	return AlarmResponse{ID: a.ID, Time: a.Time, Action: string(a.Action)}
}

// RESPONSES FOR /api/panel/backend
type ToggleResponse struct {
	Enabled bool `json:"enabled"`
}

type PrayerTimesResponse struct {
	Times model.PrayerTimeTable `json:"times"`
	Next  *NextPrayer           `json:"next,omitempty"`
}

type NextPrayer struct {
	Key  model.PrayerKey `json:"key"`
	Name string          `json:"name"`
	Time string          `json:"time"`
}

type SchedulesResponse struct {
	Schedules []model.Schedule `json:"schedules"`
	// Cached is set when the backend was unreachable and the last polled list is returned.
	Cached bool `json:"cached"`
}

type ScheduleResponse struct {
	Schedule model.Schedule `json:"schedule"`
}

type SettingsResponse struct {
	Settings model.Settings `json:"settings"`
}
