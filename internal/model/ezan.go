package model

import "time"

// EzanDuration is how long playback stays suspended for one ezan.
const EzanDuration = 270 * time.Second

// EzanInterruptState is persisted while an ezan suspension is in progress.
type EzanInterruptState struct {
	PrayerKey            PrayerKey `json:"prayer_key"`
	StartTimestampMillis int64     `json:"start_timestamp_millis"`
}

func (s EzanInterruptState) StartedAt() time.Time {
	return time.UnixMilli(s.StartTimestampMillis)
}

// Elapsed is clamped at zero so a start stamped in the future counts as just begun.
func (s EzanInterruptState) Elapsed(now time.Time) time.Duration {
	d := now.Sub(s.StartedAt())
	if d < 0 {
		return 0
	}
	return d
}
