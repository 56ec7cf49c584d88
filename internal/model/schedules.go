package model

// Schedule is a backend pause schedule. Days use 0 = Monday.
type Schedule struct {
	ID          int      `json:"id"`
	PauseTime   string   `json:"pause_time"`
	ResumeTime  *string  `json:"resume_time"`
	Days        []int    `json:"days"`
	Label       string   `json:"label"`
	Enabled     bool     `json:"enabled"`
	IsActiveNow bool     `json:"is_active_now,omitempty"`
	DayNames    []string `json:"day_names,omitempty"`
}

// ScheduleInput is the body the backend accepts on create.
type ScheduleInput struct {
	PauseTime  string  `json:"pause_time"`
	ResumeTime *string `json:"resume_time"`
	Days       []int   `json:"days"`
	Label      string  `json:"label"`
	Enabled    *bool   `json:"enabled,omitempty"`
}

// ScheduleUpdate is a partial update; nil fields are left alone.
type ScheduleUpdate struct {
	PauseTime  *string `json:"pause_time,omitempty"`
	ResumeTime *string `json:"resume_time,omitempty"`
	Days       []int   `json:"days,omitempty"`
	Label      *string `json:"label,omitempty"`
	Enabled    *bool   `json:"enabled,omitempty"`
}
