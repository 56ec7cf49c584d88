package packets

// REQUESTS FOR /api/panel/player
type SeekRequest struct {
	Position *float64 `json:"position" binding:"required,min=0"`
}

type SourceRequest struct {
	Source string `json:"source" binding:"required,oneof=none local remote"`
}

type VolumeRequest struct {
	Volume *int `json:"volume" binding:"required,min=0,max=100"`
}

type MuteRequest struct {
	Muted *bool `json:"muted" binding:"required"`
}

type LoopRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type RemoteRequest struct {
	URL string `json:"url" binding:"required"`
}

// REQUESTS FOR /api/panel/alarms
type AlarmRequest struct {
	Time   string `json:"time" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// REQUESTS FOR /api/panel/backend
type ToggleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type CreateScheduleRequest struct {
	PauseTime  string  `json:"pause_time" binding:"required"`
	ResumeTime *string `json:"resume_time"`
	Days       []int   `json:"days" binding:"omitempty,dive,min=0,max=6"`
	Label      string  `json:"label"`
	Enabled    *bool   `json:"enabled"`
}

type UpdateScheduleRequest struct {
	PauseTime  *string `json:"pause_time"`
	ResumeTime *string `json:"resume_time"`
	Days       []int   `json:"days" binding:"omitempty,dive,min=0,max=6"`
	Label      *string `json:"label"`
	Enabled    *bool   `json:"enabled"`
}

type UpdateSettingsRequest struct {
	City                 *string `json:"city"`
	CalculationMethod    *string `json:"calculation_method"`
	LaunchOnStartup      *bool   `json:"launch_on_startup"`
	StartMinimizedToTray *bool   `json:"start_minimized_to_tray"`
	CloseToTray          *bool   `json:"close_to_tray"`
}
