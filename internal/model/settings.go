package model

// Settings mirrors the backend /settings document.
type Settings struct {
	City                 string `json:"city"`
	CalculationMethod    string `json:"calculation_method"`
	LaunchOnStartup      bool   `json:"launch_on_startup"`
	StartMinimizedToTray bool   `json:"start_minimized_to_tray"`
	CloseToTray          bool   `json:"close_to_tray"`
}

// SettingsUpdate is a partial update; nil fields are left alone.
type SettingsUpdate struct {
	City                 *string `json:"city,omitempty"`
	CalculationMethod    *string `json:"calculation_method,omitempty"`
	LaunchOnStartup      *bool   `json:"launch_on_startup,omitempty"`
	StartMinimizedToTray *bool   `json:"start_minimized_to_tray,omitempty"`
	CloseToTray          *bool   `json:"close_to_tray,omitempty"`
}

// ChangesPrayerTimes reports whether applying u moves the prayer table.
func (u SettingsUpdate) ChangesPrayerTimes() bool {
	return u.City != nil || u.CalculationMethod != nil
}

// CalculationMethods lists the backend's supported methods and their aladhan ids.
var CalculationMethods = map[string]int{
	"DIYANET":     13,
	"ISNA":        2,
	"MWL":         3,
	"UMM_AL_QURA": 4,
}
