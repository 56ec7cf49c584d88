package endpoints

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/pausetime/internal/agent"
	"github.com/Nixie-Tech-LLC/pausetime/internal/http/api"
	"github.com/Nixie-Tech-LLC/pausetime/internal/http/api/panel/packets"
	"github.com/Nixie-Tech-LLC/pausetime/internal/model"
)

// Backend is the PauseTime backend surface proxied to the panel.
type Backend interface {
	GetState(ctx context.Context) (model.StateReport, error)
	Toggle(ctx context.Context, enabled bool) (bool, error)
	GetPrayerTimes(ctx context.Context) (model.PrayerTimeTable, error)
	ListSchedules(ctx context.Context) ([]model.Schedule, error)
	CreateSchedule(ctx context.Context, in model.ScheduleInput) (model.Schedule, error)
	UpdateSchedule(ctx context.Context, id int, in model.ScheduleUpdate) (model.Schedule, error)
	DeleteSchedule(ctx context.Context, id int) error
	GetSettings(ctx context.Context) (model.Settings, error)
	UpdateSettings(ctx context.Context, in model.SettingsUpdate) (model.Settings, error)
}

type BackendController struct {
	agent   *agent.Agent
	backend Backend
	loc     *time.Location
	now     func() time.Time
}

func newBackendController(a *agent.Agent, b Backend, loc *time.Location) *BackendController {
	if loc == nil {
		loc = time.Local
	}
	return &BackendController{agent: a, backend: b, loc: loc, now: time.Now}
}

// BackendModule mounts the /backend proxy. Writes refresh the agent's view
// of the backend right away instead of waiting for the next poll.
func BackendModule(a *agent.Agent, b Backend, loc *time.Location) api.Module {
	ctl := newBackendController(a, b, loc)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/backend/state", ctl.getState)
		c.POST("/backend/toggle", ctl.toggle)
		c.GET("/backend/prayer-times", ctl.getPrayerTimes)
		c.GET("/backend/schedules", ctl.listSchedules)
		c.POST("/backend/schedules", ctl.createSchedule)
		c.PUT("/backend/schedules/:id", ctl.updateSchedule)
		c.DELETE("/backend/schedules/:id", ctl.deleteSchedule)
		c.GET("/backend/settings", ctl.getSettings)
		c.PUT("/backend/settings", ctl.updateSettings)
	})
}

func (b *BackendController) getState(ctx *gin.Context) (any, *api.Error) {
	report, err := b.backend.GetState(ctx.Request.Context())
	if err != nil {
		return nil, resolveBackendError(err)
	}
	return report, nil
}

func (b *BackendController) toggle(ctx *gin.Context) (any, *api.Error) {
	var request packets.ToggleRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	enabled, err := b.backend.Toggle(ctx.Request.Context(), *request.Enabled)
	if err != nil {
		return nil, resolveBackendError(err)
	}
	b.refresh(ctx.Request.Context(), false, false)
	return packets.ToggleResponse{Enabled: enabled}, nil
}

func (b *BackendController) getPrayerTimes(ctx *gin.Context) (any, *api.Error) {
	table, err := b.backend.GetPrayerTimes(ctx.Request.Context())
	if err != nil {
		return nil, resolveBackendError(err)
	}
	resp := packets.PrayerTimesResponse{Times: table}
	if key, ok := table.Next(model.ClockMinute(b.now(), b.loc)); ok {
		resp.Next = &packets.NextPrayer{Key: key, Name: key.DisplayName(), Time: table[key]}
	}
	return resp, nil
}

// An unreachable backend falls back to the last polled list.
func (b *BackendController) listSchedules(ctx *gin.Context) (any, *api.Error) {
	list, err := b.backend.ListSchedules(ctx.Request.Context())
	if err == nil {
		return packets.SchedulesResponse{Schedules: list}, nil
	}
	cached, valid, cacheErr := b.agent.CachedSchedules(ctx.Request.Context())
	if cacheErr != nil || !valid {
		return nil, resolveBackendError(err)
	}
	log.Warn().Err(err).Msg("[backend] serving cached schedules")
	return packets.SchedulesResponse{Schedules: cached, Cached: true}, nil
}

func (b *BackendController) createSchedule(ctx *gin.Context) (any, *api.Error) {
	var request packets.CreateScheduleRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	if !model.IsClockTime(request.PauseTime) || (request.ResumeTime != nil && !model.IsClockTime(*request.ResumeTime)) {
		return nil, api.BadRequest("times must be HH:MM")
	}
	schedule, err := b.backend.CreateSchedule(ctx.Request.Context(), model.ScheduleInput{
		PauseTime:  request.PauseTime,
		ResumeTime: request.ResumeTime,
		Days:       request.Days,
		Label:      request.Label,
		Enabled:    request.Enabled,
	})
	if err != nil {
		return nil, resolveBackendError(err)
	}
	b.refresh(ctx.Request.Context(), true, false)
	return packets.ScheduleResponse{Schedule: schedule}, nil
}

func (b *BackendController) updateSchedule(ctx *gin.Context) (any, *api.Error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return nil, api.BadRequest("invalid id")
	}
	var request packets.UpdateScheduleRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	for _, t := range []*string{request.PauseTime, request.ResumeTime} {
		if t != nil && !model.IsClockTime(*t) {
			return nil, api.BadRequest("times must be HH:MM")
		}
	}
	schedule, err := b.backend.UpdateSchedule(ctx.Request.Context(), id, model.ScheduleUpdate{
		PauseTime:  request.PauseTime,
		ResumeTime: request.ResumeTime,
		Days:       request.Days,
		Label:      request.Label,
		Enabled:    request.Enabled,
	})
	if err != nil {
		return nil, resolveBackendError(err)
	}
	b.refresh(ctx.Request.Context(), true, false)
	return packets.ScheduleResponse{Schedule: schedule}, nil
}

func (b *BackendController) deleteSchedule(ctx *gin.Context) (any, *api.Error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return nil, api.BadRequest("invalid id")
	}
	if err := b.backend.DeleteSchedule(ctx.Request.Context(), id); err != nil {
		return nil, resolveBackendError(err)
	}
	b.refresh(ctx.Request.Context(), true, false)
	return packets.SuccessResponse{Success: true}, nil
}

func (b *BackendController) getSettings(ctx *gin.Context) (any, *api.Error) {
	settings, err := b.backend.GetSettings(ctx.Request.Context())
	if err != nil {
		return nil, resolveBackendError(err)
	}
	return packets.SettingsResponse{Settings: settings}, nil
}

func (b *BackendController) updateSettings(ctx *gin.Context) (any, *api.Error) {
	var request packets.UpdateSettingsRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	update := model.SettingsUpdate{
		City:                 request.City,
		CalculationMethod:    request.CalculationMethod,
		LaunchOnStartup:      request.LaunchOnStartup,
		StartMinimizedToTray: request.StartMinimizedToTray,
		CloseToTray:          request.CloseToTray,
	}
	if m := update.CalculationMethod; m != nil {
		if _, ok := model.CalculationMethods[*m]; !ok {
			return nil, api.BadRequest("unknown calculation method")
		}
	}
	settings, err := b.backend.UpdateSettings(ctx.Request.Context(), update)
	if err != nil {
		return nil, resolveBackendError(err)
	}
	b.refresh(ctx.Request.Context(), false, update.ChangesPrayerTimes())
	return packets.SettingsResponse{Settings: settings}, nil
}

func (b *BackendController) refresh(ctx context.Context, schedules, prayerTimes bool) {
	var err error
	if schedules {
		err = b.agent.SchedulesChanged(ctx)
	} else {
		err = b.agent.BackendChanged(ctx, prayerTimes)
	}
	if err != nil {
		log.Warn().Err(err).Msg("[backend] could not refresh agent after write")
	}
}
