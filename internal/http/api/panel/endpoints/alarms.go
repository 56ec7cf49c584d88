package endpoints

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/pausetime/internal/agent"
	"github.com/Nixie-Tech-LLC/pausetime/internal/http/api"
	"github.com/Nixie-Tech-LLC/pausetime/internal/http/api/panel/packets"
	"github.com/Nixie-Tech-LLC/pausetime/internal/model"
)

type AlarmController struct {
	agent *agent.Agent
}

func newAlarmController(a *agent.Agent) *AlarmController {
	return &AlarmController{agent: a}
}

// AlarmModule mounts the /alarms CRUD endpoints.
func AlarmModule(a *agent.Agent) api.Module {
	ctl := newAlarmController(a)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/alarms", ctl.listAlarms)
		c.POST("/alarms", ctl.createAlarm)
		c.PUT("/alarms/:id", ctl.updateAlarm)
		c.DELETE("/alarms/:id", ctl.deleteAlarm)
	})
}

func (a *AlarmController) listAlarms(ctx *gin.Context) (any, *api.Error) {
	alarms, err := a.agent.ListAlarms(ctx.Request.Context())
	if err != nil {
		return nil, resolveError(err)
	}
	out := packets.AlarmListResponse{Alarms: make([]packets.AlarmResponse, 0, len(alarms))}
	for _, x := range alarms {
		out.Alarms = append(out.Alarms, packets.NewAlarmResponse(x))
	}
	return out, nil
}

func (a *AlarmController) createAlarm(ctx *gin.Context) (any, *api.Error) {
	var request packets.AlarmRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	created, err := a.agent.AddAlarm(ctx.Request.Context(), request.Time, model.AlarmAction(request.Action))
	if err != nil {
		return nil, resolveError(err)
	}
	return packets.NewAlarmResponse(created), nil
}

func (a *AlarmController) updateAlarm(ctx *gin.Context) (any, *api.Error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, api.BadRequest("invalid id")
	}
	var request packets.AlarmRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	updated, err := a.agent.UpdateAlarm(ctx.Request.Context(), id, request.Time, model.AlarmAction(request.Action))
	if err != nil {
		return nil, resolveError(err)
	}
	return packets.NewAlarmResponse(updated), nil
}

func (a *AlarmController) deleteAlarm(ctx *gin.Context) (any, *api.Error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, api.BadRequest("invalid id")
	}
	if err := a.agent.DeleteAlarm(ctx.Request.Context(), id); err != nil {
		return nil, resolveError(err)
	}
	return packets.SuccessResponse{Success: true}, nil
}
