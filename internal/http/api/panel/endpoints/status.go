package endpoints

import (
	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/pausetime/internal/agent"
	"github.com/Nixie-Tech-LLC/pausetime/internal/http/api"
	"github.com/Nixie-Tech-LLC/pausetime/internal/http/api/panel/packets"
)

type StatusController struct {
	agent *agent.Agent
}

// StatusModule mounts the read side of the panel plus overlay and
// notification dismissal.
func StatusModule(a *agent.Agent) api.Module {
	ctl := &StatusController{agent: a}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/status", ctl.getStatus)
		c.GET("/ezan", ctl.getEzan)
		c.POST("/overlay/dismiss", ctl.dismissOverlay)
		c.DELETE("/notifications/:id", ctl.dismissNotification)
	})
}

func (s *StatusController) getStatus(ctx *gin.Context) (any, *api.Error) {
	status, err := s.agent.Status(ctx.Request.Context())
	if err != nil {
		return nil, resolveError(err)
	}
	return status, nil
}

func (s *StatusController) getEzan(ctx *gin.Context) (any, *api.Error) {
	status, err := s.agent.EzanStatus(ctx.Request.Context())
	if err != nil {
		return nil, resolveError(err)
	}
	return status, nil
}

// Only an alarm overlay can be dismissed; the ezan overlay stays up.
func (s *StatusController) dismissOverlay(ctx *gin.Context) (any, *api.Error) {
	hidden, err := s.agent.DismissAlarmOverlay(ctx.Request.Context())
	if err != nil {
		return nil, resolveError(err)
	}
	return packets.SuccessResponse{Success: hidden}, nil
}

func (s *StatusController) dismissNotification(ctx *gin.Context) (any, *api.Error) {
	ok, err := s.agent.Dismiss(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		return nil, resolveError(err)
	}
	if !ok {
		return nil, api.NotFound("notification not found")
	}
	return packets.SuccessResponse{Success: true}, nil
}
