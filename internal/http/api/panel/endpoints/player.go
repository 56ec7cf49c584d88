package endpoints

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/pausetime/internal/agent"
	"github.com/Nixie-Tech-LLC/pausetime/internal/http/api"
	"github.com/Nixie-Tech-LLC/pausetime/internal/http/api/panel/packets"
	"github.com/Nixie-Tech-LLC/pausetime/internal/model"
	"github.com/Nixie-Tech-LLC/pausetime/internal/storage"
)

type PlayerController struct {
	agent   *agent.Agent
	storage storage.Storage
}

func newPlayerController(a *agent.Agent, st storage.Storage) *PlayerController {
	return &PlayerController{agent: a, storage: st}
}

// PlayerModule mounts the /player transport, source and volume endpoints.
func PlayerModule(a *agent.Agent, st storage.Storage) api.Module {
	ctl := newPlayerController(a, st)
	return api.ModuleFunc(func(c *api.Controller) {
		c.POST("/player/play", ctl.play)
		c.POST("/player/pause", ctl.pause)
		c.POST("/player/toggle", ctl.toggle)
		c.POST("/player/seek", ctl.seek)
		c.POST("/player/source", ctl.switchSource)
		c.POST("/player/volume", ctl.setVolume)
		c.POST("/player/mute", ctl.setMuted)
		c.POST("/player/loop", ctl.setLooping)
		c.POST("/player/remote", ctl.loadRemote)
		c.POST("/player/local", ctl.uploadLocal)
	})
}

func (p *PlayerController) play(ctx *gin.Context) (any, *api.Error) {
	if err := p.agent.Play(ctx.Request.Context()); err != nil {
		return nil, resolveError(err)
	}
	return packets.SuccessResponse{Success: true}, nil
}

func (p *PlayerController) pause(ctx *gin.Context) (any, *api.Error) {
	if err := p.agent.Pause(ctx.Request.Context()); err != nil {
		return nil, resolveError(err)
	}
	return packets.SuccessResponse{Success: true}, nil
}

func (p *PlayerController) toggle(ctx *gin.Context) (any, *api.Error) {
	if err := p.agent.TogglePlay(ctx.Request.Context()); err != nil {
		return nil, resolveError(err)
	}
	return packets.SuccessResponse{Success: true}, nil
}

func (p *PlayerController) seek(ctx *gin.Context) (any, *api.Error) {
	var request packets.SeekRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	if err := p.agent.Seek(ctx.Request.Context(), *request.Position); err != nil {
		return nil, resolveError(err)
	}
	return packets.SuccessResponse{Success: true}, nil
}

func (p *PlayerController) switchSource(ctx *gin.Context) (any, *api.Error) {
	var request packets.SourceRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	source, err := model.ParsePlaybackSource(request.Source)
	if err != nil {
		return nil, api.BadRequest(err.Error())
	}
	if err := p.agent.SwitchSource(ctx.Request.Context(), source); err != nil {
		return nil, resolveError(err)
	}
	return packets.SuccessResponse{Success: true}, nil
}

func (p *PlayerController) setVolume(ctx *gin.Context) (any, *api.Error) {
	var request packets.VolumeRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	if err := p.agent.SetVolume(ctx.Request.Context(), *request.Volume); err != nil {
		return nil, resolveError(err)
	}
	return packets.VolumeResponse{Volume: *request.Volume}, nil
}

func (p *PlayerController) setMuted(ctx *gin.Context) (any, *api.Error) {
	var request packets.MuteRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	if err := p.agent.SetMuted(ctx.Request.Context(), *request.Muted); err != nil {
		return nil, resolveError(err)
	}
	return packets.MuteResponse{Muted: *request.Muted}, nil
}

func (p *PlayerController) setLooping(ctx *gin.Context) (any, *api.Error) {
	var request packets.LoopRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	if err := p.agent.SetLooping(ctx.Request.Context(), *request.Enabled); err != nil {
		return nil, resolveError(err)
	}
	return packets.LoopResponse{Looping: *request.Enabled}, nil
}

func (p *PlayerController) loadRemote(ctx *gin.Context) (any, *api.Error) {
	var request packets.RemoteRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	id, err := p.agent.LoadRemote(ctx.Request.Context(), request.URL)
	if err != nil {
		return nil, resolveError(err)
	}
	return packets.RemoteResponse{VideoID: id}, nil
}

// POST /api/panel/player/local (multipart, field "file")
func (p *PlayerController) uploadLocal(ctx *gin.Context) (any, *api.Error) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		log.Warn().Err(err).Msg("[player] uploadLocal: missing file")
		return nil, api.BadRequest("file is required")
	}

	suspended, err := p.agent.Suspended(ctx.Request.Context())
	if err != nil {
		return nil, resolveError(err)
	}
	if suspended {
		return nil, resolveError(agent.ErrSuspended)
	}

	location, err := p.storage.SaveFile(fileHeader, fileHeader.Filename)
	if err != nil {
		log.Error().Err(err).Str("filename", fileHeader.Filename).Msg("[player] uploadLocal: save failed")
		return nil, resolveError(err)
	}

	if err := p.agent.LoadLocal(ctx.Request.Context(), location); err != nil {
		log.Warn().Err(err).Str("location", location).Msg("[player] uploadLocal: load failed")
		if delErr := p.storage.Delete(location); delErr != nil {
			log.Error().Err(delErr).Str("location", location).Msg("[player] uploadLocal: cleanup failed")
		}
		return nil, resolveError(err)
	}

	resp := packets.LocalResponse{Location: location}
	if u, ok := p.storage.(interface{ URL(string) string }); ok {
		resp.URL = u.URL(location)
	}
	return resp, nil
}
