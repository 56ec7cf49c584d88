package endpoints

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/pausetime/internal/agent"
	"github.com/Nixie-Tech-LLC/pausetime/internal/alarm"
	"github.com/Nixie-Tech-LLC/pausetime/internal/ezan"
	"github.com/Nixie-Tech-LLC/pausetime/internal/http/api"
	"github.com/Nixie-Tech-LLC/pausetime/internal/loop"
	"github.com/Nixie-Tech-LLC/pausetime/internal/player"
	"github.com/Nixie-Tech-LLC/pausetime/internal/poller"
	"github.com/Nixie-Tech-LLC/pausetime/internal/storage"
)

// resolveError maps a domain error onto an HTTP status.
func resolveError(err error) *api.Error {
	var backendErr *poller.APIError
	switch {
	case errors.Is(err, agent.ErrSuspended):
		return &api.Error{Code: http.StatusLocked, Message: err.Error()}
	case errors.Is(err, alarm.ErrInvalidTime),
		errors.Is(err, alarm.ErrInvalidAction),
		errors.Is(err, player.ErrInvalidVideo),
		errors.Is(err, player.ErrUnknownSource),
		errors.Is(err, storage.ErrUnsupportedFormat):
		return api.BadRequest(err.Error())
	case errors.Is(err, alarm.ErrAlarmNotFound):
		return api.NotFound(err.Error())
	case errors.Is(err, alarm.ErrDuplicateTime),
		errors.Is(err, ezan.ErrInterruptActive),
		errors.Is(err, player.ErrNoContent):
		return &api.Error{Code: http.StatusConflict, Message: err.Error()}
	case errors.As(err, &backendErr):
		if backendErr.Status >= 400 && backendErr.Status < 500 {
			return &api.Error{Code: backendErr.Status, Message: backendErr.Message}
		}
		return &api.Error{Code: http.StatusBadGateway, Message: backendErr.Error()}
	case errors.Is(err, loop.ErrStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &api.Error{Code: http.StatusServiceUnavailable, Message: "agent is not running"}
	}
	log.Error().Err(err).Msg("[panel] unhandled error")
	return api.Internal("internal error")
}

// resolveBackendError is resolveError for calls that went to the backend,
// where a transport failure means the backend is unreachable.
func resolveBackendError(err error) *api.Error {
	var backendErr *poller.APIError
	if errors.As(err, &backendErr) {
		return resolveError(err)
	}
	log.Warn().Err(err).Msg("[panel] backend request failed")
	return &api.Error{Code: http.StatusBadGateway, Message: "backend unreachable"}
}
