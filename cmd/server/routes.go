package main

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/pausetime/internal/agent"
	"github.com/Nixie-Tech-LLC/pausetime/internal/config"
	"github.com/Nixie-Tech-LLC/pausetime/internal/http/api"
	panelapi "github.com/Nixie-Tech-LLC/pausetime/internal/http/api/panel/endpoints"
	"github.com/Nixie-Tech-LLC/pausetime/internal/metrics"
	"github.com/Nixie-Tech-LLC/pausetime/internal/panel"
	"github.com/Nixie-Tech-LLC/pausetime/internal/storage"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes(r *gin.Engine, cfg *config.Config, a *agent.Agent, pnl *panel.Panel,
	backend panelapi.Backend, storageSystem storage.Storage, m *metrics.Metrics) {
	// CORS
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
		},
		ExposeHeaders: []string{
			"Content-Length",
		},
		AllowCredentials: false,
	}))

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api/panel",
	},
		panelapi.StatusModule(a),
		panelapi.PlayerModule(a, storageSystem),
		panelapi.AlarmModule(a),
		panelapi.BackendModule(a, backend, cfg.Location),
		panelapi.EventsModule(pnl),
		panelapi.MetricsModule(m),
	)

	// Static content
	if !cfg.UseSpaces {
		r.Static("/uploads", cfg.UploadDir)
	}
}
