package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/pausetime/internal/http/api"
	"github.com/Nixie-Tech-LLC/pausetime/internal/metrics"
)

// MetricsModule mounts the Prometheus scrape endpoint.
func MetricsModule(m *metrics.Metrics) api.Module {
	return api.ModuleFunc(func(c *api.Controller) {
		c.Handle(http.MethodGet, "/metrics", gin.WrapH(m.Handler(nil)))
	})
}
