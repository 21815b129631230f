package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cosmic-idle/server/internal/network"
	"github.com/cosmic-idle/server/internal/platform/metrics"
	"github.com/cosmic-idle/server/internal/platform/optimization"
)

// Deps are the components the router serves.
type Deps struct {
	Game    *GameHandler
	Events  *EventsHandler
	Hub     *network.Hub // optional; nil disables /ws
	Metrics *metrics.Collector
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	g := r.Group("/api")
	{
		g.GET("/state", d.Game.State)
		g.GET("/catalog", d.Game.Catalog)
		g.POST("/actions", d.Game.Action)
		g.POST("/save", d.Game.Save)
		g.POST("/reset", d.Game.Reset)

		g.GET("/events", d.Events.Since)
		g.GET("/events/history", d.Events.History)
		g.GET("/events/stats", d.Events.Stats)
	}

	if d.Metrics != nil {
		m := d.Metrics
		g.GET("/metrics", gin.WrapF(m.Handler()))
		g.GET("/metrics/recommendations", func(c *gin.Context) {
			c.JSON(http.StatusOK, optimization.Analyze(m.Snapshot()))
		})
		r.GET("/metrics", gin.WrapF(m.PrometheusHandler()))
	}

	if d.Hub != nil {
		hub := d.Hub
		r.GET("/ws", func(c *gin.Context) {
			network.ServeWs(hub, c.Writer, c.Request)
		})
	}

	return r
}
