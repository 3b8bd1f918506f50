package http

import (
	"time"

	"fleetuptime/internal/core/ports"
	"fleetuptime/internal/observability"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Deps holds what the routes need. Only Service and Cache are required.
type Deps struct {
	Service      ports.UptimeService
	Cache        ports.ResultCache
	Location     *time.Location
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Health       HealthCheck
	AllowOrigins []string
	SecureCookie bool
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	h := NewHandler(deps.Service, deps.Cache, deps.Location, deps.Metrics, deps.Logger)
	h.health = deps.Health

	corsCfg := cors.DefaultConfig()
	if len(deps.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = deps.AllowOrigins
		corsCfg.AllowCredentials = true
	}
	corsCfg.ExposeHeaders = []string{"Content-Disposition"}

	r.Use(cors.New(corsCfg), deps.Metrics.GinMiddleware())

	api := r.Group("/api/v1")
	api.Use(SessionMiddleware(deps.SecureCookie))
	{
		uptimeGroup := api.Group("/uptime")
		{
			uptimeGroup.GET("", h.GetUptime)
			uptimeGroup.GET("/chart", h.GetChart)
			uptimeGroup.GET("/export", h.GetExport)
		}
	}

	// Outside the session group: health checks get no cookie.
	r.Group("/api/v1").GET("/health", h.GetHealth)
	r.GET("/health", h.GetHealth)
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
