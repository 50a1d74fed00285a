package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/launchsignal/validator-backend/internal/http/handlers"
	httpMW "github.com/launchsignal/validator-backend/internal/http/middleware"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler   *httpH.HealthHandler
	SessionHandler  *httpH.SessionHandler
	ReportHandler   *httpH.ReportHandler
	JobHandler      *httpH.JobHandler
	RealtimeHandler *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.CORS())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMW.RequestLogger(cfg.Log))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.RealtimeHandler != nil {
			protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		}

		if cfg.SessionHandler != nil {
			protected.POST("/sessions", cfg.SessionHandler.CreateSession)
			protected.GET("/sessions/:id", cfg.SessionHandler.GetSession)
			protected.POST("/sessions/:id/validate", cfg.SessionHandler.Validate)
			protected.POST("/sessions/:id/regenerate", cfg.SessionHandler.Regenerate)
		}

		if cfg.ReportHandler != nil {
			protected.GET("/sessions/:id/report", cfg.ReportHandler.GetCurrentReport)
			protected.GET("/sessions/:id/reports", cfg.ReportHandler.ListReports)
			protected.GET("/reports/:id/views", cfg.ReportHandler.GetReportViews)
		}

		if cfg.JobHandler != nil {
			protected.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}
	}

	return r
}
