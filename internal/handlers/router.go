package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"recipeshorts/internal/logger"
)

// Handlers groups everything the router serves. Recipes may be nil when the
// archive is disabled.
type Handlers struct {
	Jobs    *JobHandler
	Chat    *ChatHandler
	Recipes *RecipeHandler
	Health  *HealthHandler
}

// NewServer builds the echo instance with middleware and routes.
func NewServer(h Handlers, log *logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(RequestLogger(log))
	e.Use(middleware.CORS())

	e.GET("/health", h.Health.Health)

	api := e.Group("/api")
	api.POST("/analyze", h.Jobs.Analyze)
	api.GET("/status/:job_id", h.Jobs.Status)
	api.GET("/result/:job_id", h.Jobs.Result)
	api.DELETE("/job/:job_id", h.Jobs.Delete)
	api.GET("/stats", h.Jobs.Stats)
	e.GET("/jobs/:job_id", h.Jobs.Page)

	if h.Recipes != nil {
		api.GET("/recipes", h.Recipes.List)
		api.GET("/recipes/:video_id", h.Recipes.Get)
		api.DELETE("/recipes/:video_id", h.Recipes.Delete)
	}

	c := api.Group("/chat")
	c.POST("/start", h.Chat.Start)
	c.GET("/session/:id", h.Chat.Status)
	c.GET("/session/:id/step/:n", h.Chat.Step)
	c.POST("/session/:id/complete-step/:n", h.Chat.CompleteStep)
	c.POST("/message", h.Chat.Message)
	c.POST("/message-with-image", h.Chat.MessageWithImage)
	c.GET("/session/:id/history", h.Chat.History)
	c.DELETE("/session/:id", h.Chat.End)

	return e
}

// RequestLogger routes echo request logs through the zap logger.
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = logger.Nop()
	}
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			kv := []interface{}{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"remote_ip", v.RemoteIP,
			}
			switch {
			case v.Error != nil:
				log.Error("request failed", append(kv, "error", v.Error)...)
			case v.Status >= 500:
				log.Warn("request", kv...)
			default:
				log.Info("request", kv...)
			}
			return nil
		},
	})
}
