package api

import (
	"context"
	"errors"
	"net/http"

	apicontrollers "github.com/drujensen/tasktracker/internal/api/controllers"
	"github.com/drujensen/tasktracker/internal/api/websocket"
	"github.com/drujensen/tasktracker/internal/domain/events"
	"github.com/drujensen/tasktracker/internal/domain/services"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
)

type Server struct {
	echo   *echo.Echo
	hub    *websocket.TaskEventHub
	logger *zap.Logger
}

// NewServer wires the task API under /api and its Swagger UI under
// /swagger. The event stream is only available when bus is not nil.
func NewServer(taskService services.TaskService, bus *events.Bus, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("Request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			)
			return nil
		},
	}))

	s := &Server{echo: e, logger: logger}

	api := e.Group("/api")
	if bus != nil {
		s.hub = websocket.NewTaskEventHub(bus, logger)
		s.hub.RegisterRoutes(api)
	}
	apicontrollers.NewTaskController(logger, taskService).RegisterRoutes(api)

	registerDoc()
	e.GET("/swagger/*", echoSwagger.EchoWrapHandler(echoSwagger.InstanceName(DocName)))

	return s
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Failed to start server", zap.Error(err))
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	return s.echo.Shutdown(ctx)
}
