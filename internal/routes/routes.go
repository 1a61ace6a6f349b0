package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"activity-engine/internal/controllers"
	"activity-engine/internal/engine"
	"activity-engine/internal/services"
	"activity-engine/pkg/middleware"
	"activity-engine/pkg/service"
)

// InitRouter собирает маршруты API над движком. Весь API закрыт JWT:
// аутентификация - предусловие, движок токены не выдает.
func InitRouter(e *echo.Echo, eng *engine.Engine, jwtSvc service.JWTService, logger *zap.Logger) {
	logger.Info("InitRouter: Начало создания маршрутов")

	authMW := middleware.NewAuthMiddleware(jwtSvc, logger)
	e.Use(middleware.InjectLogger(logger))

	reportService := services.NewReportService(logger)
	activityController := controllers.NewActivityController(eng, reportService, logger)

	api := e.Group("/api", authMW.Auth)

	activity := api.Group("/activity")
	activity.GET("", activityController.GetFeed)
	activity.GET("/counters", activityController.GetCounters)
	activity.GET("/export", activityController.Export)
	activity.POST("/refresh", activityController.Refresh)
	activity.POST("/read/:category", activityController.MarkAsRead)
	activity.POST("/viewing/:category", activityController.SetViewing)
}
