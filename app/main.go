// Файл: main.go

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"activity-engine/internal/engine"
	"activity-engine/internal/repositories"
	"activity-engine/internal/routes"
	"activity-engine/pkg/config"
	apperrors "activity-engine/pkg/errors"
	applogger "activity-engine/pkg/logger"
	"activity-engine/pkg/service"
	"activity-engine/pkg/utils"
	"activity-engine/pkg/websocket"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or could not be loaded.")
	}

	e := echo.New()
	logger := applogger.NewLogger()
	cfg := config.New()

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("!!! ОБНАРУЖЕНА ПАНИКА (PANIC) !!!",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "Внутренняя ошибка сервера", err)
				_ = utils.ErrorResponse(c, httpErr)
			}
			return err
		},
	}))

	e.Validator = utils.NewValidator(validator.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer redisClient.Close()

	readStateRepo := repositories.NewRedisReadStateRepository(redisClient)
	eng := engine.New(cfg, readStateRepo, logger)

	identity := websocket.Identity{
		UserID:    os.Getenv("ENGINE_USER_ID"),
		TenantID:  os.Getenv("ENGINE_TENANT_ID"),
		AuthToken: os.Getenv("ENGINE_AUTH_TOKEN"),
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := eng.Start(startCtx, identity); err != nil {
		// Push-канал может быть недоступен на старте: лента все равно
		// наполнится из шлюзов, а канал поднимет повторный Start.
		logger.Warn("Не удалось установить push-сессию на старте", zap.Error(err))
		eng.Hydrate(startCtx)
	}
	cancel()

	jwtSvc := service.NewJWTService(cfg.JWT.SecretKey)
	routes.InitRouter(e, eng, jwtSvc, logger)

	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Сервер остановился с ошибкой", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Останавливаемся...")
	eng.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка при остановке сервера", zap.Error(err))
	}
}
