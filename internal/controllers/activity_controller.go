package controllers

import (
	"fmt"
	"net/http"
	"time"

	"activity-engine/internal/dto"
	"activity-engine/internal/engine"
	"activity-engine/internal/entities"
	"activity-engine/internal/services"
	"activity-engine/internal/view"
	"activity-engine/pkg/contextkeys"
	apperrors "activity-engine/pkg/errors"
	"activity-engine/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ActivityController - тонкий слой API над движком. Сам он состояния
// не имеет: каждая ручка - это Snapshot плюс чистая выборка.
type ActivityController struct {
	engine        *engine.Engine
	reportService services.ReportServiceInterface
	logger        *zap.Logger
}

func NewActivityController(eng *engine.Engine, reportService services.ReportServiceInterface, logger *zap.Logger) *ActivityController {
	return &ActivityController{
		engine:        eng,
		reportService: reportService,
		logger:        logger,
	}
}

// authorize сверяет учетную запись из токена с той, под которой живет
// сессия движка. Движок обслуживает ровно одну учетную запись; чужой
// токен не должен ни читать ее ленту, ни двигать ее отметки прочтения.
func (c *ActivityController) authorize(ctx echo.Context) error {
	tenantID, userID := c.engine.Account()

	reqCtx := ctx.Request().Context()
	tokenUser, _ := reqCtx.Value(contextkeys.UserIDKey).(string)
	tokenTenant, _ := reqCtx.Value(contextkeys.TenantIDKey).(string)

	if tokenUser != userID || tokenTenant != tenantID {
		c.logger.Warn("Запрос с токеном чужой учетной записи",
			zap.String("tokenUserID", tokenUser),
			zap.String("sessionUserID", userID),
		)
		return apperrors.ErrAccountMismatch
	}
	return nil
}

// GetFeed отдает срез ленты с фильтрами из query-строки.
func (c *ActivityController) GetFeed(ctx echo.Context) error {
	if err := c.authorize(ctx); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var filter dto.ActivityFilterDTO
	if err := ctx.Bind(&filter); err != nil {
		return utils.ErrorResponse(ctx, apperrors.ErrBadRequest)
	}
	if err := ctx.Validate(&filter); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	items := view.Apply(c.engine.Snapshot(), view.Filter{
		Category:     entities.Category(filter.Category),
		StatusBucket: view.StatusBucket(filter.StatusBucket),
		DateRange:    view.DateRange(filter.DateRange),
		Search:       filter.Search,
	})

	return utils.SuccessResponse(ctx, dto.ActivityFeedDTO{
		Items: items,
		Total: len(items),
	}, "Лента активности", http.StatusOK)
}

// GetCounters отдает счетчики непрочитанного.
func (c *ActivityController) GetCounters(ctx echo.Context) error {
	if err := c.authorize(ctx); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	return utils.SuccessResponse(ctx, dto.CountersDTO{
		Counters: c.engine.Counters.Counters(),
	}, "Счетчики уведомлений", http.StatusOK)
}

// MarkAsRead обнуляет счетчик категории и сдвигает отметку прочтения.
func (c *ActivityController) MarkAsRead(ctx echo.Context) error {
	if err := c.authorize(ctx); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	category, err := parseCategory(ctx.Param("category"))
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	c.engine.Counters.MarkAsRead(ctx.Request().Context(), category)
	return utils.SuccessResponse(ctx, c.engine.Counters.Counters(), "Категория отмечена прочитанной", http.StatusOK)
}

// SetViewing принимает явный сигнал "категория сейчас на экране".
func (c *ActivityController) SetViewing(ctx echo.Context) error {
	if err := c.authorize(ctx); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	category, err := parseCategory(ctx.Param("category"))
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var body dto.ViewingDTO
	if err := ctx.Bind(&body); err != nil {
		return utils.ErrorResponse(ctx, apperrors.ErrBadRequest)
	}

	c.engine.Counters.SetViewing(category, body.Viewing)
	return utils.SuccessResponse(ctx, struct{}{}, "Сигнал просмотра учтен", http.StatusOK)
}

// Refresh принудительно повторяет bulk-загрузку и сверку счетчиков.
func (c *ActivityController) Refresh(ctx echo.Context) error {
	if err := c.authorize(ctx); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	c.engine.Hydrate(ctx.Request().Context())
	return utils.SuccessResponse(ctx, dto.ActivityFeedDTO{
		Items: c.engine.Snapshot(),
		Total: c.engine.Aggregator.Len(),
	}, "Лента обновлена", http.StatusOK)
}

// Export выгружает текущий срез ленты в xlsx.
func (c *ActivityController) Export(ctx echo.Context) error {
	if err := c.authorize(ctx); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	workbook, err := c.reportService.BuildFeedWorkbook(c.engine.Snapshot())
	if err != nil {
		c.logger.Error("Не удалось сформировать выгрузку ленты", zap.Error(err))
		return utils.ErrorResponse(ctx, err)
	}

	filename := fmt.Sprintf("activity_%s.xlsx", time.Now().Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().WriteHeader(http.StatusOK)

	return workbook.Write(ctx.Response().Writer)
}

// parseCategory допускает категории ленты и синтетическую liveActivity.
func parseCategory(raw string) (entities.Category, error) {
	candidate := entities.Category(raw)
	if candidate == entities.CategoryLiveActivity {
		return candidate, nil
	}
	for _, category := range entities.Categories {
		if category == candidate {
			return category, nil
		}
	}
	return "", apperrors.ErrUnknownCategory
}
