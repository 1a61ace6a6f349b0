package utils

import (
	"errors"
	"net/http"

	apperrors "activity-engine/pkg/errors"

	"github.com/labstack/echo/v4"
)

type HttpResponse struct {
	Status  bool        `json:"status"`
	Body    interface{} `json:"body,omitempty"`
	Message string      `json:"message"`
}

func SuccessResponse(ctx echo.Context, body interface{}, message string, code int) error {
	response := &HttpResponse{
		Status:  true,
		Body:    body,
		Message: message,
	}
	return ctx.JSON(code, response)
}

func ErrorResponse(ctx echo.Context, err error) error {
	message := err.Error()
	code := http.StatusInternalServerError

	var httpErr *apperrors.HttpError
	switch {
	case errors.As(err, &httpErr):
		code = httpErr.Code
		message = httpErr.Message
	case errors.Is(err, apperrors.ErrEmptyAuthHeader),
		errors.Is(err, apperrors.ErrInvalidAuthHeader),
		errors.Is(err, apperrors.ErrInvalidToken):
		code = http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrAccountMismatch):
		code = http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrUnknownCategory):
		code = http.StatusNotFound
	case errors.Is(err, apperrors.ErrBadRequest):
		code = http.StatusBadRequest
	default:
		var invalidInput *apperrors.InvalidInputError
		if errors.As(err, &invalidInput) {
			code = http.StatusBadRequest
		}
	}

	response := &HttpResponse{
		Status:  false,
		Body:    struct{}{},
		Message: message,
	}
	return ctx.JSON(code, response)
}
