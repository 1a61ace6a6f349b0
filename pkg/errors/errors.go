package errors

import "fmt"

var (
	// Нормализация
	ErrMissingID        = fmt.Errorf("у записи отсутствует идентификатор")
	ErrMissingTimestamp = fmt.Errorf("у записи отсутствует временная метка")
	ErrUnknownCategory  = fmt.Errorf("неизвестная категория активности")
	ErrUnknownEventType = fmt.Errorf("неизвестный тип push-события")

	// Шлюзы
	ErrGatewayStatus = fmt.Errorf("доменный сервис вернул неуспешный статус")

	// Авторизация API
	ErrEmptyAuthHeader   = fmt.Errorf("заголовок авторизации отсутствует")
	ErrInvalidAuthHeader = fmt.Errorf("неверный формат заголовка авторизации")
	ErrInvalidToken      = fmt.Errorf("недопустимый токен")
	ErrAccountMismatch   = fmt.Errorf("токен выдан другой учетной записи")

	// Общие
	ErrNotFound   = fmt.Errorf("запись не найдена")
	ErrBadRequest = fmt.Errorf("неверный запрос")
)

// HttpError - ошибка, которую слой API отдает наружу с HTTP-статусом.
type HttpError struct {
	Code    int
	Message string
	Err     error
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err}
}

// InvalidInputError - ошибка валидации входных данных.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string { return e.Message }

func NewInvalidInputError(format string, args ...interface{}) error {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...)}
}
