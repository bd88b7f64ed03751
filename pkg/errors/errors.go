package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// JWT и токены
	ErrInvalidSigningMethod = fmt.Errorf("неверный метод подписи токена")
	ErrInvalidToken         = fmt.Errorf("недопустимый токен")
	ErrTokenExpired         = fmt.Errorf("срок действия токена истёк")
	ErrTokenIsNotRefresh    = fmt.Errorf("токен не является refresh-токеном")
	ErrTokenIsNotAccess     = fmt.Errorf("токен не является access-токеном")

	// Авторизация
	ErrEmptyAuthHeader    = fmt.Errorf("заголовок авторизации отсутствует")
	ErrInvalidAuthHeader  = fmt.Errorf("неверный формат заголовка авторизации")
	ErrInvalidCredentials = fmt.Errorf("неверные учётные данные")
	ErrUnauthorized       = fmt.Errorf("неавторизован")

	// Контекст
	ErrUserIDNotFoundInContext = fmt.Errorf("UserID не найден в контексте запроса")

	// Общие
	ErrNotFound   = fmt.Errorf("запись не найдена")
	ErrBadRequest = fmt.Errorf("неверный запрос")
	ErrConflict   = fmt.Errorf("запись уже существует")
)

// HttpError несёт код ответа и сообщение для клиента; Err и Context уходят только в лог.
type HttpError struct {
	Code    int
	Message string
	Err     error
	Context map[string]interface{}
	Details interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, context map[string]interface{}) *HttpError {
	return &HttpError{
		Code:    code,
		Message: message,
		Err:     err,
		Context: context,
	}
}

// Kind классифицирует ошибки машины состояний обслуживания.
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindValidation        Kind = "VALIDATION_ERROR"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindPersistence       Kind = "PERSISTENCE_FAILURE"
	KindConflict          Kind = "CONFLICT"
)

type MaintenanceError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *MaintenanceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *MaintenanceError) Unwrap() error { return e.Err }

func NewNotFound(message string) error {
	return &MaintenanceError{Kind: KindNotFound, Message: message}
}

func NewValidation(format string, args ...interface{}) error {
	return &MaintenanceError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewInvalidTransition(message string) error {
	return &MaintenanceError{Kind: KindInvalidTransition, Message: message}
}

func NewPersistence(message string, err error) error {
	return &MaintenanceError{Kind: KindPersistence, Message: message, Err: err}
}

func NewConflict(message string, err error) error {
	return &MaintenanceError{Kind: KindConflict, Message: message, Err: err}
}

// KindOf возвращает вид ошибки или пустую строку для посторонних ошибок.
func KindOf(err error) Kind {
	var me *MaintenanceError
	if errors.As(err, &me) {
		return me.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func HTTPStatusForKind(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindInvalidTransition:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ToHttpError переводит доменную ошибку в HttpError. Для ошибок хранилища
// клиент получает общее сообщение, причина остаётся в Err.
func ToHttpError(err error, fallback string) *HttpError {
	var me *MaintenanceError
	if errors.As(err, &me) {
		code := HTTPStatusForKind(me.Kind)
		httpErr := NewHttpError(code, me.Message, nil, map[string]interface{}{"kind": string(me.Kind)})
		httpErr.Details = map[string]string{"kind": string(me.Kind)}
		if me.Kind == KindPersistence || me.Kind == KindConflict {
			httpErr.Err = me.Err
		}
		return httpErr
	}
	var httpErr *HttpError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	if errors.Is(err, ErrNotFound) {
		return NewHttpError(http.StatusNotFound, ErrNotFound.Error(), nil, nil)
	}
	return NewHttpError(http.StatusInternalServerError, fallback, err, nil)
}
