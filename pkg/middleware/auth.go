package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"maintenance-service/pkg/contextkeys"
	apperrors "maintenance-service/pkg/errors"
	"maintenance-service/pkg/service"
	"maintenance-service/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AuthMiddleware struct {
	jwtService service.JWTService
	logger     *zap.Logger
}

func NewAuthMiddleware(jwtSvc service.JWTService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtSvc,
		logger:     logger,
	}
}

// Auth проверяет Bearer access-токен и кладёт UserID в контекст запроса.
func (m *AuthMiddleware) Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			m.logger.Warn("AuthMiddleware: Пустой заголовок Authorization")
			return m.unauthorized(c, apperrors.ErrEmptyAuthHeader)
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.logger.Warn("AuthMiddleware: Неверный формат заголовка Authorization")
			return m.unauthorized(c, apperrors.ErrInvalidAuthHeader)
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			m.logger.Warn("AuthMiddleware: Ошибка валидации токена", zap.Error(err))
			return m.unauthorized(c, err)
		}

		if claims.IsRefreshToken {
			m.logger.Warn("AuthMiddleware: Попытка доступа с refresh токеном")
			return m.unauthorized(c, apperrors.ErrTokenIsNotAccess)
		}

		ctx := context.WithValue(c.Request().Context(), contextkeys.UserIDKey, claims.UserID)
		c.SetRequest(c.Request().WithContext(ctx))

		m.logger.Debug("AuthMiddleware: Пользователь аутентифицирован", zap.Uint64("userID", claims.UserID))
		return next(c)
	}
}

func (m *AuthMiddleware) unauthorized(c echo.Context, err error) error {
	message := apperrors.ErrUnauthorized.Error()
	if errors.Is(err, apperrors.ErrTokenExpired) ||
		errors.Is(err, apperrors.ErrEmptyAuthHeader) ||
		errors.Is(err, apperrors.ErrInvalidAuthHeader) ||
		errors.Is(err, apperrors.ErrTokenIsNotAccess) {
		message = err.Error()
	}
	return utils.ErrorResponse(c, apperrors.NewHttpError(http.StatusUnauthorized, message, nil, nil), m.logger)
}
