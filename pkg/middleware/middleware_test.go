package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"maintenance-service/pkg/service"
	"maintenance-service/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProtectedEcho(jwtSvc service.JWTService) *echo.Echo {
	e := echo.New()
	authMW := NewAuthMiddleware(jwtSvc, zap.NewNop())
	e.Use(RequestLogger(zap.NewNop()))
	e.GET("/whoami", func(c echo.Context) error {
		userID, err := utils.GetUserIDFromCtx(c.Request().Context())
		if err != nil {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, map[string]uint64{"user_id": userID})
	}, authMW.Auth)
	return e
}

func TestAuthMiddleware(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", time.Minute, time.Hour, zap.NewNop())
	e := newProtectedEcho(jwtSvc)
	access, refresh, err := jwtSvc.GenerateTokens(9)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		code   int
	}{
		{"без заголовка", "", http.StatusUnauthorized},
		{"не Bearer", "Basic abc", http.StatusUnauthorized},
		{"refresh токен", "Bearer " + refresh, http.StatusUnauthorized},
		{"мусор", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"access токен", "Bearer " + access, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tc.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tc.code, rec.Code)
			assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
			if tc.code == http.StatusOK {
				assert.JSONEq(t, `{"user_id":9}`, rec.Body.String())
			}
		})
	}
}

func TestRequestLogger_KeepsIncomingRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogger(zap.NewNop()))
	e.GET("/ping", func(c echo.Context) error {
		assert.Equal(t, "req-1", utils.GetRequestIDFromCtx(c.Request().Context()))
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get(echo.HeaderXRequestID))
}
