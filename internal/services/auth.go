package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"maintenance-service/internal/dto"
	"maintenance-service/internal/entities"
	"maintenance-service/internal/repositories"
	apperrors "maintenance-service/pkg/errors"
	"maintenance-service/pkg/service"
	"maintenance-service/pkg/utils"
)

type AuthServiceInterface interface {
	Login(ctx context.Context, payload dto.LoginDTO) (*dto.AuthResponseDTO, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*dto.AuthResponseDTO, error)
}

type AuthService struct {
	userRepo   repositories.UserRepositoryInterface
	jwtService service.JWTService
	logger     *zap.Logger
}

func NewAuthService(
	userRepo repositories.UserRepositoryInterface,
	jwtService service.JWTService,
	logger *zap.Logger,
) AuthServiceInterface {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		logger:     logger,
	}
}

func unauthorized(err error) error {
	return apperrors.NewHttpError(http.StatusUnauthorized, apperrors.ErrInvalidCredentials.Error(), err, nil)
}

func (s *AuthService) Login(ctx context.Context, payload dto.LoginDTO) (*dto.AuthResponseDTO, error) {
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	logger := s.logger.With(zap.String("email", email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Попытка входа несуществующего пользователя")
			return nil, unauthorized(nil)
		}
		return nil, err
	}
	if !user.Active {
		logger.Warn("Попытка входа деактивированного пользователя")
		return nil, unauthorized(nil)
	}
	if err := utils.ComparePasswords(user.PasswordHash, payload.Password); err != nil {
		logger.Warn("Неверный пароль")
		return nil, unauthorized(nil)
	}

	logger.Info("Пользователь вошёл в систему", zap.Uint64("userID", user.ID))
	return s.issueTokens(user)
}

func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*dto.AuthResponseDTO, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return nil, apperrors.NewHttpError(http.StatusUnauthorized, err.Error(), nil, nil)
	}
	if !claims.IsRefreshToken {
		return nil, apperrors.NewHttpError(http.StatusUnauthorized, apperrors.ErrTokenIsNotRefresh.Error(), nil, nil)
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewHttpError(http.StatusUnauthorized, apperrors.ErrUnauthorized.Error(), nil, nil)
		}
		return nil, err
	}
	if !user.Active {
		return nil, apperrors.NewHttpError(http.StatusUnauthorized, apperrors.ErrUnauthorized.Error(), nil, nil)
	}
	return s.issueTokens(user)
}

func (s *AuthService) issueTokens(user *entities.User) (*dto.AuthResponseDTO, error) {
	accessToken, refreshToken, err := s.jwtService.GenerateTokens(user.ID)
	if err != nil {
		return nil, apperrors.NewHttpError(http.StatusInternalServerError, "не удалось выпустить токены", err, nil)
	}
	return &dto.AuthResponseDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		UserID:       user.ID,
		FullName:     user.FullName,
	}, nil
}
