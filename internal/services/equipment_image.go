package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"maintenance-service/internal/dto"
	"maintenance-service/internal/repositories"
	apperrors "maintenance-service/pkg/errors"
	"maintenance-service/pkg/filestorage"
	"maintenance-service/pkg/validation"
)

const equipmentImagePrefix = "equipment"

type EquipmentImageServiceInterface interface {
	// UploadImage заменяет фото оборудования; прежний файл удаляется после успешного обновления.
	UploadImage(ctx context.Context, equipmentID uint64, file io.ReadSeeker, size int64, fileName string) (*dto.EquipmentDTO, error)
}

type EquipmentImageService struct {
	equipmentRepository repositories.EquipmentRepositoryInterface
	storage             filestorage.FileStorageInterface
	rules               validation.FileRules
	logger              *zap.Logger
}

func NewEquipmentImageService(
	equipmentRepository repositories.EquipmentRepositoryInterface,
	storage filestorage.FileStorageInterface,
	rules validation.FileRules,
	logger *zap.Logger,
) EquipmentImageServiceInterface {
	return &EquipmentImageService{
		equipmentRepository: equipmentRepository,
		storage:             storage,
		rules:               rules,
		logger:              logger,
	}
}

func (s *EquipmentImageService) UploadImage(ctx context.Context, equipmentID uint64, file io.ReadSeeker, size int64, fileName string) (*dto.EquipmentDTO, error) {
	current, err := s.equipmentRepository.FindByID(ctx, nil, equipmentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFound("оборудование не найдено")
		}
		return nil, err
	}
	if !current.Active {
		return nil, apperrors.NewNotFound("оборудование не найдено")
	}

	mimeType, err := validation.ValidateFile(size, file, s.rules)
	if err != nil {
		return nil, apperrors.NewValidation("%s", err.Error())
	}

	newPath, err := s.storage.Save(file, fileName, equipmentImagePrefix)
	if err != nil {
		return nil, apperrors.NewPersistence("не удалось сохранить изображение", err)
	}

	oldPath := current.Image
	current.Image = newPath
	if err := s.equipmentRepository.Update(ctx, nil, equipmentID, *current); err != nil {
		if delErr := s.storage.Delete(newPath); delErr != nil {
			s.logger.Warn("UploadImage: не удалось удалить файл после ошибки", zap.String("path", newPath), zap.Error(delErr))
		}
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFound("оборудование не найдено")
		}
		return nil, apperrors.NewPersistence("не удалось обновить оборудование", err)
	}

	if strings.HasPrefix(oldPath, filestorage.PublicPrefix) {
		if err := s.storage.Delete(oldPath); err != nil {
			s.logger.Warn("UploadImage: не удалось удалить прежнее фото", zap.String("path", oldPath), zap.Error(err))
		}
	}

	s.logger.Info("Фото оборудования обновлено",
		zap.Uint64("equipmentID", equipmentID),
		zap.String("mime", mimeType),
		zap.String("path", newPath),
	)

	updated, err := s.equipmentRepository.FindByID(ctx, nil, equipmentID)
	if err != nil {
		return nil, err
	}
	return equipmentToDTO(updated), nil
}
