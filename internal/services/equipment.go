package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"maintenance-service/internal/dto"
	"maintenance-service/internal/entities"
	"maintenance-service/internal/repositories"
	apperrors "maintenance-service/pkg/errors"
	"maintenance-service/pkg/types"
	"maintenance-service/pkg/utils"
)

type EquipmentServiceInterface interface {
	GetEquipments(ctx context.Context, filter types.Filter, opts dto.EquipmentListOptions) ([]dto.EquipmentDTO, uint64, error)
	FindEquipment(ctx context.Context, id uint64) (*dto.EquipmentDTO, error)
	CreateEquipment(ctx context.Context, payload dto.CreateEquipmentDTO) (*dto.EquipmentDTO, error)
	UpdateEquipment(ctx context.Context, id uint64, payload dto.UpdateEquipmentDTO) (*dto.EquipmentDTO, error)
	DeactivateEquipment(ctx context.Context, id uint64) error
}

type EquipmentService struct {
	equipmentRepository repositories.EquipmentRepositoryInterface
	logger              *zap.Logger
}

func NewEquipmentService(equipmentRepository repositories.EquipmentRepositoryInterface,
	logger *zap.Logger,
) EquipmentServiceInterface {
	return &EquipmentService{
		equipmentRepository: equipmentRepository,
		logger:              logger,
	}
}

func equipmentToDTO(e *entities.Equipment) *dto.EquipmentDTO {
	return &dto.EquipmentDTO{
		ID:          e.ID,
		Description: e.Description,
		LocationID:  e.LocationID,
		Location:    e.Location.String,
		Serial:      e.Serial,
		Model:       e.Model,
		Image:       e.Image,
		Active:      e.Active,
		CreatedAt:   utils.FormatDateTime(e.CreatedAt),
		UpdatedAt:   utils.FormatDateTime(e.UpdatedAt),
	}
}

func (s *EquipmentService) GetEquipments(ctx context.Context, filter types.Filter, opts dto.EquipmentListOptions) ([]dto.EquipmentDTO, uint64, error) {
	list, total, err := s.equipmentRepository.GetEquipments(ctx, filter, opts.WithStatus)
	if err != nil {
		return nil, 0, err
	}
	result := make([]dto.EquipmentDTO, 0, len(list))
	for i := range list {
		item := equipmentToDTO(&list[i].Equipment)
		if opts.WithStatus && list[i].StatusID.Valid {
			item.MaintenanceStatus = &dto.EquipmentStatusDTO{
				MaintenanceStatusID: list[i].StatusID.Uint64,
				Code:                list[i].StatusCode.String,
				Name:                list[i].StatusName.String,
			}
		}
		result = append(result, *item)
	}
	return result, total, nil
}

func (s *EquipmentService) FindEquipment(ctx context.Context, id uint64) (*dto.EquipmentDTO, error) {
	e, err := s.equipmentRepository.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFound("оборудование не найдено")
		}
		return nil, err
	}
	return equipmentToDTO(e), nil
}

func (s *EquipmentService) CreateEquipment(ctx context.Context, payload dto.CreateEquipmentDTO) (*dto.EquipmentDTO, error) {
	id, err := s.equipmentRepository.Create(ctx, nil, entities.Equipment{
		Description: payload.Description,
		LocationID:  payload.LocationID,
		Serial:      payload.Serial,
		Model:       payload.Model,
		Image:       payload.Image,
	})
	if err != nil {
		s.logger.Error("Ошибка при создании оборудования", zap.Error(err))
		return nil, err
	}
	s.logger.Info("Оборудование успешно создано", zap.Uint64("equipmentID", id))
	return s.FindEquipment(ctx, id)
}

// UpdateEquipment меняет только переданные поля; деактивированное оборудование не редактируется.
func (s *EquipmentService) UpdateEquipment(ctx context.Context, id uint64, payload dto.UpdateEquipmentDTO) (*dto.EquipmentDTO, error) {
	current, err := s.equipmentRepository.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFound("оборудование не найдено")
		}
		return nil, err
	}
	if !current.Active {
		return nil, apperrors.NewNotFound("оборудование не найдено")
	}

	if payload.Description != nil {
		current.Description = *payload.Description
	}
	if payload.LocationID != nil {
		current.LocationID = *payload.LocationID
	}
	if payload.Serial != nil {
		current.Serial = *payload.Serial
	}
	if payload.Model != nil {
		current.Model = *payload.Model
	}
	if payload.Image != nil {
		current.Image = *payload.Image
	}

	if err := s.equipmentRepository.Update(ctx, nil, id, *current); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFound("оборудование не найдено")
		}
		return nil, err
	}
	return s.FindEquipment(ctx, id)
}

func (s *EquipmentService) DeactivateEquipment(ctx context.Context, id uint64) error {
	if err := s.equipmentRepository.Deactivate(ctx, nil, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewNotFound("оборудование не найдено")
		}
		return err
	}
	s.logger.Info("Оборудование деактивировано", zap.Uint64("equipmentID", id))
	return nil
}
