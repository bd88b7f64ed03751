package services

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"maintenance-service/internal/dto"
	"maintenance-service/internal/entities"
	"maintenance-service/internal/repositories"
	"maintenance-service/migrations"
	"maintenance-service/pkg/constants"
	"maintenance-service/pkg/database/postgresql"
	apperrors "maintenance-service/pkg/errors"
)

func connectTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL не задан, интеграционный тест пропущен")
	}
	ctx := context.Background()
	pool, err := postgresql.ConnectDB(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgresql.Migrate(ctx, pool, migrations.FS, "up"))

	_, err = pool.Exec(ctx, `TRUNCATE TABLE scheduled_maintenances, maintenance_status_det, maintenance_status_cab, equipments, users RESTART IDENTITY CASCADE;`)
	require.NoError(t, err)
	return pool
}

// Без Redis-блокировки параллельные смены статуса одного оборудования
// упорядочивает только FOR UPDATE на строке оборудования.
func TestMaintenanceStatusService_Integration_ConcurrentChangesSerialize(t *testing.T) {
	pool := connectTestDB(t)
	ctx := context.Background()
	logger := zap.NewNop()

	equipmentRepo := repositories.NewEquipmentRepository(pool, logger)
	service := NewMaintenanceStatusService(
		repositories.NewTxManager(pool),
		equipmentRepo,
		repositories.NewMaintenanceStatusRepository(pool, nil, 0, logger),
		repositories.NewScheduledMaintenanceRepository(pool, logger),
		nil, nil, nil, logger,
	)

	equipmentID, err := equipmentRepo.Create(ctx, nil, entities.Equipment{
		Description: "Компрессор", LocationID: 1, Serial: "SN-CONC", Model: "GA-30",
	})
	require.NoError(t, err)
	_, err = service.ChangeStatus(ctx, 1, dto.ChangeMaintenanceStatusDTO{
		EquipmentID: equipmentID, MaintenanceStatusID: constants.MaintenanceStatusOperationID,
	})
	require.NoError(t, err)

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(userID uint64) {
			defer wg.Done()
			<-start
			_, err := service.ChangeStatus(ctx, userID, dto.ChangeMaintenanceStatusDTO{
				EquipmentID: equipmentID, MaintenanceStatusID: constants.MaintenanceStatusMaintenanceID,
			})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}(uint64(i + 1))
	}
	close(start)
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition),
			"проигравший должен увидеть MAINTENANCE и получить INVALID_TRANSITION, получено %v", err)
	}
	assert.Equal(t, 1, succeeded, "ровно одна смена статуса должна пройти")

	var activeHeaders, activeDetails int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM maintenance_status_cab WHERE equipment_id = $1 AND active`, equipmentID).Scan(&activeHeaders))
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM maintenance_status_det WHERE equipment_id = $1 AND active`, equipmentID).Scan(&activeDetails))
	assert.Equal(t, 1, activeHeaders)
	assert.Equal(t, 1, activeDetails)

	current, err := service.GetCurrentStatus(ctx, equipmentID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, constants.MaintenanceStatusMaintenanceID, current.MaintenanceStatusID)
}
