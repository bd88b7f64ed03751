package seeders

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"maintenance-service/migrations"
	"maintenance-service/pkg/database/postgresql"
)

func TestSeeders_Integration_Idempotent(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL не задан, интеграционный тест пропущен")
	}
	ctx := context.Background()
	db, err := postgresql.ConnectDB(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, postgresql.Migrate(ctx, db, migrations.FS, "up"))

	_, err = db.Exec(ctx, `TRUNCATE TABLE scheduled_maintenances, maintenance_status_det, maintenance_status_cab, equipments, users RESTART IDENTITY CASCADE;`)
	require.NoError(t, err)

	logger := zap.NewNop()
	adminID, err := SeedAdmin(ctx, db, " Admin@Example.com ", "Администратор", "secret123", logger)
	require.NoError(t, err)
	again, err := SeedAdmin(ctx, db, "admin@example.com", "Администратор", "other-pass", logger)
	require.NoError(t, err)
	assert.Equal(t, adminID, again)

	created, err := SeedDemoEquipment(ctx, db, logger)
	require.NoError(t, err)
	assert.Len(t, created, len(demoEquipments))
	require.NoError(t, SeedInitialStatuses(ctx, db, adminID, created, logger))

	createdAgain, err := SeedDemoEquipment(ctx, db, logger)
	require.NoError(t, err)
	assert.Empty(t, createdAgain)
	require.NoError(t, SeedInitialStatuses(ctx, db, adminID, created, logger), "повторный запуск не меняет статусы")

	var headers int
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM maintenance_status_cab WHERE active`).Scan(&headers))
	assert.Equal(t, len(demoEquipments), headers)
}
