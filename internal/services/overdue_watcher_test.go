package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"maintenance-service/internal/events"
	"maintenance-service/pkg/constants"
	"maintenance-service/pkg/metrics"
)

func TestOverdueWatcher_Check(t *testing.T) {
	store := newMemStore()
	scheduleRepo := &fakeScheduleRepo{store: store}
	statusRepo := &fakeStatusRepo{store: store}
	ctx := context.Background()

	overdueEq := store.addEquipment(true)
	futureEq := store.addEquipment(true)
	leftEq := store.addEquipment(true)

	past := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	future := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for eq, date := range map[uint64]time.Time{overdueEq: past, futureEq: future, leftEq: past} {
		_, err := scheduleRepo.Create(ctx, nil, eq, date)
		require.NoError(t, err)
		_, err = statusRepo.CreateHeader(ctx, nil, eq, constants.MaintenanceStatusScheduledID)
		require.NoError(t, err)
	}
	// оборудование ушло на обслуживание, план остался активным - в отчёт не попадает
	_, err := statusRepo.DeactivateCurrent(ctx, nil, leftEq)
	require.NoError(t, err)
	_, err = statusRepo.CreateHeader(ctx, nil, leftEq, constants.MaintenanceStatusMaintenanceID)
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	watcher, err := NewOverdueWatcher(scheduleRepo, publisher, metrics.NewRecorder(nil), nil, zap.NewNop())
	require.NoError(t, err)
	watcher.now = func() time.Time { return time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC) }

	n, err := watcher.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, publisher.events, 1)
	e, ok := publisher.events[0].(events.MaintenanceScheduleOverdueEvent)
	require.True(t, ok)
	assert.Equal(t, overdueEq, e.EquipmentID)
	assert.True(t, past.Equal(e.ScheduledDate))
}

// scheduledEquipment создаёт оборудование в статусе SCHEDULED с планом на date.
func scheduledEquipment(t *testing.T, store *memStore, date time.Time) uint64 {
	t.Helper()
	ctx := context.Background()
	eq := store.addEquipment(true)
	_, err := (&fakeScheduleRepo{store: store}).Create(ctx, nil, eq, date)
	require.NoError(t, err)
	_, err = (&fakeStatusRepo{store: store}).CreateHeader(ctx, nil, eq, constants.MaintenanceStatusScheduledID)
	require.NoError(t, err)
	return eq
}

func TestOverdueWatcher_ScheduledDayIsNotOverdue(t *testing.T) {
	store := newMemStore()
	scheduledEquipment(t, store, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))

	publisher := &recordingPublisher{}
	watcher, err := NewOverdueWatcher(&fakeScheduleRepo{store: store}, publisher, nil, nil, zap.NewNop())
	require.NoError(t, err)

	for _, now := range []time.Time{
		time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 10, 23, 59, 0, 0, time.UTC),
	} {
		watcher.now = func() time.Time { return now }
		n, err := watcher.Check(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n, "в день плана он ещё не просрочен (%s)", now)
	}

	watcher.now = func() time.Time { return time.Date(2025, 1, 11, 0, 30, 0, 0, time.UTC) }
	n, err := watcher.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, publisher.events, 1)
}

func TestOverdueWatcher_NotifiesOncePerSchedule(t *testing.T) {
	store := newMemStore()
	scheduledEquipment(t, store, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))

	publisher := &recordingPublisher{}
	recorder := metrics.NewRecorder(nil)
	watcher, err := NewOverdueWatcher(&fakeScheduleRepo{store: store}, publisher, recorder, nil, zap.NewNop())
	require.NoError(t, err)

	for _, now := range []time.Time{
		time.Date(2025, 1, 11, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 11, 9, 30, 0, 0, time.UTC),
		time.Date(2025, 1, 12, 9, 0, 0, 0, time.UTC),
	} {
		watcher.now = func() time.Time { return now }
		n, err := watcher.Check(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, n, "план остаётся просроченным")
	}

	assert.Len(t, publisher.events, 1, "о просрочке сообщается один раз")
	require.Len(t, store.schedules, 1)
	require.NotNil(t, store.schedules[0].NotifiedAt)
	assert.True(t, time.Date(2025, 1, 11, 9, 0, 0, 0, time.UTC).Equal(*store.schedules[0].NotifiedAt))
}

func TestOverdueWatcher_SkipsDeactivatedEquipment(t *testing.T) {
	store := newMemStore()
	eq := scheduledEquipment(t, store, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	e := store.equipments[eq]
	e.Active = false
	store.equipments[eq] = e

	publisher := &recordingPublisher{}
	watcher, err := NewOverdueWatcher(&fakeScheduleRepo{store: store}, publisher, nil, nil, zap.NewNop())
	require.NoError(t, err)
	watcher.now = func() time.Time { return time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC) }

	n, err := watcher.Check(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, publisher.events)
}

type stubJobLocker struct{ calls int }

type stubJobLock struct{}

func (stubJobLock) Unlock(context.Context) error { return nil }

func (l *stubJobLocker) Lock(context.Context, string) (gocron.Lock, error) {
	l.calls++
	return stubJobLock{}, nil
}

func TestOverdueWatcher_StartStop(t *testing.T) {
	store := newMemStore()
	watcher, err := NewOverdueWatcher(&fakeScheduleRepo{store: store}, nil, nil, &stubJobLocker{}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, watcher.Start(time.Hour))
	assert.NoError(t, watcher.Stop())
}
