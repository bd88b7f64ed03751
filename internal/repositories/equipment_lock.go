package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"maintenance-service/pkg/constants"
)

// ErrLockNotAcquired - за отведённое время блокировку оборудования получить не удалось.
var ErrLockNotAcquired = errors.New("оборудование занято другой операцией")

const lockRetryInterval = 50 * time.Millisecond

type EquipmentLockerInterface interface {
	// Lock ждёт блокировку не дольше wait и возвращает функцию освобождения.
	Lock(ctx context.Context, equipmentID uint64) (func(), error)
}

type EquipmentLocker struct {
	cache  CacheRepositoryInterface
	ttl    time.Duration
	wait   time.Duration
	logger *zap.Logger
}

func NewEquipmentLocker(cache CacheRepositoryInterface, ttl, wait time.Duration, logger *zap.Logger) EquipmentLockerInterface {
	return &EquipmentLocker{cache: cache, ttl: ttl, wait: wait, logger: logger}
}

func (l *EquipmentLocker) Lock(ctx context.Context, equipmentID uint64) (func(), error) {
	key := fmt.Sprintf(constants.CacheKeyEquipmentLock, equipmentID)
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.cache.SetNX(waitCtx, key, token, l.ttl)
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("ошибка получения блокировки %s: %w", key, err)
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrLockNotAcquired
		case <-ticker.C:
		}
	}
}

// release не использует контекст запроса: он может быть уже отменён.
func (l *EquipmentLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	released, err := l.cache.DelIfEqual(ctx, key, token)
	if err != nil {
		l.logger.Warn("не удалось снять блокировку оборудования", zap.String("key", key), zap.Error(err))
		return
	}
	if !released {
		l.logger.Warn("блокировка оборудования истекла до завершения операции", zap.String("key", key))
	}
}
