package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"maintenance-service/pkg/constants"
)

// JobLocker - распределённая блокировка задач gocron поверх кеша (Redis).
// Если блокировку держит другой экземпляр, запуск задачи пропускается.
type JobLocker struct {
	cache CacheRepositoryInterface
	ttl   time.Duration
}

func NewJobLocker(cache CacheRepositoryInterface, ttl time.Duration) *JobLocker {
	return &JobLocker{cache: cache, ttl: ttl}
}

func (l *JobLocker) Lock(ctx context.Context, key string) (gocron.Lock, error) {
	cacheKey := fmt.Sprintf(constants.CacheKeyJobLock, key)
	token := uuid.NewString()

	ok, err := l.cache.SetNX(ctx, cacheKey, token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения блокировки задачи %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("задача %s: %w", key, ErrLockNotAcquired)
	}
	return &jobLock{cache: l.cache, key: cacheKey, token: token}, nil
}

type jobLock struct {
	cache CacheRepositoryInterface
	key   string
	token string
}

func (l *jobLock) Unlock(ctx context.Context) error {
	if _, err := l.cache.DelIfEqual(ctx, l.key, l.token); err != nil {
		return fmt.Errorf("ошибка снятия блокировки %s: %w", l.key, err)
	}
	return nil
}
