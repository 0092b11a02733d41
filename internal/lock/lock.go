// Package lock даёт рекомендательную блокировку учителя на время одной попытки записи.
// Проверка занятости и вставка в календарь - два отдельных запроса, блокировка
// сужает окно гонки между параллельными звонками к одному учителю.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotAcquired блокировку держит другой звонок
var ErrNotAcquired = errors.New("teacher lock is held by another call")

// Locker захватывает блокировку по ключу, возвращает функцию освобождения
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// TeacherKey ключ блокировки учителя
func TeacherKey(teacherName string) string {
	return "receptionist:lock:teacher:" + strings.ToLower(strings.TrimSpace(teacherName))
}

// releaseScript удаляет ключ только если он всё ещё наш
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker блокировка через SET NX PX
type RedisLocker struct {
	client    *redis.Client
	ttl       time.Duration
	retryWait time.Duration
	logger    *zap.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client:    client,
		ttl:       ttl,
		retryWait: 100 * time.Millisecond,
		logger:    logger,
	}
}

// Acquire ждёт блокировку, пока не истечёт контекст
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ErrNotAcquired
		case <-time.After(l.retryWait):
		}
	}

	release := func() {
		// Освобождаем даже если контекст запроса уже отменён
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}

	return release, nil
}

// NopLocker используется, когда Redis не настроен
type NopLocker struct{}

func (NopLocker) Acquire(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}
