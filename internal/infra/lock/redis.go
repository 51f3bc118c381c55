// Package lock は商品単位の分散ロック（複数プロセス構成用）。
package lock

import (
	"context"
	"fmt"
	"time"

	repo "github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "lock:inventory:"

// 自分のトークンのときだけ消す
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

type RedisProductLocker struct {
	client *redis.Client
	wait   time.Duration // 取得待ちの上限
	ttl    time.Duration // 保持者が落ちたときの自動解放
	retry  time.Duration
	logger *zap.Logger
}

func NewRedisProductLocker(client *redis.Client, wait time.Duration, logger *zap.Logger) *RedisProductLocker {
	return &RedisProductLocker{
		client: client,
		wait:   wait,
		ttl:    wait*2 + 5*time.Second,
		retry:  25 * time.Millisecond,
		logger: logger,
	}
}

func Key(shopID int64, productID int64) string {
	return fmt.Sprintf("%s%d:%d", keyPrefix, shopID, productID)
}

// 取れるまでretry間隔でSETNXを繰り返す。waitを超えたらErrLockTimeout。
func (l *RedisProductLocker) Lock(ctx context.Context, shopID int64, productID int64) (func(), error) {
	key := Key(shopID, productID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", repo.ErrLockTimeout, key)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

// 呼び出し元のctxがキャンセル済みでも解放できるようにする
func (l *RedisProductLocker) release(key string, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.logger.Warn("failed to release inventory lock", zap.String("key", key), zap.Error(err))
	}
}
