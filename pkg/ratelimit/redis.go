package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/go-redis/redis/v8"
)

// 取当前计数、与预算比较、自增，放在一段 Lua 里原子执行。
// 窗口起点由 key 的 TTL 承载：第一次请求 SET 计数为 1 并带 1 秒过期。
var allowScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current == false then
  redis.call('SET', KEYS[1], 1, 'PX', ARGV[2])
  return 1
end
if tonumber(current) >= tonumber(ARGV[1]) then
  return -1
end
return redis.call('INCR', KEYS[1])
`)

type RedisLimiter struct {
	rdb    *redis.Client
	budget atomic.Int64
}

func NewRedisLimiter(rdb *redis.Client, budget int) *RedisLimiter {
	l := &RedisLimiter{rdb: rdb}
	l.budget.Store(int64(budget))
	return l
}

func (l *RedisLimiter) SetBudget(n int) {
	l.budget.Store(int64(n))
}

func (l *RedisLimiter) Allow(ctx context.Context, userID uint) (Decision, error) {
	key := fmt.Sprintf("rate_limit:%d", userID)

	n, err := allowScript.Run(ctx, l.rdb, []string{key},
		l.budget.Load(), Window.Milliseconds()).Int64()
	if err != nil {
		return Decision{}, err
	}

	if n < 0 {
		return Decision{Allowed: false, RetryAfter: Window}, nil
	}
	return Decision{Allowed: true}, nil
}
