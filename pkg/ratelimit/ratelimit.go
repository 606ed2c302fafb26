// Package ratelimit 按已认证用户限流：每用户每个 1 秒窗口固定请求预算。
// 首选 Redis 后端（多实例共享计数），Redis 不可用时回退到主库计数行。
// 两种后端实现同一个 check-and-increment 契约。
package ratelimit

import (
	"context"
	"time"
)

// Window 固定 1 秒窗口（按秒截断的滑动窗口）
const Window = time.Second

type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter check-and-increment 契约：原子地检查并计数一次请求。
// 拒绝时不再继续累加计数，并给出重试提示。
type Limiter interface {
	Allow(ctx context.Context, userID uint) (Decision, error)
	// SetBudget 运行时调整每窗口预算（配置热更新）
	SetBudget(n int)
}
