package ratelimit

import (
	"context"
	"quiz_app_backend/internal/model"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBLimiter 主库回退实现：每用户一条计数行，
// 读-检查-自增-写在同一事务内完成，带条件的 UPDATE 保证并发下不丢更新。
type DBLimiter struct {
	db     *gorm.DB
	budget atomic.Int64
}

func NewDBLimiter(db *gorm.DB, budget int) *DBLimiter {
	l := &DBLimiter{db: db}
	l.budget.Store(int64(budget))
	return l
}

func (l *DBLimiter) SetBudget(n int) {
	l.budget.Store(int64(n))
}

func (l *DBLimiter) Allow(ctx context.Context, userID uint) (Decision, error) {
	decision := Decision{Allowed: true}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		budget := l.budget.Load()

		// 计数行不存在则建一条（已存在时忽略冲突）
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.RateLimitCounter{UserID: userID, RequestCount: 0, WindowStart: now}).Error; err != nil {
			return err
		}

		// 窗口已过：重置计数为 1 并重开窗口，与检查同一条原子语句
		reset := tx.Model(&model.RateLimitCounter{}).
			Where("user_id = ? AND window_start <= ?", userID, now.Add(-Window)).
			Updates(map[string]interface{}{"request_count": 1, "window_start": now})
		if reset.Error != nil {
			return reset.Error
		}
		if reset.RowsAffected == 1 {
			return nil
		}

		// 窗口内：只有计数仍低于预算时才自增；条件不满足说明预算用尽
		inc := tx.Model(&model.RateLimitCounter{}).
			Where("user_id = ? AND request_count < ?", userID, budget).
			Update("request_count", gorm.Expr("request_count + 1"))
		if inc.Error != nil {
			return inc.Error
		}
		if inc.RowsAffected == 0 {
			decision = Decision{Allowed: false, RetryAfter: Window}
		}
		return nil
	})

	if err != nil {
		return Decision{}, err
	}
	return decision, nil
}
