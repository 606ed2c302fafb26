package ratelimit

import (
	"context"
	"testing"
	"time"

	"quiz_app_backend/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newLimiterDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&model.RateLimitCounter{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestDBLimiterBudget(t *testing.T) {
	db := newLimiterDB(t)
	limiter := NewDBLimiter(db, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		d, err := limiter.Allow(ctx, 1)
		if err != nil {
			t.Fatalf("allow %d: %v", i+1, err)
		}
		if !d.Allowed {
			t.Fatalf("request %d within budget was denied", i+1)
		}
	}

	d, err := limiter.Allow(ctx, 1)
	if err != nil {
		t.Fatalf("allow over budget: %v", err)
	}
	if d.Allowed {
		t.Error("6th request in the same window should be denied")
	}
	if d.RetryAfter != Window {
		t.Errorf("retry-after = %v, want %v", d.RetryAfter, Window)
	}

	// 拒绝不计数：计数停在预算值
	var counter model.RateLimitCounter
	if err := db.Where("user_id = ?", 1).First(&counter).Error; err != nil {
		t.Fatalf("load counter: %v", err)
	}
	if counter.RequestCount != 5 {
		t.Errorf("denied request incremented the counter: %d", counter.RequestCount)
	}
}

func TestDBLimiterWindowReset(t *testing.T) {
	db := newLimiterDB(t)
	limiter := NewDBLimiter(db, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if d, err := limiter.Allow(ctx, 7); err != nil || !d.Allowed {
			t.Fatalf("request %d: allowed=%v err=%v", i+1, d.Allowed, err)
		}
	}
	if d, _ := limiter.Allow(ctx, 7); d.Allowed {
		t.Fatal("request over budget should be denied")
	}

	// 把窗口起点拨回过去，相当于等待窗口过期
	if err := db.Model(&model.RateLimitCounter{}).
		Where("user_id = ?", 7).
		Update("window_start", time.Now().Add(-2*Window)).Error; err != nil {
		t.Fatalf("rewind window: %v", err)
	}

	d, err := limiter.Allow(ctx, 7)
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !d.Allowed {
		t.Error("request in a fresh window should be allowed")
	}

	var counter model.RateLimitCounter
	if err := db.Where("user_id = ?", 7).First(&counter).Error; err != nil {
		t.Fatalf("load counter: %v", err)
	}
	if counter.RequestCount != 1 {
		t.Errorf("fresh window should restart the count at 1, got %d", counter.RequestCount)
	}
}

func TestDBLimiterPerUserIsolation(t *testing.T) {
	db := newLimiterDB(t)
	limiter := NewDBLimiter(db, 1)
	ctx := context.Background()

	if d, _ := limiter.Allow(ctx, 1); !d.Allowed {
		t.Fatal("first request for user 1 denied")
	}
	if d, _ := limiter.Allow(ctx, 1); d.Allowed {
		t.Fatal("second request for user 1 should be denied")
	}

	// 另一个用户不受影响
	if d, err := limiter.Allow(ctx, 2); err != nil || !d.Allowed {
		t.Errorf("user 2 should have an independent budget: allowed=%v err=%v", d.Allowed, err)
	}
}

func TestDBLimiterSetBudget(t *testing.T) {
	db := newLimiterDB(t)
	limiter := NewDBLimiter(db, 1)
	ctx := context.Background()

	if d, _ := limiter.Allow(ctx, 1); !d.Allowed {
		t.Fatal("first request denied")
	}
	if d, _ := limiter.Allow(ctx, 1); d.Allowed {
		t.Fatal("second request should be denied at budget 1")
	}

	// 热更新预算后，同一窗口内的余量立即生效
	limiter.SetBudget(3)
	if d, _ := limiter.Allow(ctx, 1); !d.Allowed {
		t.Error("request should be allowed after budget increase")
	}
}
