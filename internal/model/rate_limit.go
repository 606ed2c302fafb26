package model

import "time"

// RateLimitCounter 数据库限流计数（Redis 不可用时的回退方案）。
// 每个用户一行，1 秒窗口内计数。
type RateLimitCounter struct {
	BaseModel
	UserID       uint      `gorm:"unique;not null" json:"userId"`
	RequestCount int       `gorm:"not null;default:0" json:"requestCount"`
	WindowStart  time.Time `gorm:"not null" json:"windowStart"`
}

func (RateLimitCounter) TableName() string {
	return "rate_limits"
}
