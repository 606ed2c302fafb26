package model

import (
	"time"
)

// swagger:model User
type User struct {
	BaseModel
	Username  string    `gorm:"size:100;unique;not null" json:"username"`
	Email     string    `gorm:"size:100;unique;not null" json:"email"`
	Password  string    `gorm:"size:100;not null" json:"-"`
	IsAdmin   bool      `gorm:"default:false" json:"isAdmin"`
	LastLogin time.Time `json:"lastLogin"`
}

func (User) TableName() string {
	return "users"
}

// UserToken 记录已签发的访问令牌，ID 即 JWT 的 jti。
// 登出时将用户的全部令牌置为失效，实现可撤销令牌。
type UserToken struct {
	UUIDBase
	UserID    uint      `gorm:"index;not null" json:"userId"`
	ExpiresAt time.Time `gorm:"not null" json:"expiresAt"`
	IsActive  bool      `gorm:"default:true" json:"isActive"`
}

func (UserToken) TableName() string {
	return "user_tokens"
}
