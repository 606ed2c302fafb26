package repository

import (
	"quiz_app_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type TokenRepository struct {
	DB *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{DB: db}
}

func (r *TokenRepository) Create(token *model.UserToken) error {
	return r.DB.Create(token).Error
}

// FindActive 按 jti 查找仍然有效（未撤销且未过期）的令牌记录
func (r *TokenRepository) FindActive(jti string) (*model.UserToken, error) {
	var t model.UserToken
	err := r.DB.Where("id = ? AND is_active = ? AND expires_at > ?", jti, true, time.Now()).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeactivateAllForUser 登出：撤销该用户全部活跃令牌
func (r *TokenRepository) DeactivateAllForUser(userID uint) error {
	return r.DB.Model(&model.UserToken{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false).Error
}
