package repository

import (
	"quiz_app_backend/internal/model"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// FindActive 严格按 status=in_progress 过滤
func (r *AttemptRepository) FindActive(userID, quizID uint) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	err := r.DB.Where("user_id = ? AND quiz_id = ? AND status = ?",
		userID, quizID, model.AttemptInProgress).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindLatestCompleted 同一试卷允许多条已完成记录，取 id 最大的一条
func (r *AttemptRepository) FindLatestCompleted(userID, quizID uint) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	err := r.DB.Where("user_id = ? AND quiz_id = ? AND status = ?",
		userID, quizID, model.AttemptCompleted).
		Order("id desc").First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindLatest 不限状态的最近一次答题（管理端报表用）
func (r *AttemptRepository) FindLatest(userID, quizID uint) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	err := r.DB.Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("id desc").First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) ListByUser(userID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("user_id = ?", userID).Order("id asc").Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) ListByQuiz(quizID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("quiz_id = ?", quizID).Order("id asc").Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) ListResponses(attemptID uint) ([]model.QuizResponse, error) {
	var responses []model.QuizResponse
	err := r.DB.Where("attempt_id = ?", attemptID).Find(&responses).Error
	return responses, err
}
