package repository

import (
	"quiz_app_backend/internal/model"
	"quiz_app_backend/internal/util"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) Create(quiz *model.Quiz) error {
	return r.DB.Create(quiz).Error
}

func (r *QuizRepository) FindByID(id uint) (*model.Quiz, error) {
	var q model.Quiz
	if err := r.DB.First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuizRepository) List() ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.Order("id asc").Find(&quizzes).Error
	return quizzes, err
}

// ListMappings 返回试卷的全部题目映射。存储顺序不保证与题号一致，
// 展示顺序由调用方按 question_number 排序。
func (r *QuizRepository) ListMappings(quizID uint) ([]model.QuizQuestion, error) {
	var mappings []model.QuizQuestion
	err := r.DB.Where("quiz_id = ?", quizID).Find(&mappings).Error
	return mappings, err
}

// ReplaceMappings 整体替换试卷的题目映射：删旧、插新、事务内复核总分。
// 总分不等于试卷配置时整个替换回滚，旧映射保持不变。
func (r *QuizRepository) ReplaceMappings(quiz *model.Quiz, mappings []model.QuizQuestion) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("quiz_id = ?", quiz.ID).
			Delete(&model.QuizQuestion{}).Error; err != nil {
			return err
		}

		if len(mappings) > 0 {
			if err := tx.Create(&mappings).Error; err != nil {
				return err
			}
		}

		var total int64
		if err := tx.Model(&model.QuizQuestion{}).
			Where("quiz_id = ?", quiz.ID).
			Select("COALESCE(SUM(marks), 0)").Scan(&total).Error; err != nil {
			return err
		}
		if int(total) != quiz.TotalScore {
			return util.ErrTotalMarksMismatch
		}
		return nil
	})
}
