package repository

import (
	"quiz_app_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

// CreateWithOptions 题目与其全部选项一起落库，任一失败整体回滚
func (r *QuestionRepository) CreateWithOptions(question *model.Question, options []model.QuestionOption) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(question).Error; err != nil {
			return err
		}
		for i := range options {
			options[i].QuestionID = question.ID
		}
		return tx.Create(&options).Error
	})
}

func (r *QuestionRepository) List() ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.Order("id asc").Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) FindByIDs(ids []uint) ([]model.Question, error) {
	var questions []model.Question
	if len(ids) == 0 {
		return questions, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) CountByIDs(ids []uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Question{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}

// ListOptionsByQuestionIDs 按创建顺序返回各题选项
func (r *QuestionRepository) ListOptionsByQuestionIDs(questionIDs []uint) ([]model.QuestionOption, error) {
	var options []model.QuestionOption
	if len(questionIDs) == 0 {
		return options, nil
	}
	err := r.DB.Where("question_id IN ?", questionIDs).Order("id asc").Find(&options).Error
	return options, err
}
