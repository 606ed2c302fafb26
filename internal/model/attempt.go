package model

import "time"

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

// QuizAttempt 一次答题记录。
// Active 在进行中为 true、完成后置 NULL：配合 (user_id, quiz_id, active)
// 唯一索引保证同一用户同一试卷最多一条 in_progress 记录，
// 同时允许多条已完成记录（MySQL 没有部分索引，NULL 不参与唯一冲突）。
type QuizAttempt struct {
	BaseModel
	UserID    uint          `gorm:"not null;index;uniqueIndex:uniq_user_quiz_active" json:"userId"`
	QuizID    uint          `gorm:"not null;index;uniqueIndex:uniq_user_quiz_active" json:"quizId"`
	Status    AttemptStatus `gorm:"size:20;not null;default:'in_progress'" json:"status"`
	Active    *bool         `gorm:"uniqueIndex:uniq_user_quiz_active" json:"-"`
	StartTime time.Time     `json:"startTime"`
	EndTime   *time.Time    `json:"endTime,omitempty"`
	Score     int           `gorm:"not null;default:0" json:"score"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// QuizResponse 答题记录中单题的作答。开始答题时按映射预建空行，
// 提交时原地更新；(attempt_id, question_id) 唯一。
type QuizResponse struct {
	BaseModel
	AttemptID        uint  `gorm:"not null;uniqueIndex:uniq_attempt_question" json:"attemptId"`
	QuestionID       uint  `gorm:"not null;uniqueIndex:uniq_attempt_question" json:"questionId"`
	SelectedOptionID *uint `json:"selectedOptionId"`
	IsCorrect        bool  `gorm:"not null;default:false" json:"isCorrect"`
	MarksObtained    int   `gorm:"not null;default:0" json:"marksObtained"`
}

func (QuizResponse) TableName() string {
	return "quiz_responses"
}
