package model

// swagger:model Quiz
type Quiz struct {
	BaseModel
	Title           string `gorm:"size:255;not null" json:"title"`
	Description     string `gorm:"type:text" json:"description"`
	NumQuestions    int    `gorm:"not null" json:"numQuestions"`
	TotalScore      int    `gorm:"not null" json:"totalScore"`
	DurationMinutes int    `gorm:"not null" json:"durationMinutes"`
	CreatedBy       uint   `gorm:"index;not null" json:"createdBy"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// QuizQuestion 试卷与题目的映射：题号与该题在本试卷中的分值。
// 映射集整体替换时校验题数与总分（见 QuizService.MapQuestions）。
type QuizQuestion struct {
	BaseModel
	QuizID         uint `gorm:"not null;uniqueIndex:uniq_quiz_question;uniqueIndex:uniq_quiz_question_number" json:"quizId"`
	QuestionID     uint `gorm:"not null;uniqueIndex:uniq_quiz_question" json:"questionId"`
	QuestionNumber int  `gorm:"not null;uniqueIndex:uniq_quiz_question_number" json:"questionNumber"`
	Marks          int  `gorm:"not null" json:"marks"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}
