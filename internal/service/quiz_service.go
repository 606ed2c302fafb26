package service

import (
	"errors"
	"quiz_app_backend/internal/model"
	"quiz_app_backend/internal/repository"
	"quiz_app_backend/internal/util"
	"sort"

	"gorm.io/gorm"
)

// QuizService 管理端出题与组卷，以及答题情况报表
type QuizService struct {
	QuizRepo     *repository.QuizRepository
	QuestionRepo *repository.QuestionRepository
	AttemptRepo  *repository.AttemptRepository
	UserRepo     *repository.UserRepository
}

func NewQuizService(quizRepo *repository.QuizRepository, questionRepo *repository.QuestionRepository, attemptRepo *repository.AttemptRepository, userRepo *repository.UserRepository) *QuizService {
	return &QuizService{
		QuizRepo:     quizRepo,
		QuestionRepo: questionRepo,
		AttemptRepo:  attemptRepo,
		UserRepo:     userRepo,
	}
}

type CreateQuizReq struct {
	Title           string `json:"title" binding:"required"`
	Description     string `json:"description"`
	NumQuestions    int    `json:"num_questions" binding:"required,gt=0"`
	TotalScore      int    `json:"total_score" binding:"required,gt=0"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,gt=0"`
}

type OptionReq struct {
	Text      string `json:"option" binding:"required"`
	IsCorrect bool   `json:"is_correct"`
}

type CreateQuestionReq struct {
	Text    string      `json:"question" binding:"required"`
	Options []OptionReq `json:"options" binding:"required,min=2"`
}

type QuestionMappingReq struct {
	QuestionID     uint `json:"question_id" binding:"required"`
	QuestionNumber int  `json:"question_number" binding:"required,gt=0"`
	Marks          int  `json:"marks" binding:"required,gt=0"`
}

type MapQuestionsReq struct {
	Questions []QuestionMappingReq `json:"questions" binding:"required"`
}

// AdminOptionView 管理端选项投影，带答案标记
type AdminOptionView struct {
	ID        uint   `json:"id"`
	Text      string `json:"option"`
	IsCorrect bool   `json:"is_correct"`
}

type QuestionWithOptions struct {
	ID      uint              `json:"id"`
	Text    string            `json:"question"`
	Options []AdminOptionView `json:"options"`
}

type QuizDetail struct {
	Quiz     model.Quiz           `json:"quiz"`
	Mappings []model.QuizQuestion `json:"questions"`
}

type Participant struct {
	AttemptID uint                `json:"attempt_id"`
	UserID    uint                `json:"user_id"`
	Username  string              `json:"username"`
	Status    model.AttemptStatus `json:"status"`
	Score     int                 `json:"score"`
	StartTime string              `json:"start_time"`
	EndTime   *string             `json:"end_time,omitempty"`
}

type ParticipantResponse struct {
	ResponseID       uint        `json:"id"`
	AttemptID        uint        `json:"attempt_id"`
	QuestionID       uint        `json:"question_id"`
	QuestionText     string      `json:"question"`
	SelectedOptionID *uint       `json:"selected_option_id"`
	SelectedOption   *OptionView `json:"selected_option"`
	CorrectOption    *OptionView `json:"correct_option"`
	IsCorrect        bool        `json:"is_correct"`
	MarksObtained    int         `json:"marks_obtained"`
}

func (s *QuizService) CreateQuiz(creatorID uint, req CreateQuizReq) (*model.Quiz, error) {
	quiz := &model.Quiz{
		Title:           req.Title,
		Description:     req.Description,
		NumQuestions:    req.NumQuestions,
		TotalScore:      req.TotalScore,
		DurationMinutes: req.DurationMinutes,
		CreatedBy:       creatorID,
	}
	if err := s.QuizRepo.Create(quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) ListQuizzes() ([]model.Quiz, error) {
	return s.QuizRepo.List()
}

func (s *QuizService) GetQuiz(id uint) (*QuizDetail, error) {
	quiz, err := s.QuizRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	mappings, err := s.QuizRepo.ListMappings(id)
	if err != nil {
		return nil, err
	}
	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].QuestionNumber < mappings[j].QuestionNumber
	})

	return &QuizDetail{Quiz: *quiz, Mappings: mappings}, nil
}

// CreateQuestion 题目与选项一起原子落库。
// 要求恰好一个正确选项：全错在评分时无解，多个正确会让
// 结果回看的"正确答案"产生歧义，都在建题时拒绝。
func (s *QuizService) CreateQuestion(req CreateQuestionReq) (*QuestionWithOptions, error) {
	correctCount := 0
	for _, o := range req.Options {
		if o.IsCorrect {
			correctCount++
		}
	}
	if correctCount != 1 {
		return nil, util.ErrNoCorrectOption
	}

	question := &model.Question{Text: req.Text}
	options := make([]model.QuestionOption, 0, len(req.Options))
	for _, o := range req.Options {
		options = append(options, model.QuestionOption{
			Text:      o.Text,
			IsCorrect: o.IsCorrect,
		})
	}

	if err := s.QuestionRepo.CreateWithOptions(question, options); err != nil {
		return nil, err
	}

	views := make([]AdminOptionView, 0, len(options))
	for _, o := range options {
		views = append(views, AdminOptionView{ID: o.ID, Text: o.Text, IsCorrect: o.IsCorrect})
	}
	return &QuestionWithOptions{ID: question.ID, Text: question.Text, Options: views}, nil
}

func (s *QuizService) ListQuestions() ([]QuestionWithOptions, error) {
	questions, err := s.QuestionRepo.List()
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	options, err := s.QuestionRepo.ListOptionsByQuestionIDs(ids)
	if err != nil {
		return nil, err
	}
	optionsByQuestion := make(map[uint][]AdminOptionView)
	for _, o := range options {
		optionsByQuestion[o.QuestionID] = append(optionsByQuestion[o.QuestionID],
			AdminOptionView{ID: o.ID, Text: o.Text, IsCorrect: o.IsCorrect})
	}

	result := make([]QuestionWithOptions, 0, len(questions))
	for _, q := range questions {
		result = append(result, QuestionWithOptions{
			ID:      q.ID,
			Text:    q.Text,
			Options: optionsByQuestion[q.ID],
		})
	}
	return result, nil
}

// MapQuestions 整体替换试卷的题目映射。
// 题数必须等于试卷配置、所有题目必须存在，随后在事务内复核总分；
// 任何一项不满足都会让旧映射原样保留。
func (s *QuizService) MapQuestions(quizID uint, req MapQuestionsReq) (*QuizDetail, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	if len(req.Questions) != quiz.NumQuestions {
		return nil, util.ErrQuestionCountMismatch
	}

	questionIDs := make([]uint, 0, len(req.Questions))
	for _, q := range req.Questions {
		questionIDs = append(questionIDs, q.QuestionID)
	}
	count, err := s.QuestionRepo.CountByIDs(questionIDs)
	if err != nil {
		return nil, err
	}
	if int(count) != len(questionIDs) {
		return nil, util.ErrQuestionNotFound
	}

	mappings := make([]model.QuizQuestion, 0, len(req.Questions))
	for _, q := range req.Questions {
		mappings = append(mappings, model.QuizQuestion{
			QuizID:         quizID,
			QuestionID:     q.QuestionID,
			QuestionNumber: q.QuestionNumber,
			Marks:          q.Marks,
		})
	}

	if err := s.QuizRepo.ReplaceMappings(quiz, mappings); err != nil {
		return nil, err
	}

	return s.GetQuiz(quizID)
}

// ListParticipants 某试卷的全部答题记录（含用户名）
func (s *QuizService) ListParticipants(quizID uint) ([]Participant, error) {
	if _, err := s.QuizRepo.FindByID(quizID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	attempts, err := s.AttemptRepo.ListByQuiz(quizID)
	if err != nil {
		return nil, err
	}

	userIDs := make([]uint, 0, len(attempts))
	for _, a := range attempts {
		userIDs = append(userIDs, a.UserID)
	}
	users, err := s.UserRepo.FindByIDs(userIDs)
	if err != nil {
		return nil, err
	}
	nameByID := make(map[uint]string, len(users))
	for _, u := range users {
		nameByID[u.ID] = u.Username
	}

	participants := make([]Participant, 0, len(attempts))
	for _, a := range attempts {
		p := Participant{
			AttemptID: a.ID,
			UserID:    a.UserID,
			Username:  nameByID[a.UserID],
			Status:    a.Status,
			Score:     a.Score,
			StartTime: a.StartTime.Format("2006-01-02 15:04:05"),
		}
		if a.EndTime != nil {
			end := a.EndTime.Format("2006-01-02 15:04:05")
			p.EndTime = &end
		}
		participants = append(participants, p)
	}
	return participants, nil
}

// GetParticipantResponses 某用户在某试卷最近一次答题的逐题作答明细
func (s *QuizService) GetParticipantResponses(quizID, userID uint) ([]ParticipantResponse, error) {
	if _, err := s.QuizRepo.FindByID(quizID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}
	if _, err := s.UserRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}

	attempt, err := s.AttemptRepo.FindLatest(userID, quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNoAttempt
		}
		return nil, err
	}

	responses, err := s.AttemptRepo.ListResponses(attempt.ID)
	if err != nil {
		return nil, err
	}

	questionIDs := make([]uint, 0, len(responses))
	for _, r := range responses {
		questionIDs = append(questionIDs, r.QuestionID)
	}
	questions, err := s.QuestionRepo.FindByIDs(questionIDs)
	if err != nil {
		return nil, err
	}
	questionByID := make(map[uint]model.Question, len(questions))
	for _, q := range questions {
		questionByID[q.ID] = q
	}

	options, err := s.QuestionRepo.ListOptionsByQuestionIDs(questionIDs)
	if err != nil {
		return nil, err
	}
	optionsByQuestion := make(map[uint][]model.QuestionOption)
	for _, o := range options {
		optionsByQuestion[o.QuestionID] = append(optionsByQuestion[o.QuestionID], o)
	}

	details := make([]ParticipantResponse, 0, len(responses))
	for _, r := range responses {
		d := ParticipantResponse{
			ResponseID:       r.ID,
			AttemptID:        r.AttemptID,
			QuestionID:       r.QuestionID,
			QuestionText:     questionByID[r.QuestionID].Text,
			SelectedOptionID: r.SelectedOptionID,
			IsCorrect:        r.IsCorrect,
			MarksObtained:    r.MarksObtained,
		}
		for _, o := range optionsByQuestion[r.QuestionID] {
			view := OptionView{ID: o.ID, Text: o.Text}
			if r.SelectedOptionID != nil && o.ID == *r.SelectedOptionID {
				v := view
				d.SelectedOption = &v
			}
			if o.IsCorrect && d.CorrectOption == nil {
				v := view
				d.CorrectOption = &v
			}
		}
		details = append(details, d)
	}
	return details, nil
}
