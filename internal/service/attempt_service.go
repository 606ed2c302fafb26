package service

import (
	"errors"
	"quiz_app_backend/internal/model"
	"quiz_app_backend/internal/repository"
	"quiz_app_backend/internal/util"
	"quiz_app_backend/pkg/monitoring"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AttemptService 答题生命周期：开始、取题、提交评分、结果回看。
// 所有写路径都在单个事务内完成，状态检查与状态变更不分离。
type AttemptService struct {
	QuizRepo     *repository.QuizRepository
	QuestionRepo *repository.QuestionRepository
	AttemptRepo  *repository.AttemptRepository
	DB           *gorm.DB
}

func NewAttemptService(quizRepo *repository.QuizRepository, questionRepo *repository.QuestionRepository, attemptRepo *repository.AttemptRepository, db *gorm.DB) *AttemptService {
	return &AttemptService{
		QuizRepo:     quizRepo,
		QuestionRepo: questionRepo,
		AttemptRepo:  attemptRepo,
		DB:           db,
	}
}

type ResponseSubmission struct {
	QuestionID       uint  `json:"question_id" binding:"required"`
	SelectedOptionID *uint `json:"selected_option_id"`
}

type SubmitQuizReq struct {
	Responses []ResponseSubmission `json:"responses"`
}

type SubmitResult struct {
	QuizID             uint `json:"quiz_id"`
	AttemptID          uint `json:"attempt_id"`
	TotalPossibleScore int  `json:"total_possible_score"`
	ScoreObtained      int  `json:"score_obtained"`
	Completed          bool `json:"completed"`
}

// OptionView 面向答题者的选项投影，不携带 is_correct
type OptionView struct {
	ID   uint   `json:"id"`
	Text string `json:"option"`
}

type AttemptQuestion struct {
	QuestionNumber   int          `json:"question_number"`
	Marks            int          `json:"marks"`
	QuestionID       uint         `json:"id"`
	Text             string       `json:"question"`
	Options          []OptionView `json:"options"`
	SelectedOptionID *uint        `json:"selected_option_id"`
}

type AttemptQuestionSet struct {
	QuizID          uint              `json:"quiz_id"`
	Title           string            `json:"title"`
	DurationMinutes int               `json:"duration_minutes"`
	TotalScore      int               `json:"total_score"`
	AttemptID       uint              `json:"attempt_id"`
	StartTime       time.Time         `json:"start_time"`
	Questions       []AttemptQuestion `json:"questions"`
}

type ReviewQuestion struct {
	QuestionNumber int         `json:"question_number"`
	QuestionID     uint        `json:"question_id"`
	QuestionText   string      `json:"question_text"`
	MarksPossible  int         `json:"marks_possible"`
	MarksObtained  int         `json:"marks_obtained"`
	IsCorrect      bool        `json:"is_correct"`
	SelectedOption *OptionView `json:"selected_option"`
	CorrectOption  *OptionView `json:"correct_option"`
	AllOptions     []OptionView `json:"all_options"`
}

type AttemptReview struct {
	QuizID         uint             `json:"quiz_id"`
	QuizTitle      string           `json:"quiz_title"`
	TotalScore     int              `json:"total_score"`
	UserScore      int              `json:"user_score"`
	CompletionTime *time.Time       `json:"completion_time"`
	Questions      []ReviewQuestion `json:"questions"`
}

type UserQuizSummary struct {
	ID              uint   `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	TotalScore      int    `json:"total_score"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	Score           *int   `json:"score,omitempty"`
	AttemptID       *uint  `json:"attempt_id,omitempty"`
}

// StartQuiz 开始答题。幂等：已有进行中的记录时直接返回；
// 新记录与按映射预建的空作答行在同一事务内落库。
// 并发 start 依赖 (user_id, quiz_id, active) 唯一索引，落败方复用赢家的记录。
func (s *AttemptService) StartQuiz(userID, quizID uint) (*model.QuizAttempt, error) {
	if _, err := s.QuizRepo.FindByID(quizID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	if existing, err := s.AttemptRepo.FindActive(userID, quizID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	active := true
	attempt := &model.QuizAttempt{
		UserID:    userID,
		QuizID:    quizID,
		Status:    model.AttemptInProgress,
		Active:    &active,
		StartTime: time.Now(),
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(attempt).Error; err != nil {
			return err
		}

		var mappings []model.QuizQuestion
		if err := tx.Where("quiz_id = ?", quizID).Find(&mappings).Error; err != nil {
			return err
		}
		if len(mappings) == 0 {
			return nil
		}

		responses := make([]model.QuizResponse, 0, len(mappings))
		for _, qq := range mappings {
			responses = append(responses, model.QuizResponse{
				AttemptID:  attempt.ID,
				QuestionID: qq.QuestionID,
			})
		}
		return tx.Create(&responses).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 并发 start 落败：复用已存在的进行中记录
			return s.AttemptRepo.FindActive(userID, quizID)
		}
		return nil, err
	}
	return attempt, nil
}

// GetQuizQuestions 进行中的答题取题。按 question_number 升序返回，
// 带上已有选择以支持断线续答；选项不含答案标记。
func (s *AttemptService) GetQuizQuestions(userID, quizID uint) (*AttemptQuestionSet, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	attempt, err := s.AttemptRepo.FindActive(userID, quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotStarted
		}
		return nil, err
	}

	mappings, err := s.QuizRepo.ListMappings(quizID)
	if err != nil {
		return nil, err
	}

	questionIDs := make([]uint, 0, len(mappings))
	for _, qq := range mappings {
		questionIDs = append(questionIDs, qq.QuestionID)
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
	optionsByQuestion := make(map[uint][]OptionView)
	for _, o := range options {
		optionsByQuestion[o.QuestionID] = append(optionsByQuestion[o.QuestionID], OptionView{ID: o.ID, Text: o.Text})
	}

	responses, err := s.AttemptRepo.ListResponses(attempt.ID)
	if err != nil {
		return nil, err
	}
	selectedByQuestion := make(map[uint]*uint, len(responses))
	for _, r := range responses {
		selectedByQuestion[r.QuestionID] = r.SelectedOptionID
	}

	items := make([]AttemptQuestion, 0, len(mappings))
	for _, qq := range mappings {
		q := questionByID[qq.QuestionID]
		items = append(items, AttemptQuestion{
			QuestionNumber:   qq.QuestionNumber,
			Marks:            qq.Marks,
			QuestionID:       qq.QuestionID,
			Text:             q.Text,
			Options:          optionsByQuestion[qq.QuestionID],
			SelectedOptionID: selectedByQuestion[qq.QuestionID],
		})
	}
	// 映射行的存储顺序不保证与题号一致，展示顺序是这里的约定
	sort.Slice(items, func(i, j int) bool {
		return items[i].QuestionNumber < items[j].QuestionNumber
	})

	return &AttemptQuestionSet{
		QuizID:          quizID,
		Title:           quiz.Title,
		DurationMinutes: quiz.DurationMinutes,
		TotalScore:      quiz.TotalScore,
		AttemptID:       attempt.ID,
		StartTime:       attempt.StartTime,
		Questions:       items,
	}, nil
}

// SubmitQuiz 提交评分，整个算法在单个事务内执行：
//  1. 作答行按 (attempt_id, question_id) 冲突键 upsert，单条原子语句；
//  2. 选中选项必须属于该题且 is_correct 才得映射分值，否则 0 分；
//  3. 总分是该 attempt 全部作答行的 marks_obtained 之和（允许部分提交，
//     未作答的题按 0 分计入）；
//  4. 完成状态用带 status 条件的 UPDATE 落地，并发提交只有一方
//     RowsAffected=1，另一方按无进行中记录处理。
func (s *AttemptService) SubmitQuiz(userID, quizID uint, submissions []ResponseSubmission) (*SubmitResult, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	var result *SubmitResult
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var attempt model.QuizAttempt
		if err := tx.Where("user_id = ? AND quiz_id = ? AND status = ?",
			userID, quizID, model.AttemptInProgress).First(&attempt).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrNoActiveAttempt
			}
			return err
		}

		var mappings []model.QuizQuestion
		if err := tx.Where("quiz_id = ?", quizID).Find(&mappings).Error; err != nil {
			return err
		}
		marksByQuestion := make(map[uint]int, len(mappings))
		for _, qq := range mappings {
			marksByQuestion[qq.QuestionID] = qq.Marks
		}

		optionIDs := make([]uint, 0, len(submissions))
		for _, sub := range submissions {
			if sub.SelectedOptionID != nil {
				optionIDs = append(optionIDs, *sub.SelectedOptionID)
			}
		}
		optionByID := make(map[uint]model.QuestionOption, len(optionIDs))
		if len(optionIDs) > 0 {
			var options []model.QuestionOption
			if err := tx.Where("id IN ?", optionIDs).Find(&options).Error; err != nil {
				return err
			}
			for _, o := range options {
				optionByID[o.ID] = o
			}
		}

		for _, sub := range submissions {
			resp := model.QuizResponse{
				AttemptID:        attempt.ID,
				QuestionID:       sub.QuestionID,
				SelectedOptionID: sub.SelectedOptionID,
			}
			if sub.SelectedOptionID != nil {
				// 别的题目的选项 ID 不计分
				if opt, ok := optionByID[*sub.SelectedOptionID]; ok &&
					opt.QuestionID == sub.QuestionID && opt.IsCorrect {
					resp.IsCorrect = true
					resp.MarksObtained = marksByQuestion[sub.QuestionID]
				}
			}

			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"selected_option_id", "is_correct", "marks_obtained", "updated_at",
				}),
			}).Create(&resp).Error; err != nil {
				return err
			}
		}

		var total int64
		if err := tx.Model(&model.QuizResponse{}).
			Where("attempt_id = ?", attempt.ID).
			Select("COALESCE(SUM(marks_obtained), 0)").Scan(&total).Error; err != nil {
			return err
		}

		now := time.Now()
		res := tx.Model(&model.QuizAttempt{}).
			Where("id = ? AND status = ?", attempt.ID, model.AttemptInProgress).
			Updates(map[string]interface{}{
				"status":   model.AttemptCompleted,
				"end_time": now,
				"score":    total,
				"active":   nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrNoActiveAttempt
		}

		result = &SubmitResult{
			QuizID:             quizID,
			AttemptID:          attempt.ID,
			TotalPossibleScore: quiz.TotalScore,
			ScoreObtained:      int(total),
			Completed:          true,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.QuizSubmissions.Inc()
	return result, nil
}

// GetQuizReview 查看最近一次已完成答题的逐题明细，按题号升序
func (s *AttemptService) GetQuizReview(userID, quizID uint) (*AttemptReview, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	attempt, err := s.AttemptRepo.FindLatestCompleted(userID, quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNoCompletedAttempt
		}
		return nil, err
	}

	responses, err := s.AttemptRepo.ListResponses(attempt.ID)
	if err != nil {
		return nil, err
	}

	mappings, err := s.QuizRepo.ListMappings(quizID)
	if err != nil {
		return nil, err
	}
	mappingByQuestion := make(map[uint]model.QuizQuestion, len(mappings))
	for _, qq := range mappings {
		mappingByQuestion[qq.QuestionID] = qq
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

	items := make([]ReviewQuestion, 0, len(responses))
	for _, r := range responses {
		q := questionByID[r.QuestionID]
		qq := mappingByQuestion[r.QuestionID]

		all := make([]OptionView, 0, len(optionsByQuestion[r.QuestionID]))
		var selected, correct *OptionView
		for _, o := range optionsByQuestion[r.QuestionID] {
			view := OptionView{ID: o.ID, Text: o.Text}
			all = append(all, view)
			if r.SelectedOptionID != nil && o.ID == *r.SelectedOptionID {
				v := view
				selected = &v
			}
			// 按约定每题只有一个正确选项（建题时强制）
			if o.IsCorrect && correct == nil {
				v := view
				correct = &v
			}
		}

		items = append(items, ReviewQuestion{
			QuestionNumber: qq.QuestionNumber,
			QuestionID:     r.QuestionID,
			QuestionText:   q.Text,
			MarksPossible:  qq.Marks,
			MarksObtained:  r.MarksObtained,
			IsCorrect:      r.IsCorrect,
			SelectedOption: selected,
			CorrectOption:  correct,
			AllOptions:     all,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].QuestionNumber < items[j].QuestionNumber
	})

	return &AttemptReview{
		QuizID:         quizID,
		QuizTitle:      quiz.Title,
		TotalScore:     quiz.TotalScore,
		UserScore:      attempt.Score,
		CompletionTime: attempt.EndTime,
		Questions:      items,
	}, nil
}

// ListUserQuizzes 用户可见的全部试卷及各自的答题状态
func (s *AttemptService) ListUserQuizzes(userID uint) ([]UserQuizSummary, error) {
	quizzes, err := s.QuizRepo.List()
	if err != nil {
		return nil, err
	}

	attempts, err := s.AttemptRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	latestByQuiz := make(map[uint]model.QuizAttempt)
	for _, a := range attempts {
		if prev, ok := latestByQuiz[a.QuizID]; !ok || a.ID > prev.ID {
			latestByQuiz[a.QuizID] = a
		}
	}

	summaries := make([]UserQuizSummary, 0, len(quizzes))
	for _, quiz := range quizzes {
		summary := UserQuizSummary{
			ID:              quiz.ID,
			Title:           quiz.Title,
			Description:     quiz.Description,
			TotalScore:      quiz.TotalScore,
			DurationMinutes: quiz.DurationMinutes,
			Status:          "Not Started",
		}
		if a, ok := latestByQuiz[quiz.ID]; ok {
			if a.Status == model.AttemptCompleted {
				summary.Status = "Completed"
				score := a.Score
				summary.Score = &score
			} else {
				summary.Status = "In Progress"
				attemptID := a.ID
				summary.AttemptID = &attemptID
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
