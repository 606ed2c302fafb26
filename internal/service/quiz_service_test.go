package service

import (
	"errors"
	"testing"

	"quiz_app_backend/internal/model"
	"quiz_app_backend/internal/repository"
	"quiz_app_backend/internal/util"

	"gorm.io/gorm"
)

func newQuizService(t *testing.T) (*QuizService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewQuizService(
		repository.NewQuizRepository(db),
		repository.NewQuestionRepository(db),
		repository.NewAttemptRepository(db),
		repository.NewUserRepository(db),
	), db
}

func createQuestion(t *testing.T, svc *QuizService, correctIndex int) uint {
	t.Helper()
	opts := []OptionReq{
		{Text: "甲"},
		{Text: "乙"},
		{Text: "丙"},
	}
	opts[correctIndex].IsCorrect = true
	q, err := svc.CreateQuestion(CreateQuestionReq{Text: "题干", Options: opts})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	return q.ID
}

func TestCreateQuestionRequiresExactlyOneCorrect(t *testing.T) {
	svc, db := newQuizService(t)

	cases := []struct {
		name    string
		correct []bool
	}{
		{"none correct", []bool{false, false}},
		{"two correct", []bool{true, true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := make([]OptionReq, len(tc.correct))
			for i, c := range tc.correct {
				opts[i] = OptionReq{Text: "选项", IsCorrect: c}
			}
			if _, err := svc.CreateQuestion(CreateQuestionReq{Text: "题干", Options: opts}); !errors.Is(err, util.ErrNoCorrectOption) {
				t.Errorf("expected ErrNoCorrectOption, got %v", err)
			}
		})
	}

	// 拒绝的请求不得留下任何残留行
	var questions, options int64
	db.Model(&model.Question{}).Count(&questions)
	db.Model(&model.QuestionOption{}).Count(&options)
	if questions != 0 || options != 0 {
		t.Errorf("rejected creates left rows behind: questions=%d options=%d", questions, options)
	}
}

func TestCreateQuestionAtomic(t *testing.T) {
	svc, db := newQuizService(t)

	id := createQuestion(t, svc, 1)

	var options []model.QuestionOption
	if err := db.Where("question_id = ?", id).Find(&options).Error; err != nil {
		t.Fatalf("load options: %v", err)
	}
	if len(options) != 3 {
		t.Fatalf("expected 3 options, got %d", len(options))
	}
	correctCount := 0
	for _, o := range options {
		if o.IsCorrect {
			correctCount++
		}
	}
	if correctCount != 1 {
		t.Errorf("expected exactly one correct option, got %d", correctCount)
	}
}

func TestMapQuestionsValidations(t *testing.T) {
	svc, _ := newQuizService(t)

	quiz, err := svc.CreateQuiz(1, CreateQuizReq{
		Title: "组卷校验", NumQuestions: 2, TotalScore: 10, DurationMinutes: 20,
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	q1 := createQuestion(t, svc, 0)
	q2 := createQuestion(t, svc, 1)

	// 题数与试卷配置不符
	if _, err := svc.MapQuestions(quiz.ID, MapQuestionsReq{Questions: []QuestionMappingReq{
		{QuestionID: q1, QuestionNumber: 1, Marks: 10},
	}}); !errors.Is(err, util.ErrQuestionCountMismatch) {
		t.Errorf("expected ErrQuestionCountMismatch, got %v", err)
	}

	// 引用不存在的题目
	if _, err := svc.MapQuestions(quiz.ID, MapQuestionsReq{Questions: []QuestionMappingReq{
		{QuestionID: q1, QuestionNumber: 1, Marks: 5},
		{QuestionID: 9999, QuestionNumber: 2, Marks: 5},
	}}); !errors.Is(err, util.ErrQuestionNotFound) {
		t.Errorf("expected ErrQuestionNotFound, got %v", err)
	}

	// 分值之和与总分不符
	if _, err := svc.MapQuestions(quiz.ID, MapQuestionsReq{Questions: []QuestionMappingReq{
		{QuestionID: q1, QuestionNumber: 1, Marks: 4},
		{QuestionID: q2, QuestionNumber: 2, Marks: 4},
	}}); !errors.Is(err, util.ErrTotalMarksMismatch) {
		t.Errorf("expected ErrTotalMarksMismatch, got %v", err)
	}

	// 合法映射
	detail, err := svc.MapQuestions(quiz.ID, MapQuestionsReq{Questions: []QuestionMappingReq{
		{QuestionID: q1, QuestionNumber: 1, Marks: 6},
		{QuestionID: q2, QuestionNumber: 2, Marks: 4},
	}})
	if err != nil {
		t.Fatalf("valid mapping rejected: %v", err)
	}
	if len(detail.Mappings) != 2 {
		t.Errorf("expected 2 mappings, got %d", len(detail.Mappings))
	}
}

func TestMapQuestionsFailureKeepsOldMappings(t *testing.T) {
	svc, db := newQuizService(t)

	quiz, err := svc.CreateQuiz(1, CreateQuizReq{
		Title: "替换回滚", NumQuestions: 2, TotalScore: 10, DurationMinutes: 20,
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	q1 := createQuestion(t, svc, 0)
	q2 := createQuestion(t, svc, 1)
	q3 := createQuestion(t, svc, 2)

	if _, err := svc.MapQuestions(quiz.ID, MapQuestionsReq{Questions: []QuestionMappingReq{
		{QuestionID: q1, QuestionNumber: 1, Marks: 6},
		{QuestionID: q2, QuestionNumber: 2, Marks: 4},
	}}); err != nil {
		t.Fatalf("initial mapping: %v", err)
	}

	// 新映射分值之和不对，替换必须整体失败，旧映射保留
	if _, err := svc.MapQuestions(quiz.ID, MapQuestionsReq{Questions: []QuestionMappingReq{
		{QuestionID: q2, QuestionNumber: 1, Marks: 3},
		{QuestionID: q3, QuestionNumber: 2, Marks: 3},
	}}); !errors.Is(err, util.ErrTotalMarksMismatch) {
		t.Fatalf("expected ErrTotalMarksMismatch, got %v", err)
	}

	var mappings []model.QuizQuestion
	if err := db.Where("quiz_id = ?", quiz.ID).Order("question_number asc").Find(&mappings).Error; err != nil {
		t.Fatalf("load mappings: %v", err)
	}
	if len(mappings) != 2 {
		t.Fatalf("expected 2 surviving mappings, got %d", len(mappings))
	}
	if mappings[0].QuestionID != q1 || mappings[1].QuestionID != q2 {
		t.Errorf("old mappings not preserved: %+v", mappings)
	}
}

func TestMapQuestionsReplacesExisting(t *testing.T) {
	svc, _ := newQuizService(t)

	quiz, err := svc.CreateQuiz(1, CreateQuizReq{
		Title: "整体替换", NumQuestions: 2, TotalScore: 10, DurationMinutes: 20,
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	q1 := createQuestion(t, svc, 0)
	q2 := createQuestion(t, svc, 1)
	q3 := createQuestion(t, svc, 2)

	if _, err := svc.MapQuestions(quiz.ID, MapQuestionsReq{Questions: []QuestionMappingReq{
		{QuestionID: q1, QuestionNumber: 1, Marks: 6},
		{QuestionID: q2, QuestionNumber: 2, Marks: 4},
	}}); err != nil {
		t.Fatalf("initial mapping: %v", err)
	}

	detail, err := svc.MapQuestions(quiz.ID, MapQuestionsReq{Questions: []QuestionMappingReq{
		{QuestionID: q3, QuestionNumber: 1, Marks: 5},
		{QuestionID: q1, QuestionNumber: 2, Marks: 5},
	}})
	if err != nil {
		t.Fatalf("replacement mapping: %v", err)
	}
	if len(detail.Mappings) != 2 {
		t.Fatalf("expected 2 mappings, got %d", len(detail.Mappings))
	}
	if detail.Mappings[0].QuestionID != q3 || detail.Mappings[1].QuestionID != q1 {
		t.Errorf("replacement did not take effect: %+v", detail.Mappings)
	}
}

func TestListQuestionsIncludesAnswers(t *testing.T) {
	svc, _ := newQuizService(t)
	createQuestion(t, svc, 1)

	questions, err := svc.ListQuestions()
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(questions))
	}
	correct := 0
	for _, o := range questions[0].Options {
		if o.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		t.Errorf("admin listing should expose the correct flag, got %d correct", correct)
	}
}

func TestParticipantsAndResponses(t *testing.T) {
	db := newTestDB(t)
	quizSvc := NewQuizService(
		repository.NewQuizRepository(db),
		repository.NewQuestionRepository(db),
		repository.NewAttemptRepository(db),
		repository.NewUserRepository(db),
	)
	attemptSvc := NewAttemptService(
		repository.NewQuizRepository(db),
		repository.NewQuestionRepository(db),
		repository.NewAttemptRepository(db),
		db,
	)

	quizID, correct, _, questionIDs := seedQuiz(t, db)
	userID := seedUser(t, db, "bob")

	if _, err := attemptSvc.StartQuiz(userID, quizID); err != nil {
		t.Fatalf("start: %v", err)
	}
	q1 := correct[questionIDs[0]]
	if _, err := attemptSvc.SubmitQuiz(userID, quizID, []ResponseSubmission{
		{QuestionID: questionIDs[0], SelectedOptionID: &q1},
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	participants, err := quizSvc.ListParticipants(quizID)
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if len(participants) != 1 {
		t.Fatalf("expected 1 participant, got %d", len(participants))
	}
	if participants[0].Username != "bob" || participants[0].Score != 5 {
		t.Errorf("unexpected participant: %+v", participants[0])
	}

	responses, err := quizSvc.GetParticipantResponses(quizID, userID)
	if err != nil {
		t.Fatalf("responses: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}

	if _, err := quizSvc.GetParticipantResponses(quizID, 9999); !errors.Is(err, util.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
