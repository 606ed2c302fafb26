package controller

import (
	"errors"
	"strconv"

	"quiz_app_backend/internal/service"
	"quiz_app_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// QuizController 管理端：出题、建卷、组卷与答题情况
type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// CreateQuiz godoc
// @Summary 创建试卷
// @Tags 管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.CreateQuizReq true "试卷配置"
// @Success 201 {object} util.Response "创建的试卷"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 403 {object} util.Response "非管理员"
// @Router /api/admin/quizzes [post]
func (c *QuizController) CreateQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateQuizReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.CreateQuiz(user.UserID, req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, quiz)
}

// ListQuizzes godoc
// @Summary 试卷列表
// @Tags 管理
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/admin/quizzes [get]
func (c *QuizController) ListQuizzes(ctx *gin.Context) {
	quizzes, err := c.QuizService.ListQuizzes()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, quizzes)
}

// GetQuiz godoc
// @Summary 试卷详情
// @Description 返回试卷配置及按题号排序的题目映射
// @Tags 管理
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "试卷ID"
// @Success 200 {object} util.Response{data=service.QuizDetail}
// @Failure 404 {object} util.Response "试卷不存在"
// @Router /api/admin/quizzes/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	quizID, ok := quizIDParam(ctx)
	if !ok {
		return
	}

	detail, err := c.QuizService.GetQuiz(quizID)
	if err != nil {
		if errors.Is(err, util.ErrQuizNotFound) {
			util.NotFound(ctx, "试卷不存在")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, detail)
}

// CreateQuestion godoc
// @Summary 创建题目
// @Description 题目与选项一起原子落库，必须恰好一个正确选项
// @Tags 管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.CreateQuestionReq true "题目与选项"
// @Success 201 {object} util.Response{data=service.QuestionWithOptions}
// @Failure 400 {object} util.Response "正确选项数量不合法"
// @Router /api/admin/questions [post]
func (c *QuizController) CreateQuestion(ctx *gin.Context) {
	var req service.CreateQuestionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.QuizService.CreateQuestion(req)
	if err != nil {
		if errors.Is(err, util.ErrNoCorrectOption) {
			util.BadRequest(ctx, "必须恰好设置一个正确选项")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, question)
}

// ListQuestions godoc
// @Summary 题库列表
// @Description 返回全部题目及选项（含答案标记）
// @Tags 管理
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.QuestionWithOptions}
// @Router /api/admin/questions [get]
func (c *QuizController) ListQuestions(ctx *gin.Context) {
	questions, err := c.QuizService.ListQuestions()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, questions)
}

// MapQuestions godoc
// @Summary 组卷
// @Description 整体替换试卷的题目映射；题数、题目存在性、总分任一不符则保留旧映射
// @Tags 管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "试卷ID"
// @Param   body body service.MapQuestionsReq true "题目映射"
// @Success 200 {object} util.Response{data=service.QuizDetail} "替换后的映射"
// @Failure 400 {object} util.Response "题数或总分不符"
// @Failure 404 {object} util.Response "试卷或题目不存在"
// @Router /api/admin/quizzes/{id}/questions [put]
func (c *QuizController) MapQuestions(ctx *gin.Context) {
	quizID, ok := quizIDParam(ctx)
	if !ok {
		return
	}

	var req service.MapQuestionsReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	detail, err := c.QuizService.MapQuestions(quizID, req)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrQuizNotFound):
			util.NotFound(ctx, "试卷不存在")
		case errors.Is(err, util.ErrQuestionNotFound):
			util.NotFound(ctx, "部分题目不存在")
		case errors.Is(err, util.ErrQuestionCountMismatch):
			util.BadRequest(ctx, "题目数量与试卷配置不符")
		case errors.Is(err, util.ErrTotalMarksMismatch):
			util.BadRequest(ctx, "各题分值之和与试卷总分不符")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, detail)
}

// ListParticipants godoc
// @Summary 答题名单
// @Description 某试卷的全部答题记录（含用户名、状态与得分）
// @Tags 管理
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "试卷ID"
// @Success 200 {object} util.Response{data=[]service.Participant}
// @Failure 404 {object} util.Response "试卷不存在"
// @Router /api/admin/quizzes/{id}/participants [get]
func (c *QuizController) ListParticipants(ctx *gin.Context) {
	quizID, ok := quizIDParam(ctx)
	if !ok {
		return
	}

	participants, err := c.QuizService.ListParticipants(quizID)
	if err != nil {
		if errors.Is(err, util.ErrQuizNotFound) {
			util.NotFound(ctx, "试卷不存在")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, participants)
}

// GetParticipantResponses godoc
// @Summary 作答明细
// @Description 某用户在某试卷最近一次答题的逐题作答明细
// @Tags 管理
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "试卷ID"
// @Param   user_id path int true "用户ID"
// @Success 200 {object} util.Response{data=[]service.ParticipantResponse}
// @Failure 404 {object} util.Response "试卷、用户或答题记录不存在"
// @Router /api/admin/quizzes/{id}/participants/{user_id}/responses [get]
func (c *QuizController) GetParticipantResponses(ctx *gin.Context) {
	quizID, ok := quizIDParam(ctx)
	if !ok {
		return
	}
	userID, err := strconv.ParseUint(ctx.Param("user_id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	responses, err := c.QuizService.GetParticipantResponses(quizID, uint(userID))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrQuizNotFound):
			util.NotFound(ctx, "试卷不存在")
		case errors.Is(err, util.ErrUserNotFound):
			util.NotFound(ctx, "用户不存在")
		case errors.Is(err, util.ErrNoAttempt):
			util.NotFound(ctx, "该用户尚未作答")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, responses)
}
