package controller

import (
	"errors"
	"strconv"

	"quiz_app_backend/internal/service"
	"quiz_app_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AttemptController 答题端：开始答题、取题、交卷、结果回看
type AttemptController struct {
	AttemptService *service.AttemptService
}

func NewAttemptController(attemptService *service.AttemptService) *AttemptController {
	return &AttemptController{AttemptService: attemptService}
}

func quizIDParam(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid quiz id")
		return 0, false
	}
	return uint(id), true
}

// ListMyQuizzes godoc
// @Summary 可答试卷列表
// @Description 列出全部试卷及当前用户的答题状态（未开始/进行中/已完成）
// @Tags 答题
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.UserQuizSummary}
// @Router /api/user/my-quizzes [get]
func (c *AttemptController) ListMyQuizzes(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	summaries, err := c.AttemptService.ListUserQuizzes(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, summaries)
}

// StartQuiz godoc
// @Summary 开始答题
// @Description 创建进行中的答题记录；重复调用返回同一条记录
// @Tags 答题
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "试卷ID"
// @Success 200 {object} util.Response "答题记录"
// @Failure 404 {object} util.Response "试卷不存在"
// @Router /api/user/quizzes/{id}/start [post]
func (c *AttemptController) StartQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	quizID, ok := quizIDParam(ctx)
	if !ok {
		return
	}

	attempt, err := c.AttemptService.StartQuiz(user.UserID, quizID)
	if err != nil {
		if errors.Is(err, util.ErrQuizNotFound) {
			util.NotFound(ctx, "试卷不存在")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, attempt)
}

// GetQuizQuestions godoc
// @Summary 获取试卷题目
// @Description 按题号排序返回题目与选项，不含答案；需先调用 start
// @Tags 答题
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "试卷ID"
// @Success 200 {object} util.Response{data=service.AttemptQuestionSet}
// @Failure 400 {object} util.Response "尚未开始答题"
// @Failure 404 {object} util.Response "试卷不存在"
// @Router /api/user/quizzes/{id}/questions [get]
func (c *AttemptController) GetQuizQuestions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	quizID, ok := quizIDParam(ctx)
	if !ok {
		return
	}

	questions, err := c.AttemptService.GetQuizQuestions(user.UserID, quizID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrQuizNotFound):
			util.NotFound(ctx, "试卷不存在")
		case errors.Is(err, util.ErrQuizNotStarted):
			util.BadRequest(ctx, "尚未开始答题，请先调用 start")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, questions)
}

// SubmitQuiz godoc
// @Summary 提交试卷
// @Description 评分并结束进行中的答题记录；同一记录只能提交一次
// @Tags 答题
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "试卷ID"
// @Param   body body service.SubmitQuizReq true "作答内容"
// @Success 200 {object} util.Response{data=service.SubmitResult} "得分"
// @Failure 400 {object} util.Response "没有进行中的答题记录"
// @Failure 404 {object} util.Response "试卷不存在"
// @Router /api/user/quizzes/{id}/submit [post]
func (c *AttemptController) SubmitQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	quizID, ok := quizIDParam(ctx)
	if !ok {
		return
	}

	var req service.SubmitQuizReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AttemptService.SubmitQuiz(user.UserID, quizID, req.Responses)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrQuizNotFound):
			util.NotFound(ctx, "试卷不存在")
		case errors.Is(err, util.ErrNoActiveAttempt):
			util.BadRequest(ctx, "没有进行中的答题记录")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, result)
}

// GetQuizReview godoc
// @Summary 结果回看
// @Description 返回最近一次已完成答题的逐题作答与正确答案
// @Tags 答题
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "试卷ID"
// @Success 200 {object} util.Response{data=service.AttemptReview}
// @Failure 404 {object} util.Response "没有已完成的答题记录"
// @Router /api/user/quizzes/{id}/response [get]
func (c *AttemptController) GetQuizReview(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	quizID, ok := quizIDParam(ctx)
	if !ok {
		return
	}

	review, err := c.AttemptService.GetQuizReview(user.UserID, quizID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrQuizNotFound):
			util.NotFound(ctx, "试卷不存在")
		case errors.Is(err, util.ErrNoCompletedAttempt):
			util.NotFound(ctx, "没有已完成的答题记录")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, review)
}
