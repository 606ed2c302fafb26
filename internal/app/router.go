package app

import (
	"quiz_app_backend/internal/middleware"
	"quiz_app_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 答题端：登录后按用户限流
	userGroup := router.Group("/api/user")
	userGroup.Use(
		middleware.AuthMiddleware(repos.token),
		middleware.RateLimit(a.Limiter, a.limiterBackend),
	)
	{
		userGroup.POST("/logout", c.auth.Logout)
		userGroup.GET("/profile", c.auth.Profile)

		userGroup.GET("/my-quizzes", c.attempt.ListMyQuizzes)
		userGroup.POST("/quizzes/:id/start", c.attempt.StartQuiz)
		userGroup.GET("/quizzes/:id/questions", c.attempt.GetQuizQuestions)
		userGroup.POST("/quizzes/:id/submit", c.attempt.SubmitQuiz)
		userGroup.GET("/quizzes/:id/response", c.attempt.GetQuizReview)
	}

	// 管理端：出题、建卷、组卷与答题情况
	adminGroup := router.Group("/api/admin")
	adminGroup.Use(
		middleware.AuthMiddleware(repos.token),
		middleware.AdminMiddleware(),
		middleware.RateLimit(a.Limiter, a.limiterBackend),
	)
	{
		adminGroup.POST("/quizzes", c.quiz.CreateQuiz)
		adminGroup.GET("/quizzes", c.quiz.ListQuizzes)
		adminGroup.GET("/quizzes/:id", c.quiz.GetQuiz)
		adminGroup.PUT("/quizzes/:id/questions", c.quiz.MapQuestions)
		adminGroup.GET("/quizzes/:id/participants", c.quiz.ListParticipants)
		adminGroup.GET("/quizzes/:id/participants/:user_id/responses", c.quiz.GetParticipantResponses)

		adminGroup.POST("/questions", c.quiz.CreateQuestion)
		adminGroup.GET("/questions", c.quiz.ListQuestions)
	}
}
