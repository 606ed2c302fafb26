package util

import "errors"

var (
	// 资源不存在
	ErrUserNotFound     = errors.New("user not found")
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrQuestionNotFound = errors.New("one or more questions not found")

	// 生命周期/状态错误
	ErrQuizNotStarted     = errors.New("you need to start the quiz first")
	ErrNoActiveAttempt    = errors.New("no active attempt found for this quiz")
	ErrNoCompletedAttempt = errors.New("no completed attempt found for this quiz")
	ErrNoAttempt          = errors.New("no attempt found")

	// 出题/组卷校验错误
	ErrQuestionCountMismatch = errors.New("number of questions must match quiz configuration")
	ErrTotalMarksMismatch    = errors.New("total marks must match quiz configuration")
	ErrNoCorrectOption       = errors.New("question must have exactly one correct option")

	// 认证相关
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrEmailRegistered    = errors.New("email already registered")
)
