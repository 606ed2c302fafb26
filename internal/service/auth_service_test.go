package service

import (
	"errors"
	"testing"
	"time"

	"quiz_app_backend/internal/config"
	"quiz_app_backend/internal/repository"
	"quiz_app_backend/internal/util"

	"gorm.io/gorm"
)

func newAuthService(t *testing.T) (*AuthService, *repository.TokenRepository, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret-only-for-unit-tests"
	cfg.JWT.ExpireTime = time.Hour

	tokenRepo := repository.NewTokenRepository(db)
	return NewAuthService(repository.NewUserRepository(db), tokenRepo, cfg), tokenRepo, db
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newAuthService(t)

	profile, err := svc.Register(RegisterReq{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if profile.Username != "alice" || profile.IsAdmin {
		t.Errorf("unexpected profile: %+v", profile)
	}

	result, err := svc.Login(LoginReq{Username: "alice", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Token == "" {
		t.Error("expected a token")
	}

	claims, err := util.ParseJWT(result.Token, "test-secret-only-for-unit-tests")
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if claims.UserID != profile.ID {
		t.Errorf("token user %d, want %d", claims.UserID, profile.ID)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	svc, _, _ := newAuthService(t)

	if _, err := svc.Register(RegisterReq{Username: "alice", Email: "alice@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Register(RegisterReq{Username: "alice", Email: "other@example.com", Password: "secret1"}); !errors.Is(err, util.ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := svc.Register(RegisterReq{Username: "bob", Email: "alice@example.com", Password: "secret1"}); !errors.Is(err, util.ErrEmailRegistered) {
		t.Errorf("expected ErrEmailRegistered, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newAuthService(t)

	if _, err := svc.Register(RegisterReq{Username: "alice", Email: "alice@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(LoginReq{Username: "alice", Password: "wrong"}); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(LoginReq{Username: "nobody", Password: "secret1"}); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestLogoutRevokesTokens(t *testing.T) {
	svc, tokenRepo, _ := newAuthService(t)

	profile, err := svc.Register(RegisterReq{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	result, err := svc.Login(LoginReq{Username: "alice", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := util.ParseJWT(result.Token, "test-secret-only-for-unit-tests")
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if _, err := tokenRepo.FindActive(claims.ID); err != nil {
		t.Fatalf("token should be active before logout: %v", err)
	}

	if err := svc.Logout(profile.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	// 登出后 jti 查不到活跃记录，认证中间件会据此拒绝
	if _, err := tokenRepo.FindActive(claims.ID); err == nil {
		t.Error("token still active after logout")
	}
}
