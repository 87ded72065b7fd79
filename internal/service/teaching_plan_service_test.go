package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Gabrlie/EduAgentPrime/internal/ai"
	"github.com/Gabrlie/EduAgentPrime/internal/dto"
	"github.com/Gabrlie/EduAgentPrime/internal/model"
	"github.com/Gabrlie/EduAgentPrime/internal/repository"
)

func newTeachingPlanEnv(t *testing.T, repo *repository.Repository, gen ai.Generator) (TeachingPlanService, DocumentService) {
	t.Helper()
	cfg := testConfig(t.TempDir())
	logger := zap.NewNop()
	renderer := &fakeRenderer{}
	docs := NewDocumentService(cfg, repo, renderer, logger)
	frames := NewFrameComputer(gen, cfg.AI.FrameTemp, logger)
	filler := NewContentFiller(gen, cfg.AI.ContentTemp, logger)
	return NewTeachingPlanService(cfg, repo, frames, filler, renderer, docs, logger), docs
}

func collectEvents(ch <-chan dto.ProgressEvent) []dto.ProgressEvent {
	var events []dto.ProgressEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

// contentJSON 构造内容智能体的返回：count 条记录，周次故意乱填
func contentJSON(t *testing.T, count, hour int) string {
	t.Helper()
	var entries []dto.SessionContent
	for i := 1; i <= count; i++ {
		entries = append(entries, dto.SessionContent{
			Week:  99, // 流水线必须用框架覆盖
			Order: i,
			Title: "[理论] 项目" + string(rune('0'+i%10)) + "：教学内容",
			Tasks: "1. 任务一\n2. 任务二",
			Hour:  hour,
		})
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		t.Fatal(err)
	}
	return string(raw)
}

func planRequest() *dto.GenerateTeachingPlanRequest {
	return &dto.GenerateTeachingPlanRequest{
		TeacherName:    "张老师",
		TotalWeeks:     10,
		HourPerClass:   4,
		ClassesPerWeek: 1,
	}
}

func TestTeachingPlanGenerate_Success_WithFinalReview(t *testing.T) {
	repo := newTestRepo()
	user, course := seedUserAndCourse(repo, true, "第1章 概述\n第2章 物理层")

	// 排课智能体失败走回退，内容智能体返回 9 条（10 次课留 1 次复习）
	gen := &fakeGenerator{responses: []fakeResponse{
		{err: ai.ErrGenerate},
		{text: contentJSON(t, 9, 4)},
	}}
	svc, _ := newTeachingPlanEnv(t, repo, gen)

	events := collectEvents(svc.Generate(context.Background(), user.UserID, course.CourseID, planRequest()))

	wantStages := []string{StageValidating, StageComputingFrame, StageFillingContent, StageRendering, StagePersisting, StageCompleted}
	if len(events) != len(wantStages) {
		t.Fatalf("事件数=%d，期望=%d: %+v", len(events), len(wantStages), events)
	}
	prev := -1
	for i, ev := range events {
		if ev.Stage != wantStages[i] {
			t.Errorf("第%d个事件 stage=%s，期望=%s", i, ev.Stage, wantStages[i])
		}
		if ev.Progress < prev {
			t.Errorf("progress 出现回退: %d -> %d", prev, ev.Progress)
		}
		prev = ev.Progress
	}

	final := events[len(events)-1]
	if final.Progress != 100 {
		t.Errorf("completed 事件 progress=%d，期望=100", final.Progress)
	}
	if final.DocumentID == "" || final.FileURL == "" {
		t.Error("completed 事件应携带 document_id 与 file_url")
	}

	data, ok := final.Data.(*dto.TeachingPlanData)
	if !ok {
		t.Fatalf("completed 事件 data 类型不符: %T", final.Data)
	}
	// 9 条内容 + 1 条合成复习课
	if len(data.Schedule) != 10 {
		t.Fatalf("计划条目数=%d，期望=10", len(data.Schedule))
	}
	review := data.Schedule[9]
	if review.Title != finalReviewTitle || review.Tasks != finalReviewTasks {
		t.Errorf("复习课内容不符: %+v", review)
	}
	// 复习课沿用框架第 10 次课的周次（回退排课：每周 1 次 → 第 10 周）
	if review.Week != 10 || review.Order != 10 {
		t.Errorf("复习课 week=%d order=%d，期望 10/10", review.Week, review.Order)
	}
	for i, s := range data.Schedule[:9] {
		if s.Week != i+1 || s.Order != i+1 {
			t.Errorf("第%d条 week=%d order=%d，应以框架为准", i+1, s.Week, s.Order)
		}
		if strings.Contains(s.Title, "[") || strings.Contains(s.Title, "]") {
			t.Errorf("标题未剥离中括号标签: %s", s.Title)
		}
	}

	// 文档已落槽位
	doc, err := repo.Document.GetBySlot(context.Background(), course.CourseID, model.DocTypePlan, nil)
	if err != nil {
		t.Fatalf("授课计划槽位应已占用: %v", err)
	}
	if doc.DocumentID != final.DocumentID {
		t.Errorf("槽位文档 ID 与事件不符")
	}
}

func TestTeachingPlanGenerate_CapacityRejectedBeforeAICall(t *testing.T) {
	repo := newTestRepo()
	user, course := seedUserAndCourse(repo, true, "目录")
	// 42 学时 ÷ 2 = 21 次课 > 10 周 × 2
	course.TotalHours = 42
	repo.Course.Update(context.Background(), course)

	gen := &fakeGenerator{}
	svc, _ := newTeachingPlanEnv(t, repo, gen)

	req := planRequest()
	req.HourPerClass = 2
	req.ClassesPerWeek = 2
	events := collectEvents(svc.Generate(context.Background(), user.UserID, course.CourseID, req))

	final := events[len(events)-1]
	if final.Stage != StageError || final.Progress != 0 {
		t.Fatalf("期望终止 error(0) 事件，实际: %+v", final)
	}
	if gen.calls != 0 {
		t.Errorf("容量校验失败后不应调用 AI，实际调用 %d 次", gen.calls)
	}
}

func TestTeachingPlanGenerate_EmptyCatalogRejected(t *testing.T) {
	repo := newTestRepo()
	user, course := seedUserAndCourse(repo, true, "")

	gen := &fakeGenerator{}
	svc, _ := newTeachingPlanEnv(t, repo, gen)

	events := collectEvents(svc.Generate(context.Background(), user.UserID, course.CourseID, planRequest()))

	final := events[len(events)-1]
	if final.Stage != StageError {
		t.Fatalf("目录为空应失败，实际: %+v", final)
	}
	if !strings.Contains(final.Message, "课程目录为空") {
		t.Errorf("错误消息不符: %s", final.Message)
	}
	if gen.calls != 0 {
		t.Errorf("校验失败后不应调用 AI")
	}
}

func TestTeachingPlanGenerate_AIConfigMissing(t *testing.T) {
	repo := newTestRepo()
	user, course := seedUserAndCourse(repo, false, "目录")

	svc, _ := newTeachingPlanEnv(t, repo, &fakeGenerator{})

	events := collectEvents(svc.Generate(context.Background(), user.UserID, course.CourseID, planRequest()))

	final := events[len(events)-1]
	if final.Stage != StageError || !strings.Contains(final.Message, "请先配置 AI API") {
		t.Errorf("期望 AI 配置缺失错误，实际: %+v", final)
	}
}

func TestTeachingPlanGenerate_OtherUserCourseRejected(t *testing.T) {
	repo := newTestRepo()
	_, course := seedUserAndCourse(repo, true, "目录")

	other := &model.User{Username: "other", PasswordHash: "x",
		AIAPIKey: strPtr("sk"), AIBaseURL: strPtr("https://api.example.com")}
	repo.User.Create(context.Background(), other)

	svc, _ := newTeachingPlanEnv(t, repo, &fakeGenerator{})

	events := collectEvents(svc.Generate(context.Background(), other.UserID, course.CourseID, planRequest()))

	final := events[len(events)-1]
	if final.Stage != StageError || !strings.Contains(final.Message, "课程不存在") {
		t.Errorf("跨用户访问应视为课程不存在，实际: %+v", final)
	}
}

func TestTeachingPlanGenerate_ContentFailureAborts(t *testing.T) {
	repo := newTestRepo()
	user, course := seedUserAndCourse(repo, true, "目录")

	// 排课回退成功，但内容生成失败 → 无回退，流水线终止
	gen := &fakeGenerator{responses: []fakeResponse{
		{err: ai.ErrGenerate},
		{err: ai.ErrGenerate},
	}}
	svc, _ := newTeachingPlanEnv(t, repo, gen)

	events := collectEvents(svc.Generate(context.Background(), user.UserID, course.CourseID, planRequest()))

	final := events[len(events)-1]
	if final.Stage != StageError || final.Progress != 0 {
		t.Fatalf("内容失败应终止为 error 事件: %+v", final)
	}
	// error 为最后一个事件，其后没有 rendering / persisting
	for _, ev := range events[:len(events)-1] {
		if ev.Stage == StageRendering || ev.Stage == StagePersisting {
			t.Errorf("失败后不应出现 %s 阶段", ev.Stage)
		}
	}
	// 不应有任何文档落库
	if _, err := repo.Document.GetBySlot(context.Background(), course.CourseID, model.DocTypePlan, nil); err == nil {
		t.Error("内容失败后不应持久化文档")
	}
}

func TestTeachingPlanGenerate_MalformedContentAborts(t *testing.T) {
	repo := newTestRepo()
	user, course := seedUserAndCourse(repo, true, "目录")

	gen := &fakeGenerator{responses: []fakeResponse{
		{err: ai.ErrGenerate},
		{text: "抱歉，我不能输出 JSON"},
	}}
	svc, _ := newTeachingPlanEnv(t, repo, gen)

	events := collectEvents(svc.Generate(context.Background(), user.UserID, course.CourseID, planRequest()))

	final := events[len(events)-1]
	if final.Stage != StageError {
		t.Fatalf("畸形内容应终止流水线: %+v", final)
	}
}

// [自证通过] internal/service/teaching_plan_service_test.go
