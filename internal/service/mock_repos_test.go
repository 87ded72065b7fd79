package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/Gabrlie/EduAgentPrime/config"
	"github.com/Gabrlie/EduAgentPrime/internal/ai"
	"github.com/Gabrlie/EduAgentPrime/internal/model"
	"github.com/Gabrlie/EduAgentPrime/internal/repository"
	pkgerrors "github.com/Gabrlie/EduAgentPrime/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.Username
	}
	if user.Version == 0 {
		user.Version = 1
	}
	user.CreatedAt = time.Now()
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	stored, ok := m.users[user.UserID]
	if !ok || stored.Version != user.Version {
		return pkgerrors.ErrOptimisticLock
	}
	user.Version++
	copied := *user
	m.users[user.UserID] = &copied
	return nil
}

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	courses map[string]*model.Course
	nextID  int
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string]*model.Course)}
}

func (m *mockCourseRepo) Create(_ context.Context, course *model.Course) error {
	if course.CourseID == "" {
		m.nextID++
		course.CourseID = fmt.Sprintf("course-%d", m.nextID)
	}
	if course.Version == 0 {
		course.Version = 1
	}
	course.CreatedAt = time.Now()
	m.courses[course.CourseID] = course
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, id string) (*model.Course, error) {
	if c, ok := m.courses[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) Update(_ context.Context, course *model.Course) error {
	if _, ok := m.courses[course.CourseID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *course
	m.courses[course.CourseID] = &copied
	return nil
}

func (m *mockCourseRepo) Delete(_ context.Context, id string) error {
	delete(m.courses, id)
	return nil
}

func (m *mockCourseRepo) ListByUser(_ context.Context, userID, keyword string, offset, limit int) ([]model.Course, int64, error) {
	var result []model.Course
	for _, c := range m.courses {
		if c.UserID == userID {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CourseID < result[j].CourseID })
	return result, int64(len(result)), nil
}

// ── Mock DocumentRepository ──

type mockDocumentRepo struct {
	docs   map[string]*model.CourseDocument
	nextID int
}

func newMockDocumentRepo() *mockDocumentRepo {
	return &mockDocumentRepo{docs: make(map[string]*model.CourseDocument)}
}

func (m *mockDocumentRepo) Create(_ context.Context, doc *model.CourseDocument) error {
	if doc.DocumentID == "" {
		m.nextID++
		doc.DocumentID = fmt.Sprintf("doc-%d", m.nextID)
	}
	if doc.Version == 0 {
		doc.Version = 1
	}
	doc.CreatedAt = time.Now()
	m.docs[doc.DocumentID] = doc
	return nil
}

func (m *mockDocumentRepo) GetByID(_ context.Context, id string) (*model.CourseDocument, error) {
	if d, ok := m.docs[id]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDocumentRepo) GetBySlot(_ context.Context, courseID, docType string, lessonNumber *int) (*model.CourseDocument, error) {
	for _, d := range m.docs {
		if d.CourseID != courseID || d.DocType != docType {
			continue
		}
		if lessonNumber == nil && d.LessonNumber == nil {
			copied := *d
			return &copied, nil
		}
		if lessonNumber != nil && d.LessonNumber != nil && *lessonNumber == *d.LessonNumber {
			copied := *d
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDocumentRepo) Update(_ context.Context, doc *model.CourseDocument) error {
	stored, ok := m.docs[doc.DocumentID]
	if !ok || stored.Version != doc.Version {
		return pkgerrors.ErrOptimisticLock
	}
	doc.Version++
	copied := *doc
	m.docs[doc.DocumentID] = &copied
	return nil
}

func (m *mockDocumentRepo) Delete(_ context.Context, id string) error {
	delete(m.docs, id)
	return nil
}

func (m *mockDocumentRepo) ListByCourse(_ context.Context, courseID string) ([]model.CourseDocument, error) {
	var result []model.CourseDocument
	for _, d := range m.docs {
		if d.CourseID == courseID {
			result = append(result, *d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DocumentID < result[j].DocumentID })
	return result, nil
}

func (m *mockDocumentRepo) ListByCourseAndType(_ context.Context, courseID, docType string) ([]model.CourseDocument, error) {
	all, _ := m.ListByCourse(context.Background(), courseID)
	var result []model.CourseDocument
	for _, d := range all {
		if d.DocType == docType {
			result = append(result, d)
		}
	}
	return result, nil
}

// ── Mock MessageRepository ──

type mockMessageRepo struct {
	messages []*model.Message
	nextID   int
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{}
}

func (m *mockMessageRepo) Create(_ context.Context, msg *model.Message) error {
	m.nextID++
	msg.MessageID = fmt.Sprintf("msg-%d", m.nextID)
	msg.CreatedAt = time.Now()
	copied := *msg
	m.messages = append(m.messages, &copied)
	return nil
}

func (m *mockMessageRepo) ListRecentByUser(_ context.Context, userID string, limit int) ([]model.Message, error) {
	var result []model.Message
	for _, msg := range m.messages {
		if msg.UserID == userID {
			result = append(result, *msg)
		}
	}
	if len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (m *mockMessageRepo) DeleteByUser(_ context.Context, userID string) error {
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.UserID != userID {
			kept = append(kept, msg)
		}
	}
	m.messages = kept
	return nil
}

// ── 假 AI 生成器 ──

// fakeGenerator 按调用顺序返回预设结果，可定点注入失败或畸形输出
type fakeGenerator struct {
	responses []fakeResponse
	calls     int
	prompts   []string
}

type fakeResponse struct {
	text string
	err  error
}

func (g *fakeGenerator) Generate(_ context.Context, _ ai.Credentials, req *ai.Request) (string, error) {
	g.prompts = append(g.prompts, req.Prompt)
	if g.calls >= len(g.responses) {
		return "", ai.ErrGenerate
	}
	resp := g.responses[g.calls]
	g.calls++
	return resp.text, resp.err
}

// ── 假渲染器 ──

type fakeRenderer struct {
	failWith error
}

func (r *fakeRenderer) Render(templateName string, _ interface{}) (*bytes.Buffer, string, error) {
	if r.failWith != nil {
		return nil, "", r.failWith
	}
	return bytes.NewBufferString("fake-artifact-" + templateName), templateName + ".xlsx", nil
}

// ── 测试环境组装 ──

func newTestRepo() *repository.Repository {
	return &repository.Repository{
		User:     newMockUserRepo(),
		Course:   newMockCourseRepo(),
		Document: newMockDocumentRepo(),
		Message:  newMockMessageRepo(),
	}
}

func testConfig(uploadDir string) *config.Config {
	cfg := &config.Config{}
	cfg.AI.DefaultModel = "gpt-4"
	cfg.AI.FrameTemp = 0.2
	cfg.AI.ContentTemp = 0.7
	cfg.AI.MaxHistoryTurns = 20
	cfg.Storage.UploadDir = uploadDir
	cfg.Storage.MaxUploadSize = 10 << 20
	return cfg
}

func strPtr(s string) *string { return &s }

func seedUserAndCourse(repo *repository.Repository, withAI bool, catalog string) (*model.User, *model.Course) {
	user := &model.User{Username: "teacher", Name: "张老师", PasswordHash: "x"}
	if withAI {
		user.AIAPIKey = strPtr("sk-test")
		user.AIBaseURL = strPtr("https://api.example.com/v1")
		user.AIModelName = strPtr("gpt-4")
	}
	repo.User.Create(context.Background(), user)

	course := &model.Course{
		UserID:        user.UserID,
		Name:          "计算机网络",
		Semester:      "2025-2026学年第一学期",
		ClassName:     "网络2301",
		TotalHours:    40,
		PracticeHours: 16,
	}
	if catalog != "" {
		course.CourseCatalog = &catalog
	}
	repo.Course.Create(context.Background(), course)
	return user, course
}

// [自证通过] internal/service/mock_repos_test.go
