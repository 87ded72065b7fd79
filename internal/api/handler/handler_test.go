package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Gabrlie/EduAgentPrime/internal/dto"
	"github.com/Gabrlie/EduAgentPrime/internal/model"
	"github.com/Gabrlie/EduAgentPrime/internal/service"
	"github.com/Gabrlie/EduAgentPrime/pkg/jwt"
	"github.com/Gabrlie/EduAgentPrime/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	registerResult *dto.TokenResponse
	registerErr    error
	loginResult    *dto.TokenResponse
	loginErr       error
	refreshResult  *dto.TokenResponse
	refreshErr     error
	logoutErr      error
	profileResult  *dto.UserResponse
	profileErr     error
	changePassErr  error
	changeNameRes  *dto.UserResponse
	changeNameErr  error
	settingsResult *dto.UserResponse
	settingsErr    error
	modelsResult   []string
	modelsErr      error
}

func (m *mockAuthService) Register(_ context.Context, _ *dto.RegisterRequest) (*dto.TokenResponse, error) {
	return m.registerResult, m.registerErr
}
func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) RefreshToken(_ context.Context, _ *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	return m.refreshResult, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, _ *jwt.Claims) error {
	return m.logoutErr
}
func (m *mockAuthService) GetProfile(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.profileResult, m.profileErr
}
func (m *mockAuthService) ChangePassword(_ context.Context, _ string, _ *dto.ChangePasswordRequest) error {
	return m.changePassErr
}
func (m *mockAuthService) ChangeUsername(_ context.Context, _ string, _ *dto.ChangeUsernameRequest) (*dto.UserResponse, error) {
	return m.changeNameRes, m.changeNameErr
}
func (m *mockAuthService) UpdateSettings(_ context.Context, _ string, _ *dto.UpdateSettingsRequest) (*dto.UserResponse, error) {
	return m.settingsResult, m.settingsErr
}
func (m *mockAuthService) ListModels(_ context.Context, _ string) ([]string, error) {
	return m.modelsResult, m.modelsErr
}

// ── Mock CourseService ──

type mockCourseService struct {
	createResult  *model.Course
	createErr     error
	getResult     *model.Course
	getErr        error
	listResult    []model.Course
	listTotal     int64
	listErr       error
	updateResult  *model.Course
	updateErr     error
	catalogResult *model.Course
	catalogErr    error
	deleteErr     error
}

func (m *mockCourseService) Create(_ context.Context, _ string, _ *dto.CreateCourseRequest) (*model.Course, error) {
	return m.createResult, m.createErr
}
func (m *mockCourseService) Get(_ context.Context, _, _ string) (*model.Course, error) {
	return m.getResult, m.getErr
}
func (m *mockCourseService) List(_ context.Context, _ string, _ *dto.CourseListRequest) ([]model.Course, int64, error) {
	return m.listResult, m.listTotal, m.listErr
}
func (m *mockCourseService) Update(_ context.Context, _, _ string, _ *dto.UpdateCourseRequest) (*model.Course, error) {
	return m.updateResult, m.updateErr
}
func (m *mockCourseService) UpdateCatalog(_ context.Context, _, _ string, _ string) (*model.Course, error) {
	return m.catalogResult, m.catalogErr
}
func (m *mockCourseService) Delete(_ context.Context, _, _ string) error {
	return m.deleteErr
}

// ── Mock DocumentService ──

type mockDocumentService struct {
	upsertResult  *model.CourseDocument
	upsertErr     error
	uploadResult  *model.CourseDocument
	uploadErr     error
	listResult    []model.CourseDocument
	listErr       error
	getResult     *model.CourseDocument
	getErr        error
	updateResult  *model.CourseDocument
	updateErr     error
	deleteErr     error
	resolvePath   string
	resolveName   string
	resolveErr    error
	uploadDocType string // 记录最近一次上传的 doc_type
}

func (m *mockDocumentService) UpsertGenerated(_ context.Context, _, _ string, _ *int, _, _ string, _ []byte, _ string) (*model.CourseDocument, error) {
	return m.upsertResult, m.upsertErr
}
func (m *mockDocumentService) Upload(_ context.Context, _, _, docType string, _ *int, _ string, _ []byte) (*model.CourseDocument, error) {
	m.uploadDocType = docType
	return m.uploadResult, m.uploadErr
}
func (m *mockDocumentService) ListByCourse(_ context.Context, _, _, _ string) ([]model.CourseDocument, error) {
	return m.listResult, m.listErr
}
func (m *mockDocumentService) Get(_ context.Context, _, _ string) (*model.CourseDocument, error) {
	return m.getResult, m.getErr
}
func (m *mockDocumentService) UpdateContent(_ context.Context, _, _ string, _ *dto.UpdateDocumentRequest) (*model.CourseDocument, error) {
	return m.updateResult, m.updateErr
}
func (m *mockDocumentService) Delete(_ context.Context, _, _ string) error {
	return m.deleteErr
}
func (m *mockDocumentService) ResolveFile(_ context.Context, _, _ string) (string, string, error) {
	return m.resolvePath, m.resolveName, m.resolveErr
}

// ── Mock 生成服务 ──

type mockTeachingPlanService struct {
	events []dto.ProgressEvent
}

func (m *mockTeachingPlanService) Generate(_ context.Context, _, _ string, _ *dto.GenerateTeachingPlanRequest) <-chan dto.ProgressEvent {
	ch := make(chan dto.ProgressEvent, len(m.events))
	for _, e := range m.events {
		ch <- e
	}
	close(ch)
	return ch
}

type mockLessonPlanService struct {
	events []dto.ProgressEvent
}

func (m *mockLessonPlanService) Generate(_ context.Context, _, _ string, _ *dto.GenerateLessonPlanRequest) <-chan dto.ProgressEvent {
	ch := make(chan dto.ProgressEvent, len(m.events))
	for _, e := range m.events {
		ch <- e
	}
	close(ch)
	return ch
}

// ── Mock ChatService ──

type mockChatService struct {
	sendResult    *model.Message
	sendErr       error
	historyResult []model.Message
	historyErr    error
	clearErr      error
}

func (m *mockChatService) Send(_ context.Context, _, _ string) (*model.Message, error) {
	return m.sendResult, m.sendErr
}
func (m *mockChatService) History(_ context.Context, _ string, _ int) ([]model.Message, error) {
	return m.historyResult, m.historyErr
}
func (m *mockChatService) Clear(_ context.Context, _ string) error {
	return m.clearErr
}

// ── Mock ExportService ──

type mockExportService struct {
	data     []byte
	filename string
	err      error
}

func (m *mockExportService) ExportCalendar(_ context.Context, _, _ string) ([]byte, string, error) {
	return m.data, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

// fakeAuth 模拟 JWTAuth 中间件注入的上下文
func fakeAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", "test-user-id")
		c.Set("claims", &jwt.Claims{UserID: "test-user-id", TokenType: "access"})
		c.Next()
	}
}

// sseRecorder 补上 http.CloseNotifier：gin 的 c.Stream 会对底层
// ResponseWriter 做 CloseNotify 断言，裸 httptest.ResponseRecorder 没有实现
type sseRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newSSERecorder() *sseRecorder {
	return &sseRecorder{httptest.NewRecorder(), make(chan bool, 1)}
}

func (r *sseRecorder) CloseNotify() <-chan bool { return r.closed }

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// parseSSEEvents 从 SSE 响应体中解析所有 data 载荷
func parseSSEEvents(t *testing.T, body string) []dto.ProgressEvent {
	t.Helper()
	var events []dto.ProgressEvent
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		var e dto.ProgressEvent
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			t.Fatalf("SSE data 载荷不是合法 JSON: %v (%s)", err, payload)
		}
		events = append(events, e)
	}
	return events
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{
			AccessToken:  "test-access-token",
			RefreshToken: "test-refresh-token",
			ExpiresIn:    900,
		},
	}
	h := NewAuthHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Username: "teacher_zhang",
		Password: "Passw0rd123",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrInvalidCredentials})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Username: "teacher_zhang",
		Password: "wrong-password",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 11001 {
		t.Errorf("expected error code 11001, got %d", resp.Code)
	}
}

func TestAuthHandler_Register_UsernameTaken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{registerErr: service.ErrUsernameTaken})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/register", jsonBody(dto.RegisterRequest{
		Username: "teacher_zhang",
		Password: "Passw0rd123",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 11002 {
		t.Errorf("expected error code 11002, got %d", resp.Code)
	}
}

func TestAuthHandler_ListModels_ConfigMissing(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{modelsErr: service.ErrAIConfigMissing})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/auth/models", nil)

	r := gin.New()
	r.Use(fakeAuth())
	r.GET("/auth/models", h.ListModels)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 11006 {
		t.Errorf("expected error code 11006, got %d", resp.Code)
	}
}

func TestAuthHandler_GetProfile_Unauthenticated(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/auth/me", nil)

	// 不挂 fakeAuth：上下文中没有 user_id
	r := gin.New()
	r.GET("/auth/me", h.GetProfile)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// CourseHandler Tests
// ═══════════════════════════════════════════════════════════

func TestCourseHandler_GetCourse_NotFound(t *testing.T) {
	h := NewCourseHandler(&mockCourseService{getErr: service.ErrCourseNotFound})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/courses/no-such-id", nil)

	r := gin.New()
	r.Use(fakeAuth())
	r.GET("/courses/:id", h.GetCourse)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 12001 {
		t.Errorf("expected error code 12001, got %d", resp.Code)
	}
}

func TestCourseHandler_UpdateCatalog_Success(t *testing.T) {
	catalog := "第一章 概述"
	h := NewCourseHandler(&mockCourseService{
		catalogResult: &model.Course{CourseID: "c-1", Name: "计算机网络", CourseCatalog: &catalog},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/courses/c-1/catalog", jsonBody(dto.UpdateCatalogRequest{
		CourseCatalog: catalog,
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.Use(fakeAuth())
	r.PUT("/courses/:id/catalog", h.UpdateCatalog)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestCourseHandler_UpdateCourse_BadStartDate(t *testing.T) {
	h := NewCourseHandler(&mockCourseService{updateErr: service.ErrBadStartDate})

	bad := "2026/03/02"
	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/courses/c-1", jsonBody(dto.UpdateCourseRequest{StartDate: &bad}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.Use(fakeAuth())
	r.PUT("/courses/:id", h.UpdateCourse)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 12002 {
		t.Errorf("expected error code 12002, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// DocumentHandler Tests
// ═══════════════════════════════════════════════════════════

func multipartUpload(t *testing.T, filename, docType, lessonNumber string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("构造 multipart 失败: %v", err)
	}
	fw.Write([]byte("file-bytes"))
	mw.WriteField("doc_type", docType)
	if lessonNumber != "" {
		mw.WriteField("lesson_number", lessonNumber)
	}
	mw.Close()
	return buf, mw.FormDataContentType()
}

func TestDocumentHandler_Upload_Success(t *testing.T) {
	mock := &mockDocumentService{
		uploadResult: &model.CourseDocument{DocumentID: "d-1", DocType: model.DocTypeCourseware},
	}
	h := NewDocumentHandler(mock)

	body, contentType := multipartUpload(t, "课件.pptx", "courseware", "3")
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/courses/c-1/documents", body)
	req.Header.Set("Content-Type", contentType)

	r := gin.New()
	r.Use(fakeAuth())
	r.POST("/courses/:id/documents", h.Upload)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
	if mock.uploadDocType != "courseware" {
		t.Errorf("expected doc_type courseware 透传到 Service, got %q", mock.uploadDocType)
	}
}

func TestDocumentHandler_Upload_BadLessonNumber(t *testing.T) {
	h := NewDocumentHandler(&mockDocumentService{})

	body, contentType := multipartUpload(t, "教案.docx", "lesson", "zero")
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/courses/c-1/documents", body)
	req.Header.Set("Content-Type", contentType)

	r := gin.New()
	r.Use(fakeAuth())
	r.POST("/courses/:id/documents", h.Upload)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestDocumentHandler_Upload_UnsupportedType(t *testing.T) {
	h := NewDocumentHandler(&mockDocumentService{uploadErr: service.ErrUnsupportedFileType})

	body, contentType := multipartUpload(t, "virus.exe", "courseware", "1")
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/courses/c-1/documents", body)
	req.Header.Set("Content-Type", contentType)

	r := gin.New()
	r.Use(fakeAuth())
	r.POST("/courses/:id/documents", h.Upload)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 14002 {
		t.Errorf("expected error code 14002, got %d", resp.Code)
	}
}

func TestDocumentHandler_Download_NotFound(t *testing.T) {
	h := NewDocumentHandler(&mockDocumentService{resolveErr: service.ErrDocumentNotFound})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/documents/d-404/download", nil)

	r := gin.New()
	r.Use(fakeAuth())
	r.GET("/documents/:id/download", h.Download)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// GenerateHandler Tests (SSE)
// ═══════════════════════════════════════════════════════════

func TestGenerateHandler_TeachingPlan_EventStream(t *testing.T) {
	mock := &mockTeachingPlanService{
		events: []dto.ProgressEvent{
			{Stage: "validating", Progress: 10, Message: "校验生成条件"},
			{Stage: "computing_frame", Progress: 30, Message: "计算周次框架"},
			{Stage: "filling_content", Progress: 50, Message: "生成教学内容"},
			{Stage: "rendering", Progress: 85, Message: "渲染文档"},
			{Stage: "persisting", Progress: 95, Message: "保存文档"},
			{Stage: "completed", Progress: 100, Message: "生成完成", DocumentID: "d-1", FileURL: "/uploads/abc.xlsx"},
		},
	}
	h := NewGenerateHandler(mock, &mockLessonPlanService{})

	w := newSSERecorder()
	req := httptest.NewRequest("GET", "/courses/c-1/generate-teaching-plan/stream?teacher_name=张三", nil)

	r := gin.New()
	r.Use(fakeAuth())
	r.GET("/courses/:id/generate-teaching-plan/stream", h.GenerateTeachingPlan)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("expected text/event-stream, got %q", ct)
	}
	if w.Header().Get("X-Accel-Buffering") != "no" {
		t.Error("expected X-Accel-Buffering: no")
	}

	events := parseSSEEvents(t, w.Body.String())
	if len(events) != 6 {
		t.Fatalf("expected 6 events, got %d", len(events))
	}
	wantStages := []string{"validating", "computing_frame", "filling_content", "rendering", "persisting", "completed"}
	for i, stage := range wantStages {
		if events[i].Stage != stage {
			t.Errorf("event %d: expected stage %s, got %s", i, stage, events[i].Stage)
		}
	}
	last := events[len(events)-1]
	if last.Progress != 100 || last.DocumentID != "d-1" || last.FileURL != "/uploads/abc.xlsx" {
		t.Errorf("completed 事件缺少文档信息: %+v", last)
	}
}

func TestGenerateHandler_TeachingPlan_ErrorEvent(t *testing.T) {
	mock := &mockTeachingPlanService{
		events: []dto.ProgressEvent{
			{Stage: "validating", Progress: 10, Message: "校验生成条件"},
			{Stage: "error", Progress: 0, Message: "课次容量不足"},
		},
	}
	h := NewGenerateHandler(mock, &mockLessonPlanService{})

	w := newSSERecorder()
	req := httptest.NewRequest("GET", "/courses/c-1/generate-teaching-plan/stream?teacher_name=张三", nil)

	r := gin.New()
	r.Use(fakeAuth())
	r.GET("/courses/:id/generate-teaching-plan/stream", h.GenerateTeachingPlan)
	r.ServeHTTP(w, req)

	events := parseSSEEvents(t, w.Body.String())
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	last := events[len(events)-1]
	if last.Stage != "error" || last.Progress != 0 {
		t.Errorf("expected 终止 error 事件 progress=0, got %+v", last)
	}
}

func TestGenerateHandler_TeachingPlan_MissingTeacherName(t *testing.T) {
	h := NewGenerateHandler(&mockTeachingPlanService{}, &mockLessonPlanService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/courses/c-1/generate-teaching-plan/stream", nil)

	r := gin.New()
	r.Use(fakeAuth())
	r.GET("/courses/:id/generate-teaching-plan/stream", h.GenerateTeachingPlan)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestGenerateHandler_LessonPlan_EventStream(t *testing.T) {
	mock := &mockLessonPlanService{
		events: []dto.ProgressEvent{
			{Stage: "analyzing", Progress: 10, Message: "分析课次"},
			{Stage: "retrieving", Progress: 30, Message: "检索课程资料"},
			{Stage: "generating", Progress: 50, Message: "生成教案内容"},
			{Stage: "rendering", Progress: 85, Message: "渲染文档"},
			{Stage: "persisting", Progress: 95, Message: "保存文档"},
			{Stage: "completed", Progress: 100, Message: "生成完成", DocumentID: "d-2"},
		},
	}
	h := NewGenerateHandler(&mockTeachingPlanService{}, mock)

	w := newSSERecorder()
	req := httptest.NewRequest("GET", "/courses/c-1/generate-lesson-plan/stream?sequence=3", nil)

	r := gin.New()
	r.Use(fakeAuth())
	r.GET("/courses/:id/generate-lesson-plan/stream", h.GenerateLessonPlan)
	r.ServeHTTP(w, req)

	events := parseSSEEvents(t, w.Body.String())
	if len(events) != 6 {
		t.Fatalf("expected 6 events, got %d", len(events))
	}
	if events[0].Stage != "analyzing" || events[5].Stage != "completed" {
		t.Errorf("事件序列不符: 首 %s 尾 %s", events[0].Stage, events[5].Stage)
	}
}

// ═══════════════════════════════════════════════════════════
// ChatHandler Tests
// ═══════════════════════════════════════════════════════════

func TestChatHandler_Send_Success(t *testing.T) {
	h := NewChatHandler(&mockChatService{
		sendResult: &model.Message{MessageID: "m-1", Role: "assistant", Content: "你好"},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/chat/messages", jsonBody(dto.ChatSendRequest{Content: "你好"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.Use(fakeAuth())
	r.POST("/chat/messages", h.Send)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestChatHandler_Send_AIConfigMissing(t *testing.T) {
	h := NewChatHandler(&mockChatService{sendErr: service.ErrAIConfigMissing})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/chat/messages", jsonBody(dto.ChatSendRequest{Content: "你好"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.Use(fakeAuth())
	r.POST("/chat/messages", h.Send)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 15001 {
		t.Errorf("expected error code 15001, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_Calendar_Success(t *testing.T) {
	h := NewExportHandler(&mockExportService{
		data:     []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"),
		filename: "计算机网络_上课日历.ics",
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/courses/c-1/calendar.ics", nil)

	r := gin.New()
	r.Use(fakeAuth())
	r.GET("/courses/:id/calendar.ics", h.ExportCalendar)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/calendar") {
		t.Errorf("expected text/calendar, got %q", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "attachment") {
		t.Error("expected attachment Content-Disposition")
	}
	if !strings.Contains(w.Body.String(), "BEGIN:VCALENDAR") {
		t.Error("expected iCalendar body")
	}
}

func TestExportHandler_Calendar_NoPlan(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrExportNoPlan})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/courses/c-1/calendar.ics", nil)

	r := gin.New()
	r.Use(fakeAuth())
	r.GET("/courses/:id/calendar.ics", h.ExportCalendar)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 16001 {
		t.Errorf("expected error code 16001, got %d", resp.Code)
	}
}

// [自证通过] internal/api/handler/handler_test.go
