package handler

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Gabrlie/EduAgentPrime/internal/dto"
	"github.com/Gabrlie/EduAgentPrime/internal/service"
	pkgerrors "github.com/Gabrlie/EduAgentPrime/pkg/errors"
	"github.com/Gabrlie/EduAgentPrime/pkg/response"
)

// DocumentHandler 课程文档模块 HTTP 处理器
type DocumentHandler struct {
	docSvc service.DocumentService
}

// NewDocumentHandler 创建 DocumentHandler
func NewDocumentHandler(docSvc service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docSvc: docSvc}
}

// Upload 上传文档到指定槽位（同槽位重复上传覆盖旧文件）
// POST /api/v1/courses/:id/documents  (multipart/form-data)
// 表单字段: file, doc_type, lesson_number（课次级文档必填）
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "缺少上传文件")
		return
	}

	docType := c.PostForm("doc_type")

	var lessonNumber *int
	if ln := c.PostForm("lesson_number"); ln != "" {
		n, convErr := strconv.Atoi(ln)
		if convErr != nil || n < 1 {
			response.BadRequest(c, 10001, "lesson_number 必须为正整数")
			return
		}
		lessonNumber = &n
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.InternalError(c)
		return
	}

	doc, err := h.docSvc.Upload(c.Request.Context(), userID, c.Param("id"), docType, lessonNumber, fileHeader.Filename, data)
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}

	response.Created(c, doc)
}

// ListDocuments 获取课程文档列表（可按 doc_type 过滤）
// GET /api/v1/courses/:id/documents?doc_type=lesson
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	docs, err := h.docSvc.ListByCourse(c.Request.Context(), userID, c.Param("id"), c.Query("doc_type"))
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": docs})
}

// GetDocument 获取文档详情（含结构化内容）
// GET /api/v1/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	doc, err := h.docSvc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}

	response.OK(c, doc)
}

// UpdateDocument 更新文档标题/内容（内容变更触发产物重渲染）
// PUT /api/v1/documents/:id
func (h *DocumentHandler) UpdateDocument(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	doc, err := h.docSvc.UpdateContent(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}

	response.OK(c, doc)
}

// DeleteDocument 删除文档（记录与产物文件一并删除）
// DELETE /api/v1/documents/:id
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.docSvc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.handleDocumentError(c, err)
		return
	}

	response.OK(c, nil)
}

// Download 下载文档产物文件
// GET /api/v1/documents/:id/download
func (h *DocumentHandler) Download(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	path, filename, err := h.docSvc.ResolveFile(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}

	c.FileAttachment(path, filename)
}

func (h *DocumentHandler) handleDocumentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDocumentNotFound):
		response.NotFound(c, 14001, "文档不存在")
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 12001, "课程不存在")
	case errors.Is(err, service.ErrUnsupportedFileType):
		response.BadRequest(c, 14002, "不支持的文件类型")
	case errors.Is(err, service.ErrFileTooLarge):
		response.BadRequest(c, 14003, "文件大小超出限制")
	case errors.Is(err, service.ErrInvalidDocType):
		response.BadRequest(c, 14004, "文档类型不合法")
	case errors.Is(err, pkgerrors.ErrNotOwner):
		response.NotFound(c, 14001, "文档不存在")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 14005, "文档已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/document_handler.go
