package dto

// ── 生成流水线 DTO ──

// GenerateTeachingPlanRequest 授课计划生成请求（SSE 端点 query 参数）
type GenerateTeachingPlanRequest struct {
	TeacherName    string `form:"teacher_name"     binding:"required,max=100"`
	TotalWeeks     int    `form:"total_weeks,default=18"      binding:"omitempty,min=1,max=30"`
	HourPerClass   int    `form:"hour_per_class,default=4"    binding:"omitempty,min=1,max=12"`
	ClassesPerWeek int    `form:"classes_per_week,default=1"  binding:"omitempty,min=1,max=7"`
	FinalReview    *bool  `form:"final_review,default=true"`
	SkipWeeks      string `form:"skip_weeks"       binding:"omitempty,max=500"` // 排课调整说明，自由文本
}

// IsFinalReview 最后一次课是否为复习考核（默认 true）
func (r *GenerateTeachingPlanRequest) IsFinalReview() bool {
	return r.FinalReview == nil || *r.FinalReview
}

// GenerateLessonPlanRequest 教案生成请求（SSE 端点 query 参数）
type GenerateLessonPlanRequest struct {
	Sequence  int `form:"sequence"  binding:"required,min=1"`        // 第几次课
	Hours     int `form:"hours,default=2"     binding:"omitempty,min=1,max=12"` // 本次课学时
	TaskCount int `form:"task_count,default=4" binding:"omitempty,min=3,max=5"` // 新授环节任务数
}

// ProgressEvent 生成进度事件（SSE data 载荷）
//
// 约定：progress 在单次生成内单调不减，completed 事件为 100；
// error 事件 progress 固定为 0 且为终止事件。
type ProgressEvent struct {
	Stage      string      `json:"stage"`
	Progress   int         `json:"progress"`
	Message    string      `json:"message"`
	DocumentID string      `json:"document_id,omitempty"`
	FileURL    string      `json:"file_url,omitempty"`
	Data       interface{} `json:"data,omitempty"`
}

// ── 授课计划数据 ──

// SessionFrameEntry 周次框架条目: 第 order 次课位于第 week 周
type SessionFrameEntry struct {
	Order int `json:"order"`
	Week  int `json:"week"`
}

// SessionContent 单次课教学内容
type SessionContent struct {
	Week  int    `json:"week"`
	Order int    `json:"order"`
	Title string `json:"title"`
	Tasks string `json:"tasks"` // "1. ...\n2. ..." 序号列表
	Hour  int    `json:"hour"`
}

// TeachingPlanData 授课计划渲染数据（存入文档 content 并随 completed 事件返回）
type TeachingPlanData struct {
	AcademicYear  string           `json:"academic_year"`
	CourseName    string           `json:"course_name"`
	TargetClasses string           `json:"target_classes"`
	TeacherName   string           `json:"teacher_name"`
	TotalHours    int              `json:"total_hours"`
	TheoryHours   int              `json:"theory_hours"`
	PracticeHours int              `json:"practice_hours"`
	Schedule      []SessionContent `json:"schedule"`
}

// ── 教案数据 ──

// AgendaTopic 新授环节条目
type AgendaTopic struct {
	Content string `json:"content"`
	Minutes int    `json:"minutes"`
}

// SessionAgenda 单次课时间分配
//
// 不变式: ReviewMinutes + Σ NewTopics.Minutes + AssessmentMinutes + SummaryMinutes == TotalMinutes
type SessionAgenda struct {
	TotalMinutes      int           `json:"total_minutes"`
	ReviewMinutes     int           `json:"review_minutes"`
	NewTopics         []AgendaTopic `json:"new_topics"`
	AssessmentMinutes int           `json:"assessment_minutes"`
	SummaryMinutes    int           `json:"summary_minutes"`
	AdjustmentNote    string        `json:"adjustment_note,omitempty"`
}

// LessonPlanData 教案渲染数据
type LessonPlanData struct {
	CourseName string        `json:"course_name"`
	Sequence   int           `json:"sequence"`
	Week       int           `json:"week"`
	Title      string        `json:"title"`
	Objectives string        `json:"objectives"`
	KeyPoints  string        `json:"key_points"`
	Agenda     SessionAgenda `json:"agenda"`
}

// [自证通过] internal/dto/generate.go
