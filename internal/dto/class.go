package dto

import "tutorhub/backend/internal/scheduling"

// ── 辅导班模块 DTO ──

// CreateClassRequest 创建辅导班（草稿）请求
// 时段合法性由排课引擎校验并返回冲突描述，此处不做范围约束
type CreateClassRequest struct {
	ClassCode   string                `json:"class_code"   binding:"required,min=2,max=50"`
	SubjectID   string                `json:"subject_id"   binding:"required,uuid"`
	SemesterID  string                `json:"semester_id"  binding:"required,uuid"`
	WeekCount   int                   `json:"week_count"   binding:"required,weekcount"`
	MeetingLink string                `json:"meeting_link" binding:"omitempty,url,max=500"`
	Capacity    int                   `json:"capacity"     binding:"min=0,max=500"`
	Slots       []scheduling.TimeSlot `json:"schedule_slots"`
}

// UpdateSlotsRequest 替换草稿课表请求
type UpdateSlotsRequest struct {
	Slots []scheduling.TimeSlot `json:"schedule_slots"`
}

// SubmitClassRequest 提交辅导班请求
type SubmitClassRequest struct {
	AnchorDate string `json:"anchor_date" binding:"omitempty,datetime=2006-01-02"` // 为空时取 max(今天, 学期开始)
}

// CloseClassRequest 结课请求
type CloseClassRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"` // 写入被取消课次的 cancel_reason
}

// ClassListRequest 辅导班列表查询
type ClassListRequest struct {
	PaginationRequest
	SemesterID string `form:"semester_id" binding:"omitempty,uuid"`
	SubjectID  string `form:"subject_id"  binding:"omitempty,uuid"`
	TutorID    string `form:"tutor_id"    binding:"omitempty,uuid"`
	Status     string `form:"status"      binding:"omitempty,oneof=draft submitted closed"`
}

// PreviewSessionsRequest 课次预览查询
type PreviewSessionsRequest struct {
	AnchorDate string `form:"anchor_date" binding:"omitempty,datetime=2006-01-02"`
}

// SlotResponse 时段展示信息
type SlotResponse struct {
	DayOfWeek   int    `json:"day_of_week"`
	DayName     string `json:"day_name"`
	StartPeriod int    `json:"start_period"`
	EndPeriod   int    `json:"end_period"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

// UserBrief 用户简要信息
type UserBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ClassResponse 辅导班信息响应
type ClassResponse struct {
	ID           string         `json:"id"`
	ClassCode    string         `json:"class_code"`
	Subject      *SubjectBrief  `json:"subject,omitempty"`
	Tutor        *UserBrief     `json:"tutor,omitempty"`
	SemesterID   string         `json:"semester_id"`
	SemesterName string         `json:"semester_name,omitempty"`
	WeekCount    int            `json:"week_count"`
	MeetingLink  string         `json:"meeting_link"`
	Capacity     int            `json:"capacity"`
	Status       string         `json:"status"`
	SubmittedAt  string         `json:"submitted_at,omitempty"`
	Slots        []SlotResponse `json:"schedule_slots"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at"`
}

// ConflictCheckResponse 冲突检测结果（仅供参考）
type ConflictCheckResponse struct {
	Valid     bool                            `json:"valid"`
	Conflicts []scheduling.ConflictDescriptor `json:"conflicts"`
}

// SubmitClassResponse 提交结果
type SubmitClassResponse struct {
	Class        ClassResponse                   `json:"class"`
	SessionCount int                             `json:"session_count"`
	AnchorDate   string                          `json:"anchor_date"`
	Warnings     []scheduling.ConflictDescriptor `json:"warnings"`
}

// CloseClassResponse 结课结果
type CloseClassResponse struct {
	Class             ClassResponse `json:"class"`
	CancelledSessions int           `json:"cancelled_sessions"`
}

// ── 无状态排课接口 ──

// ValidateScheduleRequest 课表校验请求
type ValidateScheduleRequest struct {
	ClassID  string                       `json:"class_id"` // 可选；existing 中同 ID 的班级视为被编辑班级本身
	Slots    []scheduling.TimeSlot        `json:"schedule_slots"`
	Existing []scheduling.ClassDefinition `json:"existing"`
}

// ValidateScheduleResponse 课表校验结果
type ValidateScheduleResponse struct {
	Valid          bool                            `json:"valid"`
	Conflicts      []scheduling.ConflictDescriptor `json:"conflicts"`
	CrossConflicts []scheduling.ConflictDescriptor `json:"cross_conflicts"`
}

// ExpandScheduleRequest 课次展开请求
type ExpandScheduleRequest struct {
	Class      scheduling.ClassDefinition `json:"class"`
	Weeks      int                        `json:"weeks"       binding:"required,weekcount"`
	AnchorDate string                     `json:"anchor_date" binding:"required,datetime=2006-01-02"`
}
