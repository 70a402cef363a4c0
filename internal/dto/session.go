package dto

// ── 课次模块 DTO ──

// SessionListRequest 课次列表查询（日期闭区间）
type SessionListRequest struct {
	From   string `form:"from"   binding:"omitempty,datetime=2006-01-02"`
	To     string `form:"to"     binding:"omitempty,datetime=2006-01-02"`
	Status string `form:"status" binding:"omitempty,oneof=scheduled completed cancelled"`
}

// CancelSessionRequest 取消课次请求
type CancelSessionRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// SessionResponse 课次信息响应
type SessionResponse struct {
	ID              string `json:"id,omitempty"`
	ClassID         string `json:"class_id"`
	ClassCode       string `json:"class_code,omitempty"`
	SubjectName     string `json:"subject_name,omitempty"`
	SubjectCode     string `json:"subject_code,omitempty"`
	TutorName       string `json:"tutor_name,omitempty"`
	WeekNumber      int    `json:"week_number"`
	Date            string `json:"date"`
	DayOfWeek       int    `json:"day_of_week"`
	DayName         string `json:"day_name"`
	StartPeriod     int    `json:"start_period"`
	EndPeriod       int    `json:"end_period"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	MeetingLink     string `json:"meeting_link,omitempty"`
	Status          string `json:"status"`
	CancelReason    string `json:"cancel_reason,omitempty"`
}
