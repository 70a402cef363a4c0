package model

import (
	"time"

	"gorm.io/datatypes"
)

// Session 课次表，对应 sessions
//
// 状态取值与迁移规则见 scheduling.SessionStatus。
type Session struct {
	SessionID       string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	ClassID         string         `gorm:"type:uuid;not null"                             json:"class_id"`
	WeekNumber      int            `gorm:"not null"                                       json:"week_number"`
	SessionDate     datatypes.Date `gorm:"not null"                                       json:"session_date"`
	DayOfWeek       int            `gorm:"type:smallint;not null"                         json:"day_of_week"`
	StartPeriod     int            `gorm:"type:smallint;not null"                         json:"start_period"`
	EndPeriod       int            `gorm:"type:smallint;not null"                         json:"end_period"`
	DurationMinutes int            `gorm:"not null"                                       json:"duration_minutes"`
	MeetingLink     string         `gorm:"type:varchar(500);not null;default:''"          json:"meeting_link"`
	Status          string         `gorm:"type:varchar(20);not null;default:'scheduled'"  json:"status"`
	CancelReason    string         `gorm:"type:varchar(500);not null;default:''"          json:"cancel_reason,omitempty"`
	CompletedAt     *time.Time     `                                                      json:"completed_at,omitempty"`
	Version         int            `gorm:"not null;default:1"                             json:"version"`
	BaseModel

	// 关联
	Class *TutoringClass `gorm:"foreignKey:ClassID;references:ClassID" json:"class,omitempty"`
}

// TableName 指定表名
func (Session) TableName() string { return "sessions" }

// Date 以 time.Time 形式返回课次日期
func (s *Session) Date() time.Time {
	return time.Time(s.SessionDate)
}
