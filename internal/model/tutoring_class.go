package model

import "time"

// 班级状态：draft → submitted → closed
const (
	ClassStatusDraft     = "draft"
	ClassStatusSubmitted = "submitted"
	ClassStatusClosed    = "closed"
)

// TutoringClass 辅导班表，对应 tutoring_classes
type TutoringClass struct {
	ClassID     string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"class_id"`
	ClassCode   string     `gorm:"type:varchar(50);not null"                      json:"class_code"`
	SubjectID   string     `gorm:"type:uuid;not null"                             json:"subject_id"`
	TutorID     string     `gorm:"type:uuid;not null"                             json:"tutor_id"`
	SemesterID  string     `gorm:"type:uuid;not null"                             json:"semester_id"`
	WeekCount   int        `gorm:"not null"                                       json:"week_count"`
	MeetingLink string     `gorm:"type:varchar(500);not null;default:''"          json:"meeting_link"`
	Capacity    int        `gorm:"not null;default:0"                             json:"capacity"` // 0 表示不限
	Status      string     `gorm:"type:varchar(20);not null;default:'draft'"      json:"status"`
	SubmittedAt *time.Time `                                                      json:"submitted_at,omitempty"`
	VersionedModel

	// 关联
	Slots    []ClassSlot `gorm:"foreignKey:ClassID;references:ClassID"       json:"slots,omitempty"`
	Subject  *Subject    `gorm:"foreignKey:SubjectID;references:SubjectID"   json:"subject,omitempty"`
	Tutor    *User       `gorm:"foreignKey:TutorID;references:UserID"        json:"tutor,omitempty"`
	Semester *Semester   `gorm:"foreignKey:SemesterID;references:SemesterID" json:"semester,omitempty"`
}

// TableName 指定表名
func (TutoringClass) TableName() string { return "tutoring_classes" }

// ClassSlot 班级周课表时段，对应 class_slots
//
// Position 保留录入顺序，课次展开依赖该顺序。
type ClassSlot struct {
	ClassSlotID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"class_slot_id"`
	ClassID     string `gorm:"type:uuid;not null"                             json:"class_id"`
	Position    int    `gorm:"not null"                                       json:"position"`
	DayOfWeek   int    `gorm:"type:smallint;not null"                         json:"day_of_week"`
	StartPeriod int    `gorm:"type:smallint;not null"                         json:"start_period"`
	EndPeriod   int    `gorm:"type:smallint;not null"                         json:"end_period"`
}

// TableName 指定表名
func (ClassSlot) TableName() string { return "class_slots" }
