package model

import "time"

// Semester 学期表，对应 semesters
type Semester struct {
	SemesterID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"semester_id"`
	Name       string    `gorm:"type:varchar(100);not null"                     json:"name"`
	StartDate  time.Time `gorm:"type:date;not null"                             json:"start_date"`
	EndDate    time.Time `gorm:"type:date;not null"                             json:"end_date"`
	IsActive   bool      `gorm:"not null;default:false"                         json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (Semester) TableName() string { return "semesters" }

// Weeks 学期覆盖的周数（不足一周按一周计）
func (s *Semester) Weeks() int {
	days := int(s.EndDate.Sub(s.StartDate).Hours()/24) + 1
	if days <= 0 {
		return 0
	}
	return (days + 6) / 7
}
