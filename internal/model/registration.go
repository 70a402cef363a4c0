package model

import "time"

// 报名状态
const (
	RegistrationActive    = "active"
	RegistrationWithdrawn = "withdrawn"
)

// Registration 学员报名表，对应 registrations
type Registration struct {
	RegistrationID        string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"registration_id"`
	ClassID               string     `gorm:"type:uuid;not null"                             json:"class_id"`
	MenteeID              string     `gorm:"type:uuid;not null"                             json:"mentee_id"`
	Status                string     `gorm:"type:varchar(20);not null;default:'active'"     json:"status"`
	ConflictsAcknowledged bool       `gorm:"not null;default:false"                         json:"conflicts_acknowledged"`
	WithdrawnAt           *time.Time `                                                      json:"withdrawn_at,omitempty"`
	BaseModel

	// 关联
	Class  *TutoringClass `gorm:"foreignKey:ClassID;references:ClassID" json:"class,omitempty"`
	Mentee *User          `gorm:"foreignKey:MenteeID;references:UserID" json:"mentee,omitempty"`
}

// TableName 指定表名
func (Registration) TableName() string { return "registrations" }
