package model

// Subject 科目表，对应 subjects
type Subject struct {
	SubjectID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"subject_id"`
	Code        string `gorm:"type:varchar(30);not null"                      json:"code"`
	Name        string `gorm:"type:varchar(100);not null"                     json:"name"`
	Description string `gorm:"type:text;not null;default:''"                  json:"description"`
	VersionedModel
}

// TableName 指定表名
func (Subject) TableName() string { return "subjects" }
