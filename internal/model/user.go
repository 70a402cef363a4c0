package model

// 用户角色
const (
	RoleMentee      = "mentee"
	RoleTutor       = "tutor"
	RoleCoordinator = "coordinator"
)

// User 用户表，对应 users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string `gorm:"type:varchar(20);not null;default:'mentee'"     json:"role"`
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsValidRole 校验角色取值
func IsValidRole(role string) bool {
	switch role {
	case RoleMentee, RoleTutor, RoleCoordinator:
		return true
	}
	return false
}
