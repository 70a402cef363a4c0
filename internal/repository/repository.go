package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User         UserRepository
	Semester     SemesterRepository
	Subject      SubjectRepository
	Class        ClassRepository
	Registration RegistrationRepository
	Session      SessionRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:         NewUserRepo(db),
		Semester:     NewSemesterRepo(db),
		Subject:      NewSubjectRepo(db),
		Class:        NewClassRepo(db),
		Registration: NewRegistrationRepo(db),
		Session:      NewSessionRepo(db),
	}
}
