package handler

import "tutorhub/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Semester     *SemesterHandler
	Subject      *SubjectHandler
	Schedule     *ScheduleHandler
	Class        *ClassHandler
	Registration *RegistrationHandler
	Session      *SessionHandler
	Export       *ExportHandler
	Calendar     *CalendarHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		Semester:     NewSemesterHandler(svc.Semester),
		Subject:      NewSubjectHandler(svc.Subject),
		Schedule:     NewScheduleHandler(svc.Schedule),
		Class:        NewClassHandler(svc.Class),
		Registration: NewRegistrationHandler(svc.Registration),
		Session:      NewSessionHandler(svc.Session),
		Export:       NewExportHandler(svc.Export),
		Calendar:     NewCalendarHandler(svc.Calendar),
	}
}
