package dto

import "tutorhub/backend/internal/scheduling"

// ── 报名模块 DTO ──

// RegisterClassRequest 报名请求
type RegisterClassRequest struct {
	AcknowledgeConflicts bool `json:"acknowledge_conflicts"`
}

// RegistrationListRequest 我的报名查询
type RegistrationListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=active withdrawn"`
}

// RegistrationResponse 报名信息响应
type RegistrationResponse struct {
	ID                    string                          `json:"id"`
	ClassID               string                          `json:"class_id"`
	ClassCode             string                          `json:"class_code,omitempty"`
	SubjectName           string                          `json:"subject_name,omitempty"`
	Status                string                          `json:"status"`
	ConflictsAcknowledged bool                            `json:"conflicts_acknowledged"`
	Slots                 []SlotResponse                  `json:"schedule_slots,omitempty"`
	Warnings              []scheduling.ConflictDescriptor `json:"warnings,omitempty"`
	CreatedAt             string                          `json:"created_at"`
	WithdrawnAt           string                          `json:"withdrawn_at,omitempty"`
}
