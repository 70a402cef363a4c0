package service

import (
	"time"

	"gorm.io/datatypes"

	"tutorhub/backend/internal/dto"
	"tutorhub/backend/internal/model"
	"tutorhub/backend/internal/scheduling"
)

// ── 模型 ⇄ 排课引擎 ──

// toSchedule 将持久化时段按 position 顺序转为周课表
func toSchedule(slots []model.ClassSlot) scheduling.WeeklySchedule {
	schedule := make(scheduling.WeeklySchedule, 0, len(slots))
	for _, s := range slots {
		schedule = append(schedule, scheduling.TimeSlot{
			DayOfWeek:   s.DayOfWeek,
			StartPeriod: s.StartPeriod,
			EndPeriod:   s.EndPeriod,
		})
	}
	return schedule
}

// toClassSlots 将周课表转为持久化时段，position 即录入顺序
func toClassSlots(classID string, schedule scheduling.WeeklySchedule) []model.ClassSlot {
	slots := make([]model.ClassSlot, 0, len(schedule))
	for i, s := range schedule {
		slots = append(slots, model.ClassSlot{
			ClassID:     classID,
			Position:    i,
			DayOfWeek:   s.DayOfWeek,
			StartPeriod: s.StartPeriod,
			EndPeriod:   s.EndPeriod,
		})
	}
	return slots
}

// toClassDefinition 组装引擎所需的班级上下文
func toClassDefinition(class *model.TutoringClass) scheduling.ClassDefinition {
	def := scheduling.ClassDefinition{
		ClassID:     class.ClassID,
		ClassCode:   class.ClassCode,
		OwnerID:     class.TutorID,
		SubjectID:   class.SubjectID,
		TutorID:     class.TutorID,
		MeetingLink: class.MeetingLink,
		Schedule:    toSchedule(class.Slots),
	}
	if class.Subject != nil {
		def.SubjectName = class.Subject.Name
		def.SubjectCode = class.Subject.Code
	}
	if class.Tutor != nil {
		def.TutorName = class.Tutor.Name
	}
	if class.Semester != nil {
		def.Semester = class.Semester.Name
	}
	return def
}

func toClassDefinitions(classes []model.TutoringClass) []scheduling.ClassDefinition {
	defs := make([]scheduling.ClassDefinition, 0, len(classes))
	for i := range classes {
		defs = append(defs, toClassDefinition(&classes[i]))
	}
	return defs
}

// toSessionModel 引擎课次 → 持久化课次（session_id 由数据库生成）
func toSessionModel(s scheduling.Session, callerID string) model.Session {
	m := model.Session{
		ClassID:         s.ClassID,
		WeekNumber:      s.WeekNumber,
		SessionDate:     datatypes.Date(s.SessionDate),
		DayOfWeek:       s.DayOfWeek,
		StartPeriod:     s.StartPeriod,
		EndPeriod:       s.EndPeriod,
		DurationMinutes: s.DurationMinutes,
		MeetingLink:     s.MeetingLink,
		Status:          string(s.Status),
		Version:         1,
	}
	m.SetCreator(callerID)
	return m
}

// toEngineSession 持久化课次 → 引擎课次（用于计算起止时刻）
func toEngineSession(m *model.Session, loc *time.Location) scheduling.Session {
	d := m.Date()
	s := scheduling.Session{
		SessionID:       m.SessionID,
		ClassID:         m.ClassID,
		WeekNumber:      m.WeekNumber,
		SessionDate:     time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc),
		DurationMinutes: m.DurationMinutes,
		DayOfWeek:       m.DayOfWeek,
		StartPeriod:     m.StartPeriod,
		EndPeriod:       m.EndPeriod,
		MeetingLink:     m.MeetingLink,
		Status:          scheduling.SessionStatus(m.Status),
	}
	if m.Class != nil {
		s.ClassCode = m.Class.ClassCode
		if m.Class.Subject != nil {
			s.SubjectName = m.Class.Subject.Name
			s.SubjectCode = m.Class.Subject.Code
		}
		if m.Class.Tutor != nil {
			s.TutorName = m.Class.Tutor.Name
		}
	}
	return s
}

// ── 响应构造 ──

func toSlotResponses(schedule scheduling.WeeklySchedule, periodMinutes int) []dto.SlotResponse {
	result := make([]dto.SlotResponse, 0, len(schedule))
	for _, s := range schedule {
		start := time.Date(2000, 1, 1, scheduling.ClockHour(s.StartPeriod), 0, 0, 0, time.UTC)
		end := start.Add(time.Duration(s.DurationMinutes(periodMinutes)) * time.Minute)
		result = append(result, dto.SlotResponse{
			DayOfWeek:   s.DayOfWeek,
			DayName:     scheduling.DayName(s.DayOfWeek),
			StartPeriod: s.StartPeriod,
			EndPeriod:   s.EndPeriod,
			StartTime:   start.Format("15:04"),
			EndTime:     end.Format("15:04"),
		})
	}
	return result
}

func toSessionResponse(s scheduling.Session) dto.SessionResponse {
	return dto.SessionResponse{
		ID:              s.SessionID,
		ClassID:         s.ClassID,
		ClassCode:       s.ClassCode,
		SubjectName:     s.SubjectName,
		SubjectCode:     s.SubjectCode,
		TutorName:       s.TutorName,
		WeekNumber:      s.WeekNumber,
		Date:            s.SessionDate.Format(dateLayout),
		DayOfWeek:       s.DayOfWeek,
		DayName:         scheduling.DayName(s.DayOfWeek),
		StartPeriod:     s.StartPeriod,
		EndPeriod:       s.EndPeriod,
		StartTime:       s.StartsAt().Format("15:04"),
		EndTime:         s.EndsAt().Format("15:04"),
		DurationMinutes: s.DurationMinutes,
		MeetingLink:     s.MeetingLink,
		Status:          string(s.Status),
	}
}

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:    u.UserID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}
