package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"tutorhub/backend/config"
	"tutorhub/backend/internal/model"
	"tutorhub/backend/internal/repository"
	"tutorhub/backend/internal/scheduling"
)

const calendarProductID = "-//tutorhub//sessions//CN"

// CalendarService 课次日历订阅
//
// 导师导出名下班级课次，学员导出已报名班级课次；已取消课次保留并标记 CANCELLED，
// 便于客户端同步删除。起止时刻按节次换算，时区取 schedule.timezone。
type CalendarService interface {
	ExportMine(ctx context.Context, callerID, callerRole string) ([]byte, error)
}

type calendarService struct {
	cfg    *config.ScheduleConfig
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(cfg *config.ScheduleConfig, repo *repository.Repository, logger *zap.Logger) CalendarService {
	return &calendarService{cfg: cfg, repo: repo, logger: logger, now: time.Now}
}

func (s *calendarService) ExportMine(ctx context.Context, callerID, callerRole string) ([]byte, error) {
	filter := repository.SessionFilter{}
	switch callerRole {
	case model.RoleTutor:
		filter.TutorID = callerID
	case model.RoleMentee:
		filter.MenteeID = callerID
	default:
		// 协调员没有个人课表
		return buildCalendar(nil, s.cfg.Timezone, s.now()), nil
	}

	records, err := s.repo.Session.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询课次失败", zap.String("user_id", callerID), zap.Error(err))
		return nil, err
	}

	loc := s.cfg.Location()
	sessions := make([]scheduling.Session, 0, len(records))
	for i := range records {
		sessions = append(sessions, toEngineSession(&records[i], loc))
	}
	return buildCalendar(sessions, s.cfg.Timezone, s.now()), nil
}

// buildCalendar 生成 RFC 5545 日历，UID 取课次 ID 以保证重复导出时客户端可去重
func buildCalendar(sessions []scheduling.Session, timezone string, stamp time.Time) []byte {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetXWRCalName("辅导课表")
	if timezone != "" {
		cal.SetXWRTimezone(timezone)
	}

	for _, sess := range sessions {
		event := cal.AddEvent(sess.SessionID + "@tutorhub")
		event.SetDtStampTime(stamp)
		event.SetStartAt(sess.StartsAt())
		event.SetEndAt(sess.EndsAt())
		event.SetSummary(eventSummary(sess))
		event.SetDescription(fmt.Sprintf("第%d周 %s 第%d-%d节", sess.WeekNumber,
			scheduling.DayName(sess.DayOfWeek), sess.StartPeriod, sess.EndPeriod))
		if sess.MeetingLink != "" {
			event.SetURL(sess.MeetingLink)
			event.SetLocation(sess.MeetingLink)
		}
		if sess.Status == scheduling.SessionCancelled {
			event.SetProperty(ics.ComponentPropertyStatus, "CANCELLED")
		} else {
			event.SetProperty(ics.ComponentPropertyStatus, "CONFIRMED")
		}
	}

	return []byte(cal.Serialize())
}

func eventSummary(sess scheduling.Session) string {
	parts := make([]string, 0, 3)
	if sess.SubjectName != "" {
		parts = append(parts, sess.SubjectName)
	}
	if sess.ClassCode != "" {
		parts = append(parts, "("+sess.ClassCode+")")
	}
	if sess.TutorName != "" {
		parts = append(parts, "- "+sess.TutorName)
	}
	if len(parts) == 0 {
		return "辅导课"
	}
	return strings.Join(parts, " ")
}
