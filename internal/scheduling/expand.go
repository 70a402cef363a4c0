package scheduling

import (
	"fmt"
	"iter"
	"time"
)

// ── 课次 ──

// SessionStatus 课次状态：scheduled → completed | cancelled（终态）
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// CanTransition 判断状态迁移是否合法。终态不可再迁移。
func (s SessionStatus) CanTransition(to SessionStatus) bool {
	return s == SessionScheduled && (to == SessionCompleted || to == SessionCancelled)
}

// IsTerminal 是否为终态
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// Session 由 (班级, 时段, 周偏移) 展开得到的一次具体课
//
// SessionID 由持久化层分配，Engine 输出时为空。
type Session struct {
	SessionID       string        `json:"session_id"`
	ClassID         string        `json:"class_id,omitempty"`
	WeekNumber      int           `json:"week_number"` // 从 1 开始
	SessionDate     time.Time     `json:"session_date"`
	DurationMinutes int           `json:"duration_minutes"`
	DayOfWeek       int           `json:"day_of_week"`
	StartPeriod     int           `json:"start_period"`
	EndPeriod       int           `json:"end_period"`
	SubjectName     string        `json:"subject_name,omitempty"`
	SubjectCode     string        `json:"subject_code,omitempty"`
	ClassCode       string        `json:"class_code,omitempty"`
	TutorName       string        `json:"tutor_name,omitempty"`
	MeetingLink     string        `json:"meeting_link,omitempty"`
	Status          SessionStatus `json:"status"`
}

// StartsAt 课次开始时刻（按节次换算整点）
func (s Session) StartsAt() time.Time {
	d := s.SessionDate
	return time.Date(d.Year(), d.Month(), d.Day(), ClockHour(s.StartPeriod), 0, 0, 0, d.Location())
}

// EndsAt 课次结束时刻
func (s Session) EndsAt() time.Time {
	return s.StartsAt().Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// ════════════════════════════════════════════════════════════
// ExpandToSessions：周课表展开为具体课次
// ════════════════════════════════════════════════════════════

// ExpandToSessions 将课表按 weekCount 周展开为课次列表。
//
// 第 0 周每个时段的日期为 anchor 当天或之后首个对应星期（anchor 当天即匹配时偏移为 0），
// 之后每周顺延 7 天。输出按周分组、周内保持课表录入顺序，不按日期全局排序。
// 周数上限（1-16）由调用方控制，本函数只拒绝非正数。
func (e *Engine) ExpandToSessions(def ClassDefinition, weekCount int, anchor time.Time) ([]Session, error) {
	seq, err := e.Sessions(def, weekCount, anchor)
	if err != nil {
		return nil, err
	}
	sessions := make([]Session, 0, weekCount*len(def.Schedule))
	for s := range seq {
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// Sessions 惰性版本的 ExpandToSessions，输入非法时返回 *ValidationError。
func (e *Engine) Sessions(def ClassDefinition, weekCount int, anchor time.Time) (iter.Seq[Session], error) {
	if weekCount < 1 {
		return nil, &ValidationError{Conflicts: []ConflictDescriptor{{
			Kind:    KindInvalidWeekCount,
			Message: fmt.Sprintf("周数必须为正整数，实际为 %d", weekCount),
		}}}
	}
	if res := e.ValidateInternal(def.Schedule); !res.Valid {
		return nil, res.Err()
	}

	base := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, anchor.Location())
	anchorDay := ISOWeekday(anchor.Weekday())
	periodMinutes := e.policy.PeriodMinutes

	return func(yield func(Session) bool) {
		for week := 0; week < weekCount; week++ {
			for _, slot := range def.Schedule {
				offset := (slot.DayOfWeek - anchorDay + 7) % 7
				s := Session{
					ClassID:         def.ClassID,
					WeekNumber:      week + 1,
					SessionDate:     base.AddDate(0, 0, offset+7*week),
					DurationMinutes: slot.DurationMinutes(periodMinutes),
					DayOfWeek:       slot.DayOfWeek,
					StartPeriod:     slot.StartPeriod,
					EndPeriod:       slot.EndPeriod,
					SubjectName:     def.SubjectName,
					SubjectCode:     def.SubjectCode,
					ClassCode:       def.ClassCode,
					TutorName:       def.TutorName,
					MeetingLink:     def.MeetingLink,
					Status:          SessionScheduled,
				}
				if !yield(s) {
					return
				}
			}
		}
	}, nil
}
