package scheduling

import (
	"fmt"
	"time"
)

// ── 节次与时间段 ──
//
// 排课以"节次"(period) 为单位，而非连续时间：
//   - 每节课时长固定（默认 50 分钟）
//   - 节次编号连续，第 N 节的开始时刻为 (N+5):00
//   - 相邻节次首尾相接，[2,3] 与 [4,5] 不共享任何节次，因此不冲突

// Policy 排课约束参数，由调用方从配置构造后传入 Engine。
type Policy struct {
	MinPeriod     int // 最小节次（含）
	MaxPeriod     int // 最大节次（含）
	MaxDay        int // 最大星期（1=周一）
	PeriodMinutes int // 每节时长（分钟）
}

// DefaultPolicy 默认约束：第 2-16 节，周一至周日，每节 50 分钟
func DefaultPolicy() Policy {
	return Policy{
		MinPeriod:     2,
		MaxPeriod:     16,
		MaxDay:        7,
		PeriodMinutes: 50,
	}
}

// normalize 用默认值补齐未设置的字段
func (p Policy) normalize() Policy {
	d := DefaultPolicy()
	if p.MinPeriod <= 0 {
		p.MinPeriod = d.MinPeriod
	}
	if p.MaxPeriod <= 0 {
		p.MaxPeriod = d.MaxPeriod
	}
	if p.MaxDay <= 0 || p.MaxDay > 7 {
		p.MaxDay = d.MaxDay
	}
	if p.PeriodMinutes <= 0 {
		p.PeriodMinutes = d.PeriodMinutes
	}
	return p
}

// TimeSlot 每周重复的上课时段
type TimeSlot struct {
	DayOfWeek   int `json:"day_of_week"` // 1=周一 … 7=周日
	StartPeriod int `json:"start_period"`
	EndPeriod   int `json:"end_period"`
}

// Overlaps 判断两个时段是否冲突：同一天且节次区间（闭区间）有交集
func (s TimeSlot) Overlaps(o TimeSlot) bool {
	return s.DayOfWeek == o.DayOfWeek &&
		s.StartPeriod <= o.EndPeriod &&
		s.EndPeriod >= o.StartPeriod
}

// DurationMinutes 时段总时长
func (s TimeSlot) DurationMinutes(periodMinutes int) int {
	return (s.EndPeriod - s.StartPeriod + 1) * periodMinutes
}

// Range 返回节次区间
func (s TimeSlot) Range() PeriodRange {
	return PeriodRange{Start: s.StartPeriod, End: s.EndPeriod}
}

// String 形如 "周一 第2-4节"
func (s TimeSlot) String() string {
	return fmt.Sprintf("%s 第%s节", DayName(s.DayOfWeek), s.Range())
}

// PeriodRange 节次闭区间
type PeriodRange struct {
	Start int
	End   int
}

func (r PeriodRange) String() string {
	if r.Start == r.End {
		return fmt.Sprintf("%d", r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// WeeklySchedule 一个班级的周课表，保留录入顺序（展开课次时依赖该顺序）
type WeeklySchedule []TimeSlot

// ── 展示辅助 ──

var dayNames = map[int]string{
	1: "周一", 2: "周二", 3: "周三", 4: "周四", 5: "周五", 6: "周六", 7: "周日",
}

// DayName 返回星期名称，越界时返回 "周?"
func DayName(day int) string {
	if name, ok := dayNames[day]; ok {
		return name
	}
	return "周?"
}

// ClockHour 节次对应的整点小时
func ClockHour(period int) int {
	return period + 5
}

// ClockTime 节次开始时刻，形如 "07:00"
func ClockTime(period int) string {
	return fmt.Sprintf("%02d:00", ClockHour(period))
}

// ISOWeekday 将 Go 的 time.Weekday (0=Sunday) 转为 ISO 8601 (1=Monday … 7=Sunday)
func ISOWeekday(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}
