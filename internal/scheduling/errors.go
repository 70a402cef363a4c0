package scheduling

import (
	"errors"
	"strings"
)

// ── 冲突分类 ──

// ConflictKind 冲突/校验失败类型
type ConflictKind string

const (
	KindInvalidRange     ConflictKind = "invalid_range"      // 结束节次早于开始节次
	KindOutOfRange       ConflictKind = "out_of_range"       // 星期或节次超出允许范围
	KindSelfConflict     ConflictKind = "self_conflict"      // 同一课表内两个时段重叠
	KindCrossConflict    ConflictKind = "cross_conflict"     // 与已有班级的时段重叠
	KindEmptySchedule    ConflictKind = "empty_schedule"     // 课表为空
	KindInvalidWeekCount ConflictKind = "invalid_week_count" // 展开周数非正
)

var (
	ErrInvalidRange     = errors.New("时段结束节次早于开始节次")
	ErrOutOfRange       = errors.New("时段超出允许的星期或节次范围")
	ErrSelfConflict     = errors.New("课表内时段相互冲突")
	ErrCrossConflict    = errors.New("课表与已有班级时间冲突")
	ErrEmptySchedule    = errors.New("课表至少需要一个时段")
	ErrInvalidWeekCount = errors.New("周数必须为正整数")
)

var kindErrors = map[ConflictKind]error{
	KindInvalidRange:     ErrInvalidRange,
	KindOutOfRange:       ErrOutOfRange,
	KindSelfConflict:     ErrSelfConflict,
	KindCrossConflict:    ErrCrossConflict,
	KindEmptySchedule:    ErrEmptySchedule,
	KindInvalidWeekCount: ErrInvalidWeekCount,
}

// Err 返回该类型对应的哨兵错误
func (k ConflictKind) Err() error {
	return kindErrors[k]
}

// ConflictDescriptor 单条冲突描述，字段足以直接渲染，调用方无需再查询
type ConflictDescriptor struct {
	Kind    ConflictKind `json:"kind"`
	Day     int          `json:"day,omitempty"`
	DayName string       `json:"day_name,omitempty"`

	NewSlot  *TimeSlot `json:"new_slot,omitempty"`
	NewRange string    `json:"new_range,omitempty"`

	// 自冲突时为同课表内另一时段；跨班级冲突时为已有班级的时段
	ConflictingSlot        *TimeSlot `json:"conflicting_slot,omitempty"`
	ConflictingRange       string    `json:"conflicting_range,omitempty"`
	ConflictingClassID     string    `json:"conflicting_class_id,omitempty"`
	ConflictingClassCode   string    `json:"conflicting_class_code,omitempty"`
	ConflictingSubject     string    `json:"conflicting_subject,omitempty"`
	ConflictingSubjectCode string    `json:"conflicting_subject_code,omitempty"`
	ConflictingTutor       string    `json:"conflicting_tutor,omitempty"`

	Message string `json:"message"`
}

// ValidationResult 课表校验结果
type ValidationResult struct {
	Valid     bool                 `json:"valid"`
	Conflicts []ConflictDescriptor `json:"conflicts"`
}

// Err 校验通过返回 nil，否则返回 *ValidationError
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Conflicts: r.Conflicts}
}

// ValidationError 结构化校验错误，支持 errors.Is 匹配任一冲突类型的哨兵错误
type ValidationError struct {
	Conflicts []ConflictDescriptor
}

func (e *ValidationError) Error() string {
	if len(e.Conflicts) == 0 {
		return "课表校验失败"
	}
	msgs := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		msgs = append(msgs, c.Message)
	}
	return "课表校验失败: " + strings.Join(msgs, "; ")
}

// Is 任一冲突的类型与 target 对应即视为匹配
func (e *ValidationError) Is(target error) bool {
	for _, c := range e.Conflicts {
		if c.Kind.Err() == target {
			return true
		}
	}
	return false
}

// HasKind 判断冲突列表中是否包含指定类型
func HasKind(conflicts []ConflictDescriptor, kind ConflictKind) bool {
	for _, c := range conflicts {
		if c.Kind == kind {
			return true
		}
	}
	return false
}
