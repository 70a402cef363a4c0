package scheduling

import "fmt"

// ClassDefinition 课表归属上下文
//
// OwnerID 为导师（开班冲突）或学员（报名冲突）；其余字段仅用于冲突描述与课次元数据。
type ClassDefinition struct {
	ClassID     string         `json:"class_id"`
	ClassCode   string         `json:"class_code,omitempty"`
	OwnerID     string         `json:"owner_id,omitempty"`
	SubjectID   string         `json:"subject_id,omitempty"`
	SubjectName string         `json:"subject_name,omitempty"`
	SubjectCode string         `json:"subject_code,omitempty"`
	TutorID     string         `json:"tutor_id,omitempty"`
	TutorName   string         `json:"tutor_name,omitempty"`
	Semester    string         `json:"semester,omitempty"`
	MeetingLink string         `json:"meeting_link,omitempty"`
	Schedule    WeeklySchedule `json:"schedule_slots"`
}

// Engine 周课表冲突检测与课次展开
//
// Engine 只持有不可变的 Policy，无 I/O、无共享可变状态，可在多个请求间并发复用。
// 注意：跨班级冲突检测基于调用方提供的快照，并发提交之间的竞态需由写入路径关闭。
type Engine struct {
	policy Policy
}

// NewEngine 创建 Engine，未设置的约束取默认值
func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy.normalize()}
}

// Policy 返回当前约束
func (e *Engine) Policy() Policy {
	return e.policy
}

// ════════════════════════════════════════════════════════════
// ValidateInternal：课表自身校验
// ════════════════════════════════════════════════════════════

// ValidateInternal 校验单个课表：节次区间合法、不越界、两两不重叠。
// 任一问题即整体拒绝（valid=false），不做部分接受。
func (e *Engine) ValidateInternal(schedule WeeklySchedule) ValidationResult {
	conflicts := make([]ConflictDescriptor, 0)

	if len(schedule) == 0 {
		conflicts = append(conflicts, ConflictDescriptor{
			Kind:    KindEmptySchedule,
			Message: "课表至少需要一个时段",
		})
	}

	// 1. 单时段校验
	for i := range schedule {
		slot := schedule[i]
		if slot.EndPeriod < slot.StartPeriod {
			conflicts = append(conflicts, ConflictDescriptor{
				Kind:     KindInvalidRange,
				Day:      slot.DayOfWeek,
				DayName:  DayName(slot.DayOfWeek),
				NewSlot:  &slot,
				NewRange: fmt.Sprintf("%d-%d", slot.StartPeriod, slot.EndPeriod),
				Message: fmt.Sprintf("%s 结束节次(%d)早于开始节次(%d)",
					DayName(slot.DayOfWeek), slot.EndPeriod, slot.StartPeriod),
			})
		}
		if msg, ok := e.outOfRange(slot); !ok {
			conflicts = append(conflicts, ConflictDescriptor{
				Kind:     KindOutOfRange,
				Day:      slot.DayOfWeek,
				DayName:  DayName(slot.DayOfWeek),
				NewSlot:  &slot,
				NewRange: fmt.Sprintf("%d-%d", slot.StartPeriod, slot.EndPeriod),
				Message:  msg,
			})
		}
	}

	// 2. 两两重叠校验（无序对）
	for i := 0; i < len(schedule); i++ {
		for j := i + 1; j < len(schedule); j++ {
			a, b := schedule[i], schedule[j]
			if !a.Overlaps(b) {
				continue
			}
			conflicts = append(conflicts, ConflictDescriptor{
				Kind:             KindSelfConflict,
				Day:              a.DayOfWeek,
				DayName:          DayName(a.DayOfWeek),
				NewSlot:          &a,
				NewRange:         a.Range().String(),
				ConflictingSlot:  &b,
				ConflictingRange: b.Range().String(),
				Message:          fmt.Sprintf("%s 与 %s 时间重叠", a, b),
			})
		}
	}

	return ValidationResult{
		Valid:     len(conflicts) == 0,
		Conflicts: conflicts,
	}
}

// outOfRange 校验星期与节次是否在 Policy 范围内
func (e *Engine) outOfRange(slot TimeSlot) (string, bool) {
	p := e.policy
	if slot.DayOfWeek < 1 || slot.DayOfWeek > p.MaxDay {
		return fmt.Sprintf("星期 %d 超出范围 1-%d", slot.DayOfWeek, p.MaxDay), false
	}
	if slot.StartPeriod < p.MinPeriod || slot.StartPeriod > p.MaxPeriod ||
		slot.EndPeriod < p.MinPeriod || slot.EndPeriod > p.MaxPeriod {
		return fmt.Sprintf("%s 第%d-%d节 超出节次范围 %d-%d",
			DayName(slot.DayOfWeek), slot.StartPeriod, slot.EndPeriod, p.MinPeriod, p.MaxPeriod), false
	}
	return "", true
}

// ════════════════════════════════════════════════════════════
// ValidateAgainstExisting：跨班级冲突检测
// ════════════════════════════════════════════════════════════

// ValidateAgainstExisting 检测候选课表与同一导师/学员其他班级的时间冲突。
//
// 结果仅供参考：是否阻止提交由调用方决定。
// 输出顺序严格为 existing → existing.Schedule → candidate 的遍历顺序，不做排序。
// existing 中与候选班级 ClassID 相同的条目视为其旧版本，直接跳过；候选 ClassID 为空时不跳过。
func (e *Engine) ValidateAgainstExisting(candidate ClassDefinition, existing []ClassDefinition) []ConflictDescriptor {
	conflicts := make([]ConflictDescriptor, 0)
	for _, cls := range existing {
		if candidate.ClassID != "" && cls.ClassID == candidate.ClassID {
			continue
		}
		for _, existingSlot := range cls.Schedule {
			for _, newSlot := range candidate.Schedule {
				if !newSlot.Overlaps(existingSlot) {
					continue
				}
				ns, es := newSlot, existingSlot
				conflicts = append(conflicts, ConflictDescriptor{
					Kind:                   KindCrossConflict,
					Day:                    ns.DayOfWeek,
					DayName:                DayName(ns.DayOfWeek),
					NewSlot:                &ns,
					NewRange:               ns.Range().String(),
					ConflictingSlot:        &es,
					ConflictingRange:       es.Range().String(),
					ConflictingClassID:     cls.ClassID,
					ConflictingClassCode:   cls.ClassCode,
					ConflictingSubject:     cls.SubjectName,
					ConflictingSubjectCode: cls.SubjectCode,
					ConflictingTutor:       cls.TutorName,
					Message:                crossConflictMessage(ns, es, cls),
				})
			}
		}
	}
	return conflicts
}

func crossConflictMessage(newSlot, existingSlot TimeSlot, cls ClassDefinition) string {
	subject := cls.SubjectName
	if cls.SubjectCode != "" {
		subject = fmt.Sprintf("%s(%s)", cls.SubjectName, cls.SubjectCode)
	}
	if subject == "" {
		subject = cls.ClassID
	}
	msg := fmt.Sprintf("%s 与班级 %s 的 %s 冲突", newSlot, subject, existingSlot)
	if cls.TutorName != "" {
		msg += fmt.Sprintf("（导师: %s）", cls.TutorName)
	}
	return msg
}
