package service

import (
	"context"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"tutorhub/backend/internal/model"
	"tutorhub/backend/internal/scheduling"
)

func setupTestCalendarService() (*calendarService, *mockRepos) {
	repo, mocks := newMockRepository()
	seedCatalog(mocks)
	svc := NewCalendarService(testScheduleConfig(), repo, zap.NewNop()).(*calendarService)
	svc.now = func() time.Time { return beforeTerm }
	return svc, mocks
}

func TestCalendarService_ExportMine_Tutor(t *testing.T) {
	svc, mocks := setupTestCalendarService()
	slot := scheduling.TimeSlot{DayOfWeek: 1, StartPeriod: 2, EndPeriod: 4}
	a := seedClass(mocks, "cls-a", "MATH101-01", "tutor-1", model.ClassStatusSubmitted, slot)
	seedSession(mocks, a, 1, "2026-03-02", slot)
	cancelled := seedSession(mocks, a, 2, "2026-03-09", slot)
	cancelled.Status = string(scheduling.SessionCancelled)

	data, err := svc.ExportMine(context.Background(), "tutor-1", model.RoleTutor)
	if err != nil {
		t.Fatalf("ExportMine 应成功: %v", err)
	}

	cal, err := ics.ParseCalendar(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("生成的日历无法解析: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("期望 2 个事件，实际=%d", len(events))
	}

	first := events[0]
	start, err := first.GetStartAt()
	if err != nil {
		t.Fatalf("读取 DTSTART 失败: %v", err)
	}
	if !start.Equal(time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)) {
		t.Errorf("第2节应于 07:00 开始，实际=%v", start)
	}
	end, _ := first.GetEndAt()
	if end.Sub(start) != 150*time.Minute {
		t.Errorf("时长应为 150 分钟，实际=%v", end.Sub(start))
	}
	if summary := first.GetProperty(ics.ComponentPropertySummary); summary == nil || !strings.Contains(summary.Value, "高等数学") {
		t.Errorf("摘要应包含科目名称: %+v", summary)
	}
	if status := events[1].GetProperty(ics.ComponentPropertyStatus); status == nil || status.Value != "CANCELLED" {
		t.Errorf("已取消课次应标记 CANCELLED: %+v", status)
	}
}

func TestCalendarService_ExportMine_MenteeOnlyRegistered(t *testing.T) {
	svc, mocks := setupTestCalendarService()
	slot := scheduling.TimeSlot{DayOfWeek: 1, StartPeriod: 2, EndPeriod: 4}
	a := seedClass(mocks, "cls-a", "MATH101-01", "tutor-1", model.ClassStatusSubmitted, slot)
	b := seedClass(mocks, "cls-b", "MATH101-02", "tutor-2", model.ClassStatusSubmitted, slot)
	seedSession(mocks, a, 1, "2026-03-02", slot)
	seedSession(mocks, b, 1, "2026-03-02", slot)
	seedRegistration(t, mocks, "cls-b", "mentee-1")

	data, err := svc.ExportMine(context.Background(), "mentee-1", model.RoleMentee)
	if err != nil {
		t.Fatalf("ExportMine 应成功: %v", err)
	}
	cal, err := ics.ParseCalendar(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("生成的日历无法解析: %v", err)
	}
	if len(cal.Events()) != 1 {
		t.Errorf("学员只应导出已报名班级课次，实际=%d", len(cal.Events()))
	}
}
