package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tutorhub/backend/config"
	"tutorhub/backend/internal/dto"
	"tutorhub/backend/internal/scheduling"
)

var (
	ErrWeeksExceeded     = errors.New("展开周数超出上限")
	ErrAnchorDateInvalid = errors.New("锚定日期格式错误，应为 YYYY-MM-DD")
)

// ScheduleService 无状态排课接口：直接暴露冲突检测引擎，不读写数据库
type ScheduleService interface {
	// Validate 校验课表自身，并在提供 existing 时给出跨班级冲突（仅供参考）
	Validate(ctx context.Context, req *dto.ValidateScheduleRequest) *dto.ValidateScheduleResponse
	// Expand 预览课次展开结果
	Expand(ctx context.Context, req *dto.ExpandScheduleRequest) ([]dto.SessionResponse, error)
}

type scheduleService struct {
	cfg    *config.ScheduleConfig
	engine *scheduling.Engine
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(cfg *config.ScheduleConfig, engine *scheduling.Engine) ScheduleService {
	return &scheduleService{cfg: cfg, engine: engine}
}

func (s *scheduleService) Validate(_ context.Context, req *dto.ValidateScheduleRequest) *dto.ValidateScheduleResponse {
	schedule := scheduling.WeeklySchedule(req.Slots)
	internal := s.engine.ValidateInternal(schedule)

	cross := make([]scheduling.ConflictDescriptor, 0)
	if internal.Valid && len(req.Existing) > 0 {
		candidate := scheduling.ClassDefinition{ClassID: req.ClassID, Schedule: schedule}
		cross = s.engine.ValidateAgainstExisting(candidate, req.Existing)
	}

	return &dto.ValidateScheduleResponse{
		Valid:          internal.Valid,
		Conflicts:      internal.Conflicts,
		CrossConflicts: cross,
	}
}

func (s *scheduleService) Expand(_ context.Context, req *dto.ExpandScheduleRequest) ([]dto.SessionResponse, error) {
	if req.Weeks > s.cfg.MaxWeeks {
		return nil, fmt.Errorf("%w: %d > %d", ErrWeeksExceeded, req.Weeks, s.cfg.MaxWeeks)
	}
	anchor, err := time.ParseInLocation(dateLayout, req.AnchorDate, s.cfg.Location())
	if err != nil {
		return nil, ErrAnchorDateInvalid
	}

	sessions, err := s.engine.ExpandToSessions(req.Class, req.Weeks, anchor)
	if err != nil {
		return nil, err
	}

	result := make([]dto.SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, toSessionResponse(sess))
	}
	return result, nil
}
