package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tutorhub/backend/config"
	"tutorhub/backend/internal/dto"
	"tutorhub/backend/internal/model"
	"tutorhub/backend/internal/repository"
	"tutorhub/backend/internal/scheduling"
	pkgerrors "tutorhub/backend/pkg/errors"
)

// ── 报名模块业务错误 ──

var (
	ErrClassNotOpen             = errors.New("辅导班尚未开放报名")
	ErrAlreadyRegistered        = errors.New("已报名该辅导班")
	ErrClassFull                = errors.New("辅导班名额已满")
	ErrConflictsNotAcknowledged = errors.New("存在时间冲突，需确认后才能报名")
	ErrRegistrationNotFound     = errors.New("报名记录不存在")
	ErrRegistrationForbidden    = errors.New("只能操作自己的报名")
	ErrRegistrationNotActive    = errors.New("报名已退出")
)

// RegistrationService 学员报名业务接口
type RegistrationService interface {
	// Register 报名；冲突处理取决于 registration_conflict_policy
	Register(ctx context.Context, classID string, req *dto.RegisterClassRequest, menteeID string) (*dto.RegistrationResponse, error)
	Withdraw(ctx context.Context, id string, menteeID string) error
	ListMine(ctx context.Context, menteeID string, req *dto.RegistrationListRequest) ([]dto.RegistrationResponse, error)
	// CheckConflicts 预检报名冲突，结果仅供参考
	CheckConflicts(ctx context.Context, classID string, menteeID string) (*dto.ConflictCheckResponse, error)
}

type registrationService struct {
	cfg    *config.ScheduleConfig
	repo   *repository.Repository
	engine *scheduling.Engine
	logger *zap.Logger
}

// NewRegistrationService 创建 RegistrationService 实例
func NewRegistrationService(
	cfg *config.ScheduleConfig,
	repo *repository.Repository,
	engine *scheduling.Engine,
	logger *zap.Logger,
) RegistrationService {
	return &registrationService{
		cfg:    cfg,
		repo:   repo,
		engine: engine,
		logger: logger,
	}
}

// ════════════════════════════════════════════════════════════
// Register：学员报名
// ════════════════════════════════════════════════════════════
//
// 重复报名、时间冲突与名额均在仓储事务内（学员与班级行锁下）判定，
// 避免并发报名绕过检查。

func (s *registrationService) Register(ctx context.Context, classID string, req *dto.RegisterClassRequest, menteeID string) (*dto.RegistrationResponse, error) {
	class, err := s.getOpenClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	candidate := toClassDefinition(class)

	reg := &model.Registration{
		ClassID:  class.ClassID,
		MenteeID: menteeID,
		Status:   model.RegistrationActive,
	}
	reg.SetCreator(menteeID)

	var warnings []scheduling.ConflictDescriptor
	recheck := func(existing []model.TutoringClass, activeCount int64) error {
		for _, c := range existing {
			if c.ClassID == class.ClassID {
				return ErrAlreadyRegistered
			}
		}

		cross := s.engine.ValidateAgainstExisting(candidate, toClassDefinitions(existing))
		if len(cross) > 0 {
			verr := &scheduling.ValidationError{Conflicts: cross}
			if s.cfg.RegistrationConflictPolicy == config.ConflictPolicyBlock {
				return verr
			}
			if !req.AcknowledgeConflicts {
				return fmt.Errorf("%w: %w", ErrConflictsNotAcknowledged, verr)
			}
		}

		if class.Capacity > 0 && activeCount >= int64(class.Capacity) {
			return ErrClassFull
		}
		warnings = cross
		reg.ConflictsAcknowledged = len(cross) > 0
		return nil
	}

	if err := s.repo.Registration.Create(ctx, reg, recheck); err != nil {
		var verr *scheduling.ValidationError
		switch {
		case errors.Is(err, ErrAlreadyRegistered),
			errors.Is(err, ErrClassFull),
			errors.As(err, &verr):
			return nil, err
		case pkgerrors.IsUniqueViolation(err):
			return nil, ErrAlreadyRegistered
		}
		s.logger.Error("创建报名失败", zap.String("class_id", classID), zap.String("mentee_id", menteeID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("学员报名成功",
		zap.String("registration_id", reg.RegistrationID),
		zap.String("class_id", class.ClassID),
		zap.Int("warnings", len(warnings)),
	)

	resp := s.toRegistrationResponse(reg, class)
	resp.Warnings = warnings
	return resp, nil
}

// ────────────────────── Withdraw ──────────────────────

func (s *registrationService) Withdraw(ctx context.Context, id string, menteeID string) error {
	reg, err := s.repo.Registration.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRegistrationNotFound
		}
		s.logger.Error("查询报名失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if reg.MenteeID != menteeID {
		return ErrRegistrationForbidden
	}
	if reg.Status != model.RegistrationActive {
		return ErrRegistrationNotActive
	}

	if err := s.repo.Registration.Withdraw(ctx, id, menteeID); err != nil {
		s.logger.Error("退出报名失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── ListMine ──────────────────────

func (s *registrationService) ListMine(ctx context.Context, menteeID string, req *dto.RegistrationListRequest) ([]dto.RegistrationResponse, error) {
	regs, err := s.repo.Registration.ListByMentee(ctx, menteeID, req.Status)
	if err != nil {
		s.logger.Error("查询报名列表失败", zap.String("mentee_id", menteeID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.RegistrationResponse, 0, len(regs))
	for i := range regs {
		result = append(result, *s.toRegistrationResponse(&regs[i], regs[i].Class))
	}
	return result, nil
}

// ────────────────────── CheckConflicts ──────────────────────

func (s *registrationService) CheckConflicts(ctx context.Context, classID string, menteeID string) (*dto.ConflictCheckResponse, error) {
	class, err := s.getOpenClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Registration.ListActiveClassesByMentee(ctx, menteeID, class.SemesterID)
	if err != nil {
		s.logger.Error("查询学员已报名班级失败", zap.String("mentee_id", menteeID), zap.Error(err))
		return nil, err
	}

	cross := s.engine.ValidateAgainstExisting(toClassDefinition(class), toClassDefinitions(existing))
	return &dto.ConflictCheckResponse{Valid: len(cross) == 0, Conflicts: cross}, nil
}

// ── 内部辅助方法 ──

func (s *registrationService) getOpenClass(ctx context.Context, classID string) (*model.TutoringClass, error) {
	class, err := s.repo.Class.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("查询辅导班失败", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}
	if class.Status != model.ClassStatusSubmitted {
		return nil, ErrClassNotOpen
	}
	return class, nil
}

func (s *registrationService) toRegistrationResponse(reg *model.Registration, class *model.TutoringClass) *dto.RegistrationResponse {
	resp := &dto.RegistrationResponse{
		ID:                    reg.RegistrationID,
		ClassID:               reg.ClassID,
		Status:                reg.Status,
		ConflictsAcknowledged: reg.ConflictsAcknowledged,
		CreatedAt:             formatTime(&reg.CreatedAt),
		WithdrawnAt:           formatTime(reg.WithdrawnAt),
	}
	if class != nil {
		resp.ClassCode = class.ClassCode
		resp.Slots = toSlotResponses(toSchedule(class.Slots), s.cfg.PeriodMinutes)
		if class.Subject != nil {
			resp.SubjectName = class.Subject.Name
		}
	}
	return resp
}
