package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tutorhub/backend/config"
	"tutorhub/backend/internal/dto"
	"tutorhub/backend/internal/model"
	"tutorhub/backend/internal/repository"
	"tutorhub/backend/internal/scheduling"
	pkgerrors "tutorhub/backend/pkg/errors"
)

// ── 课次模块业务错误 ──

var (
	ErrSessionNotFound          = errors.New("课次不存在")
	ErrSessionForbidden         = errors.New("仅授课导师或协调员可变更课次")
	ErrSessionInvalidTransition = errors.New("课次当前状态不允许该操作")
	ErrSessionNotStarted        = errors.New("课次尚未开始，不能标记完成")
	ErrSessionConflict          = errors.New("课次已被他人修改，请刷新后重试")
	ErrSessionDateRange         = errors.New("查询日期范围无效")
)

// SessionService 课次业务接口
type SessionService interface {
	ListByClass(ctx context.Context, classID string, req *dto.SessionListRequest) ([]dto.SessionResponse, error)
	// ListMine 导师查看名下班级课次，学员查看已报名班级课次，按时间升序
	ListMine(ctx context.Context, callerID, callerRole string, req *dto.SessionListRequest) ([]dto.SessionResponse, error)
	Complete(ctx context.Context, id string, callerID, callerRole string) (*dto.SessionResponse, error)
	Cancel(ctx context.Context, id string, req *dto.CancelSessionRequest, callerID, callerRole string) (*dto.SessionResponse, error)
}

type sessionService struct {
	cfg    *config.ScheduleConfig
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(cfg *config.ScheduleConfig, repo *repository.Repository, logger *zap.Logger) SessionService {
	return &sessionService{cfg: cfg, repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── 查询 ──────────────────────

func (s *sessionService) ListByClass(ctx context.Context, classID string, req *dto.SessionListRequest) ([]dto.SessionResponse, error) {
	if _, err := s.repo.Class.GetByID(ctx, classID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("查询辅导班失败", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}

	filter, err := s.buildFilter(req)
	if err != nil {
		return nil, err
	}
	filter.ClassID = classID
	return s.list(ctx, filter)
}

func (s *sessionService) ListMine(ctx context.Context, callerID, callerRole string, req *dto.SessionListRequest) ([]dto.SessionResponse, error) {
	filter, err := s.buildFilter(req)
	if err != nil {
		return nil, err
	}
	switch callerRole {
	case model.RoleTutor:
		filter.TutorID = callerID
	case model.RoleMentee:
		filter.MenteeID = callerID
	}
	return s.list(ctx, filter)
}

func (s *sessionService) list(ctx context.Context, filter repository.SessionFilter) ([]dto.SessionResponse, error) {
	sessions, err := s.repo.Session.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询课次失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		result = append(result, s.toResponse(&sessions[i]))
	}
	return result, nil
}

func (s *sessionService) buildFilter(req *dto.SessionListRequest) (repository.SessionFilter, error) {
	filter := repository.SessionFilter{Status: req.Status}
	loc := s.cfg.Location()
	if req.From != "" {
		from, err := time.ParseInLocation(dateLayout, req.From, loc)
		if err != nil {
			return filter, ErrSessionDateRange
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := time.ParseInLocation(dateLayout, req.To, loc)
		if err != nil {
			return filter, ErrSessionDateRange
		}
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, ErrSessionDateRange
	}
	return filter, nil
}

// ────────────────────── 状态迁移 ──────────────────────

func (s *sessionService) Complete(ctx context.Context, id string, callerID, callerRole string) (*dto.SessionResponse, error) {
	session, err := s.getMutable(ctx, id, callerID, callerRole, scheduling.SessionCompleted)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if toEngineSession(session, s.cfg.Location()).StartsAt().After(now) {
		return nil, ErrSessionNotStarted
	}

	session.Status = string(scheduling.SessionCompleted)
	session.CompletedAt = &now
	session.UpdatedBy = &callerID
	return s.save(ctx, session)
}

func (s *sessionService) Cancel(ctx context.Context, id string, req *dto.CancelSessionRequest, callerID, callerRole string) (*dto.SessionResponse, error) {
	session, err := s.getMutable(ctx, id, callerID, callerRole, scheduling.SessionCancelled)
	if err != nil {
		return nil, err
	}

	session.Status = string(scheduling.SessionCancelled)
	session.CancelReason = req.Reason
	session.UpdatedBy = &callerID
	return s.save(ctx, session)
}

// getMutable 加载课次并校验操作权限与状态迁移
func (s *sessionService) getMutable(ctx context.Context, id, callerID, callerRole string, to scheduling.SessionStatus) (*model.Session, error) {
	session, err := s.repo.Session.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询课次失败", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}

	if callerRole != model.RoleCoordinator {
		if session.Class == nil || session.Class.TutorID != callerID {
			return nil, ErrSessionForbidden
		}
	}
	if !scheduling.SessionStatus(session.Status).CanTransition(to) {
		return nil, ErrSessionInvalidTransition
	}
	return session, nil
}

func (s *sessionService) save(ctx context.Context, session *model.Session) (*dto.SessionResponse, error) {
	if err := s.repo.Session.UpdateStatus(ctx, session); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrSessionConflict
		}
		s.logger.Error("更新课次状态失败", zap.String("session_id", session.SessionID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("课次状态已变更",
		zap.String("session_id", session.SessionID),
		zap.String("status", session.Status),
	)
	resp := s.toResponse(session)
	return &resp, nil
}

func (s *sessionService) toResponse(m *model.Session) dto.SessionResponse {
	resp := toSessionResponse(toEngineSession(m, s.cfg.Location()))
	resp.CancelReason = m.CancelReason
	return resp
}
