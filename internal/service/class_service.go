package service

import (
	"context"
	"errors"
	"strings"
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

// ── 辅导班模块业务错误 ──

var (
	ErrClassNotFound          = errors.New("辅导班不存在")
	ErrClassForbidden         = errors.New("只能操作自己名下的辅导班")
	ErrClassNotDraft          = errors.New("辅导班已提交，课表不可修改")
	ErrClassCodeDuplicate     = errors.New("班级编号已存在")
	ErrClassWeekCountExceeded = errors.New("授课周数超出上限")
	ErrClassNotSubmitted      = errors.New("只有进行中的辅导班可以结课")
)

const defaultCloseReason = "班级已结课"

// ClassService 辅导班业务接口（导师开班）
type ClassService interface {
	// Create 创建草稿班级，课表不合法时返回 *scheduling.ValidationError
	Create(ctx context.Context, req *dto.CreateClassRequest, callerID string) (*dto.ClassResponse, error)
	// UpdateSlots 全量替换草稿课表
	UpdateSlots(ctx context.Context, id string, req *dto.UpdateSlotsRequest, callerID string) (*dto.ClassResponse, error)
	// CheckConflicts 对照导师其他已提交班级检测冲突，结果仅供参考
	CheckConflicts(ctx context.Context, id string, callerID string) (*dto.ConflictCheckResponse, error)
	// Submit 冻结课表并生成课次
	Submit(ctx context.Context, id string, req *dto.SubmitClassRequest, callerID string) (*dto.SubmitClassResponse, error)
	GetByID(ctx context.Context, id string, callerID, callerRole string) (*dto.ClassResponse, error)
	List(ctx context.Context, req *dto.ClassListRequest, callerID, callerRole string) ([]dto.ClassResponse, int64, error)
	// PreviewSessions 展开课次但不落库
	PreviewSessions(ctx context.Context, id string, req *dto.PreviewSessionsRequest, callerID, callerRole string) ([]dto.SessionResponse, error)
	// Close 结课：班级退出冲突比对，今天及之后未上的课次一并取消
	Close(ctx context.Context, id string, req *dto.CloseClassRequest, callerID, callerRole string) (*dto.CloseClassResponse, error)
}

type classService struct {
	cfg    *config.ScheduleConfig
	repo   *repository.Repository
	engine *scheduling.Engine
	logger *zap.Logger
	now    func() time.Time
}

// NewClassService 创建 ClassService 实例
func NewClassService(
	cfg *config.ScheduleConfig,
	repo *repository.Repository,
	engine *scheduling.Engine,
	logger *zap.Logger,
) ClassService {
	return &classService{
		cfg:    cfg,
		repo:   repo,
		engine: engine,
		logger: logger,
		now:    time.Now,
	}
}

// ────────────────────── Create ──────────────────────

func (s *classService) Create(ctx context.Context, req *dto.CreateClassRequest, callerID string) (*dto.ClassResponse, error) {
	if req.WeekCount > s.cfg.MaxWeeks {
		return nil, ErrClassWeekCountExceeded
	}

	schedule := scheduling.WeeklySchedule(req.Slots)
	if res := s.engine.ValidateInternal(schedule); !res.Valid {
		return nil, res.Err()
	}

	if _, err := s.repo.Subject.GetByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		s.logger.Error("查询科目失败", zap.String("subject_id", req.SubjectID), zap.Error(err))
		return nil, err
	}
	if _, err := s.repo.Semester.GetByID(ctx, req.SemesterID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("semester_id", req.SemesterID), zap.Error(err))
		return nil, err
	}

	class := &model.TutoringClass{
		ClassCode:   strings.TrimSpace(req.ClassCode),
		SubjectID:   req.SubjectID,
		TutorID:     callerID,
		SemesterID:  req.SemesterID,
		WeekCount:   req.WeekCount,
		MeetingLink: req.MeetingLink,
		Capacity:    req.Capacity,
		Status:      model.ClassStatusDraft,
		Slots:       toClassSlots("", schedule),
	}
	class.SetCreator(callerID)

	if err := s.repo.Class.Create(ctx, class); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrClassCodeDuplicate
		}
		s.logger.Error("创建辅导班失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("辅导班草稿已创建",
		zap.String("class_id", class.ClassID),
		zap.String("tutor_id", callerID),
		zap.Int("slots", len(schedule)),
	)

	created, err := s.getClass(ctx, class.ClassID)
	if err != nil {
		return nil, err
	}
	return s.toClassResponse(created), nil
}

// ────────────────────── UpdateSlots ──────────────────────

func (s *classService) UpdateSlots(ctx context.Context, id string, req *dto.UpdateSlotsRequest, callerID string) (*dto.ClassResponse, error) {
	class, err := s.getOwnedDraft(ctx, id, callerID)
	if err != nil {
		return nil, err
	}

	schedule := scheduling.WeeklySchedule(req.Slots)
	if res := s.engine.ValidateInternal(schedule); !res.Valid {
		return nil, res.Err()
	}

	slots := toClassSlots(class.ClassID, schedule)
	if err := s.repo.Class.ReplaceSlots(ctx, class.ClassID, slots, callerID); err != nil {
		s.logger.Error("替换课表失败", zap.String("class_id", id), zap.Error(err))
		return nil, err
	}

	class.Slots = slots
	return s.toClassResponse(class), nil
}

// ────────────────────── CheckConflicts ──────────────────────

func (s *classService) CheckConflicts(ctx context.Context, id string, callerID string) (*dto.ConflictCheckResponse, error) {
	class, err := s.getClass(ctx, id)
	if err != nil {
		return nil, err
	}
	if class.TutorID != callerID {
		return nil, ErrClassForbidden
	}

	candidate := toClassDefinition(class)
	if res := s.engine.ValidateInternal(candidate.Schedule); !res.Valid {
		return &dto.ConflictCheckResponse{Valid: false, Conflicts: res.Conflicts}, nil
	}

	existing, err := s.repo.Class.ListSubmittedByTutor(ctx, class.TutorID, class.SemesterID, class.ClassID)
	if err != nil {
		s.logger.Error("查询导师已提交班级失败", zap.String("tutor_id", class.TutorID), zap.Error(err))
		return nil, err
	}

	cross := s.engine.ValidateAgainstExisting(candidate, toClassDefinitions(existing))
	return &dto.ConflictCheckResponse{Valid: len(cross) == 0, Conflicts: cross}, nil
}

// ════════════════════════════════════════════════════════════
// Submit：冻结课表并生成课次
// ════════════════════════════════════════════════════════════
//
// 流程：
//  1. 校验所有权、草稿状态、课表自身合法性
//  2. 以事务外快照做跨班级检测，按 class_conflict_policy 决定拒绝或告警
//  3. 从锚定日起展开 week_count 周课次
//  4. 事务内锁定导师后基于最新数据重新检测，通过后写入

func (s *classService) Submit(ctx context.Context, id string, req *dto.SubmitClassRequest, callerID string) (*dto.SubmitClassResponse, error) {
	class, err := s.getOwnedDraft(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	if class.WeekCount > s.cfg.MaxWeeks {
		return nil, ErrClassWeekCountExceeded
	}

	candidate := toClassDefinition(class)
	if res := s.engine.ValidateInternal(candidate.Schedule); !res.Valid {
		return nil, res.Err()
	}

	existing, err := s.repo.Class.ListSubmittedByTutor(ctx, class.TutorID, class.SemesterID, class.ClassID)
	if err != nil {
		s.logger.Error("查询导师已提交班级失败", zap.String("tutor_id", class.TutorID), zap.Error(err))
		return nil, err
	}
	warnings, err := s.applyPolicy(candidate, existing)
	if err != nil {
		return nil, err
	}

	anchor, err := s.resolveAnchor(ctx, class, req.AnchorDate)
	if err != nil {
		return nil, err
	}

	expanded, err := s.engine.ExpandToSessions(candidate, class.WeekCount, anchor)
	if err != nil {
		return nil, err
	}
	sessions := make([]model.Session, 0, len(expanded))
	for _, sess := range expanded {
		sessions = append(sessions, toSessionModel(sess, callerID))
	}

	recheck := func(latest []model.TutoringClass) error {
		w, err := s.applyPolicy(candidate, latest)
		if err != nil {
			return err
		}
		warnings = w
		return nil
	}

	class.UpdatedBy = &callerID
	if err := s.repo.Class.Submit(ctx, class, sessions, recheck); err != nil {
		var verr *scheduling.ValidationError
		switch {
		case errors.As(err, &verr):
			return nil, err
		case errors.Is(err, pkgerrors.ErrOptimisticLock):
			return nil, ErrClassNotDraft
		}
		s.logger.Error("提交辅导班失败", zap.String("class_id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("辅导班已提交",
		zap.String("class_id", class.ClassID),
		zap.Int("sessions", len(sessions)),
		zap.String("anchor", anchor.Format(dateLayout)),
		zap.Int("warnings", len(warnings)),
	)

	return &dto.SubmitClassResponse{
		Class:        *s.toClassResponse(class),
		SessionCount: len(sessions),
		AnchorDate:   anchor.Format(dateLayout),
		Warnings:     warnings,
	}, nil
}

// applyPolicy 按开班冲突策略处理跨班级冲突：block 返回错误，warn 返回告警列表
func (s *classService) applyPolicy(candidate scheduling.ClassDefinition, existing []model.TutoringClass) ([]scheduling.ConflictDescriptor, error) {
	cross := s.engine.ValidateAgainstExisting(candidate, toClassDefinitions(existing))
	if len(cross) > 0 && s.cfg.ClassConflictPolicy == config.ConflictPolicyBlock {
		return nil, &scheduling.ValidationError{Conflicts: cross}
	}
	return cross, nil
}

// resolveAnchor 显式锚定日优先，否则取 max(今天, 学期开始日)
func (s *classService) resolveAnchor(ctx context.Context, class *model.TutoringClass, explicit string) (time.Time, error) {
	loc := s.cfg.Location()
	if explicit != "" {
		anchor, err := time.ParseInLocation(dateLayout, explicit, loc)
		if err != nil {
			return time.Time{}, ErrAnchorDateInvalid
		}
		return anchor, nil
	}

	semester := class.Semester
	if semester == nil {
		var err error
		semester, err = s.repo.Semester.GetByID(ctx, class.SemesterID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return time.Time{}, ErrSemesterNotFound
			}
			return time.Time{}, err
		}
	}

	today := s.today()
	start := time.Date(semester.StartDate.Year(), semester.StartDate.Month(), semester.StartDate.Day(), 0, 0, 0, 0, loc)
	if start.After(today) {
		return start, nil
	}
	return today, nil
}

// ────────────────────── GetByID / List ──────────────────────

func (s *classService) GetByID(ctx context.Context, id string, callerID, callerRole string) (*dto.ClassResponse, error) {
	class, err := s.getVisible(ctx, id, callerID, callerRole)
	if err != nil {
		return nil, err
	}
	return s.toClassResponse(class), nil
}

func (s *classService) List(ctx context.Context, req *dto.ClassListRequest, callerID, callerRole string) ([]dto.ClassResponse, int64, error) {
	filter := repository.ClassFilter{
		SemesterID: req.SemesterID,
		SubjectID:  req.SubjectID,
		TutorID:    req.TutorID,
		Status:     req.Status,
	}
	// 草稿仅本人与协调员可见
	if callerRole != model.RoleCoordinator && filter.TutorID != callerID {
		if filter.Status != "" && filter.Status != model.ClassStatusSubmitted {
			return []dto.ClassResponse{}, 0, nil
		}
		filter.Status = model.ClassStatusSubmitted
	}

	classes, total, err := s.repo.Class.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出辅导班失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ClassResponse, 0, len(classes))
	for i := range classes {
		result = append(result, *s.toClassResponse(&classes[i]))
	}
	return result, total, nil
}

// ────────────────────── PreviewSessions ──────────────────────

func (s *classService) PreviewSessions(ctx context.Context, id string, req *dto.PreviewSessionsRequest, callerID, callerRole string) ([]dto.SessionResponse, error) {
	class, err := s.getVisible(ctx, id, callerID, callerRole)
	if err != nil {
		return nil, err
	}

	anchor, err := s.resolveAnchor(ctx, class, req.AnchorDate)
	if err != nil {
		return nil, err
	}

	seq, err := s.engine.Sessions(toClassDefinition(class), class.WeekCount, anchor)
	if err != nil {
		return nil, err
	}

	result := make([]dto.SessionResponse, 0, class.WeekCount*len(class.Slots))
	for sess := range seq {
		result = append(result, toSessionResponse(sess))
	}
	return result, nil
}

// ────────────────────── Close ──────────────────────

func (s *classService) Close(ctx context.Context, id string, req *dto.CloseClassRequest, callerID, callerRole string) (*dto.CloseClassResponse, error) {
	class, err := s.getClass(ctx, id)
	if err != nil {
		return nil, err
	}
	if class.TutorID != callerID && callerRole != model.RoleCoordinator {
		return nil, ErrClassForbidden
	}
	if class.Status != model.ClassStatusSubmitted {
		return nil, ErrClassNotSubmitted
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = defaultCloseReason
	}

	class.UpdatedBy = &callerID
	cancelled, err := s.repo.Class.Close(ctx, class, s.today(), reason)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrClassNotSubmitted
		}
		s.logger.Error("结课失败", zap.String("class_id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("辅导班已结课",
		zap.String("class_id", class.ClassID),
		zap.String("operator", callerID),
		zap.Int64("cancelled_sessions", cancelled),
	)

	return &dto.CloseClassResponse{
		Class:             *s.toClassResponse(class),
		CancelledSessions: int(cancelled),
	}, nil
}

// ── 内部辅助方法 ──

// today 排课时区下的当天零点
func (s *classService) today() time.Time {
	loc := s.cfg.Location()
	now := s.now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
}

func (s *classService) getClass(ctx context.Context, id string) (*model.TutoringClass, error) {
	class, err := s.repo.Class.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("查询辅导班失败", zap.String("class_id", id), zap.Error(err))
		return nil, err
	}
	return class, nil
}

func (s *classService) getOwnedDraft(ctx context.Context, id, callerID string) (*model.TutoringClass, error) {
	class, err := s.getClass(ctx, id)
	if err != nil {
		return nil, err
	}
	if class.TutorID != callerID {
		return nil, ErrClassForbidden
	}
	if class.Status != model.ClassStatusDraft {
		return nil, ErrClassNotDraft
	}
	return class, nil
}

// getVisible 草稿对他人表现为不存在
func (s *classService) getVisible(ctx context.Context, id, callerID, callerRole string) (*model.TutoringClass, error) {
	class, err := s.getClass(ctx, id)
	if err != nil {
		return nil, err
	}
	if class.Status == model.ClassStatusDraft && class.TutorID != callerID && callerRole != model.RoleCoordinator {
		return nil, ErrClassNotFound
	}
	return class, nil
}

func (s *classService) toClassResponse(class *model.TutoringClass) *dto.ClassResponse {
	resp := &dto.ClassResponse{
		ID:          class.ClassID,
		ClassCode:   class.ClassCode,
		SemesterID:  class.SemesterID,
		WeekCount:   class.WeekCount,
		MeetingLink: class.MeetingLink,
		Capacity:    class.Capacity,
		Status:      class.Status,
		SubmittedAt: formatTime(class.SubmittedAt),
		Slots:       toSlotResponses(toSchedule(class.Slots), s.cfg.PeriodMinutes),
		CreatedAt:   formatTime(&class.CreatedAt),
		UpdatedAt:   formatTime(&class.UpdatedAt),
	}
	if class.Subject != nil {
		resp.Subject = &dto.SubjectBrief{
			ID:   class.Subject.SubjectID,
			Code: class.Subject.Code,
			Name: class.Subject.Name,
		}
	}
	if class.Tutor != nil {
		resp.Tutor = &dto.UserBrief{ID: class.Tutor.UserID, Name: class.Tutor.Name}
	}
	if class.Semester != nil {
		resp.SemesterName = class.Semester.Name
	}
	return resp
}
