package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tutorhub/backend/internal/dto"
	"tutorhub/backend/internal/model"
	"tutorhub/backend/internal/repository"
	pkgerrors "tutorhub/backend/pkg/errors"
)

// ── 学期模块业务错误 ──

var (
	ErrSemesterNotFound    = errors.New("学期不存在")
	ErrSemesterDateInvalid = errors.New("学期结束日期必须晚于开始日期")
	ErrSemesterOverlap     = errors.New("学期日期与已有学期重叠")
	ErrSemesterConflict    = errors.New("学期已被他人修改，请刷新后重试")
)

// SemesterService 学期业务接口
type SemesterService interface {
	Create(ctx context.Context, req *dto.CreateSemesterRequest, callerID string) (*dto.SemesterResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SemesterResponse, error)
	GetCurrent(ctx context.Context) (*dto.SemesterResponse, error)
	List(ctx context.Context) ([]dto.SemesterResponse, error)
	// Activate 设为当前学期，同一时刻仅一个学期处于激活状态
	Activate(ctx context.Context, id string, callerID string) error
}

type semesterService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSemesterService 创建 SemesterService 实例
func NewSemesterService(repo *repository.Repository, logger *zap.Logger) SemesterService {
	return &semesterService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *semesterService) Create(ctx context.Context, req *dto.CreateSemesterRequest, callerID string) (*dto.SemesterResponse, error) {
	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, ErrSemesterDateInvalid
	}
	endDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return nil, ErrSemesterDateInvalid
	}
	if !endDate.After(startDate) {
		return nil, ErrSemesterDateInvalid
	}

	if other, err := s.repo.Semester.FindOverlapping(ctx, startDate, endDate); err == nil {
		s.logger.Warn("学期日期重叠",
			zap.String("name", req.Name),
			zap.String("overlaps", other.SemesterID),
		)
		return nil, ErrSemesterOverlap
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询重叠学期失败", zap.Error(err))
		return nil, err
	}

	semester := &model.Semester{
		Name:      strings.TrimSpace(req.Name),
		StartDate: startDate,
		EndDate:   endDate,
	}
	semester.SetCreator(callerID)

	if err := s.repo.Semester.Create(ctx, semester); err != nil {
		s.logger.Error("创建学期失败", zap.Error(err))
		return nil, err
	}

	return toSemesterResponse(semester), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *semesterService) GetByID(ctx context.Context, id string) (*dto.SemesterResponse, error) {
	semester, err := s.repo.Semester.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toSemesterResponse(semester), nil
}

// ────────────────────── GetCurrent ──────────────────────

func (s *semesterService) GetCurrent(ctx context.Context) (*dto.SemesterResponse, error) {
	semester, err := s.repo.Semester.GetActive(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询当前学期失败", zap.Error(err))
		return nil, err
	}
	return toSemesterResponse(semester), nil
}

// ────────────────────── List ──────────────────────

func (s *semesterService) List(ctx context.Context) ([]dto.SemesterResponse, error) {
	semesters, err := s.repo.Semester.List(ctx)
	if err != nil {
		s.logger.Error("列出学期失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.SemesterResponse, 0, len(semesters))
	for i := range semesters {
		result = append(result, *toSemesterResponse(&semesters[i]))
	}
	return result, nil
}

// ────────────────────── Activate ──────────────────────

func (s *semesterService) Activate(ctx context.Context, id string, callerID string) error {
	semester, err := s.repo.Semester.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", id), zap.Error(err))
		return err
	}

	if semester.IsActive {
		return nil
	}

	if err := s.repo.Semester.Activate(ctx, semester, callerID); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return ErrSemesterConflict
		}
		s.logger.Error("激活学期失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.logger.Info("学期已激活", zap.String("semester_id", id), zap.String("by", callerID))
	return nil
}

func toSemesterResponse(semester *model.Semester) *dto.SemesterResponse {
	return &dto.SemesterResponse{
		ID:        semester.SemesterID,
		Name:      semester.Name,
		StartDate: semester.StartDate.Format(dateLayout),
		EndDate:   semester.EndDate.Format(dateLayout),
		Weeks:     semester.Weeks(),
		IsActive:  semester.IsActive,
		CreatedAt: formatTime(&semester.CreatedAt),
		UpdatedAt: formatTime(&semester.UpdatedAt),
	}
}
