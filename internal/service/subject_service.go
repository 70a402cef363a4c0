package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tutorhub/backend/internal/dto"
	"tutorhub/backend/internal/model"
	"tutorhub/backend/internal/repository"
	pkgerrors "tutorhub/backend/pkg/errors"
)

var (
	ErrSubjectNotFound      = errors.New("科目不存在")
	ErrSubjectCodeDuplicate = errors.New("科目代码已存在")
	ErrSubjectInUse         = errors.New("科目下仍有辅导班，无法删除")
	ErrSubjectConflict      = errors.New("科目已被他人修改，请刷新后重试")
)

// SubjectService 科目业务接口
type SubjectService interface {
	Create(ctx context.Context, req *dto.CreateSubjectRequest, callerID string) (*dto.SubjectResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SubjectResponse, error)
	List(ctx context.Context, req *dto.SubjectListRequest) ([]dto.SubjectResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateSubjectRequest, callerID string) (*dto.SubjectResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type subjectService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSubjectService 创建 SubjectService 实例
func NewSubjectService(repo *repository.Repository, logger *zap.Logger) SubjectService {
	return &subjectService{repo: repo, logger: logger}
}

func (s *subjectService) Create(ctx context.Context, req *dto.CreateSubjectRequest, callerID string) (*dto.SubjectResponse, error) {
	subject := &model.Subject{
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	subject.SetCreator(callerID)

	if err := s.repo.Subject.Create(ctx, subject); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrSubjectCodeDuplicate
		}
		s.logger.Error("创建科目失败", zap.Error(err))
		return nil, err
	}
	return toSubjectResponse(subject), nil
}

func (s *subjectService) GetByID(ctx context.Context, id string) (*dto.SubjectResponse, error) {
	subject, err := s.getSubject(ctx, id)
	if err != nil {
		return nil, err
	}
	return toSubjectResponse(subject), nil
}

func (s *subjectService) List(ctx context.Context, req *dto.SubjectListRequest) ([]dto.SubjectResponse, int64, error) {
	subjects, total, err := s.repo.Subject.List(ctx, strings.TrimSpace(req.Keyword), req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出科目失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.SubjectResponse, 0, len(subjects))
	for i := range subjects {
		result = append(result, *toSubjectResponse(&subjects[i]))
	}
	return result, total, nil
}

func (s *subjectService) Update(ctx context.Context, id string, req *dto.UpdateSubjectRequest, callerID string) (*dto.SubjectResponse, error) {
	subject, err := s.getSubject(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		subject.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		subject.Description = *req.Description
	}
	subject.UpdatedBy = &callerID

	if err := s.repo.Subject.Update(ctx, subject); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrSubjectConflict
		}
		s.logger.Error("更新科目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toSubjectResponse(subject), nil
}

func (s *subjectService) Delete(ctx context.Context, id string, callerID string) error {
	if _, err := s.getSubject(ctx, id); err != nil {
		return err
	}

	// 软删除不会触发外键约束，需显式检查引用
	_, inUse, err := s.repo.Class.List(ctx, repository.ClassFilter{SubjectID: id}, 0, 1)
	if err != nil {
		s.logger.Error("统计科目引用失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if inUse > 0 {
		return ErrSubjectInUse
	}

	if err := s.repo.Subject.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除科目失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *subjectService) getSubject(ctx context.Context, id string) (*model.Subject, error) {
	subject, err := s.repo.Subject.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		s.logger.Error("查询科目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return subject, nil
}

func toSubjectResponse(subject *model.Subject) *dto.SubjectResponse {
	return &dto.SubjectResponse{
		ID:          subject.SubjectID,
		Code:        subject.Code,
		Name:        subject.Name,
		Description: subject.Description,
		CreatedAt:   formatTime(&subject.CreatedAt),
		UpdatedAt:   formatTime(&subject.UpdatedAt),
	}
}
