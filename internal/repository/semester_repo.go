package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"tutorhub/backend/internal/model"
	pkgerrors "tutorhub/backend/pkg/errors"
)

// SemesterRepository 学期数据访问接口
// 辅导班的冲突比对以学期为边界，因此学期日期区间互不重叠，且任一时刻至多一个激活学期
type SemesterRepository interface {
	Create(ctx context.Context, semester *model.Semester) error
	GetByID(ctx context.Context, id string) (*model.Semester, error)
	// GetActive 当前激活学期，不存在时返回 gorm.ErrRecordNotFound
	GetActive(ctx context.Context) (*model.Semester, error)
	// List 按开始日期倒序
	List(ctx context.Context) ([]model.Semester, error)
	// FindOverlapping 与 [start, end] 日期区间（闭区间）相交的任一学期，不存在时返回 gorm.ErrRecordNotFound
	FindOverlapping(ctx context.Context, start, end time.Time) (*model.Semester, error)
	// Activate 在同一事务内撤下原激活学期并以乐观锁激活目标学期
	Activate(ctx context.Context, semester *model.Semester, updatedBy string) error
}

type semesterRepo struct {
	db *gorm.DB
}

// NewSemesterRepo 创建 SemesterRepository 实例
func NewSemesterRepo(db *gorm.DB) SemesterRepository {
	return &semesterRepo{db: db}
}

func (r *semesterRepo) Create(ctx context.Context, semester *model.Semester) error {
	return r.db.WithContext(ctx).Create(semester).Error
}

func (r *semesterRepo) GetByID(ctx context.Context, id string) (*model.Semester, error) {
	var semester model.Semester
	if err := r.db.WithContext(ctx).First(&semester, "semester_id = ?", id).Error; err != nil {
		return nil, err
	}
	return &semester, nil
}

func (r *semesterRepo) GetActive(ctx context.Context) (*model.Semester, error) {
	var semester model.Semester
	if err := r.db.WithContext(ctx).First(&semester, "is_active = ?", true).Error; err != nil {
		return nil, err
	}
	return &semester, nil
}

func (r *semesterRepo) List(ctx context.Context) ([]model.Semester, error) {
	var semesters []model.Semester
	err := r.db.WithContext(ctx).
		Order("start_date DESC").
		Find(&semesters).Error
	return semesters, err
}

func (r *semesterRepo) FindOverlapping(ctx context.Context, start, end time.Time) (*model.Semester, error) {
	var semester model.Semester
	err := r.db.WithContext(ctx).
		Where("start_date <= ? AND end_date >= ?", end.Format("2006-01-02"), start.Format("2006-01-02")).
		Order("start_date ASC").
		First(&semester).Error
	if err != nil {
		return nil, err
	}
	return &semester, nil
}

func (r *semesterRepo) Activate(ctx context.Context, semester *model.Semester, updatedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Semester{}).
			Where("is_active = ? AND semester_id <> ?", true, semester.SemesterID).
			Updates(map[string]interface{}{
				"is_active":  false,
				"updated_by": updatedBy,
				"version":    gorm.Expr("version + 1"),
			}).Error; err != nil {
			return err
		}

		oldVersion := semester.Version
		result := tx.Model(&model.Semester{}).
			Where("semester_id = ? AND version = ?", semester.SemesterID, oldVersion).
			Updates(map[string]interface{}{
				"is_active":  true,
				"updated_by": updatedBy,
				"version":    oldVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrOptimisticLock
		}

		semester.IsActive = true
		semester.UpdatedBy = &updatedBy
		semester.Version = oldVersion + 1
		return nil
	})
}
