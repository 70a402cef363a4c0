package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"tutorhub/backend/internal/model"
	"tutorhub/backend/internal/scheduling"
	pkgerrors "tutorhub/backend/pkg/errors"
)

// ClassFilter 辅导班列表过滤条件（空字符串表示不过滤）
type ClassFilter struct {
	SemesterID string
	SubjectID  string
	TutorID    string
	Status     string
}

// ClassRecheckFunc 在提交事务内、持有导师行锁时，基于最新的已提交班级重新校验冲突
type ClassRecheckFunc func(existing []model.TutoringClass) error

// ClassRepository 辅导班数据访问接口
type ClassRepository interface {
	Create(ctx context.Context, class *model.TutoringClass) error
	GetByID(ctx context.Context, id string) (*model.TutoringClass, error)
	List(ctx context.Context, filter ClassFilter, offset, limit int) ([]model.TutoringClass, int64, error)
	// ReplaceSlots 在事务中全量替换班级时段
	ReplaceSlots(ctx context.Context, classID string, slots []model.ClassSlot, updatedBy string) error
	// ListSubmittedByTutor 导师在指定学期内进行中的班级（含时段），excludeClassID 非空时排除该班级
	ListSubmittedByTutor(ctx context.Context, tutorID, semesterID, excludeClassID string) ([]model.TutoringClass, error)
	// Submit 冻结课表并持久化课次；recheck 返回错误时整体回滚
	Submit(ctx context.Context, class *model.TutoringClass, sessions []model.Session, recheck ClassRecheckFunc) error
	// Close 结课并取消 cancelFrom 当天及之后尚未上的课次，返回取消数量
	Close(ctx context.Context, class *model.TutoringClass, cancelFrom time.Time, reason string) (int64, error)
}

type classRepo struct {
	db *gorm.DB
}

// NewClassRepo 创建 ClassRepository 实例
func NewClassRepo(db *gorm.DB) ClassRepository {
	return &classRepo{db: db}
}

// orderedSlots 按录入顺序预加载时段
func orderedSlots(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *classRepo) Create(ctx context.Context, class *model.TutoringClass) error {
	// Slots 作为 has-many 关联随主记录一并写入
	return r.db.WithContext(ctx).Create(class).Error
}

func (r *classRepo) GetByID(ctx context.Context, id string) (*model.TutoringClass, error) {
	var class model.TutoringClass
	err := r.db.WithContext(ctx).
		Preload("Slots", orderedSlots).
		Preload("Subject").
		Preload("Tutor").
		Preload("Semester").
		Where("class_id = ?", id).
		First(&class).Error
	if err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *classRepo) List(ctx context.Context, filter ClassFilter, offset, limit int) ([]model.TutoringClass, int64, error) {
	var classes []model.TutoringClass
	var total int64

	db := r.db.WithContext(ctx).Model(&model.TutoringClass{})
	if filter.SemesterID != "" {
		db = db.Where("semester_id = ?", filter.SemesterID)
	}
	if filter.SubjectID != "" {
		db = db.Where("subject_id = ?", filter.SubjectID)
	}
	if filter.TutorID != "" {
		db = db.Where("tutor_id = ?", filter.TutorID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Slots", orderedSlots).
		Preload("Subject").
		Preload("Tutor").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&classes).Error; err != nil {
		return nil, 0, err
	}

	return classes, total, nil
}

func (r *classRepo) ReplaceSlots(ctx context.Context, classID string, slots []model.ClassSlot, updatedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("class_id = ?", classID).Delete(&model.ClassSlot{}).Error; err != nil {
			return err
		}
		if len(slots) > 0 {
			if err := tx.Create(&slots).Error; err != nil {
				return err
			}
		}
		return tx.Model(&model.TutoringClass{}).
			Where("class_id = ?", classID).
			Updates(map[string]interface{}{
				"updated_by": updatedBy,
				"updated_at": gorm.Expr("NOW()"),
			}).Error
	})
}

func (r *classRepo) ListSubmittedByTutor(ctx context.Context, tutorID, semesterID, excludeClassID string) ([]model.TutoringClass, error) {
	return listSubmittedByTutor(r.db.WithContext(ctx), tutorID, semesterID, excludeClassID)
}

// listSubmittedByTutor 周课表只在同一学期内才会真正相遇，已结课班级不再参与比对
func listSubmittedByTutor(db *gorm.DB, tutorID, semesterID, excludeClassID string) ([]model.TutoringClass, error) {
	var classes []model.TutoringClass
	q := db.Preload("Slots", orderedSlots).
		Preload("Subject").
		Preload("Tutor").
		Where("tutor_id = ? AND semester_id = ? AND status = ?", tutorID, semesterID, model.ClassStatusSubmitted)
	if excludeClassID != "" {
		q = q.Where("class_id <> ?", excludeClassID)
	}
	err := q.Order("submitted_at ASC").Find(&classes).Error
	return classes, err
}

// Submit 提交辅导班
//
// 事务内按以下顺序执行：
//  1. SELECT ... FOR UPDATE 锁定导师行，串行化同一导师的并发提交
//  2. 重新读取导师其他已提交班级并调用 recheck
//  3. 以乐观锁将班级从 draft 置为 submitted
//  4. 批量写入课次
func (r *classRepo) Submit(ctx context.Context, class *model.TutoringClass, sessions []model.Session, recheck ClassRecheckFunc) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockUser(tx, class.TutorID); err != nil {
			return err
		}

		if recheck != nil {
			existing, err := listSubmittedByTutor(tx, class.TutorID, class.SemesterID, class.ClassID)
			if err != nil {
				return err
			}
			if err := recheck(existing); err != nil {
				return err
			}
		}

		now := time.Now()
		oldVersion := class.Version
		result := tx.Model(&model.TutoringClass{}).
			Where("class_id = ? AND version = ? AND status = ?", class.ClassID, oldVersion, model.ClassStatusDraft).
			Updates(map[string]interface{}{
				"status":       model.ClassStatusSubmitted,
				"submitted_at": now,
				"updated_by":   class.UpdatedBy,
				"version":      oldVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrOptimisticLock
		}

		if len(sessions) > 0 {
			if err := tx.CreateInBatches(&sessions, 100).Error; err != nil {
				return err
			}
		}

		class.Status = model.ClassStatusSubmitted
		class.SubmittedAt = &now
		class.Version = oldVersion + 1
		return nil
	})
}

func (r *classRepo) Close(ctx context.Context, class *model.TutoringClass, cancelFrom time.Time, reason string) (int64, error) {
	var cancelled int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		oldVersion := class.Version
		result := tx.Model(&model.TutoringClass{}).
			Where("class_id = ? AND version = ? AND status = ?", class.ClassID, oldVersion, model.ClassStatusSubmitted).
			Updates(map[string]interface{}{
				"status":     model.ClassStatusClosed,
				"updated_by": class.UpdatedBy,
				"version":    oldVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrOptimisticLock
		}

		result = tx.Model(&model.Session{}).
			Where("class_id = ? AND status = ? AND session_date >= ?",
				class.ClassID, string(scheduling.SessionScheduled), cancelFrom.Format("2006-01-02")).
			Updates(map[string]interface{}{
				"status":        string(scheduling.SessionCancelled),
				"cancel_reason": reason,
				"updated_by":    class.UpdatedBy,
				"version":       gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		cancelled = result.RowsAffected

		class.Status = model.ClassStatusClosed
		class.Version = oldVersion + 1
		return nil
	})
	return cancelled, err
}
