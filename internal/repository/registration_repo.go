package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tutorhub/backend/internal/model"
)

// RegistrationRecheckFunc 在报名事务内、持有学员与班级行锁时调用
// existing 为学员当前有效报名的班级，activeCount 为目标班级当前有效报名数
type RegistrationRecheckFunc func(existing []model.TutoringClass, activeCount int64) error

// RegistrationRepository 报名数据访问接口
type RegistrationRepository interface {
	// Create 锁定学员与班级后重新校验并写入报名；recheck 返回错误时整体回滚
	Create(ctx context.Context, reg *model.Registration, recheck RegistrationRecheckFunc) error
	GetByID(ctx context.Context, id string) (*model.Registration, error)
	ListByMentee(ctx context.Context, menteeID, status string) ([]model.Registration, error)
	// ListActiveClassesByMentee 学员在指定学期内有效报名且未结课的班级（含时段）
	ListActiveClassesByMentee(ctx context.Context, menteeID, semesterID string) ([]model.TutoringClass, error)
	Withdraw(ctx context.Context, id string, updatedBy string) error
}

type registrationRepo struct {
	db *gorm.DB
}

// NewRegistrationRepo 创建 RegistrationRepository 实例
func NewRegistrationRepo(db *gorm.DB) RegistrationRepository {
	return &registrationRepo{db: db}
}

func (r *registrationRepo) Create(ctx context.Context, reg *model.Registration, recheck RegistrationRecheckFunc) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockUser(tx, reg.MenteeID); err != nil {
			return err
		}

		var class model.TutoringClass
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("class_id = ?", reg.ClassID).
			First(&class).Error; err != nil {
			return err
		}

		if recheck != nil {
			existing, err := listActiveClassesByMentee(tx, reg.MenteeID, class.SemesterID)
			if err != nil {
				return err
			}
			var activeCount int64
			if err := tx.Model(&model.Registration{}).
				Where("class_id = ? AND status = ?", reg.ClassID, model.RegistrationActive).
				Count(&activeCount).Error; err != nil {
				return err
			}
			if err := recheck(existing, activeCount); err != nil {
				return err
			}
		}

		return tx.Create(reg).Error
	})
}

func (r *registrationRepo) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	var reg model.Registration
	err := r.db.WithContext(ctx).
		Preload("Class").
		Preload("Class.Subject").
		Where("registration_id = ?", id).
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepo) ListByMentee(ctx context.Context, menteeID, status string) ([]model.Registration, error) {
	var regs []model.Registration
	db := r.db.WithContext(ctx).
		Preload("Class").
		Preload("Class.Slots", orderedSlots).
		Preload("Class.Subject").
		Where("mentee_id = ?", menteeID)
	if status != "" {
		db = db.Where("status = ?", status)
	}
	err := db.Order("created_at DESC").Find(&regs).Error
	return regs, err
}

func (r *registrationRepo) ListActiveClassesByMentee(ctx context.Context, menteeID, semesterID string) ([]model.TutoringClass, error) {
	return listActiveClassesByMentee(r.db.WithContext(ctx), menteeID, semesterID)
}

func listActiveClassesByMentee(db *gorm.DB, menteeID, semesterID string) ([]model.TutoringClass, error) {
	var classes []model.TutoringClass
	err := db.Preload("Slots", orderedSlots).
		Preload("Subject").
		Preload("Tutor").
		Joins("JOIN registrations ON registrations.class_id = tutoring_classes.class_id").
		Where("registrations.mentee_id = ? AND registrations.status = ?", menteeID, model.RegistrationActive).
		Where("tutoring_classes.semester_id = ? AND tutoring_classes.status = ?", semesterID, model.ClassStatusSubmitted).
		Order("registrations.created_at ASC").
		Find(&classes).Error
	return classes, err
}

func (r *registrationRepo) Withdraw(ctx context.Context, id string, updatedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Registration{}).
		Where("registration_id = ? AND status = ?", id, model.RegistrationActive).
		Updates(map[string]interface{}{
			"status":       model.RegistrationWithdrawn,
			"withdrawn_at": time.Now(),
			"updated_by":   updatedBy,
		}).Error
}
