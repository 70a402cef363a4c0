package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"tutorhub/backend/internal/model"
	pkgerrors "tutorhub/backend/pkg/errors"
)

// SessionFilter 课次查询条件
type SessionFilter struct {
	ClassID  string
	TutorID  string // 导师名下所有班级
	MenteeID string // 学员有效报名的所有班级
	From     *time.Time
	To       *time.Time
	Status   string
}

// SessionRepository 课次数据访问接口
type SessionRepository interface {
	List(ctx context.Context, filter SessionFilter) ([]model.Session, error)
	GetByID(ctx context.Context, id string) (*model.Session, error)
	// UpdateStatus 乐观锁更新状态相关字段
	UpdateStatus(ctx context.Context, session *model.Session) error
}

type sessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo 创建 SessionRepository 实例
func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) List(ctx context.Context, filter SessionFilter) ([]model.Session, error) {
	var sessions []model.Session

	db := r.db.WithContext(ctx).
		Preload("Class").
		Preload("Class.Subject").
		Preload("Class.Tutor")
	if filter.ClassID != "" {
		db = db.Where("class_id = ?", filter.ClassID)
	}
	if filter.TutorID != "" {
		db = db.Where("class_id IN (?)", r.db.Model(&model.TutoringClass{}).
			Select("class_id").
			Where("tutor_id = ?", filter.TutorID))
	}
	if filter.MenteeID != "" {
		db = db.Where("class_id IN (?)", r.db.Model(&model.Registration{}).
			Select("class_id").
			Where("mentee_id = ? AND status = ?", filter.MenteeID, model.RegistrationActive))
	}
	if filter.From != nil {
		db = db.Where("session_date >= ?", filter.From.Format("2006-01-02"))
	}
	if filter.To != nil {
		db = db.Where("session_date <= ?", filter.To.Format("2006-01-02"))
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	err := db.Order("session_date ASC, start_period ASC").Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.WithContext(ctx).
		Preload("Class").
		Preload("Class.Subject").
		Preload("Class.Tutor").
		Where("session_id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) UpdateStatus(ctx context.Context, session *model.Session) error {
	oldVersion := session.Version
	result := r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("session_id = ? AND version = ?", session.SessionID, oldVersion).
		Updates(map[string]interface{}{
			"status":        session.Status,
			"cancel_reason": session.CancelReason,
			"completed_at":  session.CompletedAt,
			"updated_by":    session.UpdatedBy,
			"version":       oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	session.Version = oldVersion + 1
	return nil
}
