package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tutorhub/backend/config"
	"tutorhub/backend/internal/repository"
	"tutorhub/backend/internal/scheduling"
	"tutorhub/backend/pkg/jwt"
)

// TokenBlacklist Token 黑名单（由 pkg/redis 实现，Redis 不可用时为 nil）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Semester     SemesterService
	Subject      SubjectService
	Schedule     ScheduleService
	Class        ClassService
	Registration RegistrationService
	Session      SessionService
	Export       ExportService
	Calendar     CalendarService
}

// NewService 创建 Service 聚合
// blacklist 允许为 nil（降级为无黑名单模式）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) *Service {
	engine := NewEngine(&cfg.Schedule)

	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		Semester:     NewSemesterService(repo, logger),
		Subject:      NewSubjectService(repo, logger),
		Schedule:     NewScheduleService(&cfg.Schedule, engine),
		Class:        NewClassService(&cfg.Schedule, repo, engine, logger),
		Registration: NewRegistrationService(&cfg.Schedule, repo, engine, logger),
		Session:      NewSessionService(&cfg.Schedule, repo, logger),
		Export:       NewExportService(&cfg.Schedule, repo, logger),
		Calendar:     NewCalendarService(&cfg.Schedule, repo, logger),
	}
}

// NewEngine 按排课配置创建冲突检测引擎
func NewEngine(cfg *config.ScheduleConfig) *scheduling.Engine {
	return scheduling.NewEngine(scheduling.Policy{
		MinPeriod:     cfg.MinPeriod,
		MaxPeriod:     cfg.MaxPeriod,
		MaxDay:        cfg.MaxDay,
		PeriodMinutes: cfg.PeriodMinutes,
	})
}

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02T15:04:05Z"
)

// formatTime 统一时间输出格式（空指针返回空串）
func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(datetimeLayout)
}
