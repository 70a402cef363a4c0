package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tutorhub/backend/config"
	"tutorhub/backend/internal/api/handler"
	"tutorhub/backend/internal/api/middleware"
	"tutorhub/backend/internal/api/validate"
	"tutorhub/backend/internal/model"
	"tutorhub/backend/pkg/jwt"
	"tutorhub/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 允许为 nil：黑名单检查跳过，限流退化为进程内令牌桶
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) (*gin.Engine, error) {
	if err := validate.Register(cfg.Schedule.MaxWeeks); err != nil {
		return nil, err
	}

	// 避免 nil *redis.Client 装箱成非 nil 接口
	var (
		checker middleware.TokenChecker
		counter middleware.WindowCounter
	)
	if rdb != nil {
		checker = rdb
		counter = rdb
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes))
	r.Use(middleware.RateLimit(counter, cfg.RateLimit.Requests, cfg.RateLimit.Window, logger))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	coordinator := middleware.RoleAuth(model.RoleCoordinator)
	tutor := middleware.RoleAuth(model.RoleTutor)
	mentee := middleware.RoleAuth(model.RoleMentee)
	tutorOrCoordinator := middleware.RoleAuth(model.RoleTutor, model.RoleCoordinator)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, checker, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 学期模块
			semesters := authorized.Group("/semesters")
			{
				semesters.GET("", h.Semester.ListSemesters)
				semesters.GET("/current", h.Semester.GetCurrentSemester)
				semesters.GET("/:id", h.Semester.GetSemester)
				semesters.POST("", coordinator, h.Semester.CreateSemester)
				semesters.PUT("/:id/activate", coordinator, h.Semester.ActivateSemester)
			}

			// 科目模块
			subjects := authorized.Group("/subjects")
			{
				subjects.GET("", h.Subject.ListSubjects)
				subjects.GET("/:id", h.Subject.GetSubject)
				subjects.POST("", coordinator, h.Subject.CreateSubject)
				subjects.PUT("/:id", coordinator, h.Subject.UpdateSubject)
				subjects.DELETE("/:id", coordinator, h.Subject.DeleteSubject)
			}

			// 无状态排课接口
			schedule := authorized.Group("/schedule")
			{
				schedule.POST("/validate", h.Schedule.Validate)
				schedule.POST("/expand", h.Schedule.Expand)
			}

			// 辅导班模块
			classes := authorized.Group("/classes")
			{
				classes.GET("", h.Class.ListClasses)
				classes.POST("", tutor, h.Class.CreateClass)
				classes.GET("/:id", h.Class.GetClass)
				classes.PUT("/:id/slots", tutor, h.Class.UpdateSlots)
				classes.POST("/:id/conflicts", tutor, h.Class.CheckConflicts)
				classes.POST("/:id/submit", tutor, h.Class.SubmitClass)
				classes.PUT("/:id/close", tutorOrCoordinator, h.Class.CloseClass)
				classes.GET("/:id/preview", h.Class.PreviewSessions)
				classes.GET("/:id/sessions", h.Session.ListByClass)
				classes.POST("/:id/registrations", mentee, h.Registration.Register)
				classes.POST("/:id/registrations/check", mentee, h.Registration.CheckConflicts)
			}

			// 报名模块
			registrations := authorized.Group("/registrations")
			{
				registrations.GET("/me", mentee, h.Registration.ListMine)
				registrations.DELETE("/:id", mentee, h.Registration.Withdraw)
			}

			// 课次模块
			sessions := authorized.Group("/sessions")
			{
				sessions.GET("/me", h.Session.ListMine)
				sessions.PUT("/:id/complete", tutorOrCoordinator, h.Session.Complete)
				sessions.PUT("/:id/cancel", tutorOrCoordinator, h.Session.Cancel)
			}

			// 导出模块
			authorized.GET("/export/classes/:id/sessions.xlsx", h.Export.ExportClassSessions)
			authorized.GET("/calendar/me.ics", h.Calendar.ExportMine)
		}
	}

	return r, nil
}
