package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorhub/backend/internal/dto"
	"tutorhub/backend/internal/scheduling"
	"tutorhub/backend/internal/service"
	"tutorhub/backend/pkg/response"
)

// RegistrationHandler 报名模块 HTTP 处理器
type RegistrationHandler struct {
	registrationSvc service.RegistrationService
}

// NewRegistrationHandler 创建 RegistrationHandler
func NewRegistrationHandler(registrationSvc service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationSvc: registrationSvc}
}

// Register 报名辅导班
// POST /api/v1/classes/:id/registrations
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req dto.RegisterClassRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	menteeID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	reg, err := h.registrationSvc.Register(c.Request.Context(), c.Param("id"), &req, menteeID)
	if err != nil {
		h.handleRegistrationError(c, err)
		return
	}

	response.Created(c, reg)
}

// CheckConflicts 预检报名冲突
// POST /api/v1/classes/:id/registrations/check
func (h *RegistrationHandler) CheckConflicts(c *gin.Context) {
	menteeID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.registrationSvc.CheckConflicts(c.Request.Context(), c.Param("id"), menteeID)
	if err != nil {
		h.handleRegistrationError(c, err)
		return
	}

	response.OK(c, result)
}

// Withdraw 退出报名
// DELETE /api/v1/registrations/:id
func (h *RegistrationHandler) Withdraw(c *gin.Context) {
	menteeID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.registrationSvc.Withdraw(c.Request.Context(), c.Param("id"), menteeID); err != nil {
		h.handleRegistrationError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListMine 我的报名
// GET /api/v1/registrations/me
func (h *RegistrationHandler) ListMine(c *gin.Context) {
	var req dto.RegistrationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	menteeID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.registrationSvc.ListMine(c.Request.Context(), menteeID, &req)
	if err != nil {
		h.handleRegistrationError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

func (h *RegistrationHandler) handleRegistrationError(c *gin.Context, err error) {
	// warn 策略下未确认的冲突：409 并返回冲突列表，客户端确认后重试
	if errors.Is(err, service.ErrConflictsNotAcknowledged) {
		var verr *scheduling.ValidationError
		data := gin.H{"conflicts": []scheduling.ConflictDescriptor{}}
		if errors.As(err, &verr) {
			data["conflicts"] = verr.Conflicts
		}
		response.Conflict(c, 17004, "存在时间冲突，需确认后才能报名", data)
		return
	}
	if respondScheduleError(c, err) {
		return
	}

	switch {
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 16001, "辅导班不存在")
	case errors.Is(err, service.ErrClassNotOpen):
		response.BadRequest(c, 17001, "辅导班尚未开放报名")
	case errors.Is(err, service.ErrAlreadyRegistered):
		response.Error(c, http.StatusConflict, 17002, "已报名该辅导班")
	case errors.Is(err, service.ErrClassFull):
		response.Error(c, http.StatusConflict, 17003, "辅导班名额已满")
	case errors.Is(err, service.ErrRegistrationNotFound):
		response.NotFound(c, 17005, "报名记录不存在")
	case errors.Is(err, service.ErrRegistrationForbidden):
		response.Forbidden(c, 17006, "只能操作自己的报名")
	case errors.Is(err, service.ErrRegistrationNotActive):
		response.Error(c, http.StatusConflict, 17007, "报名已退出")
	default:
		response.InternalError(c)
	}
}
