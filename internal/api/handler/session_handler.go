package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorhub/backend/internal/dto"
	"tutorhub/backend/internal/service"
	"tutorhub/backend/pkg/response"
)

// SessionHandler 课次模块 HTTP 处理器
type SessionHandler struct {
	sessionSvc service.SessionService
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(sessionSvc service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// ListByClass 查询辅导班课次
// GET /api/v1/classes/:id/sessions
func (h *SessionHandler) ListByClass(c *gin.Context) {
	var req dto.SessionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.sessionSvc.ListByClass(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListMine 我的课次
// GET /api/v1/sessions/me
func (h *SessionHandler) ListMine(c *gin.Context) {
	var req dto.SessionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.sessionSvc.ListMine(c.Request.Context(), callerID, role, &req)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Complete 标记课次完成
// PUT /api/v1/sessions/:id/complete
func (h *SessionHandler) Complete(c *gin.Context) {
	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Complete(c.Request.Context(), c.Param("id"), callerID, role)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// Cancel 取消课次
// PUT /api/v1/sessions/:id/cancel
func (h *SessionHandler) Cancel(c *gin.Context) {
	var req dto.CancelSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Cancel(c.Request.Context(), c.Param("id"), &req, callerID, role)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

func (h *SessionHandler) handleSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 16001, "辅导班不存在")
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 18001, "课次不存在")
	case errors.Is(err, service.ErrSessionForbidden):
		response.Forbidden(c, 18002, "仅授课导师或协调员可变更课次")
	case errors.Is(err, service.ErrSessionInvalidTransition):
		response.Error(c, http.StatusConflict, 18003, "课次当前状态不允许该操作")
	case errors.Is(err, service.ErrSessionNotStarted):
		response.BadRequest(c, 18004, "课次尚未开始，不能标记完成")
	case errors.Is(err, service.ErrSessionConflict):
		response.Error(c, http.StatusConflict, 18005, "课次已被他人修改，请刷新后重试")
	case errors.Is(err, service.ErrSessionDateRange):
		response.BadRequest(c, 18006, "查询日期范围无效")
	default:
		response.InternalError(c)
	}
}
