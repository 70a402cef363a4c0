package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorhub/backend/internal/dto"
	"tutorhub/backend/internal/service"
	"tutorhub/backend/pkg/response"
)

// ClassHandler 辅导班模块 HTTP 处理器
type ClassHandler struct {
	classSvc service.ClassService
}

// NewClassHandler 创建 ClassHandler
func NewClassHandler(classSvc service.ClassService) *ClassHandler {
	return &ClassHandler{classSvc: classSvc}
}

// CreateClass 创建草稿辅导班
// POST /api/v1/classes
func (h *ClassHandler) CreateClass(c *gin.Context) {
	var req dto.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	class, err := h.classSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.Created(c, class)
}

// ListClasses 分页查询辅导班
// GET /api/v1/classes
func (h *ClassHandler) ListClasses(c *gin.Context) {
	var req dto.ClassListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, total, err := h.classSvc.List(c.Request.Context(), &req, callerID, role)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetClass 获取辅导班详情
// GET /api/v1/classes/:id
func (h *ClassHandler) GetClass(c *gin.Context) {
	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	class, err := h.classSvc.GetByID(c.Request.Context(), c.Param("id"), callerID, role)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, class)
}

// UpdateSlots 全量替换草稿课表
// PUT /api/v1/classes/:id/slots
func (h *ClassHandler) UpdateSlots(c *gin.Context) {
	var req dto.UpdateSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	class, err := h.classSvc.UpdateSlots(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, class)
}

// CheckConflicts 预检与导师其他班级的冲突
// POST /api/v1/classes/:id/conflicts
func (h *ClassHandler) CheckConflicts(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.classSvc.CheckConflicts(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, result)
}

// SubmitClass 提交辅导班并生成课次
// POST /api/v1/classes/:id/submit
func (h *ClassHandler) SubmitClass(c *gin.Context) {
	var req dto.SubmitClassRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.classSvc.Submit(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, result)
}

// CloseClass 结课
// PUT /api/v1/classes/:id/close
func (h *ClassHandler) CloseClass(c *gin.Context) {
	var req dto.CloseClassRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.classSvc.Close(c.Request.Context(), c.Param("id"), &req, callerID, role)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, result)
}

// PreviewSessions 预览课次（不落库）
// GET /api/v1/classes/:id/preview
func (h *ClassHandler) PreviewSessions(c *gin.Context) {
	var req dto.PreviewSessionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	sessions, err := h.classSvc.PreviewSessions(c.Request.Context(), c.Param("id"), &req, callerID, role)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, gin.H{"list": sessions})
}

// handleClassError 统一处理辅导班模块业务错误
func (h *ClassHandler) handleClassError(c *gin.Context, err error) {
	if respondScheduleError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 16001, "辅导班不存在")
	case errors.Is(err, service.ErrClassForbidden):
		response.Forbidden(c, 16002, "只能操作自己名下的辅导班")
	case errors.Is(err, service.ErrClassNotDraft):
		response.Error(c, http.StatusConflict, 16005, "辅导班已提交，课表不可修改")
	case errors.Is(err, service.ErrClassCodeDuplicate):
		response.Error(c, http.StatusConflict, 16006, "班级编号已存在")
	case errors.Is(err, service.ErrClassWeekCountExceeded):
		response.BadRequest(c, 16007, "授课周数超出上限")
	case errors.Is(err, service.ErrAnchorDateInvalid):
		response.BadRequest(c, 16009, "锚定日期格式错误")
	case errors.Is(err, service.ErrClassNotSubmitted):
		response.Error(c, http.StatusConflict, 16010, "只有进行中的辅导班可以结课")
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 15001, "科目不存在")
	case errors.Is(err, service.ErrSemesterNotFound):
		response.NotFound(c, 14001, "学期不存在")
	default:
		response.InternalError(c)
	}
}
