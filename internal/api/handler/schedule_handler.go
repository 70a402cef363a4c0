package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"tutorhub/backend/internal/dto"
	"tutorhub/backend/internal/service"
	"tutorhub/backend/pkg/response"
)

// ScheduleHandler 无状态排课接口（不读写数据库）
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// Validate 校验周课表，可选附带已有班级做跨班级比对
// POST /api/v1/schedule/validate
//
// 校验结果总是以 200 返回，valid=false 不视为请求失败。
func (h *ScheduleHandler) Validate(c *gin.Context) {
	var req dto.ValidateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	response.OK(c, h.scheduleSvc.Validate(c.Request.Context(), &req))
}

// Expand 预览课次展开结果
// POST /api/v1/schedule/expand
func (h *ScheduleHandler) Expand(c *gin.Context) {
	var req dto.ExpandScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	sessions, err := h.scheduleSvc.Expand(c.Request.Context(), &req)
	if err != nil {
		if respondScheduleError(c, err) {
			return
		}
		switch {
		case errors.Is(err, service.ErrWeeksExceeded):
			response.BadRequest(c, 16008, "展开周数超出上限")
		case errors.Is(err, service.ErrAnchorDateInvalid):
			response.BadRequest(c, 16009, "锚定日期格式错误")
		default:
			response.InternalError(c)
		}
		return
	}

	response.OK(c, gin.H{"list": sessions})
}
