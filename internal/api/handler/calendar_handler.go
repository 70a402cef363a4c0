package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorhub/backend/internal/service"
	"tutorhub/backend/pkg/response"
)

// CalendarHandler 日历订阅 HTTP 处理器
type CalendarHandler struct {
	calendarSvc service.CalendarService
}

// NewCalendarHandler 创建 CalendarHandler
func NewCalendarHandler(calendarSvc service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarSvc: calendarSvc}
}

// ExportMine 导出本人课次日历
// GET /api/v1/calendar/me.ics
func (h *CalendarHandler) ExportMine(c *gin.Context) {
	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	data, err := h.calendarSvc.ExportMine(c.Request.Context(), callerID, role)
	if err != nil {
		response.InternalError(c)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="tutorhub.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", data)
}
