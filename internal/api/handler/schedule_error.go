package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"tutorhub/backend/internal/scheduling"
	"tutorhub/backend/pkg/response"
)

// respondScheduleError 将课表校验错误写为响应，非校验错误返回 false 交由调用方处理
//
// 周数非正返回 400；跨班级冲突返回 409，其余描述（越界、自身重叠、空课表等）返回 422，
// 后两者在 data.conflicts 中携带完整描述列表。
func respondScheduleError(c *gin.Context, err error) bool {
	var verr *scheduling.ValidationError
	if !errors.As(err, &verr) {
		return false
	}

	data := gin.H{"conflicts": verr.Conflicts}
	switch {
	case scheduling.HasKind(verr.Conflicts, scheduling.KindInvalidWeekCount):
		response.BadRequest(c, 16007, "授课周数必须为正数")
	case scheduling.HasKind(verr.Conflicts, scheduling.KindCrossConflict):
		response.Conflict(c, 16003, "与已有班级时间冲突", data)
	default:
		response.UnprocessableEntity(c, 16004, "课表不合法", data)
	}
	return true
}
