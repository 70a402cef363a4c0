package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"tutorhub/backend/internal/dto"
	"tutorhub/backend/internal/service"
	"tutorhub/backend/pkg/response"
)

// SemesterHandler 学期接口
// 读接口对所有登录用户开放，创建与激活仅限协调员（由路由层中间件约束）
type SemesterHandler struct {
	semesterSvc service.SemesterService
}

// NewSemesterHandler 创建 SemesterHandler
func NewSemesterHandler(semesterSvc service.SemesterService) *SemesterHandler {
	return &SemesterHandler{semesterSvc: semesterSvc}
}

// ListSemesters GET /api/v1/semesters
func (h *SemesterHandler) ListSemesters(c *gin.Context) {
	semesters, err := h.semesterSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": semesters})
}

// GetSemester GET /api/v1/semesters/:id
func (h *SemesterHandler) GetSemester(c *gin.Context) {
	id, ok := MustGetPathID(c, "学期ID不能为空")
	if !ok {
		return
	}

	semester, err := h.semesterSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleSemesterError(c, err)
		return
	}
	response.OK(c, semester)
}

// GetCurrentSemester 当前激活学期，辅导班创建页以此作为默认学期
// GET /api/v1/semesters/current
func (h *SemesterHandler) GetCurrentSemester(c *gin.Context) {
	semester, err := h.semesterSvc.GetCurrent(c.Request.Context())
	if err != nil {
		h.handleSemesterError(c, err)
		return
	}
	response.OK(c, semester)
}

// CreateSemester POST /api/v1/semesters
// 日期区间不得与已有学期重叠
func (h *SemesterHandler) CreateSemester(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateSemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	semester, err := h.semesterSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleSemesterError(c, err)
		return
	}
	response.Created(c, semester)
}

// ActivateSemester PUT /api/v1/semesters/:id/activate
// 激活后原激活学期自动撤下；对已激活学期重复调用直接成功
func (h *SemesterHandler) ActivateSemester(c *gin.Context) {
	id, ok := MustGetPathID(c, "学期ID不能为空")
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.semesterSvc.Activate(c.Request.Context(), id, callerID); err != nil {
		h.handleSemesterError(c, err)
		return
	}
	response.OK(c, gin.H{"semester_id": id, "is_active": true})
}

func (h *SemesterHandler) handleSemesterError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSemesterNotFound):
		response.NotFound(c, 14001, "学期不存在")
	case errors.Is(err, service.ErrSemesterDateInvalid):
		response.BadRequest(c, 14002, "学期结束日期必须晚于开始日期")
	case errors.Is(err, service.ErrSemesterOverlap):
		response.Conflict(c, 14003, "学期日期与已有学期重叠", nil)
	case errors.Is(err, service.ErrSemesterConflict):
		response.Conflict(c, 14004, "学期已被他人修改，请刷新后重试", nil)
	default:
		response.InternalError(c)
	}
}
