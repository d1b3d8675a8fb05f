package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Sudeep845/Raktsewa-sub000/internal/dto"
	"github.com/Sudeep845/Raktsewa-sub000/internal/service"
	"github.com/Sudeep845/Raktsewa-sub000/pkg/response"
)

// EmergencyHandler 紧急用血模块 HTTP 处理器
type EmergencyHandler struct {
	emergencySvc service.EmergencyService
}

// NewEmergencyHandler 创建 EmergencyHandler
func NewEmergencyHandler(emergencySvc service.EmergencyService) *EmergencyHandler {
	return &EmergencyHandler{emergencySvc: emergencySvc}
}

// CreateRequest 提交紧急用血申请（公开）
// POST /api/v1/emergency-requests
func (h *EmergencyHandler) CreateRequest(c *gin.Context) {
	var req dto.CreateEmergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.emergencySvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleEmergencyError(c, err)
		return
	}

	msg := "申请已提交"
	if !result.IsAvailable {
		msg = "申请已提交，该血型当前库存不足"
	}
	response.Created(c, msg, result)
}

// ListRequests 紧急申请列表（医院看本院，管理员看全部）
// GET /api/v1/emergency-requests
func (h *EmergencyHandler) ListRequests(c *gin.Context) {
	var req dto.EmergencyListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, total, err := h.emergencySvc.List(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleEmergencyError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// FulfillRequest 完成申请并扣减库存
// POST /api/v1/emergency-requests/:id/fulfill
func (h *EmergencyHandler) FulfillRequest(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.emergencySvc.Fulfill(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.handleEmergencyError(c, err)
		return
	}

	response.OK(c, result)
}

// CancelRequest 取消申请
// POST /api/v1/emergency-requests/:id/cancel
func (h *EmergencyHandler) CancelRequest(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.emergencySvc.Cancel(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.handleEmergencyError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *EmergencyHandler) handleEmergencyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmergencyNotFound):
		response.NotFound(c, 16001, "紧急用血申请不存在")
	case errors.Is(err, service.ErrEmergencyClosed):
		response.Conflict(c, 16002, "该申请已处理或已取消")
	case errors.Is(err, service.ErrInsufficientStock):
		response.Conflict(c, 16003, "库存不足，无法完成该申请")
	case errors.Is(err, service.ErrHospitalUnavailable):
		response.Conflict(c, 15002, "医院未通过审核或已停用")
	default:
		respondError(c, err)
	}
}
