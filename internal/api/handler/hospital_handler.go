package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/Sudeep845/Raktsewa-sub000/internal/dto"
	"github.com/Sudeep845/Raktsewa-sub000/internal/service"
	"github.com/Sudeep845/Raktsewa-sub000/pkg/response"
)

// HospitalHandler 医院模块 HTTP 处理器
type HospitalHandler struct {
	hospitalSvc service.HospitalService
}

// NewHospitalHandler 创建 HospitalHandler
func NewHospitalHandler(hospitalSvc service.HospitalService) *HospitalHandler {
	return &HospitalHandler{hospitalSvc: hospitalSvc}
}

// ListApproved 已审核且在运营的医院（公开，供预约与紧急申请选择）
// GET /api/v1/hospitals/approved
func (h *HospitalHandler) ListApproved(c *gin.Context) {
	var req dto.HospitalListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	list, total, err := h.hospitalSvc.ListApproved(c.Request.Context(), &req)
	if err != nil {
		h.handleHospitalError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// ListHospitals 医院列表（管理员，可按审核状态过滤）
// GET /api/v1/hospitals
func (h *HospitalHandler) ListHospitals(c *gin.Context) {
	var req dto.HospitalListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	list, total, err := h.hospitalSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleHospitalError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetHospital 医院详情
// GET /api/v1/hospitals/:id
func (h *HospitalHandler) GetHospital(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	hospital, err := h.hospitalSvc.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.handleHospitalError(c, err)
		return
	}

	response.OK(c, hospital)
}

// Transition 审核状态流转：approve / reject / suspend / reactivate
// POST /api/v1/hospitals/:id/{action}
func (h *HospitalHandler) Transition(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.HospitalActionRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondBindError(c, err)
			return
		}

		caller, ok := MustGetCaller(c)
		if !ok {
			return
		}

		hospital, err := h.hospitalSvc.Transition(c.Request.Context(), caller, c.Param("id"), action, req.Reason)
		if err != nil {
			h.handleHospitalError(c, err)
			return
		}

		response.OK(c, hospital)
	}
}

func (h *HospitalHandler) handleHospitalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidHospitalTransition):
		response.Conflict(c, 15003, "当前医院状态不允许该操作")
	default:
		respondError(c, err)
	}
}
