package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Sudeep845/Raktsewa-sub000/internal/dto"
	"github.com/Sudeep845/Raktsewa-sub000/internal/service"
	"github.com/Sudeep845/Raktsewa-sub000/pkg/response"
)

// AppointmentHandler 预约模块 HTTP 处理器
type AppointmentHandler struct {
	appointmentSvc service.AppointmentService
}

// NewAppointmentHandler 创建 AppointmentHandler
func NewAppointmentHandler(appointmentSvc service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointmentSvc: appointmentSvc}
}

// CreateAppointment 献血者预约
// POST /api/v1/appointments
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req dto.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	appt, err := h.appointmentSvc.Create(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.Created(c, "预约成功", appt)
}

// ListAppointments 预约列表（按角色限定范围）
// GET /api/v1/appointments
func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	var req dto.AppointmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, total, err := h.appointmentSvc.List(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetAppointment 预约详情
// GET /api/v1/appointments/:id
func (h *AppointmentHandler) GetAppointment(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	appt, err := h.appointmentSvc.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, appt)
}

// UpdateStatus 预约状态流转（确认 / 完成 / 取消 / 爽约）
// PUT /api/v1/appointments/:id/status
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	appt, err := h.appointmentSvc.UpdateStatus(c.Request.Context(), caller, c.Param("id"), &req)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, appt)
}

// Reschedule 改期
// PUT /api/v1/appointments/:id/reschedule
func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	var req dto.RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	appt, err := h.appointmentSvc.Reschedule(c.Request.Context(), caller, c.Param("id"), &req)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, appt)
}

func (h *AppointmentHandler) handleAppointmentError(c *gin.Context, err error) {
	var inelig *service.IneligibleError
	switch {
	case errors.As(err, &inelig):
		response.ErrorWithData(c, http.StatusConflict, 13004, "当前不符合献血条件", gin.H{"reasons": inelig.Reasons})
	case errors.Is(err, service.ErrAppointmentNotFound):
		response.NotFound(c, 13001, "预约不存在")
	case errors.Is(err, service.ErrSlotTaken):
		response.Conflict(c, 13002, "该时段已被预约")
	case errors.Is(err, service.ErrDonorDayTaken):
		response.Conflict(c, 13003, "当天已有其他有效预约")
	case errors.Is(err, service.ErrDonorNotEligible):
		response.Conflict(c, 13004, "当前不符合献血条件")
	case errors.Is(err, service.ErrInvalidAppointmentTransition):
		response.Conflict(c, 13005, "当前预约状态不允许该操作")
	case errors.Is(err, service.ErrAppointmentInPast):
		response.BadRequest(c, 13006, "预约时间必须晚于当前时间")
	case errors.Is(err, service.ErrAppointmentTooFar):
		response.BadRequest(c, 13007, "预约时间不能超过 6 个月")
	case errors.Is(err, service.ErrHospitalUnavailable):
		response.Conflict(c, 15002, "医院未通过审核或已停用")
	default:
		respondError(c, err)
	}
}
