package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Sudeep845/Raktsewa-sub000/internal/dto"
	"github.com/Sudeep845/Raktsewa-sub000/internal/service"
	"github.com/Sudeep845/Raktsewa-sub000/pkg/response"
)

// InventoryHandler 库存模块 HTTP 处理器
type InventoryHandler struct {
	inventorySvc service.InventoryService
}

// NewInventoryHandler 创建 InventoryHandler
func NewInventoryHandler(inventorySvc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventorySvc: inventorySvc}
}

// GetInventory 医院库存（医院看自己，管理员需传 hospital_id）
// GET /api/v1/inventory
func (h *InventoryHandler) GetInventory(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	inv, err := h.inventorySvc.Get(c.Request.Context(), caller, c.Query("hospital_id"))
	if err != nil {
		h.handleInventoryError(c, err)
		return
	}

	response.OK(c, inv)
}

// GetNetworkTotals 全网各血型汇总
// GET /api/v1/inventory/network
func (h *InventoryHandler) GetNetworkTotals(c *gin.Context) {
	items, err := h.inventorySvc.NetworkTotals(c.Request.Context())
	if err != nil {
		h.handleInventoryError(c, err)
		return
	}

	response.OK(c, gin.H{"list": items})
}

// AdjustInventory 库存调整（set / add / subtract）
// POST /api/v1/inventory/adjust
func (h *InventoryHandler) AdjustInventory(c *gin.Context) {
	var req dto.AdjustInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.inventorySvc.Adjust(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleInventoryError(c, err)
		return
	}

	response.OK(c, result)
}

// SetRequired 设置需求量
// PUT /api/v1/inventory/required
func (h *InventoryHandler) SetRequired(c *gin.Context) {
	var req dto.SetRequiredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	item, err := h.inventorySvc.SetRequired(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleInventoryError(c, err)
		return
	}

	response.OK(c, item)
}

// ListHistory 库存流水
// GET /api/v1/inventory/history
func (h *InventoryHandler) ListHistory(c *gin.Context) {
	var req dto.InventoryHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, total, err := h.inventorySvc.History(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleInventoryError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

func (h *InventoryHandler) handleInventoryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrHospitalUnavailable):
		response.Conflict(c, 15002, "医院未通过审核或已停用")
	default:
		respondError(c, err)
	}
}
