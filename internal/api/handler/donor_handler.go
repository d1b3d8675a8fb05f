package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Sudeep845/Raktsewa-sub000/internal/dto"
	"github.com/Sudeep845/Raktsewa-sub000/internal/service"
	"github.com/Sudeep845/Raktsewa-sub000/pkg/response"
)

// DonorHandler 献血者模块 HTTP 处理器
type DonorHandler struct {
	donorSvc service.DonorService
}

// NewDonorHandler 创建 DonorHandler
func NewDonorHandler(donorSvc service.DonorService) *DonorHandler {
	return &DonorHandler{donorSvc: donorSvc}
}

// GetEligibility 献血资格检查
// GET /api/v1/donors/eligibility
func (h *DonorHandler) GetEligibility(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.donorSvc.CheckEligibility(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, result)
}

// ListDonations 我的献血记录
// GET /api/v1/donors/donations
func (h *DonorHandler) ListDonations(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, total, err := h.donorSvc.ListDonations(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}
