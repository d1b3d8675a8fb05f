package dto

// ── 医院模块 DTO ──

// HospitalListRequest 医院列表查询参数
type HospitalListRequest struct {
	PaginationRequest
	State   string `form:"state"   binding:"omitempty,oneof=pending approved rejected suspended"`
	City    string `form:"city"    binding:"omitempty,max=100"`
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
}

// HospitalActionRequest 审核操作附言（写入通知）
type HospitalActionRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// HospitalResponse 医院详情
type HospitalResponse struct {
	HospitalID    string  `json:"hospital_id"`
	UserID        string  `json:"user_id,omitempty"`
	HospitalName  string  `json:"hospital_name"`
	LicenseNumber string  `json:"license_number,omitempty"`
	Address       string  `json:"address"`
	City          string  `json:"city"`
	State         string  `json:"state"`
	Phone         string  `json:"phone"`
	Email         string  `json:"email"`
	IsApproved    bool    `json:"is_approved"`
	IsActive      bool    `json:"is_active"`
	Status        string  `json:"status"`
	ApprovedAt    *string `json:"approved_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
}
