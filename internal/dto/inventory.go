package dto

// ── 库存模块 DTO ──

// AdjustInventoryRequest 库存调整（hospital_id 仅管理员需要传）
type AdjustInventoryRequest struct {
	HospitalID string `json:"hospital_id" binding:"omitempty,uuid"`
	BloodType  string `json:"blood_type"  binding:"required"`
	Units      *int   `json:"units"       binding:"required,min=0,max=100000"`
	Action     string `json:"action"      binding:"required,oneof=set add subtract"`
	Reason     string `json:"reason"      binding:"max=500"`
}

// AdjustInventoryResponse 调整结果
type AdjustInventoryResponse struct {
	HospitalID     string `json:"hospital_id"`
	BloodType      string `json:"blood_type"`
	Action         string `json:"action"`
	PreviousUnits  int    `json:"previous_units"`
	UnitsAvailable int    `json:"units_available"`
	Status         string `json:"status"`
}

// SetRequiredRequest 设置需求量
type SetRequiredRequest struct {
	HospitalID    string `json:"hospital_id"    binding:"omitempty,uuid"`
	BloodType     string `json:"blood_type"     binding:"required"`
	UnitsRequired *int   `json:"units_required" binding:"required,min=0,max=100000"`
}

// InventoryItem 单血型库存
type InventoryItem struct {
	BloodType      string `json:"blood_type"`
	UnitsAvailable int    `json:"units_available"`
	UnitsRequired  int    `json:"units_required"`
	Status         string `json:"status"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

// InventoryResponse 医院库存
type InventoryResponse struct {
	HospitalID   string          `json:"hospital_id"`
	HospitalName string          `json:"hospital_name"`
	TotalUnits   int             `json:"total_units"`
	Items        []InventoryItem `json:"items"`
}

// InventoryHistoryRequest 库存流水查询参数
type InventoryHistoryRequest struct {
	PaginationRequest
	HospitalID string `form:"hospital_id" binding:"omitempty,uuid"`
	BloodType  string `form:"blood_type"`
}

// InventoryHistoryItem 库存流水
type InventoryHistoryItem struct {
	ActivityLogID    string `json:"activity_log_id"`
	HospitalID       string `json:"hospital_id,omitempty"`
	ActorID          string `json:"actor_id,omitempty"`
	BloodType        string `json:"blood_type"`
	Action           string `json:"action"`
	PreviousQuantity *int   `json:"previous_quantity,omitempty"`
	NewQuantity      *int   `json:"new_quantity,omitempty"`
	Reason           string `json:"reason"`
	CreatedAt        string `json:"created_at"`
}

// NetworkInventoryItem 全网血型汇总
type NetworkInventoryItem struct {
	BloodType      string `json:"blood_type"`
	UnitsAvailable int64  `json:"units_available"`
	UnitsRequired  int64  `json:"units_required"`
	Status         string `json:"status"`
}
