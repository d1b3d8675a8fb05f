package dto

// ── 紧急用血模块 DTO ──

// CreateEmergencyRequest 紧急用血申请（公开提交）
type CreateEmergencyRequest struct {
	HospitalID   string `json:"hospital_id"   binding:"required,uuid"`
	BloodType    string `json:"blood_type"    binding:"required"`
	UnitsNeeded  int    `json:"units_needed"  binding:"required,min=1,max=100"`
	UrgencyLevel string `json:"urgency_level" binding:"required,oneof=low medium high critical"`
	PatientName  string `json:"patient_name"  binding:"max=100"`
	ContactName  string `json:"contact_name"  binding:"required,max=100"`
	ContactPhone string `json:"contact_phone" binding:"required,max=20"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email,max=255"`
	Reason       string `json:"reason"        binding:"max=1000"`
}

// CompatibleStock 兼容血型库存
type CompatibleStock struct {
	BloodType      string `json:"blood_type"`
	UnitsAvailable int    `json:"units_available"`
}

// EmergencyCreateResponse 提交结果：是否可满足 + 兼容血型备选
type EmergencyCreateResponse struct {
	Request         EmergencyResponse `json:"request"`
	IsAvailable     bool              `json:"is_available"`
	UnitsAvailable  int               `json:"units_available"`
	CompatibleTypes []CompatibleStock `json:"compatible_types"`
}

// EmergencyListRequest 紧急申请列表查询参数
type EmergencyListRequest struct {
	PaginationRequest
	HospitalID   string `form:"hospital_id"   binding:"omitempty,uuid"`
	Status       string `form:"status"        binding:"omitempty,oneof=pending fulfilled cancelled"`
	UrgencyLevel string `form:"urgency_level" binding:"omitempty,oneof=low medium high critical"`
	BloodType    string `form:"blood_type"`
}

// EmergencyResponse 紧急申请详情
type EmergencyResponse struct {
	RequestID    string  `json:"request_id"`
	HospitalID   string  `json:"hospital_id"`
	HospitalName string  `json:"hospital_name,omitempty"`
	BloodType    string  `json:"blood_type"`
	UnitsNeeded  int     `json:"units_needed"`
	UrgencyLevel string  `json:"urgency_level"`
	Status       string  `json:"status"`
	PatientName  string  `json:"patient_name"`
	ContactName  string  `json:"contact_name"`
	ContactPhone string  `json:"contact_phone"`
	ContactEmail string  `json:"contact_email"`
	Reason       string  `json:"reason"`
	FulfilledAt  *string `json:"fulfilled_at,omitempty"`
	CreatedAt    string  `json:"created_at"`
}
