package dto

// ── 预约模块 DTO ──

// CreateAppointmentRequest 创建预约
type CreateAppointmentRequest struct {
	HospitalID      string `json:"hospital_id"      binding:"required,uuid"`
	AppointmentDate string `json:"appointment_date" binding:"required"` // YYYY-MM-DD
	AppointmentTime string `json:"appointment_time" binding:"required"` // HH:MM
	BloodType       string `json:"blood_type"`                          // 为空时取献血者登记血型
	Notes           string `json:"notes"            binding:"max=500"`
}

// UpdateAppointmentStatusRequest 状态流转
type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=confirmed completed cancelled no_show"`
	Notes  string `json:"notes"  binding:"max=500"`
}

// RescheduleAppointmentRequest 改期
type RescheduleAppointmentRequest struct {
	AppointmentDate string `json:"appointment_date" binding:"required"`
	AppointmentTime string `json:"appointment_time" binding:"required"`
	Notes           string `json:"notes"            binding:"max=500"`
}

// AppointmentListRequest 预约列表查询参数
type AppointmentListRequest struct {
	PaginationRequest
	Status     string `form:"status"      binding:"omitempty,oneof=scheduled confirmed completed cancelled rescheduled no_show"`
	HospitalID string `form:"hospital_id" binding:"omitempty,uuid"` // 仅管理员有效
	DateFrom   string `form:"date_from"`
	DateTo     string `form:"date_to"`
}

// AppointmentResponse 预约详情（含医院与献血者展示字段）
type AppointmentResponse struct {
	AppointmentID   string `json:"appointment_id"`
	DonorID         string `json:"donor_id"`
	DonorName       string `json:"donor_name,omitempty"`
	DonorPhone      string `json:"donor_phone,omitempty"`
	DonorEmail      string `json:"donor_email,omitempty"`
	HospitalID      string `json:"hospital_id"`
	HospitalName    string `json:"hospital_name,omitempty"`
	HospitalAddress string `json:"hospital_address,omitempty"`
	HospitalCity    string `json:"hospital_city,omitempty"`
	HospitalPhone   string `json:"hospital_phone,omitempty"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	BloodType       string `json:"blood_type"`
	Status          string `json:"status"`
	Notes           string `json:"notes"`
	CreatedAt       string `json:"created_at"`
}
