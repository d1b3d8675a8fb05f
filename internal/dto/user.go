package dto

// ── 用户模块 DTO ──

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role     string `form:"role"      binding:"omitempty,oneof=donor hospital admin"`
	IsActive *bool  `form:"is_active"`
	Keyword  string `form:"keyword"   binding:"omitempty,max=50"`
}

// UpdateProfileRequest 更新个人资料（仅修改非 nil 字段）
type UpdateProfileRequest struct {
	FullName          *string   `json:"full_name" binding:"omitempty,min=2,max=100"`
	Phone             *string   `json:"phone"     binding:"omitempty,max=20"`
	Address           *string   `json:"address"   binding:"omitempty,max=255"`
	City              *string   `json:"city"      binding:"omitempty,max=100"`
	State             *string   `json:"state"     binding:"omitempty,max=100"`
	WeightKg          *float64  `json:"weight_kg" binding:"omitempty,gt=0,lt=500"`
	MedicalConditions *[]string `json:"medical_conditions"`
}

// SetUserActiveRequest 启用 / 停用账号
type SetUserActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	UserID            string   `json:"user_id"`
	Username          string   `json:"username"`
	Email             string   `json:"email"`
	Role              string   `json:"role"`
	FullName          string   `json:"full_name"`
	Phone             string   `json:"phone"`
	Address           string   `json:"address"`
	City              string   `json:"city"`
	State             string   `json:"state"`
	DateOfBirth       *string  `json:"date_of_birth,omitempty"`
	Gender            *string  `json:"gender,omitempty"`
	BloodType         *string  `json:"blood_type,omitempty"`
	WeightKg          *float64 `json:"weight_kg,omitempty"`
	MedicalConditions []string `json:"medical_conditions"`
	IsEligible        bool     `json:"is_eligible"`
	IsActive          bool     `json:"is_active"`
	HospitalID        string   `json:"hospital_id,omitempty"`
	HospitalName      string   `json:"hospital_name,omitempty"`
	CreatedAt         string   `json:"created_at"`
}
