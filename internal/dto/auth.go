package dto

// ── 认证模块 DTO ──

// RegisterRequest 注册请求（donor / hospital 共用，按角色校验必填字段）
type RegisterRequest struct {
	Role            string `json:"role"             binding:"required,oneof=donor hospital"`
	Username        string `json:"username"         binding:"omitempty,min=3,max=50,alphanum"` // 为空时自动生成
	Email           string `json:"email"            binding:"required,email,max=255"`
	Password        string `json:"password"         binding:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password"`
	FullName        string `json:"full_name"        binding:"required,min=2,max=100"`
	Phone           string `json:"phone"            binding:"required,max=20"`
	Address         string `json:"address"          binding:"max=255"`
	City            string `json:"city"             binding:"max=100"`
	State           string `json:"state"            binding:"max=100"`

	// donor
	DateOfBirth       string   `json:"date_of_birth"` // YYYY-MM-DD
	Gender            string   `json:"gender"             binding:"omitempty,oneof=male female other"`
	BloodType         string   `json:"blood_type"`
	WeightKg          *float64 `json:"weight_kg"`
	MedicalConditions []string `json:"medical_conditions"`
	LastDonationDate  string   `json:"last_donation_date"` // YYYY-MM-DD，可选

	// hospital
	HospitalName  string `json:"hospital_name"  binding:"max=200"`
	LicenseNumber string `json:"license_number" binding:"max=100"`
}

// RegisterResponse 注册成功响应
type RegisterResponse struct {
	UserID             string   `json:"user_id"`
	Username           string   `json:"username"`
	Role               string   `json:"role"`
	HospitalID         string   `json:"hospital_id,omitempty"`
	RequiresApproval   bool     `json:"requires_approval"`
	IsEligible         *bool    `json:"is_eligible,omitempty"`
	EligibilityReasons []string `json:"eligibility_reasons,omitempty"`
}

// LoginRequest 登录请求（username 字段接受用户名或邮箱）
type LoginRequest struct {
	Username   string `json:"username"    binding:"required"`
	Password   string `json:"password"    binding:"required"`
	Role       string `json:"role"        binding:"required,oneof=donor hospital admin"`
	RememberMe bool   `json:"remember_me"`
}

// LoginResponse 登录响应（token 同时写入 Cookie）
type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresIn int             `json:"expires_in"` // 秒
	User      SessionUserInfo `json:"user"`
}

// SessionUserInfo 会话中的用户信息
type SessionUserInfo struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
	HospitalID   string `json:"hospital_id,omitempty"`
	HospitalName string `json:"hospital_name,omitempty"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}
