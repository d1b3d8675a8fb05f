package model

import "time"

// 医院审核状态（由 is_approved 与账号 is_active 推导，不单独存储）
const (
	HospitalStatePending   = "pending"
	HospitalStateApproved  = "approved"
	HospitalStateRejected  = "rejected"
	HospitalStateSuspended = "suspended"
)

// Hospital 医院表 对应 hospitals（与 users 一对一）
type Hospital struct {
	HospitalID    string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"hospital_id"`
	UserID        string     `gorm:"type:uuid;not null"                             json:"user_id"`
	HospitalName  string     `gorm:"type:varchar(200);not null"                     json:"hospital_name"`
	LicenseNumber string     `gorm:"type:varchar(100);not null"                     json:"license_number"`
	Address       string     `gorm:"type:varchar(255);not null;default:''"          json:"address"`
	City          string     `gorm:"type:varchar(100);not null;default:''"          json:"city"`
	State         string     `gorm:"type:varchar(100);not null;default:''"          json:"state"`
	Phone         string     `gorm:"type:varchar(20);not null;default:''"           json:"phone"`
	Email         string     `gorm:"type:varchar(255);not null;default:''"          json:"email"`
	IsApproved    bool       `gorm:"not null;default:false"                         json:"is_approved"`
	IsActive      bool       `gorm:"not null;default:true"                          json:"is_active"` // 镜像 users.is_active
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	BaseModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (Hospital) TableName() string { return "hospitals" }

// HospitalState 由审核标记与账号启用状态推导审核状态
//
//	is_approved=false, active=true  → pending
//	is_approved=true,  active=true  → approved
//	is_approved=false, active=false → rejected
//	is_approved=true,  active=false → suspended
func HospitalState(isApproved, userActive bool) string {
	switch {
	case isApproved && userActive:
		return HospitalStateApproved
	case isApproved && !userActive:
		return HospitalStateSuspended
	case !isApproved && userActive:
		return HospitalStatePending
	default:
		return HospitalStateRejected
	}
}

// ApprovalState 当前审核状态
func (h *Hospital) ApprovalState() string {
	return HospitalState(h.IsApproved, h.IsActive)
}

// CanOperate 医院是否可登录、接收预约与紧急申请
func (h *Hospital) CanOperate() bool {
	return h.IsApproved && h.IsActive
}
