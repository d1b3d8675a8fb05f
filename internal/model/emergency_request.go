package model

import "time"

// 紧急程度
const (
	UrgencyLow      = "low"
	UrgencyMedium   = "medium"
	UrgencyHigh     = "high"
	UrgencyCritical = "critical"
)

// 紧急申请状态
const (
	EmergencyPending   = "pending"
	EmergencyFulfilled = "fulfilled"
	EmergencyCancelled = "cancelled"
)

// IsValidUrgency 是否为合法紧急程度
func IsValidUrgency(u string) bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// EmergencyRequest 紧急用血申请表 对应 emergency_requests
type EmergencyRequest struct {
	RequestID    string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"request_id"`
	HospitalID   string     `gorm:"type:uuid;not null"                             json:"hospital_id"`
	BloodType    string     `gorm:"type:varchar(3);not null"                       json:"blood_type"`
	UnitsNeeded  int        `gorm:"not null"                                       json:"units_needed"`
	UrgencyLevel string     `gorm:"type:varchar(10);not null"                      json:"urgency_level"`
	Status       string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	PatientName  string     `gorm:"type:varchar(100);not null;default:''"          json:"patient_name"`
	ContactName  string     `gorm:"type:varchar(100);not null"                     json:"contact_name"`
	ContactPhone string     `gorm:"type:varchar(20);not null"                      json:"contact_phone"`
	ContactEmail string     `gorm:"type:varchar(255);not null;default:''"          json:"contact_email"`
	Reason       string     `gorm:"type:text;not null;default:''"                  json:"reason"`
	FulfilledAt  *time.Time `json:"fulfilled_at,omitempty"`
	BaseModel

	// 关联
	Hospital *Hospital `gorm:"foreignKey:HospitalID;references:HospitalID" json:"hospital,omitempty"`
}

// TableName 指定表名
func (EmergencyRequest) TableName() string { return "emergency_requests" }
