package model

import "time"

// 献血记录状态
const (
	DonationCompleted = "completed"
)

// Donation 献血记录表 对应 donations
type Donation struct {
	DonationID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"donation_id"`
	DonorID       string    `gorm:"type:uuid;not null"                             json:"donor_id"`
	HospitalID    *string   `gorm:"type:uuid"                                      json:"hospital_id,omitempty"`    // 注册时自报的历史记录为空
	AppointmentID *string   `gorm:"type:uuid"                                      json:"appointment_id,omitempty"` // 唯一
	BloodType     string    `gorm:"type:varchar(3);not null"                       json:"blood_type"`
	DonationDate  time.Time `gorm:"type:date;not null"                             json:"donation_date"`
	UnitsDonated  int       `gorm:"not null;default:1"                             json:"units_donated"`
	Status        string    `gorm:"type:varchar(20);not null;default:'completed'"  json:"status"`
	BaseModel

	// 关联
	Hospital *Hospital `gorm:"foreignKey:HospitalID;references:HospitalID" json:"hospital,omitempty"`
}

// TableName 指定表名
func (Donation) TableName() string { return "donations" }
