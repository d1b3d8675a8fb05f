package model

import "time"

// 预约状态
const (
	AppointmentScheduled   = "scheduled"
	AppointmentConfirmed   = "confirmed"
	AppointmentCompleted   = "completed"
	AppointmentCancelled   = "cancelled"
	AppointmentRescheduled = "rescheduled"
	AppointmentNoShow      = "no_show"
)

// appointmentTransitions 允许的状态流转
var appointmentTransitions = map[string][]string{
	AppointmentScheduled:   {AppointmentConfirmed, AppointmentCancelled, AppointmentRescheduled},
	AppointmentRescheduled: {AppointmentConfirmed, AppointmentCancelled, AppointmentRescheduled},
	AppointmentConfirmed:   {AppointmentCompleted, AppointmentCancelled, AppointmentNoShow},
}

// CanTransitionAppointment from → to 是否合法
func CanTransitionAppointment(from, to string) bool {
	for _, s := range appointmentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsValidAppointmentStatus 是否为合法预约状态
func IsValidAppointmentStatus(s string) bool {
	switch s {
	case AppointmentScheduled, AppointmentConfirmed, AppointmentCompleted,
		AppointmentCancelled, AppointmentRescheduled, AppointmentNoShow:
		return true
	}
	return false
}

// IsActiveAppointmentStatus 是否占用时段（非 cancelled / completed）
func IsActiveAppointmentStatus(s string) bool {
	return s != AppointmentCancelled && s != AppointmentCompleted
}

// Appointment 献血预约表 对应 appointments
type Appointment struct {
	AppointmentID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"appointment_id"`
	DonorID         string    `gorm:"type:uuid;not null"                             json:"donor_id"`
	HospitalID      string    `gorm:"type:uuid;not null"                             json:"hospital_id"`
	AppointmentDate time.Time `gorm:"type:date;not null"                             json:"appointment_date"`
	AppointmentTime string    `gorm:"type:time;not null"                             json:"appointment_time"` // HH:MM[:SS]
	BloodType       string    `gorm:"type:varchar(3);not null"                       json:"blood_type"`
	Status          string    `gorm:"type:varchar(20);not null;default:'scheduled'"  json:"status"`
	Notes           string    `gorm:"type:text;not null;default:''"                  json:"notes"`
	BaseModel

	// 关联
	Donor    *User     `gorm:"foreignKey:DonorID;references:UserID"        json:"donor,omitempty"`
	Hospital *Hospital `gorm:"foreignKey:HospitalID;references:HospitalID" json:"hospital,omitempty"`
}

// TableName 指定表名
func (Appointment) TableName() string { return "appointments" }

// StartsAt 预约开始时刻（按业务时区解释）
func (a *Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	clock, err := time.Parse(TimeLayout, NormalizeClock(a.AppointmentTime))
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := a.AppointmentDate.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc), nil
}
