package model

import "time"

// 通知类型
const (
	NotificationAppointment = "appointment"
	NotificationHospital    = "hospital_status"
	NotificationEmergency   = "emergency_request"
	NotificationInventory   = "inventory"
)

// Notification 站内通知表 对应 notifications（仅记录，不做邮件/短信投递）
type Notification struct {
	NotificationID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	UserID         string  `gorm:"type:uuid;not null"                             json:"user_id"`
	Type           string  `gorm:"type:varchar(50);not null"                      json:"type"`
	Title          string  `gorm:"type:varchar(200);not null"                     json:"title"`
	Content        string  `gorm:"type:text;not null"                             json:"content"`
	IsRead         bool    `gorm:"not null;default:false"                         json:"is_read"`
	RelatedType    *string `gorm:"type:varchar(30)"                               json:"related_type,omitempty"` // appointment | hospital | emergency_request
	RelatedID      *string `gorm:"type:uuid"                                      json:"related_id,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

// ActivityLog 操作审计日志 对应 activity_logs（库存流水等）
type ActivityLog struct {
	ActivityLogID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"activity_log_id"`
	ActorID          *string   `gorm:"type:uuid"                                      json:"actor_id,omitempty"`
	HospitalID       *string   `gorm:"type:uuid"                                      json:"hospital_id,omitempty"`
	EntityType       string    `gorm:"type:varchar(30);not null"                      json:"entity_type"` // inventory | appointment | hospital
	Action           string    `gorm:"type:varchar(30);not null"                      json:"action"`
	BloodType        *string   `gorm:"type:varchar(3)"                                json:"blood_type,omitempty"`
	PreviousQuantity *int      `json:"previous_quantity,omitempty"`
	NewQuantity      *int      `json:"new_quantity,omitempty"`
	Reason           string    `gorm:"type:varchar(500);not null;default:''"          json:"reason"`
	CreatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (ActivityLog) TableName() string { return "activity_logs" }
