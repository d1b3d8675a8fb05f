package model

import "time"

// 用户角色
const (
	RoleDonor    = "donor"
	RoleHospital = "hospital"
	RoleAdmin    = "admin"
)

// User 用户表 对应 users（不做物理删除，停用即 is_active=false）
type User struct {
	UserID            string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Username          string      `gorm:"type:varchar(50);not null"                      json:"username"`
	Email             string      `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash      string      `gorm:"type:varchar(255);not null"                     json:"-"`
	Role              string      `gorm:"type:varchar(20);not null"                      json:"role"` // donor | hospital | admin
	FullName          string      `gorm:"type:varchar(100);not null"                     json:"full_name"`
	Phone             string      `gorm:"type:varchar(20);not null;default:''"           json:"phone"`
	Address           string      `gorm:"type:varchar(255);not null;default:''"          json:"address"`
	City              string      `gorm:"type:varchar(100);not null;default:''"          json:"city"`
	State             string      `gorm:"type:varchar(100);not null;default:''"          json:"state"`
	DateOfBirth       *time.Time  `gorm:"type:date"                                      json:"date_of_birth,omitempty"`
	Gender            *string     `gorm:"type:varchar(10)"                               json:"gender,omitempty"`
	BloodType         *string     `gorm:"type:varchar(3)"                                json:"blood_type,omitempty"`
	WeightKg          *float64    `gorm:"type:numeric(5,1)"                              json:"weight_kg,omitempty"`
	MedicalConditions StringArray `gorm:"type:text[];not null;default:'{}'"              json:"medical_conditions"`
	IsEligible        bool        `gorm:"not null;default:false"                         json:"is_eligible"`
	IsActive          bool        `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel

	// 关联（仅 role=hospital 时存在）
	Hospital *Hospital `gorm:"foreignKey:UserID;references:UserID" json:"hospital,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// BloodTypeValue 返回血型（未登记时为空串）
func (u *User) BloodTypeValue() string {
	if u.BloodType == nil {
		return ""
	}
	return *u.BloodType
}
