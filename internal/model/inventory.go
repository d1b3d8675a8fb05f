package model

// 库存调整方式
const (
	AdjustSet      = "set"
	AdjustAdd      = "add"
	AdjustSubtract = "subtract"
)

// 库存状态（报表用，推导不存储）
const (
	StockEmpty  = "empty"
	StockLow    = "low"
	StockNormal = "normal"
	StockHigh   = "high"
)

// BloodInventory 血液库存表 对应 blood_inventory，(hospital_id, blood_type) 唯一
type BloodInventory struct {
	InventoryID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"inventory_id"`
	HospitalID     string `gorm:"type:uuid;not null"                             json:"hospital_id"`
	BloodType      string `gorm:"type:varchar(3);not null"                       json:"blood_type"`
	UnitsAvailable int    `gorm:"not null;default:0"                             json:"units_available"`
	UnitsRequired  int    `gorm:"not null;default:0"                             json:"units_required"`
	BaseModel
}

// TableName 指定表名
func (BloodInventory) TableName() string { return "blood_inventory" }

// Status 当前库存状态
func (b *BloodInventory) Status() string {
	return StockStatus(b.UnitsAvailable, b.UnitsRequired)
}

// StockStatus 按可用量与需求量推导库存状态
//
// 0 → empty；available < required → low；available ≥ 2×required → high；其余 normal。
func StockStatus(available, required int) string {
	switch {
	case available <= 0:
		return StockEmpty
	case available < required:
		return StockLow
	case available >= 2*required:
		return StockHigh
	default:
		return StockNormal
	}
}

// IsValidAdjustMode 是否为合法调整方式
func IsValidAdjustMode(mode string) bool {
	return mode == AdjustSet || mode == AdjustAdd || mode == AdjustSubtract
}
