package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
)

// BloodTypeTotal 全网按血型汇总的库存
type BloodTypeTotal struct {
	BloodType      string `json:"blood_type"`
	UnitsAvailable int64  `json:"units_available"`
	UnitsRequired  int64  `json:"units_required"`
}

// InventoryRepository 血液库存数据访问接口
type InventoryRepository interface {
	BatchCreate(ctx context.Context, rows []model.BloodInventory) error
	Get(ctx context.Context, hospitalID, bloodType string) (*model.BloodInventory, error)
	ListByHospital(ctx context.Context, hospitalID string) ([]model.BloodInventory, error)
	Adjust(ctx context.Context, hospitalID, bloodType string, amount int, mode string) (prev, next int, err error)
	Decrement(ctx context.Context, hospitalID, bloodType string, units int) (next int, ok bool, err error)
	SetRequired(ctx context.Context, hospitalID, bloodType string, required int) (*model.BloodInventory, error)
	TotalsByBloodType(ctx context.Context) ([]BloodTypeTotal, error)
}

type inventoryRepo struct {
	db *gorm.DB
}

// NewInventoryRepo 创建 InventoryRepository 实例
func NewInventoryRepo(db *gorm.DB) InventoryRepository {
	return &inventoryRepo{db: db}
}

func (r *inventoryRepo) BatchCreate(ctx context.Context, rows []model.BloodInventory) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *inventoryRepo) Get(ctx context.Context, hospitalID, bloodType string) (*model.BloodInventory, error) {
	var inv model.BloodInventory
	err := r.db.WithContext(ctx).
		Where("hospital_id = ? AND blood_type = ?", hospitalID, bloodType).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *inventoryRepo) ListByHospital(ctx context.Context, hospitalID string) ([]model.BloodInventory, error) {
	var rows []model.BloodInventory
	err := r.db.WithContext(ctx).
		Where("hospital_id = ?", hospitalID).
		Order("blood_type ASC").
		Find(&rows).Error
	return rows, err
}

// Adjust 原子调整库存，返回调整前后的数量。
//
// 新值由数据库端表达式计算（subtract 以 GREATEST(0, …) 截断），不存在的行按隐式 0 插入。
// 调整前的数量通过 SELECT … FOR UPDATE 读取，需在事务内调用才能与更新保持一致。
func (r *inventoryRepo) Adjust(ctx context.Context, hospitalID, bloodType string, amount int, mode string) (int, int, error) {
	db := r.db.WithContext(ctx)

	var prev []int
	if err := db.Raw(
		`SELECT units_available FROM blood_inventory WHERE hospital_id = ? AND blood_type = ? FOR UPDATE`,
		hospitalID, bloodType,
	).Scan(&prev).Error; err != nil {
		return 0, 0, err
	}
	previous := 0
	if len(prev) > 0 {
		previous = prev[0]
	}

	var expr string
	insertValue := amount
	switch mode {
	case model.AdjustSet:
		expr = "?"
	case model.AdjustAdd:
		expr = "GREATEST(0, blood_inventory.units_available + ?)"
	case model.AdjustSubtract:
		expr = "GREATEST(0, blood_inventory.units_available - ?)"
		insertValue = 0
	default:
		return 0, 0, fmt.Errorf("unknown adjust mode %q", mode)
	}

	var next []int
	err := db.Raw(`INSERT INTO blood_inventory (hospital_id, blood_type, units_available, units_required)
VALUES (?, ?, ?, 0)
ON CONFLICT (hospital_id, blood_type) DO UPDATE
SET units_available = `+expr+`, updated_at = CURRENT_TIMESTAMP
RETURNING units_available`,
		hospitalID, bloodType, insertValue, amount,
	).Scan(&next).Error
	if err != nil {
		return 0, 0, err
	}
	if len(next) == 0 {
		return 0, 0, gorm.ErrRecordNotFound
	}
	return previous, next[0], nil
}

// Decrement 条件扣减：仅当可用量 ≥ units 时扣减，ok=false 表示库存不足
func (r *inventoryRepo) Decrement(ctx context.Context, hospitalID, bloodType string, units int) (int, bool, error) {
	var next []int
	err := r.db.WithContext(ctx).Raw(`UPDATE blood_inventory
SET units_available = units_available - ?, updated_at = CURRENT_TIMESTAMP
WHERE hospital_id = ? AND blood_type = ? AND units_available >= ?
RETURNING units_available`,
		units, hospitalID, bloodType, units,
	).Scan(&next).Error
	if err != nil {
		return 0, false, err
	}
	if len(next) == 0 {
		return 0, false, nil
	}
	return next[0], true, nil
}

// SetRequired 设置需求量（行不存在时创建）
func (r *inventoryRepo) SetRequired(ctx context.Context, hospitalID, bloodType string, required int) (*model.BloodInventory, error) {
	var inv model.BloodInventory
	err := r.db.WithContext(ctx).Raw(`INSERT INTO blood_inventory (hospital_id, blood_type, units_available, units_required)
VALUES (?, ?, 0, ?)
ON CONFLICT (hospital_id, blood_type) DO UPDATE
SET units_required = EXCLUDED.units_required, updated_at = CURRENT_TIMESTAMP
RETURNING *`,
		hospitalID, bloodType, required,
	).Scan(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// TotalsByBloodType 启用医院的全网库存汇总
func (r *inventoryRepo) TotalsByBloodType(ctx context.Context) ([]BloodTypeTotal, error) {
	var rows []BloodTypeTotal
	err := r.db.WithContext(ctx).
		Table("blood_inventory AS bi").
		Select("bi.blood_type, COALESCE(SUM(bi.units_available), 0) AS units_available, COALESCE(SUM(bi.units_required), 0) AS units_required").
		Joins("JOIN hospitals h ON h.hospital_id = bi.hospital_id").
		Where("h.is_approved = ? AND h.is_active = ?", true, true).
		Group("bi.blood_type").
		Order("bi.blood_type ASC").
		Scan(&rows).Error
	return rows, err
}
