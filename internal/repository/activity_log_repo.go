package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
)

// ActivityLogRepository 审计日志数据访问接口
type ActivityLogRepository interface {
	Create(ctx context.Context, log *model.ActivityLog) error
	ListInventoryHistory(ctx context.Context, hospitalID, bloodType string, page Page) ([]model.ActivityLog, int64, error)
}

type activityLogRepo struct {
	db *gorm.DB
}

// NewActivityLogRepo 创建 ActivityLogRepository 实例
func NewActivityLogRepo(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepo{db: db}
}

func (r *activityLogRepo) Create(ctx context.Context, log *model.ActivityLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// ListInventoryHistory 库存流水，hospitalID 为空时返回全部医院
func (r *activityLogRepo) ListInventoryHistory(ctx context.Context, hospitalID, bloodType string, page Page) ([]model.ActivityLog, int64, error) {
	var logs []model.ActivityLog
	var total int64

	db := r.db.WithContext(ctx).Model(&model.ActivityLog{}).Where("entity_type = ?", "inventory")
	if hospitalID != "" {
		db = db.Where("hospital_id = ?", hospitalID)
	}
	if bloodType != "" {
		db = db.Where("blood_type = ?", bloodType)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := page.apply(db).Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
