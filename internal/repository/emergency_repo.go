package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
)

// EmergencyFilter 紧急申请列表过滤条件
type EmergencyFilter struct {
	HospitalID   string
	Status       string
	UrgencyLevel string
	BloodType    string
}

// EmergencyRequestRepository 紧急用血申请数据访问接口
type EmergencyRequestRepository interface {
	Create(ctx context.Context, req *model.EmergencyRequest) error
	GetByID(ctx context.Context, id string) (*model.EmergencyRequest, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.EmergencyRequest, error)
	UpdateStatus(ctx context.Context, id, status string, fulfilledAt *time.Time) error
	List(ctx context.Context, filter EmergencyFilter, page Page) ([]model.EmergencyRequest, int64, error)
	CountOpenByUrgency(ctx context.Context, hospitalID string) (map[string]int64, error)
}

type emergencyRequestRepo struct {
	db *gorm.DB
}

// NewEmergencyRequestRepo 创建 EmergencyRequestRepository 实例
func NewEmergencyRequestRepo(db *gorm.DB) EmergencyRequestRepository {
	return &emergencyRequestRepo{db: db}
}

func (r *emergencyRequestRepo) Create(ctx context.Context, req *model.EmergencyRequest) error {
	return r.db.WithContext(ctx).Omit("Hospital").Create(req).Error
}

func (r *emergencyRequestRepo) GetByID(ctx context.Context, id string) (*model.EmergencyRequest, error) {
	var req model.EmergencyRequest
	err := r.db.WithContext(ctx).
		Preload("Hospital").
		Where("request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetByIDForUpdate 行锁读取（必须在事务内调用）
func (r *emergencyRequestRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.EmergencyRequest, error) {
	var req model.EmergencyRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *emergencyRequestRepo) UpdateStatus(ctx context.Context, id, status string, fulfilledAt *time.Time) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
	}
	if fulfilledAt != nil {
		updates["fulfilled_at"] = *fulfilledAt
	}
	return r.db.WithContext(ctx).Model(&model.EmergencyRequest{}).
		Where("request_id = ?", id).
		Updates(updates).Error
}

func (r *emergencyRequestRepo) List(ctx context.Context, filter EmergencyFilter, page Page) ([]model.EmergencyRequest, int64, error) {
	var reqs []model.EmergencyRequest
	var total int64

	db := r.db.WithContext(ctx).Model(&model.EmergencyRequest{})
	if filter.HospitalID != "" {
		db = db.Where("hospital_id = ?", filter.HospitalID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.UrgencyLevel != "" {
		db = db.Where("urgency_level = ?", filter.UrgencyLevel)
	}
	if filter.BloodType != "" {
		db = db.Where("blood_type = ?", filter.BloodType)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// critical 优先，其次按提交时间
	if err := page.apply(db).
		Preload("Hospital").
		Order(`CASE urgency_level WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, created_at DESC`).
		Find(&reqs).Error; err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}

// CountOpenByUrgency 待处理申请按紧急程度计数，hospitalID 为空时统计全部
func (r *emergencyRequestRepo) CountOpenByUrgency(ctx context.Context, hospitalID string) (map[string]int64, error) {
	var rows []struct {
		UrgencyLevel string
		Count        int64
	}
	db := r.db.WithContext(ctx).Model(&model.EmergencyRequest{}).
		Where("status = ?", model.EmergencyPending)
	if hospitalID != "" {
		db = db.Where("hospital_id = ?", hospitalID)
	}
	if err := db.Select("urgency_level, COUNT(*) AS count").Group("urgency_level").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.UrgencyLevel] = row.Count
	}
	return out, nil
}
