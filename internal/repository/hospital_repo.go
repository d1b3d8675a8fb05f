package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
)

// HospitalFilter 医院列表过滤条件
type HospitalFilter struct {
	State   string // pending | approved | rejected | suspended，空表示全部
	City    string
	Keyword string // 匹配 hospital_name / license_number
}

// HospitalRepository 医院数据访问接口
type HospitalRepository interface {
	Create(ctx context.Context, hospital *model.Hospital) error
	GetByID(ctx context.Context, id string) (*model.Hospital, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.Hospital, error)
	GetByUserID(ctx context.Context, userID string) (*model.Hospital, error)
	ExistsByLicense(ctx context.Context, licenseNumber string) (bool, error)
	SetApproval(ctx context.Context, id string, approved, active bool) error
	List(ctx context.Context, filter HospitalFilter, page Page) ([]model.Hospital, int64, error)
	CountByState(ctx context.Context) (map[string]int64, error)
}

type hospitalRepo struct {
	db *gorm.DB
}

// NewHospitalRepo 创建 HospitalRepository 实例
func NewHospitalRepo(db *gorm.DB) HospitalRepository {
	return &hospitalRepo{db: db}
}

func (r *hospitalRepo) Create(ctx context.Context, hospital *model.Hospital) error {
	return r.db.WithContext(ctx).Omit("User").Create(hospital).Error
}

func (r *hospitalRepo) GetByID(ctx context.Context, id string) (*model.Hospital, error) {
	var h model.Hospital
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("hospital_id = ?", id).
		First(&h).Error
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// GetByIDForUpdate 行锁读取（必须在事务内调用）
func (r *hospitalRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Hospital, error) {
	var h model.Hospital
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("hospital_id = ?", id).
		First(&h).Error
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *hospitalRepo) GetByUserID(ctx context.Context, userID string) (*model.Hospital, error) {
	var h model.Hospital
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&h).Error
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *hospitalRepo) ExistsByLicense(ctx context.Context, licenseNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Hospital{}).
		Where("license_number = ?", licenseNumber).
		Count(&count).Error
	return count > 0, err
}

// SetApproval 写入审核标记与启用状态，approved_at 仅在首次通过时记录
func (r *hospitalRepo) SetApproval(ctx context.Context, id string, approved, active bool) error {
	updates := map[string]interface{}{
		"is_approved": approved,
		"is_active":   active,
		"updated_at":  gorm.Expr("CURRENT_TIMESTAMP"),
	}
	if approved {
		updates["approved_at"] = gorm.Expr("COALESCE(approved_at, CURRENT_TIMESTAMP)")
	}
	return r.db.WithContext(ctx).Model(&model.Hospital{}).
		Where("hospital_id = ?", id).
		Updates(updates).Error
}

func (r *hospitalRepo) List(ctx context.Context, filter HospitalFilter, page Page) ([]model.Hospital, int64, error) {
	var hospitals []model.Hospital
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Hospital{})
	if filter.State != "" {
		approved, active := stateFlags(filter.State)
		db = db.Where("is_approved = ? AND is_active = ?", approved, active)
	}
	if filter.City != "" {
		db = db.Where("city ILIKE ?", filter.City)
	}
	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		db = db.Where("hospital_name ILIKE ? OR license_number ILIKE ?", like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := page.apply(db).
		Order("hospital_name ASC").
		Find(&hospitals).Error; err != nil {
		return nil, 0, err
	}

	return hospitals, total, nil
}

func (r *hospitalRepo) CountByState(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		IsApproved bool
		IsActive   bool
		Count      int64
	}
	err := r.db.WithContext(ctx).Model(&model.Hospital{}).
		Select("is_approved, is_active, COUNT(*) AS count").
		Group("is_approved, is_active").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := map[string]int64{
		model.HospitalStatePending:   0,
		model.HospitalStateApproved:  0,
		model.HospitalStateRejected:  0,
		model.HospitalStateSuspended: 0,
	}
	for _, row := range rows {
		out[model.HospitalState(row.IsApproved, row.IsActive)] += row.Count
	}
	return out, nil
}

// stateFlags 审核状态 → (is_approved, is_active)
func stateFlags(state string) (approved, active bool) {
	switch state {
	case model.HospitalStateApproved:
		return true, true
	case model.HospitalStateSuspended:
		return true, false
	case model.HospitalStateRejected:
		return false, false
	default:
		return false, true
	}
}
