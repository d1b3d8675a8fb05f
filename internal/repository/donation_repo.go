package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
)

// DonorSummary 献血者累计献血统计
type DonorSummary struct {
	TotalDonations int64      `json:"total_donations"`
	TotalUnits     int64      `json:"total_units"`
	LastDonation   *time.Time `json:"last_donation_date,omitempty"`
}

// MonthlyCount 按月统计
type MonthlyCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int64  `json:"count"`
	Units int64  `json:"units"`
}

// DonationRepository 献血记录数据访问接口
type DonationRepository interface {
	Create(ctx context.Context, donation *model.Donation) error
	ListByDonor(ctx context.Context, donorID string, page Page) ([]model.Donation, int64, error)
	SummaryByDonor(ctx context.Context, donorID string) (*DonorSummary, error)
	Count(ctx context.Context, hospitalID string) (int64, error)
	MonthlyTrend(ctx context.Context, hospitalID string, since time.Time) ([]MonthlyCount, error)
}

type donationRepo struct {
	db *gorm.DB
}

// NewDonationRepo 创建 DonationRepository 实例
func NewDonationRepo(db *gorm.DB) DonationRepository {
	return &donationRepo{db: db}
}

func (r *donationRepo) Create(ctx context.Context, donation *model.Donation) error {
	return r.db.WithContext(ctx).Omit("Hospital").Create(donation).Error
}

func (r *donationRepo) ListByDonor(ctx context.Context, donorID string, page Page) ([]model.Donation, int64, error) {
	var donations []model.Donation
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Donation{}).Where("donor_id = ?", donorID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := page.apply(db).
		Preload("Hospital").
		Order("donation_date DESC").
		Find(&donations).Error; err != nil {
		return nil, 0, err
	}
	return donations, total, nil
}

func (r *donationRepo) SummaryByDonor(ctx context.Context, donorID string) (*DonorSummary, error) {
	var row struct {
		TotalDonations int64
		TotalUnits     int64
		LastDonation   *time.Time
	}
	err := r.db.WithContext(ctx).Model(&model.Donation{}).
		Select("COUNT(*) AS total_donations, COALESCE(SUM(units_donated), 0) AS total_units, MAX(donation_date) AS last_donation").
		Where("donor_id = ? AND status = ?", donorID, model.DonationCompleted).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &DonorSummary{
		TotalDonations: row.TotalDonations,
		TotalUnits:     row.TotalUnits,
		LastDonation:   row.LastDonation,
	}, nil
}

// Count hospitalID 为空时统计全部
func (r *donationRepo) Count(ctx context.Context, hospitalID string) (int64, error) {
	var count int64
	db := r.db.WithContext(ctx).Model(&model.Donation{})
	if hospitalID != "" {
		db = db.Where("hospital_id = ?", hospitalID)
	}
	err := db.Count(&count).Error
	return count, err
}

// MonthlyTrend 自 since 起按月聚合献血量，hospitalID 为空时统计全部
func (r *donationRepo) MonthlyTrend(ctx context.Context, hospitalID string, since time.Time) ([]MonthlyCount, error) {
	var rows []MonthlyCount
	db := r.db.WithContext(ctx).Model(&model.Donation{}).
		Select("TO_CHAR(donation_date, 'YYYY-MM') AS month, COUNT(*) AS count, COALESCE(SUM(units_donated), 0) AS units").
		Where("donation_date >= ?", model.DateOnly(since))
	if hospitalID != "" {
		db = db.Where("hospital_id = ?", hospitalID)
	}
	err := db.Group("month").Order("month ASC").Scan(&rows).Error
	return rows, err
}
