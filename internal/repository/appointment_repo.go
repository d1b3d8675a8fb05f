package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
)

// 占用时段的状态条件（与部分唯一索引的 WHERE 子句一致）
const activeAppointmentCond = "status NOT IN ('cancelled', 'completed')"

// AppointmentFilter 预约列表过滤条件
type AppointmentFilter struct {
	DonorID    string
	HospitalID string
	Status     string
	DateFrom   *time.Time
	DateTo     *time.Time
}

// AppointmentRepository 预约数据访问接口
type AppointmentRepository interface {
	Create(ctx context.Context, appt *model.Appointment) error
	GetByID(ctx context.Context, id string) (*model.Appointment, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.Appointment, error)
	HasActiveSlot(ctx context.Context, hospitalID string, date time.Time, clock, excludeID string) (bool, error)
	HasActiveDonorDay(ctx context.Context, donorID string, date time.Time, excludeID string) (bool, error)
	UpdateStatus(ctx context.Context, id, status string) error
	Reschedule(ctx context.Context, id string, date time.Time, clock, notes string) error
	List(ctx context.Context, filter AppointmentFilter, page Page) ([]model.Appointment, int64, error)
	CountByStatus(ctx context.Context, hospitalID string) (map[string]int64, error)
	NextForDonor(ctx context.Context, donorID string, from time.Time) (*model.Appointment, error)
}

type appointmentRepo struct {
	db *gorm.DB
}

// NewAppointmentRepo 创建 AppointmentRepository 实例
func NewAppointmentRepo(db *gorm.DB) AppointmentRepository {
	return &appointmentRepo{db: db}
}

func (r *appointmentRepo) Create(ctx context.Context, appt *model.Appointment) error {
	return r.db.WithContext(ctx).Omit("Donor", "Hospital").Create(appt).Error
}

func (r *appointmentRepo) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	var appt model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Donor").
		Preload("Hospital").
		Where("appointment_id = ?", id).
		First(&appt).Error
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// GetByIDForUpdate 行锁读取（必须在事务内调用）
func (r *appointmentRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Appointment, error) {
	var appt model.Appointment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("appointment_id = ?", id).
		First(&appt).Error
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *appointmentRepo) HasActiveSlot(ctx context.Context, hospitalID string, date time.Time, clock, excludeID string) (bool, error) {
	var count int64
	db := r.db.WithContext(ctx).Model(&model.Appointment{}).
		Where("hospital_id = ? AND appointment_date = ? AND appointment_time = ?", hospitalID, model.DateOnly(date), clock).
		Where(activeAppointmentCond)
	if excludeID != "" {
		db = db.Where("appointment_id <> ?", excludeID)
	}
	err := db.Count(&count).Error
	return count > 0, err
}

func (r *appointmentRepo) HasActiveDonorDay(ctx context.Context, donorID string, date time.Time, excludeID string) (bool, error) {
	var count int64
	db := r.db.WithContext(ctx).Model(&model.Appointment{}).
		Where("donor_id = ? AND appointment_date = ?", donorID, model.DateOnly(date)).
		Where(activeAppointmentCond)
	if excludeID != "" {
		db = db.Where("appointment_id <> ?", excludeID)
	}
	err := db.Count(&count).Error
	return count > 0, err
}

func (r *appointmentRepo) UpdateStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).Model(&model.Appointment{}).
		Where("appointment_id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": gorm.Expr("CURRENT_TIMESTAMP")}).Error
}

// Reschedule 原行改期并置为 rescheduled
func (r *appointmentRepo) Reschedule(ctx context.Context, id string, date time.Time, clock, notes string) error {
	updates := map[string]interface{}{
		"appointment_date": model.DateOnly(date),
		"appointment_time": clock,
		"status":           model.AppointmentRescheduled,
		"updated_at":       gorm.Expr("CURRENT_TIMESTAMP"),
	}
	if notes != "" {
		updates["notes"] = notes
	}
	return r.db.WithContext(ctx).Model(&model.Appointment{}).
		Where("appointment_id = ?", id).
		Updates(updates).Error
}

func (r *appointmentRepo) List(ctx context.Context, filter AppointmentFilter, page Page) ([]model.Appointment, int64, error) {
	var appts []model.Appointment
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Appointment{})
	if filter.DonorID != "" {
		db = db.Where("donor_id = ?", filter.DonorID)
	}
	if filter.HospitalID != "" {
		db = db.Where("hospital_id = ?", filter.HospitalID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.DateFrom != nil {
		db = db.Where("appointment_date >= ?", model.DateOnly(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		db = db.Where("appointment_date <= ?", model.DateOnly(*filter.DateTo))
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := page.apply(db).
		Preload("Donor").
		Preload("Hospital").
		Order("appointment_date ASC, appointment_time ASC").
		Find(&appts).Error; err != nil {
		return nil, 0, err
	}

	return appts, total, nil
}

// CountByStatus hospitalID 为空时统计全部医院
func (r *appointmentRepo) CountByStatus(ctx context.Context, hospitalID string) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	db := r.db.WithContext(ctx).Model(&model.Appointment{})
	if hospitalID != "" {
		db = db.Where("hospital_id = ?", hospitalID)
	}
	if err := db.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

// NextForDonor 献血者自 from 日起最近的未终结预约
func (r *appointmentRepo) NextForDonor(ctx context.Context, donorID string, from time.Time) (*model.Appointment, error) {
	var appt model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Hospital").
		Where("donor_id = ? AND appointment_date >= ?", donorID, model.DateOnly(from)).
		Where(activeAppointmentCond).
		Where("status <> ?", model.AppointmentNoShow).
		Order("appointment_date ASC, appointment_time ASC").
		First(&appt).Error
	if err != nil {
		return nil, err
	}
	return &appt, nil
}
