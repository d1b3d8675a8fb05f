package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/Sudeep845/Raktsewa-sub000/config"
	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
	"github.com/Sudeep845/Raktsewa-sub000/internal/repository"
	"github.com/Sudeep845/Raktsewa-sub000/internal/session"
	"github.com/Sudeep845/Raktsewa-sub000/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	User         UserService
	Donor        DonorService
	Appointment  AppointmentService
	Inventory    InventoryService
	Hospital     HospitalService
	Emergency    EmergencyService
	Notification NotificationService
	Dashboard    DashboardService
	Export       ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	store session.Store,
	logger *zap.Logger,
) *Service {
	loc := cfg.Server.Location()
	return &Service{
		Auth:         NewAuthService(repo, jwtMgr, store, loc, logger),
		User:         NewUserService(repo, store, loc, logger),
		Donor:        NewDonorService(repo, loc, logger),
		Appointment:  NewAppointmentService(repo, loc, logger),
		Inventory:    NewInventoryService(repo, logger),
		Hospital:     NewHospitalService(repo, store, logger),
		Emergency:    NewEmergencyService(repo, logger),
		Notification: NewNotificationService(repo, logger),
		Dashboard:    NewDashboardService(repo, loc, logger),
		Export:       NewExportService(repo, loc, logger),
	}
}

// Caller 当前请求的调用者（来自会话）
type Caller struct {
	UserID     string
	Role       string
	HospitalID string
}

// IsAdmin 是否管理员
func (c Caller) IsAdmin() bool { return c.Role == model.RoleAdmin }

// IsHospital 是否医院账号
func (c Caller) IsHospital() bool { return c.Role == model.RoleHospital }

// IsDonor 是否献血者
func (c Caller) IsDonor() bool { return c.Role == model.RoleDonor }

// ── 时间工具 ──

// clock 业务时钟：当前时刻按业务时区表示
type clock struct {
	now func() time.Time
	loc *time.Location
}

func newClock(loc *time.Location) clock {
	if loc == nil {
		loc = time.UTC
	}
	return clock{now: time.Now, loc: loc}
}

// Now 业务时区当前时刻
func (c clock) Now() time.Time { return c.now().In(c.loc) }

// Today 业务时区今天（UTC 零点表示，与 DATE 列比较）
func (c clock) Today() time.Time { return model.DateOnly(c.Now()) }

// parseDate 解析 YYYY-MM-DD，返回 UTC 零点
func parseDate(s string) (time.Time, error) {
	return time.Parse(model.DateLayout, s)
}

// formatDate DATE 列格式化
func formatDate(t time.Time) string { return t.Format(model.DateLayout) }

// formatTime 时间戳格式化
func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func strPtr(s string) *string { return &s }

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
