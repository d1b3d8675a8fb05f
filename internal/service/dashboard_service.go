package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Sudeep845/Raktsewa-sub000/internal/dto"
	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
	"github.com/Sudeep845/Raktsewa-sub000/internal/repository"
)

// TrendMonths 献血趋势统计月数（含当月）
const TrendMonths = 6

// DashboardService 仪表盘统计（每次请求实时计算）
type DashboardService interface {
	Get(ctx context.Context, caller Caller) (*dto.DashboardResponse, error)
}

type dashboardService struct {
	repo   *repository.Repository
	clock  clock
	logger *zap.Logger
}

// NewDashboardService 创建 DashboardService 实例
func NewDashboardService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) DashboardService {
	return &dashboardService{repo: repo, clock: newClock(loc), logger: logger}
}

func (s *dashboardService) Get(ctx context.Context, caller Caller) (*dto.DashboardResponse, error) {
	resp := &dto.DashboardResponse{Role: caller.Role}
	var err error
	switch {
	case caller.IsAdmin():
		resp.Admin, err = s.admin(ctx)
	case caller.IsHospital():
		resp.Hospital, err = s.hospital(ctx, caller.HospitalID)
	case caller.IsDonor():
		resp.Donor, err = s.donor(ctx, caller.UserID)
	default:
		return nil, ErrNoPermission
	}
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) && !errors.Is(err, ErrHospitalNotFound) {
			s.logger.Error("统计仪表盘失败", zap.String("role", caller.Role), zap.Error(err))
		}
		return nil, err
	}
	return resp, nil
}

func (s *dashboardService) admin(ctx context.Context) (*dto.AdminDashboard, error) {
	users, err := s.repo.User.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	hospitals, err := s.repo.Hospital.CountByState(ctx)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Donation.Count(ctx, "")
	if err != nil {
		return nil, err
	}
	trend, err := s.trend(ctx, "")
	if err != nil {
		return nil, err
	}
	network, err := networkTotals(ctx, s.repo, s.logger)
	if err != nil {
		return nil, err
	}
	appts, err := s.repo.Appointment.CountByStatus(ctx, "")
	if err != nil {
		return nil, err
	}
	open, err := s.repo.Emergency.CountOpenByUrgency(ctx, "")
	if err != nil {
		return nil, err
	}
	return &dto.AdminDashboard{
		UsersByRole:          users,
		HospitalsByState:     hospitals,
		TotalDonations:       total,
		DonationTrend:        trend,
		NetworkInventory:     network,
		AppointmentsByStatus: appts,
		OpenEmergencies:      open,
	}, nil
}

func (s *dashboardService) hospital(ctx context.Context, hospitalID string) (*dto.HospitalDashboard, error) {
	if hospitalID == "" {
		return nil, ErrNoPermission
	}
	h, err := s.repo.Hospital.GetByID(ctx, hospitalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHospitalNotFound
		}
		return nil, err
	}
	rows, err := s.repo.Inventory.ListByHospital(ctx, hospitalID)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	todays, _, err := s.repo.Appointment.List(ctx, repository.AppointmentFilter{
		HospitalID: hospitalID,
		DateFrom:   &today,
		DateTo:     &today,
	}, repository.Page{Limit: 100})
	if err != nil {
		return nil, err
	}
	tomorrow := today.AddDate(0, 0, 1)
	_, upcoming, err := s.repo.Appointment.List(ctx, repository.AppointmentFilter{
		HospitalID: hospitalID,
		Status:     model.AppointmentScheduled,
		DateFrom:   &tomorrow,
	}, repository.Page{Limit: 1})
	if err != nil {
		return nil, err
	}

	byStatus, err := s.repo.Appointment.CountByStatus(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	open, err := s.repo.Emergency.CountOpenByUrgency(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	trend, err := s.trend(ctx, hospitalID)
	if err != nil {
		return nil, err
	}

	todayList := make([]dto.AppointmentResponse, 0, len(todays))
	for i := range todays {
		if model.IsActiveAppointmentStatus(todays[i].Status) || todays[i].Status == model.AppointmentCompleted {
			todayList = append(todayList, *toAppointmentResponse(&todays[i]))
		}
	}
	return &dto.HospitalDashboard{
		HospitalID:           h.HospitalID,
		HospitalName:         h.HospitalName,
		Inventory:            inventoryItems(rows),
		TodayAppointments:    todayList,
		UpcomingCount:        upcoming,
		AppointmentsByStatus: byStatus,
		OpenEmergencies:      open,
		DonationTrend:        trend,
	}, nil
}

func (s *dashboardService) donor(ctx context.Context, donorID string) (*dto.DonorDashboard, error) {
	user, err := findUser(ctx, s.repo, s.logger, donorID)
	if err != nil {
		return nil, err
	}
	eligibility, _, err := evaluateDonor(ctx, s.repo, user, s.clock)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.Notification.CountUnread(ctx, donorID)
	if err != nil {
		return nil, err
	}

	out := &dto.DonorDashboard{Eligibility: *eligibility, UnreadCount: unread}
	next, err := s.repo.Appointment.NextForDonor(ctx, donorID, s.clock.Today())
	switch {
	case err == nil:
		out.NextAppointment = toAppointmentResponse(next)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	return out, nil
}

// trend 最近 TrendMonths 个月的献血趋势，无数据的月份补 0
func (s *dashboardService) trend(ctx context.Context, hospitalID string) ([]dto.TrendPoint, error) {
	months := lastMonths(s.clock.Today(), TrendMonths)
	since, _ := time.Parse("2006-01", months[0])
	rows, err := s.repo.Donation.MonthlyTrend(ctx, hospitalID, since)
	if err != nil {
		return nil, err
	}
	byMonth := make(map[string]repository.MonthlyCount, len(rows))
	for _, r := range rows {
		byMonth[r.Month] = r
	}
	out := make([]dto.TrendPoint, 0, len(months))
	for _, m := range months {
		r := byMonth[m]
		out = append(out, dto.TrendPoint{Month: m, Count: r.Count, Units: r.Units})
	}
	return out, nil
}

// lastMonths 以 today 所在月为最后一项，按时间顺序返回 n 个 YYYY-MM
func lastMonths(today time.Time, n int) []string {
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = first.AddDate(0, i-(n-1), 0).Format("2006-01")
	}
	return out
}
