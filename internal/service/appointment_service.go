package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Sudeep845/Raktsewa-sub000/internal/dto"
	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
	"github.com/Sudeep845/Raktsewa-sub000/internal/repository"
	pkgerrors "github.com/Sudeep845/Raktsewa-sub000/pkg/errors"
	"github.com/Sudeep845/Raktsewa-sub000/pkg/metrics"
)

// MaxBookingAheadMonths 最远可预约月数
const MaxBookingAheadMonths = 6

// ── 预约模块业务错误 ──

var (
	ErrAppointmentNotFound          = errors.New("预约不存在")
	ErrSlotTaken                    = errors.New("该时段已被预约")
	ErrDonorDayTaken                = errors.New("当天已有其他有效预约")
	ErrAppointmentInPast            = errors.New("预约时间必须晚于当前时间")
	ErrAppointmentTooFar            = errors.New("预约时间不能超过 6 个月")
	ErrDonorNotEligible             = errors.New("当前不符合献血条件")
	ErrInvalidAppointmentTransition = errors.New("当前预约状态不允许该操作")
)

// IneligibleError 携带不符合条件的具体原因
type IneligibleError struct {
	Reasons []string
}

func (e *IneligibleError) Error() string {
	if len(e.Reasons) == 0 {
		return ErrDonorNotEligible.Error()
	}
	return ErrDonorNotEligible.Error() + ": " + strings.Join(e.Reasons, "; ")
}

func (e *IneligibleError) Unwrap() error { return ErrDonorNotEligible }

// AppointmentService 预约业务接口
type AppointmentService interface {
	Create(ctx context.Context, caller Caller, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	Get(ctx context.Context, caller Caller, id string) (*dto.AppointmentResponse, error)
	List(ctx context.Context, caller Caller, req *dto.AppointmentListRequest) ([]dto.AppointmentResponse, int64, error)
	UpdateStatus(ctx context.Context, caller Caller, id string, req *dto.UpdateAppointmentStatusRequest) (*dto.AppointmentResponse, error)
	Reschedule(ctx context.Context, caller Caller, id string, req *dto.RescheduleAppointmentRequest) (*dto.AppointmentResponse, error)
}

type appointmentService struct {
	repo   *repository.Repository
	clock  clock
	fx     sideEffects
	logger *zap.Logger
}

// NewAppointmentService 创建 AppointmentService 实例
func NewAppointmentService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) AppointmentService {
	return &appointmentService{
		repo:   repo,
		clock:  newClock(loc),
		fx:     sideEffects{repo: repo, logger: logger},
		logger: logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *appointmentService) Create(ctx context.Context, caller Caller, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	if !caller.IsDonor() {
		return nil, ErrNoPermission
	}

	// 1. 日期时间：严格晚于当前，且不超过 6 个月
	date, clockStr, err := s.validateSlot(req.AppointmentDate, req.AppointmentTime)
	if err != nil {
		return nil, err
	}

	// 2. 献血者：启用、资格实时评估
	donor, err := findUser(ctx, s.repo, s.logger, caller.UserID)
	if err != nil {
		return nil, err
	}
	if !donor.IsActive {
		return nil, ErrAccountDisabled
	}
	if donor.Role != model.RoleDonor {
		return nil, ErrNoPermission
	}
	_, result, err := evaluateDonor(ctx, s.repo, donor, s.clock)
	if err != nil {
		s.logger.Error("评估献血资格失败", zap.String("donor_id", donor.UserID), zap.Error(err))
		return nil, err
	}
	if !result.IsEligible {
		return nil, &IneligibleError{Reasons: result.Reasons}
	}

	bloodType := req.BloodType
	if bloodType == "" {
		bloodType = donor.BloodTypeValue()
	}
	if !model.IsValidBloodType(bloodType) {
		v := pkgerrors.NewValidationError()
		v.Add("blood_type", "血型无效")
		return nil, v
	}

	// 3. 医院：已审核且启用
	hospital, err := s.repo.Hospital.GetByID(ctx, req.HospitalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHospitalNotFound
		}
		s.logger.Error("查询医院失败", zap.String("hospital_id", req.HospitalID), zap.Error(err))
		return nil, err
	}
	if !hospital.CanOperate() {
		return nil, ErrHospitalUnavailable
	}

	// 4. 冲突预检查（最终由部分唯一索引兜底）
	if err := s.checkConflicts(ctx, hospital.HospitalID, donor.UserID, date, clockStr, ""); err != nil {
		return nil, err
	}

	appt := &model.Appointment{
		DonorID:         donor.UserID,
		HospitalID:      hospital.HospitalID,
		AppointmentDate: date,
		AppointmentTime: clockStr,
		BloodType:       bloodType,
		Status:          model.AppointmentScheduled,
		Notes:           strings.TrimSpace(req.Notes),
	}
	if err := s.repo.Appointment.Create(ctx, appt); err != nil {
		if mapped := mapUniqueViolation(err); mapped != err {
			metrics.AppointmentConflicts.Inc()
			return nil, mapped
		}
		s.logger.Error("创建预约失败", zap.String("donor_id", donor.UserID), zap.Error(err))
		return nil, err
	}
	appt.Donor = donor
	appt.Hospital = hospital
	metrics.AppointmentTransitions.WithLabelValues(model.AppointmentScheduled).Inc()

	s.fx.notify(ctx, donor.UserID, model.NotificationAppointment, "预约成功",
		fmt.Sprintf("您已预约 %s %s 在 %s 献血。", formatDate(date), clockStr, hospital.HospitalName),
		"appointment", appt.AppointmentID)
	s.fx.notify(ctx, hospital.UserID, model.NotificationAppointment, "新的献血预约",
		fmt.Sprintf("%s 预约了 %s %s。", donor.FullName, formatDate(date), clockStr),
		"appointment", appt.AppointmentID)

	s.logger.Info("预约创建成功",
		zap.String("appointment_id", appt.AppointmentID),
		zap.String("donor_id", donor.UserID),
		zap.String("hospital_id", hospital.HospitalID),
	)
	return toAppointmentResponse(appt), nil
}

// validateSlot 解析并校验预约日期时间
func (s *appointmentService) validateSlot(dateStr, timeStr string) (time.Time, string, error) {
	v := pkgerrors.NewValidationError()
	date, err := parseDate(dateStr)
	if err != nil {
		v.Add("appointment_date", "日期格式应为 YYYY-MM-DD")
	}
	clockStr := model.NormalizeClock(strings.TrimSpace(timeStr))
	clk, err := time.Parse(model.TimeLayout, clockStr)
	if err != nil {
		v.Add("appointment_time", "时间格式应为 HH:MM")
	}
	if err := v.OrNil(); err != nil {
		return time.Time{}, "", err
	}

	now := s.clock.Now()
	y, m, d := date.Date()
	startsAt := time.Date(y, m, d, clk.Hour(), clk.Minute(), 0, 0, s.clock.loc)
	if !startsAt.After(now) {
		return time.Time{}, "", ErrAppointmentInPast
	}
	if date.After(s.clock.Today().AddDate(0, MaxBookingAheadMonths, 0)) {
		return time.Time{}, "", ErrAppointmentTooFar
	}
	return date, clockStr, nil
}

// checkConflicts 时段独占 + 献血者单日唯一
func (s *appointmentService) checkConflicts(ctx context.Context, hospitalID, donorID string, date time.Time, clockStr, excludeID string) error {
	taken, err := s.repo.Appointment.HasActiveSlot(ctx, hospitalID, date, clockStr, excludeID)
	if err != nil {
		s.logger.Error("检查时段冲突失败", zap.Error(err))
		return err
	}
	if taken {
		metrics.AppointmentConflicts.Inc()
		return ErrSlotTaken
	}
	taken, err = s.repo.Appointment.HasActiveDonorDay(ctx, donorID, date, excludeID)
	if err != nil {
		s.logger.Error("检查同日预约失败", zap.Error(err))
		return err
	}
	if taken {
		metrics.AppointmentConflicts.Inc()
		return ErrDonorDayTaken
	}
	return nil
}

// ────────────────────── Get / List ──────────────────────

func (s *appointmentService) Get(ctx context.Context, caller Caller, id string) (*dto.AppointmentResponse, error) {
	appt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(caller, appt) {
		return nil, ErrAppointmentNotFound
	}
	return toAppointmentResponse(appt), nil
}

func (s *appointmentService) List(ctx context.Context, caller Caller, req *dto.AppointmentListRequest) ([]dto.AppointmentResponse, int64, error) {
	filter, err := appointmentFilterFor(caller, req)
	if err != nil {
		return nil, 0, err
	}

	appts, total, err := s.repo.Appointment.List(ctx, filter, repository.Page{Offset: req.GetOffset(), Limit: req.GetPageSize()})
	if err != nil {
		s.logger.Error("查询预约列表失败", zap.Error(err))
		return nil, 0, err
	}
	list := make([]dto.AppointmentResponse, 0, len(appts))
	for i := range appts {
		list = append(list, *toAppointmentResponse(&appts[i]))
	}
	return list, total, nil
}

// ────────────────────── UpdateStatus ──────────────────────

// UpdateStatus 状态流转。
// 献血者只能取消自己的预约；医院只能操作本院预约；管理员不受限。
// completed 在同一事务内写入献血记录、库存 +1、献血者置为暂不可献血。
func (s *appointmentService) UpdateStatus(ctx context.Context, caller Caller, id string, req *dto.UpdateAppointmentStatusRequest) (*dto.AppointmentResponse, error) {
	target := req.Status
	if !model.IsValidAppointmentStatus(target) {
		return nil, ErrInvalidAppointmentTransition
	}

	var appt *model.Appointment
	var donation *model.Donation
	var prevUnits, nextUnits int
	err := s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		a, err := txRepo.Appointment.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAppointmentNotFound
			}
			return err
		}
		if !canView(caller, a) {
			return ErrAppointmentNotFound
		}
		if !canSetStatus(caller, target) {
			return ErrNoPermission
		}
		if err := ensureHospitalOperating(ctx, txRepo, caller); err != nil {
			return err
		}
		if !model.CanTransitionAppointment(a.Status, target) {
			return ErrInvalidAppointmentTransition
		}

		if target == model.AppointmentCompleted {
			hospitalID := a.HospitalID
			appointmentID := a.AppointmentID
			donation = &model.Donation{
				DonorID:       a.DonorID,
				HospitalID:    &hospitalID,
				AppointmentID: &appointmentID,
				BloodType:     a.BloodType,
				DonationDate:  s.clock.Today(),
				UnitsDonated:  1,
				Status:        model.DonationCompleted,
			}
			if err := txRepo.Donation.Create(ctx, donation); err != nil {
				return err
			}
			if prevUnits, nextUnits, err = txRepo.Inventory.Adjust(ctx, a.HospitalID, a.BloodType, 1, model.AdjustAdd); err != nil {
				return err
			}
			if err := txRepo.User.SetEligible(ctx, a.DonorID, false); err != nil {
				return err
			}
		}

		if err := txRepo.Appointment.UpdateStatus(ctx, a.AppointmentID, target); err != nil {
			return err
		}
		a.Status = target
		appt = a
		return nil
	})
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != err {
			return nil, mapped
		}
		if !isAppointmentBusinessError(err) {
			s.logger.Error("更新预约状态失败",
				zap.String("appointment_id", id),
				zap.String("status", target),
				zap.Error(err),
			)
		}
		return nil, err
	}
	metrics.AppointmentTransitions.WithLabelValues(target).Inc()

	// 事务外：审计与通知
	if donation != nil {
		metrics.InventoryAdjustments.WithLabelValues(model.AdjustAdd).Inc()
		s.fx.logActivity(ctx, &model.ActivityLog{
			ActorID:          strPtr(caller.UserID),
			HospitalID:       strPtr(appt.HospitalID),
			EntityType:       "inventory",
			Action:           model.AdjustAdd,
			BloodType:        strPtr(appt.BloodType),
			PreviousQuantity: &prevUnits,
			NewQuantity:      &nextUnits,
			Reason:           "献血完成 " + appt.AppointmentID,
		})
	}
	s.fx.logActivity(ctx, &model.ActivityLog{
		ActorID:    strPtr(caller.UserID),
		HospitalID: strPtr(appt.HospitalID),
		EntityType: "appointment",
		Action:     target,
		Reason:     strings.TrimSpace(req.Notes),
	})
	s.notifyStatus(ctx, caller, appt)

	s.logger.Info("预约状态变更",
		zap.String("appointment_id", appt.AppointmentID),
		zap.String("status", target),
		zap.String("operator", caller.UserID),
	)

	full, err := s.repo.Appointment.GetByID(ctx, appt.AppointmentID)
	if err != nil {
		s.logger.Warn("重新加载预约失败", zap.String("appointment_id", appt.AppointmentID), zap.Error(err))
		return toAppointmentResponse(appt), nil
	}
	return toAppointmentResponse(full), nil
}

// ────────────────────── Reschedule ──────────────────────

// Reschedule 改期：原行更新日期时间并置为 rescheduled，冲突检查排除自身
func (s *appointmentService) Reschedule(ctx context.Context, caller Caller, id string, req *dto.RescheduleAppointmentRequest) (*dto.AppointmentResponse, error) {
	date, clockStr, err := s.validateSlot(req.AppointmentDate, req.AppointmentTime)
	if err != nil {
		return nil, err
	}

	var appt *model.Appointment
	err = s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		a, err := txRepo.Appointment.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAppointmentNotFound
			}
			return err
		}
		if !canView(caller, a) {
			return ErrAppointmentNotFound
		}
		if caller.IsHospital() {
			return ErrNoPermission
		}
		if !model.CanTransitionAppointment(a.Status, model.AppointmentRescheduled) {
			return ErrInvalidAppointmentTransition
		}

		hospital, err := txRepo.Hospital.GetByID(ctx, a.HospitalID)
		if err != nil {
			return err
		}
		if !hospital.CanOperate() {
			return ErrHospitalUnavailable
		}

		if taken, err := txRepo.Appointment.HasActiveSlot(ctx, a.HospitalID, date, clockStr, a.AppointmentID); err != nil {
			return err
		} else if taken {
			metrics.AppointmentConflicts.Inc()
			return ErrSlotTaken
		}
		if taken, err := txRepo.Appointment.HasActiveDonorDay(ctx, a.DonorID, date, a.AppointmentID); err != nil {
			return err
		} else if taken {
			metrics.AppointmentConflicts.Inc()
			return ErrDonorDayTaken
		}

		notes := strings.TrimSpace(req.Notes)
		if err := txRepo.Appointment.Reschedule(ctx, a.AppointmentID, date, clockStr, notes); err != nil {
			return err
		}
		a.AppointmentDate = date
		a.AppointmentTime = clockStr
		a.Status = model.AppointmentRescheduled
		if notes != "" {
			a.Notes = notes
		}
		a.Hospital = hospital
		appt = a
		return nil
	})
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != err {
			metrics.AppointmentConflicts.Inc()
			return nil, mapped
		}
		if !isAppointmentBusinessError(err) {
			s.logger.Error("预约改期失败", zap.String("appointment_id", id), zap.Error(err))
		}
		return nil, err
	}
	metrics.AppointmentTransitions.WithLabelValues(model.AppointmentRescheduled).Inc()

	s.notifyStatus(ctx, caller, appt)
	s.logger.Info("预约已改期",
		zap.String("appointment_id", appt.AppointmentID),
		zap.String("date", formatDate(date)),
		zap.String("time", clockStr),
	)
	return toAppointmentResponse(appt), nil
}

// ── 辅助函数 ──

func (s *appointmentService) getAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	appt, err := s.repo.Appointment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("查询预约失败", zap.String("appointment_id", id), zap.Error(err))
		return nil, err
	}
	return appt, nil
}

// notifyStatus 通知对方：献血者操作通知医院，其余通知献血者
func (s *appointmentService) notifyStatus(ctx context.Context, caller Caller, appt *model.Appointment) {
	title := "预约状态更新"
	content := fmt.Sprintf("预约 %s %s 状态变更为 %s。",
		formatDate(appt.AppointmentDate), model.NormalizeClock(appt.AppointmentTime), appt.Status)

	if caller.IsDonor() {
		hospitalUserID := ""
		if appt.Hospital != nil {
			hospitalUserID = appt.Hospital.UserID
		} else if h, err := s.repo.Hospital.GetByID(ctx, appt.HospitalID); err == nil {
			hospitalUserID = h.UserID
		}
		s.fx.notify(ctx, hospitalUserID, model.NotificationAppointment, title, content, "appointment", appt.AppointmentID)
		return
	}
	s.fx.notify(ctx, appt.DonorID, model.NotificationAppointment, title, content, "appointment", appt.AppointmentID)
}

// appointmentFilterFor 按调用者角色限定查询范围并解析日期过滤
func appointmentFilterFor(caller Caller, req *dto.AppointmentListRequest) (repository.AppointmentFilter, error) {
	filter := repository.AppointmentFilter{Status: req.Status}
	switch {
	case caller.IsDonor():
		filter.DonorID = caller.UserID
	case caller.IsHospital():
		if caller.HospitalID == "" {
			return filter, ErrNoPermission
		}
		filter.HospitalID = caller.HospitalID
	case caller.IsAdmin():
		filter.HospitalID = req.HospitalID
	default:
		return filter, ErrNoPermission
	}

	v := pkgerrors.NewValidationError()
	if req.DateFrom != "" {
		if d, err := parseDate(req.DateFrom); err != nil {
			v.Add("date_from", "日期格式应为 YYYY-MM-DD")
		} else {
			filter.DateFrom = &d
		}
	}
	if req.DateTo != "" {
		if d, err := parseDate(req.DateTo); err != nil {
			v.Add("date_to", "日期格式应为 YYYY-MM-DD")
		} else {
			filter.DateTo = &d
		}
	}
	return filter, v.OrNil()
}

// canView 献血者看自己的，医院看本院的，管理员看全部
func canView(caller Caller, appt *model.Appointment) bool {
	switch {
	case caller.IsAdmin():
		return true
	case caller.IsDonor():
		return appt.DonorID == caller.UserID
	case caller.IsHospital():
		return caller.HospitalID != "" && appt.HospitalID == caller.HospitalID
	}
	return false
}

// canSetStatus 角色允许设置的目标状态
func canSetStatus(caller Caller, target string) bool {
	switch {
	case caller.IsAdmin():
		return true
	case caller.IsDonor():
		return target == model.AppointmentCancelled
	case caller.IsHospital():
		switch target {
		case model.AppointmentConfirmed, model.AppointmentCompleted,
			model.AppointmentNoShow, model.AppointmentCancelled:
			return true
		}
	}
	return false
}

func isAppointmentBusinessError(err error) bool {
	return errors.Is(err, ErrAppointmentNotFound) ||
		errors.Is(err, ErrNoPermission) ||
		errors.Is(err, ErrInvalidAppointmentTransition) ||
		errors.Is(err, ErrHospitalUnavailable) ||
		errors.Is(err, ErrSlotTaken) ||
		errors.Is(err, ErrDonorDayTaken)
}

func toAppointmentResponse(a *model.Appointment) *dto.AppointmentResponse {
	resp := &dto.AppointmentResponse{
		AppointmentID:   a.AppointmentID,
		DonorID:         a.DonorID,
		HospitalID:      a.HospitalID,
		AppointmentDate: formatDate(a.AppointmentDate),
		AppointmentTime: model.NormalizeClock(a.AppointmentTime),
		BloodType:       a.BloodType,
		Status:          a.Status,
		Notes:           a.Notes,
		CreatedAt:       formatTime(a.CreatedAt),
	}
	if a.Donor != nil {
		resp.DonorName = a.Donor.FullName
		resp.DonorPhone = a.Donor.Phone
		resp.DonorEmail = a.Donor.Email
	}
	if a.Hospital != nil {
		resp.HospitalName = a.Hospital.HospitalName
		resp.HospitalAddress = a.Hospital.Address
		resp.HospitalCity = a.Hospital.City
		resp.HospitalPhone = a.Hospital.Phone
	}
	return resp
}
