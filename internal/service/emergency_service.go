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

// ── 紧急用血模块业务错误 ──

var (
	ErrEmergencyNotFound = errors.New("紧急用血申请不存在")
	ErrEmergencyClosed   = errors.New("该申请已处理或已取消")
	ErrInsufficientStock = errors.New("库存不足，无法完成该申请")
)

// EmergencyService 紧急用血业务接口
type EmergencyService interface {
	Create(ctx context.Context, req *dto.CreateEmergencyRequest) (*dto.EmergencyCreateResponse, error)
	List(ctx context.Context, caller Caller, req *dto.EmergencyListRequest) ([]dto.EmergencyResponse, int64, error)
	Fulfill(ctx context.Context, caller Caller, id string) (*dto.EmergencyResponse, error)
	Cancel(ctx context.Context, caller Caller, id string) (*dto.EmergencyResponse, error)
}

type emergencyService struct {
	repo   *repository.Repository
	clock  clock
	fx     sideEffects
	logger *zap.Logger
}

// NewEmergencyService 创建 EmergencyService 实例
func NewEmergencyService(repo *repository.Repository, logger *zap.Logger) EmergencyService {
	return &emergencyService{
		repo:   repo,
		clock:  newClock(time.UTC),
		fx:     sideEffects{repo: repo, logger: logger},
		logger: logger,
	}
}

// ────────────────────── Create ──────────────────────

// Create 公开提交紧急申请，返回目标血型是否可满足及本院有库存的兼容血型
func (s *emergencyService) Create(ctx context.Context, req *dto.CreateEmergencyRequest) (*dto.EmergencyCreateResponse, error) {
	v := pkgerrors.NewValidationError()
	if !model.IsValidBloodType(req.BloodType) {
		v.Add("blood_type", "血型无效")
	}
	if req.UnitsNeeded <= 0 {
		v.Add("units_needed", "需求数量必须大于 0")
	}
	if !model.IsValidUrgency(req.UrgencyLevel) {
		v.Add("urgency_level", "紧急程度应为 low / medium / high / critical")
	}
	if !phonePattern.MatchString(strings.TrimSpace(req.ContactPhone)) {
		v.Add("contact_phone", "联系电话格式无效")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

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

	er := &model.EmergencyRequest{
		HospitalID:   hospital.HospitalID,
		BloodType:    req.BloodType,
		UnitsNeeded:  req.UnitsNeeded,
		UrgencyLevel: req.UrgencyLevel,
		Status:       model.EmergencyPending,
		PatientName:  strings.TrimSpace(req.PatientName),
		ContactName:  strings.TrimSpace(req.ContactName),
		ContactPhone: strings.TrimSpace(req.ContactPhone),
		ContactEmail: strings.ToLower(strings.TrimSpace(req.ContactEmail)),
		Reason:       strings.TrimSpace(req.Reason),
	}
	if err := s.repo.Emergency.Create(ctx, er); err != nil {
		s.logger.Error("创建紧急申请失败", zap.String("hospital_id", hospital.HospitalID), zap.Error(err))
		return nil, err
	}
	er.Hospital = hospital
	metrics.EmergencyRequests.WithLabelValues(er.UrgencyLevel).Inc()

	// 库存可用性 + 兼容血型备选
	rows, err := s.repo.Inventory.ListByHospital(ctx, hospital.HospitalID)
	if err != nil {
		s.logger.Error("查询库存失败", zap.String("hospital_id", hospital.HospitalID), zap.Error(err))
		return nil, err
	}
	available, compatible := matchStock(rows, req.BloodType)

	s.fx.notify(ctx, hospital.UserID, model.NotificationEmergency,
		fmt.Sprintf("紧急用血申请（%s）", er.UrgencyLevel),
		fmt.Sprintf("需要 %s 血 %d 单位，联系人 %s %s。", er.BloodType, er.UnitsNeeded, er.ContactName, er.ContactPhone),
		"emergency_request", er.RequestID)

	s.logger.Info("紧急申请已提交",
		zap.String("request_id", er.RequestID),
		zap.String("hospital_id", hospital.HospitalID),
		zap.String("blood_type", er.BloodType),
		zap.String("urgency", er.UrgencyLevel),
	)
	return &dto.EmergencyCreateResponse{
		Request:         *toEmergencyResponse(er),
		IsAvailable:     available >= er.UnitsNeeded,
		UnitsAvailable:  available,
		CompatibleTypes: compatible,
	}, nil
}

// matchStock 返回目标血型可用量，以及其他有库存的兼容献血血型
func matchStock(rows []model.BloodInventory, recipient string) (int, []dto.CompatibleStock) {
	stock := make(map[string]int, len(rows))
	for _, r := range rows {
		stock[r.BloodType] = r.UnitsAvailable
	}
	compatible := make([]dto.CompatibleStock, 0)
	for _, bt := range model.CompatibleDonorTypes(recipient) {
		if bt == recipient || stock[bt] <= 0 {
			continue
		}
		compatible = append(compatible, dto.CompatibleStock{BloodType: bt, UnitsAvailable: stock[bt]})
	}
	return stock[recipient], compatible
}

// ────────────────────── List ──────────────────────

func (s *emergencyService) List(ctx context.Context, caller Caller, req *dto.EmergencyListRequest) ([]dto.EmergencyResponse, int64, error) {
	filter := repository.EmergencyFilter{
		Status:       req.Status,
		UrgencyLevel: req.UrgencyLevel,
		BloodType:    req.BloodType,
	}
	switch {
	case caller.IsHospital():
		filter.HospitalID = caller.HospitalID
	case caller.IsAdmin():
		filter.HospitalID = req.HospitalID
	default:
		return nil, 0, ErrNoPermission
	}

	items, total, err := s.repo.Emergency.List(ctx, filter, repository.Page{Offset: req.GetOffset(), Limit: req.GetPageSize()})
	if err != nil {
		s.logger.Error("查询紧急申请失败", zap.Error(err))
		return nil, 0, err
	}
	list := make([]dto.EmergencyResponse, 0, len(items))
	for i := range items {
		list = append(list, *toEmergencyResponse(&items[i]))
	}
	return list, total, nil
}

// ────────────────────── Fulfill / Cancel ──────────────────────

// Fulfill 以条件扣减完成申请：库存不足时整体回滚
func (s *emergencyService) Fulfill(ctx context.Context, caller Caller, id string) (*dto.EmergencyResponse, error) {
	var er *model.EmergencyRequest
	var prev, next int
	err := s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		r, err := s.lockOpen(ctx, txRepo, caller, id)
		if err != nil {
			return err
		}
		remaining, ok, err := txRepo.Inventory.Decrement(ctx, r.HospitalID, r.BloodType, r.UnitsNeeded)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientStock
		}
		prev, next = remaining+r.UnitsNeeded, remaining

		now := s.clock.Now()
		if err := txRepo.Emergency.UpdateStatus(ctx, r.RequestID, model.EmergencyFulfilled, &now); err != nil {
			return err
		}
		r.Status = model.EmergencyFulfilled
		r.FulfilledAt = &now
		er = r
		return nil
	})
	if err != nil {
		if !isEmergencyBusinessError(err) {
			s.logger.Error("完成紧急申请失败", zap.String("request_id", id), zap.Error(err))
		}
		return nil, err
	}
	metrics.InventoryAdjustments.WithLabelValues(model.AdjustSubtract).Inc()

	s.fx.logActivity(ctx, &model.ActivityLog{
		ActorID:          strPtr(caller.UserID),
		HospitalID:       strPtr(er.HospitalID),
		EntityType:       "inventory",
		Action:           model.AdjustSubtract,
		BloodType:        strPtr(er.BloodType),
		PreviousQuantity: &prev,
		NewQuantity:      &next,
		Reason:           "紧急申请出库 " + er.RequestID,
	})
	s.logger.Info("紧急申请已完成",
		zap.String("request_id", er.RequestID),
		zap.Int("units", er.UnitsNeeded),
		zap.Int("remaining", next),
	)
	return toEmergencyResponse(er), nil
}

func (s *emergencyService) Cancel(ctx context.Context, caller Caller, id string) (*dto.EmergencyResponse, error) {
	var er *model.EmergencyRequest
	err := s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		r, err := s.lockOpen(ctx, txRepo, caller, id)
		if err != nil {
			return err
		}
		if err := txRepo.Emergency.UpdateStatus(ctx, r.RequestID, model.EmergencyCancelled, nil); err != nil {
			return err
		}
		r.Status = model.EmergencyCancelled
		er = r
		return nil
	})
	if err != nil {
		if !isEmergencyBusinessError(err) {
			s.logger.Error("取消紧急申请失败", zap.String("request_id", id), zap.Error(err))
		}
		return nil, err
	}
	s.logger.Info("紧急申请已取消", zap.String("request_id", er.RequestID), zap.String("operator", caller.UserID))
	return toEmergencyResponse(er), nil
}

// lockOpen 锁定待处理申请，校验归属与本院运营状态
func (s *emergencyService) lockOpen(ctx context.Context, txRepo *repository.Repository, caller Caller, id string) (*model.EmergencyRequest, error) {
	if !caller.IsAdmin() && !caller.IsHospital() {
		return nil, ErrNoPermission
	}
	r, err := txRepo.Emergency.GetByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmergencyNotFound
		}
		return nil, err
	}
	if caller.IsHospital() && r.HospitalID != caller.HospitalID {
		return nil, ErrEmergencyNotFound
	}
	if err := ensureHospitalOperating(ctx, txRepo, caller); err != nil {
		return nil, err
	}
	if r.Status != model.EmergencyPending {
		return nil, ErrEmergencyClosed
	}
	return r, nil
}

func isEmergencyBusinessError(err error) bool {
	return errors.Is(err, ErrEmergencyNotFound) ||
		errors.Is(err, ErrEmergencyClosed) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrHospitalUnavailable) ||
		errors.Is(err, ErrNoPermission)
}

func toEmergencyResponse(r *model.EmergencyRequest) *dto.EmergencyResponse {
	resp := &dto.EmergencyResponse{
		RequestID:    r.RequestID,
		HospitalID:   r.HospitalID,
		BloodType:    r.BloodType,
		UnitsNeeded:  r.UnitsNeeded,
		UrgencyLevel: r.UrgencyLevel,
		Status:       r.Status,
		PatientName:  r.PatientName,
		ContactName:  r.ContactName,
		ContactPhone: r.ContactPhone,
		ContactEmail: r.ContactEmail,
		Reason:       r.Reason,
		FulfilledAt:  formatTimePtr(r.FulfilledAt),
		CreatedAt:    formatTime(r.CreatedAt),
	}
	if r.Hospital != nil {
		resp.HospitalName = r.Hospital.HospitalName
	}
	return resp
}
