package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Sudeep845/Raktsewa-sub000/internal/dto"
	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
	"github.com/Sudeep845/Raktsewa-sub000/internal/repository"
	pkgerrors "github.com/Sudeep845/Raktsewa-sub000/pkg/errors"
	"github.com/Sudeep845/Raktsewa-sub000/pkg/metrics"
)

// InventoryService 血液库存业务接口
type InventoryService interface {
	Get(ctx context.Context, caller Caller, hospitalID string) (*dto.InventoryResponse, error)
	Adjust(ctx context.Context, caller Caller, req *dto.AdjustInventoryRequest) (*dto.AdjustInventoryResponse, error)
	SetRequired(ctx context.Context, caller Caller, req *dto.SetRequiredRequest) (*dto.InventoryItem, error)
	History(ctx context.Context, caller Caller, req *dto.InventoryHistoryRequest) ([]dto.InventoryHistoryItem, int64, error)
	NetworkTotals(ctx context.Context) ([]dto.NetworkInventoryItem, error)
}

type inventoryService struct {
	repo   *repository.Repository
	fx     sideEffects
	logger *zap.Logger
}

// NewInventoryService 创建 InventoryService 实例
func NewInventoryService(repo *repository.Repository, logger *zap.Logger) InventoryService {
	return &inventoryService{repo: repo, fx: sideEffects{repo: repo, logger: logger}, logger: logger}
}

// resolveHospital 医院账号固定为本院；管理员须显式指定
func resolveHospital(caller Caller, requested string) (string, error) {
	switch {
	case caller.IsHospital():
		if caller.HospitalID == "" {
			return "", ErrNoPermission
		}
		if requested != "" && requested != caller.HospitalID {
			return "", ErrNoPermission
		}
		return caller.HospitalID, nil
	case caller.IsAdmin():
		if requested == "" {
			v := pkgerrors.NewValidationError()
			v.Add("hospital_id", "请指定医院")
			return "", v
		}
		return requested, nil
	}
	return "", ErrNoPermission
}

// ────────────────────── Get ──────────────────────

func (s *inventoryService) Get(ctx context.Context, caller Caller, hospitalID string) (*dto.InventoryResponse, error) {
	id, err := resolveHospital(caller, hospitalID)
	if err != nil {
		return nil, err
	}
	hospital, err := s.repo.Hospital.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHospitalNotFound
		}
		s.logger.Error("查询医院失败", zap.String("hospital_id", id), zap.Error(err))
		return nil, err
	}
	rows, err := s.repo.Inventory.ListByHospital(ctx, id)
	if err != nil {
		s.logger.Error("查询库存失败", zap.String("hospital_id", id), zap.Error(err))
		return nil, err
	}
	items := inventoryItems(rows)
	total := 0
	for _, it := range items {
		total += it.UnitsAvailable
	}
	return &dto.InventoryResponse{
		HospitalID:   hospital.HospitalID,
		HospitalName: hospital.HospitalName,
		TotalUnits:   total,
		Items:        items,
	}, nil
}

// inventoryItems 按规范血型顺序补齐 8 种血型，缺失行按 0 处理
func inventoryItems(rows []model.BloodInventory) []dto.InventoryItem {
	byType := make(map[string]*model.BloodInventory, len(rows))
	for i := range rows {
		byType[rows[i].BloodType] = &rows[i]
	}
	items := make([]dto.InventoryItem, 0, len(model.BloodTypes))
	for _, bt := range model.BloodTypes {
		item := dto.InventoryItem{BloodType: bt, Status: model.StockStatus(0, 0)}
		if row, ok := byType[bt]; ok {
			item.UnitsAvailable = row.UnitsAvailable
			item.UnitsRequired = row.UnitsRequired
			item.Status = row.Status()
			item.UpdatedAt = formatTime(row.UpdatedAt)
		}
		items = append(items, item)
	}
	return items
}

// ────────────────────── Adjust ──────────────────────

// Adjust 库存调整：set 直接赋值、add 累加、subtract 扣减并截断到 0
func (s *inventoryService) Adjust(ctx context.Context, caller Caller, req *dto.AdjustInventoryRequest) (*dto.AdjustInventoryResponse, error) {
	hospitalID, err := resolveHospital(caller, req.HospitalID)
	if err != nil {
		return nil, err
	}

	v := pkgerrors.NewValidationError()
	if !model.IsValidBloodType(req.BloodType) {
		v.Add("blood_type", "血型无效")
	}
	if !model.IsValidAdjustMode(req.Action) {
		v.Add("action", "调整方式应为 set / add / subtract")
	}
	if req.Units == nil {
		v.Add("units", "数量不能为空")
	} else if *req.Units < 0 {
		v.Add("units", "数量不能为负数")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	amount := *req.Units

	var prev, next int
	err = s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		h, err := txRepo.Hospital.GetByID(ctx, hospitalID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrHospitalNotFound
			}
			return err
		}
		if !caller.IsAdmin() && !h.CanOperate() {
			return ErrHospitalUnavailable
		}
		prev, next, err = txRepo.Inventory.Adjust(ctx, hospitalID, req.BloodType, amount, req.Action)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrHospitalNotFound) && !errors.Is(err, ErrHospitalUnavailable) {
			s.logger.Error("库存调整失败",
				zap.String("hospital_id", hospitalID),
				zap.String("blood_type", req.BloodType),
				zap.String("action", req.Action),
				zap.Error(err),
			)
		}
		return nil, err
	}
	metrics.InventoryAdjustments.WithLabelValues(req.Action).Inc()

	s.fx.logActivity(ctx, &model.ActivityLog{
		ActorID:          strPtr(caller.UserID),
		HospitalID:       strPtr(hospitalID),
		EntityType:       "inventory",
		Action:           req.Action,
		BloodType:        strPtr(req.BloodType),
		PreviousQuantity: &prev,
		NewQuantity:      &next,
		Reason:           strings.TrimSpace(req.Reason),
	})

	required := 0
	if inv, err := s.repo.Inventory.Get(ctx, hospitalID, req.BloodType); err == nil {
		required = inv.UnitsRequired
	}

	s.logger.Info("库存已调整",
		zap.String("hospital_id", hospitalID),
		zap.String("blood_type", req.BloodType),
		zap.String("action", req.Action),
		zap.Int("previous", prev),
		zap.Int("current", next),
	)
	return &dto.AdjustInventoryResponse{
		HospitalID:     hospitalID,
		BloodType:      req.BloodType,
		Action:         req.Action,
		PreviousUnits:  prev,
		UnitsAvailable: next,
		Status:         model.StockStatus(next, required),
	}, nil
}

// ────────────────────── SetRequired ──────────────────────

func (s *inventoryService) SetRequired(ctx context.Context, caller Caller, req *dto.SetRequiredRequest) (*dto.InventoryItem, error) {
	hospitalID, err := resolveHospital(caller, req.HospitalID)
	if err != nil {
		return nil, err
	}
	v := pkgerrors.NewValidationError()
	if !model.IsValidBloodType(req.BloodType) {
		v.Add("blood_type", "血型无效")
	}
	if req.UnitsRequired == nil || *req.UnitsRequired < 0 {
		v.Add("units_required", "需求量不能为负数")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	inv, err := s.repo.Inventory.SetRequired(ctx, hospitalID, req.BloodType, *req.UnitsRequired)
	if err != nil {
		s.logger.Error("设置需求量失败", zap.String("hospital_id", hospitalID), zap.Error(err))
		return nil, err
	}
	s.fx.logActivity(ctx, &model.ActivityLog{
		ActorID:     strPtr(caller.UserID),
		HospitalID:  strPtr(hospitalID),
		EntityType:  "inventory",
		Action:      "set_required",
		BloodType:   strPtr(req.BloodType),
		NewQuantity: req.UnitsRequired,
	})
	return &dto.InventoryItem{
		BloodType:      inv.BloodType,
		UnitsAvailable: inv.UnitsAvailable,
		UnitsRequired:  inv.UnitsRequired,
		Status:         inv.Status(),
		UpdatedAt:      formatTime(inv.UpdatedAt),
	}, nil
}

// ────────────────────── History ──────────────────────

func (s *inventoryService) History(ctx context.Context, caller Caller, req *dto.InventoryHistoryRequest) ([]dto.InventoryHistoryItem, int64, error) {
	hospitalID := req.HospitalID
	if !caller.IsAdmin() {
		id, err := resolveHospital(caller, req.HospitalID)
		if err != nil {
			return nil, 0, err
		}
		hospitalID = id
	}

	logs, total, err := s.repo.ActivityLog.ListInventoryHistory(ctx, hospitalID, req.BloodType,
		repository.Page{Offset: req.GetOffset(), Limit: req.GetPageSize()})
	if err != nil {
		s.logger.Error("查询库存流水失败", zap.String("hospital_id", hospitalID), zap.Error(err))
		return nil, 0, err
	}
	list := make([]dto.InventoryHistoryItem, 0, len(logs))
	for _, l := range logs {
		list = append(list, dto.InventoryHistoryItem{
			ActivityLogID:    l.ActivityLogID,
			HospitalID:       derefStr(l.HospitalID),
			ActorID:          derefStr(l.ActorID),
			BloodType:        derefStr(l.BloodType),
			Action:           l.Action,
			PreviousQuantity: l.PreviousQuantity,
			NewQuantity:      l.NewQuantity,
			Reason:           l.Reason,
			CreatedAt:        formatTime(l.CreatedAt),
		})
	}
	return list, total, nil
}

// ────────────────────── NetworkTotals ──────────────────────

// NetworkTotals 全网（已审核且启用的医院）按血型汇总
func (s *inventoryService) NetworkTotals(ctx context.Context) ([]dto.NetworkInventoryItem, error) {
	return networkTotals(ctx, s.repo, s.logger)
}

func networkTotals(ctx context.Context, repo *repository.Repository, logger *zap.Logger) ([]dto.NetworkInventoryItem, error) {
	rows, err := repo.Inventory.TotalsByBloodType(ctx)
	if err != nil {
		logger.Error("查询全网库存失败", zap.Error(err))
		return nil, err
	}
	byType := make(map[string]repository.BloodTypeTotal, len(rows))
	for _, r := range rows {
		byType[r.BloodType] = r
	}
	out := make([]dto.NetworkInventoryItem, 0, len(model.BloodTypes))
	for _, bt := range model.BloodTypes {
		r := byType[bt]
		out = append(out, dto.NetworkInventoryItem{
			BloodType:      bt,
			UnitsAvailable: r.UnitsAvailable,
			UnitsRequired:  r.UnitsRequired,
			Status:         model.StockStatus(int(r.UnitsAvailable), int(r.UnitsRequired)),
		})
	}
	return out, nil
}
