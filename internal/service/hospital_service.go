package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Sudeep845/Raktsewa-sub000/internal/dto"
	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
	"github.com/Sudeep845/Raktsewa-sub000/internal/repository"
	"github.com/Sudeep845/Raktsewa-sub000/internal/session"
)

// ── 医院模块业务错误 ──

var (
	ErrHospitalNotFound          = errors.New("医院不存在")
	ErrHospitalUnavailable       = errors.New("医院未通过审核或已停用")
	ErrInvalidHospitalTransition = errors.New("当前医院状态不允许该操作")
)

// 医院审核动作
const (
	HospitalActionApprove    = "approve"
	HospitalActionReject     = "reject"
	HospitalActionSuspend    = "suspend"
	HospitalActionReactivate = "reactivate"
)

// hospitalTransition 审核动作 → 允许的起始状态与目标标记
type hospitalTransition struct {
	from     []string
	approved bool
	active   bool
	title    string
}

var hospitalTransitions = map[string]hospitalTransition{
	HospitalActionApprove: {
		from:     []string{model.HospitalStatePending, model.HospitalStateRejected, model.HospitalStateSuspended},
		approved: true, active: true,
		title: "医院审核已通过",
	},
	HospitalActionReject: {
		from:     []string{model.HospitalStatePending, model.HospitalStateApproved},
		approved: false, active: false,
		title: "医院审核未通过",
	},
	HospitalActionSuspend: {
		from:     []string{model.HospitalStateApproved},
		approved: true, active: false,
		title: "医院账号已暂停",
	},
	HospitalActionReactivate: {
		from:     []string{model.HospitalStateSuspended},
		approved: true, active: true,
		title: "医院账号已恢复",
	},
}

// NextHospitalState 计算审核动作后的状态，动作在当前状态下不允许时返回 false
func NextHospitalState(current, action string) (string, bool) {
	t, ok := hospitalTransitions[action]
	if !ok {
		return "", false
	}
	for _, f := range t.from {
		if f == current {
			return model.HospitalState(t.approved, t.active), true
		}
	}
	return "", false
}

// HospitalService 医院业务接口
type HospitalService interface {
	List(ctx context.Context, req *dto.HospitalListRequest) ([]dto.HospitalResponse, int64, error)
	ListApproved(ctx context.Context, req *dto.HospitalListRequest) ([]dto.HospitalResponse, int64, error)
	Get(ctx context.Context, caller Caller, id string) (*dto.HospitalResponse, error)
	Transition(ctx context.Context, caller Caller, id, action, reason string) (*dto.HospitalResponse, error)
}

type hospitalService struct {
	repo     *repository.Repository
	sessions session.Store
	fx       sideEffects
	logger   *zap.Logger
}

// NewHospitalService 创建 HospitalService 实例
func NewHospitalService(repo *repository.Repository, sessions session.Store, logger *zap.Logger) HospitalService {
	return &hospitalService{repo: repo, sessions: sessions, fx: sideEffects{repo: repo, logger: logger}, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *hospitalService) List(ctx context.Context, req *dto.HospitalListRequest) ([]dto.HospitalResponse, int64, error) {
	hospitals, total, err := s.repo.Hospital.List(ctx, repository.HospitalFilter{
		State:   req.State,
		City:    req.City,
		Keyword: req.Keyword,
	}, repository.Page{Offset: req.GetOffset(), Limit: req.GetPageSize()})
	if err != nil {
		s.logger.Error("查询医院列表失败", zap.Error(err))
		return nil, 0, err
	}
	list := make([]dto.HospitalResponse, 0, len(hospitals))
	for i := range hospitals {
		list = append(list, *toHospitalResponse(&hospitals[i], true))
	}
	return list, total, nil
}

// ListApproved 公开列表：仅返回可预约的医院，不含许可证号等内部字段
func (s *hospitalService) ListApproved(ctx context.Context, req *dto.HospitalListRequest) ([]dto.HospitalResponse, int64, error) {
	hospitals, total, err := s.repo.Hospital.List(ctx, repository.HospitalFilter{
		State:   model.HospitalStateApproved,
		City:    req.City,
		Keyword: req.Keyword,
	}, repository.Page{Offset: req.GetOffset(), Limit: req.GetPageSize()})
	if err != nil {
		s.logger.Error("查询可预约医院失败", zap.Error(err))
		return nil, 0, err
	}
	list := make([]dto.HospitalResponse, 0, len(hospitals))
	for i := range hospitals {
		list = append(list, *toHospitalResponse(&hospitals[i], false))
	}
	return list, total, nil
}

// ────────────────────── Get ──────────────────────

func (s *hospitalService) Get(ctx context.Context, caller Caller, id string) (*dto.HospitalResponse, error) {
	h, err := s.getHospital(ctx, id)
	if err != nil {
		return nil, err
	}
	full := caller.IsAdmin() || (caller.IsHospital() && caller.HospitalID == h.HospitalID)
	if !full && !h.CanOperate() {
		return nil, ErrHospitalNotFound
	}
	return toHospitalResponse(h, full), nil
}

// ────────────────────── Transition ──────────────────────

// Transition 执行审核动作：approve / reject / suspend / reactivate（仅管理员）。
// 医院 is_active 与所属账号 users.is_active 在同一事务内同步；
// 停用类动作提交后下线医院账号的全部会话。
func (s *hospitalService) Transition(ctx context.Context, caller Caller, id, action, reason string) (*dto.HospitalResponse, error) {
	if !caller.IsAdmin() {
		return nil, ErrNoPermission
	}
	t, ok := hospitalTransitions[action]
	if !ok {
		return nil, ErrInvalidHospitalTransition
	}

	var hospital *model.Hospital
	err := s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		h, err := txRepo.Hospital.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrHospitalNotFound
			}
			return err
		}
		if _, ok := NextHospitalState(h.ApprovalState(), action); !ok {
			return ErrInvalidHospitalTransition
		}

		if err := txRepo.Hospital.SetApproval(ctx, h.HospitalID, t.approved, t.active); err != nil {
			return err
		}
		if err := txRepo.User.SetActive(ctx, h.UserID, t.active); err != nil {
			return err
		}
		h.IsApproved = t.approved
		h.IsActive = t.active
		hospital = h
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrHospitalNotFound) && !errors.Is(err, ErrInvalidHospitalTransition) {
			s.logger.Error("医院审核操作失败",
				zap.String("hospital_id", id),
				zap.String("action", action),
				zap.Error(err),
			)
		}
		return nil, err
	}
	if !t.active {
		revokeSessions(ctx, s.sessions, s.logger, hospital.UserID)
	}

	content := fmt.Sprintf("%s 当前状态：%s。", hospital.HospitalName, hospital.ApprovalState())
	if reason != "" {
		content += "说明：" + reason
	}
	s.fx.notify(ctx, hospital.UserID, model.NotificationHospital, t.title, content, "hospital", hospital.HospitalID)

	s.logger.Info("医院状态变更",
		zap.String("hospital_id", hospital.HospitalID),
		zap.String("action", action),
		zap.String("state", hospital.ApprovalState()),
		zap.String("operator", caller.UserID),
	)
	return toHospitalResponse(hospital, true), nil
}

// ensureHospitalOperating 医院账号执行写操作前确认本院仍为 approved 状态；非医院调用者直接通过
func ensureHospitalOperating(ctx context.Context, repo *repository.Repository, caller Caller) error {
	if !caller.IsHospital() {
		return nil
	}
	h, err := repo.Hospital.GetByID(ctx, caller.HospitalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrHospitalUnavailable
		}
		return err
	}
	if !h.CanOperate() {
		return ErrHospitalUnavailable
	}
	return nil
}

func (s *hospitalService) getHospital(ctx context.Context, id string) (*model.Hospital, error) {
	h, err := s.repo.Hospital.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHospitalNotFound
		}
		s.logger.Error("查询医院失败", zap.String("hospital_id", id), zap.Error(err))
		return nil, err
	}
	return h, nil
}

// toHospitalResponse full=false 时隐藏内部字段
func toHospitalResponse(h *model.Hospital, full bool) *dto.HospitalResponse {
	resp := &dto.HospitalResponse{
		HospitalID:   h.HospitalID,
		HospitalName: h.HospitalName,
		Address:      h.Address,
		City:         h.City,
		State:        h.State,
		Phone:        h.Phone,
		Email:        h.Email,
		IsApproved:   h.IsApproved,
		IsActive:     h.IsActive,
		Status:       h.ApprovalState(),
		CreatedAt:    formatTime(h.CreatedAt),
	}
	if full {
		resp.UserID = h.UserID
		resp.LicenseNumber = h.LicenseNumber
		resp.ApprovedAt = formatTimePtr(h.ApprovedAt)
	}
	return resp
}
