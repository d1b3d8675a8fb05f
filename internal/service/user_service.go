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
	"github.com/Sudeep845/Raktsewa-sub000/internal/session"
	pkgerrors "github.com/Sudeep845/Raktsewa-sub000/pkg/errors"
)

// ── 用户模块业务错误 ──

var (
	ErrUserNotFound         = errors.New("用户不存在")
	ErrNoPermission         = errors.New("无权操作")
	ErrCannotDeactivateSelf = errors.New("不能停用自己的账号")
	ErrHospitalAccount      = errors.New("医院账号请通过医院审核接口暂停或恢复")
)

// UserService 用户业务接口
type UserService interface {
	Me(ctx context.Context, userID string) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	SetActive(ctx context.Context, caller Caller, id string, active bool) error
}

type userService struct {
	repo     *repository.Repository
	sessions session.Store
	clock    clock
	logger   *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, sessions session.Store, loc *time.Location, logger *zap.Logger) UserService {
	return &userService{repo: repo, sessions: sessions, clock: newClock(loc), logger: logger}
}

// ────────────────────── Me ──────────────────────

func (s *userService) Me(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// ────────────────────── UpdateProfile ──────────────────────

// UpdateProfile 更新个人资料；献血者修改体重或病史后重新评估并持久化 is_eligible
func (s *userService) UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	v := pkgerrors.NewValidationError()
	if req.Phone != nil && !phonePattern.MatchString(*req.Phone) {
		v.Add("phone", "手机号格式无效")
	}
	if req.MedicalConditions != nil {
		for _, c := range *req.MedicalConditions {
			if !model.IsValidMedicalCondition(c) {
				v.Add("medical_conditions", "未知病史类型: "+c)
			}
		}
	}
	if user.Role != model.RoleDonor && (req.WeightKg != nil || req.MedicalConditions != nil) {
		v.Add("role", "仅献血者可填写体重与病史")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Address != nil {
		user.Address = *req.Address
	}
	if req.City != nil {
		user.City = *req.City
	}
	if req.State != nil {
		user.State = *req.State
	}
	if req.WeightKg != nil {
		user.WeightKg = req.WeightKg
	}
	if req.MedicalConditions != nil {
		user.MedicalConditions = model.StringArray(dedupe(*req.MedicalConditions))
	}

	if user.Role == model.RoleDonor {
		summary, err := s.repo.Donation.SummaryByDonor(ctx, user.UserID)
		if err != nil {
			s.logger.Error("查询献血统计失败", zap.String("user_id", userID), zap.Error(err))
			return nil, err
		}
		result := EvaluateEligibility(eligibilityInputFor(user, summary.LastDonation, s.clock.loc), s.clock.Now())
		user.IsEligible = result.IsEligible
	}

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新用户资料失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return toUserResponse(user), nil
}

// ────────────────────── List ──────────────────────

func (s *userService) List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	users, total, err := s.repo.User.List(ctx, repository.UserFilter{
		Role:     req.Role,
		IsActive: req.IsActive,
		Keyword:  req.Keyword,
	}, repository.Page{Offset: req.GetOffset(), Limit: req.GetPageSize()})
	if err != nil {
		s.logger.Error("查询用户列表失败", zap.Error(err))
		return nil, 0, err
	}

	list := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		list = append(list, *toUserResponse(&users[i]))
	}
	return list, total, nil
}

// ────────────────────── SetActive ──────────────────────

// SetActive 启用 / 停用账号（不做物理删除），停用后立即下线其全部会话。
// 医院账号的启停属于审核状态机，须走 /hospitals/:id/{suspend,reactivate}。
func (s *userService) SetActive(ctx context.Context, caller Caller, id string, active bool) error {
	if !caller.IsAdmin() {
		return ErrNoPermission
	}
	if caller.UserID == id && !active {
		return ErrCannotDeactivateSelf
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == model.RoleHospital {
		return ErrHospitalAccount
	}

	if err := s.repo.User.SetActive(ctx, id, active); err != nil {
		s.logger.Error("更新账号状态失败", zap.String("user_id", id), zap.Error(err))
		return err
	}
	if !active {
		revokeSessions(ctx, s.sessions, s.logger, id)
	}
	s.logger.Info("账号状态变更",
		zap.String("user_id", id),
		zap.Bool("is_active", active),
		zap.String("operator", caller.UserID),
	)
	return nil
}

func (s *userService) getUser(ctx context.Context, id string) (*model.User, error) {
	return findUser(ctx, s.repo, s.logger, id)
}

// findUser 按 ID 查询用户，不存在时返回 ErrUserNotFound
func findUser(ctx context.Context, repo *repository.Repository, logger *zap.Logger, id string) (*model.User, error) {
	user, err := repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		logger.Error("查询用户失败", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// ── 辅助函数 ──

// eligibilityInputFor 由用户资料与上次献血日期构造评估输入
func eligibilityInputFor(user *model.User, lastDonation *time.Time, loc *time.Location) EligibilityInput {
	in := EligibilityInput{
		DateOfBirth:       user.DateOfBirth,
		WeightKg:          user.WeightKg,
		MedicalConditions: user.MedicalConditions,
		BloodType:         user.BloodTypeValue(),
	}
	if lastDonation != nil {
		at := model.AtLocation(*lastDonation, loc)
		in.LastDonation = &at
	}
	return in
}

func toUserResponse(u *model.User) *dto.UserResponse {
	conditions := []string(u.MedicalConditions)
	if conditions == nil {
		conditions = []string{}
	}
	resp := &dto.UserResponse{
		UserID:            u.UserID,
		Username:          u.Username,
		Email:             u.Email,
		Role:              u.Role,
		FullName:          u.FullName,
		Phone:             u.Phone,
		Address:           u.Address,
		City:              u.City,
		State:             u.State,
		DateOfBirth:       formatDatePtr(u.DateOfBirth),
		Gender:            u.Gender,
		BloodType:         u.BloodType,
		WeightKg:          u.WeightKg,
		MedicalConditions: conditions,
		IsEligible:        u.IsEligible,
		IsActive:          u.IsActive,
		CreatedAt:         formatTime(u.CreatedAt),
	}
	if u.Hospital != nil {
		resp.HospitalID = u.Hospital.HospitalID
		resp.HospitalName = u.Hospital.HospitalName
	}
	return resp
}
