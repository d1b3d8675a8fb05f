package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Sudeep845/Raktsewa-sub000/internal/dto"
	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
	"github.com/Sudeep845/Raktsewa-sub000/internal/repository"
	"github.com/Sudeep845/Raktsewa-sub000/internal/session"
	pkgerrors "github.com/Sudeep845/Raktsewa-sub000/pkg/errors"
	"github.com/Sudeep845/Raktsewa-sub000/pkg/jwt"
)

// ── 认证模块业务错误 ──

var (
	ErrInvalidCredentials  = errors.New("用户名或密码错误")
	ErrAccountDisabled     = errors.New("账号已停用")
	ErrHospitalNotApproved = errors.New("医院尚未通过审核")
	ErrUsernameExists      = errors.New("用户名已被使用")
	ErrEmailExists         = errors.New("邮箱已被注册")
	ErrLicenseExists       = errors.New("执业许可证号已被注册")
	ErrWrongOldPassword    = errors.New("原密码错误")
	ErrSamePassword        = errors.New("新密码不能与原密码相同")
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\- ]{6,18}$`)

// AuthService 认证业务接口
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	Logout(ctx context.Context, sessionID string) error
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error
	CreateAdmin(ctx context.Context, username, email, password string) (created bool, err error)
}

type authService struct {
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	store  session.Store
	clock  clock
	fx     sideEffects
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	store session.Store,
	loc *time.Location,
	logger *zap.Logger,
) AuthService {
	return &authService{
		repo:   repo,
		jwtMgr: jwtMgr,
		store:  store,
		clock:  newClock(loc),
		fx:     sideEffects{repo: repo, logger: logger},
		logger: logger,
	}
}

// ────────────────────── Register ──────────────────────

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	// 1. 按角色校验字段
	today := s.clock.Today()
	var dob, lastDonation *time.Time
	if verr := s.validateRegister(req, today, &dob, &lastDonation); verr.HasErrors() {
		return nil, verr
	}

	// 2. 唯一性预检查（最终由唯一约束兜底）
	if exists, err := s.repo.User.ExistsByEmail(ctx, req.Email); err != nil {
		s.logger.Error("检查邮箱失败", zap.Error(err))
		return nil, err
	} else if exists {
		return nil, ErrEmailExists
	}
	if req.Username == "" {
		name, err := s.generateUsername(ctx, req.Email)
		if err != nil {
			return nil, err
		}
		req.Username = name
	} else if exists, err := s.repo.User.ExistsByUsername(ctx, req.Username); err != nil {
		s.logger.Error("检查用户名失败", zap.Error(err))
		return nil, err
	} else if exists {
		return nil, ErrUsernameExists
	}
	if req.Role == model.RoleHospital {
		if exists, err := s.repo.Hospital.ExistsByLicense(ctx, req.LicenseNumber); err != nil {
			s.logger.Error("检查许可证号失败", zap.Error(err))
			return nil, err
		} else if exists {
			return nil, ErrLicenseExists
		}
	}

	// 3. 密码哈希
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        strings.TrimSpace(req.Phone),
		Address:      req.Address,
		City:         req.City,
		State:        req.State,
		IsActive:     true,
	}

	resp := &dto.RegisterResponse{Role: req.Role}

	// 4. 献血者：初始资格评估
	if req.Role == model.RoleDonor {
		bt := req.BloodType
		user.DateOfBirth = dob
		user.BloodType = &bt
		user.WeightKg = req.WeightKg
		user.MedicalConditions = model.StringArray(dedupe(req.MedicalConditions))
		if req.Gender != "" {
			user.Gender = strPtr(req.Gender)
		}

		input := EligibilityInput{
			DateOfBirth:       dob,
			WeightKg:          req.WeightKg,
			MedicalConditions: user.MedicalConditions,
			BloodType:         bt,
		}
		if lastDonation != nil {
			at := model.AtLocation(*lastDonation, s.clock.loc)
			input.LastDonation = &at
		}
		result := EvaluateEligibility(input, s.clock.Now())
		user.IsEligible = result.IsEligible
		resp.IsEligible = &result.IsEligible
		resp.EligibilityReasons = result.Reasons
	}

	// 5. 事务：用户 + 医院 + 8 条零库存 / 历史献血记录
	var hospital *model.Hospital
	err = s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.User.Create(ctx, user); err != nil {
			return err
		}

		switch req.Role {
		case model.RoleHospital:
			hospital = &model.Hospital{
				UserID:        user.UserID,
				HospitalName:  strings.TrimSpace(req.HospitalName),
				LicenseNumber: strings.TrimSpace(req.LicenseNumber),
				Address:       req.Address,
				City:          req.City,
				State:         req.State,
				Phone:         user.Phone,
				Email:         user.Email,
				IsApproved:    false,
				IsActive:      true,
			}
			if err := txRepo.Hospital.Create(ctx, hospital); err != nil {
				return err
			}
			rows := make([]model.BloodInventory, 0, len(model.BloodTypes))
			for _, bt := range model.BloodTypes {
				rows = append(rows, model.BloodInventory{HospitalID: hospital.HospitalID, BloodType: bt})
			}
			return txRepo.Inventory.BatchCreate(ctx, rows)

		case model.RoleDonor:
			if lastDonation == nil {
				return nil
			}
			return txRepo.Donation.Create(ctx, &model.Donation{
				DonorID:      user.UserID,
				BloodType:    req.BloodType,
				DonationDate: *lastDonation,
				UnitsDonated: 1,
				Status:       model.DonationCompleted,
			})
		}
		return nil
	})
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != err {
			return nil, mapped
		}
		s.logger.Error("注册失败", zap.String("email", req.Email), zap.Error(err))
		return nil, err
	}

	resp.UserID = user.UserID
	resp.Username = user.Username
	if hospital != nil {
		resp.HospitalID = hospital.HospitalID
		resp.RequiresApproval = true
		s.notifyAdmins(ctx, hospital)
	}

	s.logger.Info("用户注册成功",
		zap.String("user_id", user.UserID),
		zap.String("role", user.Role),
	)
	return resp, nil
}

// validateRegister 角色相关字段校验，解析出的日期通过指针带回
func (s *authService) validateRegister(req *dto.RegisterRequest, today time.Time, dob, lastDonation **time.Time) *pkgerrors.ValidationError {
	v := pkgerrors.NewValidationError()

	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		v.Add("confirm_password", "两次输入的密码不一致")
	}
	if !phonePattern.MatchString(strings.TrimSpace(req.Phone)) {
		v.Add("phone", "手机号格式无效")
	}

	switch req.Role {
	case model.RoleDonor:
		if req.DateOfBirth == "" {
			v.Add("date_of_birth", "出生日期不能为空")
		} else if d, err := parseDate(req.DateOfBirth); err != nil {
			v.Add("date_of_birth", "出生日期格式应为 YYYY-MM-DD")
		} else if !d.Before(today) {
			v.Add("date_of_birth", "出生日期必须早于今天")
		} else {
			*dob = &d
		}

		if !model.IsValidBloodType(req.BloodType) {
			v.Add("blood_type", "血型无效")
		}

		if req.WeightKg == nil {
			v.Add("weight_kg", "体重不能为空")
		} else if *req.WeightKg < MinRegistrationWeightKg {
			v.Add("weight_kg", fmt.Sprintf("体重不低于 %.0f kg 方可注册", MinRegistrationWeightKg))
		} else if *req.WeightKg > 300 {
			v.Add("weight_kg", "体重数值无效")
		}

		for _, c := range req.MedicalConditions {
			if !model.IsValidMedicalCondition(c) {
				v.Add("medical_conditions", "未知病史类型: "+c)
			}
		}

		if req.LastDonationDate != "" {
			if d, err := parseDate(req.LastDonationDate); err != nil {
				v.Add("last_donation_date", "日期格式应为 YYYY-MM-DD")
			} else if d.After(today) {
				v.Add("last_donation_date", "上次献血日期不能晚于今天")
			} else if *dob != nil && d.Before(**dob) {
				v.Add("last_donation_date", "上次献血日期不能早于出生日期")
			} else {
				*lastDonation = &d
			}
		}

	case model.RoleHospital:
		if strings.TrimSpace(req.HospitalName) == "" {
			v.Add("hospital_name", "医院名称不能为空")
		}
		if strings.TrimSpace(req.LicenseNumber) == "" {
			v.Add("license_number", "执业许可证号不能为空")
		}
	}

	return v
}

// generateUsername 由邮箱前缀 + 4 位随机数生成用户名
func (s *authService) generateUsername(ctx context.Context, email string) (string, error) {
	base := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, strings.ToLower(strings.SplitN(email, "@", 2)[0]))
	if len(base) < 3 {
		base = "user" + base
	}
	if len(base) > 40 {
		base = base[:40]
	}

	for i := 0; i < 5; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10000))
		if err != nil {
			return "", err
		}
		candidate := fmt.Sprintf("%s%04d", base, n.Int64())
		exists, err := s.repo.User.ExistsByUsername(ctx, candidate)
		if err != nil {
			s.logger.Error("检查用户名失败", zap.Error(err))
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", ErrUsernameExists
}

// notifyAdmins 新医院待审核，通知所有管理员
func (s *authService) notifyAdmins(ctx context.Context, h *model.Hospital) {
	active := true
	admins, _, err := s.repo.User.List(ctx, repository.UserFilter{Role: model.RoleAdmin, IsActive: &active}, repository.Page{Limit: 50})
	if err != nil {
		s.logger.Warn("查询管理员失败", zap.Error(err))
		return
	}
	for _, a := range admins {
		s.fx.notify(ctx, a.UserID, model.NotificationHospital,
			"新医院待审核",
			fmt.Sprintf("%s（许可证号 %s）已提交注册，等待审核。", h.HospitalName, h.LicenseNumber),
			"hospital", h.HospitalID)
	}
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	identifier := strings.TrimSpace(req.Username)
	if strings.Contains(identifier, "@") {
		identifier = strings.ToLower(identifier)
	}

	// 1. 查询用户
	user, err := s.repo.User.GetByLogin(ctx, identifier, req.Role)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 账号状态：停用账号拒绝；医院账号须同时通过审核
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	sess := &session.Session{
		UserID:     user.UserID,
		Username:   user.Username,
		FullName:   user.FullName,
		Role:       user.Role,
		RememberMe: req.RememberMe,
	}
	if user.Role == model.RoleHospital {
		if user.Hospital == nil || !user.Hospital.IsApproved {
			return nil, ErrHospitalNotApproved
		}
		sess.HospitalID = user.Hospital.HospitalID
		sess.HospitalName = user.Hospital.HospitalName
	}

	// 4. 签发令牌并写入服务端会话
	token, claims, err := s.jwtMgr.GenerateSessionToken(user.UserID, user.Role, sess.HospitalID, req.RememberMe)
	if err != nil {
		s.logger.Error("生成会话令牌失败", zap.Error(err))
		return nil, err
	}
	sess.ID = claims.SessionID()
	sess.CreatedAt = claims.IssuedAt.Time
	sess.ExpiresAt = claims.ExpiresAt.Time
	if err := s.store.Save(ctx, sess); err != nil {
		s.logger.Error("保存会话失败", zap.String("user_id", user.UserID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrDependency, err)
	}

	s.logger.Info("用户登录", zap.String("user_id", user.UserID), zap.String("role", user.Role))

	return &dto.LoginResponse{
		Token:     token,
		ExpiresIn: int(s.jwtMgr.TTL(req.RememberMe).Seconds()),
		User: dto.SessionUserInfo{
			UserID:       user.UserID,
			Username:     user.Username,
			FullName:     user.FullName,
			Role:         user.Role,
			HospitalID:   sess.HospitalID,
			HospitalName: sess.HospitalName,
		},
	}, nil
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		s.logger.Error("删除会话失败", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── ChangePassword ──────────────────────

func (s *authService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrWrongOldPassword
	}
	if req.OldPassword == req.NewPassword {
		return ErrSamePassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return err
	}
	if err := s.repo.User.UpdatePassword(ctx, userID, string(hash)); err != nil {
		s.logger.Error("更新密码失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── CreateAdmin ──────────────────────

// CreateAdmin 创建管理员账号（运维 CLI 使用），邮箱已存在时不做修改
func (s *authService) CreateAdmin(ctx context.Context, username, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	v := pkgerrors.NewValidationError()
	if username == "" {
		v.Add("username", "用户名不能为空")
	}
	if email == "" || !strings.Contains(email, "@") {
		v.Add("email", "邮箱无效")
	}
	if len(password) < 8 {
		v.Add("password", "密码长度不能少于 8 位")
	}
	if err := v.OrNil(); err != nil {
		return false, err
	}

	exists, err := s.repo.User.ExistsByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	admin := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		FullName:     "Administrator",
		IsActive:     true,
	}
	if err := s.repo.User.Create(ctx, admin); err != nil {
		return false, mapUniqueViolation(err)
	}
	s.logger.Info("管理员账号已创建", zap.String("user_id", admin.UserID), zap.String("email", email))
	return true, nil
}

// ── 辅助函数 ──

// mapUniqueViolation 按约束名把唯一约束冲突翻译为业务错误，其他错误原样返回
func mapUniqueViolation(err error) error {
	constraint, ok := pkgerrors.UniqueViolation(err)
	if !ok {
		return err
	}
	switch constraint {
	case "uq_users_username":
		return ErrUsernameExists
	case "uq_users_email":
		return ErrEmailExists
	case "uq_hospitals_license_number":
		return ErrLicenseExists
	case "uq_appointments_active_slot":
		return ErrSlotTaken
	case "uq_appointments_active_donor_day":
		return ErrDonorDayTaken
	case "uq_donations_appointment":
		return ErrInvalidAppointmentTransition
	}
	return err
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	return out
}
