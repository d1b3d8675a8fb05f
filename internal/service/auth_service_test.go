package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Sudeep845/Raktsewa-sub000/config"
	"github.com/Sudeep845/Raktsewa-sub000/internal/dto"
	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
	"github.com/Sudeep845/Raktsewa-sub000/internal/session"
	"github.com/Sudeep845/Raktsewa-sub000/pkg/jwt"
	pkgerrors "github.com/Sudeep845/Raktsewa-sub000/pkg/errors"
)

// ── 测试辅助 ──

func setupAuthService() (*authService, *mockDB, *session.MemoryStore) {
	repo, db := newMockRepository()
	store := session.NewMemoryStore()
	jwtMgr := jwt.NewManager(&config.AuthConfig{
		SessionSecret: "test-secret-key-for-unit-testing-2026",
		SessionTTL:    12 * time.Hour,
		RememberMeTTL: 7 * 24 * time.Hour,
	})
	svc := &authService{
		repo:   repo,
		jwtMgr: jwtMgr,
		store:  store,
		clock:  fixedClock(testNow),
		fx:     testFx(repo),
		logger: zap.NewNop(),
	}
	return svc, db, store
}

func donorRegistration(email string) *dto.RegisterRequest {
	return &dto.RegisterRequest{
		Role:        model.RoleDonor,
		Email:       email,
		Password:    "Passw0rd!",
		FullName:    "Ram Bahadur",
		Phone:       "9812345678",
		City:        "Pokhara",
		DateOfBirth: "1996-01-15",
		BloodType:   "B+",
		WeightKg:    float64Ptr(62),
	}
}

func hospitalRegistration(email, license string) *dto.RegisterRequest {
	return &dto.RegisterRequest{
		Role:          model.RoleHospital,
		Username:      "bircityhosp",
		Email:         email,
		Password:      "Passw0rd!",
		FullName:      "Front Desk",
		Phone:         "061-520000",
		City:          "Pokhara",
		HospitalName:  "Bir City Hospital",
		LicenseNumber: license,
	}
}

// ── Register ──

func TestRegister_DonorGeneratesUsername(t *testing.T) {
	svc, db, _ := setupAuthService()

	resp, err := svc.Register(context.Background(), donorRegistration("Ram.Bahadur+x@Example.com"))
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^rambahadurx\d{4}$`), resp.Username)
	assert.False(t, resp.RequiresApproval)
	require.NotNil(t, resp.IsEligible)
	assert.True(t, *resp.IsEligible)

	u := db.users[resp.UserID]
	require.NotNil(t, u)
	assert.Equal(t, "ram.bahadur+x@example.com", u.Email)
	assert.NotEqual(t, "Passw0rd!", u.PasswordHash)
	assert.True(t, u.IsEligible)
	assert.Equal(t, "B+", u.BloodTypeValue())
}

func TestRegister_DonorLightButAllowed(t *testing.T) {
	svc, db, _ := setupAuthService()
	req := donorRegistration("light@example.com")
	req.WeightKg = float64Ptr(47)

	resp, err := svc.Register(context.Background(), req)
	require.NoError(t, err, "45 kg 以上即可注册")
	assert.False(t, *resp.IsEligible)
	assert.Len(t, resp.EligibilityReasons, 1)
	assert.False(t, db.users[resp.UserID].IsEligible)
}

func TestRegister_DonorLastDonationRecorded(t *testing.T) {
	svc, db, _ := setupAuthService()
	req := donorRegistration("recent@example.com")
	req.LastDonationDate = "2026-02-20"

	resp, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, *resp.IsEligible)
	require.Len(t, db.donations, 1)
	assert.Equal(t, resp.UserID, db.donations[0].DonorID)
	assert.Nil(t, db.donations[0].HospitalID)
}

func TestRegister_DonorValidation(t *testing.T) {
	svc, db, _ := setupAuthService()
	req := donorRegistration("bad@example.com")
	req.WeightKg = float64Ptr(40)
	req.DateOfBirth = "2026-03-10"
	req.BloodType = "C+"
	req.MedicalConditions = []string{"flu"}
	req.Phone = "abc"
	req.ConfirmPassword = "different"

	_, err := svc.Register(context.Background(), req)
	verr, ok := pkgerrors.AsValidation(err)
	require.True(t, ok)
	for _, field := range []string{"weight_kg", "date_of_birth", "blood_type", "medical_conditions", "phone", "confirm_password"} {
		assert.Contains(t, verr.Fields, field)
	}
	assert.Empty(t, db.users)
}

func TestRegister_HospitalCreatesInventory(t *testing.T) {
	svc, db, _ := setupAuthService()
	db.users["admin-1"] = &model.User{UserID: "admin-1", Username: "admin", Email: "admin@example.com",
		Role: model.RoleAdmin, IsActive: true}

	resp, err := svc.Register(context.Background(), hospitalRegistration("desk@bircity.np", "LIC-001"))
	require.NoError(t, err)
	assert.True(t, resp.RequiresApproval)
	assert.Equal(t, "bircityhosp", resp.Username)
	require.NotEmpty(t, resp.HospitalID)

	h := db.hospitals[resp.HospitalID]
	require.NotNil(t, h)
	assert.Equal(t, model.HospitalStatePending, h.ApprovalState())

	for _, bt := range model.BloodTypes {
		row, ok := db.inventory[invKey(resp.HospitalID, bt)]
		require.True(t, ok, bt)
		assert.Zero(t, row.UnitsAvailable)
	}

	require.Len(t, db.notifications, 1, "通知管理员审核")
	assert.Equal(t, "admin-1", db.notifications[0].UserID)
}

func TestRegister_Conflicts(t *testing.T) {
	svc, _, _ := setupAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, hospitalRegistration("desk@bircity.np", "LIC-001"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, hospitalRegistration("DESK@bircity.np", "LIC-002"))
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = svc.Register(ctx, hospitalRegistration("other@bircity.np", "LIC-002"))
	assert.ErrorIs(t, err, ErrUsernameExists)

	req := hospitalRegistration("other@bircity.np", "LIC-001")
	req.Username = "another"
	_, err = svc.Register(ctx, req)
	assert.ErrorIs(t, err, ErrLicenseExists)
}

func TestRegister_HospitalValidation(t *testing.T) {
	svc, _, _ := setupAuthService()
	req := hospitalRegistration("desk@bircity.np", " ")
	req.HospitalName = ""

	_, err := svc.Register(context.Background(), req)
	verr, ok := pkgerrors.AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, verr.Fields, "hospital_name")
	assert.Contains(t, verr.Fields, "license_number")
}

func TestRegister_StorageFailure(t *testing.T) {
	svc, db, _ := setupAuthService()
	db.failOn["Inventory.BatchCreate"] = errors.New("connection reset")

	_, err := svc.Register(context.Background(), hospitalRegistration("desk@bircity.np", "LIC-001"))
	assert.Error(t, err)
	assert.Empty(t, db.notifications)
}

func TestMapUniqueViolation(t *testing.T) {
	assert.ErrorIs(t, mapUniqueViolation(uniqueViolation("uq_users_email")), ErrEmailExists)
	assert.ErrorIs(t, mapUniqueViolation(uniqueViolation("uq_appointments_active_slot")), ErrSlotTaken)
	assert.ErrorIs(t, mapUniqueViolation(uniqueViolation("uq_appointments_active_donor_day")), ErrDonorDayTaken)

	other := uniqueViolation("uq_unknown")
	assert.Equal(t, other, mapUniqueViolation(other))

	plain := errors.New("boom")
	assert.Equal(t, plain, mapUniqueViolation(plain))
}

// ── Login / Logout ──

func TestLogin_DonorCreatesSession(t *testing.T) {
	svc, _, store := setupAuthService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, donorRegistration("ram@example.com"))
	require.NoError(t, err)

	// 用户名和邮箱均可登录
	for _, id := range []string{reg.Username, "RAM@example.com"} {
		resp, err := svc.Login(ctx, &dto.LoginRequest{Username: id, Password: "Passw0rd!", Role: model.RoleDonor})
		require.NoError(t, err, id)
		assert.Equal(t, reg.UserID, resp.User.UserID)
		assert.Equal(t, int((12 * time.Hour).Seconds()), resp.ExpiresIn)

		claims, err := svc.jwtMgr.ParseToken(resp.Token)
		require.NoError(t, err)
		sess, err := store.Get(ctx, claims.SessionID())
		require.NoError(t, err)
		assert.Equal(t, model.RoleDonor, sess.Role)
	}
}

func TestLogin_Failures(t *testing.T) {
	svc, db, _ := setupAuthService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, donorRegistration("ram@example.com"))
	require.NoError(t, err)

	_, err = svc.Login(ctx, &dto.LoginRequest{Username: reg.Username, Password: "wrong-pass", Role: model.RoleDonor})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, &dto.LoginRequest{Username: reg.Username, Password: "Passw0rd!", Role: model.RoleHospital})
	assert.ErrorIs(t, err, ErrInvalidCredentials, "角色不匹配按凭据错误处理")

	db.users[reg.UserID].IsActive = false
	_, err = svc.Login(ctx, &dto.LoginRequest{Username: reg.Username, Password: "Passw0rd!", Role: model.RoleDonor})
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestLogin_HospitalRequiresApproval(t *testing.T) {
	svc, db, store := setupAuthService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, hospitalRegistration("desk@bircity.np", "LIC-001"))
	require.NoError(t, err)
	login := &dto.LoginRequest{Username: "bircityhosp", Password: "Passw0rd!", Role: model.RoleHospital, RememberMe: true}

	_, err = svc.Login(ctx, login)
	assert.ErrorIs(t, err, ErrHospitalNotApproved)

	db.hospitals[reg.HospitalID].IsApproved = true
	resp, err := svc.Login(ctx, login)
	require.NoError(t, err)
	assert.Equal(t, reg.HospitalID, resp.User.HospitalID)
	assert.Equal(t, "Bir City Hospital", resp.User.HospitalName)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), resp.ExpiresIn)

	claims, err := svc.jwtMgr.ParseToken(resp.Token)
	require.NoError(t, err)
	sess, err := store.Get(ctx, claims.SessionID())
	require.NoError(t, err)
	assert.Equal(t, reg.HospitalID, sess.HospitalID)
	assert.True(t, sess.RememberMe)

	require.NoError(t, svc.Logout(ctx, sess.ID))
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

// ── ChangePassword / CreateAdmin ──

func TestChangePassword(t *testing.T) {
	svc, _, _ := setupAuthService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, donorRegistration("ram@example.com"))
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, reg.UserID, &dto.ChangePasswordRequest{OldPassword: "nope", NewPassword: "N3wPassword"})
	assert.ErrorIs(t, err, ErrWrongOldPassword)

	err = svc.ChangePassword(ctx, reg.UserID, &dto.ChangePasswordRequest{OldPassword: "Passw0rd!", NewPassword: "Passw0rd!"})
	assert.ErrorIs(t, err, ErrSamePassword)

	require.NoError(t, svc.ChangePassword(ctx, reg.UserID, &dto.ChangePasswordRequest{OldPassword: "Passw0rd!", NewPassword: "N3wPassword"}))
	_, err = svc.Login(ctx, &dto.LoginRequest{Username: reg.Username, Password: "N3wPassword", Role: model.RoleDonor})
	assert.NoError(t, err)

	err = svc.ChangePassword(ctx, "missing", &dto.ChangePasswordRequest{OldPassword: "a", NewPassword: "b"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateAdmin_Idempotent(t *testing.T) {
	svc, db, _ := setupAuthService()
	ctx := context.Background()

	created, err := svc.CreateAdmin(ctx, "admin", "Admin@Raktsewa.org", "SuperSecret1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.CreateAdmin(ctx, "admin2", "admin@raktsewa.org", "SuperSecret1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, db.users, 1)

	_, err = svc.CreateAdmin(ctx, "", "bad", "short")
	_, ok := pkgerrors.AsValidation(err)
	assert.True(t, ok)
}
