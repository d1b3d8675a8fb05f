package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Sudeep845/Raktsewa-sub000/internal/dto"
	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
	"github.com/Sudeep845/Raktsewa-sub000/internal/session"
)

func setupHospitalService() (*hospitalService, *mockDB) {
	repo, db := newMockRepository()
	return &hospitalService{repo: repo, sessions: session.NewMemoryStore(), fx: testFx(repo), logger: zap.NewNop()}, db
}

func TestNextHospitalState(t *testing.T) {
	tests := []struct {
		current, action string
		want            string
		ok              bool
	}{
		{model.HospitalStatePending, HospitalActionApprove, model.HospitalStateApproved, true},
		{model.HospitalStatePending, HospitalActionReject, model.HospitalStateRejected, true},
		{model.HospitalStatePending, HospitalActionSuspend, "", false},
		{model.HospitalStateApproved, HospitalActionSuspend, model.HospitalStateSuspended, true},
		{model.HospitalStateApproved, HospitalActionReject, model.HospitalStateRejected, true},
		{model.HospitalStateApproved, HospitalActionApprove, "", false},
		{model.HospitalStateSuspended, HospitalActionReactivate, model.HospitalStateApproved, true},
		{model.HospitalStateSuspended, HospitalActionApprove, model.HospitalStateApproved, true},
		{model.HospitalStateRejected, HospitalActionApprove, model.HospitalStateApproved, true},
		{model.HospitalStateRejected, HospitalActionReactivate, "", false},
		{model.HospitalStatePending, "delete", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.current+"+"+tt.action, func(t *testing.T) {
			got, ok := NextHospitalState(tt.current, tt.action)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHospitalTransition_ApproveSyncsOwnerAccount(t *testing.T) {
	svc, db := setupHospitalService()
	h := seedHospital(db, "h1", false)

	resp, err := svc.Transition(context.Background(), adminCaller(), "h1", HospitalActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, model.HospitalStateApproved, resp.Status)
	assert.True(t, h.CanOperate())
	assert.True(t, db.users[h.UserID].IsActive)

	require.Len(t, db.notifications, 1)
	assert.Equal(t, h.UserID, db.notifications[0].UserID)
}

func TestHospitalTransition_SuspendDeactivatesOwner(t *testing.T) {
	svc, db := setupHospitalService()
	h := seedHospital(db, "h1", true)
	ctx := context.Background()

	resp, err := svc.Transition(ctx, adminCaller(), "h1", HospitalActionSuspend, "证照过期")
	require.NoError(t, err)
	assert.Equal(t, model.HospitalStateSuspended, resp.Status)
	assert.False(t, db.users[h.UserID].IsActive)
	assert.Contains(t, db.notifications[0].Content, "证照过期")

	_, err = svc.Transition(ctx, adminCaller(), "h1", HospitalActionSuspend, "")
	assert.ErrorIs(t, err, ErrInvalidHospitalTransition)

	_, err = svc.Transition(ctx, adminCaller(), "h1", HospitalActionReactivate, "")
	require.NoError(t, err)
	assert.True(t, db.users[h.UserID].IsActive)
}

func TestHospitalTransition_DeactivationRevokesSessions(t *testing.T) {
	for _, action := range []string{HospitalActionSuspend, HospitalActionReject} {
		t.Run(action, func(t *testing.T) {
			svc, db := setupHospitalService()
			h := seedHospital(db, "h1", true)
			ctx := context.Background()
			require.NoError(t, svc.sessions.Save(ctx, &session.Session{
				ID: "s-1", UserID: h.UserID, Role: model.RoleHospital, HospitalID: "h1",
				ExpiresAt: time.Now().Add(time.Hour),
			}))

			_, err := svc.Transition(ctx, adminCaller(), "h1", action, "")
			require.NoError(t, err)
			_, err = svc.sessions.Get(ctx, "s-1")
			assert.ErrorIs(t, err, session.ErrNotFound)
		})
	}
}

func TestHospitalTransition_ApproveKeepsSessions(t *testing.T) {
	svc, db := setupHospitalService()
	h := seedHospital(db, "h1", false)
	ctx := context.Background()
	require.NoError(t, svc.sessions.Save(ctx, &session.Session{
		ID: "s-1", UserID: h.UserID, Role: model.RoleHospital, HospitalID: "h1",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	_, err := svc.Transition(ctx, adminCaller(), "h1", HospitalActionApprove, "")
	require.NoError(t, err)
	_, err = svc.sessions.Get(ctx, "s-1")
	assert.NoError(t, err)
}

func TestHospitalTransition_Errors(t *testing.T) {
	svc, db := setupHospitalService()
	h := seedHospital(db, "h1", false)
	ctx := context.Background()

	_, err := svc.Transition(ctx, hospitalCaller(h), "h1", HospitalActionApprove, "")
	assert.ErrorIs(t, err, ErrNoPermission)

	_, err = svc.Transition(ctx, adminCaller(), "missing", HospitalActionApprove, "")
	assert.ErrorIs(t, err, ErrHospitalNotFound)

	_, err = svc.Transition(ctx, adminCaller(), "h1", "archive", "")
	assert.ErrorIs(t, err, ErrInvalidHospitalTransition)

	db.failOn["User.SetActive"] = errors.New("deadlock detected")
	_, err = svc.Transition(ctx, adminCaller(), "h1", HospitalActionApprove, "")
	assert.Error(t, err)
	assert.Empty(t, db.notifications)
}

func TestHospitalListApproved_HidesInternalFields(t *testing.T) {
	svc, db := setupHospitalService()
	seedHospital(db, "h1", true)
	seedHospital(db, "h2", false)
	ctx := context.Background()

	list, total, err := svc.ListApproved(ctx, &dto.HospitalListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "h1", list[0].HospitalID)
	assert.Empty(t, list[0].LicenseNumber)
	assert.Empty(t, list[0].UserID)

	list, total, err = svc.List(ctx, &dto.HospitalListRequest{State: model.HospitalStatePending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "LIC-h2", list[0].LicenseNumber)
}

func TestHospitalGet_Visibility(t *testing.T) {
	svc, db := setupHospitalService()
	pending := seedHospital(db, "h1", false)
	ctx := context.Background()

	_, err := svc.Get(ctx, donorCaller("d1"), "h1")
	assert.ErrorIs(t, err, ErrHospitalNotFound, "未审核医院对公众不可见")

	resp, err := svc.Get(ctx, hospitalCaller(pending), "h1")
	require.NoError(t, err)
	assert.Equal(t, model.HospitalStatePending, resp.Status)

	resp, err = svc.Get(ctx, adminCaller(), "h1")
	require.NoError(t, err)
	assert.Equal(t, "LIC-h1", resp.LicenseNumber)
}
