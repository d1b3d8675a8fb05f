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
	"github.com/Sudeep845/Raktsewa-sub000/internal/repository"
)

func setupAppointmentService() (*appointmentService, *repository.Repository, *mockDB) {
	repo, db := newMockRepository()
	svc := &appointmentService{
		repo:   repo,
		clock:  fixedClock(testNow),
		fx:     testFx(repo),
		logger: zap.NewNop(),
	}
	return svc, repo, db
}

func bookingRequest(hospitalID, date, clock string) *dto.CreateAppointmentRequest {
	return &dto.CreateAppointmentRequest{
		HospitalID:      hospitalID,
		AppointmentDate: date,
		AppointmentTime: clock,
	}
}

// ── Create ──

func TestCreateAppointment_Success(t *testing.T) {
	svc, _, db := setupAppointmentService()
	seedDonor(db, "d1")
	h := seedHospital(db, "h1", true)

	resp, err := svc.Create(context.Background(), donorCaller("d1"), bookingRequest("h1", "2026-03-12", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentScheduled, resp.Status)
	assert.Equal(t, "O+", resp.BloodType, "未指定血型时取献血者登记血型")
	assert.Equal(t, "2026-03-12", resp.AppointmentDate)
	assert.Equal(t, "10:00", resp.AppointmentTime)
	assert.Equal(t, h.HospitalName, resp.HospitalName)
	assert.Len(t, db.appointments, 1)

	// 献血者与医院各收到一条通知
	recipients := map[string]bool{}
	for _, n := range db.notifications {
		recipients[n.UserID] = true
	}
	assert.True(t, recipients["d1"])
	assert.True(t, recipients[h.UserID])
}

func TestCreateAppointment_SlotConflictLeavesOneRow(t *testing.T) {
	svc, _, db := setupAppointmentService()
	seedDonor(db, "d1")
	seedDonor(db, "d2")
	seedHospital(db, "h1", true)
	ctx := context.Background()

	_, err := svc.Create(ctx, donorCaller("d1"), bookingRequest("h1", "2026-03-12", "10:00"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, donorCaller("d2"), bookingRequest("h1", "2026-03-12", "10:00"))
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.Len(t, db.appointments, 1)

	// 其他时段不受影响
	_, err = svc.Create(ctx, donorCaller("d2"), bookingRequest("h1", "2026-03-12", "10:30"))
	assert.NoError(t, err)
}

func TestCreateAppointment_UniqueIndexBackstop(t *testing.T) {
	svc, repo, db := setupAppointmentService()
	seedDonor(db, "d1")
	seedDonor(db, "d2")
	seedHospital(db, "h1", true)
	ctx := context.Background()

	_, err := svc.Create(ctx, donorCaller("d1"), bookingRequest("h1", "2026-03-12", "10:00"))
	require.NoError(t, err)

	// 预检查被绕过时（并发窗口），由唯一索引冲突兜底
	repo.Appointment = &blindAppointmentRepo{repo.Appointment}
	_, err = svc.Create(ctx, donorCaller("d2"), bookingRequest("h1", "2026-03-12", "10:00"))
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.Len(t, db.appointments, 1)
}

// blindAppointmentRepo 预检查始终返回无冲突，模拟竞争窗口
type blindAppointmentRepo struct {
	repository.AppointmentRepository
}

func (blindAppointmentRepo) HasActiveSlot(context.Context, string, time.Time, string, string) (bool, error) {
	return false, nil
}

func (blindAppointmentRepo) HasActiveDonorDay(context.Context, string, time.Time, string) (bool, error) {
	return false, nil
}

func TestCreateAppointment_DonorOnePerDay(t *testing.T) {
	svc, _, db := setupAppointmentService()
	seedDonor(db, "d1")
	seedHospital(db, "h1", true)
	seedHospital(db, "h2", true)
	ctx := context.Background()

	_, err := svc.Create(ctx, donorCaller("d1"), bookingRequest("h1", "2026-03-12", "10:00"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, donorCaller("d1"), bookingRequest("h2", "2026-03-12", "15:00"))
	assert.ErrorIs(t, err, ErrDonorDayTaken)
}

func TestCreateAppointment_CancelledFreesSlot(t *testing.T) {
	svc, _, db := setupAppointmentService()
	seedDonor(db, "d1")
	seedDonor(db, "d2")
	seedHospital(db, "h1", true)
	ctx := context.Background()

	first, err := svc.Create(ctx, donorCaller("d1"), bookingRequest("h1", "2026-03-12", "10:00"))
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, donorCaller("d1"), first.AppointmentID,
		&dto.UpdateAppointmentStatusRequest{Status: model.AppointmentCancelled})
	require.NoError(t, err)

	_, err = svc.Create(ctx, donorCaller("d2"), bookingRequest("h1", "2026-03-12", "10:00"))
	assert.NoError(t, err)
}

func TestCreateAppointment_TimeWindow(t *testing.T) {
	svc, _, db := setupAppointmentService()
	seedDonor(db, "d1")
	seedHospital(db, "h1", true)
	ctx := context.Background()

	tests := []struct {
		name    string
		date    string
		clock   string
		wantErr error
	}{
		{"今天已过去的时刻", "2026-03-10", "08:59", ErrAppointmentInPast},
		{"恰好当前时刻", "2026-03-10", "09:00", ErrAppointmentInPast},
		{"昨天", "2026-03-09", "10:00", ErrAppointmentInPast},
		{"超过 6 个月", "2026-09-11", "10:00", ErrAppointmentTooFar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, donorCaller("d1"), bookingRequest("h1", tt.date, tt.clock))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := svc.Create(ctx, donorCaller("d1"), bookingRequest("h1", "2026-09-10", "10:00"))
	assert.NoError(t, err, "6 个月整应允许")
}

func TestCreateAppointment_Validation(t *testing.T) {
	svc, _, db := setupAppointmentService()
	seedDonor(db, "d1")
	seedHospital(db, "h1", true)

	_, err := svc.Create(context.Background(), donorCaller("d1"), bookingRequest("h1", "12/03/2026", "25:99"))
	require.Error(t, err)
	var verr interface{ HasErrors() bool }
	require.True(t, errors.As(err, &verr))
}

func TestCreateAppointment_DonorIneligible(t *testing.T) {
	svc, _, db := setupAppointmentService()
	donor := seedDonor(db, "d1")
	donor.WeightKg = float64Ptr(48)
	seedHospital(db, "h1", true)

	_, err := svc.Create(context.Background(), donorCaller("d1"), bookingRequest("h1", "2026-03-12", "10:00"))
	require.ErrorIs(t, err, ErrDonorNotEligible)
	var ie *IneligibleError
	require.True(t, errors.As(err, &ie))
	assert.Len(t, ie.Reasons, 1)
	assert.Empty(t, db.appointments)
}

func TestCreateAppointment_RecentDonationBlocksBooking(t *testing.T) {
	svc, _, db := setupAppointmentService()
	seedDonor(db, "d1")
	seedHospital(db, "h1", true)
	db.donations = append(db.donations, &model.Donation{
		DonorID:      "d1",
		BloodType:    "O+",
		DonationDate: testNow.AddDate(0, 0, -10),
		UnitsDonated: 1,
		Status:       model.DonationCompleted,
	})

	_, err := svc.Create(context.Background(), donorCaller("d1"), bookingRequest("h1", "2026-03-12", "10:00"))
	assert.ErrorIs(t, err, ErrDonorNotEligible)
}

func TestCreateAppointment_HospitalNotApproved(t *testing.T) {
	svc, _, db := setupAppointmentService()
	seedDonor(db, "d1")
	seedHospital(db, "h1", false)

	_, err := svc.Create(context.Background(), donorCaller("d1"), bookingRequest("h1", "2026-03-12", "10:00"))
	assert.ErrorIs(t, err, ErrHospitalUnavailable)
}

func TestCreateAppointment_OnlyDonors(t *testing.T) {
	svc, _, db := setupAppointmentService()
	h := seedHospital(db, "h1", true)

	_, err := svc.Create(context.Background(), hospitalCaller(h), bookingRequest("h1", "2026-03-12", "10:00"))
	assert.ErrorIs(t, err, ErrNoPermission)
}

// ── UpdateStatus ──

func bookAndConfirm(t *testing.T, svc *appointmentService, h *model.Hospital, donorID string) string {
	t.Helper()
	ctx := context.Background()
	appt, err := svc.Create(ctx, donorCaller(donorID), bookingRequest(h.HospitalID, "2026-03-12", "10:00"))
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, hospitalCaller(h), appt.AppointmentID,
		&dto.UpdateAppointmentStatusRequest{Status: model.AppointmentConfirmed})
	require.NoError(t, err)
	return appt.AppointmentID
}

func TestUpdateStatus_CompleteWritesDonationAndInventory(t *testing.T) {
	svc, _, db := setupAppointmentService()
	seedDonor(db, "d1")
	h := seedHospital(db, "h1", true)
	db.inventory[invKey("h1", "O+")].UnitsAvailable = 4

	id := bookAndConfirm(t, svc, h, "d1")
	resp, err := svc.UpdateStatus(context.Background(), hospitalCaller(h), id,
		&dto.UpdateAppointmentStatusRequest{Status: model.AppointmentCompleted})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentCompleted, resp.Status)

	require.Len(t, db.donations, 1)
	d := db.donations[0]
	assert.Equal(t, "d1", d.DonorID)
	assert.Equal(t, "h1", derefStr(d.HospitalID))
	assert.Equal(t, id, derefStr(d.AppointmentID))
	assert.Equal(t, 1, d.UnitsDonated)

	assert.Equal(t, 5, db.inventory[invKey("h1", "O+")].UnitsAvailable)
	assert.False(t, db.users["d1"].IsEligible)

	var inventoryLogs int
	for _, l := range db.logs {
		if l.EntityType == "inventory" {
			inventoryLogs++
			assert.Equal(t, 4, *l.PreviousQuantity)
			assert.Equal(t, 5, *l.NewQuantity)
		}
	}
	assert.Equal(t, 1, inventoryLogs)
}

func TestUpdateStatus_CompleteTwiceRejected(t *testing.T) {
	svc, _, db := setupAppointmentService()
	seedDonor(db, "d1")
	h := seedHospital(db, "h1", true)
	id := bookAndConfirm(t, svc, h, "d1")
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, hospitalCaller(h), id, &dto.UpdateAppointmentStatusRequest{Status: model.AppointmentCompleted})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, hospitalCaller(h), id, &dto.UpdateAppointmentStatusRequest{Status: model.AppointmentCompleted})
	assert.ErrorIs(t, err, ErrInvalidAppointmentTransition)

	assert.Len(t, db.donations, 1)
	assert.Equal(t, 1, db.inventory[invKey("h1", "O+")].UnitsAvailable)
}

// suspend 模拟管理员暂停医院：医院与所属账号同时停用
func suspend(db *mockDB, h *model.Hospital) {
	h.IsActive = false
	db.users[h.UserID].IsActive = false
}

func TestUpdateStatus_SuspendedHospitalCannotOperate(t *testing.T) {
	svc, _, db := setupAppointmentService()
	seedDonor(db, "d1")
	h := seedHospital(db, "h1", true)
	id := bookAndConfirm(t, svc, h, "d1")
	ctx := context.Background()

	suspend(db, h)
	for _, status := range []string{model.AppointmentCompleted, model.AppointmentNoShow, model.AppointmentCancelled} {
		_, err := svc.UpdateStatus(ctx, hospitalCaller(h), id, &dto.UpdateAppointmentStatusRequest{Status: status})
		assert.ErrorIs(t, err, ErrHospitalUnavailable, status)
	}
	assert.Equal(t, model.AppointmentConfirmed, db.appointments[id].Status)
	assert.Empty(t, db.donations)
	assert.Equal(t, 0, db.inventory[invKey("h1", "O+")].UnitsAvailable)
	assert.True(t, db.users["d1"].IsEligible)

	// 管理员与献血者不受医院状态影响
	_, err := svc.UpdateStatus(ctx, donorCaller("d1"), id, &dto.UpdateAppointmentStatusRequest{Status: model.AppointmentCancelled})
	require.NoError(t, err)
}

func TestUpdateStatus_RejectedHospitalCannotComplete(t *testing.T) {
	svc, _, db := setupAppointmentService()
	seedDonor(db, "d1")
	h := seedHospital(db, "h1", true)
	id := bookAndConfirm(t, svc, h, "d1")

	h.IsApproved = false
	suspend(db, h)
	_, err := svc.UpdateStatus(context.Background(), hospitalCaller(h), id,
		&dto.UpdateAppointmentStatusRequest{Status: model.AppointmentCompleted})
	assert.ErrorIs(t, err, ErrHospitalUnavailable)
	assert.Empty(t, db.donations)

	resp, err := svc.UpdateStatus(context.Background(), adminCaller(), id,
		&dto.UpdateAppointmentStatusRequest{Status: model.AppointmentCompleted})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentCompleted, resp.Status)
}

func TestUpdateStatus_CompletionFailureAborts(t *testing.T) {
	svc, _, db := setupAppointmentService()
	seedDonor(db, "d1")
	h := seedHospital(db, "h1", true)
	id := bookAndConfirm(t, svc, h, "d1")
	notificationsBefore := len(db.notifications)

	// mockDB 不支持回滚，此处已写入的献血记录会残留；
	// 献血记录随事务一并回滚由 repository 集成测试 TestTransaction_CompletionRollback 覆盖。
	// 这里只校验失败点之后的写入均未发生。
	db.failOn["Inventory.Adjust"] = errors.New("connection reset")
	_, err := svc.UpdateStatus(context.Background(), hospitalCaller(h), id,
		&dto.UpdateAppointmentStatusRequest{Status: model.AppointmentCompleted})
	require.Error(t, err)

	assert.Equal(t, model.AppointmentConfirmed, db.appointments[id].Status, "状态不得推进")
	assert.Equal(t, 0, db.inventory[invKey("h1", "O+")].UnitsAvailable)
	assert.True(t, db.users["d1"].IsEligible)
	assert.Len(t, db.notifications, notificationsBefore, "主流程失败时不产生通知")
}

func TestUpdateStatus_SideEffectFailureDoesNotFail(t *testing.T) {
	svc, _, db := setupAppointmentService()
	seedDonor(db, "d1")
	h := seedHospital(db, "h1", true)
	id := bookAndConfirm(t, svc, h, "d1")

	db.failOn["Notification.Create"] = errors.New("disk full")
	db.failOn["ActivityLog.Create"] = errors.New("disk full")
	resp, err := svc.UpdateStatus(context.Background(), hospitalCaller(h), id,
		&dto.UpdateAppointmentStatusRequest{Status: model.AppointmentCompleted})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentCompleted, resp.Status)
	assert.Len(t, db.donations, 1)
}

func TestUpdateStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to string
		ok       bool
	}{
		{model.AppointmentScheduled, model.AppointmentConfirmed, true},
		{model.AppointmentScheduled, model.AppointmentCancelled, true},
		{model.AppointmentScheduled, model.AppointmentCompleted, false},
		{model.AppointmentScheduled, model.AppointmentNoShow, false},
		{model.AppointmentRescheduled, model.AppointmentConfirmed, true},
		{model.AppointmentConfirmed, model.AppointmentNoShow, true},
		{model.AppointmentConfirmed, model.AppointmentCancelled, true},
		{model.AppointmentCancelled, model.AppointmentConfirmed, false},
		{model.AppointmentCompleted, model.AppointmentCancelled, false},
		{model.AppointmentNoShow, model.AppointmentConfirmed, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"→"+tt.to, func(t *testing.T) {
			svc, _, db := setupAppointmentService()
			seedDonor(db, "d1")
			seedHospital(db, "h1", true)
			db.appointments["a1"] = &model.Appointment{
				AppointmentID:   "a1",
				DonorID:         "d1",
				HospitalID:      "h1",
				AppointmentDate: testNow.AddDate(0, 0, 2),
				AppointmentTime: "10:00",
				BloodType:       "O+",
				Status:          tt.from,
			}

			_, err := svc.UpdateStatus(context.Background(), adminCaller(), "a1",
				&dto.UpdateAppointmentStatusRequest{Status: tt.to})
			if tt.ok {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, db.appointments["a1"].Status)
			} else {
				assert.ErrorIs(t, err, ErrInvalidAppointmentTransition)
				assert.Equal(t, tt.from, db.appointments["a1"].Status)
			}
		})
	}
}

func TestUpdateStatus_Permissions(t *testing.T) {
	svc, _, db := setupAppointmentService()
	seedDonor(db, "d1")
	seedDonor(db, "d2")
	h := seedHospital(db, "h1", true)
	other := seedHospital(db, "h2", true)
	ctx := context.Background()

	appt, err := svc.Create(ctx, donorCaller("d1"), bookingRequest("h1", "2026-03-12", "10:00"))
	require.NoError(t, err)

	// 献血者不能确认
	_, err = svc.UpdateStatus(ctx, donorCaller("d1"), appt.AppointmentID,
		&dto.UpdateAppointmentStatusRequest{Status: model.AppointmentConfirmed})
	assert.ErrorIs(t, err, ErrNoPermission)

	// 其他献血者看不到
	_, err = svc.UpdateStatus(ctx, donorCaller("d2"), appt.AppointmentID,
		&dto.UpdateAppointmentStatusRequest{Status: model.AppointmentCancelled})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	// 其他医院看不到
	_, err = svc.UpdateStatus(ctx, hospitalCaller(other), appt.AppointmentID,
		&dto.UpdateAppointmentStatusRequest{Status: model.AppointmentConfirmed})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	_, err = svc.UpdateStatus(ctx, hospitalCaller(h), appt.AppointmentID,
		&dto.UpdateAppointmentStatusRequest{Status: model.AppointmentConfirmed})
	assert.NoError(t, err)
}

// ── Reschedule ──

func TestReschedule_MovesSameRow(t *testing.T) {
	svc, _, db := setupAppointmentService()
	seedDonor(db, "d1")
	seedHospital(db, "h1", true)
	ctx := context.Background()

	appt, err := svc.Create(ctx, donorCaller("d1"), bookingRequest("h1", "2026-03-12", "10:00"))
	require.NoError(t, err)

	resp, err := svc.Reschedule(ctx, donorCaller("d1"), appt.AppointmentID, &dto.RescheduleAppointmentRequest{
		AppointmentDate: "2026-03-13",
		AppointmentTime: "11:30",
	})
	require.NoError(t, err)
	assert.Equal(t, appt.AppointmentID, resp.AppointmentID)
	assert.Equal(t, model.AppointmentRescheduled, resp.Status)
	assert.Equal(t, "2026-03-13", resp.AppointmentDate)
	assert.Len(t, db.appointments, 1)

	// 同一天内改时段不与自身冲突
	_, err = svc.Reschedule(ctx, donorCaller("d1"), appt.AppointmentID, &dto.RescheduleAppointmentRequest{
		AppointmentDate: "2026-03-13",
		AppointmentTime: "14:00",
	})
	assert.NoError(t, err)
}

func TestReschedule_ConflictWithOthers(t *testing.T) {
	svc, _, db := setupAppointmentService()
	seedDonor(db, "d1")
	seedDonor(db, "d2")
	seedHospital(db, "h1", true)
	ctx := context.Background()

	_, err := svc.Create(ctx, donorCaller("d1"), bookingRequest("h1", "2026-03-12", "10:00"))
	require.NoError(t, err)
	mine, err := svc.Create(ctx, donorCaller("d2"), bookingRequest("h1", "2026-03-12", "11:00"))
	require.NoError(t, err)

	_, err = svc.Reschedule(ctx, donorCaller("d2"), mine.AppointmentID, &dto.RescheduleAppointmentRequest{
		AppointmentDate: "2026-03-12",
		AppointmentTime: "10:00",
	})
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.Equal(t, "11:00", db.appointments[mine.AppointmentID].AppointmentTime)
}

// ── List ──

func TestListAppointments_RoleScoping(t *testing.T) {
	svc, _, db := setupAppointmentService()
	seedDonor(db, "d1")
	seedDonor(db, "d2")
	h1 := seedHospital(db, "h1", true)
	seedHospital(db, "h2", true)
	ctx := context.Background()

	_, err := svc.Create(ctx, donorCaller("d1"), bookingRequest("h1", "2026-03-12", "10:00"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, donorCaller("d2"), bookingRequest("h2", "2026-03-12", "10:00"))
	require.NoError(t, err)

	req := &dto.AppointmentListRequest{}
	mine, total, err := svc.List(ctx, donorCaller("d1"), req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "d1", mine[0].DonorID)

	_, total, err = svc.List(ctx, hospitalCaller(h1), req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = svc.List(ctx, adminCaller(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, _, err = svc.List(ctx, donorCaller("d1"), &dto.AppointmentListRequest{DateFrom: "bad"})
	assert.Error(t, err)
}
