package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
	"github.com/Sudeep845/Raktsewa-sub000/internal/repository"
)

// ── 内存数据集 ──
//
// 所有 mock repository 共享一个 mockDB，唯一约束按数据库索引名返回 23505，
// 便于验证冲突映射。failOn 可为任意方法注入错误（键形如 "Inventory.Adjust"）。

type mockDB struct {
	seq           int
	users         map[string]*model.User
	hospitals     map[string]*model.Hospital
	inventory     map[string]*model.BloodInventory // key: hospitalID|bloodType
	appointments  map[string]*model.Appointment
	donations     []*model.Donation
	emergencies   map[string]*model.EmergencyRequest
	notifications []*model.Notification
	logs          []*model.ActivityLog
	failOn        map[string]error
}

func newMockDB() *mockDB {
	return &mockDB{
		users:        make(map[string]*model.User),
		hospitals:    make(map[string]*model.Hospital),
		inventory:    make(map[string]*model.BloodInventory),
		appointments: make(map[string]*model.Appointment),
		emergencies:  make(map[string]*model.EmergencyRequest),
		failOn:       make(map[string]error),
	}
}

func (m *mockDB) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *mockDB) fail(op string) error {
	return m.failOn[op]
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func invKey(hospitalID, bloodType string) string { return hospitalID + "|" + bloodType }

// applyAdjustment 复刻库存 upsert 的 SQL 表达式：GREATEST(0, …)
func applyAdjustment(current, amount int, mode string) int {
	v := current
	switch mode {
	case model.AdjustSet:
		v = amount
	case model.AdjustAdd:
		v = current + amount
	case model.AdjustSubtract:
		v = current - amount
	}
	return max(v, 0)
}

func paginate[T any](items []T, page repository.Page) []T {
	if page.Offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if page.Limit > 0 && page.Offset+page.Limit < end {
		end = page.Offset + page.Limit
	}
	return items[page.Offset:end]
}

// newMockRepository 组装基于 mockDB 的 Repository（db 为 nil，事务退化为直接调用）
func newMockRepository() (*repository.Repository, *mockDB) {
	db := newMockDB()
	return &repository.Repository{
		User:         &mockUserRepo{db},
		Hospital:     &mockHospitalRepo{db},
		Inventory:    &mockInventoryRepo{db},
		Appointment:  &mockAppointmentRepo{db},
		Donation:     &mockDonationRepo{db},
		Emergency:    &mockEmergencyRepo{db},
		Notification: &mockNotificationRepo{db},
		ActivityLog:  &mockActivityLogRepo{db},
	}, db
}

// ── Mock UserRepository ──

type mockUserRepo struct{ db *mockDB }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if err := m.db.fail("User.Create"); err != nil {
		return err
	}
	for _, u := range m.db.users {
		if u.Username == user.Username {
			return uniqueViolation("uq_users_username")
		}
		if u.Email == user.Email {
			return uniqueViolation("uq_users_email")
		}
	}
	if user.UserID == "" {
		user.UserID = m.db.nextID("user")
	}
	user.CreatedAt = time.Now()
	m.db.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if err := m.db.fail("User.GetByID"); err != nil {
		return nil, err
	}
	u, ok := m.db.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	u.Hospital = nil
	for _, h := range m.db.hospitals {
		if h.UserID == u.UserID {
			u.Hospital = h
		}
	}
	return u, nil
}

func (m *mockUserRepo) GetByLogin(ctx context.Context, identifier, role string) (*model.User, error) {
	for _, u := range m.db.users {
		if (u.Username == identifier || u.Email == identifier) && u.Role == role {
			return m.GetByID(ctx, u.UserID)
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	for _, u := range m.db.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, u := range m.db.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if err := m.db.fail("User.Update"); err != nil {
		return err
	}
	m.db.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) SetActive(_ context.Context, id string, active bool) error {
	if err := m.db.fail("User.SetActive"); err != nil {
		return err
	}
	if u, ok := m.db.users[id]; ok {
		u.IsActive = active
	}
	return nil
}

func (m *mockUserRepo) SetEligible(_ context.Context, id string, eligible bool) error {
	if err := m.db.fail("User.SetEligible"); err != nil {
		return err
	}
	if u, ok := m.db.users[id]; ok {
		u.IsEligible = eligible
	}
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	if u, ok := m.db.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filter repository.UserFilter, page repository.Page) ([]model.User, int64, error) {
	var all []model.User
	for _, u := range m.db.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		if filter.Keyword != "" && !strings.Contains(u.FullName+u.Username+u.Email, filter.Keyword) {
			continue
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UserID < all[j].UserID })
	return paginate(all, page), int64(len(all)), nil
}

func (m *mockUserRepo) CountByRole(_ context.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, u := range m.db.users {
		out[u.Role]++
	}
	return out, nil
}

// ── Mock HospitalRepository ──

type mockHospitalRepo struct{ db *mockDB }

func (m *mockHospitalRepo) Create(_ context.Context, h *model.Hospital) error {
	if err := m.db.fail("Hospital.Create"); err != nil {
		return err
	}
	for _, existing := range m.db.hospitals {
		if existing.LicenseNumber == h.LicenseNumber {
			return uniqueViolation("uq_hospitals_license_number")
		}
	}
	if h.HospitalID == "" {
		h.HospitalID = m.db.nextID("hospital")
	}
	h.CreatedAt = time.Now()
	m.db.hospitals[h.HospitalID] = h
	return nil
}

func (m *mockHospitalRepo) GetByID(_ context.Context, id string) (*model.Hospital, error) {
	if err := m.db.fail("Hospital.GetByID"); err != nil {
		return nil, err
	}
	h, ok := m.db.hospitals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	h.User = m.db.users[h.UserID]
	return h, nil
}

func (m *mockHospitalRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Hospital, error) {
	return m.GetByID(ctx, id)
}

func (m *mockHospitalRepo) GetByUserID(_ context.Context, userID string) (*model.Hospital, error) {
	for _, h := range m.db.hospitals {
		if h.UserID == userID {
			return h, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockHospitalRepo) ExistsByLicense(_ context.Context, licenseNumber string) (bool, error) {
	for _, h := range m.db.hospitals {
		if h.LicenseNumber == licenseNumber {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockHospitalRepo) SetApproval(_ context.Context, id string, approved, active bool) error {
	if err := m.db.fail("Hospital.SetApproval"); err != nil {
		return err
	}
	h, ok := m.db.hospitals[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	h.IsApproved = approved
	h.IsActive = active
	if approved && h.ApprovedAt == nil {
		now := time.Now()
		h.ApprovedAt = &now
	}
	return nil
}

func (m *mockHospitalRepo) List(_ context.Context, filter repository.HospitalFilter, page repository.Page) ([]model.Hospital, int64, error) {
	var all []model.Hospital
	for _, h := range m.db.hospitals {
		if filter.State != "" && h.ApprovalState() != filter.State {
			continue
		}
		if filter.City != "" && h.City != filter.City {
			continue
		}
		if filter.Keyword != "" && !strings.Contains(h.HospitalName+h.LicenseNumber, filter.Keyword) {
			continue
		}
		all = append(all, *h)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].HospitalName < all[j].HospitalName })
	return paginate(all, page), int64(len(all)), nil
}

func (m *mockHospitalRepo) CountByState(_ context.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, h := range m.db.hospitals {
		out[h.ApprovalState()]++
	}
	return out, nil
}

// ── Mock InventoryRepository ──

type mockInventoryRepo struct{ db *mockDB }

func (m *mockInventoryRepo) BatchCreate(_ context.Context, rows []model.BloodInventory) error {
	if err := m.db.fail("Inventory.BatchCreate"); err != nil {
		return err
	}
	for i := range rows {
		row := rows[i]
		row.InventoryID = m.db.nextID("inv")
		m.db.inventory[invKey(row.HospitalID, row.BloodType)] = &row
	}
	return nil
}

func (m *mockInventoryRepo) Get(_ context.Context, hospitalID, bloodType string) (*model.BloodInventory, error) {
	row, ok := m.db.inventory[invKey(hospitalID, bloodType)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *mockInventoryRepo) ListByHospital(_ context.Context, hospitalID string) ([]model.BloodInventory, error) {
	var rows []model.BloodInventory
	for _, row := range m.db.inventory {
		if row.HospitalID == hospitalID {
			rows = append(rows, *row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].BloodType < rows[j].BloodType })
	return rows, nil
}

func (m *mockInventoryRepo) Adjust(_ context.Context, hospitalID, bloodType string, amount int, mode string) (int, int, error) {
	if err := m.db.fail("Inventory.Adjust"); err != nil {
		return 0, 0, err
	}
	if !model.IsValidAdjustMode(mode) {
		return 0, 0, fmt.Errorf("unknown adjust mode %q", mode)
	}
	key := invKey(hospitalID, bloodType)
	row, ok := m.db.inventory[key]
	if !ok {
		row = &model.BloodInventory{InventoryID: m.db.nextID("inv"), HospitalID: hospitalID, BloodType: bloodType}
		m.db.inventory[key] = row
	}
	prev := row.UnitsAvailable
	row.UnitsAvailable = applyAdjustment(prev, amount, mode)
	return prev, row.UnitsAvailable, nil
}

func (m *mockInventoryRepo) Decrement(_ context.Context, hospitalID, bloodType string, units int) (int, bool, error) {
	if err := m.db.fail("Inventory.Decrement"); err != nil {
		return 0, false, err
	}
	row, ok := m.db.inventory[invKey(hospitalID, bloodType)]
	if !ok || row.UnitsAvailable < units {
		return 0, false, nil
	}
	row.UnitsAvailable -= units
	return row.UnitsAvailable, true, nil
}

func (m *mockInventoryRepo) SetRequired(_ context.Context, hospitalID, bloodType string, required int) (*model.BloodInventory, error) {
	key := invKey(hospitalID, bloodType)
	row, ok := m.db.inventory[key]
	if !ok {
		row = &model.BloodInventory{InventoryID: m.db.nextID("inv"), HospitalID: hospitalID, BloodType: bloodType}
		m.db.inventory[key] = row
	}
	row.UnitsRequired = required
	cp := *row
	return &cp, nil
}

func (m *mockInventoryRepo) TotalsByBloodType(_ context.Context) ([]repository.BloodTypeTotal, error) {
	totals := make(map[string]*repository.BloodTypeTotal)
	for _, row := range m.db.inventory {
		h, ok := m.db.hospitals[row.HospitalID]
		if !ok || !h.CanOperate() {
			continue
		}
		t, ok := totals[row.BloodType]
		if !ok {
			t = &repository.BloodTypeTotal{BloodType: row.BloodType}
			totals[row.BloodType] = t
		}
		t.UnitsAvailable += int64(row.UnitsAvailable)
		t.UnitsRequired += int64(row.UnitsRequired)
	}
	out := make([]repository.BloodTypeTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	return out, nil
}

// ── Mock AppointmentRepository ──

type mockAppointmentRepo struct{ db *mockDB }

func (m *mockAppointmentRepo) conflict(a *model.Appointment, excludeID string) error {
	for _, other := range m.db.appointments {
		if other.AppointmentID == excludeID || !model.IsActiveAppointmentStatus(other.Status) {
			continue
		}
		if !other.AppointmentDate.Equal(a.AppointmentDate) {
			continue
		}
		if other.HospitalID == a.HospitalID && other.AppointmentTime == a.AppointmentTime {
			return uniqueViolation("uq_appointments_active_slot")
		}
		if other.DonorID == a.DonorID {
			return uniqueViolation("uq_appointments_active_donor_day")
		}
	}
	return nil
}

func (m *mockAppointmentRepo) Create(_ context.Context, appt *model.Appointment) error {
	if err := m.db.fail("Appointment.Create"); err != nil {
		return err
	}
	appt.AppointmentDate = model.DateOnly(appt.AppointmentDate)
	if err := m.conflict(appt, ""); err != nil {
		return err
	}
	if appt.AppointmentID == "" {
		appt.AppointmentID = m.db.nextID("appt")
	}
	appt.CreatedAt = time.Now()
	stored := *appt
	stored.Donor, stored.Hospital = nil, nil
	m.db.appointments[appt.AppointmentID] = &stored
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id string) (*model.Appointment, error) {
	a, ok := m.db.appointments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	cp.Donor = m.db.users[a.DonorID]
	cp.Hospital = m.db.hospitals[a.HospitalID]
	return &cp, nil
}

func (m *mockAppointmentRepo) GetByIDForUpdate(_ context.Context, id string) (*model.Appointment, error) {
	a, ok := m.db.appointments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointmentRepo) HasActiveSlot(_ context.Context, hospitalID string, date time.Time, clock, excludeID string) (bool, error) {
	err := m.conflict(&model.Appointment{HospitalID: hospitalID, AppointmentDate: model.DateOnly(date), AppointmentTime: clock}, excludeID)
	return err != nil, nil
}

func (m *mockAppointmentRepo) HasActiveDonorDay(_ context.Context, donorID string, date time.Time, excludeID string) (bool, error) {
	for _, other := range m.db.appointments {
		if other.AppointmentID != excludeID && other.DonorID == donorID &&
			other.AppointmentDate.Equal(model.DateOnly(date)) && model.IsActiveAppointmentStatus(other.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAppointmentRepo) UpdateStatus(_ context.Context, id, status string) error {
	if err := m.db.fail("Appointment.UpdateStatus"); err != nil {
		return err
	}
	a, ok := m.db.appointments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.Status = status
	return nil
}

func (m *mockAppointmentRepo) Reschedule(_ context.Context, id string, date time.Time, clock, notes string) error {
	a, ok := m.db.appointments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	next := *a
	next.AppointmentDate = model.DateOnly(date)
	next.AppointmentTime = clock
	if err := m.conflict(&next, id); err != nil {
		return err
	}
	a.AppointmentDate = next.AppointmentDate
	a.AppointmentTime = clock
	a.Status = model.AppointmentRescheduled
	if notes != "" {
		a.Notes = notes
	}
	return nil
}

func (m *mockAppointmentRepo) List(ctx context.Context, filter repository.AppointmentFilter, page repository.Page) ([]model.Appointment, int64, error) {
	var all []model.Appointment
	for id, a := range m.db.appointments {
		if filter.DonorID != "" && a.DonorID != filter.DonorID {
			continue
		}
		if filter.HospitalID != "" && a.HospitalID != filter.HospitalID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.DateFrom != nil && a.AppointmentDate.Before(model.DateOnly(*filter.DateFrom)) {
			continue
		}
		if filter.DateTo != nil && a.AppointmentDate.After(model.DateOnly(*filter.DateTo)) {
			continue
		}
		full, _ := m.GetByID(ctx, id)
		all = append(all, *full)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].AppointmentDate.Equal(all[j].AppointmentDate) {
			return all[i].AppointmentDate.Before(all[j].AppointmentDate)
		}
		return all[i].AppointmentTime < all[j].AppointmentTime
	})
	return paginate(all, page), int64(len(all)), nil
}

func (m *mockAppointmentRepo) CountByStatus(_ context.Context, hospitalID string) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, a := range m.db.appointments {
		if hospitalID == "" || a.HospitalID == hospitalID {
			out[a.Status]++
		}
	}
	return out, nil
}

func (m *mockAppointmentRepo) NextForDonor(ctx context.Context, donorID string, from time.Time) (*model.Appointment, error) {
	list, _, _ := m.List(ctx, repository.AppointmentFilter{DonorID: donorID, DateFrom: &from}, repository.Page{})
	for i := range list {
		if model.IsActiveAppointmentStatus(list[i].Status) && list[i].Status != model.AppointmentNoShow {
			return &list[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock DonationRepository ──

type mockDonationRepo struct{ db *mockDB }

func (m *mockDonationRepo) Create(_ context.Context, d *model.Donation) error {
	if err := m.db.fail("Donation.Create"); err != nil {
		return err
	}
	if d.AppointmentID != nil {
		for _, existing := range m.db.donations {
			if existing.AppointmentID != nil && *existing.AppointmentID == *d.AppointmentID {
				return uniqueViolation("uq_donations_appointment")
			}
		}
	}
	d.DonationID = m.db.nextID("donation")
	m.db.donations = append(m.db.donations, d)
	return nil
}

func (m *mockDonationRepo) ListByDonor(_ context.Context, donorID string, page repository.Page) ([]model.Donation, int64, error) {
	var all []model.Donation
	for _, d := range m.db.donations {
		if d.DonorID == donorID {
			all = append(all, *d)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].DonationDate.After(all[j].DonationDate) })
	return paginate(all, page), int64(len(all)), nil
}

func (m *mockDonationRepo) SummaryByDonor(_ context.Context, donorID string) (*repository.DonorSummary, error) {
	if err := m.db.fail("Donation.SummaryByDonor"); err != nil {
		return nil, err
	}
	s := &repository.DonorSummary{}
	for _, d := range m.db.donations {
		if d.DonorID != donorID || d.Status != model.DonationCompleted {
			continue
		}
		s.TotalDonations++
		s.TotalUnits += int64(d.UnitsDonated)
		if s.LastDonation == nil || d.DonationDate.After(*s.LastDonation) {
			date := d.DonationDate
			s.LastDonation = &date
		}
	}
	return s, nil
}

func (m *mockDonationRepo) Count(_ context.Context, hospitalID string) (int64, error) {
	var n int64
	for _, d := range m.db.donations {
		if hospitalID == "" || derefStr(d.HospitalID) == hospitalID {
			n++
		}
	}
	return n, nil
}

func (m *mockDonationRepo) MonthlyTrend(_ context.Context, hospitalID string, since time.Time) ([]repository.MonthlyCount, error) {
	byMonth := make(map[string]*repository.MonthlyCount)
	for _, d := range m.db.donations {
		if d.DonationDate.Before(model.DateOnly(since)) {
			continue
		}
		if hospitalID != "" && derefStr(d.HospitalID) != hospitalID {
			continue
		}
		key := d.DonationDate.Format("2006-01")
		mc, ok := byMonth[key]
		if !ok {
			mc = &repository.MonthlyCount{Month: key}
			byMonth[key] = mc
		}
		mc.Count++
		mc.Units += int64(d.UnitsDonated)
	}
	out := make([]repository.MonthlyCount, 0, len(byMonth))
	for _, mc := range byMonth {
		out = append(out, *mc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

// ── Mock EmergencyRequestRepository ──

type mockEmergencyRepo struct{ db *mockDB }

func (m *mockEmergencyRepo) Create(_ context.Context, r *model.EmergencyRequest) error {
	if err := m.db.fail("Emergency.Create"); err != nil {
		return err
	}
	r.RequestID = m.db.nextID("er")
	r.CreatedAt = time.Now()
	stored := *r
	m.db.emergencies[r.RequestID] = &stored
	return nil
}

func (m *mockEmergencyRepo) GetByID(_ context.Context, id string) (*model.EmergencyRequest, error) {
	r, ok := m.db.emergencies[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	cp.Hospital = m.db.hospitals[r.HospitalID]
	return &cp, nil
}

func (m *mockEmergencyRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.EmergencyRequest, error) {
	return m.GetByID(ctx, id)
}

func (m *mockEmergencyRepo) UpdateStatus(_ context.Context, id, status string, fulfilledAt *time.Time) error {
	if err := m.db.fail("Emergency.UpdateStatus"); err != nil {
		return err
	}
	r, ok := m.db.emergencies[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.Status = status
	if fulfilledAt != nil {
		r.FulfilledAt = fulfilledAt
	}
	return nil
}

func (m *mockEmergencyRepo) List(ctx context.Context, filter repository.EmergencyFilter, page repository.Page) ([]model.EmergencyRequest, int64, error) {
	var all []model.EmergencyRequest
	for id, r := range m.db.emergencies {
		if filter.HospitalID != "" && r.HospitalID != filter.HospitalID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.UrgencyLevel != "" && r.UrgencyLevel != filter.UrgencyLevel {
			continue
		}
		if filter.BloodType != "" && r.BloodType != filter.BloodType {
			continue
		}
		full, _ := m.GetByID(ctx, id)
		all = append(all, *full)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].RequestID < all[j].RequestID })
	return paginate(all, page), int64(len(all)), nil
}

func (m *mockEmergencyRepo) CountOpenByUrgency(_ context.Context, hospitalID string) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, r := range m.db.emergencies {
		if r.Status == model.EmergencyPending && (hospitalID == "" || r.HospitalID == hospitalID) {
			out[r.UrgencyLevel]++
		}
	}
	return out, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct{ db *mockDB }

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	if err := m.db.fail("Notification.Create"); err != nil {
		return err
	}
	n.NotificationID = m.db.nextID("notif")
	n.CreatedAt = time.Now()
	m.db.notifications = append(m.db.notifications, n)
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, page repository.Page) ([]model.Notification, int64, error) {
	var all []model.Notification
	for i := len(m.db.notifications) - 1; i >= 0; i-- {
		n := m.db.notifications[i]
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			all = append(all, *n)
		}
	}
	return paginate(all, page), int64(len(all)), nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	var c int64
	for _, n := range m.db.notifications {
		if n.UserID == userID && !n.IsRead {
			c++
		}
	}
	return c, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, userID, id string) (int64, error) {
	for _, n := range m.db.notifications {
		if n.NotificationID == id && n.UserID == userID {
			n.IsRead = true
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	var c int64
	for _, n := range m.db.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			c++
		}
	}
	return c, nil
}

// ── Mock ActivityLogRepository ──

type mockActivityLogRepo struct{ db *mockDB }

func (m *mockActivityLogRepo) Create(_ context.Context, l *model.ActivityLog) error {
	if err := m.db.fail("ActivityLog.Create"); err != nil {
		return err
	}
	l.ActivityLogID = m.db.nextID("log")
	l.CreatedAt = time.Now()
	m.db.logs = append(m.db.logs, l)
	return nil
}

func (m *mockActivityLogRepo) ListInventoryHistory(_ context.Context, hospitalID, bloodType string, page repository.Page) ([]model.ActivityLog, int64, error) {
	var all []model.ActivityLog
	for i := len(m.db.logs) - 1; i >= 0; i-- {
		l := m.db.logs[i]
		if l.EntityType != "inventory" {
			continue
		}
		if hospitalID != "" && derefStr(l.HospitalID) != hospitalID {
			continue
		}
		if bloodType != "" && derefStr(l.BloodType) != bloodType {
			continue
		}
		all = append(all, *l)
	}
	return paginate(all, page), int64(len(all)), nil
}

// ── 测试夹具 ──

var testLoc = time.UTC

// fixedClock 固定在 now 的业务时钟
func fixedClock(now time.Time) clock {
	return clock{now: func() time.Time { return now }, loc: testLoc}
}

// testNow 测试基准时刻：2026-03-10 09:00 UTC
var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func testFx(repo *repository.Repository) sideEffects {
	return sideEffects{repo: repo, logger: zap.NewNop()}
}

// seedDonor 写入一名满足献血条件的献血者（30 岁、70 kg、O+）
func seedDonor(db *mockDB, id string) *model.User {
	dob := time.Date(1996, 1, 15, 0, 0, 0, 0, time.UTC)
	bt := "O+"
	u := &model.User{
		UserID:      id,
		Username:    id,
		Email:       id + "@example.com",
		Role:        model.RoleDonor,
		FullName:    "Donor " + id,
		Phone:       "9800000000",
		DateOfBirth: &dob,
		BloodType:   &bt,
		WeightKg:    float64Ptr(70),
		IsEligible:  true,
		IsActive:    true,
	}
	db.users[id] = u
	return u
}

// seedHospital 写入医院账号、医院及 8 条零库存；approved 控制审核状态
func seedHospital(db *mockDB, id string, approved bool) *model.Hospital {
	owner := &model.User{
		UserID:   "owner-" + id,
		Username: "owner-" + id,
		Email:    "owner-" + id + "@example.com",
		Role:     model.RoleHospital,
		FullName: "Owner " + id,
		IsActive: true,
	}
	db.users[owner.UserID] = owner
	h := &model.Hospital{
		HospitalID:    id,
		UserID:        owner.UserID,
		HospitalName:  "Hospital " + id,
		LicenseNumber: "LIC-" + id,
		City:          "Kathmandu",
		IsApproved:    approved,
		IsActive:      true,
	}
	db.hospitals[id] = h
	for _, bt := range model.BloodTypes {
		db.inventory[invKey(id, bt)] = &model.BloodInventory{HospitalID: id, BloodType: bt}
	}
	return h
}

func donorCaller(id string) Caller { return Caller{UserID: id, Role: model.RoleDonor} }

func hospitalCaller(h *model.Hospital) Caller {
	return Caller{UserID: h.UserID, Role: model.RoleHospital, HospitalID: h.HospitalID}
}

func adminCaller() Caller { return Caller{UserID: "admin-1", Role: model.RoleAdmin} }

func intPtr(v int) *int { return &v }
