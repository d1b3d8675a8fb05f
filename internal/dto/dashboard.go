package dto

// ── 仪表盘 DTO（按角色返回其一） ──

// DashboardResponse 仪表盘
type DashboardResponse struct {
	Role     string             `json:"role"`
	Admin    *AdminDashboard    `json:"admin,omitempty"`
	Hospital *HospitalDashboard `json:"hospital,omitempty"`
	Donor    *DonorDashboard    `json:"donor,omitempty"`
}

// TrendPoint 月度趋势
type TrendPoint struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
	Units int64  `json:"units"`
}

// AdminDashboard 管理员视图
type AdminDashboard struct {
	UsersByRole          map[string]int64       `json:"users_by_role"`
	HospitalsByState     map[string]int64       `json:"hospitals_by_state"`
	TotalDonations       int64                  `json:"total_donations"`
	DonationTrend        []TrendPoint           `json:"donation_trend"`
	NetworkInventory     []NetworkInventoryItem `json:"network_inventory"`
	AppointmentsByStatus map[string]int64       `json:"appointments_by_status"`
	OpenEmergencies      map[string]int64       `json:"open_emergencies"`
}

// HospitalDashboard 医院视图
type HospitalDashboard struct {
	HospitalID           string                `json:"hospital_id"`
	HospitalName         string                `json:"hospital_name"`
	Inventory            []InventoryItem       `json:"inventory"`
	TodayAppointments    []AppointmentResponse `json:"today_appointments"`
	UpcomingCount        int64                 `json:"upcoming_count"`
	AppointmentsByStatus map[string]int64      `json:"appointments_by_status"`
	OpenEmergencies      map[string]int64      `json:"open_emergencies"`
	DonationTrend        []TrendPoint          `json:"donation_trend"`
}

// DonorDashboard 献血者视图
type DonorDashboard struct {
	Eligibility     EligibilityResponse  `json:"eligibility"`
	NextAppointment *AppointmentResponse `json:"next_appointment,omitempty"`
	UnreadCount     int64                `json:"unread_notifications"`
}
