package dto

// ── 献血者模块 DTO ──

// EligibilityResponse 献血资格检查结果
type EligibilityResponse struct {
	IsEligible       bool     `json:"is_eligible"`
	Reasons          []string `json:"reasons"`
	Requirements     []string `json:"requirements"`
	NextEligibleDate *string  `json:"next_eligible_date,omitempty"`
	DaysRemaining    int      `json:"days_remaining"`
	LastDonationDate *string  `json:"last_donation_date,omitempty"`
	TotalDonations   int64    `json:"total_donations"`
	TotalUnits       int64    `json:"total_units"`
}

// DonationResponse 献血记录
type DonationResponse struct {
	DonationID    string `json:"donation_id"`
	HospitalID    string `json:"hospital_id,omitempty"`
	HospitalName  string `json:"hospital_name,omitempty"`
	AppointmentID string `json:"appointment_id,omitempty"`
	BloodType     string `json:"blood_type"`
	DonationDate  string `json:"donation_date"`
	UnitsDonated  int    `json:"units_donated"`
	Status        string `json:"status"`
}
