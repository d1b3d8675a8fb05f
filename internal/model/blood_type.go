package model

// 标准血型（ABO/Rh 八种组合，顺序用于库存行枚举与报表）
var BloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// compatibleDonors 受血者血型 → 可接受的供血者血型
var compatibleDonors = map[string][]string{
	"O-":  {"O-"},
	"O+":  {"O+", "O-"},
	"A-":  {"A-", "O-"},
	"A+":  {"A+", "A-", "O+", "O-"},
	"B-":  {"B-", "O-"},
	"B+":  {"B+", "B-", "O+", "O-"},
	"AB-": {"AB-", "A-", "B-", "O-"},
	"AB+": {"AB+", "AB-", "A+", "A-", "B+", "B-", "O+", "O-"},
}

// IsValidBloodType 是否为标准血型
func IsValidBloodType(bt string) bool {
	_, ok := compatibleDonors[bt]
	return ok
}

// CompatibleDonorTypes 返回可为 recipient 供血的血型（含自身），非法血型返回 nil
func CompatibleDonorTypes(recipient string) []string {
	donors, ok := compatibleDonors[recipient]
	if !ok {
		return nil
	}
	out := make([]string, len(donors))
	copy(out, donors)
	return out
}
