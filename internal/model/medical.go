package model

// 病史枚举
const (
	ConditionHeartDisease = "heart_disease"
	ConditionDiabetes     = "diabetes"
	ConditionHepatitis    = "hepatitis"
	ConditionHIV          = "hiv"
	ConditionHypertension = "hypertension"
	ConditionAsthma       = "asthma"
	ConditionAnemia       = "anemia"
	ConditionAllergy      = "allergy"
	ConditionOther        = "other"
)

var medicalConditions = map[string]bool{
	ConditionHeartDisease: true,
	ConditionDiabetes:     true,
	ConditionHepatitis:    true,
	ConditionHIV:          true,
	ConditionHypertension: false,
	ConditionAsthma:       false,
	ConditionAnemia:       false,
	ConditionAllergy:      false,
	ConditionOther:        false,
}

// IsValidMedicalCondition 是否为已知病史枚举
func IsValidMedicalCondition(c string) bool {
	_, ok := medicalConditions[c]
	return ok
}

// IsDisqualifyingCondition 是否属于不可献血病史
func IsDisqualifyingCondition(c string) bool {
	return medicalConditions[c]
}
