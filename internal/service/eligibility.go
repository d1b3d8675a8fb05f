package service

import (
	"fmt"
	"math"
	"time"

	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
)

// ── 献血资格规则 ──

const (
	MinDonorAge = 18
	MaxDonorAge = 65

	// MinDonationWeightKg 当前可献血的体重下限
	MinDonationWeightKg = 50.0
	// MinRegistrationWeightKg 注册时的体重下限（与献血下限分开维护）
	MinRegistrationWeightKg = 45.0

	// DonationIntervalDays 两次献血最短间隔
	DonationIntervalDays = 56
)

// EligibilityRequirements 对外展示的献血条件
var EligibilityRequirements = []string{
	fmt.Sprintf("年龄 %d-%d 周岁", MinDonorAge, MaxDonorAge),
	fmt.Sprintf("体重不低于 %.0f kg", MinDonationWeightKg),
	fmt.Sprintf("距上次献血至少 %d 天", DonationIntervalDays),
	"无心脏病、糖尿病、肝炎、HIV 病史",
	"已登记有效血型",
}

// EligibilityInput 资格评估输入
type EligibilityInput struct {
	DateOfBirth       *time.Time // 自然日
	WeightKg          *float64
	LastDonation      *time.Time // 上次献血当天零点（业务时区）
	MedicalConditions []string
	BloodType         string
}

// EligibilityResult 资格评估结果
type EligibilityResult struct {
	IsEligible       bool
	Reasons          []string
	NextEligibleDate *time.Time
	DaysRemaining    int
}

// EvaluateEligibility 评估献血资格。纯函数：所有规则都会执行，收集全部不满足原因。
func EvaluateEligibility(in EligibilityInput, now time.Time) EligibilityResult {
	res := EligibilityResult{Reasons: []string{}}

	// 年龄
	if in.DateOfBirth == nil {
		res.Reasons = append(res.Reasons, "未登记出生日期")
	} else {
		age := AgeAt(*in.DateOfBirth, now)
		if age < MinDonorAge {
			res.Reasons = append(res.Reasons, fmt.Sprintf("年龄未满 %d 周岁", MinDonorAge))
		} else if age > MaxDonorAge {
			res.Reasons = append(res.Reasons, fmt.Sprintf("年龄超过 %d 周岁", MaxDonorAge))
		}
	}

	// 体重
	if in.WeightKg == nil {
		res.Reasons = append(res.Reasons, "未登记体重")
	} else if *in.WeightKg < MinDonationWeightKg {
		res.Reasons = append(res.Reasons, fmt.Sprintf("体重低于 %.0f kg", MinDonationWeightKg))
	}

	// 献血间隔
	if in.LastDonation != nil {
		next := in.LastDonation.AddDate(0, 0, DonationIntervalDays)
		if now.Before(next) {
			days := int(math.Ceil(next.Sub(now).Hours() / 24))
			res.NextEligibleDate = &next
			res.DaysRemaining = days
			res.Reasons = append(res.Reasons, fmt.Sprintf("距上次献血不足 %d 天，还需等待 %d 天", DonationIntervalDays, days))
		}
	}

	// 病史：命中任一不可献血病史即记录一次
	for _, c := range in.MedicalConditions {
		if model.IsDisqualifyingCondition(c) {
			res.Reasons = append(res.Reasons, "存在不可献血病史: "+c)
			break
		}
	}

	// 血型
	if !model.IsValidBloodType(in.BloodType) {
		res.Reasons = append(res.Reasons, "血型无效或未登记")
	}

	res.IsEligible = len(res.Reasons) == 0
	return res
}

// AgeAt 按日历差计算 at 时的周岁
func AgeAt(dob, at time.Time) int {
	by, bm, bd := dob.Date()
	ay, am, ad := at.Date()
	age := ay - by
	if am < bm || (am == bm && ad < bd) {
		age--
	}
	return age
}
