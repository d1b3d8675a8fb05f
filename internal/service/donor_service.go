package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Sudeep845/Raktsewa-sub000/internal/dto"
	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
	"github.com/Sudeep845/Raktsewa-sub000/internal/repository"
)

// DonorService 献血者业务接口
type DonorService interface {
	// CheckEligibility 基于已存储的献血记录重新评估资格
	CheckEligibility(ctx context.Context, donorID string) (*dto.EligibilityResponse, error)
	ListDonations(ctx context.Context, donorID string, req *dto.PaginationRequest) ([]dto.DonationResponse, int64, error)
}

type donorService struct {
	repo   *repository.Repository
	clock  clock
	logger *zap.Logger
}

// NewDonorService 创建 DonorService 实例
func NewDonorService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) DonorService {
	return &donorService{repo: repo, clock: newClock(loc), logger: logger}
}

// ────────────────────── CheckEligibility ──────────────────────

func (s *donorService) CheckEligibility(ctx context.Context, donorID string) (*dto.EligibilityResponse, error) {
	user, err := findUser(ctx, s.repo, s.logger, donorID)
	if err != nil {
		return nil, err
	}
	if user.Role != model.RoleDonor {
		return nil, ErrNoPermission
	}

	resp, result, err := evaluateDonor(ctx, s.repo, user, s.clock)
	if err != nil {
		s.logger.Error("评估献血资格失败", zap.String("donor_id", donorID), zap.Error(err))
		return nil, err
	}

	// 存储的资格标记与实时结果不一致时回写
	if user.IsEligible != result.IsEligible {
		if err := s.repo.User.SetEligible(ctx, donorID, result.IsEligible); err != nil {
			s.logger.Warn("回写献血资格失败", zap.String("donor_id", donorID), zap.Error(err))
		}
	}
	return resp, nil
}

// ────────────────────── ListDonations ──────────────────────

func (s *donorService) ListDonations(ctx context.Context, donorID string, req *dto.PaginationRequest) ([]dto.DonationResponse, int64, error) {
	donations, total, err := s.repo.Donation.ListByDonor(ctx, donorID, repository.Page{Offset: req.GetOffset(), Limit: req.GetPageSize()})
	if err != nil {
		s.logger.Error("查询献血记录失败", zap.String("donor_id", donorID), zap.Error(err))
		return nil, 0, err
	}

	list := make([]dto.DonationResponse, 0, len(donations))
	for _, d := range donations {
		item := dto.DonationResponse{
			DonationID:    d.DonationID,
			HospitalID:    derefStr(d.HospitalID),
			AppointmentID: derefStr(d.AppointmentID),
			BloodType:     d.BloodType,
			DonationDate:  formatDate(d.DonationDate),
			UnitsDonated:  d.UnitsDonated,
			Status:        d.Status,
		}
		if d.Hospital != nil {
			item.HospitalName = d.Hospital.HospitalName
		}
		list = append(list, item)
	}
	return list, total, nil
}

// evaluateDonor 读取献血统计并评估当前资格
func evaluateDonor(ctx context.Context, repo *repository.Repository, user *model.User, c clock) (*dto.EligibilityResponse, EligibilityResult, error) {
	summary, err := repo.Donation.SummaryByDonor(ctx, user.UserID)
	if err != nil {
		return nil, EligibilityResult{}, err
	}
	result := EvaluateEligibility(eligibilityInputFor(user, summary.LastDonation, c.loc), c.Now())

	resp := &dto.EligibilityResponse{
		IsEligible:       result.IsEligible,
		Reasons:          result.Reasons,
		Requirements:     EligibilityRequirements,
		DaysRemaining:    result.DaysRemaining,
		LastDonationDate: formatDatePtr(summary.LastDonation),
		TotalDonations:   summary.TotalDonations,
		TotalUnits:       summary.TotalUnits,
	}
	if result.NextEligibleDate != nil {
		resp.NextEligibleDate = strPtr(result.NextEligibleDate.Format(model.DateLayout))
	}
	return resp, result, nil
}
