package services

import (
	"context"
	"time"

	"github.com/lavaderos/turnos-backend/internal/models"
)

// DashboardRepository is the aggregate-count slice of the storage
// layer.
type DashboardRepository interface {
	CountSitesByState(ctx context.Context) (map[string]int, error)
	SubscriptionProofStats(ctx context.Context) (models.ProofStats, error)

	GetSiteByOperator(ctx context.Context, operatorID string) (*models.Site, error)
	CountSlotsBySite(ctx context.Context, siteID string) (map[string]int, error)
	SlotProofStatsBySite(ctx context.Context, siteID string) (models.ProofStats, error)

	CountSlotsByCustomer(ctx context.Context, customerID string) (map[string]int, error)
}

// DashboardService assembles the per-role landing projections. Every
// count tolerates an empty database and reports zero.
type DashboardService struct {
	repo DashboardRepository
	now  func() time.Time
}

func NewDashboardService(repo DashboardRepository) *DashboardService {
	return &DashboardService{
		repo: repo,
		now:  time.Now,
	}
}

// PlatformStats summarizes the marketplace for the platform admin.
func (s *DashboardService) PlatformStats(ctx context.Context) (*models.PlatformStats, error) {
	siteCounts, err := s.repo.CountSitesByState(ctx)
	if err != nil {
		return nil, err
	}
	proofStats, err := s.repo.SubscriptionProofStats(ctx)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range siteCounts {
		total += n
	}
	return &models.PlatformStats{
		TotalSites:    total,
		ActiveSites:   siteCounts[models.SiteActive],
		PendingSites:  siteCounts[models.SitePendingApproval],
		ExpiredSites:  siteCounts[models.SiteExpired],
		PendingProofs: proofStats.Pending,
	}, nil
}

// OperatorStats summarizes the operator's site: paid window left, slot
// counts and the pending review queue.
func (s *DashboardService) OperatorStats(ctx context.Context, operatorID string) (*models.OperatorStats, error) {
	site, err := s.repo.GetSiteByOperator(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	slotCounts, err := s.repo.CountSlotsBySite(ctx, site.ID)
	if err != nil {
		return nil, err
	}
	proofStats, err := s.repo.SlotProofStatsBySite(ctx, site.ID)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range slotCounts {
		total += n
	}
	return &models.OperatorStats{
		SiteName:         site.Name,
		OperationalState: site.OperationalState,
		DaysRemaining:    s.daysRemaining(site.SubscriptionExpiry),
		TotalSlots:       total,
		ConfirmedSlots:   slotCounts[models.SlotConfirmed],
		ReservedSlots:    slotCounts[models.SlotReserved],
		PendingProofs:    proofStats.Pending,
	}, nil
}

// CustomerStats summarizes the customer's bookings.
func (s *DashboardService) CustomerStats(ctx context.Context, customerID string) (*models.CustomerStats, error) {
	slotCounts, err := s.repo.CountSlotsByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range slotCounts {
		total += n
	}
	return &models.CustomerStats{
		TotalSlots:     total,
		ConfirmedSlots: slotCounts[models.SlotConfirmed],
		ReservedSlots:  slotCounts[models.SlotReserved],
	}, nil
}

// daysRemaining counts whole days until expiry, never negative.
func (s *DashboardService) daysRemaining(expiry *time.Time) int {
	if expiry == nil {
		return 0
	}
	left := expiry.Sub(s.now())
	if left <= 0 {
		return 0
	}
	return int(left / (24 * time.Hour))
}
