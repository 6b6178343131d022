package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lavaderos/turnos-backend/internal/models"
)

type DashboardRepoMock struct{ mock.Mock }

func (m *DashboardRepoMock) CountSitesByState(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	if v, ok := args.Get(0).(map[string]int); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DashboardRepoMock) SubscriptionProofStats(ctx context.Context) (models.ProofStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.ProofStats), args.Error(1)
}

func (m *DashboardRepoMock) GetSiteByOperator(ctx context.Context, operatorID string) (*models.Site, error) {
	args := m.Called(ctx, operatorID)
	if v, ok := args.Get(0).(*models.Site); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DashboardRepoMock) CountSlotsBySite(ctx context.Context, siteID string) (map[string]int, error) {
	args := m.Called(ctx, siteID)
	if v, ok := args.Get(0).(map[string]int); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DashboardRepoMock) SlotProofStatsBySite(ctx context.Context, siteID string) (models.ProofStats, error) {
	args := m.Called(ctx, siteID)
	return args.Get(0).(models.ProofStats), args.Error(1)
}

func (m *DashboardRepoMock) CountSlotsByCustomer(ctx context.Context, customerID string) (map[string]int, error) {
	args := m.Called(ctx, customerID)
	if v, ok := args.Get(0).(map[string]int); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestDashboard_PlatformStats(t *testing.T) {
	repo := &DashboardRepoMock{}
	repo.On("CountSitesByState", mock.Anything).Return(map[string]int{
		models.SiteActive:          4,
		models.SitePendingApproval: 2,
		models.SiteExpired:         1,
	}, nil)
	repo.On("SubscriptionProofStats", mock.Anything).
		Return(models.ProofStats{Total: 10, Pending: 3, Confirmed: 6, Rejected: 1}, nil)

	svc := NewDashboardService(repo)
	stats, err := svc.PlatformStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalSites)
	assert.Equal(t, 4, stats.ActiveSites)
	assert.Equal(t, 2, stats.PendingSites)
	assert.Equal(t, 1, stats.ExpiredSites)
	assert.Equal(t, 3, stats.PendingProofs)
}

func TestDashboard_PlatformStatsEmpty(t *testing.T) {
	repo := &DashboardRepoMock{}
	repo.On("CountSitesByState", mock.Anything).Return(map[string]int{}, nil)
	repo.On("SubscriptionProofStats", mock.Anything).Return(models.ProofStats{}, nil)

	svc := NewDashboardService(repo)
	stats, err := svc.PlatformStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalSites)
	assert.Zero(t, stats.PendingProofs)
}

func TestDashboard_OperatorStats(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		expiry   *time.Time
		wantDays int
	}{
		{
			name:     "ten and a half days left counts whole days",
			expiry:   timePtr(now.Add(10*24*time.Hour + 12*time.Hour)),
			wantDays: 10,
		},
		{
			name:     "lapsed expiry reports zero",
			expiry:   timePtr(now.Add(-time.Hour)),
			wantDays: 0,
		},
		{
			name:     "no expiry reports zero",
			expiry:   nil,
			wantDays: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := &models.Site{
				ID:                 "site-1",
				Name:               "Lavadero Sur",
				OperationalState:   models.SiteActive,
				SubscriptionExpiry: tt.expiry,
			}
			repo := &DashboardRepoMock{}
			repo.On("GetSiteByOperator", mock.Anything, "op-1").Return(site, nil)
			repo.On("CountSlotsBySite", mock.Anything, "site-1").Return(map[string]int{
				models.SlotAvailable: 5,
				models.SlotReserved:  2,
				models.SlotConfirmed: 3,
			}, nil)
			repo.On("SlotProofStatsBySite", mock.Anything, "site-1").
				Return(models.ProofStats{Pending: 2}, nil)

			svc := NewDashboardService(repo)
			svc.now = fixedClock(now)

			stats, err := svc.OperatorStats(context.Background(), "op-1")
			require.NoError(t, err)
			assert.Equal(t, "Lavadero Sur", stats.SiteName)
			assert.Equal(t, tt.wantDays, stats.DaysRemaining)
			assert.Equal(t, 10, stats.TotalSlots)
			assert.Equal(t, 3, stats.ConfirmedSlots)
			assert.Equal(t, 2, stats.ReservedSlots)
			assert.Equal(t, 2, stats.PendingProofs)
		})
	}
}

func TestDashboard_CustomerStats(t *testing.T) {
	repo := &DashboardRepoMock{}
	repo.On("CountSlotsByCustomer", mock.Anything, "cust-1").Return(map[string]int{
		models.SlotReserved:  1,
		models.SlotConfirmed: 4,
		models.SlotCancelled: 2,
	}, nil)

	svc := NewDashboardService(repo)
	stats, err := svc.CustomerStats(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalSlots)
	assert.Equal(t, 4, stats.ConfirmedSlots)
	assert.Equal(t, 1, stats.ReservedSlots)
}

func timePtr(t time.Time) *time.Time { return &t }
