package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lavaderos/turnos-backend/internal/models"
)

type PlatformRepoMock struct{ mock.Mock }

func (m *PlatformRepoMock) GetPlatformConfig(ctx context.Context, defaults models.PlatformConfig) (*models.PlatformConfig, error) {
	args := m.Called(ctx, defaults)
	if v, ok := args.Get(0).(*models.PlatformConfig); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PlatformRepoMock) UpdatePlatformConfig(ctx context.Context, cfg models.PlatformConfig) error {
	return m.Called(ctx, cfg).Error(0)
}

func (m *PlatformRepoMock) UpdatePendingAmounts(ctx context.Context, amount float64) (int, error) {
	args := m.Called(ctx, amount)
	return args.Int(0), args.Error(1)
}

func TestPlatform_ConfigSeedsDefaults(t *testing.T) {
	repo := &PlatformRepoMock{}
	repo.On("GetPlatformConfig", mock.Anything, defaultPlatformConfig).
		Return(&models.PlatformConfig{BankAlias: "superadmin.alias.mp", MonthlyFee: 10000}, nil)

	svc := NewPlatformService(repo, newNoopLogger())
	cfg, err := svc.Config(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "superadmin.alias.mp", cfg.BankAlias)
	assert.Equal(t, float64(10000), cfg.MonthlyFee)
}

func TestPlatform_UpdateFeePropagates(t *testing.T) {
	repo := &PlatformRepoMock{}
	repo.On("GetPlatformConfig", mock.Anything, defaultPlatformConfig).
		Return(&models.PlatformConfig{BankAlias: "superadmin.alias.mp", MonthlyFee: 10000}, nil)
	repo.On("UpdatePlatformConfig", mock.Anything, models.PlatformConfig{
		BankAlias: "nuevo.alias.mp", MonthlyFee: 15000,
	}).Return(nil)
	repo.On("UpdatePendingAmounts", mock.Anything, float64(15000)).Return(3, nil)

	svc := NewPlatformService(repo, newNoopLogger())
	cfg, err := svc.Update(context.Background(), models.PlatformConfigUpdateRequest{
		BankAlias:  "nuevo.alias.mp",
		MonthlyFee: 15000,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(15000), cfg.MonthlyFee)
	repo.AssertExpectations(t)
}

func TestPlatform_UpdateAliasOnlySkipsPropagation(t *testing.T) {
	repo := &PlatformRepoMock{}
	repo.On("GetPlatformConfig", mock.Anything, defaultPlatformConfig).
		Return(&models.PlatformConfig{BankAlias: "superadmin.alias.mp", MonthlyFee: 10000}, nil)
	repo.On("UpdatePlatformConfig", mock.Anything, models.PlatformConfig{
		BankAlias: "nuevo.alias.mp", MonthlyFee: 10000,
	}).Return(nil)

	svc := NewPlatformService(repo, newNoopLogger())
	_, err := svc.Update(context.Background(), models.PlatformConfigUpdateRequest{
		BankAlias:  "nuevo.alias.mp",
		MonthlyFee: 10000,
	})
	require.NoError(t, err)
	repo.AssertNotCalled(t, "UpdatePendingAmounts", mock.Anything, mock.Anything)
}
