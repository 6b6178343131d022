package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lavaderos/turnos-backend/internal/models"
)

type ScheduleRepoMock struct{ mock.Mock }

func (m *ScheduleRepoMock) GetSiteByOperator(ctx context.Context, operatorID string) (*models.Site, error) {
	args := m.Called(ctx, operatorID)
	if v, ok := args.Get(0).(*models.Site); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ScheduleRepoMock) GetSiteConfig(ctx context.Context, siteID string) (*models.SiteConfig, error) {
	args := m.Called(ctx, siteID)
	if v, ok := args.Get(0).(*models.SiteConfig); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ScheduleRepoMock) CreateSiteConfig(ctx context.Context, cfg models.SiteConfig) error {
	return m.Called(ctx, cfg).Error(0)
}

func (m *ScheduleRepoMock) UpdateSiteConfig(ctx context.Context, cfg models.SiteConfig) error {
	return m.Called(ctx, cfg).Error(0)
}

func (m *ScheduleRepoMock) SetCurrentlyOpen(ctx context.Context, siteID string, open bool) error {
	return m.Called(ctx, siteID, open).Error(0)
}

func (m *ScheduleRepoMock) ListNonWorkingDays(ctx context.Context, siteID string) ([]*models.NonWorkingDay, error) {
	args := m.Called(ctx, siteID)
	if v, ok := args.Get(0).([]*models.NonWorkingDay); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ScheduleRepoMock) AddNonWorkingDay(ctx context.Context, d models.NonWorkingDay) (string, error) {
	args := m.Called(ctx, d)
	return args.String(0), args.Error(1)
}

func (m *ScheduleRepoMock) DeleteNonWorkingDay(ctx context.Context, siteID, id string) error {
	return m.Called(ctx, siteID, id).Error(0)
}

func (m *ScheduleRepoMock) IsNonWorkingDay(ctx context.Context, siteID string, day time.Time) (bool, error) {
	args := m.Called(ctx, siteID, day)
	return args.Bool(0), args.Error(1)
}

func (m *ScheduleRepoMock) InsertSlots(ctx context.Context, slots []models.Slot) (int, error) {
	args := m.Called(ctx, slots)
	return args.Int(0), args.Error(1)
}

func (m *ScheduleRepoMock) ListSiteSlots(ctx context.Context, siteID string, from time.Time) ([]*models.Slot, error) {
	args := m.Called(ctx, siteID, from)
	if v, ok := args.Get(0).([]*models.Slot); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ScheduleRepoMock) ListActiveSites(ctx context.Context) ([]*models.PublicSite, error) {
	args := m.Called(ctx)
	if v, ok := args.Get(0).([]*models.PublicSite); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

var testSite = &models.Site{ID: "site-1", OperatorID: "op-1", Address: "Av. Siempre Viva 123"}

func defaultConfig() *models.SiteConfig {
	addr := testSite.Address
	return &models.SiteConfig{
		SiteID:              "site-1",
		OpenTime:            defaultOpenTime,
		CloseTime:           defaultCloseTime,
		SlotDurationMinutes: defaultSlotDuration,
		WorkingWeekdays:     []int{1, 2, 3, 4, 5},
		BasePrice:           defaultPriceAutos,
		ServiceMotos:        true,
		ServiceAutos:        true,
		ServiceCamionetas:   true,
		PriceMotos:          defaultPriceMotos,
		PriceAutos:          defaultPriceAutos,
		PriceCamionetas:     defaultPriceCamionetas,
		FullAddress:         &addr,
	}
}

func TestSchedule_ConfigLazyCreate(t *testing.T) {
	repo := &ScheduleRepoMock{}
	repo.On("GetSiteByOperator", mock.Anything, "op-1").Return(testSite, nil)
	repo.On("GetSiteConfig", mock.Anything, "site-1").Return(nil, models.ErrNotFound).Once()
	repo.On("CreateSiteConfig", mock.Anything, mock.MatchedBy(func(cfg models.SiteConfig) bool {
		return cfg.OpenTime == "08:00" && cfg.CloseTime == "18:00" &&
			cfg.SlotDurationMinutes == 60 &&
			cfg.PriceMotos == 3000 && cfg.PriceAutos == 5000 && cfg.PriceCamionetas == 8000 &&
			cfg.FullAddress != nil && *cfg.FullAddress == testSite.Address
	})).Return(nil)
	repo.On("GetSiteConfig", mock.Anything, "site-1").Return(defaultConfig(), nil).Once()

	svc := NewScheduleService(repo, newNoopLogger())
	cfg, err := svc.Config(context.Background(), "op-1")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, cfg.WorkingWeekdays)
	repo.AssertExpectations(t)
}

func TestSchedule_UpdateConfigValidation(t *testing.T) {
	base := models.SiteConfigUpdateRequest{
		OpenTime:            "09:00",
		CloseTime:           "17:00",
		SlotDurationMinutes: 30,
		WorkingWeekdays:     []int{1, 2, 3},
		BankAlias:           "lavadero.alias.mp",
		BasePrice:           4000,
	}

	tests := []struct {
		name   string
		mutate func(req *models.SiteConfigUpdateRequest)
	}{
		{
			name:   "open after close",
			mutate: func(req *models.SiteConfigUpdateRequest) { req.OpenTime = "18:00"; req.CloseTime = "09:00" },
		},
		{
			name:   "zero duration",
			mutate: func(req *models.SiteConfigUpdateRequest) { req.SlotDurationMinutes = 0 },
		},
		{
			name:   "duration above cap",
			mutate: func(req *models.SiteConfigUpdateRequest) { req.SlotDurationMinutes = 481 },
		},
		{
			name:   "weekday out of range",
			mutate: func(req *models.SiteConfigUpdateRequest) { req.WorkingWeekdays = []int{0, 3} },
		},
		{
			name:   "unparseable time",
			mutate: func(req *models.SiteConfigUpdateRequest) { req.OpenTime = "9am" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &ScheduleRepoMock{}
			repo.On("GetSiteByOperator", mock.Anything, "op-1").Return(testSite, nil)
			repo.On("GetSiteConfig", mock.Anything, "site-1").Return(defaultConfig(), nil)

			req := base
			tt.mutate(&req)

			svc := NewScheduleService(repo, newNoopLogger())
			_, err := svc.UpdateConfig(context.Background(), "op-1", req)
			assert.True(t, errors.Is(err, models.ErrInvalidInput))
			repo.AssertNotCalled(t, "UpdateSiteConfig", mock.Anything, mock.Anything)
		})
	}
}

func TestSchedule_UpdateConfigDedupesWeekdays(t *testing.T) {
	repo := &ScheduleRepoMock{}
	repo.On("GetSiteByOperator", mock.Anything, "op-1").Return(testSite, nil)
	repo.On("GetSiteConfig", mock.Anything, "site-1").Return(defaultConfig(), nil)
	repo.On("UpdateSiteConfig", mock.Anything, mock.MatchedBy(func(cfg models.SiteConfig) bool {
		return len(cfg.WorkingWeekdays) == 2 &&
			cfg.WorkingWeekdays[0] == 1 && cfg.WorkingWeekdays[1] == 6
	})).Return(nil)

	svc := NewScheduleService(repo, newNoopLogger())
	_, err := svc.UpdateConfig(context.Background(), "op-1", models.SiteConfigUpdateRequest{
		OpenTime:            "09:00",
		CloseTime:           "17:00",
		SlotDurationMinutes: 30,
		WorkingWeekdays:     []int{1, 6, 1, 6},
		BankAlias:           "lavadero.alias.mp",
	})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestSchedule_AddNonWorkingDay(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		date    string
		wantErr error
	}{
		{name: "future day", date: "2024-03-15"},
		{name: "today is allowed", date: "2024-03-10"},
		{name: "past day rejected", date: "2024-03-09", wantErr: models.ErrPastDate},
		{name: "garbage date rejected", date: "15/03/2024", wantErr: models.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &ScheduleRepoMock{}
			repo.On("GetSiteByOperator", mock.Anything, "op-1").Return(testSite, nil)
			if tt.wantErr == nil {
				repo.On("AddNonWorkingDay", mock.Anything, mock.MatchedBy(func(d models.NonWorkingDay) bool {
					return d.SiteID == "site-1"
				})).Return("nwd-1", nil)
			}

			svc := NewScheduleService(repo, newNoopLogger())
			svc.now = fixedClock(now)

			id, err := svc.AddNonWorkingDay(context.Background(), "op-1", models.NonWorkingDayRequest{Date: tt.date})
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "nwd-1", id)
		})
	}
}

func TestSchedule_GenerateSlots(t *testing.T) {
	// 2024-03-11 is a Monday.
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	repo := &ScheduleRepoMock{}
	repo.On("GetSiteByOperator", mock.Anything, "op-1").Return(testSite, nil)
	repo.On("GetSiteConfig", mock.Anything, "site-1").Return(defaultConfig(), nil)
	repo.On("IsNonWorkingDay", mock.Anything, "site-1", day).Return(false, nil)
	repo.On("InsertSlots", mock.Anything, mock.MatchedBy(func(slots []models.Slot) bool {
		if len(slots) != 10 {
			return false
		}
		first := slots[0]
		last := slots[len(slots)-1]
		return first.StartsAt.Equal(day.Add(8*time.Hour)) &&
			last.StartsAt.Equal(day.Add(17*time.Hour)) &&
			first.Price == defaultPriceAutos
	})).Return(10, nil)

	svc := NewScheduleService(repo, newNoopLogger())
	svc.now = fixedClock(now)

	created, err := svc.GenerateSlots(context.Background(), "op-1", models.GenerateSlotsRequest{Date: "2024-03-11"})
	require.NoError(t, err)
	assert.Equal(t, 10, created)
	repo.AssertExpectations(t)
}

func TestSchedule_GenerateSlotsRejections(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		date       string
		setupMocks func(repo *ScheduleRepoMock)
		wantErr    error
	}{
		{
			name:       "past day",
			date:       "2024-03-08",
			setupMocks: func(*ScheduleRepoMock) {},
			wantErr:    models.ErrPastDate,
		},
		{
			name: "non-working weekday",
			// 2024-03-16 is a Saturday.
			date:       "2024-03-16",
			setupMocks: func(*ScheduleRepoMock) {},
			wantErr:    models.ErrInvalidInput,
		},
		{
			name: "blocked day",
			date: "2024-03-11",
			setupMocks: func(repo *ScheduleRepoMock) {
				day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
				repo.On("IsNonWorkingDay", mock.Anything, "site-1", day).Return(true, nil)
			},
			wantErr: models.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &ScheduleRepoMock{}
			repo.On("GetSiteByOperator", mock.Anything, "op-1").Return(testSite, nil)
			repo.On("GetSiteConfig", mock.Anything, "site-1").Return(defaultConfig(), nil)
			tt.setupMocks(repo)

			svc := NewScheduleService(repo, newNoopLogger())
			svc.now = fixedClock(now)

			_, err := svc.GenerateSlots(context.Background(), "op-1", models.GenerateSlotsRequest{Date: tt.date})
			assert.True(t, errors.Is(err, tt.wantErr))
			repo.AssertNotCalled(t, "InsertSlots", mock.Anything, mock.Anything)
		})
	}
}

func TestSchedule_GenerateSlotsIdempotent(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	repo := &ScheduleRepoMock{}
	repo.On("GetSiteByOperator", mock.Anything, "op-1").Return(testSite, nil)
	repo.On("GetSiteConfig", mock.Anything, "site-1").Return(defaultConfig(), nil)
	repo.On("IsNonWorkingDay", mock.Anything, "site-1", day).Return(false, nil)
	repo.On("InsertSlots", mock.Anything, mock.Anything).Return(0, nil)

	svc := NewScheduleService(repo, newNoopLogger())
	svc.now = fixedClock(now)

	created, err := svc.GenerateSlots(context.Background(), "op-1", models.GenerateSlotsRequest{Date: "2024-03-11"})
	require.NoError(t, err)
	assert.Zero(t, created)
}
