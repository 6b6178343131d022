package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lavaderos/turnos-backend/internal/models"
)

// Schedule config defaults applied on first access.
const (
	defaultOpenTime     = "08:00"
	defaultCloseTime    = "18:00"
	defaultSlotDuration = 60

	defaultPriceMotos      = 3000
	defaultPriceAutos      = 5000
	defaultPriceCamionetas = 8000
)

const (
	clockLayout = "15:04"
	dayLayout   = "2006-01-02"

	maxSlotDuration = 480
)

// ScheduleRepository is the site schedule slice of the storage layer.
type ScheduleRepository interface {
	GetSiteByOperator(ctx context.Context, operatorID string) (*models.Site, error)
	GetSiteConfig(ctx context.Context, siteID string) (*models.SiteConfig, error)
	CreateSiteConfig(ctx context.Context, cfg models.SiteConfig) error
	UpdateSiteConfig(ctx context.Context, cfg models.SiteConfig) error
	SetCurrentlyOpen(ctx context.Context, siteID string, open bool) error

	ListNonWorkingDays(ctx context.Context, siteID string) ([]*models.NonWorkingDay, error)
	AddNonWorkingDay(ctx context.Context, d models.NonWorkingDay) (string, error)
	DeleteNonWorkingDay(ctx context.Context, siteID, id string) error
	IsNonWorkingDay(ctx context.Context, siteID string, day time.Time) (bool, error)

	InsertSlots(ctx context.Context, slots []models.Slot) (int, error)
	ListSiteSlots(ctx context.Context, siteID string, from time.Time) ([]*models.Slot, error)

	ListActiveSites(ctx context.Context) ([]*models.PublicSite, error)
}

// ScheduleService owns the per-site schedule: config, non-working days
// and slot generation.
type ScheduleService struct {
	repo ScheduleRepository
	log  *slog.Logger
	now  func() time.Time
}

func NewScheduleService(repo ScheduleRepository, log *slog.Logger) *ScheduleService {
	return &ScheduleService{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// Config returns the operator's site config, creating it with defaults
// on first access.
func (s *ScheduleService) Config(ctx context.Context, operatorID string) (*models.SiteConfig, error) {
	site, err := s.repo.GetSiteByOperator(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	return s.configFor(ctx, site)
}

func (s *ScheduleService) configFor(ctx context.Context, site *models.Site) (*models.SiteConfig, error) {
	cfg, err := s.repo.GetSiteConfig(ctx, site.ID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	address := site.Address
	defaults := models.SiteConfig{
		SiteID:              site.ID,
		OpenTime:            defaultOpenTime,
		CloseTime:           defaultCloseTime,
		SlotDurationMinutes: defaultSlotDuration,
		WorkingWeekdays:     []int{1, 2, 3, 4, 5},
		BankAlias:           "",
		BasePrice:           defaultPriceAutos,
		ServiceMotos:        true,
		ServiceAutos:        true,
		ServiceCamionetas:   true,
		PriceMotos:          defaultPriceMotos,
		PriceAutos:          defaultPriceAutos,
		PriceCamionetas:     defaultPriceCamionetas,
		FullAddress:         &address,
	}
	if err = s.repo.CreateSiteConfig(ctx, defaults); err != nil {
		return nil, err
	}
	s.log.Info("created default site config", slog.String("site_id", site.ID))
	return s.repo.GetSiteConfig(ctx, site.ID)
}

// UpdateConfig validates and replaces the operator's site config.
func (s *ScheduleService) UpdateConfig(ctx context.Context, operatorID string, req models.SiteConfigUpdateRequest) (*models.SiteConfig, error) {
	site, err := s.repo.GetSiteByOperator(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	// Lazy-create first so the update never hits a missing row.
	if _, err = s.configFor(ctx, site); err != nil {
		return nil, err
	}

	open, close, err := parseWindow(req.OpenTime, req.CloseTime)
	if err != nil {
		return nil, err
	}
	if !open.Before(close) {
		return nil, fmt.Errorf("%w: open time must precede close time", models.ErrInvalidInput)
	}
	if req.SlotDurationMinutes < 1 || req.SlotDurationMinutes > maxSlotDuration {
		return nil, fmt.Errorf("%w: slot duration must be between 1 and %d minutes", models.ErrInvalidInput, maxSlotDuration)
	}
	weekdays, err := normalizeWeekdays(req.WorkingWeekdays)
	if err != nil {
		return nil, err
	}

	cfg := models.SiteConfig{
		SiteID:              site.ID,
		OpenTime:            req.OpenTime,
		CloseTime:           req.CloseTime,
		SlotDurationMinutes: req.SlotDurationMinutes,
		WorkingWeekdays:     weekdays,
		BankAlias:           req.BankAlias,
		BasePrice:           req.BasePrice,
		ServiceMotos:        req.ServiceMotos,
		ServiceAutos:        req.ServiceAutos,
		ServiceCamionetas:   req.ServiceCamionetas,
		PriceMotos:          req.PriceMotos,
		PriceAutos:          req.PriceAutos,
		PriceCamionetas:     req.PriceCamionetas,
		Latitude:            req.Latitude,
		Longitude:           req.Longitude,
		FullAddress:         req.FullAddress,
	}
	if err = s.repo.UpdateSiteConfig(ctx, cfg); err != nil {
		return nil, err
	}
	s.log.Info("updated site config", slog.String("site_id", site.ID))
	return s.repo.GetSiteConfig(ctx, site.ID)
}

// SetOpen flips the real-time open flag shown on the public listing.
func (s *ScheduleService) SetOpen(ctx context.Context, operatorID string, open bool) error {
	site, err := s.repo.GetSiteByOperator(ctx, operatorID)
	if err != nil {
		return err
	}
	if _, err = s.configFor(ctx, site); err != nil {
		return err
	}
	return s.repo.SetCurrentlyOpen(ctx, site.ID, open)
}

// NonWorkingDays lists the operator's blocked days.
func (s *ScheduleService) NonWorkingDays(ctx context.Context, operatorID string) ([]*models.NonWorkingDay, error) {
	site, err := s.repo.GetSiteByOperator(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListNonWorkingDays(ctx, site.ID)
}

// AddNonWorkingDay blocks a future day. Past days are rejected and
// duplicates surface as ErrDuplicateNonWorkingDay.
func (s *ScheduleService) AddNonWorkingDay(ctx context.Context, operatorID string, req models.NonWorkingDayRequest) (string, error) {
	site, err := s.repo.GetSiteByOperator(ctx, operatorID)
	if err != nil {
		return "", err
	}
	day, err := time.ParseInLocation(dayLayout, req.Date, time.UTC)
	if err != nil {
		return "", fmt.Errorf("%w: invalid date", models.ErrInvalidInput)
	}
	today := s.today()
	if day.Before(today) {
		return "", models.ErrPastDate
	}

	id, err := s.repo.AddNonWorkingDay(ctx, models.NonWorkingDay{
		SiteID: site.ID,
		Date:   day,
		Reason: req.Reason,
	})
	if err != nil {
		return "", err
	}
	s.log.Info("added non-working day",
		slog.String("site_id", site.ID),
		slog.String("day", req.Date))
	return id, nil
}

// RemoveNonWorkingDay unblocks a day.
func (s *ScheduleService) RemoveNonWorkingDay(ctx context.Context, operatorID, id string) error {
	site, err := s.repo.GetSiteByOperator(ctx, operatorID)
	if err != nil {
		return err
	}
	return s.repo.DeleteNonWorkingDay(ctx, site.ID, id)
}

// GenerateSlots creates the AVAILABLE slots of one day from the site
// schedule. Existing slots are left alone, so regenerating a day is
// safe. Returns the number of slots created.
func (s *ScheduleService) GenerateSlots(ctx context.Context, operatorID string, req models.GenerateSlotsRequest) (int, error) {
	site, err := s.repo.GetSiteByOperator(ctx, operatorID)
	if err != nil {
		return 0, err
	}
	cfg, err := s.configFor(ctx, site)
	if err != nil {
		return 0, err
	}

	day, err := time.ParseInLocation(dayLayout, req.Date, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid date", models.ErrInvalidInput)
	}
	if day.Before(s.today()) {
		return 0, models.ErrPastDate
	}
	if !containsWeekday(cfg.WorkingWeekdays, isoWeekday(day)) {
		return 0, fmt.Errorf("%w: not a working weekday", models.ErrInvalidInput)
	}
	blocked, err := s.repo.IsNonWorkingDay(ctx, site.ID, day)
	if err != nil {
		return 0, err
	}
	if blocked {
		return 0, fmt.Errorf("%w: day is marked as non-working", models.ErrInvalidInput)
	}

	open, close, err := parseWindow(cfg.OpenTime, cfg.CloseTime)
	if err != nil {
		return 0, err
	}

	var slots []models.Slot
	duration := time.Duration(cfg.SlotDurationMinutes) * time.Minute
	for t := open; !t.Add(duration).After(close); t = t.Add(duration) {
		startsAt := day.Add(t.Sub(clockZero()))
		slots = append(slots, models.Slot{
			SiteID:   site.ID,
			StartsAt: startsAt,
			Price:    cfg.BasePrice,
		})
	}

	created, err := s.repo.InsertSlots(ctx, slots)
	if err != nil {
		return 0, err
	}
	s.log.Info("generated slots",
		slog.String("site_id", site.ID),
		slog.String("day", req.Date),
		slog.Int("created", created))
	return created, nil
}

// SiteSlots lists the operator's slots from the start of today onward.
func (s *ScheduleService) SiteSlots(ctx context.Context, operatorID string) ([]*models.Slot, error) {
	site, err := s.repo.GetSiteByOperator(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSiteSlots(ctx, site.ID, s.today())
}

// PublicSites lists the ACTIVE sites for the unauthenticated landing
// page.
func (s *ScheduleService) PublicSites(ctx context.Context) ([]*models.PublicSite, error) {
	return s.repo.ListActiveSites(ctx)
}

func (s *ScheduleService) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func parseWindow(openStr, closeStr string) (time.Time, time.Time, error) {
	open, err := time.Parse(clockLayout, openStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid open time", models.ErrInvalidInput)
	}
	close, err := time.Parse(clockLayout, closeStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid close time", models.ErrInvalidInput)
	}
	return open, close, nil
}

func normalizeWeekdays(days []int) ([]int, error) {
	seen := make(map[int]bool)
	var result []int
	for _, d := range days {
		if d < 1 || d > 7 {
			return nil, fmt.Errorf("%w: weekdays must be between 1 and 7", models.ErrInvalidInput)
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		result = append(result, d)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: at least one working weekday is required", models.ErrInvalidInput)
	}
	return result, nil
}

func containsWeekday(days []int, d int) bool {
	for _, day := range days {
		if day == d {
			return true
		}
	}
	return false
}

// isoWeekday maps time.Weekday to 1=Monday .. 7=Sunday.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func clockZero() time.Time {
	zero, _ := time.Parse(clockLayout, "00:00")
	return zero
}
