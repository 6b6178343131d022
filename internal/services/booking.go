package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/lavaderos/turnos-backend/internal/models"
)

// BookingRepository is the slot slice of the storage layer.
type BookingRepository interface {
	GetSlot(ctx context.Context, id string) (*models.Slot, error)
	GetSite(ctx context.Context, id string) (*models.Site, error)
	ListAvailableSlots(ctx context.Context, siteID string, from time.Time) ([]*models.Slot, error)
	ListCustomerSlots(ctx context.Context, customerID string) ([]*models.Slot, error)
	ReserveSlot(ctx context.Context, slotID, customerID string) error
	ReleaseSlot(ctx context.Context, slotID string) error
	SetSlotState(ctx context.Context, slotID, state string) error
	SlotHasAnyProof(ctx context.Context, slotID string) (bool, error)
}

// BookingService handles slot reservation and cancellation for
// customers.
type BookingService struct {
	repo BookingRepository
	log  *slog.Logger
	now  func() time.Time
}

func NewBookingService(repo BookingRepository, log *slog.Logger) *BookingService {
	return &BookingService{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// AvailableSlots lists the open future slots of a site. Only ACTIVE
// sites are bookable.
func (s *BookingService) AvailableSlots(ctx context.Context, siteID string) ([]*models.Slot, error) {
	site, err := s.repo.GetSite(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if site.OperationalState != models.SiteActive || !site.Active {
		return nil, models.ErrInvalidState
	}
	return s.repo.ListAvailableSlots(ctx, siteID, s.now().UTC())
}

// MySlots lists the slots a customer holds or has held, newest first.
func (s *BookingService) MySlots(ctx context.Context, customerID string) ([]*models.Slot, error) {
	return s.repo.ListCustomerSlots(ctx, customerID)
}

// Reserve claims an available slot for a customer. The claim is a
// single conditional update, so two racing customers cannot both win.
func (s *BookingService) Reserve(ctx context.Context, customerID, slotID string) (*models.Slot, error) {
	slot, err := s.repo.GetSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if !slot.StartsAt.After(s.now()) {
		return nil, models.ErrInvalidState
	}
	site, err := s.repo.GetSite(ctx, slot.SiteID)
	if err != nil {
		return nil, err
	}
	if site.OperationalState != models.SiteActive || !site.Active {
		return nil, models.ErrInvalidState
	}

	if err = s.repo.ReserveSlot(ctx, slotID, customerID); err != nil {
		return nil, err
	}

	s.log.Info("slot reserved",
		slog.String("slot_id", slotID),
		slog.String("customer_id", customerID))
	return s.repo.GetSlot(ctx, slotID)
}

// Cancel gives up a slot the customer holds. Only a RESERVED slot can
// be cancelled; a CONFIRMED one is settled and stays put. A slot
// nobody ever uploaded a proof for goes straight back on the market;
// once a proof exists the slot is retired as CANCELLED so the operator
// keeps the paper trail.
func (s *BookingService) Cancel(ctx context.Context, customerID, slotID string) (*models.Slot, error) {
	slot, err := s.repo.GetSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.CustomerID == nil || *slot.CustomerID != customerID {
		return nil, models.ErrForbidden
	}
	if slot.State != models.SlotReserved {
		return nil, models.ErrInvalidState
	}

	if err = s.retire(ctx, slotID); err != nil {
		return nil, err
	}

	s.log.Info("slot cancelled",
		slog.String("slot_id", slotID),
		slog.String("customer_id", customerID))
	return s.repo.GetSlot(ctx, slotID)
}

// CancelForOperator cancels a reservation at the operator's own site,
// with the same state rules as a customer cancel.
func (s *BookingService) CancelForOperator(ctx context.Context, operatorID, slotID string) (*models.Slot, error) {
	slot, err := s.repo.GetSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	site, err := s.repo.GetSite(ctx, slot.SiteID)
	if err != nil {
		return nil, err
	}
	if site.OperatorID != operatorID {
		return nil, models.ErrForbidden
	}
	if slot.State != models.SlotReserved {
		return nil, models.ErrInvalidState
	}

	if err = s.retire(ctx, slotID); err != nil {
		return nil, err
	}

	s.log.Info("slot cancelled by operator",
		slog.String("slot_id", slotID),
		slog.String("operator_id", operatorID))
	return s.repo.GetSlot(ctx, slotID)
}

func (s *BookingService) retire(ctx context.Context, slotID string) error {
	hasProof, err := s.repo.SlotHasAnyProof(ctx, slotID)
	if err != nil {
		return err
	}
	if hasProof {
		return s.repo.SetSlotState(ctx, slotID, models.SlotCancelled)
	}
	return s.repo.ReleaseSlot(ctx, slotID)
}
