package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lavaderos/turnos-backend/internal/lib/sl"
	"github.com/lavaderos/turnos-backend/internal/lib/upload"
	"github.com/lavaderos/turnos-backend/internal/models"
	"github.com/lavaderos/turnos-backend/internal/notify"
)

const defaultQueueLimit = 50

// PaymentsRepository is the proof and invoice slice of the storage
// layer.
type PaymentsRepository interface {
	GetInvoice(ctx context.Context, id string) (*models.SubscriptionInvoice, error)
	GetPendingInvoiceByOperator(ctx context.Context, operatorID string) (*models.SubscriptionInvoice, error)
	ConfirmInvoice(ctx context.Context, id string) error

	CreateSubscriptionProof(ctx context.Context, p models.SubscriptionProof) (string, error)
	GetSubscriptionProof(ctx context.Context, id string) (*models.SubscriptionProof, error)
	ReviewSubscriptionProof(ctx context.Context, id, state string, comment *string, reviewedAt time.Time) error
	LiveSubscriptionProofForInvoice(ctx context.Context, invoiceID string) (*models.SubscriptionProof, error)
	ListSubscriptionProofs(ctx context.Context, filter models.ProofFilter) ([]*models.SubscriptionProofView, error)
	SubscriptionProofStats(ctx context.Context) (models.ProofStats, error)

	GetSlot(ctx context.Context, id string) (*models.Slot, error)
	SetSlotState(ctx context.Context, slotID, state string) error
	CreateSlotProof(ctx context.Context, p models.SlotProof) (string, error)
	GetSlotProof(ctx context.Context, id string) (*models.SlotProof, error)
	GetSlotProofSiteID(ctx context.Context, proofID string) (string, error)
	ReviewSlotProof(ctx context.Context, id, state string, comment *string, reviewedAt time.Time) error
	ListSlotProofsBySite(ctx context.Context, siteID string, filter models.ProofFilter) ([]*models.SlotProofView, error)
	SlotProofStatsBySite(ctx context.Context, siteID string) (models.ProofStats, error)

	GetSiteByOperator(ctx context.Context, operatorID string) (*models.Site, error)
	GetPlatformConfig(ctx context.Context, defaults models.PlatformConfig) (*models.PlatformConfig, error)
}

// BlobStore keeps the uploaded proof images.
type BlobStore interface {
	Put(data []byte, extension string) (string, error)
	Get(key string) ([]byte, error)
	Delete(key string) error
}

// SiteActivator grants a fresh paid window after a confirmed
// subscription payment. Implemented by the lifecycle service.
type SiteActivator interface {
	ActivateSite(ctx context.Context, siteID string) error
}

// EventPublisher emits review lifecycle events. May be nil when the
// broker is disabled.
type EventPublisher interface {
	Publish(routingKey string, event notify.ProofEvent) error
}

// PaymentsService runs both manual payment-proof pipelines: operator
// subscription proofs reviewed by the platform admin and customer slot
// proofs reviewed by the site operator.
type PaymentsService struct {
	repo      PaymentsRepository
	blobs     BlobStore
	activator SiteActivator
	events    EventPublisher
	log       *slog.Logger
	now       func() time.Time
}

func NewPaymentsService(repo PaymentsRepository, blobs BlobStore, activator SiteActivator,
	events EventPublisher, log *slog.Logger) *PaymentsService {
	return &PaymentsService{
		repo:      repo,
		blobs:     blobs,
		activator: activator,
		events:    events,
		log:       log,
		now:       time.Now,
	}
}

// PendingInvoice describes the operator's outstanding invoice together
// with the platform bank alias to pay it to.
func (s *PaymentsService) PendingInvoice(ctx context.Context, operatorID string) (*models.PendingInvoiceView, error) {
	cfg, err := s.repo.GetPlatformConfig(ctx, defaultPlatformConfig)
	if err != nil {
		return nil, err
	}

	invoice, err := s.repo.GetPendingInvoiceByOperator(ctx, operatorID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &models.PendingInvoiceView{HasPending: false}, nil
		}
		return nil, err
	}

	view := &models.PendingInvoiceView{
		HasPending:        true,
		InvoiceID:         invoice.ID,
		Amount:            invoice.Amount,
		BillingPeriod:     invoice.BillingPeriod,
		DueAt:             &invoice.DueAt,
		PlatformBankAlias: cfg.BankAlias,
	}
	proof, err := s.repo.LiveSubscriptionProofForInvoice(ctx, invoice.ID)
	if err == nil {
		view.HasLiveProof = true
		view.ProofState = &proof.State
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	return view, nil
}

// SubmitSubscriptionProof stores the proof image and attaches a PENDING
// proof to the operator's open invoice. The blob is removed again when
// the insert fails.
func (s *PaymentsService) SubmitSubscriptionProof(ctx context.Context, operatorID string, u models.Upload) (string, error) {
	if err := upload.Validate(u); err != nil {
		return "", err
	}
	invoice, err := s.repo.GetPendingInvoiceByOperator(ctx, operatorID)
	if err != nil {
		return "", err
	}

	imageRef, err := s.blobs.Put(u.Data, upload.Extension(u.ContentType))
	if err != nil {
		return "", err
	}
	proofID, err := s.repo.CreateSubscriptionProof(ctx, models.SubscriptionProof{
		InvoiceID:  invoice.ID,
		OperatorID: operatorID,
		ImageRef:   imageRef,
	})
	if err != nil {
		if delErr := s.blobs.Delete(imageRef); delErr != nil {
			s.log.Warn("failed to delete orphaned proof image",
				slog.String("image_ref", imageRef), sl.Err(delErr))
		}
		return "", err
	}

	s.log.Info("subscription proof submitted",
		slog.String("proof_id", proofID),
		slog.String("invoice_id", invoice.ID))
	s.publish(notify.KeyProofSubmitted, notify.ProofEvent{
		Kind:           "subscription",
		ProofID:        proofID,
		SubjectID:      invoice.ID,
		CounterpartyID: operatorID,
		State:          models.ReviewPending,
		OccurredAt:     s.now().UTC(),
	})
	return proofID, nil
}

// SubscriptionProofQueue returns one page of the platform review queue
// with the unfiltered stats.
func (s *PaymentsService) SubscriptionProofQueue(ctx context.Context, filter models.ProofFilter) (*models.ProofQueue[*models.SubscriptionProofView], error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultQueueLimit
	}
	items, err := s.repo.ListSubscriptionProofs(ctx, filter)
	if err != nil {
		return nil, err
	}
	stats, err := s.repo.SubscriptionProofStats(ctx)
	if err != nil {
		return nil, err
	}
	return &models.ProofQueue[*models.SubscriptionProofView]{Items: items, Stats: stats}, nil
}

// ApproveSubscriptionProof confirms the proof and cascades: the invoice
// settles and the site gets a fresh paid window. Each leg is idempotent
// so a partial failure can be retried.
func (s *PaymentsService) ApproveSubscriptionProof(ctx context.Context, proofID string) error {
	proof, err := s.repo.GetSubscriptionProof(ctx, proofID)
	if err != nil {
		return err
	}

	if err = s.repo.ReviewSubscriptionProof(ctx, proofID, models.ReviewConfirmed, nil, s.now().UTC()); err != nil {
		if !errors.Is(err, models.ErrInvalidState) || proof.State != models.ReviewConfirmed {
			return err
		}
		// Already confirmed, keep going so the cascade can finish.
	}

	if err = s.repo.ConfirmInvoice(ctx, proof.InvoiceID); err != nil {
		return err
	}
	invoice, err := s.repo.GetInvoice(ctx, proof.InvoiceID)
	if err != nil {
		return err
	}
	if err = s.activator.ActivateSite(ctx, invoice.SiteID); err != nil {
		return err
	}

	s.log.Info("subscription proof approved",
		slog.String("proof_id", proofID),
		slog.String("site_id", invoice.SiteID))
	s.publish(notify.KeyProofReviewed, notify.ProofEvent{
		Kind:           "subscription",
		ProofID:        proofID,
		SubjectID:      proof.InvoiceID,
		CounterpartyID: proof.OperatorID,
		State:          models.ReviewConfirmed,
		OccurredAt:     s.now().UTC(),
	})
	return nil
}

// RejectSubscriptionProof rejects the proof with a mandatory comment.
// The invoice stays PENDING so the operator can resubmit.
func (s *PaymentsService) RejectSubscriptionProof(ctx context.Context, proofID, comment string) error {
	proof, err := s.repo.GetSubscriptionProof(ctx, proofID)
	if err != nil {
		return err
	}
	if err = s.repo.ReviewSubscriptionProof(ctx, proofID, models.ReviewRejected, &comment, s.now().UTC()); err != nil {
		return err
	}

	s.log.Info("subscription proof rejected", slog.String("proof_id", proofID))
	s.publish(notify.KeyProofReviewed, notify.ProofEvent{
		Kind:           "subscription",
		ProofID:        proofID,
		SubjectID:      proof.InvoiceID,
		CounterpartyID: proof.OperatorID,
		State:          models.ReviewRejected,
		Comment:        &comment,
		OccurredAt:     s.now().UTC(),
	})
	return nil
}

// SubmitSlotProof stores the proof image for a reserved slot held by
// the customer.
func (s *PaymentsService) SubmitSlotProof(ctx context.Context, customerID, slotID string, u models.Upload) (string, error) {
	if err := upload.Validate(u); err != nil {
		return "", err
	}
	slot, err := s.repo.GetSlot(ctx, slotID)
	if err != nil {
		return "", err
	}
	if slot.CustomerID == nil || *slot.CustomerID != customerID {
		return "", models.ErrForbidden
	}
	if slot.State != models.SlotReserved {
		return "", models.ErrInvalidState
	}

	imageRef, err := s.blobs.Put(u.Data, upload.Extension(u.ContentType))
	if err != nil {
		return "", err
	}
	proofID, err := s.repo.CreateSlotProof(ctx, models.SlotProof{
		SlotID:     slotID,
		CustomerID: customerID,
		ImageRef:   imageRef,
	})
	if err != nil {
		if delErr := s.blobs.Delete(imageRef); delErr != nil {
			s.log.Warn("failed to delete orphaned proof image",
				slog.String("image_ref", imageRef), sl.Err(delErr))
		}
		return "", err
	}

	s.log.Info("slot proof submitted",
		slog.String("proof_id", proofID),
		slog.String("slot_id", slotID))
	s.publish(notify.KeyProofSubmitted, notify.ProofEvent{
		Kind:           "slot",
		ProofID:        proofID,
		SubjectID:      slotID,
		CounterpartyID: customerID,
		State:          models.ReviewPending,
		OccurredAt:     s.now().UTC(),
	})
	return proofID, nil
}

// SlotProofQueue returns one page of the operator's review queue with
// the unfiltered stats for their site.
func (s *PaymentsService) SlotProofQueue(ctx context.Context, operatorID string, filter models.ProofFilter) (*models.ProofQueue[*models.SlotProofView], error) {
	site, err := s.repo.GetSiteByOperator(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultQueueLimit
	}
	items, err := s.repo.ListSlotProofsBySite(ctx, site.ID, filter)
	if err != nil {
		return nil, err
	}
	stats, err := s.repo.SlotProofStatsBySite(ctx, site.ID)
	if err != nil {
		return nil, err
	}
	return &models.ProofQueue[*models.SlotProofView]{Items: items, Stats: stats}, nil
}

// ApproveSlotProof confirms a slot proof and the slot with it. Only the
// operator of the slot's site may review it.
func (s *PaymentsService) ApproveSlotProof(ctx context.Context, operatorID, proofID string) error {
	proof, err := s.authorizeSlotReview(ctx, operatorID, proofID)
	if err != nil {
		return err
	}

	if err = s.repo.ReviewSlotProof(ctx, proofID, models.ReviewConfirmed, nil, s.now().UTC()); err != nil {
		if !errors.Is(err, models.ErrInvalidState) || proof.State != models.ReviewConfirmed {
			return err
		}
	}
	if err = s.repo.SetSlotState(ctx, proof.SlotID, models.SlotConfirmed); err != nil {
		return err
	}

	s.log.Info("slot proof approved",
		slog.String("proof_id", proofID),
		slog.String("slot_id", proof.SlotID))
	s.publish(notify.KeyProofReviewed, notify.ProofEvent{
		Kind:           "slot",
		ProofID:        proofID,
		SubjectID:      proof.SlotID,
		CounterpartyID: proof.CustomerID,
		State:          models.ReviewConfirmed,
		OccurredAt:     s.now().UTC(),
	})
	return nil
}

// RejectSlotProof rejects a slot proof with a mandatory comment. The
// slot stays RESERVED so the customer can resubmit.
func (s *PaymentsService) RejectSlotProof(ctx context.Context, operatorID, proofID, comment string) error {
	proof, err := s.authorizeSlotReview(ctx, operatorID, proofID)
	if err != nil {
		return err
	}
	if err = s.repo.ReviewSlotProof(ctx, proofID, models.ReviewRejected, &comment, s.now().UTC()); err != nil {
		return err
	}

	s.log.Info("slot proof rejected", slog.String("proof_id", proofID))
	s.publish(notify.KeyProofReviewed, notify.ProofEvent{
		Kind:           "slot",
		ProofID:        proofID,
		SubjectID:      proof.SlotID,
		CounterpartyID: proof.CustomerID,
		State:          models.ReviewRejected,
		Comment:        &comment,
		OccurredAt:     s.now().UTC(),
	})
	return nil
}

func (s *PaymentsService) authorizeSlotReview(ctx context.Context, operatorID, proofID string) (*models.SlotProof, error) {
	site, err := s.repo.GetSiteByOperator(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	proofSiteID, err := s.repo.GetSlotProofSiteID(ctx, proofID)
	if err != nil {
		return nil, err
	}
	if proofSiteID != site.ID {
		return nil, models.ErrForbidden
	}
	return s.repo.GetSlotProof(ctx, proofID)
}

// SubscriptionProofImage returns the image bytes of a subscription
// proof for the platform admin or the submitting operator.
func (s *PaymentsService) SubscriptionProofImage(ctx context.Context, viewer *models.Principal, proofID string) ([]byte, error) {
	proof, err := s.repo.GetSubscriptionProof(ctx, proofID)
	if err != nil {
		return nil, err
	}
	if viewer.Role != models.RolePlatformAdmin && proof.OperatorID != viewer.ID {
		return nil, models.ErrForbidden
	}
	return s.blobs.Get(proof.ImageRef)
}

// SlotProofImage returns the image bytes of a slot proof for the
// reviewing operator or the submitting customer.
func (s *PaymentsService) SlotProofImage(ctx context.Context, viewer *models.Principal, proofID string) ([]byte, error) {
	proof, err := s.repo.GetSlotProof(ctx, proofID)
	if err != nil {
		return nil, err
	}
	switch viewer.Role {
	case models.RolePlatformAdmin:
	case models.RoleCustomer:
		if proof.CustomerID != viewer.ID {
			return nil, models.ErrForbidden
		}
	case models.RoleOperator:
		site, err := s.repo.GetSiteByOperator(ctx, viewer.ID)
		if err != nil {
			return nil, err
		}
		proofSiteID, err := s.repo.GetSlotProofSiteID(ctx, proofID)
		if err != nil {
			return nil, err
		}
		if proofSiteID != site.ID {
			return nil, models.ErrForbidden
		}
	default:
		return nil, models.ErrForbidden
	}
	return s.blobs.Get(proof.ImageRef)
}

func (s *PaymentsService) publish(routingKey string, event notify.ProofEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(routingKey, event); err != nil {
		s.log.Warn("failed to publish review event",
			slog.String("routing_key", routingKey), sl.Err(err))
	}
}
