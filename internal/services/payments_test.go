package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lavaderos/turnos-backend/internal/models"
	"github.com/lavaderos/turnos-backend/internal/notify"
)

type PaymentsRepoMock struct{ mock.Mock }

func (m *PaymentsRepoMock) GetInvoice(ctx context.Context, id string) (*models.SubscriptionInvoice, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*models.SubscriptionInvoice); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PaymentsRepoMock) GetPendingInvoiceByOperator(ctx context.Context, operatorID string) (*models.SubscriptionInvoice, error) {
	args := m.Called(ctx, operatorID)
	if v, ok := args.Get(0).(*models.SubscriptionInvoice); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PaymentsRepoMock) ConfirmInvoice(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *PaymentsRepoMock) CreateSubscriptionProof(ctx context.Context, p models.SubscriptionProof) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *PaymentsRepoMock) GetSubscriptionProof(ctx context.Context, id string) (*models.SubscriptionProof, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*models.SubscriptionProof); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PaymentsRepoMock) ReviewSubscriptionProof(ctx context.Context, id, state string, comment *string, reviewedAt time.Time) error {
	return m.Called(ctx, id, state, comment, reviewedAt).Error(0)
}

func (m *PaymentsRepoMock) LiveSubscriptionProofForInvoice(ctx context.Context, invoiceID string) (*models.SubscriptionProof, error) {
	args := m.Called(ctx, invoiceID)
	if v, ok := args.Get(0).(*models.SubscriptionProof); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PaymentsRepoMock) ListSubscriptionProofs(ctx context.Context, filter models.ProofFilter) ([]*models.SubscriptionProofView, error) {
	args := m.Called(ctx, filter)
	if v, ok := args.Get(0).([]*models.SubscriptionProofView); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PaymentsRepoMock) SubscriptionProofStats(ctx context.Context) (models.ProofStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.ProofStats), args.Error(1)
}

func (m *PaymentsRepoMock) GetSlot(ctx context.Context, id string) (*models.Slot, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*models.Slot); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PaymentsRepoMock) SetSlotState(ctx context.Context, slotID, state string) error {
	return m.Called(ctx, slotID, state).Error(0)
}

func (m *PaymentsRepoMock) CreateSlotProof(ctx context.Context, p models.SlotProof) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *PaymentsRepoMock) GetSlotProof(ctx context.Context, id string) (*models.SlotProof, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*models.SlotProof); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PaymentsRepoMock) GetSlotProofSiteID(ctx context.Context, proofID string) (string, error) {
	args := m.Called(ctx, proofID)
	return args.String(0), args.Error(1)
}

func (m *PaymentsRepoMock) ReviewSlotProof(ctx context.Context, id, state string, comment *string, reviewedAt time.Time) error {
	return m.Called(ctx, id, state, comment, reviewedAt).Error(0)
}

func (m *PaymentsRepoMock) ListSlotProofsBySite(ctx context.Context, siteID string, filter models.ProofFilter) ([]*models.SlotProofView, error) {
	args := m.Called(ctx, siteID, filter)
	if v, ok := args.Get(0).([]*models.SlotProofView); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PaymentsRepoMock) SlotProofStatsBySite(ctx context.Context, siteID string) (models.ProofStats, error) {
	args := m.Called(ctx, siteID)
	return args.Get(0).(models.ProofStats), args.Error(1)
}

func (m *PaymentsRepoMock) GetSiteByOperator(ctx context.Context, operatorID string) (*models.Site, error) {
	args := m.Called(ctx, operatorID)
	if v, ok := args.Get(0).(*models.Site); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PaymentsRepoMock) GetPlatformConfig(ctx context.Context, defaults models.PlatformConfig) (*models.PlatformConfig, error) {
	args := m.Called(ctx, defaults)
	if v, ok := args.Get(0).(*models.PlatformConfig); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

type BlobStoreMock struct{ mock.Mock }

func (m *BlobStoreMock) Put(data []byte, extension string) (string, error) {
	args := m.Called(data, extension)
	return args.String(0), args.Error(1)
}

func (m *BlobStoreMock) Get(key string) ([]byte, error) {
	args := m.Called(key)
	if v, ok := args.Get(0).([]byte); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BlobStoreMock) Delete(key string) error {
	return m.Called(key).Error(0)
}

type ActivatorMock struct{ mock.Mock }

func (m *ActivatorMock) ActivateSite(ctx context.Context, siteID string) error {
	return m.Called(ctx, siteID).Error(0)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(routingKey string, event notify.ProofEvent) error {
	return m.Called(routingKey, event).Error(0)
}

func validUpload() models.Upload {
	return models.Upload{
		Data:        bytes.Repeat([]byte{0xFF}, 128),
		ContentType: "image/png",
		Filename:    "comprobante.png",
	}
}

func TestPayments_PendingInvoice(t *testing.T) {
	due := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)
	invoice := &models.SubscriptionInvoice{
		ID: "inv-1", OperatorID: "op-1", SiteID: "site-1",
		Amount: 10000, BillingPeriod: "2024-03", State: models.ReviewPending, DueAt: due,
	}

	repo := &PaymentsRepoMock{}
	repo.On("GetPlatformConfig", mock.Anything, defaultPlatformConfig).
		Return(&models.PlatformConfig{BankAlias: "superadmin.alias.mp", MonthlyFee: 10000}, nil)
	repo.On("GetPendingInvoiceByOperator", mock.Anything, "op-1").Return(invoice, nil)
	repo.On("LiveSubscriptionProofForInvoice", mock.Anything, "inv-1").
		Return(&models.SubscriptionProof{ID: "proof-1", State: models.ReviewPending}, nil)

	svc := NewPaymentsService(repo, &BlobStoreMock{}, &ActivatorMock{}, nil, newNoopLogger())
	view, err := svc.PendingInvoice(context.Background(), "op-1")
	require.NoError(t, err)
	assert.True(t, view.HasPending)
	assert.Equal(t, "inv-1", view.InvoiceID)
	assert.Equal(t, "superadmin.alias.mp", view.PlatformBankAlias)
	assert.True(t, view.HasLiveProof)
	require.NotNil(t, view.ProofState)
	assert.Equal(t, models.ReviewPending, *view.ProofState)
}

func TestPayments_PendingInvoiceNone(t *testing.T) {
	repo := &PaymentsRepoMock{}
	repo.On("GetPlatformConfig", mock.Anything, defaultPlatformConfig).
		Return(&models.PlatformConfig{BankAlias: "superadmin.alias.mp"}, nil)
	repo.On("GetPendingInvoiceByOperator", mock.Anything, "op-1").Return(nil, models.ErrNotFound)

	svc := NewPaymentsService(repo, &BlobStoreMock{}, &ActivatorMock{}, nil, newNoopLogger())
	view, err := svc.PendingInvoice(context.Background(), "op-1")
	require.NoError(t, err)
	assert.False(t, view.HasPending)
	assert.False(t, view.HasLiveProof)
}

func TestPayments_SubmitSubscriptionProof(t *testing.T) {
	invoice := &models.SubscriptionInvoice{ID: "inv-1", OperatorID: "op-1"}

	repo := &PaymentsRepoMock{}
	repo.On("GetPendingInvoiceByOperator", mock.Anything, "op-1").Return(invoice, nil)
	repo.On("CreateSubscriptionProof", mock.Anything, mock.MatchedBy(func(p models.SubscriptionProof) bool {
		return p.InvoiceID == "inv-1" && p.OperatorID == "op-1" && p.ImageRef == "blob-1.png"
	})).Return("proof-1", nil)

	blobs := &BlobStoreMock{}
	blobs.On("Put", mock.Anything, "png").Return("blob-1.png", nil)

	events := &PublisherMock{}
	events.On("Publish", notify.KeyProofSubmitted, mock.MatchedBy(func(e notify.ProofEvent) bool {
		return e.Kind == "subscription" && e.ProofID == "proof-1"
	})).Return(nil)

	svc := NewPaymentsService(repo, blobs, &ActivatorMock{}, events, newNoopLogger())
	proofID, err := svc.SubmitSubscriptionProof(context.Background(), "op-1", validUpload())
	require.NoError(t, err)
	assert.Equal(t, "proof-1", proofID)
	repo.AssertExpectations(t)
	blobs.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestPayments_SubmitSubscriptionProofDeletesOrphan(t *testing.T) {
	invoice := &models.SubscriptionInvoice{ID: "inv-1", OperatorID: "op-1"}

	repo := &PaymentsRepoMock{}
	repo.On("GetPendingInvoiceByOperator", mock.Anything, "op-1").Return(invoice, nil)
	repo.On("CreateSubscriptionProof", mock.Anything, mock.Anything).Return("", models.ErrDuplicateProof)

	blobs := &BlobStoreMock{}
	blobs.On("Put", mock.Anything, "png").Return("blob-1.png", nil)
	blobs.On("Delete", "blob-1.png").Return(nil)

	svc := NewPaymentsService(repo, blobs, &ActivatorMock{}, nil, newNoopLogger())
	_, err := svc.SubmitSubscriptionProof(context.Background(), "op-1", validUpload())
	assert.True(t, errors.Is(err, models.ErrDuplicateProof))
	blobs.AssertExpectations(t)
}

func TestPayments_SubmitSubscriptionProofBadUpload(t *testing.T) {
	svc := NewPaymentsService(&PaymentsRepoMock{}, &BlobStoreMock{}, &ActivatorMock{}, nil, newNoopLogger())

	_, err := svc.SubmitSubscriptionProof(context.Background(), "op-1", models.Upload{
		Data:        []byte("plain text"),
		ContentType: "text/plain",
	})
	assert.True(t, errors.Is(err, models.ErrInvalidUpload))
}

func TestPayments_ApproveSubscriptionProofCascade(t *testing.T) {
	proof := &models.SubscriptionProof{
		ID: "proof-1", InvoiceID: "inv-1", OperatorID: "op-1", State: models.ReviewPending,
	}
	invoice := &models.SubscriptionInvoice{ID: "inv-1", SiteID: "site-1"}

	repo := &PaymentsRepoMock{}
	repo.On("GetSubscriptionProof", mock.Anything, "proof-1").Return(proof, nil)
	repo.On("ReviewSubscriptionProof", mock.Anything, "proof-1", models.ReviewConfirmed,
		(*string)(nil), mock.Anything).Return(nil)
	repo.On("ConfirmInvoice", mock.Anything, "inv-1").Return(nil)
	repo.On("GetInvoice", mock.Anything, "inv-1").Return(invoice, nil)

	activator := &ActivatorMock{}
	activator.On("ActivateSite", mock.Anything, "site-1").Return(nil)

	events := &PublisherMock{}
	events.On("Publish", notify.KeyProofReviewed, mock.MatchedBy(func(e notify.ProofEvent) bool {
		return e.State == models.ReviewConfirmed
	})).Return(nil)

	svc := NewPaymentsService(repo, &BlobStoreMock{}, activator, events, newNoopLogger())
	err := svc.ApproveSubscriptionProof(context.Background(), "proof-1")
	require.NoError(t, err)
	repo.AssertExpectations(t)
	activator.AssertExpectations(t)
}

func TestPayments_ApproveSubscriptionProofRetriesCascade(t *testing.T) {
	// Proof already confirmed from a previous half-finished approval.
	proof := &models.SubscriptionProof{
		ID: "proof-1", InvoiceID: "inv-1", OperatorID: "op-1", State: models.ReviewConfirmed,
	}
	invoice := &models.SubscriptionInvoice{ID: "inv-1", SiteID: "site-1"}

	repo := &PaymentsRepoMock{}
	repo.On("GetSubscriptionProof", mock.Anything, "proof-1").Return(proof, nil)
	repo.On("ReviewSubscriptionProof", mock.Anything, "proof-1", models.ReviewConfirmed,
		(*string)(nil), mock.Anything).Return(models.ErrInvalidState)
	repo.On("ConfirmInvoice", mock.Anything, "inv-1").Return(nil)
	repo.On("GetInvoice", mock.Anything, "inv-1").Return(invoice, nil)

	activator := &ActivatorMock{}
	activator.On("ActivateSite", mock.Anything, "site-1").Return(nil)

	svc := NewPaymentsService(repo, &BlobStoreMock{}, activator, nil, newNoopLogger())
	err := svc.ApproveSubscriptionProof(context.Background(), "proof-1")
	require.NoError(t, err)
	activator.AssertExpectations(t)
}

func TestPayments_ApproveRejectedProofFails(t *testing.T) {
	proof := &models.SubscriptionProof{
		ID: "proof-1", InvoiceID: "inv-1", State: models.ReviewRejected,
	}

	repo := &PaymentsRepoMock{}
	repo.On("GetSubscriptionProof", mock.Anything, "proof-1").Return(proof, nil)
	repo.On("ReviewSubscriptionProof", mock.Anything, "proof-1", models.ReviewConfirmed,
		(*string)(nil), mock.Anything).Return(models.ErrInvalidState)

	svc := NewPaymentsService(repo, &BlobStoreMock{}, &ActivatorMock{}, nil, newNoopLogger())
	err := svc.ApproveSubscriptionProof(context.Background(), "proof-1")
	assert.True(t, errors.Is(err, models.ErrInvalidState))
}

func TestPayments_RejectSubscriptionProof(t *testing.T) {
	proof := &models.SubscriptionProof{ID: "proof-1", InvoiceID: "inv-1", OperatorID: "op-1"}
	comment := "imagen ilegible"

	repo := &PaymentsRepoMock{}
	repo.On("GetSubscriptionProof", mock.Anything, "proof-1").Return(proof, nil)
	repo.On("ReviewSubscriptionProof", mock.Anything, "proof-1", models.ReviewRejected,
		&comment, mock.Anything).Return(nil)

	svc := NewPaymentsService(repo, &BlobStoreMock{}, &ActivatorMock{}, nil, newNoopLogger())
	err := svc.RejectSubscriptionProof(context.Background(), "proof-1", comment)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestPayments_SubmitSlotProof(t *testing.T) {
	customerID := "cust-1"
	slot := &models.Slot{ID: "slot-1", SiteID: "site-1", CustomerID: &customerID, State: models.SlotReserved}

	repo := &PaymentsRepoMock{}
	repo.On("GetSlot", mock.Anything, "slot-1").Return(slot, nil)
	repo.On("CreateSlotProof", mock.Anything, mock.MatchedBy(func(p models.SlotProof) bool {
		return p.SlotID == "slot-1" && p.CustomerID == customerID
	})).Return("proof-2", nil)

	blobs := &BlobStoreMock{}
	blobs.On("Put", mock.Anything, "png").Return("blob-2.png", nil)

	svc := NewPaymentsService(repo, blobs, &ActivatorMock{}, nil, newNoopLogger())
	proofID, err := svc.SubmitSlotProof(context.Background(), customerID, "slot-1", validUpload())
	require.NoError(t, err)
	assert.Equal(t, "proof-2", proofID)
}

func TestPayments_SubmitSlotProofWrongHolder(t *testing.T) {
	holder := "cust-1"
	slot := &models.Slot{ID: "slot-1", CustomerID: &holder, State: models.SlotReserved}

	repo := &PaymentsRepoMock{}
	repo.On("GetSlot", mock.Anything, "slot-1").Return(slot, nil)

	svc := NewPaymentsService(repo, &BlobStoreMock{}, &ActivatorMock{}, nil, newNoopLogger())
	_, err := svc.SubmitSlotProof(context.Background(), "cust-2", "slot-1", validUpload())
	assert.True(t, errors.Is(err, models.ErrForbidden))
}

func TestPayments_ApproveSlotProof(t *testing.T) {
	proof := &models.SlotProof{ID: "proof-2", SlotID: "slot-1", CustomerID: "cust-1", State: models.ReviewPending}

	repo := &PaymentsRepoMock{}
	repo.On("GetSiteByOperator", mock.Anything, "op-1").Return(&models.Site{ID: "site-1"}, nil)
	repo.On("GetSlotProofSiteID", mock.Anything, "proof-2").Return("site-1", nil)
	repo.On("GetSlotProof", mock.Anything, "proof-2").Return(proof, nil)
	repo.On("ReviewSlotProof", mock.Anything, "proof-2", models.ReviewConfirmed,
		(*string)(nil), mock.Anything).Return(nil)
	repo.On("SetSlotState", mock.Anything, "slot-1", models.SlotConfirmed).Return(nil)

	svc := NewPaymentsService(repo, &BlobStoreMock{}, &ActivatorMock{}, nil, newNoopLogger())
	err := svc.ApproveSlotProof(context.Background(), "op-1", "proof-2")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestPayments_ApproveSlotProofForeignSite(t *testing.T) {
	repo := &PaymentsRepoMock{}
	repo.On("GetSiteByOperator", mock.Anything, "op-2").Return(&models.Site{ID: "site-2"}, nil)
	repo.On("GetSlotProofSiteID", mock.Anything, "proof-2").Return("site-1", nil)

	svc := NewPaymentsService(repo, &BlobStoreMock{}, &ActivatorMock{}, nil, newNoopLogger())
	err := svc.ApproveSlotProof(context.Background(), "op-2", "proof-2")
	assert.True(t, errors.Is(err, models.ErrForbidden))
}

func TestPayments_SlotProofQueueDefaultsLimit(t *testing.T) {
	repo := &PaymentsRepoMock{}
	repo.On("GetSiteByOperator", mock.Anything, "op-1").Return(&models.Site{ID: "site-1"}, nil)
	repo.On("ListSlotProofsBySite", mock.Anything, "site-1", mock.MatchedBy(func(f models.ProofFilter) bool {
		return f.Limit == defaultQueueLimit
	})).Return([]*models.SlotProofView{}, nil)
	repo.On("SlotProofStatsBySite", mock.Anything, "site-1").
		Return(models.ProofStats{Total: 3, Pending: 1, Confirmed: 1, Rejected: 1}, nil)

	svc := NewPaymentsService(repo, &BlobStoreMock{}, &ActivatorMock{}, nil, newNoopLogger())
	queue, err := svc.SlotProofQueue(context.Background(), "op-1", models.ProofFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, queue.Stats.Pending)
	repo.AssertExpectations(t)
}

func TestPayments_SlotProofImageAuthorization(t *testing.T) {
	proof := &models.SlotProof{ID: "proof-2", SlotID: "slot-1", CustomerID: "cust-1", ImageRef: "blob-2.png"}

	tests := []struct {
		name       string
		viewer     *models.Principal
		setupMocks func(repo *PaymentsRepoMock, blobs *BlobStoreMock)
		wantErr    error
	}{
		{
			name:   "owning customer",
			viewer: &models.Principal{ID: "cust-1", Role: models.RoleCustomer},
			setupMocks: func(repo *PaymentsRepoMock, blobs *BlobStoreMock) {
				repo.On("GetSlotProof", mock.Anything, "proof-2").Return(proof, nil)
				blobs.On("Get", "blob-2.png").Return([]byte{1, 2, 3}, nil)
			},
		},
		{
			name:   "other customer forbidden",
			viewer: &models.Principal{ID: "cust-9", Role: models.RoleCustomer},
			setupMocks: func(repo *PaymentsRepoMock, _ *BlobStoreMock) {
				repo.On("GetSlotProof", mock.Anything, "proof-2").Return(proof, nil)
			},
			wantErr: models.ErrForbidden,
		},
		{
			name:   "site operator",
			viewer: &models.Principal{ID: "op-1", Role: models.RoleOperator},
			setupMocks: func(repo *PaymentsRepoMock, blobs *BlobStoreMock) {
				repo.On("GetSlotProof", mock.Anything, "proof-2").Return(proof, nil)
				repo.On("GetSiteByOperator", mock.Anything, "op-1").Return(&models.Site{ID: "site-1"}, nil)
				repo.On("GetSlotProofSiteID", mock.Anything, "proof-2").Return("site-1", nil)
				blobs.On("Get", "blob-2.png").Return([]byte{1, 2, 3}, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &PaymentsRepoMock{}
			blobs := &BlobStoreMock{}
			tt.setupMocks(repo, blobs)

			svc := NewPaymentsService(repo, blobs, &ActivatorMock{}, nil, newNoopLogger())
			data, err := svc.SlotProofImage(context.Background(), tt.viewer, "proof-2")
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, data)
		})
	}
}
