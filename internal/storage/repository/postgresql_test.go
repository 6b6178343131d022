package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavaderos/turnos-backend/internal/models"
)

func TestPrincipals(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := newTestDataFactory(storage)
	ctx := context.Background()

	id := factory.createPrincipal(t, "ana@example.com", models.RoleCustomer)

	got, err := storage.GetPrincipalByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, models.RoleCustomer, got.Role)
	assert.True(t, got.Active)

	// Email uniqueness is case-insensitive.
	hash := "hashedpassword"
	_, err = storage.CreatePrincipal(ctx, models.Principal{
		Email:        "ANA@example.com",
		Name:         "Ana 2",
		Role:         models.RoleCustomer,
		Active:       true,
		PasswordHash: &hash,
	})
	assert.ErrorIs(t, err, models.ErrDuplicateEmail)

	_, err = storage.GetPrincipalByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)

	pic := "https://example.com/p.png"
	require.NoError(t, storage.AttachExternalIdentity(ctx, id, "ext-123", &pic))
	got, err = storage.GetPrincipal(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.ExternalID)
	assert.Equal(t, "ext-123", *got.ExternalID)
}

func TestRegisterOperator(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := newTestDataFactory(storage)
	ctx := context.Background()

	operatorID, siteID, invoiceID := factory.createOperatorWithSite(t, "op@example.com", "Lavadero Norte")

	site, err := storage.GetSiteByOperator(ctx, operatorID)
	require.NoError(t, err)
	assert.Equal(t, siteID, site.ID)
	assert.Equal(t, models.SitePendingApproval, site.OperationalState)
	assert.Nil(t, site.SubscriptionExpiry)

	invoice, err := storage.GetInvoice(ctx, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewPending, invoice.State)
	assert.Equal(t, float64(10000), invoice.Amount)

	// Site names are unique case-insensitively, and the failed
	// registration must not leave a principal behind.
	hash := "hashedpassword"
	_, _, _, err = storage.RegisterOperator(ctx,
		models.Principal{Email: "op2@example.com", Name: "Op 2", Role: models.RoleOperator, Active: true, PasswordHash: &hash},
		models.Site{Name: "LAVADERO NORTE", Address: "Otra calle", OperationalState: models.SitePendingApproval},
		models.SubscriptionInvoice{Amount: 10000, BillingPeriod: "2026-01", State: models.ReviewPending, DueAt: time.Now()})
	assert.ErrorIs(t, err, models.ErrDuplicateSiteName)

	_, err = storage.GetPrincipalByEmail(ctx, "op2@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestReserveSlot(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := newTestDataFactory(storage)
	ctx := context.Background()

	_, siteID, _ := factory.createOperatorWithSite(t, "op@example.com", "Lavadero Norte")
	customer1 := factory.createPrincipal(t, "c1@example.com", models.RoleCustomer)
	customer2 := factory.createPrincipal(t, "c2@example.com", models.RoleCustomer)

	startsAt := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	slotID := factory.createSlot(t, siteID, startsAt, 5000)

	require.NoError(t, storage.ReserveSlot(ctx, slotID, customer1))

	slot, err := storage.GetSlot(ctx, slotID)
	require.NoError(t, err)
	assert.Equal(t, models.SlotReserved, slot.State)
	require.NotNil(t, slot.CustomerID)
	assert.Equal(t, customer1, *slot.CustomerID)

	// The loser of the race sees the conflict, not a missing slot.
	err = storage.ReserveSlot(ctx, slotID, customer2)
	assert.ErrorIs(t, err, models.ErrAlreadyReserved)

	err = storage.ReserveSlot(ctx, "00000000-0000-0000-0000-000000000000", customer2)
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, storage.ReleaseSlot(ctx, slotID))
	slot, err = storage.GetSlot(ctx, slotID)
	require.NoError(t, err)
	assert.Equal(t, models.SlotAvailable, slot.State)
	assert.Nil(t, slot.CustomerID)

	require.NoError(t, storage.ReserveSlot(ctx, slotID, customer2))

	// Generation is idempotent over existing start times.
	created, err := storage.InsertSlots(ctx, []models.Slot{
		{SiteID: siteID, StartsAt: startsAt, Price: 5000},
		{SiteID: siteID, StartsAt: startsAt.Add(time.Hour), Price: 5000},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
}

func TestInvoiceLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := newTestDataFactory(storage)
	ctx := context.Background()

	operatorID, siteID, invoiceID := factory.createOperatorWithSite(t, "op@example.com", "Lavadero Norte")

	pending, err := storage.GetPendingInvoiceByOperator(ctx, operatorID)
	require.NoError(t, err)
	assert.Equal(t, invoiceID, pending.ID)

	// One pending invoice per operator and period.
	_, err = storage.CreateInvoice(ctx, models.SubscriptionInvoice{
		OperatorID:    operatorID,
		SiteID:        siteID,
		Amount:        10000,
		BillingPeriod: pending.BillingPeriod,
		State:         models.ReviewPending,
		DueAt:         time.Now(),
	})
	assert.ErrorIs(t, err, models.ErrDuplicateInvoice)

	// Fee changes reprice pending invoices only.
	affected, err := storage.UpdatePendingAmounts(ctx, 12000)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	require.NoError(t, storage.ConfirmInvoice(ctx, invoiceID))
	// Confirming twice is a no-op.
	require.NoError(t, storage.ConfirmInvoice(ctx, invoiceID))

	confirmed, err := storage.GetInvoice(ctx, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewConfirmed, confirmed.State)
	assert.Equal(t, float64(12000), confirmed.Amount)

	_, err = storage.GetPendingInvoiceByOperator(ctx, operatorID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	has, err := storage.HasInvoiceForPeriod(ctx, operatorID, confirmed.BillingPeriod)
	require.NoError(t, err)
	assert.True(t, has)

	affected, err = storage.UpdatePendingAmounts(ctx, 15000)
	require.NoError(t, err)
	assert.Zero(t, affected)

	err = storage.ConfirmInvoice(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSubscriptionProofLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := newTestDataFactory(storage)
	ctx := context.Background()

	operatorID, _, invoiceID := factory.createOperatorWithSite(t, "op@example.com", "Lavadero Norte")

	proofID, err := storage.CreateSubscriptionProof(ctx, models.SubscriptionProof{
		InvoiceID:  invoiceID,
		OperatorID: operatorID,
		ImageRef:   "proof-1.png",
		State:      models.ReviewPending,
	})
	require.NoError(t, err)

	// A second live proof for the same invoice is refused.
	_, err = storage.CreateSubscriptionProof(ctx, models.SubscriptionProof{
		InvoiceID:  invoiceID,
		OperatorID: operatorID,
		ImageRef:   "proof-2.png",
		State:      models.ReviewPending,
	})
	assert.ErrorIs(t, err, models.ErrDuplicateProof)

	live, err := storage.LiveSubscriptionProofForInvoice(ctx, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, proofID, live.ID)

	comment := "imagen ilegible"
	require.NoError(t, storage.ReviewSubscriptionProof(ctx, proofID, models.ReviewRejected, &comment, time.Now().UTC()))

	// Reviews are one-shot.
	err = storage.ReviewSubscriptionProof(ctx, proofID, models.ReviewConfirmed, nil, time.Now().UTC())
	assert.ErrorIs(t, err, models.ErrInvalidState)

	// A rejected proof is no longer live, so resubmission works.
	_, err = storage.LiveSubscriptionProofForInvoice(ctx, invoiceID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = storage.CreateSubscriptionProof(ctx, models.SubscriptionProof{
		InvoiceID:  invoiceID,
		OperatorID: operatorID,
		ImageRef:   "proof-3.png",
		State:      models.ReviewPending,
	})
	require.NoError(t, err)

	stats, err := storage.SubscriptionProofStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Rejected)

	views, err := storage.ListSubscriptionProofs(ctx, models.ProofFilter{State: models.ReviewPending, Limit: 10})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Lavadero Norte", views[0].SiteName)
	assert.Equal(t, "op@example.com", views[0].OperatorEmail)

	views, err = storage.ListSubscriptionProofs(ctx, models.ProofFilter{Period: views[0].BillingPeriod, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, views, 2)

	views, err = storage.ListSubscriptionProofs(ctx, models.ProofFilter{Period: "1999-01", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestSiteConfigAndNonWorkingDays(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := newTestDataFactory(storage)
	ctx := context.Background()

	_, siteID, _ := factory.createOperatorWithSite(t, "op@example.com", "Lavadero Norte")

	require.NoError(t, storage.CreateSiteConfig(ctx, models.SiteConfig{
		SiteID:              siteID,
		OpenTime:            "08:00",
		CloseTime:           "18:00",
		SlotDurationMinutes: 60,
		WorkingWeekdays:     []int{1, 2, 3, 4, 5},
		BankAlias:           "lavadero.norte.mp",
		BasePrice:           5000,
		ServiceMotos:        true,
		ServiceAutos:        true,
		ServiceCamionetas:   true,
		PriceMotos:          3000,
		PriceAutos:          5000,
		PriceCamionetas:     8000,
	}))

	cfg, err := storage.GetSiteConfig(ctx, siteID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, cfg.WorkingWeekdays)
	assert.Equal(t, "08:00", cfg.OpenTime)

	cfg.WorkingWeekdays = []int{6, 7}
	cfg.SlotDurationMinutes = 30
	require.NoError(t, storage.UpdateSiteConfig(ctx, *cfg))

	cfg, err = storage.GetSiteConfig(ctx, siteID)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 7}, cfg.WorkingWeekdays)
	assert.Equal(t, 30, cfg.SlotDurationMinutes)

	day := time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC)
	reason := "feriado"
	dayID, err := storage.AddNonWorkingDay(ctx, models.NonWorkingDay{SiteID: siteID, Date: day, Reason: &reason})
	require.NoError(t, err)

	_, err = storage.AddNonWorkingDay(ctx, models.NonWorkingDay{SiteID: siteID, Date: day})
	assert.ErrorIs(t, err, models.ErrDuplicateNonWorkingDay)

	blocked, err := storage.IsNonWorkingDay(ctx, siteID, day)
	require.NoError(t, err)
	assert.True(t, blocked)

	require.NoError(t, storage.DeleteNonWorkingDay(ctx, siteID, dayID))
	blocked, err = storage.IsNonWorkingDay(ctx, siteID, day)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestPlatformConfig(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	defaults := models.PlatformConfig{BankAlias: "superadmin.alias.mp", MonthlyFee: 10000}

	cfg, err := storage.GetPlatformConfig(ctx, defaults)
	require.NoError(t, err)
	assert.Equal(t, defaults, *cfg)

	require.NoError(t, storage.UpdatePlatformConfig(ctx, models.PlatformConfig{
		BankAlias:  "nuevo.alias.mp",
		MonthlyFee: 15000,
	}))

	cfg, err = storage.GetPlatformConfig(ctx, defaults)
	require.NoError(t, err)
	assert.Equal(t, "nuevo.alias.mp", cfg.BankAlias)
	assert.Equal(t, float64(15000), cfg.MonthlyFee)
}
