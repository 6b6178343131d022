// Package models contains the domain entities of the car-wash booking
// marketplace: principals, sites, slots, subscription invoices and the
// payment proofs under manual review, together with their state
// vocabularies.
package models

import "time"

// Roles a principal can hold. A role is fixed at registration and only
// platform-admin edits may change principal data afterwards.
const (
	RolePlatformAdmin = "PLATFORM_ADMIN"
	RoleOperator      = "OPERATOR"
	RoleCustomer      = "CUSTOMER"
)

// Operational states of a Site. ACTIVE requires a future subscription
// expiry; the EXPIRED flip happens lazily on operator login.
const (
	SitePendingApproval = "PENDING_APPROVAL"
	SiteActive          = "ACTIVE"
	SiteExpired         = "EXPIRED"
	SiteBlocked         = "BLOCKED"
)

// States of a booking slot.
const (
	SlotAvailable = "AVAILABLE"
	SlotReserved  = "RESERVED"
	SlotConfirmed = "CONFIRMED"
	SlotCancelled = "CANCELLED"
)

// Review states shared by payment proofs and subscription invoices.
const (
	ReviewPending   = "PENDING"
	ReviewConfirmed = "CONFIRMED"
	ReviewRejected  = "REJECTED"
)

// Principal is an authenticated account: the platform admin, a site
// operator or a customer.
type Principal struct {
	ID           string
	Email        string
	Name         string
	Role         string
	Active       bool
	PasswordHash *string // nil for accounts created via the provenance flow
	ExternalID   *string
	PictureURL   *string
	CreatedAt    time.Time
}

// Site is a wash location owned by exactly one operator. Its name is
// unique across the platform, case-insensitively.
type Site struct {
	ID                 string
	Name               string
	Address            string
	Description        *string
	OperatorID         string
	OperationalState   string
	SubscriptionExpiry *time.Time
	Active             bool
	CreatedAt          time.Time
}

// SiteConfig holds the schedule and pricing of a site. One per site,
// created lazily with defaults on first access.
type SiteConfig struct {
	SiteID              string
	OpenTime            string // "08:00"
	CloseTime           string // "18:00"
	SlotDurationMinutes int
	WorkingWeekdays     []int // 1=Monday .. 7=Sunday
	BankAlias           string
	BasePrice           float64
	ServiceMotos        bool
	ServiceAutos        bool
	ServiceCamionetas   bool
	PriceMotos          float64
	PriceAutos          float64
	PriceCamionetas     float64
	Latitude            *float64
	Longitude           *float64
	FullAddress         *string
	CurrentlyOpen       bool
	CreatedAt           time.Time
}

// NonWorkingDay blocks slot generation for a whole day. Unique per
// (site, date); past dates are rejected.
type NonWorkingDay struct {
	ID        string
	SiteID    string
	Date      time.Time // day granularity, midnight UTC
	Reason    *string
	CreatedAt time.Time
}

// Slot is a sellable time-bound reservation unit. CustomerID is nil
// exactly while the slot is AVAILABLE.
type Slot struct {
	ID         string
	SiteID     string
	CustomerID *string
	StartsAt   time.Time
	State      string
	Price      float64
	CreatedAt  time.Time
}

// SlotProof is an uploaded proof-of-transfer image for a reserved slot,
// reviewed by the site operator. At most one proof in a non-terminal
// state (PENDING or CONFIRMED) exists per slot.
type SlotProof struct {
	ID              string
	SlotID          string
	CustomerID      string
	ImageRef        string
	State           string
	ReviewerComment *string
	ReviewedAt      *time.Time
	CreatedAt       time.Time
}

// SubscriptionInvoice is the recurring platform fee owed by an operator
// for one billing period ("2024-01"). At most one PENDING invoice per
// (operator, period).
type SubscriptionInvoice struct {
	ID            string
	OperatorID    string
	SiteID        string
	Amount        float64
	BillingPeriod string
	State         string
	DueAt         time.Time
	CreatedAt     time.Time
}

// SubscriptionProof is an uploaded proof-of-transfer image for a
// subscription invoice, reviewed by the platform admin.
type SubscriptionProof struct {
	ID              string
	InvoiceID       string
	OperatorID      string
	ImageRef        string
	State           string
	ReviewerComment *string
	ReviewedAt      *time.Time
	CreatedAt       time.Time
}

// PlatformConfig is the singleton platform-level configuration, lazily
// created with defaults on first read.
type PlatformConfig struct {
	BankAlias  string
	MonthlyFee float64
}

// Upload carries the raw bytes of a proof image before validation.
type Upload struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Terminal reports whether a review state admits no further transitions.
func Terminal(state string) bool {
	return state == ReviewConfirmed || state == ReviewRejected
}
