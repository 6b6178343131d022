package models

import "time"

// Read-only projections assembled by the repository joins. The
// aggregator and review queues return these instead of raw entities.

// SubscriptionProofView joins a subscription proof with its invoice and
// the submitting operator.
type SubscriptionProofView struct {
	ProofID         string     `json:"proof_id"`
	OperatorID      string     `json:"operator_id"`
	OperatorName    string     `json:"operator_name"`
	OperatorEmail   string     `json:"operator_email"`
	SiteName        string     `json:"site_name"`
	Amount          float64    `json:"amount"`
	BillingPeriod   string     `json:"billing_period"`
	ImageRef        string     `json:"image_ref"`
	State           string     `json:"state"`
	ReviewerComment *string    `json:"reviewer_comment,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// SlotProofView joins a slot proof with its slot and the submitting
// customer.
type SlotProofView struct {
	ProofID         string     `json:"proof_id"`
	SlotID          string     `json:"slot_id"`
	SlotStartsAt    time.Time  `json:"slot_starts_at"`
	SlotPrice       float64    `json:"slot_price"`
	CustomerID      string     `json:"customer_id"`
	CustomerName    string     `json:"customer_name"`
	CustomerEmail   string     `json:"customer_email"`
	ImageRef        string     `json:"image_ref"`
	State           string     `json:"state"`
	ReviewerComment *string    `json:"reviewer_comment,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ProofStats counts proofs per review state over the unfiltered
// population, for dashboard badges.
type ProofStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Rejected  int `json:"rejected"`
}

// ProofQueue is one page of a review queue plus the unfiltered stats.
type ProofQueue[T any] struct {
	Items []T        `json:"items"`
	Stats ProofStats `json:"stats"`
}

// SiteWithOperator is the platform-admin site listing row.
type SiteWithOperator struct {
	Site          Site   `json:"site"`
	OperatorName  string `json:"operator_name"`
	OperatorEmail string `json:"operator_email"`
}

// SiteSummary is the nested site block of an operator listing row.
type SiteSummary struct {
	ID                 *string    `json:"id,omitempty"`
	Name               string     `json:"name"`
	OperationalState   string     `json:"operational_state"`
	SubscriptionExpiry *time.Time `json:"subscription_expiry,omitempty"`
}

// OperatorView is an operator account with its site summary.
type OperatorView struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"created_at"`
	Site      SiteSummary `json:"site"`
}

// PublicSite is the public listing row of an ACTIVE site, enriched with
// the configured address and open/closed flag when a config exists.
type PublicSite struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Description *string `json:"description,omitempty"`
	Open        bool    `json:"open"`
}

// PendingInvoiceView is what an operator sees about their outstanding
// invoice, including the platform bank alias current at call time.
type PendingInvoiceView struct {
	HasPending        bool       `json:"has_pending"`
	InvoiceID         string     `json:"invoice_id,omitempty"`
	Amount            float64    `json:"amount,omitempty"`
	BillingPeriod     string     `json:"billing_period,omitempty"`
	DueAt             *time.Time `json:"due_at,omitempty"`
	PlatformBankAlias string     `json:"platform_bank_alias,omitempty"`
	HasLiveProof      bool       `json:"has_live_proof"`
	ProofState        *string    `json:"proof_state,omitempty"`
}

// PlatformStats is the platform-admin dashboard projection.
type PlatformStats struct {
	TotalSites    int `json:"total_sites"`
	ActiveSites   int `json:"active_sites"`
	PendingSites  int `json:"pending_sites"`
	ExpiredSites  int `json:"expired_sites"`
	PendingProofs int `json:"pending_proofs"`
}

// OperatorStats is the operator dashboard projection.
type OperatorStats struct {
	SiteName         string `json:"site_name"`
	OperationalState string `json:"operational_state"`
	DaysRemaining    int    `json:"days_remaining"`
	TotalSlots       int    `json:"total_slots"`
	ConfirmedSlots   int    `json:"confirmed_slots"`
	ReservedSlots    int    `json:"reserved_slots"`
	PendingProofs    int    `json:"pending_proofs"`
}

// CustomerStats is the customer dashboard projection.
type CustomerStats struct {
	TotalSlots     int `json:"total_slots"`
	ConfirmedSlots int `json:"confirmed_slots"`
	ReservedSlots  int `json:"reserved_slots"`
}
