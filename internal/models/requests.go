package models

// Request payloads accepted from JSON bodies, validated with
// go-playground/validator before being handed to the services.

// RegisterCustomerRequest registers a new customer account. The public
// registration route only creates CUSTOMER principals.
type RegisterCustomerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required"`
}

// SiteCreateRequest is the site half of an operator registration.
type SiteCreateRequest struct {
	Name        string  `json:"name" validate:"required"`
	Address     string  `json:"address" validate:"required"`
	Description *string `json:"description,omitempty"`
}

// RegisterOperatorRequest creates an operator principal together with its
// site and the first pending subscription invoice.
type RegisterOperatorRequest struct {
	Email    string            `json:"email" validate:"required,email"`
	Password string            `json:"password" validate:"required,min=6"`
	Name     string            `json:"name" validate:"required"`
	Site     SiteCreateRequest `json:"site" validate:"required"`
}

// LoginRequest authenticates by email and password.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RejectProofRequest rejects a proof; the reviewer comment is mandatory.
type RejectProofRequest struct {
	Comment string `json:"comment" validate:"required"`
}

// SiteConfigUpdateRequest replaces the schedule and pricing of a site.
// Slot duration and weekdays are range-checked by the schedule service.
type SiteConfigUpdateRequest struct {
	OpenTime            string   `json:"open_time" validate:"required"`
	CloseTime           string   `json:"close_time" validate:"required"`
	SlotDurationMinutes int      `json:"slot_duration_minutes" validate:"required"`
	WorkingWeekdays     []int    `json:"working_weekdays" validate:"required,min=1"`
	BankAlias           string   `json:"bank_alias" validate:"required"`
	BasePrice           float64  `json:"base_price" validate:"gte=0"`
	ServiceMotos        bool     `json:"service_motos"`
	ServiceAutos        bool     `json:"service_autos"`
	ServiceCamionetas   bool     `json:"service_camionetas"`
	PriceMotos          float64  `json:"price_motos" validate:"gte=0"`
	PriceAutos          float64  `json:"price_autos" validate:"gte=0"`
	PriceCamionetas     float64  `json:"price_camionetas" validate:"gte=0"`
	Latitude            *float64 `json:"latitude,omitempty"`
	Longitude           *float64 `json:"longitude,omitempty"`
	FullAddress         *string  `json:"full_address,omitempty"`
}

// NonWorkingDayRequest marks a calendar day as non-working. Dates arrive
// as "2006-01-02" strings and are parsed by the schedule service.
type NonWorkingDayRequest struct {
	Date   string  `json:"date" validate:"required,datetime=2006-01-02"`
	Reason *string `json:"reason,omitempty"`
}

// GenerateSlotsRequest generates the AVAILABLE slots of one day from the
// site schedule.
type GenerateSlotsRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// PlatformConfigUpdateRequest updates the platform bank alias and the
// monthly fee. A fee change propagates to every PENDING invoice.
type PlatformConfigUpdateRequest struct {
	BankAlias  string  `json:"bank_alias" validate:"required"`
	MonthlyFee float64 `json:"monthly_fee" validate:"required,gt=0"`
}

// OperatorUpdateRequest is a partial platform-admin edit of an operator
// account. Nil fields are left untouched.
type OperatorUpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6"`
	Active   *bool   `json:"active,omitempty"`
}

// ProofFilter narrows a review-queue query. Zero values mean no filter;
// Limit defaults to 50 in the service. Period only applies to
// subscription proofs.
type ProofFilter struct {
	State          string
	CounterpartyID string
	Period         string
	Limit          int
	Offset         int
}
