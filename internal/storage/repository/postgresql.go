// Package repository implements the PostgreSQL storage layer: principals,
// sites and their schedules, booking slots, subscription invoices and
// payment proofs. Uniqueness invariants (one live proof per invoice or
// slot, one pending invoice per billing period, case-insensitive site
// names) are enforced with unique indexes, and violations are surfaced
// as the matching domain errors.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	// Registers the pgx driver for database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/lavaderos/turnos-backend/internal/models"
)

// Storage wraps the PostgreSQL connection pool.
type Storage struct {
	DB *sql.DB
}

// New opens a connection to PostgreSQL and verifies it with a ping.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

const uniqueViolation = "23505"

// constraintErrors maps unique constraints to the domain error they
// guard. Names must match the migrations.
var constraintErrors = map[string]error{
	"uq_principals_email":         models.ErrDuplicateEmail,
	"uq_sites_name":               models.ErrDuplicateSiteName,
	"uq_subscription_proofs_live": models.ErrDuplicateProof,
	"uq_slot_proofs_live":         models.ErrDuplicateProof,
	"uq_invoices_pending_period":  models.ErrDuplicateInvoice,
	"uq_non_working_day":          models.ErrDuplicateNonWorkingDay,
}

// mapConstraint converts a unique-violation error into its domain error,
// leaving every other error untouched.
func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if domainErr, ok := constraintErrors[pgErr.ConstraintName]; ok {
			return domainErr
		}
	}
	return err
}
