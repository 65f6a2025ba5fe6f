package billing

import (
	"context"

	"github.com/google/uuid"
)

// Store defines persistence for subscription records. Each user has
// exactly one record keyed by user ID.
//
// Save is a conditional write: implementations must apply the update
// only when the stored record's UpdatedAt is not newer than the
// incoming one, and silently drop stale writes. Last-write-wins by
// UpdatedAt is the accepted tie-break for the rare business-level race
// (a user-initiated cancel against a webhook-driven cancellation).
type Store interface {
	// Get retrieves a record by user ID.
	// Returns ErrUserNotFound if no record exists.
	Get(ctx context.Context, userID uuid.UUID) (*Record, error)

	// FindByCustomerID resolves a remote customer reference to the
	// local record. Returns ErrUserNotFound when the customer belongs
	// to no local user (the provider account may span more than this
	// application).
	FindByCustomerID(ctx context.Context, customerID string) (*Record, error)

	// Save upserts the record, conditioned on UpdatedAt as above.
	Save(ctx context.Context, rec *Record) error

	// SetCustomerID memoizes the remote customer reference. The write
	// applies only when no customer is set yet; once set the value is
	// immutable for the lifetime of the user.
	SetCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error

	// IncrementUsage atomically adds one to a feature counter. No
	// upper bound is enforced here; limit checks are the caller's job.
	IncrementUsage(ctx context.Context, userID uuid.UUID, feature Feature) error

	// ResetUsage sets both usage counters to zero and bumps UpdatedAt.
	// Absolute reset keeps the invoice-paid transition idempotent.
	ResetUsage(ctx context.Context, userID uuid.UUID) error
}
