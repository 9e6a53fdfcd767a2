package calls

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no record matches a provider call sid.
	// Webhook callers must treat it as a no-op, not a fatal condition.
	ErrNotFound = errors.New("call record not found")

	// ErrConflict is returned when a provider call sid already exists on
	// Create. Sids come from the provider, so this should not occur; if it
	// does, the dial request fails visibly.
	ErrConflict = errors.New("provider call sid already exists")

	// ErrFinalStatus is returned when an update targets a record whose
	// status is already terminal. The store is unchanged.
	ErrFinalStatus = errors.New("call already has a final status")

	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("not authorized for this call")
)

// Store is the durable table of call attempts. Implementations must make
// every successful status update observable by subsequent reads.
type Store interface {
	Create(ctx context.Context, rec CallRecord) (CallRecord, error)

	// UpdateStatusByProviderCallSid transitions a PENDING record to a
	// terminal status. Returns ErrNotFound for an unknown sid and
	// ErrFinalStatus when a terminal value is already set.
	UpdateStatusByProviderCallSid(ctx context.Context, providerCallSid string, status Status) (CallRecord, error)

	GetByProviderCallSid(ctx context.Context, providerCallSid string) (CallRecord, error)

	// ListByOwner returns the owner's records newest-first.
	ListByOwner(ctx context.Context, ownerID string) ([]CallRecord, error)
}
