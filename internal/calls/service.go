package calls

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"callwatch/internal/bus"

	"github.com/google/uuid"
)

// Dialer is the call placement/termination collaborator. Implemented by the
// Twilio adapter; no provider SDK calls outside telephony adapters.
type Dialer interface {
	// Place starts an outbound call with AMD enabled and returns the
	// provider's call sid.
	Place(ctx context.Context, to string) (string, error)

	// Terminate ends a call leg. Fire-and-forget: the authoritative status
	// update still arrives via the status webhook.
	Terminate(ctx context.Context, callSid string) error
}

// Limiter caps concurrent active calls per owner. Optional; a nil Limiter
// disables the cap.
type Limiter interface {
	Acquire(ctx context.Context, ownerID string) (bool, error)
	Release(ctx context.Context, ownerID string) error
}

var (
	ErrTooManyActiveCalls = fmt.Errorf("too many active calls")
)

// Service orchestrates call placement, webhook ingest, and event publication.
//
// Event invariants:
//   - DIALING is published once per successful placement (at-least-once if the
//     operator redials; not deduplicated).
//   - UPDATE is published at most once per call, only after the store accepted
//     the terminal transition.
type Service struct {
	store   Store
	bus     *bus.Bus
	dialer  Dialer
	limiter Limiter
	log     *slog.Logger

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(store Store, b *bus.Bus, dialer Dialer, limiter Limiter, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:   store,
		bus:     b,
		dialer:  dialer,
		limiter: limiter,
		log:     log,
		clock:   time.Now,
	}
}

// Dial places an outbound call for ownerID and records it as PENDING.
func (s *Service) Dial(ctx context.Context, ownerID, to string) (CallRecord, error) {
	if ownerID == "" {
		return CallRecord{}, ErrInvalidArgument
	}
	to = strings.TrimSpace(to)
	if !validTargetNumber(to) {
		return CallRecord{}, fmt.Errorf("%w: 'to' must be E.164", ErrInvalidArgument)
	}

	if s.limiter != nil {
		ok, err := s.limiter.Acquire(ctx, ownerID)
		if err != nil {
			return CallRecord{}, fmt.Errorf("call limiter: %w", err)
		}
		if !ok {
			return CallRecord{}, ErrTooManyActiveCalls
		}
	}

	callSid, err := s.dialer.Place(ctx, to)
	if err != nil {
		s.releaseSlot(ctx, ownerID)
		return CallRecord{}, fmt.Errorf("call placement: %w", err)
	}

	now := s.clock().UTC()
	rec, err := s.store.Create(ctx, CallRecord{
		ID:              uuid.NewString(),
		ProviderCallSid: callSid,
		OwnerID:         ownerID,
		TargetNumber:    to,
		Strategy:        StrategyTwilioNative,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		// The call is already ringing; surface the loss to the dashboard.
		s.log.Error("call record create failed", "call_sid", callSid, "err", err)
		s.bus.PublishCall(bus.Event{
			Type:    bus.EventError,
			UserID:  ownerID,
			CallSid: callSid,
			Message: "call placed but could not be recorded",
		})
		s.releaseSlot(ctx, ownerID)
		return CallRecord{}, err
	}

	s.bus.PublishCall(bus.Event{
		Type:    bus.EventDialing,
		UserID:  rec.OwnerID,
		CallSid: rec.ProviderCallSid,
		To:      rec.TargetNumber,
	})
	return rec, nil
}

// Hangup asks the provider to end a call owned by ownerID. The record is not
// touched here; the status webhook carries the authoritative update.
func (s *Service) Hangup(ctx context.Context, ownerID, callSid string) error {
	if ownerID == "" || callSid == "" {
		return ErrInvalidArgument
	}
	rec, err := s.store.GetByProviderCallSid(ctx, callSid)
	if err != nil {
		return err
	}
	if rec.OwnerID != ownerID {
		return ErrUnauthorized
	}
	if err := s.dialer.Terminate(ctx, callSid); err != nil {
		return fmt.Errorf("call termination: %w", err)
	}
	return nil
}

// HandleAMDResult ingests the provider's AMD classification. The resolved
// status is always returned so the webhook layer can build the voice-control
// response even when the store update fails.
func (s *Service) HandleAMDResult(ctx context.Context, callSid, answeredBy string) (Status, error) {
	status := ResolveAMD(answeredBy)
	if callSid == "" {
		return status, ErrInvalidArgument
	}
	return status, s.applyStatus(ctx, callSid, status)
}

// HandleProviderStatus ingests a network call-status webhook. Lifecycle
// statuses that do not determine an outcome are ignored.
func (s *Service) HandleProviderStatus(ctx context.Context, callSid, callStatus string) error {
	status, ok := ResolveProviderStatus(callStatus)
	if !ok {
		return nil
	}
	if callSid == "" {
		return ErrInvalidArgument
	}
	return s.applyStatus(ctx, callSid, status)
}

// applyStatus runs the idempotent terminal transition and, only on success,
// publishes the UPDATE event. OwnerID comes from the updated record, never
// from the webhook body.
func (s *Service) applyStatus(ctx context.Context, callSid string, status Status) error {
	rec, err := s.store.UpdateStatusByProviderCallSid(ctx, callSid, status)
	if err != nil {
		return err
	}

	s.bus.PublishCall(bus.Event{
		Type:    bus.EventUpdate,
		UserID:  rec.OwnerID,
		CallSid: rec.ProviderCallSid,
		Status:  string(rec.Status),
	})
	s.releaseSlot(ctx, rec.OwnerID)
	return nil
}

// List returns the owner's call records, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]CallRecord, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

func (s *Service) releaseSlot(ctx context.Context, ownerID string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Release(ctx, ownerID); err != nil {
		s.log.Warn("call slot release failed", "owner_id", ownerID, "err", err)
	}
}

func validTargetNumber(to string) bool {
	if len(to) < 8 || len(to) > 16 || to[0] != '+' {
		return false
	}
	for _, r := range to[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
