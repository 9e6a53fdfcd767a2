package reporting

import (
	"context"
	"errors"

	"callwatch/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting. Implementations must
// enforce owner filtering.
type Repository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]calls.CallRecord, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// OutcomeSummary aggregates one user's AMD outcomes.
type OutcomeSummary struct {
	OwnerID string `json:"ownerId"`

	TotalCalls    int `json:"totalCalls"`
	PendingCalls  int `json:"pendingCalls"`
	HumanCalls    int `json:"humanCalls"`
	MachineCalls  int `json:"machineCalls"`
	NoAnswerCalls int `json:"noAnswerCalls"`
	ErrorCalls    int `json:"errorCalls"`

	// HumanRate is human pickups over settled calls (non-PENDING), 0..1.
	HumanRate float64 `json:"humanRate"`
}

func (s *Service) Summary(ctx context.Context, ownerID string) (OutcomeSummary, error) {
	if ownerID == "" {
		return OutcomeSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return OutcomeSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return OutcomeSummary{}, err
	}

	out := OutcomeSummary{OwnerID: ownerID}
	for _, rec := range rows {
		out.TotalCalls++
		switch rec.Status {
		case calls.StatusPending:
			out.PendingCalls++
		case calls.StatusHuman:
			out.HumanCalls++
		case calls.StatusMachine:
			out.MachineCalls++
		case calls.StatusNoAnswer:
			out.NoAnswerCalls++
		case calls.StatusError:
			out.ErrorCalls++
		}
	}
	if settled := out.TotalCalls - out.PendingCalls; settled > 0 {
		out.HumanRate = float64(out.HumanCalls) / float64(settled)
	}
	return out, nil
}
