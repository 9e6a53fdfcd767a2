package reporting

import (
	"context"
	"testing"

	"callwatch/internal/calls"
)

func TestSummaryCountsAndHumanRate(t *testing.T) {
	store := calls.NewMemoryStore()
	seed := []calls.CallRecord{
		{ID: "1", ProviderCallSid: "CA1", OwnerID: "u1", Status: calls.StatusHuman},
		{ID: "2", ProviderCallSid: "CA2", OwnerID: "u1", Status: calls.StatusMachine},
		{ID: "3", ProviderCallSid: "CA3", OwnerID: "u1", Status: calls.StatusNoAnswer},
		{ID: "4", ProviderCallSid: "CA4", OwnerID: "u1", Status: calls.StatusHuman},
		{ID: "5", ProviderCallSid: "CA5", OwnerID: "u1", Status: calls.StatusPending},
		{ID: "6", ProviderCallSid: "CA6", OwnerID: "u2", Status: calls.StatusError},
	}
	for _, rec := range seed {
		if _, err := store.Create(context.Background(), rec); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	svc := NewService(store)
	sum, err := svc.Summary(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if sum.TotalCalls != 5 || sum.HumanCalls != 2 || sum.MachineCalls != 1 || sum.NoAnswerCalls != 1 || sum.PendingCalls != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.ErrorCalls != 0 {
		t.Fatalf("other user's calls must not be counted: %+v", sum)
	}
	if want := 0.5; sum.HumanRate != want {
		t.Fatalf("expected human rate %v over settled calls, got %v", want, sum.HumanRate)
	}
}

func TestSummaryRequiresOwner(t *testing.T) {
	svc := NewService(calls.NewMemoryStore())
	if _, err := svc.Summary(context.Background(), ""); err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
