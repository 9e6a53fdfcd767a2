package calls

import (
	"context"
	"errors"
	"testing"
	"time"

	"callwatch/internal/bus"
)

type fakeDialer struct {
	sids       []string
	placed     []string
	terminated []string
	placeErr   error
}

func (d *fakeDialer) Place(ctx context.Context, to string) (string, error) {
	if d.placeErr != nil {
		return "", d.placeErr
	}
	d.placed = append(d.placed, to)
	sid := d.sids[0]
	if len(d.sids) > 1 {
		d.sids = d.sids[1:]
	}
	return sid, nil
}

func (d *fakeDialer) Terminate(ctx context.Context, callSid string) error {
	d.terminated = append(d.terminated, callSid)
	return nil
}

type fakeLimiter struct {
	active   map[string]int
	limit    int
	acquires int
	releases int
}

func newFakeLimiter(limit int) *fakeLimiter {
	return &fakeLimiter{active: map[string]int{}, limit: limit}
}

func (l *fakeLimiter) Acquire(ctx context.Context, ownerID string) (bool, error) {
	l.acquires++
	if l.active[ownerID] >= l.limit {
		return false, nil
	}
	l.active[ownerID]++
	return true, nil
}

func (l *fakeLimiter) Release(ctx context.Context, ownerID string) error {
	l.releases++
	if l.active[ownerID] > 0 {
		l.active[ownerID]--
	}
	return nil
}

func newTestService(t *testing.T, sid string) (*Service, *MemoryStore, *bus.Bus, *fakeDialer) {
	t.Helper()
	store := NewMemoryStore()
	store.Clock = func() time.Time { return time.Unix(1700000000, 0) }
	b := bus.New()
	d := &fakeDialer{sids: []string{sid}}
	svc := NewService(store, b, d, nil, nil)
	svc.clock = func() time.Time { return time.Unix(1700000000, 0) }
	return svc, store, b, d
}

func TestDialCreatesPendingRecordAndPublishesDialing(t *testing.T) {
	svc, store, b, _ := newTestService(t, "CA123")

	var events []bus.Event
	b.Subscribe(bus.CallTopic("CA123"), func(e bus.Event) { events = append(events, e) })

	rec, err := svc.Dial(context.Background(), "u1", "+12225550101")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.ProviderCallSid != "CA123" || rec.Status != StatusPending {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Strategy != StrategyTwilioNative {
		t.Fatalf("expected TWILIO_NATIVE strategy, got %v", rec.Strategy)
	}

	stored, err := store.GetByProviderCallSid(context.Background(), "CA123")
	if err != nil || stored.Status != StatusPending {
		t.Fatalf("expected stored PENDING record, got %+v err=%v", stored, err)
	}

	if len(events) != 1 || events[0].Type != bus.EventDialing {
		t.Fatalf("expected one DIALING event, got %+v", events)
	}
	if events[0].UserID != "u1" || events[0].To != "+12225550101" {
		t.Fatalf("unexpected DIALING payload: %+v", events[0])
	}
}

func TestDialRejectsBadNumber(t *testing.T) {
	svc, _, _, d := newTestService(t, "CA123")

	for _, to := range []string{"", "12225550101", "+1-222-555", "+abc"} {
		if _, err := svc.Dial(context.Background(), "u1", to); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("Dial(%q): expected ErrInvalidArgument, got %v", to, err)
		}
	}
	if len(d.placed) != 0 {
		t.Fatalf("no call should have been placed")
	}
}

func TestDialSurfacesUpstreamFailure(t *testing.T) {
	svc, _, _, d := newTestService(t, "CA123")
	d.placeErr = errors.New("twilio: invalid from number")

	_, err := svc.Dial(context.Background(), "u1", "+12225550101")
	if err == nil || !errors.Is(err, d.placeErr) {
		t.Fatalf("expected wrapped upstream error, got %v", err)
	}
}

func TestAMDHumanEndToEnd(t *testing.T) {
	svc, store, b, _ := newTestService(t, "CA123")

	if _, err := svc.Dial(context.Background(), "u1", "+12225550101"); err != nil {
		t.Fatalf("dial: %v", err)
	}

	var events []bus.Event
	b.Subscribe(bus.CallTopic("CA123"), func(e bus.Event) { events = append(events, e) })

	status, err := svc.HandleAMDResult(context.Background(), "CA123", "human")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if status != StatusHuman {
		t.Fatalf("expected HUMAN, got %v", status)
	}

	stored, _ := store.GetByProviderCallSid(context.Background(), "CA123")
	if stored.Status != StatusHuman {
		t.Fatalf("expected stored HUMAN, got %v", stored.Status)
	}

	if len(events) != 1 || events[0].Type != bus.EventUpdate || events[0].Status != "HUMAN" {
		t.Fatalf("expected UPDATE HUMAN event, got %+v", events)
	}
	if events[0].UserID != "u1" {
		t.Fatalf("owner must come from the record, got %+v", events[0])
	}
}

func TestAMDMachineLocksOutLaterStatusWebhook(t *testing.T) {
	svc, store, _, _ := newTestService(t, "CA123")

	if _, err := svc.Dial(context.Background(), "u1", "+12225550101"); err != nil {
		t.Fatalf("dial: %v", err)
	}

	status, err := svc.HandleAMDResult(context.Background(), "CA123", "machine_start")
	if err != nil || status != StatusMachine {
		t.Fatalf("expected MACHINE with no error, got %v %v", status, err)
	}

	// "completed" is not status-determining; nothing happens.
	if err := svc.HandleProviderStatus(context.Background(), "CA123", "completed"); err != nil {
		t.Fatalf("completed must be ignored, got %v", err)
	}

	// A determining signal after a terminal status is a store no-op.
	if err := svc.HandleProviderStatus(context.Background(), "CA123", "failed"); !errors.Is(err, ErrFinalStatus) {
		t.Fatalf("expected ErrFinalStatus, got %v", err)
	}

	stored, _ := store.GetByProviderCallSid(context.Background(), "CA123")
	if stored.Status != StatusMachine {
		t.Fatalf("terminal status must not change, got %v", stored.Status)
	}
}

func TestStatusWebhookFirstWinsOverLaterAMD(t *testing.T) {
	svc, store, _, _ := newTestService(t, "CA123")

	if _, err := svc.Dial(context.Background(), "u1", "+12225550101"); err != nil {
		t.Fatalf("dial: %v", err)
	}

	if err := svc.HandleProviderStatus(context.Background(), "CA123", "no-answer"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	status, err := svc.HandleAMDResult(context.Background(), "CA123", "human")
	if status != StatusHuman {
		t.Fatalf("resolved status must still be returned for the voice response, got %v", status)
	}
	if !errors.Is(err, ErrFinalStatus) {
		t.Fatalf("expected ErrFinalStatus, got %v", err)
	}

	stored, _ := store.GetByProviderCallSid(context.Background(), "CA123")
	if stored.Status != StatusNoAnswer {
		t.Fatalf("first resolving signal wins, got %v", stored.Status)
	}
}

func TestWebhookForUnknownCallIsNotFound(t *testing.T) {
	svc, _, b, _ := newTestService(t, "CA123")

	var events []bus.Event
	b.Subscribe(bus.CallTopic("CA404"), func(e bus.Event) { events = append(events, e) })

	status, err := svc.HandleAMDResult(context.Background(), "CA404", "human")
	if status != StatusHuman {
		t.Fatalf("resolution is independent of the store, got %v", status)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("no UPDATE may be published without a store update")
	}
}

func TestHangupChecksOwnershipAndTerminates(t *testing.T) {
	svc, _, _, d := newTestService(t, "CA123")

	if _, err := svc.Dial(context.Background(), "u1", "+12225550101"); err != nil {
		t.Fatalf("dial: %v", err)
	}

	if err := svc.Hangup(context.Background(), "u2", "CA123"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if len(d.terminated) != 0 {
		t.Fatalf("terminate must not run for a foreign call")
	}

	if err := svc.Hangup(context.Background(), "u1", "CA123"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(d.terminated) != 1 || d.terminated[0] != "CA123" {
		t.Fatalf("expected terminate CA123, got %v", d.terminated)
	}
}

func TestDialCapAcquiredAndReleasedOnTerminal(t *testing.T) {
	store := NewMemoryStore()
	b := bus.New()
	d := &fakeDialer{sids: []string{"CA1", "CA2"}}
	lim := newFakeLimiter(1)
	svc := NewService(store, b, d, lim, nil)

	if _, err := svc.Dial(context.Background(), "u1", "+12225550101"); err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, err := svc.Dial(context.Background(), "u1", "+12225550102"); !errors.Is(err, ErrTooManyActiveCalls) {
		t.Fatalf("expected ErrTooManyActiveCalls, got %v", err)
	}

	if err := svc.HandleProviderStatus(context.Background(), "CA1", "no-answer"); err != nil {
		t.Fatalf("status webhook: %v", err)
	}
	if lim.releases != 1 {
		t.Fatalf("terminal status must release the slot, releases=%d", lim.releases)
	}

	if _, err := svc.Dial(context.Background(), "u1", "+12225550102"); err != nil {
		t.Fatalf("dial after release: %v", err)
	}
}

func TestListByOwnerNewestFirstAndScoped(t *testing.T) {
	store := NewMemoryStore()
	b := bus.New()
	d := &fakeDialer{sids: []string{"CA1", "CA2", "CA3"}}
	svc := NewService(store, b, d, nil, nil)

	base := time.Unix(1700000000, 0)
	times := []time.Time{base, base.Add(time.Minute), base.Add(2 * time.Minute)}
	i := 0
	svc.clock = func() time.Time { t := times[i]; i++; return t }

	if _, err := svc.Dial(context.Background(), "u1", "+12225550101"); err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, err := svc.Dial(context.Background(), "u2", "+12225550102"); err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, err := svc.Dial(context.Background(), "u1", "+12225550103"); err != nil {
		t.Fatalf("dial: %v", err)
	}

	recs, err := svc.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records for u1, got %d", len(recs))
	}
	if recs[0].ProviderCallSid != "CA3" || recs[1].ProviderCallSid != "CA1" {
		t.Fatalf("expected newest-first order, got %v %v", recs[0].ProviderCallSid, recs[1].ProviderCallSid)
	}
}

func TestCreateConflictOnDuplicateSid(t *testing.T) {
	store := NewMemoryStore()
	rec := CallRecord{ID: "x", ProviderCallSid: "CA1", OwnerID: "u1", Status: StatusPending}
	if _, err := store.Create(context.Background(), rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(context.Background(), rec); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
