package bus

import "testing"

func TestPublishDeliversToExactTopicOnly(t *testing.T) {
	b := New()

	var gotA, gotB []Event
	b.Subscribe("call:CA123", func(e Event) { gotA = append(gotA, e) })
	b.Subscribe("call:CA999", func(e Event) { gotB = append(gotB, e) })

	b.Publish("call:CA123", Event{Type: EventUpdate, CallSid: "CA123", Status: "HUMAN"})

	if len(gotA) != 1 {
		t.Fatalf("expected 1 event on call:CA123, got %d", len(gotA))
	}
	if gotA[0].Status != "HUMAN" {
		t.Fatalf("unexpected event: %+v", gotA[0])
	}
	if len(gotB) != 0 {
		t.Fatalf("expected no events on call:CA999, got %d", len(gotB))
	}
}

func TestPublishNoPrefixMatching(t *testing.T) {
	b := New()

	var got []Event
	b.Subscribe("user:u1", func(e Event) { got = append(got, e) })

	b.Publish("user:u12", Event{Type: EventDialing, UserID: "u12"})
	b.Publish("user:", Event{Type: EventDialing})

	if len(got) != 0 {
		t.Fatalf("expected no delivery across topic prefixes, got %d", len(got))
	}
}

func TestPublishWithNoListenersDropsEvent(t *testing.T) {
	b := New()
	// Must not panic or block.
	b.Publish("call:CA000", Event{Type: EventUpdate, CallSid: "CA000"})
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()

	var got []Event
	sub := b.Subscribe("user:u1", func(e Event) { got = append(got, e) })

	b.Publish("user:u1", Event{Type: EventDialing, UserID: "u1"})
	b.Unsubscribe(sub)
	b.Publish("user:u1", Event{Type: EventUpdate, UserID: "u1"})

	if len(got) != 1 {
		t.Fatalf("expected exactly 1 event before unsubscribe, got %d", len(got))
	}
	if b.Listeners("user:u1") != 0 {
		t.Fatalf("expected empty topic after unsubscribe")
	}

	// Double unsubscribe is a no-op.
	b.Unsubscribe(sub)
}

func TestPublishCallFansOutToBothTopics(t *testing.T) {
	b := New()

	var userGot, callGot int
	b.Subscribe(UserTopic("u1"), func(Event) { userGot++ })
	b.Subscribe(CallTopic("CA123"), func(Event) { callGot++ })

	b.PublishCall(Event{Type: EventDialing, UserID: "u1", CallSid: "CA123", To: "+12225550101"})

	if userGot != 1 || callGot != 1 {
		t.Fatalf("expected delivery on both scopes, got user=%d call=%d", userGot, callGot)
	}
}

func TestSubscribersOnSameTopicAllReceive(t *testing.T) {
	b := New()

	var a, c int
	b.Subscribe("user:u1", func(Event) { a++ })
	sub := b.Subscribe("user:u1", func(Event) { c++ })

	b.Publish("user:u1", Event{Type: EventDialing})
	b.Unsubscribe(sub)
	b.Publish("user:u1", Event{Type: EventUpdate})

	if a != 2 || c != 1 {
		t.Fatalf("expected a=2 c=1, got a=%d c=%d", a, c)
	}
}
