package streaming

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"scamguard/pkg/logger"
)

// fakeSession records published events
type fakeSession struct {
	mu     sync.Mutex
	events []*AlertEvent
	closed bool
}

func (s *fakeSession) Publish(_ context.Context, event *AlertEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) published() []*AlertEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*AlertEvent, len(s.events))
	copy(out, s.events)
	return out
}

// newManualTransport returns a transport with sleeps recorded instead of
// slept and deferred funcs captured instead of scheduled
func newManualTransport(dial Dialer, opts TransportOptions) (*Transport, *[]time.Duration, *[]func()) {
	t := NewTransport(dial, opts, logger.Nop())
	var sleeps []time.Duration
	var deferred []func()
	t.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	t.after = func(_ time.Duration, fn func()) { deferred = append(deferred, fn) }
	return t, &sleeps, &deferred
}

func TestConnectBackoffDoublesAndGoesFatal(t *testing.T) {
	dialErr := errors.New("refused")
	attempts := 0
	dial := func(context.Context) (Session, error) {
		attempts++
		return nil, dialErr
	}

	tr, sleeps, _ := newManualTransport(dial, TransportOptions{
		ReconnectBase: time.Second,
		MaxReconnects: 5,
	})

	var states []StateEvent
	tr.OnStateChange(func(ev StateEvent) { states = append(states, ev) })

	err := tr.Connect(context.Background())
	if !errors.Is(err, ErrTransportDown) {
		t.Fatalf("expected ErrTransportDown, got %v", err)
	}
	if attempts != 5 {
		t.Errorf("dial attempts = %d, want 5", attempts)
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(*sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", *sleeps, want)
	}
	for i, d := range want {
		if (*sleeps)[i] != d {
			t.Errorf("sleep[%d] = %s, want %s", i, (*sleeps)[i], d)
		}
	}

	last := states[len(states)-1]
	if last.State != StateError || !last.Fatal {
		t.Errorf("final state = %+v, want fatal error", last)
	}

	// Down until a fresh Connect: every operation refuses
	if err := tr.Send(context.Background(), "alerts", EventAlertCreated, nil); !errors.Is(err, ErrTransportDown) {
		t.Errorf("Send while down = %v, want ErrTransportDown", err)
	}
}

func TestConnectRecoversOnLaterAttempt(t *testing.T) {
	session := &fakeSession{}
	attempts := 0
	dial := func(context.Context) (Session, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("refused")
		}
		return session, nil
	}

	tr, sleeps, _ := newManualTransport(dial, TransportOptions{
		ReconnectBase: time.Second,
		MaxReconnects: 5,
	})

	var states []StateEvent
	tr.OnStateChange(func(ev StateEvent) { states = append(states, ev) })

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Disconnect()

	if len(*sleeps) != 2 {
		t.Errorf("slept %d times, want 2", len(*sleeps))
	}
	if states[len(states)-1].State != StateConnected {
		t.Errorf("final state = %s, want connected", states[len(states)-1].State)
	}

	if err := tr.Send(context.Background(), "alerts", EventAlertCreated, map[string]any{"k": "v"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	events := session.published()
	if len(events) != 1 || events[0].Channel != "alerts" {
		t.Fatalf("unexpected published events: %+v", events)
	}
}

func TestSubscribeDelivery(t *testing.T) {
	session := &fakeSession{}
	tr, _, _ := newManualTransport(func(context.Context) (Session, error) { return session, nil }, TransportOptions{})
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Disconnect()

	var got []*AlertEvent
	if err := tr.Subscribe("alerts", Subscription{Types: []EventType{EventAlertCreated}}, func(ev *AlertEvent) {
		got = append(got, ev)
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	tr.Deliver(&AlertEvent{Type: EventAlertCreated, Channel: "alerts"})
	tr.Deliver(&AlertEvent{Type: EventAlertUpdated, Channel: "alerts"}) // filtered by type
	tr.Deliver(&AlertEvent{Type: EventAlertCreated, Channel: "other"})  // different channel

	if len(got) != 1 {
		t.Fatalf("delivered %d events, want 1", len(got))
	}

	tr.Unsubscribe("alerts")
	tr.Deliver(&AlertEvent{Type: EventAlertCreated, Channel: "alerts"})
	if len(got) != 1 {
		t.Error("event delivered after Unsubscribe")
	}
}

func TestTypingIndicatorAutoClear(t *testing.T) {
	session := &fakeSession{}
	tr, _, deferred := newManualTransport(func(context.Context) (Session, error) { return session, nil }, TransportOptions{})
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Disconnect()

	if err := tr.SetTyping(context.Background(), "chat-1", "user-1"); err != nil {
		t.Fatalf("SetTyping: %v", err)
	}
	if len(*deferred) != 1 {
		t.Fatalf("expected 1 scheduled auto-clear, got %d", len(*deferred))
	}

	// Fire the auto-clear: no newer indicator, so typing=false publishes
	(*deferred)[0]()

	events := session.published()
	if len(events) != 2 {
		t.Fatalf("published %d events, want typing start + clear", len(events))
	}
	if typing, _ := events[1].Payload["typing"].(bool); typing {
		t.Error("second event should clear the indicator")
	}
}

func TestTypingIndicatorNewerWins(t *testing.T) {
	session := &fakeSession{}
	tr, _, deferred := newManualTransport(func(context.Context) (Session, error) { return session, nil }, TransportOptions{})

	// Deterministic clock: each call advances one second
	var tick int64
	tr.now = func() time.Time {
		tick++
		return time.Unix(tick, 0)
	}

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Disconnect()

	if err := tr.SetTyping(context.Background(), "chat-1", "user-1"); err != nil {
		t.Fatalf("SetTyping: %v", err)
	}
	if err := tr.SetTyping(context.Background(), "chat-1", "user-1"); err != nil {
		t.Fatalf("SetTyping: %v", err)
	}

	// The first auto-clear must be a no-op: a newer indicator exists
	(*deferred)[0]()
	if events := session.published(); len(events) != 2 {
		t.Fatalf("stale auto-clear published an event: %d events", len(events))
	}

	// The second auto-clear matches the stored stamp and clears
	(*deferred)[1]()
	if events := session.published(); len(events) != 3 {
		t.Fatalf("expected the current auto-clear to publish, got %d events", len(events))
	}
}

func TestTypingIndicatorsPerUser(t *testing.T) {
	session := &fakeSession{}
	tr, _, deferred := newManualTransport(func(context.Context) (Session, error) { return session, nil }, TransportOptions{})

	var tick int64
	tr.now = func() time.Time {
		tick++
		return time.Unix(tick, 0)
	}

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Disconnect()

	// Two users typing on the same channel. The second indicator must
	// not suppress the first user's auto-clear.
	if err := tr.SetTyping(context.Background(), "chat-1", "user-1"); err != nil {
		t.Fatalf("SetTyping user-1: %v", err)
	}
	if err := tr.SetTyping(context.Background(), "chat-1", "user-2"); err != nil {
		t.Fatalf("SetTyping user-2: %v", err)
	}

	(*deferred)[0]()
	events := session.published()
	if len(events) != 3 {
		t.Fatalf("expected user-1 auto-clear to publish, got %d events", len(events))
	}
	clear := events[2]
	if clear.UserID != "user-1" {
		t.Errorf("clear event user = %q, want user-1", clear.UserID)
	}
	if typing, _ := clear.Payload["typing"].(bool); typing {
		t.Error("third event should clear the indicator")
	}

	(*deferred)[1]()
	if events := session.published(); len(events) != 4 {
		t.Fatalf("expected user-2 auto-clear to publish, got %d events", len(events))
	}
}

func TestSubscriptionMatches(t *testing.T) {
	tests := []struct {
		name  string
		sub   Subscription
		event AlertEvent
		want  bool
	}{
		{
			name:  "zero filter matches",
			sub:   Subscription{},
			event: AlertEvent{Type: EventAlertCreated, UserID: "u1"},
			want:  true,
		},
		{
			name:  "user mismatch",
			sub:   Subscription{UserID: "u1"},
			event: AlertEvent{Type: EventAlertCreated, UserID: "u2"},
			want:  false,
		},
		{
			name:  "type filter",
			sub:   Subscription{Types: []EventType{EventPresence}},
			event: AlertEvent{Type: EventAlertCreated},
			want:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sub.Matches(&tt.event); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}
