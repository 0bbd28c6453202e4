package streaming

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"scamguard/pkg/logger"
)

// ErrTransportDown is returned once reconnection attempts are exhausted.
// The transport stays down until a fresh Connect succeeds.
var ErrTransportDown = errors.New("transport down: reconnect attempts exhausted")

// ConnState labels the transport connection lifecycle
type ConnState string

const (
	StateConnected    ConnState = "connected"
	StateDisconnected ConnState = "disconnected"
	StateReconnecting ConnState = "reconnecting"
	StateError        ConnState = "error"
)

// StateEvent is emitted on every connection state change
type StateEvent struct {
	State   ConnState
	Attempt int
	Max     int
	Err     error
	Fatal   bool
}

// Session is one live connection to the event backend
type Session interface {
	Publish(ctx context.Context, event *AlertEvent) error
	Close() error
}

// Dialer opens a new session
type Dialer func(ctx context.Context) (Session, error)

// TransportOptions tune reconnect and heartbeat behavior
type TransportOptions struct {
	ReconnectBase     time.Duration // first retry delay, doubles per attempt
	MaxReconnects     int
	HeartbeatInterval time.Duration
	TypingTimeout     time.Duration
}

func (o *TransportOptions) withDefaults() {
	if o.ReconnectBase <= 0 {
		o.ReconnectBase = time.Second
	}
	if o.MaxReconnects <= 0 {
		o.MaxReconnects = 5
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 30 * time.Second
	}
	if o.TypingTimeout <= 0 {
		o.TypingTimeout = 5 * time.Second
	}
}

// channelSub is one channel subscription held by the transport
type channelSub struct {
	opts    Subscription
	handler Handler
}

// Transport is the client-side consumer contract over the event backend:
// named channel subscriptions, presence, typing indicators, and automatic
// reconnection with exponential backoff.
type Transport struct {
	dial    Dialer
	opts    TransportOptions
	logger  *logger.Logger
	onState func(StateEvent)

	// injectable for deterministic tests
	sleep func(time.Duration)
	now   func() time.Time
	after func(time.Duration, func()) // schedule a deferred func

	mu      sync.Mutex
	session Session
	down    bool
	subs    map[string]*channelSub
	typing  map[typingKey]time.Time // last indicator per user per channel

	heartbeatStop chan struct{}
}

// NewTransport creates a transport over the given dialer. Call Connect
// before publishing.
func NewTransport(dial Dialer, opts TransportOptions, log *logger.Logger) *Transport {
	opts.withDefaults()
	return &Transport{
		dial:   dial,
		opts:   opts,
		logger: log.WithComponent("transport"),
		sleep:  time.Sleep,
		now:    time.Now,
		after: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
		subs:   make(map[string]*channelSub),
		typing: make(map[typingKey]time.Time),
	}
}

// typingKey scopes typing indicators so one user's auto-clear never
// interferes with another user typing on the same channel
type typingKey struct {
	channel string
	userID  string
}

// OnStateChange registers a listener for connection state events
func (t *Transport) OnStateChange(fn func(StateEvent)) {
	t.onState = fn
}

func (t *Transport) emitState(ev StateEvent) {
	if t.onState != nil {
		t.onState(ev)
	}
}

// Connect dials the backend, retrying with exponential backoff. The delay
// starts at ReconnectBase and doubles per attempt; after MaxReconnects
// failures the transport goes down and every operation returns
// ErrTransportDown until Connect is called again.
func (t *Transport) Connect(ctx context.Context) error {
	delay := t.opts.ReconnectBase
	var lastErr error

	for attempt := 1; attempt <= t.opts.MaxReconnects; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		session, err := t.dial(ctx)
		if err == nil {
			t.mu.Lock()
			t.session = session
			t.down = false
			t.mu.Unlock()

			t.emitState(StateEvent{State: StateConnected})
			t.startHeartbeat()
			return nil
		}
		lastErr = err

		t.logger.Warn().Err(err).
			Int("attempt", attempt).
			Int("max", t.opts.MaxReconnects).
			Dur("next_delay", delay).
			Msg("connect failed")
		t.emitState(StateEvent{State: StateReconnecting, Attempt: attempt, Max: t.opts.MaxReconnects, Err: err})

		if attempt < t.opts.MaxReconnects {
			t.sleep(delay)
			delay *= 2
		}
	}

	t.mu.Lock()
	t.down = true
	t.session = nil
	t.mu.Unlock()

	t.emitState(StateEvent{State: StateError, Err: lastErr, Fatal: true})
	return fmt.Errorf("%w: %v", ErrTransportDown, lastErr)
}

// Disconnect closes the session without attempting reconnection
func (t *Transport) Disconnect() {
	t.stopHeartbeat()

	t.mu.Lock()
	session := t.session
	t.session = nil
	t.mu.Unlock()

	if session != nil {
		session.Close()
	}
	t.emitState(StateEvent{State: StateDisconnected})
}

// Subscribe attaches a handler to a named channel
func (t *Transport) Subscribe(channel string, opts Subscription, handler Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.down {
		return ErrTransportDown
	}
	t.subs[channel] = &channelSub{opts: opts, handler: handler}
	return nil
}

// Unsubscribe detaches the channel's handler
func (t *Transport) Unsubscribe(channel string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.subs, channel)
}

// Deliver routes an inbound event to the matching channel handler. Wired
// as the hub's local handler on the server side.
func (t *Transport) Deliver(event *AlertEvent) {
	t.mu.Lock()
	sub, ok := t.subs[event.Channel]
	t.mu.Unlock()

	if !ok || !sub.opts.Matches(event) {
		return
	}
	sub.handler(event)
}

// Send publishes an event on a named channel
func (t *Transport) Send(ctx context.Context, channel string, eventType EventType, payload map[string]any) error {
	t.mu.Lock()
	session := t.session
	down := t.down
	t.mu.Unlock()

	if down || session == nil {
		return ErrTransportDown
	}

	event := &AlertEvent{
		Type:      eventType,
		Channel:   channel,
		Payload:   payload,
		Timestamp: t.now(),
	}
	return session.Publish(ctx, event)
}

// UpdatePresence publishes the user's presence status
func (t *Transport) UpdatePresence(ctx context.Context, userID, status string) error {
	t.mu.Lock()
	session := t.session
	down := t.down
	t.mu.Unlock()

	if down || session == nil {
		return ErrTransportDown
	}

	return session.Publish(ctx, &AlertEvent{
		Type:      EventPresence,
		UserID:    userID,
		Payload:   map[string]any{"status": status},
		Timestamp: t.now(),
	})
}

// SetTyping publishes a typing indicator on the channel and schedules an
// auto-clear. The clear only fires if no newer indicator replaced this
// one in the meantime.
func (t *Transport) SetTyping(ctx context.Context, channel, userID string) error {
	stamp := t.now()

	t.mu.Lock()
	t.typing[typingKey{channel, userID}] = stamp
	session := t.session
	down := t.down
	t.mu.Unlock()

	if down || session == nil {
		return ErrTransportDown
	}

	err := session.Publish(ctx, &AlertEvent{
		Type:      EventTyping,
		Channel:   channel,
		UserID:    userID,
		Payload:   map[string]any{"typing": true},
		Timestamp: stamp,
	})
	if err != nil {
		return err
	}

	t.after(t.opts.TypingTimeout, func() {
		t.clearTyping(channel, userID, stamp)
	})
	return nil
}

// clearTyping publishes the cleared indicator unless a newer one from the
// same user exists
func (t *Transport) clearTyping(channel, userID string, stamp time.Time) {
	key := typingKey{channel, userID}

	t.mu.Lock()
	current, ok := t.typing[key]
	if !ok || !current.Equal(stamp) {
		t.mu.Unlock()
		return
	}
	delete(t.typing, key)
	session := t.session
	t.mu.Unlock()

	if session == nil {
		return
	}
	session.Publish(context.Background(), &AlertEvent{
		Type:      EventTyping,
		Channel:   channel,
		UserID:    userID,
		Payload:   map[string]any{"typing": false},
		Timestamp: t.now(),
	})
}

// startHeartbeat begins the keepalive loop on the live session
func (t *Transport) startHeartbeat() {
	t.stopHeartbeat()

	stop := make(chan struct{})
	t.mu.Lock()
	t.heartbeatStop = stop
	t.mu.Unlock()

	go func() {
		ticker := time.NewTicker(t.opts.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				t.mu.Lock()
				session := t.session
				channels := make([]string, 0, len(t.subs))
				for ch := range t.subs {
					channels = append(channels, ch)
				}
				t.mu.Unlock()

				if session == nil {
					return
				}
				for _, ch := range channels {
					session.Publish(context.Background(), &AlertEvent{
						Type:      EventHeartbeat,
						Channel:   ch,
						Timestamp: t.now(),
					})
				}
			}
		}
	}()
}

func (t *Transport) stopHeartbeat() {
	t.mu.Lock()
	stop := t.heartbeatStop
	t.heartbeatStop = nil
	t.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}
