package alerts

import (
	"context"
	"sync"
	"time"

	"scamguard/internal/domain/models"
	"scamguard/internal/notify"
	"scamguard/internal/streaming"
	"scamguard/pkg/logger"
)

// Clock abstracts time for the dispatcher so tests can drive ticks
// deterministically
type Clock interface {
	Now() time.Time
	Tick(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
func (realClock) Tick(d time.Duration) <-chan time.Time {
	return time.NewTicker(d).C
}

// Dispatcher drains queued alerts on a fixed tick and fans each one out
// to the user's enabled delivery channels. The queue is unbounded so
// Enqueue never blocks the detection path; depth is observable through
// QueueDepth.
type Dispatcher struct {
	prefs     *PreferenceService
	channels  []notify.Channel
	publisher streaming.Publisher
	clock     Clock
	tick      time.Duration
	logger    *logger.Logger

	mu       sync.Mutex
	queue    []*models.Alert
	draining bool
}

// NewDispatcher creates a dispatcher over the given delivery channels
func NewDispatcher(prefs *PreferenceService, channels []notify.Channel, publisher streaming.Publisher, tick time.Duration, log *logger.Logger) *Dispatcher {
	if tick <= 0 {
		tick = time.Second
	}
	return &Dispatcher{
		prefs:     prefs,
		channels:  channels,
		publisher: publisher,
		clock:     realClock{},
		tick:      tick,
		logger:    log.WithComponent("dispatcher"),
	}
}

// SetClock replaces the dispatcher's clock. Call before Run.
func (d *Dispatcher) SetClock(c Clock) {
	d.clock = c
}

// Enqueue adds an alert to the delivery queue. Never blocks.
func (d *Dispatcher) Enqueue(alert *models.Alert) {
	d.mu.Lock()
	d.queue = append(d.queue, alert)
	depth := len(d.queue)
	d.mu.Unlock()

	if depth > 1000 {
		d.logger.Warn().Int("depth", depth).Msg("delivery queue depth high")
	}
}

// QueueDepth returns the number of alerts awaiting delivery
func (d *Dispatcher) QueueDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Run drains the queue on every tick until ctx is done
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info().Dur("tick", d.tick).Msg("dispatcher started")
	ticks := d.clock.Tick(d.tick)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("dispatcher stopping")
			return
		case <-ticks:
			d.Drain(ctx)
		}
	}
}

// Drain delivers every queued alert. Single-flight: overlapping calls
// return immediately while a drain is in progress.
func (d *Dispatcher) Drain(ctx context.Context) {
	d.mu.Lock()
	if d.draining || len(d.queue) == 0 {
		d.mu.Unlock()
		return
	}
	d.draining = true
	batch := d.queue
	d.queue = nil
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.draining = false
		d.mu.Unlock()
	}()

	for _, alert := range batch {
		d.deliver(ctx, alert)
	}
}

// deliver gates one alert on the user's preferences and fans out to the
// enabled channels
func (d *Dispatcher) deliver(ctx context.Context, alert *models.Alert) {
	prefs, err := d.prefs.Get(ctx, alert.UserID)
	if err != nil {
		d.logger.Error().Err(err).
			Str("alert_id", alert.ID.String()).
			Str("user_id", alert.UserID).
			Msg("failed to load preferences, skipping delivery")
		return
	}

	if !prefs.TypeEnabled(alert.Type) {
		d.logger.Debug().Str("alert_id", alert.ID.String()).Msg("alert type disabled, suppressed")
		return
	}
	if !alert.Severity.AtLeast(prefs.SeverityThreshold) {
		d.logger.Debug().Str("alert_id", alert.ID.String()).Msg("below severity threshold, suppressed")
		return
	}

	// Quiet hours suppress everything except critical
	critical := alert.Severity == models.SeverityCritical
	if !critical && prefs.QuietHours.Contains(d.clock.Now()) {
		d.logger.Debug().Str("alert_id", alert.ID.String()).Msg("inside quiet hours, suppressed")
		return
	}

	var wg sync.WaitGroup
	for _, channel := range d.channels {
		if !channelEnabled(channel.Name(), prefs, critical) {
			continue
		}

		wg.Add(1)
		go func(ch notify.Channel) {
			defer wg.Done()
			if err := ch.Deliver(ctx, alert, alert.UserID); err != nil {
				d.logger.Error().Err(err).
					Str("channel", ch.Name()).
					Str("alert_id", alert.ID.String()).
					Msg("channel delivery failed")
			}
		}(channel)
	}
	wg.Wait()

	d.emitSideEffects(ctx, alert)
}

// channelEnabled applies the per-channel preference gates. SMS is
// reserved for critical alerts regardless of preference.
func channelEnabled(name string, prefs *models.AlertPreferences, critical bool) bool {
	switch name {
	case "push":
		return prefs.Channels.Push
	case "email":
		return prefs.Channels.Email
	case "sms":
		return prefs.Channels.SMS && critical
	case "in_app":
		return prefs.Channels.InApp
	default:
		return false
	}
}

// emitSideEffects publishes the haptic and accessibility events that
// accompany high-severity deliveries
func (d *Dispatcher) emitSideEffects(ctx context.Context, alert *models.Alert) {
	if d.publisher == nil {
		return
	}

	if alert.Severity.AtLeast(models.SeverityHigh) {
		event := streaming.NewAlertEvent(streaming.EventHaptic, alert)
		event.Payload = map[string]any{"pattern": "warning"}
		if err := d.publisher.Publish(ctx, event); err != nil {
			d.logger.Warn().Err(err).Msg("failed to publish haptic event")
		}
	}

	if alert.Severity == models.SeverityCritical {
		event := streaming.NewAlertEvent(streaming.EventAnnounce, alert)
		event.Payload = map[string]any{
			"politeness": "assertive",
			"text":       alert.Title,
		}
		if err := d.publisher.Publish(ctx, event); err != nil {
			d.logger.Warn().Err(err).Msg("failed to publish accessibility announcement")
		}
	}
}
