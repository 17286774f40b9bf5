package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/events")

// Notifier fans events out to subscribed listeners. Delivery is best effort:
// listener failures are logged and never reach the caller.
type Notifier struct {
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time

	mu        sync.RWMutex
	listeners map[Kind][]Listener
}

func NewNotifier(logger *slog.Logger, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		logger:    logger,
		timeout:   timeout,
		now:       time.Now,
		listeners: map[Kind][]Listener{},
	}
}

// Subscribe registers l for kind. Subscribing the same listener value twice is
// a no-op; distinct listeners sharing a name are both kept.
func (n *Notifier) Subscribe(kind Kind, l Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, existing := range n.listeners[kind] {
		if existing == l {
			return
		}
	}
	n.listeners[kind] = append(n.listeners[kind], l)
}

func (n *Notifier) Unsubscribe(kind Kind, l Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	current := n.listeners[kind]
	kept := make([]Listener, 0, len(current))
	for _, existing := range current {
		if existing != l {
			kept = append(kept, existing)
		}
	}
	if len(kept) == 0 {
		delete(n.listeners, kind)
		return
	}
	n.listeners[kind] = kept
}

// SubscribeAll attaches l to every booking event kind.
func SubscribeAll(n *Notifier, listeners ...Listener) {
	for _, l := range listeners {
		for _, k := range []Kind{BookingCreated, BookingCancelled, BookingRescheduled} {
			n.Subscribe(k, l)
		}
	}
}

// Listeners returns a copy of the listeners subscribed to kind.
func (n *Notifier) Listeners(kind Kind) []Listener {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]Listener(nil), n.listeners[kind]...)
}

// Notify runs every listener of kind concurrently and waits for all of them.
// Listeners run detached from ctx cancellation, bounded by the notify timeout.
func (n *Notifier) Notify(ctx context.Context, kind Kind, b model.Booking, message string) {
	listeners := n.Listeners(kind)
	if len(listeners) == 0 {
		return
	}
	evt := Event{Kind: kind, Booking: b, Message: message, OccurredAt: n.now().UTC()}

	base := context.WithoutCancel(ctx)
	var g errgroup.Group
	for _, l := range listeners {
		g.Go(func() error {
			n.deliver(base, l, evt)
			return nil
		})
	}
	_ = g.Wait()
}

func (n *Notifier) deliver(ctx context.Context, l Listener, evt Event) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "events.notify",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("event.kind", string(evt.Kind)),
			attribute.String("event.listener", l.Name()),
			attribute.String("booking.id", evt.Booking.ID),
		),
	)
	defer span.End()

	err := safeHandle(ctx, l, evt)
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	n.logger.ErrorContext(ctx, "booking event listener failed",
		"event", evt.Kind,
		"listener", l.Name(),
		"booking_id", evt.Booking.ID,
		"err", err,
	)
}

func safeHandle(ctx context.Context, l Listener, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return l.Handle(ctx, evt)
}
