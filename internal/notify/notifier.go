package notify

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

// OrderCreated is published after an order transaction commits.
type OrderCreated struct {
	OrderID       uuid.UUID
	CustomerPhone string
}

// Publisher is the producer side consumed by the order service. Publishing
// must never block or fail order placement.
type Publisher interface {
	Publish(event OrderCreated)
}

// Notifier delivers a single order-created notification. Delivery failures
// are logged by the dispatcher and never propagated.
type Notifier interface {
	Notify(ctx context.Context, event OrderCreated) error
}

// LogNotifier writes notifications to the log. Stand-in for a real
// SMS/WhatsApp/push sender.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, event OrderCreated) error {
	log.Info().
		Stringer("order_id", event.OrderID).
		Str("customer_phone", event.CustomerPhone).
		Msg("notify: new order created")
	return nil
}

// Dispatcher decouples order commit from notification delivery: events are
// buffered on a channel and drained by a single consumer goroutine.
type Dispatcher struct {
	events   chan OrderCreated
	notifier Notifier
	done     chan struct{}
}

func NewDispatcher(notifier Notifier, bufferSize int) *Dispatcher {
	d := &Dispatcher{
		events:   make(chan OrderCreated, bufferSize),
		notifier: notifier,
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

// Publish enqueues an event without blocking. When the buffer is full the
// event is dropped: notifications are best-effort.
func (d *Dispatcher) Publish(event OrderCreated) {
	select {
	case d.events <- event:
	default:
		log.Warn().Stringer("order_id", event.OrderID).Msg("notify: event buffer full, dropping event")
	}
}

// Close stops accepting events and waits until the buffered ones are drained.
func (d *Dispatcher) Close() {
	close(d.events)
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for event := range d.events {
		if err := d.notifier.Notify(context.Background(), event); err != nil {
			log.Error().Err(err).Stringer("order_id", event.OrderID).Msg("notify: failed to deliver notification")
		}
	}
}
