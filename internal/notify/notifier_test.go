package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/grocery-shop/internal/notify"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.OrderCreated
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event notify.OrderCreated) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) delivered() []notify.OrderCreated {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.OrderCreated(nil), n.events...)
}

func TestDispatcher_DeliversEvents(t *testing.T) {
	notifier := &recordingNotifier{}
	dispatcher := notify.NewDispatcher(notifier, 8)

	first := notify.OrderCreated{OrderID: uuid.Must(uuid.NewV4()), CustomerPhone: "+911111111111"}
	second := notify.OrderCreated{OrderID: uuid.Must(uuid.NewV4()), CustomerPhone: "+922222222222"}

	dispatcher.Publish(first)
	dispatcher.Publish(second)
	dispatcher.Close()

	delivered := notifier.delivered()
	require.Len(t, delivered, 2)
	assert.Equal(t, first, delivered[0])
	assert.Equal(t, second, delivered[1])
}

func TestDispatcher_SwallowsNotifierFailure(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("sms gateway down")}
	dispatcher := notify.NewDispatcher(notifier, 8)

	dispatcher.Publish(notify.OrderCreated{OrderID: uuid.Must(uuid.NewV4()), CustomerPhone: "+911111111111"})
	dispatcher.Publish(notify.OrderCreated{OrderID: uuid.Must(uuid.NewV4()), CustomerPhone: "+922222222222"})
	dispatcher.Close()

	// Both events were attempted despite the first failure.
	assert.Len(t, notifier.delivered(), 2)
}

func TestLogNotifier_NeverFails(t *testing.T) {
	err := notify.LogNotifier{}.Notify(context.Background(), notify.OrderCreated{
		OrderID:       uuid.Must(uuid.NewV4()),
		CustomerPhone: "+911111111111",
	})
	assert.NoError(t, err)
}
