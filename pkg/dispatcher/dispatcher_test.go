package dispatcher

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoqado/possync/pkg/broker"
	"github.com/avoqado/possync/pkg/logging"
)

type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func newDelivery(routingKey string, redelivered bool) (amqp.Delivery, *fakeAcknowledger) {
	ack := &fakeAcknowledger{}
	return amqp.Delivery{
		Acknowledger: ack,
		RoutingKey:   routingKey,
		Redelivered:  redelivered,
		DeliveryTag:  1,
		Body:         []byte(`{}`),
	}, ack
}

func TestRegister(t *testing.T) {
	d := New(2, nil, logging.NewNopLogger())
	handler := func(ctx context.Context, key broker.RoutingKey, body []byte) error { return nil }

	require.NoError(t, d.Register("order.created", handler))
	assert.Error(t, d.Register("order.created", handler), "duplicate registration must fail")
	assert.Error(t, d.Register("order.updated", nil), "nil handler must fail")
	assert.Equal(t, []string{"order.created"}, d.Registered())
}

func TestVerify(t *testing.T) {
	d := New(2, nil, logging.NewNopLogger())
	handler := func(ctx context.Context, key broker.RoutingKey, body []byte) error { return nil }

	require.NoError(t, d.Register("order.created", handler))
	assert.NoError(t, d.Verify("order.created"))
	assert.Error(t, d.Verify("order.created", "heartbeat"))
}

func TestDispatchSuccessAcks(t *testing.T) {
	d := New(2, nil, logging.NewNopLogger())
	called := false
	require.NoError(t, d.Register("order.created", func(ctx context.Context, key broker.RoutingKey, body []byte) error {
		called = true
		assert.Equal(t, "softrestaurant", key.Vendor)
		return nil
	}))

	delivery, ack := newDelivery("pos.softrestaurant.order.created", false)
	d.dispatch(context.Background(), delivery)

	assert.True(t, called)
	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
}

func TestDispatchBadRoutingKeyDeadLetters(t *testing.T) {
	d := New(2, nil, logging.NewNopLogger())

	delivery, ack := newDelivery("pos.broken", false)
	d.dispatch(context.Background(), delivery)

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
}

func TestDispatchNoHandlerDeadLetters(t *testing.T) {
	d := New(2, nil, logging.NewNopLogger())

	delivery, ack := newDelivery("pos.softrestaurant.order.created", false)
	d.dispatch(context.Background(), delivery)

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
}

func TestDispatchClientErrorDeadLettersImmediately(t *testing.T) {
	d := New(5, nil, logging.NewNopLogger())
	require.NoError(t, d.Register("order.created", func(ctx context.Context, key broker.RoutingKey, body []byte) error {
		return httperror.NewHTTPError(http.StatusNotFound, "venue not found")
	}))

	delivery, ack := newDelivery("pos.softrestaurant.order.created", false)
	d.dispatch(context.Background(), delivery)

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue, "client errors must not be requeued")
}

func TestDispatchTransientErrorRequeuesWithinBudget(t *testing.T) {
	d := New(2, nil, logging.NewNopLogger())
	require.NoError(t, d.Register("order.created", func(ctx context.Context, key broker.RoutingKey, body []byte) error {
		return errors.New("connection refused")
	}))

	delivery, ack := newDelivery("pos.softrestaurant.order.created", false)
	d.dispatch(context.Background(), delivery)

	assert.True(t, ack.nacked)
	assert.True(t, ack.requeue, "first transient failure should requeue")
}

func TestDispatchTransientErrorDeadLettersPastBudget(t *testing.T) {
	d := New(2, nil, logging.NewNopLogger())
	require.NoError(t, d.Register("order.created", func(ctx context.Context, key broker.RoutingKey, body []byte) error {
		return errors.New("connection refused")
	}))

	delivery, ack := newDelivery("pos.softrestaurant.order.created", true)
	d.dispatch(context.Background(), delivery)

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue, "redelivered transient failure exhausts the budget")
}

func TestAttempts(t *testing.T) {
	d := New(2, nil, logging.NewNopLogger())

	fresh, _ := newDelivery("pos.v.order.created", false)
	assert.Equal(t, 1, d.attempts(fresh))

	redelivered, _ := newDelivery("pos.v.order.created", true)
	assert.Equal(t, 2, d.attempts(redelivered))

	withDeaths, _ := newDelivery("pos.v.order.created", false)
	withDeaths.Headers = amqp.Table{
		"x-death": []interface{}{
			amqp.Table{"count": int64(3)},
		},
	}
	assert.Equal(t, 4, d.attempts(withDeaths))
}
