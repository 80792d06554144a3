package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allOrderStatuses = []OrderStatus{OrderPending, OrderConfirmed, OrderShipping, OrderDelivered, OrderCancelled}

func TestOrderTransitionTable(t *testing.T) {
	allowed := map[[2]OrderStatus]bool{
		{OrderPending, OrderConfirmed}:   true,
		{OrderPending, OrderCancelled}:   true,
		{OrderConfirmed, OrderShipping}:  true,
		{OrderConfirmed, OrderCancelled}: true,
		{OrderShipping, OrderDelivered}:  true,
	}

	for _, from := range allOrderStatuses {
		for _, to := range allOrderStatuses {
			want := allowed[[2]OrderStatus{from, to}]
			assert.Equal(t, want, CanTransitionOrder(from, to), "%s -> %s", from, to)

			err := CheckOrderTransition(from, to)
			if want {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidTransition), "%s -> %s", from, to)
			}
		}
	}
}

func TestTerminalAndCancellable(t *testing.T) {
	assert.True(t, OrderDelivered.Terminal())
	assert.True(t, OrderCancelled.Terminal())
	assert.False(t, OrderShipping.Terminal())

	assert.True(t, OrderPending.Cancellable())
	assert.True(t, OrderConfirmed.Cancellable())
	assert.False(t, OrderShipping.Cancellable())
	assert.False(t, OrderDelivered.Cancellable())
	assert.False(t, OrderCancelled.Cancellable())
}

func TestPaymentTransitionTable(t *testing.T) {
	assert.True(t, CanTransitionPayment(PaymentPending, PaymentPaid))
	assert.True(t, CanTransitionPayment(PaymentPending, PaymentFailed))
	assert.False(t, CanTransitionPayment(PaymentPaid, PaymentFailed))
	assert.False(t, CanTransitionPayment(PaymentFailed, PaymentPaid))
	assert.False(t, CanTransitionPayment(PaymentPaid, PaymentPending))
	assert.True(t, PaymentPaid.Terminal())
	assert.True(t, PaymentFailed.Terminal())
}

func TestParse(t *testing.T) {
	s, err := ParseOrderStatus("shipping")
	require.NoError(t, err)
	assert.Equal(t, OrderShipping, s)

	_, err = ParseOrderStatus("returned")
	assert.Error(t, err)

	m, err := ParsePaymentMethod("momo")
	require.NoError(t, err)
	assert.Equal(t, MethodMomo, m)

	_, err = ParsePaymentMethod("paypal")
	assert.Error(t, err)

	_, err = ParsePaymentStatus("refunded")
	assert.Error(t, err)
}

func TestAllowedOrderTransitionsIsACopy(t *testing.T) {
	next := AllowedOrderTransitions(OrderPending)
	require.Len(t, next, 2)
	next[0] = OrderDelivered
	assert.Equal(t, []OrderStatus{OrderConfirmed, OrderCancelled}, AllowedOrderTransitions(OrderPending))
}
