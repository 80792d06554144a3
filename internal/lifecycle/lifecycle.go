// Package lifecycle holds the order and payment status enumerations and the
// transition tables every status change is checked against.
package lifecycle

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a status change is not in the transition table.
var ErrInvalidTransition = errors.New("invalid status transition")

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipping  OrderStatus = "shipping"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type PaymentMethod string

const (
	MethodCOD    PaymentMethod = "cod"
	MethodStripe PaymentMethod = "stripe"
	MethodMomo   PaymentMethod = "momo"
)

// Transaction types recorded in the order audit trail.
const (
	TxOrderStatus             = "order_status"
	TxPaymentStatus           = "payment_status"
	TxCancellation            = "cancellation"
	TxUserPaymentConfirmation = "user_payment_confirmation"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderShipping, OrderCancelled},
	OrderShipping:  {OrderDelivered},
	OrderDelivered: {},
	OrderCancelled: {},
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending: {PaymentPaid, PaymentFailed},
	PaymentPaid:    {},
	PaymentFailed:  {},
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(orderTransitions[s]) == 0
}

// Cancellable reports whether an order in status s may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	return CanTransitionOrder(s, OrderCancelled)
}

func (s PaymentStatus) Valid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

func (s PaymentStatus) Terminal() bool {
	return s.Valid() && len(paymentTransitions[s]) == 0
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCOD, MethodStripe, MethodMomo:
		return true
	}
	return false
}

// CanTransitionOrder checks the order status table.
func CanTransitionOrder(from, to OrderStatus) bool {
	return contains(orderTransitions[from], to)
}

// CanTransitionPayment checks the payment status table.
func CanTransitionPayment(from, to PaymentStatus) bool {
	return contains(paymentTransitions[from], to)
}

// CheckOrderTransition returns ErrInvalidTransition when from -> to is not allowed.
func CheckOrderTransition(from, to OrderStatus) error {
	if !CanTransitionOrder(from, to) {
		return fmt.Errorf("%w: order status %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// CheckPaymentTransition returns ErrInvalidTransition when from -> to is not allowed.
func CheckPaymentTransition(from, to PaymentStatus) error {
	if !CanTransitionPayment(from, to) {
		return fmt.Errorf("%w: payment status %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// AllowedOrderTransitions returns the statuses reachable from the given one.
func AllowedOrderTransitions(from OrderStatus) []OrderStatus {
	allowed := orderTransitions[from]
	out := make([]OrderStatus, len(allowed))
	copy(out, allowed)
	return out
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	s := OrderStatus(value)
	if !s.Valid() {
		return "", fmt.Errorf("unknown order status %q", value)
	}
	return s, nil
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	s := PaymentStatus(value)
	if !s.Valid() {
		return "", fmt.Errorf("unknown payment status %q", value)
	}
	return s, nil
}

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	m := PaymentMethod(value)
	if !m.Valid() {
		return "", fmt.Errorf("unknown payment method %q", value)
	}
	return m, nil
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
