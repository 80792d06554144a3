package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/address"
	"github.com/example/storefront/internal/events"
	"github.com/example/storefront/internal/lifecycle"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/payment"
	"github.com/example/storefront/internal/repository"
	"github.com/example/storefront/internal/utils"
)

const (
	notifyTimeout         = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
)

// AddressResolver validates a delivery address selection and returns its names.
type AddressResolver interface {
	Resolve(ctx context.Context, provinceCode, districtCode, wardCode string) (address.Resolved, error)
}

// Notifier alerts shop staff about orders that need attention.
type Notifier interface {
	NotifyNewOrder(ctx context.Context, order *models.Order) error
	NotifyManualTransfer(ctx context.Context, order *models.Order) error
}

// MomoSettings are the transfer details shown to customers paying by MoMo.
type MomoSettings struct {
	Phone       string `json:"phone"`
	AccountName string `json:"account_name"`
	QRURL       string `json:"qr_url"`
}

// Actor is the authenticated caller of an order operation.
type Actor struct {
	ID   uint
	Role models.Role
}

func (a Actor) isAdmin() bool { return a.Role == models.RoleAdmin }

type OrderServiceDeps struct {
	Orders    repository.OrderRepository
	Products  repository.ProductRepository
	Addresses AddressResolver
	Gateway   payment.Gateway
	Events    events.Publisher
	Notifier  Notifier
	Momo      MomoSettings
	Currency  string
	Logger    *zap.Logger
}

// OrderService owns every order and payment status change. Transitions of one
// order run one at a time in this process and are written with a
// compare-and-set on the previous statuses.
type OrderService struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	addresses AddressResolver
	gateway   payment.Gateway
	events    events.Publisher
	notifier  Notifier
	momo      MomoSettings
	currency  string
	logger    *zap.Logger
	locks     *keyedMutex
	now       func() time.Time

	publishTimeout time.Duration
}

func NewOrderService(deps OrderServiceDeps) *OrderService {
	s := &OrderService{
		orders:    deps.Orders,
		products:  deps.Products,
		addresses: deps.Addresses,
		gateway:   deps.Gateway,
		events:    deps.Events,
		notifier:  deps.Notifier,
		momo:      deps.Momo,
		currency:  strings.ToLower(deps.Currency),
		logger:    deps.Logger,
		locks:     newKeyedMutex(),
		now:       time.Now,

		publishTimeout: defaultPublishTimeout,
	}
	if s.gateway == nil {
		s.gateway = payment.Disabled{}
	}
	if s.events == nil {
		s.events = events.NewLogPublisher(deps.Logger)
	}
	if s.currency == "" {
		s.currency = "vnd"
	}
	return s
}

type OrderItemInput struct {
	ProductID   uuid.UUID
	ProductName string
	Price       decimal.Decimal
	Quantity    int
}

type CreateOrderInput struct {
	UserID        uint
	Items         []OrderItemInput
	Address       models.DeliveryAddress
	PaymentMethod string
	TotalAmount   decimal.Decimal
	Notes         string
}

// CheckoutResult is a created order plus what the client needs to finish paying.
type CheckoutResult struct {
	Order               *models.Order `json:"order"`
	PaymentClientSecret string        `json:"payment_client_secret,omitempty"`
}

// CreateOrder places a pending order. The total must equal the sum of the line totals.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*CheckoutResult, error) {
	method, err := lifecycle.ParsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return nil, newValidationError("payment_method", "must be one of cod, stripe, momo")
	}

	items, err := s.buildItems(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	expected := (&models.Order{Items: items}).ItemsTotal()
	if !in.TotalAmount.Equal(expected) {
		return nil, newValidationError("total_amount", fmt.Sprintf("must equal the sum of item totals (%s)", expected.StringFixed(2)))
	}

	delivery, err := s.resolveAddress(ctx, in.Address)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	order := &models.Order{
		OrderNumber:     "ORD-" + strings.ToUpper(id.String()[:8]),
		UserID:          in.UserID,
		Items:           items,
		DeliveryAddress: delivery,
		PaymentMethod:   method,
		PaymentStatus:   lifecycle.PaymentPending,
		OrderStatus:     lifecycle.OrderPending,
		TotalAmount:     in.TotalAmount,
		Currency:        s.currency,
		Notes:           strings.TrimSpace(in.Notes),
	}
	order.ID = id

	result := &CheckoutResult{Order: order}
	if method == lifecycle.MethodStripe {
		if !s.gateway.Enabled() {
			return nil, newValidationError("payment_method", "card payments are not available")
		}
		intent, err := s.gateway.CreatePaymentIntent(ctx, payment.CreateIntentInput{
			OrderID:     order.ID.String(),
			OrderNumber: order.OrderNumber,
			Amount:      order.TotalAmount,
			Currency:    order.Currency,
		})
		if err != nil {
			return nil, fmt.Errorf("create payment intent: %v: %w", err, ErrUpstream)
		}
		order.StripePaymentIntentID = intent.ID
		result.PaymentClientSecret = intent.ClientSecret
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, translateRepoErr(err, "create order")
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Uint("user_id", order.UserID),
		zap.String("payment_method", string(method)),
	)
	s.publish(ctx, events.OrderCreated, order, nil)
	s.notify(order, s.notifierNewOrder)
	return result, nil
}

func (s *OrderService) buildItems(ctx context.Context, inputs []OrderItemInput) ([]models.OrderItem, error) {
	if len(inputs) == 0 {
		return nil, newValidationError("items", "at least one item is required")
	}

	fields := map[string]string{}
	items := make([]models.OrderItem, 0, len(inputs))
	for i, in := range inputs {
		key := fmt.Sprintf("items[%d]", i)
		if in.ProductID == uuid.Nil {
			fields[key+".product_id"] = "is required"
		}
		if in.Quantity < 1 {
			fields[key+".quantity"] = "must be at least 1"
		}
		if in.Price.IsNegative() {
			fields[key+".price"] = "must not be negative"
		}

		name := strings.TrimSpace(in.ProductName)
		if s.products != nil && in.ProductID != uuid.Nil {
			product, err := s.products.FindByID(ctx, in.ProductID)
			switch {
			case err == nil:
				if name == "" {
					name = product.Name
				}
			case errors.Is(err, repository.ErrNotFound):
				fields[key+".product_id"] = "unknown product"
			default:
				return nil, fmt.Errorf("lookup product: %w", err)
			}
		}

		items = append(items, models.OrderItem{
			ProductID:   in.ProductID,
			ProductName: name,
			Price:       in.Price,
			Quantity:    in.Quantity,
		})
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Message: "invalid order items", Fields: fields}
	}
	return items, nil
}

func (s *OrderService) resolveAddress(ctx context.Context, a models.DeliveryAddress) (models.DeliveryAddress, error) {
	a.FullName = strings.TrimSpace(a.FullName)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Street = strings.TrimSpace(a.Street)

	fields := map[string]string{}
	if a.FullName == "" {
		fields["delivery_address.full_name"] = "is required"
	}
	if a.Phone == "" {
		fields["delivery_address.phone"] = "is required"
	}
	if a.Street == "" {
		fields["delivery_address.street"] = "is required"
	}
	for field, code := range map[string]string{
		"province_code": a.ProvinceCode,
		"district_code": a.DistrictCode,
		"ward_code":     a.WardCode,
	} {
		if code == "" {
			fields["delivery_address."+field] = "is required"
		}
	}
	if len(fields) > 0 {
		return a, &ValidationError{Message: "delivery address is incomplete", Fields: fields}
	}

	if s.addresses == nil {
		return a, nil
	}

	resolved, err := s.addresses.Resolve(ctx, a.ProvinceCode, a.DistrictCode, a.WardCode)
	if err != nil {
		var selErr *address.SelectionError
		if errors.As(err, &selErr) {
			message := "does not belong to the selected parent"
			if errors.Is(err, address.ErrIncomplete) {
				message = "is required"
			}
			return a, newValidationError("delivery_address."+selErr.Field, message)
		}
		return a, fmt.Errorf("resolve delivery address: %v: %w", err, ErrUpstream)
	}

	a.ProvinceName = resolved.ProvinceName
	a.DistrictName = resolved.DistrictName
	a.WardName = resolved.WardName
	return a, nil
}

// ConfirmGatewayPayment settles a card payment from the gateway's view of the intent.
func (s *OrderService) ConfirmGatewayPayment(ctx context.Context, userID uint, orderID uuid.UUID, intentID string) (*models.Order, error) {
	return s.transition(ctx, orderID, events.OrderPaymentStatusChanged, func(order *models.Order) (*repository.OrderTransition, error) {
		if order.UserID != userID {
			return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		if order.PaymentMethod != lifecycle.MethodStripe || order.PaymentStatus != lifecycle.PaymentPending {
			return nil, fmt.Errorf("confirm payment for %s order with payment %s: %w", order.PaymentMethod, order.PaymentStatus, ErrInvalidState)
		}

		intentID = strings.TrimSpace(intentID)
		if order.StripePaymentIntentID != "" {
			if intentID != "" && intentID != order.StripePaymentIntentID {
				return nil, newValidationError("payment_intent_id", "does not belong to this order")
			}
			intentID = order.StripePaymentIntentID
		}
		if intentID == "" {
			return nil, newValidationError("payment_intent_id", "is required")
		}

		intent, err := s.gateway.RetrievePaymentIntent(ctx, intentID)
		if err != nil {
			if errors.Is(err, payment.ErrIntentNotFound) {
				return nil, newValidationError("payment_intent_id", "unknown payment intent")
			}
			return nil, fmt.Errorf("retrieve payment intent: %v: %w", err, ErrUpstream)
		}

		next := lifecycle.PaymentFailed
		if intent.Succeeded() {
			next = lifecycle.PaymentPaid
		}
		return &repository.OrderTransition{
			Updates: repository.OrderUpdates{PaymentStatus: &next},
			Record: models.OrderTransaction{
				TransactionType: lifecycle.TxPaymentStatus,
				OldStatus:       string(order.PaymentStatus),
				NewStatus:       string(next),
				ActorID:         userID,
				ActorRole:       string(models.RoleUser),
				Notes:           "gateway intent " + intent.ID + " is " + intent.Status,
			},
		}, nil
	})
}

// SubmitManualTransferConfirmation records that the customer reports a MoMo transfer.
// The payment stays pending until an admin accepts it.
func (s *OrderService) SubmitManualTransferConfirmation(ctx context.Context, userID uint, orderID uuid.UUID, note string) (*models.Order, error) {
	order, err := s.transition(ctx, orderID, events.OrderPaymentConfirmed, func(order *models.Order) (*repository.OrderTransition, error) {
		if order.UserID != userID {
			return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		if order.PaymentMethod != lifecycle.MethodMomo || order.PaymentStatus != lifecycle.PaymentPending {
			return nil, fmt.Errorf("manual confirmation for %s order with payment %s: %w", order.PaymentMethod, order.PaymentStatus, ErrInvalidState)
		}

		confirmed := true
		at := s.now()
		note = strings.TrimSpace(note)
		return &repository.OrderTransition{
			Updates: repository.OrderUpdates{
				UserPaymentConfirmed:   &confirmed,
				UserPaymentConfirmedAt: &at,
				MomoTransferNote:       &note,
			},
			Record: models.OrderTransaction{
				TransactionType: lifecycle.TxUserPaymentConfirmation,
				OldStatus:       string(order.PaymentStatus),
				NewStatus:       string(order.PaymentStatus),
				ActorID:         userID,
				ActorRole:       string(models.RoleUser),
				Notes:           note,
			},
			At: at,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(order, s.notifierManualTransfer)
	return order, nil
}

// CancelOrder cancels the caller's order while it is pending or confirmed.
func (s *OrderService) CancelOrder(ctx context.Context, userID uint, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, orderID, events.OrderStatusChanged, func(order *models.Order) (*repository.OrderTransition, error) {
		if order.UserID != userID {
			return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		if !order.OrderStatus.Cancellable() {
			return nil, fmt.Errorf("cancel order in status %s: %w", order.OrderStatus, ErrInvalidState)
		}

		next := lifecycle.OrderCancelled
		return &repository.OrderTransition{
			Updates: repository.OrderUpdates{OrderStatus: &next},
			Record: models.OrderTransaction{
				TransactionType: lifecycle.TxCancellation,
				OldStatus:       string(order.OrderStatus),
				NewStatus:       string(next),
				ActorID:         userID,
				ActorRole:       string(models.RoleUser),
			},
		}, nil
	})
}

// UpdateOrderStatus moves an order along the status table on behalf of an admin.
// When expected is set the call fails with ErrConflict unless the stored status still equals it.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, adminID uint, orderID uuid.UUID, newStatus string, expected *string, notes string) (*models.Order, error) {
	next, err := lifecycle.ParseOrderStatus(newStatus)
	if err != nil {
		return nil, newValidationError("status", err.Error())
	}
	var want lifecycle.OrderStatus
	if expected != nil && *expected != "" {
		if want, err = lifecycle.ParseOrderStatus(*expected); err != nil {
			return nil, newValidationError("expected_status", err.Error())
		}
	}

	return s.transition(ctx, orderID, events.OrderStatusChanged, func(order *models.Order) (*repository.OrderTransition, error) {
		if want != "" && order.OrderStatus != want {
			return nil, fmt.Errorf("order %s is %s, expected %s: %w", orderID, order.OrderStatus, want, ErrConflict)
		}
		if err := lifecycle.CheckOrderTransition(order.OrderStatus, next); err != nil {
			return nil, err
		}

		txType := lifecycle.TxOrderStatus
		if next == lifecycle.OrderCancelled {
			txType = lifecycle.TxCancellation
		}
		admin := adminID
		return &repository.OrderTransition{
			Updates: repository.OrderUpdates{OrderStatus: &next},
			Record: models.OrderTransaction{
				TransactionType: txType,
				OldStatus:       string(order.OrderStatus),
				NewStatus:       string(next),
				ActorID:         adminID,
				ActorRole:       string(models.RoleAdmin),
				AdminID:         &admin,
				Notes:           strings.TrimSpace(notes),
			},
		}, nil
	})
}

// UpdatePaymentStatus settles a payment on behalf of an admin. A MoMo payment
// can only be marked paid after the customer confirmed the transfer.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, adminID uint, orderID uuid.UUID, newStatus, notes string) (*models.Order, error) {
	next, err := lifecycle.ParsePaymentStatus(newStatus)
	if err != nil {
		return nil, newValidationError("payment_status", err.Error())
	}

	return s.transition(ctx, orderID, events.OrderPaymentStatusChanged, func(order *models.Order) (*repository.OrderTransition, error) {
		if err := lifecycle.CheckPaymentTransition(order.PaymentStatus, next); err != nil {
			return nil, err
		}
		if order.PaymentMethod == lifecycle.MethodMomo && next == lifecycle.PaymentPaid && !order.UserPaymentConfirmed {
			return nil, fmt.Errorf("momo payment not confirmed by customer: %w", ErrInvalidState)
		}

		admin := adminID
		return &repository.OrderTransition{
			Updates: repository.OrderUpdates{PaymentStatus: &next},
			Record: models.OrderTransaction{
				TransactionType: lifecycle.TxPaymentStatus,
				OldStatus:       string(order.PaymentStatus),
				NewStatus:       string(next),
				ActorID:         adminID,
				ActorRole:       string(models.RoleAdmin),
				AdminID:         &admin,
				Notes:           strings.TrimSpace(notes),
			},
		}, nil
	})
}

type transitionPlan func(order *models.Order) (*repository.OrderTransition, error)

func (s *OrderService) transition(ctx context.Context, orderID uuid.UUID, eventType string, plan transitionPlan) (*models.Order, error) {
	updated, record, err := s.applyLocked(ctx, orderID, plan)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, eventType, updated, record)
	return updated, nil
}

func (s *OrderService) applyLocked(ctx context.Context, orderID uuid.UUID, plan transitionPlan) (*models.Order, *models.OrderTransaction, error) {
	unlock := s.locks.Lock(orderID.String())
	defer unlock()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, nil, translateRepoErr(err, "load order")
	}

	t, err := plan(order)
	if err != nil {
		return nil, nil, err
	}
	t.OrderID = order.ID
	t.ExpectedOrderStatus = order.OrderStatus
	t.ExpectedPaymentStatus = order.PaymentStatus
	if t.At.IsZero() {
		t.At = s.now()
	}

	updated, err := s.orders.ApplyTransition(ctx, *t)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.logger.Warn("concurrent order update rejected", zap.String("order_id", orderID.String()))
		}
		return nil, nil, translateRepoErr(err, "update order")
	}

	s.logger.Info("order transition applied",
		zap.String("order_id", updated.ID.String()),
		zap.String("type", t.Record.TransactionType),
		zap.String("old_status", t.Record.OldStatus),
		zap.String("new_status", t.Record.NewStatus),
		zap.Uint("actor_id", t.Record.ActorID),
	)
	return updated, &t.Record, nil
}

func (s *OrderService) publish(ctx context.Context, eventType string, order *models.Order, record *models.OrderTransaction) {
	event := events.OrderEvent{
		Type:          eventType,
		OrderID:       order.ID.String(),
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		OrderStatus:   string(order.OrderStatus),
		PaymentStatus: string(order.PaymentStatus),
		PaymentMethod: string(order.PaymentMethod),
		TotalAmount:   order.TotalAmount,
		Currency:      order.Currency,
		OccurredAt:    s.now().UTC(),
	}
	if record != nil {
		event.OldStatus = record.OldStatus
		event.NewStatus = record.NewStatus
		event.ActorID = record.ActorID
		event.ActorRole = record.ActorRole
	}

	// Detached from the request, bounded on its own.
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	if err := s.events.Publish(publishCtx, event); err != nil {
		s.logger.Warn("order event not published", zap.String("order_id", event.OrderID), zap.Error(err))
	}
}

func (s *OrderService) notifierNewOrder(ctx context.Context, order *models.Order) error {
	return s.notifier.NotifyNewOrder(ctx, order)
}

func (s *OrderService) notifierManualTransfer(ctx context.Context, order *models.Order) error {
	return s.notifier.NotifyManualTransfer(ctx, order)
}

func (s *OrderService) notify(order *models.Order, send func(context.Context, *models.Order) error) {
	if s.notifier == nil {
		return
	}
	snapshot := *order
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := send(ctx, &snapshot); err != nil {
			s.logger.Warn("order notification failed", zap.String("order_id", snapshot.ID.String()), zap.Error(err))
		}
	}()
}

// GetOrder returns an order visible to the actor. Other customers' orders are reported as missing.
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, translateRepoErr(err, "get order")
	}
	if !actor.isAdmin() && order.UserID != actor.ID {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	return order, nil
}

// OrderPage is one page of orders.
type OrderPage struct {
	Orders     []models.Order `json:"orders"`
	Pagination utils.PageInfo `json:"pagination"`
}

// OrderListQuery filters order listings. Empty statuses match all.
type OrderListQuery struct {
	UserID        *uint
	OrderStatus   string
	PaymentStatus string
	Page          utils.Pagination
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID uint, status string, page utils.Pagination) (*OrderPage, error) {
	return s.ListOrders(ctx, OrderListQuery{UserID: &userID, OrderStatus: status, Page: page})
}

func (s *OrderService) ListOrders(ctx context.Context, q OrderListQuery) (*OrderPage, error) {
	filter := repository.OrderFilter{UserID: q.UserID, Offset: q.Page.Offset, Limit: q.Page.Limit}
	if q.OrderStatus != "" {
		status, err := lifecycle.ParseOrderStatus(q.OrderStatus)
		if err != nil {
			return nil, newValidationError("status", err.Error())
		}
		filter.OrderStatus = status
	}
	if q.PaymentStatus != "" {
		status, err := lifecycle.ParsePaymentStatus(q.PaymentStatus)
		if err != nil {
			return nil, newValidationError("payment_status", err.Error())
		}
		filter.PaymentStatus = status
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return &OrderPage{Orders: orders, Pagination: q.Page.Info(total)}, nil
}

func (s *OrderService) Transactions(ctx context.Context, orderID uuid.UUID) ([]models.OrderTransaction, error) {
	records, err := s.orders.Transactions(ctx, orderID)
	if err != nil {
		return nil, translateRepoErr(err, "list order transactions")
	}
	if records == nil {
		records = []models.OrderTransaction{}
	}
	return records, nil
}

// CountByStatus returns the number of orders in every order status, including empty ones.
func (s *OrderService) CountByStatus(ctx context.Context) (map[lifecycle.OrderStatus]int64, error) {
	counts, err := s.orders.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	for _, status := range []lifecycle.OrderStatus{
		lifecycle.OrderPending, lifecycle.OrderConfirmed, lifecycle.OrderShipping,
		lifecycle.OrderDelivered, lifecycle.OrderCancelled,
	} {
		if _, ok := counts[status]; !ok {
			counts[status] = 0
		}
	}
	return counts, nil
}

func (s *OrderService) MomoSettings() MomoSettings {
	return s.momo
}
