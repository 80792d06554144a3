package services

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/address"
	"github.com/example/storefront/internal/events"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/payment"
	"github.com/example/storefront/internal/repository"
	"github.com/example/storefront/internal/repository/memory"
)

type fakeGateway struct {
	mu       sync.Mutex
	status   string
	created  []payment.CreateIntentInput
	retrieve error
}

func (g *fakeGateway) Enabled() bool { return true }

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, in payment.CreateIntentInput) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, in)
	return &payment.Intent{ID: "pi_" + in.OrderNumber, Status: "requires_payment_method", ClientSecret: "secret_" + in.OrderNumber}, nil
}

func (g *fakeGateway) RetrievePaymentIntent(_ context.Context, id string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.retrieve != nil {
		return nil, g.retrieve
	}
	return &payment.Intent{ID: id, Status: g.status}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingNotifier struct {
	newOrders chan string
	transfers chan string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{newOrders: make(chan string, 8), transfers: make(chan string, 8)}
}

func (n *recordingNotifier) NotifyNewOrder(_ context.Context, o *models.Order) error {
	n.newOrders <- o.OrderNumber
	return nil
}

func (n *recordingNotifier) NotifyManualTransfer(_ context.Context, o *models.Order) error {
	n.transfers <- o.MomoTransferNote
	return nil
}

type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, p, d, w string) (address.Resolved, error) {
	if p == "79" && d == "760" && w == "26734" {
		return address.Resolved{ProvinceName: "Ho Chi Minh", DistrictName: "Quan 1", WardName: "Tan Dinh"}, nil
	}
	return address.Resolved{}, &address.SelectionError{Field: "ward_code", Err: address.ErrUnknownCode}
}

type orderFixture struct {
	store     repository.Store
	orders    *OrderService
	gateway   *fakeGateway
	publisher *recordingPublisher
	notifier  *recordingNotifier
	product   *models.Product
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()

	store := memory.New()
	product := &models.Product{Name: "Green tea", Price: decimal.NewFromInt(10), Quantity: 50}
	require.NoError(t, store.Products.Create(context.Background(), product))

	f := &orderFixture{
		store:     store,
		gateway:   &fakeGateway{status: payment.StatusSucceeded},
		publisher: &recordingPublisher{},
		notifier:  newRecordingNotifier(),
		product:   product,
	}
	f.orders = NewOrderService(OrderServiceDeps{
		Orders:    store.Orders,
		Products:  store.Products,
		Addresses: fakeResolver{},
		Gateway:   f.gateway,
		Events:    f.publisher,
		Notifier:  f.notifier,
		Momo:      MomoSettings{Phone: "0900000000", AccountName: "SHOP"},
		Currency:  "VND",
		Logger:    zap.NewNop(),
	})
	return f
}

func validAddress() models.DeliveryAddress {
	return models.DeliveryAddress{
		FullName:     "Nguyen Van A",
		Phone:        "0901234567",
		ProvinceCode: "79",
		DistrictCode: "760",
		WardCode:     "26734",
		Street:       "1 Le Loi",
	}
}

func (f *orderFixture) create(t *testing.T, userID uint, method string) *models.Order {
	t.Helper()

	result, err := f.orders.CreateOrder(context.Background(), CreateOrderInput{
		UserID:        userID,
		Items:         []OrderItemInput{{ProductID: f.product.ID, Price: decimal.NewFromInt(10), Quantity: 2}},
		Address:       validAddress(),
		PaymentMethod: method,
		TotalAmount:   decimal.NewFromInt(20),
	})
	require.NoError(t, err)
	return result.Order
}

// stuckPublisher blocks events that move an order to status until release
// is closed or the publish context ends.
type stuckPublisher struct {
	status    string
	entered   chan struct{}
	release   chan struct{}
	deadlines chan bool
}

func newStuckPublisher(status string) *stuckPublisher {
	return &stuckPublisher{
		status:    status,
		entered:   make(chan struct{}, 4),
		release:   make(chan struct{}),
		deadlines: make(chan bool, 4),
	}
}

func (p *stuckPublisher) Publish(ctx context.Context, e events.OrderEvent) error {
	if e.NewStatus != p.status {
		return nil
	}
	_, ok := ctx.Deadline()
	p.deadlines <- ok
	p.entered <- struct{}{}
	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *stuckPublisher) Close() error { return nil }
