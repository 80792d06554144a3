package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/lifecycle"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
)

// OrderRepository keeps orders and their audit trail. ApplyTransition is a
// compare-and-set on the stored statuses under a single lock.
type OrderRepository struct {
	mu           sync.RWMutex
	orders       map[uuid.UUID]models.Order
	transactions map[uuid.UUID][]models.OrderTransaction
	nextTxID     uint
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:       make(map[uuid.UUID]models.Order),
		transactions: make(map[uuid.UUID][]models.OrderTransaction),
	}
}

func (r *OrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stamp(&order.BaseModel, now)
	if _, exists := r.orders[order.ID]; exists {
		return repository.ErrDuplicate
	}
	for _, existing := range r.orders {
		if existing.OrderNumber == order.OrderNumber {
			return repository.ErrDuplicate
		}
	}
	for i := range order.Items {
		stamp(&order.Items[i].BaseModel, now)
		order.Items[i].OrderID = order.ID
	}

	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r *OrderRepository) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneOrder(order)
	return &out, nil
}

func (r *OrderRepository) List(_ context.Context, f repository.OrderFilter) ([]models.Order, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]models.Order, 0)
	for _, order := range r.orders {
		if f.UserID != nil && order.UserID != *f.UserID {
			continue
		}
		if f.OrderStatus != "" && order.OrderStatus != f.OrderStatus {
			continue
		}
		if f.PaymentStatus != "" && order.PaymentStatus != f.PaymentStatus {
			continue
		}
		matched = append(matched, cloneOrder(order))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return []models.Order{}, total, nil
	}
	end := len(matched)
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}

func (r *OrderRepository) ApplyTransition(_ context.Context, t repository.OrderTransition) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[t.OrderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if order.OrderStatus != t.ExpectedOrderStatus || order.PaymentStatus != t.ExpectedPaymentStatus {
		return nil, repository.ErrConflict
	}

	u := t.Updates
	if u.OrderStatus != nil {
		order.OrderStatus = *u.OrderStatus
	}
	if u.PaymentStatus != nil {
		order.PaymentStatus = *u.PaymentStatus
	}
	if u.UserPaymentConfirmed != nil {
		order.UserPaymentConfirmed = *u.UserPaymentConfirmed
	}
	if u.UserPaymentConfirmedAt != nil {
		at := *u.UserPaymentConfirmedAt
		order.UserPaymentConfirmedAt = &at
	}
	if u.MomoTransferNote != nil {
		order.MomoTransferNote = *u.MomoTransferNote
	}

	at := t.At
	if at.IsZero() {
		at = time.Now()
	}
	order.UpdatedAt = at
	r.orders[order.ID] = order

	r.nextTxID++
	record := t.Record
	record.ID = r.nextTxID
	record.OrderID = order.ID
	record.CreatedAt = at
	r.transactions[order.ID] = append(r.transactions[order.ID], record)

	out := cloneOrder(order)
	return &out, nil
}

func (r *OrderRepository) Transactions(_ context.Context, orderID uuid.UUID) ([]models.OrderTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.orders[orderID]; !ok {
		return nil, repository.ErrNotFound
	}
	records := r.transactions[orderID]
	out := make([]models.OrderTransaction, len(records))
	copy(out, records)
	return out, nil
}

func (r *OrderRepository) CountByStatus(context.Context) (map[lifecycle.OrderStatus]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[lifecycle.OrderStatus]int64)
	for _, order := range r.orders {
		counts[order.OrderStatus]++
	}
	return counts, nil
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	if o.UserPaymentConfirmedAt != nil {
		at := *o.UserPaymentConfirmedAt
		o.UserPaymentConfirmedAt = &at
	}
	return o
}
