package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/lifecycle"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
)

type OrderRepository struct {
	db *gorm.DB
}

func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	return translate(r.db.WithContext(ctx).Create(order).Error)
}

func (r *OrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *OrderRepository) List(ctx context.Context, f repository.OrderFilter) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID)
	}
	if f.OrderStatus != "" {
		query = query.Where("order_status = ?", f.OrderStatus)
	}
	if f.PaymentStatus != "" {
		query = query.Where("payment_status = ?", f.PaymentStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("created_at desc").
		Limit(f.Limit).Offset(f.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ApplyTransition updates the order only while its statuses still match the
// expected ones and appends the audit record in the same transaction.
func (r *OrderRepository) ApplyTransition(ctx context.Context, t repository.OrderTransition) (*models.Order, error) {
	at := t.At
	if at.IsZero() {
		at = time.Now()
	}

	updates := map[string]interface{}{"updated_at": at}
	u := t.Updates
	if u.OrderStatus != nil {
		updates["order_status"] = *u.OrderStatus
	}
	if u.PaymentStatus != nil {
		updates["payment_status"] = *u.PaymentStatus
	}
	if u.UserPaymentConfirmed != nil {
		updates["user_payment_confirmed"] = *u.UserPaymentConfirmed
	}
	if u.UserPaymentConfirmedAt != nil {
		updates["user_payment_confirmed_at"] = *u.UserPaymentConfirmedAt
	}
	if u.MomoTransferNote != nil {
		updates["momo_transfer_note"] = *u.MomoTransferNote
	}

	var order models.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Order{}).
			Where("id = ? AND order_status = ? AND payment_status = ?", t.OrderID, t.ExpectedOrderStatus, t.ExpectedPaymentStatus).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Order{}).Where("id = ?", t.OrderID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return repository.ErrNotFound
			}
			return repository.ErrConflict
		}

		record := t.Record
		record.OrderID = t.OrderID
		record.CreatedAt = at
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		return tx.Preload("Items").First(&order, "id = ?", t.OrderID).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *OrderRepository) Transactions(ctx context.Context, orderID uuid.UUID) ([]models.OrderTransaction, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, repository.ErrNotFound
	}

	var records []models.OrderTransaction
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at asc, id asc").Find(&records).Error
	return records, err
}

func (r *OrderRepository) CountByStatus(ctx context.Context) (map[lifecycle.OrderStatus]int64, error) {
	var rows []struct {
		OrderStatus lifecycle.OrderStatus
		Count       int64
	}
	if err := r.db.WithContext(ctx).Model(&models.Order{}).
		Select("order_status, count(*) as count").
		Group("order_status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[lifecycle.OrderStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.OrderStatus] = row.Count
	}
	return counts, nil
}
