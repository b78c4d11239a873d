package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/ekicker-shop/internal/domain/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStorage описывает методы для работы с заказами.
// Заказ создается только внутри транзакции вместе с очисткой корзины
type OrderStorage interface {
	// CreateOrderTx вставляет заказ и все позиции снимка, возвращает ID заказа
	CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error)
	GetOrderByID(ctx context.Context, userID, orderID int64) (*models.Order, error)
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error) {
	query := `INSERT INTO orders (user_id, first_name, last_name, email, phone, address, city, state, zip_code,
	          payment_method, payment_ref, total_cents, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW()) RETURNING id`
	var orderID int64
	err := tx.QueryRowContext(ctx, query,
		order.UserID, order.FirstName, order.LastName, order.Email, order.Phone,
		order.Address, order.City, order.State, order.ZipCode,
		order.PaymentMethod, order.PaymentRef, order.TotalCents, order.Status,
	).Scan(&orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range order.Items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, name, price_cents, image, quantity)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			orderID, item.ProductID, item.Name, item.PriceCents, item.Image, item.Quantity,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to create order item: %w", err)
		}
	}
	return orderID, nil
}

const orderColumns = `id, user_id, first_name, last_name, email, phone, address, city, state, zip_code,
	payment_method, payment_ref, total_cents, status, created_at`

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	order := &models.Order{}
	if err := row.Scan(&order.ID, &order.UserID, &order.FirstName, &order.LastName, &order.Email,
		&order.Phone, &order.Address, &order.City, &order.State, &order.ZipCode,
		&order.PaymentMethod, &order.PaymentRef, &order.TotalCents, &order.Status, &order.CreatedAt); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE user_id = $1 ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		items, err := r.getOrderItems(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}
	return orders, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE id = $1 AND user_id = $2"
	row := r.db.QueryRowContext(ctx, query, orderID, userID)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	items, err := r.getOrderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) getOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, order_id, product_id, name, price_cents, image, quantity FROM order_items WHERE order_id = $1 ORDER BY id",
		orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name,
			&item.PriceCents, &item.Image, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
