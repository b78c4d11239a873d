package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/linemk/ekicker-shop/internal/domain/models"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrAlreadyInCart    = errors.New("product already in cart")
)

// CartStorage описывает методы для работы с корзиной.
// Методы с суффиксом Tx участвуют в транзакциях многошаговых сценариев
// (оформление заказа, перенос из избранного)
type CartStorage interface {
	GetItemsByUserID(ctx context.Context, userID int64) ([]*models.CartItem, error)
	// GetItemsByUserIDTx читает корзину с блокировкой строк — снимок для заказа
	GetItemsByUserIDTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	CreateItemTx(ctx context.Context, tx *sql.Tx, item *models.CartItem) error
	// LockItemByIDTx блокирует позицию корзины (FOR UPDATE), чтобы две сессии
	// одного пользователя не перетирали количество друг друга
	LockItemByIDTx(ctx context.Context, tx *sql.Tx, userID, itemID int64) (*models.CartItem, error)
	UpdateQuantityTx(ctx context.Context, tx *sql.Tx, itemID int64, quantity int) error
	DeleteItem(ctx context.Context, userID, itemID int64) error
	DeleteAllByUserIDTx(ctx context.Context, tx *sql.Tx, userID int64) error
}

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

const cartColumns = "id, user_id, product_id, name, price_cents, image, quantity, created_at"

func scanCartItem(row interface{ Scan(...any) error }) (*models.CartItem, error) {
	item := &models.CartItem{}
	if err := row.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Name,
		&item.PriceCents, &item.Image, &item.Quantity, &item.CreatedAt); err != nil {
		return nil, err
	}
	return item, nil
}

func (r *cartRepository) GetItemsByUserID(ctx context.Context, userID int64) ([]*models.CartItem, error) {
	query := "SELECT " + cartColumns + " FROM cart_items WHERE user_id = $1 ORDER BY created_at"
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []*models.CartItem
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *cartRepository) GetItemsByUserIDTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartItem, error) {
	query := "SELECT " + cartColumns + " FROM cart_items WHERE user_id = $1 ORDER BY created_at FOR UPDATE"
	rows, err := tx.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []*models.CartItem
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateItem вставляет позицию; нарушение UNIQUE(user_id, product_id)
// переводится в ErrAlreadyInCart — повторное добавление не создает дубликата
func (r *cartRepository) CreateItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	query := `INSERT INTO cart_items (user_id, product_id, name, price_cents, image, quantity, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		item.UserID, item.ProductID, item.Name, item.PriceCents, item.Image, item.Quantity,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			return nil, ErrAlreadyInCart
		}
		return nil, fmt.Errorf("failed to create cart item: %w", err)
	}
	return item, nil
}

func (r *cartRepository) CreateItemTx(ctx context.Context, tx *sql.Tx, item *models.CartItem) error {
	query := `INSERT INTO cart_items (user_id, product_id, name, price_cents, image, quantity, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW())`
	_, err := tx.ExecContext(ctx, query,
		item.UserID, item.ProductID, item.Name, item.PriceCents, item.Image, item.Quantity,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrAlreadyInCart
		}
		return fmt.Errorf("failed to create cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) LockItemByIDTx(ctx context.Context, tx *sql.Tx, userID, itemID int64) (*models.CartItem, error) {
	query := "SELECT " + cartColumns + " FROM cart_items WHERE id = $1 AND user_id = $2 FOR UPDATE"
	row := tx.QueryRowContext(ctx, query, itemID, userID)
	item, err := scanCartItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *cartRepository) UpdateQuantityTx(ctx context.Context, tx *sql.Tx, itemID int64, quantity int) error {
	res, err := tx.ExecContext(ctx, "UPDATE cart_items SET quantity = $1 WHERE id = $2", quantity, itemID)
	if err != nil {
		return fmt.Errorf("failed to update quantity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepository) DeleteItem(ctx context.Context, userID, itemID int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE id = $1 AND user_id = $2", itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepository) DeleteAllByUserIDTx(ctx context.Context, tx *sql.Tx, userID int64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
