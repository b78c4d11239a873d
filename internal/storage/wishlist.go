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
	ErrWishlistItemNotFound = errors.New("wishlist item not found")
	ErrAlreadyInWishlist    = errors.New("product already in wishlist")
)

// WishlistStorage описывает методы для работы с избранным.
type WishlistStorage interface {
	GetItemsByUserID(ctx context.Context, userID int64) ([]*models.WishlistItem, error)
	CreateItem(ctx context.Context, item *models.WishlistItem) (*models.WishlistItem, error)
	DeleteItem(ctx context.Context, userID, itemID int64) error
	// LockItemByIDTx и DeleteItemTx используются при переносе в корзину,
	// чтобы вставка в корзину и удаление из избранного прошли одной транзакцией
	LockItemByIDTx(ctx context.Context, tx *sql.Tx, userID, itemID int64) (*models.WishlistItem, error)
	DeleteItemTx(ctx context.Context, tx *sql.Tx, itemID int64) error
}

type wishlistRepository struct {
	db *sql.DB
}

func NewWishlistRepository(db *sql.DB) WishlistStorage {
	return &wishlistRepository{db: db}
}

const wishlistColumns = "id, user_id, product_id, name, price_cents, image, created_at"

func scanWishlistItem(row interface{ Scan(...any) error }) (*models.WishlistItem, error) {
	item := &models.WishlistItem{}
	if err := row.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Name,
		&item.PriceCents, &item.Image, &item.CreatedAt); err != nil {
		return nil, err
	}
	return item, nil
}

func (r *wishlistRepository) GetItemsByUserID(ctx context.Context, userID int64) ([]*models.WishlistItem, error) {
	query := "SELECT " + wishlistColumns + " FROM wishlist_items WHERE user_id = $1 ORDER BY created_at"
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wishlist items: %w", err)
	}
	defer rows.Close()

	var items []*models.WishlistItem
	for rows.Next() {
		item, err := scanWishlistItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *wishlistRepository) CreateItem(ctx context.Context, item *models.WishlistItem) (*models.WishlistItem, error) {
	query := `INSERT INTO wishlist_items (user_id, product_id, name, price_cents, image, created_at)
	          VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		item.UserID, item.ProductID, item.Name, item.PriceCents, item.Image,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			return nil, ErrAlreadyInWishlist
		}
		return nil, fmt.Errorf("failed to create wishlist item: %w", err)
	}
	return item, nil
}

func (r *wishlistRepository) DeleteItem(ctx context.Context, userID, itemID int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM wishlist_items WHERE id = $1 AND user_id = $2", itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete wishlist item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrWishlistItemNotFound
	}
	return nil
}

func (r *wishlistRepository) LockItemByIDTx(ctx context.Context, tx *sql.Tx, userID, itemID int64) (*models.WishlistItem, error) {
	query := "SELECT " + wishlistColumns + " FROM wishlist_items WHERE id = $1 AND user_id = $2 FOR UPDATE"
	row := tx.QueryRowContext(ctx, query, itemID, userID)
	item, err := scanWishlistItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWishlistItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *wishlistRepository) DeleteItemTx(ctx context.Context, tx *sql.Tx, itemID int64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM wishlist_items WHERE id = $1", itemID)
	if err != nil {
		return fmt.Errorf("failed to delete wishlist item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrWishlistItemNotFound
	}
	return nil
}
