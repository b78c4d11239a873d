package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/ekicker-shop/internal/domain/models"
	"github.com/linemk/ekicker-shop/internal/storage"
)

var (
	// ErrAlreadyInCart возвращается при повторном добавлении того же товара —
	// наружу уходит уведомление, а не второй дубликат
	ErrAlreadyInCart    = errors.New("product already in cart")
	ErrCartItemNotFound = errors.New("cart item not found")
)

// Cart — корзина пользователя с посчитанной суммой
type Cart struct {
	Items      []*models.CartItem `json:"items"`
	TotalCents int64              `json:"total_cents"`
}

// CartService определяет интерфейс для работы с корзиной.
type CartService interface {
	List(ctx context.Context, userID int64) (*Cart, error)
	AddItem(ctx context.Context, userID, productID int64) (*models.CartItem, error)
	// UpdateQuantity меняет количество на delta; итог никогда не меньше 1
	UpdateQuantity(ctx context.Context, userID, itemID int64, delta int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID int64) error
}

type cartService struct {
	log         *slog.Logger
	db          *sql.DB
	cartRepo    storage.CartStorage
	productRepo storage.ProductStorage
}

func NewCartService(log *slog.Logger, db *sql.DB, cartRepo storage.CartStorage, productRepo storage.ProductStorage) CartService {
	return &cartService{
		log:         log,
		db:          db,
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

func (s *cartService) List(ctx context.Context, userID int64) (*Cart, error) {
	const op = "service.CartService.List"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	items, err := s.cartRepo.GetItemsByUserID(ctx, userID)
	if err != nil {
		logger.Error("failed to get cart items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get cart items: %w", op, err)
	}

	return &Cart{Items: items, TotalCents: cartTotal(items)}, nil
}

// AddItem добавляет товар в корзину с количеством 1.
// Название, цена и картинка денормализуются из карточки товара
func (s *cartService) AddItem(ctx context.Context, userID, productID int64) (*models.CartItem, error) {
	const op = "service.CartService.AddItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("productID", productID))

	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		logger.Error("failed to get product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
	}

	item := &models.CartItem{
		UserID:     userID,
		ProductID:  product.ID,
		Name:       product.Name,
		PriceCents: product.PriceCents,
		Image:      product.Image,
		Quantity:   1,
	}

	created, err := s.cartRepo.CreateItem(ctx, item)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyInCart) {
			logger.Info("product already in cart")
			return nil, ErrAlreadyInCart
		}
		logger.Error("failed to create cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create cart item: %w", op, err)
	}

	logger.Info("item added to cart", slog.Int64("itemID", created.ID))
	return created, nil
}

// UpdateQuantity выполняет изменение количества в транзакции с блокировкой
// строки: конкурентные сессии одного пользователя сериализуются на уровне БД,
// побеждает последняя зафиксированная запись. Количество не опускается ниже 1
func (s *cartService) UpdateQuantity(ctx context.Context, userID, itemID int64, delta int) (*models.CartItem, error) {
	const op = "service.CartService.UpdateQuantity"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("itemID", itemID), slog.Int("delta", delta))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	item, err := s.cartRepo.LockItemByIDTx(ctx, tx, userID, itemID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		if errors.Is(err, storage.ErrCartItemNotFound) {
			return nil, ErrCartItemNotFound
		}
		logger.Error("failed to lock cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock cart item: %w", op, err)
	}

	newQuantity := item.Quantity + delta
	if newQuantity < 1 {
		newQuantity = 1
	}

	if err := s.cartRepo.UpdateQuantityTx(ctx, tx, itemID, newQuantity); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to update quantity", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update quantity: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	item.Quantity = newQuantity
	logger.Info("quantity updated", slog.Int("quantity", newQuantity))
	return item, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID int64) error {
	const op = "service.CartService.RemoveItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("itemID", itemID))

	if err := s.cartRepo.DeleteItem(ctx, userID, itemID); err != nil {
		if errors.Is(err, storage.ErrCartItemNotFound) {
			return ErrCartItemNotFound
		}
		logger.Error("failed to delete cart item", slog.Any("error", err))
		return fmt.Errorf("%s: failed to delete cart item: %w", op, err)
	}

	logger.Info("item removed from cart")
	return nil
}

func cartTotal(items []*models.CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.PriceCents * int64(item.Quantity)
	}
	return total
}
