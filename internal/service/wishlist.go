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
	ErrAlreadyInWishlist    = errors.New("product already in wishlist")
	ErrWishlistItemNotFound = errors.New("wishlist item not found")
)

// WishlistService определяет интерфейс для работы с избранным.
type WishlistService interface {
	List(ctx context.Context, userID int64) ([]*models.WishlistItem, error)
	Add(ctx context.Context, userID, productID int64) (*models.WishlistItem, error)
	Remove(ctx context.Context, userID, itemID int64) error
	// MoveToCart переносит позицию из избранного в корзину одной транзакцией
	MoveToCart(ctx context.Context, userID, itemID int64) (*models.CartItem, error)
}

type wishlistService struct {
	log          *slog.Logger
	db           *sql.DB
	wishlistRepo storage.WishlistStorage
	cartRepo     storage.CartStorage
	productRepo  storage.ProductStorage
}

func NewWishlistService(log *slog.Logger, db *sql.DB, wishlistRepo storage.WishlistStorage, cartRepo storage.CartStorage, productRepo storage.ProductStorage) WishlistService {
	return &wishlistService{
		log:          log,
		db:           db,
		wishlistRepo: wishlistRepo,
		cartRepo:     cartRepo,
		productRepo:  productRepo,
	}
}

func (s *wishlistService) List(ctx context.Context, userID int64) ([]*models.WishlistItem, error) {
	const op = "service.WishlistService.List"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	items, err := s.wishlistRepo.GetItemsByUserID(ctx, userID)
	if err != nil {
		logger.Error("failed to get wishlist items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get wishlist items: %w", op, err)
	}
	return items, nil
}

func (s *wishlistService) Add(ctx context.Context, userID, productID int64) (*models.WishlistItem, error) {
	const op = "service.WishlistService.Add"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("productID", productID))

	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		logger.Error("failed to get product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
	}

	item := &models.WishlistItem{
		UserID:     userID,
		ProductID:  product.ID,
		Name:       product.Name,
		PriceCents: product.PriceCents,
		Image:      product.Image,
	}

	created, err := s.wishlistRepo.CreateItem(ctx, item)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyInWishlist) {
			logger.Info("product already in wishlist")
			return nil, ErrAlreadyInWishlist
		}
		logger.Error("failed to create wishlist item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create wishlist item: %w", op, err)
	}

	logger.Info("item added to wishlist", slog.Int64("itemID", created.ID))
	return created, nil
}

func (s *wishlistService) Remove(ctx context.Context, userID, itemID int64) error {
	const op = "service.WishlistService.Remove"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("itemID", itemID))

	if err := s.wishlistRepo.DeleteItem(ctx, userID, itemID); err != nil {
		if errors.Is(err, storage.ErrWishlistItemNotFound) {
			return ErrWishlistItemNotFound
		}
		logger.Error("failed to delete wishlist item", slog.Any("error", err))
		return fmt.Errorf("%s: failed to delete wishlist item: %w", op, err)
	}

	logger.Info("item removed from wishlist")
	return nil
}

// MoveToCart добавляет позицию в корзину и удаляет из избранного.
// Обе записи меняются в одной транзакции: частичного состояния,
// когда товар числится в обоих местах, не бывает
func (s *wishlistService) MoveToCart(ctx context.Context, userID, itemID int64) (*models.CartItem, error) {
	const op = "service.WishlistService.MoveToCart"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("itemID", itemID))
	logger.Info("starting move-to-cart transaction")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	wItem, err := s.wishlistRepo.LockItemByIDTx(ctx, tx, userID, itemID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		if errors.Is(err, storage.ErrWishlistItemNotFound) {
			return nil, ErrWishlistItemNotFound
		}
		logger.Error("failed to lock wishlist item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock wishlist item: %w", op, err)
	}

	cartItem := &models.CartItem{
		UserID:     userID,
		ProductID:  wItem.ProductID,
		Name:       wItem.Name,
		PriceCents: wItem.PriceCents,
		Image:      wItem.Image,
		Quantity:   1,
	}

	if err := s.cartRepo.CreateItemTx(ctx, tx, cartItem); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		if errors.Is(err, storage.ErrAlreadyInCart) {
			logger.Info("product already in cart")
			return nil, ErrAlreadyInCart
		}
		logger.Error("failed to create cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create cart item: %w", op, err)
	}

	if err := s.wishlistRepo.DeleteItemTx(ctx, tx, itemID); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to delete wishlist item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to delete wishlist item: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("item moved to cart")
	return cartItem, nil
}
