package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/ekicker-shop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/ekicker-shop/internal/service"
	"github.com/linemk/ekicker-shop/internal/storage"
)

// AddToWishlistRequest — входной JSON для добавления товара в избранное
type AddToWishlistRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

// WishlistHandler обрабатывает запрос GET /api/wishlist
func WishlistHandler(log *slog.Logger, wishlistService service.WishlistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.WishlistHandler"
		logger := log.With(slog.String("op", op))

		id, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("identity not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := wishlistService.List(r.Context(), id.UserID)
		if err != nil {
			logger.Error("failed to get wishlist", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(items); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
}

// AddToWishlistHandler обрабатывает запрос POST /api/wishlist
func AddToWishlistHandler(log *slog.Logger, wishlistService service.WishlistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddToWishlistHandler"
		logger := log.With(slog.String("op", op))

		var req AddToWishlistRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		id, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("identity not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		item, err := wishlistService.Add(r.Context(), id.UserID, req.ProductID)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrAlreadyInWishlist):
				http.Error(w, "product is already in your wishlist", http.StatusConflict)
			case errors.Is(err, storage.ErrProductNotFound):
				http.Error(w, "product not found", http.StatusNotFound)
			default:
				logger.Error("failed to add item to wishlist", slog.Any("error", err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(item); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}

// RemoveWishlistItemHandler обрабатывает запрос DELETE /api/wishlist/{id}
func RemoveWishlistItemHandler(log *slog.Logger, wishlistService service.WishlistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveWishlistItemHandler"
		logger := log.With(slog.String("op", op))

		itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			logger.Error("invalid item id", slog.Any("error", err))
			http.Error(w, "invalid item id", http.StatusBadRequest)
			return
		}

		id, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("identity not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := wishlistService.Remove(r.Context(), id.UserID, itemID); err != nil {
			if errors.Is(err, service.ErrWishlistItemNotFound) {
				http.Error(w, "wishlist item not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to remove item", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// MoveToCartHandler обрабатывает запрос POST /api/wishlist/{id}/move-to-cart
func MoveToCartHandler(log *slog.Logger, wishlistService service.WishlistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.MoveToCartHandler"
		logger := log.With(slog.String("op", op))

		itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			logger.Error("invalid item id", slog.Any("error", err))
			http.Error(w, "invalid item id", http.StatusBadRequest)
			return
		}

		id, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("identity not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		cartItem, err := wishlistService.MoveToCart(r.Context(), id.UserID, itemID)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrWishlistItemNotFound):
				http.Error(w, "wishlist item not found", http.StatusNotFound)
			case errors.Is(err, service.ErrAlreadyInCart):
				http.Error(w, "product is already in your cart", http.StatusConflict)
			default:
				logger.Error("failed to move item to cart", slog.Any("error", err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(cartItem); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}
