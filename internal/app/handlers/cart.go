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

// AddToCartRequest — входной JSON для добавления товара в корзину
type AddToCartRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

// UpdateQuantityRequest — изменение количества на delta (может быть отрицательной)
type UpdateQuantityRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// CartHandler обрабатывает запрос GET /api/cart
func CartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CartHandler"
		logger := log.With(slog.String("op", op))

		id, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("identity not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		cart, err := cartService.List(r.Context(), id.UserID)
		if err != nil {
			logger.Error("failed to get cart", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(cart); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
}

// AddToCartHandler обрабатывает запрос POST /api/cart.
// Повторное добавление того же товара отклоняется с уведомлением (409)
func AddToCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddToCartHandler"
		logger := log.With(slog.String("op", op))

		var req AddToCartRequest
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

		item, err := cartService.AddItem(r.Context(), id.UserID, req.ProductID)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrAlreadyInCart):
				http.Error(w, "product is already in your cart", http.StatusConflict)
			case errors.Is(err, storage.ErrProductNotFound):
				http.Error(w, "product not found", http.StatusNotFound)
			default:
				logger.Error("failed to add item to cart", slog.Any("error", err))
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

// UpdateCartItemHandler обрабатывает запрос PATCH /api/cart/{id}
func UpdateCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateCartItemHandler"
		logger := log.With(slog.String("op", op))

		itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			logger.Error("invalid item id", slog.Any("error", err))
			http.Error(w, "invalid item id", http.StatusBadRequest)
			return
		}

		var req UpdateQuantityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		id, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("identity not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		item, err := cartService.UpdateQuantity(r.Context(), id.UserID, itemID, req.Delta)
		if err != nil {
			if errors.Is(err, service.ErrCartItemNotFound) {
				http.Error(w, "cart item not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to update quantity", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(item); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}

// RemoveCartItemHandler обрабатывает запрос DELETE /api/cart/{id}
func RemoveCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveCartItemHandler"
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

		if err := cartService.RemoveItem(r.Context(), id.UserID, itemID); err != nil {
			if errors.Is(err, service.ErrCartItemNotFound) {
				http.Error(w, "cart item not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to remove item", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
