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

// CheckoutRequest — форма доставки и способ оплаты
type CheckoutRequest struct {
	Shipping      service.ShippingForm `json:"shipping"`
	PaymentMethod string               `json:"payment_method" validate:"required,oneof=gateway cod"`
}

// ConfirmPaymentRequest — колбэк платёжного виджета вместе с формой доставки
type ConfirmPaymentRequest struct {
	Shipping     service.ShippingForm        `json:"shipping"`
	Confirmation service.PaymentConfirmation `json:"confirmation"`
}

// CheckoutHandler обрабатывает запрос POST /api/checkout.
// Поля формы доставки проверяются на сервере, а не только на клиенте
func CheckoutHandler(log *slog.Logger, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutHandler"
		logger := log.With(slog.String("op", op))

		var req CheckoutRequest
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
		if err := validate.Struct(req.Shipping); err != nil {
			logger.Error("invalid shipping form", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		id, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("identity not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		result, err := checkoutService.Checkout(r.Context(), id.UserID, req.Shipping, req.PaymentMethod)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrEmptyCart):
				http.Error(w, "cart is empty", http.StatusConflict)
			case errors.Is(err, service.ErrDeliveryUnavailable):
				http.Error(w, "delivery is not available for this zip code", http.StatusUnprocessableEntity)
			default:
				logger.Error("checkout failed", slog.Any("error", err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}

// ConfirmPaymentHandler обрабатывает запрос POST /api/checkout/confirm.
// Заказ создается и корзина очищается только после проверки подписи шлюза
func ConfirmPaymentHandler(log *slog.Logger, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ConfirmPaymentHandler"
		logger := log.With(slog.String("op", op))

		var req ConfirmPaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		if err := validate.Struct(req.Confirmation); err != nil {
			logger.Error("invalid confirmation", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req.Shipping); err != nil {
			logger.Error("invalid shipping form", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		id, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("identity not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		order, err := checkoutService.ConfirmPayment(r.Context(), id.UserID, req.Shipping, req.Confirmation)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrPaymentRejected):
				http.Error(w, "payment verification failed", http.StatusBadRequest)
			case errors.Is(err, service.ErrEmptyCart):
				http.Error(w, "cart is empty", http.StatusConflict)
			case errors.Is(err, service.ErrDeliveryUnavailable):
				http.Error(w, "delivery is not available for this zip code", http.StatusUnprocessableEntity)
			default:
				logger.Error("failed to confirm payment", slog.Any("error", err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(order); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}

// OrdersHandler обрабатывает запрос GET /api/orders
func OrdersHandler(log *slog.Logger, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrdersHandler"
		logger := log.With(slog.String("op", op))

		id, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("identity not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		orders, err := checkoutService.ListOrders(r.Context(), id.UserID)
		if err != nil {
			logger.Error("failed to list orders", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(orders); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}

// OrderHandler обрабатывает запрос GET /api/orders/{id} — данные для
// страницы подтверждения заказа
func OrderHandler(log *slog.Logger, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrderHandler"
		logger := log.With(slog.String("op", op))

		orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			logger.Error("invalid order id", slog.Any("error", err))
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		id, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("identity not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		order, err := checkoutService.GetOrder(r.Context(), id.UserID, orderID)
		if err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get order", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(order); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}
