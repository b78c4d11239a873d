package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/linemk/ekicker-shop/internal/domain/models"
	"github.com/linemk/ekicker-shop/internal/lib/payment"
	"github.com/linemk/ekicker-shop/internal/storage"
)

var (
	// ErrEmptyCart — оформление с пустой корзиной не начинается
	ErrEmptyCart = errors.New("cart is empty")
	// ErrDeliveryUnavailable — индекс вне зоны доставки, проверяется на сервере
	ErrDeliveryUnavailable = errors.New("delivery is not available for this zip code")
	// ErrPaymentRejected — подпись шлюза не сошлась, заказ не создается
	ErrPaymentRejected = errors.New("payment verification failed")
)

// Способы оплаты
const (
	PaymentMethodGateway = "gateway"
	PaymentMethodCOD     = "cod"
)

// ShippingForm — данные доставки; обязательность полей проверяется валидатором
// на транспортном слое, зона доставки — здесь
type ShippingForm struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	ZipCode   string `json:"zip_code" validate:"required"`
}

// CheckoutResult — итог шага оформления: либо заказ уже создан (наложенный
// платёж), либо создан заказ в шлюзе и клиент уходит в платёжный виджет
type CheckoutResult struct {
	Order        *models.Order         `json:"order,omitempty"`
	PaymentOrder *payment.PaymentOrder `json:"payment_order,omitempty"`
}

// PaymentConfirmation — колбэк успешной оплаты от платёжного виджета
type PaymentConfirmation struct {
	PaymentOrderID string `json:"payment_order_id" validate:"required"`
	PaymentID      string `json:"payment_id" validate:"required"`
	Signature      string `json:"signature" validate:"required"`
}

// CheckoutService ведёт оформление заказа: корзина -> форма -> оплата ->
// заказ -> очистка корзины.
type CheckoutService interface {
	// Checkout проверяет форму и зону доставки; для оплаты через шлюз создает
	// платёжный заказ на сумму корзины, для наложенного платежа сразу создает заказ
	Checkout(ctx context.Context, userID int64, form ShippingForm, method string) (*CheckoutResult, error)
	// ConfirmPayment проверяет подпись шлюза и создает заказ со снимком корзины
	ConfirmPayment(ctx context.Context, userID int64, form ShippingForm, conf PaymentConfirmation) (*models.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]*models.Order, error)
	GetOrder(ctx context.Context, userID, orderID int64) (*models.Order, error)
}

type checkoutService struct {
	log          *slog.Logger
	db           *sql.DB
	cartRepo     storage.CartStorage
	orderRepo    storage.OrderStorage
	gateway      payment.Gateway
	deliveryZips map[string]struct{}
}

func NewCheckoutService(log *slog.Logger, db *sql.DB, cartRepo storage.CartStorage, orderRepo storage.OrderStorage, gateway payment.Gateway, deliveryZips []string) CheckoutService {
	zips := make(map[string]struct{}, len(deliveryZips))
	for _, z := range deliveryZips {
		zips[z] = struct{}{}
	}
	return &checkoutService{
		log:          log,
		db:           db,
		cartRepo:     cartRepo,
		orderRepo:    orderRepo,
		gateway:      gateway,
		deliveryZips: zips,
	}
}

func (s *checkoutService) Checkout(ctx context.Context, userID int64, form ShippingForm, method string) (*CheckoutResult, error) {
	const op = "service.CheckoutService.Checkout"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.String("method", method))
	logger.Info("starting checkout")

	if err := s.checkDeliveryZip(form.ZipCode); err != nil {
		logger.Warn("zip code outside delivery area", slog.String("zipCode", form.ZipCode))
		return nil, err
	}

	items, err := s.cartRepo.GetItemsByUserID(ctx, userID)
	if err != nil {
		logger.Error("failed to get cart items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get cart items: %w", op, err)
	}
	if len(items) == 0 {
		logger.Info("cart is empty, nothing to checkout")
		return nil, ErrEmptyCart
	}

	// Наложенный платёж минует шлюз: заказ создается сразу
	if method == PaymentMethodCOD {
		order, err := s.placeOrder(ctx, logger, userID, form, method, "")
		if err != nil {
			return nil, err
		}
		return &CheckoutResult{Order: order}, nil
	}

	total := cartTotal(items)
	receipt := uuid.NewString()
	payOrder, err := s.gateway.CreateOrder(total, receipt)
	if err != nil {
		logger.Error("failed to create payment order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create payment order: %w", op, err)
	}

	logger.Info("payment order created", slog.String("paymentOrderID", payOrder.ID), slog.Int64("totalCents", total))
	return &CheckoutResult{PaymentOrder: payOrder}, nil
}

func (s *checkoutService) ConfirmPayment(ctx context.Context, userID int64, form ShippingForm, conf PaymentConfirmation) (*models.Order, error) {
	const op = "service.CheckoutService.ConfirmPayment"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.String("paymentOrderID", conf.PaymentOrderID))
	logger.Info("confirming payment")

	if err := s.gateway.VerifySignature(conf.PaymentOrderID, conf.PaymentID, conf.Signature); err != nil {
		logger.Warn("payment signature verification failed", slog.Any("error", err))
		return nil, ErrPaymentRejected
	}

	if err := s.checkDeliveryZip(form.ZipCode); err != nil {
		logger.Warn("zip code outside delivery area", slog.String("zipCode", form.ZipCode))
		return nil, err
	}

	return s.placeOrder(ctx, logger, userID, form, PaymentMethodGateway, conf.PaymentID)
}

// placeOrder создает заказ и очищает корзину одной транзакцией.
// Снимок читается с блокировкой строк: сумма и позиции заказа соответствуют
// корзине ровно на момент фиксации, позднейшие изменения корзины на заказ
// не влияют. При любой ошибке транзакция откатывается — корзина остается целой
func (s *checkoutService) placeOrder(ctx context.Context, logger *slog.Logger, userID int64, form ShippingForm, method, paymentRef string) (*models.Order, error) {
	const op = "service.CheckoutService.placeOrder"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	items, err := s.cartRepo.GetItemsByUserIDTx(ctx, tx, userID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to get cart snapshot", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get cart snapshot: %w", op, err)
	}
	if len(items) == 0 {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		return nil, ErrEmptyCart
	}

	order := &models.Order{
		UserID:        userID,
		FirstName:     form.FirstName,
		LastName:      form.LastName,
		Email:         form.Email,
		Phone:         form.Phone,
		Address:       form.Address,
		City:          form.City,
		State:         form.State,
		ZipCode:       form.ZipCode,
		PaymentMethod: method,
		PaymentRef:    paymentRef,
		TotalCents:    cartTotal(items),
		Status:        models.OrderStatusPending,
	}
	for _, item := range items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:  item.ProductID,
			Name:       item.Name,
			PriceCents: item.PriceCents,
			Image:      item.Image,
			Quantity:   item.Quantity,
		})
	}

	orderID, err := s.orderRepo.CreateOrderTx(ctx, tx, order)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}

	if err := s.cartRepo.DeleteAllByUserIDTx(ctx, tx, userID); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to clear cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to clear cart: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	order.ID = orderID
	logger.Info("order placed", slog.Int64("orderID", orderID), slog.Int64("totalCents", order.TotalCents))
	return order, nil
}

func (s *checkoutService) ListOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	const op = "service.CheckoutService.ListOrders"

	orders, err := s.orderRepo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to get orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get orders: %w", op, err)
	}
	return orders, nil
}

func (s *checkoutService) GetOrder(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	const op = "service.CheckoutService.GetOrder"

	order, err := s.orderRepo.GetOrderByID(ctx, userID, orderID)
	if err != nil {
		s.log.Error("failed to get order", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}
	return order, nil
}

func (s *checkoutService) checkDeliveryZip(zip string) error {
	// пустой список означает доставку без ограничений
	if len(s.deliveryZips) == 0 {
		return nil
	}
	if _, ok := s.deliveryZips[zip]; !ok {
		return ErrDeliveryUnavailable
	}
	return nil
}
