package models

import "time"

// Статус нового заказа; после создания заказ не изменяется
const OrderStatusPending = "Pending"

// Order представляет заказ со снимком корзины на момент оформления
type Order struct {
	ID            int64       `json:"id"`
	UserID        int64       `json:"user_id"`
	FirstName     string      `json:"first_name"`
	LastName      string      `json:"last_name"`
	Email         string      `json:"email"`
	Phone         string      `json:"phone"`
	Address       string      `json:"address"`
	City          string      `json:"city"`
	State         string      `json:"state"`
	ZipCode       string      `json:"zip_code"`
	PaymentMethod string      `json:"payment_method"`
	PaymentRef    string      `json:"payment_ref,omitempty"` // идентификатор платежа в шлюзе
	TotalCents    int64       `json:"total_cents"`
	Status        string      `json:"status"`
	Items         []OrderItem `json:"items"`
	CreatedAt     time.Time   `json:"created_at"`
}

// OrderItem — одна позиция снимка корзины, скопированная в заказ
type OrderItem struct {
	ID         int64  `json:"id"`
	OrderID    int64  `json:"order_id"`
	ProductID  int64  `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Image      string `json:"image"`
	Quantity   int    `json:"quantity"`
}
