package models

import "time"

// CartItem представляет позицию корзины.
// Название, цена и картинка денормализованы из товара на момент добавления
type CartItem struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	ProductID  int64     `json:"product_id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Image      string    `json:"image"`
	Quantity   int       `json:"quantity"` // всегда >= 1
	CreatedAt  time.Time `json:"created_at"`
}
