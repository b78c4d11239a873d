package models

import "time"

// WishlistItem представляет отложенный товар
type WishlistItem struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	ProductID  int64     `json:"product_id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Image      string    `json:"image"`
	CreatedAt  time.Time `json:"created_at"`
}
