package models

import "time"

// Product представляет товар каталога.
// Цены хранятся в минорных единицах (центах), чтобы не терять точность
type Product struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	PriceCents         int64     `json:"price_cents"`
	OriginalPriceCents int64     `json:"original_price_cents"`
	Image              string    `json:"image"`
	Rating             float64   `json:"rating"` // от 0 до 5
	CreatedAt          time.Time `json:"created_at"`
}
