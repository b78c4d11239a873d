package models

import "time"

// Document представляет служебный документ (артефакты R&D), загружаемый админом
type Document struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	FileURL     string    `json:"file_url"`
	UploadedBy  string    `json:"uploaded_by"` // email загрузившего
	CreatedAt   time.Time `json:"created_at"`
}
