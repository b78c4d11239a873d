package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/ekicker-shop/internal/domain/models"
	"github.com/linemk/ekicker-shop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/ekicker-shop/internal/service"
	"github.com/linemk/ekicker-shop/internal/storage"
)

// максимальный размер multipart-формы админки
const maxUploadSize = 32 << 20 // 32 MB

// parseMoney приводит значение из формы к минорным единицам;
// пустое или некорректное значение становится нулем, а не ошибкой
func parseMoney(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func parseRating(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// productFromForm собирает товар из полей multipart-формы
func productFromForm(r *http.Request) *models.Product {
	return &models.Product{
		Name:               r.FormValue("name"),
		Description:        r.FormValue("description"),
		PriceCents:         parseMoney(r.FormValue("price_cents")),
		OriginalPriceCents: parseMoney(r.FormValue("original_price_cents")),
		Rating:             parseRating(r.FormValue("rating")),
	}
}

// imageFromForm достает файл картинки из формы; nil, если файла нет
func imageFromForm(r *http.Request, field string) *service.ImageUpload {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil
	}
	return &service.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
}

// CreateProductHandler обрабатывает запрос POST /api/admin/products (multipart)
func CreateProductHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateProductHandler"
		logger := log.With(slog.String("op", op))

		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			logger.Error("invalid multipart form", slog.Any("error", err))
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		product := productFromForm(r)
		if product.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}

		created, err := catalogService.CreateProduct(r.Context(), product, imageFromForm(r, "image"))
		if err != nil {
			logger.Error("failed to create product", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(created); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}

// UpdateProductHandler обрабатывает запрос PUT /api/admin/products/{id} (multipart).
// Без нового файла картинка остается прежней
func UpdateProductHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateProductHandler"
		logger := log.With(slog.String("op", op))

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			logger.Error("invalid product id", slog.Any("error", err))
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			logger.Error("invalid multipart form", slog.Any("error", err))
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		product := productFromForm(r)
		product.ID = id
		if product.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}

		if err := catalogService.UpdateProduct(r.Context(), product, imageFromForm(r, "image")); err != nil {
			if errors.Is(err, storage.ErrProductNotFound) {
				http.Error(w, "product not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to update product", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(product); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}

// DeleteProductHandler обрабатывает запрос DELETE /api/admin/products/{id}
func DeleteProductHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteProductHandler"
		logger := log.With(slog.String("op", op))

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			logger.Error("invalid product id", slog.Any("error", err))
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		if err := catalogService.DeleteProduct(r.Context(), id); err != nil {
			if errors.Is(err, storage.ErrProductNotFound) {
				http.Error(w, "product not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to delete product", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// DocumentsHandler обрабатывает запрос GET /api/admin/documents
func DocumentsHandler(log *slog.Logger, documentService service.DocumentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DocumentsHandler"
		logger := log.With(slog.String("op", op))

		docs, err := documentService.List(r.Context())
		if err != nil {
			logger.Error("failed to list documents", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(docs); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}

// UploadDocumentHandler обрабатывает запрос POST /api/admin/documents (multipart).
// Автор записи берется из identity текущего пользователя
func UploadDocumentHandler(log *slog.Logger, documentService service.DocumentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UploadDocumentHandler"
		logger := log.With(slog.String("op", op))

		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			logger.Error("invalid multipart form", slog.Any("error", err))
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		id, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("identity not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		doc := &models.Document{
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
			Category:    r.FormValue("category"),
			UploadedBy:  id.Email,
		}
		if doc.Title == "" {
			http.Error(w, "title is required", http.StatusBadRequest)
			return
		}

		file := imageFromForm(r, "file")
		if file == nil {
			http.Error(w, "file is required", http.StatusBadRequest)
			return
		}

		created, err := documentService.Upload(r.Context(), doc, file)
		if err != nil {
			logger.Error("failed to upload document", slog.Any("error", err))
			http.Error(w, "failed to upload document", http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(created); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}

// DeleteDocumentHandler обрабатывает запрос DELETE /api/admin/documents/{id}
func DeleteDocumentHandler(log *slog.Logger, documentService service.DocumentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteDocumentHandler"
		logger := log.With(slog.String("op", op))

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			logger.Error("invalid document id", slog.Any("error", err))
			http.Error(w, "invalid document id", http.StatusBadRequest)
			return
		}

		if err := documentService.Delete(r.Context(), id); err != nil {
			if errors.Is(err, storage.ErrDocumentNotFound) {
				http.Error(w, "document not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to delete document", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
