package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/linemk/ekicker-shop/internal/domain/models"
	"github.com/linemk/ekicker-shop/internal/lib/objstore"
	"github.com/linemk/ekicker-shop/internal/storage"
)

// CatalogService определяет интерфейс каталога: чтение для витрины
// и управление товарами для админки.
type CatalogService interface {
	ListProducts(ctx context.Context, query string) ([]*models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product, image *ImageUpload) (*models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product, image *ImageUpload) error
	DeleteProduct(ctx context.Context, id int64) error
}

// ImageUpload — содержимое картинки из multipart-формы, nil если файла нет
type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type catalogService struct {
	log          *slog.Logger
	productRepo  storage.ProductStorage
	fileStore    objstore.FileStore
	defaultImage string
}

func NewCatalogService(log *slog.Logger, productRepo storage.ProductStorage, fileStore objstore.FileStore, defaultImage string) CatalogService {
	return &catalogService{
		log:          log,
		productRepo:  productRepo,
		fileStore:    fileStore,
		defaultImage: defaultImage,
	}
}

func (s *catalogService) ListProducts(ctx context.Context, query string) ([]*models.Product, error) {
	const op = "service.CatalogService.ListProducts"
	logger := s.log.With(slog.String("op", op))

	products, err := s.productRepo.ListProducts(ctx, query)
	if err != nil {
		logger.Error("failed to list products", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list products: %w", op, err)
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	const op = "service.CatalogService.GetProduct"

	product, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		s.log.Error("failed to get product", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
	}
	return product, nil
}

// CreateProduct создает товар; картинка сначала уезжает в объектное хранилище,
// в запись попадает возвращённая ссылка. Неудавшаяся загрузка не блокирует
// создание — вместо нее подставляется картинка-заглушка
func (s *catalogService) CreateProduct(ctx context.Context, p *models.Product, image *ImageUpload) (*models.Product, error) {
	const op = "service.CatalogService.CreateProduct"
	logger := s.log.With(slog.String("op", op), slog.String("name", p.Name))

	p.Rating = clampRating(p.Rating)
	p.Image = s.uploadOrDefault(ctx, logger, image)

	created, err := s.productRepo.CreateProduct(ctx, p)
	if err != nil {
		logger.Error("failed to create product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create product: %w", op, err)
	}

	logger.Info("product created", slog.Int64("productID", created.ID))
	return created, nil
}

// UpdateProduct обновляет товар; без новой картинки прежняя ссылка сохраняется
func (s *catalogService) UpdateProduct(ctx context.Context, p *models.Product, image *ImageUpload) error {
	const op = "service.CatalogService.UpdateProduct"
	logger := s.log.With(slog.String("op", op), slog.Int64("productID", p.ID))

	existing, err := s.productRepo.GetProductByID(ctx, p.ID)
	if err != nil {
		logger.Error("failed to get product", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get product: %w", op, err)
	}

	p.Rating = clampRating(p.Rating)
	if image != nil {
		p.Image = s.uploadOrDefault(ctx, logger, image)
	} else {
		p.Image = existing.Image
	}

	if err := s.productRepo.UpdateProduct(ctx, p); err != nil {
		logger.Error("failed to update product", slog.Any("error", err))
		return fmt.Errorf("%s: failed to update product: %w", op, err)
	}

	logger.Info("product updated")
	return nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id int64) error {
	const op = "service.CatalogService.DeleteProduct"
	logger := s.log.With(slog.String("op", op), slog.Int64("productID", id))

	if err := s.productRepo.DeleteProduct(ctx, id); err != nil {
		logger.Error("failed to delete product", slog.Any("error", err))
		return fmt.Errorf("%s: failed to delete product: %w", op, err)
	}

	logger.Info("product deleted")
	return nil
}

func (s *catalogService) uploadOrDefault(ctx context.Context, logger *slog.Logger, image *ImageUpload) string {
	if image == nil {
		return s.defaultImage
	}
	url, err := s.fileStore.Upload(ctx, "product-images", image.Filename, image.ContentType, image.Body)
	if err != nil {
		logger.Warn("image upload failed, using default image", slog.Any("error", err))
		return s.defaultImage
	}
	return url
}

func clampRating(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 5 {
		return 5
	}
	return r
}
