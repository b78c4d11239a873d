package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linemk/ekicker-shop/internal/domain/models"
	"github.com/linemk/ekicker-shop/internal/lib/objstore"
	"github.com/linemk/ekicker-shop/internal/storage"
)

// DocumentService определяет интерфейс для работы с документами админки.
type DocumentService interface {
	List(ctx context.Context) ([]*models.Document, error)
	// Upload загружает файл в хранилище и создает запись с вернувшейся ссылкой
	Upload(ctx context.Context, doc *models.Document, file *ImageUpload) (*models.Document, error)
	Delete(ctx context.Context, id int64) error
}

type documentService struct {
	log       *slog.Logger
	docRepo   storage.DocumentStorage
	fileStore objstore.FileStore
}

func NewDocumentService(log *slog.Logger, docRepo storage.DocumentStorage, fileStore objstore.FileStore) DocumentService {
	return &documentService{
		log:       log,
		docRepo:   docRepo,
		fileStore: fileStore,
	}
}

func (s *documentService) List(ctx context.Context) ([]*models.Document, error) {
	const op = "service.DocumentService.List"

	docs, err := s.docRepo.ListDocuments(ctx)
	if err != nil {
		s.log.Error("failed to list documents", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list documents: %w", op, err)
	}
	return docs, nil
}

// Upload сначала грузит файл, затем пишет запись. В отличие от картинки товара
// документ без файла бессмысленен, поэтому неудавшаяся загрузка прерывает
// операцию. Если запись не создалась после успешной загрузки, файл-сирота
// остается в хранилище — это логируется
func (s *documentService) Upload(ctx context.Context, doc *models.Document, file *ImageUpload) (*models.Document, error) {
	const op = "service.DocumentService.Upload"
	logger := s.log.With(slog.String("op", op), slog.String("title", doc.Title))

	url, err := s.fileStore.Upload(ctx, "documents", file.Filename, file.ContentType, file.Body)
	if err != nil {
		logger.Error("failed to upload document file", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to upload document file: %w", op, err)
	}
	doc.FileURL = url

	created, err := s.docRepo.CreateDocument(ctx, doc)
	if err != nil {
		logger.Warn("document record failed after upload, orphaned file remains", slog.String("fileURL", url))
		return nil, fmt.Errorf("%s: failed to create document: %w", op, err)
	}

	logger.Info("document uploaded", slog.Int64("documentID", created.ID))
	return created, nil
}

func (s *documentService) Delete(ctx context.Context, id int64) error {
	const op = "service.DocumentService.Delete"
	logger := s.log.With(slog.String("op", op), slog.Int64("documentID", id))

	if err := s.docRepo.DeleteDocument(ctx, id); err != nil {
		logger.Error("failed to delete document", slog.Any("error", err))
		return fmt.Errorf("%s: failed to delete document: %w", op, err)
	}

	logger.Info("document deleted")
	return nil
}
