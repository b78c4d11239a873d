package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/ekicker-shop/internal/domain/models"
)

var ErrDocumentNotFound = errors.New("document not found")

// DocumentStorage описывает методы для работы с документами админки.
type DocumentStorage interface {
	ListDocuments(ctx context.Context) ([]*models.Document, error)
	CreateDocument(ctx context.Context, doc *models.Document) (*models.Document, error)
	DeleteDocument(ctx context.Context, id int64) error
}

type documentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) DocumentStorage {
	return &documentRepository{db: db}
}

func (r *documentRepository) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	query := `SELECT id, title, description, category, file_url, uploaded_by, created_at
	          FROM documents ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc := &models.Document{}
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Description, &doc.Category,
			&doc.FileURL, &doc.UploadedBy, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepository) CreateDocument(ctx context.Context, doc *models.Document) (*models.Document, error) {
	query := `INSERT INTO documents (title, description, category, file_url, uploaded_by, created_at)
	          VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		doc.Title, doc.Description, doc.Category, doc.FileURL, doc.UploadedBy,
	).Scan(&doc.ID, &doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, nil
}

func (r *documentRepository) DeleteDocument(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}
