package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/ekicker-shop/internal/domain/models"
)

var ErrProductNotFound = errors.New("product not found")

// ProductStorage описывает методы для работы с каталогом товаров.
type ProductStorage interface {
	// ListProducts возвращает все товары; query фильтрует по подстроке
	// в названии или описании без учета регистра
	ListProducts(ctx context.Context, query string) ([]*models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

// scanProduct приводит NULL-значения числовых полей к нулю,
// чтобы наружу никогда не уходили NaN или отсутствующие цены
func scanProduct(row interface{ Scan(...any) error }) (*models.Product, error) {
	p := &models.Product{}
	var price, origPrice sql.NullInt64
	var rating sql.NullFloat64
	var image sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &origPrice, &image, &rating, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.PriceCents = price.Int64
	p.OriginalPriceCents = origPrice.Int64
	p.Rating = rating.Float64
	p.Image = image.String
	return p, nil
}

const productColumns = "id, name, description, price_cents, original_price_cents, image, rating, created_at"

func (r *productRepository) ListProducts(ctx context.Context, query string) ([]*models.Product, error) {
	q := "SELECT " + productColumns + " FROM products ORDER BY id"
	args := []any{}
	if query != "" {
		q = "SELECT " + productColumns + " FROM products WHERE name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%' ORDER BY id"
		args = append(args, query)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *productRepository) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	query := `INSERT INTO products (name, description, price_cents, original_price_cents, image, rating, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		p.Name, p.Description, p.PriceCents, p.OriginalPriceCents, p.Image, p.Rating,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return p, nil
}

func (r *productRepository) UpdateProduct(ctx context.Context, p *models.Product) error {
	query := `UPDATE products SET name = $1, description = $2, price_cents = $3,
	          original_price_cents = $4, image = $5, rating = $6 WHERE id = $7`
	res, err := r.db.ExecContext(ctx, query,
		p.Name, p.Description, p.PriceCents, p.OriginalPriceCents, p.Image, p.Rating, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}
