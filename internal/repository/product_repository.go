package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cartworks/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// productColumns are the fields returned by catalog reads. Photo bytes
// are deliberately excluded; they are only fetched through Photo.
const productColumns = `p.id, p.name, p.slug, p.description, p.price, p.category_id, p.quantity, p.shipping, p.created_at,
		c.id, c.name, c.slug`

const productJoin = `FROM products p
		JOIN categories c ON c.id = p.category_id`

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Product, error)
	List(ctx context.Context, limit int) ([]*domain.Product, error)
	Page(ctx context.Context, page, pageSize int) ([]*domain.Product, error)
	Filter(ctx context.Context, categoryIDs []uuid.UUID, priceRange []float64) ([]*domain.Product, error)
	EstimatedCount(ctx context.Context) (int64, error)
	Search(ctx context.Context, keyword string) ([]*domain.Product, error)
	Related(ctx context.Context, productID, categoryID uuid.UUID, limit int) ([]*domain.Product, error)
	ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]*domain.Product, error)
	Photo(ctx context.Context, id uuid.UUID) ([]byte, string, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, slug, description, price, category_id, quantity, shipping, photo, photo_content_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Slug,
		product.Description,
		product.Price,
		product.CategoryID,
		product.Quantity,
		product.Shipping,
		product.Photo,
		product.PhotoContentType,
		product.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update replaces all mutable fields of an existing product. The photo
// columns are only touched when new photo bytes were supplied. The
// immutable created_at is read back into the struct so callers return
// the stored record, not the submitted form.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, slug = $3, description = $4, price = $5,
		    category_id = $6, quantity = $7, shipping = $8
		WHERE id = $1
		RETURNING created_at
	`
	args := []interface{}{
		product.ID,
		product.Name,
		product.Slug,
		product.Description,
		product.Price,
		product.CategoryID,
		product.Quantity,
		product.Shipping,
	}

	if len(product.Photo) > 0 {
		query = `
			UPDATE products
			SET name = $2, slug = $3, description = $4, price = $5,
			    category_id = $6, quantity = $7, shipping = $8,
			    photo = $9, photo_content_type = $10
			WHERE id = $1
			RETURNING created_at
		`
		args = append(args, product.Photo, product.PhotoContentType)
	}

	err := r.db.QueryRowContext(ctx, query, args...).Scan(&product.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

// Delete removes a product by id and returns the record as it existed
// before deletion. A missing id is not an error; it returns nil.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		DELETE FROM products
		WHERE id = $1
		RETURNING id, name, slug, description, price, category_id, quantity, shipping, created_at
	`

	product := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Slug,
		&product.Description,
		&product.Price,
		&product.CategoryID,
		&product.Quantity,
		&product.Shipping,
		&product.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}

	return product, nil
}

// FindBySlug retrieves a single product by slug with its category resolved
func (r *productRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		%s
		WHERE p.slug = $1
		LIMIT 1
	`, productColumns, productJoin)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by slug: %w", err)
	}

	return product, nil
}

// List retrieves the newest products up to limit, categories resolved
func (r *productRepository) List(ctx context.Context, limit int) ([]*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		%s
		ORDER BY p.created_at DESC
		LIMIT $1
	`, productColumns, productJoin)

	return r.queryProducts(ctx, query, limit)
}

// Page retrieves one fixed-size page of products, newest first
func (r *productRepository) Page(ctx context.Context, page, pageSize int) ([]*domain.Product, error) {
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`
		SELECT %s
		%s
		ORDER BY p.created_at DESC
		LIMIT $1 OFFSET $2
	`, productColumns, productJoin)

	return r.queryProducts(ctx, query, pageSize, offset)
}

// Filter returns products whose category is in categoryIDs (when the
// set is non-empty) and whose price lies in the inclusive priceRange
// (when two bounds are given). Both filters empty returns everything.
// The result is intentionally unpaginated.
func (r *productRepository) Filter(ctx context.Context, categoryIDs []uuid.UUID, priceRange []float64) ([]*domain.Product, error) {
	whereClause := ""
	args := []interface{}{}
	argIndex := 1

	if len(categoryIDs) > 0 {
		placeholders := ""
		for i, id := range categoryIDs {
			if i > 0 {
				placeholders += ", "
			}
			placeholders += fmt.Sprintf("$%d", argIndex)
			args = append(args, id)
			argIndex++
		}
		whereClause = fmt.Sprintf("WHERE p.category_id IN (%s)", placeholders)
	}

	if len(priceRange) == 2 {
		if whereClause == "" {
			whereClause = "WHERE"
		} else {
			whereClause += " AND"
		}
		whereClause += fmt.Sprintf(" p.price >= $%d AND p.price <= $%d", argIndex, argIndex+1)
		args = append(args, priceRange[0], priceRange[1])
	}

	query := fmt.Sprintf(`
		SELECT %s
		%s
		%s
		ORDER BY p.created_at DESC
	`, productColumns, productJoin, whereClause)

	return r.queryProducts(ctx, query, args...)
}

// EstimatedCount returns the planner's row estimate for the products
// table. It reads pg_class statistics instead of scanning the table, so
// the number lags behind recent writes. A fresh table that has never
// been analyzed reports -1; fall back to an exact count in that case.
func (r *productRepository) EstimatedCount(ctx context.Context) (int64, error) {
	var estimate int64
	err := r.db.QueryRowContext(ctx,
		`SELECT reltuples::bigint FROM pg_class WHERE relname = 'products'`,
	).Scan(&estimate)
	if err != nil {
		return 0, fmt.Errorf("failed to estimate product count: %w", err)
	}

	if estimate >= 0 {
		return estimate, nil
	}

	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&estimate)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}

	return estimate, nil
}

// likeEscaper neutralizes pattern metacharacters so a keyword is always
// matched literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search finds products whose name or description contains the keyword,
// case-insensitive substring semantics
func (r *productRepository) Search(ctx context.Context, keyword string) ([]*domain.Product, error) {
	pattern := "%" + likeEscaper.Replace(keyword) + "%"

	query := fmt.Sprintf(`
		SELECT %s
		%s
		WHERE p.name ILIKE $1 OR p.description ILIKE $1
		ORDER BY p.created_at DESC
	`, productColumns, productJoin)

	return r.queryProducts(ctx, query, pattern)
}

// Related returns up to limit products in the given category, excluding
// the given product id
func (r *productRepository) Related(ctx context.Context, productID, categoryID uuid.UUID, limit int) ([]*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		%s
		WHERE p.category_id = $1 AND p.id <> $2
		ORDER BY p.created_at DESC
		LIMIT $3
	`, productColumns, productJoin)

	return r.queryProducts(ctx, query, categoryID, productID, limit)
}

// ListByCategory returns all products referencing the given category
func (r *productRepository) ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		%s
		WHERE p.category_id = $1
		ORDER BY p.created_at DESC
	`, productColumns, productJoin)

	return r.queryProducts(ctx, query, categoryID)
}

// Photo fetches the raw photo bytes and content type for a product
func (r *productRepository) Photo(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	query := `
		SELECT photo, photo_content_type
		FROM products
		WHERE id = $1
	`

	var photo []byte
	var contentType sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(&photo, &contentType)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", ErrProductNotFound
		}
		return nil, "", fmt.Errorf("failed to fetch product photo: %w", err)
	}

	return photo, contentType.String, nil
}

func (r *productRepository) queryProducts(ctx context.Context, query string, args ...interface{}) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{Category: &domain.Category{}}
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Slug,
		&product.Description,
		&product.Price,
		&product.CategoryID,
		&product.Quantity,
		&product.Shipping,
		&product.CreatedAt,
		&product.Category.ID,
		&product.Category.Name,
		&product.Category.Slug,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}
