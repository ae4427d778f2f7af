package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cartworks/internal/domain"
	"cartworks/internal/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	// ListAllLimit caps the unpaginated product listing.
	ListAllLimit = 12

	// PageSize is the fixed page size of the paginated listing.
	PageSize = 3

	// RelatedLimit caps the related-products lookup.
	RelatedLimit = 4
)

// FieldError reports the first failing field of a product submission.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Message
}

// ProductForm carries the raw multipart form values of a create or
// update request. Parsing and validation happen together, in a fixed
// field order, so the caller always sees the first failing field.
type ProductForm struct {
	Name             string
	Description      string
	Price            string
	CategoryID       string
	Quantity         string
	Shipping         string
	Photo            []byte
	PhotoContentType string
}

// ProductService owns the product lifecycle and all catalog views.
type ProductService interface {
	Create(ctx context.Context, form *ProductForm) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, form *ProductForm) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListAll(ctx context.Context) ([]*domain.Product, error)
	Page(ctx context.Context, page int) ([]*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	Filter(ctx context.Context, categoryIDs []uuid.UUID, priceRange []float64) ([]*domain.Product, error)
	Count(ctx context.Context) (int64, error)
	Search(ctx context.Context, keyword string) ([]*domain.Product, error)
	Related(ctx context.Context, productID, categoryID uuid.UUID) ([]*domain.Product, error)
	ByCategorySlug(ctx context.Context, slug string) (*domain.Category, []*domain.Product, error)
	Photo(ctx context.Context, id uuid.UUID) ([]byte, string, error)
	Categories(ctx context.Context) ([]*domain.Category, error)
}

type productService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
) ProductService {
	return &productService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

// parsedForm holds the validated, typed form values.
type parsedForm struct {
	name        string
	description string
	price       float64
	categoryID  uuid.UUID
	quantity    int
	shipping    bool
}

// validate checks the form as an ordered list of field checks and stops
// at the first failure. The order is part of the API contract:
// name, description, price, category, quantity, photo.
func validateProductForm(form *ProductForm) (*parsedForm, *FieldError) {
	p := &parsedForm{}

	checks := []struct {
		field string
		run   func() *FieldError
	}{
		{"name", func() *FieldError {
			p.name = strings.TrimSpace(form.Name)
			if p.name == "" {
				return &FieldError{Field: "name", Message: "name is required"}
			}
			return nil
		}},
		{"description", func() *FieldError {
			p.description = strings.TrimSpace(form.Description)
			if p.description == "" {
				return &FieldError{Field: "description", Message: "description is required"}
			}
			return nil
		}},
		{"price", func() *FieldError {
			if strings.TrimSpace(form.Price) == "" {
				return &FieldError{Field: "price", Message: "price is required"}
			}
			price, err := strconv.ParseFloat(form.Price, 64)
			if err != nil || price <= 0 {
				return &FieldError{Field: "price", Message: "price must be a positive number"}
			}
			p.price = price
			return nil
		}},
		{"category", func() *FieldError {
			if strings.TrimSpace(form.CategoryID) == "" {
				return &FieldError{Field: "category", Message: "category is required"}
			}
			id, err := uuid.Parse(form.CategoryID)
			if err != nil {
				return &FieldError{Field: "category", Message: "category must be a valid category id"}
			}
			p.categoryID = id
			return nil
		}},
		{"quantity", func() *FieldError {
			if strings.TrimSpace(form.Quantity) == "" {
				return &FieldError{Field: "quantity", Message: "quantity is required"}
			}
			quantity, err := strconv.Atoi(form.Quantity)
			if err != nil || quantity < 0 {
				return &FieldError{Field: "quantity", Message: "quantity must be a non-negative integer"}
			}
			p.quantity = quantity
			return nil
		}},
		{"photo", func() *FieldError {
			if len(form.Photo) > domain.MaxPhotoBytes {
				return &FieldError{Field: "photo", Message: "photo must be no larger than 1000000 bytes"}
			}
			return nil
		}},
	}

	for _, c := range checks {
		if err := c.run(); err != nil {
			return nil, err
		}
	}

	// Shipping is optional and defaults to false.
	if strings.TrimSpace(form.Shipping) != "" {
		shipping, err := strconv.ParseBool(form.Shipping)
		if err != nil {
			return nil, &FieldError{Field: "shipping", Message: "shipping must be a boolean"}
		}
		p.shipping = shipping
	}

	return p, nil
}

// Create validates the form, derives the slug from the name, and
// persists a new product.
func (s *productService) Create(ctx context.Context, form *ProductForm) (*domain.Product, error) {
	parsed, ferr := validateProductForm(form)
	if ferr != nil {
		return nil, ferr
	}

	product := &domain.Product{
		ID:               uuid.New(),
		Name:             parsed.name,
		Slug:             slug.Make(parsed.name),
		Description:      parsed.description,
		Price:            parsed.price,
		CategoryID:       parsed.categoryID,
		Quantity:         parsed.quantity,
		Shipping:         parsed.shipping,
		Photo:            form.Photo,
		PhotoContentType: form.PhotoContentType,
		CreatedAt:        time.Now(),
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// Update validates the incoming fields exactly like Create (no merging
// with the stored record), recomputes the slug, and replaces the
// mutable fields of the product identified by id. A missing id is an
// explicit not-found error.
func (s *productService) Update(ctx context.Context, id uuid.UUID, form *ProductForm) (*domain.Product, error) {
	parsed, ferr := validateProductForm(form)
	if ferr != nil {
		return nil, ferr
	}

	product := &domain.Product{
		ID:               id,
		Name:             parsed.name,
		Slug:             slug.Make(parsed.name),
		Description:      parsed.description,
		Price:            parsed.price,
		CategoryID:       parsed.categoryID,
		Quantity:         parsed.quantity,
		Shipping:         parsed.shipping,
		Photo:            form.Photo,
		PhotoContentType: form.PhotoContentType,
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		if err == repository.ErrProductNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// Delete removes the product unconditionally. The prior record is
// returned, or nil when the id did not exist; absence is not an error.
func (s *productService) Delete(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.productRepo.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}
	return product, nil
}

// ListAll returns the newest products, capped at ListAllLimit.
func (s *productService) ListAll(ctx context.Context) ([]*domain.Product, error) {
	return s.productRepo.List(ctx, ListAllLimit)
}

// Page returns one fixed-size page, newest first. Pages below 1 are
// clamped to the first page.
func (s *productService) Page(ctx context.Context, page int) ([]*domain.Product, error) {
	if page < 1 {
		page = 1
	}
	return s.productRepo.Page(ctx, page, PageSize)
}

func (s *productService) GetBySlug(ctx context.Context, productSlug string) (*domain.Product, error) {
	return s.productRepo.FindBySlug(ctx, productSlug)
}

func (s *productService) Filter(ctx context.Context, categoryIDs []uuid.UUID, priceRange []float64) ([]*domain.Product, error) {
	return s.productRepo.Filter(ctx, categoryIDs, priceRange)
}

func (s *productService) Count(ctx context.Context) (int64, error) {
	return s.productRepo.EstimatedCount(ctx)
}

// Search requires a non-empty keyword and matches it as a
// case-insensitive substring of name or description.
func (s *productService) Search(ctx context.Context, keyword string) ([]*domain.Product, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, &FieldError{Field: "keyword", Message: "keyword is required"}
	}
	return s.productRepo.Search(ctx, keyword)
}

func (s *productService) Related(ctx context.Context, productID, categoryID uuid.UUID) ([]*domain.Product, error) {
	return s.productRepo.Related(ctx, productID, categoryID, RelatedLimit)
}

// ByCategorySlug resolves the category first so a bad slug surfaces as
// not-found rather than an empty product list.
func (s *productService) ByCategorySlug(ctx context.Context, categorySlug string) (*domain.Category, []*domain.Product, error) {
	category, err := s.categoryRepo.FindBySlug(ctx, categorySlug)
	if err != nil {
		return nil, nil, err
	}

	products, err := s.productRepo.ListByCategory(ctx, category.ID)
	if err != nil {
		return nil, nil, err
	}

	return category, products, nil
}

func (s *productService) Photo(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	return s.productRepo.Photo(ctx, id)
}

func (s *productService) Categories(ctx context.Context) ([]*domain.Category, error) {
	return s.categoryRepo.List(ctx)
}
