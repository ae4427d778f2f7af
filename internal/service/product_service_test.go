package service

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"cartworks/internal/domain"
	"cartworks/internal/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Mock repositories for testing

type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	existing, exists := m.products[product.ID]
	if !exists {
		return repository.ErrProductNotFound
	}
	// Mirrors the SQL RETURNING clause: created_at is read back into
	// the caller's struct, the stored photo survives when none came in.
	product.CreatedAt = existing.CreatedAt
	stored := *product
	if len(stored.Photo) == 0 {
		stored.Photo = existing.Photo
		stored.PhotoContentType = existing.PhotoContentType
	}
	m.products[product.ID] = &stored
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, exists := m.products[id]
	if !exists {
		return nil, nil
	}
	delete(m.products, id)
	return product, nil
}

func (m *mockProductRepository) FindBySlug(ctx context.Context, productSlug string) (*domain.Product, error) {
	for _, p := range m.products {
		if p.Slug == productSlug {
			return p, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockProductRepository) sorted() []*domain.Product {
	all := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all
}

func (m *mockProductRepository) List(ctx context.Context, limit int) ([]*domain.Product, error) {
	all := m.sorted()
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *mockProductRepository) Page(ctx context.Context, page, pageSize int) ([]*domain.Product, error) {
	all := m.sorted()
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []*domain.Product{}, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (m *mockProductRepository) Filter(ctx context.Context, categoryIDs []uuid.UUID, priceRange []float64) ([]*domain.Product, error) {
	result := []*domain.Product{}
	for _, p := range m.sorted() {
		if len(categoryIDs) > 0 {
			found := false
			for _, id := range categoryIDs {
				if p.CategoryID == id {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		if len(priceRange) == 2 && (p.Price < priceRange[0] || p.Price > priceRange[1]) {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

func (m *mockProductRepository) EstimatedCount(ctx context.Context) (int64, error) {
	return int64(len(m.products)), nil
}

func (m *mockProductRepository) Search(ctx context.Context, keyword string) ([]*domain.Product, error) {
	lower := strings.ToLower(keyword)
	result := []*domain.Product{}
	for _, p := range m.sorted() {
		if strings.Contains(strings.ToLower(p.Name), lower) ||
			strings.Contains(strings.ToLower(p.Description), lower) {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *mockProductRepository) Related(ctx context.Context, productID, categoryID uuid.UUID, limit int) ([]*domain.Product, error) {
	result := []*domain.Product{}
	for _, p := range m.sorted() {
		if p.CategoryID == categoryID && p.ID != productID {
			result = append(result, p)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *mockProductRepository) ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]*domain.Product, error) {
	result := []*domain.Product{}
	for _, p := range m.sorted() {
		if p.CategoryID == categoryID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *mockProductRepository) Photo(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	product, exists := m.products[id]
	if !exists {
		return nil, "", repository.ErrProductNotFound
	}
	return product.Photo, product.PhotoContentType, nil
}

type mockCategoryRepository struct {
	categories map[uuid.UUID]*domain.Category
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{categories: make(map[uuid.UUID]*domain.Category)}
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	all := []*domain.Category{}
	for _, c := range m.categories {
		all = append(all, c)
	}
	return all, nil
}

func (m *mockCategoryRepository) FindBySlug(ctx context.Context, categorySlug string) (*domain.Category, error) {
	for _, c := range m.categories {
		if c.Slug == categorySlug {
			return c, nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

func validForm() *ProductForm {
	return &ProductForm{
		Name:        "Walnut Desk",
		Description: "A solid walnut standing desk",
		Price:       "349.99",
		CategoryID:  uuid.New().String(),
		Quantity:    "5",
	}
}

func newTestService() (ProductService, *mockProductRepository) {
	repo := newMockProductRepository()
	return NewProductService(repo, newMockCategoryRepository()), repo
}

func TestCreateComputesSlugFromName(t *testing.T) {
	svc, _ := newTestService()

	form := validForm()
	form.Name = "Red Running Shoes 42"

	product, err := svc.Create(context.Background(), form)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if product.Slug != "red-running-shoes-42" {
		t.Errorf("Expected slug %q, got %q", "red-running-shoes-42", product.Slug)
	}
}

func TestProperty_SlugIsDeterministicSlugificationOfName(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("created product slug equals the slugified name", prop.ForAll(
		func(name string) bool {
			if strings.TrimSpace(name) == "" {
				name = "fallback name"
			}

			svc, _ := newTestService()
			form := validForm()
			form.Name = name

			product, err := svc.Create(context.Background(), form)
			if err != nil {
				return false
			}

			return product.Slug == slug.Make(strings.TrimSpace(name))
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestValidationFailsOnFirstMissingFieldInOrder(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*ProductForm)
		expected string
	}{
		{"missing name", func(f *ProductForm) { f.Name = "" }, "name"},
		{"missing description", func(f *ProductForm) { f.Description = "  " }, "description"},
		{"missing price", func(f *ProductForm) { f.Price = "" }, "price"},
		{"negative price", func(f *ProductForm) { f.Price = "-3" }, "price"},
		{"non-numeric price", func(f *ProductForm) { f.Price = "cheap" }, "price"},
		{"missing category", func(f *ProductForm) { f.CategoryID = "" }, "category"},
		{"bad category id", func(f *ProductForm) { f.CategoryID = "not-a-uuid" }, "category"},
		{"missing quantity", func(f *ProductForm) { f.Quantity = "" }, "quantity"},
		{"negative quantity", func(f *ProductForm) { f.Quantity = "-1" }, "quantity"},
		{"oversized photo", func(f *ProductForm) { f.Photo = make([]byte, domain.MaxPhotoBytes+1) }, "photo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()
			form := validForm()
			tt.mutate(form)

			_, err := svc.Create(context.Background(), form)
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}

			fieldErr, ok := err.(*FieldError)
			if !ok {
				t.Fatalf("Expected *FieldError, got %T: %v", err, err)
			}
			if fieldErr.Field != tt.expected {
				t.Errorf("Expected failing field %q, got %q", tt.expected, fieldErr.Field)
			}
		})
	}
}

func TestValidationNamesEarliestFieldWhenSeveralMissing(t *testing.T) {
	svc, _ := newTestService()

	// Name comes before quantity in the validation order, so it must
	// be the reported failure even though both are missing.
	form := validForm()
	form.Name = ""
	form.Quantity = ""

	_, err := svc.Create(context.Background(), form)
	fieldErr, ok := err.(*FieldError)
	if !ok {
		t.Fatalf("Expected *FieldError, got %T", err)
	}
	if fieldErr.Field != "name" {
		t.Errorf("Expected field %q, got %q", "name", fieldErr.Field)
	}
}

func TestPhotoAtLimitIsAccepted(t *testing.T) {
	svc, _ := newTestService()

	form := validForm()
	form.Photo = make([]byte, domain.MaxPhotoBytes)
	form.PhotoContentType = "image/png"

	if _, err := svc.Create(context.Background(), form); err != nil {
		t.Fatalf("Expected photo at the byte limit to be accepted, got %v", err)
	}
}

func TestUpdateRecomputesSlugAndValidatesIncomingFields(t *testing.T) {
	svc, repo := newTestService()

	created, err := svc.Create(context.Background(), validForm())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	form := validForm()
	form.Name = "Oak Desk"
	updated, err := svc.Update(context.Background(), created.ID, form)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if updated.Slug != "oak-desk" {
		t.Errorf("Expected recomputed slug %q, got %q", "oak-desk", updated.Slug)
	}
	if repo.products[created.ID].Name != "Oak Desk" {
		t.Errorf("Expected stored name to be replaced")
	}

	// Validation applies to the incoming fields, not a merge with the
	// stored record.
	form = validForm()
	form.Description = ""
	_, err = svc.Update(context.Background(), created.ID, form)
	fieldErr, ok := err.(*FieldError)
	if !ok || fieldErr.Field != "description" {
		t.Errorf("Expected description validation error, got %v", err)
	}
}

func TestUpdateReturnsStoredCreatedAt(t *testing.T) {
	svc, _ := newTestService()

	created, err := svc.Create(context.Background(), validForm())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := svc.Update(context.Background(), created.ID, validForm())
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if updated.CreatedAt.IsZero() {
		t.Fatal("Updated record must carry the stored created_at, not a zero time")
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("Expected created_at %v to survive the update, got %v",
			created.CreatedAt, updated.CreatedAt)
	}
}

func TestUpdateMissingProductIsNotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Update(context.Background(), uuid.New(), validForm())
	if err != repository.ErrProductNotFound {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}

func TestDeleteMissingProductReturnsNilWithoutError(t *testing.T) {
	svc, _ := newTestService()

	product, err := svc.Delete(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Delete of missing id must not fail, got %v", err)
	}
	if product != nil {
		t.Errorf("Expected nil product, got %+v", product)
	}
}

func TestSearchRejectsEmptyKeyword(t *testing.T) {
	svc, _ := newTestService()

	for _, keyword := range []string{"", "   "} {
		_, err := svc.Search(context.Background(), keyword)
		fieldErr, ok := err.(*FieldError)
		if !ok || fieldErr.Field != "keyword" {
			t.Errorf("Expected keyword validation error for %q, got %v", keyword, err)
		}
	}
}

func TestPageClampsPagesBelowOne(t *testing.T) {
	svc, repo := newTestService()

	categoryID := uuid.New()
	base := time.Now()
	for i := 0; i < 5; i++ {
		id := uuid.New()
		repo.products[id] = &domain.Product{
			ID:         id,
			Name:       "p",
			CategoryID: categoryID,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
	}

	first, err := svc.Page(context.Background(), 1)
	if err != nil {
		t.Fatalf("Page failed: %v", err)
	}
	clamped, err := svc.Page(context.Background(), 0)
	if err != nil {
		t.Fatalf("Page failed: %v", err)
	}

	if len(first) != len(clamped) {
		t.Fatalf("Expected page 0 to behave like page 1")
	}
	for i := range first {
		if first[i].ID != clamped[i].ID {
			t.Errorf("Expected page 0 to behave like page 1")
		}
	}
}

func TestByCategorySlugUnknownSlugIsNotFound(t *testing.T) {
	svc, _ := newTestService()

	_, _, err := svc.ByCategorySlug(context.Background(), "no-such-category")
	if err != repository.ErrCategoryNotFound {
		t.Errorf("Expected ErrCategoryNotFound, got %v", err)
	}
}
