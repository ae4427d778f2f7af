package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"cartworks/internal/domain"
	"cartworks/internal/middleware"
	"cartworks/internal/repository"
	"cartworks/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxFormMemory bounds multipart parsing; the photo itself is capped
// separately at domain.MaxPhotoBytes.
const maxFormMemory = 4 << 20

// FilterRequest is the body of the product filter endpoint. Checked is
// a set of category ids, Radio an inclusive [low, high] price range.
// Either or both may be empty.
type FilterRequest struct {
	Checked []string  `json:"checked"`
	Radio   []float64 `json:"radio"`
}

// CategoryProductsResponse pairs a resolved category with its products.
type CategoryProductsResponse struct {
	Category *domain.Category  `json:"category"`
	Products []*domain.Product `json:"products"`
}

// CountResponse carries the approximate product total.
type CountResponse struct {
	Total int64 `json:"total"`
}

// ProductHandler handles HTTP requests for catalog operations
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all catalog routes. Mutations require an
// authenticated admin; reads are public.
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	// Public catalog reads
	r.Get("/getAll-products", h.ListAll)
	r.Get("/getsingle-product/{slug}", h.GetBySlug)
	r.Get("/product-photo/{pid}", h.Photo)
	r.Post("/product-filter", h.Filter)
	r.Get("/product-category/{slug}", h.ByCategorySlug)
	r.Get("/product-count", h.Count)
	r.Get("/product-list", h.Page)
	r.Get("/product-list/{page}", h.Page)
	r.Get("/search/{keyword}", h.Search)
	r.Get("/related-product/{pid}/{cid}", h.Related)
	r.Get("/categories", h.Categories)

	// Admin mutations
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(adminMiddleware)
		r.Post("/create-product", h.Create)
		r.Put("/update-product/{id}", h.Update)
		r.Delete("/delete-product/{id}", h.Delete)
	})
}

// Create handles product creation from a multipart form
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	form, ok := h.parseProductForm(w, r)
	if !ok {
		return
	}

	product, err := h.productService.Create(r.Context(), form)
	if err != nil {
		var fieldErr *service.FieldError
		if errors.As(err, &fieldErr) {
			middleware.RespondWithFieldError(w, fieldErr.Field, fieldErr.Message)
			return
		}

		h.logger.Error("Product creation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	h.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("slug", product.Slug),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Update handles a full replace of a product's mutable fields
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	form, ok := h.parseProductForm(w, r)
	if !ok {
		return
	}

	product, err := h.productService.Update(r.Context(), id, form)
	if err != nil {
		var fieldErr *service.FieldError
		if errors.As(err, &fieldErr) {
			middleware.RespondWithFieldError(w, fieldErr.Field, fieldErr.Message)
			return
		}
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}

		h.logger.Error("Product update failed", zap.Error(err), zap.String("product_id", id.String()))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	h.logger.Info("Product updated", zap.String("product_id", id.String()))
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete removes a product unconditionally. The response body is the
// record as it existed, or null when the id was already absent.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.productService.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("Product deletion failed", zap.Error(err), zap.String("product_id", id.String()))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", id.String()))
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// ListAll returns the newest products, capped at 12
func (h *ProductHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.ListAll(r.Context())
	if err != nil {
		h.logger.Error("Product listing failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// GetBySlug returns a single product by its slug
func (h *ProductHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	product, err := h.productService.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}

		h.logger.Error("Product lookup failed", zap.Error(err), zap.String("slug", slug))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to fetch product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Photo serves the raw photo bytes with the stored content type
func (h *ProductHandler) Photo(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "pid"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	photo, contentType, err := h.productService.Photo(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}

		h.logger.Error("Photo fetch failed", zap.Error(err), zap.String("product_id", id.String()))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to fetch photo")
		return
	}

	if len(photo) == 0 {
		middleware.RespondWithError(w, http.StatusNotFound, "photo not found")
		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(photo)
}

// Filter returns products matching a category set and/or price range
func (h *ProductHandler) Filter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Radio) != 0 && len(req.Radio) != 2 {
		middleware.RespondWithError(w, http.StatusBadRequest, "radio must be empty or [low, high]")
		return
	}

	categoryIDs := make([]uuid.UUID, 0, len(req.Checked))
	for _, raw := range req.Checked {
		id, err := uuid.Parse(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "checked must contain valid category ids")
			return
		}
		categoryIDs = append(categoryIDs, id)
	}

	products, err := h.productService.Filter(r.Context(), categoryIDs, req.Radio)
	if err != nil {
		h.logger.Error("Product filter failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to filter products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// ByCategorySlug resolves a category by slug and lists its products
func (h *ProductHandler) ByCategorySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	category, products, err := h.productService.ByCategorySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "category not found")
			return
		}

		h.logger.Error("Category products lookup failed", zap.Error(err), zap.String("slug", slug))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to fetch products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CategoryProductsResponse{
		Category: category,
		Products: products,
	})
}

// Count returns the approximate number of products
func (h *ProductHandler) Count(w http.ResponseWriter, r *http.Request) {
	total, err := h.productService.Count(r.Context())
	if err != nil {
		h.logger.Error("Product count failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to count products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CountResponse{Total: total})
}

// Page returns one fixed-size page of products. The page parameter
// defaults to 1 when absent; non-numeric values are rejected.
func (h *ProductHandler) Page(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := chi.URLParam(r, "page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			middleware.RespondWithFieldError(w, "page", "page must be a number")
			return
		}
		page = parsed
	}

	products, err := h.productService.Page(r.Context(), page)
	if err != nil {
		h.logger.Error("Product page failed", zap.Error(err), zap.Int("page", page))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// Search finds products by case-insensitive keyword match
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	keyword := chi.URLParam(r, "keyword")
	if unescaped, err := url.PathUnescape(keyword); err == nil {
		keyword = unescaped
	}

	products, err := h.productService.Search(r.Context(), keyword)
	if err != nil {
		var fieldErr *service.FieldError
		if errors.As(err, &fieldErr) {
			middleware.RespondWithFieldError(w, fieldErr.Field, fieldErr.Message)
			return
		}

		h.logger.Error("Product search failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to search products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// Related returns up to 4 other products in the same category
func (h *ProductHandler) Related(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "pid"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	categoryID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	products, err := h.productService.Related(r.Context(), productID, categoryID)
	if err != nil {
		h.logger.Error("Related products lookup failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to fetch related products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// Categories lists the category reference table
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.productService.Categories(r.Context())
	if err != nil {
		h.logger.Error("Category listing failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

// parseProductForm extracts the raw product fields and optional photo
// from a multipart request. Field presence and types are validated by
// the service in a fixed order; this only moves bytes.
func (h *ProductHandler) parseProductForm(w http.ResponseWriter, r *http.Request) (*service.ProductForm, bool) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return nil, false
	}

	form := &service.ProductForm{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Price:       r.FormValue("price"),
		CategoryID:  r.FormValue("category"),
		Quantity:    r.FormValue("quantity"),
		Shipping:    r.FormValue("shipping"),
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		if err != http.ErrMissingFile {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid photo upload")
			return nil, false
		}
		return form, true
	}
	defer file.Close()

	// Read at most one byte past the cap so the service can tell
	// "exactly at the limit" from "over it".
	photo, err := io.ReadAll(io.LimitReader(file, domain.MaxPhotoBytes+1))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid photo upload")
		return nil, false
	}

	form.Photo = photo
	form.PhotoContentType = header.Header.Get("Content-Type")

	return form, true
}
