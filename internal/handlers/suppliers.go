package handlers

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/foxxcyber/trade-basket/internal/cache"
	"github.com/foxxcyber/trade-basket/internal/database"
	"github.com/foxxcyber/trade-basket/internal/models"
)

const maxProductsPerUpload = 5000

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ListSuppliers returns every registered supplier
func (h *Handler) ListSuppliers(c *fiber.Ctx) error {
	suppliers, err := h.store.ListSuppliers(c.Context())
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to fetch suppliers")
	}
	if suppliers == nil {
		suppliers = []*models.SupplierWithStats{}
	}
	return Success(c, suppliers)
}

// GetSupplier returns one supplier
func (h *Handler) GetSupplier(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid supplier ID")
	}

	supplier, err := h.store.GetSupplierByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrSupplierNotFound) {
			return Error(c, fiber.StatusNotFound, "supplier not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to fetch supplier")
	}
	return Success(c, supplier)
}

// CreateSupplier registers a supplier (admin only)
func (h *Handler) CreateSupplier(c *fiber.Ctx) error {
	var req models.CreateSupplierRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Slug = strings.ToLower(strings.TrimSpace(req.Slug))
	if strings.TrimSpace(req.Name) == "" {
		return Error(c, fiber.StatusBadRequest, "name is required")
	}
	if !slugPattern.MatchString(req.Slug) {
		return Error(c, fiber.StatusBadRequest, "slug must be lowercase letters, digits and dashes")
	}
	if err := validateCatalog(req.CatalogType, req.Endpoint); err != nil {
		return Error(c, fiber.StatusBadRequest, err.Error())
	}
	if req.RateLimitRPS < 0 {
		return Error(c, fiber.StatusBadRequest, "rate_limit_rps must not be negative")
	}

	supplier, err := h.store.CreateSupplier(c.Context(), &req)
	if err != nil {
		if errors.Is(err, database.ErrSupplierExists) {
			return Error(c, fiber.StatusConflict, err.Error())
		}
		return Error(c, fiber.StatusInternalServerError, "failed to create supplier")
	}

	h.suppliersChanged(c, supplier.Slug)
	return c.Status(fiber.StatusCreated).JSON(APIResponse{
		Success: true,
		Data:    supplier,
	})
}

// UpdateSupplier changes a supplier (admin only)
func (h *Handler) UpdateSupplier(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid supplier ID")
	}

	var req models.UpdateSupplierRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.RateLimitRPS != nil && *req.RateLimitRPS < 0 {
		return Error(c, fiber.StatusBadRequest, "rate_limit_rps must not be negative")
	}

	if req.CatalogType != nil || req.Endpoint != nil {
		current, err := h.store.GetSupplierByID(c.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrSupplierNotFound) {
				return Error(c, fiber.StatusNotFound, "supplier not found")
			}
			return Error(c, fiber.StatusInternalServerError, "failed to fetch supplier")
		}
		catalogType, endpoint := current.CatalogType, current.Endpoint
		if req.CatalogType != nil {
			catalogType = *req.CatalogType
		}
		if req.Endpoint != nil {
			endpoint = *req.Endpoint
		}
		if err := validateCatalog(catalogType, endpoint); err != nil {
			return Error(c, fiber.StatusBadRequest, err.Error())
		}
	}

	supplier, err := h.store.UpdateSupplier(c.Context(), id, &req)
	if err != nil {
		if errors.Is(err, database.ErrSupplierNotFound) {
			return Error(c, fiber.StatusNotFound, "supplier not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to update supplier")
	}

	h.suppliersChanged(c, supplier.Slug)
	return Success(c, supplier)
}

// DeleteSupplier removes a supplier and its stored catalog (admin only)
func (h *Handler) DeleteSupplier(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid supplier ID")
	}

	supplier, err := h.store.GetSupplierByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrSupplierNotFound) {
			return Error(c, fiber.StatusNotFound, "supplier not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to fetch supplier")
	}

	if err := h.store.DeleteSupplier(c.Context(), id); err != nil {
		if errors.Is(err, database.ErrSupplierNotFound) {
			return Error(c, fiber.StatusNotFound, "supplier not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to delete supplier")
	}

	h.suppliersChanged(c, supplier.Slug)
	return Success(c, fiber.Map{"message": "supplier deleted"})
}

// UpsertSupplierProducts loads products into a database-backed catalog
// (admin only). Invalid rows are reported and skipped.
func (h *Handler) UpsertSupplierProducts(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid supplier ID")
	}

	var req models.UpsertProductsRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Products) == 0 {
		return Error(c, fiber.StatusBadRequest, "products are required")
	}
	if len(req.Products) > maxProductsPerUpload {
		return Error(c, fiber.StatusBadRequest, fmt.Sprintf("at most %d products per upload", maxProductsPerUpload))
	}

	supplier, err := h.store.GetSupplierByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrSupplierNotFound) {
			return Error(c, fiber.StatusNotFound, "supplier not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to fetch supplier")
	}
	if supplier.CatalogType != models.CatalogTypeDatabase {
		return Error(c, fiber.StatusBadRequest, "supplier does not use a database catalog")
	}

	resp := models.UpsertProductsResponse{}
	valid := make([]models.UpsertProductRequest, 0, len(req.Products))
	for i, p := range req.Products {
		p.ProductCode = strings.TrimSpace(p.ProductCode)
		p.Name = strings.TrimSpace(p.Name)
		if err := p.Validate(); err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("product %d: %v", i+1, err))
			continue
		}
		valid = append(valid, p)
	}

	if len(valid) > 0 {
		n, err := h.store.UpsertSupplierProducts(c.Context(), id, valid)
		if err != nil {
			h.logger.Error("catalog upload failed", "supplier", supplier.Slug, "error", err)
			return Error(c, fiber.StatusInternalServerError, "failed to store products")
		}
		resp.Upserted = n
	}

	h.invalidateSupplier(c, supplier.Slug)
	return Success(c, resp)
}

// ClearCache drops every cached catalog lookup (admin only)
func (h *Handler) ClearCache(c *fiber.Ctx) error {
	if h.cache == nil {
		return Error(c, fiber.StatusServiceUnavailable, "cache is disabled")
	}
	removed, err := h.cache.Clear(c.Context())
	if err != nil {
		h.logger.Error("cache clear failed", "error", err)
		return Error(c, fiber.StatusInternalServerError, "failed to clear cache")
	}
	return Success(c, fiber.Map{"removed": removed})
}

// InvalidateSupplierCache drops one supplier's cached lookups (admin only)
func (h *Handler) InvalidateSupplierCache(c *fiber.Ctx) error {
	slug := strings.ToLower(strings.TrimSpace(c.Params("slug")))
	if !slugPattern.MatchString(slug) {
		return Error(c, fiber.StatusBadRequest, "invalid supplier slug")
	}
	if h.cache == nil {
		return Error(c, fiber.StatusServiceUnavailable, "cache is disabled")
	}

	removed, err := h.cache.DeletePrefix(c.Context(), cache.SupplierPrefix(slug))
	if err != nil {
		h.logger.Error("cache invalidation failed", "supplier", slug, "error", err)
		return Error(c, fiber.StatusInternalServerError, "failed to invalidate cache")
	}
	return Success(c, fiber.Map{"supplier": slug, "removed": removed})
}

// suppliersChanged rebuilds catalogs on the next comparison and drops stale
// lookups for the supplier
func (h *Handler) suppliersChanged(c *fiber.Ctx, slug string) {
	if h.catalogs != nil {
		h.catalogs.Reset()
	}
	h.invalidateSupplier(c, slug)
}

func (h *Handler) invalidateSupplier(c *fiber.Ctx, slug string) {
	if h.cache == nil {
		return
	}
	if _, err := h.cache.DeletePrefix(c.Context(), cache.SupplierPrefix(slug)); err != nil {
		h.logger.Warn("cache invalidation failed", "supplier", slug, "error", err)
	}
}

func validateCatalog(t models.CatalogType, endpoint string) error {
	if !t.Valid() {
		return fmt.Errorf("catalog_type must be one of database, json_api, html")
	}
	if t != models.CatalogTypeDatabase && strings.TrimSpace(endpoint) == "" {
		return fmt.Errorf("endpoint is required for %s catalogs", t)
	}
	return nil
}
