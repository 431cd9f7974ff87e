package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/foxxcyber/trade-basket/internal/middleware"
)

// Routes registers the API on app. limit guards the compare endpoints and
// may be nil.
func (h *Handler) Routes(app fiber.Router, limit fiber.Handler) {
	if limit == nil {
		limit = func(c *fiber.Ctx) error { return c.Next() }
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	optional := middleware.AuthOptional(h.cfg)
	required := middleware.AuthRequired(h.cfg)

	api.Post("/materials/parse", optional, h.ParseMaterials)
	api.Post("/compare", optional, limit, h.Compare)
	api.Post("/compare/photo", optional, limit, h.ComparePhoto)

	admin := api.Group("/admin", required, middleware.AdminRequired())
	admin.Delete("/cache", h.ClearCache)
	admin.Delete("/cache/suppliers/:slug", h.InvalidateSupplierCache)

	if h.store == nil {
		return
	}

	comparisons := api.Group("/comparisons", required)
	comparisons.Get("/", h.ListComparisons)
	comparisons.Get("/:id", h.GetComparison)
	comparisons.Delete("/:id", h.DeleteComparison)

	api.Get("/suppliers", h.ListSuppliers)
	api.Get("/suppliers/:id", h.GetSupplier)

	admin.Post("/suppliers", h.CreateSupplier)
	admin.Put("/suppliers/:id", h.UpdateSupplier)
	admin.Delete("/suppliers/:id", h.DeleteSupplier)
	admin.Post("/suppliers/:id/products", h.UpsertSupplierProducts)
}
