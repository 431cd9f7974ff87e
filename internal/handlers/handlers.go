package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/foxxcyber/trade-basket/internal/cache"
	"github.com/foxxcyber/trade-basket/internal/config"
	"github.com/foxxcyber/trade-basket/internal/database"
	"github.com/foxxcyber/trade-basket/internal/models"
	"github.com/foxxcyber/trade-basket/internal/services"
)

// Store is the persistence the handlers need. *database.DB implements it.
type Store interface {
	SaveComparison(ctx context.Context, req *database.SaveComparisonRequest) (*models.SavedComparison, error)
	ListComparisons(ctx context.Context, userID string, limit, offset int) ([]*models.SavedComparisonSummary, int, error)
	GetComparison(ctx context.Context, id uuid.UUID, userID string) (*models.SavedComparison, error)
	DeleteComparison(ctx context.Context, id uuid.UUID, userID string) error

	ListSuppliers(ctx context.Context) ([]*models.SupplierWithStats, error)
	GetSupplierByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	CreateSupplier(ctx context.Context, req *models.CreateSupplierRequest) (*models.Supplier, error)
	UpdateSupplier(ctx context.Context, id uuid.UUID, req *models.UpdateSupplierRequest) (*models.Supplier, error)
	DeleteSupplier(ctx context.Context, id uuid.UUID) error
	UpsertSupplierProducts(ctx context.Context, supplierID uuid.UUID, products []models.UpsertProductRequest) (int, error)

	CreatePhotoUpload(ctx context.Context, req *models.CreatePhotoUploadRequest) (*models.PhotoUpload, error)
	GetPhotoUpload(ctx context.Context, id uuid.UUID) (*models.PhotoUpload, error)
	MarkPhotoExtracted(ctx context.Context, id uuid.UUID, text string) error
	MarkPhotoFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// PhotoArchive keeps uploaded photos. *services.StorageService implements it.
type PhotoArchive interface {
	UploadPhoto(ctx context.Context, key string, image []byte, contentType string) (*services.UploadResult, error)
	GetPresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	GetBucketName() string
}

// CatalogResetter drops built supplier catalogs after a supplier changes
type CatalogResetter interface {
	Reset()
}

// Deps are the handler dependencies. Store, Photos and Catalogs may be nil:
// without a store comparisons are not saved and admin routes are not served.
type Deps struct {
	Config   *config.Config
	Service  *services.ComparisonService
	Store    Store
	Cache    cache.Cache
	Catalogs CatalogResetter
	Photos   PhotoArchive
	Logger   *slog.Logger
}

// Handler holds all handler dependencies
type Handler struct {
	cfg      *config.Config
	service  *services.ComparisonService
	store    Store
	cache    cache.Cache
	catalogs CatalogResetter
	photos   PhotoArchive
	logger   *slog.Logger
}

// New creates a new Handler instance
func New(deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cfg:      deps.Config,
		service:  deps.Service,
		store:    deps.Store,
		cache:    deps.Cache,
		catalogs: deps.Catalogs,
		photos:   deps.Photos,
		logger:   logger,
	}
}

// ErrorHandler is a custom error handler for Fiber
func ErrorHandler(c *fiber.Ctx, err error) error {
	// Default to 500
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(APIResponse{
		Success: false,
		Error:   message,
	})
}

// APIResponse is a standard API response structure
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Meta contains pagination metadata
type Meta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Success returns a successful response
func Success(c *fiber.Ctx, data interface{}) error {
	return c.JSON(APIResponse{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMeta returns a successful response with pagination
func SuccessWithMeta(c *fiber.Ctx, data interface{}, total, limit, offset int) error {
	return c.JSON(APIResponse{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Total:  total,
			Limit:  limit,
			Offset: offset,
		},
	})
}

// Error returns an error response
func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Error:   message,
	})
}

// comparisonError maps pipeline errors to responses. Parse errors are the
// caller's fault; an invalid quantity means the pipeline itself is broken.
func (h *Handler) comparisonError(c *fiber.Ctx, err error) error {
	var parseErr *services.ParseError
	switch {
	case errors.As(err, &parseErr):
		return Error(c, fiber.StatusUnprocessableEntity, parseErr.Error())
	case errors.Is(err, services.ErrInvalidQuantity):
		h.logger.Error("comparison produced an invalid quantity", "error", err)
		return Error(c, fiber.StatusInternalServerError, "failed to assemble comparison")
	case errors.Is(err, services.ErrPhotoUnsupported):
		return Error(c, fiber.StatusNotImplemented, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Error(c, fiber.StatusServiceUnavailable, "comparison timed out")
	}
	h.logger.Error("comparison failed", "error", err)
	return Error(c, fiber.StatusInternalServerError, "failed to compare materials")
}

func paging(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", 20)
	offset = c.QueryInt("offset", 0)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
