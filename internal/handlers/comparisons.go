package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/foxxcyber/trade-basket/internal/database"
	"github.com/foxxcyber/trade-basket/internal/middleware"
	"github.com/foxxcyber/trade-basket/internal/models"
)

// ListComparisons returns the caller's saved comparisons, newest first
func (h *Handler) ListComparisons(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	limit, offset := paging(c)
	comparisons, total, err := h.store.ListComparisons(c.Context(), userID, limit, offset)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to fetch comparisons")
	}

	return SuccessWithMeta(c, comparisons, total, limit, offset)
}

// GetComparison returns one saved comparison with its full result
func (h *Handler) GetComparison(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid comparison ID")
	}

	comparison, err := h.store.GetComparison(c.Context(), id, userID)
	if err != nil {
		if errors.Is(err, database.ErrComparisonNotFound) {
			return Error(c, fiber.StatusNotFound, "comparison not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to fetch comparison")
	}

	resp := savedComparisonResponse{SavedComparison: comparison}
	if comparison.PhotoID != nil {
		resp.PhotoURL = h.photoURL(c, *comparison.PhotoID)
	}
	return Success(c, resp)
}

type savedComparisonResponse struct {
	*models.SavedComparison
	PhotoURL string `json:"photo_url,omitempty"`
}

// photoURL links the archived photo while it is retained, or returns ""
func (h *Handler) photoURL(c *fiber.Ctx, photoID uuid.UUID) string {
	if h.photos == nil {
		return ""
	}
	photo, err := h.store.GetPhotoUpload(c.Context(), photoID)
	if err != nil {
		if !errors.Is(err, database.ErrPhotoNotFound) {
			h.logger.Warn("failed to load photo upload", "photo_id", photoID, "error", err)
		}
		return ""
	}
	if time.Now().After(photo.ExpiresAt) {
		return ""
	}
	url, err := h.photos.GetPresignedURL(c.Context(), photo.S3Key, time.Hour)
	if err != nil {
		h.logger.Warn("failed to presign photo URL", "key", photo.S3Key, "error", err)
		return ""
	}
	return url
}

// DeleteComparison removes one saved comparison
func (h *Handler) DeleteComparison(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid comparison ID")
	}

	if err := h.store.DeleteComparison(c.Context(), id, userID); err != nil {
		if errors.Is(err, database.ErrComparisonNotFound) {
			return Error(c, fiber.StatusNotFound, "comparison not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to delete comparison")
	}

	return Success(c, fiber.Map{"message": "comparison deleted"})
}
