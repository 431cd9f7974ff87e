package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/foxxcyber/trade-basket/internal/database"
	"github.com/foxxcyber/trade-basket/internal/middleware"
	"github.com/foxxcyber/trade-basket/internal/models"
	"github.com/foxxcyber/trade-basket/internal/services"
)

const (
	maxContentBytes = 64 * 1024
	maxPhotoBytes   = 10 * 1024 * 1024
)

// ParseMaterials previews how a materials list is read, without pricing it
func (h *Handler) ParseMaterials(c *fiber.Ctx) error {
	var req models.ParseMaterialsRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Content) > maxContentBytes {
		return Error(c, fiber.StatusRequestEntityTooLarge, "materials list is too long")
	}

	items, err := h.service.Parse(req.Content)
	if err != nil {
		return h.comparisonError(c, err)
	}

	return Success(c, models.ParseMaterialsResponse{
		Items:       items,
		TotalParsed: len(items),
	})
}

// Compare prices a typed materials list across suppliers. Signed-in users
// get the result saved to their history.
func (h *Handler) Compare(c *fiber.Ctx) error {
	var req models.CompareRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Content) > maxContentBytes {
		return Error(c, fiber.StatusRequestEntityTooLarge, "materials list is too long")
	}

	result, err := h.service.Compare(c.Context(), services.CompareInput{
		Text:      req.Content,
		Suppliers: req.Suppliers,
	})
	if err != nil {
		return h.comparisonError(c, err)
	}

	resp := models.ComparisonResponse{ComparisonResult: result}
	resp.ID = h.saveComparison(c, &database.SaveComparisonRequest{
		Title:     req.Title,
		Source:    models.SourceText,
		InputText: req.Content,
		Result:    result,
	})
	return Success(c, resp)
}

// ComparePhoto reads a photographed materials list and prices it
func (h *Handler) ComparePhoto(c *fiber.Ctx) error {
	if !h.service.HasExtractor() {
		return h.comparisonError(c, services.ErrPhotoUnsupported)
	}

	file, err := c.FormFile("image")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "image file is required")
	}
	if file.Size > maxPhotoBytes {
		return Error(c, fiber.StatusBadRequest, "file too large. Maximum size is 10MB")
	}

	src, err := file.Open()
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to read file")
	}
	defer src.Close()

	image, err := io.ReadAll(io.LimitReader(src, maxPhotoBytes+1))
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to read file")
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(image)
	}
	if !isValidImageType(contentType) {
		return Error(c, fiber.StatusBadRequest, "invalid image type. Supported: JPEG, PNG, WebP")
	}

	photo, photoURL := h.archivePhoto(c, file.Filename, image, contentType)

	text, err := h.service.ExtractText(c.Context(), image, contentType)
	if err != nil {
		h.markPhotoFailed(c, photo, err.Error())
		h.logger.Warn("photo extraction failed", "error", err)
		return Error(c, fiber.StatusBadGateway, "could not read the photo")
	}
	if photo != nil {
		if err := h.store.MarkPhotoExtracted(c.Context(), photo.ID, text); err != nil {
			h.logger.Warn("failed to record extracted text", "photo_id", photo.ID, "error", err)
		}
	}

	var suppliers []string
	if s := strings.TrimSpace(c.FormValue("suppliers")); s != "" {
		suppliers = strings.Split(s, ",")
	}

	result, err := h.service.Compare(c.Context(), services.CompareInput{Text: text, Suppliers: suppliers})
	if err != nil {
		return h.comparisonError(c, err)
	}

	save := &database.SaveComparisonRequest{
		Title:     c.FormValue("title"),
		Source:    models.SourcePhoto,
		InputText: text,
		Result:    result,
	}
	if photo != nil {
		save.PhotoID = &photo.ID
	}

	return Success(c, models.ComparisonResponse{
		ID:               h.saveComparison(c, save),
		ExtractedText:    text,
		PhotoURL:         photoURL,
		ComparisonResult: result,
	})
}

// saveComparison persists the result for signed-in users. Failure to save
// never fails the comparison itself.
func (h *Handler) saveComparison(c *fiber.Ctx, req *database.SaveComparisonRequest) *uuid.UUID {
	userID := middleware.GetUserID(c)
	if userID == "" || h.store == nil {
		return nil
	}
	req.UserID = userID

	saved, err := h.store.SaveComparison(c.Context(), req)
	if err != nil {
		h.logger.Warn("failed to save comparison", "user_id", userID, "error", err)
		return nil
	}
	return &saved.ID
}

// archivePhoto keeps the upload when storage is configured
func (h *Handler) archivePhoto(c *fiber.Ctx, filename string, image []byte, contentType string) (*models.PhotoUpload, string) {
	if h.photos == nil || h.store == nil {
		return nil, ""
	}

	userID := middleware.GetUserID(c)
	key := services.PhotoKey(userID, filename, time.Now())
	uploaded, err := h.photos.UploadPhoto(c.Context(), key, image, contentType)
	if err != nil {
		h.logger.Warn("failed to archive photo", "key", key, "error", err)
		return nil, ""
	}

	req := &models.CreatePhotoUploadRequest{
		S3Bucket:         uploaded.Bucket,
		S3Key:            key,
		OriginalFilename: filename,
		ContentType:      contentType,
		FileSizeBytes:    int64(len(image)),
		Retention:        h.cfg.PhotoRetention,
	}
	if userID != "" {
		req.UserID = &userID
	}
	photo, err := h.store.CreatePhotoUpload(c.Context(), req)
	if err != nil {
		h.logger.Warn("failed to record photo upload", "key", key, "error", err)
		return nil, ""
	}

	url, err := h.photos.GetPresignedURL(c.Context(), key, time.Hour)
	if err != nil {
		h.logger.Warn("failed to presign photo URL", "key", key, "error", err)
	}
	return photo, url
}

func (h *Handler) markPhotoFailed(c *fiber.Ctx, photo *models.PhotoUpload, reason string) {
	if photo == nil {
		return
	}
	if err := h.store.MarkPhotoFailed(c.Context(), photo.ID, reason); err != nil {
		h.logger.Warn("failed to record photo failure", "photo_id", photo.ID, "error", err)
	}
}

func isValidImageType(contentType string) bool {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp":
		return true
	}
	return false
}
