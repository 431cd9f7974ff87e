package models

import (
	"time"

	"github.com/google/uuid"
)

// PhotoStatus represents the processing status of an uploaded materials photo
type PhotoStatus string

const (
	PhotoStatusPending   PhotoStatus = "pending"
	PhotoStatusExtracted PhotoStatus = "extracted"
	PhotoStatusFailed    PhotoStatus = "failed"
)

// PhotoUpload represents a photographed materials list kept in object storage
type PhotoUpload struct {
	ID               uuid.UUID   `json:"id"`
	UserID           *string     `json:"user_id,omitempty"`
	S3Bucket         string      `json:"s3_bucket"`
	S3Key            string      `json:"s3_key"`
	OriginalFilename *string     `json:"original_filename,omitempty"`
	ContentType      string      `json:"content_type"`
	FileSizeBytes    int64       `json:"file_size_bytes"`
	Status           PhotoStatus `json:"status"`
	ExtractedText    *string     `json:"extracted_text,omitempty"`
	ErrorMessage     *string     `json:"error_message,omitempty"`
	UploadedAt       time.Time   `json:"uploaded_at"`
	ExpiresAt        time.Time   `json:"expires_at"`
}

// CreatePhotoUploadRequest is used when archiving an uploaded photo
type CreatePhotoUploadRequest struct {
	UserID           *string
	S3Bucket         string
	S3Key            string
	OriginalFilename string
	ContentType      string
	FileSizeBytes    int64
	Retention        time.Duration
}
