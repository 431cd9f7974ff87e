package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/foxxcyber/trade-basket/internal/models"
)

var ErrPhotoNotFound = errors.New("photo upload not found")

const photoColumns = `id, user_id, s3_bucket, s3_key, original_filename, content_type, file_size_bytes,
	status, extracted_text, error_message, uploaded_at, expires_at`

func scanPhoto(row pgx.Row) (*models.PhotoUpload, error) {
	p := &models.PhotoUpload{}
	err := row.Scan(
		&p.ID, &p.UserID, &p.S3Bucket, &p.S3Key, &p.OriginalFilename, &p.ContentType, &p.FileSizeBytes,
		&p.Status, &p.ExtractedText, &p.ErrorMessage, &p.UploadedAt, &p.ExpiresAt,
	)
	return p, err
}

// CreatePhotoUpload records an archived photo
func (db *DB) CreatePhotoUpload(ctx context.Context, req *models.CreatePhotoUploadRequest) (*models.PhotoUpload, error) {
	var filename *string
	if req.OriginalFilename != "" {
		filename = &req.OriginalFilename
	}

	return scanPhoto(db.Pool.QueryRow(ctx, `
		INSERT INTO photo_uploads (user_id, s3_bucket, s3_key, original_filename, content_type, file_size_bytes, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7)
		RETURNING `+photoColumns,
		req.UserID, req.S3Bucket, req.S3Key, filename, req.ContentType, req.FileSizeBytes,
		time.Now().Add(req.Retention),
	))
}

// GetPhotoUpload retrieves an archived photo record
func (db *DB) GetPhotoUpload(ctx context.Context, id uuid.UUID) (*models.PhotoUpload, error) {
	p, err := scanPhoto(db.Pool.QueryRow(ctx, `SELECT `+photoColumns+` FROM photo_uploads WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPhotoNotFound
		}
		return nil, err
	}
	return p, nil
}

// MarkPhotoExtracted stores the text read from a photo
func (db *DB) MarkPhotoExtracted(ctx context.Context, id uuid.UUID, text string) error {
	return db.setPhotoStatus(ctx, id, models.PhotoStatusExtracted, &text, nil)
}

// MarkPhotoFailed records why extraction failed
func (db *DB) MarkPhotoFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return db.setPhotoStatus(ctx, id, models.PhotoStatusFailed, nil, &reason)
}

func (db *DB) setPhotoStatus(ctx context.Context, id uuid.UUID, status models.PhotoStatus, text, reason *string) error {
	result, err := db.Pool.Exec(ctx, `
		UPDATE photo_uploads SET status = $2, extracted_text = $3, error_message = $4
		WHERE id = $1
	`, id, status, text, reason)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrPhotoNotFound
	}
	return nil
}

// DeleteExpiredPhotoUploads removes expired records and returns their
// object keys so the caller can purge storage
func (db *DB) DeleteExpiredPhotoUploads(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `
		DELETE FROM photo_uploads
		WHERE expires_at < $1
		RETURNING s3_key
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
