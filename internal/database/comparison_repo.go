package database

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/foxxcyber/trade-basket/internal/models"
)

var ErrComparisonNotFound = errors.New("comparison not found")

// SaveComparisonRequest holds what is persisted for one comparison
type SaveComparisonRequest struct {
	UserID    string
	Title     string
	Source    string
	InputText string
	PhotoID   *uuid.UUID
	Result    models.ComparisonResult
}

// SaveComparison persists a comparison result for a user
func (db *DB) SaveComparison(ctx context.Context, req *SaveComparisonRequest) (*models.SavedComparison, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultComparisonTitle(req.Result)
	}

	c := &models.SavedComparison{
		UserID:    req.UserID,
		Title:     title,
		Source:    req.Source,
		InputText: req.InputText,
		PhotoID:   req.PhotoID,
		Result:    req.Result,
		Total:     req.Result.OptimisedBasket.Total,
		Savings:   req.Result.OptimisedBasket.Savings,
		ItemCount: len(req.Result.Items),
	}

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO comparisons (user_id, title, source, input_text, photo_id, result, total, savings, item_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, c.UserID, c.Title, c.Source, c.InputText, c.PhotoID, c.Result, c.Total, c.Savings, c.ItemCount,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func defaultComparisonTitle(r models.ComparisonResult) string {
	if len(r.Items) == 0 {
		return "Materials comparison"
	}
	title := r.Items[0].Name
	if len(r.Items) > 1 {
		title += " and more"
	}
	if r := []rune(title); len(r) > 255 {
		title = string(r[:255])
	}
	return title
}

// ListComparisons returns a page of a user's saved comparisons, newest first
func (db *DB) ListComparisons(ctx context.Context, userID string, limit, offset int) ([]*models.SavedComparisonSummary, int, error) {
	var total int
	err := db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM comparisons WHERE user_id = $1", userID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, title, source, total, savings, item_count, created_at
		FROM comparisons
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var comparisons []*models.SavedComparisonSummary
	for rows.Next() {
		c := &models.SavedComparisonSummary{}
		if err := rows.Scan(&c.ID, &c.Title, &c.Source, &c.Total, &c.Savings, &c.ItemCount, &c.CreatedAt); err != nil {
			return nil, 0, err
		}
		comparisons = append(comparisons, c)
	}
	return comparisons, total, rows.Err()
}

// GetComparison retrieves one of a user's saved comparisons
func (db *DB) GetComparison(ctx context.Context, id uuid.UUID, userID string) (*models.SavedComparison, error) {
	c := &models.SavedComparison{}
	err := db.Pool.QueryRow(ctx, `
		SELECT id, user_id, title, source, input_text, photo_id, result, total, savings, item_count, created_at
		FROM comparisons
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(
		&c.ID, &c.UserID, &c.Title, &c.Source, &c.InputText, &c.PhotoID,
		&c.Result, &c.Total, &c.Savings, &c.ItemCount, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrComparisonNotFound
		}
		return nil, err
	}
	return c, nil
}

// DeleteComparison removes one of a user's saved comparisons
func (db *DB) DeleteComparison(ctx context.Context, id uuid.UUID, userID string) error {
	result, err := db.Pool.Exec(ctx, "DELETE FROM comparisons WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrComparisonNotFound
	}
	return nil
}
