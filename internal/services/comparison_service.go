package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxxcyber/trade-basket/internal/catalog"
	"github.com/foxxcyber/trade-basket/internal/models"
)

// ErrPhotoUnsupported is returned when no text extractor is configured
var ErrPhotoUnsupported = errors.New("photo extraction is not configured")

// TextExtractor turns a photographed materials list into plain text
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte, contentType string) (string, error)
}

// CompareInput is one comparison request. Suppliers optionally restricts the
// search to the listed supplier slugs.
type CompareInput struct {
	Text      string
	Suppliers []string
}

// ComparisonService runs the full parse, match, optimise and assemble flow
type ComparisonService struct {
	parser    *MaterialsParser
	matcher   *SupplierMatcher
	optimiser *BasketOptimiser
	catalogs  catalog.Provider
	extractor TextExtractor
	logger    *slog.Logger
}

// NewComparisonService wires the pipeline. extractor may be nil, in which
// case photo comparisons are rejected with ErrPhotoUnsupported.
func NewComparisonService(
	parser *MaterialsParser,
	matcher *SupplierMatcher,
	optimiser *BasketOptimiser,
	catalogs catalog.Provider,
	extractor TextExtractor,
	logger *slog.Logger,
) *ComparisonService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComparisonService{
		parser:    parser,
		matcher:   matcher,
		optimiser: optimiser,
		catalogs:  catalogs,
		extractor: extractor,
		logger:    logger,
	}
}

// Parse exposes the parser on its own for list previews
func (s *ComparisonService) Parse(text string) ([]models.ParsedMaterialItem, error) {
	return s.parser.Parse(text)
}

// Compare parses free text and prices it across the supplier catalogs
func (s *ComparisonService) Compare(ctx context.Context, in CompareInput) (models.ComparisonResult, error) {
	items, err := s.parser.Parse(in.Text)
	if err != nil {
		return models.ComparisonResult{}, err
	}
	return s.CompareItems(ctx, items, in.Suppliers)
}

// CompareItems prices already-parsed items. Supplier failures never fail the
// comparison; the affected items simply have fewer candidates.
func (s *ComparisonService) CompareItems(ctx context.Context, items []models.ParsedMaterialItem, suppliers []string) (models.ComparisonResult, error) {
	start := time.Now()

	all, err := s.catalogs.Catalogs(ctx)
	if err != nil {
		return models.ComparisonResult{}, fmt.Errorf("failed to load supplier catalogs: %w", err)
	}
	catalogs := catalog.Filter(all, suppliers)
	if len(catalogs) == 0 {
		s.logger.Warn("no supplier catalogs to search", "requested", suppliers)
	}

	compared := s.matcher.MatchAll(ctx, items, catalogs)
	basket := s.optimiser.Optimise(compared)

	result, err := AssembleComparison(compared, basket)
	if err != nil {
		return models.ComparisonResult{}, err
	}

	s.logger.Info("comparison complete",
		"items", len(items),
		"suppliers", len(catalogs),
		"unsourced", basket.UnsourcedCount,
		"total", basket.Total.StringFixed(2),
		"savings", basket.Savings.StringFixed(2),
		"duration", time.Since(start),
	)
	return result, nil
}

// HasExtractor reports whether photo comparisons are available
func (s *ComparisonService) HasExtractor() bool {
	return s.extractor != nil
}

// ExtractText reads a materials list from a photo
func (s *ComparisonService) ExtractText(ctx context.Context, image []byte, contentType string) (string, error) {
	if s.extractor == nil {
		return "", ErrPhotoUnsupported
	}
	text, err := s.extractor.ExtractText(ctx, image, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from photo: %w", err)
	}
	return text, nil
}
