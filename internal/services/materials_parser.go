package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/foxxcyber/trade-basket/internal/models"
)

// DefaultMaxItems caps how many lines a single materials list may yield
const DefaultMaxItems = 200

// DefaultUnit is used when a line carries no recognisable unit
const DefaultUnit = "each"

// MaterialsParser parses free-text materials lists, typed or OCR'd
type MaterialsParser struct {
	maxItems int

	decorationPattern    *regexp.Regexp
	leadingTimesPattern  *regexp.Regexp
	trailingTimesPattern *regexp.Regexp
	rangePattern         *regexp.Regexp
	mixedFractionPattern *regexp.Regexp
	fractionPattern      *regexp.Regexp
	quantityPattern      *regexp.Regexp
	unitPattern          *regexp.Regexp
	fillerPattern        *regexp.Regexp
	spacePattern         *regexp.Regexp
}

var unicodeFractions = map[rune]decimal.Decimal{
	'\u00BC': decimal.RequireFromString("0.25"),  // ¼
	'\u00BD': decimal.RequireFromString("0.5"),   // ½
	'\u00BE': decimal.RequireFromString("0.75"),  // ¾
	'\u215B': decimal.RequireFromString("0.125"), // ⅛
}

// Unit normalization map. Anything not listed is kept as written.
var unitNormalization = map[string]string{
	"metre":   "m",
	"metres":  "m",
	"meter":   "m",
	"meters":  "m",
	"mtr":     "m",
	"mtrs":    "m",
	"sqm":     "m2",
	"m²":      "m2",
	"length":  "length",
	"lengths": "length",
	"lgth":    "length",
	"box":     "box",
	"boxes":   "box",
	"bx":      "box",
	"pack":    "pack",
	"packs":   "pack",
	"pk":      "pack",
	"pkt":     "pack",
	"pkts":    "pack",
	"roll":    "roll",
	"rolls":   "roll",
	"coil":    "coil",
	"coils":   "coil",
	"each":    "each",
	"ea":      "each",
	"pc":      "each",
	"pcs":     "each",
	"piece":   "each",
	"pieces":  "each",
	"no":      "each",
	"no.":     "each",
	"nr":      "each",
	"off":     "each",
	"×":       "x",
}

// NewMaterialsParser creates a parser. maxItems <= 0 uses DefaultMaxItems.
func NewMaterialsParser(maxItems int) *MaterialsParser {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &MaterialsParser{
		maxItems: maxItems,

		// Bullets, markdown checkboxes and "1." / "1)" numbering
		decorationPattern: regexp.MustCompile(`^(?:[-*•+]\s*)?(?:\[[ xX]?\]\s*)?(?:\d+[.)]\s+)?`),

		// x5 sockets
		leadingTimesPattern: regexp.MustCompile(`(?i)^[x×]\s*(\d+(?:\.\d+)?)\s+`),

		// double socket x 4
		trailingTimesPattern: regexp.MustCompile(`(?i)\s+[x×]\s*(\d+(?:\.\d+)?)$`),

		rangePattern:         regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*-\s*(\d+(?:\.\d+)?)`),
		mixedFractionPattern: regexp.MustCompile(`^(\d+)\s+(\d+)/(\d+)`),
		fractionPattern:      regexp.MustCompile(`^(\d+)/(\d+)`),
		quantityPattern:      regexp.MustCompile(`^(\d+(?:\.\d+)?)`),

		// Longer alternatives first. "mm" is deliberately absent: 2.5mm is a
		// cable size, not a purchase unit.
		unitPattern: regexp.MustCompile(`(?i)^\s*(metres|metre|meters|meter|mtrs|mtr|lengths|length|lgth|pieces|piece|boxes|box|bx|packs|pack|pkts|pkt|pk|rolls|roll|coils|coil|each|pcs|pc|ea|nr|no\.?|off|sqm|m2|m²|m|x|×)(?:\s+|$)`),

		fillerPattern: regexp.MustCompile(`(?i)^of\s+`),
		spacePattern:  regexp.MustCompile(`\s+`),
	}
}

// Parse splits text into line items. Lines without a recognisable quantity
// default to 1 each. Items are never merged.
func (p *MaterialsParser) Parse(text string) ([]models.ParsedMaterialItem, error) {
	if !utf8.ValidString(text) {
		return nil, &ParseError{Reason: "input is not valid UTF-8 text"}
	}
	text = strings.TrimPrefix(text, "\ufeff")
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Reason: "input is empty"}
	}

	var items []models.ParsedMaterialItem
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}

		item, ok := p.parseLine(line)
		if !ok {
			continue
		}
		items = append(items, item)
		if len(items) > p.maxItems {
			return nil, &ParseError{Reason: "too many items in one list"}
		}
	}

	if len(items) == 0 {
		return nil, &ParseError{Reason: "no items found"}
	}
	return items, nil
}

func (p *MaterialsParser) parseLine(line string) (models.ParsedMaterialItem, bool) {
	content := strings.TrimSpace(p.decorationPattern.ReplaceAllString(line, ""))

	remaining, quantity, unit, found := p.extractQuantity(content)
	if !found {
		remaining, quantity, unit = p.extractTrailingQuantity(content)
	}

	name := p.cleanName(remaining)
	if name == "" || !quantity.IsPositive() {
		return models.ParsedMaterialItem{}, false
	}

	return models.ParsedMaterialItem{
		Name:         name,
		Quantity:     quantity,
		Unit:         unit,
		OriginalText: line,
	}, true
}

// extractQuantity reads a leading quantity and optional unit. A number only
// counts as a quantity when followed by a unit, whitespace or end of line,
// so "13A spur" and "2.5mm cable" are left intact.
func (p *MaterialsParser) extractQuantity(s string) (string, decimal.Decimal, string, bool) {
	if m := p.leadingTimesPattern.FindStringSubmatch(s); len(m) == 2 {
		qty, err := decimal.NewFromString(m[1])
		if err == nil {
			return s[len(m[0]):], qty, "x", true
		}
	}

	qty, rest, ok := p.numberPrefix(s)
	if !ok {
		return s, decimal.Decimal{}, "", false
	}

	if m := p.unitPattern.FindStringSubmatch(rest); len(m) == 2 {
		return rest[len(m[0]):], qty, normalizeUnit(m[1]), true
	}
	if rest == "" || rest[0] == ' ' || rest[0] == '\t' {
		return rest, qty, DefaultUnit, true
	}
	return s, decimal.Decimal{}, "", false
}

// numberPrefix handles ranges, fractions and plain numbers
func (p *MaterialsParser) numberPrefix(s string) (decimal.Decimal, string, bool) {
	// 2-3 boxes: buy the upper bound
	if m := p.rangePattern.FindStringSubmatch(s); len(m) == 3 {
		low, errLow := decimal.NewFromString(m[1])
		high, errHigh := decimal.NewFromString(m[2])
		if errLow == nil && errHigh == nil {
			return decimal.Max(low, high), s[len(m[0]):], true
		}
	}

	if m := p.mixedFractionPattern.FindStringSubmatch(s); len(m) == 4 {
		if frac, ok := fraction(m[2], m[3]); ok {
			return decimal.RequireFromString(m[1]).Add(frac), s[len(m[0]):], true
		}
	}

	if m := p.fractionPattern.FindStringSubmatch(s); len(m) == 3 {
		if frac, ok := fraction(m[1], m[2]); ok {
			return frac, s[len(m[0]):], true
		}
	}

	if r, size := utf8.DecodeRuneInString(s); size > 0 {
		if frac, ok := unicodeFractions[r]; ok {
			return frac, s[size:], true
		}
	}

	m := p.quantityPattern.FindStringSubmatch(s)
	if len(m) != 2 {
		return decimal.Decimal{}, s, false
	}
	qty, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Decimal{}, s, false
	}
	rest := s[len(m[0]):]

	// 1½ or 1 ½
	trimmed := strings.TrimLeft(rest, " ")
	if r, size := utf8.DecodeRuneInString(trimmed); size > 0 {
		if frac, ok := unicodeFractions[r]; ok {
			return qty.Add(frac), trimmed[size:], true
		}
	}
	return qty, rest, true
}

func (p *MaterialsParser) extractTrailingQuantity(s string) (string, decimal.Decimal, string) {
	if m := p.trailingTimesPattern.FindStringSubmatch(s); len(m) == 2 {
		if qty, err := decimal.NewFromString(m[1]); err == nil {
			return s[:len(s)-len(m[0])], qty, "x"
		}
	}
	return s, decimal.NewFromInt(1), DefaultUnit
}

func (p *MaterialsParser) cleanName(s string) string {
	s = strings.TrimSpace(s)
	s = p.fillerPattern.ReplaceAllString(s, "")
	s = strings.TrimRight(s, ".,;:-_")
	s = p.spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func normalizeUnit(unit string) string {
	unit = strings.ToLower(unit)
	if normalized, ok := unitNormalization[unit]; ok {
		return normalized
	}
	return unit
}

func fraction(num, denom string) (decimal.Decimal, bool) {
	n, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(denom)
	if err != nil || d.IsZero() {
		return decimal.Decimal{}, false
	}
	return n.DivRound(d, 3), true
}
