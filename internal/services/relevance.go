package services

import (
	"regexp"
	"strings"
	"unicode"
)

// Trade abbreviations, expanded token by token so "ea" inside a word is
// never touched.
var tradeAbbreviations = map[string]string{
	"t&e":  "twin and earth",
	"t+e":  "twin and earth",
	"te":   "twin and earth",
	"swa":  "steel wire armoured",
	"cu":   "consumer unit",
	"db":   "distribution board",
	"fcu":  "fused connection unit",
	"jb":   "junction box",
	"dp":   "double pole",
	"sp":   "single pole",
	"sw":   "switched",
	"skt":  "socket",
	"skts": "sockets",
	"dbl":  "double",
	"sgl":  "single",
	"galv": "galvanised",
	"ext":  "external",
	"wht":  "white",
	"blk":  "black",
	"ss":   "stainless steel",
}

var (
	gangPattern      = regexp.MustCompile(`^(\d)g$`)
	spacedRating     = regexp.MustCompile(`(\d)\s+(mm|a|amp|amps|w|v)\b`)
	ampSuffix        = regexp.MustCompile(`(\d)amps?\b`)
	squareMillimetre = regexp.MustCompile(`(\d)\s*(?:mm2|mm²|sq\s?mm)`)
)

// NormalizeItemName lowercases a name and expands trade abbreviations
func NormalizeItemName(name string) string {
	name = strings.ToLower(name)
	name = squareMillimetre.ReplaceAllString(name, "${1}mm")
	name = spacedRating.ReplaceAllString(name, "$1$2")
	name = ampSuffix.ReplaceAllString(name, "${1}a")

	var out []string
	for _, token := range tokenize(name) {
		if full, ok := tradeAbbreviations[token]; ok {
			out = append(out, full)
			continue
		}
		if m := gangPattern.FindStringSubmatch(token); len(m) == 2 {
			out = append(out, m[1]+" gang")
			continue
		}
		out = append(out, token)
	}
	return strings.Join(out, " ")
}

// tokenize splits on anything that is not part of a product term. Dots are
// kept for sizes like 2.5mm; & and + for t&e.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '&' && r != '+'
	})
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// stem strips simple English plurals so "outlets" matches "outlet"
func stem(token string) string {
	if len(token) <= 3 || hasDigit(token) {
		return token
	}
	switch {
	case strings.HasSuffix(token, "ss"):
		return token
	case strings.HasSuffix(token, "xes"), strings.HasSuffix(token, "ches"), strings.HasSuffix(token, "shes"):
		return strings.TrimSuffix(token, "es")
	case strings.HasSuffix(token, "s"):
		return strings.TrimSuffix(token, "s")
	}
	return token
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func termSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range tokenize(NormalizeItemName(s)) {
		set[stem(t)] = true
	}
	return set
}

// Relevance scores how well a catalog product name answers a query, in
// [0, 1]. It is the larger of query-term coverage and trigram similarity.
// Every size or rating in the query ("2.5mm", "13a") that the product lacks
// halves the score, so a 1.5mm cable never stands in for a 2.5mm one.
func Relevance(query, candidate string) float64 {
	q := termSet(query)
	if len(q) == 0 {
		return 0
	}
	c := termSet(candidate)

	covered := 0
	missingSpecs := 0
	for term := range q {
		if c[term] {
			covered++
		} else if hasDigit(term) {
			missingSpecs++
		}
	}

	score := float64(covered) / float64(len(q))
	if tri := TrigramSimilarity(NormalizeItemName(query), NormalizeItemName(candidate)); tri > score {
		score = tri
	}
	for i := 0; i < missingSpecs; i++ {
		score /= 2
	}
	return score
}

// TrigramSimilarity mirrors Postgres pg_trgm similarity(): each word is
// padded with two leading spaces and one trailing space, and the result is
// shared trigrams over all distinct trigrams.
func TrigramSimilarity(a, b string) float64 {
	ta, tb := trigrams(a), trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for t := range ta {
		if tb[t] {
			shared++
		}
	}
	return float64(shared) / float64(len(ta)+len(tb)-shared)
}

func trigrams(s string) map[string]bool {
	set := make(map[string]bool)
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		padded := []rune("  " + w + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = true
		}
	}
	return set
}
