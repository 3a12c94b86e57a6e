package fingerprint

import (
	"regexp"
	"sort"
	"strings"

	"github.com/bellwether-dev/bellwether/canon"
)

// ErrorCategory classifies a normalized error string.
type ErrorCategory string

const (
	ErrorValidation ErrorCategory = "validation"
	ErrorNotFound   ErrorCategory = "not_found"
	ErrorPermission ErrorCategory = "permission"
	ErrorTimeout    ErrorCategory = "timeout"
	ErrorRateLimit  ErrorCategory = "rate_limit"
	ErrorInternal   ErrorCategory = "internal"
	ErrorOther      ErrorCategory = "other"
)

// ErrorPattern groups together samples that produced the same normalized
// error text.
type ErrorPattern struct {
	Category    ErrorCategory `json:"category"`
	PatternHash string        `json:"patternHash"`
	Example     string        `json:"example"`
	Count       int           `json:"count"`
}

const maxExampleLen = 200

var (
	uuidRe      = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	urlRe       = regexp.MustCompile(`https?://\S+`)
	pathRe      = regexp.MustCompile(`(?:[./][\w.\-]+)+/[\w.\-]+`)
	timestampRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?`)
	quotedRe    = regexp.MustCompile(`"[^"]*"|'[^']*'`)
	numberRe    = regexp.MustCompile(`\b\d+\b`)
)

// keyword priority, highest first: validation > not_found > permission >
// timeout > rate_limit > internal > other.
var categoryKeywords = []struct {
	category ErrorCategory
	keywords []string
}{
	{ErrorValidation, []string{"validation", "invalid", "required field", "must be", "schema"}},
	{ErrorNotFound, []string{"not found", "does not exist", "no such", "404"}},
	{ErrorPermission, []string{"permission", "forbidden", "unauthorized", "access denied", "403", "401"}},
	{ErrorTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{ErrorRateLimit, []string{"rate limit", "too many requests", "429", "throttl"}},
	{ErrorInternal, []string{"internal", "panic", "unexpected", "500"}},
}

// normalize lowercases, replaces volatile substrings with canonical
// placeholders, and truncates to maxExampleLen characters.
func normalize(raw string) string {
	s := strings.ToLower(raw)
	s = timestampRe.ReplaceAllString(s, "<ts>")
	s = uuidRe.ReplaceAllString(s, "<uuid>")
	s = urlRe.ReplaceAllString(s, "<url>")
	s = quotedRe.ReplaceAllString(s, "<str>")
	s = pathRe.ReplaceAllString(s, "<path>")
	s = numberRe.ReplaceAllString(s, "<num>")
	if r := []rune(s); len(r) > maxExampleLen {
		s = string(r[:maxExampleLen])
	}
	return s
}

func classify(normalized string) ErrorCategory {
	for _, rule := range categoryKeywords {
		for _, kw := range rule.keywords {
			if strings.Contains(normalized, kw) {
				return rule.category
			}
		}
	}
	return ErrorOther
}

func classifyErrors(samples []Sample) []ErrorPattern {
	type group struct {
		category ErrorCategory
		example  string
		count    int
	}
	groups := map[string]*group{}
	var order []string
	for _, s := range samples {
		if s.Success || strings.TrimSpace(s.ErrorText) == "" {
			continue
		}
		normalized := normalize(s.ErrorText)
		g, ok := groups[normalized]
		if !ok {
			g = &group{category: classify(normalized), example: normalized}
			groups[normalized] = g
			order = append(order, normalized)
		}
		g.count++
	}
	sort.Strings(order)
	patterns := make([]ErrorPattern, 0, len(order))
	for _, normalized := range order {
		g := groups[normalized]
		hash, _ := canon.Hash(normalized)
		patterns = append(patterns, ErrorPattern{
			Category:    g.category,
			PatternHash: hash,
			Example:     g.example,
			Count:       g.count,
		})
	}
	return patterns
}
