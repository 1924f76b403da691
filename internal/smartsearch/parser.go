// Package smartsearch turns free-text inventory queries such as
// "lisinopril 10mg expiring next week" into structured filters plus the
// residual search terms that no rule claimed.
//
// Parsing is an ordered list of rules. Each rule looks at the lower-cased
// working text, records at most one filter for its dimension and replaces
// the span it matched with a segment break, so later rules never see text an
// earlier rule already consumed.
package smartsearch

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// segmentBreak stands in for consumed text. It is not whitespace, so no
// pattern can bridge across it.
const (
	segmentBreak = " | "
	segmentSep   = "|"
)

const (
	numberExpr = `(\d+(?:\.\d+)?)`
	unitExpr   = `([a-z]+(?:/[a-z]+)?)`
)

var (
	strengthToken = regexp.MustCompile(`^` + numberExpr + unitExpr + `$`)

	ndcPattern = regexp.MustCompile(`\bndc\s*:?\s*([0-9][0-9-]*)`)

	expiredPattern  = regexp.MustCompile(`\bexpired\b`)
	nextWeekPattern = regexp.MustCompile(`\b(?:expiring|expires)\s+next\s+week\b`)
	inDaysPattern   = regexp.MustCompile(`\b(?:expiring|expires)\s+(?:with)?in\s+(\d+)\s+days?\b`)

	sortByPattern    = regexp.MustCompile(`\bsort(?:ed)?\s+by\s+(expiry|expiration|exp|name|medication|drug|quantity|qty|stock|strength|dosage|dose)(?:\s+(?:date|name))?\b`)
	sortOrderPattern = regexp.MustCompile(`\b(ascending|asc|oldest\s+first|descending|desc|newest\s+first)\b`)
)

// strengthForm describes one strength pattern. Indexes refer to submatch
// groups; hi == lo for single values. lead is an optional unit attached to the
// first number of a range.
type strengthForm struct {
	pattern      *regexp.Regexp
	lo, hi       int
	lead         int
	space, unit  int
	unitOptional bool
}

// Range forms come before single forms so "5-20mg" is never read as 20mg.
var strengthForms = []strengthForm{
	{
		pattern:      regexp.MustCompile(`\bstrength\s*:?\s*` + numberExpr + `\s*(?:-|to)\s*` + numberExpr + `(\s*)` + unitExpr + `?`),
		lo:           1,
		hi:           2,
		space:        3,
		unit:         4,
		unitOptional: true,
	},
	{
		pattern: regexp.MustCompile(`\b` + numberExpr + unitExpr + `?\s*(?:-|to)\s*` + numberExpr + `(\s*)` + unitExpr + `\b`),
		lo:      1,
		lead:    2,
		hi:      3,
		space:   4,
		unit:    5,
	},
	{
		// "5mg-20", "5mg to 20": the unit on the first number covers both.
		pattern:      regexp.MustCompile(`\b` + numberExpr + unitExpr + `\s*(?:-|to)\s*` + numberExpr + `(\s*)` + unitExpr + `?\b`),
		lo:           1,
		lead:         2,
		hi:           3,
		space:        4,
		unit:         5,
		unitOptional: true,
	},
	{
		pattern:      regexp.MustCompile(`\bstrength\s*:?\s*` + numberExpr + `(\s*)` + unitExpr + `?`),
		lo:           1,
		hi:           1,
		space:        2,
		unit:         3,
		unitOptional: true,
	},
	{
		pattern: regexp.MustCompile(`\b` + numberExpr + `(\s*)` + unitExpr + `\b`),
		lo:      1,
		hi:      1,
		space:   2,
		unit:    3,
	},
}

// Units accepted when separated from the number by whitespace. Attached
// units ("10ml", "5iu") are accepted as long as they are not durations.
var spacedUnits = map[string]bool{
	"mg": true, "mcg": true, "ug": true, "g": true, "gm": true, "kg": true,
	"ml": true, "l": true, "iu": true, "unit": true, "units": true, "unt": true,
	"meq": true, "mmol": true, "gr": true,
}

var nonUnits = map[string]bool{
	"day": true, "days": true, "week": true, "weeks": true, "wk": true, "wks": true,
	"month": true, "months": true, "mo": true, "year": true, "years": true, "yr": true, "yrs": true,
	"hour": true, "hours": true, "hr": true, "hrs": true,
	"st": true, "nd": true, "rd": true, "th": true,
}

var sortFields = map[string]SortField{
	"expiry":     SortByExpiryDate,
	"expiration": SortByExpiryDate,
	"exp":        SortByExpiryDate,
	"name":       SortByMedicationName,
	"medication": SortByMedicationName,
	"drug":       SortByMedicationName,
	"quantity":   SortByQuantity,
	"qty":        SortByQuantity,
	"stock":      SortByQuantity,
	"strength":   SortByStrength,
	"dosage":     SortByStrength,
	"dose":       SortByStrength,
}

type workingText struct {
	text string
}

func (w *workingText) consume(start, end int) {
	w.text = w.text[:start] + segmentBreak + w.text[end:]
}

type rule struct {
	name  string
	apply func(w *workingText, q *SearchQuery)
}

var rules = []rule{
	{name: "ndc", apply: applyNDC},
	{name: "expiration", apply: applyExpiration},
	{name: "strength", apply: applyStrength},
	{name: "sort_by", apply: applySortBy},
	{name: "sort_order", apply: applySortOrder},
	{name: "residual", apply: applyResidual},
}

// Parse converts a free-text query into a SearchQuery. It never fails:
// anything no rule recognizes ends up in SearchTerms.
func Parse(query string) SearchQuery {
	text := strings.ToLower(strings.TrimSpace(query))
	if text == "" {
		return emptyQuery()
	}

	q := emptyQuery()
	w := &workingText{text: text}
	for _, r := range rules {
		r.apply(w, &q)
	}
	return q
}

// ParsePtr is Parse for optional input; nil parses like "".
func ParsePtr(query *string) SearchQuery {
	if query == nil {
		return emptyQuery()
	}
	return Parse(*query)
}

func applyNDC(w *workingText, q *SearchQuery) {
	m := ndcPattern.FindStringSubmatchIndex(w.text)
	if m == nil {
		return
	}
	code := strings.TrimRight(w.text[m[2]:m[3]], "-")
	if code == "" {
		return
	}
	q.Filters.NDCID = code
	w.consume(m[0], m[1])
}

func applyExpiration(w *workingText, q *SearchQuery) {
	if m := expiredPattern.FindStringIndex(w.text); m != nil {
		q.Filters.ExpirationWindow = ExpirationExpired
		w.consume(m[0], m[1])
		return
	}
	if m := nextWeekPattern.FindStringIndex(w.text); m != nil {
		q.Filters.ExpirationWindow = ExpirationWithin7Days
		w.consume(m[0], m[1])
		return
	}
	for _, m := range inDaysPattern.FindAllStringSubmatchIndex(w.text, -1) {
		days, err := strconv.Atoi(w.text[m[2]:m[3]])
		if err != nil {
			continue
		}
		window, ok := windowForDays(days)
		if !ok {
			continue
		}
		q.Filters.ExpirationWindow = window
		w.consume(m[0], m[1])
		return
	}
}

func applyStrength(w *workingText, q *SearchQuery) {
	for _, form := range strengthForms {
		lo, hi, start, end, ok := form.find(w.text)
		if !ok {
			continue
		}
		q.Filters.MinStrength = &lo
		q.Filters.MaxStrength = &hi
		w.consume(start, end)
		return
	}
}

func (f strengthForm) find(text string) (lo, hi float64, start, end int, ok bool) {
	group := func(m []int, i int) (string, bool) {
		if i <= 0 || m[2*i] < 0 {
			return "", false
		}
		return text[m[2*i]:m[2*i+1]], true
	}

	for _, m := range f.pattern.FindAllStringSubmatchIndex(text, -1) {
		if lead, found := group(m, f.lead); found && !acceptUnit(lead, true) {
			continue
		}

		end = m[1]
		unit, hasUnit := group(m, f.unit)
		attached := m[2*f.space] == m[2*f.space+1]
		if !hasUnit || !acceptUnit(unit, attached) {
			if !f.unitOptional {
				continue
			}
			end = m[2*f.hi+1]
		}

		a, errA := strconv.ParseFloat(text[m[2*f.lo]:m[2*f.lo+1]], 64)
		b, errB := strconv.ParseFloat(text[m[2*f.hi]:m[2*f.hi+1]], 64)
		if errA != nil || errB != nil {
			continue
		}
		return math.Min(a, b), math.Max(a, b), m[0], end, true
	}
	return 0, 0, 0, 0, false
}

func acceptUnit(unit string, attached bool) bool {
	base := unit
	if i := strings.IndexByte(unit, '/'); i >= 0 {
		base = unit[:i]
	}
	if nonUnits[base] {
		return false
	}
	return attached || spacedUnits[base]
}

func applySortBy(w *workingText, q *SearchQuery) {
	m := sortByPattern.FindStringSubmatchIndex(w.text)
	if m == nil {
		return
	}
	field, ok := sortFields[w.text[m[2]:m[3]]]
	if !ok {
		return
	}
	q.Filters.SortBy = field
	w.consume(m[0], m[1])
}

func applySortOrder(w *workingText, q *SearchQuery) {
	m := sortOrderPattern.FindStringSubmatchIndex(w.text)
	if m == nil {
		return
	}
	switch word := strings.Fields(w.text[m[2]:m[3]])[0]; word {
	case "ascending", "asc", "oldest":
		q.Filters.SortOrder = SortAsc
	default:
		q.Filters.SortOrder = SortDesc
	}
	w.consume(m[0], m[1])
}

// applyResidual tokenizes whatever is left. The first run of meaningful
// tokens, inside the first segment that has one, becomes the medication name.
func applyResidual(w *workingText, q *SearchQuery) {
	for _, segment := range strings.Split(w.text, segmentSep) {
		tokens := tokenize(segment)
		q.SearchTerms = append(q.SearchTerms, tokens...)

		if q.Filters.MedicationName == "" {
			if name := medicationPhrase(tokens); name != "" {
				q.Filters.MedicationName = name
			}
		}
	}
}

const tokenPunctuation = `:,;.!?()[]{}"'`

func tokenize(segment string) []string {
	var tokens []string
	for _, field := range strings.Fields(segment) {
		if tok := strings.Trim(field, tokenPunctuation); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func medicationPhrase(tokens []string) string {
	var phrase []string
	for i, tok := range tokens {
		if boundaryWords[keyword(tok)] {
			break
		}
		if fillerWords[tok] || !hasLetter(tok) || isStrength(tokens, i) {
			if len(phrase) > 0 {
				break
			}
			continue
		}
		phrase = append(phrase, tok)
	}
	return strings.Join(phrase, " ")
}

// keyword is the part of a token before any colon, so "ndc:abc" reads as ndc.
func keyword(tok string) string {
	if i := strings.IndexByte(tok, ':'); i > 0 {
		return tok[:i]
	}
	return tok
}

// isStrength reports whether tokens[i] is a strength left over after the
// strength rule took its one match: "20mg", or "mg" right after a number.
func isStrength(tokens []string, i int) bool {
	if strengthTerm(tokens[i]) {
		return true
	}
	if i == 0 || !spacedUnits[tokens[i]] {
		return false
	}
	_, err := strconv.ParseFloat(tokens[i-1], 64)
	return err == nil
}

func strengthTerm(tok string) bool {
	m := strengthToken.FindStringSubmatch(tok)
	return m != nil && acceptUnit(m[2], true)
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
