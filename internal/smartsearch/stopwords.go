package smartsearch

import "strings"

// boundaryWords introduce something other than a drug name (a location, a
// sort clause, a leftover expiry phrase). Name collection stops at them.
var boundaryWords = map[string]bool{
	"at": true, "in": true, "on": true, "near": true, "inside": true, "under": true,
	"location": true, "loc": true, "stored": true, "from": true, "shelf": true,
	"sort": true, "sorted": true, "by": true, "order": true, "with": true,
	"expiring": true, "expires": true, "expiry": true, "ndc": true, "strength": true,
}

// fillerWords carry no name information: articles, request verbs, dosage
// forms and generic nouns. They are skipped but end a name already started.
var fillerWords = map[string]bool{
	"a": true, "an": true, "the": true, "all": true, "any": true, "some": true,
	"show": true, "find": true, "list": true, "get": true, "search": true, "me": true,
	"my": true, "our": true, "of": true, "for": true, "and": true, "or": true,
	"please": true, "only": true, "that": true, "are": true, "is": true, "to": true,
	"medication": true, "medications": true, "med": true, "meds": true,
	"medicine": true, "medicines": true, "drug": true, "drugs": true,
	"tablet": true, "tablets": true, "tab": true, "tabs": true,
	"capsule": true, "capsules": true, "cap": true, "caps": true,
	"liquid": true, "liquids": true, "injection": true, "injections": true, "injectable": true,
	"cream": true, "creams": true, "ointment": true, "ointments": true,
	"solution": true, "solutions": true, "suspension": true, "syrup": true,
	"inhaler": true, "inhalers": true, "patch": true, "patches": true,
	"drop": true, "drops": true, "vial": true, "vials": true, "bottle": true, "bottles": true,
	"oral": true, "topical": true, "units": true, "unit": true,
}

// IsStopword reports whether a residual search term carries no search value
// on its own: structural keywords, fillers, bare numbers and strengths.
func IsStopword(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return boundaryWords[keyword(term)] || fillerWords[term] || !hasLetter(term) || strengthTerm(term)
}

// NormalizeNDC strips everything but digits so codes that differ only in
// dash layout compare equal.
func NormalizeNDC(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
