// internal/smartsearch/types.go
package smartsearch

import "time"

// ExpirationWindow classifies how soon a medication unit expires.
type ExpirationWindow string

const (
	ExpirationExpired      ExpirationWindow = "EXPIRED"
	ExpirationWithin7Days  ExpirationWindow = "EXPIRING_7_DAYS"
	ExpirationWithin30Days ExpirationWindow = "EXPIRING_30_DAYS"
	ExpirationWithin60Days ExpirationWindow = "EXPIRING_60_DAYS"
	ExpirationWithin90Days ExpirationWindow = "EXPIRING_90_DAYS"
)

var expirationDays = map[ExpirationWindow]int{
	ExpirationExpired:      0,
	ExpirationWithin7Days:  7,
	ExpirationWithin30Days: 30,
	ExpirationWithin60Days: 60,
	ExpirationWithin90Days: 90,
}

// Valid reports whether w is one of the known windows.
func (w ExpirationWindow) Valid() bool {
	_, ok := expirationDays[w]
	return ok
}

// Days returns the look-ahead of the window. EXPIRED and unknown windows return 0.
func (w ExpirationWindow) Days() int {
	return expirationDays[w]
}

// Bounds returns the half-open date range [from, to) of expiry dates the
// window selects, relative to the start of now's day. A nil bound is open.
func (w ExpirationWindow) Bounds(now time.Time) (from, to *time.Time) {
	if !w.Valid() {
		return nil, nil
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if w == ExpirationExpired {
		return nil, &today
	}
	end := today.AddDate(0, 0, w.Days()+1)
	return &today, &end
}

func windowForDays(days int) (ExpirationWindow, bool) {
	switch days {
	case 7:
		return ExpirationWithin7Days, true
	case 30:
		return ExpirationWithin30Days, true
	case 60:
		return ExpirationWithin60Days, true
	case 90:
		return ExpirationWithin90Days, true
	}
	return "", false
}

type SortField string

const (
	SortByExpiryDate     SortField = "EXPIRY_DATE"
	SortByMedicationName SortField = "MEDICATION_NAME"
	SortByQuantity       SortField = "QUANTITY"
	SortByStrength       SortField = "STRENGTH"
)

type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// Filters is the sparse set of structured constraints recognized in a query.
// Zero-valued fields mean the corresponding pattern did not match.
type Filters struct {
	MedicationName   string           `json:"medicationName,omitempty"`
	NDCID            string           `json:"ndcId,omitempty"`
	MinStrength      *float64         `json:"minStrength,omitempty"`
	MaxStrength      *float64         `json:"maxStrength,omitempty"`
	ExpirationWindow ExpirationWindow `json:"expirationWindow,omitempty"`
	SortBy           SortField        `json:"sortBy,omitempty"`
	SortOrder        SortOrder        `json:"sortOrder,omitempty"`
}

// IsEmpty reports whether no filter was recognized.
func (f Filters) IsEmpty() bool {
	return len(f.Dimensions()) == 0
}

// Dimensions lists the filter kinds that are set, in rule order.
func (f Filters) Dimensions() []string {
	dims := []string{}
	if f.NDCID != "" {
		dims = append(dims, "ndc")
	}
	if f.ExpirationWindow != "" {
		dims = append(dims, "expiration")
	}
	if f.MinStrength != nil || f.MaxStrength != nil {
		dims = append(dims, "strength")
	}
	if f.SortBy != "" {
		dims = append(dims, "sort_by")
	}
	if f.SortOrder != "" {
		dims = append(dims, "sort_order")
	}
	if f.MedicationName != "" {
		dims = append(dims, "medication_name")
	}
	return dims
}

// SearchQuery is the result of parsing a free-text query.
type SearchQuery struct {
	Filters     Filters  `json:"filters"`
	SearchTerms []string `json:"searchTerms"`
}

func emptyQuery() SearchQuery {
	return SearchQuery{SearchTerms: []string{}}
}
