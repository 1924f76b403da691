package smartsearch

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strengthOf(t *testing.T, q SearchQuery) (float64, float64) {
	t.Helper()
	require.NotNil(t, q.Filters.MinStrength, "minStrength not set")
	require.NotNil(t, q.Filters.MaxStrength, "maxStrength not set")
	return *q.Filters.MinStrength, *q.Filters.MaxStrength
}

// ==========================
// Empty and Degenerate Input
// ==========================

func TestParse_EmptyInput(t *testing.T) {
	for _, query := range []string{"", "   ", "\t\n"} {
		t.Run("query="+query, func(t *testing.T) {
			q := Parse(query)
			assert.True(t, q.Filters.IsEmpty())
			assert.NotNil(t, q.SearchTerms)
			assert.Empty(t, q.SearchTerms)
		})
	}
}

func TestParsePtr_Nil(t *testing.T) {
	q := ParsePtr(nil)
	assert.True(t, q.Filters.IsEmpty())
	assert.Equal(t, []string{}, q.SearchTerms)

	query := "lisinopril"
	assert.Equal(t, Parse(query), ParsePtr(&query))
}

func TestParse_EmptyResultJSON(t *testing.T) {
	data, err := json.Marshal(Parse(""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"filters":{},"searchTerms":[]}`, string(data))
}

// ==========================
// Individual Rules
// ==========================

func TestParse_MedicationName(t *testing.T) {
	tests := []struct {
		query string
		name  string
	}{
		{"lisinopril", "lisinopril"},
		{"Lisinopril", "lisinopril"},
		{"metformin expiring in 30 days", "metformin"},
		{"show me insulin glargine", "insulin glargine"},
		{"insulin in fridge", "insulin"},
		{"metformin 500mg", "metformin"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q := Parse(tt.query)
			assert.Equal(t, tt.name, q.Filters.MedicationName)
		})
	}
}

func TestParse_MedicationNameSkipsNonNameTokens(t *testing.T) {
	tests := []struct {
		query string
		name  string
	}{
		{"10mg 20mg", ""},
		{"10mg 20 mg", ""},
		{"10mg 20mg lisinopril", "lisinopril"},
		{"lisinopril 10mg 20mg", "lisinopril"},
		{"10 to 20", ""},
		{"ndc:abc", ""},
		{"location:fridge insulin", ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q := Parse(tt.query)
			assert.Equal(t, tt.name, q.Filters.MedicationName)
		})
	}
}

func TestParse_SecondStrengthStaysInSearchTerms(t *testing.T) {
	q := Parse("10mg 20mg")

	min, max := strengthOf(t, q)
	assert.Equal(t, 10.0, min)
	assert.Equal(t, 10.0, max)
	assert.Equal(t, []string{"20mg"}, q.SearchTerms)
}

func TestParse_ExpirationWindow(t *testing.T) {
	tests := []struct {
		query    string
		expected ExpirationWindow
	}{
		{"expired", ExpirationExpired},
		{"EXPIRED", ExpirationExpired},
		{"expiring next week", ExpirationWithin7Days},
		{"expiring in 7 days", ExpirationWithin7Days},
		{"expiring in 30 days", ExpirationWithin30Days},
		{"expires in 30 days", ExpirationWithin30Days},
		{"expires in 60 days", ExpirationWithin60Days},
		{"expiring within 60 days", ExpirationWithin60Days},
		{"expiring in 90 days", ExpirationWithin90Days},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q := Parse(tt.query)
			assert.Equal(t, tt.expected, q.Filters.ExpirationWindow)
			assert.NotContains(t, q.SearchTerms, "expiring")
			assert.NotContains(t, q.SearchTerms, "expired")
		})
	}
}

func TestParse_ExpirationUnsupportedDayCount(t *testing.T) {
	q := Parse("expiring in 45 days")

	assert.Empty(t, q.Filters.ExpirationWindow)
	assert.Nil(t, q.Filters.MinStrength, "a day count is not a strength")
	assert.Empty(t, q.Filters.MedicationName)
	assert.Equal(t, []string{"expiring", "in", "45", "days"}, q.SearchTerms)
}

func TestParse_NDC(t *testing.T) {
	tests := []struct {
		query    string
		expected string
	}{
		{"ndc:0093-7214-01", "0093-7214-01"},
		{"ndc 12345", "12345"},
		{"NDC: 0093-7214-01", "0093-7214-01"},
		{"ndc:12345- lisinopril", "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q := Parse(tt.query)
			assert.Equal(t, tt.expected, q.Filters.NDCID)
			assert.Nil(t, q.Filters.MinStrength)
		})
	}
}

func TestParse_NDCOnlyFirstMatch(t *testing.T) {
	q := Parse("ndc 111 ndc 222")
	assert.Equal(t, "111", q.Filters.NDCID)
	assert.Contains(t, q.SearchTerms, "222")
}

func TestParse_StrengthSingle(t *testing.T) {
	tests := []struct {
		query    string
		expected float64
	}{
		{"10mg", 10},
		{"5 mg", 5},
		{"strength: 100", 100},
		{"strength 250", 250},
		{"2.5mg", 2.5},
		{"10ml", 10},
		{"0.5 ml", 0.5},
		{"100mcg", 100},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			min, max := strengthOf(t, Parse(tt.query))
			assert.Equal(t, tt.expected, min)
			assert.Equal(t, tt.expected, max)
		})
	}
}

func TestParse_StrengthRange(t *testing.T) {
	tests := []struct {
		query string
		min   float64
		max   float64
	}{
		{"5-20mg", 5, 20},
		{"10 to 50mg", 10, 50},
		{"10 to 50 mg", 10, 50},
		{"5mg-20mg", 5, 20},
		{"strength 10-30", 10, 30},
		{"strength: 10 to 30", 10, 30},
		{"20-5mg", 5, 20},
		{"strength 30-10", 10, 30},
		{"5mg-20", 5, 20},
		{"5mg to 20", 5, 20},
		{"5mg to 20 tablets", 5, 20},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			min, max := strengthOf(t, Parse(tt.query))
			assert.Equal(t, tt.min, min)
			assert.Equal(t, tt.max, max)
			assert.LessOrEqual(t, min, max)
		})
	}
}

func TestParse_StrengthRangeLeadingUnitLeavesNoRemainder(t *testing.T) {
	for _, query := range []string{"5mg-20", "5mg to 20"} {
		t.Run(query, func(t *testing.T) {
			q := Parse(query)
			assert.Empty(t, q.Filters.MedicationName)
			assert.Empty(t, q.SearchTerms)
		})
	}
}

func TestParse_StrengthRangeLeadingDurationIsNotUnit(t *testing.T) {
	q := Parse("1st to 3")

	assert.Nil(t, q.Filters.MinStrength)
	assert.Nil(t, q.Filters.MaxStrength)
}

func TestParse_StrengthIgnoresNonUnits(t *testing.T) {
	for _, query := range []string{"lisinopril 10", "shelf 2nd", "30 days", "ibuprofen 200 sort"} {
		t.Run(query, func(t *testing.T) {
			q := Parse(query)
			assert.Nil(t, q.Filters.MinStrength)
			assert.Nil(t, q.Filters.MaxStrength)
		})
	}
}

func TestParse_StrengthKeywordKeepsFollowingWords(t *testing.T) {
	q := Parse("strength: 100 newest first")

	min, max := strengthOf(t, q)
	assert.Equal(t, 100.0, min)
	assert.Equal(t, 100.0, max)
	assert.Equal(t, SortDesc, q.Filters.SortOrder)
}

func TestParse_SortBy(t *testing.T) {
	tests := []struct {
		query    string
		expected SortField
	}{
		{"sort by expiry", SortByExpiryDate},
		{"sort by expiration date", SortByExpiryDate},
		{"sort by name", SortByMedicationName},
		{"sorted by drug name", SortByMedicationName},
		{"sort by quantity", SortByQuantity},
		{"sort by qty", SortByQuantity},
		{"sort by strength", SortByStrength},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q := Parse(tt.query)
			assert.Equal(t, tt.expected, q.Filters.SortBy)
			assert.Empty(t, q.SearchTerms)
		})
	}
}

func TestParse_SortByUnknownDimension(t *testing.T) {
	q := Parse("sort by color")

	assert.Empty(t, q.Filters.SortBy)
	assert.Empty(t, q.Filters.MedicationName)
	assert.Equal(t, []string{"sort", "by", "color"}, q.SearchTerms)
}

func TestParse_SortOrder(t *testing.T) {
	for _, query := range []string{"ascending", "asc", "oldest first", "ASC"} {
		t.Run(query, func(t *testing.T) {
			assert.Equal(t, SortAsc, Parse(query).Filters.SortOrder)
		})
	}
	for _, query := range []string{"descending", "desc", "newest first"} {
		t.Run(query, func(t *testing.T) {
			assert.Equal(t, SortDesc, Parse(query).Filters.SortOrder)
		})
	}
}

func TestParse_SortOrderWithoutSortBy(t *testing.T) {
	q := Parse("lisinopril desc")

	assert.Equal(t, SortDesc, q.Filters.SortOrder)
	assert.Empty(t, q.Filters.SortBy)
	assert.Equal(t, "lisinopril", q.Filters.MedicationName)
}

// ==========================
// Residual Terms
// ==========================

func TestParse_LocationKeywordsStayInSearchTerms(t *testing.T) {
	for _, query := range []string{"at fridge", "location: fridge", "in room temp"} {
		t.Run(query, func(t *testing.T) {
			q := Parse(query)
			assert.NotEmpty(t, q.SearchTerms)
			assert.Empty(t, q.Filters.MedicationName)
		})
	}
}

func TestParse_FormTypesStayInSearchTerms(t *testing.T) {
	for _, query := range []string{"tablets", "capsules", "liquid medications"} {
		t.Run(query, func(t *testing.T) {
			q := Parse(query)
			assert.NotEmpty(t, q.SearchTerms)
			assert.Empty(t, q.Filters.MedicationName)
		})
	}
}

func TestParse_SearchTermsPreserveOrderAndDuplicates(t *testing.T) {
	q := Parse("Fridge, fridge; (cabinet)")
	assert.Equal(t, []string{"fridge", "fridge", "cabinet"}, q.SearchTerms)
}

func TestParse_ConsumedTextNeverReused(t *testing.T) {
	q := Parse("ndc 0093-7214-01 10mg")

	assert.Equal(t, "0093-7214-01", q.Filters.NDCID)
	min, max := strengthOf(t, q)
	assert.Equal(t, 10.0, min)
	assert.Equal(t, 10.0, max)
	assert.Empty(t, q.SearchTerms)
}

// ==========================
// Combined Queries
// ==========================

func TestParse_CombinedQueries(t *testing.T) {
	t.Run("name strength and expiration", func(t *testing.T) {
		q := Parse("lisinopril 10mg expiring next week")

		assert.Equal(t, "lisinopril", q.Filters.MedicationName)
		min, max := strengthOf(t, q)
		assert.Equal(t, 10.0, min)
		assert.Equal(t, 10.0, max)
		assert.Equal(t, ExpirationWithin7Days, q.Filters.ExpirationWindow)
	})

	t.Run("daily inventory check", func(t *testing.T) {
		q := Parse("expiring next week sort by expiry")

		assert.Equal(t, ExpirationWithin7Days, q.Filters.ExpirationWindow)
		assert.Equal(t, SortByExpiryDate, q.Filters.SortBy)
	})

	t.Run("compliance report", func(t *testing.T) {
		q := Parse("expired medications sort by name")

		assert.Equal(t, ExpirationExpired, q.Filters.ExpirationWindow)
		assert.Equal(t, SortByMedicationName, q.Filters.SortBy)
		assert.Equal(t, []string{"medications"}, q.SearchTerms)
	})

	t.Run("location specific check", func(t *testing.T) {
		q := Parse("tablets at fridge expiring in 30 days")

		assert.Equal(t, ExpirationWithin30Days, q.Filters.ExpirationWindow)
		assert.True(t, containsSubstring(q.SearchTerms, "fridge"))
		assert.True(t, containsSubstring(q.SearchTerms, "tablet"))
		assert.Empty(t, q.Filters.MedicationName)
	})

	t.Run("strength range analysis", func(t *testing.T) {
		q := Parse("medications 10-50mg sort by strength ascending")

		min, max := strengthOf(t, q)
		assert.Equal(t, 10.0, min)
		assert.Equal(t, 50.0, max)
		assert.Equal(t, SortByStrength, q.Filters.SortBy)
		assert.Equal(t, SortAsc, q.Filters.SortOrder)
	})
}

func TestParse_Deterministic(t *testing.T) {
	for _, query := range ExampleQueries() {
		assert.Equal(t, Parse(query), Parse(query), query)
	}
}

func TestParse_NeverPanics(t *testing.T) {
	inputs := []string{
		"ndc", "ndc:", "ndc:-", "strength", "strength:", "-", "to", "10-", "-10mg",
		"sort by", "|||", "10 to", "expiring in", "expiring in days", "ünïcödé 5mg",
		strings.Repeat("10mg ", 200),
	}
	for _, input := range inputs {
		assert.NotPanics(t, func() {
			q := Parse(input)
			assert.NotNil(t, q.SearchTerms)
		}, input)
	}
}

func TestFilters_Dimensions(t *testing.T) {
	q := Parse("lisinopril 10mg expired sort by name desc")

	assert.Equal(t, []string{"expiration", "strength", "sort_by", "sort_order", "medication_name"}, q.Filters.Dimensions())
	assert.False(t, q.Filters.IsEmpty())
}

// ==========================
// Expiration Bounds
// ==========================

func TestExpirationWindow_Bounds(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	from, to := ExpirationExpired.Bounds(now)
	assert.Nil(t, from)
	require.NotNil(t, to)
	assert.Equal(t, today, *to)

	from, to = ExpirationWithin30Days.Bounds(now)
	require.NotNil(t, from)
	require.NotNil(t, to)
	assert.Equal(t, today, *from)
	assert.Equal(t, today.AddDate(0, 0, 31), *to)

	from, to = ExpirationWindow("EXPIRING_5_DAYS").Bounds(now)
	assert.Nil(t, from)
	assert.Nil(t, to)
}

func TestIsStopword(t *testing.T) {
	for _, term := range []string{"at", "in", "sort", "by", "tablets", "medications", "45", "", "to", "20mg", "ndc:abc"} {
		assert.True(t, IsStopword(term), term)
	}
	for _, term := range []string{"fridge", "lisinopril", "cabinet"} {
		assert.False(t, IsStopword(term), term)
	}
}

func TestNormalizeNDC(t *testing.T) {
	assert.Equal(t, "0093721401", NormalizeNDC("0093-7214-01"))
	assert.Equal(t, "12345", NormalizeNDC(" 12 345 "))
	assert.Equal(t, "", NormalizeNDC("MANUAL"))
}

func containsSubstring(terms []string, sub string) bool {
	for _, term := range terms {
		if strings.Contains(term, sub) {
			return true
		}
	}
	return false
}
