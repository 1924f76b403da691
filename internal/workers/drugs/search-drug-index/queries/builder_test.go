package queries

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-inventory-workers/internal/smartsearch"
)

func floatPtr(v float64) *float64 { return &v }

func bodyJSON(t *testing.T, ds DrugSearch) string {
	b, err := json.Marshal(BuildBody(ds))
	require.NoError(t, err)
	return string(b)
}

func TestBuildBody_AllFilters(t *testing.T) {
	ds := DrugSearch{
		Index:    "medications",
		ClinicID: "clinic-1",
		SearchQuery: smartsearch.SearchQuery{
			Filters: smartsearch.Filters{
				MedicationName:   "lisinopril",
				NDCID:            "0093-7214-01",
				MinStrength:      floatPtr(10),
				MaxStrength:      floatPtr(20),
				ExpirationWindow: smartsearch.ExpirationWithin30Days,
				SortBy:           smartsearch.SortByStrength,
				SortOrder:        smartsearch.SortDesc,
			},
			SearchTerms: []string{"in", "fridge"},
		},
	}

	assert.JSONEq(t, `{
		"query": {"bool": {
			"must": [{"multi_match": {
				"query": "lisinopril",
				"fields": ["medication_name^3", "generic_name^2"],
				"type": "best_fields",
				"fuzziness": "AUTO"
			}}],
			"filter": [
				{"term": {"clinic_id": "clinic-1"}},
				{"term": {"ndc_digits": "0093721401"}},
				{"range": {"strength": {"gte": 10, "lte": 20}}},
				{"range": {"expiry_date": {"gte": "now/d", "lt": "now+31d/d"}}}
			],
			"should": [{"multi_match": {
				"query": "fridge",
				"fields": ["medication_name", "generic_name", "lot_id", "optional_notes"]
			}}]
		}},
		"sort": [{"strength": {"order": "desc"}}, "_score"]
	}`, bodyJSON(t, ds))
}

func TestBuildBody_Empty(t *testing.T) {
	assert.JSONEq(t, `{"query": {"bool": {"must": [{"match_all": {}}]}}}`,
		bodyJSON(t, DrugSearch{Index: "medications"}))
}

func TestBuildBody_ResidualTermsOnly(t *testing.T) {
	ds := DrugSearch{SearchQuery: smartsearch.SearchQuery{SearchTerms: []string{"stored", "fridge"}}}

	assert.JSONEq(t, `{"query": {"bool": {
		"should": [{"multi_match": {
			"query": "fridge",
			"fields": ["medication_name", "generic_name", "lot_id", "optional_notes"]
		}}],
		"minimum_should_match": 1
	}}}`, bodyJSON(t, ds))
}

func TestBuildBody_Expired(t *testing.T) {
	ds := DrugSearch{SearchQuery: smartsearch.SearchQuery{
		Filters: smartsearch.Filters{ExpirationWindow: smartsearch.ExpirationExpired},
	}}

	assert.JSONEq(t, `{"query": {"bool": {
		"must": [{"match_all": {}}],
		"filter": [{"range": {"expiry_date": {"lt": "now/d"}}}]
	}}}`, bodyJSON(t, ds))
}

func TestBuildBody_SortOrderWithoutField(t *testing.T) {
	ds := DrugSearch{SearchQuery: smartsearch.SearchQuery{
		Filters: smartsearch.Filters{SortOrder: smartsearch.SortAsc, MinStrength: floatPtr(5)},
	}}

	body := BuildBody(ds)
	assert.Equal(t, []interface{}{
		map[string]interface{}{"expiry_date": map[string]interface{}{"order": "asc"}},
		"_score",
	}, body["sort"])
}

func TestBuildBody_NameSort(t *testing.T) {
	ds := DrugSearch{SearchQuery: smartsearch.Parse("sort by name")}

	body := BuildBody(ds)
	assert.Equal(t, []interface{}{
		map[string]interface{}{"medication_name.keyword": map[string]interface{}{"order": "asc"}},
		"_score",
	}, body["sort"])
}

func TestBuildRequest(t *testing.T) {
	_, err := BuildRequest(DrugSearch{Index: "  "})
	assert.ErrorIs(t, err, ErrMissingIndex)

	req, err := BuildRequest(DrugSearch{Index: "medications", From: 40, Size: 20})
	require.NoError(t, err)
	assert.Equal(t, []string{"medications"}, req.Index)
	assert.Equal(t, 40, *req.From)
	assert.Equal(t, 20, *req.Size)
	assert.Equal(t, true, req.TrackTotalHits)
}
