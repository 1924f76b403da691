// internal/workers/drugs/search-drug-index/queries/builder.go
package queries

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"clinic-inventory-workers/internal/smartsearch"
)

var ErrMissingIndex = errors.New("index name is required")

// Document fields of the medication index.
const (
	FieldMedicationName = "medication_name"
	FieldGenericName    = "generic_name"
	FieldNDCDigits      = "ndc_digits"
	FieldStrength       = "strength"
	FieldExpiryDate     = "expiry_date"
	FieldAvailable      = "available_quantity"
	FieldLotID          = "lot_id"
	FieldNotes          = "optional_notes"
	FieldClinicID       = "clinic_id"
)

var sortFields = map[smartsearch.SortField]string{
	smartsearch.SortByExpiryDate:     FieldExpiryDate,
	smartsearch.SortByMedicationName: FieldMedicationName + ".keyword",
	smartsearch.SortByQuantity:       FieldAvailable,
	smartsearch.SortByStrength:       FieldStrength,
}

// DrugSearch describes one search against the medication index.
type DrugSearch struct {
	Index       string
	ClinicID    string
	SearchQuery smartsearch.SearchQuery
	From        int
	Size        int
}

// BuildBody translates a parsed query into an Elasticsearch search body.
func BuildBody(ds DrugSearch) map[string]interface{} {
	f := ds.SearchQuery.Filters
	must := []interface{}{}
	filter := []interface{}{}
	should := []interface{}{}

	if f.MedicationName != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     f.MedicationName,
				"fields":    []string{FieldMedicationName + "^3", FieldGenericName + "^2"},
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		})
	}

	if ds.ClinicID != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{FieldClinicID: ds.ClinicID},
		})
	}

	if digits := smartsearch.NormalizeNDC(f.NDCID); digits != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{FieldNDCDigits: digits},
		})
	}

	if f.MinStrength != nil || f.MaxStrength != nil {
		r := map[string]interface{}{}
		if f.MinStrength != nil {
			r["gte"] = *f.MinStrength
		}
		if f.MaxStrength != nil {
			r["lte"] = *f.MaxStrength
		}
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{FieldStrength: r},
		})
	}

	if r := expiryRange(f.ExpirationWindow); r != nil {
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{FieldExpiryDate: r},
		})
	}

	for _, term := range ds.SearchQuery.SearchTerms {
		if smartsearch.IsStopword(term) {
			continue
		}
		should = append(should, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  term,
				"fields": []string{FieldMedicationName, FieldGenericName, FieldLotID, FieldNotes},
			},
		})
	}

	boolQuery := map[string]interface{}{}
	if len(must) == 0 && len(should) == 0 {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}
	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	if len(should) > 0 {
		boolQuery["should"] = should
		if f.MedicationName == "" {
			boolQuery["minimum_should_match"] = 1
		}
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}
	if sort := buildSort(f); sort != nil {
		body["sort"] = sort
	}
	return body
}

// expiryRange mirrors ExpirationWindow.Bounds with date math rounded to the day.
func expiryRange(w smartsearch.ExpirationWindow) map[string]interface{} {
	if !w.Valid() {
		return nil
	}
	if w == smartsearch.ExpirationExpired {
		return map[string]interface{}{"lt": "now/d"}
	}
	return map[string]interface{}{
		"gte": "now/d",
		"lt":  fmt.Sprintf("now+%dd/d", w.Days()+1),
	}
}

// buildSort returns nil when neither sort field nor order was requested so
// hits keep relevance order.
func buildSort(f smartsearch.Filters) []interface{} {
	if f.SortBy == "" && f.SortOrder == "" {
		return nil
	}
	field, ok := sortFields[f.SortBy]
	if !ok {
		field = sortFields[smartsearch.SortByExpiryDate]
	}
	order := "asc"
	if f.SortOrder == smartsearch.SortDesc {
		order = "desc"
	}
	return []interface{}{
		map[string]interface{}{field: map[string]interface{}{"order": order}},
		"_score",
	}
}

// BuildRequest wraps BuildBody in an esapi.SearchRequest.
func BuildRequest(ds DrugSearch) (*esapi.SearchRequest, error) {
	if strings.TrimSpace(ds.Index) == "" {
		return nil, ErrMissingIndex
	}

	body, err := json.Marshal(BuildBody(ds))
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	return &esapi.SearchRequest{
		Index:          []string{ds.Index},
		Body:           bytes.NewReader(body),
		From:           &ds.From,
		Size:           &ds.Size,
		TrackTotalHits: true,
	}, nil
}
