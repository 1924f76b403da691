// internal/workers/drugs/search-drug-index/models.go
package searchdrugindex

import "clinic-inventory-workers/internal/smartsearch"

type Input struct {
	Query       string                   `json:"query,omitempty"`
	SearchQuery *smartsearch.SearchQuery `json:"searchQuery,omitempty"`
	ClinicID    string                   `json:"clinicId,omitempty"`
	IndexName   string                   `json:"indexName,omitempty"`
	From        int                      `json:"from,omitempty"`
	Size        int                      `json:"size,omitempty"`
}

type Output struct {
	Data      []map[string]interface{} `json:"data"`
	TotalHits int64                    `json:"totalHits"`
	MaxScore  float64                  `json:"maxScore"`
	Took      int64                    `json:"took"` // milliseconds, as reported by Elasticsearch
}
