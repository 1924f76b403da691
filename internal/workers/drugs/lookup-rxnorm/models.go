// internal/workers/drugs/lookup-rxnorm/models.go
package lookuprxnorm

import "clinic-inventory-workers/internal/models"

type Input struct {
	SearchTerm string `json:"searchTerm"`
	MaxResults int    `json:"maxResults,omitempty"`
}

type Output struct {
	SearchTerm string              `json:"searchTerm"`
	Results    []models.RxNormDrug `json:"results"`
	Count      int                 `json:"count"`
	Cached     bool                `json:"cached"`
}
