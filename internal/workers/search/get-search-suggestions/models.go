// internal/workers/search/get-search-suggestions/models.go
package getsearchsuggestions

type Input struct {
	PartialInput    string `json:"partialInput"`
	IncludeExamples bool   `json:"includeExamples,omitempty"`
}

type Output struct {
	Suggestions []string `json:"suggestions"`
	Examples    []string `json:"examples,omitempty"`
}
