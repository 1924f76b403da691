// internal/models/drug.go
package models

type Drug struct {
	DrugID         string  `json:"drugId"`
	MedicationName string  `json:"medicationName"`
	GenericName    string  `json:"genericName"`
	Strength       float64 `json:"strength"`
	StrengthUnit   string  `json:"strengthUnit"`
	NDCID          string  `json:"ndcId"`
	Form           string  `json:"form"`
}

// DrugSearchResult is a catalog hit; InInventory marks drugs the clinic has in stock.
type DrugSearchResult struct {
	Drug
	InInventory bool `json:"inInventory"`
}

// DrugData describes a drug to resolve or create during check-in.
type DrugData struct {
	MedicationName string  `json:"medicationName"`
	GenericName    string  `json:"genericName"`
	Strength       float64 `json:"strength"`
	StrengthUnit   string  `json:"strengthUnit"`
	NDCID          string  `json:"ndcId,omitempty"`
	Form           string  `json:"form"`
}

// RxNormDrug is a normalized RxNorm concept with its package NDCs.
type RxNormDrug struct {
	RxCUI          string   `json:"rxcui"`
	MedicationName string   `json:"medicationName"`
	GenericName    string   `json:"genericName"`
	Strength       float64  `json:"strength"`
	StrengthUnit   string   `json:"strengthUnit"`
	Form           string   `json:"form"`
	NDCID          string   `json:"ndcId"`
	AllNDCs        []string `json:"allNDCs"`
	DisplayText    string   `json:"displayText"`
}
