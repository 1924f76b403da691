// internal/models/query_types.go
package models

type QueryType string

const (
	QueryTypeInventorySearch  QueryType = "inventory_search"
	QueryTypeUnitDetails      QueryType = "unit_details"
	QueryTypeTransactionsList QueryType = "transactions_list"
	QueryTypeDrugSearch       QueryType = "drug_search"
	QueryTypeDrugByNDC        QueryType = "drug_by_ndc"

	QueryTypeDashboardStats     QueryType = "dashboard_stats"
	QueryTypeUnitLookup         QueryType = "unit_lookup"
	QueryTypeTransactionDetails QueryType = "transaction_details"
)
