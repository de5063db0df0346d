// internal/models/query_types.go
package models

type QueryType string

const (
	QueryTypeTenderCriteria QueryType = "tender_criteria"
	QueryTypeTenderBids     QueryType = "tender_bids"
	QueryTypeBidDetails     QueryType = "bid_details"
	QueryTypeBidAuditTrail  QueryType = "bid_audit_trail"
)
