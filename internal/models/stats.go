package models

import "time"

// UserCost is one row of the monthly top-consumers table.
type UserCost struct {
	UserID           string  `json:"userId"`
	Name             string  `json:"name,omitempty"`
	Email            string  `json:"email,omitempty"`
	Username         string  `json:"username,omitempty"`
	TotalTokens      float64 `json:"totalTokens"`
	TotalValue       float64 `json:"totalValue"`
	TransactionCount int64   `json:"transactionCount"`
	EstimatedCost    float64 `json:"estimatedCost"`
}

// CostTotals sums the same quantities over every user in the window.
type CostTotals struct {
	TotalTokens      float64 `json:"totalTokens"`
	TotalValue       float64 `json:"totalValue"`
	TransactionCount int64   `json:"transactionCount"`
	EstimatedCost    float64 `json:"estimatedCost"`
}

// CostStats is the response of GET /api/cost-stats.
type CostStats struct {
	Month       string     `json:"month"` // YYYY-MM
	PeriodStart time.Time  `json:"periodStart"`
	PeriodEnd   time.Time  `json:"periodEnd"`
	TopUsers    []UserCost `json:"topUsers"`
	Totals      CostTotals `json:"totals"`
}

// Stats holds per-collection document counts for the dashboard.
type Stats struct {
	Users         int64 `json:"users"`
	Conversations int64 `json:"conversations"`
	Messages      int64 `json:"messages"`
	Agents        int64 `json:"agents"`
	Files         int64 `json:"files"`
	Transactions  int64 `json:"transactions"`
	Projects      int64 `json:"projects"`
}
