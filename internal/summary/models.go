package summary

import "time"

// TransactionType classifies a mobile-money SMS
type TransactionType string

const (
	TypeSent      TransactionType = "sent"
	TypeReceived  TransactionType = "received"
	TypeWithdrawn TransactionType = "withdrawn"
	TypeAirtime   TransactionType = "airtime"
	TypeOther     TransactionType = "other"
)

// MonthLayout keys the monthly totals, e.g. "August 2024".
const MonthLayout = "January 2006"

// Transaction is what a single SMS says about money movement. Amounts are RWF.
type Transaction struct {
	Type    TransactionType `json:"type"`
	Amount  float64         `json:"amount"`
	Date    *time.Time      `json:"date,omitempty"`
	Balance *float64        `json:"balance,omitempty"`
}

// Summary totals a batch of messages
type Summary struct {
	TotalSent         float64            `json:"total_sent"`
	TotalReceived     float64            `json:"total_received"`
	TotalWithdrawn    float64            `json:"total_withdrawn"`
	TotalAirtime      float64            `json:"total_airtime"`
	LatestBalance     *float64           `json:"latest_balance"`
	TransactionsCount int                `json:"transactions_count"`
	MonthlySummary    map[string]float64 `json:"monthly_summary"`
}
