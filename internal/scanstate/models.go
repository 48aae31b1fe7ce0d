package scanstate

import "time"

// ScanState is the per-user scan bookkeeping record
type ScanState struct {
	UserID               string     `json:"user_id"`
	InitialScanCompleted bool       `json:"initial_scan_completed"`
	LastScanAt           *time.Time `json:"last_scan_at,omitempty"`
	TotalScans           int        `json:"total_scans"`
	AccountCreatedAt     *time.Time `json:"account_created_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// NeedsInitialScan reports whether the next scan must be a full pass
func (s *ScanState) NeedsInitialScan() bool {
	return !s.InitialScanCompleted
}

// AccountRecreated reports whether the account was created after the last scan,
// meaning the stored state belongs to a previous incarnation of the account.
func (s *ScanState) AccountRecreated(accountCreatedAt *time.Time) bool {
	if accountCreatedAt == nil || s.LastScanAt == nil {
		return false
	}
	return accountCreatedAt.After(*s.LastScanAt)
}
