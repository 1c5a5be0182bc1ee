package config

import "time"

const (
	// DefaultDatabasePath is the default path for the catalog database
	DefaultDatabasePath = "./locallibrary.db"

	// DefaultPageSize is the number of records shown per list page
	DefaultPageSize = 10
)

// Renewal and lending windows.
const (
	DefaultRenewalProposal = 3 * 7 * 24 * time.Hour
	DefaultRenewalMaxAhead = 4 * 7 * 24 * time.Hour
	DefaultLoanPeriod      = 3 * 7 * 24 * time.Hour
)
